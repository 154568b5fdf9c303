package mastodon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	mastodonapi "github.com/mattn/go-mastodon"

	"github.com/repost-sh/repost/internal/repost"
)

const (
	envServer       = "REPOST_MASTODON_SERVER"
	envAccessToken  = "REPOST_MASTODON_ACCESS_TOKEN"
	envClientID     = "REPOST_MASTODON_CLIENT_ID"
	envClientSecret = "REPOST_MASTODON_CLIENT_SECRET"

	providerName   = "mastodon"
	requestTimeout = 30 * time.Second
)

// Config contains the settings needed to reach a Mastodon server.
type Config struct {
	Server       string
	AccessToken  string
	ClientID     string
	ClientSecret string
}

// Client wraps the Mastodon API client behind the Publisher interface.
type Client struct {
	client *mastodonapi.Client
}

// New constructs a Mastodon publisher based on environment configuration.
func New(ctx context.Context) (repost.Publisher, error) {
	cfg, err := loadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	mastodonClient := mastodonapi.NewClient(&mastodonapi.Config{
		Server:       cfg.Server,
		AccessToken:  cfg.AccessToken,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	})
	mastodonClient.Timeout = requestTimeout

	return &Client{client: mastodonClient}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return providerName }

// Publish posts a new toot to the configured Mastodon instance. Local media
// files are uploaded; remote media URLs ride along in the status text.
func (c *Client) Publish(ctx context.Context, post repost.AdaptedPost) (repost.PublishResult, error) {
	status := post.Body()

	var mediaIDs []mastodonapi.ID
	if post.Media != nil {
		if isLocalFile(post.Media.PathOrURL) {
			attachment, err := c.uploadMedia(ctx, post.Media.PathOrURL, post.Media.Note)
			if err != nil {
				return repost.PublishResult{}, err
			}
			mediaIDs = append(mediaIDs, attachment.ID)
		} else if post.Media.PathOrURL != "" {
			status = status + "\n\n" + post.Media.PathOrURL
		}
	}

	toot, err := c.client.PostStatus(ctx, &mastodonapi.Toot{
		Status:   status,
		MediaIDs: mediaIDs,
	})
	if err != nil {
		return repost.PublishResult{}, repost.RejectedError{Provider: providerName, Err: err}
	}

	return repost.PublishResult{Success: true, RemoteID: string(toot.ID)}, nil
}

func (c *Client) uploadMedia(ctx context.Context, path, description string) (*mastodonapi.Attachment, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, repost.ValidationError{
				Check:  repost.CheckMediaNoncompliant,
				Reason: fmt.Sprintf("media %q not found", path),
			}
		}
		return nil, fmt.Errorf("open media: %w", err)
	}
	defer file.Close()

	attachment, err := c.client.UploadMediaFromMedia(ctx, &mastodonapi.Media{
		File:        file,
		Description: description,
	})
	if err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}

	return attachment, nil
}

func isLocalFile(path string) bool {
	if path == "" {
		return false
	}
	return !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://")
}

func loadConfigFromEnv() (Config, error) {
	cfg := Config{
		Server:       strings.TrimSpace(os.Getenv(envServer)),
		AccessToken:  strings.TrimSpace(os.Getenv(envAccessToken)),
		ClientID:     strings.TrimSpace(os.Getenv(envClientID)),
		ClientSecret: strings.TrimSpace(os.Getenv(envClientSecret)),
	}

	var missing []string
	if cfg.Server == "" {
		missing = append(missing, envServer)
	}
	if cfg.AccessToken == "" {
		missing = append(missing, envAccessToken)
	}

	if len(missing) > 0 {
		return Config{}, repost.MissingEnvError{Provider: providerName, Variables: missing}
	}

	return cfg, nil
}
