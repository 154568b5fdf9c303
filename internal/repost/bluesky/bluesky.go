package bluesky

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"

	"github.com/repost-sh/repost/internal/repost"
)

const (
	envHandle      = "REPOST_BLUESKY_HANDLE"
	envAppPassword = "REPOST_BLUESKY_APP_PASSWORD"
	envPDSURL      = "REPOST_BLUESKY_PDS_URL"

	providerName   = "bluesky"
	defaultPDSURL  = "https://bsky.social"
	requestTimeout = 30 * time.Second
)

// Config allows the caller to supply defaults prior to reading environment variables.
type Config struct {
	PDSURL string
}

// Client implements the repost.Publisher interface for Bluesky.
type Client struct {
	client *xrpc.Client
}

// New constructs a Bluesky publisher.
func New(ctx context.Context, base Config) (repost.Publisher, error) {
	cfg, err := loadConfig(base)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: requestTimeout}
	userAgent := "repost/1"
	xrpcClient := &xrpc.Client{
		Client:    httpClient,
		Host:      cfg.PDSURL,
		UserAgent: &userAgent,
	}

	session, err := atproto.ServerCreateSession(ctx, xrpcClient, &atproto.ServerCreateSession_Input{
		Identifier: cfg.Handle,
		Password:   cfg.AppPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	xrpcClient.Auth = &xrpc.AuthInfo{
		AccessJwt:  session.AccessJwt,
		RefreshJwt: session.RefreshJwt,
		Handle:     session.Handle,
		Did:        session.Did,
	}

	return &Client{client: xrpcClient}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return providerName }

// Publish creates a new Bluesky post. Local image files become an image
// embed; remote media URLs ride along in the post text.
func (c *Client) Publish(ctx context.Context, post repost.AdaptedPost) (repost.PublishResult, error) {
	text := post.Body()

	record := &bsky.FeedPost{
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Text:      text,
	}

	if post.Media != nil {
		if post.Media.Kind == repost.MediaImage && isLocalFile(post.Media.PathOrURL) {
			blob, err := c.uploadImage(ctx, post.Media.PathOrURL)
			if err != nil {
				return repost.PublishResult{}, err
			}
			record.Embed = &bsky.FeedPost_Embed{
				EmbedImages: &bsky.EmbedImages{
					Images: []*bsky.EmbedImages_Image{
						{
							Alt:   post.Media.Note,
							Image: blob,
						},
					},
				},
			}
		} else if strings.HasPrefix(post.Media.PathOrURL, "http") {
			record.Text = text + "\n\n" + post.Media.PathOrURL
		}
	}

	res, err := atproto.RepoCreateRecord(ctx, c.client, &atproto.RepoCreateRecord_Input{
		Collection: "app.bsky.feed.post",
		Repo:       c.client.Auth.Did,
		Record: &util.LexiconTypeDecoder{
			Val: record,
		},
	})
	if err != nil {
		return repost.PublishResult{}, repost.RejectedError{Provider: providerName, Err: err}
	}

	return repost.PublishResult{Success: true, RemoteID: res.Uri}, nil
}

func (c *Client) uploadImage(ctx context.Context, path string) (*util.LexBlob, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, repost.ValidationError{
				Check:  repost.CheckMediaNoncompliant,
				Reason: fmt.Sprintf("image %q not found", path),
			}
		}
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, file); err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	resp, err := atproto.RepoUploadBlob(ctx, c.client, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("upload blob: %w", err)
	}

	if resp.Blob == nil {
		return nil, fmt.Errorf("upload blob: empty response")
	}

	return resp.Blob, nil
}

func isLocalFile(path string) bool {
	if path == "" {
		return false
	}
	return !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://")
}

// ProviderConfig merges defaults with environment-defined values.
type ProviderConfig struct {
	Handle      string
	AppPassword string
	PDSURL      string
}

func loadConfig(base Config) (ProviderConfig, error) {
	cfg := ProviderConfig{
		Handle:      strings.TrimSpace(os.Getenv(envHandle)),
		AppPassword: strings.TrimSpace(os.Getenv(envAppPassword)),
		PDSURL:      strings.TrimSpace(os.Getenv(envPDSURL)),
	}

	if cfg.PDSURL == "" {
		cfg.PDSURL = strings.TrimSpace(base.PDSURL)
	}
	if cfg.PDSURL == "" {
		cfg.PDSURL = defaultPDSURL
	}

	var missing []string
	if cfg.Handle == "" {
		missing = append(missing, envHandle)
	}
	if cfg.AppPassword == "" {
		missing = append(missing, envAppPassword)
	}

	if len(missing) > 0 {
		return ProviderConfig{}, repost.MissingEnvError{Provider: providerName, Variables: missing}
	}

	return cfg, nil
}
