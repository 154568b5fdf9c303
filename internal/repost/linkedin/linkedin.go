package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/repost-sh/repost/internal/logutil"
	"github.com/repost-sh/repost/internal/repost"
)

const (
	envAccessToken = "REPOST_LINKEDIN_ACCESS_TOKEN"
	envAuthorURN   = "REPOST_LINKEDIN_AUTHOR_URN"

	providerName    = "linkedin"
	defaultEndpoint = "https://api.linkedin.com/v2/ugcPosts"
	requestTimeout  = 30 * time.Second
)

// Config holds the OAuth token and the member/organization URN that posts
// are attributed to.
type Config struct {
	AccessToken string
	AuthorURN   string
	Endpoint    string
}

// Client implements the repost.Publisher interface for LinkedIn's UGC API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New constructs a LinkedIn publisher based on environment configuration.
func New(ctx context.Context) (repost.Publisher, error) {
	cfg, err := loadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: requestTimeout},
	}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return providerName }

type shareText struct {
	Text string `json:"text"`
}

type shareMedia struct {
	Status      string     `json:"status"`
	OriginalURL string     `json:"originalUrl"`
	Title       *shareText `json:"title,omitempty"`
	Description *shareText `json:"description,omitempty"`
}

type shareContent struct {
	Commentary    shareText    `json:"shareCommentary"`
	MediaCategory string       `json:"shareMediaCategory"`
	Media         []shareMedia `json:"media,omitempty"`
}

type ugcPost struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent map[string]shareContent `json:"specificContent"`
	Visibility      map[string]string       `json:"visibility"`
}

type ugcResponse struct {
	ID string `json:"id"`
}

// Publish creates a new UGC post. Remote media is referenced by URL as an
// article share; LinkedIn fetches the preview itself.
func (c *Client) Publish(ctx context.Context, post repost.AdaptedPost) (repost.PublishResult, error) {
	content := shareContent{
		Commentary:    shareText{Text: post.Body()},
		MediaCategory: "NONE",
	}
	if post.Media != nil && strings.HasPrefix(post.Media.PathOrURL, "http") {
		content.MediaCategory = "ARTICLE"
		media := shareMedia{Status: "READY", OriginalURL: post.Media.PathOrURL}
		if post.Media.Note != "" {
			media.Description = &shareText{Text: post.Media.Note}
		}
		content.Media = append(content.Media, media)
	}

	body, err := json.Marshal(ugcPost{
		Author:         c.cfg.AuthorURN,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]shareContent{
			"com.linkedin.ugc.ShareContent": content,
		},
		Visibility: map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	})
	if err != nil {
		return repost.PublishResult{}, fmt.Errorf("marshal ugc post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return repost.PublishResult{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	logutil.Debugf("posting to linkedin: source=%s media=%s", post.SourceID, content.MediaCategory)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return repost.PublishResult{}, fmt.Errorf("create post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return repost.PublishResult{}, repost.RejectedError{
			Provider: providerName,
			Err:      fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(detail))),
		}
	}

	remoteID := resp.Header.Get("X-RestLi-Id")
	if remoteID == "" {
		var parsed ugcResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err == nil {
			remoteID = parsed.ID
		}
	}

	return repost.PublishResult{Success: true, RemoteID: remoteID}, nil
}

func loadConfigFromEnv() (Config, error) {
	cfg := Config{
		AccessToken: strings.TrimSpace(os.Getenv(envAccessToken)),
		AuthorURN:   strings.TrimSpace(os.Getenv(envAuthorURN)),
		Endpoint:    defaultEndpoint,
	}

	var missing []string
	if cfg.AccessToken == "" {
		missing = append(missing, envAccessToken)
	}
	if cfg.AuthorURN == "" {
		missing = append(missing, envAuthorURN)
	}

	if len(missing) > 0 {
		return Config{}, repost.MissingEnvError{Provider: providerName, Variables: missing}
	}

	return cfg, nil
}
