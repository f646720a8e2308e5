package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"scribe/internal/services"
)

const defaultHTTPTimeout = 30 * time.Second

// Config captures the runtime settings for the video catalog API.
type Config struct {
	APIKey   string
	BaseURL  string
	Language string
}

// Metadata describes a video as reported by the catalog.
type Metadata struct {
	ExternalID   string
	Title        string
	Description  string
	ChannelTitle string
	PublishedAt  string
	ThumbnailURL string
	HasCaptions  bool
}

// Client fetches video metadata and caption tracks from a YouTube-style
// data API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a catalog client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			APIKey:   strings.TrimSpace(cfg.APIKey),
			BaseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Language: strings.TrimSpace(cfg.Language),
		},
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://www.googleapis.com/youtube/v3"
	}
	return client
}

// ExtractVideoID pulls the external video identifier out of a watch URL.
// Supported forms are youtu.be/<id>, watch?v=<id>, shorts/<id>, and
// embed/<id>; a bare identifier passes through unchanged.
func ExtractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", services.Wrap(services.ErrValidation, "", "extract video id", "url required", nil)
	}
	if !strings.Contains(raw, "/") && !strings.Contains(raw, "?") {
		return raw, nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "", "extract video id", raw, err)
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	path := strings.Trim(parsed.EscapedPath(), "/")

	switch host {
	case "youtu.be":
		if id := firstPathSegment(path); id != "" {
			return id, nil
		}
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if id := strings.TrimSpace(parsed.Query().Get("v")); id != "" {
			return id, nil
		}
		for _, prefix := range []string{"shorts/", "embed/", "live/"} {
			if strings.HasPrefix(path, prefix) {
				if id := firstPathSegment(strings.TrimPrefix(path, prefix)); id != "" {
					return id, nil
				}
			}
		}
	}
	return "", services.Wrap(services.ErrValidation, "", "extract video id", "unrecognized video url "+raw, nil)
}

func firstPathSegment(path string) string {
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		path = path[:idx]
	}
	return strings.TrimSpace(path)
}

type videoListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
			Thumbnails   struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
				Default struct {
					URL string `json:"url"`
				} `json:"default"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Caption string `json:"caption"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// FetchMetadata looks up catalog metadata for one video.
func (c *Client) FetchMetadata(ctx context.Context, externalID string) (*Metadata, error) {
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "fetch metadata", "catalog api key required", nil)
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, services.Wrap(services.ErrValidation, "", "fetch metadata", "video id required", nil)
	}

	query := url.Values{}
	query.Set("part", "snippet,contentDetails")
	query.Set("id", externalID)
	query.Set("key", c.cfg.APIKey)
	if c.cfg.Language != "" {
		query.Set("hl", c.cfg.Language)
	}

	body, err := c.get(ctx, c.cfg.BaseURL+"/videos?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var parsed videoListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, services.Wrap(services.ErrMalformed, "", "decode metadata", "", err)
	}
	if len(parsed.Items) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "", "fetch metadata", "video "+externalID+" not in catalog", nil)
	}

	item := parsed.Items[0]
	thumbnail := item.Snippet.Thumbnails.High.URL
	if thumbnail == "" {
		thumbnail = item.Snippet.Thumbnails.Default.URL
	}
	return &Metadata{
		ExternalID:   item.ID,
		Title:        item.Snippet.Title,
		Description:  item.Snippet.Description,
		ChannelTitle: item.Snippet.ChannelTitle,
		PublishedAt:  item.Snippet.PublishedAt,
		ThumbnailURL: thumbnail,
		HasCaptions:  strings.EqualFold(item.ContentDetails.Caption, "true"),
	}, nil
}

// FetchCaptions downloads the caption track for a video as plain text. It
// returns an empty string without an error when no track is published.
func (c *Client) FetchCaptions(ctx context.Context, externalID string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "", "fetch captions", "catalog api key required", nil)
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return "", services.Wrap(services.ErrValidation, "", "fetch captions", "video id required", nil)
	}

	query := url.Values{}
	query.Set("video_id", externalID)
	query.Set("key", c.cfg.APIKey)
	if c.cfg.Language != "" {
		query.Set("lang", c.cfg.Language)
	}

	endpoint := c.cfg.BaseURL + "/captions/download?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("catalog request: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "", "fetch captions", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "", "read captions", "", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("catalog request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return strings.TrimSpace(string(body)), nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog request: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "", "catalog request", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "", "catalog request", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("catalog request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
