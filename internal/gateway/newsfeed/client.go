package newsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"polyflow/internal/bus"
	"polyflow/internal/config"
	"polyflow/internal/ingestion"
	"polyflow/internal/types"
)

// responseSchema is the contract the upstream news API must honor. A feed
// that drifts from it is rejected before any article reaches the bus.
const responseSchema = `{
  "type": "object",
  "required": ["articles"],
  "properties": {
    "articles": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["headline"],
        "properties": {
          "headline": {"type": "string", "minLength": 1},
          "url": {"type": "string"},
          "sentiment": {"type": "number", "minimum": -1, "maximum": 1}
        }
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("newsfeed.json", responseSchema)

// Client implements ingestion.Source against an external news API that
// returns pre-scored headlines.
type Client struct {
	cfg  config.NewsfeedConfig
	http *http.Client
}

func New(cfg config.NewsfeedConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return "newsfeed" }

func (c *Client) Fetch(ctx context.Context) ingestion.FetchResult {
	raw, err := c.fetchRaw(ctx)
	if err != nil {
		return ingestion.Failure(err)
	}
	events, err := parseArticles(raw)
	if err != nil {
		return ingestion.Failure(err)
	}
	return ingestion.Successful(events...)
}

func (c *Client) fetchRaw(ctx context.Context) (string, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "v1", "articles")
	if err != nil {
		return "", fmt.Errorf("newsfeed: bad base url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("newsfeed: upstream returned %d", resp.StatusCode)
	}
	return string(body), nil
}

// parseArticles validates the payload against the response schema, then
// walks it with gjson.
func parseArticles(raw string) ([]ingestion.RawEvent, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !gjson.Valid(raw) {
		return nil, fmt.Errorf("newsfeed: response is not valid json")
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("newsfeed: decode response: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("newsfeed: response failed schema validation: %w", err)
	}
	now := time.Now()
	var events []ingestion.RawEvent
	gjson.Get(raw, "articles").ForEach(func(_, article gjson.Result) bool {
		headline := strings.TrimSpace(article.Get("headline").String())
		if headline == "" {
			return true
		}
		events = append(events, ingestion.RawEvent{
			Timestamp: now,
			Type:      bus.TypeNewsArticle,
			Source:    "newsfeed",
			Payload: types.NewsArticle{
				Headline:  headline,
				URL:       article.Get("url").String(),
				Sentiment: article.Get("sentiment").Float(),
			},
		})
		return true
	})
	return events, nil
}
