// Package search wraps the Exa neural web-search API. Queries are restricted
// to an allow-listed set of UK care-sector domains and results are cached;
// the provider bills per request.
package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/caredraft/internal/drafting"
	"github.com/caredraft/internal/jsonx"
	"go.uber.org/zap"
)

// DefaultAllowedDomains is the fixed domain set queries are confined to.
var DefaultAllowedDomains = []string{
	"gov.uk",
	"nhs.uk",
	"cqc.org.uk",
	"scie.org.uk",
	"skillsforcare.org.uk",
	"local.gov.uk",
	"kingsfund.org.uk",
}

// Result is a single search hit.
type Result struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Snippet       string  `json:"snippet"`
	Score         float64 `json:"score,omitempty"`
	PublishedDate string  `json:"published_date,omitempty"`
}

// Cache is the subset of the response cache the client needs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte)
}

// Config holds the search provider settings.
type Config struct {
	APIKey         string
	BaseURL        string
	AllowedDomains []string
}

// Client calls the Exa search API.
type Client struct {
	cfg    Config
	http   *http.Client
	cache  Cache
	logger *zap.Logger
}

// New creates a search client. cache may be nil.
func New(cfg Config, cache Cache, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.exa.ai"
	}
	if len(cfg.AllowedDomains) == 0 {
		cfg.AllowedDomains = DefaultAllowedDomains
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 20 * time.Second},
		cache:  cache,
		logger: logger.Named("search"),
	}
}

type exaRequest struct {
	Query          string      `json:"query"`
	NumResults     int         `json:"numResults"`
	IncludeDomains []string    `json:"includeDomains,omitempty"`
	Contents       exaContents `json:"contents"`
}

type exaContents struct {
	Text exaText `json:"text"`
}

type exaText struct {
	MaxCharacters int `json:"maxCharacters"`
}

type exaResponse struct {
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Text          string  `json:"text"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"publishedDate"`
	} `json:"results"`
}

// Search runs a neural search confined to the allow-listed domains.
func (c *Client) Search(ctx context.Context, query string, numResults int) ([]Result, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("search: no API key configured")
	}
	if numResults <= 0 {
		numResults = 5
	}

	cacheKey := fmt.Sprintf("search:%d:%s", numResults, query)
	if c.cache != nil {
		if data, ok := c.cache.Get(ctx, cacheKey); ok {
			var cached []Result
			if jsonx.Unmarshal(data, &cached) == nil {
				return cached, nil
			}
		}
	}

	payload, err := jsonx.Marshal(exaRequest{
		Query:          query,
		NumResults:     numResults,
		IncludeDomains: c.cfg.AllowedDomains,
		Contents:       exaContents{Text: exaText{MaxCharacters: 600}},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: status %d: %s", resp.StatusCode, body)
	}

	var parsed exaResponse
	if err := jsonx.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("search: decode: %w", err)
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, Result{
			Title:         r.Title,
			URL:           r.URL,
			Snippet:       r.Text,
			Score:         r.Score,
			PublishedDate: r.PublishedDate,
		})
	}

	if c.cache != nil {
		if data, err := jsonx.Marshal(results); err == nil {
			c.cache.Set(ctx, cacheKey, data)
		}
	}
	return results, nil
}

// FindStudy implements drafting.StudySource against the live web: the top
// search hit for the topic becomes the case-study material.
func (c *Client) FindStudy(ctx context.Context, topic, sector string) (*drafting.Study, error) {
	query := strings.TrimSpace(sector + " case study " + firstWords(topic, 12))
	results, err := c.Search(ctx, query, 3)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 || results[0].Snippet == "" {
		return nil, nil
	}
	top := results[0]
	return &drafting.Study{
		Title:   top.Title,
		Summary: top.Snippet,
		Origin:  "web_research",
	}, nil
}

func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
