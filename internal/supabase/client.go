// Package supabase is the client for the hosted backend-as-a-service: session
// JWT verification and a thin PostgREST wrapper for the durable rows
// (organizations, proposals, profiles, answer bank). All row-level security
// is enforced server-side by Supabase; this client only forwards the caller's
// bearer token.
package supabase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/caredraft/internal/jsonx"
	"go.uber.org/zap"
)

// Config holds the Supabase project settings.
type Config struct {
	ProjectURL string // https://<ref>.supabase.co
	AnonKey    string
	ServiceKey string
	JWTSecret  string
}

// Client is a PostgREST client scoped to one Supabase project.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// APIError is a non-2xx PostgREST response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase: status %d: %s", e.Status, e.Body)
}

// NewClient creates a Supabase client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger.Named("supabase"),
	}
}

// restURL builds the PostgREST URL for table with the given filter values.
func (c *Client) restURL(table string, query url.Values) string {
	u := c.cfg.ProjectURL + "/rest/v1/" + table
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do performs a PostgREST request. bearer is the caller's session token so
// row-level security applies to their rows; when empty the service key is
// used (server-owned reads such as answer-bank syncing).
func (c *Client) do(ctx context.Context, method, table string, query url.Values, bearer string, body, dst interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := jsonx.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal row: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.restURL(table, query), reader)
	if err != nil {
		return err
	}

	if bearer == "" {
		bearer = c.cfg.ServiceKey
	}
	req.Header.Set("apikey", c.cfg.AnonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if dst != nil && method != http.MethodGet {
		// Ask PostgREST to echo the affected rows back.
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("supabase response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}
	if dst != nil && len(data) > 0 {
		if err := jsonx.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("decode supabase rows: %w", err)
		}
	}
	return nil
}

// Select lists rows from table matching query.
func (c *Client) Select(ctx context.Context, table string, query url.Values, bearer string, dst interface{}) error {
	return c.do(ctx, http.MethodGet, table, query, bearer, nil, dst)
}

// Insert creates a row and decodes the created representation into dst.
func (c *Client) Insert(ctx context.Context, table string, bearer string, row, dst interface{}) error {
	return c.do(ctx, http.MethodPost, table, nil, bearer, row, dst)
}

// Update patches rows matching query.
func (c *Client) Update(ctx context.Context, table string, query url.Values, bearer string, patch, dst interface{}) error {
	return c.do(ctx, http.MethodPatch, table, query, bearer, patch, dst)
}

// Delete removes rows matching query.
func (c *Client) Delete(ctx context.Context, table string, query url.Values, bearer string) error {
	return c.do(ctx, http.MethodDelete, table, query, bearer, nil, nil)
}

// Eq builds a PostgREST equality filter, e.g. Eq("id", x) -> id=eq.x.
func Eq(column, value string) url.Values {
	q := url.Values{}
	q.Set(column, "eq."+value)
	return q
}
