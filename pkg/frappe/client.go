// Package frappe is a small client for the Frappe/ERPNext REST resource API.
//
// Each call issues at most one request; concurrent identical link searches
// share theirs. There are no retries and no caching. Failures surface as
// *APIError (server answered) or transport errors.
package frappe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jalsampada/go-frappeforms/pkg/logger"
)

// DefaultTimeout bounds a request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Config holds connection settings.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// Client talks to one Frappe site.
type Client struct {
	base       *url.URL
	token      string
	httpClient *http.Client
	logger     *logger.Logger
	lookups    singleflight.Group
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New validates cfg and builds a client.
func New(cfg Config, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("frappe: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("frappe: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("frappe: base url %q must be http or https", raw)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		base:       base,
		httpClient: &http.Client{Timeout: timeout},
	}
	if cfg.APIKey != "" || cfg.APISecret != "" {
		c.token = "token " + cfg.APIKey + ":" + cfg.APISecret
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.logger = logger.OrNop(c.logger).WithComponent("frappe")
	return c, nil
}

// Get fetches one record.
func (c *Client) Get(ctx context.Context, doctype, name string) (map[string]any, error) {
	var out struct {
		Data map[string]any `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, resourcePath(doctype, name), nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Insert creates a record and returns it as stored by the server.
func (c *Client) Insert(ctx context.Context, doctype string, payload map[string]any) (map[string]any, error) {
	var out struct {
		Data map[string]any `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, resourcePath(doctype, ""), nil, payload, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Update saves changes to an existing record and returns it as stored.
func (c *Client) Update(ctx context.Context, doctype, name string, payload map[string]any) (map[string]any, error) {
	var out struct {
		Data map[string]any `json:"data"`
	}
	if err := c.do(ctx, http.MethodPut, resourcePath(doctype, name), nil, payload, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, doctype, name string) error {
	return c.do(ctx, http.MethodDelete, resourcePath(doctype, name), nil, nil, nil)
}

// ListOptions narrows a List call.
type ListOptions struct {
	Fields  []string
	Filters [][]any
	Limit   int
	Start   int
	OrderBy string
}

// List returns records matching opts.
func (c *Client) List(ctx context.Context, doctype string, opts ListOptions) ([]map[string]any, error) {
	query := url.Values{}
	if len(opts.Fields) > 0 {
		encoded, err := json.Marshal(opts.Fields)
		if err != nil {
			return nil, fmt.Errorf("frappe: encode fields: %w", err)
		}
		query.Set("fields", string(encoded))
	}
	if len(opts.Filters) > 0 {
		encoded, err := json.Marshal(opts.Filters)
		if err != nil {
			return nil, fmt.Errorf("frappe: encode filters: %w", err)
		}
		query.Set("filters", string(encoded))
	}
	if opts.Limit > 0 {
		query.Set("limit_page_length", strconv.Itoa(opts.Limit))
	}
	if opts.Start > 0 {
		query.Set("limit_start", strconv.Itoa(opts.Start))
	}
	if opts.OrderBy != "" {
		query.Set("order_by", opts.OrderBy)
	}

	var out struct {
		Data []map[string]any `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, resourcePath(doctype, ""), query, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// LinkOption is one candidate value for a Link field.
type LinkOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// SearchLink lists records of doctype whose name contains text, constrained by
// the dependent filters in Frappe triple form.
func (c *Client) SearchLink(ctx context.Context, doctype, text string, filters [][]any, limit int) ([]LinkOption, error) {
	all := make([][]any, 0, len(filters)+1)
	all = append(all, filters...)
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		all = append(all, []any{doctype, "name", "like", "%" + trimmed + "%"})
	}
	if limit <= 0 {
		limit = 20
	}
	opts := ListOptions{
		Fields:  []string{"name"},
		Filters: all,
		Limit:   limit,
		OrderBy: "name asc",
	}

	key, err := json.Marshal([]any{doctype, opts.Filters, limit})
	if err != nil {
		return nil, fmt.Errorf("frappe: link filters: %w", err)
	}
	// The shared request outlives any one caller; the HTTP client timeout
	// bounds it and each caller stops waiting when its own ctx ends.
	shared := c.lookups.DoChan(string(key), func() (any, error) {
		rows, err := c.List(context.WithoutCancel(ctx), doctype, opts)
		if err != nil {
			return nil, err
		}
		out := make([]LinkOption, 0, len(rows))
		for _, row := range rows {
			if name, _ := row["name"].(string); name != "" {
				out = append(out, LinkOption{Value: name, Label: name})
			}
		}
		return out, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-shared:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]LinkOption)), nil
	}
}

func resourcePath(doctype, name string) string {
	path := "/api/resource/" + url.PathEscape(doctype)
	if name != "" {
		path += "/" + url.PathEscape(name)
	}
	return path
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	target := c.base.String() + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("frappe: encode body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("frappe: request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithContext(ctx).Warnw("request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("frappe: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("frappe: %s %s: read body: %w", method, path, err)
	}
	c.logger.WithContext(ctx).Debugw("request", "method", method, "path", path, "status", resp.StatusCode, "latency_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(method, path, resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("frappe: %s %s: decode: %w", method, path, err)
	}
	return nil
}
