package jikan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// StatusError reports a non-success HTTP status from the catalog API.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jikan %s returned %d", e.Op, e.Code)
}

// API defines the catalog operations the resolution engine depends on.
type API interface {
	SearchAnime(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error)
	GetAnime(ctx context.Context, id int64) (*Anime, error)
	GetEpisode(ctx context.Context, id int64, number int) (*Episode, error)
	GetRelations(ctx context.Context, id int64) ([]RelationGroup, error)
}

// SearchOptions contains optional search parameters.
type SearchOptions struct {
	Type  string
	Limit int
	Page  int
}

// Client talks to a Jikan-compatible REST endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ API = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a catalog client.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("jikan base url required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SearchAnime queries the catalog's search endpoint.
func (c *Client) SearchAnime(ctx context.Context, query string, opts SearchOptions) (*SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	endpoint, err := url.Parse(c.baseURL + "/anime")
	if err != nil {
		return nil, fmt.Errorf("parse jikan url: %w", err)
	}
	params := url.Values{}
	params.Set("q", query)
	if opts.Type != "" {
		params.Set("type", opts.Type)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	endpoint.RawQuery = params.Encode()

	var payload SearchResponse
	if err := c.getJSON(ctx, "search", endpoint.String(), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetAnime fetches one entry by id.
func (c *Client) GetAnime(ctx context.Context, id int64) (*Anime, error) {
	if id <= 0 {
		return nil, errors.New("anime id must be positive")
	}
	var payload struct {
		Data Anime `json:"data"`
	}
	endpoint := fmt.Sprintf("%s/anime/%d", c.baseURL, id)
	if err := c.getJSON(ctx, "anime", endpoint, &payload); err != nil {
		return nil, err
	}
	return &payload.Data, nil
}

// GetEpisode fetches one numbered episode page of an entry.
func (c *Client) GetEpisode(ctx context.Context, id int64, number int) (*Episode, error) {
	if id <= 0 {
		return nil, errors.New("anime id must be positive")
	}
	if number <= 0 {
		return nil, errors.New("episode number must be positive")
	}
	var payload struct {
		Data Episode `json:"data"`
	}
	endpoint := fmt.Sprintf("%s/anime/%d/episodes/%d", c.baseURL, id, number)
	if err := c.getJSON(ctx, "episode", endpoint, &payload); err != nil {
		return nil, err
	}
	return &payload.Data, nil
}

// GetRelations fetches an entry's declared relation groups.
func (c *Client) GetRelations(ctx context.Context, id int64) ([]RelationGroup, error) {
	if id <= 0 {
		return nil, errors.New("anime id must be positive")
	}
	var payload struct {
		Data []RelationGroup `json:"data"`
	}
	endpoint := fmt.Sprintf("%s/anime/%d/relations", c.baseURL, id)
	if err := c.getJSON(ctx, "relations", endpoint, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (c *Client) getJSON(ctx context.Context, op, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("execute %s request (latency=%v): %w", op, latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Op: op, Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
