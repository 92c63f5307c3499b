// Package client talks to the notes HTTP API and maps responses back onto
// the model error values, so callers handle remote and local failures alike.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dododo1295/notetree/model"
	"github.com/dododo1295/notetree/tree"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	userAgent  string
}

type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New returns a client for the server at baseURL authenticating with token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userAgent:  "notetree-client/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateRequest is the body of a create call. Title is always sent.
type CreateRequest struct {
	Title    string         `json:"title"`
	Content  model.Document `json:"content,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	ParentID *string        `json:"parentId,omitempty"`
	Order    *float64       `json:"order,omitempty"`
}

func (c *Client) List(ctx context.Context) ([]*model.Note, error) {
	var notes []*model.Note
	if err := c.do(ctx, http.MethodGet, "/api/notes", nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *Client) Get(ctx context.Context, id string) (*model.Note, error) {
	var note model.Note
	if err := c.do(ctx, http.MethodGet, "/api/notes/"+url.PathEscape(id), nil, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (c *Client) Create(ctx context.Context, req CreateRequest) (*model.Note, error) {
	var note model.Note
	if err := c.do(ctx, http.MethodPost, "/api/notes", req, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// Update sends only the fields present in update.
func (c *Client) Update(ctx context.Context, id string, update model.NoteUpdate) (*model.Note, error) {
	var note model.Note
	if err := c.do(ctx, http.MethodPut, "/api/notes/"+url.PathEscape(id), update, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Tree(ctx context.Context) ([]*tree.Node, error) {
	var forest []*tree.Node
	if err := c.do(ctx, http.MethodGet, "/api/notes/tree", nil, &forest); err != nil {
		return nil, err
	}
	return forest, nil
}

func (c *Client) Tags(ctx context.Context) ([]model.TagCount, error) {
	var tags []model.TagCount
	if err := c.do(ctx, http.MethodGet, "/api/notes/tags", nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func (c *Client) Search(ctx context.Context, query string) ([]*model.Note, error) {
	var notes []*model.Note
	path := "/api/notes/search?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// Logout revokes the client's token on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &model.TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &model.TransientError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
	}
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", model.ErrUnauthorized, body.Error)
	case http.StatusNotFound:
		return model.ErrNoteNotFound
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		if body.Error == model.ErrInvalidID.Error() {
			return model.ErrInvalidID
		}
		return &model.ValidationError{Message: body.Error}
	default:
		return &model.TransientError{
			Op:  op,
			Err: errors.New(resp.Status + ": " + body.Error),
		}
	}
}
