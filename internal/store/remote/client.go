// Package remote talks to the hosted todo collection over HTTP.
//
// The endpoint is a generic items API (Directus style): one collection at
// <base>/items/<collection>, JSON in and out, a static bearer token on every
// call. The client keeps no state between calls.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Makepad-fr/tada/internal/model"
)

// MaxResponseSize caps how much of a response body is read.
const MaxResponseSize = 10 * 1024 * 1024

const defaultCollection = "todo"

// Client issues CRUD requests against a single collection endpoint.
type Client struct {
	base       string
	collection string
	sort       string
	token      string
	http       *http.Client
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer credential attached to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger used for per-request debug lines.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithCollection overrides the collection name (default "todo").
func WithCollection(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.collection = name
		}
	}
}

// WithSort asks the server to order List results, e.g. "id" or "-date_created".
func WithSort(field string) Option {
	return func(c *Client) { c.sort = field }
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:       strings.TrimRight(baseURL, "/"),
		collection: defaultCollection,
		// no timeout: a request runs until it completes or fails
		http:   &http.Client{},
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the collection URL.
func (c *Client) Endpoint() string {
	return c.base + "/items/" + url.PathEscape(c.collection)
}

type listEnvelope struct {
	Data []model.Item `json:"data"`
}

// List fetches the whole collection in server order.
func (c *Client) List(ctx context.Context) ([]model.Item, error) {
	u := c.Endpoint()
	if c.sort != "" {
		u += "?sort=" + url.QueryEscape(c.sort)
	}
	body, err := c.do(ctx, OpList, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if env.Data == nil {
		return []model.Item{}, nil
	}
	return env.Data, nil
}

// Create submits a draft and returns the server's copy, including its id.
func (c *Client) Create(ctx context.Context, d model.Draft) (model.Item, error) {
	if err := model.ValidateTitle(d.Title); err != nil {
		return model.Item{}, err
	}
	body, err := c.do(ctx, OpCreate, http.MethodPost, c.Endpoint(), d)
	if err != nil {
		return model.Item{}, err
	}
	return decodeItem(body)
}

// Update sends only the fields set in p.
func (c *Client) Update(ctx context.Context, id model.ID, p model.Patch) (model.Item, error) {
	if p.Title != nil {
		if err := model.ValidateTitle(*p.Title); err != nil {
			return model.Item{}, err
		}
	}
	body, err := c.do(ctx, OpUpdate, http.MethodPatch, c.itemURL(id), p)
	if err != nil {
		return model.Item{}, err
	}
	return decodeItem(body)
}

type completedPatch struct {
	IsCompleted bool `json:"is_completed"`
}

// ToggleCompleted writes the negation of current. The caller supplies the
// value it last saw; the server state is not re-read.
func (c *Client) ToggleCompleted(ctx context.Context, id model.ID, current bool) (model.Item, error) {
	body, err := c.do(ctx, OpToggle, http.MethodPatch, c.itemURL(id), completedPatch{IsCompleted: !current})
	if err != nil {
		return model.Item{}, err
	}
	return decodeItem(body)
}

// Delete removes an item. Deleting a missing id fails with the server's status.
func (c *Client) Delete(ctx context.Context, id model.ID) error {
	_, err := c.do(ctx, OpDelete, http.MethodDelete, c.itemURL(id), nil)
	return err
}

func (c *Client) itemURL(id model.ID) string {
	return c.Endpoint() + "/" + url.PathEscape(id.String())
}

func (c *Client) do(ctx context.Context, op Op, method, u string, payload any) ([]byte, error) {
	var rd io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", op, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}

	reqID := uuid.NewString()
	req.Header.Set("Accept", "*/*")
	req.Header.Set("X-Request-Id", reqID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", op, "method", method, "path", req.URL.Path, "request_id", reqID, "err", err)
		return nil, &TransportError{Op: op, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, MaxResponseSize+1))
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("%s: response too large (exceeds %d bytes)", op, MaxResponseSize)
	}

	c.logger.Debug("request", "op", op, "method", method, "path", req.URL.Path, "status", res.StatusCode, "request_id", reqID)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &StoreError{Op: op, Status: res.StatusCode, Body: snippet(body)}
	}
	return body, nil
}

// decodeItem accepts a bare item or one wrapped as {"data": item}.
func decodeItem(body []byte) (model.Item, error) {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return model.Item{}, fmt.Errorf("decode item: %w", err)
	}
	raw := json.RawMessage(body)
	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		raw = env.Data
	}
	var it model.Item
	if err := json.Unmarshal(raw, &it); err != nil {
		return model.Item{}, fmt.Errorf("decode item: %w", err)
	}
	return it, nil
}
