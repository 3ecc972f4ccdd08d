// Package feed implements the remote document store boundary against
// the hosted document API. Mutations go over HTTP+JSON; the live
// subscription consumes per-collection change events from an AMQP
// exchange and re-fetches the full collection snapshot on every event.
//
// Wire contract:
//
//	GET    /v1/{collection}?orderBy=f&desc=1  -> {"documents": [{...,"id":...}]}
//	POST   /v1/{collection}                   -> {"id": "..."}
//	PATCH  /v1/{collection}/{id}              body {"set": {...}, "delete": [...]}
//	DELETE /v1/{collection}/{id}
//
// Fields set to the server-clock sentinel are sent as the string
// "__server_timestamp__" and stamped by the API.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Ryuko2/dinerito/internal/log"
	"github.com/Ryuko2/dinerito/internal/remote"
)

// ServerTimestampToken is the wire encoding of remote.ServerTimestamp.
const ServerTimestampToken = "__server_timestamp__"

// Config holds the document API endpoint and the optional AMQP change
// feed. With no AMQP URL the subscription falls back to polling.
type Config struct {
	BaseURL      string
	AMQPURL      string
	AMQPExchange string
	PollInterval time.Duration
	HTTPTimeout  time.Duration
}

// Store talks to the hosted document API.
type Store struct {
	cfg    Config
	client *http.Client
	logger *log.Logger
}

func New(cfg Config, logger *log.Logger) (*Store, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("feed: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("feed: invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Store{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
		logger: logger.WithComponent(log.ComponentRemote),
	}, nil
}

func (s *Store) Collection(name string) remote.Collection {
	return &collection{name: name, store: s}
}

func (s *Store) Close() error { return nil }

type collection struct {
	name  string
	store *Store
}

type listResponse struct {
	Documents []remote.Document `json:"documents"`
}

type addResponse struct {
	ID string `json:"id"`
}

type patchRequest struct {
	Set    remote.Document `json:"set,omitempty"`
	Delete []string        `json:"delete,omitempty"`
}

func (c *collection) fetch(ctx context.Context, opts remote.SubscribeOptions) (remote.Snapshot, error) {
	u := fmt.Sprintf("%s/v1/%s", c.store.cfg.BaseURL, url.PathEscape(c.name))
	if opts.OrderBy != "" {
		q := url.Values{"orderBy": {opts.OrderBy}}
		if opts.Descending {
			q.Set("desc", "1")
		}
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return remote.Snapshot{}, err
	}
	resp, err := c.store.client.Do(req)
	if err != nil {
		return remote.Snapshot{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return remote.Snapshot{}, fmt.Errorf("list %s: unexpected status %d", c.name, resp.StatusCode)
	}
	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return remote.Snapshot{}, fmt.Errorf("decode %s snapshot: %w", c.name, err)
	}
	return remote.Snapshot{Docs: lr.Documents}, nil
}

func (c *collection) Add(ctx context.Context, doc remote.Document) (string, error) {
	payload := encodeSet(doc)
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &remote.WriteError{Collection: c.name, Op: log.OpAdd, Err: err}
	}
	u := fmt.Sprintf("%s/v1/%s", c.store.cfg.BaseURL, url.PathEscape(c.name))
	resp, err := c.do(ctx, http.MethodPost, u, body)
	if err != nil {
		return "", &remote.WriteError{Collection: c.name, Op: log.OpAdd, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", &remote.WriteError{Collection: c.name, Op: log.OpAdd,
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	var ar addResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return "", &remote.WriteError{Collection: c.name, Op: log.OpAdd, Err: err}
	}
	return ar.ID, nil
}

func (c *collection) Update(ctx context.Context, id string, doc remote.Document) error {
	pr := patchRequest{Set: remote.Document{}}
	for k, v := range doc {
		if remote.IsDelete(v) {
			pr.Delete = append(pr.Delete, k)
			continue
		}
		pr.Set[k] = encodeValue(v)
	}
	body, err := json.Marshal(pr)
	if err != nil {
		return &remote.WriteError{Collection: c.name, Op: log.OpUpdate, Err: err}
	}
	u := fmt.Sprintf("%s/v1/%s/%s", c.store.cfg.BaseURL, url.PathEscape(c.name), url.PathEscape(id))
	resp, err := c.do(ctx, http.MethodPatch, u, body)
	if err != nil {
		return &remote.WriteError{Collection: c.name, Op: log.OpUpdate, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &remote.WriteError{Collection: c.name, Op: log.OpUpdate,
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return nil
}

func (c *collection) Remove(ctx context.Context, id string) error {
	u := fmt.Sprintf("%s/v1/%s/%s", c.store.cfg.BaseURL, url.PathEscape(c.name), url.PathEscape(id))
	resp, err := c.do(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return &remote.WriteError{Collection: c.name, Op: log.OpRemove, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &remote.WriteError{Collection: c.name, Op: log.OpRemove,
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return nil
}

func (c *collection) do(ctx context.Context, method, u string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.store.client.Do(req)
}

func encodeSet(doc remote.Document) remote.Document {
	out := make(remote.Document, len(doc))
	for k, v := range doc {
		if remote.IsDelete(v) {
			// Deleting a field on add is a no-op.
			continue
		}
		out[k] = encodeValue(v)
	}
	return out
}

func encodeValue(v any) any {
	if remote.IsServerTimestamp(v) {
		return ServerTimestampToken
	}
	return v
}
