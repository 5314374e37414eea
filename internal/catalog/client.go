// Package catalog resolves purchasable catalog items from configured data
// sources. This file implements the multi-source HTTP client: an ordered list
// of candidate base URLs is tried sequentially, and the first candidate that
// returns a well-formed collection wins. This is a reachability fallback, not
// load balancing: there are no retries beyond the listed candidates and no
// backoff between them.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/acervopress/go-newsstand-backend/internal/domain"
)

// collectionPath is the well-known path serving the issue collection on every
// candidate host.
const collectionPath = "/issues.json"

// maxCollectionBytes caps how much of an upstream response is read. Catalog
// collections are small; anything larger is a malformed source.
const maxCollectionBytes = 4 << 20

// Client fetches catalog collections from an ordered list of candidate
// endpoints. It is safe for concurrent use.
type Client struct {
	endpoints []string
	hc        *http.Client
}

// NewClient constructs a Client over the given base URLs (tried in order).
// timeout bounds each candidate attempt individually.
func NewClient(endpoints []string, timeout time.Duration) *Client {
	cleaned := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		if t := strings.TrimRight(strings.TrimSpace(e), "/"); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		endpoints: cleaned,
		hc:        &http.Client{Timeout: timeout},
	}
}

// NewClientWithHTTP is like NewClient but injects the HTTP client, so tests
// can substitute a fake transport.
func NewClientWithHTTP(endpoints []string, hc *http.Client) *Client {
	c := NewClient(endpoints, 0)
	if hc != nil {
		c.hc = hc
	}
	return c
}

// Collection returns the catalog items from the first reachable candidate.
// Candidates are tried one at a time in priority order; the first well-formed
// response short-circuits the rest. If every candidate fails it returns
// ErrSourceUnavailable.
func (c *Client) Collection(ctx context.Context) ([]domain.CatalogItem, error) {
	if len(c.endpoints) == 0 {
		return nil, ErrSourceUnavailable
	}
	var lastErr error
	for _, base := range c.endpoints {
		items, err := c.fetch(ctx, base)
		if err != nil {
			lastErr = err
			log.Warn().Str("endpoint", base).Err(err).Msg("catalog source failed, trying next")
			continue
		}
		return items, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, lastErr)
}

// FindItem resolves a raw id (bare numeric or namespaced) to a catalog item
// from the first reachable source. Returns ErrItemNotFound when the sources
// respond but none contains the item.
func (c *Client) FindItem(ctx context.Context, rawID string) (*domain.CatalogItem, error) {
	id, err := NormalizeID(rawID)
	if err != nil {
		return nil, ErrItemNotFound
	}
	items, err := c.Collection(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, ErrItemNotFound
}

// fetch retrieves and decodes one candidate's collection.
func (c *Client) fetch(ctx context.Context, base string) ([]domain.CatalogItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+collectionPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, base)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCollectionBytes))
	if err != nil {
		return nil, err
	}
	return decodeCollection(body)
}
