// Package catalog – Lookup
//
// Lookup chains the configured catalog sources into one read-only resolver:
// the local database (when present) is the first candidate, and the
// multi-endpoint HTTP client covers deployments where the catalog is served
// remotely. Whichever source answers, the caller receives the same canonical
// item.
package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/acervopress/go-newsstand-backend/internal/domain"
	"github.com/acervopress/go-newsstand-backend/internal/repo"
)

// Lookup resolves catalog items for the payment flow. Either source may be
// nil; with both nil every resolution fails with ErrSourceUnavailable.
type Lookup struct {
	// DB is the local catalog store, tried first when configured.
	DB *gorm.DB
	// Client is the remote fallback over the candidate endpoint list.
	Client *Client
}

// FindItem resolves a raw item id (bare numeric or namespaced) against the
// local store first and the remote sources second.
//
// A database miss falls through to the remote sources; a database failure
// does too, since an unreachable local store should not make purchasable
// items disappear while a remote copy can still serve them.
func (l *Lookup) FindItem(ctx context.Context, rawID string) (*domain.CatalogItem, error) {
	id, err := NormalizeID(rawID)
	if err != nil {
		return nil, ErrItemNotFound
	}

	dbMissed := false
	if l.DB != nil {
		item, err := repo.GetCatalogItem(ctx, l.DB, id)
		switch {
		case err == nil:
			return item, nil
		case errors.Is(err, repo.ErrNotFound):
			dbMissed = true
		}
	}

	if l.Client != nil {
		item, err := l.Client.FindItem(ctx, rawID)
		if err == nil || !errors.Is(err, ErrSourceUnavailable) {
			return item, err
		}
		// Remote unreachable: a confirmed local miss is still authoritative.
		if dbMissed {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	if dbMissed {
		return nil, ErrItemNotFound
	}
	return nil, ErrSourceUnavailable
}
