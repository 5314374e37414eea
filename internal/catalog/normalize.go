// Package catalog resolves purchasable catalog items (periodical issues) from
// configured data sources. This file implements boundary normalization: the
// upstream catalog payloads are loosely typed (ids arrive as JSON numbers or
// strings, prices as decimal numbers or strings, and item ids may be
// namespaced like "jornal_7"), so everything is coerced to one canonical
// shape before any business logic runs.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/acervopress/go-newsstand-backend/internal/domain"
	"github.com/acervopress/go-newsstand-backend/internal/money"
)

// ErrItemNotFound indicates that no configured source contains the requested
// catalog item. It is a user-facing not-found condition, not a failure.
var ErrItemNotFound = errors.New("catalog item not found")

// ErrSourceUnavailable indicates that none of the configured catalog sources
// produced a well-formed response. Callers may retry the whole request.
var ErrSourceUnavailable = errors.New("catalog source unavailable")

// idPrefixes are the namespaced forms accepted for catalog item ids. The
// prefix carries no meaning beyond namespacing and is stripped before
// matching.
var idPrefixes = []string{"jornal_", "issue_", "edition_"}

// NormalizeID coerces a raw catalog item identifier to its canonical int64
// form. It accepts bare numeric ids ("7") and namespaced ids ("jornal_7").
func NormalizeID(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	for _, p := range idPrefixes {
		if strings.HasPrefix(strings.ToLower(s), p) {
			s = s[len(p):]
			break
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid catalog item id %q", raw)
	}
	return id, nil
}

// flexInt64 decodes a JSON value that may be a number or a numeric string.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some sources send floats for integral fields.
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("not a number: %s", b)
		}
		n = int64(fl)
	}
	*f = flexInt64(n)
	return nil
}

// flexPriceCents decodes a decimal price that may be a JSON number or a
// string, converting it to minor units exactly.
type flexPriceCents int64

func (f *flexPriceCents) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	d, err := money.ParseAmount(s)
	if err != nil {
		return fmt.Errorf("not a price: %s", b)
	}
	*f = flexPriceCents(money.MinorUnits(d))
	return nil
}

// wireItem is the loosely-typed upstream representation of a catalog item.
type wireItem struct {
	ID          flexInt64      `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Price       flexPriceCents `json:"price"`
	CoverImage  string         `json:"cover_image"`
	Month       flexInt64      `json:"month"`
	Year        flexInt64      `json:"year"`
	AssetPath   string         `json:"pdf"`
	Active      *bool          `json:"active"`
}

// toDomain converts a wire item to the canonical domain model. Items without
// an explicit active flag are treated as active.
func (w wireItem) toDomain() domain.CatalogItem {
	active := true
	if w.Active != nil {
		active = *w.Active
	}
	return domain.CatalogItem{
		ID:             int64(w.ID),
		Title:          w.Title,
		Description:    w.Description,
		PriceCents:     int64(w.Price),
		CoverImagePath: w.CoverImage,
		Month:          int(w.Month),
		Year:           int(w.Year),
		AssetPath:      w.AssetPath,
		Active:         active,
	}
}

// decodeCollection parses an upstream collection payload into domain items.
// Malformed entries invalidate the whole payload so a half-broken source is
// treated as unreachable rather than silently partial.
func decodeCollection(data []byte) ([]domain.CatalogItem, error) {
	var wire []wireItem
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	items := make([]domain.CatalogItem, 0, len(wire))
	for _, w := range wire {
		items = append(items, w.toDomain())
	}
	return items, nil
}
