// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the CatalogItem
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an item is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/acervopress/go-newsstand-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
//
// It aliases gorm.ErrRecordNotFound so callers can use errors.Is uniformly.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateCatalogItem inserts a new catalog item and returns it with its
// generated numeric id.
func CreateCatalogItem(ctx context.Context, db *gorm.DB, item *domain.CatalogItem) (*domain.CatalogItem, error) {
	if err := db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// GetCatalogItem fetches a single catalog item by its canonical numeric id.
// Returns ErrNotFound if the item does not exist.
func GetCatalogItem(ctx context.Context, db *gorm.DB, id int64) (*domain.CatalogItem, error) {
	var item domain.CatalogItem
	err := db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CountCatalogItems returns the number of active catalog items.
func CountCatalogItems(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.CatalogItem{}).
		Where("active = ?", true).
		Count(&n).Error
	return n, err
}

// ListCatalogItemsPage returns a page of active catalog items, newest
// editions first (year, month, then id descending).
func ListCatalogItemsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.CatalogItem, error) {
	var items []domain.CatalogItem
	err := db.WithContext(ctx).
		Where("active = ?", true).
		Order("year DESC, month DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error
	return items, err
}

// UpdateCatalogItem applies the given column updates to an existing item.
// Returns ErrNotFound if no row matched.
func UpdateCatalogItem(ctx context.Context, db *gorm.DB, id int64, updates map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.CatalogItem{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCatalogItem soft-deletes an item. Returns ErrNotFound if no row matched.
func DeleteCatalogItem(ctx context.Context, db *gorm.DB, id int64) error {
	res := db.WithContext(ctx).Delete(&domain.CatalogItem{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
