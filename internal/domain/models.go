// Package domain defines the persistence models for catalog items and
// purchase entitlements. These types are mapped with GORM and form the core
// data layer of the newsstand application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// CatalogItem represents one purchasable periodical issue: a titled product
// with a price, a cover image, and a downloadable PDF asset. Items are
// created and updated through the guarded admin surface and are read-only to
// the payment flow.
//
// Fields:
//   - ID: stable numeric identifier; also the canonical form of namespaced
//     ids such as "jornal_7" after boundary normalization.
//   - PriceCents: price in minor currency units (integer-safe arithmetic).
//   - AssetPath: storage path of the purchasable file; never serialized in
//     public responses, only resolved after a verified payment.
//   - Active: inactive items stay persisted but are hidden from the public
//     catalog listing.
type CatalogItem struct {
	ID             int64          `json:"id"               gorm:"primaryKey;autoIncrement"`
	Title          string         `json:"title"            gorm:"type:varchar(255);not null"`
	Description    string         `json:"description"      gorm:"type:text"`
	PriceCents     int64          `json:"price_cents"      gorm:"not null;check:price_cents >= 0"`
	CoverImagePath string         `json:"cover_image_path" gorm:"type:varchar(512)"`
	AssetPath      string         `json:"-"                gorm:"type:varchar(512)"`
	Month          int            `json:"month"            gorm:"not null;default:0"`
	Year           int            `json:"year"             gorm:"not null;default:0"`
	Active         bool           `json:"active"           gorm:"not null;default:true"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"                gorm:"index"`
}

// TableName returns the database table name for CatalogItem.
func (CatalogItem) TableName() string { return "catalog_items" }

// Customer identifies the buyer on a checkout attempt. It is carried in
// provider metadata so downstream components can reconstruct context from the
// transaction alone.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// EntitlementRecord is the durable proof that a customer paid for a specific
// catalog item. At most one record exists per provider transaction: the
// unique index on ProviderTransactionID makes repeated or concurrent writes
// for the same transaction converge to a single row.
//
// The amount and currency stored here are the provider-confirmed values from
// the first successful write; later write attempts never overwrite them.
type EntitlementRecord struct {
	ID                    string         `json:"id"                      gorm:"type:char(36);primaryKey"`
	ProviderTransactionID string         `json:"provider_transaction_id" gorm:"type:varchar(255);not null;uniqueIndex:ux_entitlements_provider_tx"`
	CustomerName          string         `json:"customer_name"           gorm:"type:varchar(255);not null"`
	CustomerEmail         string         `json:"customer_email"          gorm:"type:varchar(255);not null;index"`
	CatalogItemID         int64          `json:"catalog_item_id"         gorm:"not null;index"`
	CatalogItemTitle      string         `json:"catalog_item_title"      gorm:"type:varchar(255)"`
	AmountCents           int64          `json:"amount_cents"            gorm:"not null"`
	CurrencyCode          string         `json:"currency_code"           gorm:"type:varchar(8);not null"`
	RecordedAt            time.Time      `json:"recorded_at"             gorm:"not null"`
	DeletedAt             gorm.DeletedAt `json:"-"                       gorm:"index"`
}

// TableName returns the database table name for EntitlementRecord.
func (EntitlementRecord) TableName() string { return "entitlements" }
