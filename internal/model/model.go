// Package model holds the persisted document shapes. JSON tags are the
// field names stored in the document store.
package model

import (
	"time"

	"github.com/dinepos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Restaurant is keyed by its owner's user id.
type Restaurant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type MenuItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	PriceHalf decimal.Decimal `json:"price_half"`
	PriceFull decimal.Decimal `json:"price_full"`
	Available bool            `json:"available"`
	CreatedAt time.Time       `json:"created_at"`
}

// PriceFor returns the unit price of the given portion variant.
func (m MenuItem) PriceFor(variant string) decimal.Decimal {
	if variant == enum.VariantHalf {
		return m.PriceHalf
	}
	return m.PriceFull
}

// LineItem is a price snapshot copied into an order at commit time.
// Later menu edits never touch it.
type LineItem struct {
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	Variant    string          `json:"variant"`
	Price      decimal.Decimal `json:"price"`
	Qty        int             `json:"qty"`
}

// Subtotal is price × qty.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// LineKey identifies a line within a cart or order: one line per
// (menu item, variant) pair.
func LineKey(menuItemID, variant string) string {
	return menuItemID + "_" + variant
}

type Order struct {
	ID          string              `json:"id"`
	OrderNumber int64               `json:"order_number"`
	Items       map[string]LineItem `json:"items"`
	Total       decimal.Decimal     `json:"total"`
	Payment     string              `json:"payment"`
	Status      string              `json:"status"`
	Table       string              `json:"table,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// ItemsTotal recomputes Σ price × qty over the order's own items.
func (o Order) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}

// Account is an email/password login. Its id doubles as the restaurant id.
type Account struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"hashed_password"`
	CreatedAt      time.Time `json:"created_at"`
}
