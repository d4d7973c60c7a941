package cart

import (
	"fmt"

	"github.com/dinepos/api/internal/apperr"
	"github.com/dinepos/api/internal/model"
)

// Selection is one requested line as sent by an order-taking client.
type Selection struct {
	MenuItemID string `json:"menu_item_id"`
	Variant    string `json:"variant"`
	Qty        int    `json:"qty"`
}

// Build resolves selections against the restaurant's catalog. Only
// available items can be ordered. Repeated selections of the same line add
// up.
func Build(items []model.MenuItem, selections []Selection) (*Cart, error) {
	byID := make(map[string]model.MenuItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	c := New()
	for i, sel := range selections {
		field := fmt.Sprintf("items[%d]", i)
		item, ok := byID[sel.MenuItemID]
		if !ok {
			return nil, apperr.Invalid(field, "unknown menu item "+sel.MenuItemID)
		}
		if !item.Available {
			return nil, apperr.Invalid(field, item.Name+" is not available")
		}
		if sel.Qty <= 0 {
			return nil, apperr.Invalid(field, "qty must be positive")
		}
		key := model.LineKey(item.ID, sel.Variant)
		qty := sel.Qty
		if existing, ok := c.lines[key]; ok {
			qty += existing.Qty
		}
		if err := c.SetQuantity(item, sel.Variant, qty); err != nil {
			return nil, apperr.Invalid(field, "variant must be half or full")
		}
	}
	return c, nil
}
