// Package cart accumulates (menu item, variant, quantity) selections before
// they are committed as an order. Unit prices are resolved from the menu
// item when a line is first added; later catalog edits do not reach lines
// already in the cart.
package cart

import (
	"sort"

	"github.com/dinepos/api/internal/apperr"
	"github.com/dinepos/api/internal/enum"
	"github.com/dinepos/api/internal/model"
	"github.com/shopspring/decimal"
)

// Cart is not safe for concurrent use.
type Cart struct {
	lines map[string]model.LineItem
}

func New() *Cart {
	return &Cart{lines: make(map[string]model.LineItem)}
}

// AddLine adds one unit of item in the given variant.
func (c *Cart) AddLine(item model.MenuItem, variant string) error {
	if !enum.IsVariant(variant) {
		return apperr.Invalid("variant", "must be half or full")
	}
	key := model.LineKey(item.ID, variant)
	line, ok := c.lines[key]
	if !ok {
		line = model.LineItem{
			MenuItemID: item.ID,
			Name:       item.Name,
			Variant:    variant,
			Price:      item.PriceFor(variant),
		}
	}
	line.Qty++
	c.lines[key] = line
	return nil
}

// RemoveLine takes one unit off the line, dropping it at zero. Unknown keys
// are ignored.
func (c *Cart) RemoveLine(key string) {
	line, ok := c.lines[key]
	if !ok {
		return
	}
	line.Qty--
	if line.Qty <= 0 {
		delete(c.lines, key)
		return
	}
	c.lines[key] = line
}

// SetQuantity sets the line's quantity directly; qty <= 0 removes it.
func (c *Cart) SetQuantity(item model.MenuItem, variant string, qty int) error {
	if !enum.IsVariant(variant) {
		return apperr.Invalid("variant", "must be half or full")
	}
	key := model.LineKey(item.ID, variant)
	if qty <= 0 {
		delete(c.lines, key)
		return nil
	}
	line, ok := c.lines[key]
	if !ok {
		line = model.LineItem{
			MenuItemID: item.ID,
			Name:       item.Name,
			Variant:    variant,
			Price:      item.PriceFor(variant),
		}
	}
	line.Qty = qty
	c.lines[key] = line
	return nil
}

// Total is Σ price × qty.
func (c *Cart) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Qty
	}
	return n
}

// Len is the number of distinct lines.
func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Lines returns the lines ordered by key.
func (c *Cart) Lines() []model.LineItem {
	keys := make([]string, 0, len(c.lines))
	for k := range c.lines {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]model.LineItem, len(keys))
	for i, k := range keys {
		out[i] = c.lines[k]
	}
	return out
}

// Snapshot copies the lines keyed the way an order stores them.
func (c *Cart) Snapshot() map[string]model.LineItem {
	out := make(map[string]model.LineItem, len(c.lines))
	for k, l := range c.lines {
		out[k] = l
	}
	return out
}

func (c *Cart) Clear() {
	c.lines = make(map[string]model.LineItem)
}
