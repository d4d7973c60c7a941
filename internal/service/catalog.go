package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dinepos/api/internal/apperr"
	"github.com/dinepos/api/internal/docstore"
	"github.com/dinepos/api/internal/logging"
	"github.com/dinepos/api/internal/model"
	"github.com/shopspring/decimal"
)

// ItemInput is the raw form of a new menu item. Prices arrive as text and
// are parsed here.
type ItemInput struct {
	Name      string
	Category  string
	PriceHalf string
	PriceFull string
}

// EditInput covers the fields an edit may overwrite. Category and
// availability are untouched by edits.
type EditInput struct {
	Name      string
	PriceHalf string
	PriceFull string
}

// CatalogService manages a restaurant's menu.
type CatalogService struct {
	docs DocStore
	now  func() time.Time
}

func NewCatalogService(docs DocStore) *CatalogService {
	return &CatalogService{docs: docs, now: time.Now}
}

// AddItem creates an available menu item. No relation between the half
// and full price is enforced.
func (s *CatalogService) AddItem(ctx context.Context, rid string, in ItemInput) (model.MenuItem, error) {
	name, err := required("name", in.Name)
	if err != nil {
		return model.MenuItem{}, err
	}
	category, err := required("category", in.Category)
	if err != nil {
		return model.MenuItem{}, err
	}
	half, err := parsePrice("price_half", in.PriceHalf)
	if err != nil {
		return model.MenuItem{}, err
	}
	full, err := parsePrice("price_full", in.PriceFull)
	if err != nil {
		return model.MenuItem{}, err
	}

	item := model.MenuItem{
		Name:      name,
		Category:  category,
		PriceHalf: half,
		PriceFull: full,
		Available: true,
		CreatedAt: s.now(),
	}
	id, err := s.docs.Create(ctx, menuCollection(rid), item)
	if err != nil {
		logging.FromContext(ctx).Error("add menu item", "restaurant_id", rid, "error", err)
		return model.MenuItem{}, fmt.Errorf("add menu item: %w", err)
	}
	item.ID = id
	return item, nil
}

// EditItem overwrites name and both prices.
func (s *CatalogService) EditItem(ctx context.Context, rid, id string, in EditInput) (model.MenuItem, error) {
	name, err := required("name", in.Name)
	if err != nil {
		return model.MenuItem{}, err
	}
	half, err := parsePrice("price_half", in.PriceHalf)
	if err != nil {
		return model.MenuItem{}, err
	}
	full, err := parsePrice("price_full", in.PriceFull)
	if err != nil {
		return model.MenuItem{}, err
	}

	if err := s.docs.Update(ctx, menuPath(rid, id), map[string]any{
		"name":       name,
		"price_half": half,
		"price_full": full,
	}); err != nil {
		return model.MenuItem{}, s.writeFailed(ctx, "edit menu item", rid, id, err)
	}
	return s.GetItem(ctx, rid, id)
}

// ToggleAvailability flips the available flag and returns the new state.
func (s *CatalogService) ToggleAvailability(ctx context.Context, rid, id string) (model.MenuItem, error) {
	item, err := s.GetItem(ctx, rid, id)
	if err != nil {
		return model.MenuItem{}, err
	}
	item.Available = !item.Available
	if err := s.docs.Update(ctx, menuPath(rid, id), map[string]any{"available": item.Available}); err != nil {
		return model.MenuItem{}, s.writeFailed(ctx, "toggle availability", rid, id, err)
	}
	return item, nil
}

// DeleteItem hard-deletes the item. Orders keep their own snapshots of it.
func (s *CatalogService) DeleteItem(ctx context.Context, rid, id string, confirmed bool) error {
	if !confirmed {
		return apperr.ErrConfirmationRequired
	}
	if err := s.docs.Delete(ctx, menuPath(rid, id)); err != nil {
		return s.writeFailed(ctx, "delete menu item", rid, id, err)
	}
	return nil
}

func (s *CatalogService) GetItem(ctx context.Context, rid, id string) (model.MenuItem, error) {
	doc, err := s.docs.Get(ctx, menuPath(rid, id))
	if err != nil {
		return model.MenuItem{}, err
	}
	item, err := decodeMenuItem(doc)
	if err != nil {
		return model.MenuItem{}, fmt.Errorf("decode menu item %s: %w", id, err)
	}
	return item, nil
}

// ListItems returns every item, available or not.
func (s *CatalogService) ListItems(ctx context.Context, rid string) ([]model.MenuItem, error) {
	docs, err := s.docs.List(ctx, menuCollection(rid))
	if err != nil {
		return nil, err
	}
	return decodeMenuItems(ctx, docs), nil
}

// ListGroupedByCategory groups the menu by category, optionally keeping
// only what order-takers may select.
func (s *CatalogService) ListGroupedByCategory(ctx context.Context, rid string, availableOnly bool) (map[string][]model.MenuItem, error) {
	items, err := s.ListItems(ctx, rid)
	if err != nil {
		return nil, err
	}
	if availableOnly {
		items = AvailableOnly(items)
	}
	return GroupByCategory(items), nil
}

// Watch delivers the full menu now and after every change.
func (s *CatalogService) Watch(ctx context.Context, rid string, fn func([]model.MenuItem)) (func(), error) {
	return s.docs.Subscribe(ctx, menuCollection(rid), func(docs []docstore.Document) {
		fn(decodeMenuItems(ctx, docs))
	})
}

func (s *CatalogService) writeFailed(ctx context.Context, op, rid, id string, err error) error {
	if !apperr.IsNotFound(err) {
		logging.FromContext(ctx).Error(op, "restaurant_id", rid, "item_id", id, "error", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// GroupByCategory maps category to its items, keeping input order within a
// category.
func GroupByCategory(items []model.MenuItem) map[string][]model.MenuItem {
	out := make(map[string][]model.MenuItem)
	for _, it := range items {
		out[it.Category] = append(out[it.Category], it)
	}
	return out
}

func AvailableOnly(items []model.MenuItem) []model.MenuItem {
	out := make([]model.MenuItem, 0, len(items))
	for _, it := range items {
		if it.Available {
			out = append(out, it)
		}
	}
	return out
}

func required(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", apperr.Invalid(field, "is required")
	}
	return v, nil
}

func parsePrice(field, v string) (decimal.Decimal, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.Zero, apperr.Invalid(field, "is required")
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, apperr.Invalid(field, "must be a number")
	}
	if d.IsNegative() {
		return decimal.Zero, apperr.Invalid(field, "must not be negative")
	}
	return d, nil
}
