package service

import (
	"context"
	"net/url"

	"github.com/dinepos/api/internal/docstore"
	"github.com/dinepos/api/internal/logging"
	"github.com/dinepos/api/internal/model"
)

// DocStore is the subset of docstore.Store the services use.
// Satisfied by *docstore.Memory and *docstore.Postgres.
type DocStore interface {
	Get(ctx context.Context, path string) (docstore.Document, error)
	Set(ctx context.Context, path string, data any) error
	Insert(ctx context.Context, path string, data any) error
	Update(ctx context.Context, path string, fields map[string]any) error
	Delete(ctx context.Context, path string) error
	Create(ctx context.Context, collection string, data any) (string, error)
	List(ctx context.Context, collection string) ([]docstore.Document, error)
	Where(ctx context.Context, collection, field, value string) ([]docstore.Document, error)
	Subscribe(ctx context.Context, collection string, fn func([]docstore.Document)) (func(), error)
}

func restaurantPath(rid string) string { return docstore.Join("restaurants", rid) }
func menuCollection(rid string) string { return docstore.Join("restaurants", rid, "menu") }
func menuPath(rid, id string) string   { return docstore.Join("restaurants", rid, "menu", id) }
func orderCollection(rid string) string {
	return docstore.Join("restaurants", rid, "orders")
}
func orderPath(rid, id string) string { return docstore.Join("restaurants", rid, "orders", id) }
func userPath(uid string) string      { return docstore.Join("users", uid) }

// emailPath is the document that reserves a normalized email for one
// account. The email is escaped so it stays a single path segment.
func emailPath(email string) string { return docstore.Join("emails", url.PathEscape(email)) }

func decodeOrder(doc docstore.Document) (model.Order, error) {
	var o model.Order
	if err := doc.Decode(&o); err != nil {
		return model.Order{}, err
	}
	o.ID = doc.ID
	if o.Items == nil {
		o.Items = map[string]model.LineItem{}
	}
	return o, nil
}

func decodeMenuItem(doc docstore.Document) (model.MenuItem, error) {
	var m model.MenuItem
	if err := doc.Decode(&m); err != nil {
		return model.MenuItem{}, err
	}
	m.ID = doc.ID
	return m, nil
}

// decodeOrders skips documents that fail to decode so one malformed record
// does not blank the whole list.
func decodeOrders(ctx context.Context, docs []docstore.Document) []model.Order {
	out := make([]model.Order, 0, len(docs))
	for _, d := range docs {
		o, err := decodeOrder(d)
		if err != nil {
			logging.FromContext(ctx).Warn("skipping malformed order", "path", d.Path, "error", err)
			continue
		}
		out = append(out, o)
	}
	return out
}

func decodeMenuItems(ctx context.Context, docs []docstore.Document) []model.MenuItem {
	out := make([]model.MenuItem, 0, len(docs))
	for _, d := range docs {
		m, err := decodeMenuItem(d)
		if err != nil {
			logging.FromContext(ctx).Warn("skipping malformed menu item", "path", d.Path, "error", err)
			continue
		}
		out = append(out, m)
	}
	return out
}
