package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/dinepos/api/internal/enum"
	"github.com/dinepos/api/internal/model"
)

// Feed opens the live subscriptions for one restaurant's room. Every
// snapshot goes to emit; the returned function stops the feed.
type Feed func(ctx context.Context, restaurantID string, emit func(Event)) (stop func(), err error)

// OrderWatcher is satisfied by *service.OrderService.
type OrderWatcher interface {
	Watch(ctx context.Context, rid string, fn func([]model.Order)) (func(), error)
}

// MenuWatcher is satisfied by *service.CatalogService.
type MenuWatcher interface {
	Watch(ctx context.Context, rid string, fn func([]model.MenuItem)) (func(), error)
}

// SnapshotFeed streams the order board and the menu, each as a full list
// after every change.
func SnapshotFeed(orders OrderWatcher, menu MenuWatcher) Feed {
	return func(ctx context.Context, rid string, emit func(Event)) (func(), error) {
		stopOrders, err := orders.Watch(ctx, rid, func(list []model.Order) {
			emitSnapshot(emit, enum.EventOrdersSnapshot, rid, list)
		})
		if err != nil {
			return nil, err
		}
		stopMenu, err := menu.Watch(ctx, rid, func(list []model.MenuItem) {
			emitSnapshot(emit, enum.EventMenuSnapshot, rid, list)
		})
		if err != nil {
			stopOrders()
			return nil, err
		}
		return func() {
			stopOrders()
			stopMenu()
		}, nil
	}
}

func emitSnapshot(emit func(Event), typ, rid string, list any) {
	payload, err := json.Marshal(list)
	if err != nil {
		slog.Error("ws: encode snapshot", "type", typ, "restaurant_id", rid, "error", err)
		return
	}
	emit(Event{Type: typ, Payload: payload})
}
