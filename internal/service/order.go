package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dinepos/api/internal/analytics"
	"github.com/dinepos/api/internal/apperr"
	"github.com/dinepos/api/internal/cart"
	"github.com/dinepos/api/internal/docstore"
	"github.com/dinepos/api/internal/enum"
	"github.com/dinepos/api/internal/events"
	"github.com/dinepos/api/internal/logging"
	"github.com/dinepos/api/internal/model"
	"github.com/dinepos/api/internal/sequence"
)

// PlaceOrderRequest is the input for committing a cart.
type PlaceOrderRequest struct {
	RestaurantID string
	Cart         *cart.Cart
	// Payment defaults to pending.
	Payment string
	Table   string
}

// OrderService runs the order lifecycle: commit, kitchen status, payment,
// cancellation and item amendments.
type OrderService struct {
	docs DocStore
	seq  sequence.Sequencer
	pub  events.Publisher
	now  func() time.Time
}

// NewOrderService creates a new OrderService. A nil publisher discards
// events.
func NewOrderService(docs DocStore, seq sequence.Sequencer, pub events.Publisher) *OrderService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &OrderService{docs: docs, seq: seq, pub: pub, now: time.Now}
}

// PlaceOrder commits the cart as a new pending order. The cart is cleared
// only when the order was written; on failure it is left intact so the
// caller can retry.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (model.Order, error) {
	// --- Validate ---
	if req.Cart == nil || req.Cart.IsEmpty() {
		return model.Order{}, apperr.ErrEmptyCart
	}
	payment := req.Payment
	if payment == "" {
		payment = enum.PaymentStatusPending
	}
	if !enum.IsPaymentStatus(payment) {
		return model.Order{}, apperr.Invalid("payment", "must be pending or completed")
	}

	// --- Number ---
	number, err := s.seq.Next(ctx, req.RestaurantID)
	if err != nil {
		logging.FromContext(ctx).Error("assign order number", "restaurant_id", req.RestaurantID, "error", err)
		return model.Order{}, err
	}

	// --- Snapshot + persist ---
	order := model.Order{
		OrderNumber: number,
		Items:       req.Cart.Snapshot(),
		Total:       req.Cart.Total(),
		Payment:     payment,
		Status:      enum.OrderStatusPending,
		Table:       req.Table,
		CreatedAt:   s.now(),
	}
	id, err := s.docs.Create(ctx, orderCollection(req.RestaurantID), order)
	if err != nil {
		logging.FromContext(ctx).Error("persist order", "restaurant_id", req.RestaurantID, "order_number", number, "error", err)
		return model.Order{}, fmt.Errorf("place order: %w", err)
	}
	order.ID = id
	req.Cart.Clear()

	s.publish(ctx, enum.EventOrderPlaced, req.RestaurantID, order)
	return order, nil
}

// SetStatus overwrites the kitchen status. Moves the UI would not offer
// are logged but applied.
func (s *OrderService) SetStatus(ctx context.Context, rid, id, status string) (model.Order, error) {
	if !enum.IsOrderStatus(status) {
		return model.Order{}, apperr.Invalid("status", "must be pending, preparing, ready or completed")
	}
	order, err := s.GetOrder(ctx, rid, id)
	if err != nil {
		return model.Order{}, err
	}
	if !enum.IsSuggestedTransition(order.Status, status) {
		logging.FromContext(ctx).Warn("unusual status transition",
			"order_id", id, "from", order.Status, "to", status)
	}

	if err := s.docs.Update(ctx, orderPath(rid, id), map[string]any{"status": status}); err != nil {
		return model.Order{}, s.writeFailed(ctx, "set status", rid, id, err)
	}
	order.Status = status

	s.publish(ctx, enum.EventOrderStatusChanged, rid, order)
	return order, nil
}

// SetPayment overwrites the payment status. It is independent of the
// kitchen status.
func (s *OrderService) SetPayment(ctx context.Context, rid, id, payment string) (model.Order, error) {
	if !enum.IsPaymentStatus(payment) {
		return model.Order{}, apperr.Invalid("payment", "must be pending or completed")
	}
	if err := s.docs.Update(ctx, orderPath(rid, id), map[string]any{"payment": payment}); err != nil {
		return model.Order{}, s.writeFailed(ctx, "set payment", rid, id, err)
	}
	order, err := s.GetOrder(ctx, rid, id)
	if err != nil {
		return model.Order{}, err
	}

	s.publish(ctx, enum.EventOrderPaymentChanged, rid, order)
	return order, nil
}

// CancelOrder hard-deletes the order. Its number is not reused.
func (s *OrderService) CancelOrder(ctx context.Context, rid, id string, confirmed bool) error {
	if !confirmed {
		return apperr.ErrConfirmationRequired
	}
	order, err := s.GetOrder(ctx, rid, id)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, orderPath(rid, id)); err != nil {
		return s.writeFailed(ctx, "cancel order", rid, id, err)
	}

	s.publish(ctx, enum.EventOrderCancelled, rid, order)
	return nil
}

// AddItems merges the cart into an existing order. Lines already on the
// order keep their price snapshot and gain quantity; the total is
// recomputed from the merged items and written together with them.
func (s *OrderService) AddItems(ctx context.Context, rid, id string, c *cart.Cart) (model.Order, error) {
	if c == nil || c.IsEmpty() {
		return model.Order{}, apperr.ErrEmptyCart
	}
	order, err := s.GetOrder(ctx, rid, id)
	if err != nil {
		return model.Order{}, err
	}

	for key, line := range c.Snapshot() {
		if existing, ok := order.Items[key]; ok {
			existing.Qty += line.Qty
			order.Items[key] = existing
			continue
		}
		order.Items[key] = line
	}
	order.Total = order.ItemsTotal()

	if err := s.docs.Update(ctx, orderPath(rid, id), map[string]any{
		"items": order.Items,
		"total": order.Total,
	}); err != nil {
		return model.Order{}, s.writeFailed(ctx, "add items", rid, id, err)
	}
	c.Clear()

	s.publish(ctx, enum.EventOrderItemsAdded, rid, order)
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, rid, id string) (model.Order, error) {
	doc, err := s.docs.Get(ctx, orderPath(rid, id))
	if err != nil {
		return model.Order{}, err
	}
	order, err := decodeOrder(doc)
	if err != nil {
		return model.Order{}, fmt.Errorf("decode order %s: %w", id, err)
	}
	return order, nil
}

// ListOrders returns every order of the restaurant, newest first.
func (s *OrderService) ListOrders(ctx context.Context, rid string) ([]model.Order, error) {
	docs, err := s.docs.List(ctx, orderCollection(rid))
	if err != nil {
		return nil, err
	}
	orders := decodeOrders(ctx, docs)
	analytics.SortNewest(orders)
	return orders, nil
}

// Watch delivers the full order list, newest first, now and after every
// change.
func (s *OrderService) Watch(ctx context.Context, rid string, fn func([]model.Order)) (func(), error) {
	return s.docs.Subscribe(ctx, orderCollection(rid), func(docs []docstore.Document) {
		orders := decodeOrders(ctx, docs)
		analytics.SortNewest(orders)
		fn(orders)
	})
}

func (s *OrderService) writeFailed(ctx context.Context, op, rid, id string, err error) error {
	if !apperr.IsNotFound(err) {
		logging.FromContext(ctx).Error(op, "restaurant_id", rid, "order_id", id, "error", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// publish never fails the caller; the write already happened.
func (s *OrderService) publish(ctx context.Context, typ, rid string, order model.Order) {
	err := s.pub.Publish(ctx, events.Event{
		Type:         typ,
		RestaurantID: rid,
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		Payload:      order,
		At:           s.now(),
	})
	if err != nil {
		logging.FromContext(ctx).Warn("publish order event", "type", typ, "order_id", order.ID, "error", err)
	}
}
