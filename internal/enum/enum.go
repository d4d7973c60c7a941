package enum

// ── Kitchen workflow ──
// Cancellation is a hard delete; there is no stored cancelled state.

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
)

// ── Payment (independent of kitchen status) ──

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
)

// ── Portion variants ──

const (
	VariantHalf = "half"
	VariantFull = "full"
)

// ── Event types ──

const (
	EventOrderPlaced         = "order.placed"
	EventOrderStatusChanged  = "order.status_changed"
	EventOrderPaymentChanged = "order.payment_changed"
	EventOrderItemsAdded     = "order.items_added"
	EventOrderCancelled      = "order.cancelled"
	EventOrdersSnapshot      = "orders.snapshot"
	EventMenuSnapshot        = "menu.snapshot"
)

func IsOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusReady, OrderStatusCompleted:
		return true
	}
	return false
}

func IsPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted:
		return true
	}
	return false
}

func IsVariant(s string) bool {
	return s == VariantHalf || s == VariantFull
}

// suggestedTransitions lists the kitchen moves the UI offers
// ("Start", "Ready", "Complete"). They are advisory only.
var suggestedTransitions = map[string]string{
	OrderStatusPending:   OrderStatusPreparing,
	OrderStatusPreparing: OrderStatusReady,
	OrderStatusReady:     OrderStatusCompleted,
}

// NextStatus returns the status the UI would advance to, or "" for completed.
func NextStatus(current string) string {
	return suggestedTransitions[current]
}

// IsSuggestedTransition reports whether from -> to is one of the UI moves.
// Re-setting the same status is treated as suggested.
func IsSuggestedTransition(from, to string) bool {
	return from == to || suggestedTransitions[from] == to
}
