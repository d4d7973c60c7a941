package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/dinepos/api/internal/analytics"
	"github.com/dinepos/api/internal/cart"
	"github.com/dinepos/api/internal/enum"
	"github.com/dinepos/api/internal/middleware"
	"github.com/dinepos/api/internal/model"
	"github.com/dinepos/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (model.Order, error)
	SetStatus(ctx context.Context, rid, id, status string) (model.Order, error)
	SetPayment(ctx context.Context, rid, id, payment string) (model.Order, error)
	CancelOrder(ctx context.Context, rid, id string, confirmed bool) error
	AddItems(ctx context.Context, rid, id string, c *cart.Cart) (model.Order, error)
	GetOrder(ctx context.Context, rid, id string) (model.Order, error)
	ListOrders(ctx context.Context, rid string) ([]model.Order, error)
}

// MenuLister resolves order selections against the current menu.
// Satisfied by *service.CatalogService.
type MenuLister interface {
	ListItems(ctx context.Context, rid string) ([]model.MenuItem, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc  OrderServicer
	menu MenuLister
	now  func() time.Time
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, menu MenuLister) *OrderHandler {
	return &OrderHandler{svc: svc, menu: menu, now: time.Now}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside an authenticated subrouter: /orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Patch("/{id}/payment", h.UpdatePayment)
	r.Post("/{id}/items", h.AddItems)
	r.Delete("/{id}", h.Cancel)
}

// --- Request / Response types ---

type createOrderRequest struct {
	Items   []cart.Selection `json:"items"`
	Payment string           `json:"payment"`
	Table   string           `json:"table"`
}

type addItemsRequest struct {
	Items []cart.Selection `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type updatePaymentRequest struct {
	Payment string `json:"payment"`
}

type orderResponse struct {
	ID          string             `json:"id"`
	OrderNumber int64              `json:"order_number"`
	Items       []lineItemResponse `json:"items"`
	Total       string             `json:"total"`
	Payment     string             `json:"payment"`
	Status      string             `json:"status"`
	Table       string             `json:"table,omitempty"`
	NextStatus  string             `json:"next_status,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	TimeAgo     string             `json:"time_ago"`
}

type lineItemResponse struct {
	Key        string `json:"key"`
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name"`
	Variant    string `json:"variant"`
	Price      string `json:"price"`
	Qty        int    `json:"qty"`
	Subtotal   string `json:"subtotal"`
}

func toOrderResponse(o model.Order, now time.Time) orderResponse {
	keys := make([]string, 0, len(o.Items))
	for k := range o.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]lineItemResponse, 0, len(keys))
	for _, k := range keys {
		li := o.Items[k]
		items = append(items, lineItemResponse{
			Key:        k,
			MenuItemID: li.MenuItemID,
			Name:       li.Name,
			Variant:    li.Variant,
			Price:      li.Price.StringFixed(2),
			Qty:        li.Qty,
			Subtotal:   li.Subtotal().StringFixed(2),
		})
	}

	return orderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Items:       items,
		Total:       o.Total.StringFixed(2),
		Payment:     o.Payment,
		Status:      o.Status,
		Table:       o.Table,
		NextStatus:  enum.NextStatus(o.Status),
		CreatedAt:   o.CreatedAt,
		TimeAgo:     analytics.TimeAgo(o.CreatedAt, now),
	}
}

// --- Handlers ---

// Create commits the posted selections as a new order.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	rid := middleware.RestaurantID(r.Context())
	c, err := h.buildCart(r.Context(), rid, req.Items)
	if err != nil {
		writeError(w, r, err)
		return
	}

	order, err := h.svc.PlaceOrder(r.Context(), service.PlaceOrderRequest{
		RestaurantID: rid,
		Cart:         c,
		Payment:      req.Payment,
		Table:        req.Table,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toOrderResponse(order, h.now()))
}

// List returns orders newest first, optionally narrowed by ?status=,
// ?filter= (all, pending, paid, completed) and ?q=.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	f, msg := orderFilter(r)
	if msg != "" {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	orders, err := h.svc.ListOrders(r.Context(), middleware.RestaurantID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	now := h.now()
	orders = analytics.Apply(orders, f)
	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, now)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.GetOrder(r.Context(), middleware.RestaurantID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(order, h.now()))
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.SetStatus(r.Context(), middleware.RestaurantID(r.Context()), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(order, h.now()))
}

func (h *OrderHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req updatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.SetPayment(r.Context(), middleware.RestaurantID(r.Context()), chi.URLParam(r, "id"), req.Payment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(order, h.now()))
}

// AddItems merges more selections into an existing order.
func (h *OrderHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	var req addItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	rid := middleware.RestaurantID(r.Context())
	c, err := h.buildCart(r.Context(), rid, req.Items)
	if err != nil {
		writeError(w, r, err)
		return
	}

	order, err := h.svc.AddItems(r.Context(), rid, chi.URLParam(r, "id"), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toOrderResponse(order, h.now()))
}

// Cancel deletes the order. Requires ?confirm=true.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	err := h.svc.CancelOrder(r.Context(), middleware.RestaurantID(r.Context()), chi.URLParam(r, "id"), queryBool(r, "confirm"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func (h *OrderHandler) buildCart(ctx context.Context, rid string, sel []cart.Selection) (*cart.Cart, error) {
	if len(sel) == 0 {
		return cart.New(), nil
	}
	items, err := h.menu.ListItems(ctx, rid)
	if err != nil {
		return nil, err
	}
	return cart.Build(items, sel)
}

// orderFilter reads the filter, status and q query parameters. A non-empty
// message means the request is invalid.
func orderFilter(r *http.Request) (analytics.Filter, string) {
	q := r.URL.Query()
	f := analytics.Filter{
		Quick:  q.Get("filter"),
		Status: q.Get("status"),
		Search: q.Get("q"),
	}
	if f.Status != "" && !enum.IsOrderStatus(f.Status) {
		return f, "invalid status filter"
	}
	if !analytics.IsQuickFilter(f.Quick) {
		return f, "invalid filter"
	}
	return f, ""
}
