package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/dinepos/api/internal/middleware"
	"github.com/dinepos/api/internal/model"
	"github.com/dinepos/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// MenuServicer defines the catalog methods needed by menu handlers.
// Satisfied by *service.CatalogService; narrow interface for testability.
type MenuServicer interface {
	AddItem(ctx context.Context, rid string, in service.ItemInput) (model.MenuItem, error)
	EditItem(ctx context.Context, rid, id string, in service.EditInput) (model.MenuItem, error)
	ToggleAvailability(ctx context.Context, rid, id string) (model.MenuItem, error)
	DeleteItem(ctx context.Context, rid, id string, confirmed bool) error
	GetItem(ctx context.Context, rid, id string) (model.MenuItem, error)
	ListItems(ctx context.Context, rid string) ([]model.MenuItem, error)
}

// MenuHandler handles menu item endpoints.
type MenuHandler struct {
	svc MenuServicer
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(svc MenuServicer) *MenuHandler {
	return &MenuHandler{svc: svc}
}

// RegisterRoutes registers menu endpoints on the given Chi router.
// Expected to be mounted inside an authenticated subrouter: /menu
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Post("/{id}/toggle", h.Toggle)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createMenuItemRequest struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	PriceHalf string `json:"price_half"`
	PriceFull string `json:"price_full"`
}

type updateMenuItemRequest struct {
	Name      string `json:"name"`
	PriceHalf string `json:"price_half"`
	PriceFull string `json:"price_full"`
}

type menuItemResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	PriceHalf string    `json:"price_half"`
	PriceFull string    `json:"price_full"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"created_at"`
}

type menuCategoryResponse struct {
	Category string             `json:"category"`
	Items    []menuItemResponse `json:"items"`
}

func toMenuItemResponse(m model.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:        m.ID,
		Name:      m.Name,
		Category:  m.Category,
		PriceHalf: m.PriceHalf.StringFixed(2),
		PriceFull: m.PriceFull.StringFixed(2),
		Available: m.Available,
		CreatedAt: m.CreatedAt,
	}
}

func toMenuItemResponses(items []model.MenuItem) []menuItemResponse {
	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	return resp
}

// toMenuCategories renders categories in name order, items in catalog order.
func toMenuCategories(items []model.MenuItem) []menuCategoryResponse {
	groups := service.GroupByCategory(items)
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := make([]menuCategoryResponse, 0, len(names))
	for _, name := range names {
		resp = append(resp, menuCategoryResponse{Category: name, Items: toMenuItemResponses(groups[name])})
	}
	return resp
}

// --- Handlers ---

// List returns the menu. ?available=true hides unavailable items and
// ?grouped=true groups by category.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListItems(r.Context(), middleware.RestaurantID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if queryBool(r, "available") {
		items = service.AvailableOnly(items)
	}
	if queryBool(r, "grouped") {
		writeJSON(w, r, http.StatusOK, toMenuCategories(items))
		return
	}
	writeJSON(w, r, http.StatusOK, toMenuItemResponses(items))
}

func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item, err := h.svc.AddItem(r.Context(), middleware.RestaurantID(r.Context()), service.ItemInput{
		Name:      req.Name,
		Category:  req.Category,
		PriceHalf: req.PriceHalf,
		PriceFull: req.PriceFull,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toMenuItemResponse(item))
}

func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.GetItem(r.Context(), middleware.RestaurantID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toMenuItemResponse(item))
}

func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item, err := h.svc.EditItem(r.Context(), middleware.RestaurantID(r.Context()), chi.URLParam(r, "id"), service.EditInput{
		Name:      req.Name,
		PriceHalf: req.PriceHalf,
		PriceFull: req.PriceFull,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toMenuItemResponse(item))
}

func (h *MenuHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.ToggleAvailability(r.Context(), middleware.RestaurantID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toMenuItemResponse(item))
}

// Delete requires ?confirm=true.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteItem(r.Context(), middleware.RestaurantID(r.Context()), chi.URLParam(r, "id"), queryBool(r, "confirm"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
