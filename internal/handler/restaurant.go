package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dinepos/api/internal/middleware"
	"github.com/dinepos/api/internal/model"
	"github.com/go-chi/chi/v5"
)

// RestaurantServicer defines the restaurant methods needed by restaurant
// handlers. Satisfied by *service.RestaurantService.
type RestaurantServicer interface {
	Get(ctx context.Context, id string) (model.Restaurant, error)
	Rename(ctx context.Context, id, name string) (model.Restaurant, error)
}

// RestaurantHandler serves the signed-in owner's restaurant.
type RestaurantHandler struct {
	svc RestaurantServicer
}

// NewRestaurantHandler creates a new RestaurantHandler.
func NewRestaurantHandler(svc RestaurantServicer) *RestaurantHandler {
	return &RestaurantHandler{svc: svc}
}

// RegisterRoutes registers restaurant endpoints.
// Expected to be mounted inside an authenticated subrouter: /restaurant
func (h *RestaurantHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Put("/", h.Update)
}

type updateRestaurantRequest struct {
	Name string `json:"name"`
}

func (h *RestaurantHandler) Get(w http.ResponseWriter, r *http.Request) {
	rest, err := h.svc.Get(r.Context(), middleware.RestaurantID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toRestaurantResponse(rest))
}

// Update renames the restaurant. The public menu slug follows the name.
func (h *RestaurantHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRestaurantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	rest, err := h.svc.Rename(r.Context(), middleware.RestaurantID(r.Context()), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toRestaurantResponse(rest))
}
