package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dinepos/api/internal/logging"
	"github.com/dinepos/api/internal/model"
	"github.com/dinepos/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// SlugResolver finds a restaurant by its public menu slug.
// Satisfied by *service.RestaurantService.
type SlugResolver interface {
	GetBySlug(ctx context.Context, slug string) (model.Restaurant, error)
}

// QRRenderer renders the share code for a public menu.
// Satisfied by service.MenuQR.
type QRRenderer interface {
	URL(slug string) string
	PNG(slug string) ([]byte, error)
}

// PublicHandler serves the unauthenticated menu page customers reach by
// scanning the table QR code.
type PublicHandler struct {
	restaurants SlugResolver
	menu        MenuLister
	qr          QRRenderer
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(restaurants SlugResolver, menu MenuLister, qr QRRenderer) *PublicHandler {
	return &PublicHandler{restaurants: restaurants, menu: menu, qr: qr}
}

// RegisterRoutes registers public menu endpoints.
// Expected to be mounted at: /public/menus
func (h *PublicHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{slug}", h.Menu)
	r.Get("/{slug}/qr.png", h.QRCode)
}

type publicMenuResponse struct {
	Restaurant string                 `json:"restaurant"`
	Slug       string                 `json:"slug"`
	URL        string                 `json:"url"`
	Categories []menuCategoryResponse `json:"categories"`
}

// Menu lists the restaurant's available items grouped by category.
func (h *PublicHandler) Menu(w http.ResponseWriter, r *http.Request) {
	rest, err := h.restaurants.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, err := h.menu.ListItems(r.Context(), rest.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, publicMenuResponse{
		Restaurant: rest.Name,
		Slug:       rest.Slug,
		URL:        h.qr.URL(rest.Slug),
		Categories: toMenuCategories(service.AvailableOnly(items)),
	})
}

// QRCode renders a PNG code linking to the public menu.
func (h *PublicHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	rest, err := h.restaurants.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	png, err := h.qr.PNG(rest.Slug)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		logging.FromContext(r.Context()).Error("write QR code", "error", err)
	}
}
