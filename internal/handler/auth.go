package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dinepos/api/internal/apperr"
	"github.com/dinepos/api/internal/auth"
	"github.com/dinepos/api/internal/model"
	"github.com/go-chi/chi/v5"
)

// AccountServicer defines the account methods needed by auth handlers.
// Satisfied by *service.AccountService; narrow interface for testability.
type AccountServicer interface {
	Signup(ctx context.Context, email, password string) (model.Account, error)
	Login(ctx context.Context, email, password string) (model.Account, error)
	Get(ctx context.Context, id string) (model.Account, error)
}

// RestaurantEnsurer returns the owner's restaurant, creating it on first
// sign-in or with an explicit name at signup.
// Satisfied by *service.RestaurantService.
type RestaurantEnsurer interface {
	Ensure(ctx context.Context, ownerID, email string) (model.Restaurant, error)
	Create(ctx context.Context, ownerID, name string) (model.Restaurant, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	accounts    AccountServicer
	restaurants RestaurantEnsurer
	jwtSecret   string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts AccountServicer, restaurants RestaurantEnsurer, jwtSecret string) *AuthHandler {
	return &AuthHandler{accounts: accounts, restaurants: restaurants, jwtSecret: jwtSecret}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/signup", h.Signup)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
}

// --- Request / Response types ---

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	RestaurantName string `json:"restaurant_name"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	User         userResponse       `json:"user"`
	Restaurant   restaurantResponse `json:"restaurant"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type restaurantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

func toRestaurantResponse(r model.Restaurant) restaurantResponse {
	return restaurantResponse{ID: r.ID, Name: r.Name, Slug: r.Slug, CreatedAt: r.CreatedAt}
}

// --- Handlers ---

// Signup creates an account and its restaurant, then signs the owner in.
// Without a restaurant_name the restaurant gets the default name.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	acct, err := h.accounts.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	name := strings.TrimSpace(req.RestaurantName)
	if name == "" {
		h.respondWithTokens(w, r, http.StatusCreated, acct)
		return
	}
	restaurant, err := h.restaurants.Create(r.Context(), acct.ID, name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.issueTokens(w, r, http.StatusCreated, acct, restaurant)
}

// Login handles email + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Email == "" || req.Password == "" {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	acct, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondWithTokens(w, r, http.StatusOK, acct)
}

// Refresh exchanges a valid refresh token for a new access + refresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.RefreshToken == "" {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "refresh_token is required"})
		return
	}

	userID, err := auth.ValidateRefreshToken(h.jwtSecret, req.RefreshToken)
	if err != nil {
		writeJSON(w, r, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
		return
	}

	acct, err := h.accounts.Get(r.Context(), userID)
	if apperr.IsNotFound(err) {
		writeJSON(w, r, http.StatusUnauthorized, map[string]string{"error": "user not found"})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondWithTokens(w, r, http.StatusOK, acct)
}

// --- Helpers ---

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, r *http.Request, status int, acct model.Account) {
	restaurant, err := h.restaurants.Ensure(r.Context(), acct.ID, acct.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.issueTokens(w, r, status, acct, restaurant)
}

func (h *AuthHandler) issueTokens(w http.ResponseWriter, r *http.Request, status int, acct model.Account, restaurant model.Restaurant) {
	accessToken, err := auth.GenerateToken(h.jwtSecret, acct.ID, restaurant.ID)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(h.jwtSecret, acct.ID)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, r, status, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userResponse{ID: acct.ID, Email: acct.Email},
		Restaurant:   toRestaurantResponse(restaurant),
	})
}
