package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/dinepos/api/internal/apperr"
	"github.com/dinepos/api/internal/auth"
	"github.com/dinepos/api/internal/docstore"
	"github.com/dinepos/api/internal/handler"
	"github.com/dinepos/api/internal/model"
	"github.com/dinepos/api/internal/service"
	"github.com/go-chi/chi/v5"
)

func setupAuthRouter() *chi.Mux {
	docs := docstore.NewMemory()
	h := handler.NewAuthHandler(service.NewAccountService(docs), service.NewRestaurantService(docs), testJWTSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func signup(t *testing.T, router http.Handler, email, password string) map[string]interface{} {
	t.Helper()
	rr := doRequest(t, router, "POST", "/auth/signup", map[string]string{"email": email, "password": password})
	expectStatus(t, rr, http.StatusCreated)
	return decodeObject(t, rr)
}

func TestAuthSignup_CreatesRestaurantAndTokens(t *testing.T) {
	router := setupAuthRouter()

	resp := signup(t, router, "priya@example.com", "secret123")

	user := resp["user"].(map[string]interface{})
	restaurant := resp["restaurant"].(map[string]interface{})
	if user["email"] != "priya@example.com" {
		t.Errorf("email: got %v, want priya@example.com", user["email"])
	}
	if restaurant["id"] != user["id"] {
		t.Errorf("restaurant id: got %v, want owner id %v", restaurant["id"], user["id"])
	}
	if restaurant["name"] != "priya's Restaurant" {
		t.Errorf("restaurant name: got %v", restaurant["name"])
	}

	claims, err := auth.ValidateToken(testJWTSecret, resp["access_token"].(string))
	if err != nil {
		t.Fatalf("access token: %v", err)
	}
	if claims.RestaurantID != restaurant["id"] {
		t.Errorf("claims restaurant: got %v, want %v", claims.RestaurantID, restaurant["id"])
	}
	if resp["refresh_token"] == "" {
		t.Error("expected refresh token")
	}
}

func TestAuthSignup_RestaurantName(t *testing.T) {
	tests := []struct {
		name     string
		given    string
		wantName string
		wantSlug string
	}{
		{"named", "Dal House", "Dal House", "dal-house"},
		{"trimmed", "  Dal House  ", "Dal House", "dal-house"},
		{"blank falls back to default", "   ", "meera's Restaurant", "meera-s-restaurant"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupAuthRouter()
			rr := doRequest(t, router, "POST", "/auth/signup", map[string]string{
				"email":           "meera@example.com",
				"password":        "secret123",
				"restaurant_name": tt.given,
			})
			expectStatus(t, rr, http.StatusCreated)

			restaurant := decodeObject(t, rr)["restaurant"].(map[string]interface{})
			if restaurant["name"] != tt.wantName {
				t.Errorf("name: got %v, want %v", restaurant["name"], tt.wantName)
			}
			if restaurant["slug"] != tt.wantSlug {
				t.Errorf("slug: got %v, want %v", restaurant["slug"], tt.wantSlug)
			}

			// Signing in again keeps the chosen restaurant.
			rr = doRequest(t, router, "POST", "/auth/login", map[string]string{"email": "meera@example.com", "password": "secret123"})
			expectStatus(t, rr, http.StatusOK)
			again := decodeObject(t, rr)["restaurant"].(map[string]interface{})
			if again["name"] != tt.wantName {
				t.Errorf("name after login: got %v, want %v", again["name"], tt.wantName)
			}
		})
	}
}

func TestAuthSignup_Errors(t *testing.T) {
	router := setupAuthRouter()
	signup(t, router, "taken@example.com", "secret123")

	tests := []struct {
		name         string
		body         interface{}
		expectedCode int
	}{
		{"bad email", map[string]string{"email": "nope", "password": "secret123"}, http.StatusBadRequest},
		{"short password", map[string]string{"email": "a@b.co", "password": "123"}, http.StatusBadRequest},
		{"duplicate email", map[string]string{"email": "TAKEN@example.com", "password": "secret123"}, http.StatusConflict},
		{"invalid body", "not-an-object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, "POST", "/auth/signup", tt.body)
			expectStatus(t, rr, tt.expectedCode)
		})
	}
}

func TestAuthLogin(t *testing.T) {
	router := setupAuthRouter()
	created := signup(t, router, "sam@example.com", "secret123")

	rr := doRequest(t, router, "POST", "/auth/login", map[string]string{"email": "Sam@Example.com", "password": "secret123"})
	expectStatus(t, rr, http.StatusOK)
	resp := decodeObject(t, rr)

	// the restaurant made at signup is reused
	got := resp["restaurant"].(map[string]interface{})["id"]
	want := created["restaurant"].(map[string]interface{})["id"]
	if got != want {
		t.Errorf("restaurant id: got %v, want %v", got, want)
	}
}

func TestAuthLogin_Errors(t *testing.T) {
	router := setupAuthRouter()
	signup(t, router, "sam@example.com", "secret123")

	tests := []struct {
		name         string
		body         map[string]string
		expectedCode int
	}{
		{"wrong password", map[string]string{"email": "sam@example.com", "password": "nope-nope"}, http.StatusUnauthorized},
		{"unknown email", map[string]string{"email": "who@example.com", "password": "secret123"}, http.StatusUnauthorized},
		{"missing password", map[string]string{"email": "sam@example.com"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, router, "POST", "/auth/login", tt.body)
			expectStatus(t, rr, tt.expectedCode)
		})
	}
}

func TestAuthRefresh(t *testing.T) {
	router := setupAuthRouter()
	created := signup(t, router, "sam@example.com", "secret123")

	rr := doRequest(t, router, "POST", "/auth/refresh", map[string]string{"refresh_token": created["refresh_token"].(string)})
	expectStatus(t, rr, http.StatusOK)
	resp := decodeObject(t, rr)
	if resp["access_token"] == "" {
		t.Error("expected access token")
	}

	rr = doRequest(t, router, "POST", "/auth/refresh", map[string]string{"refresh_token": "garbage"})
	expectStatus(t, rr, http.StatusUnauthorized)

	rr = doRequest(t, router, "POST", "/auth/refresh", map[string]string{})
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestAuthRefresh_UnknownUser(t *testing.T) {
	router := setupAuthRouter()
	token, err := auth.GenerateRefreshToken(testJWTSecret, "ghost")
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rr := doRequest(t, router, "POST", "/auth/refresh", map[string]string{"refresh_token": token})
	expectStatus(t, rr, http.StatusUnauthorized)
}

// mockAccounts is a fn-field AccountServicer for exercising error paths.
type mockAccounts struct {
	getFn func(ctx context.Context, id string) (model.Account, error)
}

func (m *mockAccounts) Signup(ctx context.Context, email, password string) (model.Account, error) {
	return model.Account{}, errors.New("not implemented")
}

func (m *mockAccounts) Login(ctx context.Context, email, password string) (model.Account, error) {
	return model.Account{}, errors.New("not implemented")
}

func (m *mockAccounts) Get(ctx context.Context, id string) (model.Account, error) {
	return m.getFn(ctx, id)
}

func TestAuthRefresh_StoreErrorIsNotUnauthorized(t *testing.T) {
	accounts := &mockAccounts{getFn: func(ctx context.Context, id string) (model.Account, error) {
		return model.Account{}, apperr.Backend(errors.New("connection refused"))
	}}
	h := handler.NewAuthHandler(accounts, service.NewRestaurantService(docstore.NewMemory()), testJWTSecret)
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	token, err := auth.GenerateRefreshToken(testJWTSecret, "u1")
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	rr := doRequest(t, router, "POST", "/auth/refresh", map[string]string{"refresh_token": token})
	expectStatus(t, rr, http.StatusServiceUnavailable)
}
