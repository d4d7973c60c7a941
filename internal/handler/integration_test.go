//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dinepos/api/internal/config"
	"github.com/dinepos/api/internal/database"
	"github.com/dinepos/api/internal/docstore"
	"github.com/dinepos/api/internal/enum"
	"github.com/dinepos/api/internal/model"
	"github.com/dinepos/api/internal/router"
	"github.com/dinepos/api/internal/sequence"
	"github.com/dinepos/api/internal/service"
	"github.com/dinepos/api/internal/ws"
	"github.com/gorilla/websocket"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestIntegrationFlow exercises the full API lifecycle against a real
// PostgreSQL database, with every handler wired through the router.
func TestIntegrationFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start PostgreSQL container
	connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	if err := database.Migrate(connStr); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	pool, err := database.Connect(ctx, connStr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	// Initialize dependencies
	docs := docstore.NewPostgres(pool)
	go docs.Listen(ctx, pool)

	hub := ws.NewHub(nil)
	catalog := service.NewCatalogService(docs)
	orders := service.NewOrderService(docs, sequence.NewStore(docs), hub)
	hub.SetFeed(ws.SnapshotFeed(orders, catalog))
	go hub.Run(ctx)

	cfg := &config.Config{
		Port:      "8081",
		JWTSecret: "integration-test-secret",
	}
	r := router.New(cfg, router.Deps{
		Accounts:    service.NewAccountService(docs),
		Restaurants: service.NewRestaurantService(docs),
		Catalog:     catalog,
		Orders:      orders,
		QR:          service.MenuQR{BaseURL: "http://localhost:5173"},
		Hub:         hub,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Location:    time.UTC,
	})

	server := httptest.NewServer(r)
	defer server.Close()

	// --- 1. Sign up; the restaurant is created on first token ---
	signup := httpJSON(t, server, "POST", "/auth/signup", map[string]interface{}{
		"email":    "owner@test.com",
		"password": "password123",
	}, "")
	restaurant := signup["restaurant"].(map[string]interface{})
	if restaurant["name"] != "owner's Restaurant" {
		t.Fatalf("restaurant name: got %v", restaurant["name"])
	}

	// --- 2. Login returns the same restaurant ---
	token := login(t, server, "owner@test.com", "password123")

	// --- 3. Open a kitchen screen before anything is on the menu ---
	conn := dialOrders(t, server, token)
	defer conn.Close()
	waitForSnapshot(t, conn, enum.EventOrdersSnapshot, func(list []model.Order) bool { return len(list) == 0 })

	// --- 4. Build the menu ---
	paneer := httpJSON(t, server, "POST", "/menu", map[string]interface{}{
		"name": "Paneer Tikka", "category": "Starters", "price_half": "120", "price_full": "200",
	}, token)
	naan := httpJSON(t, server, "POST", "/menu", map[string]interface{}{
		"name": "Butter Naan", "category": "Breads", "price_half": "15", "price_full": "30",
	}, token)

	// --- 5. Place two orders ---
	first := httpJSON(t, server, "POST", "/orders", map[string]interface{}{
		"table": "4",
		"items": []map[string]interface{}{
			{"menu_item_id": paneer["id"], "variant": "full", "qty": 1},
			{"menu_item_id": naan["id"], "variant": "full", "qty": 6},
		},
	}, token)
	// 200 + 6 × 30
	if first["total"] != "380.00" || first["order_number"] != float64(1) {
		t.Fatalf("first order: got total %v number %v", first["total"], first["order_number"])
	}
	second := httpJSON(t, server, "POST", "/orders", map[string]interface{}{
		"items": []map[string]interface{}{{"menu_item_id": paneer["id"], "variant": "half", "qty": 1}},
	}, token)
	if second["order_number"] != float64(2) {
		t.Fatalf("second order number: got %v, want 2", second["order_number"])
	}

	// The screen sees both orders.
	waitForSnapshot(t, conn, enum.EventOrdersSnapshot, func(list []model.Order) bool { return len(list) == 2 })

	// --- 6. Move the first order through the kitchen and take payment ---
	firstID := first["id"].(string)
	moved := httpJSON(t, server, "PATCH", "/orders/"+firstID+"/status", map[string]interface{}{"status": "preparing"}, token)
	if moved["next_status"] != enum.OrderStatusReady {
		t.Fatalf("next_status: got %v, want ready", moved["next_status"])
	}
	httpJSON(t, server, "PATCH", "/orders/"+firstID+"/payment", map[string]interface{}{"payment": "completed"}, token)

	// --- 7. A menu price change leaves placed orders alone ---
	httpJSON(t, server, "PUT", "/menu/"+paneer["id"].(string), map[string]interface{}{
		"name": "Paneer Tikka", "price_half": "150", "price_full": "250",
	}, token)
	if got := httpJSON(t, server, "GET", "/orders/"+firstID, nil, token); got["total"] != "380.00" {
		t.Fatalf("total after price change: got %v, want 380.00", got["total"])
	}

	// --- 8. Cancel the second order; its number is not reused ---
	status, _ := httpDo(t, server, "DELETE", "/orders/"+second["id"].(string)+"?confirm=true", nil, token)
	if status != http.StatusNoContent {
		t.Fatalf("cancel: got %d, want 204", status)
	}
	third := httpJSON(t, server, "POST", "/orders", map[string]interface{}{
		"items": []map[string]interface{}{{"menu_item_id": naan["id"], "variant": "half", "qty": 2}},
	}, token)
	if third["order_number"] != float64(3) {
		t.Fatalf("third order number: got %v, want 3", third["order_number"])
	}

	// --- 9. Reports ---
	summary := httpJSON(t, server, "GET", "/reports/summary", nil, token)
	if summary["order_count"] != float64(2) || summary["total_revenue"] != "410.00" || summary["paid_revenue"] != "380.00" {
		t.Fatalf("summary: got %v", summary)
	}
	status, csv := httpDo(t, server, "GET", "/reports/export.csv", nil, token)
	if status != http.StatusOK || strings.Count(strings.TrimSpace(csv), "\n") != 2 {
		t.Fatalf("export: status %d body %q", status, csv)
	}

	// --- 10. Public menu by slug ---
	slug := restaurant["slug"].(string)
	menu := httpJSON(t, server, "GET", "/public/menus/"+slug, nil, "")
	if cats := menu["categories"].([]interface{}); len(cats) != 2 {
		t.Fatalf("public categories: got %d, want 2", len(cats))
	}
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("pos_test"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}
	return connStr, cleanup
}

func login(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()
	resp := httpJSON(t, server, "POST", "/auth/login", map[string]interface{}{
		"email":    email,
		"password": password,
	}, "")
	token, ok := resp["access_token"].(string)
	if !ok || token == "" {
		t.Fatalf("login failed: no access_token in response: %+v", resp)
	}
	return token
}

func dialOrders(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/orders?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	return conn
}

// waitForSnapshot reads frames until a snapshot of typ satisfies ok.
func waitForSnapshot(t *testing.T, conn *websocket.Conn, typ string, ok func([]model.Order) bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		var ev ws.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read %s: %v", typ, err)
		}
		if ev.Type != typ {
			continue
		}
		var list []model.Order
		if err := json.Unmarshal(ev.Payload, &list); err != nil {
			t.Fatalf("decode %s: %v", typ, err)
		}
		if ok(list) {
			return
		}
	}
	t.Fatalf("no matching %s before deadline", typ)
}

// --- HTTP helpers ---

func httpDo(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string) (int, string) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, server.URL+path, rdr)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp.StatusCode, string(raw)
}

func httpJSON(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()
	status, raw := httpDo(t, server, method, path, body, token)
	if status < 200 || status >= 300 {
		t.Fatalf("%s %s: status %d, body: %s", method, path, status, raw)
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		t.Fatalf("decode response %s: %v", fmt.Sprintf("%.200s", raw), err)
	}
	return result
}
