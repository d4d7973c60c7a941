package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dinepos/api/internal/analytics"
	"github.com/dinepos/api/internal/logging"
	"github.com/dinepos/api/internal/middleware"
	"github.com/dinepos/api/internal/model"
	"github.com/go-chi/chi/v5"
)

// OrderLister defines the order reads needed by report handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderLister interface {
	ListOrders(ctx context.Context, rid string) ([]model.Order, error)
}

// ReportsHandler handles report endpoints. Calendar days are taken in loc.
type ReportsHandler struct {
	orders OrderLister
	loc    *time.Location
	now    func() time.Time
}

// NewReportsHandler creates a new ReportsHandler. A nil location means UTC.
func NewReportsHandler(orders OrderLister, loc *time.Location) *ReportsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportsHandler{orders: orders, loc: loc, now: time.Now}
}

// RegisterRoutes registers report endpoints.
// Expected to be mounted inside an authenticated subrouter: /reports
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/summary", h.Summary)
	r.Get("/revenue", h.Revenue)
	r.Get("/recency", h.Recency)
	r.Get("/export.csv", h.Export)
}

// --- Response types ---

type summaryResponse struct {
	OrderCount        int            `json:"order_count"`
	TotalRevenue      string         `json:"total_revenue"`
	PaidRevenue       string         `json:"paid_revenue"`
	AverageOrderValue string         `json:"average_order_value"`
	TodayRevenue      string         `json:"today_revenue,omitempty"`
	StatusCounts      map[string]int `json:"status_counts,omitempty"`
}

type revenueResponse struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
	summaryResponse
}

type recencyBucketResponse struct {
	Bucket     string `json:"bucket"`
	OrderCount int    `json:"order_count"`
	Revenue    string `json:"revenue"`
}

func toSummaryResponse(s analytics.Summary) summaryResponse {
	return summaryResponse{
		OrderCount:        s.OrderCount,
		TotalRevenue:      s.TotalRevenue.StringFixed(2),
		PaidRevenue:       s.PaidRevenue.StringFixed(2),
		AverageOrderValue: s.AverageOrderValue.StringFixed(2),
	}
}

// --- Handlers ---

// Summary reports all-time revenue plus today's revenue and the kitchen
// status breakdown.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context(), middleware.RestaurantID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := toSummaryResponse(analytics.Summarize(orders))
	resp.TodayRevenue = analytics.TodayRevenue(orders, h.now().In(h.loc)).StringFixed(2)
	resp.StatusCounts = analytics.StatusCounts(orders)
	writeJSON(w, r, http.StatusOK, resp)
}

// Revenue summarizes orders between ?start= and ?end= (YYYY-MM-DD, both
// inclusive). Either bound may be omitted.
func (h *ReportsHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	start, err := analytics.ParseDay(r.URL.Query().Get("start"), h.loc)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid start date, expected YYYY-MM-DD"})
		return
	}
	end, err := analytics.ParseDay(r.URL.Query().Get("end"), h.loc)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid end date, expected YYYY-MM-DD"})
		return
	}
	if start != nil && end != nil && end.Before(*start) {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "end must not be before start"})
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), middleware.RestaurantID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := revenueResponse{
		summaryResponse: toSummaryResponse(analytics.RevenueInWindow(orders, analytics.Window{Start: start, End: end})),
	}
	if start != nil {
		resp.Start = start.Format("2006-01-02")
	}
	if end != nil {
		resp.End = end.Format("2006-01-02")
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// Recency counts orders per age bucket, most recent first.
func (h *ReportsHandler) Recency(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context(), middleware.RestaurantID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	groups := analytics.GroupByRecency(orders, h.now())
	resp := make([]recencyBucketResponse, 0, len(groups))
	for _, label := range analytics.Buckets() {
		resp = append(resp, recencyBucketResponse{
			Bucket:     label,
			OrderCount: len(groups[label]),
			Revenue:    analytics.TotalRevenue(groups[label]).StringFixed(2),
		})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// Export streams the orders as CSV, newest first. It takes the same
// filter, status and q parameters as the order list, so the file matches
// what the dashboard shows.
func (h *ReportsHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, msg := orderFilter(r)
	if msg != "" {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), middleware.RestaurantID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	orders = analytics.Apply(orders, f)

	filename := fmt.Sprintf("orders-%s.csv", h.now().In(h.loc).Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if err := analytics.WriteCSV(w, orders, h.loc); err != nil {
		logging.FromContext(r.Context()).Error("write CSV export", "error", err)
	}
}
