// Package analytics computes dashboard figures from an order snapshot. All
// functions are pure: callers pass the current order set (usually the
// latest realtime snapshot) and re-run them when a new one arrives.
package analytics

import (
	"time"

	"github.com/dinepos/api/internal/enum"
	"github.com/dinepos/api/internal/model"
	"github.com/shopspring/decimal"
)

// Summary holds the three revenue reductions plus the order count.
type Summary struct {
	OrderCount        int             `json:"order_count"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	PaidRevenue       decimal.Decimal `json:"paid_revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}

func TotalRevenue(orders []model.Order) decimal.Decimal {
	sum := decimal.Zero
	for _, o := range orders {
		sum = sum.Add(o.Total)
	}
	return sum
}

// PaidRevenue sums totals of orders whose payment is completed, whatever
// their kitchen status.
func PaidRevenue(orders []model.Order) decimal.Decimal {
	sum := decimal.Zero
	for _, o := range orders {
		if o.Payment == enum.PaymentStatusCompleted {
			sum = sum.Add(o.Total)
		}
	}
	return sum
}

// AverageOrderValue is zero for an empty set.
func AverageOrderValue(orders []model.Order) decimal.Decimal {
	if len(orders) == 0 {
		return decimal.Zero
	}
	return TotalRevenue(orders).Div(decimal.NewFromInt(int64(len(orders))))
}

func Summarize(orders []model.Order) Summary {
	return Summary{
		OrderCount:        len(orders),
		TotalRevenue:      TotalRevenue(orders),
		PaidRevenue:       PaidRevenue(orders),
		AverageOrderValue: AverageOrderValue(orders),
	}
}

// Window bounds a revenue query by calendar days. Start is inclusive from
// its instant (normally local midnight); End is inclusive through 23:59:59
// of its calendar day, so the final fractional second is outside. A nil
// side is unbounded.
type Window struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether t falls inside the window. The zero time never
// does.
func (w Window) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	if w.Start != nil && t.Before(*w.Start) {
		return false
	}
	if w.End != nil && t.After(endOfDay(*w.End)) {
		return false
	}
	return true
}

// InWindow returns the orders created inside w.
func InWindow(orders []model.Order, w Window) []model.Order {
	var out []model.Order
	for _, o := range orders {
		if w.Contains(o.CreatedAt) {
			out = append(out, o)
		}
	}
	return out
}

// RevenueInWindow summarizes the orders created inside w.
func RevenueInWindow(orders []model.Order, w Window) Summary {
	return Summarize(InWindow(orders, w))
}

// TodayRevenue sums totals of orders created on now's calendar day, in
// now's location.
func TodayRevenue(orders []model.Order, now time.Time) decimal.Decimal {
	start := midnight(now)
	return TotalRevenue(InWindow(orders, Window{Start: &start, End: &start}))
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// endOfDay is 23:59:59 on t's calendar day.
func endOfDay(t time.Time) time.Time {
	return midnight(t).AddDate(0, 0, 1).Add(-time.Second)
}

// ParseDay parses a YYYY-MM-DD date as midnight in loc. An empty string
// yields nil.
func ParseDay(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
