package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dinepos/api/internal/enum"
	"github.com/dinepos/api/internal/model"
)

// Bucket labels, ordered from most recent to oldest.
const (
	BucketLastHour   = "1h"
	BucketLast3Hours = "3h"
	BucketLast6Hours = "6h"
	BucketLast12Hrs  = "12h"
	BucketLast24Hrs  = "24h"
	BucketOlder      = "older"
)

var recencyBounds = []struct {
	label string
	max   time.Duration
}{
	{BucketLastHour, time.Hour},
	{BucketLast3Hours, 3 * time.Hour},
	{BucketLast6Hours, 6 * time.Hour},
	{BucketLast12Hrs, 12 * time.Hour},
	{BucketLast24Hrs, 24 * time.Hour},
}

// Buckets lists every recency label in display order.
func Buckets() []string {
	out := make([]string, 0, len(recencyBounds)+1)
	for _, b := range recencyBounds {
		out = append(out, b.label)
	}
	return append(out, BucketOlder)
}

// RecencyBucket returns the first bucket whose bound the order's age
// satisfies. Orders without a timestamp are older; orders stamped in the
// future count as the last hour.
func RecencyBucket(createdAt, now time.Time) string {
	if createdAt.IsZero() {
		return BucketOlder
	}
	age := now.Sub(createdAt)
	for _, b := range recencyBounds {
		if age <= b.max {
			return b.label
		}
	}
	return BucketOlder
}

// GroupByRecency partitions orders into recency buckets. Every label is
// present in the result, possibly with no orders.
func GroupByRecency(orders []model.Order, now time.Time) map[string][]model.Order {
	out := make(map[string][]model.Order, len(recencyBounds)+1)
	for _, label := range Buckets() {
		out[label] = []model.Order{}
	}
	for _, o := range orders {
		label := RecencyBucket(o.CreatedAt, now)
		out[label] = append(out[label], o)
	}
	return out
}

// StatusCounts counts orders per kitchen status. Every status is present.
func StatusCounts(orders []model.Order) map[string]int {
	counts := map[string]int{
		enum.OrderStatusPending:   0,
		enum.OrderStatusPreparing: 0,
		enum.OrderStatusReady:     0,
		enum.OrderStatusCompleted: 0,
	}
	for _, o := range orders {
		counts[o.Status]++
	}
	return counts
}

// Quick filters offered by the order history screen.
const (
	QuickAll       = "all"
	QuickPending   = "pending"
	QuickPaid      = "paid"
	QuickCompleted = "completed"
)

func IsQuickFilter(s string) bool {
	switch s {
	case "", QuickAll, QuickPending, QuickPaid, QuickCompleted:
		return true
	}
	return false
}

// Filter narrows an order list. Zero values match everything.
type Filter struct {
	Quick  string
	Status string
	// Search matches a substring of the order number or of the total.
	Search string
}

func (f Filter) Match(o model.Order) bool {
	switch f.Quick {
	case QuickPending:
		if o.Status != enum.OrderStatusPending {
			return false
		}
	case QuickPaid:
		if o.Payment != enum.PaymentStatusCompleted {
			return false
		}
	case QuickCompleted:
		if o.Status != enum.OrderStatusCompleted {
			return false
		}
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		number := strconv.FormatInt(o.OrderNumber, 10)
		if !strings.Contains(number, term) && !strings.Contains(o.Total.String(), term) {
			return false
		}
	}
	return true
}

func Apply(orders []model.Order, f Filter) []model.Order {
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if f.Match(o) {
			out = append(out, o)
		}
	}
	return out
}

// SortNewest orders by creation time descending, breaking ties by order
// number. Orders without a timestamp sort last.
func SortNewest(orders []model.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.OrderNumber > b.OrderNumber
	})
}

// TimeAgo renders a compact age such as "42s ago", "5m ago", "3h ago" or
// "2d ago". The zero time renders as "".
func TimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	secs := int64(now.Sub(t) / time.Second)
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds ago", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm ago", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%dh ago", secs/3600)
	}
	return fmt.Sprintf("%dd ago", secs/86400)
}
