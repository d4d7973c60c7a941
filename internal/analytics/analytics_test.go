package analytics

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"testing"
	"time"

	"github.com/dinepos/api/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func order(number int64, total int64, payment, status string, at time.Time) model.Order {
	return model.Order{
		ID:          "o" + strconv.FormatInt(number, 10),
		OrderNumber: number,
		Total:       decimal.NewFromInt(total),
		Payment:     payment,
		Status:      status,
		CreatedAt:   at,
	}
}

func dec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	w, err := decimal.NewFromString(want)
	require.NoError(t, err)
	assert.True(t, w.Equal(got), "want %s, got %s", want, got)
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	orders := []model.Order{
		order(1, 100, "completed", "pending", now),
		order(2, 250, "pending", "completed", now),
		order(3, 50, "completed", "ready", now),
	}

	s := Summarize(orders)
	assert.Equal(t, 3, s.OrderCount)
	dec(t, "400", s.TotalRevenue)
	dec(t, "150", s.PaidRevenue)
	assert.Equal(t, "133.33", s.AverageOrderValue.StringFixed(2))
}

func TestAverageOrderValue_Empty(t *testing.T) {
	dec(t, "0", AverageOrderValue(nil))
	s := Summarize([]model.Order{})
	assert.Equal(t, 0, s.OrderCount)
	dec(t, "0", s.AverageOrderValue)
}

func TestRevenueInWindow_SameDayIsEndOfDayInclusive(t *testing.T) {
	loc := time.UTC
	day, err := ParseDay("2024-01-01", loc)
	require.NoError(t, err)

	orders := []model.Order{
		order(1, 10, "pending", "pending", time.Date(2023, 12, 31, 23, 59, 59, 0, loc)),
		order(2, 20, "pending", "pending", time.Date(2024, 1, 1, 0, 0, 0, 0, loc)),
		order(3, 30, "completed", "pending", time.Date(2024, 1, 1, 23, 59, 59, 0, loc)),
		order(4, 40, "pending", "pending", time.Date(2024, 1, 2, 0, 0, 0, 0, loc)),
		order(5, 50, "pending", "pending", time.Time{}),
	}

	s := RevenueInWindow(orders, Window{Start: day, End: day})
	assert.Equal(t, 2, s.OrderCount)
	dec(t, "50", s.TotalRevenue)
	dec(t, "30", s.PaidRevenue)
	dec(t, "25", s.AverageOrderValue)
}

func TestRevenueInWindow_EndStopsAtLastWholeSecond(t *testing.T) {
	loc := time.UTC
	day, err := ParseDay("2024-01-01", loc)
	require.NoError(t, err)

	orders := []model.Order{
		order(1, 10, "pending", "pending", time.Date(2024, 1, 1, 23, 59, 59, 0, loc)),
		order(2, 20, "pending", "pending", time.Date(2024, 1, 1, 23, 59, 59, 500_000_000, loc)),
	}

	s := RevenueInWindow(orders, Window{End: day})
	assert.Equal(t, 1, s.OrderCount)
	dec(t, "10", s.TotalRevenue)
}

func TestRevenueInWindow_OpenEnded(t *testing.T) {
	loc := time.UTC
	orders := []model.Order{
		order(1, 10, "pending", "pending", time.Date(2023, 6, 1, 9, 0, 0, 0, loc)),
		order(2, 20, "pending", "pending", time.Date(2024, 6, 1, 9, 0, 0, 0, loc)),
		order(3, 30, "pending", "pending", time.Time{}),
	}
	start, _ := ParseDay("2024-01-01", loc)
	end, _ := ParseDay("2023-12-31", loc)

	assert.Equal(t, 1, RevenueInWindow(orders, Window{Start: start}).OrderCount)
	assert.Equal(t, 1, RevenueInWindow(orders, Window{End: end}).OrderCount)
	// unbounded on both sides still drops untimestamped orders
	assert.Equal(t, 2, RevenueInWindow(orders, Window{}).OrderCount)
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("", time.UTC)
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = ParseDay("01/02/2024", time.UTC)
	assert.Error(t, err)
}

func TestTodayRevenue(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2024, 5, 5, 0, 30, 0, 0, loc)
	orders := []model.Order{
		order(1, 100, "pending", "pending", time.Date(2024, 5, 5, 0, 5, 0, 0, loc)),
		// same instant as 2024-05-04 23:50 local
		order(2, 200, "pending", "pending", time.Date(2024, 5, 4, 18, 20, 0, 0, time.UTC)),
		order(3, 300, "pending", "pending", time.Date(2024, 5, 4, 23, 0, 0, 0, loc)),
	}

	dec(t, "100", TodayRevenue(orders, now))
}

func TestRecencyBucket(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{0, BucketLastHour},
		{time.Hour, BucketLastHour},
		{90 * time.Minute, BucketLast3Hours},
		{3 * time.Hour, BucketLast3Hours},
		{5 * time.Hour, BucketLast6Hours},
		{11 * time.Hour, BucketLast12Hrs},
		{23 * time.Hour, BucketLast24Hrs},
		{25 * time.Hour, BucketOlder},
		{-time.Minute, BucketLastHour},
	}
	for _, tt := range tests {
		t.Run(tt.ago.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, RecencyBucket(now.Add(-tt.ago), now))
		})
	}
	assert.Equal(t, BucketOlder, RecencyBucket(time.Time{}, now))
}

func TestGroupByRecency_ExhaustiveAndDisjoint(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var orders []model.Order
	for i := 0; i < 60; i++ {
		orders = append(orders, order(int64(i+1), 1, "pending", "pending", now.Add(-time.Duration(i)*37*time.Minute)))
	}
	orders = append(orders, order(99, 1, "pending", "pending", time.Time{}))

	groups := GroupByRecency(orders, now)
	require.Len(t, groups, 6)

	seen := make(map[int64]int)
	for _, label := range Buckets() {
		for _, o := range groups[label] {
			seen[o.OrderNumber]++
		}
	}
	require.Len(t, seen, len(orders))
	for n, c := range seen {
		assert.Equal(t, 1, c, "order %d", n)
	}
}

func TestGroupByRecency_NinetyMinutesIsLastThreeHours(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	groups := GroupByRecency([]model.Order{order(1, 1, "pending", "pending", now.Add(-90*time.Minute))}, now)

	assert.Empty(t, groups[BucketLastHour])
	assert.Len(t, groups[BucketLast3Hours], 1)
	assert.Empty(t, groups[BucketLast6Hours])
}

func TestStatusCounts(t *testing.T) {
	now := time.Now()
	counts := StatusCounts([]model.Order{
		order(1, 1, "pending", "pending", now),
		order(2, 1, "pending", "pending", now),
		order(3, 1, "pending", "ready", now),
	})
	assert.Equal(t, map[string]int{"pending": 2, "preparing": 0, "ready": 1, "completed": 0}, counts)
}

func TestApply(t *testing.T) {
	now := time.Now()
	orders := []model.Order{
		order(12, 380, "completed", "pending", now),
		order(13, 95, "pending", "completed", now),
		order(21, 120, "completed", "completed", now),
	}
	numbers := func(os []model.Order) []int64 {
		var out []int64
		for _, o := range os {
			out = append(out, o.OrderNumber)
		}
		return out
	}

	tests := []struct {
		name   string
		filter Filter
		want   []int64
	}{
		{"all", Filter{Quick: QuickAll}, []int64{12, 13, 21}},
		{"pending", Filter{Quick: QuickPending}, []int64{12}},
		{"paid", Filter{Quick: QuickPaid}, []int64{12, 21}},
		{"completed", Filter{Quick: QuickCompleted}, []int64{13, 21}},
		{"status", Filter{Status: "completed"}, []int64{13, 21}},
		{"search number", Filter{Search: "1"}, []int64{12, 13, 21}},
		{"search exact number", Filter{Search: "21"}, []int64{21}},
		{"search total", Filter{Search: "380"}, []int64{12}},
		{"search and quick", Filter{Quick: QuickPaid, Search: "2"}, []int64{12, 21}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, numbers(Apply(orders, tt.filter)))
		})
	}
}

func TestSortNewest(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	orders := []model.Order{
		order(1, 1, "pending", "pending", base),
		order(2, 1, "pending", "pending", base.Add(time.Hour)),
		order(3, 1, "pending", "pending", time.Time{}),
		order(4, 1, "pending", "pending", base.Add(time.Hour)),
	}
	SortNewest(orders)

	var got []int64
	for _, o := range orders {
		got = append(got, o.OrderNumber)
	}
	assert.Equal(t, []int64{4, 2, 1, 3}, got)
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "", TimeAgo(time.Time{}, now))
	assert.Equal(t, "42s ago", TimeAgo(now.Add(-42*time.Second), now))
	assert.Equal(t, "5m ago", TimeAgo(now.Add(-5*time.Minute-10*time.Second), now))
	assert.Equal(t, "3h ago", TimeAgo(now.Add(-3*time.Hour), now))
	assert.Equal(t, "2d ago", TimeAgo(now.Add(-50*time.Hour), now))
}

func TestExportRows(t *testing.T) {
	loc := time.UTC
	o := order(7, 380, "pending", "pending", time.Date(2024, 2, 3, 14, 5, 6, 0, loc))
	o.Items = map[string]model.LineItem{
		"p1_half": {MenuItemID: "p1", Name: "Paneer", Variant: "half", Price: decimal.NewFromInt(80), Qty: 1},
		"p1_full": {MenuItemID: "p1", Name: "Paneer", Variant: "full", Price: decimal.NewFromInt(150), Qty: 2},
	}

	rows := ExportRows([]model.Order{o, order(8, 5, "completed", "ready", time.Time{})}, loc)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Order #", "Date", "Total", "Payment", "Status", "Items"}, rows[0])
	assert.Equal(t, []string{"7", "2024-02-03 14:05:06", "380.00", "pending", "pending", "Paneer x2; Paneer x1"}, rows[1])
	assert.Equal(t, []string{"8", "", "5.00", "completed", "ready", ""}, rows[2])
}

func TestWriteCSV(t *testing.T) {
	o := order(1, 10, "pending", "pending", time.Date(2024, 2, 3, 14, 5, 6, 0, time.UTC))
	o.Items = map[string]model.LineItem{
		"a_full": {Name: "Dal, tadka", Qty: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []model.Order{o}, time.UTC))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Dal, tadka x1", records[1][5])
}
