// Command report prints a restaurant's revenue summary, its orders by
// recency and, when -start or -end is given, the revenue of that window.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/dinepos/api/internal/analytics"
	"github.com/dinepos/api/internal/config"
	"github.com/dinepos/api/internal/database"
	"github.com/dinepos/api/internal/docstore"
	"github.com/dinepos/api/internal/events"
	"github.com/dinepos/api/internal/model"
	"github.com/dinepos/api/internal/sequence"
	"github.com/dinepos/api/internal/service"
	"github.com/olekukonko/tablewriter"
)

func main() {
	slug := flag.String("slug", "", "Restaurant slug (as in the public menu link)")
	startDay := flag.String("start", "", "First day of the revenue window, YYYY-MM-DD")
	endDay := flag.String("end", "", "Last day of the revenue window, YYYY-MM-DD")
	flag.Parse()

	if *slug == "" {
		log.Fatal("-slug is required")
	}

	cfg := config.Load()
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid TIMEZONE: %v", err)
	}
	start, err := analytics.ParseDay(*startDay, loc)
	if err != nil {
		log.Fatalf("Invalid -start: %v", err)
	}
	end, err := analytics.ParseDay(*endDay, loc)
	if err != nil {
		log.Fatalf("Invalid -end: %v", err)
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	docs := docstore.NewPostgres(pool)
	restaurant, err := service.NewRestaurantService(docs).GetBySlug(ctx, *slug)
	if err != nil {
		log.Fatalf("Failed to find restaurant %q: %v", *slug, err)
	}
	orders, err := service.NewOrderService(docs, sequence.NewStore(docs), events.Nop{}).ListOrders(ctx, restaurant.ID)
	if err != nil {
		log.Fatalf("Failed to list orders: %v", err)
	}

	now := time.Now().In(loc)
	fmt.Printf("%s (%s), %d orders\n\n", restaurant.Name, restaurant.Slug, len(orders))

	if err := renderSummary(os.Stdout, orders, now); err != nil {
		log.Fatal(err)
	}
	fmt.Println()
	if err := renderRecency(os.Stdout, orders, now); err != nil {
		log.Fatal(err)
	}
	if start != nil || end != nil {
		fmt.Println()
		w := analytics.Window{Start: start, End: end}
		if err := renderWindow(os.Stdout, orders, w, *startDay, *endDay); err != nil {
			log.Fatal(err)
		}
	}
}

func renderSummary(out io.Writer, orders []model.Order, now time.Time) error {
	s := analytics.Summarize(orders)
	table := tablewriter.NewWriter(out)
	table.Header("Metric", "Value")
	rows := [][]string{
		{"Orders", strconv.Itoa(s.OrderCount)},
		{"Total revenue", s.TotalRevenue.StringFixed(2)},
		{"Paid revenue", s.PaidRevenue.StringFixed(2)},
		{"Average order", s.AverageOrderValue.StringFixed(2)},
		{"Today", analytics.TodayRevenue(orders, now).StringFixed(2)},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderRecency(out io.Writer, orders []model.Order, now time.Time) error {
	groups := analytics.GroupByRecency(orders, now)
	table := tablewriter.NewWriter(out)
	table.Header("Placed", "Orders", "Revenue")
	for _, label := range analytics.Buckets() {
		group := groups[label]
		if err := table.Append([]string{
			label,
			strconv.Itoa(len(group)),
			analytics.TotalRevenue(group).StringFixed(2),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderWindow(out io.Writer, orders []model.Order, w analytics.Window, start, end string) error {
	if start == "" {
		start = "beginning"
	}
	if end == "" {
		end = "today"
	}
	s := analytics.RevenueInWindow(orders, w)
	table := tablewriter.NewWriter(out)
	table.Header("From", "To", "Orders", "Total", "Paid")
	if err := table.Append([]string{
		start, end,
		strconv.Itoa(s.OrderCount),
		s.TotalRevenue.StringFixed(2),
		s.PaidRevenue.StringFixed(2),
	}); err != nil {
		return err
	}
	return table.Render()
}
