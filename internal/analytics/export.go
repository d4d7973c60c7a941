package analytics

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dinepos/api/internal/model"
)

// ExportHeader is the first row of an order export.
var ExportHeader = []string{"Order #", "Date", "Total", "Payment", "Status", "Items"}

const exportTimeLayout = "2006-01-02 15:04:05"

// ExportRows formats one row per order, header first. Timestamps are
// rendered in loc; the items cell reads "name xqty; name xqty".
func ExportRows(orders []model.Order, loc *time.Location) [][]string {
	rows := make([][]string, 0, len(orders)+1)
	rows = append(rows, ExportHeader)
	for _, o := range orders {
		date := ""
		if !o.CreatedAt.IsZero() {
			date = o.CreatedAt.In(loc).Format(exportTimeLayout)
		}
		rows = append(rows, []string{
			strconv.FormatInt(o.OrderNumber, 10),
			date,
			o.Total.StringFixed(2),
			o.Payment,
			o.Status,
			itemsSummary(o.Items),
		})
	}
	return rows
}

func itemsSummary(items map[string]model.LineItem) string {
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s x%d", items[k].Name, items[k].Qty)
	}
	return strings.Join(parts, "; ")
}

// WriteCSV writes ExportRows to w.
func WriteCSV(w io.Writer, orders []model.Order, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(ExportRows(orders, loc)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
