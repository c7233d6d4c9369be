// Package grids declares the back-office grids served through the datatable
// engine: their joins, farm scoping, filters, computed columns and actions.
package grids

import (
	"time"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/datatable"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
)

// Registry returns every grid. now drives age columns.
func Registry(now func() time.Time) *datatable.Registry {
	if now == nil {
		now = time.Now
	}
	return datatable.NewRegistry(
		Farms(),
		Coops(),
		Feeds(),
		Supplies(),
		Users(),
		Livestocks(now),
		LivestockPurchases(),
		FeedPurchases(),
		SupplyPurchases(),
		FeedStocks(),
		SupplyStocks(),
		FeedMutations(),
		SupplyMutations(),
		LivestockMutations(),
		Depletions(),
		Sales(),
		Recordings(),
		FeedUsages(),
	)
}

var statusLabels = map[string]string{
	models.StatusActive:   "Active",
	models.StatusInactive: "Inactive",
	models.StatusInUse:    "In use",
	models.StatusClosed:   "Closed",
}

func statusLabel(key string) func(datatable.Row) any {
	return func(r datatable.Row) any {
		s := r.String(key)
		if l, ok := statusLabels[s]; ok {
			return l
		}
		return s
	}
}

func dateCell(key string) func(datatable.Row) any {
	return func(r datatable.Row) any {
		t, ok := r.Time(key)
		if !ok {
			return nil
		}
		return t.UTC().Format(time.DateOnly)
	}
}

func money(key string) func(datatable.Row) any {
	return func(r datatable.Row) any { return datatable.Round2(r.Float(key)) }
}

func number(key string) func(datatable.Row) any {
	return func(r datatable.Row) any { return datatable.Round2(r.Float(key)) }
}

func perm(a access.Action, r access.Resource) access.Permission {
	return access.Perm(a, r)
}

func dateFilters(expr string, extra map[string]datatable.Filter) map[string]datatable.Filter {
	f := map[string]datatable.Filter{
		"date_from": datatable.DateFrom(expr),
		"date_to":   datatable.DateTo(expr),
	}
	for k, v := range extra {
		f[k] = v
	}
	return f
}
