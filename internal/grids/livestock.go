package grids

import (
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/datatable"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
)

const populationExpr = "(l.initial_quantity + l.mutated_in - l.depleted - l.culled - l.sold - l.mutated_out)"

// Livestocks lists batches with their live population, age and loss rate.
func Livestocks(now func() time.Time) *datatable.Table {
	return &datatable.Table{
		Name:       "livestocks",
		Permission: perm(access.Read, access.Livestock),
		Query: func(db *gorm.DB) *gorm.DB {
			return db.Table("livestocks AS l").
				Select(`l.id AS id, l.farm_id AS farm_id, f.name AS farm_name, l.coop_id AS coop_id,
					c.name AS coop_name, l.name AS name, l.strain AS strain, l.start_date AS start_date,
					l.initial_quantity AS initial_quantity, l.depleted AS depleted, l.culled AS culled,
					l.sold AS sold, l.mutated_in AS mutated_in, l.mutated_out AS mutated_out,
					` + populationExpr + ` AS population, l.status AS status`).
				Joins("JOIN farms f ON f.id = l.farm_id").
				Joins("JOIN coops c ON c.id = l.coop_id").
				Where("l.deleted_at IS NULL")
		},
		ScopeColumns: []string{"l.farm_id"},
		Columns: []datatable.Column{
			{Data: "id", Expr: "l.id", Title: "ID", Orderable: true},
			{Data: "farm_id", Expr: "l.farm_id", Hidden: true},
			{Data: "coop_id", Expr: "l.coop_id", Hidden: true},
			{Data: "name", Expr: "l.name", Title: "Batch", Searchable: true, Orderable: true},
			{Data: "farm_name", Expr: "f.name", Title: "Farm", Searchable: true, Orderable: true},
			{Data: "coop_name", Expr: "c.name", Title: "Coop", Searchable: true, Orderable: true},
			{Data: "strain", Expr: "l.strain", Title: "Strain", Searchable: true},
			{Data: "start_date", Expr: "l.start_date", Title: "Start", Orderable: true, Render: dateCell("start_date")},
			{Data: "initial_quantity", Expr: "l.initial_quantity", Title: "Initial", Orderable: true},
			{Data: "depleted", Expr: "l.depleted", Title: "Mortality", Orderable: true},
			{Data: "culled", Expr: "l.culled", Title: "Culled", Orderable: true},
			{Data: "sold", Expr: "l.sold", Title: "Sold", Orderable: true},
			{Data: "mutated_in", Hidden: true},
			{Data: "mutated_out", Hidden: true},
			{Data: "population", Expr: populationExpr, Title: "Population", Orderable: true},
			{Data: "age", Title: "Age (days)", Render: func(r datatable.Row) any {
				if r.String("status") == models.StatusClosed {
					return nil
				}
				start, ok := r.Time("start_date")
				if !ok {
					return nil
				}
				return models.Livestock{StartDate: start}.AgeOn(now())
			}},
			{Data: "mortality_pct", Title: "Mortality %", Render: func(r datatable.Row) any {
				initial := r.Float("initial_quantity") + r.Float("mutated_in")
				if initial <= 0 {
					return 0.0
				}
				return datatable.Round2((r.Float("depleted") + r.Float("culled")) / initial * 100)
			}},
			{Data: "status", Expr: "l.status", Title: "Status", Orderable: true},
			{Data: "status_label", Title: "Status", Render: statusLabel("status")},
		},
		Filters: dateFilters("l.start_date", map[string]datatable.Filter{
			"farm_id": datatable.Equals("l.farm_id"),
			"coop_id": datatable.Equals("l.coop_id"),
			"status":  datatable.Equals("l.status"),
		}),
		DefaultOrder: "l.start_date DESC, l.id DESC",
		Actions: []datatable.Action{
			{Name: "performance", Permission: perm(access.Read, access.Report)},
			{Name: "record", Permission: perm(access.Create, access.Recording)},
			{Name: "close", Permission: perm(access.Update, access.Livestock)},
		},
	}
}

// LivestockPurchases lists DOC purchases.
func LivestockPurchases() *datatable.Table {
	return &datatable.Table{
		Name:       "livestock-purchases",
		Permission: perm(access.Read, access.Purchase),
		Query: func(db *gorm.DB) *gorm.DB {
			return db.Table("livestock_purchases AS p").
				Select(`p.id AS id, p.invoice AS invoice, p.date AS date, p.farm_id AS farm_id,
					f.name AS farm_name, c.name AS coop_name, l.name AS livestock_name,
					p.supplier AS supplier, p.quantity AS quantity, p.price_per_unit AS price_per_unit,
					p.total AS total`).
				Joins("JOIN farms f ON f.id = p.farm_id").
				Joins("JOIN coops c ON c.id = p.coop_id").
				Joins("JOIN livestocks l ON l.id = p.livestock_id").
				Where("p.deleted_at IS NULL")
		},
		ScopeColumns: []string{"p.farm_id"},
		Columns: []datatable.Column{
			{Data: "id", Expr: "p.id", Title: "ID", Orderable: true},
			{Data: "farm_id", Expr: "p.farm_id", Hidden: true},
			{Data: "invoice", Expr: "p.invoice", Title: "Invoice", Searchable: true, Orderable: true},
			{Data: "date", Expr: "p.date", Title: "Date", Orderable: true, Render: dateCell("date")},
			{Data: "farm_name", Expr: "f.name", Title: "Farm", Searchable: true, Orderable: true},
			{Data: "coop_name", Expr: "c.name", Title: "Coop", Searchable: true},
			{Data: "livestock_name", Expr: "l.name", Title: "Batch", Searchable: true, Orderable: true},
			{Data: "supplier", Expr: "p.supplier", Title: "Supplier", Searchable: true, Orderable: true},
			{Data: "quantity", Expr: "p.quantity", Title: "Quantity", Orderable: true},
			{Data: "price_per_unit", Expr: "p.price_per_unit", Title: "Price", Orderable: true, Render: money("price_per_unit")},
			{Data: "total", Expr: "p.total", Title: "Total", Orderable: true, Render: money("total")},
		},
		Filters: dateFilters("p.date", map[string]datatable.Filter{
			"farm_id": datatable.Equals("p.farm_id"),
		}),
		DefaultOrder: "p.date DESC, p.id DESC",
	}
}

// LivestockMutations lists bird transfers. Rows are visible from both farms.
func LivestockMutations() *datatable.Table {
	return &datatable.Table{
		Name:       "livestock-mutations",
		Permission: perm(access.Read, access.Mutation),
		Query: func(db *gorm.DB) *gorm.DB {
			return db.Table("livestock_mutations AS m").
				Select(`m.id AS id, m.date AS date, sl.name AS source_name, dl.name AS destination_name,
					sf.name AS source_farm, df.name AS destination_farm, m.quantity AS quantity, m.reason AS reason`).
				Joins("JOIN livestocks sl ON sl.id = m.source_livestock_id").
				Joins("JOIN livestocks dl ON dl.id = m.destination_livestock_id").
				Joins("JOIN farms sf ON sf.id = sl.farm_id").
				Joins("JOIN farms df ON df.id = dl.farm_id").
				Where("m.deleted_at IS NULL")
		},
		ScopeColumns: []string{"sl.farm_id", "dl.farm_id"},
		Columns: []datatable.Column{
			{Data: "id", Expr: "m.id", Title: "ID", Orderable: true},
			{Data: "date", Expr: "m.date", Title: "Date", Orderable: true, Render: dateCell("date")},
			{Data: "source_name", Expr: "sl.name", Title: "From batch", Searchable: true, Orderable: true},
			{Data: "source_farm", Expr: "sf.name", Title: "From farm", Searchable: true},
			{Data: "destination_name", Expr: "dl.name", Title: "To batch", Searchable: true, Orderable: true},
			{Data: "destination_farm", Expr: "df.name", Title: "To farm", Searchable: true},
			{Data: "quantity", Expr: "m.quantity", Title: "Quantity", Orderable: true},
			{Data: "reason", Expr: "m.reason", Title: "Reason", Searchable: true},
		},
		Filters: dateFilters("m.date", map[string]datatable.Filter{
			"livestock_id": datatable.AnyEquals("m.source_livestock_id", "m.destination_livestock_id"),
		}),
		DefaultOrder: "m.date DESC, m.id DESC",
	}
}

// Depletions lists mortality and culling entries.
func Depletions() *datatable.Table {
	return &datatable.Table{
		Name:       "depletions",
		Permission: perm(access.Read, access.Depletion),
		Query: func(db *gorm.DB) *gorm.DB {
			return db.Table("livestock_depletions AS d").
				Select(`d.id AS id, d.date AS date, d.livestock_id AS livestock_id, l.name AS livestock_name,
					l.farm_id AS farm_id, f.name AS farm_name, d.type AS type, d.quantity AS quantity,
					d.reason AS reason`).
				Joins("JOIN livestocks l ON l.id = d.livestock_id").
				Joins("JOIN farms f ON f.id = l.farm_id").
				Where("d.deleted_at IS NULL")
		},
		ScopeColumns: []string{"l.farm_id"},
		Columns: []datatable.Column{
			{Data: "id", Expr: "d.id", Title: "ID", Orderable: true},
			{Data: "livestock_id", Expr: "d.livestock_id", Hidden: true},
			{Data: "farm_id", Expr: "l.farm_id", Hidden: true},
			{Data: "date", Expr: "d.date", Title: "Date", Orderable: true, Render: dateCell("date")},
			{Data: "livestock_name", Expr: "l.name", Title: "Batch", Searchable: true, Orderable: true},
			{Data: "farm_name", Expr: "f.name", Title: "Farm", Searchable: true, Orderable: true},
			{Data: "type", Expr: "d.type", Title: "Type", Searchable: true, Orderable: true},
			{Data: "quantity", Expr: "d.quantity", Title: "Quantity", Orderable: true},
			{Data: "reason", Expr: "d.reason", Title: "Reason", Searchable: true},
		},
		Filters: dateFilters("d.date", map[string]datatable.Filter{
			"type":         datatable.Equals("d.type"),
			"livestock_id": datatable.Equals("d.livestock_id"),
			"farm_id":      datatable.Equals("l.farm_id"),
		}),
		DefaultOrder: "d.date DESC, d.id DESC",
	}
}

// Sales lists bird sales with the average sold weight.
func Sales() *datatable.Table {
	return &datatable.Table{
		Name:       "sales",
		Permission: perm(access.Read, access.Sale),
		Query: func(db *gorm.DB) *gorm.DB {
			return db.Table("livestock_sales AS s").
				Select(`s.id AS id, s.date AS date, s.livestock_id AS livestock_id, l.name AS livestock_name,
					l.farm_id AS farm_id, f.name AS farm_name, s.buyer AS buyer, s.quantity AS quantity,
					s.total_weight AS total_weight, s.price_per_kg AS price_per_kg, s.total AS total`).
				Joins("JOIN livestocks l ON l.id = s.livestock_id").
				Joins("JOIN farms f ON f.id = l.farm_id").
				Where("s.deleted_at IS NULL")
		},
		ScopeColumns: []string{"l.farm_id"},
		Columns: []datatable.Column{
			{Data: "id", Expr: "s.id", Title: "ID", Orderable: true},
			{Data: "livestock_id", Expr: "s.livestock_id", Hidden: true},
			{Data: "farm_id", Expr: "l.farm_id", Hidden: true},
			{Data: "date", Expr: "s.date", Title: "Date", Orderable: true, Render: dateCell("date")},
			{Data: "livestock_name", Expr: "l.name", Title: "Batch", Searchable: true, Orderable: true},
			{Data: "farm_name", Expr: "f.name", Title: "Farm", Searchable: true, Orderable: true},
			{Data: "buyer", Expr: "s.buyer", Title: "Buyer", Searchable: true, Orderable: true},
			{Data: "quantity", Expr: "s.quantity", Title: "Quantity", Orderable: true},
			{Data: "total_weight", Expr: "s.total_weight", Title: "Weight (kg)", Orderable: true, Render: number("total_weight")},
			{Data: "avg_weight", Title: "Avg (kg)", Render: func(r datatable.Row) any {
				q := r.Float("quantity")
				if q <= 0 {
					return 0.0
				}
				return datatable.Round2(r.Float("total_weight") / q)
			}},
			{Data: "price_per_kg", Expr: "s.price_per_kg", Title: "Price/kg", Render: money("price_per_kg")},
			{Data: "total", Expr: "s.total", Title: "Total", Orderable: true, Render: money("total")},
		},
		Filters: dateFilters("s.date", map[string]datatable.Filter{
			"livestock_id": datatable.Equals("s.livestock_id"),
			"farm_id":      datatable.Equals("l.farm_id"),
		}),
		DefaultOrder: "s.date DESC, s.id DESC",
	}
}

// Recordings lists daily book entries.
func Recordings() *datatable.Table {
	return &datatable.Table{
		Name:       "recordings",
		Permission: perm(access.Read, access.Recording),
		Query: func(db *gorm.DB) *gorm.DB {
			return db.Table("recordings AS r").
				Select(`r.id AS id, r.date AS date, r.livestock_id AS livestock_id, l.name AS livestock_name,
					l.farm_id AS farm_id, f.name AS farm_name, r.age AS age, r.stock_start AS stock_start,
					r.stock_end AS stock_end, r.mortality AS mortality, r.culling AS culling,
					r.avg_weight AS avg_weight, r.weight_gain AS weight_gain, r.feed_kg AS feed_kg,
					r.cumulative_feed AS cumulative_feed, r.fcr AS fcr, r.notes AS notes`).
				Joins("JOIN livestocks l ON l.id = r.livestock_id").
				Joins("JOIN farms f ON f.id = l.farm_id").
				Where("r.deleted_at IS NULL")
		},
		ScopeColumns: []string{"l.farm_id"},
		Columns: []datatable.Column{
			{Data: "id", Expr: "r.id", Title: "ID", Orderable: true},
			{Data: "livestock_id", Expr: "r.livestock_id", Hidden: true},
			{Data: "farm_id", Expr: "l.farm_id", Hidden: true},
			{Data: "date", Expr: "r.date", Title: "Date", Orderable: true, Render: dateCell("date")},
			{Data: "livestock_name", Expr: "l.name", Title: "Batch", Searchable: true, Orderable: true},
			{Data: "farm_name", Expr: "f.name", Title: "Farm", Searchable: true},
			{Data: "age", Expr: "r.age", Title: "Age", Orderable: true},
			{Data: "stock_start", Expr: "r.stock_start", Title: "Start"},
			{Data: "mortality", Expr: "r.mortality", Title: "Mortality", Orderable: true},
			{Data: "culling", Expr: "r.culling", Title: "Culled", Orderable: true},
			{Data: "stock_end", Expr: "r.stock_end", Title: "End"},
			{Data: "avg_weight", Expr: "r.avg_weight", Title: "Weight (kg)", Orderable: true, Render: number("avg_weight")},
			{Data: "weight_gain", Expr: "r.weight_gain", Title: "Gain (kg)", Render: func(r datatable.Row) any {
				return math.Round(r.Float("weight_gain")*1000) / 1000
			}},
			{Data: "feed_kg", Expr: "r.feed_kg", Title: "Feed (kg)", Orderable: true, Render: number("feed_kg")},
			{Data: "cumulative_feed", Expr: "r.cumulative_feed", Title: "Cum. feed (kg)", Render: number("cumulative_feed")},
			{Data: "fcr", Expr: "r.fcr", Title: "FCR", Orderable: true, Render: number("fcr")},
			{Data: "notes", Expr: "r.notes", Title: "Notes", Searchable: true},
		},
		Filters: dateFilters("r.date", map[string]datatable.Filter{
			"livestock_id": datatable.Equals("r.livestock_id"),
			"farm_id":      datatable.Equals("l.farm_id"),
		}),
		DefaultOrder: "r.date DESC, r.id DESC",
	}
}
