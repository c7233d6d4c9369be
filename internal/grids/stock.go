package grids

import (
	"gorm.io/gorm"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/datatable"
)

// item describes the feed or supply flavour of the stock grids.
type item struct {
	prefix    string // grid name prefix
	master    string // master table
	column    string // foreign key on stock tables
	purchases string
	stocks    string
	mutations string
}

var (
	feedItem = item{
		prefix: "feed", master: "feeds", column: "feed_id",
		purchases: "feed_purchases", stocks: "feed_stocks", mutations: "feed_mutations",
	}
	supplyItem = item{
		prefix: "supply", master: "supplies", column: "supply_id",
		purchases: "supply_purchases", stocks: "supply_stocks", mutations: "supply_mutations",
	}
)

// FeedPurchases lists feed bought into farms.
func FeedPurchases() *datatable.Table { return purchasesTable(feedItem) }

// SupplyPurchases lists supplies bought into farms.
func SupplyPurchases() *datatable.Table { return purchasesTable(supplyItem) }

// FeedStocks lists feed lots and what is left of them.
func FeedStocks() *datatable.Table { return stocksTable(feedItem) }

// SupplyStocks lists supply lots.
func SupplyStocks() *datatable.Table { return stocksTable(supplyItem) }

// FeedMutations lists feed transfers between farms.
func FeedMutations() *datatable.Table { return mutationsTable(feedItem) }

// SupplyMutations lists supply transfers between farms.
func SupplyMutations() *datatable.Table { return mutationsTable(supplyItem) }

func purchasesTable(it item) *datatable.Table {
	return &datatable.Table{
		Name:       it.prefix + "-purchases",
		Permission: perm(access.Read, access.Purchase),
		Query: func(db *gorm.DB) *gorm.DB {
			return db.Table(it.purchases + " AS p").
				Select(`p.id AS id, p.invoice AS invoice, p.date AS date, p.farm_id AS farm_id, f.name AS farm_name,
					m.code AS item_code, m.name AS item_name, m.unit AS unit, p.supplier AS supplier,
					p.quantity AS quantity, p.price_per_unit AS price_per_unit, p.total AS total`).
				Joins("JOIN farms f ON f.id = p.farm_id").
				Joins("JOIN " + it.master + " m ON m.id = p." + it.column).
				Where("p.deleted_at IS NULL")
		},
		ScopeColumns: []string{"p.farm_id"},
		Columns: []datatable.Column{
			{Data: "id", Expr: "p.id", Title: "ID", Orderable: true},
			{Data: "farm_id", Expr: "p.farm_id", Hidden: true},
			{Data: "invoice", Expr: "p.invoice", Title: "Invoice", Searchable: true, Orderable: true},
			{Data: "date", Expr: "p.date", Title: "Date", Orderable: true, Render: dateCell("date")},
			{Data: "farm_name", Expr: "f.name", Title: "Farm", Searchable: true, Orderable: true},
			{Data: "item_code", Expr: "m.code", Title: "Code", Searchable: true},
			{Data: "item_name", Expr: "m.name", Title: "Item", Searchable: true, Orderable: true},
			{Data: "supplier", Expr: "p.supplier", Title: "Supplier", Searchable: true, Orderable: true},
			{Data: "quantity", Expr: "p.quantity", Title: "Quantity", Orderable: true, Render: number("quantity")},
			{Data: "unit", Expr: "m.unit", Title: "Unit"},
			{Data: "price_per_unit", Expr: "p.price_per_unit", Title: "Price", Orderable: true, Render: money("price_per_unit")},
			{Data: "total", Expr: "p.total", Title: "Total", Orderable: true, Render: money("total")},
		},
		Filters: dateFilters("p.date", map[string]datatable.Filter{
			"farm_id":  datatable.Equals("p.farm_id"),
			it.column:  datatable.Equals("p." + it.column),
			"supplier": datatable.Equals("p.supplier"),
		}),
		DefaultOrder: "p.date DESC, p.id DESC",
	}
}

func stocksTable(it item) *datatable.Table {
	available := "(s.quantity_in - s.quantity_used - s.quantity_mutated)"
	return &datatable.Table{
		Name:       it.prefix + "-stocks",
		Permission: perm(access.Read, access.Stock),
		Query: func(db *gorm.DB) *gorm.DB {
			return db.Table(it.stocks + " AS s").
				Select(`s.id AS id, s.date AS date, s.farm_id AS farm_id, f.name AS farm_name,
					m.code AS item_code, m.name AS item_name, m.unit AS unit, s.source_type AS source_type,
					s.quantity_in AS quantity_in, s.quantity_used AS quantity_used,
					s.quantity_mutated AS quantity_mutated, ` + available + ` AS available`).
				Joins("JOIN farms f ON f.id = s.farm_id").
				Joins("JOIN " + it.master + " m ON m.id = s." + it.column).
				Where("s.deleted_at IS NULL")
		},
		ScopeColumns: []string{"s.farm_id"},
		Columns: []datatable.Column{
			{Data: "id", Expr: "s.id", Title: "ID", Orderable: true},
			{Data: "farm_id", Expr: "s.farm_id", Hidden: true},
			{Data: "date", Expr: "s.date", Title: "Date", Orderable: true, Render: dateCell("date")},
			{Data: "farm_name", Expr: "f.name", Title: "Farm", Searchable: true, Orderable: true},
			{Data: "item_code", Expr: "m.code", Title: "Code", Searchable: true},
			{Data: "item_name", Expr: "m.name", Title: "Item", Searchable: true, Orderable: true},
			{Data: "source_type", Expr: "s.source_type", Title: "Source", Searchable: true},
			{Data: "quantity_in", Expr: "s.quantity_in", Title: "In", Render: number("quantity_in")},
			{Data: "quantity_used", Expr: "s.quantity_used", Title: "Used", Render: number("quantity_used")},
			{Data: "quantity_mutated", Expr: "s.quantity_mutated", Title: "Mutated", Render: number("quantity_mutated")},
			{Data: "available", Expr: available, Title: "Available", Orderable: true, Render: number("available")},
			{Data: "unit", Expr: "m.unit", Title: "Unit"},
		},
		Filters: dateFilters("s.date", map[string]datatable.Filter{
			"farm_id": datatable.Equals("s.farm_id"),
			it.column: datatable.Equals("s." + it.column),
			"available": func(db *gorm.DB, v string) (*gorm.DB, error) {
				if v == "true" || v == "1" {
					return db.Where(available + " > 0"), nil
				}
				return db, nil
			},
		}),
		DefaultOrder: "s.date ASC, s.id ASC",
	}
}

func mutationsTable(it item) *datatable.Table {
	return &datatable.Table{
		Name:       it.prefix + "-mutations",
		Permission: perm(access.Read, access.Mutation),
		Query: func(db *gorm.DB) *gorm.DB {
			return db.Table(it.mutations + " AS mu").
				Select(`mu.id AS id, mu.date AS date, m.name AS item_name, m.unit AS unit,
					sf.name AS source_farm, df.name AS destination_farm, mu.quantity AS quantity, mu.notes AS notes`).
				Joins("JOIN " + it.master + " m ON m.id = mu." + it.column).
				Joins("JOIN farms sf ON sf.id = mu.source_farm_id").
				Joins("JOIN farms df ON df.id = mu.destination_farm_id").
				Where("mu.deleted_at IS NULL")
		},
		ScopeColumns: []string{"mu.source_farm_id", "mu.destination_farm_id"},
		Columns: []datatable.Column{
			{Data: "id", Expr: "mu.id", Title: "ID", Orderable: true},
			{Data: "date", Expr: "mu.date", Title: "Date", Orderable: true, Render: dateCell("date")},
			{Data: "item_name", Expr: "m.name", Title: "Item", Searchable: true, Orderable: true},
			{Data: "source_farm", Expr: "sf.name", Title: "From", Searchable: true, Orderable: true},
			{Data: "destination_farm", Expr: "df.name", Title: "To", Searchable: true, Orderable: true},
			{Data: "quantity", Expr: "mu.quantity", Title: "Quantity", Orderable: true, Render: number("quantity")},
			{Data: "unit", Expr: "m.unit", Title: "Unit"},
			{Data: "notes", Expr: "mu.notes", Title: "Notes", Searchable: true},
		},
		Filters: dateFilters("mu.date", map[string]datatable.Filter{
			it.column: datatable.Equals("mu." + it.column),
			"farm_id": datatable.AnyEquals("mu.source_farm_id", "mu.destination_farm_id"),
		}),
		DefaultOrder: "mu.date DESC, mu.id DESC",
	}
}

// FeedUsages lists feed given to batches.
func FeedUsages() *datatable.Table {
	return &datatable.Table{
		Name:       "feed-usages",
		Permission: perm(access.Read, access.Stock),
		Query: func(db *gorm.DB) *gorm.DB {
			return db.Table("feed_usages AS u").
				Select(`u.id AS id, u.date AS date, u.livestock_id AS livestock_id, l.name AS livestock_name,
					l.farm_id AS farm_id, f.name AS farm_name, fd.name AS feed_name, u.quantity AS quantity`).
				Joins("JOIN livestocks l ON l.id = u.livestock_id").
				Joins("JOIN farms f ON f.id = l.farm_id").
				Joins("JOIN feeds fd ON fd.id = u.feed_id").
				Where("u.deleted_at IS NULL")
		},
		ScopeColumns: []string{"l.farm_id"},
		Columns: []datatable.Column{
			{Data: "id", Expr: "u.id", Title: "ID", Orderable: true},
			{Data: "livestock_id", Expr: "u.livestock_id", Hidden: true},
			{Data: "farm_id", Expr: "l.farm_id", Hidden: true},
			{Data: "date", Expr: "u.date", Title: "Date", Orderable: true, Render: dateCell("date")},
			{Data: "livestock_name", Expr: "l.name", Title: "Batch", Searchable: true, Orderable: true},
			{Data: "farm_name", Expr: "f.name", Title: "Farm", Searchable: true},
			{Data: "feed_name", Expr: "fd.name", Title: "Feed", Searchable: true, Orderable: true},
			{Data: "quantity", Expr: "u.quantity", Title: "Quantity (kg)", Orderable: true, Render: number("quantity")},
		},
		Filters: dateFilters("u.date", map[string]datatable.Filter{
			"livestock_id": datatable.Equals("u.livestock_id"),
			"feed_id":      datatable.Equals("u.feed_id"),
			"farm_id":      datatable.Equals("l.farm_id"),
		}),
		DefaultOrder: "u.date DESC, u.id DESC",
	}
}
