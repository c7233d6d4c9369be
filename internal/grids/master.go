package grids

import (
	"gorm.io/gorm"

	"github.com/mamadbah2/farmdesk/internal/access"
	"github.com/mamadbah2/farmdesk/internal/datatable"
)

// Farms lists farms with their coop count.
func Farms() *datatable.Table {
	return &datatable.Table{
		Name:       "farms",
		Permission: perm(access.Read, access.Farm),
		Query: func(db *gorm.DB) *gorm.DB {
			return db.Table("farms AS f").
				Select(`f.id AS id, f.code AS code, f.name AS name, f.address AS address,
					f.contact AS contact, f.phone AS phone, f.status AS status,
					(SELECT COUNT(*) FROM coops c WHERE c.farm_id = f.id AND c.deleted_at IS NULL) AS coops`).
				Where("f.deleted_at IS NULL")
		},
		ScopeColumns: []string{"f.id"},
		Columns: []datatable.Column{
			{Data: "id", Expr: "f.id", Title: "ID", Orderable: true},
			{Data: "code", Expr: "f.code", Title: "Code", Searchable: true, Orderable: true},
			{Data: "name", Expr: "f.name", Title: "Name", Searchable: true, Orderable: true},
			{Data: "address", Expr: "f.address", Title: "Address", Searchable: true},
			{Data: "contact", Expr: "f.contact", Title: "Contact", Searchable: true},
			{Data: "phone", Expr: "f.phone", Title: "Phone", Searchable: true},
			{Data: "coops", Title: "Coops"},
			{Data: "status", Expr: "f.status", Title: "Status", Orderable: true},
			{Data: "status_label", Title: "Status", Render: statusLabel("status")},
		},
		Filters:      map[string]datatable.Filter{"status": datatable.Equals("f.status")},
		DefaultOrder: "f.code ASC",
		Actions: []datatable.Action{
			{Name: "edit", Permission: perm(access.Update, access.Farm)},
			{Name: "operators", Permission: perm(access.Update, access.Farm)},
			{Name: "delete", Permission: perm(access.Delete, access.Farm)},
		},
	}
}

// Coops lists coops with their farm and the active batch, if any.
func Coops() *datatable.Table {
	return &datatable.Table{
		Name:       "coops",
		Permission: perm(access.Read, access.Coop),
		Query: func(db *gorm.DB) *gorm.DB {
			return db.Table("coops AS c").
				Select(`c.id AS id, c.farm_id AS farm_id, f.name AS farm_name, c.code AS code,
					c.name AS name, c.capacity AS capacity, c.status AS status,
					(SELECT l.name FROM livestocks l WHERE l.coop_id = c.id AND l.status = 'active'
						AND l.deleted_at IS NULL ORDER BY l.id DESC LIMIT 1) AS livestock_name`).
				Joins("JOIN farms f ON f.id = c.farm_id").
				Where("c.deleted_at IS NULL")
		},
		ScopeColumns: []string{"c.farm_id"},
		Columns: []datatable.Column{
			{Data: "id", Expr: "c.id", Title: "ID", Orderable: true},
			{Data: "farm_id", Expr: "c.farm_id", Hidden: true},
			{Data: "farm_name", Expr: "f.name", Title: "Farm", Searchable: true, Orderable: true},
			{Data: "code", Expr: "c.code", Title: "Code", Searchable: true, Orderable: true},
			{Data: "name", Expr: "c.name", Title: "Name", Searchable: true, Orderable: true},
			{Data: "capacity", Expr: "c.capacity", Title: "Capacity", Orderable: true},
			{Data: "livestock_name", Title: "Batch"},
			{Data: "status", Expr: "c.status", Title: "Status", Orderable: true},
			{Data: "status_label", Title: "Status", Render: statusLabel("status")},
		},
		Filters: map[string]datatable.Filter{
			"farm_id": datatable.Equals("c.farm_id"),
			"status":  datatable.Equals("c.status"),
		},
		DefaultOrder: "f.name ASC, c.code ASC",
		Actions: []datatable.Action{
			{Name: "edit", Permission: perm(access.Update, access.Coop)},
			{Name: "delete", Permission: perm(access.Delete, access.Coop)},
		},
	}
}

// Feeds lists feed master data. Master data is shared by all farms.
func Feeds() *datatable.Table {
	return &datatable.Table{
		Name:       "feeds",
		Permission: perm(access.Read, access.Feed),
		Query: func(db *gorm.DB) *gorm.DB {
			return db.Table("feeds AS fd").
				Select("fd.id AS id, fd.code AS code, fd.name AS name, fd.unit AS unit, fd.phase AS phase, fd.description AS description").
				Where("fd.deleted_at IS NULL")
		},
		Columns: []datatable.Column{
			{Data: "id", Expr: "fd.id", Title: "ID", Orderable: true},
			{Data: "code", Expr: "fd.code", Title: "Code", Searchable: true, Orderable: true},
			{Data: "name", Expr: "fd.name", Title: "Name", Searchable: true, Orderable: true},
			{Data: "unit", Expr: "fd.unit", Title: "Unit"},
			{Data: "phase", Expr: "fd.phase", Title: "Phase", Searchable: true, Orderable: true},
			{Data: "description", Expr: "fd.description", Title: "Description", Searchable: true},
		},
		Filters:      map[string]datatable.Filter{"phase": datatable.Equals("fd.phase")},
		DefaultOrder: "fd.code ASC",
		Actions: []datatable.Action{
			{Name: "edit", Permission: perm(access.Update, access.Feed)},
			{Name: "delete", Permission: perm(access.Delete, access.Feed)},
		},
	}
}

// Supplies lists supply master data.
func Supplies() *datatable.Table {
	return &datatable.Table{
		Name:       "supplies",
		Permission: perm(access.Read, access.Supply),
		Query: func(db *gorm.DB) *gorm.DB {
			return db.Table("supplies AS s").
				Select("s.id AS id, s.code AS code, s.name AS name, s.unit AS unit, s.category AS category").
				Where("s.deleted_at IS NULL")
		},
		Columns: []datatable.Column{
			{Data: "id", Expr: "s.id", Title: "ID", Orderable: true},
			{Data: "code", Expr: "s.code", Title: "Code", Searchable: true, Orderable: true},
			{Data: "name", Expr: "s.name", Title: "Name", Searchable: true, Orderable: true},
			{Data: "unit", Expr: "s.unit", Title: "Unit"},
			{Data: "category", Expr: "s.category", Title: "Category", Searchable: true, Orderable: true},
		},
		Filters:      map[string]datatable.Filter{"category": datatable.Equals("s.category")},
		DefaultOrder: "s.code ASC",
		Actions: []datatable.Action{
			{Name: "edit", Permission: perm(access.Update, access.Supply)},
			{Name: "delete", Permission: perm(access.Delete, access.Supply)},
		},
	}
}

// Users lists back-office accounts with their number of assigned farms.
func Users() *datatable.Table {
	return &datatable.Table{
		Name:       "users",
		Permission: perm(access.Read, access.User),
		Query: func(db *gorm.DB) *gorm.DB {
			return db.Table("users AS u").
				Select(`u.id AS id, u.name AS name, u.email AS email, u.phone AS phone, u.role AS role,
					u.active AS active,
					(SELECT COUNT(*) FROM farm_operators fo WHERE fo.user_id = u.id) AS farms`).
				Where("u.deleted_at IS NULL")
		},
		Columns: []datatable.Column{
			{Data: "id", Expr: "u.id", Title: "ID", Orderable: true},
			{Data: "name", Expr: "u.name", Title: "Name", Searchable: true, Orderable: true},
			{Data: "email", Expr: "u.email", Title: "Email", Searchable: true, Orderable: true},
			{Data: "phone", Expr: "u.phone", Title: "Phone", Searchable: true},
			{Data: "role", Expr: "u.role", Title: "Role", Searchable: true, Orderable: true},
			{Data: "active", Title: "Active", Render: func(r datatable.Row) any { return r.Bool("active") }},
			{Data: "farms", Title: "Farms"},
		},
		Filters:      map[string]datatable.Filter{"role": datatable.Equals("u.role")},
		DefaultOrder: "u.name ASC",
		Actions: []datatable.Action{
			{Name: "edit", Permission: perm(access.Update, access.User)},
			{Name: "delete", Permission: perm(access.Delete, access.User)},
		},
	}
}
