// Package datatable serves server-side grids speaking the DataTables
// protocol: draw/start/length paging, global and per-column search,
// whitelisted ordering and named filters, scoped to the caller's farms.
package datatable

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrBadRequest is returned for malformed grid parameters.
	ErrBadRequest = errors.New("bad datatable request")
	// ErrForbidden is returned when the principal may not read the grid.
	ErrForbidden = errors.New("datatable forbidden")
	// ErrUnknownTable is returned for grids that are not registered.
	ErrUnknownTable = errors.New("unknown datatable")
)

const (
	DefaultLength = 10
	MaxLength     = 1000
	maxColumns    = 100
)

// Request is a parsed grid request.
type Request struct {
	Draw    int
	Start   int
	Length  int // -1 returns every row
	Search  string
	Order   []Order
	Columns []ColumnRequest
	Filters map[string]string
}

// Order refers to a column of the request by index.
type Order struct {
	Column int
	Dir    string
}

// ColumnRequest is the client's view of one column.
type ColumnRequest struct {
	Data       string
	Name       string
	Searchable bool
	Orderable  bool
	Search     string
}

var (
	columnKey = regexp.MustCompile(`^columns\[(\d+)\]\[(\w+)\](?:\[(\w+)\])?$`)
	orderKey  = regexp.MustCompile(`^order\[(\d+)\]\[(\w+)\]$`)
)

// ParseRequest reads the DataTables query parameters. Keys outside the
// protocol are kept as named filters.
func ParseRequest(values url.Values) (Request, error) {
	req := Request{Length: DefaultLength, Filters: map[string]string{}}

	var err error
	if req.Draw, err = intParam(values, "draw", 0); err != nil {
		return Request{}, err
	}
	if req.Start, err = intParam(values, "start", 0); err != nil {
		return Request{}, err
	}
	if req.Length, err = intParam(values, "length", DefaultLength); err != nil {
		return Request{}, err
	}
	if req.Draw < 0 || req.Start < 0 {
		return Request{}, fmt.Errorf("%w: negative draw or start", ErrBadRequest)
	}
	switch {
	case req.Length == -1:
	case req.Length <= 0:
		req.Length = DefaultLength
	case req.Length > MaxLength:
		req.Length = MaxLength
	}
	req.Search = strings.TrimSpace(values.Get("search[value]"))

	columns := map[int]*ColumnRequest{}
	orders := map[int]*Order{}
	maxCol, maxOrder := -1, -1

	for key, vals := range values {
		val := ""
		if len(vals) > 0 {
			val = vals[0]
		}
		switch {
		case key == "draw" || key == "start" || key == "length" || key == "_" ||
			strings.HasPrefix(key, "search["):
		case columnKey.MatchString(key):
			m := columnKey.FindStringSubmatch(key)
			idx, _ := strconv.Atoi(m[1])
			if idx >= maxColumns {
				return Request{}, fmt.Errorf("%w: column index %d out of range", ErrBadRequest, idx)
			}
			c, ok := columns[idx]
			if !ok {
				c = &ColumnRequest{Searchable: true, Orderable: true}
				columns[idx] = c
			}
			maxCol = max(maxCol, idx)
			switch m[2] {
			case "data":
				c.Data = val
			case "name":
				c.Name = val
			case "searchable":
				c.Searchable = val != "false"
			case "orderable":
				c.Orderable = val != "false"
			case "search":
				if m[3] == "value" {
					c.Search = strings.TrimSpace(val)
				}
			}
		case orderKey.MatchString(key):
			m := orderKey.FindStringSubmatch(key)
			idx, _ := strconv.Atoi(m[1])
			if idx >= maxColumns {
				return Request{}, fmt.Errorf("%w: order index %d out of range", ErrBadRequest, idx)
			}
			o, ok := orders[idx]
			if !ok {
				o = &Order{Column: -1}
				orders[idx] = o
			}
			maxOrder = max(maxOrder, idx)
			switch m[2] {
			case "column":
				n, err := strconv.Atoi(val)
				if err != nil || n < 0 {
					return Request{}, fmt.Errorf("%w: order column %q", ErrBadRequest, val)
				}
				o.Column = n
			case "dir":
				o.Dir = strings.ToLower(val)
			}
		case strings.HasPrefix(key, "columns[") || strings.HasPrefix(key, "order["):
			return Request{}, fmt.Errorf("%w: malformed key %q", ErrBadRequest, key)
		default:
			if v := strings.TrimSpace(val); v != "" {
				req.Filters[key] = v
			}
		}
	}

	req.Columns = make([]ColumnRequest, maxCol+1)
	for i, c := range columns {
		req.Columns[i] = *c
	}
	for i := 0; i <= maxOrder; i++ {
		if o, ok := orders[i]; ok && o.Column >= 0 {
			req.Order = append(req.Order, *o)
		}
	}
	return req, nil
}

func intParam(values url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, key)
	}
	return n, nil
}

// Response is the DataTables reply.
type Response struct {
	Draw            int    `json:"draw"`
	RecordsTotal    int64  `json:"recordsTotal"`
	RecordsFiltered int64  `json:"recordsFiltered"`
	Data            []Row  `json:"data"`
	Error           string `json:"error,omitempty"`
}
