package datatable

import (
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one grid row keyed by column Data.
type Row map[string]any

// Float reads a numeric cell whatever type the driver produced.
func (r Row) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case uint:
		return float64(v)
	case uint64:
		return float64(v)
	case decimal.Decimal:
		f, _ := v.Float64()
		return f
	case []byte:
		f, _ := strconv.ParseFloat(string(v), 64)
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// Int reads an integer cell.
func (r Row) Int(key string) int64 {
	return int64(math.Round(r.Float(key)))
}

// Bool reads a flag stored as boolean or integer.
func (r Row) Bool(key string) bool {
	if b, ok := r[key].(bool); ok {
		return b
	}
	return r.Int(key) != 0
}

// String reads a text cell.
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return ""
	}
}

// Time reads a timestamp cell. SQLite may hand back text.
func (r Row) Time(key string) (time.Time, bool) {
	switch v := r[key].(type) {
	case time.Time:
		return v, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05", time.DateOnly} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// Round2 rounds to two decimals, the precision shown in grids.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func normalize(row Row) {
	for k, v := range row {
		switch t := v.(type) {
		case []byte:
			row[k] = string(t)
		case time.Time:
			row[k] = t.UTC().Format(time.RFC3339)
		}
	}
}
