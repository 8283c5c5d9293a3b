package store

import (
	"fmt"
	"time"
)

// Row is an ordered record: column names in query output order alongside
// their values. Ordering matters because the table channel renders columns
// exactly as the query produced them.
type Row struct {
	Columns []string
	Values  []interface{}
}

// Get returns the value for a column name, or nil when absent.
func (r Row) Get(column string) interface{} {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i]
		}
	}
	return nil
}

// CellString renders a single value for display. Nil becomes the "-"
// sentinel; dates render as DD/MM/YYYY to match the source data.
func CellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		if val == "" {
			return "-"
		}
		return val
	case time.Time:
		return val.Format("02/01/2006")
	case []byte:
		return string(val)
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%.2f", val)
	case float32:
		return CellString(float64(val))
	default:
		return fmt.Sprintf("%v", val)
	}
}
