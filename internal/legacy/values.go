package legacy

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"02-Jan-06",
	"02-Jan-2006",
}

// CleanValue converts a raw CSV value for a column type. Empty and unparsable values
// yield nil so they load as NULL.
func CleanValue(t ColumnType, raw string) any {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	switch t {
	case TypeDecimal:
		d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", ""))
		if err != nil {
			return nil
		}
		return d
	case TypeInt:
		d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", ""))
		if err != nil {
			return nil
		}
		n := d.Truncate(0).BigInt()
		if !n.IsInt64() {
			return nil
		}
		return n.Int64()
	case TypeDate:
		if i := strings.IndexByte(v, ' '); i > 0 {
			v = v[:i]
		}
		if ts, ok := parseDate(v); ok {
			return ts
		}
		return nil
	case TypeTimestamp:
		if ts, ok := parseDate(v); ok {
			return ts
		}
		return nil
	}
	return v
}

func parseDate(v string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
