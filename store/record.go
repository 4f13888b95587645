package store

import (
	"strconv"
	"strings"
)

// Collection names for the two dataset domains.
const (
	CollectionExpenses    = "expenses"
	CollectionInvestments = "investments"
)

// Record is a field-value map belonging to a named collection.
// Records are immutable during query flow; the query engine only ever reads
// a snapshot.
type Record map[string]any

// DateField returns the designated date field for a collection.
func DateField(collection string) string {
	if collection == CollectionInvestments {
		return "startDate"
	}
	return "date"
}

// AmountField returns the designated numeric amount field for a collection.
// Both collections currently use "amount".
func AmountField(collection string) string {
	return "amount"
}

// Number extracts a numeric field value, tolerating the representations a
// JSON decode or a database scan can produce. The second return reports
// whether the value was parsable.
func (r Record) Number(field string) (float64, bool) {
	return ToNumber(r[field])
}

// String extracts a field value as a string. Non-string scalars are
// formatted; missing fields yield "".
func (r Record) String(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// ToNumber converts a scalar of any supported representation to float64.
func ToNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
