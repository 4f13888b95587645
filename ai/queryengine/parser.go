package queryengine

import (
	"encoding/json"
	"strings"
)

// rawQuery mirrors the JSON the structured-query contract asks backends to
// emit. Backends are inconsistent about the filter key, so both spellings
// are accepted.
type rawQuery struct {
	Operation        string `json:"operation"`
	Filter           string `json:"filter"`
	FilterExpression string `json:"filterExpression"`
	Aggregation      string `json:"aggregation"`
	AggregationField string `json:"aggregationField"`
	GroupBy          string `json:"groupBy"`
	Explanation      string `json:"explanation"`
}

// ParseQuery extracts a structured query description from a backend's raw
// text reply. It scans for balanced object spans with a bracket-depth-aware
// walk (backend prose around or between unrelated brace spans is tolerated)
// and decodes the first span that parses as an object. Returns nil, false
// when no query can be derived.
func ParseQuery(raw string) (*QueryObject, bool) {
	for start := 0; start < len(raw); {
		open := strings.IndexByte(raw[start:], '{')
		if open < 0 {
			return nil, false
		}
		open += start

		span, end := balancedSpan(raw, open)
		if span == "" {
			// Unbalanced tail; nothing after this point can close.
			return nil, false
		}

		var rq rawQuery
		if err := json.Unmarshal([]byte(span), &rq); err == nil {
			return buildQueryObject(&rq), true
		}

		start = end
	}
	return nil, false
}

// balancedSpan returns the balanced {...} span starting at open, honoring
// JSON string literals and escapes, plus the index just past the closing
// brace. Returns "" when the span never closes.
func balancedSpan(s string, open int) (string, int) {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[open : i+1], i + 1
			}
		}
	}
	return "", len(s)
}

func buildQueryObject(rq *rawQuery) *QueryObject {
	filter := rq.FilterExpression
	if filter == "" {
		filter = rq.Filter
	}
	return &QueryObject{
		Operation:        rq.Operation,
		FilterExpression: Correct(filter),
		Aggregation:      ParseAggregation(rq.Aggregation),
		AggregationField: strings.TrimSpace(rq.AggregationField),
		GroupBy:          strings.TrimSpace(rq.GroupBy),
		Explanation:      rq.Explanation,
	}
}
