// Package queryengine turns a generative backend's freeform reply into a
// validated, deterministic data query and runs it against an in-memory
// dataset snapshot. Predicates are compiled with CEL against a restricted
// environment, never executed as code.
package queryengine

import (
	"strings"

	"github.com/finsight-ai/finsight/store"
)

// Aggregation is the post-filter reduction applied to matching records.
type Aggregation string

const (
	AggregationSum     Aggregation = "sum"
	AggregationCount   Aggregation = "count"
	AggregationAverage Aggregation = "average"
	AggregationGroup   Aggregation = "group"
	AggregationNone    Aggregation = "none"
)

// ParseAggregation normalizes a backend-supplied aggregation name. Anything
// outside the closed enum collapses to AggregationNone.
func ParseAggregation(s string) Aggregation {
	switch Aggregation(strings.ToLower(strings.TrimSpace(s))) {
	case AggregationSum:
		return AggregationSum
	case AggregationCount:
		return AggregationCount
	case AggregationAverage:
		return AggregationAverage
	case AggregationGroup:
		return AggregationGroup
	default:
		return AggregationNone
	}
}

// QueryObject is the structured query description extracted from a backend
// reply. It is produced by the parser and corrector, consumed once by the
// executor, and never persisted.
type QueryObject struct {
	Operation        string      `json:"operation"`
	FilterExpression string      `json:"filterExpression"`
	Aggregation      Aggregation `json:"aggregation"`
	AggregationField string      `json:"aggregationField"`
	GroupBy          string      `json:"groupBy"`
	Explanation      string      `json:"explanation"`
}

// ResultType tags the variant carried by a QueryResult.
type ResultType string

const (
	ResultSum     ResultType = "sum"
	ResultCount   ResultType = "count"
	ResultAverage ResultType = "average"
	ResultGroup   ResultType = "group"
	ResultRaw     ResultType = "raw"
)

// GroupBucket accumulates one partition of a group aggregation.
type GroupBucket struct {
	Records []store.Record `json:"records"`
	Count   int            `json:"count"`
	Sum     float64        `json:"sum"`
}

// QueryResult is the tagged union of aggregation outcomes. Count always
// carries the number of matched records.
type QueryResult struct {
	Type    ResultType              `json:"type"`
	Value   float64                 `json:"value,omitempty"`
	Count   int                     `json:"count"`
	Groups  map[string]*GroupBucket `json:"groups,omitempty"`
	Records []store.Record          `json:"records,omitempty"`
}

// ExecResult is the executor's tagged outcome. The executor never returns a
// Go error; failures are carried here so one malformed query cannot take
// down the caller.
type ExecResult struct {
	OK          bool         `json:"ok"`
	Result      *QueryResult `json:"result,omitempty"`
	Explanation string       `json:"explanation,omitempty"`
	Err         string       `json:"error,omitempty"`
}

func failure(message string) *ExecResult {
	return &ExecResult{OK: false, Err: message}
}
