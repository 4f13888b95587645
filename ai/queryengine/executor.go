package queryengine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"

	"github.com/finsight-ai/finsight/ai/session"
	"github.com/finsight-ai/finsight/store"
)

// DataProvider supplies the read-only collection snapshot a query runs over.
type DataProvider interface {
	Snapshot(ctx context.Context, collection string) ([]store.Record, error)
}

// Engine compiles validated predicates and executes structured queries.
// Execution is synchronous and single-pass; the snapshot is never written.
type Engine struct {
	data   DataProvider
	env    *cel.Env
	logger *slog.Logger
}

// NewEngine creates a query engine over a dataset provider.
func NewEngine(data DataProvider) (*Engine, error) {
	env, err := newPredicateEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to build predicate environment: %w", err)
	}
	return &Engine{data: data, env: env, logger: slog.Default()}, nil
}

// Execute runs one structured query. It never returns a Go error: every
// failure mode — unsupported mode, unsafe or uncompilable predicate, missing
// aggregation field — comes back as a tagged failure.
func (e *Engine) Execute(ctx context.Context, query *QueryObject, mode session.Mode) *ExecResult {
	collection, ok := collectionForMode(mode)
	if !ok {
		return failure(fmt.Sprintf("unsupported mode %q", mode))
	}

	// The safety gate runs before any record is touched; a rejected
	// predicate is never compiled.
	if ok, pattern := Validate(query.FilterExpression); !ok {
		return failure(fmt.Sprintf("filter expression rejected: unsafe pattern %q", pattern))
	}

	predicate, err := compilePredicate(e.env, query.FilterExpression)
	if err != nil {
		return failure(err.Error())
	}

	records, err := e.data.Snapshot(ctx, collection)
	if err != nil {
		return failure(fmt.Sprintf("failed to load %s: %v", collection, err))
	}

	matches := make([]store.Record, 0, len(records))
	for _, record := range records {
		matched, err := predicate(record)
		if err != nil {
			// One bad record must not abort the whole query.
			e.logger.Debug("queryengine: predicate evaluation failed, treating record as non-matching",
				"collection", collection, "error", err)
			continue
		}
		if matched {
			matches = append(matches, record)
		}
	}

	result, err := e.aggregate(query, collection, matches)
	if err != nil {
		return failure(err.Error())
	}

	return &ExecResult{OK: true, Result: result, Explanation: query.Explanation}
}

func collectionForMode(mode session.Mode) (string, bool) {
	switch mode {
	case session.ModeExpenses:
		return store.CollectionExpenses, true
	case session.ModeInvestments:
		return store.CollectionInvestments, true
	default:
		return "", false
	}
}

// aggregate applies exactly one reduction branch over the matched records.
func (e *Engine) aggregate(query *QueryObject, collection string, matches []store.Record) (*QueryResult, error) {
	switch query.Aggregation {
	case AggregationSum:
		if query.AggregationField == "" {
			return nil, fmt.Errorf("sum aggregation requires aggregationField")
		}
		return &QueryResult{
			Type:  ResultSum,
			Value: sumField(matches, query.AggregationField),
			Count: len(matches),
		}, nil

	case AggregationCount:
		return &QueryResult{Type: ResultCount, Count: len(matches)}, nil

	case AggregationAverage:
		if query.AggregationField == "" {
			return nil, fmt.Errorf("average aggregation requires aggregationField")
		}
		var value float64
		if len(matches) > 0 {
			value = sumField(matches, query.AggregationField) / float64(len(matches))
		}
		return &QueryResult{Type: ResultAverage, Value: value, Count: len(matches)}, nil

	case AggregationGroup:
		if query.GroupBy == "" {
			return nil, fmt.Errorf("group aggregation requires groupBy")
		}
		groups := make(map[string]*GroupBucket)
		for _, record := range matches {
			key := groupKey(record, query.GroupBy, collection)
			bucket, ok := groups[key]
			if !ok {
				bucket = &GroupBucket{}
				groups[key] = bucket
			}
			bucket.Records = append(bucket.Records, record)
			bucket.Count++
			if query.AggregationField != "" {
				if n, ok := record.Number(query.AggregationField); ok {
					bucket.Sum += n
				}
			}
		}
		return &QueryResult{Type: ResultGroup, Groups: groups, Count: len(matches)}, nil

	default:
		return &QueryResult{Type: ResultRaw, Records: matches, Count: len(matches)}, nil
	}
}

// sumField sums the parsed numeric values of one field; unparsable values
// contribute zero.
func sumField(records []store.Record, field string) float64 {
	var total float64
	for _, record := range records {
		if n, ok := record.Number(field); ok {
			total += n
		}
	}
	return total
}

// groupKey derives the partition key for one record. The "month" and "year"
// pseudo-keys are computed from the collection's date field as YYYY-MM and
// YYYY; anything else uses the raw field value.
func groupKey(record store.Record, groupBy, collection string) string {
	switch groupBy {
	case "month", "year":
		raw := record.String(store.DateField(collection))
		t, ok := parseDate(raw)
		if !ok {
			return "unknown"
		}
		if groupBy == "month" {
			return t.Format("2006-01")
		}
		return t.Format("2006")
	default:
		return record.String(groupBy)
	}
}
