package queryengine

import (
	"fmt"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/finsight-ai/finsight/store"
)

// Predicate is a boolean test over a single record.
type Predicate func(record store.Record) (bool, error)

// newPredicateEnv builds the restricted CEL environment predicates compile
// in. It exposes exactly two variables — the record bound under each
// accepted parameter name — and the two date-derivation functions. Nothing
// else is reachable from a predicate, which is what makes backend-supplied
// expressions safe to run.
func newPredicateEnv() (*cel.Env, error) {
	return cel.NewEnv(
		// Model answers mix integer literals with float amounts freely.
		cel.CrossTypeNumericComparisons(true),
		cel.Variable("expense", cel.DynType),
		cel.Variable("investment", cel.DynType),
		cel.Function("month",
			cel.Overload("month_string", []*cel.Type{cel.StringType}, cel.IntType,
				cel.UnaryBinding(func(val ref.Val) ref.Val {
					return types.Int(datePart(val, func(t time.Time) int { return int(t.Month()) }))
				}))),
		cel.Function("year",
			cel.Overload("year_string", []*cel.Type{cel.StringType}, cel.IntType,
				cel.UnaryBinding(func(val ref.Val) ref.Val {
					return types.Int(datePart(val, func(t time.Time) int { return t.Year() }))
				}))),
	)
}

func datePart(val ref.Val, part func(time.Time) int) int64 {
	s, ok := val.Value().(string)
	if !ok {
		return 0
	}
	t, ok := parseDate(s)
	if !ok {
		return 0
	}
	return int64(part(t))
}

// dateFormats are tried in order when deriving month/year or group keys.
var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// compilePredicate turns a validated filter expression into a Predicate.
// An empty expression matches every record. The record is bound under both
// parameter names so an expense-style predicate still runs against the
// investments collection and vice versa; the name is just a name.
func compilePredicate(env *cel.Env, expression string) (Predicate, error) {
	if expression == "" {
		return func(store.Record) (bool, error) { return true, nil }, nil
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("filter expression must be boolean, got %s", out)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to plan filter expression: %w", err)
	}

	return func(record store.Record) (bool, error) {
		out, _, err := prg.Eval(map[string]any{
			"expense":    map[string]any(record),
			"investment": map[string]any(record),
		})
		if err != nil {
			return false, err
		}
		matched, ok := out.Value().(bool)
		if !ok {
			return false, fmt.Errorf("filter expression produced %T, want bool", out.Value())
		}
		return matched, nil
	}, nil
}
