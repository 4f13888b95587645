package queryengine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/ai/session"
	"github.com/finsight-ai/finsight/store"
)

// memoryProvider serves fixed snapshots and counts accesses.
type memoryProvider struct {
	collections map[string][]store.Record
	err         error
	calls       int
}

func (m *memoryProvider) Snapshot(_ context.Context, collection string) ([]store.Record, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.collections[collection], nil
}

func expensesFixture() []store.Record {
	return []store.Record{
		{"category": "Groceries", "amount": float64(5000), "date": "2024-11-05"},
		{"category": "Travel", "amount": float64(12000), "date": "2024-11-20"},
	}
}

func newTestEngine(t *testing.T, collections map[string][]store.Record) (*Engine, *memoryProvider) {
	t.Helper()
	provider := &memoryProvider{collections: collections}
	engine, err := NewEngine(provider)
	require.NoError(t, err)
	return engine, provider
}

func TestExecute_SumScenario(t *testing.T) {
	engine, _ := newTestEngine(t, map[string][]store.Record{
		store.CollectionExpenses: expensesFixture(),
	})

	result := engine.Execute(context.Background(), &QueryObject{
		FilterExpression: "expense.category == 'Groceries'",
		Aggregation:      AggregationSum,
		AggregationField: "amount",
	}, session.ModeExpenses)

	require.True(t, result.OK, "unexpected failure: %s", result.Err)
	assert.Equal(t, ResultSum, result.Result.Type)
	assert.Equal(t, float64(5000), result.Result.Value)
	assert.Equal(t, 1, result.Result.Count)
}

func TestExecute_GroupScenario(t *testing.T) {
	engine, _ := newTestEngine(t, map[string][]store.Record{
		store.CollectionExpenses: expensesFixture(),
	})

	result := engine.Execute(context.Background(), &QueryObject{
		Aggregation:      AggregationGroup,
		GroupBy:          "category",
		AggregationField: "amount",
	}, session.ModeExpenses)

	require.True(t, result.OK, "unexpected failure: %s", result.Err)
	require.Equal(t, ResultGroup, result.Result.Type)
	groups := result.Result.Groups
	require.Len(t, groups, 2)

	require.Contains(t, groups, "Groceries")
	assert.Equal(t, 1, groups["Groceries"].Count)
	assert.Equal(t, float64(5000), groups["Groceries"].Sum)

	require.Contains(t, groups, "Travel")
	assert.Equal(t, 1, groups["Travel"].Count)
	assert.Equal(t, float64(12000), groups["Travel"].Sum)
}

func TestExecute_GroupByMonth(t *testing.T) {
	engine, _ := newTestEngine(t, map[string][]store.Record{
		store.CollectionExpenses: {
			{"category": "A", "amount": float64(10), "date": "2024-11-05"},
			{"category": "B", "amount": float64(20), "date": "2024-11-20"},
			{"category": "C", "amount": float64(30), "date": "2024-12-01"},
		},
	})

	result := engine.Execute(context.Background(), &QueryObject{
		Aggregation:      AggregationGroup,
		GroupBy:          "month",
		AggregationField: "amount",
	}, session.ModeExpenses)

	require.True(t, result.OK)
	groups := result.Result.Groups
	require.Len(t, groups, 2)
	assert.Equal(t, float64(30), groups["2024-11"].Sum)
	assert.Equal(t, 2, groups["2024-11"].Count)
	assert.Equal(t, float64(30), groups["2024-12"].Sum)
}

func TestExecute_GroupOnEmptyDataset(t *testing.T) {
	engine, _ := newTestEngine(t, map[string][]store.Record{})

	result := engine.Execute(context.Background(), &QueryObject{
		Aggregation: AggregationGroup,
		GroupBy:     "category",
	}, session.ModeExpenses)

	require.True(t, result.OK, "empty dataset must not raise: %s", result.Err)
	assert.Empty(t, result.Result.Groups)
	assert.Equal(t, 0, result.Result.Count)
}

func TestExecute_CountAndAverage(t *testing.T) {
	engine, _ := newTestEngine(t, map[string][]store.Record{
		store.CollectionExpenses: expensesFixture(),
	})

	count := engine.Execute(context.Background(), &QueryObject{
		Aggregation: AggregationCount,
	}, session.ModeExpenses)
	require.True(t, count.OK)
	assert.Equal(t, ResultCount, count.Result.Type)
	assert.Equal(t, 2, count.Result.Count)

	average := engine.Execute(context.Background(), &QueryObject{
		Aggregation:      AggregationAverage,
		AggregationField: "amount",
	}, session.ModeExpenses)
	require.True(t, average.OK)
	assert.Equal(t, float64(8500), average.Result.Value)

	// Average over zero matches is 0, not NaN.
	none := engine.Execute(context.Background(), &QueryObject{
		FilterExpression: "expense.amount > 1000000",
		Aggregation:      AggregationAverage,
		AggregationField: "amount",
	}, session.ModeExpenses)
	require.True(t, none.OK)
	assert.Equal(t, float64(0), none.Result.Value)
	assert.Equal(t, 0, none.Result.Count)
}

func TestExecute_NoneReturnsRawMatches(t *testing.T) {
	engine, _ := newTestEngine(t, map[string][]store.Record{
		store.CollectionExpenses: expensesFixture(),
	})

	result := engine.Execute(context.Background(), &QueryObject{
		FilterExpression: "expense.amount > 6000",
		Aggregation:      AggregationNone,
	}, session.ModeExpenses)

	require.True(t, result.OK)
	assert.Equal(t, ResultRaw, result.Result.Type)
	require.Len(t, result.Result.Records, 1)
	assert.Equal(t, "Travel", result.Result.Records[0].String("category"))
}

func TestExecute_UnsafePredicateNeverTouchesRecords(t *testing.T) {
	engine, provider := newTestEngine(t, map[string][]store.Record{
		store.CollectionExpenses: expensesFixture(),
	})

	result := engine.Execute(context.Background(), &QueryObject{
		FilterExpression: "globalThis.process.env.SECRET == 'x'",
		Aggregation:      AggregationCount,
	}, session.ModeExpenses)

	require.False(t, result.OK)
	assert.Contains(t, result.Err, "globalthis")
	assert.Equal(t, 0, provider.calls, "validation failure must short-circuit before any record is read")
}

func TestExecute_UnsupportedMode(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	result := engine.Execute(context.Background(), &QueryObject{
		Aggregation: AggregationCount,
	}, session.Mode("stocks"))

	require.False(t, result.OK)
	assert.Contains(t, result.Err, "unsupported mode")
}

func TestExecute_BadRecordDoesNotAbortQuery(t *testing.T) {
	engine, _ := newTestEngine(t, map[string][]store.Record{
		store.CollectionExpenses: {
			{"category": "Groceries", "amount": float64(100), "date": "2024-01-01"},
			// note is absent here; the contains() call errors on this record.
			{"category": "Travel", "amount": float64(200), "date": "2024-01-02"},
			{"category": "Dining", "amount": float64(300), "date": "2024-01-03", "note": "team lunch"},
		},
	})

	result := engine.Execute(context.Background(), &QueryObject{
		FilterExpression: "expense.note.contains('lunch')",
		Aggregation:      AggregationCount,
	}, session.ModeExpenses)

	require.True(t, result.OK, "one bad record must not abort the query: %s", result.Err)
	assert.Equal(t, 1, result.Result.Count)
}

func TestExecute_InvalidExpressionIsTaggedFailure(t *testing.T) {
	engine, _ := newTestEngine(t, map[string][]store.Record{
		store.CollectionExpenses: expensesFixture(),
	})

	result := engine.Execute(context.Background(), &QueryObject{
		FilterExpression: "this is not an expression ((",
		Aggregation:      AggregationCount,
	}, session.ModeExpenses)

	require.False(t, result.OK)
	assert.NotEmpty(t, result.Err)
}

func TestExecute_SumRequiresAggregationField(t *testing.T) {
	engine, _ := newTestEngine(t, map[string][]store.Record{
		store.CollectionExpenses: expensesFixture(),
	})

	result := engine.Execute(context.Background(), &QueryObject{
		Aggregation: AggregationSum,
	}, session.ModeExpenses)

	require.False(t, result.OK)
	assert.Contains(t, result.Err, "aggregationField")
}

func TestExecute_SnapshotErrorIsTaggedFailure(t *testing.T) {
	provider := &memoryProvider{err: errors.New("disk on fire")}
	engine, err := NewEngine(provider)
	require.NoError(t, err)

	result := engine.Execute(context.Background(), &QueryObject{
		Aggregation: AggregationCount,
	}, session.ModeExpenses)

	require.False(t, result.OK)
	assert.Contains(t, result.Err, "disk on fire")
}

func TestExecute_Deterministic(t *testing.T) {
	engine, _ := newTestEngine(t, map[string][]store.Record{
		store.CollectionExpenses: expensesFixture(),
	})
	query := &QueryObject{
		FilterExpression: "expense.amount >= 5000.0",
		Aggregation:      AggregationSum,
		AggregationField: "amount",
	}

	first := engine.Execute(context.Background(), query, session.ModeExpenses)
	for i := 0; i < 5; i++ {
		again := engine.Execute(context.Background(), query, session.ModeExpenses)
		assert.Equal(t, first, again)
	}
}

func TestExecute_DateDerivedPredicate(t *testing.T) {
	engine, _ := newTestEngine(t, map[string][]store.Record{
		store.CollectionInvestments: {
			{"type": "SIP", "name": "Index Fund", "amount": float64(2000), "startDate": "2023-06-01", "goalYears": int64(10)},
			{"type": "FD", "name": "Bank FD", "amount": float64(50000), "startDate": "2024-02-15", "goalYears": int64(3)},
		},
	})

	result := engine.Execute(context.Background(), &QueryObject{
		FilterExpression: "year(investment.startDate) == 2024",
		Aggregation:      AggregationCount,
	}, session.ModeInvestments)

	require.True(t, result.OK, "failure: %s", result.Err)
	assert.Equal(t, 1, result.Result.Count)
}
