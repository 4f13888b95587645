package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/internal/profile"
	"github.com/finsight-ai/finsight/store"
)

func newTestDriver(t *testing.T) store.Driver {
	t.Helper()
	driver, err := NewDB(&profile.Profile{
		Mode:   "test",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "finsight_test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })
	require.NoError(t, driver.Migrate(context.Background()))
	return driver
}

func TestNewDB_RequiresDSN(t *testing.T) {
	_, err := NewDB(&profile.Profile{Mode: "test", Driver: "sqlite"})
	require.Error(t, err)
}

func TestExpensesRoundTrip(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	require.NoError(t, driver.InsertRecord(ctx, store.CollectionExpenses, store.Record{
		"category":      "Groceries",
		"amount":        float64(5000),
		"date":          "2024-11-05",
		"note":          "weekly run",
		"paymentMethod": "card",
	}))
	require.NoError(t, driver.InsertRecord(ctx, store.CollectionExpenses, store.Record{
		"category": "Travel",
		"amount":   float64(12000),
		"date":     "2024-11-20",
	}))

	records, err := driver.ListRecords(ctx, store.CollectionExpenses)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Groceries", records[0].String("category"))
	amount, ok := records[0].Number("amount")
	require.True(t, ok)
	assert.Equal(t, float64(5000), amount)
	assert.Equal(t, "card", records[0].String("paymentMethod"))

	// Missing fields come back as zero values, not NULLs.
	assert.Equal(t, "", records[1].String("note"))
	assert.Equal(t, "", records[1].String("paymentMethod"))
}

func TestInvestmentsRoundTrip(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	require.NoError(t, driver.InsertRecord(ctx, store.CollectionInvestments, store.Record{
		"type":           "SIP",
		"name":           "Index Fund",
		"amount":         float64(2000),
		"startDate":      "2023-06-01",
		"goalYears":      float64(10),
		"expectedReturn": float64(12.5),
	}))

	records, err := driver.ListRecords(ctx, store.CollectionInvestments)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "SIP", records[0].String("type"))
	assert.Equal(t, "2023-06-01", records[0].String("startDate"))
	goalYears, ok := records[0].Number("goalYears")
	require.True(t, ok)
	assert.Equal(t, float64(10), goalYears)
	expectedReturn, ok := records[0].Number("expectedReturn")
	require.True(t, ok)
	assert.Equal(t, float64(12.5), expectedReturn)
}

func TestUnknownCollection(t *testing.T) {
	driver := newTestDriver(t)
	ctx := context.Background()

	_, err := driver.ListRecords(ctx, "stocks")
	require.Error(t, err)

	err = driver.InsertRecord(ctx, "stocks", store.Record{})
	require.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	driver := newTestDriver(t)
	require.NoError(t, driver.Migrate(context.Background()))
}
