package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDriver keeps records in memory and counts reads so caching is
// observable.
type fakeDriver struct {
	records map[string][]Record
	lists   int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{records: make(map[string][]Record)}
}

func (f *fakeDriver) Migrate(context.Context) error { return nil }
func (f *fakeDriver) Close() error                  { return nil }

func (f *fakeDriver) ListRecords(_ context.Context, collection string) ([]Record, error) {
	f.lists++
	return f.records[collection], nil
}

func (f *fakeDriver) InsertRecord(_ context.Context, collection string, record Record) error {
	f.records[collection] = append(f.records[collection], record)
	return nil
}

func TestSnapshot_CachesUntilWrite(t *testing.T) {
	driver := newFakeDriver()
	s := New(driver, nil)
	ctx := context.Background()

	require.NoError(t, s.InsertRecord(ctx, CollectionExpenses, Record{"category": "A"}))

	first, err := s.Snapshot(ctx, CollectionExpenses)
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = s.Snapshot(ctx, CollectionExpenses)
	require.NoError(t, err)
	assert.Equal(t, 1, driver.lists, "second read must be served from cache")

	require.NoError(t, s.InsertRecord(ctx, CollectionExpenses, Record{"category": "B"}))

	second, err := s.Snapshot(ctx, CollectionExpenses)
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.Equal(t, 2, driver.lists, "write must invalidate the cached snapshot")
}

func TestInvalidate_DropsAllSnapshots(t *testing.T) {
	driver := newFakeDriver()
	s := New(driver, nil)
	ctx := context.Background()

	_, err := s.Snapshot(ctx, CollectionExpenses)
	require.NoError(t, err)
	_, err = s.Snapshot(ctx, CollectionInvestments)
	require.NoError(t, err)
	require.Equal(t, 2, driver.lists)

	s.Invalidate()

	_, err = s.Snapshot(ctx, CollectionExpenses)
	require.NoError(t, err)
	assert.Equal(t, 3, driver.lists)
}

func TestImportJSON(t *testing.T) {
	seed := map[string]any{
		"expenses": []map[string]any{
			{"category": "Groceries", "amount": 5000, "date": "2024-11-05"},
			{"category": "Travel", "amount": 12000, "date": "2024-11-20"},
		},
		"investments": []map[string]any{
			{"type": "SIP", "name": "Index Fund", "amount": 2000, "startDate": "2023-06-01"},
		},
	}
	data, err := json.Marshal(seed)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	driver := newFakeDriver()
	s := New(driver, nil)
	require.NoError(t, s.ImportJSON(context.Background(), path))

	expenses, err := s.Snapshot(context.Background(), CollectionExpenses)
	require.NoError(t, err)
	assert.Len(t, expenses, 2)

	investments, err := s.Snapshot(context.Background(), CollectionInvestments)
	require.NoError(t, err)
	require.Len(t, investments, 1)
	assert.Equal(t, "SIP", investments[0].String("type"))
}

func TestImportJSON_MissingFile(t *testing.T) {
	s := New(newFakeDriver(), nil)
	err := s.ImportJSON(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestRecordHelpers(t *testing.T) {
	r := Record{
		"amount":    float64(12.5),
		"count":     int64(3),
		"text":      "42",
		"category":  "Groceries",
		"truth":     true,
		"goalYears": 10,
	}

	n, ok := r.Number("amount")
	require.True(t, ok)
	assert.Equal(t, 12.5, n)

	n, ok = r.Number("count")
	require.True(t, ok)
	assert.Equal(t, float64(3), n)

	n, ok = r.Number("text")
	require.True(t, ok)
	assert.Equal(t, float64(42), n)

	n, ok = r.Number("goalYears")
	require.True(t, ok)
	assert.Equal(t, float64(10), n)

	_, ok = r.Number("category")
	assert.False(t, ok)
	_, ok = r.Number("missing")
	assert.False(t, ok)

	assert.Equal(t, "Groceries", r.String("category"))
	assert.Equal(t, "12.5", r.String("amount"))
	assert.Equal(t, "", r.String("missing"))
}

func TestDateAndAmountFields(t *testing.T) {
	assert.Equal(t, "date", DateField(CollectionExpenses))
	assert.Equal(t, "startDate", DateField(CollectionInvestments))
	assert.Equal(t, "amount", AmountField(CollectionExpenses))
	assert.Equal(t, "amount", AmountField(CollectionInvestments))
}
