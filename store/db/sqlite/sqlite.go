package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/finsight-ai/finsight/internal/profile"
	"github.com/finsight-ai/finsight/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database backing the financial dataset.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	// Ensure a DSN is set before attempting to open the database.
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// Connect to the database with some sane settings:
	// - No foreign key constraints: explicit to prevent surprises on SQLite upgrades.
	// - Journal mode set to WAL: recommended journal mode as it prevents locking issues.
	//
	// Note: when using the `modernc.org/sqlite` driver, each pragma must be
	// prefixed with `_pragma=`.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// Single connection is optimal for SQLite with WAL; the dataset is local
	// and single-user.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	driver := DB{db: sqliteDB, profile: profile}

	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS expenses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	category TEXT NOT NULL DEFAULT '',
	amount REAL NOT NULL DEFAULT 0,
	date TEXT NOT NULL DEFAULT '',
	note TEXT NOT NULL DEFAULT '',
	payment_method TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS investments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	amount REAL NOT NULL DEFAULT 0,
	start_date TEXT NOT NULL DEFAULT '',
	goal_years INTEGER NOT NULL DEFAULT 0,
	expected_return REAL NOT NULL DEFAULT 0
);
`

// Migrate creates the dataset tables when they do not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to migrate sqlite schema")
	}
	return nil
}

// ListRecords loads all records of a collection as field-value maps keyed by
// the camelCase field names the query engine exposes to predicates.
func (d *DB) ListRecords(ctx context.Context, collection string) ([]store.Record, error) {
	switch collection {
	case store.CollectionExpenses:
		return d.listExpenses(ctx)
	case store.CollectionInvestments:
		return d.listInvestments(ctx)
	default:
		return nil, errors.Errorf("unknown collection %q", collection)
	}
}

func (d *DB) listExpenses(ctx context.Context) ([]store.Record, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, category, amount, date, note, payment_method
		FROM expenses
		ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query expenses")
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		var (
			id            int64
			category      string
			amount        float64
			date          string
			note          string
			paymentMethod string
		)
		if err := rows.Scan(&id, &category, &amount, &date, &note, &paymentMethod); err != nil {
			return nil, errors.Wrap(err, "failed to scan expense row")
		}
		records = append(records, store.Record{
			"id":            id,
			"category":      category,
			"amount":        amount,
			"date":          date,
			"note":          note,
			"paymentMethod": paymentMethod,
		})
	}
	return records, rows.Err()
}

func (d *DB) listInvestments(ctx context.Context) ([]store.Record, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, type, name, amount, start_date, goal_years, expected_return
		FROM investments
		ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query investments")
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		var (
			id             int64
			typ            string
			name           string
			amount         float64
			startDate      string
			goalYears      int64
			expectedReturn float64
		)
		if err := rows.Scan(&id, &typ, &name, &amount, &startDate, &goalYears, &expectedReturn); err != nil {
			return nil, errors.Wrap(err, "failed to scan investment row")
		}
		records = append(records, store.Record{
			"id":             id,
			"type":           typ,
			"name":           name,
			"amount":         amount,
			"startDate":      startDate,
			"goalYears":      goalYears,
			"expectedReturn": expectedReturn,
		})
	}
	return records, rows.Err()
}

// InsertRecord writes one record into a collection. Missing fields default to
// their zero value.
func (d *DB) InsertRecord(ctx context.Context, collection string, record store.Record) error {
	switch collection {
	case store.CollectionExpenses:
		amount, _ := record.Number("amount")
		_, err := d.db.ExecContext(ctx, `
			INSERT INTO expenses (category, amount, date, note, payment_method)
			VALUES (?, ?, ?, ?, ?)`,
			record.String("category"), amount, record.String("date"),
			record.String("note"), record.String("paymentMethod"))
		return errors.Wrap(err, "failed to insert expense")
	case store.CollectionInvestments:
		amount, _ := record.Number("amount")
		goalYears, _ := record.Number("goalYears")
		expectedReturn, _ := record.Number("expectedReturn")
		_, err := d.db.ExecContext(ctx, `
			INSERT INTO investments (type, name, amount, start_date, goal_years, expected_return)
			VALUES (?, ?, ?, ?, ?, ?)`,
			record.String("type"), record.String("name"), amount,
			record.String("startDate"), int64(goalYears), expectedReturn)
		return errors.Wrap(err, "failed to insert investment")
	default:
		return errors.Errorf("unknown collection %q", collection)
	}
}
