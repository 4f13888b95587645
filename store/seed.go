package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/pkg/errors"
)

// seedFile is the JSON shape accepted by ImportJSON:
//
//	{"expenses": [{...}, ...], "investments": [{...}, ...]}
type seedFile struct {
	Expenses    []Record `json:"expenses"`
	Investments []Record `json:"investments"`
}

// ImportJSON loads records from a JSON seed file into the dataset.
// Intended for first-run imports; existing rows are kept.
func (s *Store) ImportJSON(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read seed file %s", path)
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrapf(err, "failed to parse seed file %s", path)
	}

	for _, rec := range seed.Expenses {
		if err := s.InsertRecord(ctx, CollectionExpenses, rec); err != nil {
			return err
		}
	}
	for _, rec := range seed.Investments {
		if err := s.InsertRecord(ctx, CollectionInvestments, rec); err != nil {
			return err
		}
	}

	slog.Info("imported dataset seed",
		"path", path,
		"expenses", len(seed.Expenses),
		"investments", len(seed.Investments),
	)
	return nil
}
