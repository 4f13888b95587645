// Package store provides read access to the locally held financial dataset.
package store

import (
	"context"
	"sync"

	"github.com/finsight-ai/finsight/internal/profile"
)

// Driver is the database access interface implemented per backend.
type Driver interface {
	Migrate(ctx context.Context) error
	ListRecords(ctx context.Context, collection string) ([]Record, error)
	InsertRecord(ctx context.Context, collection string, record Record) error
	Close() error
}

// Store provides dataset access with per-collection snapshot caching.
// The query flow only ever sees an immutable snapshot; writes go through
// InsertRecord and invalidate the cached snapshot for that collection.
type Store struct {
	profile *profile.Profile
	driver  Driver

	mu        sync.RWMutex
	snapshots map[string][]Record
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:    driver,
		profile:   profile,
		snapshots: make(map[string][]Record),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// Snapshot returns the records of a collection. The returned slice is shared
// between callers and must be treated as read-only.
func (s *Store) Snapshot(ctx context.Context, collection string) ([]Record, error) {
	s.mu.RLock()
	if records, ok := s.snapshots[collection]; ok {
		s.mu.RUnlock()
		return records, nil
	}
	s.mu.RUnlock()

	records, err := s.driver.ListRecords(ctx, collection)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.snapshots[collection] = records
	s.mu.Unlock()
	return records, nil
}

// InsertRecord adds a record to a collection and drops the cached snapshot.
func (s *Store) InsertRecord(ctx context.Context, collection string, record Record) error {
	if err := s.driver.InsertRecord(ctx, collection, record); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.snapshots, collection)
	s.mu.Unlock()
	return nil
}

// Invalidate drops all cached snapshots, forcing a reload on next access.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.snapshots = make(map[string][]Record)
	s.mu.Unlock()
}
