package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/diary/pkg/diary/internalerr"
	"github.com/cognicore/diary/pkg/diary/store"
)

var _ store.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store for tests and
// throwaway sessions.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]store.Entry
	learning map[string]store.LearningRecord
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		entries:  make(map[string]store.Entry),
		learning: make(map[string]store.LearningRecord),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// CreateEntry implements store.Entries.
func (s *Store) CreateEntry(ctx context.Context, e store.Entry) (store.Entry, error) {
	if e.UserID == "" {
		return store.Entry{}, fmt.Errorf("%w: entry without user", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = ulid.Make().String()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.UpdatedAt = e.CreatedAt
	s.entries[e.ID] = copyEntry(e)
	return copyEntry(e), nil
}

// GetEntry implements store.Entries.
func (s *Store) GetEntry(ctx context.Context, id string) (store.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return store.Entry{}, fmt.Errorf("entry %s: %w", id, internalerr.ErrNotFound)
	}
	return copyEntry(e), nil
}

// ListRecent implements store.Entries.
func (s *Store) ListRecent(ctx context.Context, userID string, limit int) ([]store.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Entry, 0)
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, copyEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteEntries implements store.Entries.
func (s *Store) DeleteEntries(ctx context.Context, userID string, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, id := range ids {
		if e, ok := s.entries[id]; ok && e.UserID == userID {
			delete(s.entries, id)
			n++
		}
	}
	return n, nil
}

// DeleteUserEntries implements store.Entries.
func (s *Store) DeleteUserEntries(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.entries {
		if e.UserID == userID {
			delete(s.entries, id)
			n++
		}
	}
	return n, nil
}

// UpdateEntry implements store.Entries.
func (s *Store) UpdateEntry(ctx context.Context, id string, u store.EntryUpdate) (store.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return store.Entry{}, fmt.Errorf("entry %s: %w", id, internalerr.ErrNotFound)
	}
	if u.Content != nil {
		e.Content = *u.Content
	}
	if u.Analysis != nil {
		a := u.Analysis.Clone()
		e.Analysis = &a
	}
	e.UpdatedAt = time.Now().UTC()
	s.entries[id] = e
	return copyEntry(e), nil
}

// CountByCategory implements store.Entries.
func (s *Store) CountByCategory(ctx context.Context, userID, sub string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.entries {
		if e.UserID == userID && e.Analysis != nil && string(e.Analysis.SubCategory) == sub {
			n++
		}
	}
	return n, nil
}

// GetLearning implements store.LearningRecords.
func (s *Store) GetLearning(ctx context.Context, userID string) (store.LearningRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.learning[userID]
	if !ok {
		return store.LearningRecord{}, fmt.Errorf("learning %s: %w", userID, internalerr.ErrNotFound)
	}
	return rec.Clone(), nil
}

// CreateLearning implements store.LearningRecords.
func (s *Store) CreateLearning(ctx context.Context, rec store.LearningRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.learning[rec.UserID]; ok {
		return fmt.Errorf("learning %s: %w", rec.UserID, internalerr.ErrDuplicate)
	}
	s.learning[rec.UserID] = normalized(rec)
	return nil
}

// IncrementCorrection implements store.LearningRecords.
func (s *Store) IncrementCorrection(ctx context.Context, userID, from, to string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.recordLocked(userID, at)
	found := false
	for i := range rec.Corrections {
		if rec.Corrections[i].From == from && rec.Corrections[i].To == to {
			rec.Corrections[i].Count++
			found = true
			break
		}
	}
	if !found {
		rec.Corrections = append(rec.Corrections, store.Correction{From: from, To: to, Count: 1})
	}
	rec.LastUpdated = at
	s.learning[userID] = rec
	return nil
}

// UnionKeywords implements store.LearningRecords.
func (s *Store) UnionKeywords(ctx context.Context, userID, sub string, keywords []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.recordLocked(userID, at)
	rec.PreferredKeywords[sub] = store.UnionStrings(rec.PreferredKeywords[sub], keywords)
	rec.LastUpdated = at
	s.learning[userID] = rec
	return nil
}

func (s *Store) recordLocked(userID string, at time.Time) store.LearningRecord {
	if rec, ok := s.learning[userID]; ok {
		return rec
	}
	return store.NewLearningRecord(userID, at)
}

func normalized(rec store.LearningRecord) store.LearningRecord {
	rec = rec.Clone()
	if rec.Corrections == nil {
		rec.Corrections = []store.Correction{}
	}
	return rec
}

func copyEntry(e store.Entry) store.Entry {
	if e.Analysis != nil {
		a := e.Analysis.Clone()
		e.Analysis = &a
	}
	return e
}
