package store

import (
	"context"
	"time"

	"github.com/cognicore/diary/pkg/diary/analysis"
)

// Store is the document store behind entries and learning records.
type Store interface {
	Entries
	LearningRecords
	Close() error
}

// Entries persists journal entries.
type Entries interface {
	// CreateEntry assigns an ID and timestamps and returns the stored entry.
	CreateEntry(ctx context.Context, e Entry) (Entry, error)
	// GetEntry returns internalerr.ErrNotFound for an unknown id.
	GetEntry(ctx context.Context, id string) (Entry, error)
	// ListRecent returns a user's entries newest first.
	ListRecent(ctx context.Context, userID string, limit int) ([]Entry, error)
	// DeleteEntries removes those of ids that belong to userID and reports
	// how many were removed. Other users' entries are left alone.
	DeleteEntries(ctx context.Context, userID string, ids []string) (int, error)
	// DeleteUserEntries removes every entry of userID.
	DeleteUserEntries(ctx context.Context, userID string) (int, error)
	// UpdateEntry applies the non-nil fields of u.
	UpdateEntry(ctx context.Context, id string, u EntryUpdate) (Entry, error)
	// CountByCategory counts a user's entries whose analysis has sub.
	CountByCategory(ctx context.Context, userID, sub string) (int, error)
}

// LearningRecords persists per-user learning state. Increment and union are
// atomic per record so concurrent corrections never lose updates.
type LearningRecords interface {
	// GetLearning returns internalerr.ErrNotFound when the user has no record.
	GetLearning(ctx context.Context, userID string) (LearningRecord, error)
	// CreateLearning stores rec, or returns internalerr.ErrDuplicate when a
	// record for rec.UserID already exists.
	CreateLearning(ctx context.Context, rec LearningRecord) error
	// IncrementCorrection adds one to the (from, to) counter, creating the
	// record and the counter as needed.
	IncrementCorrection(ctx context.Context, userID, from, to string, at time.Time) error
	// UnionKeywords adds keywords to the preferred set of sub, creating the
	// record as needed. Existing members are not duplicated.
	UnionKeywords(ctx context.Context, userID, sub string, keywords []string, at time.Time) error
}

// Entry is one journal text and its analysis.
type Entry struct {
	ID        string           `json:"id" bson:"_id"`
	UserID    string           `json:"userId" bson:"userId"`
	Content   string           `json:"content" bson:"content"`
	Analysis  *analysis.Result `json:"analysis,omitempty" bson:"analysis,omitempty"`
	CreatedAt time.Time        `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt" bson:"updatedAt"`
}

// EntryUpdate carries a partial entry update. Nil fields are left alone.
type EntryUpdate struct {
	Content  *string
	Analysis *analysis.Result
}

// LearningRecord is the per-user preference state.
type LearningRecord struct {
	UserID string `json:"userId"`
	// Corrections are ordered by when each pair was first recorded.
	Corrections []Correction `json:"corrections"`
	// PreferredKeywords maps a subcategory to a duplicate-free keyword list
	// in insertion order.
	PreferredKeywords map[string][]string `json:"preferredKeywords"`
	LastUpdated       time.Time           `json:"lastUpdated"`
}

// Correction counts how often a user moved an entry from one subcategory
// to another.
type Correction struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// NewLearningRecord returns an empty record for userID.
func NewLearningRecord(userID string, at time.Time) LearningRecord {
	return LearningRecord{
		UserID:            userID,
		Corrections:       []Correction{},
		PreferredKeywords: map[string][]string{},
		LastUpdated:       at,
	}
}

// Empty reports whether rec carries no corrections and no keywords.
func (rec LearningRecord) Empty() bool {
	if len(rec.Corrections) > 0 {
		return false
	}
	for _, kws := range rec.PreferredKeywords {
		if len(kws) > 0 {
			return false
		}
	}
	return true
}

// CorrectionCount returns the counter for (from, to), or 0.
func (rec LearningRecord) CorrectionCount(from, to string) int {
	for _, c := range rec.Corrections {
		if c.From == from && c.To == to {
			return c.Count
		}
	}
	return 0
}

// Clone deep-copies rec.
func (rec LearningRecord) Clone() LearningRecord {
	out := rec
	out.Corrections = append([]Correction{}, rec.Corrections...)
	out.PreferredKeywords = make(map[string][]string, len(rec.PreferredKeywords))
	for k, v := range rec.PreferredKeywords {
		out.PreferredKeywords[k] = append([]string{}, v...)
	}
	return out
}

// UnionStrings appends the members of add missing from base, keeping order.
func UnionStrings(base, add []string) []string {
	seen := make(map[string]struct{}, len(base)+len(add))
	out := make([]string, 0, len(base)+len(add))
	for _, s := range base {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, s := range add {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
