package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/cognicore/diary/pkg/diary/analysis"
	"github.com/cognicore/diary/pkg/diary/internalerr"
	"github.com/cognicore/diary/pkg/diary/store"
)

// sqliteStore implements store.Store on a single SQLite file.
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path with WAL mode
// and a busy timeout. Writes go through one connection, which keeps the
// read-modify-write learning updates serialized.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", internalerr.ErrStoreUnavailable, path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", internalerr.ErrStoreUnavailable, path, err)
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS entries (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	content TEXT NOT NULL,
	analysis TEXT,
	sub_category TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_user_created ON entries(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_entries_user_sub ON entries(user_id, sub_category);

CREATE TABLE IF NOT EXISTS learning_records (
	user_id TEXT PRIMARY KEY,
	last_updated INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS learning_corrections (
	user_id TEXT NOT NULL,
	from_sub TEXT NOT NULL,
	to_sub TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY(user_id, from_sub, to_sub),
	FOREIGN KEY(user_id) REFERENCES learning_records(user_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS learning_keywords (
	user_id TEXT NOT NULL,
	sub TEXT NOT NULL,
	keyword TEXT NOT NULL,
	PRIMARY KEY(user_id, sub, keyword),
	FOREIGN KEY(user_id) REFERENCES learning_records(user_id) ON DELETE CASCADE
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *sqliteStore) CreateEntry(ctx context.Context, e store.Entry) (store.Entry, error) {
	if e.UserID == "" {
		return store.Entry{}, fmt.Errorf("%w: entry without user", internalerr.ErrInvalidInput)
	}
	e.ID = ulid.Make().String()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.UpdatedAt = e.CreatedAt

	blob, sub, err := encodeAnalysis(e.Analysis)
	if err != nil {
		return store.Entry{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (id, user_id, content, analysis, sub_category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Content, blob, sub, e.CreatedAt.UnixNano(), e.UpdatedAt.UnixNano())
	if err != nil {
		return store.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	return e, nil
}

func (s *sqliteStore) GetEntry(ctx context.Context, id string) (store.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, content, analysis, created_at, updated_at
		FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Entry{}, fmt.Errorf("entry %s: %w", id, internalerr.ErrNotFound)
	}
	return e, err
}

func (s *sqliteStore) ListRecent(ctx context.Context, userID string, limit int) ([]store.Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, content, analysis, created_at, updated_at
		FROM entries WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	out := make([]store.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *sqliteStore) DeleteEntries(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM entries WHERE user_id = ? AND id IN ("+placeholders+")", args...)
	if err != nil {
		return 0, fmt.Errorf("delete entries: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *sqliteStore) DeleteUserEntries(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear entries of %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *sqliteStore) UpdateEntry(ctx context.Context, id string, u store.EntryUpdate) (store.Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Entry{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, user_id, content, analysis, created_at, updated_at
		FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Entry{}, fmt.Errorf("entry %s: %w", id, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.Entry{}, err
	}

	if u.Content != nil {
		e.Content = *u.Content
	}
	if u.Analysis != nil {
		a := u.Analysis.Clone()
		e.Analysis = &a
	}
	e.UpdatedAt = time.Now().UTC()

	blob, sub, err := encodeAnalysis(e.Analysis)
	if err != nil {
		return store.Entry{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE entries SET content = ?, analysis = ?, sub_category = ?, updated_at = ?
		WHERE id = ?`, e.Content, blob, sub, e.UpdatedAt.UnixNano(), id); err != nil {
		return store.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	return e, tx.Commit()
}

func (s *sqliteStore) CountByCategory(ctx context.Context, userID, sub string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE user_id = ? AND sub_category = ?`, userID, sub).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func (s *sqliteStore) GetLearning(ctx context.Context, userID string) (store.LearningRecord, error) {
	var last int64
	err := s.db.QueryRowContext(ctx,
		`SELECT last_updated FROM learning_records WHERE user_id = ?`, userID).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return store.LearningRecord{}, fmt.Errorf("learning %s: %w", userID, internalerr.ErrNotFound)
	}
	if err != nil {
		return store.LearningRecord{}, fmt.Errorf("get learning: %w", err)
	}
	rec := store.NewLearningRecord(userID, time.Unix(0, last).UTC())

	rows, err := s.db.QueryContext(ctx, `
		SELECT from_sub, to_sub, count FROM learning_corrections
		WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return store.LearningRecord{}, fmt.Errorf("get corrections: %w", err)
	}
	for rows.Next() {
		var c store.Correction
		if err := rows.Scan(&c.From, &c.To, &c.Count); err != nil {
			rows.Close()
			return store.LearningRecord{}, err
		}
		rec.Corrections = append(rec.Corrections, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return store.LearningRecord{}, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT sub, keyword FROM learning_keywords
		WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return store.LearningRecord{}, fmt.Errorf("get keywords: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sub, kw string
		if err := rows.Scan(&sub, &kw); err != nil {
			return store.LearningRecord{}, err
		}
		rec.PreferredKeywords[sub] = append(rec.PreferredKeywords[sub], kw)
	}
	return rec, rows.Err()
}

func (s *sqliteStore) CreateLearning(ctx context.Context, rec store.LearningRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO learning_records (user_id, last_updated) VALUES (?, ?)
		ON CONFLICT(user_id) DO NOTHING`, rec.UserID, rec.LastUpdated.UnixNano())
	if err != nil {
		return fmt.Errorf("create learning: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("learning %s: %w", rec.UserID, internalerr.ErrDuplicate)
	}

	for _, c := range rec.Corrections {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO learning_corrections (user_id, from_sub, to_sub, count) VALUES (?, ?, ?, ?)`,
			rec.UserID, c.From, c.To, c.Count); err != nil {
			return fmt.Errorf("create learning corrections: %w", err)
		}
	}
	for sub, kws := range rec.PreferredKeywords {
		if err := insertKeywords(ctx, tx, rec.UserID, sub, kws); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) IncrementCorrection(ctx context.Context, userID, from, to string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := touchRecord(ctx, tx, userID, at); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO learning_corrections (user_id, from_sub, to_sub, count) VALUES (?, ?, ?, 1)
		ON CONFLICT(user_id, from_sub, to_sub) DO UPDATE SET count = count + 1`,
		userID, from, to); err != nil {
		return fmt.Errorf("increment correction: %w", err)
	}
	return tx.Commit()
}

func (s *sqliteStore) UnionKeywords(ctx context.Context, userID, sub string, keywords []string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := touchRecord(ctx, tx, userID, at); err != nil {
		return err
	}
	if err := insertKeywords(ctx, tx, userID, sub, keywords); err != nil {
		return err
	}
	return tx.Commit()
}

func touchRecord(ctx context.Context, tx *sql.Tx, userID string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO learning_records (user_id, last_updated) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET last_updated = excluded.last_updated`,
		userID, at.UnixNano())
	if err != nil {
		return fmt.Errorf("touch learning: %w", err)
	}
	return nil
}

func insertKeywords(ctx context.Context, tx *sql.Tx, userID, sub string, keywords []string) error {
	for _, kw := range keywords {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO learning_keywords (user_id, sub, keyword) VALUES (?, ?, ?)`,
			userID, sub, kw); err != nil {
			return fmt.Errorf("insert keyword: %w", err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (store.Entry, error) {
	var (
		e                store.Entry
		blob             sql.NullString
		created, updated int64
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Content, &blob, &created, &updated); err != nil {
		return store.Entry{}, err
	}
	e.CreatedAt = time.Unix(0, created).UTC()
	e.UpdatedAt = time.Unix(0, updated).UTC()
	if blob.Valid && blob.String != "" {
		var a analysis.Result
		if err := json.Unmarshal([]byte(blob.String), &a); err != nil {
			return store.Entry{}, fmt.Errorf("decode analysis of %s: %w", e.ID, err)
		}
		e.Analysis = &a
	}
	return e, nil
}

func encodeAnalysis(a *analysis.Result) (sql.NullString, sql.NullString, error) {
	if a == nil {
		return sql.NullString{}, sql.NullString{}, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return sql.NullString{}, sql.NullString{}, fmt.Errorf("encode analysis: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true},
		sql.NullString{String: string(a.SubCategory), Valid: true}, nil
}
