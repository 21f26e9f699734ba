// Package diary analyzes journal entries. It asks a remote language model
// for a classification, checks and repairs what comes back, and falls back to
// a local heuristic whenever the remote path is missing or untrustworthy.
package diary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/diary/internal/llm"
	"github.com/cognicore/diary/pkg/diary/analysis"
	"github.com/cognicore/diary/pkg/diary/heuristic"
	"github.com/cognicore/diary/pkg/diary/internalerr"
	"github.com/cognicore/diary/pkg/diary/keywords"
	"github.com/cognicore/diary/pkg/diary/learning"
	"github.com/cognicore/diary/pkg/diary/store"
	"github.com/cognicore/diary/pkg/diary/taxonomy"
)

// Defaults applied by New for zero Options fields.
const (
	DefaultRemoteTimeout = 30 * time.Second
	DefaultHintTimeout   = 2 * time.Second
	DefaultRecentLimit   = 10
)

// Diary is the main analysis facade
type Diary struct {
	gen        llm.Generator
	params     llm.Params
	learning   *learning.Store
	entries    store.Entries
	normalizer *keywords.Normalizer
	fallback   *heuristic.Classifier

	remoteTimeout time.Duration
	hintTimeout   time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// Options configures a Diary. Only Entries is needed for the entry
// operations; every other field has a working default. A nil Generator
// selects fallback-only analysis.
type Options struct {
	Generator  llm.Generator
	Generation llm.Params
	Learning   *learning.Store
	Entries    store.Entries
	Normalizer *keywords.Normalizer
	Fallback   *heuristic.Classifier

	RemoteTimeout time.Duration
	HintTimeout   time.Duration
	Logger        *zap.Logger
	Now           func() time.Time
}

// New creates a Diary with the given dependencies
func New(opts Options) *Diary {
	d := &Diary{
		gen:           opts.Generator,
		params:        opts.Generation,
		learning:      opts.Learning,
		entries:       opts.Entries,
		normalizer:    opts.Normalizer,
		fallback:      opts.Fallback,
		remoteTimeout: opts.RemoteTimeout,
		hintTimeout:   opts.HintTimeout,
		logger:        opts.Logger,
		now:           opts.Now,
	}
	if d.normalizer == nil {
		d.normalizer = keywords.Default()
	}
	if d.fallback == nil {
		d.fallback = heuristic.Default()
	}
	if d.remoteTimeout <= 0 {
		d.remoteTimeout = DefaultRemoteTimeout
	}
	if d.hintTimeout <= 0 {
		d.hintTimeout = DefaultHintTimeout
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.now == nil {
		d.now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// Analyze classifies text for userID. It never fails: any problem on the
// remote path yields the heuristic result instead.
func (d *Diary) Analyze(ctx context.Context, text, userID string) analysis.Result {
	if d.gen == nil {
		return d.useFallback(text, "remote not configured", nil)
	}
	if strings.TrimSpace(text) == "" {
		return d.useFallback(text, "empty entry", nil)
	}

	hints := d.hints(ctx, userID)
	res, err := d.analyzeRemote(ctx, text, hints)
	if err != nil {
		return d.useFallback(text, "remote analysis rejected", err)
	}
	return res
}

func (d *Diary) analyzeRemote(ctx context.Context, text, hints string) (analysis.Result, error) {
	rctx, cancel := context.WithTimeout(ctx, d.remoteTimeout)
	defer cancel()

	raw, err := d.gen.Generate(rctx, llm.Request{
		Prompt: BuildPrompt(hints, text),
		Params: d.params,
	})
	if err != nil {
		return analysis.Result{}, err
	}
	d.logger.Debug("remote output", zap.String("raw", raw))

	payload, err := analysis.ParseRemote(raw)
	if err != nil {
		return analysis.Result{}, err
	}
	res, err := payload.Result()
	if err != nil {
		return analysis.Result{}, err
	}
	if payload.PrimaryMismatch() {
		d.logger.Warn("remote primary category repaired",
			zap.String("reported", *payload.PrimaryCategory),
			zap.String("sub", string(res.SubCategory)),
			zap.String("primary", string(res.PrimaryCategory)))
	}

	res.Keywords = capKeywords(d.normalizer.Normalize(res.Keywords))
	if !res.Valid() {
		return analysis.Result{}, fmt.Errorf("%w: result failed validation", internalerr.ErrMalformedResponse)
	}
	return res, nil
}

func (d *Diary) useFallback(text, reason string, err error) analysis.Result {
	fields := []zap.Field{zap.String("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Error(err))
		d.logger.Warn("falling back to heuristic analysis", fields...)
	} else {
		d.logger.Info("using heuristic analysis", fields...)
	}
	return d.fallback.Classify(text)
}

// hints fetches learning hints without letting a slow store hold up the
// analysis for longer than hintTimeout.
func (d *Diary) hints(ctx context.Context, userID string) string {
	if d.learning == nil || userID == "" {
		return ""
	}
	hctx, cancel := context.WithTimeout(ctx, d.hintTimeout)
	defer cancel()

	ch := make(chan string, 1)
	go func() {
		ch <- d.learning.GenerateHints(hctx, userID)
	}()

	select {
	case h := <-ch:
		return h
	case <-hctx.Done():
		d.logger.Warn("learning hints timed out",
			zap.String("user", userID), zap.Duration("timeout", d.hintTimeout))
		return ""
	}
}

func capKeywords(kws []string) []string {
	if len(kws) > analysis.MaxKeywords {
		return kws[:analysis.MaxKeywords]
	}
	return kws
}

// RecordUserCorrection records that the user moved an entry from one
// category to another. Best-effort; failures are logged.
func (d *Diary) RecordUserCorrection(ctx context.Context, userID, from, to string) {
	if d.learning == nil {
		return
	}
	d.learning.RecordCorrection(ctx, userID, from, to)
}

// RecordUserKeywords records keywords the user associates with sub.
// Best-effort; failures are logged.
func (d *Diary) RecordUserKeywords(ctx context.Context, userID, sub string, kws []string) {
	if d.learning == nil {
		return
	}
	d.learning.RecordKeywordPattern(ctx, userID, sub, kws)
}

// Hints returns the learning hints that would accompany the user's next
// analysis.
func (d *Diary) Hints(ctx context.Context, userID string) string {
	if d.learning == nil {
		return ""
	}
	return d.learning.GenerateHints(ctx, userID)
}

// SaveEntry analyzes content and stores it for userID.
func (d *Diary) SaveEntry(ctx context.Context, userID, content string) (store.Entry, error) {
	if err := d.requireEntries(); err != nil {
		return store.Entry{}, err
	}
	if userID == "" || strings.TrimSpace(content) == "" {
		return store.Entry{}, fmt.Errorf("%w: user and content required", internalerr.ErrInvalidInput)
	}
	res := d.Analyze(ctx, content, userID)
	return d.entries.CreateEntry(ctx, store.Entry{
		UserID:    userID,
		Content:   content,
		Analysis:  &res,
		CreatedAt: d.now(),
	})
}

// RecentEntries lists the user's newest entries. limit <= 0 means
// DefaultRecentLimit.
func (d *Diary) RecentEntries(ctx context.Context, userID string, limit int) ([]store.Entry, error) {
	if err := d.requireEntries(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return d.entries.ListRecent(ctx, userID, limit)
}

// DeleteEntries removes the user's entries by id and reports how many were
// removed. Ids owned by someone else are skipped.
func (d *Diary) DeleteEntries(ctx context.Context, userID string, ids []string) (int, error) {
	if err := d.requireEntries(); err != nil {
		return 0, err
	}
	if userID == "" {
		return 0, fmt.Errorf("%w: user required", internalerr.ErrInvalidInput)
	}
	return d.entries.DeleteEntries(ctx, userID, ids)
}

// ClearEntries removes all of the user's entries. Learning state is kept.
func (d *Diary) ClearEntries(ctx context.Context, userID string) (int, error) {
	if err := d.requireEntries(); err != nil {
		return 0, err
	}
	if userID == "" {
		return 0, fmt.Errorf("%w: user required", internalerr.ErrInvalidInput)
	}
	n, err := d.entries.DeleteUserEntries(ctx, userID)
	if err != nil {
		return 0, err
	}
	d.logger.Info("cleared entries", zap.String("user", userID), zap.Int("count", n))
	return n, nil
}

// CategoryCount counts the user's entries filed under sub.
func (d *Diary) CategoryCount(ctx context.Context, userID string, sub taxonomy.Sub) (int, error) {
	if err := d.requireEntries(); err != nil {
		return 0, err
	}
	return d.entries.CountByCategory(ctx, userID, string(sub))
}

// ReviseEntry applies a user's edit of an entry's category and keywords, then
// feeds the change to the learning store. nil keywords keep the current ones.
func (d *Diary) ReviseEntry(ctx context.Context, userID, entryID string, sub taxonomy.Sub, kws []string) (store.Entry, error) {
	if err := d.requireEntries(); err != nil {
		return store.Entry{}, err
	}
	primary, err := taxonomy.ResolvePrimary(sub)
	if err != nil {
		return store.Entry{}, err
	}

	e, err := d.entries.GetEntry(ctx, entryID)
	if err != nil {
		return store.Entry{}, err
	}
	if e.UserID != userID {
		return store.Entry{}, fmt.Errorf("entry %s: %w", entryID, internalerr.ErrNotFound)
	}

	var prev analysis.Result
	if e.Analysis != nil {
		prev = e.Analysis.Clone()
	} else {
		prev = d.fallback.Classify(e.Content)
	}

	next := prev.Clone()
	next.PrimaryCategory = primary
	next.SubCategory = sub
	next.Category = sub
	if kws != nil {
		next.Keywords = capKeywords(d.normalizer.Normalize(kws))
	}

	updated, err := d.entries.UpdateEntry(ctx, entryID, store.EntryUpdate{Analysis: &next})
	if err != nil {
		return store.Entry{}, err
	}

	if prev.SubCategory != sub {
		d.RecordUserCorrection(ctx, userID, string(prev.SubCategory), string(sub))
	}
	d.RecordUserKeywords(ctx, userID, string(sub), next.Keywords)
	return updated, nil
}

func (d *Diary) requireEntries() error {
	if d.entries == nil {
		return fmt.Errorf("%w: no entry store configured", internalerr.ErrStoreUnavailable)
	}
	return nil
}
