package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/cognicore/diary/internal/llm"
	"github.com/cognicore/diary/pkg/diary"
	"github.com/cognicore/diary/pkg/diary/config"
	"github.com/cognicore/diary/pkg/diary/internalerr"
	"github.com/cognicore/diary/pkg/diary/learning"
	"github.com/cognicore/diary/pkg/diary/store"
	"github.com/cognicore/diary/pkg/diary/store/memstore"
	"github.com/cognicore/diary/pkg/diary/store/mongo"
	"github.com/cognicore/diary/pkg/diary/store/sqlite"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	envPath    string
	driver     string
	dbPath     string
	userID     string
	verbose    bool
}

// app is the per-invocation state built before a command runs.
type app struct {
	flags  globalFlags
	logger *zap.Logger
	store  store.Store
	diary  *diary.Diary
}

func (a *app) setup(ctx context.Context) error {
	logger, err := newLogger(a.flags.verbose)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	a.logger = logger

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	components, err := (&config.Loader{
		LexiconPath: cfg.LexiconPath,
		MarkersPath: cfg.MarkersPath,
	}).Load()
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	a.store = st

	gen, err := llm.FromConfig(ctx, cfg)
	switch {
	case errors.Is(err, internalerr.ErrNotConfigured):
		a.logger.Info("remote analysis disabled, using heuristic only", zap.String("provider", cfg.LLM.Provider))
		gen = nil
	case err != nil:
		return fmt.Errorf("llm: %w", err)
	}

	ls := learning.New(st,
		learning.WithLogger(a.logger.Named("learning")),
		learning.WithCacheTTL(cfg.Learning.CacheTTL),
	)
	a.diary = diary.New(diary.Options{
		Generator:     gen,
		Generation:    llm.ParamsFromConfig(cfg.LLM),
		Learning:      ls,
		Entries:       st,
		Normalizer:    components.Normalizer,
		Fallback:      components.Classifier,
		RemoteTimeout: cfg.LLM.Timeout,
		HintTimeout:   cfg.Learning.HintTimeout,
		Logger:        a.logger.Named("diary"),
	})
	return nil
}

func (a *app) loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(a.flags.envPath); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	config.ApplyEnv(&cfg)
	if a.flags.driver != "" {
		cfg.Store.Driver = a.flags.driver
	}
	if a.flags.dbPath != "" {
		if cfg.Store.Driver == config.DriverMongo {
			cfg.Store.MongoURI = a.flags.dbPath
		} else {
			cfg.Store.Path = a.flags.dbPath
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil && a.logger != nil {
			a.logger.Warn("close store", zap.Error(err))
		}
		a.store = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func openStore(ctx context.Context, cfg config.Store) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.OpenSQLite(ctx, cfg.Path)
	case config.DriverMongo:
		return mongo.Open(ctx, cfg.MongoURI)
	case config.DriverMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", internalerr.ErrInvalidConfig, cfg.Driver)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (a *app) requireUser() error {
	if a.flags.userID == "" {
		return fmt.Errorf("%w: --user is required", internalerr.ErrInvalidInput)
	}
	return nil
}
