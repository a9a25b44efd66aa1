// Package sqlmystery wires the mystery page together: it loads the three
// case files, materializes them into the embedded store, and exposes the
// query, answer and schema operations the HTTP and gRPC front ends share.
//
// All store access goes through one executor, so loads, refreshes and
// queries never interleave.
package sqlmystery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/SimonWaldherr/sqlmystery/internal/answer"
	"github.com/SimonWaldherr/sqlmystery/internal/config"
	"github.com/SimonWaldherr/sqlmystery/internal/dataset"
	"github.com/SimonWaldherr/sqlmystery/internal/lesson"
	"github.com/SimonWaldherr/sqlmystery/internal/query"
	"github.com/SimonWaldherr/sqlmystery/internal/store"
)

// Table names of the case files.
const (
	TableCrimes    = "crimes"
	TableCriminals = "criminals"
	TableVictim    = "victim"
)

// App is a ready-to-query mystery.
type App struct {
	cfg     config.Config
	log     *zap.SugaredLogger
	lesson  *lesson.Lesson
	store   *store.Store
	exec    *query.Executor
	sources []dataset.Source
	opts    dataset.Options
}

// New validates cfg, loads the lesson and the datasets, and materializes
// them. Any failure here is fatal for the caller.
func New(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (*App, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l, err := lesson.Load(cfg.LessonFile)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, store.Options{
		Driver: cfg.Store.Driver,
		DSN:    cfg.Store.DSN,
		Fresh:  cfg.Store.Fresh,
		Logger: log,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:    cfg,
		log:    log,
		lesson: l,
		store:  st,
		sources: []dataset.Source{
			{Name: TableCrimes, Path: cfg.Sources.Crimes},
			{Name: TableCriminals, Path: cfg.Sources.Criminals},
			{Name: TableVictim, Path: cfg.Sources.Victim},
		},
		opts: dataset.Options{Delimiter: cfg.Delim()},
	}
	if err := a.reload(ctx); err != nil {
		st.Close()
		return nil, err
	}

	eo := query.Options{
		Timeout: cfg.QueryTimeout,
		MaxRows: cfg.MaxRows,
		Logger:  log,
	}
	if cfg.ReloadOnRun {
		eo.Reload = a.reload
	}
	a.exec = query.NewExecutor(st, eo)
	return a, nil
}

// reload reads every source and rewrites its table. Callers hold the
// executor lock, except New which runs before the executor exists.
func (a *App) reload(ctx context.Context) error {
	sets, err := dataset.LoadAll(a.sources, &a.opts)
	if err != nil {
		return fmt.Errorf("load datasets: %w", err)
	}
	if err := a.store.MaterializeAll(ctx, sets); err != nil {
		return err
	}
	for _, ds := range sets {
		a.log.Debugw("table materialized", "table", ds.Name, "rows", len(ds.Rows),
			"columns", len(ds.Columns), "encoding", ds.Encoding)
	}
	return nil
}

// Refresh reloads the datasets while no query runs. On failure the
// previous tables stay in place.
func (a *App) Refresh(ctx context.Context) error {
	return a.exec.Exclusive(ctx, a.reload)
}

// Run executes learner SQL. It never fails: store errors are carried by a
// Failed outcome.
func (a *App) Run(ctx context.Context, sql string) query.Outcome {
	return a.exec.Run(ctx, sql)
}

// Check compares an answer with the lesson's expected solution.
func (a *App) Check(userText string) bool {
	if !a.lesson.HasCheckpoint() {
		return false
	}
	return a.lesson.Checkpoint.Solution.Check(userText)
}

// Solution is the answer revealed on request.
func (a *App) Solution() answer.Solution { return a.lesson.Checkpoint.Solution }

// Schema lists the materialized tables.
func (a *App) Schema(ctx context.Context) ([]store.TableInfo, error) {
	var tables []store.TableInfo
	err := a.exec.Exclusive(ctx, func(ctx context.Context) error {
		var err error
		tables, err = a.store.Schema(ctx)
		return err
	})
	return tables, err
}

// Lesson is the page definition in use.
func (a *App) Lesson() *lesson.Lesson { return a.lesson }

// Sources lists the case files in table order.
func (a *App) Sources() []dataset.Source {
	out := make([]dataset.Source, len(a.sources))
	copy(out, a.sources)
	return out
}

// Close releases the store.
func (a *App) Close() error {
	return a.store.Close()
}
