package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configures an Executor.
type Options struct {
	// Timeout bounds a single run. Zero means no timeout.
	Timeout time.Duration
	// MaxRows caps the rows kept per run. Zero keeps all rows.
	MaxRows int
	// Reload, when set, runs before every query (reload-on-run mode).
	Reload func(ctx context.Context) error
	Logger *zap.SugaredLogger
}

// Executor serializes every access to the store: queries, reloads and
// scheduled refreshes run one at a time.
type Executor struct {
	mu   sync.Mutex
	db   Conner
	opts Options
	log  *zap.SugaredLogger
}

// NewExecutor returns an Executor over db.
func NewExecutor(db Conner, opts Options) *Executor {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Executor{db: db, opts: opts, log: log}
}

// Run executes text and returns its Outcome. It never returns an error:
// store failures become Failed outcomes.
func (e *Executor) Run(ctx context.Context, text string) Outcome {
	runID := uuid.NewString()
	log := e.log.With("run", runID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	if e.opts.Reload != nil {
		if err := e.opts.Reload(ctx); err != nil {
			log.Errorw("reload before query failed", "error", err)
			out := failed(fmt.Errorf("reload datasets: %w", err))
			out.RunID = runID
			return out
		}
	}

	out := execute(ctx, e.db, text, e.opts.MaxRows)
	out.RunID = runID
	switch out.Kind {
	case Failed:
		log.Infow("query rejected", "sql", text, "error", out.Reason, "duration", out.Duration)
	default:
		log.Infow("query executed", "sql", text, "outcome", out.Kind.String(),
			"rows", out.Count(), "truncated", out.Truncated, "duration", out.Duration)
	}
	return out
}

// Exclusive runs fn while no query is executing.
func (e *Executor) Exclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(ctx)
}
