package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"weave/codegen"
	"weave/internal/observ"
	"weave/internal/recipe"
	"weave/internal/trace"
)

// Options configures BuildRecipe.
type Options struct {
	// Jobs bounds the number of modules built at once (default GOMAXPROCS).
	Jobs int
	// Producer is recorded for modules whose recipe does not name one.
	Producer string
	Tracer   trace.Tracer
	// Timer, when set, gets one phase per module.
	Timer *observ.Timer
	// Progress, when set, receives one queued event per module up front,
	// then building and done/error events as workers run.
	Progress ProgressSink
}

// BuildRecipe builds every module of r, each on its own goroutine.
// Artifacts are returned in recipe order; a module that failed leaves a
// nil entry and contributes to the joined error.
func BuildRecipe(ctx context.Context, r *recipe.Recipe, opts Options) ([]*codegen.Artifact, error) {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	span := trace.Begin(tracer, trace.ScopeDriver, "build", trace.ParentSpan(ctx))

	arts := make([]*codegen.Artifact, len(r.Modules))
	errs := make([]error, len(r.Modules))

	for _, m := range r.Modules {
		emit(opts.Progress, Event{Module: m.Name, Status: StatusQueued})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(r.Modules))))
	for i, m := range r.Modules {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				emit(opts.Progress, Event{Module: m.Name, Status: StatusError, Err: gctx.Err()})
				return gctx.Err()
			default:
			}
			emit(opts.Progress, Event{Module: m.Name, Status: StatusBuilding})
			start := time.Now()
			if m.Producer == "" {
				m.Producer = opts.Producer
			}
			phase := -1
			if opts.Timer != nil {
				phase = opts.Timer.Begin("module " + m.Name)
			}
			// each goroutine owns its module, so the active slot never
			// sees two modules on one goroutine
			art, err := m.Build(tracer)
			if opts.Timer != nil {
				note := fmt.Sprintf("%d function(s)", len(m.Functions))
				if err != nil {
					note = "failed"
				}
				opts.Timer.End(phase, note)
			}
			if err != nil {
				errs[i] = fmt.Errorf("module %s: %w", m.Name, err)
				emit(opts.Progress, Event{Module: m.Name, Status: StatusError, Err: err, Elapsed: time.Since(start)})
				return nil
			}
			arts[i] = art
			emit(opts.Progress, Event{Module: m.Name, Status: StatusDone, Elapsed: time.Since(start)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.End("cancelled")
		return arts, err
	}

	err := errors.Join(errs...)
	if err != nil {
		span.Set("error", err.Error()).End("failed")
		return arts, err
	}
	span.Set("modules", fmt.Sprint(len(arts))).End("")
	return arts, nil
}
