// Package build drives a build summary to completion on a fixed-size worker
// pool, dispatching compile jobs in dependency order and streaming finished
// interfaces back into the readiness state.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"github.com/abadi199/elm-make/internal/artifacts"
	"github.com/abadi199/elm-make/internal/observability"
	"github.com/abadi199/elm-make/internal/project"
	"github.com/abadi199/elm-make/internal/queue"
)

// CompileFunc is the opaque compiler front-end: given a module's source and
// the interfaces of its already-built dependencies, it produces the module's
// interface and object code.
type CompileFunc func(ctx context.Context, id project.ModuleID, source []byte, deps map[project.ModuleID]project.Interface) (project.Interface, []byte, error)

type Options struct {
	// Workers bounds compile parallelism. Zero means one per CPU core.
	Workers  int
	Store    *artifacts.Store
	Compile  CompileFunc
	Progress *Progress
}

type job struct {
	id    project.ModuleID
	loc   project.Location
	ready map[project.ModuleID]project.Interface
}

type completion struct {
	id    project.ModuleID
	iface project.Interface
	err   error
}

// scheduler state is owned by the driver goroutine; workers only receive a
// job snapshot and send one completion back on the shared channel.
type scheduler struct {
	// pending holds every module not yet dispatched. Modules whose Blocking
	// list is empty are also queued in ready.
	pending      map[project.ModuleID]*project.BuildData
	waiters      map[project.ModuleID][]project.ModuleID
	ready        *queue.Queue[project.ModuleID]
	completed    map[project.ModuleID]project.Interface
	jobsInFlight int
	firstErr     error

	jobs        chan job
	completions chan completion
	workers     int
	progress    *Progress
}

// Run compiles every module in the summary, respecting dependency order and
// bounding concurrency at opts.Workers. It returns the accumulated interface
// map, or the first worker error after all outstanding jobs have drained.
func Run(ctx context.Context, summary project.BuildSummary, opts Options) (map[project.ModuleID]project.Interface, error) {
	ctx, span := observability.Tracer.Start(ctx, "build.Run")
	defer span.End()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	s := &scheduler{
		pending:     make(map[project.ModuleID]*project.BuildData, len(summary)),
		waiters:     make(map[project.ModuleID][]project.ModuleID),
		ready:       queue.New[project.ModuleID](),
		completed:   make(map[project.ModuleID]project.Interface),
		jobs:        make(chan job, workers),
		completions: make(chan completion, workers),
		workers:     workers,
		progress:    opts.Progress,
	}
	s.init(summary)

	for i := 0; i < workers; i++ {
		go runWorker(ctx, s.jobs, s.completions, opts.Store, opts.Compile)
	}
	defer close(s.jobs)

	slog.Debug("build started", "modules", len(summary), "workers", workers)

	if err := s.drive(ctx); err != nil {
		return nil, err
	}
	return s.completed, nil
}

// init partitions the summary: schedulable entries feed the ready queue, the
// rest wait behind a reverse waiter index. Interfaces discovered during
// analysis pre-populate completed.
func (s *scheduler) init(summary project.BuildSummary) {
	ids := make([]project.ModuleID, 0, len(summary))
	for id := range summary {
		ids = append(ids, id)
	}
	sortModuleIDs(ids)

	for _, id := range ids {
		data := summary[id]
		for dep, iface := range data.Ready {
			s.completed[dep] = iface
		}
		bd := data
		s.pending[id] = &bd
		if len(data.Blocking) == 0 {
			s.ready.Enqueue(id)
			continue
		}
		for _, dep := range data.Blocking {
			s.waiters[dep] = append(s.waiters[dep], id)
		}
	}
	observability.ReadyQueueDepth.Set(float64(s.ready.Len()))
}

// drive is the single-threaded main loop: fill the worker pool from the
// ready queue, then block on one completion at a time. After the first error
// no new jobs are dispatched, but outstanding jobs drain so their resources
// are released.
func (s *scheduler) drive(ctx context.Context) error {
	for {
		if s.firstErr == nil && ctx.Err() != nil {
			s.firstErr = ctx.Err()
		}
		for s.firstErr == nil && s.jobsInFlight < s.workers && !s.ready.Empty() {
			s.dispatchNext()
		}

		if s.jobsInFlight == 0 {
			break
		}

		select {
		case c := <-s.completions:
			s.handleCompletion(c)
		case <-ctx.Done():
			if s.firstErr == nil {
				s.firstErr = ctx.Err()
			}
			// Keep draining; workers observe the same ctx.
			c := <-s.completions
			s.handleCompletion(c)
		}
	}

	if s.firstErr != nil {
		return s.firstErr
	}
	if len(s.pending) > 0 {
		// Unreachable for an acyclic summary; the analyzer rejects cycles.
		return fmt.Errorf("scheduler stalled with %d blocked module(s)", len(s.pending))
	}
	return nil
}

// dispatchNext removes one module from the ready queue and hands its job to
// the worker pool. The module leaves pending here, which is what guarantees
// it can never be dispatched twice.
func (s *scheduler) dispatchNext() {
	ids := s.ready.Dequeue(1)
	if len(ids) == 0 {
		return
	}
	id := ids[0]
	bd, ok := s.pending[id]
	if !ok {
		return
	}
	delete(s.pending, id)

	s.jobsInFlight++
	observability.JobsInFlight.Set(float64(s.jobsInFlight))
	observability.ReadyQueueDepth.Set(float64(s.ready.Len()))

	s.jobs <- job{id: id, loc: bd.Location, ready: bd.Ready}
	slog.Debug("dispatched", "module", id.Name, "in_flight", s.jobsInFlight)
}

func (s *scheduler) handleCompletion(c completion) {
	s.jobsInFlight--
	observability.JobsInFlight.Set(float64(s.jobsInFlight))

	if c.err != nil {
		if s.firstErr == nil {
			s.firstErr = c.err
			slog.Debug("build failing fast", "module", c.id.Name, "error", c.err)
		}
		// Later errors during drain are discarded to avoid cascading noise.
		return
	}
	if s.firstErr != nil {
		// Result of a job that was already in flight when the build failed.
		return
	}

	s.completed[c.id] = c.iface
	observability.ModulesCompiledTotal.Inc()
	s.progress.Completed(c.id)

	for _, waiter := range s.waiters[c.id] {
		bd, ok := s.pending[waiter]
		if !ok {
			continue
		}
		bd.Blocking = removeModule(bd.Blocking, c.id)
		bd.Ready[c.id] = c.iface
		if len(bd.Blocking) == 0 {
			s.ready.Enqueue(waiter)
		}
	}
	delete(s.waiters, c.id)
	observability.ReadyQueueDepth.Set(float64(s.ready.Len()))
}

func removeModule(ids []project.ModuleID, id project.ModuleID) []project.ModuleID {
	out := ids[:0]
	for _, m := range ids {
		if m != id {
			out = append(out, m)
		}
	}
	return out
}

func sortModuleIDs(ids []project.ModuleID) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Pkg.Author != ids[j].Pkg.Author {
			return ids[i].Pkg.Author < ids[j].Pkg.Author
		}
		if ids[i].Pkg.Project != ids[j].Pkg.Project {
			return ids[i].Pkg.Project < ids[j].Pkg.Project
		}
		return ids[i].Name < ids[j].Name
	})
}

// observeCompile records one compile's wall time; shared with the worker.
func observeCompile(start time.Time) {
	observability.CompileDuration.Observe(time.Since(start).Seconds())
}
