// Package analyze decides which modules can be reused from a prior build and
// which must be recompiled, producing the scheduler's input.
package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/abadi199/elm-make/internal/artifacts"
	"github.com/abadi199/elm-make/internal/observability"
	"github.com/abadi199/elm-make/internal/project"
)

// Run transforms the crawled project summary into a build summary in three
// phases: load cached interfaces that are fresh by mtime, discard interfaces
// whose dependencies went stale, then partition the remaining modules'
// dependencies into blocking and ready sets.
func Run(ctx context.Context, summary project.Summary, store *artifacts.Store) (project.BuildSummary, error) {
	ctx, span := observability.Tracer.Start(ctx, "analyze.Run")
	defer span.End()
	_ = ctx

	started := time.Now()
	defer func() {
		observability.AnalyzeDuration.Observe(time.Since(started).Seconds())
	}()

	order, err := topologicalOrder(summary)
	if err != nil {
		return nil, err
	}

	loaded, err := loadFreshInterfaces(summary, store)
	if err != nil {
		return nil, err
	}

	retained := propagateStaleness(summary, order, loaded)

	buildSummary := partition(summary, retained)

	reused := len(retained)
	observability.ModulesReusedTotal.Add(float64(reused))
	slog.Debug("analysis complete",
		"modules", len(summary),
		"reused", reused,
		"to_compile", len(buildSummary))

	return buildSummary, nil
}

// loadFreshInterfaces is phase A: an interface is loaded only when the file
// exists and its mtime is at least as recent as the source file's. Native
// modules carry no compiled interface; they are granted a synthetic one so
// dependents can treat them as always built.
func loadFreshInterfaces(summary project.Summary, store *artifacts.Store) (map[project.ModuleID]project.Interface, error) {
	loaded := make(map[project.ModuleID]project.Interface)
	for id, data := range summary {
		if data.Location.IsNative {
			loaded[id] = project.Interface{
				Fingerprint: "native:" + id.String(),
				Native:      true,
			}
			continue
		}

		srcInfo, err := os.Stat(data.Location.SourcePath)
		if err != nil {
			return nil, fmt.Errorf("stat source for %s: %w", id, err)
		}

		ifaceTime, exists, err := store.InterfaceModTime(id)
		if err != nil {
			return nil, err
		}
		if !exists || ifaceTime.Before(srcInfo.ModTime()) {
			continue
		}

		iface, err := store.ReadInterface(id)
		if err != nil {
			return nil, err
		}
		loaded[id] = iface
	}
	return loaded, nil
}

// propagateStaleness is phase B: visiting in topological order, a module's
// interface survives only if it was loaded and every direct dependency's
// interface also survived. One forward pass suffices because dependencies
// precede dependents in the order.
func propagateStaleness(summary project.Summary, order []project.ModuleID, loaded map[project.ModuleID]project.Interface) map[project.ModuleID]project.Interface {
	retained := make(map[project.ModuleID]project.Interface, len(loaded))
	for _, id := range order {
		iface, ok := loaded[id]
		if !ok {
			continue
		}
		fresh := true
		for _, dep := range summary[id].Deps {
			if _, ok := retained[dep]; !ok {
				fresh = false
				break
			}
		}
		if fresh {
			retained[id] = iface
		}
	}
	return retained
}

// partition is phase C: every module without a retained interface becomes a
// BuildData whose blocking list and ready map split its dependency set.
// Retained modules do not appear in the output; they are already done.
func partition(summary project.Summary, retained map[project.ModuleID]project.Interface) project.BuildSummary {
	buildSummary := make(project.BuildSummary)
	for id, data := range summary {
		if _, ok := retained[id]; ok {
			continue
		}
		bd := project.BuildData{
			Location: data.Location,
			Ready:    make(map[project.ModuleID]project.Interface),
		}
		for _, dep := range data.Deps {
			if iface, ok := retained[dep]; ok {
				bd.Ready[dep] = iface
			} else {
				bd.Blocking = append(bd.Blocking, dep)
			}
		}
		buildSummary[id] = bd
	}
	return buildSummary
}
