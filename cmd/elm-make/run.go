package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abadi199/elm-make/internal/analyze"
	"github.com/abadi199/elm-make/internal/artifacts"
	"github.com/abadi199/elm-make/internal/build"
	"github.com/abadi199/elm-make/internal/compile"
	"github.com/abadi199/elm-make/internal/config"
	"github.com/abadi199/elm-make/internal/crawl"
	buildErrors "github.com/abadi199/elm-make/internal/errors"
	"github.com/abadi199/elm-make/internal/history"
	"github.com/abadi199/elm-make/internal/observability"
	"github.com/abadi199/elm-make/internal/project"
	"github.com/abadi199/elm-make/internal/timeline"
)

// run drives one build: crawl the module graph, decide what can be reused,
// compile the rest in dependency order.
func run(ctx context.Context, cfg *config.Config, printReport bool) error {
	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint, VERSION)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	if cfg.Observability.MetricsAddr != "" {
		server := observability.NewServer(cfg.Observability.MetricsAddr, VERSION)
		if err := server.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Stop(stopCtx)
		}()
	}

	started := time.Now()
	tl := timeline.New("build")
	store := artifacts.NewStore(cfg.StuffDir, cfg.CompilerVersion)

	var (
		summary      project.Summary
		buildSummary project.BuildSummary
		completed    map[project.ModuleID]project.Interface
	)

	buildErr := func() error {
		if err := tl.Phase("crawl", func() error {
			crawler, err := crawl.New(cfg)
			if err != nil {
				return err
			}
			summary, err = crawler.Crawl(ctx)
			return err
		}); err != nil {
			return err
		}

		if err := tl.Phase("analyze", func() error {
			var err error
			buildSummary, err = analyze.Run(ctx, summary, store)
			return err
		}); err != nil {
			return err
		}

		return tl.Phase("compile", func() error {
			var err error
			completed, err = build.Run(ctx, buildSummary, build.Options{
				Workers:  cfg.Build.Workers,
				Store:    store,
				Compile:  compile.Surface,
				Progress: build.NewProgress(len(buildSummary)),
			})
			return err
		})
	}()

	root := tl.Finish()
	observability.BuildDuration.Observe(root.Duration().Seconds())

	recordHistory(ctx, cfg, started, root, summary, buildSummary, buildErr)

	if buildErr != nil {
		code := "unknown"
		if be, ok := buildErrors.AsBuildError(buildErr); ok {
			code = string(be.Code)
		}
		observability.BuildErrorsTotal.WithLabelValues(code).Inc()
		return buildErr
	}

	slog.Info("build succeeded",
		"modules", len(summary),
		"compiled", len(buildSummary),
		"reused", len(summary)-len(buildSummary),
		"interfaces", len(completed),
		"duration", root.Duration().Round(time.Millisecond))

	if printReport {
		fmt.Print(timeline.Render(root))
	}
	return nil
}

func recordHistory(ctx context.Context, cfg *config.Config, started time.Time, root *timeline.Phase, summary project.Summary, buildSummary project.BuildSummary, buildErr error) {
	if !cfg.History.Enabled {
		return
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		slog.Warn("failed to open build history", "error", err)
		return
	}
	defer store.Close()

	rec := history.Record{
		ProjectKey:      cfg.Package.Author + "/" + cfg.Package.Project,
		StartedAt:       started.UTC(),
		Duration:        root.Duration(),
		ModulesTotal:    len(summary),
		ModulesReused:   len(summary) - len(buildSummary),
		ModulesCompiled: len(buildSummary),
		Workers:         cfg.Build.Workers,
		Outcome:         "ok",
	}
	if buildErr != nil {
		rec.Outcome = "error"
		if be, ok := buildErrors.AsBuildError(buildErr); ok {
			rec.Outcome = string(be.Code)
		}
		rec.ErrorMessage = buildErr.Error()
	}
	if _, err := store.SaveBuild(ctx, rec); err != nil {
		slog.Warn("failed to record build history", "error", err)
	}
}

func printHistory(ctx context.Context, cfg *config.Config, limit int) error {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.RecentBuilds(ctx, cfg.Package.Author+"/"+cfg.Package.Project, limit)
	if err != nil {
		return err
	}
	for _, rec := range records {
		fmt.Printf("%s  %-22s  %-8s  total=%d compiled=%d reused=%d  %s\n",
			rec.StartedAt.Local().Format(time.RFC3339),
			rec.ID[:8],
			rec.Outcome,
			rec.ModulesTotal,
			rec.ModulesCompiled,
			rec.ModulesReused,
			rec.Duration.Round(time.Millisecond))
	}
	return nil
}
