// # cmd/elm-make/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/abadi199/elm-make/internal/config"
)

var (
	configPath  = flag.String("config", "./elm-make.toml", "Path to config file")
	workers     = flag.Int("workers", 0, "Number of compile workers (0 = one per CPU core)")
	report      = flag.Bool("report", false, "Print the phase timing report after the build")
	historyN    = flag.Int("history", 0, "Print the last N recorded builds and exit")
	metricsAddr = flag.String("metrics-addr", "", "Expose /metrics and /health on this address")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	version     = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("elm-make v%s\n", VERSION)
		os.Exit(0)
	}

	// Setup logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		if os.IsNotExist(err) && *configPath == "./elm-make.toml" {
			cfg = config.Default()
		} else {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}
	if *workers > 0 {
		cfg.Build.Workers = *workers
	}
	if *metricsAddr != "" {
		cfg.Observability.MetricsAddr = *metricsAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *historyN > 0 {
		if err := printHistory(ctx, cfg, *historyN); err != nil {
			slog.Error("failed to read history", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, *report); err != nil {
		slog.Error("build failed", "error", err)
		os.Exit(1)
	}
}
