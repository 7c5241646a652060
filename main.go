package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/thushan/switchyard/internal/app"
	"github.com/thushan/switchyard/internal/config"
	"github.com/thushan/switchyard/internal/logger"
	"github.com/thushan/switchyard/internal/version"
	"github.com/thushan/switchyard/pkg/format"
	"github.com/thushan/switchyard/pkg/nerdstats"
)

func main() {
	startTime := time.Now()
	vlog := log.New(log.Writer(), "", 0)
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.PrintVersionInfo(true, vlog)
		os.Exit(0)
	} else {
		version.PrintVersionInfo(false, vlog)
	}

	// the logger has to exist before the application loads (and starts
	// watching) the config, so the logging section is read once up front
	bootConfig, err := config.Load(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logInstance, styledLogger, cleanup, err := logger.NewWithTheme(buildLoggerConfig(bootConfig.Logging))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	slog.SetDefault(logInstance)

	styledLogger.Info("Initialising", "version", version.Version, "pid", os.Getpid())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		styledLogger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	application, err := app.New(startTime, styledLogger)
	if err != nil {
		logger.FatalWithLogger(logInstance, "Failed to create application", "error", err)
	}

	if err := application.Start(ctx); err != nil {
		logger.FatalWithLogger(logInstance, "Failed to start application", "error", err)
	}

	<-ctx.Done()

	if err := application.Stop(context.Background()); err != nil {
		styledLogger.Error("Error during shutdown", "error", err)
	}

	reportFailoverStats(styledLogger, application)
	reportProcessStats(styledLogger, startTime)

	styledLogger.Info("Switchyard has shutdown")
}

func reportFailoverStats(logger *logger.StyledLogger, application *app.Application) {
	snapshot := application.Manager().Metrics().Snapshot()
	bus := application.Manager().EventBus().Stats()

	logger.Info("Failover Stats",
		"failovers", snapshot.FailoverCount,
		"last_failover", format.TimeAgo(snapshot.LastFailover),
		"endpoints", len(snapshot.Endpoints),
		"events_published", bus.TotalPublished,
		"listener_failures", bus.ListenerFailure,
	)

	for name, stats := range snapshot.Endpoints {
		logger.Info("Endpoint Stats",
			"endpoint", name,
			"checks", stats.Checks,
			"success_rate", format.Percentage(stats.SuccessRate),
			"avg_latency", format.Latency(stats.AverageLatency),
			"max_latency", format.Latency(stats.MaxLatency),
		)
	}
}

func reportProcessStats(logger *logger.StyledLogger, startTime time.Time) {
	runtime.GC()

	stats := nerdstats.Snapshot(startTime)

	logger.Info("Process Memory Stats",
		"heap_alloc", format.Bytes(stats.HeapAlloc),
		"heap_sys", format.Bytes(stats.HeapSys),
		"heap_inuse", format.Bytes(stats.HeapInuse),
		"heap_released", format.Bytes(stats.HeapReleased),
		"stack_inuse", format.Bytes(stats.StackInuse),
		"total_alloc", format.Bytes(stats.TotalAlloc),
		"memory_pressure", stats.MemoryPressure(),
	)

	if stats.NumGC > 0 {
		logger.Info("Garbage Collection Stats",
			"num_gc_cycles", stats.NumGC,
			"last_gc", stats.LastGC.Format(time.RFC3339),
			"total_gc_time", format.Duration(stats.TotalGCTime),
			"avg_gc_pause", stats.AverageGCPause(),
			"gc_cpu_fraction", fmt.Sprintf("%.4f%%", stats.GCCPUFraction*100),
		)
	}

	logger.Info("Runtime Stats",
		"uptime", format.Duration(stats.Uptime),
		"go_version", stats.GoVersion,
		"num_cpu", stats.NumCPU,
		"gomaxprocs", stats.GOMAXPROCS,
		"num_goroutines", stats.NumGoroutines,
	)

	if buildInfo := stats.BuildInfoSummary(); len(buildInfo) > 0 {
		var buildArgs []any
		for key, value := range buildInfo {
			buildArgs = append(buildArgs, key, value)
		}
		logger.Info("Build Info", buildArgs...)
	}
}

func buildLoggerConfig(cfg config.LoggingConfig) *logger.Config {
	return &logger.Config{
		Level:      cfg.Level,
		FileOutput: cfg.FileOutput,
		LogDir:     cfg.LogDir,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Theme:      cfg.Theme,
	}
}
