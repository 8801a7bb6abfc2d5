package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/me/ticksched/internal/action"
	"github.com/me/ticksched/internal/clock"
	"github.com/me/ticksched/internal/config"
	"github.com/me/ticksched/internal/logging"
	"github.com/me/ticksched/internal/plan"
	"github.com/me/ticksched/internal/scheduler"
	"github.com/me/ticksched/internal/server"
	"github.com/me/ticksched/internal/statusexport"
	"github.com/me/ticksched/internal/store"
)

func main() {
	cfg := config.DefaultDaemonConfig()

	var unitID, baseAddr uint
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Journal path (default ~/.ticksched/journal.db)")
	flag.StringVar(&cfg.PlanPath, "plan", cfg.PlanPath, "Plan file to run (required)")
	flag.StringVar(&cfg.ModbusEndpoint, "modbus-endpoint", cfg.ModbusEndpoint, "Modbus TCP host:port for status export (empty disables)")
	flag.UintVar(&unitID, "modbus-unit", uint(cfg.ModbusUnitID), "Modbus unit id")
	flag.UintVar(&baseAddr, "modbus-base", uint(cfg.ModbusBaseAddr), "First holding register of the status block")
	flag.IntVar(&cfg.ExportIntervalMs, "export-interval-ms", cfg.ExportIntervalMs, "Status export period in milliseconds")
	flag.DurationVar(&cfg.Duration, "duration", cfg.Duration, "Stop after this long (0 runs until interrupted)")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")

	flag.Parse()

	if *debug {
		cfg.LogLevel = "debug"
	}
	if unitID > 0xFF || baseAddr > 0xFFFF {
		fmt.Fprintf(os.Stderr, "modbus unit id must fit in 8 bits and base address in 16 bits\n")
		os.Exit(2)
	}
	cfg.ModbusUnitID = byte(unitID)
	cfg.ModbusBaseAddr = uint16(baseAddr)
	if cfg.PlanPath == "" {
		fmt.Fprintf(os.Stderr, "--plan is required\n")
		os.Exit(2)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	p, err := plan.Load(cfg.PlanPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load plan: %v\n", err)
		os.Exit(1)
	}
	logger.Info("plan loaded", "plan", p.Name, "tasks", len(p.Tasks), "capacity", p.Capacity, "tick_period_ms", p.TickPeriodMs)

	// Resolve database path.
	dbPath := cfg.DBPath
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot determine home directory: %v\n", err)
			os.Exit(1)
		}
		dir := filepath.Join(home, ".ticksched")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "cannot create %s: %v\n", dir, err)
			os.Exit(1)
		}
		dbPath = filepath.Join(dir, "journal.db")
	}

	// Open store and run migrations.
	st, err := store.NewSQLiteStore(dbPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate database: %v\n", err)
		os.Exit(1)
	}
	logger.Info("database ready", "path", dbPath)

	loop, err := scheduler.NewLoop(p, action.NewDefaultRegistry(logger), st, scheduler.DefaultConfig(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build scheduler: %v\n", err)
		os.Exit(1)
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	if cfg.ExportEnabled() {
		w, err := statusexport.NewTCPWriter(statusexport.TCPConfig{Endpoint: cfg.ModbusEndpoint, Timeout: time.Second})
		if err != nil {
			fmt.Fprintf(os.Stderr, "status export: %v\n", err)
			os.Exit(1)
		}
		defer w.Close()
		if err := w.Connect(); err != nil {
			logger.Warn("modbus connect failed; retrying on each export", "endpoint", cfg.ModbusEndpoint, "error", err)
		}

		exp := statusexport.New(w, statusexport.Config{UnitID: cfg.ModbusUnitID, BaseAddr: cfg.ModbusBaseAddr}, logger)
		if err := loop.AddSystemTask("_status", cfg.ExportInterval(), exp.Offer); err != nil {
			fmt.Fprintf(os.Stderr, "status export: %v (plan capacity must leave one free slot)\n", err)
			os.Exit(1)
		}
		go exp.Run(ctx)
	}

	ticker := clock.NewTicker(time.Duration(p.TickPeriodMs)*time.Millisecond, loop)
	srv := server.New(cfg, st, loop, logger)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	// Start scheduler in background.
	loopErr := make(chan error, 1)
	go func() {
		loopErr <- loop.Start(ctx, ticker)
	}()

	go func() {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-loopErr:
		// The loop only returns early when the run cannot be journaled.
		logger.Error("scheduler stopped", "error", err)
		stop()
	}
	logger.Info("shutting down")

	// Stop scheduler before HTTP server.
	if err := loop.Stop(); err != nil {
		logger.Error("scheduler stop error", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}

	s := loop.Snapshot().Stats
	logger.Info("server stopped", "run_id", s.RunID, "ticks", s.Ticks, "fires", s.Fires, "overruns", s.Overruns,
		"max_tick_us", s.MaxTickMicros)
}
