// Package statusexport mirrors scheduler counters into Modbus holding
// registers so PLCs and HMIs can watch a running plan.
package statusexport

import (
	"context"
	"log/slog"

	"github.com/me/ticksched/pkg/model"
)

// Config locates the register block.
type Config struct {
	UnitID   uint8
	BaseAddr uint16
}

// Exporter writes the latest offered counters from its own goroutine. Offer
// never blocks, so it may be called from a task callback.
type Exporter struct {
	w      RegisterWriter
	cfg    Config
	logger *slog.Logger

	latest chan model.StatsView
	failed bool
	writes uint64
}

// New creates an Exporter writing through w.
func New(w RegisterWriter, cfg Config, logger *slog.Logger) *Exporter {
	return &Exporter{
		w:      w,
		cfg:    cfg,
		logger: logger.With("component", "statusexport"),
		latest: make(chan model.StatsView, 1),
	}
}

// Offer hands s to the writer goroutine, replacing any value it has not
// picked up yet.
func (e *Exporter) Offer(s model.StatsView) {
	for {
		select {
		case e.latest <- s:
			return
		default:
		}
		select {
		case <-e.latest:
		default:
		}
	}
}

// Run writes offered values until ctx is cancelled. A failed write is logged
// once and retried with the next offered value.
func (e *Exporter) Run(ctx context.Context) error {
	e.logger.Info("status export started", "unit_id", e.cfg.UnitID, "base_addr", e.cfg.BaseAddr, "registers", BlockSize)
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("status export stopped", "writes", e.writes)
			return nil
		case s := <-e.latest:
			e.write(s)
		}
	}
}

func (e *Exporter) write(s model.StatsView) {
	if err := e.w.WriteRegisters(e.cfg.UnitID, e.cfg.BaseAddr, Encode(s)); err != nil {
		if !e.failed {
			e.logger.Warn("status export failed", "error", err)
		}
		e.failed = true
		return
	}
	if e.failed {
		e.logger.Info("status export recovered")
		e.failed = false
	}
	e.writes++
}
