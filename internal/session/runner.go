// Package session drives one full polling run over the symbol universe.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"QuoteHarvester/internal/clock"
	"QuoteHarvester/internal/logger"
	"QuoteHarvester/internal/model"
	"QuoteHarvester/internal/poller"
	"QuoteHarvester/internal/reconciler"
	"QuoteHarvester/internal/store"
)

// DefaultBatchSize is the number of symbols polled together.
const DefaultBatchSize = 30

// BatchPoller is the part of poller.Poller the runner needs.
type BatchPoller interface {
	Poll(ctx context.Context, symbols []model.Symbol) *poller.Result
}

// Runner partitions the universe into batches and, one batch at a time,
// polls, reconciles and stores each symbol.
type Runner struct {
	Poller    BatchPoller
	Store     store.SeriesStore
	BatchSize int
	Clock     clock.Clock
	log       *logger.Entry
}

// NewRunner creates a Runner. batchSize <= 0 uses DefaultBatchSize.
func NewRunner(p BatchPoller, st store.SeriesStore, batchSize int, clk clock.Clock) *Runner {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Runner{
		Poller:    p,
		Store:     st,
		BatchSize: batchSize,
		Clock:     clk,
		log:       logger.GetLogger().WithComponent("session"),
	}
}

// Partition splits symbols into consecutive batches of at most size,
// preserving order.
func Partition(symbols []model.Symbol, size int) [][]model.Symbol {
	if len(symbols) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][]model.Symbol, 0, (len(symbols)+size-1)/size)
	for i := 0; i < len(symbols); i += size {
		j := i + size
		if j > len(symbols) {
			j = len(symbols)
		}
		out = append(out, symbols[i:j])
	}
	return out
}

// Run processes every batch in order and returns the run report. Per-symbol
// and per-tick failures are recorded in the report, never returned. The
// only error is ctx's, when the run was cut short.
func (r *Runner) Run(ctx context.Context, symbols []model.Symbol) (*model.RunReport, error) {
	rep := &model.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: r.Clock.Now(),
		Symbols:   len(symbols),
	}
	log := r.log.WithField("run_id", rep.RunID)
	log.WithField("symbols", len(symbols)).Info("session started")

	var err error
	for i, batch := range Partition(symbols, r.BatchSize) {
		if err = ctx.Err(); err != nil {
			log.WithError(err).Warn("session cancelled before all batches ran")
			break
		}
		rep.Batches++
		r.runBatch(ctx, log.WithField("batch", i+1), i+1, batch, rep)
	}

	rep.FinishedAt = r.Clock.Now()
	log.WithFields(logger.Fields{
		"batches":     rep.Batches,
		"updated":     rep.Count(model.StatusUpdated),
		"placeholder": rep.Count(model.StatusPlaceholder),
		"unresolved":  rep.Count(model.StatusUnresolved),
		"failed":      rep.Count(model.StatusFailed),
		"duration":    rep.FinishedAt.Sub(rep.StartedAt).String(),
	}).Info("session finished")
	return rep, err
}

func (r *Runner) runBatch(ctx context.Context, log *logger.Entry, n int, batch []model.Symbol, rep *model.RunReport) {
	start := time.Now()
	res := r.Poller.Poll(ctx, batch)
	rep.Ticks += res.Ticks

	for _, sym := range batch {
		row, ok := res.Best[sym.Code]
		if !ok {
			log.WithField("code", sym.Code).Warn("symbol unresolved, leaving stored series untouched")
			rep.Outcomes = append(rep.Outcomes, model.SymbolOutcome{Code: sym.Code, Status: model.StatusUnresolved, Batch: n})
			continue
		}

		outcome := model.SymbolOutcome{Code: sym.Code, Date: row.Date, Close: row.Close, Batch: n}
		if err := r.apply(log, sym.Code, row, rep); err != nil {
			log.WithError(err).WithField("code", sym.Code).Error("store write failed")
			outcome.Status = model.StatusFailed
			outcome.Note = err.Error()
		} else if res.Satisfied[sym.Code] {
			outcome.Status = model.StatusUpdated
		} else {
			outcome.Status = model.StatusPlaceholder
		}
		rep.Outcomes = append(rep.Outcomes, outcome)
	}
	logger.LogPerformanceEntry(log, "session", "batch", time.Since(start), logger.Fields{"symbols": len(batch)})
}

// apply loads, merges and saves one symbol's series. A series that cannot
// be loaded is treated as empty.
func (r *Runner) apply(log *logger.Entry, code string, row model.Row, rep *model.RunReport) error {
	series, err := r.Store.Load(code)
	if err != nil {
		rep.StoreWarnings++
		log.WithError(err).WithField("code", code).Warn("stored series unreadable, starting from empty")
	}
	return r.Store.Save(code, reconciler.Merge(series, row))
}
