// Package poller runs the deadline-bounded retry loop for one batch of
// symbols against a QuoteSource.
package poller

import (
	"context"
	"time"

	"QuoteHarvester/internal/clock"
	"QuoteHarvester/internal/collector"
	"QuoteHarvester/internal/logger"
	"QuoteHarvester/internal/model"
	"QuoteHarvester/internal/normalizer"
)

// Config controls the polling cadence.
type Config struct {
	RetryInterval time.Duration // pause between ticks
	Deadline      time.Duration // soft budget per batch, checked between ticks
	CallTimeout   time.Duration // hard bound on a single provider call
}

// DefaultConfig returns 3s retries, a 30s batch deadline and a 10s call timeout.
func DefaultConfig() Config {
	return Config{
		RetryInterval: 3 * time.Second,
		Deadline:      30 * time.Second,
		CallTimeout:   10 * time.Second,
	}
}

// Result is the outcome of polling one batch.
type Result struct {
	Best       map[string]model.Row // best row per symbol that produced one
	Satisfied  map[string]bool      // true once a valid trade price was seen
	Unresolved []string             // symbols with no row at all, in batch order
	Ticks      int
	Elapsed    time.Duration
}

// Poller polls one batch at a time and is not safe for concurrent use.
type Poller struct {
	Source collector.QuoteSource
	Clock  clock.Clock
	cfg    Config
	log    *logger.Entry
}

// New creates a Poller. Zero fields in cfg fall back to DefaultConfig.
func New(src collector.QuoteSource, clk clock.Clock, cfg Config) *Poller {
	def := DefaultConfig()
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = def.Deadline
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Poller{
		Source: src,
		Clock:  clk,
		cfg:    cfg,
		log:    logger.GetLogger().WithComponent("poller"),
	}
}

// Poll queries the source for the whole batch every tick until every symbol
// has a valid price or the deadline passes. A failed call counts as an
// empty tick. Cancelling ctx stops the loop at the next wait and returns
// what has been observed so far.
func (p *Poller) Poll(ctx context.Context, symbols []model.Symbol) *Result {
	state := newBatchState(symbols)
	if len(state.order) == 0 {
		return state.result()
	}

	start := p.Clock.Now()
	ticks := 0
	for !state.done() {
		elapsed := p.Clock.Now().Sub(start)
		if elapsed >= p.cfg.Deadline || ctx.Err() != nil {
			break
		}
		ticks++
		p.tick(ctx, ticks, symbols, state)
		if state.done() {
			break
		}

		remaining := p.cfg.Deadline - p.Clock.Now().Sub(start)
		if remaining <= 0 {
			break
		}
		wait := p.cfg.RetryInterval
		if wait > remaining {
			wait = remaining
		}
		if err := p.Clock.Sleep(ctx, wait); err != nil {
			break
		}
	}

	res := state.result()
	res.Ticks = ticks
	res.Elapsed = p.Clock.Now().Sub(start)
	p.log.WithFields(logger.Fields{
		"symbols":    len(state.order),
		"satisfied":  len(state.order) - state.pending,
		"unresolved": len(res.Unresolved),
		"ticks":      ticks,
		"elapsed":    res.Elapsed.String(),
	}).Info("batch polled")
	return res
}

func (p *Poller) tick(ctx context.Context, n int, symbols []model.Symbol, state *batchState) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	quotes, err := p.Source.FetchQuotes(callCtx, symbols)
	cancel()
	if err != nil {
		p.log.WithError(err).WithField("tick", n).Warn("quote fetch failed, treating tick as empty")
		return
	}

	accepted := 0
	for _, q := range quotes {
		row, valid, ok := normalizer.Normalize(q)
		if !ok {
			p.log.WithFields(logger.Fields{"tick": n, "code": q.Code}).Debug("dropping undatable quote")
			continue
		}
		if state.observe(q.Code, row, valid) {
			accepted++
		}
	}
	p.log.WithFields(logger.Fields{
		"tick":     n,
		"received": len(quotes),
		"accepted": accepted,
		"pending":  state.pending,
	}).Debug("tick done")
}
