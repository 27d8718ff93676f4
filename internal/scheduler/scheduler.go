package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"QuoteHarvester/internal/logger"
	"QuoteHarvester/internal/model"
	"QuoteHarvester/internal/notifier"
	"QuoteHarvester/internal/recorder"
)

// SessionRunner runs one polling session over symbols.
type SessionRunner interface {
	Run(ctx context.Context, symbols []model.Symbol) (*model.RunReport, error)
}

// Scheduler fires sessions on a cron schedule and serves operator commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   SessionRunner
	Symbols  []model.Symbol
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	Ctx      context.Context

	entry   cron.EntryID
	running sync.Mutex
	mu      sync.RWMutex
	last    *model.RunReport
	log     *logger.Entry
}

// NewScheduler creates a Scheduler whose cron runs in loc.
func NewScheduler(ctx context.Context, runner SessionRunner, symbols []model.Symbol, n notifier.Notifier, rec recorder.Recorder, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	cronLog := cron.PrintfLogger(logger.GetLogger().WithComponent("cron"))
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		Runner:   runner,
		Symbols:  symbols,
		Notifier: n,
		Recorder: rec,
		Ctx:      ctx,
		log:      logger.GetLogger().WithComponent("scheduler"),
	}
}

// Register adds the session task under expr, a six-field cron expression.
func (s *Scheduler) Register(expr string) error {
	id, err := s.Cron.AddFunc(expr, func() { s.runSession("cron") })
	if err != nil {
		return fmt.Errorf("register session task: %w", err)
	}
	s.entry = id
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.WithField("next", s.Next().Format(time.RFC3339)).Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running session to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// Next returns the next scheduled firing, or the zero time if none.
func (s *Scheduler) Next() time.Time {
	if s.entry == 0 {
		return time.Time{}
	}
	return s.Cron.Entry(s.entry).Next
}

// RunNow runs one session immediately. It returns false without running when
// another session is in progress.
func (s *Scheduler) RunNow() bool {
	return s.runSession("manual")
}

// LastReport returns the report of the most recent finished session.
func (s *Scheduler) LastReport() *model.RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

func (s *Scheduler) runSession(trigger string) bool {
	if !s.running.TryLock() {
		s.log.WithField("trigger", trigger).Warn("session already running, skipped")
		return false
	}
	defer s.running.Unlock()

	log := s.log.WithField("trigger", trigger)
	rep, err := s.Runner.Run(s.Ctx, s.Symbols)
	if err != nil {
		log.WithError(err).Warn("session interrupted")
	}
	if rep == nil {
		return true
	}

	s.mu.Lock()
	s.last = rep
	s.mu.Unlock()

	if err := s.Recorder.RecordRun(rep); err != nil {
		log.WithError(err).Error("record run")
	}
	if notifier.NeedsAttention(rep) {
		s.trySend(notifier.FormatSessionReport(rep))
	}
	return true
}

// HandleCommand processes a Telegram command and returns a reply.
func (s *Scheduler) HandleCommand(cmd string) string {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return ""
	}
	// Strip "@botname" suffixes used in group chats.
	name, _, _ := strings.Cut(fields[0], "@")

	switch name {
	case "/run":
		go s.RunNow()
		return "⏳ 已开始采集，完成后推送结果"
	case "/status":
		return notifier.FormatStatus(s.LastReport(), s.Next())
	case "/help", "/start":
		return notifier.FormatHelp()
	default:
		return "未知命令，输入 /help 查看可用命令"
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.Notify(s.Ctx, text); err != nil {
		s.log.WithError(err).Error("send notification")
	}
}
