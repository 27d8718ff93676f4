package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli"

	"QuoteHarvester/internal/collector"
	"QuoteHarvester/internal/config"
	"QuoteHarvester/internal/logger"
	"QuoteHarvester/internal/model"
	"QuoteHarvester/internal/notifier"
	"QuoteHarvester/internal/poller"
	"QuoteHarvester/internal/recorder"
	"QuoteHarvester/internal/scheduler"
	"QuoteHarvester/internal/session"
	"QuoteHarvester/internal/store"
	"QuoteHarvester/internal/universe"
)

var log = logger.GetLogger().WithComponent("main")

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("load .env")
	}

	app := cli.NewApp()
	app.Name = "harvester"
	app.Usage = "poll end-of-day quotes and keep per-symbol daily series"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Value:  "configs/config.yaml",
			Usage:  "path to the YAML config file",
			EnvVar: "CONFIG_PATH",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "run one session now and exit",
			Action: runOnce,
		},
		{
			Name:   "serve",
			Usage:  "run sessions on the configured schedule",
			Action: serve,
		},
		{
			Name:      "show",
			Usage:     "print a symbol's stored series",
			ArgsUsage: "<code>",
			Action:    show,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("harvester failed")
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	l := cfg.Logging
	if err := logger.GetLogger().Configure(l.Level, l.Format, l.Output, l.MaxAgeDays); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	return cfg, nil
}

// deps bundles everything a session needs.
type deps struct {
	cfg      *config.Config
	symbols  []model.Symbol
	runner   *session.Runner
	recorder recorder.Recorder
	notifier notifier.Notifier
	telegram *notifier.TelegramNotifier
}

func build(cfg *config.Config) (*deps, error) {
	symbols, err := universe.Load(cfg.Universe.File)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	symbols = universe.Filter(symbols, cfg.Universe.Allow)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("allow-list %v matches no symbol in %s", cfg.Universe.Allow, cfg.Universe.File)
	}

	ds := cfg.DataSource
	mis := collector.NewMISSource(ds.BaseURL, cfg.Proxy, ds.RequestTimeout)
	mis.MaxSymbolsPerRequest = ds.MaxSymbolsPerRequest
	mis.MaxConcurrency = ds.MaxConcurrency
	if ds.UserAgent != "" {
		mis.UserAgent = ds.UserAgent
	}
	src := collector.WithMinInterval(mis, ds.MinRequestInterval)
	log.WithFields(logger.Fields{"source": src.Name(), "symbols": len(symbols)}).Info("data source ready")

	p := poller.New(src, nil, poller.Config{
		RetryInterval: cfg.Polling.RetryInterval,
		Deadline:      cfg.Polling.BatchDeadline,
		CallTimeout:   ds.RequestTimeout,
	})
	a := &deps{
		cfg:     cfg,
		symbols: symbols,
		runner:  session.NewRunner(p, store.NewFileStore(cfg.Storage.SeriesDir), cfg.Polling.BatchSize, nil),
	}

	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.WithError(err).Warn("init sqlite recorder failed, using noop")
			a.recorder = recorder.NewNoopRecorder()
		} else {
			a.recorder = sr
		}
	} else {
		a.recorder = recorder.NewNoopRecorder()
	}

	if cfg.Telegram.BotToken != "" {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		a.notifier = a.telegram
	} else {
		a.notifier = notifier.NoopNotifier{}
	}
	return a, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runOnce(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	a, err := build(cfg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer a.recorder.Close()

	ctx, cancel := signalContext()
	defer cancel()

	rep, err := a.runner.Run(ctx, a.symbols)
	if err != nil {
		log.WithError(err).Warn("session interrupted")
	}
	if err := a.recorder.RecordRun(rep); err != nil {
		log.WithError(err).Error("record run")
	}
	if notifier.NeedsAttention(rep) {
		if err := a.notifier.Notify(context.Background(), notifier.FormatSessionReport(rep)); err != nil {
			log.WithError(err).Error("send notification")
		}
	}
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	a, err := build(cfg)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer a.recorder.Close()

	loc, err := cfg.Location()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	sched := scheduler.NewScheduler(ctx, a.runner, a.symbols, a.notifier, a.recorder, loc)
	if err := sched.Register(cfg.Schedule.SessionCron); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	sched.Start()
	defer sched.Stop()

	if a.telegram != nil {
		go a.telegram.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, running a session now")
		go sched.RunNow()
	}

	log.Info("harvester is running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info("shutdown signal received, stopping")
	return nil
}

func show(c *cli.Context) error {
	code := c.Args().First()
	if code == "" {
		return cli.NewExitError("usage: harvester show <code>", 2)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	series, err := store.NewFileStore(cfg.Storage.SeriesDir).Load(code)
	if err != nil {
		log.WithError(err).Warn("stored series unreadable")
	}
	enc := json.NewEncoder(os.Stdout)
	for _, row := range series {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}
