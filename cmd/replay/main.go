package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"rails/internal/app"
	"rails/internal/bot"
	"rails/internal/config"
	"rails/internal/domain"
	"rails/internal/ports"
	"rails/internal/ports/memory"
	"rails/internal/ports/postgres"
	"rails/internal/ruleset"
)

type options struct {
	ConfigPath string
	ScriptPath string
	GameID     string
	Resume     bool
	Undo       int
	Bots       bool
	Limit      int
	KeepGoing  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.ConfigPath, "config", "data/game.yaml", "path to game config")
	flag.StringVar(&opts.ScriptPath, "script", "", "path to a YAML action script")
	flag.StringVar(&opts.GameID, "game", "", "game id (default: a fresh uuid)")
	flag.BoolVar(&opts.Resume, "resume", false, "rebuild the game from its change log before playing")
	flag.IntVar(&opts.Undo, "undo", -1, "with -resume, keep only the first N recorded actions")
	flag.BoolVar(&opts.Bots, "bots", false, "let the configured bots play after the script")
	flag.IntVar(&opts.Limit, "limit", 1000, "maximum number of bot moves (0 means no limit)")
	flag.BoolVar(&opts.KeepGoing, "keep-going", false, "skip rejected script actions instead of stopping")
	flag.Parse()

	cfg, err := config.LoadAndValidate(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	changes, closeChanges, err := openChangeLog(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open change log", zap.Error(err))
	}
	defer closeChanges()

	g, err := run(ctx, cfg, opts, changes, logger)
	if err != nil {
		logger.Fatal("replay failed", zap.Error(err))
	}
	report(g, logger)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging level: %w", err)
	}
	zc.Level = level
	return zc.Build()
}

// openChangeLog uses postgres when a database is configured and memory otherwise.
func openChangeLog(ctx context.Context, cfg *config.GameConfig, logger *zap.Logger) (ports.ChangeLog, func(), error) {
	if !cfg.Database.Enabled() {
		logger.Info("no database configured, recording to memory")
		return memory.NewChangeLog(), func() {}, nil
	}

	logger.Info("connecting to database",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.Name),
	)
	pool, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	changes := postgres.NewChangeLog(pool)
	if err := changes.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return changes, pool.Close, nil
}

// run builds or restores the game, feeds it the script and then lets bots play.
func run(ctx context.Context, cfg *config.GameConfig, opts options, changes ports.ChangeLog, logger *zap.Logger) (*app.Game, error) {
	rs, err := ruleset.Load(cfg, func(err error) {
		logger.Error("ruleset callback failed", zap.Error(err))
	})
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	signer := app.NewResultSigner(cfg.Results.Secret, cfg.Results.Issuer, cfg.Results.TTL)
	svc := app.NewService(logger, cfg, rs.Policy, changes, signer)

	var g *app.Game
	switch {
	case opts.Resume && opts.Undo >= 0:
		g, err = svc.Rewind(ctx, opts.GameID, nil, opts.Undo)
	case opts.Resume:
		g, err = svc.Replay(ctx, opts.GameID, nil)
	default:
		var events []app.Event
		g, events, err = svc.NewGame(opts.GameID)
		logEvents(logger, events)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("game ready",
		zap.String("game_id", g.ID()),
		zap.String("round", string(g.Round().Kind)),
		zap.String("turn", g.Turn()),
	)

	if opts.ScriptPath != "" {
		script, err := loadScript(opts.ScriptPath)
		if err != nil {
			return nil, err
		}
		if err := playScript(ctx, svc, g, script, opts.KeepGoing, logger); err != nil {
			return g, err
		}
	}

	if opts.Bots && !g.Over() {
		agents, err := bot.NewAgents(cfg.Bots)
		if err != nil {
			return g, err
		}
		submit := func(a domain.Action) ([]app.Event, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			events, err := svc.Submit(ctx, g, a)
			logEvents(logger, events)
			return events, err
		}
		moves, _, err := bot.Autoplay(g, submit, agents, opts.Limit)
		logger.Info("bots finished", zap.Int("moves", moves), zap.Int("agents", len(agents)))
		if err != nil {
			return g, err
		}
	}
	return g, nil
}

func playScript(ctx context.Context, svc *app.Service, g *app.Game, script Script, keepGoing bool, logger *zap.Logger) error {
	for i, a := range script.Actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		events, err := svc.Submit(ctx, g, a)
		logEvents(logger, events)
		if err == nil {
			continue
		}
		if kind, ok := domain.KindOf(err); ok && keepGoing {
			logger.Warn("action rejected",
				zap.Int("index", i),
				zap.String("kind", string(a.Kind)),
				zap.String("actor", a.Actor),
				zap.String("reason", string(kind)),
				zap.Error(err),
			)
			continue
		}
		return fmt.Errorf("actions[%d] %s by %s: %w", i, a.Kind, a.Actor, err)
	}
	return nil
}

func logEvents(logger *zap.Logger, events []app.Event) {
	for _, ev := range events {
		logger.Debug("event", zap.String("kind", string(ev.Kind)), zap.Any("payload", ev.Payload))
	}
}

func report(g *app.Game, logger *zap.Logger) {
	res, ok := g.Result()
	if !ok {
		logger.Info("game in progress",
			zap.String("game_id", g.ID()),
			zap.String("round", string(g.Round().Kind)),
			zap.String("turn", g.Turn()),
		)
		return
	}
	logger.Info("game over", zap.String("game_id", g.ID()), zap.String("reason", res.Reason))
	for _, s := range res.Standings {
		logger.Info("standing",
			zap.Int("rank", s.Rank),
			zap.String("participant", s.Participant),
			zap.Int64("total", s.Total),
			zap.Bool("bankrupt", s.Bankrupt),
		)
	}
	if res.Token != "" {
		fmt.Println(res.Token)
	}
}
