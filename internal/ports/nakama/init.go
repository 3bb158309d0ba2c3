package nakama

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/heroiclabs/nakama-common/runtime"
	"go.uber.org/zap/zapcore"

	"rails/internal/app"
	"rails/internal/bot"
	"rails/internal/config"
	"rails/internal/ruleset"
)

// Module is everything the match handler and RPCs share for the lifetime of the plugin. Rulesets
// are not shared: a scripted one owns a Lua state, so each match loads its own.
type Module struct {
	Config  *config.GameConfig
	Signer  *app.ResultSigner
	Roster  *bot.Roster
	Level   zapcore.Level

	BotsEnabled bool
	BotMinDelay int
	BotMaxDelay int
}

// InitModule wires RPCs and match handlers for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)

	mod, err := LoadModule(env, logger)
	if err != nil {
		return err
	}
	if mod.BotsEnabled {
		mod.Roster.Provision(ctx, nk, logger)
	}

	if err := RegisterRPCs(initializer, mod); err != nil {
		return err
	}
	if err := initializer.RegisterMatch(MatchNameRails, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(mod), nil
	}); err != nil {
		return err
	}

	logger.Info("Rails Go module loaded (ruleset %s).", mod.Config.Ruleset.Name)
	return nil
}

// LoadModule reads the game config, ruleset and bot roster named by the runtime environment.
func LoadModule(env map[string]string, logger runtime.Logger) (*Module, error) {
	path := envOr(env, EnvConfigPath, defaultConfigPath)
	cfg, err := config.LoadAndValidate(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return NewModule(cfg, env, logger)
}

// NewModule builds a Module from an already validated config.
func NewModule(cfg *config.GameConfig, env map[string]string, logger runtime.Logger) (*Module, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	mod := &Module{
		Config:      cfg,
		Signer:      app.NewResultSigner(cfg.Results.Secret, cfg.Results.Issuer, cfg.Results.TTL),
		Level:       level,
		BotsEnabled: env[EnvBotsEnabled] == "true",
		BotMinDelay: envInt(env, EnvBotMinDelay, defaultBotMinDelay),
		BotMaxDelay: envInt(env, EnvBotMaxDelay, defaultBotMaxDelay),
	}
	if mod.BotMaxDelay < mod.BotMinDelay {
		mod.BotMaxDelay = mod.BotMinDelay
	}

	// fail at startup rather than on the first match
	rs, err := mod.LoadRuleset(logger)
	if err != nil {
		return nil, err
	}
	rs.Close()

	if mod.BotsEnabled {
		roster, err := bot.LoadRoster(envOr(env, EnvBotsPath, defaultBotsPath))
		if err != nil {
			logger.Warn("Could not load bot identities: %v", err)
		}
		mod.Roster = roster
	}
	return mod, nil
}

// LoadRuleset builds a fresh ruleset for one match. The caller closes it when the match ends.
func (m *Module) LoadRuleset(logger runtime.Logger) (*ruleset.Ruleset, error) {
	rs, err := ruleset.Load(m.Config, func(err error) {
		logger.Error("ruleset callback failed: %v", err)
	})
	if err != nil {
		return nil, fmt.Errorf("load ruleset: %w", err)
	}
	return rs, nil
}

func envOr(env map[string]string, key, fallback string) string {
	if v, ok := env[key]; ok && v != "" {
		return v
	}
	return fallback
}

func envInt(env map[string]string, key string, fallback int) int {
	if v, ok := env[key]; ok {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
	}
	return fallback
}
