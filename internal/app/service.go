package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"rails/internal/config"
	"rails/internal/domain"
	"rails/internal/ports"
	"rails/internal/ports/memory"
)

// ErrNotRecorded marks a game whose state moved past its change log. It accepts no further actions.
var ErrNotRecorded = errors.New("action applied but not recorded")

// Service contains the game use-cases: creating games from a variant config, recording accepted
// actions and rebuilding games from the change log.
type Service struct {
	log     *zap.Logger
	cfg     *config.GameConfig
	policy  domain.RulesetPolicy
	changes ports.ChangeLog
	signer  *ResultSigner

	unrecorded map[string]error // game id -> append failure
}

// NewService builds a Service. changes and signer may be nil.
func NewService(log *zap.Logger, cfg *config.GameConfig, policy domain.RulesetPolicy, changes ports.ChangeLog, signer *ResultSigner) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{log: log, cfg: cfg, policy: policy, changes: changes, signer: signer, unrecorded: make(map[string]error)}
}

// NewGame creates and starts a game over a fresh in-memory bank. An empty id gets a fresh uuid.
func (s *Service) NewGame(id string) (*Game, []Event, error) {
	return s.NewGameWith(id, s.cfg.Participants)
}

// NewGameWith is NewGame with the seats filled by participants instead of the configured ones.
func (s *Service) NewGameWith(id string, participants []string) (*Game, []Event, error) {
	setup := SetupFromConfig(s.cfg, s.policy)
	setup.Participants = append([]string(nil), participants...)
	bankSetup := BankSetup(s.cfg)
	bankSetup.Participants = setup.Participants

	ctx := NewGameContext(id, s.log, memory.NewBank(bankSetup))
	g, err := NewGame(ctx, setup, s.signer)
	if err != nil {
		return nil, nil, err
	}
	evs, err := g.Start()
	if err != nil {
		return nil, nil, err
	}
	return g, evs, nil
}

// Submit applies an action and appends it to the change log once accepted. When the append fails
// the events are still returned with an error wrapping ErrNotRecorded, and the game is refused
// from then on.
func (s *Service) Submit(ctx context.Context, g *Game, a domain.Action) ([]Event, error) {
	if cause, ok := s.unrecorded[g.ID()]; ok {
		return nil, fmt.Errorf("%w: %v", ErrNotRecorded, cause)
	}
	evs, err := g.Submit(a)
	if err != nil {
		return nil, err
	}
	if s.changes == nil {
		return evs, nil
	}
	if _, err := s.changes.Append(ctx, g.ID(), a); err != nil {
		s.log.Error("failed to record action", zap.String("game_id", g.ID()), zap.Error(err))
		s.unrecorded[g.ID()] = err
		return evs, fmt.Errorf("%w: %v", ErrNotRecorded, err)
	}
	return evs, nil
}

// Replay rebuilds a game from its change log.
func (s *Service) Replay(ctx context.Context, id string, participants []string) (*Game, error) {
	if s.changes == nil {
		return nil, errors.New("no change log configured")
	}
	entries, err := s.changes.Entries(ctx, id)
	if err != nil && !errors.Is(err, ports.ErrGameNotFound) {
		return nil, fmt.Errorf("load change log: %w", err)
	}
	if participants == nil {
		participants = s.cfg.Participants
	}
	g, _, err := s.NewGameWith(id, participants)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if _, err := g.Submit(e.Action); err != nil {
			return nil, fmt.Errorf("replay entry %d (%s by %s): %w", e.Seq, e.Action.Kind, e.Action.Actor, err)
		}
	}
	s.log.Debug("game replayed", zap.String("game_id", id), zap.Int("actions", len(entries)))
	return g, nil
}

// Rewind undoes every action after the first keep and returns the rebuilt game.
func (s *Service) Rewind(ctx context.Context, id string, participants []string, keep int) (*Game, error) {
	if s.changes == nil {
		return nil, errors.New("no change log configured")
	}
	if keep < 0 {
		return nil, fmt.Errorf("cannot keep %d actions", keep)
	}
	if err := s.changes.Truncate(ctx, id, keep); err != nil {
		return nil, fmt.Errorf("truncate change log: %w", err)
	}
	return s.Replay(ctx, id, participants)
}
