package app

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"rails/internal/ports"
)

// GameContext carries the collaborators of one game. Every component receives it explicitly.
type GameContext struct {
	ID     string
	Logger *zap.Logger

	Ledger       ports.Ledger
	Certificates ports.CertificateStore
	Companies    ports.CompanyRegistry
	Market       ports.ShareMarket
	Resources    ports.ResourcePool
}

// Bank is a single collaborator implementing every port, like memory.Bank.
type Bank interface {
	ports.Ledger
	ports.CertificateStore
	ports.CompanyRegistry
	ports.ShareMarket
	ports.ResourcePool
}

// NewGameContext wires every port to bank. An empty id gets a fresh uuid.
func NewGameContext(id string, logger *zap.Logger, bank Bank) GameContext {
	if id == "" {
		id = uuid.NewString()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return GameContext{
		ID:           id,
		Logger:       logger.With(zap.String("game_id", id)),
		Ledger:       bank,
		Certificates: bank,
		Companies:    bank,
		Market:       bank,
		Resources:    bank,
	}
}
