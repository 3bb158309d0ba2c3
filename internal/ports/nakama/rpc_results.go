package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/heroiclabs/nakama-common/runtime"

	"rails/internal/app"
	"rails/internal/ports"
)

const (
	codeInvalidArgument = 3
	codeNotFound        = 5
	codeUnauthenticated = 16
	codeInternal        = 13
)

// VerifyResultResponse echoes the standings a valid result token carries.
type VerifyResultResponse struct {
	GameID    string         `json:"game_id"`
	Ruleset   string         `json:"ruleset"`
	Standings []app.Standing `json:"standings"`
	ExpiresAt int64          `json:"expires_at"`
}

// rpcVerifyResult checks a signed result token.
// Payload: {"token": "..."}
func rpcVerifyResult(mod *Module) rpcFunc {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		var req struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal([]byte(payload), &req); err != nil || req.Token == "" {
			return "", runtime.NewError("token required", codeInvalidArgument)
		}

		claims, err := mod.Signer.Verify(req.Token)
		if err != nil {
			logger.Warn("verify_result: rejected token: %v", err)
			return "", runtime.NewError("invalid result token", codeUnauthenticated)
		}

		b, err := json.Marshal(VerifyResultResponse{
			GameID:    claims.Subject,
			Ruleset:   claims.Ruleset,
			Standings: claims.Standings,
			ExpiresAt: claims.ExpiresAt,
		})
		if err != nil {
			return "", runtime.NewError("internal error", codeInternal)
		}
		return string(b), nil
	}
}

// GameLogResponse lists the recorded actions of one game.
type GameLogResponse struct {
	GameID  string              `json:"game_id"`
	Entries []ports.ChangeEntry `json:"entries"`
}

// rpcGameLog returns the change log of a game.
// Payload: {"game_id": "..."}
func rpcGameLog(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req struct {
		GameID string `json:"game_id"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil || req.GameID == "" {
		return "", runtime.NewError("game_id required", codeInvalidArgument)
	}

	entries, err := NewStorageChangeLog(nk).Entries(ctx, req.GameID)
	if errors.Is(err, ports.ErrGameNotFound) {
		return "", runtime.NewError("game not found", codeNotFound)
	}
	if err != nil {
		logger.Error("game_log: %v", err)
		return "", runtime.NewError("internal error", codeInternal)
	}

	b, err := json.Marshal(GameLogResponse{GameID: req.GameID, Entries: entries})
	if err != nil {
		return "", runtime.NewError("internal error", codeInternal)
	}
	return string(b), nil
}
