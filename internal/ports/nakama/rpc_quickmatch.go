package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"
)

// QuickMatchResponse is the payload returned to clients when requesting a lobby-capable match.
type QuickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer, mod *Module) error {
	if err := initializer.RegisterRpc(RpcQuickMatch, rpcQuickMatch(mod)); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcVerifyResult, rpcVerifyResult(mod)); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcGameLog, rpcGameLog)
}

type rpcFunc func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error)

func rpcQuickMatch(mod *Module) rpcFunc {
	return func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
		// Find any match that is open and is our game.
		query := "+label.open:>=1 +label.game:" + matchLabelGame + " +label.state:" + matchLabelLobby

		limit := 10
		authoritative := true
		minSize := 1
		maxSize := mod.Config.Match.MaxSeats - 1

		matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
		if err != nil {
			logger.Error("MatchList error: %v", err)
			return "", err
		}

		if len(matches) > 0 {
			b, _ := json.Marshal(QuickMatchResponse{MatchID: matches[0].MatchId, IsNew: false})
			return string(b), nil
		}

		// Create new match; seat/owner assignment happens in MatchJoin (server-authoritative).
		matchID, err := nk.MatchCreate(ctx, MatchNameRails, map[string]interface{}{})
		if err != nil {
			logger.Error("MatchCreate error: %v", err)
			return "", err
		}

		b, _ := json.Marshal(QuickMatchResponse{MatchID: matchID, IsNew: true})
		return string(b), nil
	}
}
