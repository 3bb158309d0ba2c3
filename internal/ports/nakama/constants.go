package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby-capable match.
	RpcQuickMatch = "quick_match"
	// RpcVerifyResult checks a signed result token handed out at the end of a game.
	RpcVerifyResult = "verify_result"
	// RpcGameLog returns the recorded actions of a game.
	RpcGameLog = "game_log"

	// MatchNameRails is the authoritative match handler name registered with Nakama.
	MatchNameRails = "rails_match"

	// ChangeLogCollection is the storage collection holding one change log object per game.
	ChangeLogCollection = "rails_change_log"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartGame      int64 = 1
	OpSubmitAction   int64 = 2
	OpRequestActions int64 = 3

	// Server -> Client
	OpMatchState   int64 = 101
	OpGameEvent    int64 = 102
	OpLegalActions int64 = 103 // sent privately to the participant to act
	OpGameError    int64 = 104 // sent privately
)

// Runtime environment keys read at init.
const (
	EnvConfigPath       = "rails_config"
	EnvBotsPath         = "rails_bots"
	EnvBotsEnabled      = "rails_bots_enabled"
	EnvBotMinDelay      = "rails_bot_min_delay_sec"
	EnvBotMaxDelay      = "rails_bot_max_delay_sec"
	defaultConfigPath   = "data/game.yaml"
	defaultBotsPath     = "data/bots.yaml"
	defaultBotMinDelay  = 1
	defaultBotMaxDelay  = 3
	matchLabelGame      = "rails"
	matchLabelLobby     = "lobby"
	matchLabelPlaying   = "playing"
	matchTickRate       = 1
	errorCodeRejected   = 400
	errorCodeBadRequest = 422
	errorCodeInternal   = 500
)
