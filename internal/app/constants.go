package app

// MinParticipants and MaxParticipants bound the seats of a game.
// Keep them centralized so the match handler and the config loader agree on the rule.
const (
	MinParticipants = 2
	MaxParticipants = 6
)
