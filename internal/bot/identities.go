package bot

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/heroiclabs/nakama-common/runtime"
	"gopkg.in/yaml.v3"
)

// Identity is the account a bot plays under.
type Identity struct {
	DeviceID    string `yaml:"device_id"`
	UserID      string `yaml:"user_id"`
	Username    string `yaml:"username"`
	DisplayName string `yaml:"display_name"`
	Level       Level  `yaml:"level"`
}

// Roster is the pool of bot identities loaded from a file.
type Roster struct {
	mu         sync.RWMutex
	identities []Identity
	byUserID   map[string]Identity
}

// LoadRoster reads bot identities from a YAML file.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bot identities: %w", err)
	}
	return ParseRoster(data)
}

// ParseRoster decodes bot identities from YAML.
func ParseRoster(data []byte) (*Roster, error) {
	var ids []Identity
	if err := yaml.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bot identities: %w", err)
	}
	r := &Roster{byUserID: make(map[string]Identity)}
	for _, id := range ids {
		level, err := ParseLevel(string(id.Level))
		if err != nil {
			return nil, fmt.Errorf("bot %s: %w", id.Username, err)
		}
		id.Level = level
		r.identities = append(r.identities, id)
		if id.UserID != "" {
			r.byUserID[id.UserID] = id
		}
	}
	return r, nil
}

// Provision ensures that bot accounts exist in the Nakama database and carry the is_bot metadata.
func (r *Roster) Provision(ctx context.Context, nk runtime.NakamaModule, logger runtime.Logger) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.identities {
		id := &r.identities[i]
		if id.DeviceID == "" {
			continue
		}
		userID, username, _, err := nk.AuthenticateDevice(ctx, id.DeviceID, id.Username, true)
		if err != nil {
			logger.Error("Provision: failed to authenticate bot %s: %v", id.Username, err)
			continue
		}
		id.UserID = userID
		id.Username = username

		metadata := map[string]interface{}{
			"is_bot": true,
			"level":  string(id.Level),
		}
		if err := nk.AccountUpdateId(ctx, userID, id.Username, metadata, id.DisplayName, "", "", "", ""); err != nil {
			logger.Warn("Provision: failed to update bot account %s: %v", userID, err)
		}
		r.byUserID[userID] = *id
		logger.Info("Provision: bot %s (%s) is ready, level %s", id.DisplayName, userID, id.Level)
	}
}

// Get returns an identity by index (mod pool size). An empty roster yields a synthetic one.
func (r *Roster) Get(index int) Identity {
	if r == nil {
		return syntheticIdentity(index)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.identities) == 0 {
		return syntheticIdentity(index)
	}
	id := r.identities[index%len(r.identities)]
	if id.UserID == "" {
		id.UserID = fmt.Sprintf("bot-%d", index)
	}
	return id
}

// IsBot reports whether the given user ID belongs to the provisioned pool.
func (r *Roster) IsBot(userID string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUserID[userID]
	return ok
}

func syntheticIdentity(index int) Identity {
	return Identity{
		UserID:      fmt.Sprintf("bot-%d", index),
		Username:    fmt.Sprintf("bot%d", index),
		DisplayName: fmt.Sprintf("Bot %d", index),
		Level:       LevelValue,
	}
}
