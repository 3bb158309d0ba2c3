// Package ruleset builds the RulesetPolicy a game variant runs under.
package ruleset

import (
	"fmt"
	"os"

	"rails/internal/config"
	"rails/internal/domain"
)

// Ruleset is a built policy plus whatever must be released when the game ends.
type Ruleset struct {
	Policy domain.RulesetPolicy
	close  func()
}

// Close releases the resources behind the policy, e.g. a Lua state.
func (r *Ruleset) Close() {
	if r.close != nil {
		r.close()
	}
}

// Load builds the ruleset named in the config. onError receives failures raised inside scripted
// callbacks, which then fall back to the default transition.
func Load(cfg *config.GameConfig, onError func(error)) (*Ruleset, error) {
	auction, err := AuctionConfig(cfg)
	if err != nil {
		return nil, err
	}

	var policy domain.RulesetPolicy
	switch cfg.Ruleset.Name {
	case "standard":
		policy = Standard(auction)
	case "starter_fallback":
		policy = StarterFallback(auction)
	case "lua":
		src, err := os.ReadFile(cfg.Ruleset.Script)
		if err != nil {
			return nil, fmt.Errorf("read ruleset script: %w", err)
		}
		lp, err := NewLuaPolicy(string(src), onError)
		if err != nil {
			return nil, err
		}
		policy = lp.Policy(Standard(auction))
		r := &Ruleset{Policy: policy, close: lp.Close}
		applyCommon(&r.Policy, cfg)
		return r, nil
	default:
		return nil, fmt.Errorf("unknown ruleset %q", cfg.Ruleset.Name)
	}
	applyCommon(&policy, cfg)
	return &Ruleset{Policy: policy}, nil
}

func applyCommon(p *domain.RulesetPolicy, cfg *config.GameConfig) {
	p.ReorderByCashAfterAuction = cfg.Ruleset.ReorderByCash
	p.BankruptcyEndsGame = !cfg.Ruleset.ContinueAfterBankruptcy
}

// AuctionConfig converts the auction section of the config.
func AuctionConfig(cfg *config.GameConfig) (domain.AuctionConfig, error) {
	pct, err := cfg.ReductionPercent()
	if err != nil {
		return domain.AuctionConfig{}, err
	}
	return domain.AuctionConfig{
		Reduction: domain.ReductionRule{
			Decrement: cfg.Auction.Decrement,
			Percent:   pct,
			Floor:     cfg.Auction.Floor,
			Fallback:  domain.FallbackRule(cfg.Auction.Fallback),
		},
		PassesPersist: cfg.Auction.PassesPersist,
	}, nil
}
