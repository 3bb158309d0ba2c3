package config

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var knownRulesets = map[string]bool{"standard": true, "starter_fallback": true, "lua": true}

// Validate checks that all required fields are set and values are consistent.
func (c *GameConfig) Validate() error {
	if err := c.validateParticipants(); err != nil {
		return err
	}
	if c.StartingCash < 0 || c.BankCash < 0 {
		return errors.New("starting_cash and bank_cash must be >= 0")
	}
	if err := c.validateAuction(); err != nil {
		return err
	}

	companies := make(map[string]bool, len(c.Companies))
	for i, co := range c.Companies {
		prefix := fmt.Sprintf("companies[%d]", i)
		if co.ID == "" {
			return fmt.Errorf("%s.id is required", prefix)
		}
		if companies[co.ID] {
			return fmt.Errorf("%s.id %q is duplicated", prefix, co.ID)
		}
		companies[co.ID] = true
		if co.Par <= 0 {
			return fmt.Errorf("%s.par must be > 0", prefix)
		}
		if co.FloatPercent < 1 || co.FloatPercent > 100 {
			return fmt.Errorf("%s.float_percent must be between 1 and 100, got %d", prefix, co.FloatPercent)
		}
	}

	if err := c.validatePackets(companies); err != nil {
		return err
	}
	if err := c.validateResources(); err != nil {
		return err
	}

	if c.Operating.RoundsPerSequence < 1 {
		return errors.New("operating.rounds_per_sequence must be >= 1")
	}
	if c.Operating.FinalBound < 0 {
		return errors.New("operating.final_bound must be >= 0")
	}

	if !knownRulesets[c.Ruleset.Name] {
		return fmt.Errorf("ruleset.name %q is unknown", c.Ruleset.Name)
	}
	if c.Ruleset.Name == "lua" && c.Ruleset.Script == "" {
		return errors.New("ruleset.script is required for the lua ruleset")
	}
	if c.Results.Secret == "" {
		return errors.New("results.secret is required")
	}

	if c.Database.Enabled() {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}
	if c.Match.MinSeats < 2 || c.Match.MaxSeats < c.Match.MinSeats {
		return fmt.Errorf("match seats must satisfy 2 <= min_seats <= max_seats, got %d..%d", c.Match.MinSeats, c.Match.MaxSeats)
	}
	return nil
}

func (c *GameConfig) validateParticipants() error {
	seen := make(map[string]bool, len(c.Participants))
	for _, p := range c.Participants {
		if p == "" {
			return errors.New("participants must not contain empty ids")
		}
		if seen[p] {
			return fmt.Errorf("participant %q is duplicated", p)
		}
		seen[p] = true
	}
	for p := range c.Bots {
		if len(c.Participants) > 0 && !seen[p] {
			return fmt.Errorf("bots.%s is not a participant", p)
		}
	}
	return nil
}

func (c *GameConfig) validateAuction() error {
	a := c.Auction
	if a.Increment < 1 {
		return errors.New("auction.increment must be >= 1")
	}
	if a.Decrement < 0 || a.Floor < 0 {
		return errors.New("auction.decrement and auction.floor must be >= 0")
	}
	pct, err := c.ReductionPercent()
	if err != nil {
		return err
	}
	if pct.IsNegative() || pct.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return fmt.Errorf("auction.decrement_percent must be in [0, 100), got %s", pct)
	}
	if a.Fallback != "priority_holder" && a.Fallback != "cycle_starter" {
		return fmt.Errorf("auction.fallback %q must be priority_holder or cycle_starter", a.Fallback)
	}
	return nil
}

// ReductionPercent parses auction.decrement_percent; empty means zero.
func (c *GameConfig) ReductionPercent() (decimal.Decimal, error) {
	if c.Auction.DecrementPercent == "" {
		return decimal.Zero, nil
	}
	pct, err := decimal.NewFromString(c.Auction.DecrementPercent)
	if err != nil {
		return decimal.Zero, fmt.Errorf("auction.decrement_percent: %w", err)
	}
	return pct, nil
}

func (c *GameConfig) validatePackets(companies map[string]bool) error {
	items := make(map[string]bool)
	for i, p := range c.Packets {
		if len(p.Items) == 0 {
			return fmt.Errorf("packets[%d] has no items", i)
		}
		for j, it := range p.Items {
			prefix := fmt.Sprintf("packets[%d].items[%d]", i, j)
			if it.ID == "" {
				return fmt.Errorf("%s.id is required", prefix)
			}
			if items[it.ID] {
				return fmt.Errorf("%s.id %q is duplicated", prefix, it.ID)
			}
			items[it.ID] = true
			if it.Price < 0 {
				return fmt.Errorf("%s.price must be >= 0", prefix)
			}
			if it.Increment < 1 {
				return fmt.Errorf("%s.increment must be >= 1", prefix)
			}
			for _, ref := range []string{it.Company, it.Exchange} {
				if ref != "" && !companies[ref] {
					return fmt.Errorf("%s refers to unknown company %q", prefix, ref)
				}
			}
		}
	}
	return nil
}

func (c *GameConfig) validateResources() error {
	if c.Resources.HolderLimit < 0 {
		return errors.New("resources.holder_limit must be >= 0")
	}
	names := make(map[string]bool, len(c.Resources.Types))
	regular := 0
	for i, t := range c.Resources.Types {
		prefix := fmt.Sprintf("resources.types[%d]", i)
		if t.Name == "" {
			return fmt.Errorf("%s.name is required", prefix)
		}
		if names[t.Name] {
			return fmt.Errorf("%s.name %q is duplicated", prefix, t.Name)
		}
		if t.Count < 1 {
			return fmt.Errorf("%s.count must be >= 1", prefix)
		}
		if t.Price < 0 {
			return fmt.Errorf("%s.price must be >= 0", prefix)
		}
		if t.Rusts != "" && !names[t.Rusts] {
			return fmt.Errorf("%s.rusts %q must name an earlier type", prefix, t.Rusts)
		}
		names[t.Name] = true
		if !t.Exempt {
			regular++
		}
	}
	if len(c.Resources.Types) > 0 && regular == 0 {
		return errors.New("resources.types needs at least one non-exempt type")
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
