package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultIncrement               = 5
	DefaultFallback                = "priority_holder"
	DefaultRoundsPerSequence       = 1
	DefaultFinalBound              = 1
	DefaultShares                  = 10
	DefaultFloatPercent            = 60
	DefaultRuleset                 = "standard"
	DefaultResultIssuer            = "rails"
	DefaultResultTTL               = 24 * time.Hour
	DefaultDBPort                  = 5432
	DefaultDBSSLMode               = "prefer"
	DefaultMaxConns                = 4
	DefaultMinConns                = 1
	DefaultLogLevel                = "info"
	DefaultMinSeats                = 2
	DefaultMaxSeats                = 6
	DefaultTurnDurationSeconds     = 60
	DefaultBotAutoFillDelaySeconds = 5
)

func (c *GameConfig) applyDefaults() {
	if c.Auction.Increment == 0 {
		c.Auction.Increment = DefaultIncrement
	}
	if c.Auction.Fallback == "" {
		c.Auction.Fallback = DefaultFallback
	}
	for i := range c.Packets {
		for j := range c.Packets[i].Items {
			if c.Packets[i].Items[j].Increment == 0 {
				c.Packets[i].Items[j].Increment = c.Auction.Increment
			}
		}
	}

	if c.Operating.RoundsPerSequence == 0 {
		c.Operating.RoundsPerSequence = DefaultRoundsPerSequence
	}
	if c.Operating.FinalBound == 0 {
		c.Operating.FinalBound = DefaultFinalBound
	}

	for i := range c.Companies {
		if c.Companies[i].Shares == 0 {
			c.Companies[i].Shares = DefaultShares
		}
		if c.Companies[i].FloatPercent == 0 {
			c.Companies[i].FloatPercent = DefaultFloatPercent
		}
	}

	if c.Ruleset.Name == "" {
		c.Ruleset.Name = DefaultRuleset
	}
	if c.Results.Issuer == "" {
		c.Results.Issuer = DefaultResultIssuer
	}
	if c.Results.TTL == 0 {
		c.Results.TTL = DefaultResultTTL
	}

	if c.Database.Enabled() {
		if c.Database.Port == 0 {
			c.Database.Port = DefaultDBPort
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = DefaultDBSSLMode
		}
		if c.Database.MaxConns == 0 {
			c.Database.MaxConns = DefaultMaxConns
		}
		if c.Database.MinConns == 0 {
			c.Database.MinConns = DefaultMinConns
		}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}

	if c.Match.MinSeats == 0 {
		c.Match.MinSeats = DefaultMinSeats
	}
	if c.Match.MaxSeats == 0 {
		c.Match.MaxSeats = DefaultMaxSeats
	}
	if c.Match.TurnDurationSeconds == 0 {
		c.Match.TurnDurationSeconds = DefaultTurnDurationSeconds
	}
	if c.Match.BotAutoFillDelaySeconds == 0 {
		c.Match.BotAutoFillDelaySeconds = DefaultBotAutoFillDelaySeconds
	}
}
