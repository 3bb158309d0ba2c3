package app

import (
	"rails/internal/config"
	"rails/internal/domain"
	"rails/internal/ports/memory"
)

// Setup is the static description of a game variant the Game is built from.
type Setup struct {
	Participants []string
	Items        []domain.Item
	ItemCompany  map[string]string // item -> company whose share comes with it
	ItemExchange map[string]string // item -> company it can be exchanged into

	Resources       []domain.ResourceType
	HolderLimit     int
	OperatingRounds int

	FinalBound      int
	FinalExchange   bool
	MustOwnResource bool

	Policy domain.RulesetPolicy
}

// SetupFromConfig converts a loaded config into a Setup running under policy.
func SetupFromConfig(cfg *config.GameConfig, policy domain.RulesetPolicy) Setup {
	s := Setup{
		Participants:    append([]string(nil), cfg.Participants...),
		ItemCompany:     make(map[string]string),
		ItemExchange:    make(map[string]string),
		HolderLimit:     cfg.Resources.HolderLimit,
		OperatingRounds: cfg.Operating.RoundsPerSequence,
		FinalBound:      cfg.Operating.FinalBound,
		FinalExchange:   cfg.Operating.FinalExchange,
		MustOwnResource: cfg.Operating.MustOwnResource,
		Policy:          policy,
	}

	for packet, pc := range cfg.Packets {
		for _, ic := range pc.Items {
			inc := ic.Increment
			if inc <= 0 {
				inc = cfg.Auction.Increment
			}
			item := domain.Item{
				ID:        ic.ID,
				Packet:    packet,
				BasePrice: ic.Price,
				Increment: inc,
				Requires:  domain.Token(pc.Requires),
			}
			for _, r := range ic.Rights {
				item.Rights.Add(domain.Token(r))
			}
			s.Items = append(s.Items, item)
			if ic.Company != "" {
				s.ItemCompany[ic.ID] = ic.Company
			}
			if ic.Exchange != "" {
				s.ItemExchange[ic.ID] = ic.Exchange
			}
		}
	}

	for _, rc := range cfg.Resources.Types {
		rt := domain.ResourceType{
			Name:            rc.Name,
			Exempt:          rc.Exempt,
			HolderLimit:     rc.HolderLimit,
			OperatingRounds: rc.OperatingRounds,
			EndsOperating:   rc.EndsOperating,
			Rusts:           rc.Rusts,
		}
		for _, g := range rc.Grants {
			rt.Grants.Add(domain.Token(g))
		}
		s.Resources = append(s.Resources, rt)
	}
	return s
}

// BankSetup converts a loaded config into the in-memory bank setup.
func BankSetup(cfg *config.GameConfig) memory.Setup {
	s := memory.Setup{
		Participants: append([]string(nil), cfg.Participants...),
		StartingCash: cfg.StartingCash,
		BankCash:     cfg.BankCash,
		Ladder:       append([]int64(nil), cfg.Market.Ladder...),
	}
	for _, c := range cfg.Companies {
		s.Companies = append(s.Companies, memory.CompanySpec{
			ID:           c.ID,
			ParPrice:     c.Par,
			Shares:       c.Shares,
			FloatPercent: c.FloatPercent,
		})
	}
	for _, r := range cfg.Resources.Types {
		s.Resources = append(s.Resources, memory.ResourceSpec{Name: r.Name, Count: r.Count, Price: r.Price})
	}
	return s
}
