package app

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"rails/internal/domain"
	"rails/internal/ports"
)

type exchangeState struct {
	turn string
	done map[string]bool
}

func (g *Game) startFinalExchange() {
	g.exchange = exchangeState{done: make(map[string]bool)}
	turn, ok := g.firstActive(g.priority.Holder())
	if !ok {
		g.complete()
		return
	}
	g.exchange.turn = turn
	g.emit(EventRoundStarted, RoundStartedPayload{Round: g.seq.Round(), Turn: turn})
}

func (g *Game) finalExchangeActions() []domain.Action {
	p := g.exchange.turn
	var out []domain.Action
	for _, item := range g.ctx.Certificates.Certificates(p) {
		company := g.setup.ItemExchange[item]
		if company != "" && g.ctx.Market.SharesHeld(ports.IPO, company) > 0 {
			out = append(out, domain.Action{Kind: domain.ActionExchange, Actor: p, Item: item, Company: company})
		}
	}
	return append(out, domain.Action{Kind: domain.ActionEndTurn, Actor: p})
}

func (g *Game) submitFinalExchange(a domain.Action) error {
	if a.Kind != domain.ActionExchange && a.Kind != domain.ActionEndTurn {
		return domain.Reject(domain.KindWrongRoundOrStep, "%s is not allowed in the final exchange", a.Kind)
	}
	if a.Actor != g.exchange.turn {
		return domain.Reject(domain.KindWrongTurnHolder, "%s is to act, not %s", g.exchange.turn, a.Actor)
	}

	if a.Kind == domain.ActionEndTurn {
		g.exchange.done[a.Actor] = true
		next, ok := g.priority.NextFrom(a.Actor, func(id string) bool {
			return g.bankrupt[id] || g.exchange.done[id]
		})
		if !ok {
			g.complete()
			return nil
		}
		g.exchange.turn = next
		g.emit(EventTurnChanged, TurnChangedPayload{Turn: next})
		return nil
	}

	if holder, ok := g.ctx.Certificates.Holder(a.Item); !ok || holder != a.Actor {
		return domain.Reject(domain.KindNotHeld, "%s does not hold %s", a.Actor, a.Item)
	}
	company := g.setup.ItemExchange[a.Item]
	if company == "" {
		return domain.Reject(domain.KindItemNotAuctionable, "%s cannot be exchanged", a.Item)
	}
	if g.ctx.Market.SharesHeld(ports.IPO, company) == 0 {
		return domain.Reject(domain.KindResourceUnavailable, "no IPO share of %s left", company)
	}
	if err := g.ctx.Certificates.Retire(a.Item); err != nil {
		return fmt.Errorf("exchange %s: %w", a.Item, err)
	}
	if err := g.ctx.Market.GrantShare(a.Actor, company); err != nil {
		return fmt.Errorf("exchange %s: %w", a.Item, err)
	}
	g.emit(EventItemExchanged, ItemExchangedPayload{Participant: a.Actor, Item: a.Item, Company: company})
	return nil
}

// Standings ranks participants by cash plus shares at market price. Equal totals share a rank.
func (g *Game) Standings() []Standing {
	companies := g.ctx.Companies.AllCompanies()
	out := make([]Standing, 0, len(g.setup.Participants))
	for _, p := range g.setup.Participants {
		s := Standing{Participant: p, Cash: g.ctx.Ledger.Cash(p), Bankrupt: g.bankrupt[p]}
		for _, c := range companies {
			s.ShareValue += int64(g.ctx.Market.SharesHeld(p, c.ID)) * g.ctx.Market.Price(c.ID)
		}
		s.Total = s.Cash + s.ShareValue
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	for i := range out {
		if i > 0 && out[i].Total == out[i-1].Total {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}
	return out
}

func (g *Game) finish(reason string) {
	if g.result != nil {
		return
	}
	if reason == "" {
		reason = "final sequence complete"
	}
	res := &GameResult{Reason: reason, Standings: g.Standings()}
	if g.signer != nil {
		token, err := g.signer.Sign(g.ctx.ID, g.setup.Policy.Name, res.Standings)
		if err != nil {
			g.ctx.Logger.Error("failed to sign results", zap.Error(err))
		} else {
			res.Token = token
		}
	}
	g.result = res
	g.emit(EventGameEnded, GameEndedPayload{Reason: reason, Standings: res.Standings, Token: res.Token})
	g.ctx.Logger.Info("game over", zap.String("reason", reason), zap.String("winner", res.Standings[0].Participant))
}
