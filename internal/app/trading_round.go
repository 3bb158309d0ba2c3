package app

import (
	"fmt"

	"go.uber.org/zap"

	"rails/internal/domain"
	"rails/internal/ports"
)

type tradingState struct {
	turn      string
	acted     bool // sold or bought during the current turn
	passes    int  // consecutive turns without a trade
	lastActor string
}

func (g *Game) startTrading() {
	if g.setup.Policy.ReorderByCashAfterAuction && !g.reordered {
		g.reordered = true
		g.priority.ReorderBy(g.ctx.Ledger.Cash, true)
		g.emit(EventPriorityChanged, PriorityChangedPayload{Holder: g.priority.Holder()})
	}
	g.trading = tradingState{}
	turn, ok := g.firstActive(g.priority.Holder())
	if !ok {
		g.endGame("no solvent participant left")
		return
	}
	g.trading.turn = turn
	g.emit(EventRoundStarted, RoundStartedPayload{Round: g.seq.Round(), Turn: turn})
}

// sharePrice returns what the next share of c costs: par from the IPO first, then market price
// from the pool.
func (g *Game) sharePrice(c ports.Company) (int64, bool) {
	switch {
	case g.ctx.Market.SharesHeld(ports.IPO, c.ID) > 0:
		return c.ParPrice, true
	case g.ctx.Market.SharesHeld(ports.Pool, c.ID) > 0:
		return g.ctx.Market.Price(c.ID), true
	}
	return 0, false
}

func (g *Game) tradingActions() []domain.Action {
	p := g.trading.turn
	var out []domain.Action
	companies := g.ctx.Companies.AllCompanies()
	for _, c := range companies {
		if g.ctx.Market.CanSell(p, c.ID) {
			out = append(out, domain.Action{Kind: domain.ActionSellShare, Actor: p, Company: c.ID})
		}
	}
	free := g.FreeCash(p)
	for _, c := range companies {
		if price, ok := g.sharePrice(c); ok && price <= free {
			out = append(out, domain.Action{Kind: domain.ActionBuyShare, Actor: p, Company: c.ID, Amount: price})
		}
	}
	if g.trading.acted {
		out = append(out, domain.Action{Kind: domain.ActionEndTurn, Actor: p})
	} else {
		out = append(out, domain.Action{Kind: domain.ActionPass, Actor: p})
	}
	return out
}

func (g *Game) submitTrading(a domain.Action) error {
	switch a.Kind {
	case domain.ActionSellShare, domain.ActionBuyShare, domain.ActionPass, domain.ActionEndTurn:
	default:
		return domain.Reject(domain.KindWrongRoundOrStep, "%s is not allowed while trading", a.Kind)
	}
	if a.Actor != g.trading.turn {
		return domain.Reject(domain.KindWrongTurnHolder, "%s is to act, not %s", g.trading.turn, a.Actor)
	}

	switch a.Kind {
	case domain.ActionSellShare:
		if !g.ctx.Market.CanSell(a.Actor, a.Company) {
			return domain.Reject(domain.KindNotHeld, "%s cannot sell a share of %s", a.Actor, a.Company)
		}
		price, err := g.ctx.Market.SellShare(a.Actor, a.Company)
		if err != nil {
			return fmt.Errorf("sell share: %w", err)
		}
		g.trading.acted = true
		g.trading.lastActor = a.Actor
		g.emit(EventShareTraded, ShareTradedPayload{Participant: a.Actor, Company: a.Company, Price: price})
		return nil

	case domain.ActionBuyShare:
		c, ok := g.ctx.Companies.Company(a.Company)
		if !ok {
			return domain.Reject(domain.KindResourceUnavailable, "unknown company %s", a.Company)
		}
		price, ok := g.sharePrice(c)
		if !ok {
			return domain.Reject(domain.KindResourceUnavailable, "no share of %s is for sale", a.Company)
		}
		if free := g.FreeCash(a.Actor); price > free {
			return domain.Reject(domain.KindInsufficientFunds, "share of %s costs %d, %s has %d", a.Company, price, a.Actor, free)
		}
		paid, payee, err := g.ctx.Market.BuyShare(a.Actor, a.Company)
		if err != nil {
			return fmt.Errorf("buy share: %w", err)
		}
		g.trading.lastActor = a.Actor
		g.trading.acted = true
		g.emit(EventShareTraded, ShareTradedPayload{Participant: a.Actor, Company: a.Company, Price: paid, Bought: true})
		g.ctx.Logger.Debug("share bought",
			zap.String("actor", a.Actor),
			zap.String("company", a.Company),
			zap.Int64("price", paid),
			zap.String("payee", payee),
		)
		g.endTradingTurn()
		return nil

	default:
		if !g.trading.acted {
			g.emit(EventPassed, PassedPayload{Participant: a.Actor})
		}
		g.endTradingTurn()
		return nil
	}
}

// endTradingTurn hands the turn on. The round ends once every solvent participant passed in
// succession; priority then goes to the participant after the last one who traded.
func (g *Game) endTradingTurn() {
	if g.trading.acted {
		g.trading.passes = 0
	} else {
		g.trading.passes++
	}
	g.trading.acted = false
	g.nextTrader()
}

// nextTrader closes the round after enough passes, otherwise moves to the next solvent participant.
func (g *Game) nextTrader() {
	if g.trading.passes >= g.activeCount() {
		if g.trading.lastActor != "" {
			if holder, ok := g.priority.NextFrom(g.trading.lastActor, g.isBankrupt); ok {
				g.priority.AssignTo(holder)
				g.emit(EventPriorityChanged, PriorityChangedPayload{Holder: holder})
			}
		}
		g.ctx.Market.RaiseSoldOut()
		g.complete()
		return
	}

	next, ok := g.priority.NextFrom(g.trading.turn, g.isBankrupt)
	if !ok {
		g.endGame("no solvent participant left")
		return
	}
	g.trading.turn = next
	g.emit(EventTurnChanged, TurnChangedPayload{Turn: next})
}
