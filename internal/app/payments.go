package app

import (
	"fmt"

	"go.uber.org/zap"

	"rails/internal/domain"
)

// forcedSale remembers where to return once a shortfall is settled.
type forcedSale struct {
	interrupted domain.RoundDescriptor
	then        func()
}

// DemandPayment makes payer pay amount to payee. It is the command collaborators use for
// mandatory payments during Trading or Operating. A payer short of cash enters a forced share
// sale; the payment is made once the shortfall is covered.
func (g *Game) DemandPayment(payer, payee string, amount int64) ([]Event, error) {
	if !g.started {
		return nil, ErrNotStarted
	}
	if kind := g.seq.Round().Kind; kind != domain.RoundTrading && kind != domain.RoundOperating {
		return nil, domain.Reject(domain.KindWrongRoundOrStep, "no payment can be demanded during %s", kind)
	}
	if p, ok := g.seq.Pending(); ok {
		return nil, domain.Reject(domain.KindWrongRoundOrStep, "%s is pending", p.Kind)
	}
	if !g.priority.Contains(payer) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParticipant, payer)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("payment of %d must be positive", amount)
	}

	g.events = nil
	if err := g.demand(payer, payee, amount, nil); err != nil {
		g.events = nil
		return nil, err
	}
	return g.flush(), nil
}

// demand pays right away when payer can, otherwise nests a forced share sale. then runs once the
// payment is settled.
func (g *Game) demand(payer, payee string, amount int64, then func()) error {
	if g.FreeCash(payer) >= amount {
		if err := g.pay(payer, payee, amount); err != nil {
			return err
		}
		if then != nil {
			then()
		}
		return nil
	}

	g.forced = forcedSale{interrupted: g.seq.Round(), then: then}
	g.seq.Shortfall(payer, payee, amount)
	p, _ := g.seq.Pending()
	g.emit(EventRoundStarted, RoundStartedPayload{Round: g.seq.Round(), Turn: payer})
	g.emit(EventMandatoryAction, MandatoryActionPayload{Action: p}, payer)
	g.ctx.Logger.Info("forced share sale",
		zap.String("payer", payer),
		zap.String("payee", payee),
		zap.Int64("amount", amount),
		zap.Int64("cash", g.FreeCash(payer)),
	)
	return nil
}

func (g *Game) pay(payer, payee string, amount int64) error {
	if err := g.ctx.Ledger.Transfer(payer, payee, amount); err != nil {
		return fmt.Errorf("pay %d from %s to %s: %w", amount, payer, payee, err)
	}
	g.emit(EventPaymentMade, PaymentMadePayload{Payer: payer, Payee: payee, Amount: amount})
	return nil
}

func (g *Game) forcedSaleActions(p domain.MandatoryAction) []domain.Action {
	var out []domain.Action
	for _, c := range g.ctx.Companies.AllCompanies() {
		if g.ctx.Market.CanSell(p.Actor, c.ID) {
			out = append(out, domain.Action{Kind: domain.ActionSellShare, Actor: p.Actor, Company: c.ID, Amount: p.Amount})
		}
	}
	if len(out) == 0 {
		out = append(out, domain.Action{Kind: domain.ActionDeclareBankruptcy, Actor: p.Actor, Amount: p.Amount})
	}
	return out
}

func (g *Game) submitForcedSale(p domain.MandatoryAction, a domain.Action) error {
	if a.Kind != domain.ActionSellShare && a.Kind != domain.ActionDeclareBankruptcy {
		return domain.Reject(domain.KindWrongRoundOrStep, "%s must raise %d first", p.Actor, p.Amount)
	}
	if a.Actor != p.Actor {
		return domain.Reject(domain.KindWrongTurnHolder, "%s is to act, not %s", p.Actor, a.Actor)
	}

	if a.Kind == domain.ActionDeclareBankruptcy {
		for _, c := range g.ctx.Companies.AllCompanies() {
			if g.ctx.Market.CanSell(p.Actor, c.ID) {
				return domain.Reject(domain.KindWrongRoundOrStep, "%s can still sell %s", p.Actor, c.ID)
			}
		}
		return g.settleShortfall(p, true)
	}

	if !g.ctx.Market.CanSell(a.Actor, a.Company) {
		return domain.Reject(domain.KindNotHeld, "%s cannot sell a share of %s", a.Actor, a.Company)
	}
	price, err := g.ctx.Market.SellShare(a.Actor, a.Company)
	if err != nil {
		return fmt.Errorf("sell share: %w", err)
	}
	g.emit(EventShareTraded, ShareTradedPayload{Participant: a.Actor, Company: a.Company, Price: price})
	if g.FreeCash(p.Actor) >= p.Amount {
		return g.settleShortfall(p, false)
	}
	return nil
}

// settleShortfall pays what is owed, or everything left on bankruptcy, and returns control to
// the interrupted round.
func (g *Game) settleShortfall(p domain.MandatoryAction, bankrupt bool) error {
	amount := p.Amount
	if bankrupt {
		amount = max(g.FreeCash(p.Actor), 0)
	}
	if amount > 0 {
		if err := g.pay(p.Actor, p.Holder, amount); err != nil {
			return err
		}
	}

	if bankrupt {
		g.bankrupt[p.Actor] = true
		g.emit(EventBankruptcy, BankruptcyPayload{Participant: p.Actor, Paid: amount})
		g.ctx.Logger.Info("participant bankrupt", zap.String("participant", p.Actor), zap.Int64("paid", amount))
		if g.setup.Policy.BankruptcyEndsGame || g.activeCount() < MinParticipants {
			g.forced = forcedSale{}
			g.endGame("bankruptcy")
			return nil
		}
	}

	forced := g.forced
	g.forced = forcedSale{}
	g.seq.Resume(forced.interrupted)
	g.emit(EventRoundResumed, RoundStartedPayload{Round: g.seq.Round(), Turn: g.Turn()})

	switch {
	case forced.then != nil:
		forced.then()
	case bankrupt && g.seq.Round().Kind == domain.RoundTrading && g.trading.turn == p.Actor:
		g.trading.acted = false
		g.nextTrader()
	}
	return nil
}
