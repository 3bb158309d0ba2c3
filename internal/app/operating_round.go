package app

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"rails/internal/domain"
	"rails/internal/ports"
)

type operatingState struct {
	order []string
	index int
}

func (g *Game) startOperating() {
	g.operating = operatingState{order: g.ctx.Companies.OperatingOrder()}
	g.emit(EventRoundStarted, RoundStartedPayload{Round: g.seq.Round()})
	if len(g.operating.order) == 0 {
		g.emit(EventOperatingReport, OperatingReportPayload{Round: g.seq.Round(), Report: "no company operates"})
		g.complete()
		return
	}
	g.operateFrom(0)
}

// operateFrom gives the turn to the first company at or after index whose president is solvent,
// or completes the round when none is left.
func (g *Game) operateFrom(index int) {
	for ; index < len(g.operating.order); index++ {
		id := g.operating.order[index]
		if pres := g.presidentOf(id); pres != "" && !g.bankrupt[pres] {
			g.operating.index = index
			g.emit(EventTurnChanged, TurnChangedPayload{Turn: pres, Company: id})
			return
		}
	}
	g.operating.index = len(g.operating.order)
	g.complete()
}

func (g *Game) company() string {
	if g.operating.index < len(g.operating.order) {
		return g.operating.order[g.operating.index]
	}
	return ""
}

func (g *Game) presidentOf(company string) string {
	c, ok := g.ctx.Companies.Company(company)
	if !ok {
		return ""
	}
	return c.President
}

func (g *Game) unitsHeld(holder string) int {
	n := 0
	for _, v := range g.ctx.Resources.Held(holder) {
		n += v
	}
	return n
}

func (g *Game) operatingActions() []domain.Action {
	id := g.company()
	pres := g.presidentOf(id)
	if id == "" || pres == "" {
		return nil
	}
	held, limit := g.unitsHeld(id), g.gate.Limit()
	cash := g.ctx.Ledger.Cash(id)

	var out []domain.Action
	for _, name := range g.gate.AvailableTypes() {
		price := g.ctx.Resources.ResourcePrice(name)
		if g.ctx.Resources.Remaining(name) == 0 || price > cash || (limit > 0 && held >= limit) {
			continue
		}
		out = append(out, domain.Action{Kind: domain.ActionAcquireResource, Actor: pres, Company: id, Resource: name, Amount: price})
	}
	return append(out, domain.Action{Kind: domain.ActionEndTurn, Actor: pres, Company: id})
}

func (g *Game) submitOperating(a domain.Action) error {
	if a.Kind != domain.ActionAcquireResource && a.Kind != domain.ActionEndTurn {
		return domain.Reject(domain.KindWrongRoundOrStep, "%s is not allowed while operating", a.Kind)
	}
	id := g.company()
	if a.Company != "" && a.Company != id {
		return domain.Reject(domain.KindWrongTurnHolder, "%s operates, not %s", id, a.Company)
	}
	if pres := g.presidentOf(id); a.Actor != pres {
		return domain.Reject(domain.KindWrongTurnHolder, "%s presides over %s, not %s", pres, id, a.Actor)
	}

	if a.Kind == domain.ActionAcquireResource {
		return g.acquire(id, a.Resource)
	}
	return g.endOperatingTurn(id)
}

func (g *Game) acquire(company, resource string) error {
	if err := g.gate.CanAcquire(resource); err != nil {
		return err
	}
	if g.ctx.Resources.Remaining(resource) == 0 {
		return domain.Reject(domain.KindResourceUnavailable, "no %s left in the pool", resource)
	}
	if limit := g.gate.Limit(); limit > 0 && g.unitsHeld(company) >= limit {
		return domain.Reject(domain.KindResourceUnavailable, "%s already holds the limit of %d", company, limit)
	}
	price := g.ctx.Resources.ResourcePrice(resource)
	if cash := g.ctx.Ledger.Cash(company); price > cash {
		return domain.Reject(domain.KindInsufficientFunds, "%s costs %d, %s has %d", resource, price, company, cash)
	}

	if err := g.ctx.Ledger.Transfer(company, ports.BankID, price); err != nil {
		return fmt.Errorf("pay for %s: %w", resource, err)
	}
	return g.take(company, resource, price)
}

// take moves one unit to the company and lets the gate observe the consumption.
func (g *Game) take(company, resource string, price int64) error {
	if err := g.ctx.Resources.MarkConsumed(resource, company); err != nil {
		return fmt.Errorf("acquire %s: %w", resource, err)
	}
	g.gate.OnResourceAcquired(resource)
	g.emit(EventResourceAcquired, ResourceAcquiredPayload{Company: company, Resource: resource, Price: price})
	g.ctx.Logger.Debug("resource acquired",
		zap.String("company", company),
		zap.String("resource", resource),
		zap.Int64("price", price),
		zap.Int("remaining", g.ctx.Resources.Remaining(resource)),
	)
	return nil
}

func (g *Game) endOperatingTurn(company string) error {
	if g.setup.MustOwnResource && g.unitsHeld(company) == 0 {
		return g.forcePurchase(company)
	}
	g.emit(EventOperatingReport, OperatingReportPayload{Round: g.seq.Round(), Report: company + " operated"})
	g.finishOperatingTurn()
	return nil
}

// forcePurchase buys the cheapest available unit for a company that must own one. The company
// pays what it can; its president owes the rest.
func (g *Game) forcePurchase(company string) error {
	resource, price, ok := g.cheapestResource()
	if !ok {
		g.finishOperatingTurn()
		return nil
	}
	paid := min(g.ctx.Ledger.Cash(company), price)
	if paid > 0 {
		if err := g.ctx.Ledger.Transfer(company, ports.BankID, paid); err != nil {
			return fmt.Errorf("pay for %s: %w", resource, err)
		}
	}
	if err := g.take(company, resource, price); err != nil {
		return err
	}
	g.emit(EventOperatingReport, OperatingReportPayload{
		Round:  g.seq.Round(),
		Report: fmt.Sprintf("%s operated and was forced to buy a %s", company, resource),
	})
	if owed := price - paid; owed > 0 {
		return g.demand(g.presidentOf(company), ports.BankID, owed, g.finishOperatingTurn)
	}
	g.finishOperatingTurn()
	return nil
}

func (g *Game) cheapestResource() (string, int64, bool) {
	var (
		best  string
		price int64
	)
	for _, name := range g.gate.AvailableTypes() {
		if g.ctx.Resources.Remaining(name) == 0 {
			continue
		}
		if p := g.ctx.Resources.ResourcePrice(name); best == "" || p < price {
			best, price = name, p
		}
	}
	return best, price, best != ""
}

// finishOperatingTurn is the safe point at the end of a company's turn: interrupts raised during
// the turn take effect here.
func (g *Game) finishOperatingTurn() {
	for _, it := range g.seq.HandleInterrupts() {
		g.emit(EventResourceExhausted, ResourceExhaustedPayload{
			Exhausted:   it.Exhausted,
			Unlocked:    it.Unlocked,
			HolderLimit: it.HolderLimit,
			Granted:     it.Granted.Sorted(),
		})
		g.ctx.Logger.Info("resource type exhausted",
			zap.String("exhausted", it.Exhausted),
			zap.String("unlocked", it.Unlocked),
			zap.Int("limit", g.gate.Limit()),
		)
		if it.Rusts != "" {
			holders := g.ctx.Resources.Rust(it.Rusts)
			g.emit(EventResourceRusted, ResourceRustedPayload{Resource: it.Rusts, Holders: holders})
		}
	}
	if g.queueDiscard() {
		return
	}
	g.nextCompany()
}

func (g *Game) nextCompany() {
	if g.seq.Counters().PrematureExit {
		g.complete()
		return
	}
	g.operateFrom(g.operating.index + 1)
}

// queueDiscard fills the pending slot with the next discard, holders in operating order.
func (g *Game) queueDiscard() bool {
	if !g.seq.NextDiscard(g.ctx.Companies.OperatingOrder(), g.unitsHeld, g.presidentOf) {
		return false
	}
	p, _ := g.seq.Pending()
	g.emit(EventMandatoryAction, MandatoryActionPayload{Action: p}, p.Actor)
	return true
}

func (g *Game) discardActions(p domain.MandatoryAction) []domain.Action {
	held := g.ctx.Resources.Held(p.Holder)
	names := make([]string, 0, len(held))
	for name := range held {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]domain.Action, 0, len(names))
	for _, name := range names {
		out = append(out, domain.Action{Kind: domain.ActionDiscardResource, Actor: p.Actor, Company: p.Holder, Resource: name})
	}
	return out
}

func (g *Game) submitDiscard(p domain.MandatoryAction, a domain.Action) error {
	if a.Kind != domain.ActionDiscardResource {
		return domain.Reject(domain.KindWrongRoundOrStep, "%s must discard first", p.Holder)
	}
	if a.Actor != p.Actor || (a.Company != "" && a.Company != p.Holder) {
		return domain.Reject(domain.KindWrongTurnHolder, "%s discards for %s", p.Actor, p.Holder)
	}
	if g.ctx.Resources.Held(p.Holder)[a.Resource] == 0 {
		return domain.Reject(domain.KindNotHeld, "%s holds no %s", p.Holder, a.Resource)
	}
	if err := g.ctx.Resources.Discard(p.Holder, a.Resource); err != nil {
		return fmt.Errorf("discard: %w", err)
	}
	g.emit(EventResourceDiscarded, ResourceDiscardedPayload{Company: p.Holder, Resource: a.Resource})
	if g.queueDiscard() {
		return nil
	}
	g.nextCompany()
	return nil
}
