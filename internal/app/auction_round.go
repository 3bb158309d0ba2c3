package app

import (
	"fmt"

	"go.uber.org/zap"

	"rails/internal/domain"
	"rails/internal/ports"
)

func (g *Game) startAuction() {
	packet, ok := g.auction.NextPacket(g.gate.Permissions())
	if !ok {
		g.complete()
		return
	}
	turn, ok := g.firstActive(g.priority.Holder())
	if !ok {
		g.endGame("no solvent participant left")
		return
	}
	if _, err := g.auction.OpenSelection(packet, turn); err != nil {
		g.complete()
		return
	}
	g.emit(EventRoundStarted, RoundStartedPayload{Round: g.seq.Round(), Turn: g.auction.State().Turn})
}

func (g *Game) submitAuction(a domain.Action) error {
	switch a.Kind {
	case domain.ActionSelectForAuction:
		if err := g.auction.Select(a.Actor, a.Item); err != nil {
			return err
		}
		g.emit(EventItemSelected, ItemSelectedPayload{Participant: a.Actor, Item: a.Item})
		return nil

	case domain.ActionBid:
		res, err := g.auction.PlaceBid(a.Actor, a.Item, a.Amount)
		if err != nil {
			return err
		}
		g.emit(EventBidPlaced, BidPlacedPayload{
			Participant: a.Actor,
			Item:        a.Item,
			Amount:      a.Amount,
			NextTurn:    g.auction.State().Turn,
		})
		return g.settleAuction(res)

	case domain.ActionPass:
		item := a.Item
		if item == "" {
			item = g.auction.State().Item
		}
		res, err := g.auction.Pass(a.Actor, a.Item)
		if err != nil {
			return err
		}
		g.emit(EventPassed, PassedPayload{Participant: a.Actor, Item: item, NextTurn: g.auction.State().Turn})
		return g.settleAuction(res)

	default:
		return domain.Reject(domain.KindWrongRoundOrStep, "%s is not allowed in an auction", a.Kind)
	}
}

func (g *Game) settleAuction(res domain.AuctionResult) error {
	if err := g.applyEscrow(res.Escrow); err != nil {
		return err
	}
	out := res.Outcome
	switch out.Kind {
	case domain.OutcomeReduced:
		g.emit(EventPriceReduced, PriceReducedPayload{Item: out.Item, Price: out.Price, NextTurn: g.auction.State().Turn})
		g.ctx.Logger.Debug("price reduced", zap.String("item", out.Item), zap.Int64("price", out.Price))
	case domain.OutcomeSold, domain.OutcomeForced:
		return g.sellItem(out)
	}
	return nil
}

// applyEscrow mirrors the engine's escrow book onto the ledger.
func (g *Game) applyEscrow(changes []domain.EscrowChange) error {
	for _, ch := range changes {
		var err error
		switch {
		case ch.Amount > 0:
			err = g.ctx.Ledger.BlockCash(ch.Participant, ch.Amount)
		case ch.Amount < 0:
			err = g.ctx.Ledger.UnblockCash(ch.Participant, -ch.Amount)
		}
		if err != nil {
			return fmt.Errorf("escrow %d for %s on %s: %w", ch.Amount, ch.Participant, ch.Item, err)
		}
	}
	return nil
}

func (g *Game) sellItem(out domain.Outcome) error {
	price := out.Price
	if out.Kind == domain.OutcomeForced {
		// a forced assignee never pays more than they have
		if free := g.FreeCash(out.Winner); price > free {
			price = max(free, 0)
		}
	}
	if price > 0 {
		if err := g.ctx.Ledger.Transfer(out.Winner, ports.BankID, price); err != nil {
			return fmt.Errorf("pay for %s: %w", out.Item, err)
		}
	}
	if err := g.ctx.Certificates.TransferCertificate(out.Item, out.Winner); err != nil {
		return fmt.Errorf("assign %s: %w", out.Item, err)
	}
	if company := g.setup.ItemCompany[out.Item]; company != "" {
		if err := g.ctx.Market.GrantShare(out.Winner, company); err != nil {
			return fmt.Errorf("grant share with %s: %w", out.Item, err)
		}
	}
	g.priority.AssignTo(out.NextPriority)

	g.emit(EventItemSold, ItemSoldPayload{
		Item:   out.Item,
		Winner: out.Winner,
		Price:  price,
		Forced: out.Kind == domain.OutcomeForced,
	})
	g.emit(EventPriorityChanged, PriorityChangedPayload{Holder: g.priority.Holder()})
	g.ctx.Logger.Info("item sold",
		zap.String("item", out.Item),
		zap.String("winner", out.Winner),
		zap.Int64("price", price),
		zap.Stringer("outcome", out.Kind),
	)

	turn, ok := g.firstActive(g.priority.Holder())
	if !ok {
		g.endGame("no solvent participant left")
		return nil
	}
	if _, err := g.auction.OpenSelection(g.auction.Packet(), turn); err == nil {
		g.emit(EventTurnChanged, TurnChangedPayload{Turn: g.auction.State().Turn})
		return nil
	}
	g.complete()
	return nil
}
