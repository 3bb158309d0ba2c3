package memory

import (
	"fmt"
	"sort"

	"rails/internal/ports"
)

// AllCompanies implements ports.CompanyRegistry.
func (b *Bank) AllCompanies() []ports.Company {
	out := make([]ports.Company, 0, len(b.companyOrder))
	for _, id := range b.companyOrder {
		out = append(out, b.view(b.companies[id]))
	}
	return out
}

// Company implements ports.CompanyRegistry.
func (b *Bank) Company(id string) (ports.Company, bool) {
	c, ok := b.companies[id]
	if !ok {
		return ports.Company{}, false
	}
	return b.view(c), true
}

func (b *Bank) view(c *company) ports.Company {
	return ports.Company{
		ID:        c.spec.ID,
		President: c.president,
		ParPrice:  c.spec.ParPrice,
		Shares:    c.spec.Shares,
		Floated:   c.floated,
	}
}

// OperatingOrder implements ports.CompanyRegistry: highest share price first, then float order.
func (b *Bank) OperatingOrder() []string {
	var out []*company
	for _, id := range b.companyOrder {
		if c := b.companies[id]; c.floated {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].step != out[j].step {
			return out[i].step > out[j].step
		}
		return out[i].floatedAt < out[j].floatedAt
	})
	ids := make([]string, len(out))
	for i, c := range out {
		ids[i] = c.spec.ID
	}
	return ids
}

// Price implements ports.ShareMarket.
func (b *Bank) Price(id string) int64 {
	c, ok := b.companies[id]
	if !ok {
		return 0
	}
	return b.ladder[c.step]
}

// SharesHeld implements ports.ShareMarket.
func (b *Bank) SharesHeld(holder, id string) int {
	c, ok := b.companies[id]
	if !ok {
		return 0
	}
	return c.shares[holder]
}

// CanSell implements ports.ShareMarket. The pool may hold at most half of a company.
func (b *Bank) CanSell(holder, id string) bool {
	c, ok := b.companies[id]
	if !ok || holder == ports.IPO || holder == ports.Pool {
		return false
	}
	return c.shares[holder] > 0 && c.shares[ports.Pool]+1 <= c.spec.Shares/2
}

// BuyShare implements ports.ShareMarket. IPO shares sell at par and pay the company; pool shares
// sell at market and pay the bank.
func (b *Bank) BuyShare(buyer, id string) (int64, string, error) {
	c, ok := b.companies[id]
	if !ok {
		return 0, "", fmt.Errorf("buy share: unknown company %s", id)
	}
	from, price, payee := ports.IPO, c.spec.ParPrice, id
	if c.shares[ports.IPO] == 0 {
		from, price, payee = ports.Pool, b.ladder[c.step], ports.BankID
	}
	if c.shares[from] == 0 {
		return 0, "", fmt.Errorf("buy share: no %s shares left", id)
	}
	if err := b.Transfer(buyer, payee, price); err != nil {
		return 0, "", fmt.Errorf("buy share of %s: %w", id, err)
	}
	b.moveShare(c, from, buyer)
	return price, payee, nil
}

// SellShare implements ports.ShareMarket.
func (b *Bank) SellShare(seller, id string) (int64, error) {
	if !b.CanSell(seller, id) {
		return 0, fmt.Errorf("sell share: %s cannot sell %s", seller, id)
	}
	c := b.companies[id]
	price := b.ladder[c.step]
	if err := b.Transfer(ports.BankID, seller, price); err != nil {
		return 0, err
	}
	b.moveShare(c, seller, ports.Pool)
	if c.step > 0 {
		c.step--
	}
	return price, nil
}

// GrantShare implements ports.ShareMarket.
func (b *Bank) GrantShare(holder, id string) error {
	c, ok := b.companies[id]
	if !ok {
		return fmt.Errorf("grant share: unknown company %s", id)
	}
	if c.shares[ports.IPO] == 0 {
		return fmt.Errorf("grant share: no IPO shares of %s left", id)
	}
	b.moveShare(c, ports.IPO, holder)
	return nil
}

// RaiseSoldOut implements ports.ShareMarket.
func (b *Bank) RaiseSoldOut() {
	for _, id := range b.companyOrder {
		c := b.companies[id]
		if c.floated && c.shares[ports.IPO] == 0 && c.shares[ports.Pool] == 0 && c.step < len(b.ladder)-1 {
			c.step++
		}
	}
}

func (b *Bank) moveShare(c *company, from, to string) {
	c.shares[from]--
	if c.shares[from] == 0 {
		delete(c.shares, from)
	}
	c.shares[to]++

	sold := c.spec.Shares - c.shares[ports.IPO]
	if !c.floated && sold*100 >= c.spec.FloatPercent*c.spec.Shares {
		c.floated = true
		c.floatedAt = b.floatedCount()
	}
	b.electPresident(c)
}

func (b *Bank) floatedCount() int {
	n := 0
	for _, c := range b.companies {
		if c.floated {
			n++
		}
	}
	return n
}

// electPresident hands the presidency to the largest holder; the sitting president keeps it on a tie.
func (b *Bank) electPresident(c *company) {
	best, most := c.president, c.shares[c.president]
	holders := make([]string, 0, len(c.shares))
	for h := range c.shares {
		holders = append(holders, h)
	}
	sort.Strings(holders)
	for _, h := range holders {
		if h == ports.IPO || h == ports.Pool {
			continue
		}
		if n := c.shares[h]; n > most {
			best, most = h, n
		}
	}
	if most == 0 {
		best = ""
	}
	c.president = best
}
