package ports

// IPO is the holder id for unsold treasury shares; Pool is the open market.
const (
	IPO  = "ipo"
	Pool = "pool"
)

// ShareMarket holds share counts and prices.
type ShareMarket interface {
	// Price returns the current share price of a company.
	Price(company string) int64

	// SharesHeld returns how many shares of company the holder owns.
	SharesHeld(holder, company string) int

	// CanSell reports whether the holder may sell one share of company into the pool.
	CanSell(holder, company string) bool

	// BuyShare moves one share to the buyer, from the IPO first and then the pool, and returns
	// the price paid and who received the money.
	BuyShare(buyer, company string) (price int64, payee string, err error)

	// SellShare moves one share into the pool and drops the price; returns the price received.
	SellShare(seller, company string) (int64, error)

	// GrantShare moves one IPO share to holder without payment.
	GrantShare(holder, company string) error

	// RaiseSoldOut moves every company without shares in the IPO or pool up one price step.
	RaiseSoldOut()
}
