// Package memory holds in-process implementations of every collaborator port.
package memory

import (
	"fmt"
	"sort"

	"rails/internal/ports"
)

// CompanySpec configures a company.
type CompanySpec struct {
	ID           string
	ParPrice     int64
	Shares       int
	FloatPercent int
}

// ResourceSpec configures a resource type in the pool.
type ResourceSpec struct {
	Name  string
	Count int
	Price int64
}

// Setup is everything the bank needs at game start.
type Setup struct {
	Participants []string
	StartingCash int64
	BankCash     int64
	Companies    []CompanySpec
	Resources    []ResourceSpec
	Ladder       []int64 // share prices, ascending
}

// Bank implements Ledger, CertificateStore, CompanyRegistry, ShareMarket and ResourcePool for
// one game. It is not safe for concurrent use; the engine is single-threaded.
type Bank struct {
	cash    map[string]int64
	blocked map[string]int64
	certs   map[string]string

	companies    map[string]*company
	companyOrder []string
	ladder       []int64

	remaining map[string]int
	prices    map[string]int64
	held      map[string]map[string]int
}

type company struct {
	spec      CompanySpec
	president string
	floated   bool
	step      int
	shares    map[string]int // holder -> count, including ports.IPO and ports.Pool
	floatedAt int
}

var (
	_ ports.Ledger           = (*Bank)(nil)
	_ ports.CertificateStore = (*Bank)(nil)
	_ ports.CompanyRegistry  = (*Bank)(nil)
	_ ports.ShareMarket      = (*Bank)(nil)
	_ ports.ResourcePool     = (*Bank)(nil)
)

// NewBank pays the starting cash out of the bank and stocks the pools.
func NewBank(s Setup) *Bank {
	b := &Bank{
		cash:      map[string]int64{ports.BankID: s.BankCash},
		blocked:   make(map[string]int64),
		certs:     make(map[string]string),
		companies: make(map[string]*company),
		ladder:    append([]int64(nil), s.Ladder...),
		remaining: make(map[string]int),
		prices:    make(map[string]int64),
		held:      make(map[string]map[string]int),
	}
	if len(b.ladder) == 0 {
		b.ladder = defaultLadder()
	}
	for _, p := range s.Participants {
		b.cash[p] += s.StartingCash
		b.cash[ports.BankID] -= s.StartingCash
	}
	for _, c := range s.Companies {
		rec := &company{spec: c, shares: map[string]int{ports.IPO: c.Shares}, floatedAt: -1}
		rec.step = b.stepFor(c.ParPrice)
		b.companies[c.ID] = rec
		b.companyOrder = append(b.companyOrder, c.ID)
	}
	for _, r := range s.Resources {
		b.remaining[r.Name] = r.Count
		b.prices[r.Name] = r.Price
	}
	return b
}

func defaultLadder() []int64 {
	out := make([]int64, 0, 30)
	for p := int64(40); p <= 350; p += 10 {
		out = append(out, p)
	}
	return out
}

func (b *Bank) stepFor(par int64) int {
	for i, p := range b.ladder {
		if p >= par {
			return i
		}
	}
	return len(b.ladder) - 1
}

// Cash implements ports.Ledger.
func (b *Bank) Cash(holder string) int64 { return b.cash[holder] }

// Blocked implements ports.Ledger.
func (b *Bank) Blocked(holder string) int64 { return b.blocked[holder] }

// BankCash implements ports.Ledger.
func (b *Bank) BankCash() int64 { return b.cash[ports.BankID] }

// Transfer implements ports.Ledger.
func (b *Bank) Transfer(from, to string, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("transfer %s -> %s: negative amount %d", from, to, amount)
	}
	if from != ports.BankID && b.cash[from]-b.blocked[from] < amount {
		return fmt.Errorf("transfer %d from %s: %w", amount, from, ports.ErrInsufficientCash)
	}
	b.cash[from] -= amount
	b.cash[to] += amount
	return nil
}

// BlockCash implements ports.Ledger.
func (b *Bank) BlockCash(participant string, amount int64) error {
	if b.cash[participant]-b.blocked[participant] < amount {
		return fmt.Errorf("block %d for %s: %w", amount, participant, ports.ErrInsufficientCash)
	}
	b.blocked[participant] += amount
	return nil
}

// UnblockCash implements ports.Ledger.
func (b *Bank) UnblockCash(participant string, amount int64) error {
	if b.blocked[participant] < amount {
		return fmt.Errorf("unblock %d for %s: only %d blocked", amount, participant, b.blocked[participant])
	}
	b.blocked[participant] -= amount
	if b.blocked[participant] == 0 {
		delete(b.blocked, participant)
	}
	return nil
}

// TransferCertificate implements ports.CertificateStore.
func (b *Bank) TransferCertificate(item, holder string) error {
	if item == "" || holder == "" {
		return fmt.Errorf("transfer certificate %q to %q: empty id", item, holder)
	}
	b.certs[item] = holder
	return nil
}

// Holder implements ports.CertificateStore.
func (b *Bank) Holder(item string) (string, bool) {
	h, ok := b.certs[item]
	return h, ok
}

// Certificates implements ports.CertificateStore.
func (b *Bank) Certificates(holder string) []string {
	var out []string
	for item, h := range b.certs {
		if h == holder {
			out = append(out, item)
		}
	}
	sort.Strings(out)
	return out
}

// Retire implements ports.CertificateStore.
func (b *Bank) Retire(item string) error {
	if _, ok := b.certs[item]; !ok {
		return fmt.Errorf("retire %s: not held", item)
	}
	delete(b.certs, item)
	return nil
}
