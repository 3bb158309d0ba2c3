package ports

// ResourcePool is the bank-owned stock of typed resources and the holdings of companies.
type ResourcePool interface {
	// Remaining returns the units of a type left in the acquirable pool.
	Remaining(resource string) int

	// ResourcePrice returns the bank price of one unit.
	ResourcePrice(resource string) int64

	// MarkConsumed takes one unit out of the acquirable pool and gives it to holder.
	MarkConsumed(resource, holder string) error

	// Held returns the units a holder owns, by type.
	Held(holder string) map[string]int

	// Discard removes one unit from a holder for good.
	Discard(holder, resource string) error

	// Rust removes every held unit of a type and returns the affected holders.
	Rust(resource string) []string
}
