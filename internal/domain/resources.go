package domain

// ResourceType is one class in the typed resource sequence, e.g. a train type.
type ResourceType struct {
	Name   string
	Exempt bool // always available, never unlocks a successor

	// Applied when the type becomes available. Zero values keep the current setting.
	HolderLimit     int
	OperatingRounds int
	Grants          TokenSet
	EndsOperating   bool
	Rusts           string
}

// PoolView is the read view of the bank-owned acquirable pool.
type PoolView interface {
	Remaining(resource string) int
}

// Interrupt is raised when the last unit of a type leaves the acquirable pool. It is consumed by
// the sequencer at the end of the current turn.
type Interrupt struct {
	Exhausted       string
	Unlocked        string
	HolderLimit     int
	OperatingRounds int
	Granted         TokenSet
	EndOperating    bool
	Rusts           string
}

// ResourceGate tracks which resource types may be acquired. Availability only moves forward:
// a type unlocks once, after its predecessor runs out, and an exhausted type stays exhausted.
type ResourceGate struct {
	sequence []ResourceType
	pool     PoolView

	available map[string]bool
	exhausted map[string]bool
	unlocked  map[string]bool

	limit           int
	operatingRounds int
	perms           TokenSet
	pending         []Interrupt
}

// NewResourceGate makes the exempt types and the first regular type available.
func NewResourceGate(sequence []ResourceType, pool PoolView, limit, operatingRounds int) *ResourceGate {
	g := &ResourceGate{
		sequence:        append([]ResourceType(nil), sequence...),
		pool:            pool,
		available:       make(map[string]bool),
		exhausted:       make(map[string]bool),
		unlocked:        make(map[string]bool),
		limit:           limit,
		operatingRounds: operatingRounds,
		perms:           NewTokenSet(),
	}
	first := true
	for _, t := range g.sequence {
		switch {
		case t.Exempt:
			g.available[t.Name] = true
			g.unlocked[t.Name] = true
		case first:
			var discard Interrupt
			g.unlock(t, &discard)
			first = false
		}
	}
	return g
}

// Type looks up a resource type by name.
func (g *ResourceGate) Type(name string) (ResourceType, bool) {
	for _, t := range g.sequence {
		if t.Name == name {
			return t, true
		}
	}
	return ResourceType{}, false
}

// Available reports whether units of the type may currently be acquired.
func (g *ResourceGate) Available(name string) bool { return g.available[name] }

// Exhausted reports whether the type has run out for good.
func (g *ResourceGate) Exhausted(name string) bool { return g.exhausted[name] }

// AvailableTypes lists the available types in sequence order.
func (g *ResourceGate) AvailableTypes() []string {
	var out []string
	for _, t := range g.sequence {
		if g.available[t.Name] {
			out = append(out, t.Name)
		}
	}
	return out
}

// Limit is the current per-holder resource limit; zero means unlimited.
func (g *ResourceGate) Limit() int { return g.limit }

// OperatingRounds is the operating round count for the next sequence.
func (g *ResourceGate) OperatingRounds() int { return g.operatingRounds }

// Permissions returns a copy of the phase permissions granted so far.
func (g *ResourceGate) Permissions() TokenSet { return g.perms.Union(nil) }

// CanAcquire checks that a unit of the type can be taken from the pool.
func (g *ResourceGate) CanAcquire(name string) error {
	if !g.available[name] {
		return Reject(KindResourceUnavailable, "%s is not available", name)
	}
	if g.pool.Remaining(name) <= 0 {
		return Reject(KindResourceUnavailable, "no %s left in the pool", name)
	}
	return nil
}

// OnResourceAcquired must be called after a unit has left the acquirable pool.
func (g *ResourceGate) OnResourceAcquired(name string) {
	t, ok := g.Type(name)
	invariant(ok, "unknown resource type %q", name)
	if t.Exempt || g.exhausted[name] || g.pool.Remaining(name) > 0 {
		return
	}

	g.exhausted[name] = true
	delete(g.available, name)
	it := Interrupt{Exhausted: name}
	if next, ok := g.successor(name); ok && !g.unlocked[next.Name] {
		g.unlock(next, &it)
	}
	g.pending = append(g.pending, it)
}

func (g *ResourceGate) successor(name string) (ResourceType, bool) {
	seen := false
	for _, t := range g.sequence {
		if seen && !t.Exempt {
			return t, true
		}
		if t.Name == name {
			seen = true
		}
	}
	return ResourceType{}, false
}

func (g *ResourceGate) unlock(t ResourceType, it *Interrupt) {
	g.unlocked[t.Name] = true
	if g.exhausted[t.Name] {
		return
	}
	g.available[t.Name] = true
	if t.HolderLimit > 0 {
		g.limit = t.HolderLimit
	}
	if t.OperatingRounds > 0 {
		g.operatingRounds = t.OperatingRounds
	}
	g.perms.Add(t.Grants.Sorted()...)
	if t.Rusts != "" {
		g.exhausted[t.Rusts] = true
		delete(g.available, t.Rusts)
	}

	it.Unlocked = t.Name
	it.HolderLimit = g.limit
	it.OperatingRounds = g.operatingRounds
	it.Granted = t.Grants.Union(nil)
	it.EndOperating = t.EndsOperating
	it.Rusts = t.Rusts
}

// HasInterrupts reports whether interrupts wait for the next safe point.
func (g *ResourceGate) HasInterrupts() bool { return len(g.pending) > 0 }

// TakeInterrupts returns and clears the queued interrupts.
func (g *ResourceGate) TakeInterrupts() []Interrupt {
	out := g.pending
	g.pending = nil
	return out
}
