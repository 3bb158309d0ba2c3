package domain

import "sort"

// PriorityTracker holds the ordered participants and the index of the priority participant,
// the one who acts first in the next trading-type round.
type PriorityTracker struct {
	order []string
	index int
}

// NewPriorityTracker starts with priority on the first participant. order must not be empty.
func NewPriorityTracker(order []string) *PriorityTracker {
	invariant(len(order) > 0, "priority tracker needs participants")
	return &PriorityTracker{order: append([]string(nil), order...)}
}

// Len returns the participant count.
func (p *PriorityTracker) Len() int { return len(p.order) }

// Order returns a copy of the participant order.
func (p *PriorityTracker) Order() []string { return append([]string(nil), p.order...) }

// Index returns the priority index.
func (p *PriorityTracker) Index() int { return p.index }

// Holder returns the priority participant.
func (p *PriorityTracker) Holder() string {
	invariant(p.index >= 0 && p.index < len(p.order), "priority index %d out of range", p.index)
	return p.order[p.index]
}

// Position returns the index of id in the order, or -1.
func (p *PriorityTracker) Position(id string) int {
	for i, v := range p.order {
		if v == id {
			return i
		}
	}
	return -1
}

// Contains reports whether id participates.
func (p *PriorityTracker) Contains(id string) bool { return p.Position(id) >= 0 }

// Advance moves priority to the next participant.
func (p *PriorityTracker) Advance() {
	p.index = (p.index + 1) % len(p.order)
}

// AssignTo gives priority to id.
func (p *PriorityTracker) AssignTo(id string) {
	pos := p.Position(id)
	invariant(pos >= 0, "unknown participant %q", id)
	p.index = pos
}

// NextFrom walks the order starting after id and returns the first participant for which skip
// returns false. id itself is considered last. ok is false when every participant is skipped.
func (p *PriorityTracker) NextFrom(id string, skip func(string) bool) (string, bool) {
	pos := p.Position(id)
	invariant(pos >= 0, "unknown participant %q", id)
	for step := 1; step <= len(p.order); step++ {
		candidate := p.order[(pos+step)%len(p.order)]
		if skip == nil || !skip(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// ReorderBy sorts the participants by the resource they hold. Ties keep the current order,
// read from the priority holder onwards. Priority moves to the new first participant.
func (p *PriorityTracker) ReorderBy(held func(string) int64, descending bool) {
	rotated := make([]string, 0, len(p.order))
	for i := 0; i < len(p.order); i++ {
		rotated = append(rotated, p.order[(p.index+i)%len(p.order)])
	}
	sort.SliceStable(rotated, func(i, j int) bool {
		a, b := held(rotated[i]), held(rotated[j])
		if descending {
			return a > b
		}
		return a < b
	})
	p.order = rotated
	p.index = 0
}
