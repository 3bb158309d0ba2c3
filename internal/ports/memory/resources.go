package memory

import (
	"fmt"
	"sort"
)

// Remaining implements ports.ResourcePool.
func (b *Bank) Remaining(resource string) int { return b.remaining[resource] }

// ResourcePrice implements ports.ResourcePool.
func (b *Bank) ResourcePrice(resource string) int64 { return b.prices[resource] }

// MarkConsumed implements ports.ResourcePool.
func (b *Bank) MarkConsumed(resource, holder string) error {
	if b.remaining[resource] <= 0 {
		return fmt.Errorf("consume %s: pool is empty", resource)
	}
	b.remaining[resource]--
	if b.held[holder] == nil {
		b.held[holder] = make(map[string]int)
	}
	b.held[holder][resource]++
	return nil
}

// Held implements ports.ResourcePool.
func (b *Bank) Held(holder string) map[string]int {
	out := make(map[string]int, len(b.held[holder]))
	for k, v := range b.held[holder] {
		out[k] = v
	}
	return out
}

// Discard implements ports.ResourcePool.
func (b *Bank) Discard(holder, resource string) error {
	if b.held[holder][resource] <= 0 {
		return fmt.Errorf("discard %s: %s holds none", resource, holder)
	}
	b.held[holder][resource]--
	if b.held[holder][resource] == 0 {
		delete(b.held[holder], resource)
	}
	return nil
}

// Rust implements ports.ResourcePool.
func (b *Bank) Rust(resource string) []string {
	var affected []string
	for holder, byType := range b.held {
		if byType[resource] > 0 {
			delete(byType, resource)
			affected = append(affected, holder)
		}
	}
	sort.Strings(affected)
	return affected
}
