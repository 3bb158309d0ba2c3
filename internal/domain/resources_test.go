package domain

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

type poolCounts map[string]int

func (p poolCounts) Remaining(name string) int { return p[name] }

func trainSequence() []ResourceType {
	return []ResourceType{
		{Name: "2", HolderLimit: 4, OperatingRounds: 1},
		{Name: "3", OperatingRounds: 2},
		{Name: "4", HolderLimit: 3, Rusts: "2"},
		{Name: "5", HolderLimit: 2, OperatingRounds: 3, Grants: NewTokenSet(PermissionFinalPhase), EndsOperating: true},
		{Name: "D", Exempt: true},
		{Name: "6"},
	}
}

func TestResourceGate_InitialAvailability(t *testing.T) {
	g := NewResourceGate(trainSequence(), poolCounts{"2": 6, "3": 5, "D": 9}, 0, 1)

	check.Equal(t, []string{"2", "D"}, g.AvailableTypes())
	check.Equal(t, 4, g.Limit())
	check.NoError(t, g.CanAcquire("2"))
	check.True(t, errors.Is(g.CanAcquire("3"), ErrResourceUnavailable))
	check.False(t, g.HasInterrupts())
}

func TestResourceGate_ExhaustionUnlocksNextType(t *testing.T) {
	pool := poolCounts{"2": 1, "3": 5, "4": 3, "5": 2, "6": 2, "D": 9}
	g := NewResourceGate(trainSequence(), pool, 0, 1)

	pool["2"] = 0
	g.OnResourceAcquired("2")

	check.True(t, g.Exhausted("2"))
	check.False(t, g.Available("2"))
	check.True(t, g.Available("3"))
	check.Equal(t, 2, g.OperatingRounds())

	its := g.TakeInterrupts()
	assert.Equal(t, 1, len(its))
	check.Equal(t, "2", its[0].Exhausted)
	check.Equal(t, "3", its[0].Unlocked)
	check.False(t, g.HasInterrupts())
}

func TestResourceGate_LastFourUnlocksFive(t *testing.T) {
	pool := poolCounts{"2": 0, "3": 0, "4": 1, "5": 2, "6": 2, "D": 9}
	g := NewResourceGate(trainSequence(), pool, 0, 1)
	for _, name := range []string{"2", "3"} {
		g.OnResourceAcquired(name)
	}
	g.TakeInterrupts()
	check.Equal(t, 3, g.Limit())

	pool["4"] = 0
	g.OnResourceAcquired("4")

	check.True(t, g.Available("5"))
	check.False(t, g.Available("4"))
	check.Equal(t, 2, g.Limit())
	check.True(t, g.Permissions().Has(PermissionFinalPhase))

	its := g.TakeInterrupts()
	assert.Equal(t, 1, len(its))
	check.Equal(t, Interrupt{
		Exhausted:       "4",
		Unlocked:        "5",
		HolderLimit:     2,
		OperatingRounds: 3,
		Granted:         NewTokenSet(PermissionFinalPhase),
		EndOperating:    true,
	}, its[0])
}

func TestResourceGate_RustedTypeNeverReturns(t *testing.T) {
	pool := poolCounts{"2": 0, "3": 0, "4": 2, "D": 9}
	g := NewResourceGate(trainSequence(), pool, 0, 1)

	g.OnResourceAcquired("2")
	g.OnResourceAcquired("3")
	its := g.TakeInterrupts()
	assert.Equal(t, 2, len(its))
	check.Equal(t, "4", its[1].Unlocked)
	check.Equal(t, "2", its[1].Rusts)

	check.True(t, g.Exhausted("2"))
	check.True(t, errors.Is(g.CanAcquire("2"), ErrResourceUnavailable))
	g.OnResourceAcquired("2")
	check.False(t, g.HasInterrupts())
}

func TestResourceGate_UnlocksExactlyOnce(t *testing.T) {
	pool := poolCounts{"2": 1, "3": 1, "4": 1, "5": 1, "6": 1, "D": 1}
	g := NewResourceGate(trainSequence(), pool, 0, 1)

	unlockCount := map[string]int{}
	for _, name := range []string{"2", "3", "4", "5", "6"} {
		pool[name] = 0
		g.OnResourceAcquired(name)
		g.OnResourceAcquired(name)
		for _, it := range g.TakeInterrupts() {
			if it.Unlocked != "" {
				unlockCount[it.Unlocked]++
			}
		}
		check.False(t, g.Available(name))
	}

	check.Equal(t, map[string]int{"3": 1, "4": 1, "5": 1, "6": 1}, unlockCount)
	// exempt types skip the sequence and are never exhausted by the gate
	pool["D"] = 0
	g.OnResourceAcquired("D")
	check.True(t, g.Available("D"))
	check.True(t, errors.Is(g.CanAcquire("D"), ErrResourceUnavailable))
}
