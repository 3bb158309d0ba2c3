package ruleset

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"rails/internal/domain"
)

// Global function names a ruleset script may define. Each is optional.
const (
	luaOnRoundComplete     = "on_round_complete"
	luaOnResourceExhausted = "on_resource_type_exhausted"
	luaOnFinalSequence     = "on_final_sequence_check"
)

// LuaPolicy runs ruleset callbacks written in Lua. A state is single-threaded, which matches the
// engine; one LuaPolicy must serve one game.
type LuaPolicy struct {
	state   *lua.LState
	onError func(error)
}

// NewLuaPolicy compiles src in a state with only the base, table, string and math libraries.
func NewLuaPolicy(src string, onError func(error)) (*LuaPolicy, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("open lua library %s: %w", lib.name, err)
		}
	}
	if err := L.DoString(src); err != nil {
		L.Close()
		return nil, fmt.Errorf("load ruleset script: %w", err)
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &LuaPolicy{state: L, onError: onError}, nil
}

// Close releases the Lua state.
func (p *LuaPolicy) Close() { p.state.Close() }

// Policy layers the script's callbacks over base. Callbacks the script does not define keep base's.
func (p *LuaPolicy) Policy(base domain.RulesetPolicy) domain.RulesetPolicy {
	base.Name = "lua"
	if fn := p.function(luaOnRoundComplete); fn != nil {
		fallback := base.OnRoundComplete
		base.OnRoundComplete = p.transitionHook(luaOnRoundComplete, fn, fallback)
	}
	if fn := p.function(luaOnFinalSequence); fn != nil {
		fallback := base.OnFinalSequenceCheck
		base.OnFinalSequenceCheck = p.transitionHook(luaOnFinalSequence, fn, fallback)
	}
	if fn := p.function(luaOnResourceExhausted); fn != nil {
		base.OnResourceTypeExhausted = p.exhaustionHook(fn)
	}
	return base
}

func (p *LuaPolicy) function(name string) *lua.LFunction {
	fn, ok := p.state.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil
	}
	return fn
}

type transitionFunc = func(domain.PolicyView, domain.Transition) (domain.Transition, bool)

func (p *LuaPolicy) transitionHook(name string, fn *lua.LFunction, fallback transitionFunc) transitionFunc {
	return func(view domain.PolicyView, proposed domain.Transition) (domain.Transition, bool) {
		L := p.state
		err := L.CallByParam(lua.P{Fn: fn, NRet: 2, Protect: true}, p.viewTable(view), p.transitionTable(proposed))
		if err != nil {
			p.onError(fmt.Errorf("lua %s: %w", name, err))
			return proposed, false
		}
		next, reason := L.Get(-2), L.Get(-1)
		L.Pop(2)

		if next == lua.LNil {
			if fallback != nil {
				return fallback(view, proposed)
			}
			return proposed, false
		}
		kind := domain.RoundKind(lua.LVAsString(next))
		if !knownRound(kind) {
			p.onError(fmt.Errorf("lua ruleset returned unknown round %q", kind))
			return proposed, false
		}
		proposed.Next = kind
		if s := lua.LVAsString(reason); s != "" {
			proposed.Reason = s
		}
		return proposed, true
	}
}

func (p *LuaPolicy) exhaustionHook(fn *lua.LFunction) func(domain.PolicyView, domain.Interrupt) domain.ExhaustionEffect {
	return func(view domain.PolicyView, it domain.Interrupt) domain.ExhaustionEffect {
		def := domain.ExhaustionEffect{
			EndOperating:       it.EndOperating,
			StartFinalSequence: it.Granted.Has(domain.PermissionFinalPhase),
		}
		L := p.state
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, p.viewTable(view), p.interruptTable(it)); err != nil {
			p.onError(fmt.Errorf("lua %s: %w", luaOnResourceExhausted, err))
			return def
		}
		ret := L.Get(-1)
		L.Pop(1)
		tbl, ok := ret.(*lua.LTable)
		if !ok {
			return def
		}
		if v := tbl.RawGetString("end_operating"); v != lua.LNil {
			def.EndOperating = lua.LVAsBool(v)
		}
		if v := tbl.RawGetString("start_final_sequence"); v != lua.LNil {
			def.StartFinalSequence = lua.LVAsBool(v)
		}
		return def
	}
}

func (p *LuaPolicy) viewTable(v domain.PolicyView) *lua.LTable {
	L := p.state
	t := L.NewTable()
	t.RawSetString("round", lua.LString(v.Round.Kind))
	t.RawSetString("round_number", lua.LNumber(v.Round.Number))
	t.RawSetString("priority", lua.LString(v.Priority))
	t.RawSetString("bank_cash", lua.LNumber(v.BankCash))

	perms := L.NewTable()
	for _, tok := range v.Permissions.Sorted() {
		perms.RawSetString(string(tok), lua.LTrue)
	}
	t.RawSetString("permissions", perms)

	c := L.NewTable()
	c.RawSetString("packets_remaining", lua.LNumber(v.Counters.PacketsRemaining))
	c.RawSetString("operating_target", lua.LNumber(v.Counters.OperatingTarget))
	c.RawSetString("operating_run", lua.LNumber(v.Counters.OperatingRun))
	c.RawSetString("final_sequence_started", lua.LBool(v.Counters.FinalSequenceStarted))
	c.RawSetString("final_sequence", lua.LNumber(v.Counters.FinalSequence))
	c.RawSetString("final_bound", lua.LNumber(v.Counters.FinalBound))
	t.RawSetString("counters", c)
	return t
}

func (p *LuaPolicy) transitionTable(tr domain.Transition) *lua.LTable {
	t := p.state.NewTable()
	t.RawSetString("from", lua.LString(tr.From))
	t.RawSetString("next", lua.LString(tr.Next))
	t.RawSetString("reason", lua.LString(tr.Reason))
	return t
}

func (p *LuaPolicy) interruptTable(it domain.Interrupt) *lua.LTable {
	t := p.state.NewTable()
	t.RawSetString("exhausted", lua.LString(it.Exhausted))
	t.RawSetString("unlocked", lua.LString(it.Unlocked))
	t.RawSetString("holder_limit", lua.LNumber(it.HolderLimit))
	t.RawSetString("end_operating", lua.LBool(it.EndOperating))
	granted := p.state.NewTable()
	for _, tok := range it.Granted.Sorted() {
		granted.Append(lua.LString(tok))
	}
	t.RawSetString("granted", granted)
	return t
}

func knownRound(k domain.RoundKind) bool {
	switch k {
	case domain.RoundAuction, domain.RoundTrading, domain.RoundOperating,
		domain.RoundFinalExchange, domain.RoundGameOver:
		return true
	}
	return false
}
