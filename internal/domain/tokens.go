package domain

import "sort"

// Token names a right or a phase permission.
type Token string

const (
	// PermissionFinalPhase starts the final sequence under the standard ruleset.
	PermissionFinalPhase Token = "final_phase"
)

// TokenSet is an explicit set of named tokens.
type TokenSet map[Token]struct{}

// NewTokenSet builds a set holding the given tokens.
func NewTokenSet(tokens ...Token) TokenSet {
	s := make(TokenSet, len(tokens))
	for _, t := range tokens {
		s[t] = struct{}{}
	}
	return s
}

// Has reports membership; a nil set holds nothing.
func (s TokenSet) Has(t Token) bool {
	_, ok := s[t]
	return ok
}

// Add inserts tokens, allocating the set if needed.
func (s *TokenSet) Add(tokens ...Token) {
	if *s == nil {
		*s = make(TokenSet, len(tokens))
	}
	for _, t := range tokens {
		(*s)[t] = struct{}{}
	}
}

// Union returns a new set holding the tokens of both sets.
func (s TokenSet) Union(other TokenSet) TokenSet {
	out := make(TokenSet, len(s)+len(other))
	for t := range s {
		out[t] = struct{}{}
	}
	for t := range other {
		out[t] = struct{}{}
	}
	return out
}

// Sorted lists the tokens in lexical order.
func (s TokenSet) Sorted() []Token {
	out := make([]Token, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
