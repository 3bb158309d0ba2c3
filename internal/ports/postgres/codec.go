package postgres

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"rails/internal/domain"
)

// actionRecord is the stored form of an accepted action.
type actionRecord struct {
	_        struct{} `cbor:",toarray"`
	Kind     string
	Actor    string
	Item     string
	Amount   int64
	Company  string
	Resource string
}

func encodeAction(a domain.Action) ([]byte, error) {
	b, err := cbor.Marshal(actionRecord{
		Kind:     string(a.Kind),
		Actor:    a.Actor,
		Item:     a.Item,
		Amount:   a.Amount,
		Company:  a.Company,
		Resource: a.Resource,
	})
	if err != nil {
		return nil, fmt.Errorf("encode action: %w", err)
	}
	return b, nil
}

func decodeAction(b []byte) (domain.Action, error) {
	var r actionRecord
	if err := cbor.Unmarshal(b, &r); err != nil {
		return domain.Action{}, fmt.Errorf("decode action: %w", err)
	}
	return domain.Action{
		Kind:     domain.ActionKind(r.Kind),
		Actor:    r.Actor,
		Item:     r.Item,
		Amount:   r.Amount,
		Company:  r.Company,
		Resource: r.Resource,
	}, nil
}
