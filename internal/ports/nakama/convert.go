package nakama

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"rails/internal/app"
	"rails/internal/domain"
)

// actionFromProto decodes a client action. The actor is always the sender; clients cannot act
// for someone else.
func actionFromProto(data []byte, sender string) (domain.Action, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return domain.Action{}, fmt.Errorf("decode action: %w", err)
	}
	f := s.GetFields()
	a := domain.Action{
		Kind:     domain.ActionKind(f["kind"].GetStringValue()),
		Actor:    sender,
		Item:     f["item"].GetStringValue(),
		Amount:   int64(f["amount"].GetNumberValue()),
		Company:  f["company"].GetStringValue(),
		Resource: f["resource"].GetStringValue(),
	}
	if a.Kind == "" {
		return domain.Action{}, fmt.Errorf("decode action: missing kind")
	}
	return a, nil
}

// actionToProto encodes an action in the same shape clients submit. Bid templates carry their range.
func actionToProto(a domain.Action) *structpb.Struct {
	f := map[string]*structpb.Value{
		"kind":  structpb.NewStringValue(string(a.Kind)),
		"actor": structpb.NewStringValue(a.Actor),
	}
	setString := func(k, v string) {
		if v != "" {
			f[k] = structpb.NewStringValue(v)
		}
	}
	setNumber := func(k string, v int64) {
		if v != 0 {
			f[k] = structpb.NewNumberValue(float64(v))
		}
	}
	setString("item", a.Item)
	setString("company", a.Company)
	setString("resource", a.Resource)
	setNumber("amount", a.Amount)
	setNumber("min_bid", a.MinBid)
	setNumber("max_bid", a.MaxBid)
	setNumber("step", a.Step)
	return &structpb.Struct{Fields: f}
}

func actionsToProto(actions []domain.Action) ([]byte, error) {
	list := &structpb.ListValue{}
	for _, a := range actions {
		list.Values = append(list.Values, structpb.NewStructValue(actionToProto(a)))
	}
	return proto.Marshal(&structpb.Struct{Fields: map[string]*structpb.Value{
		"actions": structpb.NewListValue(list),
	}})
}

// toStruct turns any JSON-encodable value into a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func eventToProto(ev app.Event) ([]byte, error) {
	payload, err := toStruct(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", ev.Kind, err)
	}
	return proto.Marshal(&structpb.Struct{Fields: map[string]*structpb.Value{
		"kind":    structpb.NewStringValue(string(ev.Kind)),
		"payload": structpb.NewStructValue(payload),
	}})
}

func errorToProto(code int, kind, message string) ([]byte, error) {
	return proto.Marshal(&structpb.Struct{Fields: map[string]*structpb.Value{
		"code":    structpb.NewNumberValue(float64(code)),
		"kind":    structpb.NewStringValue(kind),
		"message": structpb.NewStringValue(message),
	}})
}

func labelJSON(open int, state string) (string, error) {
	label, err := structpb.NewStruct(map[string]any{
		"game":  matchLabelGame,
		"open":  open,
		"state": state,
	})
	if err != nil {
		return "", err
	}
	b, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
