package relay

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Intent asks the host to run a mutating operation. ID is the correlation
// token used for duplicate suppression; Origin names the submitting user.
type Intent struct {
	ID        string
	Operation string
	SessionID string
	Origin    string
	Token     string
	Args      map[string]any
}

// NotificationType names a host broadcast.
type NotificationType string

const (
	NotifyActorChanged    NotificationType = "actorChanged"
	NotifyPhaseChanged    NotificationType = "phaseChanged"
	NotifyRoundStarted    NotificationType = "roundStarted"
	NotifyOrderChanged    NotificationType = "orderChanged"
	NotifyCombatEnded     NotificationType = "combatEnded"
	NotifySessionSnapshot NotificationType = "sessionSnapshot"
)

// Notification is a read-only broadcast from the host.
type Notification struct {
	Type      NotificationType
	SessionID string
	Data      map[string]any
}

// EncodeIntent serializes in as a binary protobuf Struct.
func EncodeIntent(in Intent) ([]byte, error) {
	args := in.Args
	if args == nil {
		args = map[string]any{}
	}
	st, err := structpb.NewStruct(map[string]any{
		"id":        in.ID,
		"operation": in.Operation,
		"sessionId": in.SessionID,
		"origin":    in.Origin,
		"token":     in.Token,
		"args":      args,
	})
	if err != nil {
		return nil, fmt.Errorf("encode intent %s: %w", in.Operation, err)
	}
	return proto.Marshal(st)
}

// DecodeIntent parses the output of EncodeIntent.
func DecodeIntent(data []byte) (Intent, error) {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return Intent{}, fmt.Errorf("decode intent: %w", err)
	}
	m := st.AsMap()
	in := Intent{
		ID:        str(m, "id"),
		Operation: str(m, "operation"),
		SessionID: str(m, "sessionId"),
		Origin:    str(m, "origin"),
		Token:     str(m, "token"),
	}
	if args, ok := m["args"].(map[string]any); ok {
		in.Args = args
	}
	if in.Operation == "" {
		return Intent{}, fmt.Errorf("decode intent: missing operation")
	}
	return in, nil
}

// EncodeNotification serializes n as a binary protobuf Struct.
func EncodeNotification(n Notification) ([]byte, error) {
	data := n.Data
	if data == nil {
		data = map[string]any{}
	}
	st, err := structpb.NewStruct(map[string]any{
		"type":      string(n.Type),
		"sessionId": n.SessionID,
		"data":      data,
	})
	if err != nil {
		return nil, fmt.Errorf("encode notification %s: %w", n.Type, err)
	}
	return proto.Marshal(st)
}

// DecodeNotification parses the output of EncodeNotification.
func DecodeNotification(data []byte) (Notification, error) {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	m := st.AsMap()
	n := Notification{
		Type:      NotificationType(str(m, "type")),
		SessionID: str(m, "sessionId"),
	}
	if d, ok := m["data"].(map[string]any); ok {
		n.Data = d
	}
	return n, nil
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
