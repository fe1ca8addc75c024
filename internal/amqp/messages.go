package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

type ChangeAction string

const (
	ActionCreated ChangeAction = "created"
	ActionDeleted ChangeAction = "deleted"
)

// ChangeEvent tells subscribers that the transaction set changed. It carries
// no payload beyond identifiers; consumers re-read a full snapshot.
type ChangeEvent struct {
	TransactionID string       `json:"transaction_id"`
	Action        ChangeAction `json:"action"`
	Month         string       `json:"month,omitempty"` // YYYY-MM of the affected transaction, when known
	Timestamp     time.Time    `json:"timestamp"`
}

func NewChangeEvent(id string, action ChangeAction, month string) ChangeEvent {
	return ChangeEvent{
		TransactionID: id,
		Action:        action,
		Month:         month,
		Timestamp:     time.Now().UTC(),
	}
}

func (e ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ChangeEventFromJSON decodes and validates an event body.
func ChangeEventFromJSON(data []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ChangeEvent{}, err
	}
	switch ev.Action {
	case ActionCreated, ActionDeleted:
	default:
		return ChangeEvent{}, fmt.Errorf("unknown change action %q", ev.Action)
	}
	if ev.TransactionID == "" {
		return ChangeEvent{}, fmt.Errorf("change event without transaction id")
	}
	return ev, nil
}
