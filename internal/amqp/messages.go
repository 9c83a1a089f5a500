package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"caffeine/internal/core"
)

type MessageType string

const (
	MessageSync   MessageType = "sync"
	MessageDelete MessageType = "delete"
)

// EntryMessage announces that an entry was created or deleted.
//
// Sync messages carry only the id; the worker reads the entry back from the
// database. Delete messages carry the removed entry's fields because the row
// is gone by the time the worker sees them.
type EntryMessage struct {
	Type              MessageType `json:"type"`
	ID                int64       `json:"id"`
	Principal         string      `json:"principal"`
	Timestamp         time.Time   `json:"timestamp"`
	DrinkName         string      `json:"drink_name,omitempty"`
	AmountMg          int64       `json:"amount_mg,omitempty"`
	ConsumptionTimeMs int64       `json:"consumption_time_ms,omitempty"`
}

var ErrInvalidMessage = errors.New("invalid entry message")

func NewSyncMessage(id int64, principal core.Principal) *EntryMessage {
	return &EntryMessage{
		Type:      MessageSync,
		ID:        id,
		Principal: principal.String(),
		Timestamp: time.Now(),
	}
}

func NewDeleteMessage(principal core.Principal, e core.Entry) *EntryMessage {
	return &EntryMessage{
		Type:              MessageDelete,
		ID:                e.ID,
		Principal:         principal.String(),
		Timestamp:         time.Now(),
		DrinkName:         e.DrinkName,
		AmountMg:          e.AmountMg,
		ConsumptionTimeMs: e.ConsumptionMillis(),
	}
}

func (m *EntryMessage) Validate() error {
	switch m.Type {
	case MessageSync, MessageDelete:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, m.Type)
	}
	if m.ID <= 0 {
		return fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	return nil
}

func (m *EntryMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryMessageFromJSON decodes and validates a message body.
func EntryMessageFromJSON(data []byte) (*EntryMessage, error) {
	var msg EntryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
