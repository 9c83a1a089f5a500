package amqp

import (
	"errors"
	"testing"
	"time"

	"caffeine/internal/core"
)

func TestNewSyncMessage(t *testing.T) {
	msg := NewSyncMessage(12345, "ada")
	if msg.Type != MessageSync || msg.ID != 12345 || msg.Principal != "ada" {
		t.Errorf("unexpected message %+v", msg)
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestNewDeleteMessageCarriesEntry(t *testing.T) {
	at := time.Date(2025, 1, 2, 8, 0, 0, 0, time.UTC)
	msg := NewDeleteMessage("ada", core.Entry{ID: 9, DrinkName: "Tea", AmountMg: 40, ConsumptionTime: at})

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	parsed, err := EntryMessageFromJSON(data)
	if err != nil {
		t.Fatalf("EntryMessageFromJSON() error = %v", err)
	}
	if parsed.Type != MessageDelete || parsed.DrinkName != "Tea" || parsed.AmountMg != 40 {
		t.Errorf("unexpected message %+v", parsed)
	}
	if parsed.ConsumptionTimeMs != at.UnixMilli() {
		t.Errorf("ConsumptionTimeMs = %d, want %d", parsed.ConsumptionTimeMs, at.UnixMilli())
	}
}

func TestEntryMessageFromJSONInvalid(t *testing.T) {
	if _, err := EntryMessageFromJSON([]byte(`{"id": "not_a_number", "type": "sync"}`)); err == nil {
		t.Error("expected error for non-numeric id")
	}
	if _, err := EntryMessageFromJSON([]byte(`{"type": "sync"}`)); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("expected ErrInvalidMessage, got %v", err)
	}
}
