package health

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCircuitOpensAfterWindowAllFail(t *testing.T) {
	botID := uuid.New()
	m := New(Config{Window: 3})

	if m.CircuitOpen(botID) {
		t.Fatal("circuit should start closed")
	}

	m.RecordOutcome(botID, false)
	m.RecordOutcome(botID, false)
	if m.CircuitOpen(botID) {
		t.Fatal("circuit should stay closed before the window fills")
	}

	m.RecordOutcome(botID, false)
	if !m.CircuitOpen(botID) {
		t.Fatal("circuit should open once the last window outcomes are all failures")
	}
}

func TestCircuitStaysClosedOnMixedOutcomes(t *testing.T) {
	botID := uuid.New()
	m := New(Config{Window: 3})

	m.RecordOutcome(botID, false)
	m.RecordOutcome(botID, true)
	m.RecordOutcome(botID, false)

	if m.CircuitOpen(botID) {
		t.Fatal("a success inside the window must prevent the circuit from opening")
	}
}

func TestCircuitHalfClosesAfterCooldown(t *testing.T) {
	botID := uuid.New()
	clock := time.Now().UTC()
	m := New(Config{Window: 2, Cooldown: time.Minute})
	m.now = func() time.Time { return clock }

	m.RecordOutcome(botID, false)
	m.RecordOutcome(botID, false)
	if !m.CircuitOpen(botID) {
		t.Fatal("circuit should be open immediately after the window fails")
	}

	clock = clock.Add(2 * time.Minute)
	if m.CircuitOpen(botID) {
		t.Fatal("circuit should half-close once the cooldown has elapsed")
	}
}

func TestRecordOutcomeSuccessClosesCircuitImmediately(t *testing.T) {
	botID := uuid.New()
	m := New(Config{Window: 2})

	m.RecordOutcome(botID, false)
	m.RecordOutcome(botID, false)
	if !m.CircuitOpen(botID) {
		t.Fatal("circuit should be open")
	}

	m.RecordOutcome(botID, true)
	if m.CircuitOpen(botID) {
		t.Fatal("a recorded success must close the circuit")
	}
}
