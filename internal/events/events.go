package events

import (
	"context"
	"time"
)

// Stream carrying every test execution change.
const StreamTestExecution = "events:testexecution"

// Event types
const (
	EventCycleChanged      = "test_cycle_changed"
	EventCycleCloned       = "test_cycle_cloned"
	EventRunChanged        = "test_run_changed"
	EventCaseIncluded      = "test_case_included"
	EventAssignmentCreated = "assignment_created"
	EventResultChanged     = "test_result_changed"
	EventResultsApproved   = "test_results_approved"
	EventResultsExpired    = "test_results_expired"
)

type Event struct {
	Type    string         `json:"type"`
	At      time.Time      `json:"at"`
	Payload map[string]any `json:"payload"`
}

// Stamped returns e with At set to the current UTC time unless already set.
func (e Event) Stamped() Event {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return e
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, Event) error { return nil }
