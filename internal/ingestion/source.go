package ingestion

import (
	"context"
	"time"

	"polyflow/internal/bus"
)

// RawEvent is the collaborator-facing event shape: what an external data
// source produces before the bus stamps identity onto it.
type RawEvent struct {
	Timestamp time.Time
	Type      bus.EventType
	Source    string
	Payload   any
}

// FetchResult is the structured outcome of one fetch cycle. Collaborator
// failures are values, never raised errors: a failed fetch means "no event
// this cycle" and the service backs off before the next attempt.
type FetchResult struct {
	Success bool
	Error   string
	Events  []RawEvent
}

func Successful(events ...RawEvent) FetchResult {
	return FetchResult{Success: true, Events: events}
}

func Failure(err error) FetchResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return FetchResult{Success: false, Error: msg}
}

// Source is the contract every ingestion collaborator implements, simulated
// or live.
type Source interface {
	Name() string
	Fetch(ctx context.Context) FetchResult
}
