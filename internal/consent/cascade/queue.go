// Package cascade tears down queued and in-flight work for an encounter
// when consent is withdrawn. Cleanup covers three areas: queued background
// jobs, spooled payload files, and running tasks. Every area is
// idempotent; cancelling an encounter with nothing left succeeds with
// zero counts.
package cascade

import (
	"context"
	"time"
)

// Kind labels what a queued job would have produced.
type Kind string

const (
	KindDocRender Kind = "doc_render"
	KindExport    Kind = "export"
	KindTelemetry Kind = "telemetry"
)

// Job is one queued unit of background work tied to an encounter.
type Job struct {
	ID          string    `json:"id"`
	EncounterID string    `json:"encounter_id"`
	Kind        Kind      `json:"kind"`
	Payload     []byte    `json:"payload,omitempty"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// Queue holds pending background jobs indexed by encounter so withdrawal
// can cancel everything for one encounter in a single pass.
type Queue interface {
	// Enqueue adds a job.
	Enqueue(ctx context.Context, job Job) error

	// ListByEncounter returns pending jobs for an encounter, oldest first.
	ListByEncounter(ctx context.Context, encounterID string) ([]Job, error)

	// Complete removes one finished job. Removing an absent job is not
	// an error.
	Complete(ctx context.Context, encounterID, jobID string) error

	// CancelByEncounter removes every pending job for an encounter and
	// returns how many were dropped.
	CancelByEncounter(ctx context.Context, encounterID string) (int, error)
}
