// Package model defines the core types shared across the enrichment engine.
package model

import "time"

// JobStatus represents the current state of an enrichment job.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether the status is final. A job that leaves
// "running" never changes again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobKind identifies which enrichment capability a job invoked.
type JobKind string

const (
	KindDirectoryLookup     JobKind = "directory-lookup"
	KindSocialProfileLookup JobKind = "social-profile-lookup"
	KindDecisionMakerLookup JobKind = "decision-maker-lookup"
	KindContactScrape       JobKind = "contact-scrape"
	KindTechStack           JobKind = "tech-stack"
)

// Kinds lists every known job kind.
func Kinds() []JobKind {
	return []JobKind{
		KindDirectoryLookup,
		KindSocialProfileLookup,
		KindDecisionMakerLookup,
		KindContactScrape,
		KindTechStack,
	}
}

// Valid reports whether k is a known job kind.
func (k JobKind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// RunHandle is the opaque reference needed to check on and retrieve results
// from an asynchronous provider run. All resume state lives here, not in
// gateway memory.
type RunHandle struct {
	RunID     string `json:"run_id"`
	DatasetID string `json:"dataset_id,omitempty"`
}

// JobPayload is the job-kind-specific context persisted at submission so a
// later poll can resume: the provider run handle, the submitted targets, and
// an opaque ownership scope tag carried unchanged.
type JobPayload struct {
	Handle  RunHandle `json:"handle"`
	Targets []Target  `json:"targets"`
	Scope   string    `json:"scope,omitempty"`
}

// JobResult summarizes a completed reconciliation pass.
type JobResult struct {
	Processed int `json:"processed"`
	Updated   int `json:"updated"`
	NotFound  int `json:"not_found"`
}

// EnrichmentJob is the durable record of a submitted enrichment batch.
type EnrichmentJob struct {
	ID          string     `json:"id"`
	Kind        JobKind    `json:"kind"`
	Status      JobStatus  `json:"status"`
	Payload     JobPayload `json:"payload"`
	Result      *JobResult `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
