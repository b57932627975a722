// Package provider defines the contract between the enrichment engine and
// asynchronous data providers, plus the registry that routes job kinds to them.
package provider

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-intel/internal/model"
)

// ErrUnavailable is returned by StartRun when the provider cannot accept a
// run right now. Callers must not create a job record in that case.
var ErrUnavailable = eris.New("provider: unavailable")

// RunState is the provider-side lifecycle state of a run.
type RunState string

const (
	RunQueued    RunState = "queued"
	RunRunning   RunState = "running"
	RunSucceeded RunState = "succeeded"
	RunFailed    RunState = "failed"
	RunAborted   RunState = "aborted"
	RunTimedOut  RunState = "timed-out"
)

// Terminal reports whether the run state is final.
func (s RunState) Terminal() bool {
	switch s {
	case RunSucceeded, RunFailed, RunAborted, RunTimedOut:
		return true
	default:
		return false
	}
}

// Failure reports whether the run state is terminal and unsuccessful.
func (s RunState) Failure() bool {
	return s.Terminal() && s != RunSucceeded
}

// RunStatus is a point-in-time snapshot of a provider run.
type RunStatus struct {
	State     RunState
	DatasetID string
}

// Gateway is the engine's view of one asynchronous provider integration.
// StartRun submits the batch and returns immediately with a durable handle;
// results become available through FetchDataset only after GetRunStatus
// reports a succeeded run.
type Gateway interface {
	StartRun(ctx context.Context, targets []model.Target) (model.RunHandle, error)
	GetRunStatus(ctx context.Context, runID string) (RunStatus, error)
	FetchDataset(ctx context.Context, datasetID string) ([]map[string]any, error)
}

// Registry routes job kinds to their gateways.
type Registry struct {
	mu       sync.RWMutex
	gateways map[model.JobKind]Gateway
}

// NewRegistry creates an empty gateway registry.
func NewRegistry() *Registry {
	return &Registry{
		gateways: make(map[model.JobKind]Gateway),
	}
}

// Register binds a gateway to a job kind, replacing any previous binding.
func (r *Registry) Register(kind model.JobKind, gw Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[kind] = gw
}

// Get returns the gateway for a job kind.
func (r *Registry) Get(kind model.JobKind) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gw, ok := r.gateways[kind]
	if !ok {
		return nil, eris.Errorf("provider: no gateway registered for kind %s", kind)
	}
	return gw, nil
}

// Kinds returns the job kinds with a registered gateway.
func (r *Registry) Kinds() []model.JobKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]model.JobKind, 0, len(r.gateways))
	for k := range r.gateways {
		kinds = append(kinds, k)
	}
	return kinds
}
