// Package enrich implements the orchestrator that drives enrichment jobs
// through their lifecycle: submit, poll, reconcile, complete.
package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-intel/internal/model"
	"github.com/sells-group/lead-intel/internal/prospect"
	"github.com/sells-group/lead-intel/internal/provider"
	"github.com/sells-group/lead-intel/internal/store"
)

// ErrNoTargets is returned by Submit when the request contains no usable
// targets after dropping empty ones.
var ErrNoTargets = eris.New("enrich: no targets")

// Publisher emits the completion event for a finished job. Publish failures
// must not affect job state; the job record itself is the source of truth.
type Publisher interface {
	PublishJobCompleted(ctx context.Context, job *model.EnrichmentJob) error
}

// Options tunes orchestrator behavior.
type Options struct {
	// Workers bounds concurrent row reconciliation. Default: 4.
	Workers int

	// MaxRunAge fails a job whose provider run has been non-terminal for
	// longer than this. Zero disables the check.
	MaxRunAge time.Duration
}

// Orchestrator coordinates the job store, the provider gateways, and the
// prospect store. It holds no per-job state; everything needed to resume a
// job lives in its persisted payload.
type Orchestrator struct {
	jobs      store.Store
	prospects prospect.Store
	matcher   *prospect.Matcher
	registry  *provider.Registry
	publisher Publisher
	opts      Options

	now func() time.Time
}

// New creates an orchestrator. publisher may be nil to disable events.
func New(jobs store.Store, prospects prospect.Store, registry *provider.Registry, publisher Publisher, opts Options) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Orchestrator{
		jobs:      jobs,
		prospects: prospects,
		matcher:   prospect.NewMatcher(prospects),
		registry:  registry,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
	}
}

// SubmitRequest describes a batch to enrich. Scope is an opaque ownership tag
// carried unchanged in the job payload; the engine never interprets it.
type SubmitRequest struct {
	Kind    model.JobKind  `json:"kind"`
	Targets []model.Target `json:"targets"`
	Scope   string         `json:"scope,omitempty"`
}

// Submit starts a provider run for the batch and persists a durable job
// record. Targets naming only an internal prospect ID are resolved to that
// prospect's website and name first, since the provider only understands
// URLs and queries. The provider run is started before the insert: if the
// provider refuses the run, no job record is created and the error
// propagates to the caller.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*model.EnrichmentJob, error) {
	if !req.Kind.Valid() {
		return nil, eris.Errorf("enrich: unknown job kind %q", req.Kind)
	}

	targets := make([]model.Target, 0, len(req.Targets))
	for _, t := range req.Targets {
		if t.Empty() {
			continue
		}
		if t.ProspectID != 0 && t.URL == "" && t.Name == "" {
			resolved, err := o.resolveTarget(ctx, t)
			if err != nil {
				return nil, err
			}
			t = resolved
		}
		targets = append(targets, t)
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	gw, err := o.registry.Get(req.Kind)
	if err != nil {
		return nil, err
	}

	handle, err := gw.StartRun(ctx, targets)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: start provider run")
	}

	job, err := o.jobs.CreateJob(ctx, req.Kind, model.JobPayload{
		Handle:  handle,
		Targets: targets,
		Scope:   req.Scope,
	})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: persist job")
	}

	zap.L().Info("enrichment job submitted",
		zap.String("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.Int("targets", len(targets)),
		zap.String("run_id", handle.RunID),
	)
	return job, nil
}

// resolveTarget fills an ID-only target from the prospect record so the
// provider run gets a usable input.
func (o *Orchestrator) resolveTarget(ctx context.Context, t model.Target) (model.Target, error) {
	p, err := o.prospects.GetProspect(ctx, t.ProspectID)
	if err != nil {
		return model.Target{}, eris.Wrapf(err, "enrich: resolve target %d", t.ProspectID)
	}
	if p == nil {
		return model.Target{}, eris.Errorf("enrich: unknown prospect %d", t.ProspectID)
	}
	t.URL = p.Website
	t.Name = p.Name
	if t.URL == "" && t.Name == "" {
		return model.Target{}, eris.Errorf("enrich: prospect %d has no website or name to enrich by", t.ProspectID)
	}
	return t, nil
}

// Poll checks on a job and advances it as far as the provider allows. A job
// already terminal is returned as-is. A still-running provider run leaves the
// job untouched, unless it has exceeded MaxRunAge, in which case the job is
// failed. A succeeded run triggers dataset fetch and reconciliation, then
// marks the job completed and publishes the completion event.
func (o *Orchestrator) Poll(ctx context.Context, jobID string) (*model.EnrichmentJob, error) {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return job, nil
	}

	gw, err := o.registry.Get(job.Kind)
	if err != nil {
		return nil, err
	}

	status, err := gw.GetRunStatus(ctx, job.Payload.Handle.RunID)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: poll provider")
	}

	switch {
	case status.State == provider.RunSucceeded:
		return o.finish(ctx, job, gw, status)
	case status.State.Failure():
		return o.fail(ctx, job, "provider run "+string(status.State))
	default:
		if o.opts.MaxRunAge > 0 && o.now().Sub(job.StartedAt) > o.opts.MaxRunAge {
			return o.fail(ctx, job, "provider run exceeded max age")
		}
		return job, nil
	}
}

// finish fetches the dataset, reconciles every row, and completes the job.
func (o *Orchestrator) finish(ctx context.Context, job *model.EnrichmentJob, gw provider.Gateway, status provider.RunStatus) (*model.EnrichmentJob, error) {
	datasetID := status.DatasetID
	if datasetID == "" {
		datasetID = job.Payload.Handle.DatasetID
	}

	items, err := gw.FetchDataset(ctx, datasetID)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: fetch dataset")
	}

	rows := provider.Normalize(job.Kind, items)
	result := o.reconcile(ctx, job.Kind, rows)
	result.Processed = len(items)

	if err := o.jobs.CompleteJob(ctx, job.ID, result); err != nil {
		return nil, eris.Wrap(err, "enrich: complete job")
	}

	completed, err := o.jobs.GetJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	if o.publisher != nil {
		if err := o.publisher.PublishJobCompleted(ctx, completed); err != nil {
			zap.L().Error("publish job completed event",
				zap.String("job_id", completed.ID),
				zap.Error(err),
			)
		}
	}

	zap.L().Info("enrichment job completed",
		zap.String("job_id", completed.ID),
		zap.String("kind", string(completed.Kind)),
		zap.Int("processed", result.Processed),
		zap.Int("updated", result.Updated),
		zap.Int("not_found", result.NotFound),
	)
	return completed, nil
}

func (o *Orchestrator) fail(ctx context.Context, job *model.EnrichmentJob, reason string) (*model.EnrichmentJob, error) {
	if err := o.jobs.FailJob(ctx, job.ID, reason); err != nil {
		return nil, eris.Wrap(err, "enrich: fail job")
	}
	zap.L().Warn("enrichment job failed",
		zap.String("job_id", job.ID),
		zap.String("reason", reason),
	)
	return o.jobs.GetJob(ctx, job.ID)
}

// reconcile matches and patches every row with bounded concurrency. Row
// failures are isolated: a row that cannot be matched or persisted is logged
// and counted, never aborts the batch.
func (o *Orchestrator) reconcile(ctx context.Context, kind model.JobKind, rows []model.ResultRow) model.JobResult {
	var (
		mu     sync.Mutex
		result model.JobResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)

	for _, row := range rows {
		row := row
		g.Go(func() error {
			p, err := o.matcher.Match(gctx, row)
			if err != nil {
				zap.L().Warn("reconcile: match failed",
					zap.String("kind", string(kind)),
					zap.String("url", row.URL),
					zap.Error(err),
				)
				return nil
			}
			if p == nil {
				mu.Lock()
				result.NotFound++
				mu.Unlock()
				return nil
			}

			patch := prospect.ComputePatch(p, row.Fields, kind)
			if err := o.prospects.ApplyPatch(gctx, p.ID, patch); err != nil {
				zap.L().Warn("reconcile: patch failed",
					zap.Int64("prospect_id", p.ID),
					zap.Error(err),
				)
				return nil
			}

			mu.Lock()
			result.Updated++
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors; failures are counted per row.
	_ = g.Wait()
	return result
}
