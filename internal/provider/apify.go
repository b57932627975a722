package provider

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-intel/internal/model"
	"github.com/sells-group/lead-intel/internal/resilience"
	"github.com/sells-group/lead-intel/pkg/apify"
)

// ApifyGateway adapts one Apify actor to the Gateway contract. Each job kind
// gets its own instance bound to the actor implementing that capability.
type ApifyGateway struct {
	client  apify.Client
	actorID string
	retry   resilience.RetryConfig
}

// NewApifyGateway creates a gateway for a single actor.
func NewApifyGateway(client apify.Client, actorID string) *ApifyGateway {
	return &ApifyGateway{
		client:  client,
		actorID: actorID,
		retry:   resilience.DefaultRetryConfig(),
	}
}

// actorInput is the common input document shared by the actors we run:
// start URLs for crawl-style actors, queries for search-style ones.
type actorInput struct {
	StartURLs []startURL `json:"startUrls,omitempty"`
	Queries   []string   `json:"queries,omitempty"`
}

type startURL struct {
	URL string `json:"url"`
}

// StartRun submits the batch to the actor. Transient failures (throttling,
// 5xx, network) surface as ErrUnavailable so callers know no durable work
// exists and may retry; caller errors like a rejected input or a bad token
// are returned as-is.
func (g *ApifyGateway) StartRun(ctx context.Context, targets []model.Target) (model.RunHandle, error) {
	input := actorInput{}
	for _, t := range targets {
		if t.URL != "" {
			input.StartURLs = append(input.StartURLs, startURL{URL: t.URL})
		} else if t.Name != "" {
			input.Queries = append(input.Queries, t.Name)
		}
	}

	run, err := resilience.DoVal(ctx, g.retryConfig("start run"), func(ctx context.Context) (*apify.Run, error) {
		return g.client.StartActorRun(ctx, g.actorID, input)
	})
	if err != nil {
		var apiErr *apify.APIError
		if eris.As(err, &apiErr) && !resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
			return model.RunHandle{}, eris.Wrapf(err, "provider: start run %s", g.actorID)
		}
		return model.RunHandle{}, eris.Wrap(ErrUnavailable, err.Error())
	}

	zap.L().Info("provider run started",
		zap.String("actor_id", g.actorID),
		zap.String("run_id", run.ID),
		zap.String("dataset_id", run.DefaultDatasetID),
	)
	return model.RunHandle{RunID: run.ID, DatasetID: run.DefaultDatasetID}, nil
}

// GetRunStatus reports the current state of a run.
func (g *ApifyGateway) GetRunStatus(ctx context.Context, runID string) (RunStatus, error) {
	run, err := resilience.DoVal(ctx, g.retryConfig("get run status"), func(ctx context.Context) (*apify.Run, error) {
		return g.client.GetRun(ctx, runID)
	})
	if err != nil {
		return RunStatus{}, eris.Wrap(err, "provider: get run status")
	}
	return RunStatus{
		State:     mapRunState(run.Status),
		DatasetID: run.DefaultDatasetID,
	}, nil
}

// FetchDataset retrieves the raw items a succeeded run produced.
func (g *ApifyGateway) FetchDataset(ctx context.Context, datasetID string) ([]map[string]any, error) {
	items, err := resilience.DoVal(ctx, g.retryConfig("fetch dataset"), func(ctx context.Context) ([]map[string]any, error) {
		return g.client.ListDatasetItems(ctx, datasetID)
	})
	if err != nil {
		return nil, eris.Wrap(err, "provider: fetch dataset")
	}
	return items, nil
}

func (g *ApifyGateway) retryConfig(operation string) resilience.RetryConfig {
	cfg := g.retry
	cfg.ShouldRetry = shouldRetryAPICall
	cfg.OnRetry = resilience.RetryLogger("apify", operation)
	return cfg
}

func shouldRetryAPICall(err error) bool {
	var apiErr *apify.APIError
	if eris.As(err, &apiErr) {
		return resilience.IsTransientHTTPStatus(apiErr.StatusCode)
	}
	return resilience.IsTransient(err)
}

// mapRunState folds Apify's transitional statuses into the engine's states:
// a run that is aborting or timing out is still running until the provider
// says otherwise.
func mapRunState(status string) RunState {
	switch status {
	case apify.StatusReady:
		return RunQueued
	case apify.StatusRunning, apify.StatusAborting, apify.StatusTimingOut:
		return RunRunning
	case apify.StatusSucceeded:
		return RunSucceeded
	case apify.StatusFailed:
		return RunFailed
	case apify.StatusAborted:
		return RunAborted
	case apify.StatusTimedOut:
		return RunTimedOut
	default:
		return RunRunning
	}
}

var _ Gateway = (*ApifyGateway)(nil)
