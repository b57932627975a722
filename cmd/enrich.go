package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-intel/internal/enrich"
	"github.com/sells-group/lead-intel/internal/model"
)

var (
	enrichKind     string
	enrichURLs     []string
	enrichNames    []string
	enrichScope    string
	enrichWatch    bool
	enrichInterval time.Duration
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Submit an enrichment batch",
	Long:  "Starts a provider run for the given targets and prints the job record. With --watch, polls until the job reaches a terminal state.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		req := enrich.SubmitRequest{
			Kind:  model.JobKind(enrichKind),
			Scope: enrichScope,
		}
		for _, u := range enrichURLs {
			req.Targets = append(req.Targets, model.Target{URL: u})
		}
		for _, n := range enrichNames {
			req.Targets = append(req.Targets, model.Target{Name: n})
		}

		job, err := env.Orchestrator.Submit(ctx, req)
		if err != nil {
			return eris.Wrap(err, "enrich")
		}

		if !enrichWatch {
			return printJSON(job)
		}

		fmt.Fprintf(os.Stderr, "job %s submitted, polling every %s\n", job.ID, enrichInterval)
		for !job.Status.Terminal() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(enrichInterval):
			}

			job, err = env.Orchestrator.Poll(ctx, job.ID)
			if err != nil {
				return eris.Wrap(err, "enrich: poll")
			}
			fmt.Fprintf(os.Stderr, "job %s: %s\n", job.ID, job.Status)
		}

		return printJSON(job)
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichKind, "kind", "", "enrichment kind (directory-lookup, social-profile-lookup, decision-maker-lookup, contact-scrape, tech-stack)")
	enrichCmd.Flags().StringSliceVar(&enrichURLs, "url", nil, "target website URL (repeatable)")
	enrichCmd.Flags().StringSliceVar(&enrichNames, "name", nil, "target display name (repeatable)")
	enrichCmd.Flags().StringVar(&enrichScope, "scope", "", "opaque ownership scope tag carried in the job payload")
	enrichCmd.Flags().BoolVar(&enrichWatch, "watch", false, "poll until the job is terminal")
	enrichCmd.Flags().DurationVar(&enrichInterval, "interval", 5*time.Second, "poll interval with --watch")
	_ = enrichCmd.MarkFlagRequired("kind")
	rootCmd.AddCommand(enrichCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
