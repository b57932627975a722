package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-intel/internal/model"
	"github.com/sells-group/lead-intel/internal/store"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect enrichment job history",
	Long:  "Commands for listing, viewing, and summarizing enrichment jobs.",
}

// -- jobs list --

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrichment jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		kind, _ := cmd.Flags().GetString("kind")
		limit, _ := cmd.Flags().GetInt("limit")

		jobs, err := st.ListJobs(ctx, store.JobFilter{
			Status: model.JobStatus(status),
			Kind:   model.JobKind(kind),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "jobs list")
		}

		if len(jobs) == 0 {
			fmt.Fprintln(os.Stderr, "No jobs found.")
			return nil
		}

		formatJobsList(os.Stdout, jobs)
		return nil
	},
}

// -- jobs show --

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show full details of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		job, err := st.GetJob(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "jobs show")
		}

		return printJSON(job)
	},
}

// -- jobs stats --

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate job statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		jobs, err := st.ListJobs(ctx, store.JobFilter{Limit: 10000})
		if err != nil {
			return eris.Wrap(err, "jobs stats")
		}

		formatJobStats(os.Stdout, computeJobStats(jobs))
		return nil
	},
}

func init() {
	jobsListCmd.Flags().String("status", "", "filter by job status (running, completed, failed)")
	jobsListCmd.Flags().String("kind", "", "filter by job kind")
	jobsListCmd.Flags().Int("limit", 50, "max number of jobs to display")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsStatsCmd)
	rootCmd.AddCommand(jobsCmd)
}

// jobStats holds aggregate statistics computed from a set of jobs.
type jobStats struct {
	Total      int
	Running    int
	Completed  int
	Failed     int
	Processed  int
	Updated    int
	NotFound   int
	AvgDurSecs float64
}

func computeJobStats(jobs []model.EnrichmentJob) jobStats {
	var s jobStats
	s.Total = len(jobs)

	var totalDur time.Duration
	var durCount int

	for _, j := range jobs {
		switch j.Status {
		case model.JobStatusCompleted:
			s.Completed++
			if j.Result != nil {
				s.Processed += j.Result.Processed
				s.Updated += j.Result.Updated
				s.NotFound += j.Result.NotFound
			}
			if j.CompletedAt != nil {
				totalDur += j.CompletedAt.Sub(j.StartedAt)
				durCount++
			}
		case model.JobStatusFailed:
			s.Failed++
		default:
			s.Running++
		}
	}

	if durCount > 0 {
		s.AvgDurSecs = totalDur.Seconds() / float64(durCount)
	}
	return s
}

// formatJobsList writes a tabular list of jobs to w.
func formatJobsList(out io.Writer, jobs []model.EnrichmentJob) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tKIND\tSTATUS\tTARGETS\tRESULT\tSTARTED")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t-------\t------\t-------")

	for _, j := range jobs {
		result := ""
		if j.Result != nil {
			result = fmt.Sprintf("%d/%d/%d", j.Result.Processed, j.Result.Updated, j.Result.NotFound)
		} else if j.Error != "" {
			result = truncate(j.Error, 30)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			truncate(j.ID, 8),
			j.Kind,
			j.Status,
			len(j.Payload.Targets),
			result,
			j.StartedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatJobStats writes aggregate stats to w.
func formatJobStats(out io.Writer, s jobStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total jobs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Running:\t%d\n", s.Running)
	_, _ = fmt.Fprintf(w, "Completed:\t%d\n", s.Completed)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Rows processed:\t%d\n", s.Processed)
	_, _ = fmt.Fprintf(w, "Prospects updated:\t%d\n", s.Updated)
	_, _ = fmt.Fprintf(w, "Rows unmatched:\t%d\n", s.NotFound)
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// truncate shortens a string for compact display.
func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
