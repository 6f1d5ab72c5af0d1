package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openclinic/kioskboard/internal/api"
)

func newNotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Note-compliance checking",
	}

	cmd.AddCommand(newNotesSubmitCmd())

	return cmd
}

func newNotesSubmitCmd() *cobra.Command {
	var recheck bool

	cmd := &cobra.Command{
		Use:   "submit <encounter-id>...",
		Short: "Submit a batch of note-compliance checks",
		Long: `Enqueue note-compliance checks for the given encounters as one batch.

The batch is accepted or rejected as a unit; on failure re-run the command
to re-submit the whole batch. There is no per-encounter acknowledgment.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotesSubmit(cmd, args, recheck)
		},
	}

	cmd.Flags().BoolVar(&recheck, "recheck", false, "re-run checks that already completed")

	return cmd
}

func runNotesSubmit(cmd *cobra.Command, encounterIDs []string, recheck bool) error {
	cfg, _, err := resolveConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	ctx := cmd.Context()

	mgr, client := buildSessionManager(ctx, cfg, logger)

	if err := mgr.RestoreAtStartup(ctx); err != nil {
		return err
	}

	if !mgr.IsAuthenticated() {
		return fmt.Errorf("not logged in (run: kioskboard login)")
	}

	kind := api.JobCheck
	if recheck {
		kind = api.JobRecheck
	}

	jobs := make([]api.JobRequest, 0, len(encounterIDs))
	for _, id := range encounterIDs {
		jobs = append(jobs, api.JobRequest{EncounterID: id, Kind: kind})
	}

	batchID, err := client.SubmitJobBatch(ctx, jobs)
	if err != nil {
		return err
	}

	statusf("Batch %s accepted (%d checks)\n", batchID, len(jobs))

	return nil
}
