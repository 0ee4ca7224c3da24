package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/datasetops/shuttle/engine"
	"github.com/datasetops/shuttle/provider"
)

var (
	runFolderID    string
	runFolderName  string
	runRank        string
	runCaptureDate string
	runCategory    string
	runDescription string
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single transfer job and wait for it",
		Long: `Run one transfer job in the foreground: enumerate the source folder,
move every file through the dedup pipeline, and print the final counts.`,
		Example: `  shuttle run --folder-name Dataset --rank dark
  shuttle run --folder-id 1AbC... --rank milk --capture-date 2024-05-01`,
		RunE: runRun,
	}

	cmd.Flags().StringVar(&runFolderID, "folder-id", "", "source folder ID")
	cmd.Flags().StringVar(&runFolderName, "folder-name", "", "source folder name, resolved to an ID")
	cmd.Flags().StringVar(&runRank, "rank", "", "classification prefix for destination keys (default: folder name)")
	cmd.Flags().StringVar(&runCaptureDate, "capture-date", "", "capture date metadata (2006-01-02)")
	cmd.Flags().StringVar(&runCategory, "category", "", "category tag metadata")
	cmd.Flags().StringVar(&runDescription, "description", "", "description metadata")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	comps, cleanup, err := buildComponents(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	folderID := runFolderID
	if folderID == "" && runFolderName != "" {
		browser, ok := comps.source.(provider.FolderBrowser)
		if !ok {
			return fmt.Errorf("the configured source cannot resolve folders by name, use --folder-id")
		}
		folderID, err = browser.FindFolder(ctx, runFolderName)
		if err != nil {
			return err
		}
	}
	if folderID == "" {
		return fmt.Errorf("--folder-id or --folder-name is required")
	}

	rank := runRank
	if rank == "" {
		rank = runFolderName
	}
	if rank == "" {
		rank = "unsorted"
	}

	job := comps.manager.CreateJob()
	err = comps.scheduler.Start(job.ID, engine.TransferRequest{
		FolderID: folderID,
		Rank:     rank,
		Meta: provider.ObjectMetadata{
			CaptureDate: runCaptureDate,
			Category:    runCategory,
			Description: runDescription,
		},
	})
	if err != nil {
		return err
	}

	// Poll until the pipeline reaches a terminal state.
	for {
		snapshot, err := comps.manager.Get(job.ID)
		if err != nil {
			return err
		}
		if snapshot.Status.Terminal() {
			printSummary(snapshot)
			if snapshot.Status == engine.StateFailed {
				return fmt.Errorf("transfer failed: %s", snapshot.Error)
			}
			return nil
		}
		time.Sleep(250 * time.Millisecond)
	}
}

func printSummary(job engine.TransferJob) {
	fmt.Printf("\nTransfer summary (%s):\n", job.ID)
	fmt.Printf("  status:   %s\n", job.Status)
	fmt.Printf("  total:    %d\n", job.Stats.TotalFiles)
	fmt.Printf("  uploaded: %d\n", job.Stats.UploadedFiles)
	fmt.Printf("  skipped:  %d\n", job.Stats.SkippedFiles)
	fmt.Printf("  failed:   %d\n", job.Stats.FailedFiles)
	if job.EndTime != nil {
		fmt.Printf("  elapsed:  %s\n", job.EndTime.Sub(job.StartTime).Round(time.Millisecond))
	}
}
