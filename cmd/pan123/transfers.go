package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pan123/pkg/client"
	"pan123/pkg/transfer"
	"pan123/pkg/types"
)

// watchTasks redraws a progress line until every task is terminal. An
// interrupt cancels whatever is still running.
func watchTasks(ctx context.Context, s *client.Session, tasks []*transfer.Task) error {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	interrupted := false
	for {
		done, percent := 0, 0
		for _, t := range tasks {
			snap := t.Snapshot()
			percent += snap.Progress
			if snap.State.Terminal() {
				done++
			}
		}
		fmt.Printf("\r%s %d/%d", renderProgressBar(float64(percent)/float64(len(tasks)), 30), done, len(tasks))
		if done == len(tasks) {
			break
		}

		select {
		case <-ctx.Done():
			if !interrupted {
				interrupted = true
				fmt.Println()
				fmt.Println(warningStyle.Render("Interrupted, cancelling transfers..."))
				s.Pool().CancelAll()
			}
			<-ticker.C
		case <-ticker.C:
		}
	}
	fmt.Println()
	fmt.Println(renderJobs(s.Pool().List()))

	failed := 0
	for _, t := range tasks {
		if t.State() == transfer.StateFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d transfers failed", failed, len(tasks))
	}
	return nil
}

func uploadCmd() *cobra.Command {
	var (
		folder    int64
		duplicate string
	)

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload files into a folder",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			policy, err := parsePolicy(duplicate)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			s, err := openSession(ctx, logger, sessionOptions{folder: folder})
			if err != nil {
				return describeError(err)
			}
			defer s.Close()

			// Tasks outlive the interrupt so they can observe the cancel.
			taskCtx := context.Background()
			tasks := make([]*transfer.Task, 0, len(args))
			for _, path := range args {
				tasks = append(tasks, s.Upload(taskCtx, path, policy, transfer.Handlers{}))
			}
			return watchTasks(ctx, s, tasks)
		},
	}

	cmd.Flags().Int64Var(&folder, "folder", 0, "destination folder id (default root)")
	cmd.Flags().StringVar(&duplicate, "duplicate", "ask", "when the name exists: ask, overwrite or keep-both")
	return cmd
}

func downloadCmd() *cobra.Command {
	var (
		folder    int64
		outDir    string
		force     bool
		recursive bool
	)

	cmd := &cobra.Command{
		Use:   "download <number>...",
		Short: "Download entries of a folder",
		Long: `Download entries by their number in 'ls'. Folders arrive as a zip unless
--recursive is given, in which case their files are mirrored one by one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			indices, err := parseIndices(args)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			s, err := openSession(ctx, logger, sessionOptions{folder: folder})
			if err != nil {
				return describeError(err)
			}
			defer s.Close()

			entries := make([]types.Entry, 0, len(indices))
			for _, i := range indices {
				e, err := s.Cursor().Entry(i)
				if err != nil {
					return err
				}
				entries = append(entries, e)
			}

			opts := client.DownloadOptions{Dir: outDir, Overwrite: force, Recursive: recursive}
			tasks := make([]*transfer.Task, 0, len(entries))
			for _, e := range entries {
				tasks = append(tasks, s.DownloadEntry(context.Background(), e, opts, transfer.Handlers{}))
			}
			return watchTasks(ctx, s, tasks)
		},
	}

	cmd.Flags().Int64Var(&folder, "folder", 0, "folder id the numbers refer to (default root)")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "local directory (default from config)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing files without asking")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "mirror folders file by file instead of as a zip")
	return cmd
}
