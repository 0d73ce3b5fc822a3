package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/batch"
)

func newBatchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <path>...",
		Short: "Decode barcodes in many images concurrently",
		Long: `Decode one barcode from every image found under the given files and
directories, using a pool of workers that share one scanner.

Examples:
  barscan batch scans/
  barscan batch scans/ --recursive --workers 8 --format json
  barscan batch scans/ --include "*.png" --exclude "thumb_*" --stats
  barscan batch a.png b.jpg --continue-on-error=false`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("no input paths provided")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a.applyScanFlags(cmd)
			a.applyBatchFlags(cmd)
			if err := a.applyOutputFlags(cmd); err != nil {
				return err
			}

			s, err := a.newScanner()
			if err != nil {
				return err
			}

			quiet, _ := cmd.Flags().GetBool("quiet")
			showProgress, _ := cmd.Flags().GetBool("progress")
			showStats, _ := cmd.Flags().GetBool("stats")

			bc := &batch.Config{
				Workers:         a.cfg.Batch.Workers,
				ContinueOnError: a.cfg.Batch.ContinueOnError,
				Recursive:       a.cfg.Batch.Recursive,
				IncludePatterns: a.cfg.Batch.Include,
				ExcludePatterns: a.cfg.Batch.Exclude,
				Format:          a.cfg.Output.Format,
				OutputFile:      a.cfg.Output.File,
				Quiet:           quiet,
			}
			if showProgress && !quiet {
				bc.Progress = batch.NewConsoleProgressCallback(cmd.ErrOrStderr(), "Scanning")
			} else if !quiet {
				bc.Progress = batch.NewLogProgressCallback(a.logger, 10)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := batch.ProcessBatch(ctx, s, args, bc)
			if err != nil {
				if res != nil && len(res.Items) > 0 {
					_ = a.writeItems(cmd, res)
				}
				return err
			}

			if err := a.writeItems(cmd, res); err != nil {
				return err
			}
			if showStats && !quiet {
				res.PrintStats(cmd.ErrOrStderr())
			}
			return nil
		},
	}

	addScanFlags(cmd)
	addOutputFlags(cmd)
	cmd.Flags().IntP("workers", "w", 4, "number of parallel workers")
	cmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	cmd.Flags().StringSlice("include", nil, "only scan files whose name matches one of these patterns")
	cmd.Flags().StringSlice("exclude", nil, "skip files whose name matches one of these patterns")
	cmd.Flags().Bool("continue-on-error", true, "keep going when a file fails")
	cmd.Flags().Bool("progress", false, "show a progress bar on stderr")
	cmd.Flags().Bool("stats", false, "print processing statistics on stderr")
	cmd.Flags().BoolP("quiet", "q", false, "suppress progress and statistics")
	return cmd
}

// applyBatchFlags overrides the batch section with any batch flags set on cmd.
func (a *app) applyBatchFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		a.cfg.Batch.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("recursive") {
		a.cfg.Batch.Recursive, _ = flags.GetBool("recursive")
	}
	if flags.Changed("include") {
		a.cfg.Batch.Include, _ = flags.GetStringSlice("include")
	}
	if flags.Changed("exclude") {
		a.cfg.Batch.Exclude, _ = flags.GetStringSlice("exclude")
	}
	if flags.Changed("continue-on-error") {
		a.cfg.Batch.ContinueOnError, _ = flags.GetBool("continue-on-error")
	}
}
