package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/batch"
)

const (
	outputFormatJSON = "json"
	outputFormatCSV  = "csv"
	outputFormatText = "text"
)

// errNotDecoded is returned when at least one input produced no barcode.
var errNotDecoded = errors.New("one or more inputs could not be decoded")

func newImageCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image <file>...",
		Short: "Decode the barcode in one or more image files",
		Long: `Decode one barcode from each image file.

Supported formats: JPEG, PNG, GIF, BMP, TIFF, WebP

Examples:
  barscan image ticket.png
  barscan image *.jpg --format json
  barscan image label.png --formats ean13,upca --output result.csv -f csv`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("no input files provided")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a.applyScanFlags(cmd)
			if err := a.applyOutputFlags(cmd); err != nil {
				return err
			}

			s, err := a.newScanner()
			if err != nil {
				return err
			}

			res, err := batch.ProcessBatch(cmd.Context(), s, args, &batch.Config{
				Workers:         1,
				ContinueOnError: true,
			})
			if err != nil {
				return err
			}

			if err := a.writeItems(cmd, res); err != nil {
				return err
			}
			if res.Stats().Decoded < len(res.Items) {
				return errNotDecoded
			}
			return nil
		},
	}

	addScanFlags(cmd)
	addOutputFlags(cmd)
	return cmd
}

// writeItems prints batch items in the configured output format.
func (a *app) writeItems(cmd *cobra.Command, res *batch.Result) error {
	out := a.cfg.Output
	if out.Format == outputFormatText && out.Color && out.File == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), newStyles(cmd.OutOrStdout()).renderItems(res.Items))
		return err
	}
	if err := res.SaveResults(cmd.OutOrStdout(), out.Format, out.File); err != nil {
		return err
	}
	if out.File != "" {
		a.logger.Info("results written", "file", out.File, "items", len(res.Items))
	}
	return nil
}

// writeFile writes output to path, or to stdout when path is empty.
func writeFile(cmd *cobra.Command, path, output string) error {
	if path == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), output)
		return err
	}
	if err := os.WriteFile(path, []byte(output), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
