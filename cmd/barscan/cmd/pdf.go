package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/pdf"
)

func newPDFCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pdf <file>...",
		Short: "Decode barcodes in the images embedded in PDF files",
		Long: `Extract the raster images embedded in PDF pages and decode one barcode
from each. Vector-drawn symbols are not rendered.

Examples:
  barscan pdf invoice.pdf
  barscan pdf invoice.pdf --pages 1-2,5 --format json
  barscan pdf secret.pdf --password hunter2`,
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
			if cmd.Flags().Changed("pages") {
				a.cfg.PDF.Pages, _ = cmd.Flags().GetString("pages")
			}

			s, err := a.newScanner()
			if err != nil {
				return err
			}

			opts := []pdf.ProcessorOption{pdf.WithLogger(a.logger)}
			user, _ := cmd.Flags().GetString("password")
			owner, _ := cmd.Flags().GetString("owner-password")
			if user != "" || owner != "" {
				opts = append(opts, pdf.WithCredentials(&pdf.Credentials{UserPassword: user, OwnerPassword: owner}))
			}

			results, errs := pdf.NewProcessor(s, opts...).ProcessFiles(args, a.cfg.PDF.Pages)
			var (
				docs []*pdf.DocumentResult
				msgs []string
			)
			for i, doc := range results {
				if errs[i] != nil {
					msgs = append(msgs, fmt.Sprintf("%s: %v", args[i], errs[i]))
					continue
				}
				docs = append(docs, doc)
			}

			if len(docs) > 0 {
				if err := a.writeDocuments(cmd, docs); err != nil {
					return err
				}
			}
			if len(msgs) > 0 {
				return fmt.Errorf("failed to process %d file(s): %s", len(msgs), strings.Join(msgs, "; "))
			}
			return nil
		},
	}

	addScanFlags(cmd)
	addOutputFlags(cmd)
	cmd.Flags().String("pages", "", "page range to process (e.g., '1-5', '1,3,5')")
	cmd.Flags().StringP("password", "p", "", "user password for encrypted PDFs")
	cmd.Flags().String("owner-password", "", "owner password for encrypted PDFs")
	return cmd
}

// writeDocuments prints PDF results in the configured output format.
func (a *app) writeDocuments(cmd *cobra.Command, docs []*pdf.DocumentResult) error {
	out := a.cfg.Output
	if out.Format == outputFormatText && out.Color && out.File == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), newStyles(cmd.OutOrStdout()).renderDocuments(docs))
		return err
	}
	output, err := pdf.FormatResults(docs, out.Format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}
	return writeFile(cmd, out.File, output)
}
