// Package cmd implements the barscan command line interface.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/barscan/internal/config"
	"github.com/MeKo-Tech/barscan/internal/scanner"
	"github.com/MeKo-Tech/barscan/internal/version"
)

// app is the state shared by one command tree.
type app struct {
	loader  *config.Loader
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

// NewRootCommand builds the barscan command tree. Every call returns an
// independent tree with its own configuration loader.
func NewRootCommand() *cobra.Command {
	a := &app{loader: config.NewIsolatedLoader()}

	root := &cobra.Command{
		Use:   "barscan",
		Short: "Decode barcodes and QR codes from images and PDFs",
		Long: `barscan finds and decodes one barcode per image. Each image is tried as
supplied and as its photographic negative, with a local-block and a global
histogram threshold, so light-on-dark symbols decode as well as dark-on-light.

Supported symbologies include QR Code, Data Matrix, Aztec, Code 128,
Code 39, EAN-8, EAN-13, UPC-A, UPC-E, ITF and Codabar.

Examples:
  barscan image ticket.png
  barscan batch scans/ --recursive --format csv
  barscan pdf invoice.pdf --pages 1-2
  barscan serve --port 8080`,
		SilenceUsage:      true,
		PersistentPreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "barscan version "+version.String())
				return err
			}
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/barscan, /etc/barscan)")
	root.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.Flags().Bool("version", false, "print version information and exit")

	root.AddCommand(
		newImageCommand(a),
		newBatchCommand(a),
		newPDFCommand(a),
		newServeCommand(a),
		newConfigCommand(a),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// preRun loads the configuration and installs the structured logger.
func (a *app) preRun(cmd *cobra.Command, _ []string) error {
	cfg, err := a.loader.LoadWithFileWithoutValidation(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(a.logger)
	return nil
}

// newLogger returns a JSON logger honouring log_level and verbose.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch {
	case cfg.Verbose:
		level = slog.LevelDebug
	case cfg.LogLevel == "debug":
		level = slog.LevelDebug
	case cfg.LogLevel == "warn":
		level = slog.LevelWarn
	case cfg.LogLevel == "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// applyScanFlags overrides the scan section with any scan flags set on cmd.
func (a *app) applyScanFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("formats") {
		a.cfg.Scan.Formats, _ = flags.GetStringSlice("formats")
	}
	if flags.Changed("try-harder") {
		a.cfg.Scan.TryHarder, _ = flags.GetBool("try-harder")
	}
	if flags.Changed("diagnostics") {
		a.cfg.Scan.Diagnostics, _ = flags.GetBool("diagnostics")
	}
}

// applyOutputFlags overrides the output section with any output flags set
// on cmd and validates the format.
func (a *app) applyOutputFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("format") {
		a.cfg.Output.Format, _ = flags.GetString("format")
	}
	if flags.Changed("output") {
		a.cfg.Output.File, _ = flags.GetString("output")
	}
	if flags.Changed("no-color") {
		noColor, _ := flags.GetBool("no-color")
		a.cfg.Output.Color = !noColor
	}
	return a.cfg.Validate()
}

// newScanner builds a scanner from the scan section.
func (a *app) newScanner() (*scanner.Scanner, error) {
	opts, err := a.cfg.ScannerOptions(a.logger)
	if err != nil {
		return nil, err
	}
	return scanner.New(opts...), nil
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("formats", nil, "symbologies to look for, e.g. qr,ean13 (default: all common formats)")
	cmd.Flags().Bool("try-harder", true, "spend more time looking for a symbol")
	cmd.Flags().Bool("diagnostics", false, "report every strategy failure when nothing decodes")
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", "text", "output format (text, json, csv)")
	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().Bool("no-color", false, "disable styled text output")
}
