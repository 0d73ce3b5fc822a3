package batch

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/barscan/internal/scanner"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output settings
	Format     string
	OutputFile string

	// Progress settings
	Progress ProgressCallback
	Quiet    bool
}

// Item is the outcome for one input file. Exactly one of Result and Err is
// set.
type Item struct {
	File     string
	Result   *scanner.Result
	Err      error
	Duration time.Duration
}

// Decoded reports whether the file produced a barcode.
func (it Item) Decoded() bool { return it.Result != nil }

// Result holds the result of batch processing.
type Result struct {
	Items       []Item
	Duration    time.Duration
	WorkerCount int
}

// Stats summarises a batch run.
type Stats struct {
	TotalFiles       int           `json:"total_files"`
	Decoded          int           `json:"decoded"`
	NotDecoded       int           `json:"not_decoded"`
	Failed           int           `json:"failed"`
	WorkerCount      int           `json:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	AveragePerFile   time.Duration `json:"average_per_file_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// Stats calculates statistics for the run. Files whose every strategy failed
// count as NotDecoded; load errors and invalid input count as Failed.
func (r *Result) Stats() Stats {
	s := Stats{TotalFiles: len(r.Items), WorkerCount: r.WorkerCount, TotalDuration: r.Duration}
	for _, it := range r.Items {
		switch {
		case it.Decoded():
			s.Decoded++
		case scanner.KindOf(it.Err) == scanner.KindExhausted:
			s.NotDecoded++
		default:
			s.Failed++
		}
	}
	if n := len(r.Items); n > 0 && r.Duration > 0 {
		s.AveragePerFile = r.Duration / time.Duration(n)
		s.ThroughputPerSec = float64(n) / r.Duration.Seconds()
	}
	return s
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r.Items, format)
}

// SaveResults writes the formatted results to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	}

	_, err = fmt.Fprint(w, output)
	return err
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer) {
	s := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total files: %d\n", s.TotalFiles)
	_, _ = fmt.Fprintf(w, "  Decoded: %d\n", s.Decoded)
	_, _ = fmt.Fprintf(w, "  Not decoded: %d\n", s.NotDecoded)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", s.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", s.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Avg per file: %v\n", s.AveragePerFile.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f files/sec\n", s.ThroughputPerSec)
}
