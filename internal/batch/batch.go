// Package batch scans many image files concurrently with a shared scanner.
package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/MeKo-Tech/barscan/internal/common"
	"github.com/MeKo-Tech/barscan/internal/scanner"
)

// ErrNoFiles is returned when discovery finds nothing to scan.
var ErrNoFiles = errors.New("no image files found")

// ProcessBatch discovers image files below paths and scans them. With
// ContinueOnError set, per-file failures are recorded on the items and the
// returned error is nil.
func ProcessBatch(ctx context.Context, s *scanner.Scanner, paths []string, cfg *Config) (*Result, error) {
	files, err := discoverImageFiles(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	workers := cfg.Workers
	if workers <= 0 || workers > len(files) {
		workers = len(files)
	}

	timer := common.NewTimer()
	items, err := processFilesParallel(ctx, s, files, workers, cfg.ContinueOnError, cfg.Progress)
	res := &Result{Items: items, Duration: timer.Stop(), WorkerCount: workers}
	if err != nil {
		return res, fmt.Errorf("batch processing failed: %w", err)
	}
	return res, nil
}
