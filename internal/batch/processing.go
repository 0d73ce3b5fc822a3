package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/barscan/internal/common"
	"github.com/MeKo-Tech/barscan/internal/imageio"
	"github.com/MeKo-Tech/barscan/internal/scanner"
)

// fileJob represents a single file scan job.
type fileJob struct {
	index int
	path  string
}

type fileResult struct {
	index int
	item  Item
}

// scanFile loads path and scans it.
func scanFile(s *scanner.Scanner, path string) Item {
	timer := common.NewNamedTimer(path)
	item := Item{File: path}

	img, _, err := imageio.LoadFile(path)
	if err != nil {
		item.Err = fmt.Errorf("failed to load %s: %w", path, err)
		item.Duration = timer.Stop()
		return item
	}

	res, err := s.ScanImage(img)
	if err != nil {
		item.Err = err
	} else {
		item.Result = &res
	}
	item.Duration = timer.Stop()
	return item
}

// processFilesParallel scans files with a pool of workers. Items are
// returned in input order. Without continueOnError the first failure
// cancels outstanding work and is returned.
func processFilesParallel(
	ctx context.Context,
	s *scanner.Scanner,
	files []string,
	workers int,
	continueOnError bool,
	progress ProgressCallback,
) ([]Item, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(files))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if progress != nil {
		progress.OnStart(len(files))
		defer progress.OnComplete()
	}

	jobs := make(chan fileJob)
	results := make(chan fileResult, len(files))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				item := scanFile(s, job.path)
				results <- fileResult{index: job.index, item: item}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, f := range files {
			select {
			case jobs <- fileJob{index: i, path: f}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	items := make([]Item, len(files))
	done := make([]bool, len(files))
	processed := 0
	var firstErr error

	for r := range results {
		items[r.index] = r.item
		done[r.index] = true
		processed++

		if r.item.Err != nil {
			if progress != nil {
				progress.OnError(processed, fmt.Errorf("%s: %w", r.item.File, r.item.Err))
			}
			if !continueOnError && firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", r.item.File, r.item.Err)
				cancel()
			}
		}
		if progress != nil {
			progress.OnProgress(processed, len(files))
		}
	}

	if firstErr != nil {
		return compact(items, done), firstErr
	}
	if err := ctx.Err(); err != nil {
		return compact(items, done), err
	}
	return items, nil
}

// compact drops the slots of files that were never scanned.
func compact(items []Item, done []bool) []Item {
	out := make([]Item, 0, len(items))
	for i, it := range items {
		if done[i] {
			out = append(out, it)
		}
	}
	return out
}
