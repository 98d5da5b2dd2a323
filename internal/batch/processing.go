package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/cardscan/internal/intake"
)

type job struct {
	index int
	path  string
}

// processFiles analyzes files on cfg.Workers goroutines. Items keep the
// order of files. Cancelling ctx marks the files not yet started as failed.
func processFiles(ctx context.Context, svc *intake.Service, files []string, cfg *Config,
	progress ProgressCallback,
) []Item {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers()
	}
	workers = min(workers, len(files))

	items := make([]Item, len(files))
	jobs := make(chan job)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	progress.OnStart(len(files))
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				item := processOne(ctx, svc, j.path, cfg.Save)
				items[j.index] = item

				mu.Lock()
				done++
				if item.Err != nil {
					progress.OnError(item.File, item.Err)
				}
				progress.OnProgress(done, len(files))
				mu.Unlock()
			}
		}()
	}

feed:
	for i, path := range files {
		select {
		case <-ctx.Done():
			for k := i; k < len(files); k++ {
				items[k] = Item{File: files[k], Err: ctx.Err()}
			}
			break feed
		case jobs <- job{index: i, path: path}:
		}
	}
	close(jobs)
	wg.Wait()
	progress.OnComplete()

	return items
}

// processOne analyzes a single file and stores the record when save is set.
func processOne(ctx context.Context, svc *intake.Service, path string, save bool) Item {
	item := Item{File: path}
	if err := ctx.Err(); err != nil {
		item.Err = err
		return item
	}

	res, err := svc.Analyze(ctx, path)
	if err != nil {
		item.Err = err
		return item
	}
	item.Result = &res

	if save && svc.Store() != nil {
		id, err := svc.Store().Save(ctx, res.Record, filepath.Base(path))
		if err != nil {
			item.Err = fmt.Errorf("failed to store %s: %w", path, err)
			return item
		}
		item.ID = id
		res.ID = id
	}
	return item
}

func defaultWorkers() int {
	return runtime.NumCPU()
}
