// Package batch extracts contact records from many card files at once.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/intake"
)

// ErrNoFiles is returned when discovery finds nothing to process.
var ErrNoFiles = errors.New("no card files found")

const logProgressEvery = 10

// Run discovers the card files under paths and analyzes them with svc.
// Failures of single cards are reported per item and do not stop the batch.
func Run(ctx context.Context, paths []string, cfg *Config, svc *intake.Service) (*Result, error) {
	if svc == nil {
		return nil, errors.New("batch requires an intake service")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Save && svc.Store() == nil {
		return nil, errors.New("saving requires a configured store")
	}

	files, err := discoverCardFiles(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns, svc.Supported)
	if err != nil {
		return nil, fmt.Errorf("failed to discover card files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	var progress ProgressCallback = NoOpProgressCallback{}
	if cfg.ShowProgress && !cfg.Quiet {
		w := cfg.Progress
		if w == nil {
			w = os.Stderr
		}
		progress = NewConsoleProgressCallback(w, "Processing: ").WithUpdateInterval(cfg.ProgressInterval)
	} else if cfg.Logger != nil && !cfg.Quiet {
		progress = NewLogProgressCallback(cfg.Logger, logProgressEvery)
	}

	start := time.Now()
	items := processFiles(ctx, svc, files, cfg, progress)

	workers := cfg.Workers
	if workers <= 0 {
		workers = min(len(files), defaultWorkers())
	}
	return &Result{
		Items:       items,
		Duration:    time.Since(start),
		WorkerCount: min(workers, len(files)),
	}, nil
}
