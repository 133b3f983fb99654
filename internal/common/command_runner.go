package common

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"atscheck/internal/errors"
)

// BatchOperationFunc processes the contents of one input file.
type BatchOperationFunc[Output any] func(ctx context.Context, filename string, data []byte) (Output, error)

// BatchResult is the outcome for one input, in argument order.
type BatchResult[Output any] struct {
	File   string
	Output Output
	Err    error
}

// CollectFunc turns the ordered results into the value handed to the
// output formatter.
type CollectFunc[Output any] func(results []BatchResult[Output]) any

// BatchError reports how many inputs of a batch failed.
type BatchError struct {
	Failed int
	Total  int
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d of %d files failed", e.Failed, e.Total)
}

// RunBatch reads and processes every file with at most cmdConfig.Concurrency
// operations in flight. Per-file failures are recorded in the results; only
// cancellation of ctx stops the batch early.
func RunBatch[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	files []string,
	operation BatchOperationFunc[Output],
) ([]BatchResult[Output], error) {
	fileProcessor := NewFileProcessor(logger, cmdConfig.MaxFileSize)
	results := make([]BatchResult[Output], len(files))

	var g errgroup.Group
	g.SetLimit(max(cmdConfig.Concurrency, 1))

	for i, file := range files {
		results[i].File = file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return err
			}

			start := time.Now()
			data, err := fileProcessor.ReadDocument(file)
			if err != nil {
				results[i].Err = err
				return nil
			}

			out, err := operation(ctx, file, data)
			results[i].Output, results[i].Err = out, err
			if logger != nil && err == nil {
				logger.Debug("File processed", "file", file, "duration_ms", time.Since(start).Milliseconds())
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// RunBatchCommand runs a batch and writes the collected results. A single
// input that fails returns its own error; otherwise any failures are
// summarized as a *BatchError after the output is written.
func RunBatchCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	files []string,
	operation BatchOperationFunc[Output],
	collect CollectFunc[Output],
) error {
	results, err := RunBatch(ctx, logger, cmdConfig, files, operation)
	if err != nil {
		return err
	}

	if len(results) == 1 && results[0].Err != nil {
		return results[0].Err
	}

	if err := NewOutputHandler(logger).HandleOutput(collect(results), cmdConfig); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return &BatchError{Failed: failed, Total: len(results)}
	}
	return nil
}
