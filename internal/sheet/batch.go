package sheet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Rejection records a sheet that produced no result.
type Rejection struct {
	Sheet  string `json:"sheet"`
	Reason string `json:"reason"`
}

// BatchResult collects the outcome of ProcessBatch.
type BatchResult struct {
	RunID uuid.UUID `json:"run_id"`

	// StartedAt is when the batch began; WriteReports uses it to timestamp
	// file names.
	StartedAt time.Time `json:"started_at"`

	// Sheets holds the results of every readable sheet, in input order.
	Sheets []*Result `json:"sheets"`

	// Rejected lists sheets that could not be registered or loaded, in input
	// order.
	Rejected []Rejection `json:"rejected"`
}

// Exams returns the results that are not answer keys.
func (b *BatchResult) Exams() []*Result {
	var out []*Result
	for _, r := range b.Sheets {
		if !r.IsKey {
			out = append(out, r)
		}
	}
	return out
}

// Keys returns the answer key results.
func (b *BatchResult) Keys() []*Result {
	var out []*Result
	for _, r := range b.Sheets {
		if r.IsKey {
			out = append(out, r)
		}
	}
	return out
}

// ProcessBatch reads every file in paths, one goroutine per sheet with at
// most Options.Workers running at once. A sheet that fails to load or
// register is recorded in Rejected and the batch carries on. The only error
// returned is the context's, when it is cancelled before the batch finishes.
func (r *Reader) ProcessBatch(ctx context.Context, paths []string) (*BatchResult, error) {
	runID := uuid.New()
	logger := r.logger.With("run", runID.String())
	start := time.Now()

	workers := r.opts.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]*Result, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = r.ProcessFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := &BatchResult{RunID: runID, StartedAt: start}
	for i, path := range paths {
		switch {
		case errs[i] != nil:
			batch.Rejected = append(batch.Rejected, Rejection{Sheet: sheetName(path), Reason: rejectionReason(errs[i])})
		case results[i] != nil:
			batch.Sheets = append(batch.Sheets, results[i])
		}
	}

	logger.Info("batch processed",
		"sheets", len(paths),
		"read", len(batch.Sheets),
		"rejected", len(batch.Rejected),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return batch, nil
}

func rejectionReason(err error) string {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Err.Error()
	}
	return err.Error()
}
