package enrich

import (
	"context"
	"sync"
)

const defaultConcurrency = 5

// ItemStatus is the final state of one photo in a batch.
type ItemStatus string

const (
	ItemEnriched  ItemStatus = "enriched"
	ItemSkipped   ItemStatus = "skipped"
	ItemFailed    ItemStatus = "failed"
	ItemCancelled ItemStatus = "cancelled"
)

// Progress is reported after each photo finishes.
type Progress struct {
	Current int        `json:"current"`
	Total   int        `json:"total"`
	Ref     string     `json:"ref"`
	Status  ItemStatus `json:"status"`
	Error   string     `json:"error,omitempty"`
}

type BatchOptions struct {
	Concurrency  int            // parallel photos, default 5
	SkipExisting bool           // skip refs already stored under the same path
	OnProgress   func(Progress) // optional, called from worker goroutines
}

// ItemResult is the result for one input photo.
type ItemResult struct {
	Ref     string
	Status  ItemStatus
	Outcome *Outcome
	Err     error
}

type BatchResult struct {
	Enriched  int
	Skipped   int
	Failed    int
	Cancelled int
	Items     []ItemResult // same order as the input
}

// EnrichBatch enriches photos with a bounded worker pool. Cancellation is
// checked before each photo starts; a photo already in progress finishes and
// its record stays saved.
func (p *Pipeline) EnrichBatch(ctx context.Context, photos []RawPhoto, opts BatchOptions) *BatchResult {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	result := &BatchResult{Items: make([]ItemResult, len(photos))}
	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var processed int

	finish := func(idx int, item ItemResult) {
		mu.Lock()
		result.Items[idx] = item
		switch item.Status {
		case ItemEnriched:
			result.Enriched++
		case ItemSkipped:
			result.Skipped++
		case ItemFailed:
			result.Failed++
		case ItemCancelled:
			result.Cancelled++
		}
		processed++
		progress := Progress{Current: processed, Total: len(photos), Ref: item.Ref, Status: item.Status}
		if item.Err != nil {
			progress.Error = item.Err.Error()
		}
		// Reported under the lock so Current is monotonic for the callback
		if opts.OnProgress != nil {
			opts.OnProgress(progress)
		}
		mu.Unlock()
	}

	for i := range photos {
		wg.Add(1)
		go func(idx int, raw RawPhoto) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if err := ctx.Err(); err != nil {
				finish(idx, ItemResult{Ref: raw.Ref, Status: ItemCancelled, Err: err})
				return
			}

			// Work that has started is not interrupted by cancellation
			workCtx := context.WithoutCancel(ctx)

			if opts.SkipExisting {
				exists, err := p.store.ExistsByPath(workCtx, raw.Ref)
				if err != nil {
					p.logger.Warn("existence check failed, enriching anyway", "ref", raw.Ref, "error", err)
				} else if exists {
					finish(idx, ItemResult{Ref: raw.Ref, Status: ItemSkipped})
					return
				}
			}

			outcome, err := p.Enrich(workCtx, raw)
			if err != nil {
				p.logger.Error("failed to enrich photo", "ref", raw.Ref, "error", err)
				finish(idx, ItemResult{Ref: raw.Ref, Status: ItemFailed, Outcome: outcome, Err: err})
				return
			}
			finish(idx, ItemResult{Ref: raw.Ref, Status: ItemEnriched, Outcome: outcome})
		}(i, photos[i])
	}

	wg.Wait()
	return result
}
