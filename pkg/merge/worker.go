package merge

import (
	"context"
	"os"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// readResult is the outcome of reading one entry.
type readResult struct {
	data []byte
	err  error
}

// readAll reads entry contents through a bounded worker pool. Results
// land at the entry's own index, so output order stays the selection
// order no matter which reads finish first. Entries never dispatched
// due to cancellation carry the context error.
func readAll(ctx context.Context, entries []entry, maxWorkers int, logger *zap.Logger) []readResult {
	results := make([]readResult, len(entries))
	if len(entries) == 0 {
		return results
	}

	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	if maxWorkers > len(entries) {
		maxWorkers = len(entries)
	}
	logger.Debug("Starting reader pool", zap.Int("workers", maxWorkers), zap.Int("files", len(entries)))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < maxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				data, err := os.ReadFile(entries[idx].abs)
				results[idx] = readResult{data: data, err: err}
			}
		}()
	}

feed:
	for i := range entries {
		select {
		case <-ctx.Done():
			for j := i; j < len(entries); j++ {
				results[j] = readResult{err: ctx.Err()}
			}
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	return results
}
