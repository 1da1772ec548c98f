package usecase

import (
	"context"
	"sync"

	"MarketRegime/internal/domain/models"
)

// symbolTask processes one symbol and reports how far it got.
type symbolTask func(ctx context.Context, symbol string) models.SymbolResult

// forEachSymbol runs task over symbols on a bounded pool of workers and
// returns the results in input order. Symbols not started before ctx ends
// are reported as failed at the dispatch stage.
func forEachSymbol(ctx context.Context, symbols []string, workers int, task symbolTask) []models.SymbolResult {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(symbols) {
		workers = len(symbols)
	}

	results := make([]models.SymbolResult, len(symbols))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = task(ctx, symbols[i])
			}
		}()
	}

	next := 0
dispatch:
	for ; next < len(symbols); next++ {
		select {
		case jobs <- next:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	for i := next; i < len(symbols); i++ {
		results[i] = models.SymbolResult{
			Symbol:  symbols[i],
			Outcome: models.OutcomeFailed,
			Stage:   "dispatch",
			Error:   ctx.Err().Error(),
		}
	}
	return results
}
