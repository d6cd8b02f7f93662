package threadtree

import (
	"context"
	"fmt"
	"sync"
)

// Expand fetches the answers of every thread that has any, using up to
// workers concurrent fetches. Threads already cached are skipped. Each
// failure is collected; the first one is wrapped in the returned error.
func (t *Tree) Expand(ctx context.Context, workers int) error {
	var pending []*ThreadNode
	for _, n := range t.threads {
		if t.IsLeaf(n) || t.State(n.Thread.ID) == Cached {
			continue
		}
		pending = append(pending, n)
	}
	if len(pending) == 0 {
		return nil
	}

	numWorkers := min(max(workers, 1), len(pending))

	workCh := make(chan *ThreadNode, len(pending))
	for _, n := range pending {
		workCh <- n
	}
	close(workCh)

	type result struct {
		node *ThreadNode
		err  error
	}
	resultCh := make(chan result, len(pending))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range workCh {
				_, err := t.answersFor(ctx, n.Thread.ID)
				resultCh <- result{node: n, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var errs []error
	for res := range resultCh {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("thread %d: %w", res.node.Thread.ID, res.err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("threadtree: expand had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}
