package replay

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"ledgerScope/internal/model"
)

// ReconstructAll folds every stream concurrently. Each worker owns its input slice and output table.
// Failures of several streams are joined in stream name order.
func ReconstructAll(ctx context.Context, streams map[string][]model.Event, opts Options) (map[string]Result, error) {
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs = make(map[string]error)
	)
	results := make(map[string]Result, len(streams))

	for name, events := range streams {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}

		wg.Add(1)
		go func(name string, events []model.Event) {
			defer wg.Done()

			streamOpts := opts
			streamOpts.Entity = name
			res, err := Reconstruct(events, streamOpts)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[name] = fmt.Errorf("reconstruct %s: %w", name, err)
				return
			}
			results[name] = res
		}(name, events)
	}

	wg.Wait()
	if len(errs) > 0 {
		return nil, joinSorted(errs)
	}
	return results, nil
}

func joinSorted(errs map[string]error) error {
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)

	ordered := make([]error, 0, len(names))
	for _, name := range names {
		ordered = append(ordered, errs[name])
	}
	return errors.Join(ordered...)
}
