package rover

import "golang.org/x/sync/errgroup"

// task runs fn over data in at most workersCount contiguous chunks.
func task[T any](workersCount int, data []T, fn func(data T)) {
	if len(data) == 0 {
		return
	}
	workersCount = max(1, min(workersCount, len(data)))
	if workersCount == 1 {
		for _, d := range data {
			fn(d)
		}
		return
	}

	chunkSize := (len(data) + workersCount - 1) / workersCount

	var g errgroup.Group
	for start := 0; start < len(data); start += chunkSize {
		chunk := data[start:min(start+chunkSize, len(data))]
		g.Go(func() error {
			for _, d := range chunk {
				fn(d)
			}
			return nil
		})
	}
	_ = g.Wait()
}
