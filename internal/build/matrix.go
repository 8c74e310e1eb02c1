package build

import (
	"context"
	"log"
	"sync"
)

// MatrixResult is the outcome of one pair in a matrix build.
type MatrixResult struct {
	Target  string
	Variant string
	Set     *ArtifactSet
	Err     error
}

// BuildAll builds every pair in the board registry in parallel. Each pair
// fails or succeeds on its own; one broken variant never aborts the rest
// of the matrix.
func (b *Builder) BuildAll(ctx context.Context, force bool) []MatrixResult {
	var reqs []Request
	for _, t := range b.boards.Targets() {
		for _, v := range t.Variants {
			reqs = append(reqs, Request{Target: t.Name, Variant: v.Name, Force: force})
		}
	}
	return b.BuildMany(ctx, reqs)
}

// BuildMany builds the given pairs in parallel, one goroutine per pair.
// Pairs share no mutable state; per-pair serialization against other
// processes is the file lock's job. Results come back in request order.
func (b *Builder) BuildMany(ctx context.Context, reqs []Request) []MatrixResult {
	log.Printf("[INFO] building %d pairs", len(reqs))

	results := make([]MatrixResult, len(reqs))
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			set, err := b.Build(ctx, req)
			results[i] = MatrixResult{Target: req.Target, Variant: req.Variant, Set: set, Err: err}
		}(i, req)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Printf("[WARN] %s/%s: build failed: %v", r.Target, r.Variant, r.Err)
		}
	}
	if failed > 0 {
		log.Printf("[WARN] %d of %d pairs failed", failed, len(results))
	}
	return results
}
