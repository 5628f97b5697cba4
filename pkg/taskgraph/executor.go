package taskgraph

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Executor evaluates graph nodes, memoizing results per node ID. Repeated
// evaluations of the same node, directly or through shared dependencies,
// run the node function at most once per executor instance.
type Executor interface {
	Evaluate(ctx context.Context, g *Graph, id string) (any, error)
}

// Sequential evaluates nodes depth-first on the calling goroutine. Results
// are cached for the lifetime of the executor. Not safe for concurrent use.
type Sequential struct {
	memo map[string]any
}

// NewSequential creates a sequential executor with an empty memo.
func NewSequential() *Sequential {
	return &Sequential{memo: make(map[string]any)}
}

// Evaluate computes the node value, resolving dependencies first. Node
// function errors are returned unwrapped.
func (s *Sequential) Evaluate(ctx context.Context, g *Graph, id string) (any, error) {
	node, ok := g.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, id)
	}
	if val, ok := s.memo[id]; ok {
		return val, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	depVals := make([]any, len(node.Deps))
	for i, dep := range node.Deps {
		val, err := s.Evaluate(ctx, g, dep)
		if err != nil {
			return nil, err
		}
		depVals[i] = val
	}

	val, err := node.Run(ctx, depVals)
	if err != nil {
		return nil, err
	}
	s.memo[id] = val
	return val, nil
}

// Pool evaluates nodes on a bounded worker pool. Independent nodes run in
// parallel; a node starts only once all its dependencies have finished, so
// workers never block on each other. Results are cached for the lifetime of
// the executor.
//
// Evaluate must not be called concurrently; the memo carries over between
// calls, so sequential calls still share work.
type Pool struct {
	workers int
	memo    map[string]any
}

// NewPool creates a pool executor running at most workers node functions at
// a time. A non-positive worker count means no limit.
func NewPool(workers int) *Pool {
	return &Pool{workers: workers, memo: make(map[string]any)}
}

// Evaluate computes the node value, running ready dependencies in parallel.
// The first node function error cancels the remaining work and is returned
// unwrapped.
func (p *Pool) Evaluate(ctx context.Context, g *Graph, id string) (any, error) {
	if _, ok := g.Node(id); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, id)
	}
	if val, ok := p.memo[id]; ok {
		return val, nil
	}

	// Restrict scheduling to the nodes this evaluation actually needs and
	// that are not already memoized.
	reachable := g.Reachable(id)
	pending := make(map[string]int, len(reachable))
	for nid := range reachable {
		if _, done := p.memo[nid]; done {
			delete(reachable, nid)
		}
	}
	for nid := range reachable {
		n := 0
		for _, dep := range g.Deps(nid) {
			if reachable[dep] {
				n++
			}
		}
		pending[nid] = n
	}

	// Ready queue with a fixed set of workers. The buffer holds every node
	// this evaluation can schedule, so publishing a ready node never blocks.
	ready := make(chan string, len(pending))
	var mu sync.Mutex
	remaining := len(pending)
	for nid, n := range pending {
		if n == 0 {
			ready <- nid
		}
	}

	workers := p.workers
	if workers <= 0 || workers > remaining {
		workers = remaining
	}

	eg, ctx := errgroup.WithContext(ctx)
	for range workers {
		eg.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case nid, ok := <-ready:
					if !ok {
						return nil
					}
					node, _ := g.Node(nid)

					mu.Lock()
					depVals := make([]any, len(node.Deps))
					for i, dep := range node.Deps {
						depVals[i] = p.memo[dep]
					}
					mu.Unlock()

					val, err := node.Run(ctx, depVals)
					if err != nil {
						return err
					}

					mu.Lock()
					p.memo[nid] = val
					for _, dependent := range g.Dependents(nid) {
						if !reachable[dependent] {
							continue
						}
						pending[dependent]--
						if pending[dependent] == 0 {
							ready <- dependent
						}
					}
					remaining--
					if remaining == 0 {
						close(ready)
					}
					mu.Unlock()
				}
			}
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return p.memo[id], nil
}
