package taskgraph_test

import (
	"context"
	"fmt"

	"github.com/stitchlab/mosaic/pkg/taskgraph"
)

func ExampleGraph_basic() {
	// Build a deferred computation: total depends on two constants.
	g := taskgraph.New()
	_ = g.AddNode(taskgraph.Node{ID: "x", Run: func(context.Context, []any) (any, error) {
		return 2, nil
	}})
	_ = g.AddNode(taskgraph.Node{ID: "y", Run: func(context.Context, []any) (any, error) {
		return 3, nil
	}})
	_ = g.AddNode(taskgraph.Node{ID: "total", Deps: []string{"x", "y"}, Run: func(_ context.Context, deps []any) (any, error) {
		return deps[0].(int) + deps[1].(int), nil
	}})

	fmt.Println("Nodes:", g.NodeCount())
	fmt.Println("Sinks:", g.Sinks())
	// Output:
	// Nodes: 3
	// Sinks: [total]
}

func ExampleSequential() {
	g := taskgraph.New()
	_ = g.AddNode(taskgraph.Node{ID: "base", Run: func(context.Context, []any) (any, error) {
		return 10, nil
	}})
	_ = g.AddNode(taskgraph.Node{ID: "double", Deps: []string{"base"}, Run: func(_ context.Context, deps []any) (any, error) {
		return deps[0].(int) * 2, nil
	}})

	exec := taskgraph.NewSequential()
	val, _ := exec.Evaluate(context.Background(), g, "double")
	fmt.Println("double:", val)
	// Output:
	// double: 20
}
