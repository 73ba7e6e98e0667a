package graph

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// End is the pseudo-node that terminates a run.
const End = "__end__"

const defaultMaxSteps = 64

var (
	ErrStepLimit   = errors.New("graph step limit exceeded")
	ErrUnknownNode = errors.New("unknown graph node")
	ErrNoEntry     = errors.New("graph has no entry node")
)

// NodeFunc transforms the state. Nodes receive a value and return the
// updated value, so a run never shares state with another run.
type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// Router picks the next node from the state after its source node ran.
type Router[S any] func(state S) string

// Step describes one executed node, for observers.
type Step struct {
	Node     string
	Index    int
	Started  time.Time
	Duration time.Duration
	Err      error
}

type Observer func(Step)

// Graph is a directed graph of nodes over a state type S. Each node has
// either a static edge or a router; a node with neither ends the run.
type Graph[S any] struct {
	nodes     map[string]NodeFunc[S]
	order     []string
	edges     map[string]string
	routers   map[string]Router[S]
	entry     string
	maxSteps  int
	observers []Observer
}

func New[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:    make(map[string]NodeFunc[S]),
		edges:    make(map[string]string),
		routers:  make(map[string]Router[S]),
		maxSteps: defaultMaxSteps,
	}
}

func (g *Graph[S]) AddNode(name string, fn NodeFunc[S]) *Graph[S] {
	if _, exists := g.nodes[name]; !exists {
		g.order = append(g.order, name)
	}
	g.nodes[name] = fn
	return g
}

func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.edges[from] = to
	delete(g.routers, from)
	return g
}

func (g *Graph[S]) AddConditionalEdge(from string, route Router[S]) *Graph[S] {
	g.routers[from] = route
	delete(g.edges, from)
	return g
}

func (g *Graph[S]) SetEntry(name string) *Graph[S] {
	g.entry = name
	return g
}

// SetMaxSteps bounds the number of node executions per run.
func (g *Graph[S]) SetMaxSteps(n int) *Graph[S] {
	if n > 0 {
		g.maxSteps = n
	}
	return g
}

func (g *Graph[S]) Observe(o Observer) *Graph[S] {
	g.observers = append(g.observers, o)
	return g
}

// Nodes lists node names in registration order.
func (g *Graph[S]) Nodes() []string {
	return append([]string(nil), g.order...)
}

// Validate checks that the entry and every static edge target exist.
func (g *Graph[S]) Validate() error {
	if g.entry == "" {
		return ErrNoEntry
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return fmt.Errorf("%w: entry %q", ErrUnknownNode, g.entry)
	}
	for from, to := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("%w: edge source %q", ErrUnknownNode, from)
		}
		if _, ok := g.nodes[to]; !ok && to != End {
			return fmt.Errorf("%w: edge target %q", ErrUnknownNode, to)
		}
	}
	for from := range g.routers {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("%w: router source %q", ErrUnknownNode, from)
		}
	}
	return nil
}

// Run executes nodes from the entry until End is reached. On a node error
// the state returned so far is handed back along with the wrapped error.
func (g *Graph[S]) Run(ctx context.Context, state S) (S, error) {
	if err := g.Validate(); err != nil {
		return state, err
	}

	current := g.entry
	for step := 0; ; step++ {
		if step >= g.maxSteps {
			return state, fmt.Errorf("%w: %d steps, last node %q", ErrStepLimit, g.maxSteps, current)
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}

		fn, ok := g.nodes[current]
		if !ok {
			return state, fmt.Errorf("%w: %q", ErrUnknownNode, current)
		}

		started := time.Now()
		next, err := fn(ctx, state)
		g.notify(Step{Node: current, Index: step, Started: started, Duration: time.Since(started), Err: err})
		if err != nil {
			return state, fmt.Errorf("node %s: %w", current, err)
		}
		state = next

		target := g.next(current, state)
		if target == End {
			return state, nil
		}
		current = target
	}
}

func (g *Graph[S]) next(from string, state S) string {
	if route, ok := g.routers[from]; ok {
		return route(state)
	}
	if to, ok := g.edges[from]; ok {
		return to
	}
	return End
}

func (g *Graph[S]) notify(s Step) {
	for _, o := range g.observers {
		o(s)
	}
}
