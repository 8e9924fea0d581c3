package dag

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/paperflow/paperflow/pkg/obs"
	"go.opentelemetry.io/otel"
)

var (
	met          = obs.NewRegistry()
	mNodesOK     = met.Counter("paperflow_dag_nodes_completed_total", "DAG nodes that completed successfully")
	mNodesFailed = met.Counter("paperflow_dag_nodes_failed_total", "DAG nodes that failed")
	mRuns        = met.Counter("paperflow_dag_runs_total", "DAG executions started")
)

// Registry exposes the package's metrics so a cmd binary can serve them.
func Registry() *obs.Registry { return met }

// DAG owns a set of named operators and the order they must run in.
// The zero value is not usable; construct with New.
type DAG struct {
	mu    sync.Mutex
	nodes map[string]*node
	order [][]string // layers, in execution order

	log *slog.Logger
}

// New creates an empty DAG.
func New(log *slog.Logger) *DAG {
	if log == nil {
		log = slog.Default()
	}
	return &DAG{nodes: make(map[string]*node), log: log}
}

// AddOperator registers a named operator with its dependencies. Dependencies
// must already exist in the DAG. The execution order is recomputed
// immediately, so a cycle is reported at add time rather than at Execute
// time.
//
// When a node has more than one dependency, Execute hands it the dependency
// results as a []any built in the order deps is given here — the order of
// declaration, not a re-sorted order. Callers that add multi-dependency nodes
// must either make the operator order-agnostic or document that it relies on
// this order.
func (d *DAG) AddOperator(name string, op Operator, deps []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.nodes[name]; exists {
		return fmt.Errorf("dag: operator %q already exists", name)
	}
	for _, dep := range deps {
		if _, ok := d.nodes[dep]; !ok {
			return fmt.Errorf("dag: operator %q depends on unknown operator %q", name, dep)
		}
	}

	depsCopy := append([]string(nil), deps...)
	d.nodes[name] = &node{name: name, operator: op, deps: depsCopy}

	return d.computeOrderLocked()
}

// computeOrderLocked performs Kahn-style layering over d.nodes. Caller must
// hold d.mu.
func (d *DAG) computeOrderLocked() error {
	remaining := make(map[string]struct{}, len(d.nodes))
	for name := range d.nodes {
		remaining[name] = struct{}{}
	}

	var order [][]string
	for len(remaining) > 0 {
		var layer []string
		for name := range remaining {
			n := d.nodes[name]
			ready := true
			for _, dep := range n.deps {
				if _, stillRemaining := remaining[dep]; stillRemaining {
					ready = false
					break
				}
			}
			if ready {
				layer = append(layer, name)
			}
		}
		if len(layer) == 0 {
			return fmt.Errorf("dag: circular dependency detected")
		}
		for _, name := range layer {
			delete(remaining, name)
		}
		order = append(order, layer)
	}

	d.order = order
	return nil
}

// layerResult carries one node's outcome back to the layer coordinator.
type layerResult struct {
	name   string
	value  any
	err    error
}

// Execute resets every node's state, then runs the DAG layer by layer,
// awaiting all of a layer's tasks before starting the next. On the first
// node failure within a layer, already-launched tasks in that layer finish
// but no further layers start, and the first error is returned. The returned
// map contains one entry per completed node plus "initial" when initial is
// non-nil.
func (d *DAG) Execute(ctx context.Context, initial any) (map[string]any, error) {
	d.mu.Lock()
	for _, n := range d.nodes {
		n.reset()
	}
	order := d.order
	d.mu.Unlock()

	mRuns.Inc()

	ctx, span := otel.Tracer("engine/dag").Start(ctx, "dag.execute")
	defer span.End()

	results := make(map[string]any)
	if initial != nil {
		results["initial"] = initial
	}

	for _, layer := range order {
		out := make(chan layerResult, len(layer))
		for _, name := range layer {
			n := d.nodes[name]
			input := d.inputFor(n, initial, results)
			n.status = Running
			go d.runNode(ctx, n, input, out)
		}

		var firstErr error
		for range layer {
			r := <-out
			n := d.nodes[r.name]
			if r.err != nil {
				n.status = Failed
				n.err = r.err
				mNodesFailed.Inc()
				if firstErr == nil {
					firstErr = fmt.Errorf("dag: operator %q: %w", r.name, r.err)
				}
				continue
			}
			n.status = Completed
			n.result = r.value
			results[r.name] = r.value
			mNodesOK.Inc()
		}
		if firstErr != nil {
			return results, firstErr
		}
	}

	return results, nil
}

// inputFor builds a node's Process input from its dependency results: zero
// deps -> initial; one dep -> that dep's result; multiple deps -> []any in
// declaration order (see AddOperator).
func (d *DAG) inputFor(n *node, initial any, results map[string]any) any {
	switch len(n.deps) {
	case 0:
		return initial
	case 1:
		return results[n.deps[0]]
	default:
		fanIn := make([]any, len(n.deps))
		for i, dep := range n.deps {
			fanIn[i] = results[dep]
		}
		return fanIn
	}
}

func (d *DAG) runNode(ctx context.Context, n *node, input any, out chan<- layerResult) {
	ctx, span := otel.Tracer("engine/dag").Start(ctx, "dag.node."+n.name)
	defer span.End()

	value, err := n.operator.Process(ctx, input)
	if err != nil {
		d.log.Error("dag: node failed", "node", n.name, "error", err)
	} else {
		d.log.Debug("dag: node completed", "node", n.name)
	}
	out <- layerResult{name: n.name, value: value, err: err}
}

// SetupAll calls Setup on every operator in the DAG. Call once before the
// first Execute.
func (d *DAG) SetupAll(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for name, n := range d.nodes {
		if err := n.operator.Setup(ctx); err != nil {
			return fmt.Errorf("dag: setup %q: %w", name, err)
		}
	}
	return nil
}

// CleanupAll calls Cleanup on every operator in the DAG, continuing past
// individual errors and returning the first one encountered.
func (d *DAG) CleanupAll(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var firstErr error
	for name, n := range d.nodes {
		if err := n.operator.Cleanup(ctx); err != nil {
			d.log.Error("dag: cleanup failed", "node", name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
