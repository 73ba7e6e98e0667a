package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	Visits []string
	N      int
}

func visit(name string) NodeFunc[counter] {
	return func(_ context.Context, s counter) (counter, error) {
		s.Visits = append(s.Visits, name)
		s.N++
		return s, nil
	}
}

func TestGraph_LinearRun(t *testing.T) {
	g := New[counter]().
		AddNode("a", visit("a")).
		AddNode("b", visit("b")).
		AddEdge("a", "b").
		AddEdge("b", End).
		SetEntry("a")

	out, err := g.Run(context.Background(), counter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out.Visits)
	assert.Equal(t, []string{"a", "b"}, g.Nodes())
}

func TestGraph_ConditionalLoop(t *testing.T) {
	g := New[counter]().
		AddNode("work", visit("work")).
		AddNode("check", visit("check")).
		AddEdge("work", "check").
		AddConditionalEdge("check", func(s counter) string {
			if s.N < 6 {
				return "work"
			}
			return End
		}).
		SetEntry("work")

	var steps []Step
	g.Observe(func(s Step) { steps = append(steps, s) })

	out, err := g.Run(context.Background(), counter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"work", "check", "work", "check", "work", "check"}, out.Visits)
	require.Len(t, steps, 6)
	assert.Equal(t, "check", steps[5].Node)
	assert.Equal(t, 5, steps[5].Index)
}

func TestGraph_StepLimit(t *testing.T) {
	g := New[counter]().
		AddNode("spin", visit("spin")).
		AddEdge("spin", "spin").
		SetEntry("spin").
		SetMaxSteps(3)

	out, err := g.Run(context.Background(), counter{})
	assert.ErrorIs(t, err, ErrStepLimit)
	assert.Equal(t, 3, out.N)
}

func TestGraph_NodeErrorKeepsLastState(t *testing.T) {
	boom := errors.New("boom")
	g := New[counter]().
		AddNode("a", visit("a")).
		AddNode("b", func(_ context.Context, s counter) (counter, error) { return s, boom }).
		AddEdge("a", "b").
		SetEntry("a")

	var failed Step
	g.Observe(func(s Step) {
		if s.Err != nil {
			failed = s
		}
	})

	out, err := g.Run(context.Background(), counter{})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "node b")
	assert.Equal(t, []string{"a"}, out.Visits)
	assert.Equal(t, "b", failed.Node)
}

func TestGraph_Validate(t *testing.T) {
	_, err := New[counter]().Run(context.Background(), counter{})
	assert.ErrorIs(t, err, ErrNoEntry)

	g := New[counter]().AddNode("a", visit("a")).AddEdge("a", "missing").SetEntry("a")
	assert.ErrorIs(t, g.Validate(), ErrUnknownNode)
}

func TestGraph_RespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := New[counter]().AddNode("a", visit("a")).SetEntry("a")
	_, err := g.Run(ctx, counter{})
	assert.ErrorIs(t, err, context.Canceled)
}
