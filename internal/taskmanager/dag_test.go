package taskmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDAG_TopologicalSort_Chain(t *testing.T) {
	dag := NewDAG()
	dag.AddNode("A")
	dag.AddEdge("B", "A")
	dag.AddEdge("C", "B")

	order, err := dag.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, order)
}

func TestDAG_Levels_Diamond(t *testing.T) {
	dag := NewDAG()
	for _, id := range []string{"A", "B", "C", "D"} {
		dag.AddNode(id)
	}
	dag.AddEdge("B", "A")
	dag.AddEdge("C", "A")
	dag.AddEdge("D", "B")
	dag.AddEdge("D", "C")

	levels, err := dag.Levels()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A"}, {"B", "C"}, {"D"}}, levels)
}

func TestDAG_Cycle(t *testing.T) {
	dag := NewDAG()
	dag.AddEdge("A", "B")
	dag.AddEdge("B", "C")
	dag.AddEdge("C", "A")

	_, err := dag.TopologicalSort()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular dependency")
}

func TestDAG_IndependentNodesKeepInsertionOrder(t *testing.T) {
	dag := NewDAG()
	dag.AddNode("z")
	dag.AddNode("a")
	dag.AddNode("m")

	order, err := dag.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, order)
}

func TestDAG_EmptyGraph(t *testing.T) {
	levels, err := NewDAG().Levels()
	require.NoError(t, err)
	assert.Empty(t, levels)
}
