package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewGraph(t *testing.T) {
	graph := NewGraph[Counter]()
	assert.NotNil(t, graph)
	assert.NotNil(t, graph.nodes)
	assert.NotNil(t, graph.edges)
	assert.NotNil(t, graph.routers)
	assert.NotNil(t, graph.fanOuts)
	assert.Empty(t, graph.entry)
}

func TestGraph_AddNode(t *testing.T) {
	graph := NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("b", increment)

	assert.Len(t, graph.nodes, 2)
	assert.Contains(t, graph.nodes, "a")
	assert.Contains(t, graph.nodes, "b")
}

func TestGraph_AddNode_Chaining(t *testing.T) {
	graph := NewGraph[Counter]()
	result := graph.AddNode("a", increment)
	assert.Same(t, graph, result)
}

func TestGraph_AddNode_EmptyID_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "workflow: node ID cannot be empty", func() {
		NewGraph[Counter]().AddNode("", increment)
	})
}

func TestGraph_AddNode_ReservedID_Panics(t *testing.T) {
	testCases := []struct {
		name string
		id   string
	}{
		{"END uppercase", "END"},
		{"end lowercase", "end"},
		{"End mixed case", "End"},
		{"__end__ literal", "__end__"},
		{"__END__ uppercase", "__END__"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.PanicsWithValue(t, "workflow: node ID cannot be reserved word 'END'", func() {
				NewGraph[Counter]().AddNode(tc.id, increment)
			})
		})
	}
}

func TestGraph_AddNode_WhitespaceID_Panics(t *testing.T) {
	testCases := []struct {
		name string
		id   string
	}{
		{"space", "node a"},
		{"tab", "node\ta"},
		{"newline", "node\na"},
		{"leading space", " node"},
		{"trailing space", "node "},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.PanicsWithValue(t, "workflow: node ID cannot contain whitespace", func() {
				NewGraph[Counter]().AddNode(tc.id, increment)
			})
		})
	}
}

func TestGraph_AddNode_NilFunc_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "workflow: node function cannot be nil", func() {
		NewGraph[Counter]().AddNode("a", nil)
	})
}

func TestGraph_AddNode_Duplicate_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "workflow: duplicate node ID: a", func() {
		NewGraph[Counter]().
			AddNode("a", increment).
			AddNode("a", increment)
	})
}

func TestGraph_AddEdge(t *testing.T) {
	graph := NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge("a", "b").
		AddEdge("b", END)

	assert.Equal(t, "b", graph.edges["a"])
	assert.Equal(t, END, graph.edges["b"])
}

func TestGraph_AddEdge_Duplicate_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "workflow: node a already has a static edge", func() {
		NewGraph[Counter]().
			AddNode("a", increment).
			AddNode("b", increment).
			AddEdge("a", "b").
			AddEdge("a", END)
	})
}

func TestGraph_AddRouter_Nil_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "workflow: router function cannot be nil", func() {
		NewGraph[Counter]().AddNode("a", increment).AddRouter("a", nil)
	})
}

func TestGraph_AddFanOut(t *testing.T) {
	graph := NewGraph[Report]().
		AddNode("fork", makeStage("fork", nil)).
		AddNode("l", makeStage("l", nil)).
		AddNode("r", makeStage("r", nil)).
		AddNode("join", makeStage("join", nil)).
		AddFanOut("fork", []string{"l", "r"}, "join")

	fo, ok := graph.fanOuts["fork"]
	assert.True(t, ok)
	assert.Equal(t, []string{"l", "r"}, fo.branches)
	assert.Equal(t, "join", fo.join)
}

func TestGraph_AddFanOut_TooFewBranches_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "workflow: fan-out requires at least two branches", func() {
		NewGraph[Report]().
			AddNode("fork", makeStage("fork", nil)).
			AddFanOut("fork", []string{"only"}, "join")
	})
}

func TestGraph_AddFanOut_NoJoin_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "workflow: fan-out requires a join node", func() {
		NewGraph[Report]().
			AddNode("fork", makeStage("fork", nil)).
			AddFanOut("fork", []string{"l", "r"}, "")
	})
}

func TestGraph_AddFanOut_Duplicate_Panics(t *testing.T) {
	assert.PanicsWithValue(t, "workflow: node fork already has a fan-out", func() {
		NewGraph[Report]().
			AddNode("fork", makeStage("fork", nil)).
			AddFanOut("fork", []string{"l", "r"}, "join").
			AddFanOut("fork", []string{"x", "y"}, "join")
	})
}

func TestGraph_AddFanOut_CopiesBranches(t *testing.T) {
	branches := []string{"l", "r"}
	graph := NewGraph[Report]().
		AddNode("fork", makeStage("fork", nil)).
		AddFanOut("fork", branches, "join")

	branches[0] = "mutated"
	assert.Equal(t, []string{"l", "r"}, graph.fanOuts["fork"].branches)
}
