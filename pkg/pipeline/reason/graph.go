package reason

import (
	"context"

	"github.com/callwise/callwise/pkg/workflow"
)

// Build compiles the reasoning graph around the given nodes.
//
//	gatekeep --router--> {plan | END}
//	plan --router--> {act | conclude}
//	act -> verify --router--> {replan | act | conclude}
//	replan -> plan
//	conclude -> END
func Build(n *Nodes) (*workflow.Compiled[Investigation], error) {
	return workflow.NewGraph[Investigation]().
		AddNode(NodeGatekeep, n.Gatekeep).
		AddNode(NodePlan, n.Plan).
		AddNode(NodeAct, n.Act).
		AddNode(NodeVerify, n.Verify).
		AddNode(NodeReplan, n.Replan).
		AddNode(NodeConclude, n.Conclude).
		AddRouter(NodeGatekeep, n.AfterGatekeep).
		AddRouter(NodePlan, n.AfterPlan).
		AddEdge(NodeAct, NodeVerify).
		AddRouter(NodeVerify, n.Decide).
		AddEdge(NodeReplan, NodePlan).
		AddEdge(NodeConclude, workflow.END).
		SetEntry(NodeGatekeep).
		Compile()
}

// Engine is a compiled reasoning workflow ready to answer requests.
type Engine struct {
	compiled *workflow.Compiled[Investigation]
	opts     []workflow.RunOption
}

// NewEngine builds the reasoning graph and wraps it with run options.
func NewEngine(n *Nodes, opts ...workflow.RunOption) (*Engine, error) {
	compiled, err := Build(n)
	if err != nil {
		return nil, err
	}
	return &Engine{compiled: compiled, opts: opts}, nil
}

// Ask runs one reasoning workflow for the given request.
// The returned Investigation carries either FinalAnswer or Clarification.
func (e *Engine) Ask(ctx context.Context, request string, ctxOpts ...workflow.ContextOption) (Investigation, error) {
	wfCtx := workflow.NewContext(ctx, ctxOpts...)
	return e.compiled.Run(wfCtx, Investigation{Request: request}, e.opts...)
}
