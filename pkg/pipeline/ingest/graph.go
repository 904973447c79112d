package ingest

import (
	"context"

	"github.com/callwise/callwise/pkg/workflow"
)

// Build compiles the ingestion graph around the given nodes.
//
//	fetch --router--> {segment | END}
//	segment -> annotate -> chunk -> reserve
//	reserve => [index || extract] => brief        (fan-out, join brief)
//	brief => [summary || followup || coaching] => consolidate
//	consolidate -> finalize -> END
func Build(n *Nodes) (*workflow.Compiled[Transcript], error) {
	return workflow.NewGraph[Transcript]().
		AddNode(NodeFetch, n.Fetch).
		AddNode(NodeSegment, n.Segment).
		AddNode(NodeAnnotate, n.Annotate).
		AddNode(NodeChunk, n.Chunk).
		AddNode(NodeReserve, n.Reserve).
		AddNode(NodeIndex, n.IndexChunks).
		AddNode(NodeExtract, n.Extract).
		AddNode(NodeBrief, n.Brief).
		AddNode(NodeSummary, n.Summary).
		AddNode(NodeFollowUp, n.FollowUp).
		AddNode(NodeCoaching, n.Coaching).
		AddNode(NodeConsolidate, n.Consolidate).
		AddNode(NodeFinalize, n.Finalize).
		AddRouter(NodeFetch, n.AfterFetch).
		AddEdge(NodeSegment, NodeAnnotate).
		AddEdge(NodeAnnotate, NodeChunk).
		AddEdge(NodeChunk, NodeReserve).
		AddFanOut(NodeReserve, []string{NodeIndex, NodeExtract}, NodeBrief).
		AddEdge(NodeIndex, NodeBrief).
		AddEdge(NodeExtract, NodeBrief).
		AddFanOut(NodeBrief, []string{NodeSummary, NodeFollowUp, NodeCoaching}, NodeConsolidate).
		AddEdge(NodeSummary, NodeConsolidate).
		AddEdge(NodeFollowUp, NodeConsolidate).
		AddEdge(NodeCoaching, NodeConsolidate).
		AddEdge(NodeConsolidate, NodeFinalize).
		AddEdge(NodeFinalize, workflow.END).
		SetEntry(NodeFetch).
		Compile()
}

// Engine is a compiled ingestion workflow ready to process artifacts.
type Engine struct {
	compiled *workflow.Compiled[Transcript]
	opts     []workflow.RunOption
}

// NewEngine builds the ingestion graph and wraps it with run options.
func NewEngine(n *Nodes, opts ...workflow.RunOption) (*Engine, error) {
	compiled, err := Build(n)
	if err != nil {
		return nil, err
	}
	return &Engine{compiled: compiled, opts: opts}, nil
}

// Ingest runs one ingestion workflow for the given artifact reference.
// The returned Transcript's Status map records the outcome per stage.
func (e *Engine) Ingest(ctx context.Context, ref string, ctxOpts ...workflow.ContextOption) (Transcript, error) {
	wfCtx := workflow.NewContext(ctx, ctxOpts...)
	return e.compiled.Run(wfCtx, Transcript{Ref: ref}, e.opts...)
}
