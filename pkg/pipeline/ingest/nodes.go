package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/callwise/callwise/pkg/llm"
	"github.com/callwise/callwise/pkg/prompt"
	"github.com/callwise/callwise/pkg/store"
	"github.com/callwise/callwise/pkg/workflow"
	wferrors "github.com/callwise/callwise/pkg/workflow/errors"
)

// Node identifiers, also used as stage keys in Transcript.Status.
const (
	NodeFetch       = "fetch"
	NodeSegment     = "segment"
	NodeAnnotate    = "annotate"
	NodeChunk       = "chunk"
	NodeReserve     = "reserve"
	NodeIndex       = "index"
	NodeExtract     = "extract"
	NodeBrief       = "brief"
	NodeSummary     = "summary"
	NodeFollowUp    = "followup"
	NodeCoaching    = "coaching"
	NodeConsolidate = "consolidate"
	NodeFinalize    = "finalize"
)

// briefBudget bounds the transcript excerpt shared by the generation
// prompts, in runes.
const briefBudget = 6000

// Nodes carries the collaborators the ingestion nodes close over.
// Zero-value retry falls back to the default policy.
type Nodes struct {
	// Source resolves artifact references to raw transcript text.
	Source store.ArtifactSource

	// Docs issues document identifiers and persists finalized records.
	Docs store.DocumentStore

	// Index receives chunk representations for retrieval.
	Index store.VectorIndex

	// Entities persists extracted entities and facts.
	Entities store.EntityStore

	// LLM is the inference provider for extraction and generation.
	LLM llm.Client

	// ChunkSize and ChunkOverlap control chunk windowing, in runes.
	ChunkSize    int
	ChunkOverlap int

	// LLMTimeout bounds each inference call.
	LLMTimeout time.Duration

	// Retry configures transport retries on store and inference calls.
	Retry wferrors.RetryConfig
}

func (n *Nodes) retryConfig() wferrors.RetryConfig {
	if n.Retry.MaxAttempts > 0 {
		return n.Retry
	}
	return wferrors.DefaultRetry
}

// complete runs one inference call with the configured timeout and
// transport retry.
func (n *Nodes) complete(ctx context.Context, p string) (string, error) {
	res := wferrors.WithRetryContext(ctx, n.retryConfig(), func(ctx context.Context) (*llm.Response, error) {
		return n.LLM.Complete(ctx, llm.Request{
			Prompt:  p,
			Timeout: n.LLMTimeout,
		})
	})
	if res.Err != nil {
		return "", res.Err
	}
	return res.Value.Content, nil
}

// Fetch resolves the artifact reference to raw text. A failure here leaves
// nothing to process, so the router after this node terminates the run.
func (n *Nodes) Fetch(ctx workflow.Context, t Transcript) (Transcript, error) {
	res := wferrors.WithRetryContext(ctx, n.retryConfig(), func(ctx context.Context) (string, error) {
		return n.Source.Fetch(ctx, t.Ref)
	})
	if res.Err != nil {
		ctx.Logger().Error("artifact fetch failed", "ref", t.Ref, "error", res.Err)
		return t.WithStatus(NodeFetch, "error: "+res.Err.Error()), nil
	}
	t.RawText = res.Value
	return t.WithStatus(NodeFetch, PhaseOK), nil
}

// AfterFetch terminates the run when there is no text to process.
func (n *Nodes) AfterFetch(_ workflow.Context, t Transcript) string {
	if t.Failed(NodeFetch) {
		return workflow.END
	}
	return NodeSegment
}

// Segment splits the raw text into speaker turns.
func (n *Nodes) Segment(ctx workflow.Context, t Transcript) (Transcript, error) {
	t.Segments = splitSegments(t.RawText)
	if len(t.Segments) == 0 {
		return t.WithStatus(NodeSegment, "error: no speaker turns found"), nil
	}
	ctx.Logger().Debug("transcript segmented", "segments", len(t.Segments))
	return t.WithStatus(NodeSegment, PhaseOK), nil
}

// Annotate labels each turn with a call phase.
func (n *Nodes) Annotate(_ workflow.Context, t Transcript) (Transcript, error) {
	for i := range t.Segments {
		t.Segments[i].Phase = classifyPhase(t.Segments[i].Text)
	}
	return t.WithStatus(NodeAnnotate, PhaseOK), nil
}

// Chunk windows the annotated turns into bounded retrieval units.
func (n *Nodes) Chunk(ctx workflow.Context, t Transcript) (Transcript, error) {
	t.Chunks = chunkSegments(t.Segments, n.ChunkSize, n.ChunkOverlap)
	ctx.Logger().Debug("transcript chunked", "chunks", len(t.Chunks))
	return t.WithStatus(NodeChunk, PhaseOK), nil
}

// Reserve obtains the durable document identifier before the intelligence
// fan-out, so indexing has an identifier to attach chunks to. Reserving the
// same reference again yields the same identifier.
func (n *Nodes) Reserve(ctx workflow.Context, t Transcript) (Transcript, error) {
	res := wferrors.WithRetryContext(ctx, n.retryConfig(), func(ctx context.Context) (int64, error) {
		return n.Docs.Reserve(ctx, t.Ref)
	})
	if res.Err != nil {
		ctx.Logger().Error("document reservation failed", "ref", t.Ref, "error", res.Err)
		return t.WithStatus(NodeReserve, "error: "+res.Err.Error()), nil
	}
	t.DocumentID = res.Value
	ctx.Logger().Info("document reserved", "ref", t.Ref, "document_id", t.DocumentID)
	return t.WithStatus(NodeReserve, PhaseOK), nil
}

// IndexChunks stores the chunks under the reserved identifier. Runs
// concurrently with Extract; a missing identifier fails this stage without
// touching the index.
func (n *Nodes) IndexChunks(ctx workflow.Context, t Transcript) (Transcript, error) {
	if t.DocumentID == 0 {
		return t.WithStatus(NodeIndex, "error: no document identifier reserved"), nil
	}
	res := wferrors.WithRetryContext(ctx, n.retryConfig(), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, n.Index.Index(ctx, t.DocumentID, t.Chunks)
	})
	if res.Err != nil {
		ctx.Logger().Error("chunk indexing failed", "document_id", t.DocumentID, "error", res.Err)
		return t.WithStatus(NodeIndex, "error: "+res.Err.Error()), nil
	}
	t.Indexed = true
	return t.WithStatus(NodeIndex, PhaseOK), nil
}

// Extract asks the model for entities and facts and merges them into the
// entity store. Runs concurrently with IndexChunks. An inference failure
// fails this stage only; the sibling branch result still lands.
func (n *Nodes) Extract(ctx workflow.Context, t Transcript) (Transcript, error) {
	p := prompt.MustRender(extractTemplate, map[string]any{
		"transcript": clip(renderSegments(t.Segments), briefBudget),
	})

	content, err := n.complete(ctx, p)
	if err != nil {
		ctx.Logger().Error("entity extraction failed", "ref", t.Ref, "error", err)
		return t.WithStatus(NodeExtract, "error: "+err.Error()), nil
	}

	t.Entities = parseExtraction(content)
	ctx.Logger().Debug("entities extracted",
		"entities", len(t.Entities.Entities), "facts", len(t.Entities.Facts))

	if t.DocumentID != 0 {
		res := wferrors.WithRetryContext(ctx, n.retryConfig(), func(ctx context.Context) (struct{}, error) {
			return struct{}{}, n.Entities.MergeEntities(ctx, t.DocumentID, t.Entities)
		})
		if res.Err != nil {
			return t.WithStatus(NodeExtract, "error: persisting entities: "+res.Err.Error()), nil
		}
	}
	return t.WithStatus(NodeExtract, PhaseOK), nil
}

// Brief joins the intelligence fan-out and assembles the shared context the
// three generation branches prompt with.
func (n *Nodes) Brief(_ workflow.Context, t Transcript) (Transcript, error) {
	var b strings.Builder

	if len(t.Entities.Entities) > 0 {
		b.WriteString("Participants and entities:\n")
		for _, e := range t.Entities.Entities {
			fmt.Fprintf(&b, "- %s (%s)\n", e.Name, e.Kind)
		}
		b.WriteString("\n")
	}
	if len(t.Entities.Facts) > 0 {
		b.WriteString("Stated facts:\n")
		for _, f := range t.Entities.Facts {
			fmt.Fprintf(&b, "- %s %s %s\n", f.Subject, f.Relation, f.Object)
		}
		b.WriteString("\n")
	}

	b.WriteString("Transcript:\n")
	b.WriteString(clip(renderSegments(t.Segments), briefBudget))

	t.Brief = b.String()
	return t.WithStatus(NodeBrief, PhaseOK), nil
}

// Summary generates the call summary. Owns the Summary field.
func (n *Nodes) Summary(ctx workflow.Context, t Transcript) (Transcript, error) {
	return n.generate(ctx, t, NodeSummary, summaryTemplate, func(t *Transcript, out string) {
		t.Summary = out
	})
}

// FollowUp drafts the follow-up email. Owns the FollowUp field.
func (n *Nodes) FollowUp(ctx workflow.Context, t Transcript) (Transcript, error) {
	return n.generate(ctx, t, NodeFollowUp, followupTemplate, func(t *Transcript, out string) {
		t.FollowUp = out
	})
}

// Coaching writes rep coaching notes. Owns the Coaching field.
func (n *Nodes) Coaching(ctx workflow.Context, t Transcript) (Transcript, error) {
	return n.generate(ctx, t, NodeCoaching, coachingTemplate, func(t *Transcript, out string) {
		t.Coaching = out
	})
}

// generate runs one generation branch: render, infer, assign. A failure
// records the stage error and leaves the owned field empty, so the fan-in
// still merges the sibling outputs.
func (n *Nodes) generate(ctx workflow.Context, t Transcript, stage, template string, assign func(*Transcript, string)) (Transcript, error) {
	p := prompt.MustRender(template, map[string]any{"brief": t.Brief})

	content, err := n.complete(ctx, p)
	if err != nil {
		ctx.Logger().Error("generation failed", "stage", stage, "ref", t.Ref, "error", err)
		return t.WithStatus(stage, "error: "+err.Error()), nil
	}
	assign(&t, strings.TrimSpace(content))
	return t.WithStatus(stage, PhaseOK), nil
}

// Consolidate folds the branch outputs into the record payload.
func (n *Nodes) Consolidate(_ workflow.Context, t Transcript) (Transcript, error) {
	facts := map[string]string{
		"summary":         t.Summary,
		"follow_up_email": t.FollowUp,
		"coaching_notes":  t.Coaching,
		"chunk_count":     fmt.Sprintf("%d", len(t.Chunks)),
		"entity_count":    fmt.Sprintf("%d", len(t.Entities.Entities)),
		"fact_count":      fmt.Sprintf("%d", len(t.Entities.Facts)),
		"indexed":         fmt.Sprintf("%t", t.Indexed),
	}
	t.Facts = facts
	return t.WithStatus(NodeConsolidate, PhaseOK), nil
}

// Finalize writes the consolidated record against the reserved identifier.
// Idempotent: re-ingesting the same reference overwrites in place.
func (n *Nodes) Finalize(ctx workflow.Context, t Transcript) (Transcript, error) {
	if t.DocumentID == 0 {
		return t.WithStatus(NodeFinalize, "error: no document identifier reserved"), nil
	}
	rec := store.Record{RawText: t.RawText, Facts: t.Facts}
	res := wferrors.WithRetryContext(ctx, n.retryConfig(), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, n.Docs.Finalize(ctx, t.DocumentID, rec)
	})
	if res.Err != nil {
		ctx.Logger().Error("finalize failed", "document_id", t.DocumentID, "error", res.Err)
		return t.WithStatus(NodeFinalize, "error: "+res.Err.Error()), nil
	}
	ctx.Logger().Info("document finalized", "ref", t.Ref, "document_id", t.DocumentID)
	return t.WithStatus(NodeFinalize, PhaseOK), nil
}

// renderSegments joins turns in prompt form.
func renderSegments(segs []Segment) string {
	lines := make([]string, len(segs))
	for i, s := range segs {
		lines[i] = renderSegment(s)
	}
	return strings.Join(lines, "\n")
}

// clip truncates s to at most n runes.
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
