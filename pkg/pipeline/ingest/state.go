// Package ingest implements the ingestion workflow for sales-call
// transcripts:
//
//	fetch -> segment -> annotate -> chunk -> reserve
//	      -> [index || extract]                      (intelligence fan-out)
//	      -> brief
//	      -> [summary || followup || coaching]       (generation fan-out)
//	      -> consolidate -> finalize
//
// The document identifier is reserved before the intelligence fan-out, so
// vector indexing - which needs a durable identifier - can run concurrently
// with entity extraction. Finalization happens last, as an idempotent upsert
// keyed by the artifact reference.
package ingest

import (
	"sort"

	"github.com/callwise/callwise/pkg/store"
	"github.com/callwise/callwise/pkg/workflow"
)

// Segment is one speaker turn of a transcript.
type Segment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	// Phase is the call phase label assigned by annotation.
	Phase string `json:"phase,omitempty"`
}

// PhaseOK marks a completed stage in the status map.
const PhaseOK = "ok"

// Transcript is the context object for one ingestion run.
//
// Merge semantics per field: Ref, DocumentID, RawText, Segments, Chunks,
// and Brief are written by sequential stages outside any fan-out and are
// identical in every branch clone. Entities, Indexed, Summary, FollowUp,
// and Coaching are each owned by exactly one concurrent branch and merged
// last-writer-wins from that branch only. Status is append-only: every node
// writes its own stage key and no two branches share a key.
type Transcript struct {
	// Ref is the external artifact reference.
	Ref string `json:"ref"`

	// DocumentID is the durable identifier issued by the reserve step.
	// Zero means not yet reserved.
	DocumentID int64 `json:"document_id"`

	// RawText is the fetched artifact text.
	RawText string `json:"raw_text,omitempty"`

	// Segments are the extracted speaker turns, in order.
	Segments []Segment `json:"segments,omitempty"`

	// Chunks are the bounded units handed to indexing and generation.
	Chunks []store.Chunk `json:"chunks,omitempty"`

	// Entities is the extraction branch output.
	Entities store.Extraction `json:"entities,omitempty"`

	// Indexed is set by the indexing branch on success.
	Indexed bool `json:"indexed"`

	// Brief is the shared generation context assembled at the
	// intelligence fan-in, before the generation fan-out.
	Brief string `json:"brief,omitempty"`

	// Summary, FollowUp, and Coaching are the generation branch outputs,
	// one field per branch.
	Summary  string `json:"summary,omitempty"`
	FollowUp string `json:"follow_up,omitempty"`
	Coaching string `json:"coaching,omitempty"`

	// Facts is the consolidated record written by the fan-in step.
	Facts map[string]string `json:"facts,omitempty"`

	// Status records the outcome per stage: PhaseOK or an error string.
	Status map[string]string `json:"status,omitempty"`
}

var _ workflow.Branchable[Transcript] = Transcript{}

// WithStatus returns the transcript with one stage outcome recorded.
func (t Transcript) WithStatus(stage, outcome string) Transcript {
	status := make(map[string]string, len(t.Status)+1)
	for k, v := range t.Status {
		status[k] = v
	}
	status[stage] = outcome
	t.Status = status
	return t
}

// Failed reports whether the given stage recorded an error.
func (t Transcript) Failed(stage string) bool {
	v, ok := t.Status[stage]
	return ok && v != PhaseOK
}

// Clone implements workflow.Branchable. Maps and slices are copied so a
// branch never observes another branch's uncommitted writes.
func (t Transcript) Clone(string) Transcript {
	clone := t
	clone.Segments = append([]Segment(nil), t.Segments...)
	clone.Chunks = append([]store.Chunk(nil), t.Chunks...)
	clone.Entities = store.Extraction{
		Entities: append([]store.Entity(nil), t.Entities.Entities...),
		Facts:    append([]store.Fact(nil), t.Entities.Facts...),
	}
	if t.Facts != nil {
		clone.Facts = make(map[string]string, len(t.Facts))
		for k, v := range t.Facts {
			clone.Facts[k] = v
		}
	}
	if t.Status != nil {
		clone.Status = make(map[string]string, len(t.Status))
		for k, v := range t.Status {
			clone.Status[k] = v
		}
	}
	return clone
}

// Merge implements workflow.Branchable. Branch-owned fields are taken from
// whichever branch set them; status entries are unioned. Branches are
// visited in sorted order so merging is deterministic, though with disjoint
// branch ownership the order cannot change the outcome.
func (t Transcript) Merge(branches map[string]Transcript) Transcript {
	merged := t

	names := make([]string, 0, len(branches))
	for name := range branches {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b := branches[name]

		if len(b.Entities.Entities) > 0 || len(b.Entities.Facts) > 0 {
			merged.Entities = b.Entities
		}
		if b.Indexed {
			merged.Indexed = true
		}
		if b.Summary != "" {
			merged.Summary = b.Summary
		}
		if b.FollowUp != "" {
			merged.FollowUp = b.FollowUp
		}
		if b.Coaching != "" {
			merged.Coaching = b.Coaching
		}

		for stage, outcome := range b.Status {
			if _, ok := merged.Status[stage]; !ok {
				merged = merged.WithStatus(stage, outcome)
			}
		}
	}

	return merged
}
