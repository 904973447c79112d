// Package store defines the narrow interfaces the workflows use to talk to
// external collaborators - artifact sources, the document store, the vector
// index, and the entity store - plus concrete implementations: a SQLite
// document store, a file-backed artifact source, and in-memory versions of
// everything for tests.
package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for store operations.
var (
	// ErrArtifactNotFound indicates the artifact source has no such ref.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrDocumentNotFound indicates no document exists for the ref or id.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrNoDocumentID indicates an operation that requires a reserved
	// document identifier was called without one.
	ErrNoDocumentID = errors.New("document identifier not reserved")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("store closed")
)

// ArtifactSource supplies raw transcript text given a document reference.
type ArtifactSource interface {
	// Fetch returns the raw text for ref, or ErrArtifactNotFound.
	Fetch(ctx context.Context, ref string) (string, error)
}

// Document is a persisted transcript record.
type Document struct {
	ID        int64             `json:"id"`
	Ref       string            `json:"ref"`
	RawText   string            `json:"raw_text"`
	Facts     map[string]string `json:"facts"`
	Status    string            `json:"status"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Record is the consolidated payload written by the finalize step.
type Record struct {
	RawText string            `json:"raw_text"`
	Facts   map[string]string `json:"facts"`
}

// DocumentStore issues durable document identifiers and persists finalized
// records.
//
// Reserve and Finalize are deliberately split: Reserve issues the identifier
// before any derived data exists, so vector indexing can run concurrently
// with the rest of ingestion; Finalize later writes the full record against
// that identifier. Both are idempotent: reserving the same ref twice yields
// the same identifier, and finalizing twice overwrites in place.
type DocumentStore interface {
	// Reserve returns the durable identifier for ref, creating the row if
	// it does not exist yet.
	Reserve(ctx context.Context, ref string) (int64, error)

	// Finalize upserts the record for a previously reserved identifier.
	Finalize(ctx context.Context, id int64, rec Record) error

	// Get returns the document for ref, or ErrDocumentNotFound.
	Get(ctx context.Context, ref string) (*Document, error)

	// Close releases any resources.
	Close() error
}

// Chunk is one vector-indexable unit of transcript text.
type Chunk struct {
	Seq  int    `json:"seq"`
	Text string `json:"text"`
}

// Hit is a ranked search result.
type Hit struct {
	DocumentID int64   `json:"document_id"`
	Seq        int     `json:"seq"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// VectorIndex stores chunk representations keyed by document identifier and
// answers similarity queries.
type VectorIndex interface {
	// Index stores the chunks for a document. Requires a reserved
	// identifier; id 0 returns ErrNoDocumentID.
	Index(ctx context.Context, docID int64, chunks []Chunk) error

	// Search returns up to limit chunks ranked by relevance to query.
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
}

// Entity is a named participant, product, or concept extracted from a call.
type Entity struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Fact is a subject-relation-object triple extracted from a call.
type Fact struct {
	Subject  string `json:"subject"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
}

// Extraction is the structured output of the entity-extraction step.
type Extraction struct {
	Entities []Entity `json:"entities"`
	Facts    []Fact   `json:"facts"`
}

// EntityStore persists extracted entities and relationships and answers
// pattern queries over them.
type EntityStore interface {
	// MergeEntities upserts the extraction for a document.
	MergeEntities(ctx context.Context, docID int64, ex Extraction) error

	// Query returns facts whose subject or object contains pattern
	// (case-insensitive).
	Query(ctx context.Context, pattern string) ([]Fact, error)
}
