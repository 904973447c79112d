package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemorySource is an in-memory ArtifactSource for tests and examples.
type MemorySource struct {
	mu    sync.RWMutex
	texts map[string]string
}

var _ ArtifactSource = (*MemorySource)(nil)

// NewMemorySource creates a source seeded with the given ref -> text map.
func NewMemorySource(texts map[string]string) *MemorySource {
	if texts == nil {
		texts = make(map[string]string)
	}
	return &MemorySource{texts: texts}
}

// Put adds or replaces an artifact.
func (s *MemorySource) Put(ref, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts[ref] = text
}

// Fetch implements ArtifactSource.
func (s *MemorySource) Fetch(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.texts[ref]
	if !ok {
		return "", ErrArtifactNotFound
	}
	return text, nil
}

// MemoryDocumentStore is an in-memory DocumentStore for tests.
type MemoryDocumentStore struct {
	mu     sync.Mutex
	nextID int64
	byRef  map[string]*Document
	closed bool
}

var _ DocumentStore = (*MemoryDocumentStore)(nil)

// NewMemoryDocumentStore creates an empty in-memory document store.
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{
		nextID: 1,
		byRef:  make(map[string]*Document),
	}
}

// Reserve implements DocumentStore.
func (s *MemoryDocumentStore) Reserve(_ context.Context, ref string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrStoreClosed
	}
	if doc, ok := s.byRef[ref]; ok {
		return doc.ID, nil
	}
	doc := &Document{
		ID:        s.nextID,
		Ref:       ref,
		Status:    "reserved",
		UpdatedAt: time.Now().UTC(),
	}
	s.nextID++
	s.byRef[ref] = doc
	return doc.ID, nil
}

// Finalize implements DocumentStore.
func (s *MemoryDocumentStore) Finalize(_ context.Context, id int64, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if id == 0 {
		return ErrNoDocumentID
	}
	for _, doc := range s.byRef {
		if doc.ID == id {
			doc.RawText = rec.RawText
			doc.Facts = rec.Facts
			doc.Status = "finalized"
			doc.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrDocumentNotFound
}

// Get implements DocumentStore.
func (s *MemoryDocumentStore) Get(_ context.Context, ref string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	doc, ok := s.byRef[ref]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	cp := *doc
	return &cp, nil
}

// Count returns the number of stored documents.
func (s *MemoryDocumentStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byRef)
}

// Close implements DocumentStore.
func (s *MemoryDocumentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// MemoryVectorIndex is an in-memory VectorIndex using lexical token overlap
// as the similarity score. Which embedding model backs a production index is
// outside this package's concern; the interface is the contract.
type MemoryVectorIndex struct {
	mu     sync.RWMutex
	chunks map[int64][]Chunk
}

var _ VectorIndex = (*MemoryVectorIndex)(nil)

// NewMemoryVectorIndex creates an empty in-memory index.
func NewMemoryVectorIndex() *MemoryVectorIndex {
	return &MemoryVectorIndex{chunks: make(map[int64][]Chunk)}
}

// Index implements VectorIndex. Re-indexing a document replaces its chunks.
func (idx *MemoryVectorIndex) Index(ctx context.Context, docID int64, chunks []Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if docID == 0 {
		return ErrNoDocumentID
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.chunks[docID] = append([]Chunk(nil), chunks...)
	return nil
}

// Search implements VectorIndex.
func (idx *MemoryVectorIndex) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	terms := tokenize(query)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var hits []Hit
	for docID, chunks := range idx.chunks {
		for _, c := range chunks {
			score := overlap(terms, tokenize(c.Text))
			if score > 0 {
				hits = append(hits, Hit{
					DocumentID: docID,
					Seq:        c.Seq,
					Text:       c.Text,
					Score:      score,
				})
			}
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].DocumentID != hits[j].DocumentID {
			return hits[i].DocumentID < hits[j].DocumentID
		}
		return hits[i].Seq < hits[j].Seq
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// DocumentChunkCount returns how many chunks are indexed for a document.
func (idx *MemoryVectorIndex) DocumentChunkCount(docID int64) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks[docID])
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?:;\"'()")
		if len(w) > 2 {
			tokens[w] = true
		}
	}
	return tokens
}

func overlap(a, b map[string]bool) float64 {
	if len(a) == 0 {
		return 0
	}
	n := 0
	for t := range a {
		if b[t] {
			n++
		}
	}
	return float64(n) / float64(len(a))
}

// MemoryEntityStore is an in-memory EntityStore.
type MemoryEntityStore struct {
	mu       sync.RWMutex
	entities map[int64][]Entity
	facts    map[int64][]Fact
}

var _ EntityStore = (*MemoryEntityStore)(nil)

// NewMemoryEntityStore creates an empty in-memory entity store.
func NewMemoryEntityStore() *MemoryEntityStore {
	return &MemoryEntityStore{
		entities: make(map[int64][]Entity),
		facts:    make(map[int64][]Fact),
	}
}

// MergeEntities implements EntityStore. Merging a document again replaces
// its extraction.
func (s *MemoryEntityStore) MergeEntities(ctx context.Context, docID int64, ex Extraction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if docID == 0 {
		return ErrNoDocumentID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[docID] = append([]Entity(nil), ex.Entities...)
	s.facts[docID] = append([]Fact(nil), ex.Facts...)
	return nil
}

// Query implements EntityStore.
func (s *MemoryEntityStore) Query(ctx context.Context, pattern string) ([]Fact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := strings.ToLower(pattern)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Fact
	for _, facts := range s.facts {
		for _, f := range facts {
			if strings.Contains(strings.ToLower(f.Subject), p) ||
				strings.Contains(strings.ToLower(f.Object), p) {
				out = append(out, f)
			}
		}
	}
	return out, nil
}
