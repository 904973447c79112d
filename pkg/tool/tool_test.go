package tool

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/callwise/callwise/pkg/store"
)

func TestNewRegistry_FinishPreRegistered(t *testing.T) {
	r := NewRegistry()

	require.True(t, r.Has(Finish))

	res := r.Invoke(context.Background(), Finish, "")
	assert.False(t, res.Failed())
	assert.Equal(t, Finish, res.Tool)
}

func TestInvoke_UnknownTool_StructuredError(t *testing.T) {
	r := NewRegistry()

	res := r.Invoke(context.Background(), "does_not_exist", "arg")

	// Failure is data: the run must not abort on a bad tool name.
	assert.True(t, res.Failed())
	assert.Equal(t, "does_not_exist", res.Tool)
	assert.Equal(t, ErrNotFound, res.Err)
	assert.Empty(t, res.Output)
}

func TestRegister_CustomTool(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", func(_ context.Context, arg string) Result {
		return Result{Tool: "echo", Output: arg}
	})

	res := r.Invoke(context.Background(), "echo", "hello")
	assert.Equal(t, "hello", res.Output)
	assert.False(t, res.Failed())
}

func TestNames(t *testing.T) {
	r := NewRegistry()
	r.Register("a", func(context.Context, string) Result { return Result{} })

	assert.ElementsMatch(t, []string{Finish, "a"}, r.Names())
}

// seededStores builds memory stores with one ingested document.
func seededStores(t *testing.T) (store.VectorIndex, store.EntityStore, store.DocumentStore) {
	t.Helper()
	ctx := context.Background()

	docs := store.NewMemoryDocumentStore()
	id, err := docs.Reserve(ctx, "call-001")
	require.NoError(t, err)
	require.NoError(t, docs.Finalize(ctx, id, store.Record{
		RawText: "Dana: our budget is fifty thousand",
		Facts:   map[string]string{"summary": "budget call"},
	}))

	index := store.NewMemoryVectorIndex()
	require.NoError(t, index.Index(ctx, id, []store.Chunk{
		{Seq: 0, Text: "Dana: our budget is fifty thousand"},
		{Seq: 1, Text: "Sam: let me send over a proposal"},
	}))

	entities := store.NewMemoryEntityStore()
	require.NoError(t, entities.MergeEntities(ctx, id, store.Extraction{
		Entities: []store.Entity{{Name: "Dana", Kind: "person"}},
		Facts:    []store.Fact{{Subject: "Dana", Relation: "has budget", Object: "50000"}},
	}))

	return index, entities, docs
}

func TestBuiltins_SearchTranscripts(t *testing.T) {
	index, entities, docs := seededStores(t)
	r := Builtins(index, entities, docs)

	res := r.Invoke(context.Background(), "search_transcripts", "budget")
	require.False(t, res.Failed(), "unexpected error: %s", res.Err)
	assert.Contains(t, res.Output, "budget")
	assert.Contains(t, res.Output, "[doc ")
}

func TestBuiltins_SearchTranscripts_NoMatches(t *testing.T) {
	index, entities, docs := seededStores(t)
	r := Builtins(index, entities, docs)

	res := r.Invoke(context.Background(), "search_transcripts", "zzzzz")
	require.False(t, res.Failed())
	assert.Equal(t, "no matching transcript segments", res.Output)
}

func TestBuiltins_QueryEntities(t *testing.T) {
	index, entities, docs := seededStores(t)
	r := Builtins(index, entities, docs)

	res := r.Invoke(context.Background(), "query_entities", "dana")
	require.False(t, res.Failed())
	assert.Contains(t, res.Output, "Dana has budget 50000")

	empty := r.Invoke(context.Background(), "query_entities", "nobody")
	require.False(t, empty.Failed())
	assert.Equal(t, "no matching facts", empty.Output)
}

func TestBuiltins_GetDocument(t *testing.T) {
	index, entities, docs := seededStores(t)
	r := Builtins(index, entities, docs)

	res := r.Invoke(context.Background(), "get_document", "call-001")
	require.False(t, res.Failed())
	assert.Contains(t, res.Output, "call-001")
	assert.Contains(t, res.Output, "summary: budget call")
}

func TestBuiltins_GetDocument_FactsOrderedByKey(t *testing.T) {
	index, entities, docs := seededStores(t)
	ctx := context.Background()

	id, err := docs.Reserve(ctx, "call-002")
	require.NoError(t, err)
	require.NoError(t, docs.Finalize(ctx, id, store.Record{
		Facts: map[string]string{
			"summary":         "short call",
			"coaching_notes":  "listen more",
			"follow_up_email": "hi again",
			"chunk_count":     "3",
		},
	}))

	r := Builtins(index, entities, docs)

	res := r.Invoke(ctx, "get_document", "call-002")
	require.False(t, res.Failed())

	lines := strings.Split(res.Output, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, []string{
		"chunk_count: 3",
		"coaching_notes: listen more",
		"follow_up_email: hi again",
		"summary: short call",
	}, lines[1:])

	// Rendering the same document again yields identical output.
	assert.Equal(t, res.Output, r.Invoke(ctx, "get_document", "call-002").Output)
}

func TestBuiltins_GetDocument_NotFound(t *testing.T) {
	index, entities, docs := seededStores(t)
	r := Builtins(index, entities, docs)

	res := r.Invoke(context.Background(), "get_document", "no-such-ref")
	assert.True(t, res.Failed())
	assert.Contains(t, res.Err, "document not found")
}
