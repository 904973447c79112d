package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteDocumentStore {
	t.Helper()
	s, err := NewSQLiteDocumentStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_ReserveAndFinalize(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Reserve(ctx, "call-001")
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	// Reserved but not finalized.
	doc, err := s.Get(ctx, "call-001")
	require.NoError(t, err)
	assert.Equal(t, "reserved", doc.Status)
	assert.Empty(t, doc.RawText)

	err = s.Finalize(ctx, id, Record{
		RawText: "Dana: hello",
		Facts:   map[string]string{"summary": "short call"},
	})
	require.NoError(t, err)

	doc, err = s.Get(ctx, "call-001")
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID)
	assert.Equal(t, "finalized", doc.Status)
	assert.Equal(t, "Dana: hello", doc.RawText)
	assert.Equal(t, map[string]string{"summary": "short call"}, doc.Facts)
	assert.False(t, doc.UpdatedAt.IsZero())
}

func TestSQLite_Reserve_SameRef_SameID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Reserve(ctx, "call-002")
	require.NoError(t, err)
	second, err := s.Reserve(ctx, "call-002")
	require.NoError(t, err)

	assert.Equal(t, first, second)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_ReingestOverwritesInPlace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Reserve(ctx, "call-003")
	require.NoError(t, err)
	require.NoError(t, s.Finalize(ctx, id, Record{RawText: "v1", Facts: map[string]string{"summary": "old"}}))

	// Second ingestion of the same ref: same id, record replaced, one row.
	id2, err := s.Reserve(ctx, "call-003")
	require.NoError(t, err)
	assert.Equal(t, id, id2)
	require.NoError(t, s.Finalize(ctx, id2, Record{RawText: "v2", Facts: map[string]string{"summary": "new"}}))

	doc, err := s.Get(ctx, "call-003")
	require.NoError(t, err)
	assert.Equal(t, "v2", doc.RawText)
	assert.Equal(t, "new", doc.Facts["summary"])

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_Finalize_ZeroID(t *testing.T) {
	s := newTestStore(t)
	err := s.Finalize(context.Background(), 0, Record{})
	assert.ErrorIs(t, err, ErrNoDocumentID)
}

func TestSQLite_Finalize_UnknownID(t *testing.T) {
	s := newTestStore(t)
	err := s.Finalize(context.Background(), 9999, Record{})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestSQLite_Finalize_NilFacts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Reserve(ctx, "call-004")
	require.NoError(t, err)
	require.NoError(t, s.Finalize(ctx, id, Record{RawText: "text"}))

	doc, err := s.Get(ctx, "call-004")
	require.NoError(t, err)
	assert.NotNil(t, doc.Facts)
	assert.Empty(t, doc.Facts)
}

func TestSQLite_Get_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestSQLite_Closed(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.Reserve(context.Background(), "r")
	assert.ErrorIs(t, err, ErrStoreClosed)

	err = s.Finalize(context.Background(), 1, Record{})
	assert.ErrorIs(t, err, ErrStoreClosed)

	_, err = s.Get(context.Background(), "r")
	assert.ErrorIs(t, err, ErrStoreClosed)

	// Closing twice is fine.
	assert.NoError(t, s.Close())
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	s1, err := NewSQLiteDocumentStore(path)
	require.NoError(t, err)
	id, err := s1.Reserve(ctx, "call-005")
	require.NoError(t, err)
	require.NoError(t, s1.Finalize(ctx, id, Record{RawText: "kept"}))
	require.NoError(t, s1.Close())

	s2, err := NewSQLiteDocumentStore(path)
	require.NoError(t, err)
	defer s2.Close()

	doc, err := s2.Get(ctx, "call-005")
	require.NoError(t, err)
	assert.Equal(t, "kept", doc.RawText)
}
