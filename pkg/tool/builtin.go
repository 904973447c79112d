package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/callwise/callwise/pkg/store"
	wferrors "github.com/callwise/callwise/pkg/workflow/errors"
)

// callTimeout bounds each external call a built-in tool makes.
const callTimeout = 10 * time.Second

// Builtins returns a registry with the standard tools wired to the given
// collaborators:
//
//	search_transcripts('query')  - ranked chunk search over the vector index
//	query_entities('pattern')    - fact lookup in the entity store
//	get_document('ref')          - finalized record lookup by artifact ref
//
// Each tool carries its own timeout and retries transport failures before
// folding the error into the Result.
func Builtins(index store.VectorIndex, entities store.EntityStore, docs store.DocumentStore) *Registry {
	r := NewRegistry()

	r.Register("search_transcripts", func(ctx context.Context, arg string) Result {
		res := wferrors.WithRetryContext(ctx, wferrors.DefaultRetry, func(ctx context.Context) ([]store.Hit, error) {
			callCtx, cancel := context.WithTimeout(ctx, callTimeout)
			defer cancel()
			return index.Search(callCtx, arg, 5)
		})
		if res.Err != nil {
			return Result{Tool: "search_transcripts", Err: res.Err.Error()}
		}
		if len(res.Value) == 0 {
			return Result{Tool: "search_transcripts", Output: "no matching transcript segments"}
		}
		var b strings.Builder
		for _, hit := range res.Value {
			fmt.Fprintf(&b, "[doc %d #%d score %.2f] %s\n", hit.DocumentID, hit.Seq, hit.Score, hit.Text)
		}
		return Result{Tool: "search_transcripts", Output: strings.TrimRight(b.String(), "\n")}
	})

	r.Register("query_entities", func(ctx context.Context, arg string) Result {
		res := wferrors.WithRetryContext(ctx, wferrors.DefaultRetry, func(ctx context.Context) ([]store.Fact, error) {
			callCtx, cancel := context.WithTimeout(ctx, callTimeout)
			defer cancel()
			return entities.Query(callCtx, arg)
		})
		if res.Err != nil {
			return Result{Tool: "query_entities", Err: res.Err.Error()}
		}
		if len(res.Value) == 0 {
			return Result{Tool: "query_entities", Output: "no matching facts"}
		}
		var b strings.Builder
		for _, f := range res.Value {
			fmt.Fprintf(&b, "%s %s %s\n", f.Subject, f.Relation, f.Object)
		}
		return Result{Tool: "query_entities", Output: strings.TrimRight(b.String(), "\n")}
	})

	r.Register("get_document", func(ctx context.Context, arg string) Result {
		res := wferrors.WithRetryContext(ctx, wferrors.DefaultRetry, func(ctx context.Context) (*store.Document, error) {
			callCtx, cancel := context.WithTimeout(ctx, callTimeout)
			defer cancel()
			return docs.Get(callCtx, arg)
		})
		if res.Err != nil {
			if errors.Is(res.Err, store.ErrDocumentNotFound) {
				return Result{Tool: "get_document", Err: fmt.Sprintf("document not found: %s", arg)}
			}
			return Result{Tool: "get_document", Err: res.Err.Error()}
		}
		doc := res.Value
		var b strings.Builder
		fmt.Fprintf(&b, "document %d (%s) status=%s\n", doc.ID, doc.Ref, doc.Status)
		keys := make([]string, 0, len(doc.Facts))
		for k := range doc.Facts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\n", k, doc.Facts[k])
		}
		return Result{Tool: "get_document", Output: strings.TrimRight(b.String(), "\n")}
	})

	return r
}
