// Package repotest holds a backend-agnostic conformance suite for
// engine.Repository implementations: one shared harness function that
// every concrete repo's _test.go calls with its own construction.
package repotest

import (
	"context"
	"testing"

	"github.com/yungbote/journeyengine/internal/engine"
)

// Conformance runs the same behavioral assertions against any
// engine.Repository implementation: every concrete backend's _test.go
// constructs its repo and a clean namespace prefix, then delegates here.
func Conformance(t *testing.T, repo engine.Repository, keyPrefix string) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissingReturnsNilNil", func(t *testing.T) {
		doc, err := repo.Get(ctx, keyPrefix+"/missing")
		if err != nil {
			t.Fatalf("get missing: %v", err)
		}
		if doc != nil {
			t.Fatalf("expected nil doc for missing key, got %q", doc)
		}
	})

	t.Run("SaveThenGet", func(t *testing.T) {
		key := keyPrefix + "/save"
		if err := repo.Save(ctx, key, []byte(`{"a":1}`)); err != nil {
			t.Fatalf("save: %v", err)
		}
		doc, err := repo.Get(ctx, key)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if string(doc) != `{"a":1}` {
			t.Fatalf("got %q", doc)
		}
	})

	t.Run("UpdateMissingFails", func(t *testing.T) {
		if err := repo.Update(ctx, keyPrefix+"/never-saved", []byte(`{}`)); err == nil {
			t.Fatalf("expected error updating a key that was never saved")
		}
	})

	t.Run("SaveOrUpdateUpserts", func(t *testing.T) {
		key := keyPrefix + "/upsert"
		if err := repo.SaveOrUpdate(ctx, key, []byte(`{"v":1}`)); err != nil {
			t.Fatalf("first saveOrUpdate: %v", err)
		}
		if err := repo.SaveOrUpdate(ctx, key, []byte(`{"v":2}`)); err != nil {
			t.Fatalf("second saveOrUpdate: %v", err)
		}
		doc, err := repo.Get(ctx, key)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if string(doc) != `{"v":2}` {
			t.Fatalf("expected latest write to win, got %q", doc)
		}
	})

	t.Run("UpdateOverwritesExisting", func(t *testing.T) {
		key := keyPrefix + "/update"
		if err := repo.Save(ctx, key, []byte(`{"v":1}`)); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := repo.Update(ctx, key, []byte(`{"v":2}`)); err != nil {
			t.Fatalf("update: %v", err)
		}
		doc, err := repo.Get(ctx, key)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if string(doc) != `{"v":2}` {
			t.Fatalf("got %q", doc)
		}
	})

	t.Run("DeleteRemoves", func(t *testing.T) {
		key := keyPrefix + "/delete"
		if err := repo.SaveOrUpdate(ctx, key, []byte(`{}`)); err != nil {
			t.Fatalf("saveOrUpdate: %v", err)
		}
		if err := repo.Delete(ctx, key); err != nil {
			t.Fatalf("delete: %v", err)
		}
		doc, err := repo.Get(ctx, key)
		if err != nil {
			t.Fatalf("get after delete: %v", err)
		}
		if doc != nil {
			t.Fatalf("expected nil after delete, got %q", doc)
		}
	})

	t.Run("GetAllListsByPrefix", func(t *testing.T) {
		ns := keyPrefix + "/list_ns"
		for i := 0; i < 3; i++ {
			key := ns + string(rune('a'+i))
			if err := repo.SaveOrUpdate(ctx, key, []byte(`{}`)); err != nil {
				t.Fatalf("saveOrUpdate %d: %v", i, err)
			}
		}
		docs, err := repo.GetAll(ctx, ns)
		if err != nil {
			t.Fatalf("getAll: %v", err)
		}
		if len(docs) != 3 {
			t.Fatalf("expected 3 docs under prefix %q, got %d", ns, len(docs))
		}
	})

	t.Run("GetLockedReadsWhatWasSaved", func(t *testing.T) {
		key := keyPrefix + "/locked"
		if err := repo.SaveOrUpdate(ctx, key, []byte(`{"locked":true}`)); err != nil {
			t.Fatalf("saveOrUpdate: %v", err)
		}
		doc, err := repo.GetLocked(ctx, key)
		if err != nil {
			t.Fatalf("getLocked: %v", err)
		}
		if string(doc) != `{"locked":true}` {
			t.Fatalf("got %q", doc)
		}
	})

	t.Run("IncrCounterMonotonic", func(t *testing.T) {
		key := keyPrefix + "/counter"
		first, err := repo.IncrCounter(ctx, key)
		if err != nil {
			t.Fatalf("first incr: %v", err)
		}
		second, err := repo.IncrCounter(ctx, key)
		if err != nil {
			t.Fatalf("second incr: %v", err)
		}
		if second != first+1 {
			t.Fatalf("expected strictly monotonic increment, got %d then %d", first, second)
		}
	})
}
