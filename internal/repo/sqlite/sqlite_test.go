package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/yungbote/journeyengine/internal/repo/repotest"
	"github.com/yungbote/journeyengine/internal/repo/sqlite"
)

func TestConformance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journeyengine.db")
	repo, err := sqlite.New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	if err := repo.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	repotest.Conformance(t, repo, "workflow_process_info")
}
