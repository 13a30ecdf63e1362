package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"

	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/journeyengine/internal/platform/logger"
	"github.com/yungbote/journeyengine/internal/repo/postgres"
	"github.com/yungbote/journeyengine/internal/repo/repotest"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

// openTestDB keeps repo integration tests opt-in, gated on an
// environment DSN, so the default `go test ./...` run never requires a
// live Postgres instance.
func openTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		tb.Skip(errMissingDSN.Error())
	}
	db, err := gorm.Open(gormpg.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	return db
}

func TestConformance(t *testing.T) {
	db := openTestDB(t)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	repo := postgres.New(db, log)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repotest.Conformance(t, repo, "workflow_process_info_test")
}
