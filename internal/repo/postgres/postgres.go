// Package postgres implements engine.Repository and audit.Repository on
// top of gorm.io/gorm, one row per document key. Writes that must be
// atomic are expressed as single statements (ON CONFLICT upserts, an
// in-database increment), and GetLocked takes a row-level SELECT ... FOR
// UPDATE. The schema is generic (key/doc/version) since the engine's
// repository contract is document-oriented, not row-typed.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/journeyengine/internal/pkg/dbctx"
	"github.com/yungbote/journeyengine/internal/platform/logger"
)

// document is the single table backing every engine.Repository key. Doc
// is stored as jsonb so an operator can query into it ad hoc; the engine
// itself treats it as opaque bytes.
type document struct {
	Key       string `gorm:"column:key;primaryKey"`
	Doc       []byte `gorm:"column:doc;type:jsonb"`
	Version   int64  `gorm:"column:version;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (document) TableName() string { return "journey_documents" }

// Repo is a gorm-backed engine.Repository / audit.Repository.
type Repo struct {
	db  *gorm.DB
	log *logger.Logger
}

// New wraps an already-connected *gorm.DB. Migrate must be called once
// (by the host, typically at startup) before first use.
func New(db *gorm.DB, baseLog *logger.Logger) *Repo {
	return &Repo{db: db, log: baseLog.With("repo", "PostgresRepo")}
}

// Migrate creates the backing table if it does not exist.
func (r *Repo) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&document{})
}

func (r *Repo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

// SaveOrUpdate upserts doc under key atomically: a single statement
// with an ON CONFLICT clause, never a read-then-write round trip.
func (r *Repo) SaveOrUpdate(ctx context.Context, key string, doc []byte) error {
	rec := &document{Key: key, Doc: doc, UpdatedAt: time.Now()}
	err := r.tx(dbctx.Context{Ctx: ctx}).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"doc", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("saveOrUpdate %q: %w", key, err)
	}
	return nil
}

// Save inserts a brand new key; it fails if the key already exists,
// unlike SaveOrUpdate.
func (r *Repo) Save(ctx context.Context, key string, doc []byte) error {
	rec := &document{Key: key, Doc: doc, UpdatedAt: time.Now()}
	if err := r.tx(dbctx.Context{Ctx: ctx}).Create(rec).Error; err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

// Update overwrites an existing key's document; it fails if the key does
// not already exist.
func (r *Repo) Update(ctx context.Context, key string, doc []byte) error {
	res := r.tx(dbctx.Context{Ctx: ctx}).Model(&document{}).
		Where("key = ?", key).
		Updates(map[string]interface{}{"doc": doc, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("update %q: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update %q: key not found", key)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, key string) error {
	if err := r.tx(dbctx.Context{Ctx: ctx}).Where("key = ?", key).Delete(&document{}).Error; err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Get returns (nil, nil) for a missing key rather than a sentinel
// not-found error.
func (r *Repo) Get(ctx context.Context, key string) ([]byte, error) {
	var rec document
	err := r.tx(dbctx.Context{Ctx: ctx}).Where("key = ?", key).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return rec.Doc, nil
}

// GetAll lists every document whose key is prefixed by typ,
// matching the namespacing convention internal/engine/keys.go uses
// (workflow_process_info+SEP+caseId, etc.).
func (r *Repo) GetAll(ctx context.Context, typ string) ([][]byte, error) {
	var recs []document
	if err := r.tx(dbctx.Context{Ctx: ctx}).Where("key LIKE ?", typ+"%").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("getAll %q: %w", typ, err)
	}
	out := make([][]byte, len(recs))
	for i, rec := range recs {
		out[i] = rec.Doc
	}
	return out, nil
}

// GetLocked reads key under a row-level exclusive lock (SELECT ... FOR
// UPDATE). The lock only lasts for the span of this call's own
// transaction: the engine.Repository contract has no way to hand the
// caller a live tx to extend it across subsequent calls, so this is a
// single-statement realization reserved for multi-writer deployments
// this implementation does not target.
func (r *Repo) GetLocked(ctx context.Context, key string) ([]byte, error) {
	var doc []byte
	err := r.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var rec document
		err := txx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("key = ?", key).
			Take(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		doc = rec.Doc
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("getLocked %q: %w", key, err)
	}
	return doc, nil
}

// IncrCounter atomically bumps key's version column and returns the new
// value, upserting a zero-doc row on first use. The increment is
// expressed to the database, never read-modify-written in Go.
func (r *Repo) IncrCounter(ctx context.Context, key string) (int64, error) {
	var version int64
	err := r.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).Create(&document{Key: key, Doc: []byte("{}"), UpdatedAt: time.Now()}).Error; err != nil {
			return err
		}
		if err := txx.Model(&document{}).
			Where("key = ?", key).
			Update("version", gorm.Expr("version + 1")).Error; err != nil {
			return err
		}
		return txx.Model(&document{}).Where("key = ?", key).Pluck("version", &version).Error
	})
	if err != nil {
		return 0, fmt.Errorf("incrCounter %q: %w", key, err)
	}
	return version, nil
}
