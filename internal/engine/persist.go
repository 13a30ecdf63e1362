package engine

import (
	"context"

	"github.com/yungbote/journeyengine/internal/audit"
	"github.com/yungbote/journeyengine/internal/wfcase"
)

// maybeSnapshot writes c's snapshot only when
// WriteProcessInfoAfterEachStep is enabled; with the flag off, snapshots
// are written only at pend, complete, and Persist nodes.
func (e *Engine) maybeSnapshot(ctx context.Context, c *wfcase.Case) {
	if !e.cfg.WriteProcessInfoAfterEachStep {
		return
	}
	e.forceSnapshot(ctx, c)
}

// forceSnapshot always writes, regardless of WriteProcessInfoAfterEachStep
// — used at Persist nodes, which must be durable checkpoints independent
// of that flag. Pend and complete snapshots are written through
// persistSnapshotOrFail.
func (e *Engine) forceSnapshot(ctx context.Context, c *wfcase.Case) {
	snap := c.ToSnapshot()
	doc, err := snap.Encode()
	if err != nil {
		e.log.Error("encode snapshot failed", "case", c.CaseID, "error", err)
		return
	}
	key := processInfoKey(e.cfg.PathSeparator, c.CaseID)
	if err := e.repo.SaveOrUpdate(ctx, key, doc); err != nil {
		e.log.Error("persist snapshot failed", "case", c.CaseID, "error", err)
		return
	}
	if e.cfg.WriteAuditLog {
		if err := audit.Copy(ctx, e.repo, e.cfg.PathSeparator, c.CaseID, doc); err != nil {
			e.log.Warn("audit log copy failed", "case", c.CaseID, "error", err)
		}
	}
}

// persistSnapshotOrFail is forceSnapshot's StartCase/ResumeCase/
// ChangeWorkBasket-facing twin: persistence failure here is fatal to the
// calling operation, unlike a mid-round worker
// snapshot, which logs and continues — a lost intermediate snapshot is
// recoverable from the next one, but a lost initial/terminal snapshot
// leaves the case's durable state inconsistent with what the host was
// told happened.
func (e *Engine) persistSnapshotOrFail(ctx context.Context, c *wfcase.Case) error {
	snap := c.ToSnapshot()
	doc, err := snap.Encode()
	if err != nil {
		return wrap(ErrPersistFailed, err)
	}
	key := processInfoKey(e.cfg.PathSeparator, c.CaseID)
	if err := e.repo.SaveOrUpdate(ctx, key, doc); err != nil {
		return wrap(ErrPersistFailed, err)
	}
	if e.cfg.WriteAuditLog {
		if err := audit.Copy(ctx, e.repo, e.cfg.PathSeparator, c.CaseID, doc); err != nil {
			e.log.Warn("audit log copy failed", "case", c.CaseID, "error", err)
		}
	}
	return nil
}

func (e *Engine) loadSnapshot(ctx context.Context, caseID string) (*wfcase.Snapshot, error) {
	key := processInfoKey(e.cfg.PathSeparator, caseID)
	raw, err := e.repo.Get(ctx, key)
	if err != nil {
		return nil, wrap(ErrPersistFailed, err)
	}
	if raw == nil {
		return nil, nil
	}
	return wfcase.DecodeSnapshot(raw)
}

// persistJourneyMarker writes the lightweight "this case runs journey X"
// document under workflow_journey+SEP+caseId at StartCase time.
// The journey graph itself is not re-serialized here: a Journey carries
// unexported validation state (its computed join map) that only New +
// Validate can rebuild, so rehydration on resume is by name, through
// Engine.RegisterJourney, not by replaying this document's bytes.
func (e *Engine) persistJourneyMarker(ctx context.Context, caseID, journeyName string) error {
	key := journeyKey(e.cfg.PathSeparator, caseID)
	doc := []byte(`{"journeyName":"` + journeyName + `"}`)
	if err := e.repo.SaveOrUpdate(ctx, key, doc); err != nil {
		return wrap(ErrPersistFailed, err)
	}
	return nil
}
