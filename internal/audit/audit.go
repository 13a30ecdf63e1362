// Package audit implements the optional audit log copy: every snapshot,
// when writeAuditLog is enabled, is also written under a companion key
// carrying a monotonically incremented per-case sequence number, via the
// repository's atomic IncrCounter — an atomic read-modify-write issued
// through the repository rather than computed in-process, so concurrent
// writers (were there ever more than one per case) could not race on
// the sequence number.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Repository is the minimal slice of engine.Repository audit needs. It is
// declared locally (rather than imported from internal/engine) so this
// package has no dependency on the engine package at all — engine
// depends on audit, not the other way around.
type Repository interface {
	SaveOrUpdate(ctx context.Context, key string, doc []byte) error
	Delete(ctx context.Context, key string) error
	IncrCounter(ctx context.Context, key string) (int64, error)
}

const counterNs = "workflow_audit_seq"
const logNs = "workflow_audit"

func counterKey(sep byte, caseID string) string {
	return fmt.Sprintf("%s%c%s", counterNs, sep, caseID)
}

func logKey(sep byte, caseID string, seq int64) string {
	return fmt.Sprintf("%s%c%s%c%d", logNs, sep, caseID, sep, seq)
}

// entry wraps a copied snapshot with a globally unique id — a row an
// operator can reference unambiguously even across two cases whose
// sequence numbers collide.
type entry struct {
	ID     string          `json:"id"`
	Seq    int64           `json:"seq"`
	CaseID string          `json:"caseId"`
	Doc    json.RawMessage `json:"doc"`
}

// Copy writes doc under a freshly incremented sequence key for caseID,
// tagging the entry with a fresh uuid so it can be referenced
// independently of its sequence number or case id.
func Copy(ctx context.Context, repo Repository, sep byte, caseID string, doc []byte) error {
	seq, err := repo.IncrCounter(ctx, counterKey(sep, caseID))
	if err != nil {
		return fmt.Errorf("incr audit counter: %w", err)
	}
	raw, err := json.Marshal(entry{ID: uuid.NewString(), Seq: seq, CaseID: caseID, Doc: doc})
	if err != nil {
		return fmt.Errorf("marshal audit entry %d: %w", seq, err)
	}
	if err := repo.SaveOrUpdate(ctx, logKey(sep, caseID, seq), raw); err != nil {
		return fmt.Errorf("write audit entry %d: %w", seq, err)
	}
	return nil
}

// DropCounter removes caseID's sequence counter once the case
// completes. The audit entries themselves stay: they are the post-hoc
// inspection record, only the counter is transient.
func DropCounter(ctx context.Context, repo Repository, sep byte, caseID string) error {
	return repo.Delete(ctx, counterKey(sep, caseID))
}
