// Package quarantine implements the Quarantine Registry: an idempotent,
// single-mutex lifecycle store of isolated internal endpoints,
// persisted to bbolt so active records survive a restart.
//
// Grounded on octoreflex/internal/escalation/state_machine.go's
// ProcessState (mutex-protected struct, no direct field access,
// transition rule enforced inside the lock) for the per-record
// lifecycle, and octoreflex/internal/storage/bolt.go's bucket/JSON
// pattern for persistence (a new "quarantine" bucket keyed by
// ip|quarantined_at so an ip's full history survives a restart).
// Every successful quarantine/release mutation emits an audit entry
// through the ledger before returning success, per spec.md §4.D/§7
// kind 3 — a failed audit write must not let the mutation report success.
package quarantine

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/octoreflex/shadowguard/internal/model"
)

const bucketQuarantine = "quarantine"

// Status is a structured outcome for quarantine/release calls, matching
// spec.md §7 kind 5: "normal" user errors returned as sentinel values.
type Status string

const (
	StatusCreated            Status = "created"
	StatusAlreadyQuarantined Status = "already_quarantined"
	StatusReleased           Status = "released"
	StatusAlreadyReleased    Status = "already_released"
	StatusNotFound           Status = "not_found"
)

// AutoQuarantineThreshold is the minimum threat score that triggers
// automatic quarantine (spec.md §4.D).
const AutoQuarantineThreshold = 0.90

// Ledger is the subset of the audit ledger the registry depends on.
// Declared as an interface here (rather than importing internal/audit
// directly) so tests can substitute a fake without touching disk.
type Ledger interface {
	Append(actor, action, resource string, details map[string]string) (model.AuditEntry, error)
}

// Registry is the mutex-protected quarantine lifecycle store. All
// state transitions are serialized on a single lock, including
// IsQuarantined, per spec.md §4.D/§5. Each ip keeps its full history of
// records (oldest first); a re-quarantine after release appends a new
// record rather than overwriting the released one, so List() can
// report both.
type Registry struct {
	mu      sync.Mutex
	records map[string][]*model.QuarantineRecord
	ledger  Ledger
	db      *bolt.DB
	log     *zap.Logger
}

// recordKey builds the bbolt key for one record: the ip, a separator
// that cannot appear in an ip literal, and a zero-padded nanosecond
// timestamp so ForEach visits an ip's records oldest first.
func recordKey(ip string, quarantinedAt time.Time) []byte {
	return []byte(fmt.Sprintf("%s|%019d", ip, quarantinedAt.UnixNano()))
}

// Open constructs a Registry backed by a bbolt database at dbPath and
// replays existing records from it. Pass an empty dbPath to run purely
// in-memory (used by tests).
func Open(dbPath string, ledger Ledger, log *zap.Logger) (*Registry, error) {
	r := &Registry{
		records: make(map[string][]*model.QuarantineRecord),
		ledger:  ledger,
		log:     log,
	}
	if dbPath == "" {
		return r, nil
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("quarantine.Open: bolt.Open(%q): %w", dbPath, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketQuarantine))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("quarantine.Open: create bucket: %w", err)
	}

	if err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketQuarantine))
		return b.ForEach(func(_, v []byte) error {
			var rec model.QuarantineRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			cp := rec
			r.records[rec.IP] = append(r.records[rec.IP], &cp)
			return nil
		})
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("quarantine.Open: replay: %w", err)
	}

	r.db = db
	return r, nil
}

// Close closes the underlying bbolt database, if any.
func (r *Registry) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Registry) persistLocked(rec *model.QuarantineRecord) error {
	if r.db == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("quarantine: marshal record: %w", err)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketQuarantine)).Put(recordKey(rec.IP, rec.QuarantinedAt), data)
	})
}

// latestLocked returns ip's most recent record, if any. Caller must
// hold r.mu.
func (r *Registry) latestLocked(ip string) *model.QuarantineRecord {
	hist := r.records[ip]
	if len(hist) == 0 {
		return nil
	}
	return hist[len(hist)-1]
}

// Quarantine creates a new active record for ip unless one is already
// active (idempotent: returns already_quarantined without a duplicate
// record). If ip's most recent record was released, this appends a
// fresh record onto its history rather than reviving the old one, so a
// quarantine/release/quarantine sequence leaves both on record. Every
// successful create emits a QUARANTINE_NODE audit entry before this
// call returns; if the audit write fails, the record is rolled back
// and the error is returned so the caller never reports success
// without a persisted audit trail.
func (r *Registry) Quarantine(ip, reason string, score float64, auto bool, actor string) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if latest := r.latestLocked(ip); latest != nil && latest.Status == model.QuarantineActive {
		return StatusAlreadyQuarantined, nil
	}

	rec := &model.QuarantineRecord{
		IP:            ip,
		Reason:        reason,
		ThreatScore:   score,
		QuarantinedAt: time.Now().UTC(),
		AutoTriggered: auto,
		Status:        model.QuarantineActive,
	}

	if r.ledger != nil {
		if _, err := r.ledger.Append(actor, model.ActionQuarantineNode, ip, map[string]string{
			"reason": reason,
		}); err != nil {
			if r.log != nil {
				r.log.Error("quarantine audit write failed; mutation rejected", zap.String("ip", ip), zap.Error(err))
			}
			return "", fmt.Errorf("quarantine %q: audit append failed: %w", ip, err)
		}
	}

	if err := r.persistLocked(rec); err != nil {
		return "", fmt.Errorf("quarantine %q: persist failed: %w", ip, err)
	}
	r.records[ip] = append(r.records[ip], rec)
	return StatusCreated, nil
}

// Release transitions ip's most recent record to released. Returns
// not_found if ip has no record at all, already_released if its most
// recent record is already released. Emits a RELEASE_NODE audit entry
// on success.
func (r *Registry) Release(ip, releasedBy string) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hist := r.records[ip]
	if len(hist) == 0 {
		return StatusNotFound, nil
	}
	rec := hist[len(hist)-1]
	if rec.Status == model.QuarantineReleased {
		return StatusAlreadyReleased, nil
	}

	if r.ledger != nil {
		if _, err := r.ledger.Append(releasedBy, model.ActionReleaseNode, ip, nil); err != nil {
			if r.log != nil {
				r.log.Error("release audit write failed; mutation rejected", zap.String("ip", ip), zap.Error(err))
			}
			return "", fmt.Errorf("release %q: audit append failed: %w", ip, err)
		}
	}

	updated := *rec
	updated.Status = model.QuarantineReleased
	updated.ReleasedAt = time.Now().UTC()
	updated.ReleasedBy = releasedBy

	if err := r.persistLocked(&updated); err != nil {
		return "", fmt.Errorf("release %q: persist failed: %w", ip, err)
	}
	hist[len(hist)-1] = &updated
	return StatusReleased, nil
}

// IsQuarantined reports whether ip's most recent record is active.
// O(1); used on every flow event per spec.md §4.D.
func (r *Registry) IsQuarantined(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	latest := r.latestLocked(ip)
	return latest != nil && latest.Status == model.QuarantineActive
}

// List returns a snapshot of every record across every ip's history,
// active and historical.
func (r *Registry) List() []model.QuarantineRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.QuarantineRecord, 0, len(r.records))
	for _, hist := range r.records {
		for _, rec := range hist {
			out = append(out, *rec)
		}
	}
	return out
}

// AutoQuarantineIfCritical triggers Quarantine iff score meets
// AutoQuarantineThreshold and ip is not already actively quarantined.
// Returns whether a new record was created.
func (r *Registry) AutoQuarantineIfCritical(ip string, score float64, reason string) (bool, error) {
	if score < AutoQuarantineThreshold {
		return false, nil
	}
	if r.IsQuarantined(ip) {
		return false, nil
	}
	status, err := r.Quarantine(ip, reason, score, true, "automation")
	if err != nil {
		return false, err
	}
	return status == StatusCreated, nil
}
