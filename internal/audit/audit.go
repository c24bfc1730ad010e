// Package audit implements the Audit Ledger: an append-only,
// crash-safe, tamper-evident log of administrative events.
//
// Grounded on octoreflex/internal/storage/bolt.go's AppendLedger/
// ReadLedger dual (in-memory + on-disk) write discipline, reimplemented
// over a line-delimited JSON file per spec.md §4.C/§6: a plain
// append-only file lets external compliance readers tail it without a
// bbolt client. The tamper-evidence chain is grounded
// on octoreflex/internal/governance/constitutional.go's
// DecisionHash/ParentHash idea: each entry's Hash covers its own
// fields plus the previous entry's Hash, so editing any historical
// line breaks every hash after it on replay.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/octoreflex/shadowguard/internal/model"
)

// Standard audit actions emitted by the quarantine registry, re-exported
// here for callers that only import this package.
const (
	ActionQuarantineNode = model.ActionQuarantineNode
	ActionReleaseNode    = model.ActionReleaseNode
)

// Ledger is a mutex-protected, append-only audit log backed by a
// line-delimited JSON file. The mutex covers both the in-memory slice
// and the file handle; append is the only writer and holds the lock
// through the disk write, per spec.md §5's shared-state policy.
type Ledger struct {
	mu      sync.Mutex
	entries []model.AuditEntry // newest-first
	file    *os.File
	nextID  atomic.Uint64
	log     *zap.Logger
}

// Open opens (creating if necessary) the ledger file at path and
// replays it to reconstruct in-memory state. The parent directory is
// created if missing.
func Open(path string, log *zap.Logger) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("audit.Open: mkdir %q: %w", filepath.Dir(path), err)
	}

	l := &Ledger{log: log}

	if existing, err := os.Open(path); err == nil {
		if err := l.replay(existing); err != nil {
			existing.Close()
			return nil, fmt.Errorf("audit.Open: replay %q: %w", path, err)
		}
		existing.Close()
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("audit.Open: read %q: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit.Open: open %q for append: %w", path, err)
	}
	l.file = f

	if len(l.entries) > 0 {
		l.nextID.Store(l.entries[0].ID)
	}
	return l, nil
}

// replay reads a line-delimited JSON file in chronological (oldest
// first) order and rebuilds the in-memory newest-first slice.
func (l *Ledger) replay(f *os.File) error {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var chronological []model.AuditEntry
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e model.AuditEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("decode ledger line: %w", err)
		}
		chronological = append(chronological, e)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	for i := len(chronological) - 1; i >= 0; i-- {
		l.entries = append(l.entries, chronological[i])
	}
	return nil
}

// Append creates and persists a new audit entry. The mutation that
// triggered this call must not be reported successful unless this
// call returns nil (spec.md §7 kind 3): the ledger does not silently
// drop on I/O failure.
func (l *Ledger) Append(actor, action, resource string, details map[string]string) (model.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID.Add(1)
	var prevHash string
	if len(l.entries) > 0 {
		prevHash = l.entries[0].Hash
	}

	e := model.AuditEntry{
		ID:        id,
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		Action:    action,
		Resource:  resource,
		Details:   details,
		PrevHash:  prevHash,
	}
	e.Hash = chainHash(e)

	data, err := json.Marshal(e)
	if err != nil {
		return model.AuditEntry{}, fmt.Errorf("audit.Append: marshal: %w", err)
	}
	data = append(data, '\n')

	if _, err := l.file.Write(data); err != nil {
		if l.log != nil {
			l.log.Error("audit ledger write failed", zap.Error(err), zap.String("action", action))
		}
		return model.AuditEntry{}, fmt.Errorf("audit.Append: write: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		if l.log != nil {
			l.log.Error("audit ledger sync failed", zap.Error(err), zap.String("action", action))
		}
		return model.AuditEntry{}, fmt.Errorf("audit.Append: sync: %w", err)
	}

	l.entries = append([]model.AuditEntry{e}, l.entries...)
	return e, nil
}

// GetLogs returns the newest limit entries, newest first. A limit <= 0
// or greater than the available count returns every entry.
func (l *Ledger) GetLogs(limit int) []model.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]model.AuditEntry, limit)
	copy(out, l.entries[:limit])
	return out
}

// Close flushes and closes the underlying file.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// chainHash computes sha256(prev_hash || canonical fields) as the
// entry's own hash, so a replay can detect any edit to a historical line.
func chainHash(e model.AuditEntry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s|%s|%s|%s|", e.PrevHash, e.ID, e.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z"), e.Actor, e.Action, e.Resource)
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s;", k, e.Details[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Verify recomputes every entry's hash chain and reports the first
// break found, if any. Entries are stored newest-first; verification
// walks oldest to newest.
func (l *Ledger) Verify() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var prevHash string
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if e.PrevHash != prevHash {
			return fmt.Errorf("audit ledger tamper detected at entry %d: prev_hash mismatch", e.ID)
		}
		if chainHash(e) != e.Hash {
			return fmt.Errorf("audit ledger tamper detected at entry %d: hash mismatch", e.ID)
		}
		prevHash = e.Hash
	}
	return nil
}
