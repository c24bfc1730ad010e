package quarantine

import (
	"errors"
	"testing"

	"github.com/octoreflex/shadowguard/internal/model"
)

type fakeLedger struct {
	calls   []string
	failing bool
}

func (f *fakeLedger) Append(actor, action, resource string, details map[string]string) (model.AuditEntry, error) {
	if f.failing {
		return model.AuditEntry{}, errors.New("disk full")
	}
	f.calls = append(f.calls, action+":"+resource)
	return model.AuditEntry{Action: action, Resource: resource}, nil
}

func TestQuarantineIsIdempotent(t *testing.T) {
	l := &fakeLedger{}
	r, err := Open("", l, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	st1, err := r.Quarantine("192.168.1.14", "policy violation", 0, false, "operator")
	if err != nil || st1 != StatusCreated {
		t.Fatalf("first quarantine: (%v, %v)", st1, err)
	}
	st2, err := r.Quarantine("192.168.1.14", "policy violation", 0, false, "operator")
	if err != nil || st2 != StatusAlreadyQuarantined {
		t.Fatalf("second quarantine: (%v, %v)", st2, err)
	}

	records := r.List()
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	quarantineCalls := 0
	for _, c := range l.calls {
		if c == model.ActionQuarantineNode+":192.168.1.14" {
			quarantineCalls++
		}
	}
	if quarantineCalls != 1 {
		t.Errorf("got %d QUARANTINE_NODE audit entries, want exactly 1", quarantineCalls)
	}
}

func TestQuarantineReleaseQuarantineYieldsTwoRecordsAndThreeAuditEntries(t *testing.T) {
	l := &fakeLedger{}
	r, err := Open("", l, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := r.Quarantine("10.0.0.5", "r1", 0, false, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Release("10.0.0.5", "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Quarantine("10.0.0.5", "r2", 0, false, "a"); err != nil {
		t.Fatal(err)
	}

	records := r.List()
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 (one released, one active)", len(records))
	}
	activeCount, releasedCount := 0, 0
	for _, rec := range records {
		switch rec.Status {
		case model.QuarantineActive:
			activeCount++
		case model.QuarantineReleased:
			releasedCount++
		}
	}
	if activeCount != 1 || releasedCount != 1 {
		t.Errorf("got active=%d released=%d, want 1 and 1", activeCount, releasedCount)
	}
	if len(l.calls) != 3 {
		t.Errorf("got %d audit calls, want 3", len(l.calls))
	}
}

func TestReleaseNotFound(t *testing.T) {
	r, err := Open("", &fakeLedger{}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	st, err := r.Release("1.2.3.4", "a")
	if err != nil || st != StatusNotFound {
		t.Errorf("got (%v, %v), want (not_found, nil)", st, err)
	}
}

func TestReleaseAlreadyReleased(t *testing.T) {
	r, err := Open("", &fakeLedger{}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	r.Quarantine("1.2.3.4", "x", 0, false, "a")
	r.Release("1.2.3.4", "a")
	st, err := r.Release("1.2.3.4", "a")
	if err != nil || st != StatusAlreadyReleased {
		t.Errorf("got (%v, %v), want (already_released, nil)", st, err)
	}
}

func TestQuarantineRejectedOnAuditFailure(t *testing.T) {
	l := &fakeLedger{failing: true}
	r, err := Open("", l, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := r.Quarantine("9.9.9.9", "x", 0, false, "a"); err == nil {
		t.Fatalf("expected an error when the audit write fails")
	}
	if r.IsQuarantined("9.9.9.9") {
		t.Errorf("mutation must not be visible when the audit write failed")
	}
}

func TestAutoQuarantineIfCriticalThreshold(t *testing.T) {
	r, err := Open("", &fakeLedger{}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	created, err := r.AutoQuarantineIfCritical("5.5.5.5", 0.5, "low score")
	if err != nil || created {
		t.Errorf("score below threshold should not create a record: (%v, %v)", created, err)
	}
	created, err = r.AutoQuarantineIfCritical("5.5.5.5", 0.95, "critical score")
	if err != nil || !created {
		t.Errorf("score at/above threshold should create a record: (%v, %v)", created, err)
	}
	created, err = r.AutoQuarantineIfCritical("5.5.5.5", 0.99, "already active")
	if err != nil || created {
		t.Errorf("already-active ip should not create a second record: (%v, %v)", created, err)
	}
}

func TestIsQuarantined(t *testing.T) {
	r, err := Open("", &fakeLedger{}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r.IsQuarantined("1.1.1.1") {
		t.Errorf("unknown ip should not be quarantined")
	}
	r.Quarantine("1.1.1.1", "x", 0, false, "a")
	if !r.IsQuarantined("1.1.1.1") {
		t.Errorf("expected 1.1.1.1 to be quarantined")
	}
	r.Release("1.1.1.1", "a")
	if r.IsQuarantined("1.1.1.1") {
		t.Errorf("released ip should no longer be quarantined")
	}
}
