package audit

import (
	"path/filepath"
	"testing"
)

func TestAppendAndGetLogs(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(filepath.Join(dir, "audit.jsonl"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	if _, err := l.Append("automation", ActionQuarantineNode, "192.168.1.14", map[string]string{"reason": "critical alert"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := l.Append("operator", ActionReleaseNode, "192.168.1.14", nil); err != nil {
		t.Fatalf("Append: %v", err)
	}

	logs := l.GetLogs(10)
	if len(logs) != 2 {
		t.Fatalf("got %d entries, want 2", len(logs))
	}
	// Newest first.
	if logs[0].Action != ActionReleaseNode || logs[1].Action != ActionQuarantineNode {
		t.Errorf("got actions %q, %q in that order", logs[0].Action, logs[1].Action)
	}
}

func TestGetLogsLimit(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(filepath.Join(dir, "audit.jsonl"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	for i := 0; i < 5; i++ {
		if _, err := l.Append("system", "NOOP", "x", nil); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if got := l.GetLogs(2); len(got) != 2 {
		t.Errorf("got %d entries, want 2", len(got))
	}
	if got := l.GetLogs(0); len(got) != 5 {
		t.Errorf("limit<=0 should return everything, got %d", len(got))
	}
}

func TestReplayAfterRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")

	l1, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	l1.Append("automation", ActionQuarantineNode, "10.0.0.5", nil)
	l1.Append("operator", ActionReleaseNode, "10.0.0.5", map[string]string{"by": "alice"})
	if err := l1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	l2, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()

	replayed := l2.GetLogs(0)
	if len(replayed) != 2 {
		t.Fatalf("got %d replayed entries, want 2", len(replayed))
	}
	if replayed[0].Action != ActionReleaseNode || replayed[1].Action != ActionQuarantineNode {
		t.Errorf("replay order mismatch: %+v", replayed)
	}
	if err := l2.Verify(); err != nil {
		t.Errorf("Verify() after replay: %v", err)
	}
}

func TestVerifyDetectsTamper(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(filepath.Join(dir, "audit.jsonl"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	l.Append("automation", ActionQuarantineNode, "10.0.0.5", nil)
	l.Append("operator", ActionReleaseNode, "10.0.0.5", nil)

	// Tamper with a historical entry directly.
	l.entries[1].Resource = "tampered"

	if err := l.Verify(); err == nil {
		t.Errorf("expected Verify() to detect the tampered entry")
	}
}
