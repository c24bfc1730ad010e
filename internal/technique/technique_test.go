package technique

import "testing"

func TestMapAlertKeywordHit(t *testing.T) {
	m := New()
	// Matches the anomaly detector's actual AI-domain reason text
	// verbatim (anomaly.Detect's "Shadow AI Service Accessed: <host>").
	tq, ok := m.MapAlert("", "Shadow AI Service Accessed: chatgpt.com")
	if !ok {
		t.Fatalf("expected a mapping")
	}
	if tq.Tactic != "Exfiltration" || tq.TechniqueID != "T1567" {
		t.Errorf("got %+v", tq)
	}
}

func TestMapAlertFirstKeywordWins(t *testing.T) {
	m := New()
	// Contains both "dlp violation" and "shadow ai"; dlp violation is
	// earlier in the table and must win.
	tq, ok := m.MapAlert("dlp violation", "also looks like shadow ai behavior")
	if !ok || tq.TechniqueID != "T1048" {
		t.Errorf("got (%+v, %v), want T1048", tq, ok)
	}
}

func TestMapAlertAnomalyFallback(t *testing.T) {
	m := New()
	tq, ok := m.MapAlert("unusual port rule", "anomalous outbound connection detected")
	if !ok || tq.TechniqueID != "T1071" {
		t.Errorf("got (%+v, %v), want T1071 fallback", tq, ok)
	}
}

func TestMapAlertNoMatch(t *testing.T) {
	m := New()
	if tq, ok := m.MapAlert("", "totally unrelated text"); ok {
		t.Errorf("expected no mapping, got %+v", tq)
	}
}
