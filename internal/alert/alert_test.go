package alert

import (
	"fmt"
	"testing"

	"github.com/octoreflex/shadowguard/internal/model"
)

func TestAddAndList(t *testing.T) {
	s := New()
	s.Add(model.Alert{ID: "a1", Severity: model.SeverityHigh})
	s.Add(model.Alert{ID: "a2", Severity: model.SeverityLow})

	list := s.List()
	if len(list) != 2 || list[0].ID != "a1" || list[1].ID != "a2" {
		t.Errorf("got %+v", list)
	}
}

func TestFIFOEviction(t *testing.T) {
	s := New()
	for i := 0; i < Capacity+10; i++ {
		s.Add(model.Alert{ID: fmt.Sprintf("a%d", i)})
	}
	if s.Len() != Capacity {
		t.Fatalf("Len() = %d, want %d", s.Len(), Capacity)
	}
	list := s.List()
	if list[0].ID != "a10" {
		t.Errorf("oldest surviving alert = %q, want a10 (first 10 evicted)", list[0].ID)
	}
	if list[len(list)-1].ID != fmt.Sprintf("a%d", Capacity+9) {
		t.Errorf("newest alert = %q", list[len(list)-1].ID)
	}
}

func TestByID(t *testing.T) {
	s := New()
	s.Add(model.Alert{ID: "a1"})
	if _, ok := s.ByID("missing"); ok {
		t.Errorf("expected missing id to not be found")
	}
	if got, ok := s.ByID("a1"); !ok || got.ID != "a1" {
		t.Errorf("got (%+v, %v)", got, ok)
	}
}

func TestByIDAfterEviction(t *testing.T) {
	s := New()
	s.Add(model.Alert{ID: "a0"})
	for i := 1; i <= Capacity; i++ {
		s.Add(model.Alert{ID: fmt.Sprintf("a%d", i)})
	}
	if _, ok := s.ByID("a0"); ok {
		t.Errorf("evicted alert a0 should no longer be findable by id")
	}
}

func TestNewUUIDUnique(t *testing.T) {
	a := NewUUID()
	b := NewUUID()
	if a == b {
		t.Errorf("expected distinct UUIDs, got %q twice", a)
	}
}
