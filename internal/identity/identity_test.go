package identity

import "testing"

func TestResolveKnownEmployee(t *testing.T) {
	r := New()
	p, ok := r.Resolve("192.168.1.13")
	if !ok {
		t.Fatalf("expected a profile for 192.168.1.13")
	}
	if p.Department != "Data Science" || p.RiskTier != RiskElevated {
		t.Errorf("unexpected profile: %+v", p)
	}
}

func TestResolveUnknownEmployee(t *testing.T) {
	r := New()
	if _, ok := r.Resolve("203.0.113.9"); ok {
		t.Errorf("expected no profile for an external ip")
	}
}

func TestResolveInfra(t *testing.T) {
	r := New()
	label, ok := r.ResolveInfra("192.168.1.200")
	if !ok || label != "Database Server" {
		t.Errorf("got (%q, %v), want (Database Server, true)", label, ok)
	}
}

func TestDepartmentForIPPrefersSubnet(t *testing.T) {
	r := New()
	// .10 is in the Engineering employee table AND the 192.168.1.0/26 subnet.
	dept, ok := r.DepartmentForIP("192.168.1.10")
	if !ok || dept != "Engineering" {
		t.Errorf("got (%q, %v), want (Engineering, true)", dept, ok)
	}
	// .13 (Data Science employee) falls in the 192.168.1.128/26 subnet,
	// which is also Data Science, exercising the subnet-first path.
	dept, ok = r.DepartmentForIP("192.168.1.13")
	if !ok || dept != "Data Science" {
		t.Errorf("got (%q, %v), want (Data Science, true)", dept, ok)
	}
}

func TestDepartmentForIPFallsBackToEmployee(t *testing.T) {
	r := New()
	// 192.168.2.0/24 isn't covered by any subnet entry; an employee at
	// that address (hypothetically) should still resolve via fallback.
	r.LoadEmployees(map[string]Profile{
		"192.168.2.5": {Department: "Legal"},
	})
	dept, ok := r.DepartmentForIP("192.168.2.5")
	if !ok || dept != "Legal" {
		t.Errorf("got (%q, %v), want (Legal, true)", dept, ok)
	}
}

func TestDepartmentForIPUnknown(t *testing.T) {
	r := New()
	if _, ok := r.DepartmentForIP("203.0.113.9"); ok {
		t.Errorf("expected no department for an unknown external ip")
	}
}
