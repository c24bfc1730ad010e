package classifier

import "testing"

func TestIsAIDomainExactAndSuffix(t *testing.T) {
	cases := []struct {
		host string
		want bool
	}{
		{"openai.com", true},
		{"cdn.openai.com", true},
		{"x.y.openai.com", true},
		{"chatgpt.com", true},
		{"example.com", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsAIDomain(tc.host); got != tc.want {
			t.Errorf("IsAIDomain(%q) = %v, want %v", tc.host, got, tc.want)
		}
	}
}

func TestIsInternal(t *testing.T) {
	cases := []struct {
		ip   string
		want bool
	}{
		{"192.168.1.10", true},
		{"10.1.2.3", true},
		{"172.20.0.1", true},
		{"8.8.8.8", false},
		{"not-an-ip", false},
	}
	for _, tc := range cases {
		if got := IsInternal(tc.ip); got != tc.want {
			t.Errorf("IsInternal(%q) = %v, want %v", tc.ip, got, tc.want)
		}
	}
}

func TestIsCorporateTrafficDefaults(t *testing.T) {
	c := New()
	if !c.IsCorporateTraffic("192.168.1.5", nil) {
		t.Errorf("private ip should always be corporate")
	}
	if c.IsCorporateTraffic("8.8.8.8", map[string]string{"host": "netflix.com"}) {
		t.Errorf("personal domain should never be corporate")
	}
	if !c.IsCorporateTraffic("8.8.8.8", map[string]string{"host": "github.com"}) {
		t.Errorf("sanctioned SaaS domain should be corporate")
	}
	if !c.IsCorporateTraffic("8.8.8.8", map[string]string{"host": "unknown-vendor.example"}) {
		t.Errorf("unknown external host should default to monitor (corporate=true)")
	}
}

func TestIsCorporateTrafficStrictPrivacyDefault(t *testing.T) {
	c := &Classifier{StrictPrivacyDefault: true}
	if c.IsCorporateTraffic("8.8.8.8", map[string]string{"host": "unknown-vendor.example"}) {
		t.Errorf("strict privacy default should drop unknown external hosts")
	}
	if !c.IsCorporateTraffic("192.168.1.5", nil) {
		t.Errorf("strict privacy default must not affect private ips")
	}
}

func TestShouldCapture(t *testing.T) {
	c := New()
	if !c.ShouldCapture(false, "8.8.8.8", map[string]string{"host": "netflix.com"}) {
		t.Errorf("privacy mode off should capture everything")
	}
	if c.ShouldCapture(true, "8.8.8.8", map[string]string{"host": "netflix.com"}) {
		t.Errorf("privacy mode on should drop personal traffic")
	}
	if !c.ShouldCapture(true, "192.168.1.5", nil) {
		t.Errorf("privacy mode on should still capture internal traffic")
	}
}
