package anomaly

import (
	"strings"
	"testing"

	"github.com/octoreflex/shadowguard/internal/model"
)

func TestDetectShadowAI(t *testing.T) {
	d := New()
	ev := &model.FlowEvent{
		SourceIP: "192.168.1.10", DestinationIP: "1.2.3.4", DestinationPort: 443,
		Protocol: model.ProtocolHTTPS,
		Metadata: map[string]string{model.MetaHost: "chatgpt.com"},
	}
	anomalous, reason := d.Detect(ev)
	if !anomalous || !strings.Contains(reason, "Shadow AI Service Accessed: chatgpt.com") {
		t.Errorf("got (%v, %q)", anomalous, reason)
	}
}

func TestDetectUnusualPort(t *testing.T) {
	d := New()
	ev := &model.FlowEvent{
		SourceIP: "10.0.0.1", DestinationIP: "45.33.22.11", DestinationPort: 6667,
		Protocol: model.ProtocolTCP,
	}
	anomalous, reason := d.Detect(ev)
	want := "Outbound traffic to 45.33.22.11 on unusual port 6667"
	if !anomalous || reason != want {
		t.Errorf("got (%v, %q), want (true, %q)", anomalous, reason, want)
	}
}

func TestDetectDNSTunnel(t *testing.T) {
	d := New()
	ev := &model.FlowEvent{
		SourceIP: "192.168.1.11", DestinationIP: "8.8.8.8", DestinationPort: 53,
		Protocol: model.ProtocolDNS, BytesSent: 1200,
	}
	anomalous, reason := d.Detect(ev)
	if !anomalous || reason != "Potential DNS Tunneling (Large DNS Payload)" {
		t.Errorf("got (%v, %q)", anomalous, reason)
	}
}

func TestDetectNormalTraffic(t *testing.T) {
	d := New()
	ev := &model.FlowEvent{
		SourceIP: "192.168.1.10", DestinationIP: "192.168.1.100", DestinationPort: 445,
		Protocol: model.ProtocolTCP,
	}
	anomalous, reason := d.Detect(ev)
	if anomalous || reason != "" {
		t.Errorf("got (%v, %q), want (false, \"\")", anomalous, reason)
	}
}

func TestDetectRuleOrderAIHostWinsOverPort(t *testing.T) {
	d := New()
	// Unusual port AND a known AI host: the AI-domain rule fires first.
	ev := &model.FlowEvent{
		SourceIP: "192.168.1.10", DestinationIP: "1.2.3.4", DestinationPort: 9999,
		Protocol: model.ProtocolHTTPS,
		Metadata: map[string]string{model.MetaHost: "chatgpt.com"},
	}
	_, reason := d.Detect(ev)
	if !strings.HasPrefix(reason, "Shadow AI Service Accessed") {
		t.Errorf("reason = %q, want the AI-domain rule to win", reason)
	}
}
