// Package anomaly implements the Anomaly Detector: a deterministic,
// stateless, first-match-wins rule set over a single flow event.
//
// Grounded on original_source/services/analyzer/detector.py's detect()
// (exact rule order: AI-domain host check, unusual-port outbound, DNS
// bytes_sent>500), with the internal-network check upgraded from the
// original's string-prefix heuristic to a real RFC1918 check
// (classifier.IsInternal). The package shape — a stateless struct with
// a Detect(event) (bool, string) method — mirrors
// octoreflex/internal/anomaly/engine.go's Engine.Score, though none of
// that file's statistical scoring survives here: this detector is a
// fixed ordered-rule function, not a pluggable scorer.
package anomaly

import (
	"fmt"

	"github.com/octoreflex/shadowguard/internal/classifier"
	"github.com/octoreflex/shadowguard/internal/model"
)

// standardPorts are the outbound ports that do not trigger the
// unusual-port rule.
var standardPorts = map[int]bool{80: true, 443: true, 8080: true, 53: true}

// dnsTunnelThreshold is the bytes_sent size above which a DNS flow is
// flagged as a potential tunnel.
const dnsTunnelThreshold = 500

// Detector evaluates flow events against a fixed, ordered rule list.
type Detector struct{}

// New returns a Detector.
func New() *Detector {
	return &Detector{}
}

// Detect returns (true, reason) for the first rule that fires, in this
// order: known AI-service host, unusual outbound port, DNS tunneling.
// Returns (false, "") when no rule matches.
func (d *Detector) Detect(event *model.FlowEvent) (bool, string) {
	if host := event.Host(); host != "" && classifier.IsAIDomain(host) {
		return true, fmt.Sprintf("Shadow AI Service Accessed: %s", host)
	}

	if classifier.IsInternal(event.SourceIP) && !classifier.IsInternal(event.DestinationIP) {
		if !standardPorts[event.DestinationPort] {
			return true, fmt.Sprintf("Outbound traffic to %s on unusual port %d", event.DestinationIP, event.DestinationPort)
		}
	}

	if event.Protocol == model.ProtocolDNS && event.BytesSent > dnsTunnelThreshold {
		return true, "Potential DNS Tunneling (Large DNS Payload)"
	}

	return false, ""
}
