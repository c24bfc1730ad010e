// Package model defines the shared data types that flow through the
// shadowguard analytics pipeline: flow events, graph nodes/edges,
// alerts, quarantine records, and audit entries.
//
// Enums are stable strings, never integer ordinals, so that they
// survive serialization across the broker boundary unchanged.
package model

import "time"

// Protocol identifies the transport or application protocol of a flow.
type Protocol string

const (
	ProtocolTCP   Protocol = "TCP"
	ProtocolUDP   Protocol = "UDP"
	ProtocolHTTP  Protocol = "HTTP"
	ProtocolHTTPS Protocol = "HTTPS"
	ProtocolGRPC  Protocol = "GRPC"
	ProtocolDNS   Protocol = "DNS"
)

// Recognized metadata keys on a FlowEvent. DPI-derived fields live
// here rather than as dedicated struct fields because only a subset
// is ever populated for a given flow.
const (
	MetaHost      = "host"
	MetaSNI       = "sni"
	MetaDNSQuery  = "dns_query"
	MetaUserAgent = "user_agent"
	MetaJA3Hash   = "ja3_hash"
)

// DLPMatch is one redacted sensitive-data finding attached to a FlowEvent.
type DLPMatch struct {
	RuleName        string `json:"rule_name"`
	Severity        string `json:"severity"`
	RedactedSnippet string `json:"redacted_snippet"`
}

// FlowEvent is the input unit ingested from telemetry.traffic.
// Flow events are immutable once admitted to the pipeline: enrichment
// fields are filled by the pipeline before the event is handed to
// downstream stages, never mutated afterward by those stages.
type FlowEvent struct {
	Timestamp time.Time `json:"timestamp"`

	SourceIP        string   `json:"source_ip"`
	SourcePort      int      `json:"source_port"`
	DestinationIP   string   `json:"destination_ip"`
	DestinationPort int      `json:"destination_port"`
	Protocol        Protocol `json:"protocol"`

	BytesSent     int64   `json:"bytes_sent"`
	BytesReceived int64   `json:"bytes_received"`
	DurationMS    float64 `json:"duration_ms"`

	// PayloadSample is an optional text sample the DLP scanner runs against.
	PayloadSample string `json:"payload_sample,omitempty"`

	// Metadata carries DPI-derived hints; recognized keys are the Meta* constants.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Enrichment, filled by the Identity Resolver during pipeline step 3.
	UserID     string `json:"user_id,omitempty"`
	UserName   string `json:"user_name,omitempty"`
	Department string `json:"department,omitempty"`

	// QuarantineStatus is non-empty ("active"/"released") when the
	// source is currently or was previously quarantined.
	QuarantineStatus string `json:"quarantine_status,omitempty"`

	// DLP results, filled by pipeline step 5.
	DLPViolation bool       `json:"dlp_violation,omitempty"`
	DLPMatches   []DLPMatch `json:"dlp_matches,omitempty"`
}

// Host returns the DPI-derived hostname for this event, preferring an
// explicit host over SNI over a DNS query name, matching the original
// analyzer's lookup order.
func (e *FlowEvent) Host() string {
	if e == nil || e.Metadata == nil {
		return ""
	}
	if h := e.Metadata[MetaHost]; h != "" {
		return h
	}
	if h := e.Metadata[MetaSNI]; h != "" {
		return h
	}
	return e.Metadata[MetaDNSQuery]
}

// NodeType classifies a graph node. The lattice external -> shadow is
// the only legal upgrade; internal and infra never change.
type NodeType string

const (
	NodeInternal NodeType = "internal"
	NodeExternal NodeType = "external"
	NodeShadow   NodeType = "shadow"
	NodeInfra    NodeType = "infra"
)

// GraphNode is a host or IP participating in observed traffic.
type GraphNode struct {
	ID       string          `json:"id"`
	Labels   map[string]bool `json:"-"`
	Label    string          `json:"label"`
	Type     NodeType        `json:"type"`
	LastSeen time.Time       `json:"last_seen"`
}

// LabelList returns the node's label set as a sorted-free slice for snapshots.
func (n *GraphNode) LabelList() []string {
	out := make([]string, 0, len(n.Labels))
	for l := range n.Labels {
		out = append(out, l)
	}
	return out
}

// GraphEdge is a directed relation between two nodes.
type GraphEdge struct {
	Source        string            `json:"source"`
	Destination   string            `json:"destination"`
	Relation      string            `json:"relation"`
	Protocol      Protocol          `json:"protocol"`
	DestPort      int               `json:"dst_port"`
	ByteCount     int64             `json:"byte_count"`
	LastSeen      time.Time         `json:"last_seen"`
	OriginalDestIP string           `json:"original_dest_ip,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
}

// RelationTalksTo is the only relation flow traffic produces today.
const RelationTalksTo = "TALKS_TO"

// Severity grades an alert's urgency.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Technique is an optional MITRE-style tactic/technique mapping on an alert.
type Technique struct {
	Tactic        string `json:"tactic"`
	TechniqueID   string `json:"technique_id"`
	TechniqueName string `json:"technique_name"`
}

// Alert is an immutable record produced by the Anomaly Detector (or
// injected directly, e.g. by an external ML classifier).
type Alert struct {
	ID          string     `json:"id"`
	UUID        string     `json:"uuid"`
	Severity    Severity   `json:"severity"`
	Description string     `json:"description"`
	Source      string     `json:"source"`
	Target      string     `json:"target"`
	Timestamp   time.Time  `json:"timestamp"`
	Technique   *Technique `json:"technique,omitempty"`
	DLPMatches  []DLPMatch `json:"dlp_matches,omitempty"`

	// MLClassification is set by an external classifier collaborator;
	// SOAR playbook conditions may match on it (e.g. "shadow_ai").
	MLClassification string `json:"ml_classification,omitempty"`
}

// QuarantineStatus enumerates a quarantine record's lifecycle state.
type QuarantineStatus string

const (
	QuarantineActive   QuarantineStatus = "active"
	QuarantineReleased QuarantineStatus = "released"
)

// QuarantineRecord tracks one isolation decision for an internal ip.
// Once created, Status only ever transitions active -> released; a
// re-quarantine creates a brand new record rather than reviving this one.
type QuarantineRecord struct {
	IP            string           `json:"ip"`
	Reason        string           `json:"reason"`
	ThreatScore   float64          `json:"threat_score,omitempty"`
	QuarantinedAt time.Time        `json:"quarantined_at"`
	AutoTriggered bool             `json:"auto_triggered"`
	Status        QuarantineStatus `json:"status"`
	ReleasedAt    time.Time        `json:"released_at,omitempty"`
	ReleasedBy    string           `json:"released_by,omitempty"`
}

// AuditEntry is one append-only record in the audit ledger.
type AuditEntry struct {
	ID        uint64            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Actor     string            `json:"actor"`
	Action    string            `json:"action"`
	Resource  string            `json:"resource"`
	Details   map[string]string `json:"details,omitempty"`

	// Hash and PrevHash form a tamper-evident chain: Hash covers the
	// entry's own fields plus PrevHash, so editing any historical line
	// breaks every hash after it on replay.
	Hash     string `json:"hash"`
	PrevHash string `json:"prev_hash,omitempty"`
}

// Standard audit actions emitted by the quarantine registry.
const (
	ActionQuarantineNode = "QUARANTINE_NODE"
	ActionReleaseNode    = "RELEASE_NODE"
)
