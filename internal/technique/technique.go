// Package technique implements the Technique Mapper: a static
// keyword->(tactic, technique_id, technique_name) table mapping alert
// text onto a standard adversary-technique taxonomy.
//
// Grounded on original_source/pkg/data/mitre_mapping.py's _MAPPING
// table and map_alert substring-search algorithm, carried over with
// the same nine keyword entries and the same anomaly/anomalous
// fallback.
package technique

import (
	"strings"

	"github.com/octoreflex/shadowguard/internal/model"
)

// entry is one keyword -> technique mapping. Order matters: the table
// is searched top to bottom and the first substring hit wins.
type entry struct {
	keyword   string
	technique model.Technique
}

var mapping = []entry{
	{"dlp violation", model.Technique{Tactic: "Exfiltration", TechniqueID: "T1048", TechniqueName: "Exfiltration Over Alternative Protocol"}},
	{"shadow ai", model.Technique{Tactic: "Exfiltration", TechniqueID: "T1567", TechniqueName: "Exfiltration Over Web Service"}},
	{"significant data volume", model.Technique{Tactic: "Exfiltration", TechniqueID: "T1041", TechniqueName: "Exfiltration Over C2 Channel"}},
	{"graph centrality", model.Technique{Tactic: "Discovery", TechniqueID: "T1046", TechniqueName: "Network Service Discovery"}},
	{"lateral movement", model.Technique{Tactic: "Lateral Movement", TechniqueID: "T1021", TechniqueName: "Remote Services"}},
	{"beaconing", model.Technique{Tactic: "Command and Control", TechniqueID: "T1071", TechniqueName: "Application Layer Protocol"}},
	{"suspicious traffic", model.Technique{Tactic: "Command and Control", TechniqueID: "T1568", TechniqueName: "Dynamic Resolution"}},
	{"brute force", model.Technique{Tactic: "Credential Access", TechniqueID: "T1110", TechniqueName: "Brute Force"}},
	{"spoofing", model.Technique{Tactic: "Credential Access", TechniqueID: "T1556", TechniqueName: "Modify Authentication Process"}},
}

// fallback is returned when no keyword matches but the text still
// mentions an anomaly, matching the original's "anomaly"/"anomalous" catch-all.
var fallback = model.Technique{Tactic: "Command and Control", TechniqueID: "T1071", TechniqueName: "Application Layer Protocol"}

// Mapper maps alert rule names/descriptions to MITRE-style techniques.
type Mapper struct{}

// New returns a Mapper over the built-in keyword table.
func New() *Mapper {
	return &Mapper{}
}

// MapAlert lowercases ruleName+description and returns the first
// keyword entry whose text appears as a substring. If nothing matches
// but the text contains "anomaly" or "anomalous", the Command and
// Control / T1071 fallback is returned. Otherwise returns (nil, false).
func (m *Mapper) MapAlert(ruleName, description string) (*model.Technique, bool) {
	text := strings.ToLower(ruleName + " " + description)
	for _, e := range mapping {
		if strings.Contains(text, e.keyword) {
			t := e.technique
			return &t, true
		}
	}
	if strings.Contains(text, "anomaly") || strings.Contains(text, "anomalous") {
		t := fallback
		return &t, true
	}
	return nil, false
}
