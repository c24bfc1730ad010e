// Package soar implements the SOAR Engine: a small set of playbooks
// that match alerts by predicate and trigger actions, decoupled from
// the quarantine registry through an Enforcer capability.
//
// Grounded on original_source/services/intelligence/soar.py's
// SoarPlaybook/SoarEngine (condition evaluation: equality, list
// membership, "*"-wildcard), reimplemented with
// github.com/gobwas/glob compiling the wildcard conditions instead of
// hand-rolled wildcard-to-regex translation. The Enforcer interface
// replaces soar.py's direct import of defense._quarantined_nodes,
// grounded on octoreflex/internal/operator/server.go's StateRegistry —
// a small capability interface handed to a subsystem at construction
// instead of a back-reference into another package (spec.md §9).
package soar

import (
	"fmt"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"go.uber.org/zap"
)

// ActionTimeout bounds how long a single playbook action may run
// before it is logged as failed (spec.md §5).
const ActionTimeout = 1 * time.Second

// Enforcer is the capability the SOAR engine uses to carry out
// actions. Implemented by internal/quarantine.Registry in production.
type Enforcer interface {
	Quarantine(ip, reason string, score float64, auto bool, actor string) (status string, err error)
}

// Alert is the generic key/value view of an alert a playbook condition
// is evaluated against. Built by the caller (internal/pipeline) from a
// model.Alert plus any classifier metadata.
type Alert map[string]any

// Condition maps an alert field name to an expected value: a plain
// value for equality, a slice for membership, or a string containing
// "*" for a case-insensitive glob.
type Condition map[string]any

// Playbook is one declarative alert-predicate -> action rule.
type Playbook struct {
	ID      string
	Name    string
	Condition Condition
	Action  string
	Enabled bool

	compiled map[string]glob.Glob // lazily built per string-glob condition value
}

// Matches reports whether alert satisfies every key in the playbook's
// condition, per spec.md §4.K's equality/membership/wildcard rules.
func (p *Playbook) Matches(alert Alert) bool {
	if !p.Enabled {
		return false
	}
	for key, expected := range p.Condition {
		actual, ok := alert[key]
		if !ok {
			return false
		}
		if !matchesValue(p, key, expected, actual) {
			return false
		}
	}
	return true
}

func matchesValue(p *Playbook, key string, expected, actual any) bool {
	switch want := expected.(type) {
	case []string:
		for _, v := range want {
			if v == fmt.Sprint(actual) {
				return true
			}
		}
		return false
	case string:
		if !containsWildcard(want) {
			return want == fmt.Sprint(actual)
		}
		g := p.globFor(key, want)
		if g == nil {
			return false
		}
		return g.Match(fmt.Sprint(actual))
	default:
		return fmt.Sprint(expected) == fmt.Sprint(actual)
	}
}

func containsWildcard(s string) bool {
	for _, r := range s {
		if r == '*' {
			return true
		}
	}
	return false
}

// globFor compiles (and caches) a case-insensitive glob for a
// condition value, matching the original's re.IGNORECASE wildcard match.
func (p *Playbook) globFor(key, pattern string) glob.Glob {
	if p.compiled == nil {
		p.compiled = make(map[string]glob.Glob)
	}
	if g, ok := p.compiled[key]; ok {
		return g
	}
	g, err := glob.Compile(lower(pattern))
	if err != nil {
		return nil
	}
	p.compiled[key] = g
	return g
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// ActionResult records one playbook's outcome for a single alert.
type ActionResult struct {
	PlaybookID   string
	PlaybookName string
	Action       string
	Target       string
	Success      bool
	Err          error
}

// Engine evaluates playbooks against alerts and drives the Enforcer.
type Engine struct {
	mu        sync.RWMutex
	playbooks []*Playbook
	enforcer  Enforcer
	log       *zap.Logger
	actions   *ActionBucket
}

// defaultActionBucketCapacity / Period bound how many enforcement
// actions the engine will issue before throttling, guarding against a
// cascade of auto-quarantines from a single alert storm.
const (
	defaultActionBucketCapacity = 20
	defaultActionBucketPeriod   = 60 * time.Second
)

// New returns an Engine seeded with the two default playbooks
// (critical severity, or high-severity shadow-AI classification) from
// spec.md §4.K.
func New(enforcer Enforcer, log *zap.Logger) *Engine {
	return &Engine{
		actions: NewActionBucket(defaultActionBucketCapacity, defaultActionBucketPeriod),
		playbooks: []*Playbook{
			{
				ID:        "soar-pb-001",
				Name:      "Auto-Quarantine Critical Threats",
				Condition: Condition{"severity": "CRITICAL"},
				Action:    "quarantine",
				Enabled:   true,
			},
			{
				ID:        "soar-pb-002",
				Name:      "Block Active Shadow AI Anomalies",
				Condition: Condition{"severity": "HIGH", "ml_classification": "shadow_ai"},
				Action:    "quarantine",
				Enabled:   true,
			},
		},
		enforcer: enforcer,
		log:      log,
	}
}

// Close stops the engine's internal action-rate-limiting bucket.
func (e *Engine) Close() {
	e.actions.Close()
}

// AddPlaybook registers an additional playbook, appended after the
// built-ins, evaluated in declaration order.
func (e *Engine) AddPlaybook(p *Playbook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playbooks = append(e.playbooks, p)
}

// Evaluate iterates enabled playbooks in declaration order and
// executes every matched action. A failing action is logged and does
// not prevent other playbooks from evaluating (spec.md §7 kind 4).
func (e *Engine) Evaluate(alert Alert) []ActionResult {
	e.mu.RLock()
	playbooks := make([]*Playbook, len(e.playbooks))
	copy(playbooks, e.playbooks)
	e.mu.RUnlock()

	var results []ActionResult
	for _, p := range playbooks {
		if !p.Matches(alert) {
			continue
		}
		result := e.execute(p, alert)
		results = append(results, result)
		if e.log != nil {
			if result.Success {
				e.log.Warn("SOAR playbook executed",
					zap.String("playbook", p.Name), zap.String("action", p.Action), zap.String("target", result.Target))
			} else {
				e.log.Error("SOAR playbook action failed",
					zap.String("playbook", p.Name), zap.String("action", p.Action), zap.Error(result.Err))
			}
		}
	}
	return results
}

func (e *Engine) execute(p *Playbook, alert Alert) ActionResult {
	target := fmt.Sprint(alert["source"])
	result := ActionResult{PlaybookID: p.ID, PlaybookName: p.Name, Action: p.Action, Target: target}

	if !e.actions.Allow() {
		result.Err = fmt.Errorf("soar: action rate limit exceeded, skipping %q for %s", p.Action, target)
		return result
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		switch p.Action {
		case "quarantine":
			if target == "" || target == "<nil>" {
				result.Err = fmt.Errorf("soar: no source ip on alert")
				return
			}
			_, err := e.enforcer.Quarantine(target, "SOAR Auto-Quarantine Playbook Activated", 1.0, true, "soar-engine")
			result.Err = err
		default:
			result.Err = fmt.Errorf("soar: unknown action %q", p.Action)
		}
	}()

	select {
	case <-done:
	case <-time.After(ActionTimeout):
		result.Err = fmt.Errorf("soar: action %q on playbook %q exceeded %s", p.Action, p.Name, ActionTimeout)
		return result
	}
	result.Success = result.Err == nil
	return result
}
