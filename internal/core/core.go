// Package core wires every shadowguard component into a single
// constructor-injected services bundle, the way
// octoreflex/cmd/octoreflex/main.go builds its subsystems (storage,
// budget, escalation, gossip) before handing them to worker
// goroutines — except here the wiring lives in its own package so
// internal/pipeline and cmd/shadowguard both depend on one assembled
// Services value instead of duplicating construction order.
package core

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/octoreflex/shadowguard/internal/alert"
	"github.com/octoreflex/shadowguard/internal/anomaly"
	"github.com/octoreflex/shadowguard/internal/audit"
	"github.com/octoreflex/shadowguard/internal/broker"
	"github.com/octoreflex/shadowguard/internal/classifier"
	"github.com/octoreflex/shadowguard/internal/config"
	"github.com/octoreflex/shadowguard/internal/dlp"
	"github.com/octoreflex/shadowguard/internal/graph"
	"github.com/octoreflex/shadowguard/internal/identity"
	"github.com/octoreflex/shadowguard/internal/metrics"
	"github.com/octoreflex/shadowguard/internal/quarantine"
	"github.com/octoreflex/shadowguard/internal/soar"
	"github.com/octoreflex/shadowguard/internal/technique"
)

// Services bundles every component the Analyzer Pipeline and the
// external control-plane surface (§6) depend on.
type Services struct {
	Broker     *broker.Broker
	Graph      *graph.Store
	Audit      *audit.Ledger
	Quarantine *quarantine.Registry
	Identity   *identity.Resolver
	Classifier *classifier.Classifier
	DLP        *dlp.Scanner
	Anomaly    *anomaly.Detector
	Technique  *technique.Mapper
	Alerts     *alert.Store
	SOAR       *soar.Engine
	Metrics    *metrics.Metrics

	Log *zap.Logger
}

// enforcerAdapter satisfies soar.Enforcer by converting
// quarantine.Registry's typed Status return into the plain string the
// SOAR engine's capability interface expects. Grounded on
// octoreflex/internal/operator/server.go's StateRegistry pattern: a
// thin adapter struct, not a reopening of the quarantine package.
type enforcerAdapter struct {
	registry *quarantine.Registry
}

func (e *enforcerAdapter) Quarantine(ip, reason string, score float64, auto bool, actor string) (string, error) {
	status, err := e.registry.Quarantine(ip, reason, score, auto, actor)
	return string(status), err
}

// Build constructs every component from cfg, wiring the SOAR engine's
// Enforcer to the quarantine registry through enforcerAdapter.
func Build(cfg *config.Config, log *zap.Logger) (*Services, error) {
	m := metrics.New()

	b := broker.New(log, func(topicName string) {
		m.EventsDroppedTotal.WithLabelValues(topicName).Inc()
	})

	ledger, err := audit.Open(cfg.Audit.LogPath, log)
	if err != nil {
		return nil, fmt.Errorf("core.Build: open audit ledger: %w", err)
	}

	registry, err := quarantine.Open(cfg.Quarantine.DBPath, ledger, log)
	if err != nil {
		return nil, fmt.Errorf("core.Build: open quarantine registry: %w", err)
	}

	soarEngine := soar.New(&enforcerAdapter{registry: registry}, log)

	cls := classifier.New()
	cls.StrictPrivacyDefault = cfg.Privacy.StrictPrivacyDefault

	return &Services{
		Broker:     b,
		Graph:      graph.New(),
		Audit:      ledger,
		Quarantine: registry,
		Identity:   identity.New(),
		Classifier: cls,
		DLP:        dlp.New(),
		Anomaly:    anomaly.New(),
		Technique:  technique.New(),
		Alerts:     alert.New(),
		SOAR:       soarEngine,
		Metrics:    m,
		Log:        log,
	}, nil
}

// Close releases every resource Build opened.
func (s *Services) Close() error {
	s.SOAR.Close()
	if err := s.Quarantine.Close(); err != nil {
		return fmt.Errorf("core.Close: quarantine: %w", err)
	}
	if err := s.Audit.Close(); err != nil {
		return fmt.Errorf("core.Close: audit: %w", err)
	}
	return nil
}
