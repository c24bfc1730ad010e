// Package pipeline implements the Analyzer Pipeline: the seven-step
// per-event flow that turns a raw flow event into graph edges, DLP
// findings, alerts, and SOAR actions.
//
// Grounded on original_source/services/analyzer/pipeline.py's
// Analyzer.process_event (same seven steps, same step order, same
// "log and continue" error policy) and wired onto internal/broker the
// way octoreflex/cmd/octoreflex/main.go's runWorker consumes its event
// channel: one subscriber goroutine per topic, per-event state never
// shared across calls. Every step's error is caught and logged so one
// malformed event never stops the subscription (spec.md §7).
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/octoreflex/shadowguard/internal/alert"
	"github.com/octoreflex/shadowguard/internal/anomaly"
	"github.com/octoreflex/shadowguard/internal/broker"
	"github.com/octoreflex/shadowguard/internal/classifier"
	"github.com/octoreflex/shadowguard/internal/dlp"
	"github.com/octoreflex/shadowguard/internal/graph"
	"github.com/octoreflex/shadowguard/internal/identity"
	"github.com/octoreflex/shadowguard/internal/metrics"
	"github.com/octoreflex/shadowguard/internal/model"
	"github.com/octoreflex/shadowguard/internal/quarantine"
	"github.com/octoreflex/shadowguard/internal/soar"
	"github.com/octoreflex/shadowguard/internal/technique"
)

// logEveryN matches the original analyzer's "processed N events"
// periodic log line, emitted at debug level.
const logEveryN = 10

// Pipeline is the Analyzer Pipeline: subscribes to telemetry.traffic
// and drives every downstream component for each event.
type Pipeline struct {
	broker     *broker.Broker
	graph      *graph.Store
	quarantine *quarantine.Registry
	identity   *identity.Resolver
	classifier *classifier.Classifier
	dlp        *dlp.Scanner
	anomaly    *anomaly.Detector
	technique  *technique.Mapper
	alerts     *alert.Store
	soar       *soar.Engine
	metrics    *metrics.Metrics
	log        *zap.Logger

	privacyMode bool
	processed   atomic.Uint64
	ctx         context.Context
}

// New constructs a Pipeline. privacyMode mirrors spec.md §6's
// environment toggle (default on): when true, only corporate
// destinations are captured.
func New(
	b *broker.Broker,
	g *graph.Store,
	q *quarantine.Registry,
	id *identity.Resolver,
	cls *classifier.Classifier,
	scanner *dlp.Scanner,
	det *anomaly.Detector,
	mapper *technique.Mapper,
	alerts *alert.Store,
	soarEngine *soar.Engine,
	m *metrics.Metrics,
	privacyMode bool,
	log *zap.Logger,
) *Pipeline {
	return &Pipeline{
		broker:      b,
		graph:       g,
		quarantine:  q,
		identity:    id,
		classifier:  cls,
		dlp:         scanner,
		anomaly:     det,
		technique:   mapper,
		alerts:      alerts,
		soar:        soarEngine,
		metrics:     m,
		log:         log,
		privacyMode: privacyMode,
	}
}

// Start subscribes the pipeline to telemetry.traffic. Subscription
// lives until ctx is canceled, at which point the broker drains any
// in-flight events before its dispatcher goroutine exits.
func (p *Pipeline) Start(ctx context.Context) {
	p.ctx = ctx
	p.broker.Subscribe(ctx, broker.TopicTelemetryTraffic, p.handle)
}

// publishCtx returns the context driving the pipeline's own
// subscription, falling back to a background context for direct
// (non-Start) use in tests.
func (p *Pipeline) publishCtx() context.Context {
	if p.ctx != nil {
		return p.ctx
	}
	return context.Background()
}

// handle implements the seven-step process for one event. It never
// returns a non-nil error for anything past normalization: every
// downstream step error is logged in place so the broker's dispatcher
// loop always moves on to the next event (spec.md §7 kind 1/2).
func (p *Pipeline) handle(raw any) error {
	start := time.Now()
	event, err := normalize(raw)
	if err != nil {
		p.log.Warn("pipeline: dropping malformed event", zap.Error(err))
		p.countOutcome("malformed")
		return nil
	}

	if !p.classifier.ShouldCapture(p.privacyMode, event.DestinationIP, event.Metadata) {
		p.countOutcome("capture_skipped")
		return nil
	}

	srcID, dstID, dstType := p.classifyEndpoints(event)
	p.enrichIdentity(event)
	p.mergeGraph(event, srcID, dstID, dstType)
	p.runDLP(event)
	p.detectAndAlert(event, srcID, dstID)

	p.countOutcome("ok")
	n := p.processed.Add(1)
	if n%logEveryN == 0 {
		p.log.Debug("analyzer processed events", zap.Uint64("count", n))
	}
	if p.metrics != nil {
		p.metrics.PipelineEventLatency.Observe(time.Since(start).Seconds())
	}
	return nil
}

// normalize accepts either a *model.FlowEvent or a map[string]any (the
// decoded-JSON shape an external producer would publish) and returns a
// FlowEvent, rejecting anything else.
func normalize(raw any) (*model.FlowEvent, error) {
	switch v := raw.(type) {
	case *model.FlowEvent:
		if v == nil {
			return nil, fmt.Errorf("pipeline.normalize: nil event")
		}
		return v, nil
	case model.FlowEvent:
		return &v, nil
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("pipeline.normalize: re-marshal map: %w", err)
		}
		var event model.FlowEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("pipeline.normalize: decode map: %w", err)
		}
		return validateEvent(&event)
	case []byte:
		var event model.FlowEvent
		if err := json.Unmarshal(v, &event); err != nil {
			return nil, fmt.Errorf("pipeline.normalize: decode bytes: %w", err)
		}
		return validateEvent(&event)
	default:
		return nil, broker.UnexpectedEventType(raw)
	}
}

func validateEvent(event *model.FlowEvent) (*model.FlowEvent, error) {
	if event.SourceIP == "" || event.DestinationIP == "" {
		return nil, fmt.Errorf("pipeline.normalize: missing source_ip/destination_ip")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return event, nil
}

// classifyEndpoints implements step 2: source/destination node ids and
// destination type, per spec.md §4.L.
func (p *Pipeline) classifyEndpoints(event *model.FlowEvent) (srcID, dstID string, dstType model.NodeType) {
	srcID = event.SourceIP

	dstID = event.DestinationIP
	if host := event.Host(); host != "" {
		dstID = host
	}

	switch {
	case classifier.IsInternal(event.DestinationIP):
		dstType = model.NodeInternal
	case classifier.IsAIDomain(event.Host()):
		dstType = model.NodeShadow
	default:
		dstType = model.NodeExternal
	}
	return srcID, dstID, dstType
}

// enrichIdentity implements step 3: attaches user_id/name/department
// to the event for downstream consumers. The graph node itself never
// receives these fields.
func (p *Pipeline) enrichIdentity(event *model.FlowEvent) {
	if profile, ok := p.identity.Resolve(event.SourceIP); ok {
		event.UserID = profile.UserID
		event.UserName = profile.UserName
		event.Department = profile.Department
	}
	if p.quarantine.IsQuarantined(event.SourceIP) {
		event.QuarantineStatus = string(model.QuarantineActive)
	}
}

// mergeGraph implements step 4.
func (p *Pipeline) mergeGraph(event *model.FlowEvent, srcID, dstID string, dstType model.NodeType) {
	srcType := model.NodeExternal
	if classifier.IsInternal(event.SourceIP) {
		srcType = model.NodeInternal
	}

	p.graph.AddNode(srcID, nil, srcID, srcType, event.Timestamp)
	p.graph.AddNode(dstID, nil, dstID, dstType, event.Timestamp)
	p.graph.AddEdge(
		srcID, dstID, model.RelationTalksTo,
		event.Protocol, event.DestinationPort,
		event.BytesSent+event.BytesReceived,
		event.Timestamp,
		event.DestinationIP,
	)

	if p.metrics != nil {
		p.metrics.GraphNodes.Set(float64(len(p.graph.AllNodes())))
		p.metrics.GraphEdges.Set(float64(len(p.graph.AllEdges())))
	}
}

// runDLP implements step 5.
func (p *Pipeline) runDLP(event *model.FlowEvent) {
	if event.PayloadSample == "" {
		return
	}
	matches := p.dlp.Scan(event.PayloadSample)
	if len(matches) == 0 {
		return
	}
	event.DLPViolation = true
	event.DLPMatches = matches
	if p.metrics != nil {
		for _, m := range matches {
			p.metrics.DLPMatchesTotal.WithLabelValues(m.RuleName).Inc()
		}
	}
}

// detectAndAlert implements steps 6 and 7: anomaly detection, alert
// construction, technique mapping, storage, publication, and SOAR
// evaluation.
func (p *Pipeline) detectAndAlert(event *model.FlowEvent, srcID, dstID string) {
	anomalous, reason := p.anomaly.Detect(event)
	if !event.DLPViolation && !anomalous {
		return
	}

	severity := model.SeverityHigh
	description := reason
	if event.DLPViolation {
		severity = model.SeverityCritical
		description = "DLP Violation detected in traffic payload"
		if reason != "" {
			description = description + "; " + reason
		}
	}

	a := model.Alert{
		ID:          fmt.Sprintf("alert-%d-%d", event.Timestamp.UnixNano(), p.processed.Load()),
		UUID:        alert.NewUUID(),
		Severity:    severity,
		Description: description,
		Source:      srcID,
		Target:      dstID,
		Timestamp:   event.Timestamp,
		DLPMatches:  event.DLPMatches,
	}
	if classifier.IsAIDomain(event.Host()) {
		a.MLClassification = "shadow_ai"
	}
	if t, ok := p.technique.MapAlert(reason, description); ok {
		a.Technique = t
	}

	p.alerts.Add(a)
	if p.metrics != nil {
		p.metrics.AlertsGeneratedTotal.WithLabelValues(string(a.Severity)).Inc()
		p.metrics.AlertStoreSize.Set(float64(p.alerts.Len()))
	}

	p.broker.Publish(p.publishCtx(), broker.TopicAlerts, a)

	results := p.soar.Evaluate(alertToSOAR(a))
	for _, r := range results {
		if p.metrics != nil {
			outcome := "ok"
			if !r.Success {
				outcome = "failed"
			}
			p.metrics.SOARActionsTotal.WithLabelValues(r.PlaybookName, outcome).Inc()
		}
		if !r.Success {
			p.log.Error("soar action failed", zap.String("playbook", r.PlaybookName), zap.Error(r.Err))
		}
	}
}

// countOutcome increments the pipeline's processed-event counter by outcome.
func (p *Pipeline) countOutcome(outcome string) {
	if p.metrics != nil {
		p.metrics.PipelineEventsProcessedTotal.WithLabelValues(outcome).Inc()
	}
}

// alertToSOAR projects a model.Alert into the generic key/value view
// soar.Playbook conditions are evaluated against.
func alertToSOAR(a model.Alert) soar.Alert {
	return soar.Alert{
		"id":                a.ID,
		"severity":          string(a.Severity),
		"description":       a.Description,
		"source":            a.Source,
		"target":            a.Target,
		"ml_classification": a.MLClassification,
	}
}
