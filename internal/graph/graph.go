// Package graph implements the Graph Store: a live, in-memory directed
// multigraph of communicating nodes (internal hosts, external
// services) and the flows between them.
//
// Merge semantics are grounded on
// original_source/pkg/infra/local/store.py's NetworkXStore: adding a
// node that already exists unions its label set and overwrites scalar
// properties; adding an edge whose endpoints are missing creates them
// first with a placeholder "Unknown" label. All mutation happens
// behind a single mutex, matching internal/escalation/state_machine.go's
// discipline of never touching fields outside the lock.
package graph

import (
	"sync"
	"time"

	"github.com/octoreflex/shadowguard/internal/model"
)

// LabelUnknown marks a node auto-created as an edge endpoint.
const LabelUnknown = "Unknown"

type edgeKey struct {
	source, destination, relation string
}

// Store is a mutex-protected directed multigraph.
type Store struct {
	mu    sync.Mutex
	nodes map[string]*model.GraphNode
	edges map[edgeKey]*model.GraphEdge
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		nodes: make(map[string]*model.GraphNode),
		edges: make(map[edgeKey]*model.GraphEdge),
	}
}

// AddNode creates the node if absent, or merges into the existing one:
// labels are unioned, label/type are overwritten with the new call's
// values when non-empty, and last_seen becomes the max of the two.
func (s *Store) AddNode(id string, labels []string, label string, typ model.NodeType, lastSeen time.Time) *model.GraphNode {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		n = &model.GraphNode{
			ID:       id,
			Labels:   make(map[string]bool, len(labels)),
			Label:    label,
			Type:     typ,
			LastSeen: lastSeen,
		}
		for _, l := range labels {
			n.Labels[l] = true
		}
		s.nodes[id] = n
		return n
	}

	for _, l := range labels {
		n.Labels[l] = true
	}
	if label != "" {
		n.Label = label
	}
	if typ != "" && canUpgradeType(n.Type, typ) {
		n.Type = typ
	}
	if lastSeen.After(n.LastSeen) {
		n.LastSeen = lastSeen
	}
	return n
}

// canUpgradeType enforces the ordered lattice external -> shadow.
// internal and infra never become external or shadow; any type may be
// reasserted as itself.
func canUpgradeType(current, next model.NodeType) bool {
	if current == "" {
		return true
	}
	if current == next {
		return true
	}
	switch current {
	case model.NodeInternal, model.NodeInfra:
		return false
	case model.NodeExternal:
		return next == model.NodeShadow
	default:
		return false
	}
}

// AddEdge merges on (source, destination, relation): creates missing
// endpoints with an Unknown label, sums byte_count, and takes the max
// of last_seen. Other scalar properties (protocol, dest port, original
// dest ip) are overwritten with the latest call's values.
func (s *Store) AddEdge(source, destination, relation string, protocol model.Protocol, destPort int, byteCount int64, lastSeen time.Time, originalDestIP string) *model.GraphEdge {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureNodeLocked(source)
	s.ensureNodeLocked(destination)

	k := edgeKey{source, destination, relation}
	e, ok := s.edges[k]
	if !ok {
		e = &model.GraphEdge{
			Source:         source,
			Destination:    destination,
			Relation:       relation,
			Protocol:       protocol,
			DestPort:       destPort,
			ByteCount:      byteCount,
			LastSeen:       lastSeen,
			OriginalDestIP: originalDestIP,
		}
		s.edges[k] = e
		return e
	}

	e.Protocol = protocol
	e.DestPort = destPort
	e.ByteCount += byteCount
	if originalDestIP != "" {
		e.OriginalDestIP = originalDestIP
	}
	if lastSeen.After(e.LastSeen) {
		e.LastSeen = lastSeen
	}
	return e
}

// ensureNodeLocked creates a placeholder Unknown node if id is absent.
// Caller must hold s.mu.
func (s *Store) ensureNodeLocked(id string) {
	if _, ok := s.nodes[id]; ok {
		return
	}
	s.nodes[id] = &model.GraphNode{
		ID:     id,
		Labels: map[string]bool{LabelUnknown: true},
		Type:   model.NodeExternal,
	}
}

// AllNodes returns a snapshot of every node.
func (s *Store) AllNodes() []model.GraphNode {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.GraphNode, 0, len(s.nodes))
	for _, n := range s.nodes {
		cp := *n
		cp.Labels = make(map[string]bool, len(n.Labels))
		for l := range n.Labels {
			cp.Labels[l] = true
		}
		out = append(out, cp)
	}
	return out
}

// AllEdges returns a snapshot of every edge.
func (s *Store) AllEdges() []model.GraphEdge {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.GraphEdge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, *e)
	}
	return out
}

// Node returns a copy of the node with the given id, if present.
func (s *Store) Node(id string) (model.GraphNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[id]
	if !ok {
		return model.GraphNode{}, false
	}
	cp := *n
	cp.Labels = make(map[string]bool, len(n.Labels))
	for l := range n.Labels {
		cp.Labels[l] = true
	}
	return cp, true
}
