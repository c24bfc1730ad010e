package graph

import (
	"testing"
	"time"

	"github.com/octoreflex/shadowguard/internal/model"
)

func TestAddNodeCreatesNewNode(t *testing.T) {
	g := New()
	now := time.Now()
	n := g.AddNode("10.0.0.1", []string{"host"}, "workstation-1", model.NodeInternal, now)
	if n.ID != "10.0.0.1" || n.Type != model.NodeInternal || !n.Labels["host"] {
		t.Fatalf("unexpected node: %+v", n)
	}
}

func TestAddNodeMergesLabelsAndLastSeen(t *testing.T) {
	g := New()
	t1 := time.Now()
	t2 := t1.Add(time.Minute)

	g.AddNode("10.0.0.1", []string{"host"}, "workstation-1", model.NodeInternal, t1)
	n := g.AddNode("10.0.0.1", []string{"dhcp"}, "", model.NodeInternal, t2)

	if !n.Labels["host"] || !n.Labels["dhcp"] {
		t.Errorf("expected unioned labels, got %v", n.Labels)
	}
	if !n.LastSeen.Equal(t2) {
		t.Errorf("expected last_seen to advance to t2, got %v", n.LastSeen)
	}
	if n.Label != "workstation-1" {
		t.Errorf("empty label on second call must not overwrite, got %q", n.Label)
	}
}

func TestAddNodeTypeLatticeExternalToShadow(t *testing.T) {
	g := New()
	now := time.Now()
	g.AddNode("chatgpt.com", nil, "", model.NodeExternal, now)
	n := g.AddNode("chatgpt.com", nil, "", model.NodeShadow, now)
	if n.Type != model.NodeShadow {
		t.Errorf("external should upgrade to shadow, got %v", n.Type)
	}
}

func TestAddNodeTypeLatticeInternalNeverDowngrades(t *testing.T) {
	g := New()
	now := time.Now()
	g.AddNode("10.0.0.1", nil, "", model.NodeInternal, now)
	n := g.AddNode("10.0.0.1", nil, "", model.NodeExternal, now)
	if n.Type != model.NodeInternal {
		t.Errorf("internal must never downgrade to external, got %v", n.Type)
	}
}

func TestAddEdgeCreatesMissingEndpoints(t *testing.T) {
	g := New()
	now := time.Now()
	g.AddEdge("10.0.0.1", "10.0.0.2", string(model.RelationTalksTo), model.ProtocolTCP, 443, 1000, now, "")

	if _, ok := g.Node("10.0.0.1"); !ok {
		t.Error("expected source node to be auto-created")
	}
	dst, ok := g.Node("10.0.0.2")
	if !ok {
		t.Fatal("expected destination node to be auto-created")
	}
	if !dst.Labels[LabelUnknown] {
		t.Errorf("auto-created node should carry the Unknown label, got %v", dst.Labels)
	}
}

func TestAddEdgeSumsByteCountAndMaxesLastSeen(t *testing.T) {
	g := New()
	t1 := time.Now()
	t2 := t1.Add(time.Minute)

	g.AddEdge("10.0.0.1", "10.0.0.2", string(model.RelationTalksTo), model.ProtocolTCP, 443, 1000, t1, "1.2.3.4")
	e := g.AddEdge("10.0.0.1", "10.0.0.2", string(model.RelationTalksTo), model.ProtocolTCP, 443, 2000, t2, "")

	if e.ByteCount != 3000 {
		t.Errorf("expected summed byte count 3000, got %d", e.ByteCount)
	}
	if !e.LastSeen.Equal(t2) {
		t.Errorf("expected last_seen to advance to t2, got %v", e.LastSeen)
	}
	if e.OriginalDestIP != "1.2.3.4" {
		t.Errorf("empty original_dest_ip on second call must not clear prior value, got %q", e.OriginalDestIP)
	}
}

func TestAllNodesAndAllEdgesReturnIndependentSnapshots(t *testing.T) {
	g := New()
	now := time.Now()
	g.AddNode("10.0.0.1", []string{"host"}, "", model.NodeInternal, now)
	g.AddEdge("10.0.0.1", "10.0.0.2", string(model.RelationTalksTo), model.ProtocolTCP, 443, 1, now, "")

	nodes := g.AllNodes()
	for i := range nodes {
		nodes[i].Labels["mutated"] = true
	}
	fresh, _ := g.Node("10.0.0.1")
	if fresh.Labels["mutated"] {
		t.Error("mutating a snapshot must not affect the stored node")
	}

	if len(g.AllEdges()) != 1 {
		t.Errorf("expected 1 edge, got %d", len(g.AllEdges()))
	}
}
