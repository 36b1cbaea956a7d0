package topology

import (
	"errors"
	"testing"

	"github.com/sentinel-infra/gridtwin/pkg/geo"
)

func testNode(id string, nodeType NodeType) *Node {
	return &Node{
		ID:               id,
		Name:             id,
		Type:             nodeType,
		District:         "testdistrict",
		Location:         geo.Point{Lat: 19.0, Lon: 72.0},
		Capacity:         100,
		HealthScore:      1.0,
		CriticalityScore: 0.9,
	}
}

func TestAddNodeRejectsDuplicates(t *testing.T) {
	store := NewStore()

	if err := store.AddNode(testNode("a", PowerSubstation)); err != nil {
		t.Fatalf("Failed to add node: %v", err)
	}
	if err := store.AddNode(testNode("a", Hospital)); err == nil {
		t.Error("Expected duplicate node ID to be rejected")
	}
	if store.NodeCount() != 1 {
		t.Errorf("Expected 1 node after duplicate rejection, got %d", store.NodeCount())
	}
}

func TestAddNodeRejectsInvalid(t *testing.T) {
	store := NewStore()

	if err := store.AddNode(nil); err == nil {
		t.Error("Expected nil node to be rejected")
	}
	if err := store.AddNode(&Node{ID: ""}); err == nil {
		t.Error("Expected empty node ID to be rejected")
	}
	if err := store.AddNode(testNode("b", NodeType("nuclear_plant"))); err == nil {
		t.Error("Expected unknown node type to be rejected")
	}
}

func TestAddEdgeRejectsDangling(t *testing.T) {
	store := NewStore()
	if err := store.AddNode(testNode("a", PowerSubstation)); err != nil {
		t.Fatalf("Failed to add node: %v", err)
	}

	err := store.AddEdge(&Edge{SourceID: "a", TargetID: "missing", Type: DependencyPower})
	if err == nil {
		t.Fatal("Expected dangling edge to be rejected")
	}
	var notFound *ErrNodeNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("Expected ErrNodeNotFound in chain, got %v", err)
	}

	err = store.AddEdge(&Edge{SourceID: "missing", TargetID: "a", Type: DependencyPower})
	if err == nil {
		t.Error("Expected edge with missing source to be rejected")
	}
}

func TestAddEdgeRejectsDuplicates(t *testing.T) {
	store := NewStore()
	store.AddNode(testNode("a", PowerSubstation))
	store.AddNode(testNode("b", Hospital))

	edge := &Edge{SourceID: "a", TargetID: "b", Type: DependencyPower, Weight: 0.9}
	if err := store.AddEdge(edge); err != nil {
		t.Fatalf("Failed to add edge: %v", err)
	}
	if err := store.AddEdge(edge); err == nil {
		t.Error("Expected duplicate edge to be rejected")
	}
}

func TestSuccessorsAndPredecessors(t *testing.T) {
	store := NewStore()
	store.AddNode(testNode("power", PowerSubstation))
	store.AddNode(testNode("hospital", Hospital))
	store.AddNode(testNode("tower", TelecomTower))
	store.AddEdge(&Edge{SourceID: "power", TargetID: "hospital", Type: DependencyPower, Weight: 0.9})
	store.AddEdge(&Edge{SourceID: "power", TargetID: "tower", Type: DependencyPower, Weight: 0.8})

	succ := store.Successors("power")
	if len(succ) != 2 {
		t.Errorf("Expected 2 successors, got %d", len(succ))
	}
	pred := store.Predecessors("hospital")
	if len(pred) != 1 || pred[0] != "power" {
		t.Errorf("Expected predecessors [power], got %v", pred)
	}

	if _, ok := store.Edge("power", "hospital"); !ok {
		t.Error("Expected edge power->hospital to exist")
	}
	if _, ok := store.Edge("hospital", "power"); ok {
		t.Error("Expected no reverse edge hospital->power")
	}
}

func TestSetHealthClamps(t *testing.T) {
	store := NewStore()
	store.AddNode(testNode("a", PowerSubstation))

	if err := store.SetHealth("a", 1.7); err != nil {
		t.Fatalf("SetHealth failed: %v", err)
	}
	node, _ := store.Node("a")
	if node.HealthScore != 1.0 {
		t.Errorf("Expected health clamped to 1.0, got %f", node.HealthScore)
	}

	store.SetHealth("a", -0.5)
	node, _ = store.Node("a")
	if node.HealthScore != 0 {
		t.Errorf("Expected health clamped to 0, got %f", node.HealthScore)
	}

	if err := store.SetHealth("missing", 0.5); err == nil {
		t.Error("Expected SetHealth on unknown node to fail")
	}
}

func TestHealthyPredecessorCount(t *testing.T) {
	store := NewStore()
	store.AddNode(testNode("p0", PowerSubstation))
	store.AddNode(testNode("p1", PowerSubstation))
	store.AddNode(testNode("h", Hospital))
	store.AddEdge(&Edge{SourceID: "p0", TargetID: "h", Type: DependencyPower, Weight: 0.9})
	store.AddEdge(&Edge{SourceID: "p1", TargetID: "h", Type: DependencyPower, Weight: 0.9})

	if got := store.HealthyPredecessorCount("h"); got != 2 {
		t.Errorf("Expected 2 healthy predecessors, got %d", got)
	}

	// Degrade one supply source below the failure threshold.
	store.SetHealth("p0", 0.1)
	if got := store.HealthyPredecessorCount("h"); got != 1 {
		t.Errorf("Expected 1 healthy predecessor after failure, got %d", got)
	}

	// Exactly at the threshold still counts as failed.
	store.SetHealth("p1", FailedHealthThreshold-0.01)
	if got := store.HealthyPredecessorCount("h"); got != 0 {
		t.Errorf("Expected 0 healthy predecessors, got %d", got)
	}
}

func TestBaselineRestore(t *testing.T) {
	store := NewStore()
	store.AddNode(testNode("a", PowerSubstation))
	store.SetLoad("a", 50)
	store.MarkBaseline()

	store.SetHealth("a", 0.1)
	store.SetLoad("a", 120)
	store.RestoreBaseline()

	node, _ := store.Node("a")
	if node.HealthScore != 1.0 {
		t.Errorf("Expected health restored to 1.0, got %f", node.HealthScore)
	}
	if node.CurrentLoad != 50 {
		t.Errorf("Expected load restored to 50, got %f", node.CurrentLoad)
	}
}

func TestRestoreBaselineWithoutMarkIsNoop(t *testing.T) {
	store := NewStore()
	store.AddNode(testNode("a", PowerSubstation))
	store.SetHealth("a", 0.2)

	store.RestoreBaseline()

	node, _ := store.Node("a")
	if node.HealthScore != 0.2 {
		t.Errorf("Expected health untouched, got %f", node.HealthScore)
	}
}

func TestDistrictMeanHealth(t *testing.T) {
	store := NewStore()
	store.AddNode(testNode("a", PowerSubstation))
	store.AddNode(testNode("b", Hospital))
	store.SetHealth("a", 0.4)

	mean := store.DistrictMeanHealth("testdistrict")
	if mean != 0.7 {
		t.Errorf("Expected mean health 0.7, got %f", mean)
	}
	if got := store.DistrictMeanHealth("nowhere"); got != 0 {
		t.Errorf("Expected 0 for unknown district, got %f", got)
	}
}

func TestLoadFraction(t *testing.T) {
	node := testNode("a", Hospital)
	node.CurrentLoad = 80
	if got := node.LoadFraction(); got != 0.8 {
		t.Errorf("Expected load fraction 0.8, got %f", got)
	}

	// Overload clamps to 1 for display.
	node.CurrentLoad = 150
	if got := node.LoadFraction(); got != 1.0 {
		t.Errorf("Expected overload clamped to 1.0, got %f", got)
	}

	node.Capacity = 0
	if got := node.LoadFraction(); got != 0 {
		t.Errorf("Expected 0 for zero capacity, got %f", got)
	}
}
