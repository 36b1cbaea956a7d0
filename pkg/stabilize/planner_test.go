package stabilize

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/sentinel-infra/gridtwin/pkg/cascade"
	"github.com/sentinel-infra/gridtwin/pkg/geo"
	"github.com/sentinel-infra/gridtwin/pkg/topology"
)

func addPlannerNode(t *testing.T, store *topology.Store, id string, nodeType topology.NodeType, health, capacity, load float64) {
	t.Helper()
	err := store.AddNode(&topology.Node{
		ID:               id,
		Name:             id,
		Type:             nodeType,
		District:         "testdistrict",
		Location:         geo.Point{Lat: 19.0, Lon: 72.0},
		Capacity:         capacity,
		CurrentLoad:      load,
		HealthScore:      health,
		CriticalityScore: 0.9,
	})
	if err != nil {
		t.Fatalf("Failed to add node: %v", err)
	}
}

// stressedStore holds one facility of each class in a condition that trips
// its generator rule, plus the healthy alternates the rules recruit.
func stressedStore(t *testing.T) *topology.Store {
	t.Helper()
	store := topology.NewStore()
	addPlannerNode(t, store, "power_over", topology.PowerSubstation, 1.0, 100, 90)
	addPlannerNode(t, store, "power_sick", topology.PowerSubstation, 0.2, 100, 40)
	addPlannerNode(t, store, "power_alt1", topology.PowerSubstation, 1.0, 100, 10)
	addPlannerNode(t, store, "power_alt2", topology.PowerSubstation, 1.0, 100, 10)
	addPlannerNode(t, store, "hosp_over", topology.Hospital, 1.0, 100, 95)
	addPlannerNode(t, store, "hosp_rx", topology.Hospital, 1.0, 100, 10)
	addPlannerNode(t, store, "tele_sick", topology.TelecomTower, 0.4, 100, 50)
	addPlannerNode(t, store, "water_sick", topology.WaterPlant, 0.5, 100, 50)
	addPlannerNode(t, store, "trans_sick", topology.TransportHub, 0.4, 100, 50)
	return store
}

func stressedResult(probability float64) *cascade.Result {
	return &cascade.Result{
		DisasterType:       cascade.Earthquake,
		Severity:           0.8,
		AffectedNodes:      []string{"power_over", "power_sick", "hosp_over", "tele_sick", "water_sick", "trans_sick"},
		CascadeProbability: probability,
		CompletedAt:        time.Now().UTC(),
	}
}

func newTestPlanner(t *testing.T) *Planner {
	t.Helper()
	store := stressedStore(t)
	sim := cascade.NewSimulator(store, rand.New(rand.NewSource(1)))
	return NewPlanner(store, sim, rand.New(rand.NewSource(1)))
}

func TestPlanFromResultBelowThreshold(t *testing.T) {
	planner := newTestPlanner(t)

	_, err := planner.PlanFromResult(stressedResult(0.1))
	var na *NotApplicableError
	if !errors.As(err, &na) {
		t.Fatalf("Expected NotApplicableError, got %v", err)
	}
	if na.Probability != 0.1 {
		t.Errorf("Expected probability 0.1 in error, got %f", na.Probability)
	}
	if na.Threshold != DefaultThreshold {
		t.Errorf("Expected threshold %f in error, got %f", DefaultThreshold, na.Threshold)
	}
	if len(planner.ActivePlans()) != 0 {
		t.Error("Expected no plan recorded below threshold")
	}
}

func TestPlanFromResultProposesPerFacilityActions(t *testing.T) {
	planner := newTestPlanner(t)

	plan, err := planner.PlanFromResult(stressedResult(0.5))
	if err != nil {
		t.Fatalf("Failed to build plan: %v", err)
	}

	if !strings.HasPrefix(plan.PlanID, "stab_") {
		t.Errorf("Expected stab_ plan ID prefix, got %s", plan.PlanID)
	}
	if len(plan.Actions) != 6 {
		t.Fatalf("Expected 6 actions, got %d", len(plan.Actions))
	}

	byID := make(map[string]Action)
	for _, a := range plan.Actions {
		byID[a.ActionID] = a
	}

	redist, ok := byID["load_redist_power_over"]
	if !ok {
		t.Fatal("Expected load redistribution for the overloaded substation")
	}
	if redist.Type != LoadRedistribution || redist.Priority != PriorityCritical {
		t.Errorf("Unexpected redistribution action: %+v", redist)
	}
	if len(redist.SourceNodes) != 2 {
		t.Errorf("Expected 2 backup substations, got %v", redist.SourceNodes)
	}

	isolate, ok := byID["grid_isolate_power_sick"]
	if !ok {
		t.Fatal("Expected grid isolation for the failing substation")
	}
	if isolate.ExecutionTimeMinutes != 2 || isolate.Priority != PriorityCritical {
		t.Errorf("Unexpected isolation action: %+v", isolate)
	}

	balance, ok := byID["hospital_balance_hosp_over"]
	if !ok {
		t.Fatal("Expected hospital load balancing")
	}
	if len(balance.SourceNodes) != 1 || balance.SourceNodes[0] != "hosp_rx" {
		t.Errorf("Expected receiver hosp_rx, got %v", balance.SourceNodes)
	}

	for id, wantType := range map[string]ActionType{
		"telecom_backup_tele_sick":      TelecomBackupSwitch,
		"water_reroute_water_sick":      WaterFlowRerouting,
		"transport_corridor_trans_sick": TransportCorridor,
	} {
		action, ok := byID[id]
		if !ok {
			t.Errorf("Expected action %s", id)
			continue
		}
		if action.Type != wantType {
			t.Errorf("Expected %s to have type %s, got %s", id, wantType, action.Type)
		}
	}
}

func TestPlanAggregates(t *testing.T) {
	planner := newTestPlanner(t)

	plan, err := planner.PlanFromResult(stressedResult(0.5))
	if err != nil {
		t.Fatalf("Failed to build plan: %v", err)
	}

	// Mean effectiveness of the six proposed actions, as a percentage.
	wantPct := (0.25 + 0.45 + 0.30 + 0.40 + 0.25 + 0.20) / 6 * 100
	if math.Abs(plan.ExpectedRiskReductionPct-wantPct) > 1e-9 {
		t.Errorf("Expected risk reduction %.4f%%, got %.4f%%", wantPct, plan.ExpectedRiskReductionPct)
	}

	// Actions run in parallel; the plan takes as long as its slowest action.
	if plan.TotalExecutionTimeMinutes != 20 {
		t.Errorf("Expected total execution time 20min, got %d", plan.TotalExecutionTimeMinutes)
	}

	if math.Abs(plan.ConfidenceScore-0.7) > 1e-9 {
		t.Errorf("Expected confidence 0.7 at probability 0.5, got %f", plan.ConfidenceScore)
	}

	if plan.ResourceRequirements["operators"] != 4 {
		t.Errorf("Expected 4 operators total, got %d", plan.ResourceRequirements["operators"])
	}
	if plan.ResourceRequirements["ambulances"] != 5 {
		t.Errorf("Expected 5 ambulances, got %d", plan.ResourceRequirements["ambulances"])
	}
}

func TestExecutionSequenceOrdering(t *testing.T) {
	planner := newTestPlanner(t)

	plan, err := planner.PlanFromResult(stressedResult(0.5))
	if err != nil {
		t.Fatalf("Failed to build plan: %v", err)
	}

	// Critical before high before medium; shortest first within a tier.
	want := []string{
		"grid_isolate_power_sick",
		"load_redist_power_over",
		"telecom_backup_tele_sick",
		"hospital_balance_hosp_over",
		"water_reroute_water_sick",
		"transport_corridor_trans_sick",
	}
	if len(plan.ExecutionSequence) != len(want) {
		t.Fatalf("Expected %d sequence entries, got %d", len(want), len(plan.ExecutionSequence))
	}
	for i, id := range want {
		if plan.ExecutionSequence[i] != id {
			t.Errorf("Expected sequence[%d]=%s, got %s", i, id, plan.ExecutionSequence[i])
		}
	}
}

func TestConfidenceSaturates(t *testing.T) {
	planner := newTestPlanner(t)

	plan, err := planner.PlanFromResult(stressedResult(0.9))
	if err != nil {
		t.Fatalf("Failed to build plan: %v", err)
	}
	if plan.ConfidenceScore != 0.9 {
		t.Errorf("Expected confidence capped at 0.9, got %f", plan.ConfidenceScore)
	}
}

func TestActivePlansFiltersExpired(t *testing.T) {
	planner := newTestPlanner(t)

	plan, err := planner.PlanFromResult(stressedResult(0.5))
	if err != nil {
		t.Fatalf("Failed to build plan: %v", err)
	}
	if got := len(planner.ActivePlans()); got != 1 {
		t.Fatalf("Expected 1 active plan, got %d", got)
	}

	// Age the plan past the TTL.
	planner.mu.Lock()
	planner.active[plan.PlanID].GeneratedAt = time.Now().Add(-2 * time.Hour)
	planner.mu.Unlock()

	if got := len(planner.ActivePlans()); got != 0 {
		t.Errorf("Expected expired plan to be filtered, got %d", got)
	}
}

func TestExecuteAction(t *testing.T) {
	planner := newTestPlanner(t)

	plan, err := planner.PlanFromResult(stressedResult(0.5))
	if err != nil {
		t.Fatalf("Failed to build plan: %v", err)
	}
	action := plan.Actions[0]

	record, err := planner.ExecuteAction(action.ActionID)
	if err != nil {
		t.Fatalf("Failed to execute action: %v", err)
	}
	if record.Status != "executed" {
		t.Errorf("Expected status executed, got %s", record.Status)
	}
	if record.ExecutionTimeSeconds != action.ExecutionTimeMinutes*60 {
		t.Errorf("Expected %ds execution, got %d", action.ExecutionTimeMinutes*60, record.ExecutionTimeSeconds)
	}

	// Actual reduction varies within 80-120% of the expectation.
	low := action.ExpectedRiskReduction * 0.8
	high := action.ExpectedRiskReduction * 1.2
	if record.ActualRiskReduction < low || record.ActualRiskReduction > high {
		t.Errorf("Expected actual reduction in [%f, %f], got %f", low, high, record.ActualRiskReduction)
	}
	if len(record.SideEffectsObserved) > len(action.SideEffects) {
		t.Errorf("Observed more side effects than possible: %v", record.SideEffectsObserved)
	}

	history := planner.History()
	if len(history) != 1 || history[0].ActionID != action.ActionID {
		t.Errorf("Expected 1 history record for %s, got %+v", action.ActionID, history)
	}
}

func TestExecuteActionUnknown(t *testing.T) {
	planner := newTestPlanner(t)
	if _, err := planner.ExecuteAction("no_such_action"); err == nil {
		t.Error("Expected error for unknown action")
	}
}

func TestSetThresholdIgnoresOutOfRange(t *testing.T) {
	planner := newTestPlanner(t)

	planner.SetThreshold(0)
	if planner.threshold != DefaultThreshold {
		t.Errorf("Expected threshold unchanged at %f, got %f", DefaultThreshold, planner.threshold)
	}
	planner.SetThreshold(1.5)
	if planner.threshold != DefaultThreshold {
		t.Errorf("Expected threshold unchanged at %f, got %f", DefaultThreshold, planner.threshold)
	}
	planner.SetThreshold(0.6)
	if planner.threshold != 0.6 {
		t.Errorf("Expected threshold 0.6, got %f", planner.threshold)
	}
}

func TestPlanFromResultUnknownNode(t *testing.T) {
	planner := newTestPlanner(t)

	result := stressedResult(0.5)
	result.AffectedNodes = append(result.AffectedNodes, "ghost")
	if _, err := planner.PlanFromResult(result); err == nil {
		t.Error("Expected error for unknown affected node")
	}
}
