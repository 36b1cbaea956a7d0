// Package stabilize proposes mitigation plans when a cascade simulation
// shows enough risk to justify intervention. It is a rule-based heuristic
// planner: ties and overlaps between actions targeting the same node are
// deliberately left to the operator.
package stabilize

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sentinel-infra/gridtwin/pkg/cascade"
	"github.com/sentinel-infra/gridtwin/pkg/topology"
)

// DefaultThreshold is the minimum cascade probability at which a
// stabilization plan is meaningful.
const DefaultThreshold = 0.3

// planTTL is how long a generated plan stays listed as active.
const planTTL = time.Hour

// NotApplicableError signals the expected, non-exceptional outcome where the
// simulated cascade risk never reached the planning threshold. Callers use
// it to distinguish "no action needed" from a real failure.
type NotApplicableError struct {
	Probability float64
	Threshold   float64
}

func (e *NotApplicableError) Error() string {
	return fmt.Sprintf("stabilization not applicable: cascade probability %.3f below threshold %.3f",
		e.Probability, e.Threshold)
}

// Plan is the full mitigation recommendation for one simulated cascade.
type Plan struct {
	PlanID                    string         `json:"plan_id"`
	CascadeProbability        float64        `json:"cascade_probability"`
	AffectedNodes             []string       `json:"affected_nodes"`
	Actions                   []Action       `json:"stabilization_actions"`
	ExpectedRiskReductionPct  float64        `json:"expected_risk_reduction_percent"`
	TotalExecutionTimeMinutes int            `json:"total_execution_time_minutes"`
	ResourceRequirements      map[string]int `json:"resource_requirements"`
	ConfidenceScore           float64        `json:"confidence_score"`
	GeneratedAt               time.Time      `json:"generated_at"`
	ExecutionSequence         []string       `json:"execution_sequence"`
}

// ExecutionRecord is the simulated outcome of running one action.
type ExecutionRecord struct {
	ActionID             string    `json:"action_id"`
	Status               string    `json:"status"`
	ExecutionTimeSeconds int       `json:"execution_time_seconds"`
	ActualRiskReduction  float64   `json:"actual_risk_reduction"`
	SideEffectsObserved  []string  `json:"side_effects_observed"`
	Timestamp            time.Time `json:"timestamp"`
}

// Planner generates and tracks stabilization plans. It owns no topology
// state; it reads through the store and the simulator it is given.
type Planner struct {
	store     *topology.Store
	simulator *cascade.Simulator
	threshold float64
	rng       *rand.Rand

	mu      sync.RWMutex
	active  map[string]*Plan
	history []ExecutionRecord
}

// NewPlanner wires a planner to a topology store and simulator. A nil rng
// falls back to a time-seeded source.
func NewPlanner(store *topology.Store, simulator *cascade.Simulator, rng *rand.Rand) *Planner {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Planner{
		store:     store,
		simulator: simulator,
		threshold: DefaultThreshold,
		rng:       rng,
		active:    make(map[string]*Plan),
	}
}

// SetThreshold overrides the planning threshold; values outside (0,1] are
// ignored.
func (p *Planner) SetThreshold(t float64) {
	if t > 0 && t <= 1 {
		p.threshold = t
	}
}

// GeneratePlan simulates the cascade for the trigger and, if the risk
// clears the threshold, assembles a prioritized mitigation plan.
func (p *Planner) GeneratePlan(ctx context.Context, trigger cascade.Trigger) (*Plan, error) {
	result, err := p.simulator.Simulate(ctx, trigger)
	if err != nil {
		return nil, fmt.Errorf("stabilization plan generation failed: %w", err)
	}
	return p.PlanFromResult(result)
}

// PlanFromResult builds a plan from an already-completed simulation, so
// callers that ran the cascade themselves don't pay for a second run.
func (p *Planner) PlanFromResult(result *cascade.Result) (*Plan, error) {
	if result.CascadeProbability < p.threshold {
		return nil, &NotApplicableError{
			Probability: result.CascadeProbability,
			Threshold:   p.threshold,
		}
	}

	var actions []Action
	for _, nodeID := range result.AffectedNodes {
		node, err := p.store.Node(nodeID)
		if err != nil {
			return nil, fmt.Errorf("stabilization plan generation failed: %w", err)
		}
		if gen, ok := generators[node.Type]; ok {
			actions = append(actions, gen.Propose(node, p.store)...)
		}
	}

	plan := &Plan{
		PlanID:               fmt.Sprintf("stab_%s_%s", time.Now().UTC().Format("20060102_150405"), uuid.New().String()[:8]),
		CascadeProbability:   result.CascadeProbability,
		AffectedNodes:        result.AffectedNodes,
		Actions:              actions,
		ResourceRequirements: totalResources(actions),
		ConfidenceScore:      confidence(result.CascadeProbability),
		GeneratedAt:          time.Now().UTC(),
		ExecutionSequence:    executionSequence(actions),
	}

	if len(actions) > 0 {
		sum := 0.0
		maxMinutes := 0
		for _, a := range actions {
			sum += a.ExpectedRiskReduction
			if a.ExecutionTimeMinutes > maxMinutes {
				maxMinutes = a.ExecutionTimeMinutes
			}
		}
		plan.ExpectedRiskReductionPct = sum / float64(len(actions)) * 100
		plan.TotalExecutionTimeMinutes = maxMinutes
	}

	p.mu.Lock()
	p.active[plan.PlanID] = plan
	p.mu.Unlock()

	return plan, nil
}

// ActivePlans lists plans generated within the last hour, newest first.
func (p *Planner) ActivePlans() []*Plan {
	p.mu.RLock()
	defer p.mu.RUnlock()

	cutoff := time.Now().Add(-planTTL)
	plans := make([]*Plan, 0, len(p.active))
	for _, plan := range p.active {
		if plan.GeneratedAt.After(cutoff) {
			plans = append(plans, plan)
		}
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].GeneratedAt.After(plans[j].GeneratedAt) })
	return plans
}

// ExecuteAction simulates running one action from any active plan and
// records the outcome.
func (p *Planner) ExecuteAction(actionID string) (*ExecutionRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var action *Action
	for _, plan := range p.active {
		for i := range plan.Actions {
			if plan.Actions[i].ActionID == actionID {
				action = &plan.Actions[i]
				break
			}
		}
		if action != nil {
			break
		}
	}
	if action == nil {
		return nil, fmt.Errorf("stabilize: action %s not found", actionID)
	}

	observed := action.SideEffects
	if n := len(observed); n > 0 {
		observed = observed[:p.rng.Intn(n+1)]
	}

	record := &ExecutionRecord{
		ActionID:             actionID,
		Status:               "executed",
		ExecutionTimeSeconds: action.ExecutionTimeMinutes * 60,
		ActualRiskReduction:  action.ExpectedRiskReduction * (0.8 + p.rng.Float64()*0.4),
		SideEffectsObserved:  observed,
		Timestamp:            time.Now().UTC(),
	}
	p.history = append(p.history, *record)
	return record, nil
}

// History returns the execution records accumulated so far.
func (p *Planner) History() []ExecutionRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return append([]ExecutionRecord(nil), p.history...)
}

// executionSequence orders action IDs by priority tier, then shortest
// execution time first within a tier.
func executionSequence(actions []Action) []string {
	sorted := append([]Action(nil), actions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority.rank() != sorted[j].Priority.rank() {
			return sorted[i].Priority.rank() < sorted[j].Priority.rank()
		}
		return sorted[i].ExecutionTimeMinutes < sorted[j].ExecutionTimeMinutes
	})

	ids := make([]string, len(sorted))
	for i, a := range sorted {
		ids[i] = a.ActionID
	}
	return ids
}

// totalResources sums resource requirements across all actions.
func totalResources(actions []Action) map[string]int {
	totals := make(map[string]int)
	for _, a := range actions {
		for resource, quantity := range a.ResourceRequirements {
			totals[resource] += quantity
		}
	}
	return totals
}

// confidence grows with simulated risk but saturates at 0.9; the planner
// never claims certainty.
func confidence(probability float64) float64 {
	c := probability + 0.2
	if c > 0.9 {
		return 0.9
	}
	return c
}
