// Package cascade implements the failure-propagation core: given a disaster
// trigger and an infrastructure topology, it selects the initially affected
// facilities by proximity and propagates failures hour by hour along
// dependency edges until the cascade stabilizes.
package cascade

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sentinel-infra/gridtwin/pkg/geo"
	"github.com/sentinel-infra/gridtwin/pkg/impact"
	"github.com/sentinel-infra/gridtwin/pkg/topology"
)

// DisasterType identifies the hazard driving a simulation.
type DisasterType string

const (
	Earthquake DisasterType = "earthquake"
	Flood      DisasterType = "flood"
	Cyclone    DisasterType = "cyclone"
	Fire       DisasterType = "fire"
	Terrorism  DisasterType = "terrorism"
)

// Valid reports whether t is a known disaster type.
func (t DisasterType) Valid() bool {
	switch t {
	case Earthquake, Flood, Cyclone, Fire, Terrorism:
		return true
	}
	return false
}

// ImpactRadiusKm returns the hazard's reach for a given severity. Cyclones
// spread widest, floods follow drainage, everything else stays local.
func (t DisasterType) ImpactRadiusKm(severity float64) float64 {
	switch t {
	case Earthquake:
		return severity * 200
	case Flood:
		return severity * 100
	case Cyclone:
		return severity * 300
	default:
		return severity * 50
	}
}

// MaxCascadeHours bounds the propagation loop. Beyond three days the model
// hands over to recovery planning, so longer cascades are cut off here.
const MaxCascadeHours = 72

// failedHealthScore is written to a node when the cascade takes it down.
// It sits below topology.FailedHealthThreshold so redundancy accounting
// sees the node as lost.
const failedHealthScore = 0.1

// Trigger carries the four parameters every collaborator must supply to
// start a simulation.
type Trigger struct {
	DisasterType DisasterType `json:"disaster_type"`
	Epicenter    geo.Point    `json:"epicenter"`
	Severity     float64      `json:"severity"`
}

// Validate rejects malformed triggers before any state is touched.
func (tr Trigger) Validate() error {
	if !tr.DisasterType.Valid() {
		return &ValidationError{Field: "disaster_type", Reason: fmt.Sprintf("unknown disaster type %q", tr.DisasterType)}
	}
	if tr.Severity < 0 || tr.Severity > 1 {
		return &ValidationError{Field: "severity", Reason: fmt.Sprintf("severity %.3f outside [0,1]", tr.Severity)}
	}
	if !tr.Epicenter.Valid() {
		return &ValidationError{Field: "epicenter", Reason: "coordinates outside valid range"}
	}
	return nil
}

// ValidationError reports a rejected trigger parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid trigger: %s: %s", e.Field, e.Reason)
}

// Event is one entry in the cascade timeline.
type Event struct {
	TimeHours      int                     `json:"time_hours"`
	NodeID         string                  `json:"node_id"`
	NodeName       string                  `json:"node_name"`
	FailureType    string                  `json:"failure_type"` // "initial" or "cascade"
	SourceNodeID   string                  `json:"source_node,omitempty"`
	DependencyType topology.DependencyType `json:"dependency_type,omitempty"`
}

// Result is one simulation's output. It is immutable once produced;
// consumers hold node IDs, never live node state.
type Result struct {
	SimulationID uuid.UUID    `json:"simulation_id"`
	DisasterType DisasterType `json:"disaster_type"`
	Epicenter    geo.Point    `json:"epicenter"`
	Severity     float64      `json:"severity"`

	// AffectedNodes is every node that failed, initial impact and cascade
	// alike, in failure order.
	AffectedNodes []string `json:"affected_nodes"`
	Timeline      []Event  `json:"cascade_timeline"`

	// CascadeProbability is the failed fraction of all nodes. It is a
	// coarse severity proxy, not a calibrated probability distribution.
	CascadeProbability float64 `json:"cascading_failure_probability"`

	PopulationImpact    int     `json:"estimated_population_impact"`
	OutageDurationHours float64 `json:"service_outage_duration_hours"`
	EconomicImpactUSD   float64 `json:"economic_impact_usd"`

	CompletedAt time.Time `json:"completed_at"`
}

// Simulator runs cascade simulations against a single topology store. The
// random source is injected so tests can drive exact outcomes; callers that
// share one topology must serialize Simulate calls (the twin engine does).
type Simulator struct {
	store *topology.Store
	rng   *rand.Rand
}

// NewSimulator creates a simulator over the given store. If rng is nil a
// time-seeded source is used.
func NewSimulator(store *topology.Store, rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{store: store, rng: rng}
}

// Simulate runs one cascade. It validates the trigger, selects the initial
// impact set, propagates failures for up to MaxCascadeHours simulated hours
// and aggregates impact figures. Node health in the store is degraded for
// every failed node; the returned result is read-only.
func (s *Simulator) Simulate(ctx context.Context, trigger Trigger) (*Result, error) {
	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	result := &Result{
		SimulationID: uuid.New(),
		DisasterType: trigger.DisasterType,
		Epicenter:    trigger.Epicenter,
		Severity:     trigger.Severity,
	}

	failed := make(map[string]bool)

	// Step 1: initial impact by proximity to the epicenter.
	initial := s.initialImpact(trigger)
	for _, id := range initial {
		failed[id] = true
		s.markFailed(id)
		result.AffectedNodes = append(result.AffectedNodes, id)
		node, _ := s.store.Node(id)
		result.Timeline = append(result.Timeline, Event{
			TimeHours:   0,
			NodeID:      id,
			NodeName:    node.Name,
			FailureType: "initial",
		})
	}

	// Step 2: hour-by-hour propagation. The frontier is the whole failed
	// set each hour; checking membership before enqueueing keeps cyclic
	// dependencies from reprocessing forever.
	if len(initial) > 0 {
		for hour := 0; hour < MaxCascadeHours; hour++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			newlyFailed := s.propagateHour(trigger.Severity, failed, hour, result)
			if len(newlyFailed) == 0 {
				break
			}
			for _, id := range newlyFailed {
				failed[id] = true
				s.markFailed(id)
				result.AffectedNodes = append(result.AffectedNodes, id)
			}
		}
	}

	// Step 3: aggregation.
	total := s.store.NodeCount()
	if total > 0 {
		result.CascadeProbability = float64(len(failed)) / float64(total)
	}

	failedNodes := make([]*topology.Node, 0, len(result.AffectedNodes))
	for _, id := range result.AffectedNodes {
		node, err := s.store.Node(id)
		if err != nil {
			return nil, err
		}
		failedNodes = append(failedNodes, node)
	}
	result.PopulationImpact = impact.PopulationImpact(failedNodes)
	result.OutageDurationHours = impact.OutageDuration(failedNodes, string(trigger.DisasterType))
	result.EconomicImpactUSD = impact.EconomicImpact(failedNodes, string(trigger.DisasterType))
	result.CompletedAt = time.Now().UTC()

	return result, nil
}

// initialImpact draws one failure sample per node inside the hazard radius.
func (s *Simulator) initialImpact(trigger Trigger) []string {
	radius := trigger.DisasterType.ImpactRadiusKm(trigger.Severity)
	if radius <= 0 {
		return nil
	}

	var affected []string
	for _, id := range s.store.NodeIDs() {
		node, _ := s.store.Node(id)
		distance := node.Location.DistanceKm(trigger.Epicenter)
		if distance > radius {
			continue
		}
		failureProb := trigger.Severity * (1 - distance/radius)
		if s.rng.Float64() < failureProb {
			affected = append(affected, id)
		}
	}
	return affected
}

// propagateHour evaluates every failed node's dependents once and returns
// the IDs that fall this hour. Events are appended to the result timeline.
func (s *Simulator) propagateHour(severity float64, failed map[string]bool, hour int, result *Result) []string {
	var newlyFailed []string
	claimed := make(map[string]bool)

	for _, sourceID := range sortedKeys(failed) {
		for _, targetID := range s.store.Successors(sourceID) {
			if failed[targetID] || claimed[targetID] {
				continue
			}
			edge, ok := s.store.Edge(sourceID, targetID)
			if !ok {
				continue
			}
			if !s.shouldCascade(targetID, edge, severity) {
				continue
			}

			claimed[targetID] = true
			newlyFailed = append(newlyFailed, targetID)
			node, _ := s.store.Node(targetID)
			result.Timeline = append(result.Timeline, Event{
				TimeHours:      hour,
				NodeID:         targetID,
				NodeName:       node.Name,
				FailureType:    "cascade",
				SourceNodeID:   sourceID,
				DependencyType: edge.Type,
			})
		}
	}
	return newlyFailed
}

// shouldCascade applies the redundancy protection rule, then draws against
// the edge-specific failure probability. A node whose redundancy level is
// still satisfied by healthy supply sources never fails here, regardless of
// edge weight.
func (s *Simulator) shouldCascade(targetID string, edge *topology.Edge, severity float64) bool {
	node, err := s.store.Node(targetID)
	if err != nil {
		return false
	}

	if node.RedundancyLevel > 1 {
		if s.store.HealthyPredecessorCount(targetID) >= node.RedundancyLevel {
			return false
		}
	}

	cascadeProb := edge.Weight * severity * (1 - edge.CapacityThreshold)
	return s.rng.Float64() < cascadeProb
}

// markFailed degrades a node's health below the operational threshold so the
// store remains the authoritative record of the cascade's damage.
func (s *Simulator) markFailed(id string) {
	_ = s.store.SetHealth(id, failedHealthScore)
}

// sortedKeys gives the frontier a stable iteration order so a seeded random
// source reproduces the same cascade exactly.
func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
