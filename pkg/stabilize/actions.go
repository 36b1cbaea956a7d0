package stabilize

import (
	"fmt"

	"github.com/sentinel-infra/gridtwin/pkg/topology"
)

// ActionType identifies a class of mitigation.
type ActionType string

const (
	LoadRedistribution  ActionType = "load_redistribution"
	EmergencyRerouting  ActionType = "emergency_rerouting"
	RedundancyActivate  ActionType = "redundancy_activation"
	HospitalBalancing   ActionType = "hospital_load_balancing"
	TelecomBackupSwitch ActionType = "telecom_backup_switch"
	PowerGridIsolation  ActionType = "power_grid_isolation"
	WaterFlowRerouting  ActionType = "water_flow_rerouting"
	TransportCorridor   ActionType = "transport_corridor_opening"
)

// actionEffectiveness is the expected risk reduction per action type,
// calibrated against historical grid-event reviews.
var actionEffectiveness = map[ActionType]float64{
	LoadRedistribution:  0.25,
	EmergencyRerouting:  0.20,
	RedundancyActivate:  0.35,
	HospitalBalancing:   0.30,
	TelecomBackupSwitch: 0.40,
	PowerGridIsolation:  0.45,
	WaterFlowRerouting:  0.25,
	TransportCorridor:   0.20,
}

// Priority is the execution urgency tier of an action.
type Priority string

const (
	PriorityCritical Priority = "critical" // execute immediately
	PriorityHigh     Priority = "high"     // within 5 minutes
	PriorityMedium   Priority = "medium"   // within 15 minutes
	PriorityLow      Priority = "low"      // within 30 minutes
)

// rank orders priorities for execution sequencing.
func (p Priority) rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// Action is one proposed mitigation targeting a specific node. Source nodes
// name the facilities recruited to absorb load or supply backup.
type Action struct {
	ActionID              string         `json:"action_id"`
	Type                  ActionType     `json:"action_type"`
	TargetNode            string         `json:"target_node"`
	SourceNodes           []string       `json:"source_nodes"`
	Description           string         `json:"description"`
	ExpectedRiskReduction float64        `json:"expected_risk_reduction"`
	ExecutionTimeMinutes  int            `json:"execution_time_minutes"`
	Priority              Priority       `json:"priority"`
	ResourceRequirements  map[string]int `json:"resource_requirements"`
	ConfidenceScore       float64        `json:"confidence_score"`
	SideEffects           []string       `json:"side_effects"`
}

// generator proposes mitigations for one facility class. One implementation
// per node type replaces the original type-keyed dispatch table while
// preserving its rules exactly.
type generator interface {
	Propose(node *topology.Node, store *topology.Store) []Action
}

// generators maps each facility class to its action generator.
var generators = map[topology.NodeType]generator{
	topology.PowerSubstation: powerGenerator{},
	topology.Hospital:        hospitalGenerator{},
	topology.TelecomTower:    telecomGenerator{},
	topology.WaterPlant:      waterGenerator{},
	topology.TransportHub:    transportGenerator{},
}

type powerGenerator struct{}

// Propose redistributes load off an overloaded substation to up to two
// healthy alternates, and isolates the substation outright once its health
// collapses below the failed threshold.
func (powerGenerator) Propose(node *topology.Node, store *topology.Store) []Action {
	var actions []Action

	if node.CurrentLoad > node.Capacity*0.8 {
		var alternates []string
		for _, id := range store.NodeIDs() {
			if id == node.ID {
				continue
			}
			candidate, err := store.Node(id)
			if err != nil || candidate.Type != topology.PowerSubstation {
				continue
			}
			if candidate.HealthScore > 0.7 {
				alternates = append(alternates, id)
			}
			if len(alternates) == 2 {
				break
			}
		}

		if len(alternates) > 0 {
			actions = append(actions, Action{
				ActionID:              "load_redist_" + node.ID,
				Type:                  LoadRedistribution,
				TargetNode:            node.ID,
				SourceNodes:           alternates,
				Description:           fmt.Sprintf("Redistribute %.0fMW load from %s to backup substations", node.CurrentLoad, node.Name),
				ExpectedRiskReduction: actionEffectiveness[LoadRedistribution],
				ExecutionTimeMinutes:  5,
				Priority:              PriorityCritical,
				ResourceRequirements:  map[string]int{"engineers": 2, "equipment": 1},
				ConfidenceScore:       0.85,
				SideEffects:           []string{"Temporary voltage fluctuation", "Coordinated grid switching required"},
			})
		}
	}

	if node.HealthScore < 0.3 {
		actions = append(actions, Action{
			ActionID:              "grid_isolate_" + node.ID,
			Type:                  PowerGridIsolation,
			TargetNode:            node.ID,
			Description:           fmt.Sprintf("Isolate failing %s to prevent cascade propagation", node.Name),
			ExpectedRiskReduction: actionEffectiveness[PowerGridIsolation],
			ExecutionTimeMinutes:  2,
			Priority:              PriorityCritical,
			ResourceRequirements:  map[string]int{"operators": 1, "automation": 1},
			ConfidenceScore:       0.95,
			SideEffects:           []string{"Local power outage", "Downstream load shedding"},
		})
	}

	return actions
}

type hospitalGenerator struct{}

// Propose transfers patients away from a hospital running past 90% of its
// bed capacity toward hospitals below 70%.
func (hospitalGenerator) Propose(node *topology.Node, store *topology.Store) []Action {
	if node.CurrentLoad <= node.Capacity*0.9 {
		return nil
	}

	var receivers []string
	for _, id := range store.NodeIDs() {
		if id == node.ID {
			continue
		}
		candidate, err := store.Node(id)
		if err != nil || candidate.Type != topology.Hospital {
			continue
		}
		if candidate.CurrentLoad < candidate.Capacity*0.7 {
			receivers = append(receivers, id)
		}
		if len(receivers) == 2 {
			break
		}
	}
	if len(receivers) == 0 {
		return nil
	}

	return []Action{{
		ActionID:              "hospital_balance_" + node.ID,
		Type:                  HospitalBalancing,
		TargetNode:            node.ID,
		SourceNodes:           receivers,
		Description:           fmt.Sprintf("Transfer patients from overloaded %s to nearby facilities", node.Name),
		ExpectedRiskReduction: actionEffectiveness[HospitalBalancing],
		ExecutionTimeMinutes:  15,
		Priority:              PriorityHigh,
		ResourceRequirements:  map[string]int{"ambulances": 5, "medical_staff": 10},
		ConfidenceScore:       0.80,
		SideEffects:           []string{"Patient transport logistics", "Temporary bed shortages"},
	}}
}

type telecomGenerator struct{}

// Propose switches a degraded tower onto backup communication systems.
func (telecomGenerator) Propose(node *topology.Node, _ *topology.Store) []Action {
	if node.HealthScore >= 0.5 {
		return nil
	}

	return []Action{{
		ActionID:              "telecom_backup_" + node.ID,
		Type:                  TelecomBackupSwitch,
		TargetNode:            node.ID,
		Description:           fmt.Sprintf("Activate backup communication systems for %s", node.Name),
		ExpectedRiskReduction: actionEffectiveness[TelecomBackupSwitch],
		ExecutionTimeMinutes:  3,
		Priority:              PriorityHigh,
		ResourceRequirements:  map[string]int{"technicians": 2, "backup_systems": 1},
		ConfidenceScore:       0.90,
		SideEffects:           []string{"Temporary service interruption", "Bandwidth reduction"},
	}}
}

type waterGenerator struct{}

// Propose reroutes flow around a compromised treatment plant.
func (waterGenerator) Propose(node *topology.Node, _ *topology.Store) []Action {
	if node.HealthScore >= 0.6 {
		return nil
	}

	return []Action{{
		ActionID:              "water_reroute_" + node.ID,
		Type:                  WaterFlowRerouting,
		TargetNode:            node.ID,
		Description:           fmt.Sprintf("Reroute water flow around compromised %s", node.Name),
		ExpectedRiskReduction: actionEffectiveness[WaterFlowRerouting],
		ExecutionTimeMinutes:  10,
		Priority:              PriorityMedium,
		ResourceRequirements:  map[string]int{"operators": 3, "valves": 5},
		ConfidenceScore:       0.75,
		SideEffects:           []string{"Pressure fluctuations", "Temporary supply reduction"},
	}}
}

type transportGenerator struct{}

// Propose opens an emergency corridor bypassing a failing transport hub.
func (transportGenerator) Propose(node *topology.Node, _ *topology.Store) []Action {
	if node.HealthScore >= 0.5 {
		return nil
	}

	return []Action{{
		ActionID:              "transport_corridor_" + node.ID,
		Type:                  TransportCorridor,
		TargetNode:            node.ID,
		Description:           fmt.Sprintf("Open emergency transport corridor bypassing %s", node.Name),
		ExpectedRiskReduction: actionEffectiveness[TransportCorridor],
		ExecutionTimeMinutes:  20,
		Priority:              PriorityMedium,
		ResourceRequirements:  map[string]int{"traffic_control": 4, "signage": 10},
		ConfidenceScore:       0.70,
		SideEffects:           []string{"Traffic congestion", "Route confusion"},
	}}
}
