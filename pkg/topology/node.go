package topology

import (
	"github.com/sentinel-infra/gridtwin/pkg/geo"
)

// NodeType identifies the class of an infrastructure facility.
type NodeType string

const (
	PowerSubstation NodeType = "power_substation"
	Hospital        NodeType = "hospital"
	TelecomTower    NodeType = "telecom_tower"
	WaterPlant      NodeType = "water_plant"
	TransportHub    NodeType = "transport_hub"
)

// Valid reports whether the node type is one of the known facility classes.
func (t NodeType) Valid() bool {
	switch t {
	case PowerSubstation, Hospital, TelecomTower, WaterPlant, TransportHub:
		return true
	}
	return false
}

// Node is a discrete infrastructure facility in the dependency graph.
//
// Health and load are mutable and owned by the Store; everything downstream
// (simulation results, stabilization plans) references nodes by ID only.
// A failed node stays in the graph with a degraded health score, it is never
// removed during a run.
type Node struct {
	ID       string   `yaml:"id" json:"id" validate:"required"`
	Name     string   `yaml:"name" json:"name" validate:"required"`
	Type     NodeType `yaml:"type" json:"type" validate:"required"`
	District string   `yaml:"district" json:"district" validate:"required"`

	Location geo.Point `yaml:"location" json:"location"`

	// Capacity is in the natural unit of the facility: MW for substations,
	// beds for hospitals, connections for towers, MLD for water plants.
	Capacity    float64 `yaml:"capacity" json:"capacity" validate:"gt=0"`
	CurrentLoad float64 `yaml:"current_load" json:"current_load" validate:"gte=0"`

	HealthScore     float64 `yaml:"health_score" json:"health_score" validate:"gte=0,lte=1"`
	RedundancyLevel int     `yaml:"redundancy_level" json:"redundancy_level" validate:"gte=0"`

	RecoveryTimeHours float64 `yaml:"recovery_time_hours" json:"recovery_time_hours" validate:"gte=0"`
	PopulationServed  int     `yaml:"population_served" json:"population_served" validate:"gte=0"`

	// CriticalityScore ranks importance to the national system, 0-1.
	CriticalityScore float64 `yaml:"criticality_score" json:"criticality_score" validate:"gte=0,lte=1"`
}

// LoadFraction returns current load as a fraction of capacity, clamped to
// [0,1] for display. The raw load may exceed capacity transiently during an
// overload condition.
func (n *Node) LoadFraction() float64 {
	if n.Capacity <= 0 {
		return 0
	}
	f := n.CurrentLoad / n.Capacity
	if f > 1 {
		return 1
	}
	return f
}

// Failed reports whether the node's health is below the operational
// threshold used throughout the cascade model.
func (n *Node) Failed() bool {
	return n.HealthScore < FailedHealthThreshold
}

// FailedHealthThreshold is the health score below which a node is considered
// failed for cascade and redundancy accounting.
const FailedHealthThreshold = 0.3

// DependencyType identifies the service carried by a dependency edge.
type DependencyType string

const (
	DependencyPower     DependencyType = "power"
	DependencyTelecom   DependencyType = "telecom"
	DependencyWater     DependencyType = "water"
	DependencyTransport DependencyType = "transport"
)

// Edge is a directed dependency: the target depends on the source for
// continuity of service. Cycles are permitted; the propagation algorithm
// tracks already-failed nodes to stay bounded.
type Edge struct {
	SourceID string         `yaml:"source_id" json:"source_id" validate:"required"`
	TargetID string         `yaml:"target_id" json:"target_id" validate:"required"`
	Type     DependencyType `yaml:"dependency_type" json:"dependency_type" validate:"required"`

	// Weight is the failure propagation strength, 0-1.
	Weight float64 `yaml:"weight" json:"weight" validate:"gte=0,lte=1"`

	// CapacityThreshold is the load fraction below which the source is
	// considered to still be supplying the target.
	CapacityThreshold float64 `yaml:"capacity_threshold" json:"capacity_threshold" validate:"gte=0,lte=1"`

	// RecoveryCoupling is how much the source's recovery helps the target
	// recover.
	RecoveryCoupling float64 `yaml:"recovery_coupling" json:"recovery_coupling" validate:"gte=0,lte=1"`
}
