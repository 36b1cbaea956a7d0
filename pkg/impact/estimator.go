// Package impact derives population, outage and economic figures from a
// failed-node set. Everything here is a pure function of its inputs: no
// randomness, no clock, so repeated calls always agree.
package impact

import (
	"github.com/sentinel-infra/gridtwin/pkg/topology"
)

// Disaster-type multipliers applied to base recovery times. Earthquakes slow
// repairs with structural surveys, floods with standing water, cyclones with
// access problems.
const (
	earthquakeRecoveryFactor = 1.5
	floodRecoveryFactor      = 2.0
	cycloneRecoveryFactor    = 1.3
)

// Daily revenue-and-service loss per facility class, USD.
const (
	powerDailyCostUSD   = 1_000_000
	hospitalDailyCost   = 500_000
	telecomDailyCost    = 100_000
	waterDailyCostUSD   = 2_000_000
	defaultDailyCostUSD = 200_000
)

// RecoveryFactor returns the recovery-time multiplier for a disaster type.
// Unknown types get the neutral factor.
func RecoveryFactor(disasterType string) float64 {
	switch disasterType {
	case "earthquake":
		return earthquakeRecoveryFactor
	case "flood":
		return floodRecoveryFactor
	case "cyclone":
		return cycloneRecoveryFactor
	default:
		return 1.0
	}
}

// OutageDuration estimates the mean service outage in hours across the
// failed nodes, scaled by the disaster-type recovery factor. An empty set
// yields zero.
func OutageDuration(failed []*topology.Node, disasterType string) float64 {
	if len(failed) == 0 {
		return 0
	}

	factor := RecoveryFactor(disasterType)
	total := 0.0
	for _, node := range failed {
		total += node.RecoveryTimeHours * factor
	}
	return total / float64(len(failed))
}

// dailyCost returns the daily economic loss for a facility class.
func dailyCost(t topology.NodeType) float64 {
	switch t {
	case topology.PowerSubstation:
		return powerDailyCostUSD
	case topology.Hospital:
		return hospitalDailyCost
	case topology.TelecomTower:
		return telecomDailyCost
	case topology.WaterPlant:
		return waterDailyCostUSD
	default:
		return defaultDailyCostUSD
	}
}

// EconomicImpact estimates total economic loss in USD: each failed node's
// daily cost multiplied by its own base recovery duration in days. The
// disaster-type factor applies to outage duration only, not to cost.
func EconomicImpact(failed []*topology.Node, disasterType string) float64 {
	total := 0.0
	for _, node := range failed {
		days := node.RecoveryTimeHours / 24
		total += dailyCost(node.Type) * days
	}
	return total
}

// PopulationImpact sums the population served by the failed nodes. Overlap
// between facilities serving the same people is not deduplicated; the figure
// is an upper bound.
func PopulationImpact(failed []*topology.Node) int {
	total := 0
	for _, node := range failed {
		total += node.PopulationServed
	}
	return total
}
