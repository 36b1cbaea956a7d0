package impact

import (
	"math"
	"testing"

	"github.com/sentinel-infra/gridtwin/pkg/topology"
)

func TestRecoveryFactor(t *testing.T) {
	cases := map[string]float64{
		"earthquake": 1.5,
		"flood":      2.0,
		"cyclone":    1.3,
		"fire":       1.0,
		"terrorism":  1.0,
		"unknown":    1.0,
	}
	for disaster, want := range cases {
		if got := RecoveryFactor(disaster); got != want {
			t.Errorf("Expected factor %f for %s, got %f", want, disaster, got)
		}
	}
}

func TestOutageDuration(t *testing.T) {
	if got := OutageDuration(nil, "flood"); got != 0 {
		t.Errorf("Expected 0 outage for empty set, got %f", got)
	}

	failed := []*topology.Node{
		{Type: topology.PowerSubstation, RecoveryTimeHours: 24},
		{Type: topology.Hospital, RecoveryTimeHours: 48},
	}

	// Flood doubles recovery times: mean of 48 and 96.
	if got := OutageDuration(failed, "flood"); math.Abs(got-72) > 1e-9 {
		t.Errorf("Expected 72h outage, got %f", got)
	}
	if got := OutageDuration(failed, "fire"); math.Abs(got-36) > 1e-9 {
		t.Errorf("Expected 36h outage with neutral factor, got %f", got)
	}
}

func TestEconomicImpact(t *testing.T) {
	failed := []*topology.Node{
		{Type: topology.PowerSubstation, RecoveryTimeHours: 24}, // 1 day at $1M/day
		{Type: topology.WaterPlant, RecoveryTimeHours: 48},      // 2 days at $2M/day
	}

	got := EconomicImpact(failed, "earthquake")
	if math.Abs(got-5_000_000) > 1e-6 {
		t.Errorf("Expected $5M impact, got %f", got)
	}

	// The disaster factor scales outage, never cost.
	if flood := EconomicImpact(failed, "flood"); flood != got {
		t.Errorf("Expected identical cost across disaster types, got %f vs %f", flood, got)
	}
}

func TestPopulationImpact(t *testing.T) {
	failed := []*topology.Node{
		{PopulationServed: 100000},
		{PopulationServed: 250000},
	}
	if got := PopulationImpact(failed); got != 350000 {
		t.Errorf("Expected population impact 350000, got %d", got)
	}
	if got := PopulationImpact(nil); got != 0 {
		t.Errorf("Expected 0 for empty set, got %d", got)
	}
}

func TestImpactIsDeterministic(t *testing.T) {
	failed := []*topology.Node{
		{Type: topology.TelecomTower, RecoveryTimeHours: 12, PopulationServed: 40000},
	}
	first := EconomicImpact(failed, "cyclone")
	for i := 0; i < 5; i++ {
		if got := EconomicImpact(failed, "cyclone"); got != first {
			t.Fatalf("Expected repeated calls to agree, got %f then %f", first, got)
		}
	}
}
