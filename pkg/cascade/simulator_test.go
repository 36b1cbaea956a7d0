package cascade

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-infra/gridtwin/pkg/geo"
	"github.com/sentinel-infra/gridtwin/pkg/topology"
)

// epicenter for the hand-built topologies below. Nodes placed 3 degrees of
// latitude away sit ~333km out, beyond the 200km reach of a severity-1
// earthquake, so they can only fail by cascading.
var epicenter = geo.Point{Lat: 19.0, Lon: 72.0}

func addNode(t *testing.T, store *topology.Store, id string, nodeType topology.NodeType, lat float64, redundancy int) {
	t.Helper()
	err := store.AddNode(&topology.Node{
		ID:                id,
		Name:              id,
		Type:              nodeType,
		District:          "testdistrict",
		Location:          geo.Point{Lat: lat, Lon: 72.0},
		Capacity:          100,
		HealthScore:       1.0,
		RedundancyLevel:   redundancy,
		RecoveryTimeHours: 24,
		PopulationServed:  100000,
		CriticalityScore:  0.9,
	})
	require.NoError(t, err)
}

// certainEdge always propagates: weight 1 and no capacity headroom make the
// cascade draw succeed for any severity-1 trigger.
func certainEdge(t *testing.T, store *topology.Store, source, target string) {
	t.Helper()
	err := store.AddEdge(&topology.Edge{
		SourceID:          source,
		TargetID:          target,
		Type:              topology.DependencyPower,
		Weight:            1.0,
		CapacityThreshold: 0.0,
	})
	require.NoError(t, err)
}

func TestSimulateChainCascade(t *testing.T) {
	store := topology.NewStore()
	addNode(t, store, "power", topology.PowerSubstation, 19.0, 1)
	addNode(t, store, "hospital", topology.Hospital, 22.0, 1)
	addNode(t, store, "water", topology.WaterPlant, 25.0, 1)
	certainEdge(t, store, "power", "hospital")
	certainEdge(t, store, "hospital", "water")

	sim := NewSimulator(store, rand.New(rand.NewSource(1)))
	result, err := sim.Simulate(context.Background(), Trigger{
		DisasterType: Earthquake,
		Epicenter:    epicenter,
		Severity:     1.0,
	})
	require.NoError(t, err)

	// The substation at the epicenter fails outright, then the chain falls
	// one hop per hour.
	assert.Equal(t, []string{"power", "hospital", "water"}, result.AffectedNodes)
	require.Len(t, result.Timeline, 3)
	assert.Equal(t, "initial", result.Timeline[0].FailureType)
	assert.Equal(t, "cascade", result.Timeline[1].FailureType)
	assert.Equal(t, "power", result.Timeline[1].SourceNodeID)
	assert.Equal(t, 0, result.Timeline[1].TimeHours)
	assert.Equal(t, "hospital", result.Timeline[2].SourceNodeID)
	assert.Equal(t, 1, result.Timeline[2].TimeHours)

	assert.Equal(t, 1.0, result.CascadeProbability)
	assert.Equal(t, 300000, result.PopulationImpact)
	// Earthquake recovery factor 1.5 over a uniform 24h base.
	assert.InDelta(t, 36.0, result.OutageDurationHours, 1e-9)

	// The store records the damage.
	for _, id := range result.AffectedNodes {
		node, err := store.Node(id)
		require.NoError(t, err)
		assert.True(t, node.Failed(), "node %s should be failed", id)
	}
}

func TestSimulateFarEpicenterHitsNothing(t *testing.T) {
	store := topology.NewStore()
	addNode(t, store, "power", topology.PowerSubstation, 19.0, 1)

	sim := NewSimulator(store, rand.New(rand.NewSource(1)))
	result, err := sim.Simulate(context.Background(), Trigger{
		DisasterType: Fire,
		Epicenter:    geo.Point{Lat: -40.0, Lon: 10.0},
		Severity:     0.3,
	})
	require.NoError(t, err)

	assert.Empty(t, result.AffectedNodes)
	assert.Empty(t, result.Timeline)
	assert.Zero(t, result.CascadeProbability)
	assert.Zero(t, result.PopulationImpact)
	assert.Zero(t, result.OutageDurationHours)
}

func TestSimulateZeroSeverity(t *testing.T) {
	store := topology.NewStore()
	addNode(t, store, "power", topology.PowerSubstation, 19.0, 1)

	sim := NewSimulator(store, rand.New(rand.NewSource(1)))
	result, err := sim.Simulate(context.Background(), Trigger{
		DisasterType: Earthquake,
		Epicenter:    epicenter,
		Severity:     0,
	})
	require.NoError(t, err)
	assert.Empty(t, result.AffectedNodes)
}

func TestRedundancyProtectionHolds(t *testing.T) {
	store := topology.NewStore()
	addNode(t, store, "p0", topology.PowerSubstation, 19.0, 1)
	addNode(t, store, "p1", topology.PowerSubstation, 25.0, 1)
	addNode(t, store, "p2", topology.PowerSubstation, 28.0, 1)
	addNode(t, store, "h", topology.Hospital, 22.0, 2)
	certainEdge(t, store, "p0", "h")
	certainEdge(t, store, "p1", "h")
	certainEdge(t, store, "p2", "h")

	sim := NewSimulator(store, rand.New(rand.NewSource(1)))
	result, err := sim.Simulate(context.Background(), Trigger{
		DisasterType: Earthquake,
		Epicenter:    epicenter,
		Severity:     1.0,
	})
	require.NoError(t, err)

	// p0 is lost but p1 and p2 still satisfy the hospital's redundancy
	// level, so the guaranteed-propagation edge never fires.
	assert.Contains(t, result.AffectedNodes, "p0")
	assert.NotContains(t, result.AffectedNodes, "h")
}

func TestRedundancyExhaustedCascades(t *testing.T) {
	store := topology.NewStore()
	addNode(t, store, "p0", topology.PowerSubstation, 19.0, 1)
	addNode(t, store, "p1", topology.PowerSubstation, 25.0, 1)
	addNode(t, store, "h", topology.Hospital, 22.0, 2)
	certainEdge(t, store, "p0", "h")
	certainEdge(t, store, "p1", "h")

	sim := NewSimulator(store, rand.New(rand.NewSource(1)))
	result, err := sim.Simulate(context.Background(), Trigger{
		DisasterType: Earthquake,
		Epicenter:    epicenter,
		Severity:     1.0,
	})
	require.NoError(t, err)

	// Only one healthy supply source remains, below the redundancy level,
	// so the hospital falls.
	assert.Contains(t, result.AffectedNodes, "h")
}

func TestSimulateTerminatesOnCycles(t *testing.T) {
	store := topology.NewStore()
	addNode(t, store, "a", topology.PowerSubstation, 19.0, 1)
	addNode(t, store, "b", topology.TelecomTower, 22.0, 1)
	addNode(t, store, "c", topology.WaterPlant, 25.0, 1)
	certainEdge(t, store, "a", "b")
	certainEdge(t, store, "b", "c")
	certainEdge(t, store, "c", "a")

	sim := NewSimulator(store, rand.New(rand.NewSource(1)))
	result, err := sim.Simulate(context.Background(), Trigger{
		DisasterType: Earthquake,
		Epicenter:    epicenter,
		Severity:     1.0,
	})
	require.NoError(t, err)

	assert.Len(t, result.AffectedNodes, 3)
	assert.Len(t, result.Timeline, 3)
}

func TestSimulateIsDeterministic(t *testing.T) {
	run := func() *Result {
		store := topology.NewStore()
		require.NoError(t, topology.Seed(store, topology.DefaultDistricts(), rand.New(rand.NewSource(99))))

		sim := NewSimulator(store, rand.New(rand.NewSource(7)))
		result, err := sim.Simulate(context.Background(), Trigger{
			DisasterType: Earthquake,
			Epicenter:    geo.Point{Lat: 19.0760, Lon: 72.8777},
			Severity:     0.8,
		})
		require.NoError(t, err)
		return result
	}

	first := run()
	second := run()
	assert.Equal(t, first.AffectedNodes, second.AffectedNodes)
	assert.Equal(t, first.Timeline, second.Timeline)
	assert.Equal(t, first.CascadeProbability, second.CascadeProbability)
	assert.Equal(t, first.PopulationImpact, second.PopulationImpact)
}

func TestTriggerValidation(t *testing.T) {
	store := topology.NewStore()
	addNode(t, store, "power", topology.PowerSubstation, 19.0, 1)
	sim := NewSimulator(store, rand.New(rand.NewSource(1)))

	cases := []struct {
		name    string
		trigger Trigger
		field   string
	}{
		{"unknown disaster", Trigger{DisasterType: "meteor", Epicenter: epicenter, Severity: 0.5}, "disaster_type"},
		{"severity above one", Trigger{DisasterType: Flood, Epicenter: epicenter, Severity: 1.5}, "severity"},
		{"negative severity", Trigger{DisasterType: Flood, Epicenter: epicenter, Severity: -0.1}, "severity"},
		{"bad epicenter", Trigger{DisasterType: Flood, Epicenter: geo.Point{Lat: 95, Lon: 0}, Severity: 0.5}, "epicenter"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sim.Simulate(context.Background(), tc.trigger)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestSimulateHonorsContext(t *testing.T) {
	store := topology.NewStore()
	addNode(t, store, "power", topology.PowerSubstation, 19.0, 1)
	addNode(t, store, "hospital", topology.Hospital, 22.0, 1)
	certainEdge(t, store, "power", "hospital")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := NewSimulator(store, rand.New(rand.NewSource(1)))
	_, err := sim.Simulate(ctx, Trigger{
		DisasterType: Earthquake,
		Epicenter:    epicenter,
		Severity:     1.0,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImpactRadius(t *testing.T) {
	assert.Equal(t, 200.0, Earthquake.ImpactRadiusKm(1.0))
	assert.Equal(t, 50.0, Flood.ImpactRadiusKm(0.5))
	assert.Equal(t, 300.0, Cyclone.ImpactRadiusKm(1.0))
	assert.Equal(t, 25.0, Fire.ImpactRadiusKm(0.5))
	assert.Equal(t, 25.0, Terrorism.ImpactRadiusKm(0.5))
}

// TestCascadeInvariants drives the simulator with arbitrary triggers and
// checks the invariants that must hold for every run.
func TestCascadeInvariants(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20

	properties := gopter.NewProperties(parameters)

	properties.Property("results stay internally consistent", prop.ForAll(
		func(severity, latOffset, lonOffset float64, seed int64) bool {
			store := topology.NewStore()
			if err := topology.Seed(store, topology.DefaultDistricts(), rand.New(rand.NewSource(42))); err != nil {
				return false
			}

			sim := NewSimulator(store, rand.New(rand.NewSource(seed)))
			result, err := sim.Simulate(context.Background(), Trigger{
				DisasterType: Earthquake,
				Epicenter:    geo.Point{Lat: 19.0760 + latOffset, Lon: 72.8777 + lonOffset},
				Severity:     severity,
			})
			if err != nil {
				return false
			}

			if result.CascadeProbability < 0 || result.CascadeProbability > 1 {
				return false
			}
			if len(result.Timeline) != len(result.AffectedNodes) {
				return false
			}
			if math.Abs(result.CascadeProbability-float64(len(result.AffectedNodes))/float64(store.NodeCount())) > 1e-9 {
				return false
			}

			seen := make(map[string]bool)
			for _, id := range result.AffectedNodes {
				if seen[id] {
					return false
				}
				seen[id] = true
				node, err := store.Node(id)
				if err != nil || !node.Failed() {
					return false
				}
			}
			return true
		},
		gen.Float64Range(0, 1),
		gen.Float64Range(-2, 2),
		gen.Float64Range(-2, 2),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

// TestSeverityMonotonicity estimates the expected failed fraction over
// repeated seeded runs and checks that raising the severity never shrinks it.
func TestSeverityMonotonicity(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping statistical test in short mode")
	}

	const runs = 60
	meanProbability := func(severity float64) float64 {
		total := 0.0
		for seed := int64(0); seed < runs; seed++ {
			store := topology.NewStore()
			require.NoError(t, topology.Seed(store, topology.DefaultDistricts(), rand.New(rand.NewSource(42))))

			sim := NewSimulator(store, rand.New(rand.NewSource(seed)))
			result, err := sim.Simulate(context.Background(), Trigger{
				DisasterType: Earthquake,
				Epicenter:    geo.Point{Lat: 19.0760, Lon: 72.8777},
				Severity:     severity,
			})
			require.NoError(t, err)
			total += result.CascadeProbability
		}
		return total / runs
	}

	severities := []float64{0.2, 0.5, 0.8}
	previous := meanProbability(severities[0])
	for _, severity := range severities[1:] {
		current := meanProbability(severity)
		assert.GreaterOrEqual(t, current+1e-9, previous,
			"mean cascade probability dropped at severity %.1f", severity)
		previous = current
	}
}
