package topology

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/sentinel-infra/gridtwin/pkg/geo"
)

// District describes a seed catalog entry: where a district is centred and
// how many people it serves.
type District struct {
	Name       string    `yaml:"name"`
	Center     geo.Point `yaml:"center"`
	Population int       `yaml:"population"`
}

// DefaultDistricts is the built-in national catalog. The first entry is the
// grid hub: every other district's power couples to it for inter-regional
// transmission.
func DefaultDistricts() []District {
	return []District{
		{Name: "mumbai", Center: geo.Point{Lat: 19.0760, Lon: 72.8777}, Population: 12442373},
		{Name: "delhi", Center: geo.Point{Lat: 28.7041, Lon: 77.1025}, Population: 16787941},
		{Name: "bangalore", Center: geo.Point{Lat: 12.9716, Lon: 77.5946}, Population: 8443675},
		{Name: "kolkata", Center: geo.Point{Lat: 22.5726, Lon: 88.3639}, Population: 4496694},
		{Name: "chennai", Center: geo.Point{Lat: 13.0827, Lon: 80.2707}, Population: 4646732},
		{Name: "hyderabad", Center: geo.Point{Lat: 17.3850, Lon: 78.4867}, Population: 6809970},
		{Name: "pune", Center: geo.Point{Lat: 18.5204, Lon: 73.8567}, Population: 3124458},
		{Name: "ahmedabad", Center: geo.Point{Lat: 23.0225, Lon: 72.5714}, Population: 5577940},
		{Name: "jaipur", Center: geo.Point{Lat: 26.9124, Lon: 75.7873}, Population: 3073350},
		{Name: "surat", Center: geo.Point{Lat: 21.1702, Lon: 72.8311}, Population: 4467797},
	}
}

// Seed populates the store with the district catalog: per district three
// power substations, two hospitals, four telecom towers and one water plant,
// wired with the standard dependency pattern. The rng controls capacity and
// placement jitter so tests can seed reproducible topologies.
func Seed(store *Store, districts []District, rng *rand.Rand) error {
	if len(districts) == 0 {
		return fmt.Errorf("topology: seed requires at least one district")
	}

	for _, d := range districts {
		if err := seedDistrict(store, d, rng); err != nil {
			return err
		}
	}
	return seedEdges(store, districts)
}

func seedDistrict(store *Store, d District, rng *rand.Rand) error {
	title := titleCase(d.Name)

	for i := 0; i < 3; i++ {
		node := &Node{
			ID:                fmt.Sprintf("%s_power_%d", d.Name, i),
			Name:              fmt.Sprintf("%s Power Substation %d", title, i+1),
			Type:              PowerSubstation,
			District:          d.Name,
			Location:          jitter(d.Center, 0.1, rng),
			Capacity:          uniform(rng, 200, 500), // MW
			HealthScore:       1.0,
			RedundancyLevel:   1 + rng.Intn(2),
			RecoveryTimeHours: uniform(rng, 12, 48),
			PopulationServed:  d.Population / 3,
			CriticalityScore:  0.9,
		}
		if err := store.AddNode(node); err != nil {
			return err
		}
	}

	for i := 0; i < 2; i++ {
		node := &Node{
			ID:                fmt.Sprintf("%s_hospital_%d", d.Name, i),
			Name:              fmt.Sprintf("%s Central Hospital %d", title, i+1),
			Type:              Hospital,
			District:          d.Name,
			Location:          jitter(d.Center, 0.05, rng),
			Capacity:          uniform(rng, 500, 2000), // beds
			HealthScore:       1.0,
			RedundancyLevel:   1,
			RecoveryTimeHours: uniform(rng, 24, 72),
			PopulationServed:  d.Population / 2,
			CriticalityScore:  0.95,
		}
		if err := store.AddNode(node); err != nil {
			return err
		}
	}

	for i := 0; i < 4; i++ {
		node := &Node{
			ID:                fmt.Sprintf("%s_telecom_%d", d.Name, i),
			Name:              fmt.Sprintf("%s Telecom Tower %d", title, i+1),
			Type:              TelecomTower,
			District:          d.Name,
			Location:          jitter(d.Center, 0.08, rng),
			Capacity:          uniform(rng, 10000, 50000), // connections
			HealthScore:       1.0,
			RedundancyLevel:   2,
			RecoveryTimeHours: uniform(rng, 6, 24),
			PopulationServed:  d.Population / 4,
			CriticalityScore:  0.8,
		}
		if err := store.AddNode(node); err != nil {
			return err
		}
	}

	water := &Node{
		ID:                fmt.Sprintf("%s_water_0", d.Name),
		Name:              fmt.Sprintf("%s Water Treatment Plant", title),
		Type:              WaterPlant,
		District:          d.Name,
		Location:          jitter(d.Center, 0.05, rng),
		Capacity:          uniform(rng, 100, 500), // MLD
		HealthScore:       1.0,
		RedundancyLevel:   1,
		RecoveryTimeHours: uniform(rng, 24, 96),
		PopulationServed:  d.Population,
		CriticalityScore:  0.85,
	}
	return store.AddNode(water)
}

func seedEdges(store *Store, districts []District) error {
	hub := districts[0].Name
	hubPower := fmt.Sprintf("%s_power_0", hub)

	for _, d := range districts {
		// Hospitals draw from the district's first two substations.
		for i := 0; i < 2; i++ {
			for p := 0; p < 2; p++ {
				err := store.AddEdge(&Edge{
					SourceID:          fmt.Sprintf("%s_power_%d", d.Name, p),
					TargetID:          fmt.Sprintf("%s_hospital_%d", d.Name, i),
					Type:              DependencyPower,
					Weight:            0.9,
					CapacityThreshold: 0.7,
					RecoveryCoupling:  0.4,
				})
				if err != nil {
					return err
				}
			}
		}

		// Each telecom tower hangs off the first substation.
		for i := 0; i < 4; i++ {
			err := store.AddEdge(&Edge{
				SourceID:          fmt.Sprintf("%s_power_0", d.Name),
				TargetID:          fmt.Sprintf("%s_telecom_%d", d.Name, i),
				Type:              DependencyPower,
				Weight:            0.8,
				CapacityThreshold: 0.6,
				RecoveryCoupling:  0.3,
			})
			if err != nil {
				return err
			}
		}

		// The water plant draws from the first substation.
		err := store.AddEdge(&Edge{
			SourceID:          fmt.Sprintf("%s_power_0", d.Name),
			TargetID:          fmt.Sprintf("%s_water_0", d.Name),
			Type:              DependencyPower,
			Weight:            0.95,
			CapacityThreshold: 0.8,
			RecoveryCoupling:  0.5,
		})
		if err != nil {
			return err
		}

		// Inter-regional grid coupling back to the hub district.
		if d.Name != hub {
			err := store.AddEdge(&Edge{
				SourceID:          hubPower,
				TargetID:          fmt.Sprintf("%s_power_0", d.Name),
				Type:              DependencyPower,
				Weight:            0.6,
				CapacityThreshold: 0.5,
				RecoveryCoupling:  0.2,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func jitter(center geo.Point, spread float64, rng *rand.Rand) geo.Point {
	return geo.Point{
		Lat: center.Lat + uniform(rng, -spread, spread),
		Lon: center.Lon + uniform(rng, -spread, spread),
	}
}

func uniform(rng *rand.Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
