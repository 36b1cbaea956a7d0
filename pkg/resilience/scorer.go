// Package resilience scores each district's capacity to withstand and
// recover from disruption. Infrastructure health comes from the topology
// store; the remaining signals are external collaborators injected behind
// the Signals interface.
package resilience

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/sentinel-infra/gridtwin/pkg/geo"
	"github.com/sentinel-infra/gridtwin/pkg/topology"
)

// Signal weights for the composite score. They sum to 1.
const (
	weightInfrastructure = 0.25
	weightWeather        = 0.20
	weightHealthcare     = 0.20
	weightTelecom        = 0.15
	weightEnergy         = 0.20
)

// RiskLevel bands an overall score for operators.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
)

// riskLevel bands a 0-1 score.
func riskLevel(score float64) RiskLevel {
	switch {
	case score < 0.3:
		return RiskCritical
	case score < 0.5:
		return RiskHigh
	case score < 0.7:
		return RiskMedium
	default:
		return RiskLow
	}
}

// trend labels the score's direction. Without a history store this is a
// banding of the current value, same as the advisory feed it replaces.
func trend(score float64) string {
	switch {
	case score > 0.7:
		return "improving"
	case score > 0.5:
		return "stable"
	default:
		return "declining"
	}
}

// Signals supplies the externally-modeled inputs for one district. Values
// are 0-1: weather and healthcare are risks/loads (higher is worse), telecom
// and energy are availabilities (higher is better).
type Signals interface {
	WeatherRisk(district string) float64
	HealthcareLoad(district string) float64
	TelecomAvailability(district string) float64
	EnergyRedundancy(district string) float64
}

// SimulatedSignals is the default Signals source: uniform draws in the
// observed real-world bands, from an injected random source.
type SimulatedSignals struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedSignals creates a simulated signal source. A nil rng falls
// back to a time-seeded one.
func NewSimulatedSignals(rng *rand.Rand) *SimulatedSignals {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SimulatedSignals{rng: rng}
}

func (s *SimulatedSignals) draw(min, max float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + s.rng.Float64()*(max-min)
}

func (s *SimulatedSignals) WeatherRisk(string) float64         { return s.draw(0.1, 0.8) }
func (s *SimulatedSignals) HealthcareLoad(string) float64      { return s.draw(0.3, 0.9) }
func (s *SimulatedSignals) TelecomAvailability(string) float64 { return s.draw(0.7, 0.95) }
func (s *SimulatedSignals) EnergyRedundancy(string) float64    { return s.draw(0.4, 0.9) }

// DistrictScore is the composite resilience result for one district.
type DistrictScore struct {
	District             string             `json:"district"`
	OverallScore         float64            `json:"overall_score"`
	CategoryScores       map[string]float64 `json:"category_scores"`
	PopulationServed     int                `json:"population_served"`
	InfrastructureHealth float64            `json:"infrastructure_health"`
	WeatherRisk          float64            `json:"weather_risk"`
	HealthcareLoad       float64            `json:"healthcare_load"`
	TelecomAvailability  float64            `json:"telecom_availability"`
	EnergyRedundancy     float64            `json:"energy_redundancy"`
	Trend                string             `json:"trend"`
	RiskLevel            RiskLevel          `json:"risk_level"`
	Timestamp            time.Time          `json:"timestamp"`
}

// HeatmapCell is one district's entry in the national heatmap payload.
type HeatmapCell struct {
	District        string             `json:"district"`
	Location        geo.Point          `json:"location"`
	ResilienceScore float64            `json:"resilience_score"`
	RiskLevel       RiskLevel          `json:"risk_level"`
	Population      int                `json:"population"`
	CategoryScores  map[string]float64 `json:"category_scores"`
	Trend           string             `json:"trend"`
}

// Heatmap is the payload backing the national resilience view.
type Heatmap struct {
	Cells             []HeatmapCell `json:"heatmap_data"`
	NationalAverage   float64       `json:"national_average"`
	CriticalDistricts int           `json:"critical_districts"`
	Timestamp         time.Time     `json:"timestamp"`
}

// Scorer computes district resilience scores over a topology store.
type Scorer struct {
	store     *topology.Store
	signals   Signals
	districts map[string]topology.District
}

// NewScorer wires a scorer to its store and signal source. The district
// catalog supplies centre coordinates for heatmaps.
func NewScorer(store *topology.Store, signals Signals, districts []topology.District) *Scorer {
	index := make(map[string]topology.District, len(districts))
	for _, d := range districts {
		index[d.Name] = d
	}
	return &Scorer{store: store, signals: signals, districts: index}
}

// ScoreDistrict computes the composite resilience score for one district.
func (s *Scorer) ScoreDistrict(district string) (*DistrictScore, error) {
	nodeIDs := s.store.NodesByDistrict(district)
	if len(nodeIDs) == 0 {
		return nil, fmt.Errorf("resilience: unknown district %q", district)
	}

	infra := s.store.DistrictMeanHealth(district)
	weather := s.signals.WeatherRisk(district)
	healthcare := s.signals.HealthcareLoad(district)
	telecom := s.signals.TelecomAvailability(district)
	energy := s.signals.EnergyRedundancy(district)

	overall := infra*weightInfrastructure +
		(1-weather)*weightWeather +
		(1-healthcare)*weightHealthcare +
		telecom*weightTelecom +
		energy*weightEnergy

	population := 0
	for _, id := range nodeIDs {
		if node, err := s.store.Node(id); err == nil {
			population += node.PopulationServed
		}
	}

	return &DistrictScore{
		District:     district,
		OverallScore: overall,
		CategoryScores: map[string]float64{
			"infrastructure": infra,
			"healthcare":     1 - healthcare,
			"telecom":        telecom,
			"energy":         energy,
			// Water and transport health track the physical plant closely.
			"water":     infra * 0.9,
			"transport": infra * 0.85,
		},
		PopulationServed:     population,
		InfrastructureHealth: infra,
		WeatherRisk:          weather,
		HealthcareLoad:       healthcare,
		TelecomAvailability:  telecom,
		EnergyRedundancy:     energy,
		Trend:                trend(overall),
		RiskLevel:            riskLevel(overall),
		Timestamp:            time.Now().UTC(),
	}, nil
}

// ScoreAll scores every district in the topology, sorted by name.
func (s *Scorer) ScoreAll() ([]*DistrictScore, error) {
	districts := s.store.Districts()
	scores := make([]*DistrictScore, 0, len(districts))
	for _, d := range districts {
		score, err := s.ScoreDistrict(d)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}
	return scores, nil
}

// BuildHeatmap scores all districts and assembles the national heatmap.
func (s *Scorer) BuildHeatmap() (*Heatmap, error) {
	scores, err := s.ScoreAll()
	if err != nil {
		return nil, err
	}

	heatmap := &Heatmap{Timestamp: time.Now().UTC()}
	total := 0.0
	for _, score := range scores {
		cell := HeatmapCell{
			District:        score.District,
			ResilienceScore: score.OverallScore,
			RiskLevel:       score.RiskLevel,
			Population:      score.PopulationServed,
			CategoryScores:  score.CategoryScores,
			Trend:           score.Trend,
		}
		if d, ok := s.districts[score.District]; ok {
			cell.Location = d.Center
		}
		heatmap.Cells = append(heatmap.Cells, cell)
		total += score.OverallScore
		if score.RiskLevel == RiskCritical {
			heatmap.CriticalDistricts++
		}
	}
	if len(scores) > 0 {
		heatmap.NationalAverage = total / float64(len(scores))
	}
	sort.Slice(heatmap.Cells, func(i, j int) bool { return heatmap.Cells[i].District < heatmap.Cells[j].District })
	return heatmap, nil
}
