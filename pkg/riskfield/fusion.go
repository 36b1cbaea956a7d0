// Package riskfield fuses risk observations from independent layers
// (satellite, weather, infrastructure, citizen reports, drones, seismic)
// into a single gridded national risk field. The cascade simulator feeds the
// infrastructure layer; the other layers arrive from their own collectors.
package riskfield

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sentinel-infra/gridtwin/pkg/cascade"
	"github.com/sentinel-infra/gridtwin/pkg/geo"
	"github.com/sentinel-infra/gridtwin/pkg/topology"
)

// SourceType identifies the layer an observation came from.
type SourceType string

const (
	SourceSatellite      SourceType = "satellite"
	SourceWeather        SourceType = "weather_forecast"
	SourceInfrastructure SourceType = "infrastructure_loads"
	SourceCitizen        SourceType = "citizen_telemetry"
	SourceDrone          SourceType = "drone_reconnaissance"
	SourceSeismic        SourceType = "seismic_sensors"
)

// fusionWeights ranks how much each layer contributes to a fused cell.
var fusionWeights = map[SourceType]float64{
	SourceSatellite:      0.25,
	SourceWeather:        0.20,
	SourceInfrastructure: 0.25,
	SourceCitizen:        0.15,
	SourceDrone:          0.10,
	SourceSeismic:        0.05,
}

// Intensity bands a fused cell value.
type Intensity string

const (
	IntensityLow      Intensity = "low"
	IntensityModerate Intensity = "moderate"
	IntensityHigh     Intensity = "high"
	IntensityCritical Intensity = "critical"
)

func intensity(value float64) Intensity {
	switch {
	case value >= 0.75:
		return IntensityCritical
	case value >= 0.5:
		return IntensityHigh
	case value >= 0.25:
		return IntensityModerate
	default:
		return IntensityLow
	}
}

// Observation is a single risk reading from one layer.
type Observation struct {
	Source     SourceType `json:"source_type"`
	Location   geo.Point  `json:"location"`
	RiskValue  float64    `json:"risk_value"` // 0-1
	Confidence float64    `json:"confidence"` // 0-1
	Timestamp  time.Time  `json:"timestamp"`
}

// Bounds frames the fused grid.
type Bounds struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// DefaultBounds covers the national deployment area.
func DefaultBounds() Bounds {
	return Bounds{MinLat: 6, MaxLat: 38, MinLon: 68, MaxLon: 97}
}

// Cell is one fused grid cell with a non-trivial risk value.
type Cell struct {
	Location  geo.Point `json:"location"`
	Risk      float64   `json:"risk"`
	Intensity Intensity `json:"intensity"`
}

// Field is the fused national risk picture.
type Field struct {
	FieldID         uuid.UUID `json:"field_id"`
	Timestamp       time.Time `json:"timestamp"`
	ResolutionDeg   float64   `json:"grid_resolution"`
	Cells           []Cell    `json:"cells"`
	HighestRisk     Cell      `json:"highest_risk_location"`
	OverallRisk     float64   `json:"overall_risk_score"`
	SourcesIncluded []string  `json:"data_sources"`
}

// Fuser accumulates observations and produces fused fields.
type Fuser struct {
	bounds     Bounds
	resolution float64
}

// NewFuser creates a fuser with the given grid bounds and resolution in
// degrees. Resolution must be positive.
func NewFuser(bounds Bounds, resolutionDeg float64) (*Fuser, error) {
	if resolutionDeg <= 0 {
		return nil, fmt.Errorf("riskfield: resolution must be positive, got %g", resolutionDeg)
	}
	if bounds.MaxLat <= bounds.MinLat || bounds.MaxLon <= bounds.MinLon {
		return nil, fmt.Errorf("riskfield: degenerate bounds")
	}
	return &Fuser{bounds: bounds, resolution: resolutionDeg}, nil
}

// Fuse combines observations into a gridded field. Each observation
// deposits weight×confidence×risk into its cell; overlapping layers
// accumulate and the cell value saturates at 1.
func (f *Fuser) Fuse(observations []Observation) *Field {
	type acc struct {
		weighted float64
		weight   float64
	}
	cells := make(map[[2]int]*acc)
	sources := make(map[SourceType]bool)

	for _, obs := range observations {
		weight, ok := fusionWeights[obs.Source]
		if !ok || !obs.Location.Valid() {
			continue
		}
		row, col, inside := f.cellIndex(obs.Location)
		if !inside {
			continue
		}
		sources[obs.Source] = true
		w := weight * obs.Confidence
		a := cells[[2]int{row, col}]
		if a == nil {
			a = &acc{}
			cells[[2]int{row, col}] = a
		}
		a.weighted += w * obs.RiskValue
		a.weight += w
	}

	field := &Field{
		FieldID:       uuid.New(),
		Timestamp:     time.Now().UTC(),
		ResolutionDeg: f.resolution,
	}
	for s := range sources {
		field.SourcesIncluded = append(field.SourcesIncluded, string(s))
	}

	total := 0.0
	for idx, a := range cells {
		if a.weight == 0 {
			continue
		}
		risk := a.weighted / a.weight
		if risk > 1 {
			risk = 1
		}
		cell := Cell{
			Location:  f.cellCenter(idx[0], idx[1]),
			Risk:      risk,
			Intensity: intensity(risk),
		}
		field.Cells = append(field.Cells, cell)
		total += risk
		if risk > field.HighestRisk.Risk {
			field.HighestRisk = cell
		}
	}
	if len(field.Cells) > 0 {
		field.OverallRisk = total / float64(len(field.Cells))
	}
	return field
}

// InfrastructureLayer converts a cascade result into infrastructure-load
// observations: one per failed node, risk scaled by criticality.
func InfrastructureLayer(result *cascade.Result, store *topology.Store) []Observation {
	observations := make([]Observation, 0, len(result.AffectedNodes))
	for _, id := range result.AffectedNodes {
		node, err := store.Node(id)
		if err != nil {
			continue
		}
		observations = append(observations, Observation{
			Source:     SourceInfrastructure,
			Location:   node.Location,
			RiskValue:  result.Severity * node.CriticalityScore,
			Confidence: 0.9,
			Timestamp:  result.CompletedAt,
		})
	}
	return observations
}

func (f *Fuser) cellIndex(p geo.Point) (row, col int, inside bool) {
	if p.Lat < f.bounds.MinLat || p.Lat > f.bounds.MaxLat ||
		p.Lon < f.bounds.MinLon || p.Lon > f.bounds.MaxLon {
		return 0, 0, false
	}
	row = int((p.Lat - f.bounds.MinLat) / f.resolution)
	col = int((p.Lon - f.bounds.MinLon) / f.resolution)
	return row, col, true
}

func (f *Fuser) cellCenter(row, col int) geo.Point {
	return geo.Point{
		Lat: f.bounds.MinLat + (float64(row)+0.5)*f.resolution,
		Lon: f.bounds.MinLon + (float64(col)+0.5)*f.resolution,
	}
}
