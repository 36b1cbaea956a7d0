// Package api defines the request and response envelopes shared by the
// gridtwin HTTP server, the Go client, and the CLI. The envelopes carry the
// four trigger parameters in and read-only simulation artifacts out.
package api

import (
	"github.com/sentinel-infra/gridtwin/pkg/cascade"
	"github.com/sentinel-infra/gridtwin/pkg/geo"
)

// SimulateRequest triggers a cascade simulation.
type SimulateRequest struct {
	// DisasterType is one of earthquake, flood, cyclone, fire, terrorism.
	DisasterType string `json:"disaster_type" binding:"required"`
	// EpicenterLat is the disaster origin latitude in decimal degrees.
	// No required binding: zero is a valid coordinate, the core checks bounds.
	EpicenterLat float64 `json:"epicenter_lat"`
	// EpicenterLon is the disaster origin longitude in decimal degrees.
	EpicenterLon float64 `json:"epicenter_lon"`
	// Severity is the hazard intensity, 0-1.
	Severity float64 `json:"severity"`
}

// Trigger converts the request into the core trigger type. Validation
// happens in the core, not here, so every entry path shares one rulebook.
func (r SimulateRequest) Trigger() cascade.Trigger {
	return cascade.Trigger{
		DisasterType: cascade.DisasterType(r.DisasterType),
		Epicenter:    geo.Point{Lat: r.EpicenterLat, Lon: r.EpicenterLon},
		Severity:     r.Severity,
	}
}

// PlanRequest asks for a stabilization plan; it carries the same trigger
// parameters as a simulation request.
type PlanRequest = SimulateRequest

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NotApplicableResponse reports the expected below-threshold planning
// outcome, distinct from an error.
type NotApplicableResponse struct {
	Status             string  `json:"status"` // always "not_applicable"
	CascadeProbability float64 `json:"cascade_probability"`
	Threshold          float64 `json:"threshold"`
}

// HealthResponse answers liveness probes.
type HealthResponse struct {
	Status    string `json:"status"`
	NodeCount int    `json:"node_count"`
}
