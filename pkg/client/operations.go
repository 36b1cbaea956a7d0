package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sentinel-infra/gridtwin/pkg/api"
	"github.com/sentinel-infra/gridtwin/pkg/cascade"
	"github.com/sentinel-infra/gridtwin/pkg/resilience"
	"github.com/sentinel-infra/gridtwin/pkg/stabilize"
)

// TriggerCascade runs a cascade simulation on the server.
func (c *GridTwin) TriggerCascade(ctx context.Context, req *api.SimulateRequest) (*cascade.Result, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/cascade/simulate", req)
	if err != nil {
		return nil, fmt.Errorf("failed to trigger cascade: %w", err)
	}

	var result cascade.Result
	if err := decodeResponse(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to decode simulation result: %w", err)
	}

	return &result, nil
}

// GeneratePlan asks the server for a stabilization plan. A not_applicable
// status on the wire is surfaced as *stabilize.NotApplicableError.
func (c *GridTwin) GeneratePlan(ctx context.Context, req *api.PlanRequest) (*stabilize.Plan, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/stabilization/plan", req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate plan: %w", err)
	}

	var raw json.RawMessage
	if err := decodeResponse(resp, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode plan response: %w", err)
	}

	var envelope struct {
		Status             string  `json:"status"`
		CascadeProbability float64 `json:"cascade_probability"`
		Threshold          float64 `json:"threshold"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode plan response: %w", err)
	}
	if envelope.Status == "not_applicable" {
		return nil, &stabilize.NotApplicableError{
			Probability: envelope.CascadeProbability,
			Threshold:   envelope.Threshold,
		}
	}

	var plan stabilize.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan response: %w", err)
	}
	return &plan, nil
}

// ActivePlans lists the server's unexpired plans.
func (c *GridTwin) ActivePlans(ctx context.Context) ([]*stabilize.Plan, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/stabilization/plans", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	var envelope struct {
		Plans []*stabilize.Plan `json:"plans"`
	}
	if err := decodeResponse(resp, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode plans response: %w", err)
	}

	return envelope.Plans, nil
}

// ExecuteAction executes one plan action on the server.
func (c *GridTwin) ExecuteAction(ctx context.Context, actionID string) (*stabilize.ExecutionRecord, error) {
	path := fmt.Sprintf("/api/v1/stabilization/actions/%s/execute", actionID)
	resp, err := c.doRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to execute action: %w", err)
	}

	var record stabilize.ExecutionRecord
	if err := decodeResponse(resp, &record); err != nil {
		return nil, fmt.Errorf("failed to decode execution record: %w", err)
	}

	return &record, nil
}

// Resilience fetches per-district resilience scores.
func (c *GridTwin) Resilience(ctx context.Context) ([]*resilience.DistrictScore, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/resilience", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch resilience scores: %w", err)
	}

	var envelope struct {
		Districts []*resilience.DistrictScore `json:"districts"`
	}
	if err := decodeResponse(resp, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode resilience response: %w", err)
	}

	return envelope.Districts, nil
}

// Heatmap fetches the national resilience heatmap.
func (c *GridTwin) Heatmap(ctx context.Context) (*resilience.Heatmap, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/resilience/heatmap", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch heatmap: %w", err)
	}

	var heatmap resilience.Heatmap
	if err := decodeResponse(resp, &heatmap); err != nil {
		return nil, fmt.Errorf("failed to decode heatmap response: %w", err)
	}

	return &heatmap, nil
}

// Health checks server liveness.
func (c *GridTwin) Health(ctx context.Context) (*api.HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	var health api.HealthResponse
	if err := decodeResponse(resp, &health); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}

	return &health, nil
}
