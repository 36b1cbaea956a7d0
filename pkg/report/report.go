// Package report generates after-action reports for cascade drills:
// a console summary plus a JSON or markdown artifact on disk.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sentinel-infra/gridtwin/pkg/cascade"
	"github.com/sentinel-infra/gridtwin/pkg/logger"
	"github.com/sentinel-infra/gridtwin/pkg/stabilize"
	"github.com/sentinel-infra/gridtwin/pkg/topology"
)

// Config configures report generation.
type Config struct {
	OutputDir   string
	Format      string // "json", "markdown"
	DetailLevel string // "summary", "full"
}

// Report is an after-action report for one cascade drill.
type Report struct {
	Metadata        Metadata           `json:"metadata"`
	Summary         ExecutiveSummary   `json:"summary"`
	Timeline        []TimelineEntry    `json:"timeline"`
	DistrictImpacts []DistrictImpact   `json:"district_impacts"`
	Stabilization   *StabilizationNote `json:"stabilization,omitempty"`
	Recommendations []Recommendation   `json:"recommendations"`
}

// Metadata contains report metadata.
type Metadata struct {
	SimulationID string    `json:"simulation_id"`
	DisasterType string    `json:"disaster_type"`
	Severity     float64   `json:"severity"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// ExecutiveSummary provides the high-level outcome.
type ExecutiveSummary struct {
	Outcome             string  `json:"outcome"`
	NodesAffected       int     `json:"nodes_affected"`
	CascadeProbability  float64 `json:"cascade_probability"`
	PopulationImpact    int     `json:"population_impact"`
	OutageDurationHours float64 `json:"outage_duration_hours"`
	EconomicImpactUSD   float64 `json:"economic_impact_usd"`
	WorstDistrict       string  `json:"worst_district"`
	InitialFailures     int     `json:"initial_failures"`
	CascadedFailures    int     `json:"cascaded_failures"`
	CascadeDepthHours   float64 `json:"cascade_depth_hours"`
}

// TimelineEntry is one failure in chronological order.
type TimelineEntry struct {
	TimeHours      float64 `json:"time_hours"`
	NodeID         string  `json:"node_id"`
	NodeName       string  `json:"node_name"`
	FailureType    string  `json:"failure_type"`
	SourceNodeID   string  `json:"source_node_id,omitempty"`
	DependencyType string  `json:"dependency_type,omitempty"`
}

// DistrictImpact aggregates failures per district.
type DistrictImpact struct {
	District    string `json:"district"`
	FailedNodes int    `json:"failed_nodes"`
	TotalNodes  int    `json:"total_nodes"`
}

// StabilizationNote records the plan attached to the drill, if any.
type StabilizationNote struct {
	PlanID               string  `json:"plan_id"`
	ActionCount          int     `json:"action_count"`
	ExpectedReductionPct float64 `json:"expected_risk_reduction_percent"`
	ExecutionMinutes     int     `json:"total_execution_time_minutes"`
	ConfidenceScore      float64 `json:"confidence_score"`
}

// Recommendation represents a follow-up for grid operators.
type Recommendation struct {
	Priority    string `json:"priority"` // "High", "Medium", "Low"
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Generator builds reports from simulation results.
type Generator struct {
	store  *topology.Store
	config Config
}

// NewGenerator creates a report generator.
func NewGenerator(store *topology.Store, config Config) *Generator {
	if config.Format == "" {
		config.Format = "markdown"
	}
	if config.OutputDir == "" {
		config.OutputDir = "reports"
	}
	return &Generator{store: store, config: config}
}

// Generate builds a report from a result and an optional plan.
func (g *Generator) Generate(result *cascade.Result, plan *stabilize.Plan) *Report {
	report := &Report{
		Metadata: Metadata{
			SimulationID: result.SimulationID.String(),
			DisasterType: string(result.DisasterType),
			Severity:     result.Severity,
			GeneratedAt:  time.Now(),
		},
	}

	report.Summary = g.buildSummary(result)
	report.Timeline = g.buildTimeline(result)
	report.DistrictImpacts = g.buildDistrictImpacts(result)
	if plan != nil {
		report.Stabilization = &StabilizationNote{
			PlanID:               plan.PlanID,
			ActionCount:          len(plan.Actions),
			ExpectedReductionPct: plan.ExpectedRiskReductionPct,
			ExecutionMinutes:     plan.TotalExecutionTimeMinutes,
			ConfidenceScore:      plan.ConfidenceScore,
		}
	}
	report.Recommendations = g.buildRecommendations(report)

	return report
}

// Save writes the report artifact and returns its path.
func (g *Generator) Save(report *Report) (string, error) {
	if err := os.MkdirAll(g.config.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	id := report.Metadata.SimulationID
	if len(id) > 8 {
		id = id[:8]
	}
	filename := fmt.Sprintf("drill_%s_%s", id, timestamp)

	var path string
	var err error
	switch g.config.Format {
	case "json":
		path = filepath.Join(g.config.OutputDir, filename+".json")
		err = g.saveJSON(report, path)
	case "markdown":
		path = filepath.Join(g.config.OutputDir, filename+".md")
		err = g.saveMarkdown(report, path)
	default:
		return "", fmt.Errorf("unsupported format: %s", g.config.Format)
	}

	if err == nil {
		logger.Successf("report saved to: %s", path)
	}
	return path, err
}

// PrintSummary prints the console summary.
func (g *Generator) PrintSummary(report *Report) {
	logger.LogSection("After-Action Report")
	logger.LogKeyValue("Simulation", report.Metadata.SimulationID)
	logger.LogKeyValue("Disaster", fmt.Sprintf("%s (severity %.2f)", report.Metadata.DisasterType, report.Metadata.Severity))
	logger.LogKeyValue("Outcome", report.Summary.Outcome)
	logger.LogKeyValue("Affected nodes", fmt.Sprintf("%d (%d initial, %d cascaded)",
		report.Summary.NodesAffected, report.Summary.InitialFailures, report.Summary.CascadedFailures))
	logger.LogKeyValue("Cascade probability", fmt.Sprintf("%.3f", report.Summary.CascadeProbability))
	logger.LogKeyValue("Population impact", fmt.Sprintf("%d", report.Summary.PopulationImpact))
	logger.LogKeyValue("Outage duration", fmt.Sprintf("%.1f h", report.Summary.OutageDurationHours))
	logger.LogKeyValue("Economic impact", fmt.Sprintf("$%.0f", report.Summary.EconomicImpactUSD))
	if report.Summary.WorstDistrict != "" {
		logger.LogKeyValue("Worst district", report.Summary.WorstDistrict)
	}
	if report.Stabilization != nil {
		logger.LogSubSection("Stabilization")
		logger.LogKeyValue("Plan", report.Stabilization.PlanID)
		logger.LogKeyValue("Actions", fmt.Sprintf("%d", report.Stabilization.ActionCount))
		logger.LogKeyValue("Expected reduction", fmt.Sprintf("%.1f%%", report.Stabilization.ExpectedReductionPct))
	}
	if len(report.Recommendations) > 0 {
		items := make([]string, 0, len(report.Recommendations))
		for _, rec := range report.Recommendations {
			items = append(items, fmt.Sprintf("[%s] %s", rec.Priority, rec.Title))
		}
		logger.LogList("Recommendations", items)
	}
}

func (g *Generator) buildSummary(result *cascade.Result) ExecutiveSummary {
	summary := ExecutiveSummary{
		NodesAffected:       len(result.AffectedNodes),
		CascadeProbability:  result.CascadeProbability,
		PopulationImpact:    result.PopulationImpact,
		OutageDurationHours: result.OutageDurationHours,
		EconomicImpactUSD:   result.EconomicImpactUSD,
	}

	for _, event := range result.Timeline {
		if event.FailureType == "initial" {
			summary.InitialFailures++
		} else {
			summary.CascadedFailures++
		}
		if float64(event.TimeHours) > summary.CascadeDepthHours {
			summary.CascadeDepthHours = float64(event.TimeHours)
		}
	}

	impacts := g.buildDistrictImpacts(result)
	worst := 0
	for _, impact := range impacts {
		if impact.FailedNodes > worst {
			worst = impact.FailedNodes
			summary.WorstDistrict = impact.District
		}
	}

	switch {
	case summary.NodesAffected == 0:
		summary.Outcome = "No infrastructure failures"
	case summary.CascadedFailures == 0:
		summary.Outcome = "Contained - no cascade beyond initial impact"
	case result.CascadeProbability >= 0.5:
		summary.Outcome = "Severe cascade across the dependency graph"
	default:
		summary.Outcome = "Partial cascade with limited spread"
	}

	return summary
}

func (g *Generator) buildTimeline(result *cascade.Result) []TimelineEntry {
	timeline := make([]TimelineEntry, 0, len(result.Timeline))
	for _, event := range result.Timeline {
		timeline = append(timeline, TimelineEntry{
			TimeHours:      float64(event.TimeHours),
			NodeID:         event.NodeID,
			NodeName:       event.NodeName,
			FailureType:    event.FailureType,
			SourceNodeID:   event.SourceNodeID,
			DependencyType: string(event.DependencyType),
		})
	}
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].TimeHours < timeline[j].TimeHours
	})
	return timeline
}

func (g *Generator) buildDistrictImpacts(result *cascade.Result) []DistrictImpact {
	failed := make(map[string]bool, len(result.AffectedNodes))
	for _, id := range result.AffectedNodes {
		failed[id] = true
	}

	impacts := make([]DistrictImpact, 0)
	for _, district := range g.store.Districts() {
		impact := DistrictImpact{District: district}
		for _, id := range g.store.NodesByDistrict(district) {
			impact.TotalNodes++
			if failed[id] {
				impact.FailedNodes++
			}
		}
		if impact.TotalNodes > 0 {
			impacts = append(impacts, impact)
		}
	}
	return impacts
}

func (g *Generator) buildRecommendations(report *Report) []Recommendation {
	recs := make([]Recommendation, 0)

	if report.Summary.CascadeProbability >= 0.5 {
		recs = append(recs, Recommendation{
			Priority:    "High",
			Category:    "Redundancy",
			Title:       "Increase redundancy on critical dependency paths",
			Description: "More than half of the network failed; additional backup feeds would break the dominant cascade chains.",
		})
	}
	if report.Summary.CascadedFailures > report.Summary.InitialFailures {
		recs = append(recs, Recommendation{
			Priority:    "High",
			Category:    "Isolation",
			Title:       "Pre-position grid isolation procedures",
			Description: "Cascaded failures outnumbered direct damage; faster sectionalizing would limit propagation.",
		})
	}
	if report.Summary.OutageDurationHours > 48 {
		recs = append(recs, Recommendation{
			Priority:    "Medium",
			Category:    "Recovery",
			Title:       "Stage repair crews near the worst district",
			Description: fmt.Sprintf("Projected outage of %.0f hours exceeds two days; pre-staged crews shorten restoration.", report.Summary.OutageDurationHours),
		})
	}
	if report.Stabilization == nil && report.Summary.NodesAffected > 0 {
		recs = append(recs, Recommendation{
			Priority:    "Low",
			Category:    "Planning",
			Title:       "Generate a stabilization plan for this scenario",
			Description: "No plan was attached to this drill; rerun with stabilization enabled to quantify mitigation options.",
		})
	}

	return recs
}

func (g *Generator) saveJSON(report *Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func (g *Generator) saveMarkdown(report *Report, path string) error {
	var sb strings.Builder

	sb.WriteString("# After-Action Report\n\n")
	sb.WriteString(fmt.Sprintf("**Simulation ID:** %s\n", report.Metadata.SimulationID))
	sb.WriteString(fmt.Sprintf("**Disaster:** %s (severity %.2f)\n", report.Metadata.DisasterType, report.Metadata.Severity))
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.Metadata.GeneratedAt.Format("2006-01-02 15:04:05")))

	sb.WriteString("## Executive Summary\n\n")
	sb.WriteString(fmt.Sprintf("**Outcome:** %s\n\n", report.Summary.Outcome))
	sb.WriteString(fmt.Sprintf("- **Affected nodes:** %d (%d initial, %d cascaded)\n",
		report.Summary.NodesAffected, report.Summary.InitialFailures, report.Summary.CascadedFailures))
	sb.WriteString(fmt.Sprintf("- **Cascade probability:** %.3f\n", report.Summary.CascadeProbability))
	sb.WriteString(fmt.Sprintf("- **Population impact:** %d\n", report.Summary.PopulationImpact))
	sb.WriteString(fmt.Sprintf("- **Outage duration:** %.1f hours\n", report.Summary.OutageDurationHours))
	sb.WriteString(fmt.Sprintf("- **Economic impact:** $%.0f\n", report.Summary.EconomicImpactUSD))
	if report.Summary.WorstDistrict != "" {
		sb.WriteString(fmt.Sprintf("- **Worst district:** %s\n", report.Summary.WorstDistrict))
	}
	sb.WriteString("\n")

	sb.WriteString("## District Impacts\n\n")
	sb.WriteString("| District | Failed | Total |\n|---|---|---|\n")
	for _, impact := range report.DistrictImpacts {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d |\n", impact.District, impact.FailedNodes, impact.TotalNodes))
	}
	sb.WriteString("\n")

	if report.Stabilization != nil {
		sb.WriteString("## Stabilization Plan\n\n")
		sb.WriteString(fmt.Sprintf("- **Plan ID:** %s\n", report.Stabilization.PlanID))
		sb.WriteString(fmt.Sprintf("- **Actions:** %d\n", report.Stabilization.ActionCount))
		sb.WriteString(fmt.Sprintf("- **Expected risk reduction:** %.1f%%\n", report.Stabilization.ExpectedReductionPct))
		sb.WriteString(fmt.Sprintf("- **Execution time:** %d minutes\n", report.Stabilization.ExecutionMinutes))
		sb.WriteString(fmt.Sprintf("- **Confidence:** %.2f\n\n", report.Stabilization.ConfidenceScore))
	}

	if g.config.DetailLevel == "full" && len(report.Timeline) > 0 {
		sb.WriteString("## Failure Timeline\n\n")
		sb.WriteString("| T+hours | Node | Type | Source |\n|---|---|---|---|\n")
		for _, entry := range report.Timeline {
			sb.WriteString(fmt.Sprintf("| %.1f | %s | %s | %s |\n",
				entry.TimeHours, entry.NodeName, entry.FailureType, entry.SourceNodeID))
		}
		sb.WriteString("\n")
	}

	if len(report.Recommendations) > 0 {
		sb.WriteString("## Recommendations\n\n")
		for _, rec := range report.Recommendations {
			sb.WriteString(fmt.Sprintf("### %s (%s Priority)\n", rec.Title, rec.Priority))
			sb.WriteString(fmt.Sprintf("%s\n\n", rec.Description))
		}
	}

	return os.WriteFile(path, []byte(sb.String()), 0644)
}
