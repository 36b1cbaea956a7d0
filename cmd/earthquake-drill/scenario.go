// Package earthquakedrill runs a single earthquake drill against one
// district, optionally generating a stabilization plan and an
// after-action report.
package earthquakedrill

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fatih/color"

	"github.com/sentinel-infra/gridtwin/pkg/cascade"
	"github.com/sentinel-infra/gridtwin/pkg/logger"
	"github.com/sentinel-infra/gridtwin/pkg/report"
	"github.com/sentinel-infra/gridtwin/pkg/simulation"
	"github.com/sentinel-infra/gridtwin/pkg/stabilize"
	"github.com/sentinel-infra/gridtwin/pkg/topology"
	"github.com/sentinel-infra/gridtwin/pkg/twin"
)

// Status line colors
var (
	colorSevere    = color.New(color.FgRed, color.Bold)
	colorPartial   = color.New(color.FgYellow)
	colorContained = color.New(color.FgGreen)
)

// Drill is a single-district earthquake exercise.
type Drill struct {
	config   *Config
	mu       sync.Mutex
	stopChan chan struct{}
}

// NewDrill creates a new instance of the earthquake drill
func NewDrill() simulation.Scenario {
	return &Drill{
		stopChan: make(chan struct{}),
	}
}

// Name returns the scenario name
func (d *Drill) Name() string {
	return "Earthquake Drill"
}

// Description returns what the drill exercises
func (d *Drill) Description() string {
	return "Single earthquake at a district center with optional stabilization planning and after-action report"
}

// Configure validates and stores the parameters
func (d *Drill) Configure(params map[string]interface{}) error {
	config, err := ValidateAndParse(params)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.config = config
	d.mu.Unlock()
	return nil
}

// Run executes the drill against the engine
func (d *Drill) Run(ctx context.Context, engine *twin.Engine) error {
	d.mu.Lock()
	config := d.config
	d.mu.Unlock()
	if config == nil {
		return fmt.Errorf("drill not configured")
	}

	district, err := findDistrict(config.District)
	if err != nil {
		return err
	}

	trigger := cascade.Trigger{
		DisasterType: cascade.Earthquake,
		Epicenter:    district.Center,
		Severity:     config.Severity,
	}

	logger.Alertf("Earthquake drill: %s, severity %.2f", district.Name, config.Severity)
	result, err := engine.Simulate(ctx, trigger)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}
	logger.Cascadef("%d nodes failed, cascade probability %.3f",
		len(result.AffectedNodes), result.CascadeProbability)
	fmt.Printf("Drill status: %s\n", statusLabel(result.CascadeProbability))

	select {
	case <-d.stopChan:
		return fmt.Errorf("drill stopped")
	default:
	}

	var plan *stabilize.Plan
	if config.WithPlan {
		plan, err = engine.GeneratePlan(ctx, trigger)
		if err != nil {
			var na *stabilize.NotApplicableError
			if errors.As(err, &na) {
				logger.Progressf("No stabilization needed: %v", na)
			} else {
				return fmt.Errorf("plan generation failed: %w", err)
			}
		} else {
			logger.Successf("Plan %s: %d actions, %.1f%% expected reduction",
				plan.PlanID, len(plan.Actions), plan.ExpectedRiskReductionPct)
		}
	}

	generator := report.NewGenerator(engine.Store(), report.Config{
		OutputDir:   config.ReportDir,
		Format:      config.ReportFormat,
		DetailLevel: "full",
	})
	aar := generator.Generate(result, plan)
	generator.PrintSummary(aar)
	if _, err := generator.Save(aar); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

// Stop signals the drill to abort between phases
func (d *Drill) Stop() error {
	close(d.stopChan)
	return nil
}

func statusLabel(probability float64) string {
	switch {
	case probability >= 0.5:
		return colorSevere.Sprint("SEVERE")
	case probability >= 0.25:
		return colorPartial.Sprint("PARTIAL")
	default:
		return colorContained.Sprint("CONTAINED")
	}
}

func findDistrict(name string) (topology.District, error) {
	for _, district := range topology.DefaultDistricts() {
		if district.Name == name {
			return district, nil
		}
	}
	return topology.District{}, fmt.Errorf("unknown district: %s", name)
}

func init() {
	err := simulation.DefaultRegistry.Register("Earthquake Drill", NewDrill)
	if err != nil {
		logger.Errorf("failed to register earthquake drill: %v", err)
	}
}
