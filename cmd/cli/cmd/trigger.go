package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/sentinel-infra/gridtwin/pkg/api"
	"github.com/sentinel-infra/gridtwin/pkg/cascade"
	"github.com/sentinel-infra/gridtwin/pkg/client"
	"github.com/sentinel-infra/gridtwin/pkg/config"
	"github.com/sentinel-infra/gridtwin/pkg/logger"
	"github.com/sentinel-infra/gridtwin/pkg/stabilize"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Trigger a cascade on a remote twin server",
	Long: `Trigger a cascade simulation against a running twin server and
print the outcome. With --plan, also requests a stabilization plan for
the same trigger.`,
	RunE: triggerCascade,
}

func init() {
	triggerCmd.Flags().String("disaster", "earthquake", "disaster type (earthquake, flood, cyclone, fire, terrorism)")
	triggerCmd.Flags().Float64("lat", 0, "epicenter latitude")
	triggerCmd.Flags().Float64("lon", 0, "epicenter longitude")
	triggerCmd.Flags().Float64("severity", 0.5, "severity in [0,1]")
	triggerCmd.Flags().Bool("plan", false, "also request a stabilization plan")
	_ = triggerCmd.MarkFlagRequired("lat")
	_ = triggerCmd.MarkFlagRequired("lon")
}

func triggerCascade(cmd *cobra.Command, _ []string) error {
	env, err := selectEnvironment()
	if err != nil {
		return fmt.Errorf("failed to select environment: %w", err)
	}

	twinClient, err := client.NewClient(client.Config{BaseURL: env.URL})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	ctx := context.Background()

	logger.Progress("Checking server health...")
	health, err := twinClient.Health(ctx)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	logger.Successf("Connected to %s (%d nodes)", env.URL, health.NodeCount)

	disaster, _ := cmd.Flags().GetString("disaster")
	lat, _ := cmd.Flags().GetFloat64("lat")
	lon, _ := cmd.Flags().GetFloat64("lon")
	severity, _ := cmd.Flags().GetFloat64("severity")

	req := &api.SimulateRequest{
		DisasterType: disaster,
		EpicenterLat: lat,
		EpicenterLon: lon,
		Severity:     severity,
	}

	logger.Alertf("Triggering %s at (%.3f, %.3f), severity %.2f", disaster, lat, lon, severity)
	var result *cascade.Result
	err = logger.WithSpinner("Running cascade simulation", func() error {
		var simErr error
		result, simErr = twinClient.TriggerCascade(ctx, req)
		return simErr
	})
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	logger.LogSection("Cascade Result")
	logger.LogKeyValue("Simulation", result.SimulationID.String())
	logger.LogKeyValue("Affected nodes", fmt.Sprintf("%d", len(result.AffectedNodes)))
	logger.LogKeyValue("Cascade probability", fmt.Sprintf("%.3f", result.CascadeProbability))
	logger.LogKeyValue("Population impact", fmt.Sprintf("%d", result.PopulationImpact))
	logger.LogKeyValue("Outage duration", fmt.Sprintf("%.1f h", result.OutageDurationHours))
	logger.LogKeyValue("Economic impact", fmt.Sprintf("$%.0f", result.EconomicImpactUSD))

	wantPlan, _ := cmd.Flags().GetBool("plan")
	if !wantPlan {
		return nil
	}

	plan, err := twinClient.GeneratePlan(ctx, req)
	if err != nil {
		var na *stabilize.NotApplicableError
		if errors.As(err, &na) {
			logger.Progressf("No stabilization needed: %v", na)
			return nil
		}
		return fmt.Errorf("plan generation failed: %w", err)
	}

	logger.LogSection("Stabilization Plan")
	logger.LogKeyValue("Plan", plan.PlanID)
	logger.LogKeyValue("Actions", fmt.Sprintf("%d", len(plan.Actions)))
	logger.LogKeyValue("Expected reduction", fmt.Sprintf("%.1f%%", plan.ExpectedRiskReductionPct))
	logger.LogKeyValue("Execution time", fmt.Sprintf("%d min", plan.TotalExecutionTimeMinutes))
	items := make([]string, 0, len(plan.Actions))
	for _, action := range plan.Actions {
		items = append(items, fmt.Sprintf("%s on %s (%s priority, %d min)",
			action.Type, action.TargetNode, action.Priority, action.ExecutionTimeMinutes))
	}
	logger.LogList("Actions", items)
	return nil
}

func selectEnvironment() (*config.Environment, error) {
	// Check if URL is provided via flag or environment variable
	if envURL != "" {
		return &config.Environment{Name: "Custom", URL: envURL}, nil
	}

	if serverURL := os.Getenv("GRIDTWIN_URL"); serverURL != "" {
		return &config.Environment{Name: "Environment", URL: serverURL}, nil
	}

	envs, err := config.LoadEnvironments()
	if err != nil {
		return nil, err
	}

	// Check if environment is specified via flag
	if envName != "" {
		for _, env := range envs.Environments {
			if env.Name == envName {
				return &env, nil
			}
		}
		return nil, fmt.Errorf("environment %s not found", envName)
	}

	if len(envs.Environments) == 1 {
		return &envs.Environments[0], nil
	}

	// Interactive selection
	options := make([]string, len(envs.Environments))
	for i, env := range envs.Environments {
		options[i] = env.Name
	}

	var selected string
	prompt := &survey.Select{
		Message: "Select environment:",
		Options: options,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return nil, err
	}

	for _, env := range envs.Environments {
		if env.Name == selected {
			return &env, nil
		}
	}
	return nil, fmt.Errorf("environment not found")
}
