package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/sentinel-infra/gridtwin/pkg/config"
	"github.com/sentinel-infra/gridtwin/pkg/logger"
	"github.com/sentinel-infra/gridtwin/pkg/simulation"
	"github.com/sentinel-infra/gridtwin/pkg/twin"
	"github.com/sentinel-infra/gridtwin/pkg/utils"

	// Import scenarios to register them
	_ "github.com/sentinel-infra/gridtwin/cmd/cascade-sweep"
	_ "github.com/sentinel-infra/gridtwin/cmd/earthquake-drill"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a drill scenario",
	Long:  `Run a drill scenario against a local twin engine, interactively or with specified parameters`,
	RunE:  runScenario,
}

func init() {
	runCmd.Flags().StringP("scenario", "s", "", "scenario name to run")
	runCmd.Flags().String("service-config", "", "service configuration file (YAML)")
}

func runScenario(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("service-config")
	svcConfig, err := config.LoadServiceOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("failed to load service configuration: %w", err)
	}

	logger.Progress("Building twin engine...")
	engine, err := twin.New(twin.Options{
		TopologyFile:           svcConfig.Engine.TopologyFile,
		Seed:                   svcConfig.Engine.Seed,
		StabilizationThreshold: svcConfig.Stabilization.Threshold,
		RiskResolutionDeg:      svcConfig.Engine.RiskResolutionDeg,
	})
	if err != nil {
		return fmt.Errorf("failed to build twin engine: %w", err)
	}
	logger.Successf("Twin ready with %d nodes", engine.Store().NodeCount())

	scenName, err := selectScenario(cmd)
	if err != nil {
		return fmt.Errorf("failed to select scenario: %w", err)
	}

	scenario, err := simulation.DefaultRegistry.Get(scenName)
	if err != nil {
		return fmt.Errorf("failed to get scenario: %w", err)
	}

	scenInfos, err := utils.DiscoverScenarios()
	if err != nil {
		return fmt.Errorf("failed to discover scenarios: %w", err)
	}

	var scenConfig *simulation.ScenarioConfig
	for _, info := range scenInfos {
		if info.Config.Name == scenName {
			scenConfig = &info.Config
			break
		}
	}

	if scenConfig == nil {
		return fmt.Errorf("scenario configuration not found for %s", scenName)
	}

	params, err := utils.PromptForParameters(scenConfig.Parameters)
	if err != nil {
		return fmt.Errorf("failed to get parameters: %w", err)
	}

	if err := scenario.Configure(params); err != nil {
		return fmt.Errorf("failed to configure scenario: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Warn("\nReceived interrupt signal, stopping scenario...")
		err := scenario.Stop()
		if err != nil {
			logger.Errorf("Failed to stop scenario: %v", err)
			return
		}
		cancel()
	}()

	logger.LogSection(fmt.Sprintf("Starting %s", scenario.Name()))
	if err := scenario.Run(ctx, engine); err != nil {
		return fmt.Errorf("scenario failed: %w", err)
	}

	logger.Success("Scenario completed successfully")
	return nil
}

func selectScenario(cmd *cobra.Command) (string, error) {
	// Check if scenario is specified via flag
	scenName, _ := cmd.Flags().GetString("scenario")
	if scenName != "" {
		return scenName, nil
	}

	// Discover available scenarios
	scenInfos, err := utils.DiscoverScenarios()
	if err != nil {
		return "", err
	}

	if len(scenInfos) == 0 {
		return "", fmt.Errorf("no scenarios found")
	}

	// Build options for selection
	options := make([]string, len(scenInfos))
	descriptions := make(map[string]string)

	for i, info := range scenInfos {
		options[i] = info.Config.Name
		descriptions[info.Config.Name] = info.Config.Description
	}

	// Interactive selection
	var selected string
	prompt := &survey.Select{
		Message: "Select scenario:",
		Options: options,
		Description: func(value string, index int) string {
			return descriptions[value]
		},
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}

	return selected, nil
}
