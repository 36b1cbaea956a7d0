package simulation

import (
	"context"

	"github.com/sentinel-infra/gridtwin/pkg/twin"
)

// Scenario defines the interface that all drill scenarios must implement
type Scenario interface {
	// Name returns the name of the scenario
	Name() string

	// Description returns a brief description of what the scenario exercises
	Description() string

	// Configure sets up the scenario with the provided parameters
	Configure(params map[string]interface{}) error

	// Run executes the scenario against the provided twin engine
	Run(ctx context.Context, engine *twin.Engine) error

	// Stop gracefully shuts down the scenario
	Stop() error
}
