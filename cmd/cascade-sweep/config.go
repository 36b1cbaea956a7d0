package cascadesweep

import (
	"fmt"
	"strings"

	"github.com/sentinel-infra/gridtwin/pkg/cascade"
)

// Config holds the configuration for the severity sweep
type Config struct {
	District    string
	Disaster    cascade.DisasterType
	MinSeverity float64
	MaxSeverity float64
	Steps       int
}

// ValidateAndParse validates and parses the raw parameters into a Config
func ValidateAndParse(params map[string]interface{}) (*Config, error) {
	config := &Config{
		MinSeverity: 0.1,
		MaxSeverity: 0.9,
		Steps:       5,
	}

	// Parse district
	if v, ok := params["district"]; ok {
		config.District = strings.ToLower(fmt.Sprintf("%v", v))
	}
	if config.District == "" {
		return nil, fmt.Errorf("district is required")
	}

	// Parse disaster_type
	if v, ok := params["disaster_type"]; ok {
		config.Disaster = cascade.DisasterType(fmt.Sprintf("%v", v))
	}
	if !config.Disaster.Valid() {
		return nil, fmt.Errorf("disaster_type must be one of: earthquake, flood, cyclone, fire, terrorism")
	}

	// Parse severity bounds
	if v, ok := params["min_severity"]; ok {
		config.MinSeverity = toFloat(v)
	}
	if v, ok := params["max_severity"]; ok {
		config.MaxSeverity = toFloat(v)
	}
	if config.MinSeverity <= 0 || config.MaxSeverity > 1 || config.MinSeverity > config.MaxSeverity {
		return nil, fmt.Errorf("severity bounds must satisfy 0 < min <= max <= 1")
	}

	// Parse steps
	if v, ok := params["steps"]; ok {
		switch val := v.(type) {
		case int:
			config.Steps = val
		case float64:
			config.Steps = int(val)
		default:
			return nil, fmt.Errorf("steps must be an integer")
		}
	}
	if config.Steps < 2 || config.Steps > 50 {
		return nil, fmt.Errorf("steps must be between 2 and 50")
	}

	return config, nil
}

func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	default:
		return 0
	}
}
