package earthquakedrill

import (
	"fmt"
	"strings"
)

// Config holds the configuration for the earthquake drill
type Config struct {
	District     string
	Severity     float64
	WithPlan     bool
	ReportFormat string
	ReportDir    string
}

// ValidateAndParse validates and parses the raw parameters into a Config
func ValidateAndParse(params map[string]interface{}) (*Config, error) {
	config := &Config{}

	// Parse district
	if v, ok := params["district"]; ok {
		config.District = strings.ToLower(fmt.Sprintf("%v", v))
	}
	if config.District == "" {
		return nil, fmt.Errorf("district is required")
	}

	// Parse severity
	if v, ok := params["severity"]; ok {
		switch val := v.(type) {
		case float64:
			config.Severity = val
		case int:
			config.Severity = float64(val)
		default:
			return nil, fmt.Errorf("severity must be a number")
		}
	}
	if config.Severity <= 0 || config.Severity > 1 {
		return nil, fmt.Errorf("severity must be in (0,1]")
	}

	// Parse generate_plan
	if v, ok := params["generate_plan"]; ok {
		if b, ok := v.(bool); ok {
			config.WithPlan = b
		}
	}

	// Parse report_format
	config.ReportFormat = "markdown"
	if v, ok := params["report_format"]; ok {
		config.ReportFormat = fmt.Sprintf("%v", v)
	}
	if config.ReportFormat != "markdown" && config.ReportFormat != "json" {
		return nil, fmt.Errorf("report_format must be markdown or json")
	}

	// Parse report_dir
	config.ReportDir = "reports"
	if v, ok := params["report_dir"]; ok {
		config.ReportDir = fmt.Sprintf("%v", v)
	}

	return config, nil
}
