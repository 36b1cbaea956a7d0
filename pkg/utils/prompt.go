package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/sentinel-infra/gridtwin/pkg/simulation"
)

// PromptForParameters collects a value for every declared scenario
// parameter. A GRIDTWIN_<NAME> environment variable overrides the manifest
// default, and GRIDTWIN_SKIP_PROMPTS=true suppresses the prompts entirely
// for automation.
func PromptForParameters(params []simulation.Parameter) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(params))
	for _, param := range params {
		value, err := resolveParameter(param)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", param.Name, err)
		}
		values[param.Name] = value
	}
	return values, nil
}

func resolveParameter(param simulation.Parameter) (interface{}, error) {
	envValue := os.Getenv("GRIDTWIN_" + strings.ToUpper(param.Name))

	if os.Getenv("GRIDTWIN_SKIP_PROMPTS") == "true" {
		if envValue != "" {
			return parseValue(envValue, param)
		}
		if param.Default != nil {
			return param.Default, nil
		}
		if param.Required {
			return nil, fmt.Errorf("required parameter %s not provided and no default available", param.Name)
		}
		return nil, nil
	}

	// An environment value becomes the prompt default, not a hard answer.
	if envValue != "" {
		if parsed, err := parseValue(envValue, param); err == nil {
			param.Default = parsed
		}
	}

	switch param.Type {
	case "integer":
		return promptInt(param)
	case "float":
		return promptFloat(param)
	case "string":
		return promptString(param)
	case "boolean":
		return promptBool(param)
	default:
		return nil, fmt.Errorf("unsupported parameter type: %s", param.Type)
	}
}

func parseValue(value string, param simulation.Parameter) (interface{}, error) {
	switch param.Type {
	case "integer":
		return strconv.Atoi(value)
	case "float":
		return strconv.ParseFloat(value, 64)
	case "boolean":
		return strconv.ParseBool(value)
	case "string":
		return value, nil
	default:
		return nil, fmt.Errorf("unsupported parameter type: %s", param.Type)
	}
}

func promptInt(param simulation.Parameter) (int, error) {
	raw, err := askInput(param)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	if err := checkRange(float64(value), param); err != nil {
		return 0, err
	}
	return value, nil
}

func promptFloat(param simulation.Parameter) (float64, error) {
	raw, err := askInput(param)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %w", err)
	}
	if err := checkRange(value, param); err != nil {
		return 0, err
	}
	return value, nil
}

func promptString(param simulation.Parameter) (string, error) {
	if len(param.Options) > 0 {
		prompt := &survey.Select{
			Message: param.Description,
			Options: param.Options,
			Default: defaultString(param),
		}
		var result string
		err := survey.AskOne(prompt, &result)
		return result, err
	}

	prompt := &survey.Input{
		Message: param.Description,
		Default: defaultString(param),
	}
	var validators []survey.Validator
	if param.Required {
		validators = append(validators, survey.Required)
	}
	var result string
	err := survey.AskOne(prompt, &result, survey.WithValidator(survey.ComposeValidators(validators...)))
	return result, err
}

func promptBool(param simulation.Parameter) (bool, error) {
	enabled := false
	if v, ok := param.Default.(bool); ok {
		enabled = v
	}
	prompt := &survey.Confirm{
		Message: param.Description,
		Default: enabled,
	}
	var result bool
	err := survey.AskOne(prompt, &result)
	return result, err
}

func askInput(param simulation.Parameter) (string, error) {
	prompt := &survey.Input{
		Message: param.Description,
		Default: defaultString(param),
	}
	var result string
	err := survey.AskOne(prompt, &result, survey.WithValidator(survey.Required))
	return result, err
}

func checkRange(value float64, param simulation.Parameter) error {
	if param.Min != nil && value < toFloat(param.Min) {
		return fmt.Errorf("%s must be at least %v", param.Name, param.Min)
	}
	if param.Max != nil && value > toFloat(param.Max) {
		return fmt.Errorf("%s must be at most %v", param.Name, param.Max)
	}
	return nil
}

func defaultString(param simulation.Parameter) string {
	if param.Default == nil {
		return ""
	}
	return fmt.Sprintf("%v", param.Default)
}

func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}
