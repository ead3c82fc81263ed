package workflow

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	pathutils "github.com/temirov/cloudchores/internal/utils/path"
)

const (
	optionToolReferenceKeyConstant                    = "tool"
	configurationLoadErrorTemplateConstant            = "failed to load workflow configuration: %w"
	configurationParseErrorTemplateConstant           = "failed to parse workflow configuration: %w"
	configurationPathRequiredMessageConstant          = "workflow configuration path must be provided"
	configurationEmptyStepsMessageConstant            = "workflow configuration must define at least one step"
	configurationOperationMissingTemplateConstant     = "workflow step %d missing operation name"
	configurationToolNameRequiredMessageConstant      = "workflow tool names must be non-empty"
	configurationDuplicateToolNameTemplateConstant    = "workflow configuration defines tool %s more than once"
	configurationToolOperationMissingTemplateConstant = "workflow tool %s missing operation name"
	configurationUnknownToolTemplateConstant          = "workflow step %d references unknown tool %s"
	configurationToolReferenceTypeTemplateConstant    = "workflow step %d tool reference must be a string"
)

// OperationType identifies supported workflow operations.
type OperationType string

// Supported workflow operations.
const (
	OperationTypeBucketMigration    OperationType = OperationType("bucket-migrate")
	OperationTypeAccountProvision   OperationType = OperationType("account-provision")
	OperationTypeRegistryManagement OperationType = OperationType("registry-manage")
)

// Configuration describes the ordered workflow steps and reusable tool definitions loaded from YAML.
type Configuration struct {
	Tools []NamedToolConfiguration `yaml:"tools"`
	Steps []StepConfiguration      `yaml:"steps"`
}

// NamedToolConfiguration captures a reusable operation definition along with its reference name.
type NamedToolConfiguration struct {
	Name              string `yaml:"name"`
	ToolConfiguration `yaml:",inline"`
}

// StepConfiguration associates an operation type with declarative options.
type StepConfiguration struct {
	Operation OperationType  `yaml:"operation"`
	Options   map[string]any `yaml:"with"`
}

// ToolConfiguration describes reusable workflow options for a specific operation type.
type ToolConfiguration struct {
	Operation OperationType  `yaml:"operation"`
	Options   map[string]any `yaml:"with"`
}

// LoadConfiguration reads the workflow definition from disk. Documents may nest the definition
// under a top-level "workflow" key.
func LoadConfiguration(filePath string) (Configuration, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return Configuration{}, errors.New(configurationPathRequiredMessageConstant)
	}

	expandedPath, expandError := pathutils.NewHomeExpander().Expand(trimmedPath)
	if expandError != nil {
		return Configuration{}, fmt.Errorf(configurationLoadErrorTemplateConstant, expandError)
	}

	contentBytes, readError := os.ReadFile(expandedPath)
	if readError != nil {
		return Configuration{}, fmt.Errorf(configurationLoadErrorTemplateConstant, readError)
	}
	return ParseConfiguration(contentBytes)
}

// ParseConfiguration decodes a workflow definition and resolves tool references into concrete steps.
func ParseConfiguration(contentBytes []byte) (Configuration, error) {
	var document struct {
		Configuration `yaml:",inline"`
		Workflow      *Configuration `yaml:"workflow"`
	}
	if unmarshalError := yaml.Unmarshal(contentBytes, &document); unmarshalError != nil {
		return Configuration{}, fmt.Errorf(configurationParseErrorTemplateConstant, unmarshalError)
	}

	configuration := document.Configuration
	if len(configuration.Steps) == 0 && document.Workflow != nil {
		configuration = *document.Workflow
	}

	toolLookup, toolsError := buildToolLookup(configuration.Tools)
	if toolsError != nil {
		return Configuration{}, toolsError
	}

	if len(configuration.Steps) == 0 {
		return Configuration{}, errors.New(configurationEmptyStepsMessageConstant)
	}

	resolvedSteps := make([]StepConfiguration, 0, len(configuration.Steps))
	for stepIndex, step := range configuration.Steps {
		resolvedStep, resolveError := resolveStep(stepIndex+1, step, toolLookup)
		if resolveError != nil {
			return Configuration{}, resolveError
		}
		resolvedSteps = append(resolvedSteps, resolvedStep)
	}
	configuration.Steps = resolvedSteps

	return configuration, nil
}

func buildToolLookup(tools []NamedToolConfiguration) (map[string]ToolConfiguration, error) {
	lookup := make(map[string]ToolConfiguration, len(tools))
	for toolIndex := range tools {
		trimmedName := strings.TrimSpace(tools[toolIndex].Name)
		if len(trimmedName) == 0 {
			return nil, errors.New(configurationToolNameRequiredMessageConstant)
		}
		if _, exists := lookup[trimmedName]; exists {
			return nil, fmt.Errorf(configurationDuplicateToolNameTemplateConstant, trimmedName)
		}
		trimmedOperation := strings.TrimSpace(string(tools[toolIndex].Operation))
		if len(trimmedOperation) == 0 {
			return nil, fmt.Errorf(configurationToolOperationMissingTemplateConstant, trimmedName)
		}
		lookup[trimmedName] = ToolConfiguration{
			Operation: OperationType(trimmedOperation),
			Options:   tools[toolIndex].Options,
		}
	}
	return lookup, nil
}

// resolveStep merges a referenced tool's options under the step's own options.
func resolveStep(stepNumber int, step StepConfiguration, toolLookup map[string]ToolConfiguration) (StepConfiguration, error) {
	resolved := StepConfiguration{
		Operation: OperationType(strings.TrimSpace(string(step.Operation))),
		Options:   map[string]any{},
	}

	toolName, referencesTool, referenceError := toolReference(stepNumber, step.Options)
	if referenceError != nil {
		return StepConfiguration{}, referenceError
	}
	if referencesTool {
		tool, known := toolLookup[toolName]
		if !known {
			return StepConfiguration{}, fmt.Errorf(configurationUnknownToolTemplateConstant, stepNumber, toolName)
		}
		if len(resolved.Operation) == 0 {
			resolved.Operation = tool.Operation
		}
		for optionKey, optionValue := range tool.Options {
			resolved.Options[optionKey] = optionValue
		}
	}

	for optionKey, optionValue := range step.Options {
		if strings.EqualFold(strings.TrimSpace(optionKey), optionToolReferenceKeyConstant) {
			continue
		}
		resolved.Options[optionKey] = optionValue
	}

	if len(resolved.Operation) == 0 {
		return StepConfiguration{}, fmt.Errorf(configurationOperationMissingTemplateConstant, stepNumber)
	}
	return resolved, nil
}

func toolReference(stepNumber int, options map[string]any) (string, bool, error) {
	for rawKey, rawValue := range options {
		if !strings.EqualFold(strings.TrimSpace(rawKey), optionToolReferenceKeyConstant) {
			continue
		}
		toolName, isString := rawValue.(string)
		if !isString {
			return "", false, fmt.Errorf(configurationToolReferenceTypeTemplateConstant, stepNumber)
		}
		return strings.TrimSpace(toolName), true, nil
	}
	return "", false, nil
}
