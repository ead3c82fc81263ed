package workflow

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/temirov/cloudchores/internal/accountprovision"
	"github.com/temirov/cloudchores/internal/bucketmigrate"
	"github.com/temirov/cloudchores/internal/registrymanage"
	"github.com/temirov/cloudchores/internal/utils"
)

const (
	unsupportedOperationTemplateConstant   = "workflow step %d uses unsupported operation %s"
	stepOptionsErrorTemplateConstant       = "workflow step %d (%s) has invalid options: %w"
	passwordOptionRejectedTemplateConstant = "workflow step %d (%s) must reference the password through password_source"
	inlinePasswordOptionKeyConstant        = "password"
	reportFormatOptionRejectedTemplate     = "workflow step %d (%s) cannot set report_format; use the workflow --report-format flag"
	reportFormatOptionKeyConstant          = "report_format"
)

// OperationDefaults supplies the base configuration each step's options are layered onto.
type OperationDefaults struct {
	BucketMigration    bucketmigrate.CommandConfiguration
	AccountProvision   accountprovision.CommandConfiguration
	RegistryManagement registrymanage.CommandConfiguration
}

// BuildOperations converts the declarative configuration into executable operations.
func BuildOperations(configuration Configuration, defaults OperationDefaults) ([]Operation, error) {
	operations := make([]Operation, 0, len(configuration.Steps))
	for stepIndex, step := range configuration.Steps {
		operation, buildError := buildOperationFromStep(stepIndex+1, step, defaults)
		if buildError != nil {
			return nil, buildError
		}
		operations = append(operations, operation)
	}
	return operations, nil
}

func buildOperationFromStep(stepNumber int, step StepConfiguration, defaults OperationDefaults) (Operation, error) {
	// Every step writes into the one workflow report stream.
	if _, stepReportFormat := step.Options[reportFormatOptionKeyConstant]; stepReportFormat {
		return nil, fmt.Errorf(reportFormatOptionRejectedTemplate, stepNumber, step.Operation)
	}
	switch step.Operation {
	case OperationTypeBucketMigration:
		migrationConfiguration := defaults.BucketMigration
		if decodeError := decodeOptions(step.Options, &migrationConfiguration); decodeError != nil {
			return nil, fmt.Errorf(stepOptionsErrorTemplateConstant, stepNumber, step.Operation, decodeError)
		}
		return &BucketMigrationOperation{Configuration: migrationConfiguration.Sanitize()}, nil
	case OperationTypeAccountProvision:
		if _, inlinePassword := step.Options[inlinePasswordOptionKeyConstant]; inlinePassword {
			return nil, fmt.Errorf(passwordOptionRejectedTemplateConstant, stepNumber, step.Operation)
		}
		provisionConfiguration := defaults.AccountProvision
		if decodeError := decodeOptions(step.Options, &provisionConfiguration); decodeError != nil {
			return nil, fmt.Errorf(stepOptionsErrorTemplateConstant, stepNumber, step.Operation, decodeError)
		}
		return &AccountProvisionOperation{Configuration: provisionConfiguration.Sanitize()}, nil
	case OperationTypeRegistryManagement:
		registryConfiguration := defaults.RegistryManagement
		if decodeError := decodeOptions(step.Options, &registryConfiguration); decodeError != nil {
			return nil, fmt.Errorf(stepOptionsErrorTemplateConstant, stepNumber, step.Operation, decodeError)
		}
		return &RegistryManagementOperation{Configuration: registryConfiguration.Sanitize()}, nil
	default:
		return nil, fmt.Errorf(unsupportedOperationTemplateConstant, stepNumber, step.Operation)
	}
}

// decodeOptions overlays step options on target. Unknown keys are rejected so typos surface before
// any chore runs.
func decodeOptions(options map[string]any, target any) error {
	if len(options) == 0 {
		return nil
	}
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       utils.ConfigurationDecodeHook(),
		ErrorUnused:      true,
		ZeroFields:       true,
		WeaklyTypedInput: true,
		Result:           target,
	})
	if decoderError != nil {
		return decoderError
	}
	return decoder.Decode(options)
}
