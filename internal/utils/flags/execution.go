// Package flags provides helpers for binding standardized execution flags to Cobra commands.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	// DryRunFlagName exposes the shared dry-run flag name.
	DryRunFlagName = "dry-run"
	// DryRunFlagUsage describes the shared dry-run flag purpose.
	DryRunFlagUsage = "Validate and enumerate without issuing state-changing calls"
	// StrictFlagName exposes the shared strict flag name.
	StrictFlagName = "strict"
	// StrictFlagUsage describes the shared strict flag purpose.
	StrictFlagUsage = "Fail the run when transient failures exhaust their retries"
)

// ExecutionDefaults describes default flag values shared across commands.
type ExecutionDefaults struct {
	DryRun bool
	Strict bool
}

// ExecutionFlagDefinition captures a single flag's configuration.
type ExecutionFlagDefinition struct {
	Name      string
	Usage     string
	Shorthand string
	Enabled   bool
}

// ExecutionFlagDefinitions groups execution flag definitions.
type ExecutionFlagDefinitions struct {
	DryRun ExecutionFlagDefinition
	Strict ExecutionFlagDefinition
}

// ExecutionFlagValues receives parsed execution flag values.
type ExecutionFlagValues struct {
	DryRun bool
	Strict bool
}

// DefaultExecutionFlagDefinitions enables the dry-run and strict toggles with their shared names.
func DefaultExecutionFlagDefinitions() ExecutionFlagDefinitions {
	return ExecutionFlagDefinitions{
		DryRun: ExecutionFlagDefinition{Name: DryRunFlagName, Usage: DryRunFlagUsage, Enabled: true},
		Strict: ExecutionFlagDefinition{Name: StrictFlagName, Usage: StrictFlagUsage, Enabled: true},
	}
}

// BindExecutionFlags attaches standardized yes/no execution toggles to the provided command.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults, definitions ExecutionFlagDefinitions) *ExecutionFlagValues {
	values := &ExecutionFlagValues{DryRun: defaults.DryRun, Strict: defaults.Strict}
	if command == nil {
		return values
	}

	flagSet := command.Flags()
	bindToggle(flagSet, definitions.DryRun, &values.DryRun, defaults.DryRun)
	bindToggle(flagSet, definitions.Strict, &values.Strict, defaults.Strict)

	return values
}

func bindToggle(flagSet *pflag.FlagSet, definition ExecutionFlagDefinition, target *bool, defaultValue bool) {
	if !definition.Enabled {
		return
	}
	if len(definition.Name) == 0 {
		return
	}
	if flagSet.Lookup(definition.Name) != nil {
		return
	}
	AddToggleFlag(flagSet, target, definition.Name, definition.Shorthand, defaultValue, definition.Usage)
}
