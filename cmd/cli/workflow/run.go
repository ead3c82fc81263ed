package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/cloudchores/internal/accountprovision"
	"github.com/temirov/cloudchores/internal/bucketmigrate"
	"github.com/temirov/cloudchores/internal/registrymanage"
	"github.com/temirov/cloudchores/internal/report"
	"github.com/temirov/cloudchores/internal/secrets"
	"github.com/temirov/cloudchores/internal/utils"
	"github.com/temirov/cloudchores/internal/utils/flags"
	"github.com/temirov/cloudchores/internal/workflow"
)

const (
	commandUseConstant                       = "workflow [workflow-file]"
	commandShortDescriptionConstant          = "Run a workflow file"
	commandLongDescriptionConstant           = "workflow runs the bucket-migrate, account-provision, and registry-manage steps listed in a YAML file in order, stopping at the first failing step. Each step writes its own report."
	tooManyArgumentsErrorConstant            = "workflow accepts at most one workflow file"
	configurationPathRequiredMessageConstant = "workflow file required; provide a positional argument or tools.workflow.file"
	loadConfigurationErrorTemplateConstant   = "unable to load workflow configuration: %w"
	buildOperationsErrorTemplateConstant     = "unable to build workflow operations: %w"
	reportFormatErrorTemplateConstant        = "invalid report format: %w"
	reportFormatFlagNameConstant             = "report-format"
	reportFormatFlagDescriptionConstant      = "Encoding of the reports written to stdout"
)

// LoggerProvider yields the logger shared with the chores a workflow runs.
type LoggerProvider func() *zap.Logger

// OperationDefaultsProvider returns the configured chore settings that step options are layered onto.
type OperationDefaultsProvider func() workflow.OperationDefaults

// CommandBuilder assembles the workflow command.
type CommandBuilder struct {
	LoggerProvider                  LoggerProvider
	ConfigurationProvider           func() CommandConfiguration
	OperationDefaultsProvider       OperationDefaultsProvider
	BucketMigrationServiceProvider  bucketmigrate.ServiceProvider
	BucketMigrationStoreFactory     bucketmigrate.StoreFactory
	AccountProvisionServiceProvider accountprovision.ServiceProvider
	AccountProvisionClientFactory   accountprovision.IdentityClientFactory
	RegistryManageServiceProvider   registrymanage.ServiceProvider
	RegistryManageClientFactory     registrymanage.RegistryClientFactory
	SecretResolver                  secrets.Resolver
}

// Build constructs the workflow command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          builder.run,
	}

	defaults := DefaultCommandConfiguration()
	command.Flags().String(reportFormatFlagNameConstant, defaults.ReportFormat, flags.FormatChoiceUsage(defaults.ReportFormat, report.FormatChoices(), reportFormatFlagDescriptionConstant))
	flags.BindExecutionFlags(command, flags.ExecutionDefaults{DryRun: defaults.DryRun}, flags.ExecutionFlagDefinitions{DryRun: flags.DefaultExecutionFlagDefinitions().DryRun})

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 1 {
		return errors.New(tooManyArgumentsErrorConstant)
	}
	commandConfiguration := builder.resolveConfiguration()
	flagSet := command.Flags()
	flags.OverrideString(flagSet, reportFormatFlagNameConstant, &commandConfiguration.ReportFormat)
	if overrideError := flags.OverrideToggle(flagSet, flags.DryRunFlagName, &commandConfiguration.DryRun); overrideError != nil {
		return overrideError
	}

	configurationPath := commandConfiguration.File
	if len(arguments) == 1 {
		configurationPath = strings.TrimSpace(arguments[0])
	}
	if len(configurationPath) == 0 {
		if helpError := command.Help(); helpError != nil {
			return helpError
		}
		return errors.New(configurationPathRequiredMessageConstant)
	}

	reportFormat, formatError := report.ParseFormat(commandConfiguration.ReportFormat)
	if formatError != nil {
		return fmt.Errorf(reportFormatErrorTemplateConstant, formatError)
	}

	workflowConfiguration, configurationError := workflow.LoadConfiguration(configurationPath)
	if configurationError != nil {
		return fmt.Errorf(loadConfigurationErrorTemplateConstant, configurationError)
	}

	operations, operationsError := workflow.BuildOperations(workflowConfiguration, builder.resolveOperationDefaults())
	if operationsError != nil {
		return fmt.Errorf(buildOperationsErrorTemplateConstant, operationsError)
	}

	logger := builder.resolveLogger()
	runIdentifier, _ := utils.NewCommandContextAccessor().RunIdentifier(command.Context())
	environment := workflow.Environment{
		Logger:       logger,
		DryRun:       commandConfiguration.DryRun,
		ReportWriter: report.NewWriter(command.OutOrStdout(), reportFormat),
		BucketMigration: bucketmigrate.Runner{
			Logger:          logger,
			RunIdentifier:   runIdentifier,
			StoreFactory:    builder.BucketMigrationStoreFactory,
			ServiceProvider: builder.BucketMigrationServiceProvider,
		},
		AccountProvision: accountprovision.Runner{
			Logger:          logger,
			RunIdentifier:   runIdentifier,
			ClientFactory:   builder.AccountProvisionClientFactory,
			ServiceProvider: builder.AccountProvisionServiceProvider,
			SecretResolver:  builder.SecretResolver,
		},
		RegistryManagement: registrymanage.Runner{
			Logger:          logger,
			RunIdentifier:   runIdentifier,
			ClientFactory:   builder.RegistryManageClientFactory,
			ServiceProvider: builder.RegistryManageServiceProvider,
		},
	}

	return workflow.NewExecutor(operations, environment).Execute(command.Context())
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveOperationDefaults() workflow.OperationDefaults {
	if builder.OperationDefaultsProvider == nil {
		return workflow.OperationDefaults{
			BucketMigration:    bucketmigrate.DefaultCommandConfiguration(),
			AccountProvision:   accountprovision.DefaultCommandConfiguration(),
			RegistryManagement: registrymanage.DefaultCommandConfiguration(),
		}
	}
	return builder.OperationDefaultsProvider()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider != nil {
		if logger := builder.LoggerProvider(); logger != nil {
			return logger
		}
	}
	return zap.NewNop()
}
