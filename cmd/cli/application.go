package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	workflowcmd "github.com/temirov/cloudchores/cmd/cli/workflow"
	"github.com/temirov/cloudchores/internal/accountprovision"
	"github.com/temirov/cloudchores/internal/bucketmigrate"
	"github.com/temirov/cloudchores/internal/registrymanage"
	"github.com/temirov/cloudchores/internal/utils"
	"github.com/temirov/cloudchores/internal/utils/flags"
	"github.com/temirov/cloudchores/internal/workflow"
)

const (
	applicationNameConstant                 = "cloudchores"
	applicationShortDescriptionConstant     = "Command-line interface for recurring AWS chores"
	applicationLongDescriptionConstant      = "cloudchores migrates S3 buckets between accounts, provisions restricted IAM users, and maintains ECR repositories. Every chore writes one machine-parsable report to stdout and logs to stderr."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	environmentPrefixConstant               = "CLOUDCHORES"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	runIdentifierFieldConstant              = "run_id"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	rootCommandInfoMessageConstant          = "cloudchores CLI executed"
	rootCommandDebugMessageConstant         = "cloudchores CLI diagnostics"
	logFieldCommandNameConstant             = "command_name"
	logFieldArgumentCountConstant           = "argument_count"
	logFieldArgumentsConstant               = "arguments"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	defaultConfigurationSearchPathConstant  = "."
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Tools  ApplicationToolsConfiguration  `mapstructure:"tools"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationToolsConfiguration holds configuration for each chore.
type ApplicationToolsConfiguration struct {
	BucketMigrate    bucketmigrate.CommandConfiguration    `mapstructure:"bucket_migrate"`
	AccountProvision accountprovision.CommandConfiguration `mapstructure:"account_provision"`
	RegistryManage   registrymanage.CommandConfiguration   `mapstructure:"registry_manage"`
	Workflow         workflowcmd.CommandConfiguration      `mapstructure:"workflow"`
}

// ApplicationDependencies replaces the AWS-backed collaborators; zero members keep the defaults.
type ApplicationDependencies struct {
	BucketMigrationStoreFactory   bucketmigrate.StoreFactory
	AccountProvisionClientFactory accountprovision.IdentityClientFactory
	RegistryManageClientFactory   registrymanage.RegistryClientFactory
	RunIdentifierGenerator        func() string
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	runIdentifier          string
	runIdentifierGenerator func() string
	commandContextAccessor utils.CommandContextAccessor
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	return NewApplicationWithDependencies(ApplicationDependencies{})
}

// NewApplicationWithDependencies assembles the CLI with injected AWS collaborators.
func NewApplicationWithDependencies(dependencies ApplicationDependencies) *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	runIdentifierGenerator := dependencies.RunIdentifierGenerator
	if runIdentifierGenerator == nil {
		runIdentifierGenerator = uuid.NewString
	}

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		runIdentifierGenerator: runIdentifierGenerator,
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)

	loggerProvider := func() *zap.Logger {
		return application.logger
	}

	bucketMigrationBuilder := bucketmigrate.CommandBuilder{
		LoggerProvider: loggerProvider,
		ConfigurationProvider: func() bucketmigrate.CommandConfiguration {
			return application.configuration.Tools.BucketMigrate
		},
		StoreFactory: dependencies.BucketMigrationStoreFactory,
	}
	bucketMigrationCommand, bucketMigrationBuildError := bucketMigrationBuilder.Build()
	if bucketMigrationBuildError == nil {
		cobraCommand.AddCommand(bucketMigrationCommand)
	}

	accountProvisionBuilder := accountprovision.CommandBuilder{
		LoggerProvider: loggerProvider,
		ConfigurationProvider: func() accountprovision.CommandConfiguration {
			return application.configuration.Tools.AccountProvision
		},
		ClientFactory: dependencies.AccountProvisionClientFactory,
	}
	accountProvisionCommand, accountProvisionBuildError := accountProvisionBuilder.Build()
	if accountProvisionBuildError == nil {
		cobraCommand.AddCommand(accountProvisionCommand)
	}

	registryManageBuilder := registrymanage.CommandBuilder{
		LoggerProvider: loggerProvider,
		ConfigurationProvider: func() registrymanage.CommandConfiguration {
			return application.configuration.Tools.RegistryManage
		},
		ClientFactory: dependencies.RegistryManageClientFactory,
	}
	registryManageCommand, registryManageBuildError := registryManageBuilder.Build()
	if registryManageBuildError == nil {
		cobraCommand.AddCommand(registryManageCommand)
	}

	workflowBuilder := workflowcmd.CommandBuilder{
		LoggerProvider: loggerProvider,
		ConfigurationProvider: func() workflowcmd.CommandConfiguration {
			return application.configuration.Tools.Workflow
		},
		OperationDefaultsProvider: func() workflow.OperationDefaults {
			return workflow.OperationDefaults{
				BucketMigration:    application.configuration.Tools.BucketMigrate,
				AccountProvision:   application.configuration.Tools.AccountProvision,
				RegistryManagement: application.configuration.Tools.RegistryManage,
			}
		},
		BucketMigrationStoreFactory:   dependencies.BucketMigrationStoreFactory,
		AccountProvisionClientFactory: dependencies.AccountProvisionClientFactory,
		RegistryManageClientFactory:   dependencies.RegistryManageClientFactory,
	}
	workflowCommand, workflowBuildError := workflowBuilder.Build()
	if workflowBuildError == nil {
		cobraCommand.AddCommand(workflowCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

// RootCommand exposes the assembled root command.
func (application *Application) RootCommand() *cobra.Command {
	return application.rootCommand
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	return application.ExecuteContext(context.Background())
}

// ExecuteContext runs the command hierarchy under the provided context so cancellation
// aborts in-flight AWS calls.
func (application *Application) ExecuteContext(executionContext context.Context) error {
	application.rootCommand.SetContext(executionContext)
	executionError := application.rootCommand.ExecuteContext(executionContext)
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy
// against the process arguments, normalizing "--flag value" toggles first.
func Execute(executionContext context.Context) error {
	application := NewApplication()
	application.rootCommand.SetArgs(flags.NormalizeToggleArguments(application.rootCommand, os.Args[1:]))
	return application.ExecuteContext(executionContext)
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
	}

	application.configuration = ApplicationConfiguration{
		Tools: ApplicationToolsConfiguration{
			BucketMigrate:    bucketmigrate.DefaultCommandConfiguration(),
			AccountProvision: accountprovision.DefaultCommandConfiguration(),
			RegistryManage:   registrymanage.DefaultCommandConfiguration(),
			Workflow:         workflowcmd.DefaultCommandConfiguration(),
		},
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	application.runIdentifier = application.runIdentifierGenerator()

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
		map[string]any{runIdentifierFieldConstant: application.runIdentifier},
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		updatedContext = application.commandContextAccessor.WithRunIdentifier(updatedContext, application.runIdentifier)
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	application.logger.Info(
		rootCommandInfoMessageConstant,
		zap.String(logFieldCommandNameConstant, command.Name()),
		zap.Int(logFieldArgumentCountConstant, len(arguments)),
	)

	application.logger.Debug(
		rootCommandDebugMessageConstant,
		zap.Strings(logFieldArgumentsConstant, arguments),
	)

	return command.Help()
}

func (application *Application) flushLogger() error {
	return application.syncLoggerInstance(application.logger)
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
