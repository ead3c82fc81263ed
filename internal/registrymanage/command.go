package registrymanage

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/cloudchores/internal/report"
	"github.com/temirov/cloudchores/internal/utils"
	"github.com/temirov/cloudchores/internal/utils/flags"
)

const (
	commandUseConstant                  = "registry-manage"
	commandShortDescriptionConstant     = "Create, update, prune, and inspect ECR repositories"
	commandLongDescriptionConstant      = "registry-manage runs one action against Elastic Container Registry: create a repository with scanning, encryption, and a lifecycle policy; update those settings; delete images older than a retention window; list repositories with image counts; or describe one repository."
	unexpectedArgumentsErrorConstant    = "registry-manage does not accept positional arguments"
	reportFormatErrorTemplateConstant   = "invalid report format: %w"
	actionSubjectConstant               = "action"
	actionFlagNameConstant              = "action"
	actionFlagDescriptionConstant       = "Registry action to run"
	repositoryFlagNameConstant          = "repository-name"
	repositoryFlagUsageConstant         = "Repository to act on (required for every action except list)"
	mutabilityFlagNameConstant          = "image-tag-mutability"
	mutabilityFlagUsageConstant         = "Tag mutability applied by create and update (MUTABLE or IMMUTABLE)"
	scanOnPushFlagNameConstant          = "scan-on-push"
	scanOnPushFlagUsageConstant         = "Scan images for vulnerabilities when they are pushed"
	encryptionFlagNameConstant          = "encryption-type"
	encryptionFlagUsageConstant         = "Encryption applied by create (AES256 or KMS)"
	kmsKeyFlagNameConstant              = "kms-key"
	kmsKeyFlagUsageConstant             = "KMS key used when encryption-type is KMS"
	lifecyclePolicyFlagNameConstant     = "lifecycle-policy"
	lifecyclePolicyFlagUsageConstant    = "Lifecycle policy JSON applied by create and update"
	retentionDaysFlagNameConstant       = "retention-days"
	retentionDaysFlagUsageConstant      = "Cleanup deletes images pushed more than this many days ago"
	profileFlagNameConstant             = "profile"
	profileFlagUsageConstant            = "Shared configuration profile for the registry account"
	roleFlagNameConstant                = "role-arn"
	roleFlagUsageConstant               = "Role assumed before calling ECR"
	regionFlagNameConstant              = "region"
	regionFlagUsageConstant             = "Region of the registry"
	reportFormatFlagNameConstant        = "report-format"
	reportFormatFlagDescriptionConstant = "Encoding of the report written to stdout"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current registry-manage configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandBuilder assembles the registry-manage cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	ServiceProvider       ServiceProvider
	ClientFactory         RegistryClientFactory
}

// Build constructs the registry-manage command.
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

	flagSet := command.Flags()
	flagSet.String(actionFlagNameConstant, defaults.Action, flags.FormatChoiceUsage(defaults.Action, actionChoices(), actionFlagDescriptionConstant))
	flagSet.String(repositoryFlagNameConstant, "", repositoryFlagUsageConstant)
	flagSet.String(mutabilityFlagNameConstant, defaults.ImageTagMutability, mutabilityFlagUsageConstant)
	flagSet.String(encryptionFlagNameConstant, defaults.EncryptionType, encryptionFlagUsageConstant)
	flagSet.String(kmsKeyFlagNameConstant, "", kmsKeyFlagUsageConstant)
	flagSet.String(lifecyclePolicyFlagNameConstant, "", lifecyclePolicyFlagUsageConstant)
	flagSet.Int(retentionDaysFlagNameConstant, defaults.RetentionDays, retentionDaysFlagUsageConstant)
	flagSet.String(profileFlagNameConstant, "", profileFlagUsageConstant)
	flagSet.String(roleFlagNameConstant, "", roleFlagUsageConstant)
	flagSet.String(regionFlagNameConstant, "", regionFlagUsageConstant)
	flagSet.String(reportFormatFlagNameConstant, defaults.ReportFormat, flags.FormatChoiceUsage(defaults.ReportFormat, report.FormatChoices(), reportFormatFlagDescriptionConstant))
	flags.AddToggleFlag(flagSet, nil, scanOnPushFlagNameConstant, "", defaults.ScanOnPush, scanOnPushFlagUsageConstant)
	flags.BindExecutionFlags(command, flags.ExecutionDefaults{DryRun: defaults.DryRun}, flags.ExecutionFlagDefinitions{DryRun: flags.DefaultExecutionFlagDefinitions().DryRun})

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errors.New(unexpectedArgumentsErrorConstant)
	}

	configuration, optionsError := builder.parseConfiguration(command)
	if optionsError != nil {
		return optionsError
	}

	reportFormat, formatError := report.ParseFormat(configuration.ReportFormat)
	if formatError != nil {
		return fmt.Errorf(reportFormatErrorTemplateConstant, formatError)
	}

	runIdentifier, _ := utils.NewCommandContextAccessor().RunIdentifier(command.Context())
	runner := Runner{
		Logger:          builder.resolveLogger(),
		RunIdentifier:   runIdentifier,
		ClientFactory:   builder.ClientFactory,
		ServiceProvider: builder.ServiceProvider,
	}
	return runner.Run(command.Context(), configuration, report.NewWriter(command.OutOrStdout(), reportFormat))
}

func (builder *CommandBuilder) parseConfiguration(command *cobra.Command) (CommandConfiguration, error) {
	configuration := builder.resolveConfiguration()
	flagSet := command.Flags()

	flags.OverrideString(flagSet, actionFlagNameConstant, &configuration.Action)
	flags.OverrideString(flagSet, repositoryFlagNameConstant, &configuration.RepositoryName)
	flags.OverrideString(flagSet, mutabilityFlagNameConstant, &configuration.ImageTagMutability)
	flags.OverrideString(flagSet, encryptionFlagNameConstant, &configuration.EncryptionType)
	flags.OverrideString(flagSet, kmsKeyFlagNameConstant, &configuration.KMSKey)
	flags.OverrideString(flagSet, lifecyclePolicyFlagNameConstant, &configuration.LifecyclePolicy)
	flags.OverrideString(flagSet, profileFlagNameConstant, &configuration.Credentials.Profile)
	flags.OverrideString(flagSet, roleFlagNameConstant, &configuration.Credentials.RoleARN)
	flags.OverrideString(flagSet, regionFlagNameConstant, &configuration.Credentials.Region)
	flags.OverrideString(flagSet, reportFormatFlagNameConstant, &configuration.ReportFormat)

	if flagSet.Changed(retentionDaysFlagNameConstant) {
		retentionDays, retentionError := flagSet.GetInt(retentionDaysFlagNameConstant)
		if retentionError != nil {
			return CommandConfiguration{}, retentionError
		}
		configuration.RetentionDays = retentionDays
	}

	if flagSet.Changed(actionFlagNameConstant) {
		action, actionError := flags.ResolveChoice(actionSubjectConstant, configuration.Action, defaultActionChoice(), actionChoices())
		if actionError != nil {
			return CommandConfiguration{}, actionError
		}
		configuration.Action = action
	}

	toggleTargets := map[string]*bool{
		scanOnPushFlagNameConstant: &configuration.ScanOnPush,
		flags.DryRunFlagName:       &configuration.DryRun,
	}
	for flagName, target := range toggleTargets {
		if overrideError := flags.OverrideToggle(flagSet, flagName, target); overrideError != nil {
			return CommandConfiguration{}, overrideError
		}
	}

	return configuration.Sanitize(), nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider()
}

func actionChoices() []string {
	choices := make([]string, 0, len(Actions()))
	for _, action := range Actions() {
		choices = append(choices, string(action))
	}
	return choices
}

func defaultActionChoice() string {
	return DefaultCommandConfiguration().Action
}
