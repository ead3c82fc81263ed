package accountprovision

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/cloudchores/internal/report"
	"github.com/temirov/cloudchores/internal/secrets"
	"github.com/temirov/cloudchores/internal/utils"
	"github.com/temirov/cloudchores/internal/utils/flags"
)

const (
	commandUseConstant                  = "account-provision"
	commandShortDescriptionConstant     = "Create a restricted IAM user"
	commandLongDescriptionConstant      = "account-provision creates an IAM user with an initial password read from a secret source, attaches the managed policy for the requested access level, and optionally adds group memberships, an MFA requirement, and an access key."
	unexpectedArgumentsErrorConstant    = "account-provision does not accept positional arguments"
	reportFormatErrorTemplateConstant   = "invalid report format: %w"
	usernameFlagNameConstant            = "username"
	usernameFlagUsageConstant           = "Name of the IAM user to create"
	passwordSourceFlagNameConstant      = "password-source"
	passwordSourceFlagUsageConstant     = "Secret source of the initial password (env:NAME or file:/path)"
	accessLevelFlagNameConstant         = "access-level"
	accessLevelFlagDescriptionConstant  = "Permission tier mapped to an AWS managed policy"
	groupsFlagNameConstant              = "groups"
	groupsFlagUsageConstant             = "Existing IAM groups to add the user to (comma separated)"
	partitionFlagNameConstant           = "partition"
	partitionFlagUsageConstant          = "AWS partition used in managed policy ARNs"
	profileFlagNameConstant             = "profile"
	profileFlagUsageConstant            = "Shared configuration profile for the account"
	roleFlagNameConstant                = "role-arn"
	roleFlagUsageConstant               = "Role assumed before calling IAM"
	regionFlagNameConstant              = "region"
	regionFlagUsageConstant             = "Region used to sign IAM requests"
	forcePasswordResetFlagNameConstant  = "force-password-reset"
	forcePasswordResetFlagUsageConstant = "Require a password change on first sign-in"
	createAccessKeyFlagNameConstant     = "create-access-key"
	createAccessKeyFlagUsageConstant    = "Create an access key and emit its secret in the report"
	enforceMFAFlagNameConstant          = "enforce-mfa"
	enforceMFAFlagUsageConstant         = "Attach an inline policy denying most actions until MFA is used"
	reportFormatFlagNameConstant        = "report-format"
	reportFormatFlagDescriptionConstant = "Encoding of the report written to stdout"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current account-provision configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandBuilder assembles the account-provision cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	ServiceProvider       ServiceProvider
	ClientFactory         IdentityClientFactory
	SecretResolver        secrets.Resolver
}

// Build constructs the account-provision command.
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
	accessLevelChoices := make([]string, 0, len(AccessLevels()))
	for _, accessLevel := range AccessLevels() {
		accessLevelChoices = append(accessLevelChoices, string(accessLevel))
	}

	flagSet := command.Flags()
	flagSet.String(usernameFlagNameConstant, "", usernameFlagUsageConstant)
	flagSet.String(passwordSourceFlagNameConstant, defaults.PasswordSource, passwordSourceFlagUsageConstant)
	flagSet.String(accessLevelFlagNameConstant, defaults.AccessLevel, flags.FormatChoiceUsage(defaults.AccessLevel, accessLevelChoices, accessLevelFlagDescriptionConstant))
	flagSet.StringSlice(groupsFlagNameConstant, nil, groupsFlagUsageConstant)
	flagSet.String(partitionFlagNameConstant, defaults.Partition, partitionFlagUsageConstant)
	flagSet.String(profileFlagNameConstant, "", profileFlagUsageConstant)
	flagSet.String(roleFlagNameConstant, "", roleFlagUsageConstant)
	flagSet.String(regionFlagNameConstant, "", regionFlagUsageConstant)
	flagSet.String(reportFormatFlagNameConstant, defaults.ReportFormat, flags.FormatChoiceUsage(defaults.ReportFormat, report.FormatChoices(), reportFormatFlagDescriptionConstant))
	flags.AddToggleFlag(flagSet, nil, forcePasswordResetFlagNameConstant, "", defaults.ForcePasswordReset, forcePasswordResetFlagUsageConstant)
	flags.AddToggleFlag(flagSet, nil, createAccessKeyFlagNameConstant, "", defaults.CreateAccessKey, createAccessKeyFlagUsageConstant)
	flags.AddToggleFlag(flagSet, nil, enforceMFAFlagNameConstant, "", defaults.EnforceMFA, enforceMFAFlagUsageConstant)

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
		SecretResolver:  builder.SecretResolver,
	}
	return runner.Run(command.Context(), configuration, report.NewWriter(command.OutOrStdout(), reportFormat))
}

func (builder *CommandBuilder) parseConfiguration(command *cobra.Command) (CommandConfiguration, error) {
	configuration := builder.resolveConfiguration()
	flagSet := command.Flags()

	flags.OverrideString(flagSet, usernameFlagNameConstant, &configuration.Username)
	flags.OverrideString(flagSet, passwordSourceFlagNameConstant, &configuration.PasswordSource)
	flags.OverrideString(flagSet, accessLevelFlagNameConstant, &configuration.AccessLevel)
	flags.OverrideStringSlice(flagSet, groupsFlagNameConstant, &configuration.Groups)
	flags.OverrideString(flagSet, partitionFlagNameConstant, &configuration.Partition)
	flags.OverrideString(flagSet, profileFlagNameConstant, &configuration.Credentials.Profile)
	flags.OverrideString(flagSet, roleFlagNameConstant, &configuration.Credentials.RoleARN)
	flags.OverrideString(flagSet, regionFlagNameConstant, &configuration.Credentials.Region)
	flags.OverrideString(flagSet, reportFormatFlagNameConstant, &configuration.ReportFormat)

	toggleTargets := map[string]*bool{
		forcePasswordResetFlagNameConstant: &configuration.ForcePasswordReset,
		createAccessKeyFlagNameConstant:    &configuration.CreateAccessKey,
		enforceMFAFlagNameConstant:         &configuration.EnforceMFA,
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
