package bucketmigrate

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
	commandUseConstant                  = "bucket-migrate"
	commandShortDescriptionConstant     = "Copy objects between S3 buckets"
	commandLongDescriptionConstant      = "bucket-migrate copies every object of a source bucket into a target bucket, optionally across accounts, preserving metadata and ACLs, and writes a per-object report."
	unexpectedArgumentsErrorConstant    = "bucket-migrate does not accept positional arguments"
	reportFormatErrorTemplateConstant   = "invalid report format: %w"
	sourceBucketFlagNameConstant        = "source-bucket"
	sourceBucketFlagUsageConstant       = "Bucket to copy objects from"
	targetBucketFlagNameConstant        = "target-bucket"
	targetBucketFlagUsageConstant       = "Bucket to copy objects into"
	sourceProfileFlagNameConstant       = "source-profile"
	sourceProfileFlagUsageConstant      = "Shared configuration profile for the source account"
	targetProfileFlagNameConstant       = "target-profile"
	targetProfileFlagUsageConstant      = "Shared configuration profile for the target account"
	sourceRoleFlagNameConstant          = "source-role-arn"
	sourceRoleFlagUsageConstant         = "Role assumed for the source account"
	targetRoleFlagNameConstant          = "target-role-arn"
	targetRoleFlagUsageConstant         = "Role assumed for the target account"
	sourceRegionFlagNameConstant        = "source-region"
	sourceRegionFlagUsageConstant       = "Region of the source bucket"
	targetRegionFlagNameConstant        = "target-region"
	targetRegionFlagUsageConstant       = "Region of the target bucket"
	keyPrefixFlagNameConstant           = "key-prefix"
	keyPrefixFlagUsageConstant          = "Only list keys beginning with this prefix"
	keyFilterFlagNameConstant           = "key-filter"
	keyFilterFlagUsageConstant          = "Only migrate keys matching this glob pattern"
	targetSuffixFlagNameConstant        = "target-bucket-suffix"
	targetSuffixFlagUsageConstant       = "Suffix appended to source bucket names in migrate-all mode"
	migrateAllFlagNameConstant          = "migrate-all"
	migrateAllFlagUsageConstant         = "Migrate every bucket of the source account"
	preserveMetadataFlagNameConstant    = "preserve-metadata"
	preserveMetadataFlagUsageConstant   = "Carry user metadata and content headers to the target"
	preserveACLFlagNameConstant         = "preserve-acl"
	preserveACLFlagUsageConstant        = "Translate and apply source object ACLs on the target"
	createTargetBucketFlagNameConstant  = "create-target-bucket"
	createTargetBucketFlagUsageConstant = "Create the target bucket when it does not exist"
	reportFormatFlagNameConstant        = "report-format"
	reportFormatFlagDescriptionConstant = "Encoding of the report written to stdout"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current bucket-migrate configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandBuilder assembles the bucket-migrate cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	ServiceProvider       ServiceProvider
	StoreFactory          StoreFactory
}

// Build constructs the bucket-migrate command.
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
	flagSet.String(sourceBucketFlagNameConstant, "", sourceBucketFlagUsageConstant)
	flagSet.String(targetBucketFlagNameConstant, "", targetBucketFlagUsageConstant)
	flagSet.String(sourceProfileFlagNameConstant, "", sourceProfileFlagUsageConstant)
	flagSet.String(targetProfileFlagNameConstant, "", targetProfileFlagUsageConstant)
	flagSet.String(sourceRoleFlagNameConstant, "", sourceRoleFlagUsageConstant)
	flagSet.String(targetRoleFlagNameConstant, "", targetRoleFlagUsageConstant)
	flagSet.String(sourceRegionFlagNameConstant, "", sourceRegionFlagUsageConstant)
	flagSet.String(targetRegionFlagNameConstant, "", targetRegionFlagUsageConstant)
	flagSet.String(keyPrefixFlagNameConstant, "", keyPrefixFlagUsageConstant)
	flagSet.String(keyFilterFlagNameConstant, "", keyFilterFlagUsageConstant)
	flagSet.String(targetSuffixFlagNameConstant, defaults.TargetBucketSuffix, targetSuffixFlagUsageConstant)
	flagSet.String(reportFormatFlagNameConstant, defaults.ReportFormat, flags.FormatChoiceUsage(defaults.ReportFormat, report.FormatChoices(), reportFormatFlagDescriptionConstant))
	flags.AddToggleFlag(flagSet, nil, migrateAllFlagNameConstant, "", defaults.MigrateAll, migrateAllFlagUsageConstant)
	flags.AddToggleFlag(flagSet, nil, preserveMetadataFlagNameConstant, "", defaults.PreserveMetadata, preserveMetadataFlagUsageConstant)
	flags.AddToggleFlag(flagSet, nil, preserveACLFlagNameConstant, "", defaults.PreserveACL, preserveACLFlagUsageConstant)
	flags.AddToggleFlag(flagSet, nil, createTargetBucketFlagNameConstant, "", defaults.CreateTargetBucket, createTargetBucketFlagUsageConstant)
	flags.BindExecutionFlags(command, flags.ExecutionDefaults{DryRun: defaults.DryRun, Strict: defaults.Strict}, flags.DefaultExecutionFlagDefinitions())

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
		StoreFactory:    builder.StoreFactory,
		ServiceProvider: builder.ServiceProvider,
	}
	return runner.Run(command.Context(), configuration, report.NewWriter(command.OutOrStdout(), reportFormat))
}

// parseConfiguration overlays explicitly set flags on the loaded configuration.
func (builder *CommandBuilder) parseConfiguration(command *cobra.Command) (CommandConfiguration, error) {
	configuration := builder.resolveConfiguration()
	flagSet := command.Flags()

	flags.OverrideString(flagSet, sourceBucketFlagNameConstant, &configuration.SourceBucket)
	flags.OverrideString(flagSet, targetBucketFlagNameConstant, &configuration.TargetBucket)
	flags.OverrideString(flagSet, sourceProfileFlagNameConstant, &configuration.Source.Profile)
	flags.OverrideString(flagSet, targetProfileFlagNameConstant, &configuration.Target.Profile)
	flags.OverrideString(flagSet, sourceRoleFlagNameConstant, &configuration.Source.RoleARN)
	flags.OverrideString(flagSet, targetRoleFlagNameConstant, &configuration.Target.RoleARN)
	flags.OverrideString(flagSet, sourceRegionFlagNameConstant, &configuration.Source.Region)
	flags.OverrideString(flagSet, targetRegionFlagNameConstant, &configuration.Target.Region)
	flags.OverrideString(flagSet, keyPrefixFlagNameConstant, &configuration.KeyPrefix)
	flags.OverrideString(flagSet, keyFilterFlagNameConstant, &configuration.KeyFilter)
	flags.OverrideString(flagSet, targetSuffixFlagNameConstant, &configuration.TargetBucketSuffix)
	flags.OverrideString(flagSet, reportFormatFlagNameConstant, &configuration.ReportFormat)

	toggleTargets := map[string]*bool{
		migrateAllFlagNameConstant:         &configuration.MigrateAll,
		preserveMetadataFlagNameConstant:   &configuration.PreserveMetadata,
		preserveACLFlagNameConstant:        &configuration.PreserveACL,
		createTargetBucketFlagNameConstant: &configuration.CreateTargetBucket,
		flags.DryRunFlagName:               &configuration.DryRun,
		flags.StrictFlagName:               &configuration.Strict,
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
