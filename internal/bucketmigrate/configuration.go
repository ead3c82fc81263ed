package bucketmigrate

import (
	"strings"

	"github.com/temirov/cloudchores/internal/awsauth"
	"github.com/temirov/cloudchores/internal/report"
	"github.com/temirov/cloudchores/internal/retry"
)

const (
	defaultTargetBucketSuffixConstant = "-migrated"
)

// CommandConfiguration captures persistent settings for the bucket-migrate command.
type CommandConfiguration struct {
	SourceBucket       string                `mapstructure:"source_bucket"`
	TargetBucket       string                `mapstructure:"target_bucket"`
	MigrateAll         bool                  `mapstructure:"migrate_all"`
	TargetBucketSuffix string                `mapstructure:"target_bucket_suffix"`
	CreateTargetBucket bool                  `mapstructure:"create_target_bucket"`
	PreserveMetadata   bool                  `mapstructure:"preserve_metadata"`
	PreserveACL        bool                  `mapstructure:"preserve_acl"`
	DryRun             bool                  `mapstructure:"dry_run"`
	Strict             bool                  `mapstructure:"strict"`
	KeyPrefix          string                `mapstructure:"key_prefix"`
	KeyFilter          string                `mapstructure:"key_filter"`
	ReportFormat       string                `mapstructure:"report_format"`
	Source             awsauth.Configuration `mapstructure:"source"`
	Target             awsauth.Configuration `mapstructure:"target"`
	Retry              retry.Policy          `mapstructure:"retry"`
}

// DefaultCommandConfiguration returns baseline configuration values for the bucket-migrate command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		TargetBucketSuffix: defaultTargetBucketSuffixConstant,
		CreateTargetBucket: true,
		PreserveMetadata:   true,
		PreserveACL:        true,
		ReportFormat:       string(report.FormatJSON),
		Retry:              retry.DefaultPolicy(),
	}
}

// Sanitize trims whitespace and applies defaults to unset configuration values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.SourceBucket = strings.TrimSpace(configuration.SourceBucket)
	sanitized.TargetBucket = strings.TrimSpace(configuration.TargetBucket)
	sanitized.TargetBucketSuffix = strings.TrimSpace(configuration.TargetBucketSuffix)
	if len(sanitized.TargetBucketSuffix) == 0 {
		sanitized.TargetBucketSuffix = defaultTargetBucketSuffixConstant
	}
	sanitized.KeyPrefix = strings.TrimSpace(configuration.KeyPrefix)
	sanitized.KeyFilter = strings.TrimSpace(configuration.KeyFilter)
	sanitized.ReportFormat = strings.TrimSpace(configuration.ReportFormat)
	sanitized.Source = configuration.Source.Sanitize()
	sanitized.Target = configuration.Target.Sanitize()
	sanitized.Retry = configuration.Retry.Sanitize()
	return sanitized
}

// Request converts the configuration into a migration request.
func (configuration CommandConfiguration) Request() MigrationRequest {
	return MigrationRequest{
		SourceBucket:       configuration.SourceBucket,
		TargetBucket:       configuration.TargetBucket,
		SourceCredentials:  configuration.Source,
		TargetCredentials:  configuration.Target,
		PreserveMetadata:   configuration.PreserveMetadata,
		PreserveACL:        configuration.PreserveACL,
		DryRun:             configuration.DryRun,
		KeyPrefix:          configuration.KeyPrefix,
		KeyFilter:          configuration.KeyFilter,
		MigrateAll:         configuration.MigrateAll,
		TargetBucketSuffix: configuration.TargetBucketSuffix,
		CreateTargetBucket: configuration.CreateTargetBucket,
	}
}
