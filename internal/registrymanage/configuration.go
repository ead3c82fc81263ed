package registrymanage

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ecr/types"

	"github.com/temirov/cloudchores/internal/awsauth"
	"github.com/temirov/cloudchores/internal/report"
	"github.com/temirov/cloudchores/internal/retry"
)

const defaultRetentionDaysConstant = 30

// CommandConfiguration captures persistent settings for the registry-manage command.
type CommandConfiguration struct {
	Action             string                `mapstructure:"action"`
	RepositoryName     string                `mapstructure:"repository_name"`
	ImageTagMutability string                `mapstructure:"image_tag_mutability"`
	ScanOnPush         bool                  `mapstructure:"scan_on_push"`
	EncryptionType     string                `mapstructure:"encryption_type"`
	KMSKey             string                `mapstructure:"kms_key"`
	LifecyclePolicy    string                `mapstructure:"lifecycle_policy"`
	RetentionDays      int                   `mapstructure:"retention_days"`
	DryRun             bool                  `mapstructure:"dry_run"`
	ReportFormat       string                `mapstructure:"report_format"`
	Credentials        awsauth.Configuration `mapstructure:"credentials"`
	Retry              retry.Policy          `mapstructure:"retry"`
}

// DefaultCommandConfiguration returns baseline configuration values for the registry-manage command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Action:             string(ActionList),
		ImageTagMutability: string(types.ImageTagMutabilityMutable),
		ScanOnPush:         true,
		EncryptionType:     string(types.EncryptionTypeAes256),
		RetentionDays:      defaultRetentionDaysConstant,
		ReportFormat:       string(report.FormatJSON),
		Retry:              retry.DefaultPolicy(),
	}
}

// Sanitize trims whitespace, normalizes enumerations, and applies defaults to unset values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Action = string(NormalizeAction(configuration.Action))
	if len(sanitized.Action) == 0 {
		sanitized.Action = string(ActionList)
	}
	sanitized.RepositoryName = strings.TrimSpace(configuration.RepositoryName)
	sanitized.ImageTagMutability = strings.ToUpper(strings.TrimSpace(configuration.ImageTagMutability))
	if len(sanitized.ImageTagMutability) == 0 {
		sanitized.ImageTagMutability = string(types.ImageTagMutabilityMutable)
	}
	sanitized.EncryptionType = strings.ToUpper(strings.TrimSpace(configuration.EncryptionType))
	if len(sanitized.EncryptionType) == 0 {
		sanitized.EncryptionType = string(types.EncryptionTypeAes256)
	}
	sanitized.KMSKey = strings.TrimSpace(configuration.KMSKey)
	sanitized.LifecyclePolicy = strings.TrimSpace(configuration.LifecyclePolicy)
	sanitized.ReportFormat = strings.TrimSpace(configuration.ReportFormat)
	sanitized.Credentials = configuration.Credentials.Sanitize()
	sanitized.Retry = configuration.Retry.Sanitize()
	return sanitized
}

// Request converts the configuration into a registry request.
func (configuration CommandConfiguration) Request() ManageRequest {
	return ManageRequest{
		Action:             Action(configuration.Action),
		RepositoryName:     configuration.RepositoryName,
		ImageTagMutability: types.ImageTagMutability(configuration.ImageTagMutability),
		ScanOnPush:         configuration.ScanOnPush,
		EncryptionType:     types.EncryptionType(configuration.EncryptionType),
		KMSKey:             configuration.KMSKey,
		LifecyclePolicy:    configuration.LifecyclePolicy,
		RetentionDays:      configuration.RetentionDays,
		DryRun:             configuration.DryRun,
		Credentials:        configuration.Credentials,
	}
}
