package accountprovision

import (
	"strings"

	"github.com/temirov/cloudchores/internal/awsauth"
	"github.com/temirov/cloudchores/internal/report"
	"github.com/temirov/cloudchores/internal/retry"
	"github.com/temirov/cloudchores/internal/secrets"
)

const (
	defaultPasswordSourceConstant = "env:CLOUDCHORES_INITIAL_PASSWORD"
	defaultPartitionConstant      = "aws"
)

// CommandConfiguration captures persistent settings for the account-provision command.
// The password is referenced through a secret source, never stored inline.
type CommandConfiguration struct {
	Username           string                `mapstructure:"username"`
	PasswordSource     string                `mapstructure:"password_source"`
	AccessLevel        string                `mapstructure:"access_level"`
	ForcePasswordReset bool                  `mapstructure:"force_password_reset"`
	CreateAccessKey    bool                  `mapstructure:"create_access_key"`
	Groups             []string              `mapstructure:"groups"`
	EnforceMFA         bool                  `mapstructure:"enforce_mfa"`
	Partition          string                `mapstructure:"partition"`
	ReportFormat       string                `mapstructure:"report_format"`
	Credentials        awsauth.Configuration `mapstructure:"credentials"`
	Retry              retry.Policy          `mapstructure:"retry"`
}

// DefaultCommandConfiguration returns baseline configuration values for the account-provision command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		PasswordSource:     defaultPasswordSourceConstant,
		AccessLevel:        string(AccessLevelReadOnly),
		ForcePasswordReset: true,
		Groups:             []string{},
		Partition:          defaultPartitionConstant,
		ReportFormat:       string(report.FormatJSON),
		Retry:              retry.DefaultPolicy(),
	}
}

// Sanitize trims whitespace, normalizes enumerations, and applies defaults to unset values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.Username = strings.TrimSpace(configuration.Username)
	sanitized.PasswordSource = strings.TrimSpace(configuration.PasswordSource)
	if len(sanitized.PasswordSource) == 0 {
		sanitized.PasswordSource = defaultPasswordSourceConstant
	}
	sanitized.AccessLevel = string(NormalizeAccessLevel(configuration.AccessLevel))
	if len(sanitized.AccessLevel) == 0 {
		sanitized.AccessLevel = string(AccessLevelReadOnly)
	}
	sanitized.Groups = sanitizeGroups(configuration.Groups)
	sanitized.Partition = strings.TrimSpace(configuration.Partition)
	if len(sanitized.Partition) == 0 {
		sanitized.Partition = defaultPartitionConstant
	}
	sanitized.ReportFormat = strings.TrimSpace(configuration.ReportFormat)
	sanitized.Credentials = configuration.Credentials.Sanitize()
	sanitized.Retry = configuration.Retry.Sanitize()
	return sanitized
}

// Request converts the configuration into a provisioning request carrying the resolved password.
func (configuration CommandConfiguration) Request(initialPassword *secrets.Value) ProvisionRequest {
	return ProvisionRequest{
		Username:           configuration.Username,
		InitialPassword:    initialPassword,
		AccessLevel:        AccessLevel(configuration.AccessLevel),
		ForcePasswordReset: configuration.ForcePasswordReset,
		CreateAccessKey:    configuration.CreateAccessKey,
		Groups:             append([]string{}, configuration.Groups...),
		EnforceMFA:         configuration.EnforceMFA,
		Partition:          configuration.Partition,
		Credentials:        configuration.Credentials,
	}
}
