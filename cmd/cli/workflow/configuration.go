package workflow

import (
	"strings"

	"github.com/temirov/cloudchores/internal/report"
)

// CommandConfiguration captures configuration values for workflow.
type CommandConfiguration struct {
	File         string `mapstructure:"file"`
	DryRun       bool   `mapstructure:"dry_run"`
	ReportFormat string `mapstructure:"report_format"`
}

// DefaultCommandConfiguration provides default workflow command settings.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		DryRun:       false,
		ReportFormat: string(report.FormatJSON),
	}
}

// Sanitize normalizes configuration values.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.File = strings.TrimSpace(configuration.File)
	sanitized.ReportFormat = strings.TrimSpace(configuration.ReportFormat)
	if len(sanitized.ReportFormat) == 0 {
		sanitized.ReportFormat = string(report.FormatJSON)
	}
	return sanitized
}
