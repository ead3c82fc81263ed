package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/temirov/cloudchores/internal/accountprovision"
	"github.com/temirov/cloudchores/internal/bucketmigrate"
	"github.com/temirov/cloudchores/internal/registrymanage"
	"github.com/temirov/cloudchores/internal/report"
)

// Operation runs a single workflow step.
type Operation interface {
	Name() string
	Execute(executionContext context.Context, environment *Environment) error
}

const (
	dryRunProvisionSkippedMessageConstant = "Dry run: skipping account provisioning step"
	logFieldUsernameConstant              = "username"
)

// Environment exposes shared dependencies for workflow operations. DryRun forces every migration
// and registry step into dry-run mode and skips provisioning steps, which have no preview mode.
type Environment struct {
	Logger             *zap.Logger
	DryRun             bool
	ReportWriter       *report.Writer
	BucketMigration    bucketmigrate.Runner
	AccountProvision   accountprovision.Runner
	RegistryManagement registrymanage.Runner
}

// BucketMigrationOperation copies objects with the bucket-migrate runner.
type BucketMigrationOperation struct {
	Configuration bucketmigrate.CommandConfiguration
}

// Name identifies the operation type.
func (operation *BucketMigrationOperation) Name() string {
	return string(OperationTypeBucketMigration)
}

// Execute runs the migration and writes its report.
func (operation *BucketMigrationOperation) Execute(executionContext context.Context, environment *Environment) error {
	configuration := operation.Configuration
	if environment.DryRun {
		configuration.DryRun = true
	}
	return environment.BucketMigration.Run(executionContext, configuration, environment.ReportWriter)
}

// AccountProvisionOperation creates an IAM user with the account-provision runner.
type AccountProvisionOperation struct {
	Configuration accountprovision.CommandConfiguration
}

// Name identifies the operation type.
func (operation *AccountProvisionOperation) Name() string {
	return string(OperationTypeAccountProvision)
}

// Execute provisions the account and writes its report.
func (operation *AccountProvisionOperation) Execute(executionContext context.Context, environment *Environment) error {
	if environment.DryRun {
		if environment.Logger != nil {
			environment.Logger.Warn(dryRunProvisionSkippedMessageConstant, zap.String(logFieldUsernameConstant, operation.Configuration.Username))
		}
		return nil
	}
	return environment.AccountProvision.Run(executionContext, operation.Configuration, environment.ReportWriter)
}

// RegistryManagementOperation runs one registry action with the registry-manage runner.
type RegistryManagementOperation struct {
	Configuration registrymanage.CommandConfiguration
}

// Name identifies the operation type.
func (operation *RegistryManagementOperation) Name() string {
	return string(OperationTypeRegistryManagement)
}

// Execute runs the registry action and writes its report.
func (operation *RegistryManagementOperation) Execute(executionContext context.Context, environment *Environment) error {
	configuration := operation.Configuration
	if environment.DryRun {
		configuration.DryRun = true
	}
	return environment.RegistryManagement.Run(executionContext, configuration, environment.ReportWriter)
}
