package bucketmigrate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/cloudchores/internal/awsauth"
	"github.com/temirov/cloudchores/internal/failures"
	"github.com/temirov/cloudchores/internal/report"
	"github.com/temirov/cloudchores/internal/retry"
)

const (
	runFailedErrorTemplateConstant   = "bucket-migrate failed: %w"
	reportWriteErrorTemplateConstant = "unable to write migration report: %w"
	missingReportWriterErrorConstant = "bucket-migrate requires a report writer"
	strictModeLogFieldConstant       = "strict"
	reportWrittenMessageConstant     = "Migration report written"
	logFieldReportFormatConstant     = "report_format"
)

// MigrationExecutor runs migration requests.
type MigrationExecutor interface {
	Migrate(executionContext context.Context, request MigrationRequest) (MigrationReport, error)
}

// ServiceProvider constructs a migration executor from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (MigrationExecutor, error)

// Runner wires configuration, credentials, the service and the report writer for one invocation.
// The command and the workflow runner share it.
type Runner struct {
	Logger          *zap.Logger
	RunIdentifier   string
	StoreFactory    StoreFactory
	ServiceProvider ServiceProvider
}

// Run executes the configured migration, writes the report, and returns an error when the run
// should exit non-zero.
func (runner Runner) Run(executionContext context.Context, configuration CommandConfiguration, reportWriter *report.Writer) error {
	if reportWriter == nil {
		return errors.New(missingReportWriterErrorConstant)
	}
	sanitized := configuration.Sanitize()
	logger := runner.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	storeFactory := runner.StoreFactory
	if storeFactory == nil {
		storeFactory = NewAWSStoreFactory(awsauth.NewLoader(awsauth.LoaderDependencies{Logger: logger}), runner.RunIdentifier)
	}

	serviceDependencies := ServiceDependencies{
		Logger:       logger,
		StoreFactory: storeFactory,
		Retrier:      retry.NewRetrier(sanitized.Retry, retry.WithLogger(logger)),
	}
	executor, serviceError := runner.resolveService(serviceDependencies)
	if serviceError != nil {
		return fmt.Errorf(runFailedErrorTemplateConstant, serviceError)
	}

	migrationReport, migrateError := executor.Migrate(executionContext, sanitized.Request())
	var validationError failures.ValidationError
	if errors.As(migrateError, &validationError) {
		return fmt.Errorf(runFailedErrorTemplateConstant, migrateError)
	}

	migrationReport.RunID = runner.RunIdentifier
	if writeError := reportWriter.Write(migrationReport); writeError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, writeError)
	}
	logger.Debug(
		reportWrittenMessageConstant,
		zap.String(logFieldReportFormatConstant, string(reportWriter.Format())),
		zap.Bool(strictModeLogFieldConstant, sanitized.Strict),
	)

	if runError := errors.Join(migrateError, migrationReport.Verdict(sanitized.Strict)); runError != nil {
		return fmt.Errorf(runFailedErrorTemplateConstant, runError)
	}
	return nil
}

func (runner Runner) resolveService(dependencies ServiceDependencies) (MigrationExecutor, error) {
	if runner.ServiceProvider != nil {
		return runner.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}
