package registrymanage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/cloudchores/internal/awsauth"
	"github.com/temirov/cloudchores/internal/failures"
	"github.com/temirov/cloudchores/internal/report"
	"github.com/temirov/cloudchores/internal/retry"
	"github.com/temirov/cloudchores/internal/secrets"
)

const (
	runFailedErrorTemplateConstant   = "registry-manage failed: %w"
	reportWriteErrorTemplateConstant = "unable to write registry report: %w"
	missingReportWriterErrorConstant = "registry-manage requires a report writer"
	reportWrittenMessageConstant     = "Registry report written"
	logFieldReportFormatConstant     = "report_format"
)

// ManageExecutor runs registry requests.
type ManageExecutor interface {
	Manage(executionContext context.Context, request ManageRequest) (ManageResult, error)
}

// ServiceProvider constructs a registry executor from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (ManageExecutor, error)

// Runner wires configuration, the service and the report writer for one invocation.
type Runner struct {
	Logger          *zap.Logger
	RunIdentifier   string
	ClientFactory   RegistryClientFactory
	ServiceProvider ServiceProvider
}

// Run executes the configured action. Invalid requests fail before any report is written; every
// other outcome, including a failed run, writes the report first.
func (runner Runner) Run(executionContext context.Context, configuration CommandConfiguration, reportWriter *report.Writer) error {
	if reportWriter == nil {
		return errors.New(missingReportWriterErrorConstant)
	}
	sanitized := configuration.Sanitize()
	logger := runner.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clientFactory := runner.ClientFactory
	if clientFactory == nil {
		loader := awsauth.NewLoader(awsauth.LoaderDependencies{Logger: logger, SecretResolver: secrets.NewResolver(nil, nil)})
		clientFactory = NewAWSRegistryClientFactory(loader, runner.RunIdentifier)
	}

	serviceDependencies := ServiceDependencies{
		Logger:        logger,
		ClientFactory: clientFactory,
		Retrier:       retry.NewRetrier(sanitized.Retry, retry.WithLogger(logger)),
	}
	executor, serviceError := runner.resolveService(serviceDependencies)
	if serviceError != nil {
		return fmt.Errorf(runFailedErrorTemplateConstant, serviceError)
	}

	result, manageError := executor.Manage(executionContext, sanitized.Request())
	var validationError failures.ValidationError
	if errors.As(manageError, &validationError) {
		return fmt.Errorf(runFailedErrorTemplateConstant, manageError)
	}

	result.RunID = runner.RunIdentifier
	if writeError := reportWriter.Write(result); writeError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, writeError)
	}
	logger.Debug(reportWrittenMessageConstant, zap.String(logFieldReportFormatConstant, string(reportWriter.Format())))

	if manageError != nil {
		return fmt.Errorf(runFailedErrorTemplateConstant, manageError)
	}
	return nil
}

func (runner Runner) resolveService(dependencies ServiceDependencies) (ManageExecutor, error) {
	if runner.ServiceProvider != nil {
		return runner.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}
