package accountprovision

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
	runFailedErrorTemplateConstant      = "account-provision failed: %w"
	passwordSourceErrorTemplateConstant = "unable to resolve initial password: %w"
	reportWriteErrorTemplateConstant    = "unable to write provisioning report: %w"
	missingReportWriterErrorConstant    = "account-provision requires a report writer"
	reportWrittenMessageConstant        = "Provisioning report written"
	logFieldReportFormatConstant        = "report_format"
)

// ProvisionExecutor runs provisioning requests.
type ProvisionExecutor interface {
	Provision(executionContext context.Context, request ProvisionRequest) (ProvisionResult, error)
}

// ServiceProvider constructs a provisioning executor from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (ProvisionExecutor, error)

// Runner wires configuration, the password source, the service and the report writer for one invocation.
type Runner struct {
	Logger          *zap.Logger
	RunIdentifier   string
	ClientFactory   IdentityClientFactory
	ServiceProvider ServiceProvider
	SecretResolver  secrets.Resolver
}

// Run provisions the configured account. The report is written once the IAM API has been reached,
// and it is the only output that ever carries the access key secret.
func (runner Runner) Run(executionContext context.Context, configuration CommandConfiguration, reportWriter *report.Writer) error {
	if reportWriter == nil {
		return errors.New(missingReportWriterErrorConstant)
	}
	sanitized := configuration.Sanitize()
	logger := runner.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	secretResolver := runner.SecretResolver
	if secretResolver == nil {
		secretResolver = secrets.NewResolver(nil, nil)
	}

	passwordSource, sourceError := secrets.ParseSource(sanitized.PasswordSource)
	if sourceError != nil {
		return fmt.Errorf(runFailedErrorTemplateConstant, fmt.Errorf(passwordSourceErrorTemplateConstant, sourceError))
	}
	initialPassword, resolveError := secretResolver.Resolve(executionContext, passwordSource, secrets.WithOneTimeUse(false))
	if resolveError != nil {
		return fmt.Errorf(runFailedErrorTemplateConstant, fmt.Errorf(passwordSourceErrorTemplateConstant, resolveError))
	}

	clientFactory := runner.ClientFactory
	if clientFactory == nil {
		clientFactory = NewAWSIdentityClientFactory(awsauth.NewLoader(awsauth.LoaderDependencies{Logger: logger, SecretResolver: secretResolver}), runner.RunIdentifier)
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

	result, provisionError := executor.Provision(executionContext, sanitized.Request(initialPassword))
	var validationError failures.ValidationError
	if errors.As(provisionError, &validationError) || len(result.Steps) == 0 {
		if provisionError == nil {
			return nil
		}
		return fmt.Errorf(runFailedErrorTemplateConstant, provisionError)
	}

	document, documentError := result.Document(runner.RunIdentifier)
	if documentError != nil {
		return fmt.Errorf(runFailedErrorTemplateConstant, errors.Join(provisionError, documentError))
	}
	if writeError := reportWriter.Write(document); writeError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, writeError)
	}
	logger.Debug(reportWrittenMessageConstant, zap.String(logFieldReportFormatConstant, string(reportWriter.Format())))

	if provisionError != nil {
		return fmt.Errorf(runFailedErrorTemplateConstant, provisionError)
	}
	return nil
}

func (runner Runner) resolveService(dependencies ServiceDependencies) (ProvisionExecutor, error) {
	if runner.ServiceProvider != nil {
		return runner.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}
