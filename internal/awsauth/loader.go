package awsauth

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"

	"github.com/temirov/cloudchores/internal/failures"
	"github.com/temirov/cloudchores/internal/secrets"
)

const (
	configurationLoadErrorTemplateConstant = "unable to load AWS configuration (%s): %w"
	secretSourceErrorTemplateConstant      = "unable to resolve %s: %w"
	accessKeyIDSubjectConstant             = "access key id"
	secretAccessKeySubjectConstant         = "secret access key"
	sessionTokenSubjectConstant            = "session token"
	credentialsResolvedMessageConstant     = "AWS credentials strategy resolved"
	logFieldStrategyConstant               = "strategy"
	logFieldRegionConstant                 = "region"
	logFieldEndpointConstant               = "endpoint_url"
	logFieldSessionNameConstant            = "session_name"
)

// ConfigLoader loads SDK configuration; config.LoadDefaultConfig satisfies it.
type ConfigLoader func(loadContext context.Context, optionFunctions ...func(*config.LoadOptions) error) (aws.Config, error)

// Loader resolves credential strategies into aws.Config values.
type Loader struct {
	configLoader   ConfigLoader
	secretResolver secrets.Resolver
	logger         *zap.Logger
}

// LoaderDependencies configures a Loader; nil members fall back to SDK and OS defaults.
type LoaderDependencies struct {
	ConfigLoader   ConfigLoader
	SecretResolver secrets.Resolver
	Logger         *zap.Logger
}

// NewLoader constructs a Loader.
func NewLoader(dependencies LoaderDependencies) *Loader {
	configLoader := dependencies.ConfigLoader
	if configLoader == nil {
		configLoader = config.LoadDefaultConfig
	}
	secretResolver := dependencies.SecretResolver
	if secretResolver == nil {
		secretResolver = secrets.NewResolver(nil, nil)
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{configLoader: configLoader, secretResolver: secretResolver, logger: logger}
}

// Load resolves the strategy. Static key sources take precedence over profiles; a role ARN
// wraps whichever base credentials were resolved with an STS AssumeRole provider.
// The SDK retryer is disabled so callers own the retry policy.
func (loader *Loader) Load(loadContext context.Context, side string, configuration Configuration, runIdentifier string) (aws.Config, error) {
	sanitized := configuration.Sanitize()
	if violations := sanitized.Validate(); len(violations) > 0 {
		return aws.Config{}, failures.ValidationError{Subject: Subject(side), Violations: violations}
	}

	optionFunctions := []func(*config.LoadOptions) error{
		config.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if len(sanitized.Region) > 0 {
		optionFunctions = append(optionFunctions, config.WithRegion(sanitized.Region))
	}

	if sanitized.UsesStaticKeys() {
		staticProvider, staticError := loader.resolveStaticProvider(loadContext, sanitized)
		if staticError != nil {
			return aws.Config{}, staticError
		}
		optionFunctions = append(optionFunctions, config.WithCredentialsProvider(staticProvider))
	} else if len(sanitized.Profile) > 0 {
		optionFunctions = append(optionFunctions, config.WithSharedConfigProfile(sanitized.Profile))
	}

	awsConfig, loadError := loader.configLoader(loadContext, optionFunctions...)
	if loadError != nil {
		return aws.Config{}, fmt.Errorf(configurationLoadErrorTemplateConstant, sanitized.Describe(), loadError)
	}
	if len(awsConfig.Region) == 0 {
		awsConfig.Region = defaultRegionConstant
	}

	sessionName := ""
	if sanitized.AssumesRole() {
		sessionName = sanitized.ResolveSessionName(runIdentifier)
		stsClient := sts.NewFromConfig(awsConfig, func(options *sts.Options) {
			if len(sanitized.EndpointURL) > 0 {
				options.BaseEndpoint = aws.String(sanitized.EndpointURL)
			}
		})
		assumeRoleProvider := stscreds.NewAssumeRoleProvider(stsClient, sanitized.RoleARN, func(options *stscreds.AssumeRoleOptions) {
			options.RoleSessionName = sessionName
			if len(sanitized.ExternalID) > 0 {
				options.ExternalID = aws.String(sanitized.ExternalID)
			}
		})
		awsConfig.Credentials = aws.NewCredentialsCache(assumeRoleProvider)
	}

	loader.logger.Debug(
		credentialsResolvedMessageConstant,
		zap.String(logFieldStrategyConstant, sanitized.Describe()),
		zap.String(logFieldRegionConstant, awsConfig.Region),
		zap.String(logFieldEndpointConstant, sanitized.EndpointURL),
		zap.String(logFieldSessionNameConstant, sessionName),
	)

	return awsConfig, nil
}

func (loader *Loader) resolveStaticProvider(resolutionContext context.Context, configuration Configuration) (aws.CredentialsProvider, error) {
	accessKeyID, accessKeyError := loader.resolveSecret(resolutionContext, accessKeyIDSubjectConstant, configuration.AccessKeyIDSource)
	if accessKeyError != nil {
		return nil, accessKeyError
	}
	secretAccessKey, secretKeyError := loader.resolveSecret(resolutionContext, secretAccessKeySubjectConstant, configuration.SecretAccessKeySource)
	if secretKeyError != nil {
		return nil, secretKeyError
	}
	sessionToken := ""
	if len(configuration.SessionTokenSource) > 0 {
		resolvedToken, tokenError := loader.resolveSecret(resolutionContext, sessionTokenSubjectConstant, configuration.SessionTokenSource)
		if tokenError != nil {
			return nil, tokenError
		}
		sessionToken = resolvedToken
	}
	return credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, sessionToken), nil
}

func (loader *Loader) resolveSecret(resolutionContext context.Context, subject string, sourceDeclaration string) (string, error) {
	sourceConfiguration, parseError := secrets.ParseSource(sourceDeclaration)
	if parseError != nil {
		return "", fmt.Errorf(secretSourceErrorTemplateConstant, subject, parseError)
	}
	value, resolveError := loader.secretResolver.Resolve(resolutionContext, sourceConfiguration)
	if resolveError != nil {
		return "", fmt.Errorf(secretSourceErrorTemplateConstant, subject, resolveError)
	}
	revealed, revealError := value.Reveal()
	if revealError != nil {
		return "", fmt.Errorf(secretSourceErrorTemplateConstant, subject, revealError)
	}
	return revealed, nil
}

// NewS3Client builds an S3 client honoring custom endpoints and path-style addressing.
func NewS3Client(awsConfig aws.Config, configuration Configuration) *s3.Client {
	sanitized := configuration.Sanitize()
	return s3.NewFromConfig(awsConfig, func(options *s3.Options) {
		if len(sanitized.EndpointURL) > 0 {
			options.BaseEndpoint = aws.String(sanitized.EndpointURL)
		}
		options.UsePathStyle = sanitized.UsePathStyle
	})
}

// NewIAMClient builds an IAM client honoring custom endpoints.
func NewIAMClient(awsConfig aws.Config, configuration Configuration) *iam.Client {
	sanitized := configuration.Sanitize()
	return iam.NewFromConfig(awsConfig, func(options *iam.Options) {
		if len(sanitized.EndpointURL) > 0 {
			options.BaseEndpoint = aws.String(sanitized.EndpointURL)
		}
	})
}

// NewECRClient builds an ECR client honoring custom endpoints.
func NewECRClient(awsConfig aws.Config, configuration Configuration) *ecr.Client {
	sanitized := configuration.Sanitize()
	return ecr.NewFromConfig(awsConfig, func(options *ecr.Options) {
		if len(sanitized.EndpointURL) > 0 {
			options.BaseEndpoint = aws.String(sanitized.EndpointURL)
		}
	})
}
