package accountprovision

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"go.uber.org/zap"

	"github.com/temirov/cloudchores/internal/failures"
	"github.com/temirov/cloudchores/internal/retry"
	"github.com/temirov/cloudchores/internal/secrets"
)

const (
	operationCreateUserConstant             = "CreateUser"
	operationCreateLoginProfileConstant     = "CreateLoginProfile"
	operationUpdateLoginProfileConstant     = "UpdateLoginProfile"
	operationAttachUserPolicyConstant       = "AttachUserPolicy"
	operationAddUserToGroupConstant         = "AddUserToGroup"
	operationPutUserPolicyConstant          = "PutUserPolicy"
	operationCreateAccessKeyConstant        = "CreateAccessKey"
	userResourceTypeConstant                = "IAM user"
	userResourceTemplateConstant            = "IAM user %s"
	missingClientFactoryErrorConstant       = "account provisioning requires an identity client factory"
	clientResolutionErrorTemplateConstant   = "unable to construct IAM client: %w"
	unknownAccessLevelErrorTemplateConstant = "no managed policy for access level %q"
	passwordRevealErrorTemplateConstant     = "unable to read initial password: %w"
	mfaPolicyErrorTemplateConstant          = "unable to build MFA policy document: %w"
	provisioningStartedMessageConstant      = "Account provisioning started"
	provisioningCompletedMessageConstant    = "Account provisioned"
	provisioningPartialMessageConstant      = "Account provisioning incomplete"
	userCreationFailedMessageConstant       = "IAM user creation failed"
	stepCompletedMessageConstant            = "Provisioning step completed"
	stepFailedMessageConstant               = "Provisioning step failed"
	logFieldUsernameConstant                = "username"
	logFieldAccessLevelConstant             = "access_level"
	logFieldGroupsConstant                  = "groups"
	logFieldForceResetConstant              = "force_password_reset"
	logFieldEnforceMFAConstant              = "enforce_mfa"
	logFieldCreateAccessKeyConstant         = "create_access_key"
	logFieldStepConstant                    = "step"
	logFieldTargetConstant                  = "target"
	logFieldAttemptsConstant                = "attempts"
	logFieldFailureKindConstant             = "failure_kind"
	logFieldUserARNConstant                 = "user_arn"
	logFieldFailedStepsConstant             = "failed_steps"
)

// ServiceDependencies enumerates collaborators required by the provisioning service.
type ServiceDependencies struct {
	Logger        *zap.Logger
	ClientFactory IdentityClientFactory
	Retrier       *retry.Retrier
}

// Service creates IAM users.
type Service struct {
	logger        *zap.Logger
	clientFactory IdentityClientFactory
	retrier       *retry.Retrier
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.ClientFactory == nil {
		return nil, errors.New(missingClientFactoryErrorConstant)
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	retrier := dependencies.Retrier
	if retrier == nil {
		retrier = retry.NewRetrier(retry.DefaultPolicy(), retry.WithLogger(logger))
	}
	return &Service{logger: logger, clientFactory: dependencies.ClientFactory, retrier: retrier}, nil
}

// Provision creates the user and attempts every follow-up step. A collision on the user name returns
// failures.AlreadyExistsError without touching the existing user; failures after creation return
// failures.PartialCompletionError and are never rolled back.
func (service *Service) Provision(executionContext context.Context, request ProvisionRequest) (ProvisionResult, error) {
	accessLevel := NormalizeAccessLevel(string(request.AccessLevel))
	result := ProvisionResult{Username: request.Username, AccessLevel: accessLevel}

	if validationError := request.Validate(); validationError != nil {
		return result, validationError
	}

	policyARN, knownLevel := ManagedPolicyARN(request.Partition, accessLevel)
	if !knownLevel {
		return result, fmt.Errorf(unknownAccessLevelErrorTemplateConstant, accessLevel)
	}
	password, passwordError := request.InitialPassword.Reveal()
	if passwordError != nil {
		return result, fmt.Errorf(passwordRevealErrorTemplateConstant, passwordError)
	}
	var mfaDocument string
	if request.EnforceMFA {
		document, documentError := MFAPolicyDocument()
		if documentError != nil {
			return result, fmt.Errorf(mfaPolicyErrorTemplateConstant, documentError)
		}
		mfaDocument = document
	}

	client, clientError := service.clientFactory(executionContext, request.Credentials)
	if clientError != nil {
		return result, fmt.Errorf(clientResolutionErrorTemplateConstant, clientError)
	}

	userLogger := service.logger.With(zap.String(logFieldUsernameConstant, request.Username))
	groups := request.sortedGroups()
	userLogger.Info(
		provisioningStartedMessageConstant,
		zap.String(logFieldAccessLevelConstant, string(accessLevel)),
		zap.Strings(logFieldGroupsConstant, groups),
		zap.Bool(logFieldForceResetConstant, request.ForcePasswordReset),
		zap.Bool(logFieldEnforceMFAConstant, request.EnforceMFA),
		zap.Bool(logFieldCreateAccessKeyConstant, request.CreateAccessKey),
	)

	var createOutput *iam.CreateUserOutput
	createAttempts, createError := service.call(executionContext, operationCreateUserConstant, request.Username, func(callContext context.Context) error {
		output, callError := client.CreateUser(callContext, &iam.CreateUserInput{UserName: aws.String(request.Username)})
		createOutput = output
		return callError
	})
	result.recordStep(StepCreateUser, request.Username, createAttempts, createError)
	if createError != nil {
		userLogger.Error(userCreationFailedMessageConstant, zap.String(logFieldFailureKindConstant, string(failures.Classify(createError))), zap.Error(createError))
		if failures.Classify(createError) == failures.KindAlreadyExists {
			return result, failures.AlreadyExistsError{ResourceType: userResourceTypeConstant, Identifier: request.Username, Cause: createError}
		}
		return result, createError
	}
	if createOutput != nil && createOutput.User != nil {
		result.UserARN = aws.ToString(createOutput.User.Arn)
		result.CreatedAt = aws.ToTime(createOutput.User.CreateDate)
	}
	userLogger.Info(stepCompletedMessageConstant, zap.String(logFieldStepConstant, StepCreateUser), zap.String(logFieldUserARNConstant, result.UserARN))

	var stepFailures []error
	runStep := func(step string, target string, operationName string, operation retry.Operation) bool {
		attempts, stepError := service.call(executionContext, operationName, target, operation)
		result.recordStep(step, target, attempts, stepError)
		if stepError != nil {
			stepFailures = append(stepFailures, stepError)
			userLogger.Warn(
				stepFailedMessageConstant,
				zap.String(logFieldStepConstant, step),
				zap.String(logFieldTargetConstant, target),
				zap.String(logFieldFailureKindConstant, string(failures.Classify(stepError))),
				zap.Int(logFieldAttemptsConstant, attempts),
				zap.Error(stepError),
			)
			return false
		}
		userLogger.Info(stepCompletedMessageConstant, zap.String(logFieldStepConstant, step), zap.String(logFieldTargetConstant, target))
		return true
	}

	runStep(StepCreateLoginProfile, request.Username, operationCreateLoginProfileConstant, func(callContext context.Context) error {
		_, callError := client.CreateLoginProfile(callContext, &iam.CreateLoginProfileInput{
			UserName: aws.String(request.Username),
			Password: aws.String(password),
		})
		return callError
	})

	if runStep(StepAttachPolicy, policyARN, operationAttachUserPolicyConstant, func(callContext context.Context) error {
		_, callError := client.AttachUserPolicy(callContext, &iam.AttachUserPolicyInput{
			UserName:  aws.String(request.Username),
			PolicyArn: aws.String(policyARN),
		})
		return callError
	}) {
		result.AttachedPolicies = append(result.AttachedPolicies, policyARN)
	}

	for _, groupName := range groups {
		if runStep(StepAddToGroup, groupName, operationAddUserToGroupConstant, func(callContext context.Context) error {
			_, callError := client.AddUserToGroup(callContext, &iam.AddUserToGroupInput{
				UserName:  aws.String(request.Username),
				GroupName: aws.String(groupName),
			})
			return callError
		}) {
			result.Groups = append(result.Groups, groupName)
		}
	}

	if request.ForcePasswordReset {
		result.PasswordResetRequired = runStep(StepRequirePasswordReset, request.Username, operationUpdateLoginProfileConstant, func(callContext context.Context) error {
			_, callError := client.UpdateLoginProfile(callContext, &iam.UpdateLoginProfileInput{
				UserName:              aws.String(request.Username),
				PasswordResetRequired: aws.Bool(true),
			})
			return callError
		})
	}

	if request.EnforceMFA {
		result.MFAEnforced = runStep(StepEnforceMFA, mfaPolicyNameConstant, operationPutUserPolicyConstant, func(callContext context.Context) error {
			_, callError := client.PutUserPolicy(callContext, &iam.PutUserPolicyInput{
				UserName:       aws.String(request.Username),
				PolicyName:     aws.String(mfaPolicyNameConstant),
				PolicyDocument: aws.String(mfaDocument),
			})
			return callError
		})
	}

	if request.CreateAccessKey {
		runStep(StepCreateAccessKey, request.Username, operationCreateAccessKeyConstant, func(callContext context.Context) error {
			output, callError := client.CreateAccessKey(callContext, &iam.CreateAccessKeyInput{UserName: aws.String(request.Username)})
			if callError != nil {
				return callError
			}
			if output != nil && output.AccessKey != nil {
				result.AccessKeyID = aws.ToString(output.AccessKey.AccessKeyId)
				result.AccessKeySecret = secrets.NewValue(aws.ToString(output.AccessKey.SecretAccessKey))
			}
			return nil
		})
	}

	if len(stepFailures) > 0 {
		failedSteps := result.FailedSteps()
		userLogger.Warn(provisioningPartialMessageConstant, zap.Strings(logFieldFailedStepsConstant, failedSteps))
		return result, failures.PartialCompletionError{
			Resource:    fmt.Sprintf(userResourceTemplateConstant, request.Username),
			FailedSteps: failedSteps,
			Causes:      stepFailures,
		}
	}

	userLogger.Info(provisioningCompletedMessageConstant, zap.String(logFieldUserARNConstant, result.UserARN))
	return result, nil
}

func (service *Service) call(executionContext context.Context, operationName string, resource string, operation retry.Operation) (int, error) {
	attempts, callError := service.retrier.Do(executionContext, operationName, operation)
	if callError != nil {
		return attempts, failures.NewProviderError(operationName, resource, attempts, callError)
	}
	return attempts, nil
}
