package registrymanage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"go.uber.org/zap"

	"github.com/temirov/cloudchores/internal/failures"
	"github.com/temirov/cloudchores/internal/retry"
)

const (
	operationCreateRepositoryConstant       = "CreateRepository"
	operationDescribeRepositoriesConstant   = "DescribeRepositories"
	operationPutScanConfigurationConstant   = "PutImageScanningConfiguration"
	operationPutTagMutabilityConstant       = "PutImageTagMutability"
	operationPutLifecyclePolicyConstant     = "PutLifecyclePolicy"
	operationGetLifecyclePolicyConstant     = "GetLifecyclePolicy"
	operationDescribeImagesConstant         = "DescribeImages"
	operationBatchDeleteImageConstant       = "BatchDeleteImage"
	repositoryResourceTemplateConstant      = "repository %s"
	registryResourceConstant                = "registry"
	missingClientFactoryErrorConstant       = "registry management requires a registry client factory"
	clientResolutionErrorTemplateConstant   = "unable to construct ECR client: %w"
	repositoryMissingErrorTemplateConstant  = "repository %s was not returned by DescribeRepositories"
	updateIncompleteErrorTemplateConstant   = "repository %s update incomplete: %d step(s) failed: %w"
	cleanupIncompleteErrorTemplateConstant  = "repository %s cleanup incomplete: %d image(s) could not be deleted"
	repositoryExistsWarningTemplateConstant = "repository %s already exists; settings were left unchanged, use the update action to change them"
	imageCountWarningTemplateConstant       = "repository %s: image count unavailable (%s): %v"
	lifecyclePolicyWarningTemplateConstant  = "repository %s: lifecycle policy unavailable (%s): %v"
	recentImagesWarningTemplateConstant     = "repository %s: recent images unavailable (%s): %v"
	imageGoneWarningTemplateConstant        = "image %s was already gone"
	batchDeleteFailedReasonTemplateConstant = "%s: %v"
	managementStartedMessageConstant        = "Registry management started"
	managementCompletedMessageConstant      = "Registry management completed"
	managementIncompleteMessageConstant     = "Registry management incomplete"
	stepCompletedMessageConstant            = "Registry step completed"
	stepFailedMessageConstant               = "Registry step failed"
	repositoryExistsMessageConstant         = "Repository already exists"
	cleanupCandidatesMessageConstant        = "Expired images selected"
	imageDeleteFailedMessageConstant        = "Image deletion failed"
	logFieldActionConstant                  = "action"
	logFieldRepositoryConstant              = "repository"
	logFieldDryRunConstant                  = "dry_run"
	logFieldStepConstant                    = "step"
	logFieldAttemptsConstant                = "attempts"
	logFieldFailureKindConstant             = "failure_kind"
	logFieldExaminedConstant                = "examined"
	logFieldExpiredConstant                 = "expired"
	logFieldCutoffConstant                  = "cutoff"
	logFieldDigestConstant                  = "digest"
	logFieldFailedStepsConstant             = "failed_steps"
	batchDeleteLimitConstant                = 100
	retentionDayDurationConstant            = 24 * time.Hour
)

const (
	imagePageSizeConstant      int32 = 1000
	repositoryPageSizeConstant int32 = 1000
	recentImageCountConstant   int32 = 10
)

type repositoryStep struct {
	name      string
	operation string
	call      retry.Operation
}

// ServiceDependencies enumerates collaborators required by the registry service.
type ServiceDependencies struct {
	Logger        *zap.Logger
	ClientFactory RegistryClientFactory
	Retrier       *retry.Retrier
	Now           func() time.Time
}

// Service runs registry chores against ECR.
type Service struct {
	logger        *zap.Logger
	clientFactory RegistryClientFactory
	retrier       *retry.Retrier
	now           func() time.Time
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
	now := dependencies.Now
	if now == nil {
		now = time.Now
	}
	return &Service{logger: logger, clientFactory: dependencies.ClientFactory, retrier: retrier, now: now}, nil
}

// Manage validates the request and runs its action. The returned result is populated as far as the
// run progressed, including when an error is returned.
func (service *Service) Manage(executionContext context.Context, request ManageRequest) (ManageResult, error) {
	request.Action = NormalizeAction(string(request.Action))
	result := ManageResult{Action: request.Action, DryRun: request.DryRun, RepositoryName: request.RepositoryName}

	if validationError := request.Validate(); validationError != nil {
		return result, validationError
	}

	client, clientError := service.clientFactory(executionContext, request.Credentials)
	if clientError != nil {
		return result, fmt.Errorf(clientResolutionErrorTemplateConstant, clientError)
	}

	actionLogger := service.logger.With(
		zap.String(logFieldActionConstant, string(request.Action)),
		zap.String(logFieldRepositoryConstant, request.RepositoryName),
	)
	actionLogger.Info(managementStartedMessageConstant, zap.Bool(logFieldDryRunConstant, request.DryRun))

	var actionError error
	switch request.Action {
	case ActionCreate:
		actionError = service.createRepository(executionContext, client, request, &result, actionLogger)
	case ActionUpdate:
		actionError = service.updateRepository(executionContext, client, request, &result, actionLogger)
	case ActionCleanup:
		actionError = service.cleanupRepository(executionContext, client, request, &result, actionLogger)
	case ActionList:
		actionError = service.listRepositories(executionContext, client, &result)
	case ActionDescribe:
		actionError = service.describeRepository(executionContext, client, request, &result)
	}

	if actionError != nil {
		actionLogger.Warn(managementIncompleteMessageConstant, zap.String(logFieldFailureKindConstant, string(failures.Classify(actionError))), zap.Error(actionError))
		return result, actionError
	}
	actionLogger.Info(managementCompletedMessageConstant)
	return result, nil
}

// createRepository creates the repository with its scanning and encryption settings, then applies the
// lifecycle policy. An existing repository is reported and left untouched.
func (service *Service) createRepository(executionContext context.Context, client RegistryClient, request ManageRequest, result *ManageResult, actionLogger *zap.Logger) error {
	repositoryResource := fmt.Sprintf(repositoryResourceTemplateConstant, request.RepositoryName)
	lifecyclePolicy, _ := request.normalizedLifecyclePolicy()

	if request.DryRun {
		existing, lookupError := service.lookupRepository(executionContext, client, request.RepositoryName)
		switch {
		case lookupError == nil:
			result.Repository = &existing
			result.recordStep(StepCreateRepository, StepUnchanged, 0, nil)
			result.Warnings = append(result.Warnings, fmt.Sprintf(repositoryExistsWarningTemplateConstant, request.RepositoryName))
			return nil
		case failures.Classify(lookupError) != failures.KindNotFound:
			return lookupError
		}
		result.recordStep(StepCreateRepository, StepPlanned, 0, nil)
		if len(lifecyclePolicy) > 0 {
			result.recordStep(StepPutLifecyclePolicy, StepPlanned, 0, nil)
		}
		return nil
	}

	createInput := &ecr.CreateRepositoryInput{
		RepositoryName:             aws.String(request.RepositoryName),
		ImageTagMutability:         request.ImageTagMutability,
		ImageScanningConfiguration: &types.ImageScanningConfiguration{ScanOnPush: request.ScanOnPush},
		EncryptionConfiguration:    &types.EncryptionConfiguration{EncryptionType: request.EncryptionType},
	}
	if request.EncryptionType == types.EncryptionTypeKms && len(request.KMSKey) > 0 {
		createInput.EncryptionConfiguration.KmsKey = aws.String(request.KMSKey)
	}

	var createOutput *ecr.CreateRepositoryOutput
	createAttempts, createError := service.call(executionContext, operationCreateRepositoryConstant, repositoryResource, func(callContext context.Context) error {
		output, callError := client.CreateRepository(callContext, createInput)
		createOutput = output
		return callError
	})
	if createError != nil {
		if failures.Classify(createError) == failures.KindAlreadyExists {
			actionLogger.Warn(repositoryExistsMessageConstant)
			result.recordStep(StepCreateRepository, StepUnchanged, createAttempts, nil)
			result.Warnings = append(result.Warnings, fmt.Sprintf(repositoryExistsWarningTemplateConstant, request.RepositoryName))
			return nil
		}
		result.recordStep(StepCreateRepository, StepFailed, createAttempts, createError)
		return createError
	}
	result.recordStep(StepCreateRepository, StepApplied, createAttempts, nil)
	if createOutput != nil && createOutput.Repository != nil {
		summary := summarizeRepository(*createOutput.Repository)
		result.Repository = &summary
	}
	actionLogger.Info(stepCompletedMessageConstant, zap.String(logFieldStepConstant, StepCreateRepository))

	if len(lifecyclePolicy) == 0 {
		return nil
	}
	lifecycleAttempts, lifecycleError := service.putLifecyclePolicy(executionContext, client, request.RepositoryName, lifecyclePolicy)
	result.recordStep(StepPutLifecyclePolicy, StepApplied, lifecycleAttempts, lifecycleError)
	if lifecycleError != nil {
		service.logStepFailure(actionLogger, StepPutLifecyclePolicy, lifecycleAttempts, lifecycleError)
		return failures.PartialCompletionError{
			Resource:    repositoryResource,
			FailedSteps: result.FailedSteps(),
			Causes:      []error{lifecycleError},
		}
	}
	if result.Repository != nil {
		result.Repository.LifecyclePolicy = lifecyclePolicy
	}
	actionLogger.Info(stepCompletedMessageConstant, zap.String(logFieldStepConstant, StepPutLifecyclePolicy))
	return nil
}

// updateRepository applies scanning, tag mutability, and lifecycle settings in order. A missing
// repository stops the run; any other step failure is recorded and the remaining steps still run.
func (service *Service) updateRepository(executionContext context.Context, client RegistryClient, request ManageRequest, result *ManageResult, actionLogger *zap.Logger) error {
	repositoryResource := fmt.Sprintf(repositoryResourceTemplateConstant, request.RepositoryName)
	lifecyclePolicy, _ := request.normalizedLifecyclePolicy()

	steps := []repositoryStep{
		{
			name:      StepPutScanConfiguration,
			operation: operationPutScanConfigurationConstant,
			call: func(callContext context.Context) error {
				_, callError := client.PutImageScanningConfiguration(callContext, &ecr.PutImageScanningConfigurationInput{
					RepositoryName:             aws.String(request.RepositoryName),
					ImageScanningConfiguration: &types.ImageScanningConfiguration{ScanOnPush: request.ScanOnPush},
				})
				return callError
			},
		},
		{
			name:      StepPutTagMutability,
			operation: operationPutTagMutabilityConstant,
			call: func(callContext context.Context) error {
				_, callError := client.PutImageTagMutability(callContext, &ecr.PutImageTagMutabilityInput{
					RepositoryName:     aws.String(request.RepositoryName),
					ImageTagMutability: request.ImageTagMutability,
				})
				return callError
			},
		},
	}
	if len(lifecyclePolicy) > 0 {
		steps = append(steps, repositoryStep{
			name:      StepPutLifecyclePolicy,
			operation: operationPutLifecyclePolicyConstant,
			call: func(callContext context.Context) error {
				_, callError := client.PutLifecyclePolicy(callContext, &ecr.PutLifecyclePolicyInput{
					RepositoryName:      aws.String(request.RepositoryName),
					LifecyclePolicyText: aws.String(lifecyclePolicy),
				})
				return callError
			},
		})
	}

	if request.DryRun {
		existing, lookupError := service.lookupRepository(executionContext, client, request.RepositoryName)
		if lookupError != nil {
			return lookupError
		}
		result.Repository = &existing
		for _, step := range steps {
			result.recordStep(step.name, StepPlanned, 0, nil)
		}
		return nil
	}

	var stepFailures []error
	for stepIndex, step := range steps {
		attempts, stepError := service.call(executionContext, step.operation, repositoryResource, step.call)
		result.recordStep(step.name, StepApplied, attempts, stepError)
		if stepError == nil {
			actionLogger.Info(stepCompletedMessageConstant, zap.String(logFieldStepConstant, step.name))
			continue
		}
		service.logStepFailure(actionLogger, step.name, attempts, stepError)
		if failures.Classify(stepError) == failures.KindNotFound {
			for _, skipped := range steps[stepIndex+1:] {
				result.recordStep(skipped.name, StepSkipped, 0, nil)
			}
			return stepError
		}
		stepFailures = append(stepFailures, stepError)
	}

	if len(stepFailures) > 0 {
		failedSteps := result.FailedSteps()
		actionLogger.Warn(managementIncompleteMessageConstant, zap.Strings(logFieldFailedStepsConstant, failedSteps))
		return fmt.Errorf(updateIncompleteErrorTemplateConstant, request.RepositoryName, len(failedSteps), errors.Join(stepFailures...))
	}
	return nil
}

// cleanupRepository deletes every image pushed before the retention cutoff. Images are addressed by
// digest so every tag of an expired image goes with it.
func (service *Service) cleanupRepository(executionContext context.Context, client RegistryClient, request ManageRequest, result *ManageResult, actionLogger *zap.Logger) error {
	cutoff := service.now().UTC().Add(-time.Duration(request.RetentionDays) * retentionDayDurationConstant)
	summary := &CleanupSummary{RetentionDays: request.RetentionDays, Cutoff: cutoff}
	result.Cleanup = summary

	var expired []ImageRecord
	listError := service.forEachImage(executionContext, client, request.RepositoryName, func(image types.ImageDetail) {
		summary.Examined++
		if image.ImagePushedAt == nil || !image.ImagePushedAt.Before(cutoff) {
			return
		}
		expired = append(expired, recordImage(image))
	})
	if listError != nil {
		return listError
	}
	sort.SliceStable(expired, func(leftIndex int, rightIndex int) bool {
		return expired[leftIndex].PushedAt.Before(*expired[rightIndex].PushedAt)
	})
	summary.Expired = len(expired)
	actionLogger.Info(
		cleanupCandidatesMessageConstant,
		zap.Int(logFieldExaminedConstant, summary.Examined),
		zap.Int(logFieldExpiredConstant, summary.Expired),
		zap.Time(logFieldCutoffConstant, cutoff),
	)

	if request.DryRun {
		for imageIndex := range expired {
			expired[imageIndex].Outcome = ImageWouldDelete
		}
		result.Images = expired
		return nil
	}

	for batchStart := 0; batchStart < len(expired); batchStart += batchDeleteLimitConstant {
		batchEnd := min(batchStart+batchDeleteLimitConstant, len(expired))
		service.deleteBatch(executionContext, client, request.RepositoryName, expired[batchStart:batchEnd], result, actionLogger)
	}
	result.Images = expired

	for _, record := range expired {
		switch record.Outcome {
		case ImageDeleted:
			summary.Deleted++
		case ImageGone:
			summary.Gone++
		case ImageFailed:
			summary.Failed++
		}
	}
	if summary.Failed > 0 {
		return fmt.Errorf(cleanupIncompleteErrorTemplateConstant, request.RepositoryName, summary.Failed)
	}
	return nil
}

// deleteBatch issues one BatchDeleteImage call and sets the outcome of every record in the batch.
func (service *Service) deleteBatch(executionContext context.Context, client RegistryClient, repositoryName string, batch []ImageRecord, result *ManageResult, actionLogger *zap.Logger) {
	identifiers := make([]types.ImageIdentifier, 0, len(batch))
	for _, record := range batch {
		identifiers = append(identifiers, types.ImageIdentifier{ImageDigest: aws.String(record.Digest)})
	}

	var deleteOutput *ecr.BatchDeleteImageOutput
	_, deleteError := service.call(executionContext, operationBatchDeleteImageConstant, fmt.Sprintf(repositoryResourceTemplateConstant, repositoryName), func(callContext context.Context) error {
		output, callError := client.BatchDeleteImage(callContext, &ecr.BatchDeleteImageInput{
			RepositoryName: aws.String(repositoryName),
			ImageIds:       identifiers,
		})
		deleteOutput = output
		return callError
	})
	if deleteError != nil {
		failureKind := failures.Classify(deleteError)
		for recordIndex := range batch {
			batch[recordIndex].Outcome = ImageFailed
			batch[recordIndex].FailureReason = deleteError.Error()
			batch[recordIndex].FailureKind = failureKind
		}
		actionLogger.Error(imageDeleteFailedMessageConstant, zap.String(logFieldFailureKindConstant, string(failureKind)), zap.Error(deleteError))
		return
	}

	imageFailures := make(map[string]types.ImageFailure)
	if deleteOutput != nil {
		for _, imageFailure := range deleteOutput.Failures {
			if imageFailure.ImageId == nil {
				continue
			}
			imageFailures[aws.ToString(imageFailure.ImageId.ImageDigest)] = imageFailure
		}
	}

	for recordIndex := range batch {
		imageFailure, failed := imageFailures[batch[recordIndex].Digest]
		switch {
		case !failed:
			batch[recordIndex].Outcome = ImageDeleted
		case imageFailure.FailureCode == types.ImageFailureCodeImageNotFound:
			batch[recordIndex].Outcome = ImageGone
			result.Warnings = append(result.Warnings, fmt.Sprintf(imageGoneWarningTemplateConstant, batch[recordIndex].Digest))
		default:
			batch[recordIndex].Outcome = ImageFailed
			batch[recordIndex].FailureCode = string(imageFailure.FailureCode)
			batch[recordIndex].FailureReason = fmt.Sprintf(batchDeleteFailedReasonTemplateConstant, imageFailure.FailureCode, aws.ToString(imageFailure.FailureReason))
			actionLogger.Error(
				imageDeleteFailedMessageConstant,
				zap.String(logFieldDigestConstant, batch[recordIndex].Digest),
				zap.String(logFieldFailureKindConstant, string(imageFailure.FailureCode)),
			)
		}
	}
}

// listRepositories reports every repository in the region with its image count. A count that cannot
// be read becomes a warning.
func (service *Service) listRepositories(executionContext context.Context, client RegistryClient, result *ManageResult) error {
	var nextToken *string
	for {
		if contextError := executionContext.Err(); contextError != nil {
			return contextError
		}
		var page *ecr.DescribeRepositoriesOutput
		_, listError := service.call(executionContext, operationDescribeRepositoriesConstant, registryResourceConstant, func(callContext context.Context) error {
			var callError error
			page, callError = client.DescribeRepositories(callContext, &ecr.DescribeRepositoriesInput{
				NextToken:  nextToken,
				MaxResults: aws.Int32(repositoryPageSizeConstant),
			})
			return callError
		})
		if listError != nil {
			return listError
		}
		for _, repository := range page.Repositories {
			result.Repositories = append(result.Repositories, summarizeRepository(repository))
		}
		if len(aws.ToString(page.NextToken)) == 0 {
			break
		}
		nextToken = page.NextToken
	}

	sort.SliceStable(result.Repositories, func(leftIndex int, rightIndex int) bool {
		return result.Repositories[leftIndex].Name < result.Repositories[rightIndex].Name
	})
	for repositoryIndex := range result.Repositories {
		repositoryName := result.Repositories[repositoryIndex].Name
		imageCount := 0
		countError := service.forEachImage(executionContext, client, repositoryName, func(types.ImageDetail) {
			imageCount++
		})
		if countError != nil {
			if contextError := executionContext.Err(); contextError != nil {
				return contextError
			}
			result.Warnings = append(result.Warnings, fmt.Sprintf(imageCountWarningTemplateConstant, repositoryName, failures.Classify(countError), countError))
			continue
		}
		result.Repositories[repositoryIndex].ImageCount = &imageCount
	}
	return nil
}

// describeRepository reports one repository's settings, lifecycle policy, and most recent images.
func (service *Service) describeRepository(executionContext context.Context, client RegistryClient, request ManageRequest, result *ManageResult) error {
	repositoryResource := fmt.Sprintf(repositoryResourceTemplateConstant, request.RepositoryName)
	summary, lookupError := service.lookupRepository(executionContext, client, request.RepositoryName)
	if lookupError != nil {
		return lookupError
	}

	var policyOutput *ecr.GetLifecyclePolicyOutput
	_, policyError := service.call(executionContext, operationGetLifecyclePolicyConstant, repositoryResource, func(callContext context.Context) error {
		var callError error
		policyOutput, callError = client.GetLifecyclePolicy(callContext, &ecr.GetLifecyclePolicyInput{RepositoryName: aws.String(request.RepositoryName)})
		return callError
	})
	switch {
	case policyError == nil:
		summary.LifecyclePolicy = aws.ToString(policyOutput.LifecyclePolicyText)
	case failures.Classify(policyError) != failures.KindNotFound:
		result.Warnings = append(result.Warnings, fmt.Sprintf(lifecyclePolicyWarningTemplateConstant, request.RepositoryName, failures.Classify(policyError), policyError))
	}

	var imagesOutput *ecr.DescribeImagesOutput
	_, imagesError := service.call(executionContext, operationDescribeImagesConstant, repositoryResource, func(callContext context.Context) error {
		var callError error
		imagesOutput, callError = client.DescribeImages(callContext, &ecr.DescribeImagesInput{
			RepositoryName: aws.String(request.RepositoryName),
			MaxResults:     aws.Int32(recentImageCountConstant),
		})
		return callError
	})
	if imagesError != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf(recentImagesWarningTemplateConstant, request.RepositoryName, failures.Classify(imagesError), imagesError))
	} else {
		for _, image := range imagesOutput.ImageDetails {
			result.Images = append(result.Images, recordImage(image))
		}
		sort.SliceStable(result.Images, func(leftIndex int, rightIndex int) bool {
			return pushedAfter(result.Images[leftIndex], result.Images[rightIndex])
		})
	}

	result.Repository = &summary
	return nil
}

func (service *Service) lookupRepository(executionContext context.Context, client RegistryClient, repositoryName string) (RepositorySummary, error) {
	repositoryResource := fmt.Sprintf(repositoryResourceTemplateConstant, repositoryName)
	var describeOutput *ecr.DescribeRepositoriesOutput
	_, describeError := service.call(executionContext, operationDescribeRepositoriesConstant, repositoryResource, func(callContext context.Context) error {
		var callError error
		describeOutput, callError = client.DescribeRepositories(callContext, &ecr.DescribeRepositoriesInput{RepositoryNames: []string{repositoryName}})
		return callError
	})
	if describeError != nil {
		return RepositorySummary{}, describeError
	}
	if describeOutput == nil || len(describeOutput.Repositories) == 0 {
		return RepositorySummary{}, fmt.Errorf(repositoryMissingErrorTemplateConstant, repositoryName)
	}
	return summarizeRepository(describeOutput.Repositories[0]), nil
}

// forEachImage follows NextToken until the image listing is exhausted.
func (service *Service) forEachImage(executionContext context.Context, client RegistryClient, repositoryName string, visit func(types.ImageDetail)) error {
	repositoryResource := fmt.Sprintf(repositoryResourceTemplateConstant, repositoryName)
	var nextToken *string
	for {
		if contextError := executionContext.Err(); contextError != nil {
			return contextError
		}
		var page *ecr.DescribeImagesOutput
		_, listError := service.call(executionContext, operationDescribeImagesConstant, repositoryResource, func(callContext context.Context) error {
			var callError error
			page, callError = client.DescribeImages(callContext, &ecr.DescribeImagesInput{
				RepositoryName: aws.String(repositoryName),
				NextToken:      nextToken,
				MaxResults:     aws.Int32(imagePageSizeConstant),
			})
			return callError
		})
		if listError != nil {
			return listError
		}
		for _, image := range page.ImageDetails {
			visit(image)
		}
		if len(aws.ToString(page.NextToken)) == 0 {
			return nil
		}
		nextToken = page.NextToken
	}
}

func (service *Service) putLifecyclePolicy(executionContext context.Context, client RegistryClient, repositoryName string, lifecyclePolicy string) (int, error) {
	return service.call(executionContext, operationPutLifecyclePolicyConstant, fmt.Sprintf(repositoryResourceTemplateConstant, repositoryName), func(callContext context.Context) error {
		_, callError := client.PutLifecyclePolicy(callContext, &ecr.PutLifecyclePolicyInput{
			RepositoryName:      aws.String(repositoryName),
			LifecyclePolicyText: aws.String(lifecyclePolicy),
		})
		return callError
	})
}

func (service *Service) logStepFailure(actionLogger *zap.Logger, step string, attempts int, stepError error) {
	actionLogger.Warn(
		stepFailedMessageConstant,
		zap.String(logFieldStepConstant, step),
		zap.String(logFieldFailureKindConstant, string(failures.Classify(stepError))),
		zap.Int(logFieldAttemptsConstant, attempts),
		zap.Error(stepError),
	)
}

func (service *Service) call(executionContext context.Context, operationName string, resource string, operation retry.Operation) (int, error) {
	attempts, callError := service.retrier.Do(executionContext, operationName, operation)
	if callError != nil {
		return attempts, failures.NewProviderError(operationName, resource, attempts, callError)
	}
	return attempts, nil
}

func pushedAfter(left ImageRecord, right ImageRecord) bool {
	if left.PushedAt == nil {
		return false
	}
	if right.PushedAt == nil {
		return true
	}
	return left.PushedAt.After(*right.PushedAt)
}
