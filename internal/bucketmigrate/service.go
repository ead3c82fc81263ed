package bucketmigrate

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/temirov/cloudchores/internal/failures"
	"github.com/temirov/cloudchores/internal/retry"
)

const (
	sourceSideConstant                     = "source"
	targetSideConstant                     = "target"
	defaultBucketRegionConstant            = "us-east-1"
	bucketResourceTemplateConstant         = "s3://%s"
	objectResourceTemplateConstant         = "s3://%s/%s"
	copySourceSeparatorConstant            = "/"
	operationListBucketsConstant           = "ListBuckets"
	operationListObjectsConstant           = "ListObjectsV2"
	operationHeadBucketConstant            = "HeadBucket"
	operationCreateBucketConstant          = "CreateBucket"
	operationGetBucketACLConstant          = "GetBucketAcl"
	operationHeadObjectConstant            = "HeadObject"
	operationCopyObjectConstant            = "CopyObject"
	operationGetObjectACLConstant          = "GetObjectAcl"
	operationPutObjectACLConstant          = "PutObjectAcl"
	missingStoreFactoryErrorConstant       = "bucket migration requires a store factory"
	storeResolutionErrorTemplateConstant   = "unable to construct S3 clients: %w"
	missingContinuationTokenErrorTemplate  = "listing of %s reported more results without a continuation token"
	bucketErrorTemplateConstant            = "bucket %s -> %s: %v"
	targetOwnerWarningTemplateConstant     = "acl: target bucket owner unavailable, source-owner grants will be dropped: %v"
	emptyTranslatedACLWarningConstant      = "acl: no grants could be translated, target keeps its default acl"
	missingTargetOwnerACLWarningConstant   = "acl: target bucket owner unknown, target keeps its default acl"
	aclCopyFailedWarningTemplateConstant   = "acl: %s failed (%s), target keeps its default acl: %v"
	migrationStartedMessageConstant        = "Bucket migration started"
	migrationCompletedMessageConstant      = "Bucket migration completed"
	bucketStartedMessageConstant           = "Migrating bucket"
	bucketCompletedMessageConstant         = "Bucket migrated"
	bucketFailedMessageConstant            = "Bucket migration aborted"
	bucketSkippedMessageConstant           = "Skipping previously migrated bucket"
	targetBucketExistsMessageConstant      = "Target bucket exists"
	targetBucketCreatedMessageConstant     = "Target bucket created"
	targetBucketWouldCreateMessageConstant = "Dry run: would create target bucket"
	targetOwnerUnavailableMessageConstant  = "Target bucket owner unavailable"
	objectCopiedMessageConstant            = "Object copied"
	objectWouldCopyMessageConstant         = "Dry run: would copy object"
	objectFailedMessageConstant            = "Object migration failed"
	objectACLSkippedMessageConstant        = "Object copied without its acl"
	logFieldSourceBucketConstant           = "source_bucket"
	logFieldTargetBucketConstant           = "target_bucket"
	logFieldKeyConstant                    = "key"
	logFieldSizeConstant                   = "size"
	logFieldAttemptsConstant               = "attempts"
	logFieldFailureKindConstant            = "failure_kind"
	logFieldDryRunConstant                 = "dry_run"
	logFieldPreserveMetadataConstant       = "preserve_metadata"
	logFieldPreserveACLConstant            = "preserve_acl"
	logFieldBucketCountConstant            = "bucket_count"
	logFieldRegionConstant                 = "region"
	logFieldWarningsConstant               = "warnings"
	logFieldTotalConstant                  = "total"
	logFieldCopiedConstant                 = "copied"
	logFieldSkippedConstant                = "skipped"
	logFieldFailedConstant                 = "failed"
)

// BucketError reports a bucket that could not be migrated as a whole: its target could not be
// verified or created, or its listing failed.
type BucketError struct {
	SourceBucket string
	TargetBucket string
	Cause        error
}

// Error describes the failed bucket.
func (bucketError BucketError) Error() string {
	return fmt.Sprintf(bucketErrorTemplateConstant, bucketError.SourceBucket, bucketError.TargetBucket, bucketError.Cause)
}

// Unwrap exposes the underlying failure.
func (bucketError BucketError) Unwrap() error {
	return bucketError.Cause
}

// ServiceDependencies enumerates collaborators required by the migration service.
type ServiceDependencies struct {
	Logger       *zap.Logger
	StoreFactory StoreFactory
	Retrier      *retry.Retrier
}

// Service executes migration requests.
type Service struct {
	logger       *zap.Logger
	storeFactory StoreFactory
	retrier      *retry.Retrier
}

// NewService constructs a Service.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.StoreFactory == nil {
		return nil, errors.New(missingStoreFactoryErrorConstant)
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	retrier := dependencies.Retrier
	if retrier == nil {
		retrier = retry.NewRetrier(retry.DefaultPolicy(), retry.WithLogger(logger))
	}
	return &Service{logger: logger, storeFactory: dependencies.StoreFactory, retrier: retrier}, nil
}

// Migrate copies every listed object of each bucket pair and returns one record per listed key.
// Object failures are recorded, never returned. The error aggregates validation, client construction
// and bucket-level failures; the report is populated for every bucket that was attempted.
func (service *Service) Migrate(executionContext context.Context, request MigrationRequest) (MigrationReport, error) {
	migrationReport := MigrationReport{DryRun: request.DryRun, Buckets: []BucketReport{}}

	if validationError := request.Validate(); validationError != nil {
		return migrationReport, validationError
	}

	stores, storeError := service.storeFactory(executionContext, request)
	if storeError != nil {
		return migrationReport, fmt.Errorf(storeResolutionErrorTemplateConstant, storeError)
	}

	bucketPairs, pairsError := service.resolveBucketPairs(executionContext, stores.Source, request)
	if pairsError != nil {
		return migrationReport, pairsError
	}

	service.logger.Info(
		migrationStartedMessageConstant,
		zap.Bool(logFieldDryRunConstant, request.DryRun),
		zap.Bool(logFieldPreserveMetadataConstant, request.PreserveMetadata),
		zap.Bool(logFieldPreserveACLConstant, request.PreserveACL),
		zap.Int(logFieldBucketCountConstant, len(bucketPairs)),
	)

	var bucketErrors []error
	for _, bucketPair := range bucketPairs {
		bucketReport, bucketError := service.migrateBucket(executionContext, stores, request, bucketPair)
		migrationReport.appendBucket(bucketReport)
		if bucketError == nil {
			continue
		}
		bucketErrors = append(bucketErrors, bucketError)
		if executionContext.Err() != nil {
			break
		}
	}

	service.logger.Info(
		migrationCompletedMessageConstant,
		zap.Int(logFieldTotalConstant, migrationReport.Summary.Total),
		zap.Int(logFieldCopiedConstant, migrationReport.Summary.Copied),
		zap.Int(logFieldSkippedConstant, migrationReport.Summary.Skipped),
		zap.Int(logFieldFailedConstant, migrationReport.Summary.Failed),
	)

	return migrationReport, errors.Join(bucketErrors...)
}

// resolveBucketPairs returns the explicit pair or, in migrate-all mode, one pair per source bucket.
// Buckets already carrying the target suffix are skipped so re-runs do not chain suffixes.
func (service *Service) resolveBucketPairs(executionContext context.Context, source SourceStore, request MigrationRequest) ([]BucketPair, error) {
	if !request.MigrateAll {
		return []BucketPair{{Source: request.SourceBucket, Target: request.TargetBucket}}, nil
	}

	var bucketNames []string
	var continuationToken *string
	for {
		var listOutput *s3.ListBucketsOutput
		_, listError := service.call(executionContext, operationListBucketsConstant, "", func(operationContext context.Context) error {
			var callError error
			listOutput, callError = source.ListBuckets(operationContext, &s3.ListBucketsInput{ContinuationToken: continuationToken})
			return callError
		})
		if listError != nil {
			return nil, listError
		}
		for _, bucket := range listOutput.Buckets {
			bucketNames = append(bucketNames, aws.ToString(bucket.Name))
		}
		if len(aws.ToString(listOutput.ContinuationToken)) == 0 {
			break
		}
		continuationToken = listOutput.ContinuationToken
	}

	bucketPairs := make([]BucketPair, 0, len(bucketNames))
	for _, bucketName := range bucketNames {
		if strings.HasSuffix(bucketName, request.TargetBucketSuffix) {
			service.logger.Info(bucketSkippedMessageConstant, zap.String(logFieldSourceBucketConstant, bucketName))
			continue
		}
		bucketPairs = append(bucketPairs, BucketPair{Source: bucketName, Target: bucketName + request.TargetBucketSuffix})
	}
	return bucketPairs, nil
}

func (service *Service) migrateBucket(executionContext context.Context, stores Stores, request MigrationRequest, bucketPair BucketPair) (BucketReport, error) {
	bucketReport := BucketReport{SourceBucket: bucketPair.Source, TargetBucket: bucketPair.Target, Records: []ObjectRecord{}}
	bucketLogger := service.logger.With(
		zap.String(logFieldSourceBucketConstant, bucketPair.Source),
		zap.String(logFieldTargetBucketConstant, bucketPair.Target),
	)
	bucketLogger.Info(bucketStartedMessageConstant)

	targetCreated, ensureError := service.ensureTargetBucket(executionContext, stores, request, bucketPair.Target, bucketLogger)
	if ensureError != nil {
		return service.failBucket(bucketReport, ensureError, bucketLogger)
	}
	bucketReport.TargetCreated = targetCreated

	targetOwnerID := ""
	if request.PreserveACL && !request.DryRun {
		ownerID, ownerError := service.resolveTargetOwner(executionContext, stores.Target, bucketPair.Target)
		if ownerError != nil {
			bucketLogger.Warn(targetOwnerUnavailableMessageConstant, zap.Error(ownerError))
			bucketReport.Warnings = append(bucketReport.Warnings, fmt.Sprintf(targetOwnerWarningTemplateConstant, ownerError))
		}
		targetOwnerID = ownerID
	}

	listError := service.forEachObject(executionContext, stores.Source, request, bucketPair.Source, func(object types.Object) {
		bucketReport.append(service.migrateObject(executionContext, stores, request, bucketPair, object, targetOwnerID, bucketLogger))
	})
	if listError != nil {
		return service.failBucket(bucketReport, listError, bucketLogger)
	}

	bucketLogger.Info(
		bucketCompletedMessageConstant,
		zap.Int(logFieldTotalConstant, bucketReport.Summary.Total),
		zap.Int(logFieldCopiedConstant, bucketReport.Summary.Copied),
		zap.Int(logFieldSkippedConstant, bucketReport.Summary.Skipped),
		zap.Int(logFieldFailedConstant, bucketReport.Summary.Failed),
	)
	return bucketReport, nil
}

func (service *Service) failBucket(bucketReport BucketReport, failure error, bucketLogger *zap.Logger) (BucketReport, error) {
	failureKind := failures.Classify(failure)
	bucketReport.Error = failure.Error()
	bucketReport.ErrorKind = failureKind
	bucketLogger.Error(bucketFailedMessageConstant, zap.String(logFieldFailureKindConstant, string(failureKind)), zap.Error(failure))
	return bucketReport, BucketError{SourceBucket: bucketReport.SourceBucket, TargetBucket: bucketReport.TargetBucket, Cause: failure}
}

// ensureTargetBucket verifies the target exists and creates it when allowed. It reports whether the
// bucket was created by this run.
func (service *Service) ensureTargetBucket(executionContext context.Context, stores Stores, request MigrationRequest, bucketName string, bucketLogger *zap.Logger) (bool, error) {
	bucketResource := fmt.Sprintf(bucketResourceTemplateConstant, bucketName)
	_, headError := service.call(executionContext, operationHeadBucketConstant, bucketResource, func(operationContext context.Context) error {
		_, callError := stores.Target.HeadBucket(operationContext, &s3.HeadBucketInput{Bucket: aws.String(bucketName)})
		return callError
	})
	if headError == nil {
		bucketLogger.Debug(targetBucketExistsMessageConstant)
		return false, nil
	}
	if failures.Classify(headError) != failures.KindNotFound || !request.CreateTargetBucket {
		return false, headError
	}

	if request.DryRun {
		bucketLogger.Info(targetBucketWouldCreateMessageConstant)
		return false, nil
	}

	createInput := &s3.CreateBucketInput{Bucket: aws.String(bucketName)}
	if request.PreserveACL {
		// New buckets default to BucketOwnerEnforced, which rejects every PutObjectAcl.
		createInput.ObjectOwnership = types.ObjectOwnershipBucketOwnerPreferred
	}
	if len(stores.TargetRegion) > 0 && stores.TargetRegion != defaultBucketRegionConstant {
		createInput.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(stores.TargetRegion),
		}
	}
	_, createError := service.call(executionContext, operationCreateBucketConstant, bucketResource, func(operationContext context.Context) error {
		_, callError := stores.Target.CreateBucket(operationContext, createInput)
		return callError
	})
	if createError != nil {
		var ownedByCaller *types.BucketAlreadyOwnedByYou
		if errors.As(createError, &ownedByCaller) {
			bucketLogger.Debug(targetBucketExistsMessageConstant)
			return false, nil
		}
		return false, createError
	}

	bucketLogger.Info(targetBucketCreatedMessageConstant, zap.String(logFieldRegionConstant, stores.TargetRegion))
	return true, nil
}

func (service *Service) resolveTargetOwner(executionContext context.Context, target TargetStore, bucketName string) (string, error) {
	var aclOutput *s3.GetBucketAclOutput
	_, aclError := service.call(executionContext, operationGetBucketACLConstant, fmt.Sprintf(bucketResourceTemplateConstant, bucketName), func(operationContext context.Context) error {
		var callError error
		aclOutput, callError = target.GetBucketAcl(operationContext, &s3.GetBucketAclInput{Bucket: aws.String(bucketName)})
		return callError
	})
	if aclError != nil {
		return "", aclError
	}
	if aclOutput.Owner == nil {
		return "", nil
	}
	return aws.ToString(aclOutput.Owner.ID), nil
}

// forEachObject follows continuation tokens until the listing is exhausted, visiting every key that
// passes the client-side filter.
func (service *Service) forEachObject(executionContext context.Context, source SourceStore, request MigrationRequest, bucketName string, visit func(types.Object)) error {
	bucketResource := fmt.Sprintf(bucketResourceTemplateConstant, bucketName)
	var continuationToken *string
	for {
		if contextError := executionContext.Err(); contextError != nil {
			return contextError
		}

		listInput := &s3.ListObjectsV2Input{Bucket: aws.String(bucketName), ContinuationToken: continuationToken}
		if len(request.KeyPrefix) > 0 {
			listInput.Prefix = aws.String(request.KeyPrefix)
		}

		var page *s3.ListObjectsV2Output
		_, listError := service.call(executionContext, operationListObjectsConstant, bucketResource, func(operationContext context.Context) error {
			var callError error
			page, callError = source.ListObjectsV2(operationContext, listInput)
			return callError
		})
		if listError != nil {
			return listError
		}

		for _, object := range page.Contents {
			if contextError := executionContext.Err(); contextError != nil {
				return contextError
			}
			if !request.matchesKey(aws.ToString(object.Key)) {
				continue
			}
			visit(object)
		}

		if !aws.ToBool(page.IsTruncated) {
			return nil
		}
		nextToken := aws.ToString(page.NextContinuationToken)
		if len(nextToken) == 0 {
			return fmt.Errorf(missingContinuationTokenErrorTemplate, bucketResource)
		}
		continuationToken = aws.String(nextToken)
	}
}

func (service *Service) migrateObject(executionContext context.Context, stores Stores, request MigrationRequest, bucketPair BucketPair, object types.Object, targetOwnerID string, bucketLogger *zap.Logger) ObjectRecord {
	objectKey := aws.ToString(object.Key)
	record := ObjectRecord{Bucket: bucketPair.Source, Key: objectKey, Size: aws.ToInt64(object.Size)}

	if request.DryRun {
		record.Outcome = OutcomeSkipped
		bucketLogger.Debug(objectWouldCopyMessageConstant, zap.String(logFieldKeyConstant, objectKey), zap.Int64(logFieldSizeConstant, record.Size))
		return record
	}

	sourceResource := fmt.Sprintf(objectResourceTemplateConstant, bucketPair.Source, objectKey)
	targetResource := fmt.Sprintf(objectResourceTemplateConstant, bucketPair.Target, objectKey)

	copyInput := &s3.CopyObjectInput{
		Bucket:     aws.String(bucketPair.Target),
		Key:        aws.String(objectKey),
		CopySource: aws.String(formatCopySource(bucketPair.Source, objectKey)),
	}

	if request.PreserveMetadata {
		var headOutput *s3.HeadObjectOutput
		_, headError := service.call(executionContext, operationHeadObjectConstant, sourceResource, func(operationContext context.Context) error {
			var callError error
			headOutput, callError = stores.Source.HeadObject(operationContext, &s3.HeadObjectInput{Bucket: aws.String(bucketPair.Source), Key: aws.String(objectKey)})
			return callError
		})
		if headError != nil {
			return failRecord(record, headError, bucketLogger)
		}
		applySourceMetadata(copyInput, headOutput)
	}

	copyAttempts, copyError := service.call(executionContext, operationCopyObjectConstant, targetResource, func(operationContext context.Context) error {
		_, callError := stores.Target.CopyObject(operationContext, copyInput)
		return callError
	})
	if copyError != nil {
		return failRecord(record, copyError, bucketLogger)
	}
	record.Attempts = copyAttempts

	if request.PreserveACL {
		aclWarnings, aclError := service.copyObjectACL(executionContext, stores, bucketPair, objectKey, targetOwnerID)
		record.Warnings = aclWarnings
		if aclError != nil {
			record.Warnings = append(record.Warnings, describeACLFailure(aclError))
			bucketLogger.Warn(
				objectACLSkippedMessageConstant,
				zap.String(logFieldKeyConstant, objectKey),
				zap.String(logFieldFailureKindConstant, string(failures.Classify(aclError))),
				zap.Error(aclError),
			)
		}
	}

	record.Outcome = OutcomeCopied
	bucketLogger.Debug(
		objectCopiedMessageConstant,
		zap.String(logFieldKeyConstant, objectKey),
		zap.Int64(logFieldSizeConstant, record.Size),
		zap.Int(logFieldAttemptsConstant, record.Attempts),
		zap.Strings(logFieldWarningsConstant, record.Warnings),
	)
	return record
}

func (service *Service) copyObjectACL(executionContext context.Context, stores Stores, bucketPair BucketPair, objectKey string, targetOwnerID string) ([]string, error) {
	var aclOutput *s3.GetObjectAclOutput
	_, getError := service.call(executionContext, operationGetObjectACLConstant, fmt.Sprintf(objectResourceTemplateConstant, bucketPair.Source, objectKey), func(operationContext context.Context) error {
		var callError error
		aclOutput, callError = stores.Source.GetObjectAcl(operationContext, &s3.GetObjectAclInput{Bucket: aws.String(bucketPair.Source), Key: aws.String(objectKey)})
		return callError
	})
	if getError != nil {
		return nil, getError
	}

	sourceOwnerID := ""
	if aclOutput.Owner != nil {
		sourceOwnerID = aws.ToString(aclOutput.Owner.ID)
	}
	translatedGrants, warnings := TranslateGrants(sourceOwnerID, targetOwnerID, aclOutput.Grants)
	if len(translatedGrants) == 0 {
		return append(warnings, emptyTranslatedACLWarningConstant), nil
	}
	if len(targetOwnerID) == 0 {
		return append(warnings, missingTargetOwnerACLWarningConstant), nil
	}

	accessControlPolicy := &types.AccessControlPolicy{
		Grants: translatedGrants,
		Owner:  &types.Owner{ID: aws.String(targetOwnerID)},
	}
	_, putError := service.call(executionContext, operationPutObjectACLConstant, fmt.Sprintf(objectResourceTemplateConstant, bucketPair.Target, objectKey), func(operationContext context.Context) error {
		_, callError := stores.Target.PutObjectAcl(operationContext, &s3.PutObjectAclInput{
			Bucket:              aws.String(bucketPair.Target),
			Key:                 aws.String(objectKey),
			AccessControlPolicy: accessControlPolicy,
		})
		return callError
	})
	return warnings, putError
}

// call runs one API operation under the retry policy and wraps any final failure with its
// classification and attempt count.
func (service *Service) call(executionContext context.Context, operationName string, resource string, operation retry.Operation) (int, error) {
	attempts, callError := service.retrier.Do(executionContext, operationName, operation)
	if callError != nil {
		return attempts, failures.NewProviderError(operationName, resource, attempts, callError)
	}
	return attempts, nil
}

// describeACLFailure turns a failed ACL read or write into a record warning. The object itself was
// copied, so the outcome stays copied.
func describeACLFailure(aclError error) string {
	operationName := operationPutObjectACLConstant
	var providerError failures.ProviderError
	if errors.As(aclError, &providerError) {
		operationName = providerError.Operation
	}
	return fmt.Sprintf(aclCopyFailedWarningTemplateConstant, operationName, failures.Classify(aclError), aclError)
}

func failRecord(record ObjectRecord, failure error, bucketLogger *zap.Logger) ObjectRecord {
	failed := record
	failureKind := failures.Classify(failure)
	failed.Outcome = OutcomeFailed
	failed.ErrorDetail = failure.Error()
	failed.FailureKind = failureKind
	failed.Retryable = failureKind.Retryable()

	var providerError failures.ProviderError
	if errors.As(failure, &providerError) {
		failed.Attempts = providerError.Attempts
	}

	bucketLogger.Warn(
		objectFailedMessageConstant,
		zap.String(logFieldKeyConstant, failed.Key),
		zap.String(logFieldFailureKindConstant, string(failureKind)),
		zap.Int(logFieldAttemptsConstant, failed.Attempts),
		zap.Error(failure),
	)
	return failed
}

// applySourceMetadata replaces the target's metadata with the source object's user metadata and
// content headers.
func applySourceMetadata(copyInput *s3.CopyObjectInput, headOutput *s3.HeadObjectOutput) {
	if headOutput == nil {
		return
	}
	copyInput.MetadataDirective = types.MetadataDirectiveReplace
	if len(headOutput.Metadata) > 0 {
		copyInput.Metadata = maps.Clone(headOutput.Metadata)
	}
	copyInput.ContentType = headOutput.ContentType
	copyInput.ContentEncoding = headOutput.ContentEncoding
	copyInput.ContentLanguage = headOutput.ContentLanguage
	copyInput.CacheControl = headOutput.CacheControl
	copyInput.ContentDisposition = headOutput.ContentDisposition
	copyInput.Expires = headOutput.Expires
}

func formatCopySource(bucketName string, objectKey string) string {
	return bucketName + copySourceSeparatorConstant + url.PathEscape(objectKey)
}
