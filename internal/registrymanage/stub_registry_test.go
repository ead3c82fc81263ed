package registrymanage_test

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/smithy-go"

	"github.com/temirov/cloudchores/internal/awsauth"
	"github.com/temirov/cloudchores/internal/registrymanage"
	"github.com/temirov/cloudchores/internal/retry"
)

const (
	testRepositoryConstant    = "platform/api"
	testRepositoryURIConstant = "123456789012.dkr.ecr.us-east-1.amazonaws.com/platform/api"
	testLifecyclePolicy       = `{"rules":[{"rulePriority":1,"selection":{"tagStatus":"untagged","countType":"sinceImagePushed","countUnit":"days","countNumber":14},"action":{"type":"expire"}}]}`
)

var testNow = time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC)

type stubRegistry struct {
	createRepositoryFunc     func(input *ecr.CreateRepositoryInput) (*ecr.CreateRepositoryOutput, error)
	describeRepositoriesFunc func(input *ecr.DescribeRepositoriesInput) (*ecr.DescribeRepositoriesOutput, error)
	putScanFunc              func(input *ecr.PutImageScanningConfigurationInput) (*ecr.PutImageScanningConfigurationOutput, error)
	putMutabilityFunc        func(input *ecr.PutImageTagMutabilityInput) (*ecr.PutImageTagMutabilityOutput, error)
	putLifecyclePolicyFunc   func(input *ecr.PutLifecyclePolicyInput) (*ecr.PutLifecyclePolicyOutput, error)
	getLifecyclePolicyFunc   func(input *ecr.GetLifecyclePolicyInput) (*ecr.GetLifecyclePolicyOutput, error)
	describeImagesFunc       func(input *ecr.DescribeImagesInput) (*ecr.DescribeImagesOutput, error)
	batchDeleteImageFunc     func(input *ecr.BatchDeleteImageInput) (*ecr.BatchDeleteImageOutput, error)

	repositoryPages [][]types.Repository
	imagePages      map[string][][]types.ImageDetail

	operations          []string
	createInputs        []*ecr.CreateRepositoryInput
	lifecycleInputs     []*ecr.PutLifecyclePolicyInput
	batchDeleteInputs   []*ecr.BatchDeleteImageInput
	describeImageInputs []*ecr.DescribeImagesInput
}

func (registry *stubRegistry) CreateRepository(_ context.Context, input *ecr.CreateRepositoryInput, _ ...func(*ecr.Options)) (*ecr.CreateRepositoryOutput, error) {
	registry.operations = append(registry.operations, "CreateRepository")
	registry.createInputs = append(registry.createInputs, input)
	if registry.createRepositoryFunc == nil {
		return &ecr.CreateRepositoryOutput{Repository: &types.Repository{
			RepositoryName:             input.RepositoryName,
			RepositoryUri:              aws.String(testRepositoryURIConstant),
			ImageTagMutability:         input.ImageTagMutability,
			ImageScanningConfiguration: input.ImageScanningConfiguration,
			EncryptionConfiguration:    input.EncryptionConfiguration,
			CreatedAt:                  aws.Time(testNow),
		}}, nil
	}
	return registry.createRepositoryFunc(input)
}

func (registry *stubRegistry) DescribeRepositories(_ context.Context, input *ecr.DescribeRepositoriesInput, _ ...func(*ecr.Options)) (*ecr.DescribeRepositoriesOutput, error) {
	registry.operations = append(registry.operations, "DescribeRepositories")
	if registry.describeRepositoriesFunc != nil {
		return registry.describeRepositoriesFunc(input)
	}
	if len(input.RepositoryNames) > 0 {
		return &ecr.DescribeRepositoriesOutput{Repositories: []types.Repository{{
			RepositoryName:             aws.String(input.RepositoryNames[0]),
			RepositoryUri:              aws.String(testRepositoryURIConstant),
			ImageTagMutability:         types.ImageTagMutabilityMutable,
			ImageScanningConfiguration: &types.ImageScanningConfiguration{ScanOnPush: true},
			EncryptionConfiguration:    &types.EncryptionConfiguration{EncryptionType: types.EncryptionTypeAes256},
		}}}, nil
	}
	pageIndex := pageIndexFromToken(input.NextToken)
	if pageIndex >= len(registry.repositoryPages) {
		return &ecr.DescribeRepositoriesOutput{}, nil
	}
	output := &ecr.DescribeRepositoriesOutput{Repositories: registry.repositoryPages[pageIndex]}
	if pageIndex+1 < len(registry.repositoryPages) {
		output.NextToken = aws.String(strconv.Itoa(pageIndex + 1))
	}
	return output, nil
}

func (registry *stubRegistry) PutImageScanningConfiguration(_ context.Context, input *ecr.PutImageScanningConfigurationInput, _ ...func(*ecr.Options)) (*ecr.PutImageScanningConfigurationOutput, error) {
	registry.operations = append(registry.operations, "PutImageScanningConfiguration")
	if registry.putScanFunc == nil {
		return &ecr.PutImageScanningConfigurationOutput{}, nil
	}
	return registry.putScanFunc(input)
}

func (registry *stubRegistry) PutImageTagMutability(_ context.Context, input *ecr.PutImageTagMutabilityInput, _ ...func(*ecr.Options)) (*ecr.PutImageTagMutabilityOutput, error) {
	registry.operations = append(registry.operations, "PutImageTagMutability")
	if registry.putMutabilityFunc == nil {
		return &ecr.PutImageTagMutabilityOutput{}, nil
	}
	return registry.putMutabilityFunc(input)
}

func (registry *stubRegistry) PutLifecyclePolicy(_ context.Context, input *ecr.PutLifecyclePolicyInput, _ ...func(*ecr.Options)) (*ecr.PutLifecyclePolicyOutput, error) {
	registry.operations = append(registry.operations, "PutLifecyclePolicy")
	registry.lifecycleInputs = append(registry.lifecycleInputs, input)
	if registry.putLifecyclePolicyFunc == nil {
		return &ecr.PutLifecyclePolicyOutput{}, nil
	}
	return registry.putLifecyclePolicyFunc(input)
}

func (registry *stubRegistry) GetLifecyclePolicy(_ context.Context, input *ecr.GetLifecyclePolicyInput, _ ...func(*ecr.Options)) (*ecr.GetLifecyclePolicyOutput, error) {
	registry.operations = append(registry.operations, "GetLifecyclePolicy")
	if registry.getLifecyclePolicyFunc == nil {
		return nil, apiError("LifecyclePolicyNotFoundException", smithy.FaultClient)
	}
	return registry.getLifecyclePolicyFunc(input)
}

func (registry *stubRegistry) DescribeImages(_ context.Context, input *ecr.DescribeImagesInput, _ ...func(*ecr.Options)) (*ecr.DescribeImagesOutput, error) {
	registry.operations = append(registry.operations, "DescribeImages:"+aws.ToString(input.RepositoryName))
	registry.describeImageInputs = append(registry.describeImageInputs, input)
	if registry.describeImagesFunc != nil {
		return registry.describeImagesFunc(input)
	}
	pages := registry.imagePages[aws.ToString(input.RepositoryName)]
	pageIndex := pageIndexFromToken(input.NextToken)
	if pageIndex >= len(pages) {
		return &ecr.DescribeImagesOutput{}, nil
	}
	output := &ecr.DescribeImagesOutput{ImageDetails: pages[pageIndex]}
	if pageIndex+1 < len(pages) {
		output.NextToken = aws.String(strconv.Itoa(pageIndex + 1))
	}
	return output, nil
}

func (registry *stubRegistry) BatchDeleteImage(_ context.Context, input *ecr.BatchDeleteImageInput, _ ...func(*ecr.Options)) (*ecr.BatchDeleteImageOutput, error) {
	registry.operations = append(registry.operations, "BatchDeleteImage")
	registry.batchDeleteInputs = append(registry.batchDeleteInputs, input)
	if registry.batchDeleteImageFunc == nil {
		return &ecr.BatchDeleteImageOutput{ImageIds: input.ImageIds}, nil
	}
	return registry.batchDeleteImageFunc(input)
}

func pageIndexFromToken(token *string) int {
	if token == nil {
		return 0
	}
	pageIndex, _ := strconv.Atoi(aws.ToString(token))
	return pageIndex
}

func imageDetail(digest string, pushedDaysAgo int, tags ...string) types.ImageDetail {
	return types.ImageDetail{
		ImageDigest:      aws.String(digest),
		ImageTags:        tags,
		ImagePushedAt:    aws.Time(testNow.Add(-time.Duration(pushedDaysAgo) * 24 * time.Hour)),
		ImageSizeInBytes: aws.Int64(1024),
	}
}

func apiError(code string, fault smithy.ErrorFault) error {
	return &smithy.GenericAPIError{Code: code, Message: code, Fault: fault}
}

func newTestRetrier(maxAttempts int) *retry.Retrier {
	return retry.NewRetrier(
		retry.Policy{MaxAttempts: maxAttempts, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		retry.WithSleeper(func(context.Context, time.Duration) error { return nil }),
	)
}

func newTestDependencies(registry *stubRegistry) registrymanage.ServiceDependencies {
	return registrymanage.ServiceDependencies{
		ClientFactory: func(context.Context, awsauth.Configuration) (registrymanage.RegistryClient, error) {
			return registry, nil
		},
		Retrier: newTestRetrier(3),
		Now:     func() time.Time { return testNow },
	}
}

func newTestService(registry *stubRegistry) *registrymanage.Service {
	service, serviceError := registrymanage.NewService(newTestDependencies(registry))
	if serviceError != nil {
		panic(serviceError)
	}
	return service
}

func baseRequest(action registrymanage.Action) registrymanage.ManageRequest {
	return registrymanage.ManageRequest{
		Action:             action,
		RepositoryName:     testRepositoryConstant,
		ImageTagMutability: types.ImageTagMutabilityMutable,
		ScanOnPush:         true,
		EncryptionType:     types.EncryptionTypeAes256,
		RetentionDays:      30,
	}
}
