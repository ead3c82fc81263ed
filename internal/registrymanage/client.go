package registrymanage

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ecr"

	"github.com/temirov/cloudchores/internal/awsauth"
)

const registrySideConstant = "registry"

// RegistryClient is the subset of the ECR API used by the registry chores.
type RegistryClient interface {
	CreateRepository(ctx context.Context, params *ecr.CreateRepositoryInput, optFns ...func(*ecr.Options)) (*ecr.CreateRepositoryOutput, error)
	DescribeRepositories(ctx context.Context, params *ecr.DescribeRepositoriesInput, optFns ...func(*ecr.Options)) (*ecr.DescribeRepositoriesOutput, error)
	PutImageScanningConfiguration(ctx context.Context, params *ecr.PutImageScanningConfigurationInput, optFns ...func(*ecr.Options)) (*ecr.PutImageScanningConfigurationOutput, error)
	PutImageTagMutability(ctx context.Context, params *ecr.PutImageTagMutabilityInput, optFns ...func(*ecr.Options)) (*ecr.PutImageTagMutabilityOutput, error)
	PutLifecyclePolicy(ctx context.Context, params *ecr.PutLifecyclePolicyInput, optFns ...func(*ecr.Options)) (*ecr.PutLifecyclePolicyOutput, error)
	GetLifecyclePolicy(ctx context.Context, params *ecr.GetLifecyclePolicyInput, optFns ...func(*ecr.Options)) (*ecr.GetLifecyclePolicyOutput, error)
	DescribeImages(ctx context.Context, params *ecr.DescribeImagesInput, optFns ...func(*ecr.Options)) (*ecr.DescribeImagesOutput, error)
	BatchDeleteImage(ctx context.Context, params *ecr.BatchDeleteImageInput, optFns ...func(*ecr.Options)) (*ecr.BatchDeleteImageOutput, error)
}

var _ RegistryClient = (*ecr.Client)(nil)

// RegistryClientFactory builds the ECR client for a request's credentials.
type RegistryClientFactory func(factoryContext context.Context, credentials awsauth.Configuration) (RegistryClient, error)

// NewAWSRegistryClientFactory resolves credentials through the loader and builds an ECR client.
func NewAWSRegistryClientFactory(loader *awsauth.Loader, runIdentifier string) RegistryClientFactory {
	return func(factoryContext context.Context, credentials awsauth.Configuration) (RegistryClient, error) {
		awsConfig, loadError := loader.Load(factoryContext, registrySideConstant, credentials, runIdentifier)
		if loadError != nil {
			return nil, loadError
		}
		return awsauth.NewECRClient(awsConfig, credentials), nil
	}
}
