package accountprovision

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/iam"

	"github.com/temirov/cloudchores/internal/awsauth"
)

const identitySideConstant = "identity"

// IdentityClient is the subset of the IAM API used during provisioning.
type IdentityClient interface {
	CreateUser(ctx context.Context, params *iam.CreateUserInput, optFns ...func(*iam.Options)) (*iam.CreateUserOutput, error)
	CreateLoginProfile(ctx context.Context, params *iam.CreateLoginProfileInput, optFns ...func(*iam.Options)) (*iam.CreateLoginProfileOutput, error)
	UpdateLoginProfile(ctx context.Context, params *iam.UpdateLoginProfileInput, optFns ...func(*iam.Options)) (*iam.UpdateLoginProfileOutput, error)
	AttachUserPolicy(ctx context.Context, params *iam.AttachUserPolicyInput, optFns ...func(*iam.Options)) (*iam.AttachUserPolicyOutput, error)
	AddUserToGroup(ctx context.Context, params *iam.AddUserToGroupInput, optFns ...func(*iam.Options)) (*iam.AddUserToGroupOutput, error)
	PutUserPolicy(ctx context.Context, params *iam.PutUserPolicyInput, optFns ...func(*iam.Options)) (*iam.PutUserPolicyOutput, error)
	CreateAccessKey(ctx context.Context, params *iam.CreateAccessKeyInput, optFns ...func(*iam.Options)) (*iam.CreateAccessKeyOutput, error)
}

var _ IdentityClient = (*iam.Client)(nil)

// IdentityClientFactory builds the IAM client for a request's credentials.
type IdentityClientFactory func(factoryContext context.Context, credentials awsauth.Configuration) (IdentityClient, error)

// NewAWSIdentityClientFactory resolves credentials through the loader and builds an IAM client.
func NewAWSIdentityClientFactory(loader *awsauth.Loader, runIdentifier string) IdentityClientFactory {
	return func(factoryContext context.Context, credentials awsauth.Configuration) (IdentityClient, error) {
		awsConfig, loadError := loader.Load(factoryContext, identitySideConstant, credentials, runIdentifier)
		if loadError != nil {
			return nil, loadError
		}
		return awsauth.NewIAMClient(awsConfig, credentials), nil
	}
}
