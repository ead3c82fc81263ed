package accountprovision_test

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/smithy-go"

	"github.com/temirov/cloudchores/internal/accountprovision"
	"github.com/temirov/cloudchores/internal/awsauth"
	"github.com/temirov/cloudchores/internal/retry"
	"github.com/temirov/cloudchores/internal/secrets"
)

const (
	testUsernameConstant        = "build-auditor"
	testPasswordConstant        = "Str0ng!Passw0rd"
	testUserARNConstant         = "arn:aws:iam::123456789012:user/build-auditor"
	testAccessKeyIDConstant     = "AKIAEXAMPLEKEY"
	testSecretAccessKeyConstant = "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY"
)

type stubIdentity struct {
	createUserFunc         func(input *iam.CreateUserInput) (*iam.CreateUserOutput, error)
	createLoginProfileFunc func(input *iam.CreateLoginProfileInput) (*iam.CreateLoginProfileOutput, error)
	updateLoginProfileFunc func(input *iam.UpdateLoginProfileInput) (*iam.UpdateLoginProfileOutput, error)
	attachUserPolicyFunc   func(input *iam.AttachUserPolicyInput) (*iam.AttachUserPolicyOutput, error)
	addUserToGroupFunc     func(input *iam.AddUserToGroupInput) (*iam.AddUserToGroupOutput, error)
	putUserPolicyFunc      func(input *iam.PutUserPolicyInput) (*iam.PutUserPolicyOutput, error)
	createAccessKeyFunc    func(input *iam.CreateAccessKeyInput) (*iam.CreateAccessKeyOutput, error)

	operations              []string
	loginProfileInputs      []*iam.CreateLoginProfileInput
	attachUserPolicyInputs  []*iam.AttachUserPolicyInput
	addUserToGroupInputs    []*iam.AddUserToGroupInput
	updateLoginProfileInput []*iam.UpdateLoginProfileInput
	putUserPolicyInputs     []*iam.PutUserPolicyInput
}

func (identity *stubIdentity) CreateUser(_ context.Context, input *iam.CreateUserInput, _ ...func(*iam.Options)) (*iam.CreateUserOutput, error) {
	identity.operations = append(identity.operations, "CreateUser")
	if identity.createUserFunc == nil {
		return &iam.CreateUserOutput{User: &types.User{
			UserName:   input.UserName,
			Arn:        aws.String(testUserARNConstant),
			CreateDate: aws.Time(time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)),
		}}, nil
	}
	return identity.createUserFunc(input)
}

func (identity *stubIdentity) CreateLoginProfile(_ context.Context, input *iam.CreateLoginProfileInput, _ ...func(*iam.Options)) (*iam.CreateLoginProfileOutput, error) {
	identity.operations = append(identity.operations, "CreateLoginProfile")
	identity.loginProfileInputs = append(identity.loginProfileInputs, input)
	if identity.createLoginProfileFunc == nil {
		return &iam.CreateLoginProfileOutput{}, nil
	}
	return identity.createLoginProfileFunc(input)
}

func (identity *stubIdentity) UpdateLoginProfile(_ context.Context, input *iam.UpdateLoginProfileInput, _ ...func(*iam.Options)) (*iam.UpdateLoginProfileOutput, error) {
	identity.operations = append(identity.operations, "UpdateLoginProfile")
	identity.updateLoginProfileInput = append(identity.updateLoginProfileInput, input)
	if identity.updateLoginProfileFunc == nil {
		return &iam.UpdateLoginProfileOutput{}, nil
	}
	return identity.updateLoginProfileFunc(input)
}

func (identity *stubIdentity) AttachUserPolicy(_ context.Context, input *iam.AttachUserPolicyInput, _ ...func(*iam.Options)) (*iam.AttachUserPolicyOutput, error) {
	identity.operations = append(identity.operations, "AttachUserPolicy")
	identity.attachUserPolicyInputs = append(identity.attachUserPolicyInputs, input)
	if identity.attachUserPolicyFunc == nil {
		return &iam.AttachUserPolicyOutput{}, nil
	}
	return identity.attachUserPolicyFunc(input)
}

func (identity *stubIdentity) AddUserToGroup(_ context.Context, input *iam.AddUserToGroupInput, _ ...func(*iam.Options)) (*iam.AddUserToGroupOutput, error) {
	identity.operations = append(identity.operations, "AddUserToGroup:"+aws.ToString(input.GroupName))
	identity.addUserToGroupInputs = append(identity.addUserToGroupInputs, input)
	if identity.addUserToGroupFunc == nil {
		return &iam.AddUserToGroupOutput{}, nil
	}
	return identity.addUserToGroupFunc(input)
}

func (identity *stubIdentity) PutUserPolicy(_ context.Context, input *iam.PutUserPolicyInput, _ ...func(*iam.Options)) (*iam.PutUserPolicyOutput, error) {
	identity.operations = append(identity.operations, "PutUserPolicy")
	identity.putUserPolicyInputs = append(identity.putUserPolicyInputs, input)
	if identity.putUserPolicyFunc == nil {
		return &iam.PutUserPolicyOutput{}, nil
	}
	return identity.putUserPolicyFunc(input)
}

func (identity *stubIdentity) CreateAccessKey(_ context.Context, input *iam.CreateAccessKeyInput, _ ...func(*iam.Options)) (*iam.CreateAccessKeyOutput, error) {
	identity.operations = append(identity.operations, "CreateAccessKey")
	if identity.createAccessKeyFunc == nil {
		return &iam.CreateAccessKeyOutput{AccessKey: &types.AccessKey{
			UserName:        input.UserName,
			AccessKeyId:     aws.String(testAccessKeyIDConstant),
			SecretAccessKey: aws.String(testSecretAccessKeyConstant),
			Status:          types.StatusTypeActive,
		}}, nil
	}
	return identity.createAccessKeyFunc(input)
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

func newTestDependencies(identity *stubIdentity) accountprovision.ServiceDependencies {
	return accountprovision.ServiceDependencies{
		ClientFactory: func(context.Context, awsauth.Configuration) (accountprovision.IdentityClient, error) {
			return identity, nil
		},
		Retrier: newTestRetrier(3),
	}
}

func newTestService(identity *stubIdentity) *accountprovision.Service {
	service, serviceError := accountprovision.NewService(newTestDependencies(identity))
	if serviceError != nil {
		panic(serviceError)
	}
	return service
}

func baseRequest() accountprovision.ProvisionRequest {
	return accountprovision.ProvisionRequest{
		Username:        testUsernameConstant,
		InitialPassword: secrets.NewValue(testPasswordConstant, secrets.WithOneTimeUse(false)),
		AccessLevel:     accountprovision.AccessLevelReadOnly,
		Partition:       "aws",
	}
}
