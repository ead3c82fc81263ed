package registrymanage_test

import (
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/stretchr/testify/require"

	"github.com/temirov/cloudchores/internal/failures"
	"github.com/temirov/cloudchores/internal/registrymanage"
)

func TestManageRequestValidate(testInstance *testing.T) {
	testCases := []struct {
		name               string
		action             registrymanage.Action
		mutate             func(request *registrymanage.ManageRequest)
		expectedViolations []string
	}{
		{name: "valid_create", action: registrymanage.ActionCreate, mutate: func(*registrymanage.ManageRequest) {}},
		{
			name:   "list_needs_no_repository",
			action: registrymanage.ActionList,
			mutate: func(request *registrymanage.ManageRequest) { request.RepositoryName = "" },
		},
		{
			name:               "unknown_action",
			action:             registrymanage.Action("prune"),
			mutate:             func(*registrymanage.ManageRequest) {},
			expectedViolations: []string{`action "prune" must be one of create, update, cleanup, list, describe`},
		},
		{
			name:               "describe_without_repository",
			action:             registrymanage.ActionDescribe,
			mutate:             func(request *registrymanage.ManageRequest) { request.RepositoryName = "" },
			expectedViolations: []string{"repository_name is required for describe"},
		},
		{
			name:               "uppercase_repository",
			action:             registrymanage.ActionDescribe,
			mutate:             func(request *registrymanage.ManageRequest) { request.RepositoryName = "Platform/API" },
			expectedViolations: []string{`repository_name "Platform/API" must be 2-256 lowercase characters separated by . _ - or /`},
		},
		{
			name:               "repository_with_trailing_slash",
			action:             registrymanage.ActionCleanup,
			mutate:             func(request *registrymanage.ManageRequest) { request.RepositoryName = "platform/" },
			expectedViolations: []string{`repository_name "platform/" must be 2-256 lowercase characters separated by . _ - or /`},
		},
		{
			name:               "unknown_mutability",
			action:             registrymanage.ActionUpdate,
			mutate:             func(request *registrymanage.ManageRequest) { request.ImageTagMutability = "SOMETIMES" },
			expectedViolations: []string{`image_tag_mutability "SOMETIMES" must be MUTABLE or IMMUTABLE`},
		},
		{
			name:   "kms_key_without_kms",
			action: registrymanage.ActionCreate,
			mutate: func(request *registrymanage.ManageRequest) {
				request.KMSKey = "alias/registry"
			},
			expectedViolations: []string{"kms_key requires encryption_type KMS"},
		},
		{
			name:               "unknown_encryption",
			action:             registrymanage.ActionCreate,
			mutate:             func(request *registrymanage.ManageRequest) { request.EncryptionType = types.EncryptionType("ROT13") },
			expectedViolations: []string{`encryption_type "ROT13" must be AES256 or KMS`},
		},
		{
			name:               "encryption_ignored_for_update",
			action:             registrymanage.ActionUpdate,
			mutate:             func(request *registrymanage.ManageRequest) { request.EncryptionType = types.EncryptionType("ROT13") },
			expectedViolations: nil,
		},
		{
			name:               "zero_retention",
			action:             registrymanage.ActionCleanup,
			mutate:             func(request *registrymanage.ManageRequest) { request.RetentionDays = 0 },
			expectedViolations: []string{"retention_days 0 must be at least 1"},
		},
		{
			name:   "incomplete_static_credentials",
			action: registrymanage.ActionList,
			mutate: func(request *registrymanage.ManageRequest) {
				request.Credentials.SecretAccessKeySource = "env:REGISTRY_SECRET"
			},
			expectedViolations: []string{"credentials: access_key_id_source and secret_access_key_source must be provided together"},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			request := baseRequest(testCase.action)
			testCase.mutate(&request)
			validationError := request.Validate()

			if len(testCase.expectedViolations) == 0 {
				require.NoError(testInstance, validationError)
				return
			}
			var typedError failures.ValidationError
			require.ErrorAs(testInstance, validationError, &typedError)
			require.Equal(testInstance, "registry request", typedError.Subject)
			require.Equal(testInstance, testCase.expectedViolations, typedError.Violations)
		})
	}
}

func TestManageRequestRejectsLifecyclePolicyThatIsNotAnObject(testInstance *testing.T) {
	for testCaseIndex, policy := range []string{"not json", "[1,2]"} {
		testInstance.Run(fmt.Sprintf("%d_policy", testCaseIndex), func(testInstance *testing.T) {
			request := baseRequest(registrymanage.ActionCreate)
			request.LifecyclePolicy = policy
			require.ErrorContains(testInstance, request.Validate(), "lifecycle_policy is not a JSON object")
		})
	}
}

func TestCommandConfigurationSanitizeAndRequest(testInstance *testing.T) {
	configuration := registrymanage.CommandConfiguration{
		Action:             " Cleanup ",
		RepositoryName:     " platform/api ",
		ImageTagMutability: " immutable ",
		EncryptionType:     "",
		LifecyclePolicy:    "  {}  ",
		RetentionDays:      14,
		DryRun:             true,
	}

	request := configuration.Sanitize().Request()
	require.Equal(testInstance, registrymanage.ActionCleanup, request.Action)
	require.Equal(testInstance, "platform/api", request.RepositoryName)
	require.Equal(testInstance, types.ImageTagMutabilityImmutable, request.ImageTagMutability)
	require.Equal(testInstance, types.EncryptionTypeAes256, request.EncryptionType)
	require.Equal(testInstance, "{}", request.LifecyclePolicy)
	require.Equal(testInstance, 14, request.RetentionDays)
	require.True(testInstance, request.DryRun)

	defaulted := registrymanage.CommandConfiguration{}.Sanitize()
	require.Equal(testInstance, string(registrymanage.ActionList), defaulted.Action)
}

func TestActionMutating(testInstance *testing.T) {
	mutating := map[registrymanage.Action]bool{}
	for _, action := range registrymanage.Actions() {
		mutating[action] = action.Mutating()
	}
	require.Equal(testInstance, map[registrymanage.Action]bool{
		registrymanage.ActionCreate:   true,
		registrymanage.ActionUpdate:   true,
		registrymanage.ActionCleanup:  true,
		registrymanage.ActionList:     false,
		registrymanage.ActionDescribe: false,
	}, mutating)
}
