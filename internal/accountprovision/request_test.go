package accountprovision_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/cloudchores/internal/accountprovision"
	"github.com/temirov/cloudchores/internal/failures"
	"github.com/temirov/cloudchores/internal/secrets"
)

func TestPasswordViolations(testInstance *testing.T) {
	testCases := []struct {
		name               string
		password           string
		expectedViolations []string
	}{
		{name: "compliant", password: "Str0ng!Passw0rd"},
		{name: "short_lowercase", password: "abc", expectedViolations: []string{"length", "uppercase", "digit", "symbol"}},
		{name: "empty", password: "", expectedViolations: []string{"length", "uppercase", "lowercase", "digit", "symbol"}},
		{name: "missing_symbol", password: "Password123", expectedViolations: []string{"symbol"}},
		{name: "unlisted_symbol_does_not_count", password: "Password123~", expectedViolations: []string{"symbol"}},
		{name: "missing_lowercase", password: "PASSWORD1!", expectedViolations: []string{"lowercase"}},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedViolations, accountprovision.PasswordViolations(testCase.password))
		})
	}
}

func TestProvisionRequestValidate(testInstance *testing.T) {
	testCases := []struct {
		name               string
		mutate             func(request *accountprovision.ProvisionRequest)
		expectedViolations []string
	}{
		{name: "valid", mutate: func(*accountprovision.ProvisionRequest) {}},
		{
			name:               "username_with_spaces",
			mutate:             func(request *accountprovision.ProvisionRequest) { request.Username = "build auditor" },
			expectedViolations: []string{`username "build auditor" must be 1-64 characters from [A-Za-z0-9_+=,.@-]`},
		},
		{
			name:               "unknown_access_level",
			mutate:             func(request *accountprovision.ProvisionRequest) { request.AccessLevel = "root" },
			expectedViolations: []string{`access_level "root" must be one of readonly, developer, admin`},
		},
		{
			name:               "invalid_group",
			mutate:             func(request *accountprovision.ProvisionRequest) { request.Groups = []string{"ops", "bad/group"} },
			expectedViolations: []string{`group "bad/group" must be 1-128 characters from [A-Za-z0-9_+=,.@-]`},
		},
		{
			name:               "invalid_partition",
			mutate:             func(request *accountprovision.ProvisionRequest) { request.Partition = "azure" },
			expectedViolations: []string{`partition "azure" is not a valid partition name`},
		},
		{
			name:               "missing_password",
			mutate:             func(request *accountprovision.ProvisionRequest) { request.InitialPassword = nil },
			expectedViolations: []string{"length", "uppercase", "lowercase", "digit", "symbol"},
		},
		{
			name: "incomplete_static_credentials",
			mutate: func(request *accountprovision.ProvisionRequest) {
				request.Credentials.AccessKeyIDSource = "env:PROVISIONER_KEY_ID"
			},
			expectedViolations: []string{"credentials: access_key_id_source and secret_access_key_source must be provided together"},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			request := baseRequest()
			testCase.mutate(&request)
			validationError := request.Validate()

			if len(testCase.expectedViolations) == 0 {
				require.NoError(testInstance, validationError)
				return
			}
			var typedError failures.ValidationError
			require.ErrorAs(testInstance, validationError, &typedError)
			require.Equal(testInstance, "provision request", typedError.Subject)
			require.Equal(testInstance, testCase.expectedViolations, typedError.Violations)
		})
	}
}

func TestValidateKeepsReusablePasswordReadable(testInstance *testing.T) {
	request := baseRequest()
	require.NoError(testInstance, request.Validate())
	revealed, revealError := request.InitialPassword.Reveal()
	require.NoError(testInstance, revealError)
	require.Equal(testInstance, testPasswordConstant, revealed)
}

func TestManagedPolicyARN(testInstance *testing.T) {
	policyARN, known := accountprovision.ManagedPolicyARN("", accountprovision.AccessLevelReadOnly)
	require.True(testInstance, known)
	require.Equal(testInstance, "arn:aws:iam::aws:policy/ReadOnlyAccess", policyARN)

	_, known = accountprovision.ManagedPolicyARN("aws", accountprovision.AccessLevel("owner"))
	require.False(testInstance, known)
}

func TestMFAPolicyDocumentDeniesWithoutMFA(testInstance *testing.T) {
	document, documentError := accountprovision.MFAPolicyDocument()
	require.NoError(testInstance, documentError)

	var decoded struct {
		Version   string
		Statement []struct {
			Sid       string
			Effect    string
			NotAction []string
			Condition map[string]map[string]string
		}
	}
	require.NoError(testInstance, json.Unmarshal([]byte(document), &decoded))
	require.Equal(testInstance, "2012-10-17", decoded.Version)
	require.Len(testInstance, decoded.Statement, 1)
	require.Equal(testInstance, "Deny", decoded.Statement[0].Effect)
	require.Contains(testInstance, decoded.Statement[0].NotAction, "iam:EnableMFADevice")
	require.Equal(testInstance, "false", decoded.Statement[0].Condition["BoolIfExists"]["aws:MultiFactorAuthPresent"])
}

func TestCommandConfigurationSanitizeAndRequest(testInstance *testing.T) {
	configuration := accountprovision.CommandConfiguration{
		Username:    "  build-auditor ",
		AccessLevel: " Developer ",
		Groups:      []string{" ops ", "", "ops", "auditors"},
	}
	sanitized := configuration.Sanitize()

	require.Equal(testInstance, "build-auditor", sanitized.Username)
	require.Equal(testInstance, "developer", sanitized.AccessLevel)
	require.Equal(testInstance, []string{"ops", "auditors"}, sanitized.Groups)
	require.Equal(testInstance, "aws", sanitized.Partition)
	require.Equal(testInstance, "env:CLOUDCHORES_INITIAL_PASSWORD", sanitized.PasswordSource)

	request := sanitized.Request(secrets.NewValue(testPasswordConstant, secrets.WithOneTimeUse(false)))
	require.Equal(testInstance, accountprovision.AccessLevelDeveloper, request.AccessLevel)
	require.NoError(testInstance, request.Validate())

	defaults := accountprovision.DefaultCommandConfiguration()
	require.True(testInstance, defaults.ForcePasswordReset)
	require.False(testInstance, defaults.CreateAccessKey)
	require.Equal(testInstance, "readonly", defaults.AccessLevel)
}
