package accountprovision

import (
	"encoding/json"
	"fmt"
)

const (
	managedPolicyARNTemplateConstant = "arn:%s:iam::aws:policy/%s"
	readOnlyPolicyNameConstant       = "ReadOnlyAccess"
	developerPolicyNameConstant      = "PowerUserAccess"
	adminPolicyNameConstant          = "AdministratorAccess"
	mfaPolicyNameConstant            = "MFAPolicy"
	policyVersionConstant            = "2012-10-17"
)

var managedPolicyNames = map[AccessLevel]string{
	AccessLevelReadOnly:  readOnlyPolicyNameConstant,
	AccessLevelDeveloper: developerPolicyNameConstant,
	AccessLevelAdmin:     adminPolicyNameConstant,
}

// ManagedPolicyARN returns the AWS-managed policy attached for the tier. The partition defaults to "aws".
func ManagedPolicyARN(partition string, accessLevel AccessLevel) (string, bool) {
	policyName, known := managedPolicyNames[NormalizeAccessLevel(string(accessLevel))]
	if !known {
		return "", false
	}
	if len(partition) == 0 {
		partition = defaultPartitionConstant
	}
	return fmt.Sprintf(managedPolicyARNTemplateConstant, partition, policyName), true
}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Sid       string                       `json:"Sid"`
	Effect    string                       `json:"Effect"`
	NotAction []string                     `json:"NotAction"`
	Resource  string                       `json:"Resource"`
	Condition map[string]map[string]string `json:"Condition"`
}

// MFAPolicyDocument returns the inline policy denying everything except MFA self-enrollment until
// the caller authenticates with MFA.
func MFAPolicyDocument() (string, error) {
	document := policyDocument{
		Version: policyVersionConstant,
		Statement: []policyStatement{
			{
				Sid:    "DenyAllExceptListedIfNoMFA",
				Effect: "Deny",
				NotAction: []string{
					"iam:CreateVirtualMFADevice",
					"iam:EnableMFADevice",
					"iam:GetUser",
					"iam:ListMFADevices",
					"iam:ListVirtualMFADevices",
					"iam:ResyncMFADevice",
					"sts:GetSessionToken",
				},
				Resource: "*",
				Condition: map[string]map[string]string{
					"BoolIfExists": {"aws:MultiFactorAuthPresent": "false"},
				},
			},
		},
	}
	encoded, encodeError := json.Marshal(document)
	if encodeError != nil {
		return "", encodeError
	}
	return string(encoded), nil
}
