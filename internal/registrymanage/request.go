package registrymanage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ecr/types"

	"github.com/temirov/cloudchores/internal/awsauth"
	"github.com/temirov/cloudchores/internal/failures"
)

// Action names a registry chore.
type Action string

// Supported actions.
const (
	ActionCreate   Action = Action("create")
	ActionUpdate   Action = Action("update")
	ActionCleanup  Action = Action("cleanup")
	ActionList     Action = Action("list")
	ActionDescribe Action = Action("describe")
)

const (
	requestSubjectConstant                        = "registry request"
	emptyLifecyclePolicyConstant                  = "{}"
	invalidActionViolationTemplateConstant        = "action %q must be one of create, update, cleanup, list, describe"
	missingRepositoryViolationTemplateConstant    = "repository_name is required for %s"
	invalidRepositoryViolationTemplateConstant    = "repository_name %q must be 2-256 lowercase characters separated by . _ - or /"
	invalidMutabilityViolationTemplateConstant    = "image_tag_mutability %q must be MUTABLE or IMMUTABLE"
	invalidEncryptionViolationTemplateConstant    = "encryption_type %q must be AES256 or KMS"
	orphanKMSKeyViolationConstant                 = "kms_key requires encryption_type KMS"
	invalidLifecyclePolicyViolationTemplate       = "lifecycle_policy is not a JSON object: %v"
	invalidRetentionDaysViolationTemplateConstant = "retention_days %d must be at least 1"
	credentialsViolationTemplateConstant          = "credentials: %s"
	minimumRepositoryNameLengthConstant           = 2
	maximumRepositoryNameLengthConstant           = 256
)

var repositoryNamePattern = regexp.MustCompile(`^(?:[a-z0-9]+(?:[._-][a-z0-9]+)*/)*[a-z0-9]+(?:[._-][a-z0-9]+)*$`)

// Actions lists the supported actions in display order.
func Actions() []Action {
	return []Action{ActionCreate, ActionUpdate, ActionCleanup, ActionList, ActionDescribe}
}

// NormalizeAction lowercases and trims an action name without validating it.
func NormalizeAction(rawAction string) Action {
	return Action(strings.ToLower(strings.TrimSpace(rawAction)))
}

// IsValid reports whether the action is supported.
func (action Action) IsValid() bool {
	return slices.Contains(Actions(), action)
}

// Mutating reports whether the action changes registry state.
func (action Action) Mutating() bool {
	return action == ActionCreate || action == ActionUpdate || action == ActionCleanup
}

func (action Action) requiresRepository() bool {
	return action != ActionList
}

// ManageRequest describes one registry chore.
type ManageRequest struct {
	Action             Action
	RepositoryName     string
	ImageTagMutability types.ImageTagMutability
	ScanOnPush         bool
	EncryptionType     types.EncryptionType
	KMSKey             string
	LifecyclePolicy    string
	RetentionDays      int
	DryRun             bool
	Credentials        awsauth.Configuration
}

// Validate reports every unmet constraint before any API call is made.
func (request ManageRequest) Validate() error {
	var violations []string

	if !request.Action.IsValid() {
		violations = append(violations, fmt.Sprintf(invalidActionViolationTemplateConstant, request.Action))
	}

	if request.Action.requiresRepository() {
		switch {
		case len(request.RepositoryName) == 0:
			violations = append(violations, fmt.Sprintf(missingRepositoryViolationTemplateConstant, request.Action))
		case !validRepositoryName(request.RepositoryName):
			violations = append(violations, fmt.Sprintf(invalidRepositoryViolationTemplateConstant, request.RepositoryName))
		}
	}

	if request.Action == ActionCreate || request.Action == ActionUpdate {
		if !slices.Contains([]types.ImageTagMutability{types.ImageTagMutabilityMutable, types.ImageTagMutabilityImmutable}, request.ImageTagMutability) {
			violations = append(violations, fmt.Sprintf(invalidMutabilityViolationTemplateConstant, request.ImageTagMutability))
		}
		if _, lifecycleError := request.normalizedLifecyclePolicy(); lifecycleError != nil {
			violations = append(violations, fmt.Sprintf(invalidLifecyclePolicyViolationTemplate, lifecycleError))
		}
	}

	if request.Action == ActionCreate {
		if request.EncryptionType != types.EncryptionTypeAes256 && request.EncryptionType != types.EncryptionTypeKms {
			violations = append(violations, fmt.Sprintf(invalidEncryptionViolationTemplateConstant, request.EncryptionType))
		}
		if len(request.KMSKey) > 0 && request.EncryptionType != types.EncryptionTypeKms {
			violations = append(violations, orphanKMSKeyViolationConstant)
		}
	}

	if request.Action == ActionCleanup && request.RetentionDays < 1 {
		violations = append(violations, fmt.Sprintf(invalidRetentionDaysViolationTemplateConstant, request.RetentionDays))
	}

	for _, credentialViolation := range request.Credentials.Sanitize().Validate() {
		violations = append(violations, fmt.Sprintf(credentialsViolationTemplateConstant, credentialViolation))
	}

	if len(violations) > 0 {
		return failures.ValidationError{Subject: requestSubjectConstant, Violations: violations}
	}
	return nil
}

// normalizedLifecyclePolicy returns the compacted policy document, or empty when no policy is set.
// An empty object counts as no policy.
func (request ManageRequest) normalizedLifecyclePolicy() (string, error) {
	trimmed := strings.TrimSpace(request.LifecyclePolicy)
	if len(trimmed) == 0 || trimmed == emptyLifecyclePolicyConstant {
		return "", nil
	}
	var document map[string]any
	if decodeError := json.Unmarshal([]byte(trimmed), &document); decodeError != nil {
		return "", decodeError
	}
	if len(document) == 0 {
		return "", nil
	}
	compacted := &bytes.Buffer{}
	if compactError := json.Compact(compacted, []byte(trimmed)); compactError != nil {
		return "", compactError
	}
	return compacted.String(), nil
}

func validRepositoryName(repositoryName string) bool {
	if len(repositoryName) < minimumRepositoryNameLengthConstant || len(repositoryName) > maximumRepositoryNameLengthConstant {
		return false
	}
	return repositoryNamePattern.MatchString(repositoryName)
}
