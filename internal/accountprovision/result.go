package accountprovision

import (
	"errors"
	"fmt"
	"time"

	"github.com/temirov/cloudchores/internal/failures"
	"github.com/temirov/cloudchores/internal/secrets"
)

// Step names recorded in provisioning results.
const (
	StepCreateUser           = "create_user"
	StepCreateLoginProfile   = "create_login_profile"
	StepAttachPolicy         = "attach_policy"
	StepAddToGroup           = "add_to_group"
	StepRequirePasswordReset = "require_password_reset"
	StepEnforceMFA           = "enforce_mfa"
	StepCreateAccessKey      = "create_access_key"
)

const (
	stepWarningTemplateConstant       = "%s %s failed: %v"
	secretRevealErrorTemplateConstant = "unable to read access key secret for %s: %w"
)

// StepOutcome records one provisioning step.
type StepOutcome struct {
	Step        string        `json:"step" yaml:"step"`
	Target      string        `json:"target" yaml:"target"`
	Succeeded   bool          `json:"succeeded" yaml:"succeeded"`
	Attempts    int           `json:"attempts" yaml:"attempts"`
	ErrorDetail string        `json:"error_detail,omitempty" yaml:"error_detail,omitempty"`
	FailureKind failures.Kind `json:"failure_kind,omitempty" yaml:"failure_kind,omitempty"`
}

// ProvisionResult summarizes a provisioning run. The access key secret stays wrapped and renders
// redacted until Document releases it.
type ProvisionResult struct {
	Username              string
	UserARN               string
	CreatedAt             time.Time
	AccessLevel           AccessLevel
	AccessKeyID           string
	AccessKeySecret       *secrets.Value
	AttachedPolicies      []string
	Groups                []string
	PasswordResetRequired bool
	MFAEnforced           bool
	Steps                 []StepOutcome
	Warnings              []string
}

// FailedSteps lists "step:target" for every failed step in execution order.
func (result ProvisionResult) FailedSteps() []string {
	var failedSteps []string
	for _, stepOutcome := range result.Steps {
		if !stepOutcome.Succeeded {
			failedSteps = append(failedSteps, stepOutcome.Step+":"+stepOutcome.Target)
		}
	}
	return failedSteps
}

func (result *ProvisionResult) recordStep(step string, target string, attempts int, stepError error) {
	outcome := StepOutcome{Step: step, Target: target, Succeeded: stepError == nil, Attempts: attempts}
	if stepError != nil {
		outcome.ErrorDetail = stepError.Error()
		outcome.FailureKind = failures.Classify(stepError)
		result.Warnings = append(result.Warnings, fmt.Sprintf(stepWarningTemplateConstant, step, target, stepError))
	}
	result.Steps = append(result.Steps, outcome)
}

// ResultDocument is the report form of a ProvisionResult. It is the only place the access key secret
// appears in clear text.
type ResultDocument struct {
	RunID                 string        `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Username              string        `json:"username" yaml:"username"`
	UserARN               string        `json:"user_arn,omitempty" yaml:"user_arn,omitempty"`
	CreatedAt             *time.Time    `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	AccessLevel           AccessLevel   `json:"access_level" yaml:"access_level"`
	AccessKeyID           string        `json:"access_key_id,omitempty" yaml:"access_key_id,omitempty"`
	AccessKeySecret       string        `json:"access_key_secret,omitempty" yaml:"access_key_secret,omitempty"`
	AttachedPolicies      []string      `json:"attached_policies" yaml:"attached_policies"`
	Groups                []string      `json:"groups" yaml:"groups"`
	PasswordResetRequired bool          `json:"password_reset_required" yaml:"password_reset_required"`
	MFAEnforced           bool          `json:"mfa_enforced" yaml:"mfa_enforced"`
	Steps                 []StepOutcome `json:"steps" yaml:"steps"`
	Warnings              []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Document releases the one-time access key secret into the report form. A second call fails
// rather than emitting the secret twice.
func (result ProvisionResult) Document(runIdentifier string) (ResultDocument, error) {
	document := ResultDocument{
		RunID:                 runIdentifier,
		Username:              result.Username,
		UserARN:               result.UserARN,
		AccessLevel:           result.AccessLevel,
		AccessKeyID:           result.AccessKeyID,
		AttachedPolicies:      nonNilStrings(result.AttachedPolicies),
		Groups:                nonNilStrings(result.Groups),
		PasswordResetRequired: result.PasswordResetRequired,
		MFAEnforced:           result.MFAEnforced,
		Steps:                 result.Steps,
		Warnings:              result.Warnings,
	}
	if document.Steps == nil {
		document.Steps = []StepOutcome{}
	}
	if !result.CreatedAt.IsZero() {
		createdAt := result.CreatedAt.UTC()
		document.CreatedAt = &createdAt
	}
	if result.AccessKeySecret != nil {
		secretAccessKey, revealError := result.AccessKeySecret.Reveal()
		if revealError != nil && !errors.Is(revealError, secrets.ErrSecretAbsent) {
			return ResultDocument{}, fmt.Errorf(secretRevealErrorTemplateConstant, result.Username, revealError)
		}
		document.AccessKeySecret = secretAccessKey
	}
	return document, nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
