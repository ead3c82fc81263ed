package failures

import (
	"fmt"
	"strings"
)

const (
	validationErrorTemplateConstant    = "invalid %s: %s"
	validationViolationSeparator       = ", "
	providerErrorTemplateConstant      = "%s %s failed (%s): %v"
	providerErrorWithAttemptsTemplate  = "%s %s failed (%s) after %d attempts: %v"
	providerErrorNoResourceTemplate    = "%s failed (%s): %v"
	alreadyExistsErrorTemplateConstant = "%s %s already exists"
	partialCompletionTemplateConstant  = "%s was created but %d step(s) failed: %s; nothing was rolled back"
	partialCompletionStepSeparator     = ", "
)

// ValidationError reports input rejected before any external call, listing every unmet rule.
type ValidationError struct {
	Subject    string
	Violations []string
}

// Error describes the unmet rules.
func (validationError ValidationError) Error() string {
	return fmt.Sprintf(validationErrorTemplateConstant, validationError.Subject, strings.Join(validationError.Violations, validationViolationSeparator))
}

// FailureKind marks validation errors as permanent.
func (validationError ValidationError) FailureKind() Kind {
	return KindValidation
}

// ProviderError wraps a failed cloud API call with its classification and attempt count.
type ProviderError struct {
	Operation string
	Resource  string
	Kind      Kind
	Attempts  int
	Cause     error
}

// NewProviderError classifies the cause and wraps it with operation context.
func NewProviderError(operation string, resource string, attempts int, cause error) ProviderError {
	return ProviderError{
		Operation: operation,
		Resource:  resource,
		Kind:      Classify(cause),
		Attempts:  attempts,
		Cause:     cause,
	}
}

// Error describes the failed call.
func (providerError ProviderError) Error() string {
	if len(providerError.Resource) == 0 {
		return fmt.Sprintf(providerErrorNoResourceTemplate, providerError.Operation, providerError.Kind, providerError.Cause)
	}
	if providerError.Attempts > 1 {
		return fmt.Sprintf(providerErrorWithAttemptsTemplate, providerError.Operation, providerError.Resource, providerError.Kind, providerError.Attempts, providerError.Cause)
	}
	return fmt.Sprintf(providerErrorTemplateConstant, providerError.Operation, providerError.Resource, providerError.Kind, providerError.Cause)
}

// Unwrap exposes the underlying SDK error.
func (providerError ProviderError) Unwrap() error {
	return providerError.Cause
}

// FailureKind reports the recorded classification.
func (providerError ProviderError) FailureKind() Kind {
	return providerError.Kind
}

// Retryable reports whether the failure was transient.
func (providerError ProviderError) Retryable() bool {
	return providerError.Kind.Retryable()
}

// AlreadyExistsError reports a create call that collided with an existing resource.
type AlreadyExistsError struct {
	ResourceType string
	Identifier   string
	Cause        error
}

// Error describes the collision.
func (alreadyExistsError AlreadyExistsError) Error() string {
	return fmt.Sprintf(alreadyExistsErrorTemplateConstant, alreadyExistsError.ResourceType, alreadyExistsError.Identifier)
}

// Unwrap exposes the underlying SDK error.
func (alreadyExistsError AlreadyExistsError) Unwrap() error {
	return alreadyExistsError.Cause
}

// FailureKind marks collisions as permanent.
func (alreadyExistsError AlreadyExistsError) FailureKind() Kind {
	return KindAlreadyExists
}

// PartialCompletionError reports a resource that was created while later steps failed.
// The resource is left in place.
type PartialCompletionError struct {
	Resource    string
	FailedSteps []string
	Causes      []error
}

// Error lists the failed steps.
func (partialCompletionError PartialCompletionError) Error() string {
	return fmt.Sprintf(
		partialCompletionTemplateConstant,
		partialCompletionError.Resource,
		len(partialCompletionError.FailedSteps),
		strings.Join(partialCompletionError.FailedSteps, partialCompletionStepSeparator),
	)
}

// Unwrap exposes every step failure.
func (partialCompletionError PartialCompletionError) Unwrap() []error {
	return partialCompletionError.Causes
}
