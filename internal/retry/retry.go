// Package retry runs cloud API calls under a bounded exponential backoff that only
// repeats transient failures.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/cloudchores/internal/failures"
)

const (
	defaultMaxAttemptsConstant    = 4
	defaultBaseDelayConstant      = 200 * time.Millisecond
	defaultMaxDelayConstant       = 5 * time.Second
	jitterFractionConstant        = 0.25
	retryScheduledMessageConstant = "Transient failure, retrying"
	logFieldOperationConstant     = "operation"
	logFieldAttemptConstant       = "attempt"
	logFieldMaxAttemptsConstant   = "max_attempts"
	logFieldDelayConstant         = "delay"
	logFieldFailureKindConstant   = "failure_kind"
)

// Policy bounds the retry loop.
type Policy struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// DefaultPolicy returns the small fixed attempt cap used by every chore.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: defaultMaxAttemptsConstant,
		BaseDelay:   defaultBaseDelayConstant,
		MaxDelay:    defaultMaxDelayConstant,
	}
}

// Sanitize replaces unusable values with defaults.
func (policy Policy) Sanitize() Policy {
	sanitized := policy
	if sanitized.MaxAttempts < 1 {
		sanitized.MaxAttempts = defaultMaxAttemptsConstant
	}
	if sanitized.BaseDelay < 0 {
		sanitized.BaseDelay = 0
	}
	if sanitized.MaxDelay <= 0 {
		sanitized.MaxDelay = defaultMaxDelayConstant
	}
	if sanitized.BaseDelay > sanitized.MaxDelay {
		sanitized.BaseDelay = sanitized.MaxDelay
	}
	return sanitized
}

// Delay computes the backoff before the attempt following the provided one:
// baseDelay * 2^(attempt-1) with ±25% jitter, capped at MaxDelay.
func (policy Policy) Delay(attempt int, randomSource RandomSource) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	exponentialDelayValue := float64(policy.BaseDelay) * math.Pow(2, float64(attempt-1))
	if exponentialDelayValue >= float64(policy.MaxDelay) {
		return policy.MaxDelay
	}
	exponentialDelay := time.Duration(exponentialDelayValue)

	jitterRange := int64(float64(exponentialDelay) * jitterFractionConstant)
	if jitterRange > 0 && randomSource != nil {
		exponentialDelay += time.Duration(randomSource(2*jitterRange) - jitterRange)
	}

	if exponentialDelay > policy.MaxDelay {
		exponentialDelay = policy.MaxDelay
	}
	if exponentialDelay < 0 {
		exponentialDelay = 0
	}
	return exponentialDelay
}

// Sleeper blocks for the provided duration or until the context ends.
type Sleeper func(sleepContext context.Context, duration time.Duration) error

// RandomSource returns a value in [0, upperBound).
type RandomSource func(upperBound int64) int64

// Operation is a single cloud API call.
type Operation func(operationContext context.Context) error

// Option customizes a Retrier.
type Option func(*Retrier)

// WithSleeper substitutes the blocking sleep.
func WithSleeper(sleeper Sleeper) Option {
	return func(retrier *Retrier) {
		if sleeper != nil {
			retrier.sleeper = sleeper
		}
	}
}

// WithRandomSource substitutes the jitter source.
func WithRandomSource(randomSource RandomSource) Option {
	return func(retrier *Retrier) {
		if randomSource != nil {
			retrier.randomSource = randomSource
		}
	}
}

// WithLogger reports scheduled retries at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(retrier *Retrier) {
		if logger != nil {
			retrier.logger = logger
		}
	}
}

// Retrier executes operations under a Policy.
type Retrier struct {
	policy       Policy
	sleeper      Sleeper
	randomSource RandomSource
	logger       *zap.Logger
}

// NewRetrier constructs a Retrier with a sanitized policy.
func NewRetrier(policy Policy, options ...Option) *Retrier {
	retrier := &Retrier{
		policy:       policy.Sanitize(),
		sleeper:      sleepWithContext,
		randomSource: rand.Int63n,
		logger:       zap.NewNop(),
	}
	for _, option := range options {
		if option != nil {
			option(retrier)
		}
	}
	return retrier
}

// Policy exposes the effective policy.
func (retrier *Retrier) Policy() Policy {
	return retrier.policy
}

// Do runs the operation until it succeeds, fails permanently, or exhausts the attempt cap.
// It returns the number of attempts made together with the last error.
func (retrier *Retrier) Do(executionContext context.Context, operationName string, operation Operation) (int, error) {
	attempt := 0
	for {
		attempt++
		if contextError := executionContext.Err(); contextError != nil {
			return attempt - 1, contextError
		}

		operationError := operation(executionContext)
		if operationError == nil {
			return attempt, nil
		}

		failureKind := failures.Classify(operationError)
		if !failureKind.Retryable() || attempt >= retrier.policy.MaxAttempts {
			return attempt, operationError
		}

		delay := retrier.policy.Delay(attempt, retrier.randomSource)
		retrier.logger.Debug(
			retryScheduledMessageConstant,
			zap.String(logFieldOperationConstant, operationName),
			zap.Int(logFieldAttemptConstant, attempt),
			zap.Int(logFieldMaxAttemptsConstant, retrier.policy.MaxAttempts),
			zap.Duration(logFieldDelayConstant, delay),
			zap.String(logFieldFailureKindConstant, string(failureKind)),
			zap.Error(operationError),
		)

		if sleepError := retrier.sleeper(executionContext, delay); sleepError != nil {
			return attempt, sleepError
		}
	}
}

func sleepWithContext(sleepContext context.Context, duration time.Duration) error {
	if duration <= 0 {
		return sleepContext.Err()
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-sleepContext.Done():
		return sleepContext.Err()
	case <-timer.C:
		return nil
	}
}
