package secrets

import (
	"encoding/json"
	"errors"
	"sync"
)

const (
	redactedPlaceholderConstant   = "[REDACTED]"
	secretConsumedMessageConstant = "secret value has already been revealed"
	secretAbsentMessageConstant   = "secret value is not set"
)

var (
	// ErrSecretConsumed indicates a one-time secret was already revealed.
	ErrSecretConsumed = errors.New(secretConsumedMessageConstant)
	// ErrSecretAbsent indicates the value holder carries no secret material.
	ErrSecretAbsent = errors.New(secretAbsentMessageConstant)
)

// Value holds secret material that never renders through formatting, JSON, YAML, or zap fields.
// One-time values release their content on the first Reveal and refuse every later call.
type Value struct {
	mutex      sync.Mutex
	content    []byte
	oneTimeUse bool
	consumed   bool
}

// ValueOption customizes a Value.
type ValueOption func(*Value)

// WithOneTimeUse controls whether Reveal consumes the value. Values are one-time by default.
func WithOneTimeUse(oneTimeUse bool) ValueOption {
	return func(value *Value) {
		value.oneTimeUse = oneTimeUse
	}
}

// NewValue wraps the provided secret material.
func NewValue(content string, options ...ValueOption) *Value {
	value := &Value{content: []byte(content), oneTimeUse: true}
	for _, option := range options {
		if option != nil {
			option(value)
		}
	}
	return value
}

// Reveal returns the secret material. One-time values are cleared after the first call.
func (value *Value) Reveal() (string, error) {
	if value == nil {
		return "", ErrSecretAbsent
	}

	value.mutex.Lock()
	defer value.mutex.Unlock()

	if value.consumed {
		return "", ErrSecretConsumed
	}
	if len(value.content) == 0 {
		return "", ErrSecretAbsent
	}

	revealed := string(value.content)
	if value.oneTimeUse {
		clearBytes(value.content)
		value.content = nil
		value.consumed = true
	}
	return revealed, nil
}

// IsEmpty reports whether no secret material is held.
func (value *Value) IsEmpty() bool {
	if value == nil {
		return true
	}
	value.mutex.Lock()
	defer value.mutex.Unlock()
	return len(value.content) == 0 && !value.consumed
}

// IsConsumed reports whether a one-time value has been revealed.
func (value *Value) IsConsumed() bool {
	if value == nil {
		return false
	}
	value.mutex.Lock()
	defer value.mutex.Unlock()
	return value.consumed
}

// String implements fmt.Stringer and always redacts.
func (value *Value) String() string {
	return redactedPlaceholderConstant
}

// GoString keeps %#v from printing the underlying bytes.
func (value *Value) GoString() string {
	return redactedPlaceholderConstant
}

// MarshalJSON always redacts.
func (value *Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(redactedPlaceholderConstant)
}

// MarshalYAML always redacts.
func (value *Value) MarshalYAML() (any, error) {
	return redactedPlaceholderConstant, nil
}

// MarshalText keeps encoders relying on encoding.TextMarshaler redacted.
func (value *Value) MarshalText() ([]byte, error) {
	return []byte(redactedPlaceholderConstant), nil
}

func clearBytes(content []byte) {
	for index := range content {
		content[index] = 0
	}
}
