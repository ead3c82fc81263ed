package accountprovision

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/temirov/cloudchores/internal/awsauth"
	"github.com/temirov/cloudchores/internal/failures"
	"github.com/temirov/cloudchores/internal/secrets"
)

// AccessLevel names a permission tier.
type AccessLevel string

// Supported access tiers.
const (
	AccessLevelReadOnly  AccessLevel = AccessLevel("readonly")
	AccessLevelDeveloper AccessLevel = AccessLevel("developer")
	AccessLevelAdmin     AccessLevel = AccessLevel("admin")
)

// Password rule names reported as validation violations.
const (
	PasswordRuleLength    = "length"
	PasswordRuleUppercase = "uppercase"
	PasswordRuleLowercase = "lowercase"
	PasswordRuleDigit     = "digit"
	PasswordRuleSymbol    = "symbol"
)

const (
	minimumPasswordLengthConstant               = 8
	passwordSymbolsConstant                     = "!@#$%^&*()_+-=[]{}|;:,.<>?"
	requestSubjectConstant                      = "provision request"
	invalidUsernameViolationTemplateConstant    = "username %q must be 1-64 characters from [A-Za-z0-9_+=,.@-]"
	invalidAccessLevelViolationTemplateConstant = "access_level %q must be one of readonly, developer, admin"
	invalidGroupViolationTemplateConstant       = "group %q must be 1-128 characters from [A-Za-z0-9_+=,.@-]"
	invalidPartitionViolationTemplateConstant   = "partition %q is not a valid partition name"
	unreadablePasswordViolationTemplateConstant = "password could not be read: %v"
	credentialsViolationTemplateConstant        = "credentials: %s"
)

var (
	usernamePattern  = regexp.MustCompile(`^[\w+=,.@-]{1,64}$`)
	groupNamePattern = regexp.MustCompile(`^[\w+=,.@-]{1,128}$`)
	partitionPattern = regexp.MustCompile(`^aws(-[a-z]+)*$`)
)

// AccessLevels lists the supported tiers in privilege order.
func AccessLevels() []AccessLevel {
	return []AccessLevel{AccessLevelReadOnly, AccessLevelDeveloper, AccessLevelAdmin}
}

// NormalizeAccessLevel lowercases and trims a tier name without validating it.
func NormalizeAccessLevel(rawLevel string) AccessLevel {
	return AccessLevel(strings.ToLower(strings.TrimSpace(rawLevel)))
}

// IsValid reports whether the tier is one of the supported variants.
func (accessLevel AccessLevel) IsValid() bool {
	return slices.Contains(AccessLevels(), accessLevel)
}

// ProvisionRequest describes one account to create.
type ProvisionRequest struct {
	Username           string
	InitialPassword    *secrets.Value
	AccessLevel        AccessLevel
	ForcePasswordReset bool
	CreateAccessKey    bool
	Groups             []string
	EnforceMFA         bool
	Partition          string
	Credentials        awsauth.Configuration
}

// Validate reports every unmet constraint before any API call is made.
func (request ProvisionRequest) Validate() error {
	var violations []string

	if !usernamePattern.MatchString(request.Username) {
		violations = append(violations, fmt.Sprintf(invalidUsernameViolationTemplateConstant, request.Username))
	}

	password, passwordError := request.readPassword()
	if passwordError != nil {
		violations = append(violations, fmt.Sprintf(unreadablePasswordViolationTemplateConstant, passwordError))
	} else {
		violations = append(violations, PasswordViolations(password)...)
	}

	if !NormalizeAccessLevel(string(request.AccessLevel)).IsValid() {
		violations = append(violations, fmt.Sprintf(invalidAccessLevelViolationTemplateConstant, request.AccessLevel))
	}

	for _, groupName := range request.Groups {
		if !groupNamePattern.MatchString(groupName) {
			violations = append(violations, fmt.Sprintf(invalidGroupViolationTemplateConstant, groupName))
		}
	}

	if len(request.Partition) > 0 && !partitionPattern.MatchString(request.Partition) {
		violations = append(violations, fmt.Sprintf(invalidPartitionViolationTemplateConstant, request.Partition))
	}

	for _, credentialViolation := range request.Credentials.Sanitize().Validate() {
		violations = append(violations, fmt.Sprintf(credentialsViolationTemplateConstant, credentialViolation))
	}

	if len(violations) > 0 {
		return failures.ValidationError{Subject: requestSubjectConstant, Violations: violations}
	}
	return nil
}

// readPassword reads the password without consuming a reusable secret. An absent secret reads as empty
// so that every complexity rule is reported.
func (request ProvisionRequest) readPassword() (string, error) {
	if request.InitialPassword == nil || request.InitialPassword.IsEmpty() {
		return "", nil
	}
	return request.InitialPassword.Reveal()
}

// PasswordViolations lists every complexity rule the password fails, in a stable order.
func PasswordViolations(password string) []string {
	var hasUppercase, hasLowercase, hasDigit, hasSymbol bool
	for _, character := range password {
		switch {
		case unicode.IsUpper(character):
			hasUppercase = true
		case unicode.IsLower(character):
			hasLowercase = true
		case unicode.IsDigit(character):
			hasDigit = true
		case strings.ContainsRune(passwordSymbolsConstant, character):
			hasSymbol = true
		}
	}

	var violations []string
	if len([]rune(password)) < minimumPasswordLengthConstant {
		violations = append(violations, PasswordRuleLength)
	}
	if !hasUppercase {
		violations = append(violations, PasswordRuleUppercase)
	}
	if !hasLowercase {
		violations = append(violations, PasswordRuleLowercase)
	}
	if !hasDigit {
		violations = append(violations, PasswordRuleDigit)
	}
	if !hasSymbol {
		violations = append(violations, PasswordRuleSymbol)
	}
	return violations
}

func (request ProvisionRequest) sortedGroups() []string {
	groups := append([]string{}, request.Groups...)
	slices.Sort(groups)
	return slices.Compact(groups)
}

func sanitizeGroups(rawGroups []string) []string {
	sanitized := make([]string, 0, len(rawGroups))
	seen := make(map[string]struct{}, len(rawGroups))
	for _, rawGroup := range rawGroups {
		trimmedGroup := strings.TrimSpace(rawGroup)
		if len(trimmedGroup) == 0 {
			continue
		}
		if _, duplicate := seen[trimmedGroup]; duplicate {
			continue
		}
		seen[trimmedGroup] = struct{}{}
		sanitized = append(sanitized, trimmedGroup)
	}
	if len(sanitized) == 0 {
		return nil
	}
	return sanitized
}
