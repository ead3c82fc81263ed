package awsauth

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	defaultRegionConstant                = "us-east-1"
	defaultSessionNamePrefixConstant     = "cloudchores"
	sessionNameSeparatorConstant         = "-"
	sessionNameMaximumLengthConstant     = 64
	roleARNPrefixConstant                = "arn:"
	invalidRoleARNTemplateConstant       = "role_arn %q must be an ARN"
	incompleteStaticKeysMessageConstant  = "access_key_id_source and secret_access_key_source must be provided together"
	externalIDWithoutRoleMessageConstant = "external_id requires role_arn"
	strategyStaticConstant               = "static"
	strategyProfileTemplateConstant      = "profile:%s"
	strategyDefaultChainConstant         = "default-chain"
	strategyAssumeRoleSuffixTemplate     = "+assume-role:%s"
	configurationSubjectTemplateConstant = "%s credentials"
)

var sessionNameDisallowedCharacters = regexp.MustCompile(`[^\w+=,.@-]`)

// Configuration declares how one side of a chore authenticates.
type Configuration struct {
	Profile               string `mapstructure:"profile"`
	Region                string `mapstructure:"region"`
	AccessKeyIDSource     string `mapstructure:"access_key_id_source"`
	SecretAccessKeySource string `mapstructure:"secret_access_key_source"`
	SessionTokenSource    string `mapstructure:"session_token_source"`
	RoleARN               string `mapstructure:"role_arn"`
	ExternalID            string `mapstructure:"external_id"`
	SessionName           string `mapstructure:"session_name"`
	EndpointURL           string `mapstructure:"endpoint_url"`
	UsePathStyle          bool   `mapstructure:"use_path_style"`
}

// Sanitize trims configured values.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.Profile = strings.TrimSpace(configuration.Profile)
	sanitized.Region = strings.TrimSpace(configuration.Region)
	sanitized.AccessKeyIDSource = strings.TrimSpace(configuration.AccessKeyIDSource)
	sanitized.SecretAccessKeySource = strings.TrimSpace(configuration.SecretAccessKeySource)
	sanitized.SessionTokenSource = strings.TrimSpace(configuration.SessionTokenSource)
	sanitized.RoleARN = strings.TrimSpace(configuration.RoleARN)
	sanitized.ExternalID = strings.TrimSpace(configuration.ExternalID)
	sanitized.SessionName = strings.TrimSpace(configuration.SessionName)
	sanitized.EndpointURL = strings.TrimSpace(configuration.EndpointURL)
	return sanitized
}

// Validate reports every inconsistency in the strategy declaration.
func (configuration Configuration) Validate() []string {
	var violations []string
	hasAccessKeySource := len(configuration.AccessKeyIDSource) > 0
	hasSecretKeySource := len(configuration.SecretAccessKeySource) > 0
	if hasAccessKeySource != hasSecretKeySource {
		violations = append(violations, incompleteStaticKeysMessageConstant)
	}
	if len(configuration.RoleARN) > 0 && !strings.HasPrefix(configuration.RoleARN, roleARNPrefixConstant) {
		violations = append(violations, fmt.Sprintf(invalidRoleARNTemplateConstant, configuration.RoleARN))
	}
	if len(configuration.ExternalID) > 0 && len(configuration.RoleARN) == 0 {
		violations = append(violations, externalIDWithoutRoleMessageConstant)
	}
	return violations
}

// UsesStaticKeys reports whether explicit key sources were declared.
func (configuration Configuration) UsesStaticKeys() bool {
	return len(configuration.AccessKeyIDSource) > 0 && len(configuration.SecretAccessKeySource) > 0
}

// AssumesRole reports whether a role is layered on top of the base credentials.
func (configuration Configuration) AssumesRole() bool {
	return len(configuration.RoleARN) > 0
}

// Describe renders the strategy for logs without exposing any secret material.
func (configuration Configuration) Describe() string {
	var description string
	switch {
	case configuration.UsesStaticKeys():
		description = strategyStaticConstant
	case len(configuration.Profile) > 0:
		description = fmt.Sprintf(strategyProfileTemplateConstant, configuration.Profile)
	default:
		description = strategyDefaultChainConstant
	}
	if configuration.AssumesRole() {
		description += fmt.Sprintf(strategyAssumeRoleSuffixTemplate, configuration.RoleARN)
	}
	return description
}

// Subject names the credential side for validation messages.
func Subject(side string) string {
	return fmt.Sprintf(configurationSubjectTemplateConstant, side)
}

// ResolveSessionName returns the configured session name or one derived from the run identifier,
// restricted to the characters and length STS accepts.
func (configuration Configuration) ResolveSessionName(runIdentifier string) string {
	sessionName := configuration.SessionName
	if len(sessionName) == 0 {
		sessionName = defaultSessionNamePrefixConstant
		if trimmedIdentifier := strings.TrimSpace(runIdentifier); len(trimmedIdentifier) > 0 {
			sessionName += sessionNameSeparatorConstant + trimmedIdentifier
		}
	}
	sessionName = sessionNameDisallowedCharacters.ReplaceAllString(sessionName, sessionNameSeparatorConstant)
	if len(sessionName) > sessionNameMaximumLengthConstant {
		sessionName = sessionName[:sessionNameMaximumLengthConstant]
	}
	return sessionName
}
