package bucketmigrate

import (
	"fmt"
	"path"
	"strings"

	"github.com/temirov/cloudchores/internal/awsauth"
	"github.com/temirov/cloudchores/internal/failures"
)

const (
	requestSubjectConstant                = "migration request"
	sourceBucketRequiredViolationConstant = "source_bucket is required"
	targetBucketRequiredViolationConstant = "target_bucket is required"
	identicalBucketsViolationConstant     = "target_bucket must differ from source_bucket"
	suffixRequiredViolationConstant       = "target_bucket_suffix is required when migrate_all is set"
	keyFilterInvalidViolationTemplate     = "key_filter %q is not a valid pattern"
	sourceCredentialsViolationTemplate    = "source credentials: %s"
	targetCredentialsViolationTemplate    = "target credentials: %s"
)

// MigrationRequest describes one migration run. Credentials are strategies, so a single runner
// serves both single-account and cross-account migrations.
type MigrationRequest struct {
	SourceBucket       string
	TargetBucket       string
	SourceCredentials  awsauth.Configuration
	TargetCredentials  awsauth.Configuration
	PreserveMetadata   bool
	PreserveACL        bool
	DryRun             bool
	KeyPrefix          string
	KeyFilter          string
	MigrateAll         bool
	TargetBucketSuffix string
	CreateTargetBucket bool
}

// Validate reports every unmet constraint before any API call is made.
func (request MigrationRequest) Validate() error {
	var violations []string

	if request.MigrateAll {
		if len(strings.TrimSpace(request.TargetBucketSuffix)) == 0 {
			violations = append(violations, suffixRequiredViolationConstant)
		}
	} else {
		if len(strings.TrimSpace(request.SourceBucket)) == 0 {
			violations = append(violations, sourceBucketRequiredViolationConstant)
		}
		if len(strings.TrimSpace(request.TargetBucket)) == 0 {
			violations = append(violations, targetBucketRequiredViolationConstant)
		}
		if len(request.SourceBucket) > 0 && request.SourceBucket == request.TargetBucket {
			violations = append(violations, identicalBucketsViolationConstant)
		}
	}

	if len(request.KeyFilter) > 0 {
		if _, matchError := path.Match(request.KeyFilter, ""); matchError != nil {
			violations = append(violations, fmt.Sprintf(keyFilterInvalidViolationTemplate, request.KeyFilter))
		}
	}

	for _, credentialViolation := range request.SourceCredentials.Sanitize().Validate() {
		violations = append(violations, fmt.Sprintf(sourceCredentialsViolationTemplate, credentialViolation))
	}
	for _, credentialViolation := range request.TargetCredentials.Sanitize().Validate() {
		violations = append(violations, fmt.Sprintf(targetCredentialsViolationTemplate, credentialViolation))
	}

	if len(violations) > 0 {
		return failures.ValidationError{Subject: requestSubjectConstant, Violations: violations}
	}
	return nil
}

// matchesKey applies the client-side key filter.
func (request MigrationRequest) matchesKey(key string) bool {
	if len(request.KeyFilter) == 0 {
		return true
	}
	matched, _ := path.Match(request.KeyFilter, key)
	return matched
}

// BucketPair names one source bucket and the bucket it is copied into.
type BucketPair struct {
	Source string
	Target string
}
