package registrymanage

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr/types"

	"github.com/temirov/cloudchores/internal/failures"
)

// Step names recorded for create and update runs.
const (
	StepCreateRepository     = "create_repository"
	StepPutScanConfiguration = "put_image_scanning_configuration"
	StepPutTagMutability     = "put_image_tag_mutability"
	StepPutLifecyclePolicy   = "put_lifecycle_policy"
)

// StepStatus is the outcome of one create or update step.
type StepStatus string

// Step statuses.
const (
	StepApplied   StepStatus = StepStatus("applied")
	StepUnchanged StepStatus = StepStatus("unchanged")
	StepPlanned   StepStatus = StepStatus("planned")
	StepSkipped   StepStatus = StepStatus("skipped")
	StepFailed    StepStatus = StepStatus("failed")
)

// ImageOutcome is the cleanup outcome of one image.
type ImageOutcome string

// Image outcomes. Describe runs list images without an outcome.
const (
	ImageDeleted     ImageOutcome = ImageOutcome("deleted")
	ImageWouldDelete ImageOutcome = ImageOutcome("would_delete")
	ImageGone        ImageOutcome = ImageOutcome("gone")
	ImageFailed      ImageOutcome = ImageOutcome("failed")
)

// StepOutcome records one repository configuration call.
type StepOutcome struct {
	Step        string        `json:"step" yaml:"step"`
	Status      StepStatus    `json:"status" yaml:"status"`
	Attempts    int           `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	ErrorDetail string        `json:"error_detail,omitempty" yaml:"error_detail,omitempty"`
	FailureKind failures.Kind `json:"failure_kind,omitempty" yaml:"failure_kind,omitempty"`
}

// RepositorySummary describes one repository.
type RepositorySummary struct {
	Name               string     `json:"name" yaml:"name"`
	URI                string     `json:"uri,omitempty" yaml:"uri,omitempty"`
	CreatedAt          *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	ImageTagMutability string     `json:"image_tag_mutability,omitempty" yaml:"image_tag_mutability,omitempty"`
	ScanOnPush         bool       `json:"scan_on_push" yaml:"scan_on_push"`
	EncryptionType     string     `json:"encryption_type,omitempty" yaml:"encryption_type,omitempty"`
	ImageCount         *int       `json:"image_count,omitempty" yaml:"image_count,omitempty"`
	LifecyclePolicy    string     `json:"lifecycle_policy,omitempty" yaml:"lifecycle_policy,omitempty"`
}

// ImageRecord describes one image examined by cleanup or listed by describe.
type ImageRecord struct {
	Digest        string        `json:"digest" yaml:"digest"`
	Tags          []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
	PushedAt      *time.Time    `json:"pushed_at,omitempty" yaml:"pushed_at,omitempty"`
	SizeBytes     int64         `json:"size_bytes" yaml:"size_bytes"`
	Outcome       ImageOutcome  `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	FailureCode   string        `json:"failure_code,omitempty" yaml:"failure_code,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`
	FailureKind   failures.Kind `json:"failure_kind,omitempty" yaml:"failure_kind,omitempty"`
}

// CleanupSummary counts cleanup outcomes.
type CleanupSummary struct {
	RetentionDays int       `json:"retention_days" yaml:"retention_days"`
	Cutoff        time.Time `json:"cutoff" yaml:"cutoff"`
	Examined      int       `json:"examined" yaml:"examined"`
	Expired       int       `json:"expired" yaml:"expired"`
	Deleted       int       `json:"deleted" yaml:"deleted"`
	Gone          int       `json:"gone" yaml:"gone"`
	Failed        int       `json:"failed" yaml:"failed"`
}

// ManageResult is the report of one registry run.
type ManageResult struct {
	RunID          string              `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Action         Action              `json:"action" yaml:"action"`
	DryRun         bool                `json:"dry_run" yaml:"dry_run"`
	RepositoryName string              `json:"repository_name,omitempty" yaml:"repository_name,omitempty"`
	Repository     *RepositorySummary  `json:"repository,omitempty" yaml:"repository,omitempty"`
	Repositories   []RepositorySummary `json:"repositories,omitempty" yaml:"repositories,omitempty"`
	Steps          []StepOutcome       `json:"steps,omitempty" yaml:"steps,omitempty"`
	Cleanup        *CleanupSummary     `json:"cleanup,omitempty" yaml:"cleanup,omitempty"`
	Images         []ImageRecord       `json:"images,omitempty" yaml:"images,omitempty"`
	Warnings       []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func (result *ManageResult) recordStep(step string, status StepStatus, attempts int, stepError error) {
	outcome := StepOutcome{Step: step, Status: status, Attempts: attempts}
	if stepError != nil {
		outcome.Status = StepFailed
		outcome.ErrorDetail = stepError.Error()
		outcome.FailureKind = failures.Classify(stepError)
	}
	result.Steps = append(result.Steps, outcome)
}

// FailedSteps lists the names of failed steps in execution order.
func (result ManageResult) FailedSteps() []string {
	var failedSteps []string
	for _, stepOutcome := range result.Steps {
		if stepOutcome.Status == StepFailed {
			failedSteps = append(failedSteps, stepOutcome.Step)
		}
	}
	return failedSteps
}

func summarizeRepository(repository types.Repository) RepositorySummary {
	summary := RepositorySummary{
		Name:               aws.ToString(repository.RepositoryName),
		URI:                aws.ToString(repository.RepositoryUri),
		ImageTagMutability: string(repository.ImageTagMutability),
	}
	if repository.CreatedAt != nil {
		createdAt := repository.CreatedAt.UTC()
		summary.CreatedAt = &createdAt
	}
	if repository.ImageScanningConfiguration != nil {
		summary.ScanOnPush = repository.ImageScanningConfiguration.ScanOnPush
	}
	if repository.EncryptionConfiguration != nil {
		summary.EncryptionType = string(repository.EncryptionConfiguration.EncryptionType)
	}
	return summary
}

func recordImage(image types.ImageDetail) ImageRecord {
	record := ImageRecord{
		Digest:    aws.ToString(image.ImageDigest),
		Tags:      append([]string(nil), image.ImageTags...),
		SizeBytes: aws.ToInt64(image.ImageSizeInBytes),
	}
	if image.ImagePushedAt != nil {
		pushedAt := image.ImagePushedAt.UTC()
		record.PushedAt = &pushedAt
	}
	return record
}
