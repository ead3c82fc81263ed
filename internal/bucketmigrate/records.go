package bucketmigrate

import (
	"fmt"

	"github.com/temirov/cloudchores/internal/failures"
)

// Outcome is the final state of one listed object.
type Outcome string

// Object outcomes.
const (
	OutcomeCopied  Outcome = Outcome("copied")
	OutcomeSkipped Outcome = Outcome("skipped")
	OutcomeFailed  Outcome = Outcome("failed")
)

const (
	failedObjectsErrorTemplateConstant = "%d object(s) failed permanently, %d object(s) exhausted transient retries"
)

// ObjectRecord is the immutable result for one listed key.
type ObjectRecord struct {
	Bucket      string        `json:"bucket" yaml:"bucket"`
	Key         string        `json:"key" yaml:"key"`
	Size        int64         `json:"size" yaml:"size"`
	Outcome     Outcome       `json:"outcome" yaml:"outcome"`
	ErrorDetail string        `json:"error_detail,omitempty" yaml:"error_detail,omitempty"`
	FailureKind failures.Kind `json:"failure_kind,omitempty" yaml:"failure_kind,omitempty"`
	Retryable   bool          `json:"retryable,omitempty" yaml:"retryable,omitempty"`
	Attempts    int           `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	Warnings    []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Summary aggregates object outcomes.
type Summary struct {
	Total           int `json:"total" yaml:"total"`
	Copied          int `json:"copied" yaml:"copied"`
	Skipped         int `json:"skipped" yaml:"skipped"`
	Failed          int `json:"failed" yaml:"failed"`
	FailedRetryable int `json:"failed_retryable" yaml:"failed_retryable"`
	FailedPermanent int `json:"failed_permanent" yaml:"failed_permanent"`
}

func (summary Summary) withRecord(record ObjectRecord) Summary {
	updated := summary
	updated.Total++
	switch record.Outcome {
	case OutcomeCopied:
		updated.Copied++
	case OutcomeSkipped:
		updated.Skipped++
	case OutcomeFailed:
		updated.Failed++
		if record.Retryable {
			updated.FailedRetryable++
		} else {
			updated.FailedPermanent++
		}
	}
	return updated
}

func (summary Summary) plus(other Summary) Summary {
	return Summary{
		Total:           summary.Total + other.Total,
		Copied:          summary.Copied + other.Copied,
		Skipped:         summary.Skipped + other.Skipped,
		Failed:          summary.Failed + other.Failed,
		FailedRetryable: summary.FailedRetryable + other.FailedRetryable,
		FailedPermanent: summary.FailedPermanent + other.FailedPermanent,
	}
}

// BucketReport lists the records for one bucket pair in listing order.
type BucketReport struct {
	SourceBucket  string         `json:"source_bucket" yaml:"source_bucket"`
	TargetBucket  string         `json:"target_bucket" yaml:"target_bucket"`
	TargetCreated bool           `json:"target_created,omitempty" yaml:"target_created,omitempty"`
	Records       []ObjectRecord `json:"records" yaml:"records"`
	Summary       Summary        `json:"summary" yaml:"summary"`
	Warnings      []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error         string         `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind     failures.Kind  `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
}

func (bucketReport *BucketReport) append(record ObjectRecord) {
	bucketReport.Records = append(bucketReport.Records, record)
	bucketReport.Summary = bucketReport.Summary.withRecord(record)
}

// MigrationReport is the document written to the output channel.
type MigrationReport struct {
	RunID   string         `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	DryRun  bool           `json:"dry_run" yaml:"dry_run"`
	Buckets []BucketReport `json:"buckets" yaml:"buckets"`
	Summary Summary        `json:"summary" yaml:"summary"`
}

// Records flattens every bucket's records in processing order.
func (migrationReport MigrationReport) Records() []ObjectRecord {
	var records []ObjectRecord
	for _, bucketReport := range migrationReport.Buckets {
		records = append(records, bucketReport.Records...)
	}
	return records
}

func (migrationReport *MigrationReport) appendBucket(bucketReport BucketReport) {
	migrationReport.Buckets = append(migrationReport.Buckets, bucketReport)
	migrationReport.Summary = migrationReport.Summary.plus(bucketReport.Summary)
}

// FailedObjectsError signals that the run should exit non-zero because of object failures.
type FailedObjectsError struct {
	Permanent int
	Retryable int
}

// Error describes the failure counts.
func (failedObjectsError FailedObjectsError) Error() string {
	return fmt.Sprintf(failedObjectsErrorTemplateConstant, failedObjectsError.Permanent, failedObjectsError.Retryable)
}

// Verdict derives the exit status from the summary. Failures with a non-retryable cause always fail
// the run; exhausted transient retries fail it only in strict mode.
func (migrationReport MigrationReport) Verdict(strict bool) error {
	summary := migrationReport.Summary
	if summary.FailedPermanent > 0 || (strict && summary.FailedRetryable > 0) {
		return FailedObjectsError{Permanent: summary.FailedPermanent, Retryable: summary.FailedRetryable}
	}
	return nil
}
