// Package bucketmigrate copies objects between S3 buckets, optionally across accounts, and reports
// a per-object outcome for every listed key.
//
// Copies are server-side. Metadata is carried forward explicitly with a REPLACE directive and ACLs are
// translated so grants held by the source account owner follow the object into the target account.
// Per-object failures never abort the run; transient failures are retried under a bounded backoff.
package bucketmigrate
