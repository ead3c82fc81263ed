// Package failures classifies cloud provider errors into the kinds the chores act on
// and defines the typed errors shared by the migration and provisioning runners.
//
// Transient failures are the only retryable kind. Permission, validation,
// not-found, and already-exists failures are permanent and surface immediately.
package failures
