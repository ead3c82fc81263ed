// Package cli constructs the cloudchores command-line interface, wiring the
// Cobra command hierarchy, the Viper-backed configuration loader, and the zap
// logger shared by the bucket-migrate, account-provision, and workflow commands.
package cli
