// Package accountprovision creates restricted-privilege IAM users.
//
// A provisioning run validates the request, creates the user, and then attempts every follow-up step:
// login profile, tier policy, group memberships, forced password reset, MFA enforcement, and access key.
// Failures after creation are reported step by step and surface as a PartialCompletionError. Nothing is
// rolled back; removing identity objects is left to an operator.
package accountprovision
