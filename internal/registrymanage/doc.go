// Package registrymanage maintains ECR repositories: creating and updating them, applying lifecycle
// policies, pruning images older than a retention window, and reporting what a registry holds.
package registrymanage
