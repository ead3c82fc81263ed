// Package awsauth turns a declarative credential strategy into AWS SDK configuration.
//
// A single Configuration covers static keys, shared-config profiles, the default
// provider chain, and role assumption layered on top of any of them, so the
// migration runner serves single-account and cross-account runs through one path.
package awsauth
