// Package report writes machine-parsable result documents to the invocation output channel.
package report
