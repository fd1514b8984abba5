// Package app holds the process-level contract for the bridge relay binaries.
package app

// Runner is a long-lived process that blocks until shutdown.
type Runner interface {
	Run() error
}
