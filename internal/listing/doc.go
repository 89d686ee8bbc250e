// Package listing gathers the outdated repositories of several accounts.
//
// Each account is listed in its own goroutine through a DirectoryProvider. A
// failed listing either cancels the others (fail_fast) or is reported and
// dropped (skip), depending on the configured FailurePolicy.
package listing
