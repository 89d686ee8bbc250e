// Package scheduler synchronizes outdated repositories with a bounded worker pool.
//
// Every candidate is first updated in place. Only when the update runs to
// completion without succeeding does the scheduler fall back to creating a
// fresh working copy; an update that could not be invoked at all is final.
package scheduler
