// Package workcopy provides the update and create primitives that bring a local working copy
// in line with its GitHub repository.
//
// CommandEngine shells out to git and the GitHub CLI. GoGitEngine performs the same work in
// process with go-git. Both report a completed but unsuccessful operation as
// scheduler.StatusUnsuccessful with a nil error and reserve errors for invocations that could
// not run to completion, such as an expired deadline.
package workcopy
