// Package githubcli wraps the GitHub CLI for repomirror.
//
// ListRepositories decodes `gh repo list --json nameWithOwner,updatedAt`
// output element by element and satisfies listing.DirectoryProvider.
// CloneRepository runs `gh repo clone` for the working copy engine. All
// invocations go through execshell so they can be stubbed in tests.
package githubcli
