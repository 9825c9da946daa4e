// Package githubcli wraps the GitHub CLI for pull request reconciliation.
//
// Client lists, creates and edits pull requests through gh, decoding its JSON
// output into typed values. Invocations run through execshell so they can be
// stubbed in tests, and an installation token can be attached so gh
// authenticates as a GitHub App rather than a user.
package githubcli
