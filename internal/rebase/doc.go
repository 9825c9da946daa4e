// Package rebase drives the automated rebase job.
//
// The Service authenticates as a GitHub App installation, runs the rebase
// script, commits its log when the script fails, force-pushes the branch
// when the remote copy branches off an older base commit, and creates or
// updates the pull request that reports the outcome.
package rebase
