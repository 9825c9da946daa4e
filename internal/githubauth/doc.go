// Package githubauth authenticates automation as a GitHub App.
//
// InstallationTokenSource signs app requests through a ghinstallation
// transport, resolves the app installation for a repository with go-github
// and exchanges it for a short-lived installation access token. The token is
// then handed to git remotes and to gh through the environment variable names
// defined here.
package githubauth
