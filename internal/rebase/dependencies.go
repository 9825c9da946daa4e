package rebase

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/temirov/rebasebot/internal/execshell"
	"github.com/temirov/rebasebot/internal/githubauth"
	"github.com/temirov/rebasebot/internal/githubcli"
	"github.com/temirov/rebasebot/internal/gitrepo"
)

// ShellExecutor runs scripts, git, and gh; execshell.ShellExecutor satisfies it.
type ShellExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ResolveShellExecutor returns the provided executor or constructs an os/exec backed default.
func ResolveShellExecutor(existing ShellExecutor, logger *zap.Logger) (ShellExecutor, error) {
	if existing != nil {
		return existing, nil
	}
	return execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
}

// ResolveRepositoryManager returns the provided repository manager or constructs one from the executor.
func ResolveRepositoryManager(existing RepositoryManager, executor gitrepo.GitExecutor) (RepositoryManager, error) {
	if existing != nil {
		return existing, nil
	}
	return gitrepo.NewRepositoryManager(executor)
}

// ResolveTokenSource returns the provided token source or reads the GitHub App key named by the configuration.
func ResolveTokenSource(existing TokenSource, configuration Configuration, transport http.RoundTripper, logger *zap.Logger) (TokenSource, error) {
	if existing != nil {
		return existing, nil
	}
	return githubauth.NewInstallationTokenSource(githubauth.InstallationTokenSourceConfiguration{
		ApplicationIdentifier: configuration.ApplicationIdentifier,
		PrivateKeyPath:        configuration.PrivateKeyPath,
		APIBaseURL:            configuration.APIBaseURL,
	}, transport, logger)
}

// ResolvePullRequestManagerFactory returns the provided factory or one producing gh clients authenticated with the token.
func ResolvePullRequestManagerFactory(existing PullRequestManagerFactory, executor githubcli.GitHubCommandExecutor) PullRequestManagerFactory {
	if existing != nil {
		return existing
	}
	return func(accessToken string) (PullRequestManager, error) {
		client, clientError := githubcli.NewClient(executor)
		if clientError != nil {
			return nil, clientError
		}
		return client.WithAuthenticationToken(accessToken), nil
	}
}
