package rebase

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/rebasebot/internal/utils/flags"
)

const (
	commandUseConstant                      = "rebase"
	commandShortDescriptionConstant         = "Rebase onto new releases and publish the result as a pull request"
	commandLongDescriptionConstant          = "rebase authenticates as a GitHub App installation, runs the rebase script against the configured amd64 and arm64 releases, commits failure artifacts when the script fails, pushes the rebase branch when the remote copy is outdated, and creates or updates the pull request describing the outcome."
	unexpectedArgumentsErrorMessageConstant = "rebase does not accept positional arguments"
	commandExecutionErrorTemplateConstant   = "rebase failed: %w"
	rebaseCompletedMessageConstant          = "Rebase run completed"
	nothingToRebaseFieldNameConstant        = "nothing_to_rebase"
	pushedFieldNameConstant                 = "pushed"
	pullRequestActionFieldNameConstant      = "pull_request_action"
	rebaseSucceededFieldNameConstant        = "rebase_succeeded"
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current rebase configuration.
type ConfigurationProvider func() Configuration

// CommandBuilder assembles the rebase command.
type CommandBuilder struct {
	LoggerProvider            LoggerProvider
	ConfigurationProvider     ConfigurationProvider
	ShellExecutor             ShellExecutor
	RepositoryManager         RepositoryManager
	TokenSource               TokenSource
	PullRequestManagerFactory PullRequestManagerFactory
	HTTPTransport             http.RoundTripper
	OutputWriter              io.Writer
}

// Build constructs the rebase command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	flags.BindExecutionFlags(command, flags.ExecutionDefaults{}, flags.DefaultExecutionFlagDefinitions())

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errors.New(unexpectedArgumentsErrorMessageConstant)
	}

	dryRun, _, dryRunError := flags.BoolFlagValue(command, flags.DryRunFlagName)
	if dryRunError != nil {
		return dryRunError
	}

	configuration := builder.resolveConfiguration().Sanitize()
	if validationError := configuration.Validate(); validationError != nil {
		return validationError
	}

	logger := builder.resolveLogger()
	service, serviceError := builder.resolveService(command, configuration, logger)
	if serviceError != nil {
		return serviceError
	}

	result, executionError := service.Execute(command.Context(), Options{Configuration: configuration, DryRun: dryRun})
	if errors.Is(executionError, ErrRebaseFailed) {
		logger.Warn(
			rebaseCompletedMessageConstant,
			zap.Bool(rebaseSucceededFieldNameConstant, false),
			zap.String(branchFieldNameConstant, result.BranchName),
			zap.Bool(pushedFieldNameConstant, result.Pushed),
			zap.String(pullRequestActionFieldNameConstant, string(result.PullRequestAction)),
		)
		return executionError
	}
	if executionError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, executionError)
	}

	logger.Info(
		rebaseCompletedMessageConstant,
		zap.Bool(rebaseSucceededFieldNameConstant, result.RebaseSucceeded),
		zap.Bool(nothingToRebaseFieldNameConstant, result.NothingToRebase),
		zap.String(branchFieldNameConstant, result.BranchName),
		zap.Bool(pushedFieldNameConstant, result.Pushed),
		zap.String(pullRequestActionFieldNameConstant, string(result.PullRequestAction)),
	)
	return nil
}

func (builder *CommandBuilder) resolveService(command *cobra.Command, configuration Configuration, logger *zap.Logger) (*Service, error) {
	shellExecutor, executorError := ResolveShellExecutor(builder.ShellExecutor, logger)
	if executorError != nil {
		return nil, executorError
	}

	repositoryManager, managerError := ResolveRepositoryManager(builder.RepositoryManager, shellExecutor)
	if managerError != nil {
		return nil, managerError
	}

	tokenSource, tokenSourceError := ResolveTokenSource(builder.TokenSource, configuration, builder.HTTPTransport, logger)
	if tokenSourceError != nil {
		return nil, tokenSourceError
	}

	outputWriter := builder.OutputWriter
	if outputWriter == nil {
		outputWriter = command.OutOrStdout()
	}
	scriptRunner, runnerError := NewScriptRunner(shellExecutor, outputWriter, logger)
	if runnerError != nil {
		return nil, runnerError
	}

	return NewService(ServiceDependencies{
		Logger:                    logger,
		TokenSource:               tokenSource,
		ScriptRunner:              scriptRunner,
		RepositoryManager:         repositoryManager,
		PullRequestManagerFactory: ResolvePullRequestManagerFactory(builder.PullRequestManagerFactory, shellExecutor),
	})
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	if builder.ConfigurationProvider == nil {
		return DefaultConfiguration()
	}
	return builder.ConfigurationProvider()
}
