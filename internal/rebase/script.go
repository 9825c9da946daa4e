package rebase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/rebasebot/internal/execshell"
	"github.com/temirov/rebasebot/internal/utils"
)

const (
	scriptTargetArgumentConstant         = "to"
	scriptOutputSeparatorConstant        = "------------------------------"
	scriptStartedMessageConstant         = "Running rebase script"
	scriptCompletedMessageConstant       = "Script returned code"
	scriptPathFieldNameConstant          = "script"
	scriptArgumentsFieldNameConstant     = "arguments"
	exitCodeFieldNameConstant            = "exit_code"
	scriptExecutorMissingMessageConstant = "rebase script executor not configured"
	scriptPathMissingMessageConstant     = "rebase script path required"
	scriptExecutionErrorTemplateConstant = "unable to run rebase script %s: %w"
)

var (
	// ErrScriptExecutorNotConfigured indicates the runner was constructed without an executor.
	ErrScriptExecutorNotConfigured = errors.New(scriptExecutorMissingMessageConstant)
	// ErrScriptPathMissing indicates no script location was supplied.
	ErrScriptPathMissing = errors.New(scriptPathMissingMessageConstant)
)

// CommandExecutor runs arbitrary commands; execshell.ShellExecutor satisfies it.
type CommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// RebaseResult captures the outcome of one rebase script run.
type RebaseResult struct {
	exitCode int
	output   string
}

// NewRebaseResult records a script exit code and its combined output.
func NewRebaseResult(exitCode int, output string) RebaseResult {
	return RebaseResult{exitCode: exitCode, output: output}
}

// Succeeded reports whether the script exited with code zero.
func (result RebaseResult) Succeeded() bool {
	return result.exitCode == 0
}

// ExitCode returns the script exit code.
func (result RebaseResult) ExitCode() int {
	return result.exitCode
}

// Output returns the interleaved standard output and standard error of the script.
func (result RebaseResult) Output() string {
	return result.output
}

// ScriptInvocation describes one run of the rebase script.
type ScriptInvocation struct {
	ScriptPath       string
	WorkingDirectory string
	AMD64Release     string
	ARM64Release     string
}

// ScriptRunner executes the rebase script while mirroring its output as it is produced.
type ScriptRunner struct {
	executor     CommandExecutor
	outputWriter io.Writer
	logger       *zap.Logger
}

// NewScriptRunner constructs a ScriptRunner. A nil outputWriter selects standard output.
func NewScriptRunner(executor CommandExecutor, outputWriter io.Writer, logger *zap.Logger) (*ScriptRunner, error) {
	if executor == nil {
		return nil, ErrScriptExecutorNotConfigured
	}
	if outputWriter == nil {
		outputWriter = os.Stdout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScriptRunner{executor: executor, outputWriter: utils.NewFlushingWriter(outputWriter), logger: logger}, nil
}

// Run invokes "<script> to <amd64> <arm64>". A non-zero exit is reported through the result;
// only a failure to start or await the script is returned as an error.
func (runner *ScriptRunner) Run(executionContext context.Context, invocation ScriptInvocation) (RebaseResult, error) {
	scriptPath := strings.TrimSpace(invocation.ScriptPath)
	if len(scriptPath) == 0 {
		return RebaseResult{}, ErrScriptPathMissing
	}

	arguments := []string{scriptTargetArgumentConstant, invocation.AMD64Release, invocation.ARM64Release}
	runner.logger.Info(
		scriptStartedMessageConstant,
		zap.String(scriptPathFieldNameConstant, scriptPath),
		zap.Strings(scriptArgumentsFieldNameConstant, arguments),
	)

	executionResult, executionError := runner.executor.Execute(executionContext, execshell.ShellCommand{
		Name: execshell.CommandName(scriptPath),
		Details: execshell.CommandDetails{
			Arguments:        arguments,
			WorkingDirectory: invocation.WorkingDirectory,
			OutputStream:     runner.outputWriter,
		},
	})
	if executionError != nil {
		var failedCommand execshell.CommandFailedError
		if !errors.As(executionError, &failedCommand) {
			return RebaseResult{}, fmt.Errorf(scriptExecutionErrorTemplateConstant, scriptPath, executionError)
		}
		executionResult = failedCommand.Result
	}

	fmt.Fprintln(runner.outputWriter, scriptOutputSeparatorConstant)
	runner.logger.Info(scriptCompletedMessageConstant, zap.Int(exitCodeFieldNameConstant, executionResult.ExitCode))

	return NewRebaseResult(executionResult.ExitCode, executionResult.StandardOutput), nil
}
