package execshell

import (
	"go.uber.org/zap"
)

// CommandEventObserver receives lifecycle notifications for shell command execution.
type CommandEventObserver interface {
	// CommandStarted notifies observers that command execution is beginning.
	CommandStarted(command ShellCommand)
	// CommandCompleted notifies observers that command execution finished and supplies the result.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed reports unexpected failures prior to receiving an execution result.
	CommandExecutionFailed(command ShellCommand, failure error)
}

// loggingCommandEventObserver writes one log entry per lifecycle event.
type loggingCommandEventObserver struct {
	logger    *zap.Logger
	formatter CommandMessageFormatter
}

func newLoggingCommandEventObserver(logger *zap.Logger, formatter CommandMessageFormatter) loggingCommandEventObserver {
	return loggingCommandEventObserver{logger: logger, formatter: formatter}
}

// CommandStarted logs the start message at info level.
func (observer loggingCommandEventObserver) CommandStarted(command ShellCommand) {
	observer.logger.Info(observer.formatter.BuildStartedMessage(command), buildCommandFields(command)...)
}

// CommandCompleted logs success at info level and non-zero exit codes at warn level.
func (observer loggingCommandEventObserver) CommandCompleted(command ShellCommand, result ExecutionResult) {
	fields := append(buildCommandFields(command), zap.Int(exitCodeFieldNameConstant, result.ExitCode))
	if result.ExitCode == 0 {
		observer.logger.Info(observer.formatter.BuildSuccessMessage(command, result), fields...)
		return
	}
	observer.logger.Warn(observer.formatter.BuildFailureMessage(command, result), fields...)
}

// CommandExecutionFailed logs the failure at error level.
func (observer loggingCommandEventObserver) CommandExecutionFailed(command ShellCommand, failure error) {
	fields := append(buildCommandFields(command), zap.String(errorFieldNameConstant, redactCredentials(observer.formatter.describeFailure(failure))))
	observer.logger.Error(observer.formatter.BuildExecutionFailureMessage(command, failure), fields...)
}
