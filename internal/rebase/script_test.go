package rebase_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/rebasebot/internal/execshell"
	"github.com/temirov/rebasebot/internal/rebase"
)

type recordingCommandExecutor struct {
	result   execshell.ExecutionResult
	err      error
	commands []execshell.ShellCommand
}

func (executor *recordingCommandExecutor) Execute(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	executor.commands = append(executor.commands, command)
	return executor.result, executor.err
}

func TestScriptRunnerRun(testInstance *testing.T) {
	testCases := []struct {
		name             string
		result           execshell.ExecutionResult
		err              error
		expectError      bool
		expectSucceeded  bool
		expectedExitCode int
		expectedOutput   string
	}{
		{
			name:            "script_succeeds",
			result:          execshell.ExecutionResult{StandardOutput: "rebased\n"},
			expectSucceeded: true,
			expectedOutput:  "rebased\n",
		},
		{
			name: "script_fails",
			err: execshell.CommandFailedError{
				Command: execshell.ShellCommand{Name: "rebase.sh"},
				Result:  execshell.ExecutionResult{StandardOutput: "conflict\n", ExitCode: 1},
			},
			expectedExitCode: 1,
			expectedOutput:   "conflict\n",
		},
		{
			name: "script_cannot_start",
			err: execshell.CommandExecutionError{
				Command: execshell.ShellCommand{Name: "rebase.sh"},
				Cause:   errors.New("permission denied"),
			},
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &recordingCommandExecutor{result: testCase.result, err: testCase.err}
			observerCore, observedLogs := observer.New(zap.InfoLevel)
			outputBuffer := &bytes.Buffer{}

			runner, creationError := rebase.NewScriptRunner(executor, outputBuffer, zap.New(observerCore))
			require.NoError(testInstance, creationError)

			result, runError := runner.Run(context.Background(), rebase.ScriptInvocation{
				ScriptPath:       "./scripts/auto-rebase/rebase.sh",
				WorkingDirectory: "/work/microshift",
				AMD64Release:     testAMD64ReleaseConstant,
				ARM64Release:     testARM64ReleaseConstant,
			})

			require.Len(testInstance, executor.commands, 1)
			command := executor.commands[0]
			require.Equal(testInstance, execshell.CommandName("./scripts/auto-rebase/rebase.sh"), command.Name)
			require.Equal(testInstance, []string{"to", testAMD64ReleaseConstant, testARM64ReleaseConstant}, command.Details.Arguments)
			require.Equal(testInstance, "/work/microshift", command.Details.WorkingDirectory)
			require.NotNil(testInstance, command.Details.OutputStream)

			if testCase.expectError {
				require.Error(testInstance, runError)
				require.Zero(testInstance, observedLogs.FilterMessage("Script returned code").Len())
				return
			}

			require.NoError(testInstance, runError)
			require.Equal(testInstance, testCase.expectSucceeded, result.Succeeded())
			require.Equal(testInstance, testCase.expectedExitCode, result.ExitCode())
			require.Equal(testInstance, testCase.expectedOutput, result.Output())
			require.Equal(testInstance, "------------------------------\n", outputBuffer.String())

			completionEntries := observedLogs.FilterMessage("Script returned code").All()
			require.Len(testInstance, completionEntries, 1)
			require.Equal(testInstance, int64(testCase.expectedExitCode), completionEntries[0].ContextMap()["exit_code"])
		})
	}
}

func TestScriptRunnerStreamsInterleavedOutput(testInstance *testing.T) {
	scriptDirectory := testInstance.TempDir()
	scriptPath := filepath.Join(scriptDirectory, "rebase.sh")
	scriptContent := "#!/bin/sh\necho \"target $1 $2 $3\"\necho \"failure detail\" >&2\nexit 3\n"
	require.NoError(testInstance, os.WriteFile(scriptPath, []byte(scriptContent), 0o755))

	shellExecutor, executorError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner())
	require.NoError(testInstance, executorError)

	outputBuffer := &bytes.Buffer{}
	runner, creationError := rebase.NewScriptRunner(shellExecutor, outputBuffer, zap.NewNop())
	require.NoError(testInstance, creationError)

	result, runError := runner.Run(context.Background(), rebase.ScriptInvocation{
		ScriptPath:       scriptPath,
		WorkingDirectory: scriptDirectory,
		AMD64Release:     "amd:1",
		ARM64Release:     "arm:2",
	})
	require.NoError(testInstance, runError)
	require.False(testInstance, result.Succeeded())
	require.Equal(testInstance, 3, result.ExitCode())
	require.Equal(testInstance, "target to amd:1 arm:2\nfailure detail\n", result.Output())
	require.Equal(testInstance, "target to amd:1 arm:2\nfailure detail\n------------------------------\n", outputBuffer.String())
}

func TestNewScriptRunnerRequiresExecutor(testInstance *testing.T) {
	runner, creationError := rebase.NewScriptRunner(nil, nil, nil)
	require.Nil(testInstance, runner)
	require.ErrorIs(testInstance, creationError, rebase.ErrScriptExecutorNotConfigured)
}
