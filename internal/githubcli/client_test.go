package githubcli_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/rebasebot/internal/execshell"
	"github.com/temirov/rebasebot/internal/githubauth"
	"github.com/temirov/rebasebot/internal/githubcli"
)

const (
	testRepositoryIdentifierConstant             = "openshift/microshift"
	testBaseBranchConstant                       = "main"
	testPullRequestTitleConstant                 = "rebase-4.19.0"
	testPullRequestHeadConstant                  = "rebase-4.19.0"
	testPullRequestBodyConstant                  = "amd64: 4.19.0\narm64: 4.19.0\n"
	testPullRequestURLConstant                   = "https://github.com/openshift/microshift/pull/4242"
	testAuthenticationTokenConstant              = "ghs_installation_token"
	testListSuccessCaseNameConstant              = "list_success"
	testListDecodeFailureCaseNameConstant        = "list_decode_failure"
	testListCommandFailureCaseNameConstant       = "list_command_failure"
	testListRepositoryValidationCaseNameConstant = "list_repository_validation"
	testListBaseValidationCaseNameConstant       = "list_base_validation"
	testListStateValidationCaseNameConstant      = "list_state_validation"
)

type stubGitHubExecutor struct {
	executeFunc     func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error)
	recordedDetails []execshell.CommandDetails
}

func (executor *stubGitHubExecutor) ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedDetails = append(executor.recordedDetails, details)
	if executor.executeFunc != nil {
		return executor.executeFunc(executionContext, details)
	}
	return execshell.ExecutionResult{}, nil
}

func TestNewClientValidation(testInstance *testing.T) {
	testInstance.Run("nil_executor", func(testInstance *testing.T) {
		client, creationError := githubcli.NewClient(nil)
		require.Error(testInstance, creationError)
		require.ErrorIs(testInstance, creationError, githubcli.ErrExecutorNotConfigured)
		require.Nil(testInstance, client)
	})
}

func TestListPullRequests(testInstance *testing.T) {
	testCases := []struct {
		name        string
		repository  string
		options     githubcli.PullRequestListOptions
		executor    *stubGitHubExecutor
		expectError bool
		errorType   any
		verify      func(testInstance *testing.T, pullRequests []githubcli.PullRequest, executor *stubGitHubExecutor)
	}{
		{
			name:       testListSuccessCaseNameConstant,
			repository: testRepositoryIdentifierConstant,
			options: githubcli.PullRequestListOptions{
				State:      githubcli.PullRequestStateAll,
				BaseBranch: testBaseBranchConstant,
				HeadBranch: testPullRequestHeadConstant,
			},
			executor: &stubGitHubExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{StandardOutput: `[{"number":42,"title":"rebase-4.19.0","state":"OPEN","url":"https://github.com/openshift/microshift/pull/42","headRefName":"rebase-4.19.0","baseRefName":"main"}]`}, nil
			}},
			verify: func(testInstance *testing.T, pullRequests []githubcli.PullRequest, executor *stubGitHubExecutor) {
				require.Len(testInstance, pullRequests, 1)
				require.Equal(testInstance, 42, pullRequests[0].Number)
				require.Equal(testInstance, testPullRequestTitleConstant, pullRequests[0].Title)
				require.Equal(testInstance, testPullRequestHeadConstant, pullRequests[0].HeadRefName)
				require.Equal(testInstance, "OPEN", pullRequests[0].State)
				require.Len(testInstance, executor.recordedDetails, 1)
				require.Equal(testInstance, []string{
					"pr", "list",
					"--repo", testRepositoryIdentifierConstant,
					"--state", "all",
					"--base", testBaseBranchConstant,
					"--head", testPullRequestHeadConstant,
					"--json", "number,title,state,url,headRefName,baseRefName",
					"--limit", "100",
				}, executor.recordedDetails[0].Arguments)
				require.Nil(testInstance, executor.recordedDetails[0].EnvironmentVariables)
			},
		},
		{
			name:       testListDecodeFailureCaseNameConstant,
			repository: testRepositoryIdentifierConstant,
			options:    githubcli.PullRequestListOptions{State: githubcli.PullRequestStateOpen, BaseBranch: testBaseBranchConstant},
			executor: &stubGitHubExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{StandardOutput: "not-json"}, nil
			}},
			expectError: true,
			errorType:   githubcli.ResponseDecodingError{},
		},
		{
			name:       testListCommandFailureCaseNameConstant,
			repository: testRepositoryIdentifierConstant,
			options:    githubcli.PullRequestListOptions{State: githubcli.PullRequestStateClosed, BaseBranch: testBaseBranchConstant},
			executor: &stubGitHubExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{}, execshell.CommandExecutionError{Command: execshell.ShellCommand{Name: execshell.CommandGitHub}, Cause: errors.New("failed")}
			}},
			expectError: true,
			errorType:   githubcli.OperationError{},
		},
		{
			name:        testListRepositoryValidationCaseNameConstant,
			repository:  "",
			options:     githubcli.PullRequestListOptions{State: githubcli.PullRequestStateOpen, BaseBranch: testBaseBranchConstant},
			executor:    &stubGitHubExecutor{},
			expectError: true,
			errorType:   githubcli.InvalidInputError{},
		},
		{
			name:        testListBaseValidationCaseNameConstant,
			repository:  testRepositoryIdentifierConstant,
			options:     githubcli.PullRequestListOptions{State: githubcli.PullRequestStateOpen, BaseBranch: " "},
			executor:    &stubGitHubExecutor{},
			expectError: true,
			errorType:   githubcli.InvalidInputError{},
		},
		{
			name:        testListStateValidationCaseNameConstant,
			repository:  testRepositoryIdentifierConstant,
			options:     githubcli.PullRequestListOptions{BaseBranch: testBaseBranchConstant},
			executor:    &stubGitHubExecutor{},
			expectError: true,
			errorType:   githubcli.InvalidInputError{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			client, creationError := githubcli.NewClient(testCase.executor)
			require.NoError(testInstance, creationError)

			pullRequests, listError := client.ListPullRequests(context.Background(), testCase.repository, testCase.options)
			if testCase.expectError {
				require.Error(testInstance, listError)
				require.IsType(testInstance, testCase.errorType, listError)
				return
			}
			require.NoError(testInstance, listError)
			require.NotNil(testInstance, testCase.verify)
			testCase.verify(testInstance, pullRequests, testCase.executor)
		})
	}
}

func TestCreatePullRequest(testInstance *testing.T) {
	testCases := []struct {
		name        string
		options     githubcli.PullRequestCreateOptions
		output      string
		runError    error
		expectError bool
		errorType   any
	}{
		{
			name:    "create_success",
			options: githubcli.PullRequestCreateOptions{Title: testPullRequestTitleConstant, Body: testPullRequestBodyConstant, BaseBranch: testBaseBranchConstant, HeadBranch: testPullRequestHeadConstant},
			output:  "Creating pull request for rebase-4.19.0 into main\n\n" + testPullRequestURLConstant + "\n",
		},
		{
			name:        "create_requires_head",
			options:     githubcli.PullRequestCreateOptions{Title: testPullRequestTitleConstant, BaseBranch: testBaseBranchConstant},
			expectError: true,
			errorType:   githubcli.InvalidInputError{},
		},
		{
			name:        "create_requires_title",
			options:     githubcli.PullRequestCreateOptions{BaseBranch: testBaseBranchConstant, HeadBranch: testPullRequestHeadConstant},
			expectError: true,
			errorType:   githubcli.InvalidInputError{},
		},
		{
			name:        "create_command_failure",
			options:     githubcli.PullRequestCreateOptions{Title: testPullRequestTitleConstant, BaseBranch: testBaseBranchConstant, HeadBranch: testPullRequestHeadConstant},
			runError:    execshell.CommandFailedError{Command: execshell.ShellCommand{Name: execshell.CommandGitHub}, Result: execshell.ExecutionResult{ExitCode: 1}},
			expectError: true,
			errorType:   githubcli.OperationError{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubGitHubExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{StandardOutput: testCase.output}, testCase.runError
			}}
			client, creationError := githubcli.NewClient(executor)
			require.NoError(testInstance, creationError)

			pullRequest, createError := client.WithAuthenticationToken(testAuthenticationTokenConstant).CreatePullRequest(context.Background(), testRepositoryIdentifierConstant, testCase.options)
			if testCase.expectError {
				require.Error(testInstance, createError)
				require.IsType(testInstance, testCase.errorType, createError)
				return
			}

			require.NoError(testInstance, createError)
			require.Equal(testInstance, 4242, pullRequest.Number)
			require.Equal(testInstance, testPullRequestURLConstant, pullRequest.URL)
			require.Len(testInstance, executor.recordedDetails, 1)
			recordedDetails := executor.recordedDetails[0]
			require.Equal(testInstance, []string{
				"pr", "create",
				"--repo", testRepositoryIdentifierConstant,
				"--base", testBaseBranchConstant,
				"--head", testPullRequestHeadConstant,
				"--title", testPullRequestTitleConstant,
				"--body-file", "-",
			}, recordedDetails.Arguments)
			require.Equal(testInstance, testPullRequestBodyConstant, string(recordedDetails.StandardInput))
			require.Equal(testInstance, testAuthenticationTokenConstant, recordedDetails.EnvironmentVariables[githubauth.EnvGitHubCLIToken])
		})
	}
}

func TestUpdatePullRequest(testInstance *testing.T) {
	testCases := []struct {
		name              string
		pullRequestNumber int
		options           githubcli.PullRequestUpdateOptions
		runError          error
		expectError       bool
		errorType         any
	}{
		{
			name:              "update_success",
			pullRequestNumber: 42,
			options:           githubcli.PullRequestUpdateOptions{Title: "**FAILURE** " + testPullRequestTitleConstant, Body: testPullRequestBodyConstant},
		},
		{
			name:              "update_requires_positive_number",
			pullRequestNumber: 0,
			options:           githubcli.PullRequestUpdateOptions{Title: testPullRequestTitleConstant},
			expectError:       true,
			errorType:         githubcli.InvalidInputError{},
		},
		{
			name:              "update_command_failure",
			pullRequestNumber: 42,
			options:           githubcli.PullRequestUpdateOptions{Title: testPullRequestTitleConstant},
			runError:          errors.New("gh unavailable"),
			expectError:       true,
			errorType:         githubcli.OperationError{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubGitHubExecutor{executeFunc: func(context.Context, execshell.CommandDetails) (execshell.ExecutionResult, error) {
				return execshell.ExecutionResult{}, testCase.runError
			}}
			client, creationError := githubcli.NewClient(executor)
			require.NoError(testInstance, creationError)

			updateError := client.UpdatePullRequest(context.Background(), testRepositoryIdentifierConstant, testCase.pullRequestNumber, testCase.options)
			if testCase.expectError {
				require.Error(testInstance, updateError)
				require.IsType(testInstance, testCase.errorType, updateError)
				return
			}

			require.NoError(testInstance, updateError)
			require.Len(testInstance, executor.recordedDetails, 1)
			require.Equal(testInstance, []string{
				"pr", "edit", "42",
				"--repo", testRepositoryIdentifierConstant,
				"--title", testCase.options.Title,
				"--body-file", "-",
			}, executor.recordedDetails[0].Arguments)
			require.Equal(testInstance, testPullRequestBodyConstant, string(executor.recordedDetails[0].StandardInput))
		})
	}
}
