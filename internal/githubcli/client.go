package githubcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/temirov/rebasebot/internal/execshell"
	"github.com/temirov/rebasebot/internal/githubauth"
)

const (
	pullRequestSubcommandConstant           = "pr"
	listSubcommandConstant                  = "list"
	createSubcommandConstant                = "create"
	editSubcommandConstant                  = "edit"
	jsonFlagConstant                        = "--json"
	repoFlagConstant                        = "--repo"
	stateFlagConstant                       = "--state"
	baseFlagConstant                        = "--base"
	headFlagConstant                        = "--head"
	titleFlagConstant                       = "--title"
	bodyFileFlagConstant                    = "--body-file"
	limitFlagConstant                       = "--limit"
	stdinReferenceConstant                  = "-"
	repositoryFieldNameConstant             = "repository"
	baseBranchFieldNameConstant             = "base_branch"
	headBranchFieldNameConstant             = "head_branch"
	stateFieldNameConstant                  = "state"
	titleFieldNameConstant                  = "title"
	pullRequestNumberFieldNameConstant      = "pull_request_number"
	requiredValueMessageConstant            = "value required"
	positiveValueMessageConstant            = "value must be positive"
	executorNotConfiguredMessageConstant    = "github cli executor not configured"
	pullRequestLimitDefaultValueConstant    = 100
	pullRequestJSONFieldsConstant           = "number,title,state,url,headRefName,baseRefName"
	pullRequestURLPathSeparatorConstant     = "/"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	listPullRequestsOperationNameConstant   = OperationName("ListPullRequests")
	createPullRequestOperationNameConstant  = OperationName("CreatePullRequest")
	updatePullRequestOperationNameConstant  = OperationName("UpdatePullRequest")
)

// OperationName describes a named GitHub CLI workflow supported by the client.
type OperationName string

// PullRequestState describes acceptable GitHub pull request states for listing.
type PullRequestState string

// Pull request state enumerations.
const (
	PullRequestStateOpen   PullRequestState = PullRequestState("open")
	PullRequestStateClosed PullRequestState = PullRequestState("closed")
	PullRequestStateMerged PullRequestState = PullRequestState("merged")
	PullRequestStateAll    PullRequestState = PullRequestState("all")
)

// PullRequest represents minimal PR details returned by GitHub CLI.
type PullRequest struct {
	Number      int
	Title       string
	State       string
	URL         string
	HeadRefName string
	BaseRefName string
}

// PullRequestListOptions configures ListPullRequests queries.
type PullRequestListOptions struct {
	State       PullRequestState
	BaseBranch  string
	HeadBranch  string
	ResultLimit int
}

// PullRequestCreateOptions describes a pull request to open.
type PullRequestCreateOptions struct {
	Title      string
	Body       string
	BaseBranch string
	HeadBranch string
}

// PullRequestUpdateOptions describes the new title and body of an existing pull request.
type PullRequestUpdateOptions struct {
	Title string
	Body  string
}

// GitHubCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitHubCommandExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client coordinates GitHub CLI invocations through execshell.
type Client struct {
	executor            GitHubCommandExecutor
	authenticationToken string
}

var (
	// ErrExecutorNotConfigured indicates the client was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps execution issues for GitHub CLI operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// NewClient constructs a GitHub CLI client.
func NewClient(executor GitHubCommandExecutor) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor}, nil
}

// WithAuthenticationToken returns a copy of the client that authenticates every gh invocation with token.
func (client *Client) WithAuthenticationToken(token string) *Client {
	authenticatedClient := *client
	authenticatedClient.authenticationToken = strings.TrimSpace(token)
	return &authenticatedClient
}

// ListPullRequests enumerates pull requests using gh pr list.
func (client *Client) ListPullRequests(executionContext context.Context, repository string, options PullRequestListOptions) ([]PullRequest, error) {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return nil, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	if len(strings.TrimSpace(options.BaseBranch)) == 0 {
		return nil, InvalidInputError{FieldName: baseBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}

	if len(options.State) == 0 {
		return nil, InvalidInputError{FieldName: stateFieldNameConstant, Message: requiredValueMessageConstant}
	}

	resultLimit := options.ResultLimit
	if resultLimit <= 0 {
		resultLimit = pullRequestLimitDefaultValueConstant
	}

	arguments := []string{
		pullRequestSubcommandConstant,
		listSubcommandConstant,
		repoFlagConstant,
		repositoryIdentifier,
		stateFlagConstant,
		string(options.State),
		baseFlagConstant,
		strings.TrimSpace(options.BaseBranch),
	}
	if headBranch := strings.TrimSpace(options.HeadBranch); len(headBranch) > 0 {
		arguments = append(arguments, headFlagConstant, headBranch)
	}
	arguments = append(arguments, jsonFlagConstant, pullRequestJSONFieldsConstant, limitFlagConstant, strconv.Itoa(resultLimit))

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, client.commandDetails(arguments, nil))
	if executionError != nil {
		return nil, OperationError{Operation: listPullRequestsOperationNameConstant, Cause: executionError}
	}

	var response []struct {
		Number      int    `json:"number"`
		Title       string `json:"title"`
		State       string `json:"state"`
		URL         string `json:"url"`
		HeadRefName string `json:"headRefName"`
		BaseRefName string `json:"baseRefName"`
	}

	decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &response)
	if decodingError != nil {
		return nil, ResponseDecodingError{Operation: listPullRequestsOperationNameConstant, Cause: decodingError}
	}

	pullRequests := make([]PullRequest, 0, len(response))
	for _, pullRequestEntry := range response {
		pullRequests = append(pullRequests, PullRequest{
			Number:      pullRequestEntry.Number,
			Title:       pullRequestEntry.Title,
			State:       pullRequestEntry.State,
			URL:         pullRequestEntry.URL,
			HeadRefName: pullRequestEntry.HeadRefName,
			BaseRefName: pullRequestEntry.BaseRefName,
		})
	}

	return pullRequests, nil
}

// CreatePullRequest opens a pull request using gh pr create. The body is passed on standard input.
func (client *Client) CreatePullRequest(executionContext context.Context, repository string, options PullRequestCreateOptions) (PullRequest, error) {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return PullRequest{}, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(options.BaseBranch)) == 0 {
		return PullRequest{}, InvalidInputError{FieldName: baseBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(options.HeadBranch)) == 0 {
		return PullRequest{}, InvalidInputError{FieldName: headBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(options.Title)) == 0 {
		return PullRequest{}, InvalidInputError{FieldName: titleFieldNameConstant, Message: requiredValueMessageConstant}
	}

	arguments := []string{
		pullRequestSubcommandConstant,
		createSubcommandConstant,
		repoFlagConstant,
		repositoryIdentifier,
		baseFlagConstant,
		strings.TrimSpace(options.BaseBranch),
		headFlagConstant,
		strings.TrimSpace(options.HeadBranch),
		titleFlagConstant,
		options.Title,
		bodyFileFlagConstant,
		stdinReferenceConstant,
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, client.commandDetails(arguments, []byte(options.Body)))
	if executionError != nil {
		return PullRequest{}, OperationError{Operation: createPullRequestOperationNameConstant, Cause: executionError}
	}

	pullRequestURL := lastNonEmptyLine(executionResult.StandardOutput)
	return PullRequest{
		Number:      pullRequestNumberFromURL(pullRequestURL),
		Title:       options.Title,
		URL:         pullRequestURL,
		HeadRefName: strings.TrimSpace(options.HeadBranch),
		BaseRefName: strings.TrimSpace(options.BaseBranch),
	}, nil
}

// UpdatePullRequest replaces the title and body of an existing pull request using gh pr edit.
func (client *Client) UpdatePullRequest(executionContext context.Context, repository string, pullRequestNumber int, options PullRequestUpdateOptions) error {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if pullRequestNumber <= 0 {
		return InvalidInputError{FieldName: pullRequestNumberFieldNameConstant, Message: positiveValueMessageConstant}
	}
	if len(strings.TrimSpace(options.Title)) == 0 {
		return InvalidInputError{FieldName: titleFieldNameConstant, Message: requiredValueMessageConstant}
	}

	arguments := []string{
		pullRequestSubcommandConstant,
		editSubcommandConstant,
		strconv.Itoa(pullRequestNumber),
		repoFlagConstant,
		repositoryIdentifier,
		titleFlagConstant,
		options.Title,
		bodyFileFlagConstant,
		stdinReferenceConstant,
	}

	_, executionError := client.executor.ExecuteGitHubCLI(executionContext, client.commandDetails(arguments, []byte(options.Body)))
	if executionError != nil {
		return OperationError{Operation: updatePullRequestOperationNameConstant, Cause: executionError}
	}

	return nil
}

func (client *Client) commandDetails(arguments []string, standardInput []byte) execshell.CommandDetails {
	details := execshell.CommandDetails{Arguments: arguments, StandardInput: standardInput}
	if len(client.authenticationToken) > 0 {
		details.EnvironmentVariables = map[string]string{githubauth.EnvGitHubCLIToken: client.authenticationToken}
	}
	return details
}

func lastNonEmptyLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for index := len(lines) - 1; index >= 0; index-- {
		trimmed := strings.TrimSpace(lines[index])
		if len(trimmed) > 0 {
			return trimmed
		}
	}
	return ""
}

func pullRequestNumberFromURL(pullRequestURL string) int {
	segments := strings.Split(strings.TrimSuffix(pullRequestURL, pullRequestURLPathSeparatorConstant), pullRequestURLPathSeparatorConstant)
	number, parseError := strconv.Atoi(segments[len(segments)-1])
	if parseError != nil {
		return 0
	}
	return number
}
