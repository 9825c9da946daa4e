package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/rebasebot/internal/execshell"
)

const (
	gitRevParseSubcommandConstant              = "rev-parse"
	gitAbbrevRefFlagConstant                   = "--abbrev-ref"
	gitHeadReferenceConstant                   = "HEAD"
	gitLogSubcommandConstant                   = "log"
	gitSingleCommitFlagConstant                = "-1"
	gitOnelineSummaryFormatConstant            = "--format=%h %s"
	gitCheckoutSubcommandConstant              = "checkout"
	gitCreateBranchFlagConstant                = "-b"
	gitAddSubcommandConstant                   = "add"
	gitAllChangesFlagConstant                  = "-A"
	gitCommitSubcommandConstant                = "commit"
	gitMessageFlagConstant                     = "-m"
	gitAllowEmptyFlagConstant                  = "--allow-empty"
	gitRemoteSubcommandConstant                = "remote"
	gitRemoteGetURLSubcommandConstant          = "get-url"
	gitRemoteSetURLSubcommandConstant          = "set-url"
	gitRemoteAddSubcommandConstant             = "add"
	gitFetchSubcommandConstant                 = "fetch"
	gitForEachRefSubcommandConstant            = "for-each-ref"
	gitReferenceNameFormatConstant             = "--format=%(refname)"
	gitRemoteReferenceTemplateConstant         = "refs/remotes/%s/%s"
	gitMergeBaseSubcommandConstant             = "merge-base"
	gitPushSubcommandConstant                  = "push"
	gitPorcelainFlagConstant                   = "--porcelain"
	gitForceFlagConstant                       = "--force"
	gitTerminalPromptEnvironmentNameConstant   = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledValueConstant     = "0"
	executorNotConfiguredMessageConstant       = "git executor not configured"
	requiredValueMessageConstant               = "value required"
	repositoryPathFieldNameConstant            = "repository_path"
	referenceFieldNameConstant                 = "reference"
	branchFieldNameConstant                    = "branch"
	remoteNameFieldNameConstant                = "remote_name"
	remoteURLFieldNameConstant                 = "remote_url"
	commitMessageFieldNameConstant             = "commit_message"
	invalidInputErrorTemplateConstant          = "%s: %s"
	repositoryOperationErrorTemplateConstant   = "%s failed: %w"
	currentBranchOperationNameConstant         = "current branch lookup"
	revisionOperationNameConstant              = "revision lookup"
	commitSummaryOperationNameConstant         = "commit summary"
	branchCreationOperationNameConstant        = "branch creation"
	stageOperationNameConstant                 = "staging"
	commitOperationNameConstant                = "commit"
	remoteConfigurationOperationNameConstant   = "remote configuration"
	fetchOperationNameConstant                 = "fetch"
	remoteReferenceLookupOperationNameConstant = "remote reference lookup"
	mergeBaseOperationNameConstant             = "merge base"
	pushOperationNameConstant                  = "push"
)

// ErrGitExecutorNotConfigured indicates the manager was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// GitExecutor is the minimal interface required from execshell.ShellExecutor.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// InvalidInputError reports a missing or malformed argument.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// RepositoryManager runs structured git operations against local repositories.
type RepositoryManager struct {
	executor GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager.
func NewRepositoryManager(executor GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// GetCurrentBranch reports the branch checked out in repositoryPath.
func (manager *RepositoryManager) GetCurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	if validationError := requireValue(repositoryPathFieldNameConstant, repositoryPath); validationError != nil {
		return "", validationError
	}
	output, executionError := manager.run(executionContext, repositoryPath, gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitHeadReferenceConstant)
	if executionError != nil {
		return "", fmt.Errorf(repositoryOperationErrorTemplateConstant, currentBranchOperationNameConstant, executionError)
	}
	return output, nil
}

// ResolveRevision reports the commit hash a reference points to.
func (manager *RepositoryManager) ResolveRevision(executionContext context.Context, repositoryPath string, reference string) (string, error) {
	if validationError := requireValues(repositoryPathFieldNameConstant, repositoryPath, referenceFieldNameConstant, reference); validationError != nil {
		return "", validationError
	}
	output, executionError := manager.run(executionContext, repositoryPath, gitRevParseSubcommandConstant, strings.TrimSpace(reference))
	if executionError != nil {
		return "", fmt.Errorf(repositoryOperationErrorTemplateConstant, revisionOperationNameConstant, executionError)
	}
	return output, nil
}

// DescribeCommit returns the abbreviated hash and subject of the commit a reference points to.
func (manager *RepositoryManager) DescribeCommit(executionContext context.Context, repositoryPath string, reference string) (string, error) {
	if validationError := requireValues(repositoryPathFieldNameConstant, repositoryPath, referenceFieldNameConstant, reference); validationError != nil {
		return "", validationError
	}
	output, executionError := manager.run(executionContext, repositoryPath, gitLogSubcommandConstant, gitSingleCommitFlagConstant, gitOnelineSummaryFormatConstant, strings.TrimSpace(reference))
	if executionError != nil {
		return "", fmt.Errorf(repositoryOperationErrorTemplateConstant, commitSummaryOperationNameConstant, executionError)
	}
	return output, nil
}

// CreateBranch creates branchName at HEAD and checks it out.
func (manager *RepositoryManager) CreateBranch(executionContext context.Context, repositoryPath string, branchName string) error {
	if validationError := requireValues(repositoryPathFieldNameConstant, repositoryPath, branchFieldNameConstant, branchName); validationError != nil {
		return validationError
	}
	if _, executionError := manager.run(executionContext, repositoryPath, gitCheckoutSubcommandConstant, gitCreateBranchFlagConstant, strings.TrimSpace(branchName)); executionError != nil {
		return fmt.Errorf(repositoryOperationErrorTemplateConstant, branchCreationOperationNameConstant, executionError)
	}
	return nil
}

// StageAll stages every change in the working tree, including deletions and untracked files.
func (manager *RepositoryManager) StageAll(executionContext context.Context, repositoryPath string) error {
	if validationError := requireValue(repositoryPathFieldNameConstant, repositoryPath); validationError != nil {
		return validationError
	}
	if _, executionError := manager.run(executionContext, repositoryPath, gitAddSubcommandConstant, gitAllChangesFlagConstant); executionError != nil {
		return fmt.Errorf(repositoryOperationErrorTemplateConstant, stageOperationNameConstant, executionError)
	}
	return nil
}

// Commit records the staged changes with message. A clean index still yields a commit,
// so rerunning over an unchanged working tree does not fail.
func (manager *RepositoryManager) Commit(executionContext context.Context, repositoryPath string, message string) error {
	if validationError := requireValues(repositoryPathFieldNameConstant, repositoryPath, commitMessageFieldNameConstant, message); validationError != nil {
		return validationError
	}
	if _, executionError := manager.run(executionContext, repositoryPath, gitCommitSubcommandConstant, gitAllowEmptyFlagConstant, gitMessageFlagConstant, message); executionError != nil {
		return fmt.Errorf(repositoryOperationErrorTemplateConstant, commitOperationNameConstant, executionError)
	}
	return nil
}

// GetRemoteURL reports the URL configured for remoteName.
func (manager *RepositoryManager) GetRemoteURL(executionContext context.Context, repositoryPath string, remoteName string) (string, error) {
	if validationError := requireValues(repositoryPathFieldNameConstant, repositoryPath, remoteNameFieldNameConstant, remoteName); validationError != nil {
		return "", validationError
	}
	return manager.run(executionContext, repositoryPath, gitRemoteSubcommandConstant, gitRemoteGetURLSubcommandConstant, strings.TrimSpace(remoteName))
}

// EnsureRemote points remoteName at remoteURL, adding the remote when it does not exist yet.
func (manager *RepositoryManager) EnsureRemote(executionContext context.Context, repositoryPath string, remoteName string, remoteURL string) error {
	if validationError := requireValues(repositoryPathFieldNameConstant, repositoryPath, remoteNameFieldNameConstant, remoteName, remoteURLFieldNameConstant, remoteURL); validationError != nil {
		return validationError
	}
	trimmedRemoteName := strings.TrimSpace(remoteName)

	_, lookupError := manager.GetRemoteURL(executionContext, repositoryPath, trimmedRemoteName)
	subcommand := gitRemoteSetURLSubcommandConstant
	if lookupError != nil {
		var failedCommand execshell.CommandFailedError
		if !errors.As(lookupError, &failedCommand) {
			return fmt.Errorf(repositoryOperationErrorTemplateConstant, remoteConfigurationOperationNameConstant, lookupError)
		}
		subcommand = gitRemoteAddSubcommandConstant
	}

	if _, executionError := manager.run(executionContext, repositoryPath, gitRemoteSubcommandConstant, subcommand, trimmedRemoteName, strings.TrimSpace(remoteURL)); executionError != nil {
		return fmt.Errorf(repositoryOperationErrorTemplateConstant, remoteConfigurationOperationNameConstant, executionError)
	}
	return nil
}

// Fetch downloads objects and references from remoteName.
func (manager *RepositoryManager) Fetch(executionContext context.Context, repositoryPath string, remoteName string) error {
	if validationError := requireValues(repositoryPathFieldNameConstant, repositoryPath, remoteNameFieldNameConstant, remoteName); validationError != nil {
		return validationError
	}
	if _, executionError := manager.run(executionContext, repositoryPath, gitFetchSubcommandConstant, strings.TrimSpace(remoteName)); executionError != nil {
		return fmt.Errorf(repositoryOperationErrorTemplateConstant, fetchOperationNameConstant, executionError)
	}
	return nil
}

// FindRemoteBranchReferences lists the remote-tracking references matching remoteName/branchName.
// An empty result means the branch does not exist on the remote.
func (manager *RepositoryManager) FindRemoteBranchReferences(executionContext context.Context, repositoryPath string, remoteName string, branchName string) ([]string, error) {
	if validationError := requireValues(repositoryPathFieldNameConstant, repositoryPath, remoteNameFieldNameConstant, remoteName, branchFieldNameConstant, branchName); validationError != nil {
		return nil, validationError
	}
	pattern := fmt.Sprintf(gitRemoteReferenceTemplateConstant, strings.TrimSpace(remoteName), strings.TrimSpace(branchName))
	output, executionError := manager.run(executionContext, repositoryPath, gitForEachRefSubcommandConstant, gitReferenceNameFormatConstant, pattern)
	if executionError != nil {
		return nil, fmt.Errorf(repositoryOperationErrorTemplateConstant, remoteReferenceLookupOperationNameConstant, executionError)
	}

	references := []string{}
	for _, line := range strings.Split(output, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if len(trimmedLine) > 0 {
			references = append(references, trimmedLine)
		}
	}
	return references, nil
}

// MergeBase reports the best common ancestor of two references.
func (manager *RepositoryManager) MergeBase(executionContext context.Context, repositoryPath string, firstReference string, secondReference string) (string, error) {
	if validationError := requireValues(repositoryPathFieldNameConstant, repositoryPath, referenceFieldNameConstant, firstReference, referenceFieldNameConstant, secondReference); validationError != nil {
		return "", validationError
	}
	output, executionError := manager.run(executionContext, repositoryPath, gitMergeBaseSubcommandConstant, strings.TrimSpace(firstReference), strings.TrimSpace(secondReference))
	if executionError != nil {
		return "", fmt.Errorf(repositoryOperationErrorTemplateConstant, mergeBaseOperationNameConstant, executionError)
	}
	return output, nil
}

// ForcePush force-pushes branchName to remoteName and returns the single reference update git reported.
// Rejected updates yield PushRejectedError; output without exactly one reference status yields PushResultError.
func (manager *RepositoryManager) ForcePush(executionContext context.Context, repositoryPath string, remoteName string, branchName string) (PushReferenceUpdate, error) {
	if validationError := requireValues(repositoryPathFieldNameConstant, repositoryPath, remoteNameFieldNameConstant, remoteName, branchFieldNameConstant, branchName); validationError != nil {
		return PushReferenceUpdate{}, validationError
	}

	executionResult, executionError := manager.executor.ExecuteGit(executionContext, manager.commandDetails(repositoryPath,
		gitPushSubcommandConstant, gitPorcelainFlagConstant, gitForceFlagConstant, strings.TrimSpace(remoteName), strings.TrimSpace(branchName)))
	if executionError != nil {
		var failedCommand execshell.CommandFailedError
		if !errors.As(executionError, &failedCommand) {
			return PushReferenceUpdate{}, fmt.Errorf(repositoryOperationErrorTemplateConstant, pushOperationNameConstant, executionError)
		}
		executionResult = failedCommand.Result
	}

	referenceUpdate, parseError := ParseSinglePushReferenceUpdate(executionResult.StandardOutput)
	if parseError != nil {
		if executionError != nil {
			return PushReferenceUpdate{}, fmt.Errorf(repositoryOperationErrorTemplateConstant, pushOperationNameConstant, executionError)
		}
		return PushReferenceUpdate{}, parseError
	}

	if referenceUpdate.Flag == PushFlagRejected {
		return referenceUpdate, PushRejectedError{Update: referenceUpdate}
	}
	if executionError != nil {
		return referenceUpdate, fmt.Errorf(repositoryOperationErrorTemplateConstant, pushOperationNameConstant, executionError)
	}
	return referenceUpdate, nil
}

func (manager *RepositoryManager) run(executionContext context.Context, repositoryPath string, arguments ...string) (string, error) {
	executionResult, executionError := manager.executor.ExecuteGit(executionContext, manager.commandDetails(repositoryPath, arguments...))
	if executionError != nil {
		return "", executionError
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

func (manager *RepositoryManager) commandDetails(repositoryPath string, arguments ...string) execshell.CommandDetails {
	return execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     strings.TrimSpace(repositoryPath),
		EnvironmentVariables: map[string]string{gitTerminalPromptEnvironmentNameConstant: gitTerminalPromptDisabledValueConstant},
	}
}

func requireValue(fieldName string, value string) error {
	if len(strings.TrimSpace(value)) == 0 {
		return InvalidInputError{FieldName: fieldName, Message: requiredValueMessageConstant}
	}
	return nil
}

// requireValues validates alternating field name and value pairs.
func requireValues(fieldNamesAndValues ...string) error {
	for index := 0; index+1 < len(fieldNamesAndValues); index += 2 {
		if validationError := requireValue(fieldNamesAndValues[index], fieldNamesAndValues[index+1]); validationError != nil {
			return validationError
		}
	}
	return nil
}
