package execshell

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	redactedCredentialsReplacementConstant  = "${scheme}***@"
)

const (
	gitRevParseSubcommandNameConstant     = "rev-parse"
	gitAbbrevRefFlagConstant              = "--abbrev-ref"
	gitHeadReferenceConstant              = "HEAD"
	gitRemoteSubcommandNameConstant       = "remote"
	gitRemoteGetURLSubcommandNameConstant = "get-url"
	gitRemoteSetURLSubcommandNameConstant = "set-url"
	gitRemoteAddSubcommandNameConstant    = "add"
	gitCheckoutSubcommandNameConstant     = "checkout"
	gitCreateBranchFlagConstant           = "-b"
	gitFetchSubcommandNameConstant        = "fetch"
	gitPushSubcommandNameConstant         = "push"
	gitForEachRefSubcommandNameConstant   = "for-each-ref"
	gitMergeBaseSubcommandNameConstant    = "merge-base"
	gitAddSubcommandNameConstant          = "add"
	gitCommitSubcommandNameConstant       = "commit"
	gitMessageFlagConstant                = "-m"
	gitFetchAllRemotesLabelConstant       = "all remotes"
	gitAllChangesFlagConstant             = "-A"
	gitAllChangesLabelConstant            = "all changes"
)

const (
	githubPullRequestSubcommandNameConstant       = "pr"
	githubPullRequestListSubcommandNameConstant   = "list"
	githubPullRequestCreateSubcommandNameConstant = "create"
	githubPullRequestEditSubcommandNameConstant   = "edit"
	githubRepoFlagConstant                        = "--repo"
	githubStateFlagConstant                       = "--state"
	githubBaseFlagConstant                        = "--base"
	githubHeadFlagConstant                        = "--head"
	githubCurrentRepositoryLabelConstant          = "current repository"
)

// messageTemplateSet holds the four lifecycle templates for one kind of command.
// Failure templates receive the subject values followed by the exit code and the
// standard error suffix; execution failure templates receive the subject values
// followed by the failure description.
type messageTemplateSet struct {
	start            string
	success          string
	failure          string
	executionFailure string
}

var (
	gitCurrentBranchTemplates = messageTemplateSet{
		start:            "Identifying current branch in %s",
		success:          "Current branch in %s is %s",
		failure:          "Failed to identify current branch in %s (exit code %d%s)",
		executionFailure: "Unable to identify current branch in %s: %s",
	}
	gitRevisionTemplates = messageTemplateSet{
		start:            "Resolving %s in %s",
		success:          "%s in %s resolved to %s",
		failure:          "Failed to resolve %s in %s (exit code %d%s)",
		executionFailure: "Unable to resolve %s in %s: %s",
	}
	gitRemoteLookupTemplates = messageTemplateSet{
		start:            "Checking %s remote in %s",
		success:          "%s remote in %s points to %s",
		failure:          "Failed to read %s remote in %s (exit code %d%s)",
		executionFailure: "Unable to read %s remote in %s: %s",
	}
	gitRemoteUpdateTemplates = messageTemplateSet{
		start:            "Updating %s remote in %s to %s",
		success:          "%s remote in %s now points to %s",
		failure:          "Failed to update %s remote in %s to %s (exit code %d%s)",
		executionFailure: "Unable to update %s remote in %s to %s: %s",
	}
	gitRemoteAddTemplates = messageTemplateSet{
		start:            "Adding %s remote in %s pointing to %s",
		success:          "Added %s remote in %s pointing to %s",
		failure:          "Failed to add %s remote in %s pointing to %s (exit code %d%s)",
		executionFailure: "Unable to add %s remote in %s pointing to %s: %s",
	}
	gitCheckoutTemplates = messageTemplateSet{
		start:            "Switching %s to branch %s",
		success:          "%s now on branch %s",
		failure:          "Failed to switch %s to branch %s (exit code %d%s)",
		executionFailure: "Unable to switch %s to branch %s: %s",
	}
	gitCheckoutNewBranchTemplates = messageTemplateSet{
		start:            "Creating branch %s in %s",
		success:          "Created and switched to branch %s in %s",
		failure:          "Failed to create branch %s in %s (exit code %d%s)",
		executionFailure: "Unable to create branch %s in %s: %s",
	}
	gitFetchTemplates = messageTemplateSet{
		start:            "Fetching %s from %s in %s",
		success:          "Fetched %s from %s in %s",
		failure:          "Failed to fetch %s from %s in %s (exit code %d%s)",
		executionFailure: "Unable to fetch %s from %s in %s: %s",
	}
	gitFetchWithoutReferencesTemplates = messageTemplateSet{
		start:            "Fetching from %s in %s",
		success:          "Fetched from %s in %s",
		failure:          "Failed to fetch from %s in %s (exit code %d%s)",
		executionFailure: "Unable to fetch from %s in %s: %s",
	}
	gitPushTemplates = messageTemplateSet{
		start:            "Pushing %s to %s from %s",
		success:          "Pushed %s to %s from %s",
		failure:          "Failed to push %s to %s from %s (exit code %d%s)",
		executionFailure: "Unable to push %s to %s from %s: %s",
	}
	gitReferenceLookupTemplates = messageTemplateSet{
		start:            "Looking up %s in %s",
		success:          "Looked up %s in %s",
		failure:          "Failed to look up %s in %s (exit code %d%s)",
		executionFailure: "Unable to look up %s in %s: %s",
	}
	gitMergeBaseTemplates = messageTemplateSet{
		start:            "Computing merge base of %s and %s in %s",
		success:          "Computed merge base of %s and %s in %s",
		failure:          "Failed to compute merge base of %s and %s in %s (exit code %d%s)",
		executionFailure: "Unable to compute merge base of %s and %s in %s: %s",
	}
	gitAddTemplates = messageTemplateSet{
		start:            "Staging %s in %s",
		success:          "Staged %s in %s",
		failure:          "Failed to stage %s in %s (exit code %d%s)",
		executionFailure: "Unable to stage %s in %s: %s",
	}
	gitCommitTemplates = messageTemplateSet{
		start:            "Creating commit in %s with message %q",
		success:          "Created commit in %s with message %q",
		failure:          "Failed to create commit in %s with message %q (exit code %d%s)",
		executionFailure: "Unable to create commit in %s with message %q: %s",
	}
	githubPullRequestListTemplates = messageTemplateSet{
		start:            "Listing %s pull requests for %s from %s into %s",
		success:          "Listed %s pull requests for %s from %s into %s",
		failure:          "Failed to list %s pull requests for %s from %s into %s (exit code %d%s)",
		executionFailure: "Unable to list %s pull requests for %s from %s into %s: %s",
	}
	githubPullRequestCreateTemplates = messageTemplateSet{
		start:            "Creating pull request for %s from %s into %s",
		success:          "Created pull request for %s from %s into %s",
		failure:          "Failed to create pull request for %s from %s into %s (exit code %d%s)",
		executionFailure: "Unable to create pull request for %s from %s into %s: %s",
	}
	githubPullRequestEditTemplates = messageTemplateSet{
		start:            "Updating pull request #%d in %s",
		success:          "Updated pull request #%d in %s",
		failure:          "Failed to update pull request #%d in %s (exit code %d%s)",
		executionFailure: "Unable to update pull request #%d in %s: %s",
	}
	genericTemplates = messageTemplateSet{
		start:            genericStartTemplateConstant,
		success:          genericSuccessTemplateConstant,
		failure:          genericFailureTemplateConstant,
		executionFailure: genericExecutionFailureTemplateConstant,
	}
)

var credentialsPattern = regexp.MustCompile(`(?P<scheme>[a-zA-Z][a-zA-Z0-9+.-]*://)[^/@\s]+@`)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
// Credentials embedded in URLs never appear in the produced messages.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	var message string
	switch command.Name {
	case CommandGit:
		message = formatter.describeGitMessage(command, result, failure, stage)
	case CommandGitHub:
		message = formatter.describeGitHubMessage(command, result, failure, stage)
	default:
		message = formatter.buildGenericMessage(command, result, failure, stage)
	}
	return redactCredentials(message)
}

func (formatter CommandMessageFormatter) describeGitMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
	workingDirectory := formatter.describeWorkingDirectory(command)

	switch strings.TrimSpace(arguments[0]) {
	case gitRevParseSubcommandNameConstant:
		return formatter.describeGitRevParseMessage(command, result, failure, stage)
	case gitRemoteSubcommandNameConstant:
		return formatter.describeGitRemoteMessage(command, result, failure, stage)
	case gitCheckoutSubcommandNameConstant:
		if containsArgument(arguments, gitCreateBranchFlagConstant) {
			branchName := formatter.ensureValue(findFlagValue(arguments, gitCreateBranchFlagConstant))
			return formatter.render(gitCheckoutNewBranchTemplates, []any{branchName, workingDirectory}, result, failure, stage)
		}
		branchName := formatter.ensureValue(formatter.argumentAtIndex(arguments, 1))
		return formatter.render(gitCheckoutTemplates, []any{workingDirectory, branchName}, result, failure, stage)
	case gitFetchSubcommandNameConstant:
		remoteName, references := formatter.extractRemoteAndReferences(arguments[1:])
		if len(remoteName) == 0 {
			remoteName = gitFetchAllRemotesLabelConstant
		}
		if len(references) == 0 {
			return formatter.render(gitFetchWithoutReferencesTemplates, []any{remoteName, workingDirectory}, result, failure, stage)
		}
		return formatter.render(gitFetchTemplates, []any{strings.Join(references, ", "), remoteName, workingDirectory}, result, failure, stage)
	case gitPushSubcommandNameConstant:
		remoteName, references := formatter.extractRemoteAndReferences(arguments[1:])
		joinedReferences := formatter.ensureValue(strings.Join(references, ", "))
		return formatter.render(gitPushTemplates, []any{joinedReferences, formatter.ensureValue(remoteName), workingDirectory}, result, failure, stage)
	case gitForEachRefSubcommandNameConstant:
		pattern := formatter.ensureValue(formatter.lastArgument(arguments[1:]))
		return formatter.render(gitReferenceLookupTemplates, []any{pattern, workingDirectory}, result, failure, stage)
	case gitMergeBaseSubcommandNameConstant:
		firstReference := formatter.ensureValue(formatter.argumentAtIndex(arguments, 1))
		secondReference := formatter.ensureValue(formatter.argumentAtIndex(arguments, 2))
		return formatter.render(gitMergeBaseTemplates, []any{firstReference, secondReference, workingDirectory}, result, failure, stage)
	case gitAddSubcommandNameConstant:
		target := formatter.ensureValue(formatter.lastArgument(arguments[1:]))
		if containsArgument(arguments, gitAllChangesFlagConstant) {
			target = gitAllChangesLabelConstant
		}
		return formatter.render(gitAddTemplates, []any{target, workingDirectory}, result, failure, stage)
	case gitCommitSubcommandNameConstant:
		commitMessage := formatter.ensureValue(findFlagValue(arguments, gitMessageFlagConstant))
		return formatter.render(gitCommitTemplates, []any{workingDirectory, commitMessage}, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitRevParseMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	workingDirectory := formatter.describeWorkingDirectory(command)
	resolvedValue := formatter.ensureValue(result.StandardOutput)

	if containsArgument(arguments, gitAbbrevRefFlagConstant) && formatter.lastArgument(arguments) == gitHeadReferenceConstant {
		if stage == messageStageSuccess {
			return fmt.Sprintf(gitCurrentBranchTemplates.success, workingDirectory, resolvedValue)
		}
		return formatter.render(gitCurrentBranchTemplates, []any{workingDirectory}, result, failure, stage)
	}

	reference := formatter.ensureValue(formatter.lastArgument(arguments[1:]))
	if stage == messageStageSuccess {
		return fmt.Sprintf(gitRevisionTemplates.success, reference, workingDirectory, resolvedValue)
	}
	return formatter.render(gitRevisionTemplates, []any{reference, workingDirectory}, result, failure, stage)
}

func (formatter CommandMessageFormatter) describeGitRemoteMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	workingDirectory := formatter.describeWorkingDirectory(command)
	remoteName := formatter.ensureValue(formatter.argumentAtIndex(arguments, 2))
	remoteURL := formatter.ensureValue(formatter.argumentAtIndex(arguments, 3))

	switch strings.TrimSpace(formatter.argumentAtIndex(arguments, 1)) {
	case gitRemoteGetURLSubcommandNameConstant:
		if stage == messageStageSuccess {
			return fmt.Sprintf(gitRemoteLookupTemplates.success, remoteName, workingDirectory, formatter.ensureValue(result.StandardOutput))
		}
		return formatter.render(gitRemoteLookupTemplates, []any{remoteName, workingDirectory}, result, failure, stage)
	case gitRemoteSetURLSubcommandNameConstant:
		return formatter.render(gitRemoteUpdateTemplates, []any{remoteName, workingDirectory, remoteURL}, result, failure, stage)
	case gitRemoteAddSubcommandNameConstant:
		return formatter.render(gitRemoteAddTemplates, []any{remoteName, workingDirectory, remoteURL}, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitHubMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	if len(arguments) < 2 || strings.TrimSpace(arguments[0]) != githubPullRequestSubcommandNameConstant {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	repository := strings.TrimSpace(findFlagValue(arguments, githubRepoFlagConstant))
	if len(repository) == 0 {
		repository = githubCurrentRepositoryLabelConstant
	}
	headBranch := formatter.ensureValue(findFlagValue(arguments, githubHeadFlagConstant))
	baseBranch := formatter.ensureValue(findFlagValue(arguments, githubBaseFlagConstant))

	switch strings.TrimSpace(arguments[1]) {
	case githubPullRequestListSubcommandNameConstant:
		state := formatter.ensureValue(findFlagValue(arguments, githubStateFlagConstant))
		return formatter.render(githubPullRequestListTemplates, []any{state, repository, headBranch, baseBranch}, result, failure, stage)
	case githubPullRequestCreateSubcommandNameConstant:
		return formatter.render(githubPullRequestCreateTemplates, []any{repository, headBranch, baseBranch}, result, failure, stage)
	case githubPullRequestEditSubcommandNameConstant:
		pullRequestNumber, _ := strconv.Atoi(strings.TrimSpace(formatter.argumentAtIndex(arguments, 2)))
		return formatter.render(githubPullRequestEditTemplates, []any{pullRequestNumber, repository}, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	return formatter.render(genericTemplates, []any{formatter.formatCommandLabel(command)}, result, failure, stage)
}

func (formatter CommandMessageFormatter) render(templates messageTemplateSet, subject []any, result ExecutionResult, failure error, stage messageStage) string {
	values := append([]any{}, subject...)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.start, values...)
	case messageStageSuccess:
		return fmt.Sprintf(templates.success, values...)
	case messageStageFailure:
		values = append(values, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
		return fmt.Sprintf(templates.failure, values...)
	case messageStageExecutionFailure:
		values = append(values, formatter.describeFailure(failure))
		return fmt.Sprintf(templates.executionFailure, values...)
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = commandLabel + commandArgumentsJoinSeparatorConstant + strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant)
	}
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return commandLabel
	}
	return commandLabel + fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) argumentAtIndex(arguments []string, index int) string {
	if index >= 0 && index < len(arguments) {
		return arguments[index]
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) lastArgument(arguments []string) string {
	for index := len(arguments) - 1; index >= 0; index-- {
		trimmed := strings.TrimSpace(arguments[index])
		if len(trimmed) > 0 && !strings.HasPrefix(trimmed, "-") {
			return trimmed
		}
	}
	return emptyStringConstant
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) extractRemoteAndReferences(arguments []string) (string, []string) {
	remoteName := emptyStringConstant
	references := []string{}
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, "-") {
			continue
		}
		if len(remoteName) == 0 {
			remoteName = trimmed
			continue
		}
		references = append(references, trimmed)
	}
	return remoteName, references
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}

func findFlagValue(arguments []string, flag string) string {
	for index := 0; index < len(arguments); index++ {
		if strings.TrimSpace(arguments[index]) == flag && index+1 < len(arguments) {
			return strings.TrimSpace(arguments[index+1])
		}
	}
	return emptyStringConstant
}

// redactCredentials masks the user information portion of every URL in text.
func redactCredentials(text string) string {
	return credentialsPattern.ReplaceAllString(text, redactedCredentialsReplacementConstant)
}
