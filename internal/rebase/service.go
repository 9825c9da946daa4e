package rebase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/temirov/rebasebot/internal/githubauth"
	"github.com/temirov/rebasebot/internal/githubcli"
	"github.com/temirov/rebasebot/internal/gitrepo"
)

const (
	failureCommitMessageConstant = "rebase.sh failure artifacts"
	logFilePermissionsConstant   = 0o644
	dryRunPushTemplateConstant   = "[DRY RUN] git push --force %s"

	loggerMissingMessageConstant             = "rebase service logger not configured"
	tokenSourceMissingMessageConstant        = "installation token source not configured"
	scriptRunnerMissingMessageConstant       = "rebase script runner not configured"
	repositoryManagerMissingMessageConstant  = "repository manager not configured"
	pullRequestFactoryMissingMessageConstant = "pull request manager factory not configured"
	rebaseFailedMessageConstant              = "rebase script failed"

	authenticationErrorTemplateConstant     = "unable to obtain installation access token: %w"
	currentBranchErrorTemplateConstant      = "unable to determine current branch: %w"
	revisionComparisonErrorTemplateConstant = "unable to compare %s with %s: %w"
	logFileWriteErrorTemplateConstant       = "unable to write %s: %w"
	failureCommitErrorTemplateConstant      = "unable to commit failure artifacts: %w"
	remoteSetupErrorTemplateConstant        = "unable to configure remote %s: %w"
	remoteBranchLookupErrorTemplateConstant = "unable to inspect remote branch %s: %w"
	pushErrorTemplateConstant               = "pushing branch %s failed: %w"
	pullRequestErrorTemplateConstant        = "unable to reconcile pull request for %s: %w"

	rebaseStartedMessageConstant           = "Starting rebase"
	nothingToRebaseMessageConstant         = "No new commits compared to base branch; already rebased on the given releases"
	rebaseFailedWarningMessageConstant     = "Rebase script failed - everything will be committed"
	branchCreatedMessageConstant           = "Created branch for failure artifacts"
	remoteBranchMissingMessageConstant     = "Branch does not exist on remote"
	remoteBranchExistsMessageConstant      = "Branch already exists on remote"
	remoteBranchAmbiguousMessageConstant   = "Found more than one branch matching on remote, taking first one"
	remoteBranchCurrentMessageConstant     = "Remote branch is up to date"
	remoteBranchOutdatedMessageConstant    = "Remote branch is older and needs updating"
	forcePushMessageConstant               = "Branch existed and was updated (force push)"
	branchPushedMessageConstant            = "Pushed branch"
	pullRequestMissingMessageConstant      = "Pull request does not exist yet"
	pullRequestFoundMessageConstant        = "Found pull request"
	pullRequestsAmbiguousMessageConstant   = "Found more than one pull request for branch, continuing with the first one"
	pullRequestCreatedMessageConstant      = "Created pull request"
	pullRequestUpdatedMessageConstant      = "Updated pull request"
	dryRunCreatePullRequestMessageConstant = "[DRY RUN] Create pull request"
	dryRunUpdatePullRequestMessageConstant = "[DRY RUN] Update pull request"

	repositoryFieldNameConstant        = "repository"
	branchFieldNameConstant            = "branch"
	baseBranchFieldNameConstant        = "base_branch"
	remoteFieldNameConstant            = "remote"
	referencesFieldNameConstant        = "references"
	commitFieldNameConstant            = "commit"
	remoteMergeBaseFieldNameConstant   = "remote_merge_base"
	localMergeBaseFieldNameConstant    = "local_merge_base"
	pushSummaryFieldNameConstant       = "summary"
	pullRequestNumberFieldNameConstant = "pull_request_number"
	pullRequestURLFieldNameConstant    = "pull_request_url"
	pullRequestStateFieldNameConstant  = "pull_request_state"
	pullRequestCountFieldNameConstant  = "pull_request_count"
	titleFieldNameConstant             = "title"
	bodyFieldNameConstant              = "body"
	dryRunFieldNameConstant            = "dry_run"
	remoteReferenceTemplateConstant    = "%s/%s"
	repositorySlugTemplateConstant     = "%s/%s"
)

var (
	// ErrRebaseFailed reports that the rebase script exited unsuccessfully; the run is otherwise complete.
	ErrRebaseFailed = errors.New(rebaseFailedMessageConstant)
	// ErrLoggerNotConfigured indicates the service was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerMissingMessageConstant)
	// ErrTokenSourceNotConfigured indicates the service was constructed without a token source.
	ErrTokenSourceNotConfigured = errors.New(tokenSourceMissingMessageConstant)
	// ErrScriptRunnerNotConfigured indicates the service was constructed without a script runner.
	ErrScriptRunnerNotConfigured = errors.New(scriptRunnerMissingMessageConstant)
	// ErrRepositoryManagerNotConfigured indicates the service was constructed without a repository manager.
	ErrRepositoryManagerNotConfigured = errors.New(repositoryManagerMissingMessageConstant)
	// ErrPullRequestManagerFactoryNotConfigured indicates the service cannot reach the pull request API.
	ErrPullRequestManagerFactoryNotConfigured = errors.New(pullRequestFactoryMissingMessageConstant)
)

// TokenSource issues installation access tokens.
type TokenSource interface {
	InstallationToken(executionContext context.Context, organization string, repository string) (githubauth.InstallationToken, error)
}

// ScriptExecutor runs the rebase script.
type ScriptExecutor interface {
	Run(executionContext context.Context, invocation ScriptInvocation) (RebaseResult, error)
}

// RepositoryManager exposes the git operations required by the rebase workflow.
type RepositoryManager interface {
	GetCurrentBranch(executionContext context.Context, repositoryPath string) (string, error)
	ResolveRevision(executionContext context.Context, repositoryPath string, reference string) (string, error)
	DescribeCommit(executionContext context.Context, repositoryPath string, reference string) (string, error)
	CreateBranch(executionContext context.Context, repositoryPath string, branchName string) error
	StageAll(executionContext context.Context, repositoryPath string) error
	Commit(executionContext context.Context, repositoryPath string, message string) error
	EnsureRemote(executionContext context.Context, repositoryPath string, remoteName string, remoteURL string) error
	Fetch(executionContext context.Context, repositoryPath string, remoteName string) error
	FindRemoteBranchReferences(executionContext context.Context, repositoryPath string, remoteName string, branchName string) ([]string, error)
	MergeBase(executionContext context.Context, repositoryPath string, firstReference string, secondReference string) (string, error)
	ForcePush(executionContext context.Context, repositoryPath string, remoteName string, branchName string) (gitrepo.PushReferenceUpdate, error)
}

// PullRequestManager exposes the pull request operations required by the rebase workflow.
type PullRequestManager interface {
	ListPullRequests(executionContext context.Context, repository string, options githubcli.PullRequestListOptions) ([]githubcli.PullRequest, error)
	CreatePullRequest(executionContext context.Context, repository string, options githubcli.PullRequestCreateOptions) (githubcli.PullRequest, error)
	UpdatePullRequest(executionContext context.Context, repository string, pullRequestNumber int, options githubcli.PullRequestUpdateOptions) error
}

// PullRequestManagerFactory builds a PullRequestManager authenticated with an installation access token.
type PullRequestManagerFactory func(accessToken string) (PullRequestManager, error)

// PullRequestAction describes what happened to the pull request during a run.
type PullRequestAction string

// Pull request actions.
const (
	PullRequestActionNone    PullRequestAction = PullRequestAction("none")
	PullRequestActionCreated PullRequestAction = PullRequestAction("created")
	PullRequestActionUpdated PullRequestAction = PullRequestAction("updated")
)

// Options configures a single rebase run.
type Options struct {
	Configuration Configuration
	DryRun        bool
}

// Result summarizes a rebase run.
type Result struct {
	RebaseSucceeded   bool
	NothingToRebase   bool
	BranchName        string
	Pushed            bool
	PullRequestAction PullRequestAction
	PullRequestNumber int
	PullRequestURL    string
}

// ServiceDependencies enumerates collaborators required by Service.
type ServiceDependencies struct {
	Logger                    *zap.Logger
	TokenSource               TokenSource
	ScriptRunner              ScriptExecutor
	RepositoryManager         RepositoryManager
	PullRequestManagerFactory PullRequestManagerFactory
}

// Service orchestrates the rebase job from authentication to pull request reconciliation.
type Service struct {
	logger                    *zap.Logger
	tokenSource               TokenSource
	scriptRunner              ScriptExecutor
	repositoryManager         RepositoryManager
	pullRequestManagerFactory PullRequestManagerFactory
}

// NewService constructs a Service.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.TokenSource == nil {
		return nil, ErrTokenSourceNotConfigured
	}
	if dependencies.ScriptRunner == nil {
		return nil, ErrScriptRunnerNotConfigured
	}
	if dependencies.RepositoryManager == nil {
		return nil, ErrRepositoryManagerNotConfigured
	}
	if dependencies.PullRequestManagerFactory == nil {
		return nil, ErrPullRequestManagerFactoryNotConfigured
	}

	return &Service{
		logger:                    dependencies.Logger,
		tokenSource:               dependencies.TokenSource,
		scriptRunner:              dependencies.ScriptRunner,
		repositoryManager:         dependencies.RepositoryManager,
		pullRequestManagerFactory: dependencies.PullRequestManagerFactory,
	}, nil
}

// Execute performs one rebase run. A failed rebase script still publishes its artifacts and
// pull request, and is then reported as ErrRebaseFailed alongside the populated Result.
func (service *Service) Execute(executionContext context.Context, options Options) (Result, error) {
	configuration := options.Configuration.Sanitize()
	if validationError := configuration.Validate(); validationError != nil {
		return Result{}, validationError
	}

	repositorySlug := fmt.Sprintf(repositorySlugTemplateConstant, configuration.Organization, configuration.Repository)
	service.logger.Info(
		rebaseStartedMessageConstant,
		zap.String(repositoryFieldNameConstant, repositorySlug),
		zap.Bool(dryRunFieldNameConstant, options.DryRun),
	)

	installationToken, tokenError := service.tokenSource.InstallationToken(executionContext, configuration.Organization, configuration.Repository)
	if tokenError != nil {
		return Result{}, fmt.Errorf(authenticationErrorTemplateConstant, tokenError)
	}

	rebaseResult, scriptError := service.scriptRunner.Run(executionContext, ScriptInvocation{
		ScriptPath:       configuration.ScriptPath,
		WorkingDirectory: configuration.RepositoryPath,
		AMD64Release:     configuration.AMD64Release,
		ARM64Release:     configuration.ARM64Release,
	})
	if scriptError != nil {
		return Result{}, scriptError
	}

	branchName, branchError := service.repositoryManager.GetCurrentBranch(executionContext, configuration.RepositoryPath)
	if branchError != nil {
		return Result{}, fmt.Errorf(currentBranchErrorTemplateConstant, branchError)
	}

	result := Result{RebaseSucceeded: rebaseResult.Succeeded(), PullRequestAction: PullRequestActionNone}
	if rebaseResult.Succeeded() {
		nothingToRebase, comparisonError := service.branchMatchesBase(executionContext, configuration, branchName)
		if comparisonError != nil {
			return Result{}, comparisonError
		}
		if nothingToRebase {
			result.NothingToRebase = true
			result.BranchName = branchName
			return result, nil
		}
	} else {
		service.logger.Warn(rebaseFailedWarningMessageConstant)
		committedBranchName, commitError := service.commitFailureArtifacts(executionContext, configuration, branchName, rebaseResult)
		if commitError != nil {
			return Result{}, commitError
		}
		branchName = committedBranchName
	}
	result.BranchName = branchName

	pushRequired, remoteError := service.remoteBranchRequiresPush(executionContext, configuration, branchName, installationToken.Token)
	if remoteError != nil {
		return Result{}, remoteError
	}

	if pushRequired {
		pushed, pushError := service.pushBranch(executionContext, configuration, branchName, options.DryRun)
		if pushError != nil {
			return Result{}, pushError
		}
		result.Pushed = pushed
	}

	descriptor := NewPullRequestDescriptor(PullRequestContent{
		BranchName:      branchName,
		BaseBranch:      configuration.BaseBranch,
		AMD64Tag:        ReleaseTag(configuration.AMD64Release, service.logger),
		ARM64Tag:        ReleaseTag(configuration.ARM64Release, service.logger),
		JobURL:          ProwJobURL(configuration.JobName, configuration.BuildID, service.logger),
		LogFileName:     configuration.LogFileName,
		RebaseSucceeded: rebaseResult.Succeeded(),
	})

	pullRequestOutcome, pullRequestError := service.reconcilePullRequest(executionContext, repositorySlug, descriptor, installationToken.Token, options.DryRun)
	if pullRequestError != nil {
		return Result{}, fmt.Errorf(pullRequestErrorTemplateConstant, branchName, pullRequestError)
	}
	result.PullRequestAction = pullRequestOutcome.action
	result.PullRequestNumber = pullRequestOutcome.number
	result.PullRequestURL = pullRequestOutcome.url

	if !rebaseResult.Succeeded() {
		return result, ErrRebaseFailed
	}
	return result, nil
}

func (service *Service) branchMatchesBase(executionContext context.Context, configuration Configuration, branchName string) (bool, error) {
	branchRevision, branchRevisionError := service.repositoryManager.ResolveRevision(executionContext, configuration.RepositoryPath, branchName)
	if branchRevisionError != nil {
		return false, fmt.Errorf(revisionComparisonErrorTemplateConstant, branchName, configuration.BaseBranch, branchRevisionError)
	}

	baseRevision, baseRevisionError := service.repositoryManager.ResolveRevision(executionContext, configuration.RepositoryPath, configuration.BaseBranch)
	if baseRevisionError != nil {
		return false, fmt.Errorf(revisionComparisonErrorTemplateConstant, branchName, configuration.BaseBranch, baseRevisionError)
	}

	if branchRevision != baseRevision {
		return false, nil
	}

	service.logger.Info(
		nothingToRebaseMessageConstant,
		zap.String(branchFieldNameConstant, branchName),
		zap.String(baseBranchFieldNameConstant, configuration.BaseBranch),
		zap.String(commitFieldNameConstant, service.describeCommit(executionContext, configuration.RepositoryPath, branchRevision)),
	)
	return true, nil
}

func (service *Service) commitFailureArtifacts(executionContext context.Context, configuration Configuration, branchName string, rebaseResult RebaseResult) (string, error) {
	logFilePath := filepath.Join(configuration.RepositoryPath, configuration.LogFileName)
	if writeError := os.WriteFile(logFilePath, []byte(rebaseResult.Output()), logFilePermissionsConstant); writeError != nil {
		return "", fmt.Errorf(logFileWriteErrorTemplateConstant, logFilePath, writeError)
	}

	if branchName == configuration.BaseBranch {
		branchName = ReleaseTag(configuration.AMD64Release, service.logger)
		if createError := service.repositoryManager.CreateBranch(executionContext, configuration.RepositoryPath, branchName); createError != nil {
			return "", fmt.Errorf(failureCommitErrorTemplateConstant, createError)
		}
		service.logger.Info(branchCreatedMessageConstant, zap.String(branchFieldNameConstant, branchName))
	}

	if stageError := service.repositoryManager.StageAll(executionContext, configuration.RepositoryPath); stageError != nil {
		return "", fmt.Errorf(failureCommitErrorTemplateConstant, stageError)
	}
	if commitError := service.repositoryManager.Commit(executionContext, configuration.RepositoryPath, failureCommitMessageConstant); commitError != nil {
		return "", fmt.Errorf(failureCommitErrorTemplateConstant, commitError)
	}
	return branchName, nil
}

func (service *Service) remoteBranchRequiresPush(executionContext context.Context, configuration Configuration, branchName string, accessToken string) (bool, error) {
	remoteURL, remoteURLError := gitrepo.AuthenticatedGitHubRemoteURL(configuration.Organization, configuration.Repository, accessToken)
	if remoteURLError != nil {
		return false, fmt.Errorf(remoteSetupErrorTemplateConstant, configuration.RemoteName, remoteURLError)
	}
	if ensureError := service.repositoryManager.EnsureRemote(executionContext, configuration.RepositoryPath, configuration.RemoteName, remoteURL); ensureError != nil {
		return false, fmt.Errorf(remoteSetupErrorTemplateConstant, configuration.RemoteName, ensureError)
	}
	if fetchError := service.repositoryManager.Fetch(executionContext, configuration.RepositoryPath, configuration.RemoteName); fetchError != nil {
		return false, fmt.Errorf(remoteSetupErrorTemplateConstant, configuration.RemoteName, fetchError)
	}

	remoteBranchLabel := fmt.Sprintf(remoteReferenceTemplateConstant, configuration.RemoteName, branchName)
	references, lookupError := service.repositoryManager.FindRemoteBranchReferences(executionContext, configuration.RepositoryPath, configuration.RemoteName, branchName)
	if lookupError != nil {
		return false, fmt.Errorf(remoteBranchLookupErrorTemplateConstant, remoteBranchLabel, lookupError)
	}

	switch {
	case len(references) == 0:
		service.logger.Info(remoteBranchMissingMessageConstant, zap.String(branchFieldNameConstant, branchName), zap.String(remoteFieldNameConstant, configuration.RemoteName))
		return true, nil
	case len(references) > 1:
		service.logger.Error(remoteBranchAmbiguousMessageConstant, zap.String(branchFieldNameConstant, branchName), zap.Strings(referencesFieldNameConstant, references))
	default:
		service.logger.Info(remoteBranchExistsMessageConstant, zap.String(branchFieldNameConstant, branchName), zap.String(remoteFieldNameConstant, configuration.RemoteName))
	}

	remoteMergeBase, remoteMergeBaseError := service.repositoryManager.MergeBase(executionContext, configuration.RepositoryPath, configuration.BaseBranch, references[0])
	if remoteMergeBaseError != nil {
		return false, fmt.Errorf(remoteBranchLookupErrorTemplateConstant, remoteBranchLabel, remoteMergeBaseError)
	}
	localMergeBase, localMergeBaseError := service.repositoryManager.MergeBase(executionContext, configuration.RepositoryPath, configuration.BaseBranch, branchName)
	if localMergeBaseError != nil {
		return false, fmt.Errorf(remoteBranchLookupErrorTemplateConstant, remoteBranchLabel, localMergeBaseError)
	}

	if remoteMergeBase == localMergeBase {
		service.logger.Info(remoteBranchCurrentMessageConstant, zap.String(commitFieldNameConstant, service.describeCommit(executionContext, configuration.RepositoryPath, remoteMergeBase)))
		return false, nil
	}

	service.logger.Info(
		remoteBranchOutdatedMessageConstant,
		zap.String(remoteMergeBaseFieldNameConstant, service.describeCommit(executionContext, configuration.RepositoryPath, remoteMergeBase)),
		zap.String(localMergeBaseFieldNameConstant, service.describeCommit(executionContext, configuration.RepositoryPath, localMergeBase)),
	)
	return true, nil
}

func (service *Service) pushBranch(executionContext context.Context, configuration Configuration, branchName string, dryRun bool) (bool, error) {
	if dryRun {
		service.logger.Info(fmt.Sprintf(dryRunPushTemplateConstant, branchName))
		return false, nil
	}

	update, pushError := service.repositoryManager.ForcePush(executionContext, configuration.RepositoryPath, configuration.RemoteName, branchName)
	if pushError != nil {
		return false, fmt.Errorf(pushErrorTemplateConstant, branchName, pushError)
	}

	if update.Forced() {
		service.logger.Info(forcePushMessageConstant, zap.String(branchFieldNameConstant, branchName))
	} else {
		service.logger.Info(branchPushedMessageConstant, zap.String(branchFieldNameConstant, branchName), zap.String(pushSummaryFieldNameConstant, update.Summary))
	}
	return true, nil
}

type pullRequestOutcome struct {
	action PullRequestAction
	number int
	url    string
}

func (service *Service) reconcilePullRequest(executionContext context.Context, repositorySlug string, descriptor PullRequestDescriptor, accessToken string, dryRun bool) (pullRequestOutcome, error) {
	pullRequestManager, factoryError := service.pullRequestManagerFactory(accessToken)
	if factoryError != nil {
		return pullRequestOutcome{}, factoryError
	}

	pullRequests, listError := pullRequestManager.ListPullRequests(executionContext, repositorySlug, githubcli.PullRequestListOptions{
		State:      githubcli.PullRequestStateAll,
		BaseBranch: descriptor.BaseBranch,
		HeadBranch: descriptor.HeadBranch,
	})
	if listError != nil {
		return pullRequestOutcome{}, listError
	}

	if len(pullRequests) == 0 {
		service.logger.Info(pullRequestMissingMessageConstant, zap.String(branchFieldNameConstant, descriptor.HeadBranch), zap.String(repositoryFieldNameConstant, repositorySlug))
		if dryRun {
			service.logger.Info(
				dryRunCreatePullRequestMessageConstant,
				zap.String(branchFieldNameConstant, descriptor.HeadBranch),
				zap.String(titleFieldNameConstant, descriptor.Title),
				zap.String(bodyFieldNameConstant, descriptor.Body),
			)
			return pullRequestOutcome{action: PullRequestActionNone}, nil
		}

		createdPullRequest, createError := pullRequestManager.CreatePullRequest(executionContext, repositorySlug, githubcli.PullRequestCreateOptions{
			Title:      descriptor.Title,
			Body:       descriptor.Body,
			BaseBranch: descriptor.BaseBranch,
			HeadBranch: descriptor.HeadBranch,
		})
		if createError != nil {
			return pullRequestOutcome{}, createError
		}
		service.logger.Info(pullRequestCreatedMessageConstant, zap.String(pullRequestURLFieldNameConstant, createdPullRequest.URL))
		return pullRequestOutcome{action: PullRequestActionCreated, number: createdPullRequest.Number, url: createdPullRequest.URL}, nil
	}

	existingPullRequest := pullRequests[0]
	if len(pullRequests) > 1 {
		service.logger.Warn(
			pullRequestsAmbiguousMessageConstant,
			zap.String(branchFieldNameConstant, descriptor.HeadBranch),
			zap.Int(pullRequestCountFieldNameConstant, len(pullRequests)),
			zap.String(pullRequestURLFieldNameConstant, existingPullRequest.URL),
		)
	} else {
		service.logger.Info(
			pullRequestFoundMessageConstant,
			zap.String(pullRequestStateFieldNameConstant, existingPullRequest.State),
			zap.String(pullRequestURLFieldNameConstant, existingPullRequest.URL),
		)
	}

	if dryRun {
		service.logger.Info(
			dryRunUpdatePullRequestMessageConstant,
			zap.Int(pullRequestNumberFieldNameConstant, existingPullRequest.Number),
			zap.String(titleFieldNameConstant, descriptor.Title),
			zap.String(bodyFieldNameConstant, descriptor.Body),
		)
		return pullRequestOutcome{action: PullRequestActionNone, number: existingPullRequest.Number, url: existingPullRequest.URL}, nil
	}

	updateError := pullRequestManager.UpdatePullRequest(executionContext, repositorySlug, existingPullRequest.Number, githubcli.PullRequestUpdateOptions{
		Title: descriptor.Title,
		Body:  descriptor.Body,
	})
	if updateError != nil {
		return pullRequestOutcome{}, updateError
	}
	service.logger.Info(pullRequestUpdatedMessageConstant, zap.Int(pullRequestNumberFieldNameConstant, existingPullRequest.Number), zap.String(pullRequestURLFieldNameConstant, existingPullRequest.URL))
	return pullRequestOutcome{action: PullRequestActionUpdated, number: existingPullRequest.Number, url: existingPullRequest.URL}, nil
}

// describeCommit renders a commit for log output, falling back to the raw revision.
func (service *Service) describeCommit(executionContext context.Context, repositoryPath string, revision string) string {
	summary, summaryError := service.repositoryManager.DescribeCommit(executionContext, repositoryPath, revision)
	if summaryError != nil || len(summary) == 0 {
		return revision
	}
	return summary
}
