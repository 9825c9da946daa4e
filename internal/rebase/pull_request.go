package rebase

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	failureTitlePrefixConstant           = "**FAILURE** "
	failureBodyHeaderTemplateConstant    = "# rebase.sh failed - check committed %s\n"
	pullRequestBodyTemplateConstant      = "amd64: %s\narm64: %s\nprow job: %s\n\n/label tide/merge-method-squash"
	prowJobURLTemplateConstant           = "https://prow.ci.openshift.org/view/gs/origin-ci-test/logs/%s/%s"
	prowJobURLInferredMessageConstant    = "Inferred probable prow job url"
	prowJobURLUnavailableMessageConstant = "Could not infer prow job url"
	prowJobURLFieldNameConstant          = "url"
	jobNameFieldNameConstant             = "job_name"
	buildIdentifierFieldNameConstant     = "build_id"
)

// PullRequestDescriptor is the title, body, and branches of the pull request reporting a rebase.
type PullRequestDescriptor struct {
	Title      string
	Body       string
	BaseBranch string
	HeadBranch string
}

// PullRequestContent holds the inputs rendered into a PullRequestDescriptor.
type PullRequestContent struct {
	BranchName      string
	BaseBranch      string
	AMD64Tag        string
	ARM64Tag        string
	JobURL          string
	LogFileName     string
	RebaseSucceeded bool
}

// NewPullRequestDescriptor renders the pull request title and body for a rebase outcome.
func NewPullRequestDescriptor(content PullRequestContent) PullRequestDescriptor {
	return PullRequestDescriptor{
		Title:      PullRequestTitle(content.BranchName, content.RebaseSucceeded),
		Body:       PullRequestBody(content),
		BaseBranch: content.BaseBranch,
		HeadBranch: content.BranchName,
	}
}

// PullRequestTitle returns the branch name, marked when the rebase failed.
func PullRequestTitle(branchName string, rebaseSucceeded bool) string {
	if rebaseSucceeded {
		return branchName
	}
	return failureTitlePrefixConstant + branchName
}

// PullRequestBody lists the release tags and CI job, preceded by a failure header when the rebase failed.
func PullRequestBody(content PullRequestContent) string {
	body := fmt.Sprintf(pullRequestBodyTemplateConstant, content.AMD64Tag, content.ARM64Tag, content.JobURL)
	if content.RebaseSucceeded {
		return body
	}

	logFileName := content.LogFileName
	if len(strings.TrimSpace(logFileName)) == 0 {
		logFileName = defaultLogFileNameConstant
	}
	return fmt.Sprintf(failureBodyHeaderTemplateConstant, logFileName) + body
}

// ProwJobURL builds the CI job link from the job name and build identifier.
// Either value missing yields an empty link and a warning.
func ProwJobURL(jobName string, buildIdentifier string, logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}

	trimmedJobName := strings.TrimSpace(jobName)
	trimmedBuildIdentifier := strings.TrimSpace(buildIdentifier)
	if len(trimmedJobName) == 0 || len(trimmedBuildIdentifier) == 0 {
		logger.Warn(
			prowJobURLUnavailableMessageConstant,
			zap.String(jobNameFieldNameConstant, trimmedJobName),
			zap.String(buildIdentifierFieldNameConstant, trimmedBuildIdentifier),
		)
		return ""
	}

	jobURL := fmt.Sprintf(prowJobURLTemplateConstant, trimmedJobName, trimmedBuildIdentifier)
	logger.Info(prowJobURLInferredMessageConstant, zap.String(prowJobURLFieldNameConstant, jobURL))
	return jobURL
}
