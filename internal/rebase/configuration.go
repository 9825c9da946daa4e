package rebase

import (
	"fmt"
	"strings"

	pathutils "github.com/temirov/rebasebot/internal/utils/path"
)

const (
	// ApplicationIdentifierEnvironmentVariable names the GitHub App identifier input.
	ApplicationIdentifierEnvironmentVariable = "APP_ID"
	// PrivateKeyEnvironmentVariable names the path to the GitHub App PEM key.
	PrivateKeyEnvironmentVariable = "KEY"
	// OrganizationEnvironmentVariable names the repository owner.
	OrganizationEnvironmentVariable = "ORG"
	// RepositoryEnvironmentVariable names the repository.
	RepositoryEnvironmentVariable = "REPO"
	// AMD64ReleaseEnvironmentVariable names the amd64 release image reference.
	AMD64ReleaseEnvironmentVariable = "AMD64_RELEASE"
	// ARM64ReleaseEnvironmentVariable names the arm64 release image reference.
	ARM64ReleaseEnvironmentVariable = "ARM64_RELEASE"
	// JobNameEnvironmentVariable names the CI job producing the run.
	JobNameEnvironmentVariable = "JOB_NAME"
	// BuildIdentifierEnvironmentVariable names the CI build of the run.
	BuildIdentifierEnvironmentVariable = "BUILD_ID"
	// ScriptPathEnvironmentVariable overrides the rebase script location.
	ScriptPathEnvironmentVariable = "REBASE_SCRIPT"

	applicationIdentifierKeyConstant = "app_id"
	privateKeyPathKeyConstant        = "key"
	organizationKeyConstant          = "org"
	repositoryKeyConstant            = "repo"
	amd64ReleaseKeyConstant          = "amd64_release"
	arm64ReleaseKeyConstant          = "arm64_release"
	jobNameKeyConstant               = "job_name"
	buildIdentifierKeyConstant       = "build_id"
	scriptPathKeyConstant            = "script"
	configurationKeySeparator        = "."

	defaultScriptPathConstant     = "./scripts/auto-rebase/rebase.sh"
	defaultRepositoryPathConstant = "."
	defaultBaseBranchConstant     = "main"
	defaultRemoteNameConstant     = "bot-creds"
	defaultLogFileNameConstant    = "rebase_sh.log"

	missingConfigurationTemplateConstant = "could not get environment variable '%s'"
)

// Configuration describes the inputs of a rebase run.
type Configuration struct {
	ApplicationIdentifier string `mapstructure:"app_id"`
	PrivateKeyPath        string `mapstructure:"key"`
	Organization          string `mapstructure:"org"`
	Repository            string `mapstructure:"repo"`
	AMD64Release          string `mapstructure:"amd64_release"`
	ARM64Release          string `mapstructure:"arm64_release"`
	JobName               string `mapstructure:"job_name"`
	BuildID               string `mapstructure:"build_id"`
	ScriptPath            string `mapstructure:"script"`
	RepositoryPath        string `mapstructure:"repository_path"`
	BaseBranch            string `mapstructure:"base_branch"`
	RemoteName            string `mapstructure:"remote_name"`
	LogFileName           string `mapstructure:"log_file"`
	APIBaseURL            string `mapstructure:"api_url"`
}

// MissingConfigurationError reports the first required input that is unset or empty.
type MissingConfigurationError struct {
	EnvironmentVariable string
}

// Error describes the missing input.
func (missingError MissingConfigurationError) Error() string {
	return fmt.Sprintf(missingConfigurationTemplateConstant, missingError.EnvironmentVariable)
}

// DefaultConfiguration returns the settings used when nothing else is configured.
func DefaultConfiguration() Configuration {
	return Configuration{
		ScriptPath:     defaultScriptPathConstant,
		RepositoryPath: defaultRepositoryPathConstant,
		BaseBranch:     defaultBaseBranchConstant,
		RemoteName:     defaultRemoteNameConstant,
		LogFileName:    defaultLogFileNameConstant,
	}
}

// EnvironmentBindings maps configuration keys under sectionKey to the environment variables the rebase job receives.
func EnvironmentBindings(sectionKey string) map[string][]string {
	prefix := strings.TrimSpace(sectionKey)
	if len(prefix) > 0 {
		prefix += configurationKeySeparator
	}
	return map[string][]string{
		prefix + applicationIdentifierKeyConstant: {ApplicationIdentifierEnvironmentVariable},
		prefix + privateKeyPathKeyConstant:        {PrivateKeyEnvironmentVariable},
		prefix + organizationKeyConstant:          {OrganizationEnvironmentVariable},
		prefix + repositoryKeyConstant:            {RepositoryEnvironmentVariable},
		prefix + amd64ReleaseKeyConstant:          {AMD64ReleaseEnvironmentVariable},
		prefix + arm64ReleaseKeyConstant:          {ARM64ReleaseEnvironmentVariable},
		prefix + jobNameKeyConstant:               {JobNameEnvironmentVariable},
		prefix + buildIdentifierKeyConstant:       {BuildIdentifierEnvironmentVariable},
		prefix + scriptPathKeyConstant:            {ScriptPathEnvironmentVariable},
	}
}

// Validate checks the required inputs in a fixed order and reports the first one missing.
func (configuration Configuration) Validate() error {
	requiredValues := []struct {
		environmentVariable string
		value               string
	}{
		{environmentVariable: ApplicationIdentifierEnvironmentVariable, value: configuration.ApplicationIdentifier},
		{environmentVariable: PrivateKeyEnvironmentVariable, value: configuration.PrivateKeyPath},
		{environmentVariable: OrganizationEnvironmentVariable, value: configuration.Organization},
		{environmentVariable: RepositoryEnvironmentVariable, value: configuration.Repository},
		{environmentVariable: AMD64ReleaseEnvironmentVariable, value: configuration.AMD64Release},
		{environmentVariable: ARM64ReleaseEnvironmentVariable, value: configuration.ARM64Release},
	}

	for _, requiredValue := range requiredValues {
		if len(strings.TrimSpace(requiredValue.value)) == 0 {
			return MissingConfigurationError{EnvironmentVariable: requiredValue.environmentVariable}
		}
	}
	return nil
}

// Sanitize trims every value and restores defaults for the optional settings left empty.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := Configuration{
		ApplicationIdentifier: strings.TrimSpace(configuration.ApplicationIdentifier),
		PrivateKeyPath:        pathutils.ExpandHome(strings.TrimSpace(configuration.PrivateKeyPath)),
		Organization:          strings.TrimSpace(configuration.Organization),
		Repository:            strings.TrimSpace(configuration.Repository),
		AMD64Release:          strings.TrimSpace(configuration.AMD64Release),
		ARM64Release:          strings.TrimSpace(configuration.ARM64Release),
		JobName:               strings.TrimSpace(configuration.JobName),
		BuildID:               strings.TrimSpace(configuration.BuildID),
		ScriptPath:            pathutils.ExpandHome(valueOrDefault(configuration.ScriptPath, defaults.ScriptPath)),
		RepositoryPath:        pathutils.ExpandHome(valueOrDefault(configuration.RepositoryPath, defaults.RepositoryPath)),
		BaseBranch:            valueOrDefault(configuration.BaseBranch, defaults.BaseBranch),
		RemoteName:            valueOrDefault(configuration.RemoteName, defaults.RemoteName),
		LogFileName:           valueOrDefault(configuration.LogFileName, defaults.LogFileName),
		APIBaseURL:            strings.TrimSpace(configuration.APIBaseURL),
	}
	return sanitized
}

func valueOrDefault(value string, defaultValue string) string {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return defaultValue
	}
	return trimmedValue
}
