package githubauth

// Environment variable names used by GitHub authentication helpers.
const (
	// EnvGitHubCLIToken authenticates gh invocations.
	EnvGitHubCLIToken = "GH_TOKEN"
	// EnvGitHubAPIURL overrides the GitHub REST API base URL, mirroring the variable set by GitHub Actions.
	EnvGitHubAPIURL = "GITHUB_API_URL"
)
