package gitrepo

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// GitHubHost is the host serving GitHub repositories over HTTPS.
	GitHubHost = "github.com"
	// AccessTokenUsername is the user name GitHub expects alongside an installation access token.
	AccessTokenUsername = "x-access-token"

	httpsSchemeConstant               = "https"
	pathSeparatorConstant             = "/"
	remoteURLErrorTemplateConstant    = "%s: %s"
	ownerFieldNameConstant            = "owner"
	repositoryFieldNameConstant       = "repository"
	accessTokenFieldNameConstant      = "access_token"
	invalidPathSegmentMessageConstant = "must not contain path separators"
)

// RemoteURLError indicates a remote URL could not be assembled from its parts.
type RemoteURLError struct {
	FieldName string
	Message   string
}

// Error describes the invalid component.
func (remoteError RemoteURLError) Error() string {
	return fmt.Sprintf(remoteURLErrorTemplateConstant, remoteError.FieldName, remoteError.Message)
}

// RemoteURL identifies a repository reachable over HTTPS.
type RemoteURL struct {
	Host        string
	Owner       string
	Repository  string
	AccessToken string
}

// String renders the remote with embedded credentials when an access token is present.
func (remote RemoteURL) String() string {
	formatted, _ := FormatRemoteURL(remote)
	return formatted
}

// FormatRemoteURL renders remote as https://[x-access-token:TOKEN@]host/owner/repository.
func FormatRemoteURL(remote RemoteURL) (string, error) {
	host := strings.TrimSpace(remote.Host)
	if len(host) == 0 {
		host = GitHubHost
	}

	owner := strings.TrimSpace(remote.Owner)
	if validationError := validatePathSegment(ownerFieldNameConstant, owner); validationError != nil {
		return "", validationError
	}

	repository := strings.TrimSpace(remote.Repository)
	if validationError := validatePathSegment(repositoryFieldNameConstant, repository); validationError != nil {
		return "", validationError
	}

	formattedURL := url.URL{
		Scheme: httpsSchemeConstant,
		Host:   host,
		Path:   pathSeparatorConstant + owner + pathSeparatorConstant + repository,
	}
	if accessToken := strings.TrimSpace(remote.AccessToken); len(accessToken) > 0 {
		formattedURL.User = url.UserPassword(AccessTokenUsername, accessToken)
	}
	return formattedURL.String(), nil
}

// AuthenticatedGitHubRemoteURL returns the GitHub HTTPS remote for owner/repository carrying accessToken.
func AuthenticatedGitHubRemoteURL(owner string, repository string, accessToken string) (string, error) {
	if len(strings.TrimSpace(accessToken)) == 0 {
		return "", RemoteURLError{FieldName: accessTokenFieldNameConstant, Message: requiredValueMessageConstant}
	}
	return FormatRemoteURL(RemoteURL{Host: GitHubHost, Owner: owner, Repository: repository, AccessToken: accessToken})
}

func validatePathSegment(fieldName string, value string) error {
	if len(value) == 0 {
		return RemoteURLError{FieldName: fieldName, Message: requiredValueMessageConstant}
	}
	if strings.Contains(value, pathSeparatorConstant) {
		return RemoteURLError{FieldName: fieldName, Message: invalidPathSegmentMessageConstant}
	}
	return nil
}
