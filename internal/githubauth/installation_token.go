package githubauth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-github/v75/github"
	"go.uber.org/zap"
)

const (
	// DefaultAPIBaseURL is the public GitHub REST API endpoint.
	DefaultAPIBaseURL = "https://api.github.com"

	defaultRequestTimeoutConstant             = 30 * time.Second
	applicationIdentifierRequiredMessage      = "github app identifier required"
	privateKeyRequiredMessageConstant         = "github app private key required"
	applicationIdentifierParseErrorTemplate   = "github app identifier %q is not numeric: %w"
	apiBaseURLParseErrorTemplateConstant      = "invalid github api url %q: %w"
	privateKeyReadErrorTemplateConstant       = "unable to read github app private key %s: %w"
	privateKeyParseErrorTemplateConstant      = "unable to parse github app private key: %w"
	unexpectedStatusErrorTemplateConstant     = "%s returned status %d: %s"
	installationLookupErrorTemplateConstant   = "unable to resolve github app installation for %s/%s: %w"
	accessTokenErrorTemplateConstant          = "unable to issue installation access token for installation %d: %w"
	installationNotFoundErrorTemplateConstant = "github app is not installed on %s/%s"
	emptyAccessTokenMessageConstant           = "github returned an empty installation access token"
	installationResolvedMessageConstant       = "Resolved GitHub App installation"
	accessTokenIssuedMessageConstant          = "Issued installation access token"
	organizationFieldNameConstant             = "organization"
	repositoryFieldNameConstant               = "repository"
	installationFieldNameConstant             = "installation_id"
	expiresAtFieldNameConstant                = "expires_at"
)

var (
	// ErrApplicationIdentifierMissing indicates the token source lacks an app identifier.
	ErrApplicationIdentifierMissing = errors.New(applicationIdentifierRequiredMessage)
	// ErrPrivateKeyMissing indicates the token source lacks a signing key.
	ErrPrivateKeyMissing = errors.New(privateKeyRequiredMessageConstant)
	// ErrEmptyAccessToken indicates GitHub answered without a token value.
	ErrEmptyAccessToken = errors.New(emptyAccessTokenMessageConstant)
)

// InstallationNotFoundError reports that the app has no installation for a repository.
type InstallationNotFoundError struct {
	Organization string
	Repository   string
}

// Error describes the missing installation.
func (notFoundError InstallationNotFoundError) Error() string {
	return fmt.Sprintf(installationNotFoundErrorTemplateConstant, notFoundError.Organization, notFoundError.Repository)
}

// UnexpectedStatusError reports a GitHub API response with an unexpected status code.
type UnexpectedStatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

// Error describes the unexpected response.
func (statusError UnexpectedStatusError) Error() string {
	return fmt.Sprintf(unexpectedStatusErrorTemplateConstant, statusError.Endpoint, statusError.StatusCode, statusError.Body)
}

// InstallationToken is a short-lived credential scoped to one app installation.
type InstallationToken struct {
	Token          string
	ExpiresAt      time.Time
	InstallationID int64
}

// InstallationTokenSourceConfiguration describes the GitHub App credentials.
type InstallationTokenSourceConfiguration struct {
	ApplicationIdentifier string
	PrivateKeyPath        string
	APIBaseURL            string
}

// InstallationTokenSource exchanges GitHub App credentials for installation access tokens.
type InstallationTokenSource struct {
	client *github.Client
	logger *zap.Logger
}

// NewInstallationTokenSource reads the PEM private key and prepares a token source.
// A nil transport selects http.DefaultTransport; a nil logger disables logging.
func NewInstallationTokenSource(configuration InstallationTokenSourceConfiguration, transport http.RoundTripper, logger *zap.Logger) (*InstallationTokenSource, error) {
	applicationIdentifier := strings.TrimSpace(configuration.ApplicationIdentifier)
	if len(applicationIdentifier) == 0 {
		return nil, ErrApplicationIdentifierMissing
	}

	privateKeyPath := strings.TrimSpace(configuration.PrivateKeyPath)
	if len(privateKeyPath) == 0 {
		return nil, ErrPrivateKeyMissing
	}

	privateKeyContent, readError := os.ReadFile(privateKeyPath)
	if readError != nil {
		return nil, fmt.Errorf(privateKeyReadErrorTemplateConstant, privateKeyPath, readError)
	}

	privateKey, parseError := jwt.ParseRSAPrivateKeyFromPEM(privateKeyContent)
	if parseError != nil {
		return nil, fmt.Errorf(privateKeyParseErrorTemplateConstant, parseError)
	}

	return newInstallationTokenSource(applicationIdentifier, privateKey, configuration.APIBaseURL, transport, logger)
}

func newInstallationTokenSource(applicationIdentifier string, privateKey *rsa.PrivateKey, apiBaseURL string, transport http.RoundTripper, logger *zap.Logger) (*InstallationTokenSource, error) {
	if privateKey == nil {
		return nil, ErrPrivateKeyMissing
	}

	numericIdentifier, identifierError := strconv.ParseInt(applicationIdentifier, 10, 64)
	if identifierError != nil {
		return nil, fmt.Errorf(applicationIdentifierParseErrorTemplate, applicationIdentifier, identifierError)
	}

	resolvedBaseURL := strings.TrimRight(strings.TrimSpace(apiBaseURL), "/")
	if len(resolvedBaseURL) == 0 {
		resolvedBaseURL = DefaultAPIBaseURL
	}
	parsedBaseURL, urlError := url.Parse(resolvedBaseURL + "/")
	if urlError != nil {
		return nil, fmt.Errorf(apiBaseURLParseErrorTemplateConstant, resolvedBaseURL, urlError)
	}

	if transport == nil {
		transport = http.DefaultTransport
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	applicationTransport := ghinstallation.NewAppsTransportFromPrivateKey(transport, numericIdentifier, privateKey)
	applicationTransport.BaseURL = resolvedBaseURL

	client := github.NewClient(&http.Client{Transport: applicationTransport, Timeout: defaultRequestTimeoutConstant})
	client.BaseURL = parsedBaseURL

	return &InstallationTokenSource{client: client, logger: logger}, nil
}

// InstallationToken resolves the app installation for organization/repository and issues an access token for it.
func (source *InstallationTokenSource) InstallationToken(executionContext context.Context, organization string, repository string) (InstallationToken, error) {
	installation, _, lookupError := source.client.Apps.FindRepositoryInstallation(executionContext, organization, repository)
	if lookupError != nil {
		if responseStatus(lookupError) == http.StatusNotFound {
			return InstallationToken{}, InstallationNotFoundError{Organization: organization, Repository: repository}
		}
		return InstallationToken{}, fmt.Errorf(installationLookupErrorTemplateConstant, organization, repository, classifyResponseError(lookupError))
	}
	installationIdentifier := installation.GetID()

	source.logger.Info(
		installationResolvedMessageConstant,
		zap.String(organizationFieldNameConstant, organization),
		zap.String(repositoryFieldNameConstant, repository),
		zap.Int64(installationFieldNameConstant, installationIdentifier),
	)

	accessToken, _, exchangeError := source.client.Apps.CreateInstallationToken(executionContext, installationIdentifier, nil)
	if exchangeError != nil {
		return InstallationToken{}, fmt.Errorf(accessTokenErrorTemplateConstant, installationIdentifier, classifyResponseError(exchangeError))
	}

	if len(strings.TrimSpace(accessToken.GetToken())) == 0 {
		return InstallationToken{}, ErrEmptyAccessToken
	}

	expiresAt := accessToken.GetExpiresAt().Time
	source.logger.Info(
		accessTokenIssuedMessageConstant,
		zap.Int64(installationFieldNameConstant, installationIdentifier),
		zap.Time(expiresAtFieldNameConstant, expiresAt),
	)

	return InstallationToken{
		Token:          accessToken.GetToken(),
		ExpiresAt:      expiresAt,
		InstallationID: installationIdentifier,
	}, nil
}

func responseStatus(apiError error) int {
	var errorResponse *github.ErrorResponse
	if errors.As(apiError, &errorResponse) && errorResponse.Response != nil {
		return errorResponse.Response.StatusCode
	}
	return 0
}

// classifyResponseError turns GitHub error responses into UnexpectedStatusError and passes other errors through.
func classifyResponseError(apiError error) error {
	var errorResponse *github.ErrorResponse
	if !errors.As(apiError, &errorResponse) || errorResponse.Response == nil {
		return apiError
	}
	endpoint := ""
	if errorResponse.Response.Request != nil && errorResponse.Response.Request.URL != nil {
		endpoint = errorResponse.Response.Request.URL.Path
	}
	return UnexpectedStatusError{
		Endpoint:   endpoint,
		StatusCode: errorResponse.Response.StatusCode,
		Body:       errorResponse.Message,
	}
}
