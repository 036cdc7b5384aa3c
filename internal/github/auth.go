package github

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gh "github.com/google/go-github/v66/github"
	log "github.com/sirupsen/logrus"
)

// AppAuth holds GitHub App authentication configuration
type AppAuth struct {
	AppID      string
	PrivateKey string
	APIURL     string
}

// InstallationToken represents a GitHub App installation access token
type InstallationToken struct {
	Token     string
	ExpiresAt time.Time
}

// GenerateJWT creates a JWT token for GitHub App authentication
func (a *AppAuth) GenerateJWT() (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(a.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}

	appID, err := strconv.ParseInt(a.AppID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid app ID: %w", err)
	}

	// GitHub rejects tokens issued in the future; backdate for clock drift.
	now := time.Now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(9 * time.Minute)),
		Issuer:    strconv.FormatInt(appID, 10),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}

	return signedToken, nil
}

// GetInstallationToken gets an installation access token for owner/repo
func (a *AppAuth) GetInstallationToken(ctx context.Context, owner, repo string) (*InstallationToken, error) {
	jwtToken, err := a.GenerateJWT()
	if err != nil {
		return nil, err
	}

	client, err := newAPIClient(jwtToken, a.APIURL)
	if err != nil {
		return nil, err
	}

	installation, _, err := client.Apps.FindRepositoryInstallation(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to get installation for %s/%s: %w", owner, repo, err)
	}

	token, _, err := client.Apps.CreateInstallationToken(ctx, installation.GetID(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	log.WithFields(log.Fields{
		"repository":      owner + "/" + repo,
		"installation-id": installation.GetID(),
	}).Debug("obtained installation token")

	return &InstallationToken{
		Token:     token.GetToken(),
		ExpiresAt: token.GetExpiresAt().Time,
	}, nil
}

// Credentials picks between a static token and a GitHub App. The static
// token wins when both are set.
type Credentials struct {
	Token string
	App   *AppAuth
}

// TokenFor returns a token usable against owner/repo.
func (c Credentials) TokenFor(ctx context.Context, owner, repo string) (string, error) {
	if c.Token != "" {
		return c.Token, nil
	}
	if c.App == nil {
		return "", fmt.Errorf("no GitHub credentials configured")
	}
	token, err := c.App.GetInstallationToken(ctx, owner, repo)
	if err != nil {
		return "", err
	}
	return token.Token, nil
}

// ClientFor builds a comments client for owner/repo.
func (c Credentials) ClientFor(ctx context.Context, owner, repo, apiURL string) (*Client, error) {
	token, err := c.TokenFor(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	return NewClient(token, apiURL)
}

func newAPIClient(token, apiURL string) (*gh.Client, error) {
	client := gh.NewClient(nil).WithAuthToken(token)
	if apiURL == "" || strings.TrimSuffix(apiURL, "/") == strings.TrimSuffix(DefaultAPIURL, "/") {
		return client, nil
	}
	client, err := client.WithEnterpriseURLs(apiURL, apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL %q: %w", apiURL, err)
	}
	return client, nil
}
