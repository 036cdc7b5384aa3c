package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v66/github"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultAPIURL is the public GitHub REST endpoint.
	DefaultAPIURL = "https://api.github.com/"

	commentsPerPage = 100
)

// Client wraps the issue comments API of go-github.
type Client struct {
	api *gh.Client
}

// NewClient returns a client authenticated with token. A non-default apiURL
// selects a GitHub Enterprise Server endpoint.
func NewClient(token, apiURL string) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("github token is required")
	}

	client, err := newAPIClient(token, apiURL)
	if err != nil {
		return nil, err
	}

	return &Client{api: client}, nil
}

// NewClientFromGitHub wraps an existing go-github client.
func NewClientFromGitHub(client *gh.Client) *Client {
	return &Client{api: client}
}

// ListComments returns every comment on an issue or pull request, following
// pagination.
func (c *Client) ListComments(ctx context.Context, owner, repo string, number int) ([]*gh.IssueComment, error) {
	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: commentsPerPage},
	}

	var all []*gh.IssueComment
	for {
		page, resp, err := c.api.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list comments on %s/%s#%d: %w", owner, repo, number, err)
		}
		all = append(all, page...)

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	log.WithFields(log.Fields{
		"repository":   owner + "/" + repo,
		"pull-request": number,
		"comments":     len(all),
	}).Debug("listed issue comments")

	return all, nil
}

// CreateComment posts a new comment on an issue or pull request.
func (c *Client) CreateComment(ctx context.Context, owner, repo string, number int, body string) (*gh.IssueComment, error) {
	comment, _, err := c.api.Issues.CreateComment(ctx, owner, repo, number, &gh.IssueComment{
		Body: gh.String(body),
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// UpdateComment replaces the body of an existing comment.
func (c *Client) UpdateComment(ctx context.Context, owner, repo string, commentID int64, body string) (*gh.IssueComment, error) {
	comment, _, err := c.api.Issues.EditComment(ctx, owner, repo, commentID, &gh.IssueComment{
		Body: gh.String(body),
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}
