package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"

	"github.com/cexll/deploy-comment/internal/deployment"
	"github.com/cexll/deploy-comment/internal/github/comment"
)

// DeploymentParam is one deployment in the tool input.
type DeploymentParam struct {
	Name   string `json:"name" jsonschema:"Deployment (app) name"`
	Status string `json:"status" jsonschema:"One of building, failed, successful"`
	URL    string `json:"url,omitempty" jsonschema:"Deployment URL, shown as a link when successful"`
}

// UpsertCommentParams defines the input parameters for the tool
type UpsertCommentParams struct {
	Environment string            `json:"environment,omitempty" jsonschema:"production or preview (default preview)"`
	Branch      string            `json:"branch,omitempty" jsonschema:"Branch shown in the comment"`
	CommitSHA   string            `json:"commit_sha,omitempty" jsonschema:"Commit SHA shown in the comment"`
	Deployments []DeploymentParam `json:"deployments" jsonschema:"Deployments to list, in display order"`
}

// serviceFactory returns the comments API for owner/repo.
type serviceFactory func(ctx context.Context, owner, repo string) (comment.Service, error)

// toolHandler publishes deployment comments on a fixed pull request.
type toolHandler struct {
	owner      string
	repo       string
	number     int
	newService serviceFactory
}

// HandleUpsertComment handles the upsert_deployment_comment tool call
func (h *toolHandler) HandleUpsertComment(
	ctx context.Context,
	req *mcp.CallToolRequest,
	params UpsertCommentParams,
) (*mcp.CallToolResult, any, error) {
	logFields := log.Fields{
		"repository":   h.owner + "/" + h.repo,
		"pull-request": h.number,
	}
	log.WithFields(logFields).Info("received upsert_deployment_comment request")

	input := make([]deployment.Deployment, 0, len(params.Deployments))
	for _, d := range params.Deployments {
		input = append(input, deployment.Deployment{Name: d.Name, Status: deployment.Status(d.Status), URL: d.URL})
	}
	deployments, err := deployment.Normalize(input)
	if err != nil {
		return nil, nil, err
	}

	env, ok := deployment.ParseEnvironment(params.Environment)
	if !ok {
		return nil, nil, fmt.Errorf("environment must be production or preview, got %q", params.Environment)
	}

	service, err := h.newService(ctx, h.owner, h.repo)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	result, err := comment.NewPublisher(service).Publish(ctx, comment.Request{
		Owner:       h.owner,
		Repo:        h.repo,
		Number:      h.number,
		Environment: env,
		Commit:      comment.Commit{Branch: params.Branch, SHA: comment.ShortSHA(params.CommitSHA)},
		Deployments: deployments,
	})
	if err != nil {
		log.WithFields(logFields).WithError(err).Error("failed to publish deployment comment")
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)},
			},
			IsError: true,
		}, nil, nil
	}

	resultText, err := json.Marshal(map[string]any{
		"success":      true,
		"action":       result.Action,
		"comment_id":   result.CommentID,
		"owner":        h.owner,
		"repo":         h.repo,
		"pull_request": h.number,
	})
	if err != nil {
		return nil, nil, err
	}

	log.WithFields(logFields).WithField("comment-id", result.CommentID).Infof("deployment comment %s", result.Action)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(resultText)},
		},
	}, nil, nil
}
