package comment

import (
	"context"
	"fmt"

	"github.com/google/go-github/v66/github"
	log "github.com/sirupsen/logrus"

	"github.com/cexll/deploy-comment/internal/deployment"
)

// Service is the subset of the issue comments API the publisher needs.
type Service interface {
	ListComments(ctx context.Context, owner, repo string, number int) ([]*github.IssueComment, error)
	CreateComment(ctx context.Context, owner, repo string, number int, body string) (*github.IssueComment, error)
	UpdateComment(ctx context.Context, owner, repo string, commentID int64, body string) (*github.IssueComment, error)
}

// Action tells whether Publish created a new comment or edited one.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Request identifies the pull request and carries already-normalized
// deployments.
type Request struct {
	Owner       string
	Repo        string
	Number      int
	Environment deployment.Environment
	Commit      Commit
	Deployments []deployment.Deployment
}

// Result is returned after a successful Publish.
type Result struct {
	Action    Action
	CommentID int64
	Body      string
}

// Publisher keeps one deployment summary comment per environment on a
// pull request.
type Publisher struct {
	service Service
}

// NewPublisher creates a publisher backed by service.
func NewPublisher(service Service) *Publisher {
	return &Publisher{service: service}
}

// Publish renders the summary and edits the matching comment, or creates
// one when none is found. A failure to list comments is logged and handled
// as "no existing comment".
func (p *Publisher) Publish(ctx context.Context, req Request) (*Result, error) {
	if p == nil || p.service == nil {
		return nil, fmt.Errorf("nil publisher or service")
	}
	if req.Owner == "" || req.Repo == "" {
		return nil, fmt.Errorf("repository owner and name are required")
	}
	if req.Number <= 0 {
		return nil, fmt.Errorf("invalid pull request number: %d", req.Number)
	}

	body := Render(req.Deployments, req.Environment, req.Commit)

	logFields := log.Fields{
		"repository":   req.Owner + "/" + req.Repo,
		"pull-request": req.Number,
		"environment":  req.Environment,
	}

	comments, err := p.service.ListComments(ctx, req.Owner, req.Repo, req.Number)
	if err != nil {
		log.WithFields(logFields).WithError(err).Warn("could not list existing comments, a new comment will be created")
		comments = nil
	}

	if existing := Locate(comments, req.Environment); existing != nil {
		id := existing.GetID()
		log.WithFields(logFields).WithField("comment-id", id).Info("updating existing deployment comment")

		if _, err := p.service.UpdateComment(ctx, req.Owner, req.Repo, id, body); err != nil {
			return nil, fmt.Errorf("failed to update comment %d: %w", id, err)
		}
		return &Result{Action: ActionUpdated, CommentID: id, Body: body}, nil
	}

	log.WithFields(logFields).Info("creating deployment comment")
	created, err := p.service.CreateComment(ctx, req.Owner, req.Repo, req.Number, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return &Result{Action: ActionCreated, CommentID: created.GetID(), Body: body}, nil
}
