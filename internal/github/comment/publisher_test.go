package comment

import (
	"context"
	"errors"
	"strings"
	"testing"

	gh "github.com/google/go-github/v66/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cexll/deploy-comment/internal/deployment"
)

// fakeService is an in-memory Service that records calls.
type fakeService struct {
	comments  []*gh.IssueComment
	listErr   error
	createErr error
	updateErr error

	listCalls   int
	createCalls []string
	updateCalls []struct {
		ID   int64
		Body string
	}
}

func (f *fakeService) ListComments(ctx context.Context, owner, repo string, number int) ([]*gh.IssueComment, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.comments, nil
}

func (f *fakeService) CreateComment(ctx context.Context, owner, repo string, number int, body string) (*gh.IssueComment, error) {
	f.createCalls = append(f.createCalls, body)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &gh.IssueComment{ID: gh.Int64(777), Body: gh.String(body)}, nil
}

func (f *fakeService) UpdateComment(ctx context.Context, owner, repo string, commentID int64, body string) (*gh.IssueComment, error) {
	f.updateCalls = append(f.updateCalls, struct {
		ID   int64
		Body string
	}{commentID, body})
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &gh.IssueComment{ID: gh.Int64(commentID), Body: gh.String(body)}, nil
}

func testRequest(env deployment.Environment) Request {
	return Request{
		Owner:       "o",
		Repo:        "r",
		Number:      42,
		Environment: env,
		Commit:      testCommit,
		Deployments: []deployment.Deployment{
			{Name: "Frontend", Status: deployment.StatusSuccessful, URL: "https://f.example"},
		},
	}
}

func TestPublish_CreatesWhenNoMatch(t *testing.T) {
	svc := &fakeService{comments: []*gh.IssueComment{
		issueComment(1, gh.String("unrelated")),
		issueComment(2, gh.String(Header(deployment.Production)+"\n\nold")),
	}}

	result, err := NewPublisher(svc).Publish(context.Background(), testRequest(deployment.Preview))
	require.NoError(t, err)

	assert.Equal(t, ActionCreated, result.Action)
	assert.Equal(t, int64(777), result.CommentID)
	require.Len(t, svc.createCalls, 1)
	assert.Empty(t, svc.updateCalls)
	assert.True(t, strings.HasPrefix(svc.createCalls[0], Header(deployment.Preview)), svc.createCalls[0])
}

func TestPublish_UpdatesFirstMatch(t *testing.T) {
	old := Header(deployment.Preview) + "\n\nstale"
	svc := &fakeService{comments: []*gh.IssueComment{
		issueComment(10, nil),
		issueComment(11, gh.String(old)),
		issueComment(12, gh.String(old)),
	}}

	result, err := NewPublisher(svc).Publish(context.Background(), testRequest(deployment.Preview))
	require.NoError(t, err)

	assert.Equal(t, ActionUpdated, result.Action)
	assert.Equal(t, int64(11), result.CommentID)
	assert.Empty(t, svc.createCalls)
	require.Len(t, svc.updateCalls, 1)
	assert.Equal(t, int64(11), svc.updateCalls[0].ID)
	assert.Equal(t, result.Body, svc.updateCalls[0].Body, "update body should equal the rendered body")
}

func TestPublish_ListFailureDegradesToCreate(t *testing.T) {
	svc := &fakeService{listErr: errors.New("boom")}

	result, err := NewPublisher(svc).Publish(context.Background(), testRequest(deployment.Production))
	require.NoError(t, err)

	assert.Equal(t, ActionCreated, result.Action)
	assert.Equal(t, 1, svc.listCalls)
	assert.Len(t, svc.createCalls, 1)
}

func TestPublish_WriteFailuresPropagate(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		svc := &fakeService{createErr: errors.New("forbidden")}
		_, err := NewPublisher(svc).Publish(context.Background(), testRequest(deployment.Preview))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "forbidden")
	})

	t.Run("update", func(t *testing.T) {
		svc := &fakeService{
			comments:  []*gh.IssueComment{issueComment(5, gh.String(Header(deployment.Preview)))},
			updateErr: errors.New("not found"),
		}
		_, err := NewPublisher(svc).Publish(context.Background(), testRequest(deployment.Preview))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update comment 5")
		assert.Empty(t, svc.createCalls, "update failure must not fall back to create")
	})
}

func TestPublish_RejectsBadTarget(t *testing.T) {
	svc := &fakeService{}
	p := NewPublisher(svc)

	req := testRequest(deployment.Preview)
	req.Number = 0
	_, err := p.Publish(context.Background(), req)
	assert.Error(t, err, "missing pull request number")

	req = testRequest(deployment.Preview)
	req.Owner = ""
	_, err = p.Publish(context.Background(), req)
	assert.Error(t, err, "missing owner")

	assert.Zero(t, svc.listCalls, "no API call expected for an invalid target")

	var nilPublisher *Publisher
	_, err = nilPublisher.Publish(context.Background(), testRequest(deployment.Preview))
	assert.Error(t, err, "nil publisher")
}
