package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cexll/deploy-comment/internal/deployment"
	"github.com/cexll/deploy-comment/internal/github/comment"
)

func newRouter(p Publisher) *mux.Router {
	r := mux.NewRouter()
	NewHandler(p).RegisterRoutes(r)
	return r
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Health(t *testing.T) {
	w := doRequest(newRouter(nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestHandler_Publish(t *testing.T) {
	var got comment.Request
	p := PublisherFunc(func(ctx context.Context, req comment.Request) (*comment.Result, error) {
		got = req
		return &comment.Result{Action: comment.ActionUpdated, CommentID: 9}, nil
	})

	body := `{
		"environment": "production",
		"branch": "main",
		"commit_sha": "0123456789abcdef",
		"deployments": [
			{"name":"Web","status":"SUCCESSFUL","url":"https://web.example"},
			{"name":"API","status":"building"}
		]
	}`
	w := doRequest(newRouter(p), http.MethodPost, "/repos/acme/site/pulls/12/deployments", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "updated", resp["action"])
	assert.EqualValues(t, 9, resp["comment_id"])

	assert.Equal(t, "acme", got.Owner)
	assert.Equal(t, "site", got.Repo)
	assert.Equal(t, 12, got.Number)
	assert.Equal(t, deployment.Production, got.Environment)
	assert.Equal(t, comment.Commit{Branch: "main", SHA: "0123456"}, got.Commit)
	require.Len(t, got.Deployments, 2)
	assert.Equal(t, deployment.StatusSuccessful, got.Deployments[0].Status)
}

func TestHandler_PublishRejectsBadInput(t *testing.T) {
	called := false
	p := PublisherFunc(func(ctx context.Context, req comment.Request) (*comment.Result, error) {
		called = true
		return &comment.Result{}, nil
	})
	r := newRouter(p)

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"malformed json", `{`, "invalid JSON body"},
		{"empty deployments", `{"deployments":[]}`, "at least one entry"},
		{"missing name", `{"deployments":[{"status":"failed"}]}`, "deployment at index 0: name"},
		{"unknown status", `{"deployments":[{"name":"A","status":"pending"}]}`, `status "pending": must be one of`},
		{"blank name", `{"deployments":[{"name":"   ","status":"failed"}]}`, "deployment at index 0: name: missing required field"},
		{"unknown environment", `{"environment":"staging","deployments":[{"name":"A","status":"failed"}]}`, "environment"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/repos/o/r/pulls/1/deployments", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, tt.wantMsg)
		})
	}
	assert.False(t, called, "publisher must not be called for invalid input")

	w := doRequest(r, http.MethodPost, "/repos/o/r/pulls/0/deployments", `{"deployments":[{"name":"A","status":"failed"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_PublishFailure(t *testing.T) {
	p := PublisherFunc(func(ctx context.Context, req comment.Request) (*comment.Result, error) {
		return nil, errors.New("failed to create comment: 403 forbidden")
	})

	w := doRequest(newRouter(p), http.MethodPost, "/repos/o/r/pulls/1/deployments", `{"deployments":[{"name":"A","status":"failed"}]}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "403 forbidden")
}

func TestHandler_RouteMethods(t *testing.T) {
	r := newRouter(nil)
	w := doRequest(r, http.MethodGet, "/repos/o/r/pulls/1/deployments", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = doRequest(r, http.MethodPost, "/repos/o/r/pulls/abc/deployments", "{}")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_RequestID(t *testing.T) {
	r := newRouter(nil)

	w := doRequest(r, http.MethodGet, "/health", "")
	generated := w.Header().Get("X-Request-ID")
	assert.Len(t, generated, 36, "expected a generated UUID")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
