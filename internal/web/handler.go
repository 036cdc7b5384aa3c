package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/cexll/deploy-comment/internal/deployment"
	"github.com/cexll/deploy-comment/internal/github/comment"
)

// Publisher publishes a deployment summary comment.
type Publisher interface {
	Publish(ctx context.Context, req comment.Request) (*comment.Result, error)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, req comment.Request) (*comment.Result, error)

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, req comment.Request) (*comment.Result, error) {
	return f(ctx, req)
}

// Handler serves the deployment comment HTTP API.
type Handler struct {
	publisher Publisher
}

// NewHandler creates a new web handler
func NewHandler(publisher Publisher) *Handler {
	return &Handler{publisher: publisher}
}

// RegisterRoutes registers the API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Use(accessLog)
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/repos/{owner}/{repo}/pulls/{number:[0-9]+}/deployments", h.handlePublish).Methods(http.MethodPost)
}

// publishRequest is the JSON body accepted by the publish endpoint.
type publishRequest struct {
	Environment string                  `json:"environment"`
	Branch      string                  `json:"branch"`
	CommitSHA   string                  `json:"commit_sha"`
	Deployments []deployment.Deployment `json:"deployments"`
}

type publishResponse struct {
	Action    comment.Action `json:"action"`
	CommentID int64          `json:"comment_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	number, err := strconv.Atoi(vars["number"])
	if err != nil || number <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid pull request number"})
		return
	}

	var body publishRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}

	deployments, err := deployment.Normalize(body.Deployments)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	env, ok := deployment.ParseEnvironment(body.Environment)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "environment must be production or preview"})
		return
	}

	req := comment.Request{
		Owner:       vars["owner"],
		Repo:        vars["repo"],
		Number:      number,
		Environment: env,
		Commit:      comment.Commit{Branch: body.Branch, SHA: comment.ShortSHA(body.CommitSHA)},
		Deployments: deployments,
	}

	result, err := h.publisher.Publish(r.Context(), req)
	if err != nil {
		log.WithFields(log.Fields{
			"repository":   req.Owner + "/" + req.Repo,
			"pull-request": req.Number,
		}).WithError(err).Error("failed to publish deployment comment")

		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, publishResponse{Action: result.Action, CommentID: result.CommentID})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
