package github

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Repository represents a GitHub repository
type Repository struct {
	Owner    string
	Name     string
	FullName string
}

// ActionContext is the workflow run context exposed to an Actions step
// through GITHUB_* variables and the event payload file.
type ActionContext struct {
	EventName  string
	Repository Repository

	// PRNumber is zero when the triggering event has no pull request.
	PRNumber int

	SHA    string
	Branch string
}

// LoadActionContext reads the run context from the process environment.
func LoadActionContext() (*ActionContext, error) {
	ctx := &ActionContext{
		EventName: os.Getenv("GITHUB_EVENT_NAME"),
		SHA:       os.Getenv("GITHUB_SHA"),
	}

	if full := os.Getenv("GITHUB_REPOSITORY"); full != "" {
		repo, err := ParseRepository(full)
		if err != nil {
			return nil, err
		}
		ctx.Repository = repo
	}

	var event *Event
	if path := os.Getenv("GITHUB_EVENT_PATH"); path != "" {
		payload, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read event payload: %w", err)
		}
		event, err = ParseEvent(payload)
		if err != nil {
			return nil, err
		}
		ctx.PRNumber = event.PRNumber
		if ctx.Repository.FullName == "" {
			ctx.Repository = event.Repository
		}
	}

	ctx.Branch = resolveBranch(os.Getenv("GITHUB_HEAD_REF"), event, os.Getenv("GITHUB_REF"))
	return ctx, nil
}

// HasPullRequest reports whether the run is associated with a pull request.
func (c *ActionContext) HasPullRequest() bool { return c.PRNumber > 0 }

// ParseRepository splits "owner/name".
func ParseRepository(full string) (Repository, error) {
	parts := strings.Split(full, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Repository{}, fmt.Errorf("invalid repo format: %s (expected owner/repo)", full)
	}
	return Repository{Owner: parts[0], Name: parts[1], FullName: full}, nil
}

// Event holds the fields of a webhook payload this tool cares about.
type Event struct {
	Repository Repository
	PRNumber   int
	HeadRef    string
}

// ParseEvent extracts the pull request number and head branch from a
// webhook payload. Issue comment events count as pull request events when
// the issue is a pull request. Payloads with neither object fall back to a
// top-level number.
func ParseEvent(payload []byte) (*Event, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("failed to parse event payload: %w", err)
	}

	event := &Event{}
	if repo, ok := data["repository"].(map[string]interface{}); ok {
		event.Repository = Repository{
			Owner:    getStringField(repo, "owner", "login"),
			Name:     getStringField(repo, "name"),
			FullName: getStringField(repo, "full_name"),
		}
	}

	if pr, ok := data["pull_request"].(map[string]interface{}); ok {
		event.PRNumber = int(getNumberField(pr, "number"))
		event.HeadRef = getStringField(pr, "head", "ref")
		return event, nil
	}

	if issue, ok := data["issue"].(map[string]interface{}); ok {
		if pullRequest, hasPR := issue["pull_request"]; hasPR && pullRequest != nil {
			event.PRNumber = int(getNumberField(issue, "number"))
		}
		return event, nil
	}

	event.PRNumber = int(getNumberField(data, "number"))
	return event, nil
}

func resolveBranch(headRef string, event *Event, ref string) string {
	if headRef != "" {
		return headRef
	}
	if event != nil && event.HeadRef != "" {
		return event.HeadRef
	}
	for _, prefix := range []string{"refs/heads/", "refs/tags/"} {
		if strings.HasPrefix(ref, prefix) {
			return strings.TrimPrefix(ref, prefix)
		}
	}
	return ref
}

// Helper functions for safe map access
func getStringField(data map[string]interface{}, keys ...string) string {
	current := data
	for i, key := range keys {
		if i == len(keys)-1 {
			if val, ok := current[key].(string); ok {
				return val
			}
			return ""
		}
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return ""
		}
	}
	return ""
}

func getNumberField(data map[string]interface{}, keys ...string) float64 {
	current := data
	for i, key := range keys {
		if i == len(keys)-1 {
			if val, ok := current[key].(float64); ok {
				return val
			}
			return 0
		}
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return 0
		}
	}
	return 0
}
