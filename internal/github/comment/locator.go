package comment

import (
	"strings"

	"github.com/google/go-github/v66/github"

	"github.com/cexll/deploy-comment/internal/deployment"
)

// Locate returns the first comment whose body starts with the header for
// env, or nil. Comments without a body are skipped; later duplicates are
// never returned.
func Locate(comments []*github.IssueComment, env deployment.Environment) *github.IssueComment {
	header := Header(env)
	for _, c := range comments {
		if c == nil || c.Body == nil {
			continue
		}
		if strings.HasPrefix(*c.Body, header) {
			return c
		}
	}
	return nil
}
