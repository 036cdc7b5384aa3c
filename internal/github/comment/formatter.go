package comment

import (
	"fmt"
	"strings"

	"github.com/cexll/deploy-comment/internal/deployment"
)

const (
	shortSHALength = 7
	footer         = "---\n_Deployed with Vercel_"
)

// Commit is the revision the deployments were built from.
type Commit struct {
	Branch string
	SHA    string
}

// ShortSHA truncates a full commit SHA for display.
func ShortSHA(sha string) string {
	if len(sha) > shortSHALength {
		return sha[:shortSHALength]
	}
	return sha
}

// Header returns the first line of the comment for env. It doubles as the
// key used to find an existing comment, so it must stay stable.
func Header(env deployment.Environment) string {
	return fmt.Sprintf("## %s Vercel %s Deployments", env.Emoji(), env.DisplayName())
}

// Render builds the comment body. Deployments must already be normalized;
// they are emitted in the given order.
func Render(deployments []deployment.Deployment, env deployment.Environment, commit Commit) string {
	var b strings.Builder

	b.WriteString(Header(env))
	b.WriteByte('\n')
	if line := commitLine(commit); line != "" {
		b.WriteByte('\n')
		b.WriteString(line)
		b.WriteByte('\n')
	}

	for _, d := range deployments {
		b.WriteByte('\n')
		b.WriteString(formatDeployment(d))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	b.WriteString(footer)
	return b.String()
}

// commitLine renders "branch • sha", dropping whichever part is empty.
func commitLine(c Commit) string {
	var parts []string
	for _, p := range []string{sanitizeInline(c.Branch), sanitizeInline(c.SHA)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " • ")
}

func formatDeployment(d deployment.Deployment) string {
	d.Name = sanitizeInline(d.Name)
	d.URL = sanitizeInline(d.URL)

	switch d.Status {
	case deployment.StatusBuilding:
		return fmt.Sprintf("### ⏳ %s\n**Building...**", d.Name)
	case deployment.StatusFailed:
		return fmt.Sprintf("### ❌ %s\n**Deployment Failed**", d.Name)
	default:
		if d.URL != "" {
			return fmt.Sprintf("### ✅ %s\n🔗 **[Visit Deployment](%s)**", d.Name, d.URL)
		}
		return fmt.Sprintf("### ✅ %s\n**Deployment Successful**", d.Name)
	}
}
