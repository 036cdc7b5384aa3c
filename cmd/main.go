package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/cexll/deploy-comment/internal/config"
	"github.com/cexll/deploy-comment/internal/deployment"
	"github.com/cexll/deploy-comment/internal/github"
	"github.com/cexll/deploy-comment/internal/github/comment"
	"github.com/cexll/deploy-comment/internal/logging"
	"github.com/cexll/deploy-comment/internal/web"
)

var (
	version = "devel"

	loadDotEnv         = godotenv.Load
	loadActionContext  = github.LoadActionContext
	defaultListenServe = http.ListenAndServe
)

func main() {
	if err := run(context.Background(), os.Args); err != nil {
		log.WithError(err).Fatal("deploy-comment failed")
	}
}

func run(ctx context.Context, args []string) error {
	// Load .env file (ignore error if file doesn't exist)
	_ = loadDotEnv()
	return newApp().RunContext(ctx, args)
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "deploy-comment",
		Usage:   "Keep a Vercel deployment summary comment up to date on a pull request",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "github-token",
				Usage:   "token used to call the GitHub API",
				EnvVars: []string{"INPUT_GITHUB-TOKEN", "INPUT_GITHUB_TOKEN", "GITHUB_TOKEN"},
			},
			&cli.StringFlag{
				Name:    "github-app-id",
				Usage:   "GitHub App ID, used when no token is given",
				EnvVars: []string{"GITHUB_APP_ID"},
			},
			&cli.StringFlag{
				Name:    "github-private-key",
				Usage:   "GitHub App private key (PEM)",
				EnvVars: []string{"GITHUB_PRIVATE_KEY"},
			},
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "GitHub REST API endpoint",
				Value:   github.DefaultAPIURL,
				EnvVars: []string{"GITHUB_API_URL"},
			},
			&cli.StringFlag{
				Name:    "deployments",
				Usage:   `JSON array of {"name","status","url"} objects`,
				EnvVars: []string{"INPUT_DEPLOYMENTS", "DEPLOYMENTS"},
			},
			&cli.StringFlag{
				Name:    "environment",
				Usage:   "production or preview",
				Value:   string(deployment.Preview),
				EnvVars: []string{"INPUT_ENVIRONMENT", "ENVIRONMENT"},
			},
			&cli.StringFlag{
				Name:    "commit-sha",
				Usage:   "commit SHA shown in the comment (defaults to the short workflow SHA)",
				EnvVars: []string{"INPUT_COMMIT-SHA", "INPUT_COMMIT_SHA", "COMMIT_SHA"},
			},
			&cli.StringFlag{
				Name:    "repository",
				Usage:   "owner/repo, overrides the workflow repository",
				EnvVars: []string{"INPUT_REPOSITORY"},
			},
			&cli.IntFlag{
				Name:    "pr-number",
				Usage:   "pull request number, overrides the one from the event payload",
				EnvVars: []string{"INPUT_PR-NUMBER", "PR_NUMBER"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "text or json",
				Value:   "text",
				EnvVars: []string{"LOG_FORMAT"},
			},
		},
		Before: func(c *cli.Context) error {
			return logging.Configure(logging.Config{
				Level:  stringOr(c, "log-level", "info"),
				Format: stringOr(c, "log-format", "text"),
				Output: c.App.Writer,
			})
		},
		Action: postDeployments,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP API that publishes deployment comments",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Value:   8000,
						EnvVars: []string{"PORT"},
					},
				},
				Action: serve,
			},
		},
	}
}

// configFromCLI builds and validates the shared configuration.
func configFromCLI(c *cli.Context) (*config.Config, error) {
	cfg := config.New()
	cfg.GitHubToken = c.String("github-token")
	cfg.GitHubAppID = c.String("github-app-id")
	cfg.GitHubPrivateKey = config.NormalizePrivateKey(c.String("github-private-key"))
	cfg.APIURL = stringOr(c, "api-url", cfg.APIURL)
	cfg.Environment = stringOr(c, "environment", cfg.Environment)
	cfg.CommitSHA = c.String("commit-sha")
	cfg.LogLevel = stringOr(c, "log-level", cfg.LogLevel)
	cfg.LogFormat = stringOr(c, "log-format", cfg.LogFormat)
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// stringOr returns the flag value, or fallback when it is empty. Actions
// passes unset optional inputs as empty variables, which would otherwise
// override flag defaults.
func stringOr(c *cli.Context, name, fallback string) string {
	if v := c.String(name); v != "" {
		return v
	}
	return fallback
}

func credentials(cfg *config.Config) github.Credentials {
	creds := github.Credentials{Token: cfg.GitHubToken}
	if cfg.GitHubAppID != "" {
		creds.App = &github.AppAuth{
			AppID:      cfg.GitHubAppID,
			PrivateKey: cfg.GitHubPrivateKey,
			APIURL:     cfg.APIURL,
		}
	}
	return creds
}

func postDeployments(c *cli.Context) error {
	cfg, err := configFromCLI(c)
	if err != nil {
		return err
	}

	deployments, err := deployment.Parse(c.String("deployments"))
	if err != nil {
		return err
	}

	env, ok := deployment.ParseEnvironment(cfg.Environment)
	if !ok {
		log.WithField("environment", cfg.Environment).Warn("unknown environment, using preview")
	}

	actx, err := loadActionContext()
	if err != nil {
		return err
	}
	if full := c.String("repository"); full != "" {
		if actx.Repository, err = github.ParseRepository(full); err != nil {
			return err
		}
	}
	if c.IsSet("pr-number") {
		actx.PRNumber = c.Int("pr-number")
	}

	if !actx.HasPullRequest() {
		log.WithField("event", actx.EventName).Info("no pull request associated with this event, skipping")
		return nil
	}
	if actx.Repository.Owner == "" {
		return fmt.Errorf("repository is unknown: set GITHUB_REPOSITORY or --repository")
	}

	sha := cfg.CommitSHA
	if sha == "" {
		sha = comment.ShortSHA(actx.SHA)
	}

	client, err := credentials(cfg).ClientFor(c.Context, actx.Repository.Owner, actx.Repository.Name, cfg.APIURL)
	if err != nil {
		return err
	}

	result, err := comment.NewPublisher(client).Publish(c.Context, comment.Request{
		Owner:       actx.Repository.Owner,
		Repo:        actx.Repository.Name,
		Number:      actx.PRNumber,
		Environment: env,
		Commit:      comment.Commit{Branch: actx.Branch, SHA: sha},
		Deployments: deployments,
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"action":     result.Action,
		"comment-id": result.CommentID,
	}).Info("deployment comment published")

	return writeOutputs(result)
}

// writeOutputs exposes the result as step outputs when running inside
// GitHub Actions.
func writeOutputs(result *comment.Result) error {
	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open GITHUB_OUTPUT: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "comment-id=%d\naction=%s\n", result.CommentID, result.Action); err != nil {
		return fmt.Errorf("failed to write GITHUB_OUTPUT: %w", err)
	}
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := configFromCLI(c)
	if err != nil {
		return err
	}

	creds := credentials(cfg)
	publisher := web.PublisherFunc(func(ctx context.Context, req comment.Request) (*comment.Result, error) {
		client, err := creds.ClientFor(ctx, req.Owner, req.Repo, cfg.APIURL)
		if err != nil {
			return nil, err
		}
		return comment.NewPublisher(client).Publish(ctx, req)
	})

	r := mux.NewRouter()
	web.NewHandler(publisher).RegisterRoutes(r)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.WithFields(log.Fields{
		"address": addr,
		"api-url": cfg.APIURL,
	}).Info("server listening")

	if err := defaultListenServe(addr, r); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}
