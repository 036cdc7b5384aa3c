package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"

	"github.com/cexll/deploy-comment/internal/config"
	"github.com/cexll/deploy-comment/internal/github"
	"github.com/cexll/deploy-comment/internal/github/comment"
	"github.com/cexll/deploy-comment/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	// stdout carries the MCP protocol
	if err := logging.Configure(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr}); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}

	for _, env := range []string{"REPO_OWNER", "REPO_NAME", "PR_NUMBER"} {
		if os.Getenv(env) == "" {
			log.Fatalf("missing required environment variable: %s", env)
		}
	}
	number, err := strconv.Atoi(os.Getenv("PR_NUMBER"))
	if err != nil || number <= 0 {
		log.Fatalf("invalid PR_NUMBER: %q", os.Getenv("PR_NUMBER"))
	}

	creds := github.Credentials{Token: cfg.GitHubToken}
	if cfg.GitHubAppID != "" {
		creds.App = &github.AppAuth{AppID: cfg.GitHubAppID, PrivateKey: cfg.GitHubPrivateKey, APIURL: cfg.APIURL}
	}

	handler := &toolHandler{
		owner:  os.Getenv("REPO_OWNER"),
		repo:   os.Getenv("REPO_NAME"),
		number: number,
		newService: func(ctx context.Context, owner, repo string) (comment.Service, error) {
			return creds.ClientFor(ctx, owner, repo, cfg.APIURL)
		},
	}

	log.WithFields(log.Fields{
		"repository":   handler.owner + "/" + handler.repo,
		"pull-request": handler.number,
	}).Info("starting deployment comment MCP server")

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "deploy-comment-server",
		Version: "v1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "upsert_deployment_comment",
		Description: "Create or update the Vercel deployment summary comment on the pull request",
	}, handler.HandleUpsertComment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("received shutdown signal")
		cancel()
	}()

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.WithError(err).Fatal("server error")
	}
	log.Info("server stopped gracefully")
}
