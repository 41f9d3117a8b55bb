// Package main implements the wrapup CLI for session publish and
// finalize operations.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/wrapup/internal/config"
	"github.com/fyrsmithlabs/wrapup/internal/finalize"
	"github.com/fyrsmithlabs/wrapup/internal/gateway"
	"github.com/fyrsmithlabs/wrapup/internal/logging"
	"github.com/fyrsmithlabs/wrapup/internal/publish"
	"github.com/fyrsmithlabs/wrapup/internal/report"
	"github.com/fyrsmithlabs/wrapup/internal/session"
)

var (
	// configPath overrides the default config file location
	configPath string
	// jsonOutput requests the structured result instead of formatted text
	jsonOutput bool
	// version information
	version = "dev"

	// publish flags
	prTitle string
	prBody  string
	prDraft bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wrapup",
	Short: "Session publish and finalize orchestration",
	Long: `wrapup coordinates a development session around a GitHub issue or a
multi-phase speckit feature: it publishes the session branch as a PR and,
after the merge, closes issues, updates the parent checklist, and marks
tasks complete in the ledger.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/wrapup/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit the structured result as JSON")

	publishCmd.Flags().StringVar(&prTitle, "title", "", "PR title (required)")
	publishCmd.Flags().StringVar(&prBody, "body", "", "PR description, or @path to read from a file")
	publishCmd.Flags().BoolVar(&prDraft, "draft", false, "open the PR as a draft")

	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(finalizeCmd)
	rootCmd.AddCommand(statusCmd)
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Create or update the PR for the active session",
	Long: `Create a PR for the active session's branch, or update the existing
one when the session already has a PR number. The title and description
are taken verbatim; the issue linkage (Closes #N) is appended.

Examples:
  wrapup publish --title "Add retry to fetcher" --body @pr-body.md
  wrapup publish --title "Phase 2: storage layer" --draft`,
	RunE: runPublish,
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Reconcile issues and tasks after the session's PR merged",
	Long: `Verify the session's PR is merged, then close the tracked issue (or
the phase issue plus the parent checklist for speckit sessions), mark
the session's tasks done in the ledger, and sync the project board.

Safe to re-run: already-applied effects are skipped, not repeated.

Examples:
  wrapup finalize
  wrapup finalize --json`,
	RunE: runFinalize,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active session and its PR state",
	RunE:  runStatus,
}

// setup loads config and constructs the shared collaborators.
func setup(ctx context.Context) (*config.Config, *zap.Logger, session.Store, gateway.Gateway, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	logger, err := logging.New(&logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}

	store, err := session.NewStore(cfg.Session.PointerPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	gw, err := gateway.NewGitHub(ctx, cfg.GitHub, logger.Named("gateway"))
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return cfg, logger, store, gw, nil
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, logger, store, gw, err := setup(ctx)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	s, err := store.Load()
	if err != nil {
		return err
	}

	body := prBody
	if len(body) > 1 && body[0] == '@' {
		content, err := os.ReadFile(body[1:])
		if err != nil {
			return fmt.Errorf("failed to read body file: %w", err)
		}
		body = string(content)
	}

	engine, err := publish.NewEngine(gw, store, ".", cfg.GitHub.BaseBranch, logger.Named("publish"))
	if err != nil {
		return err
	}

	result, err := engine.Run(ctx, s, publish.Request{
		Title:       prTitle,
		Description: body,
		Draft:       prDraft,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := emitJSON(result); err != nil {
			return err
		}
	} else {
		fmt.Print(report.RenderPublish(result))
	}

	if result.Status != "success" {
		os.Exit(1)
	}
	return nil
}

func runFinalize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, logger, store, gw, err := setup(ctx)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	s, err := store.Load()
	if err != nil {
		return err
	}

	engine, err := finalize.NewEngine(gw, store, cfg.Specs.Dir, logger.Named("finalize"))
	if err != nil {
		return err
	}

	result, err := engine.Run(ctx, s)
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := emitJSON(result); err != nil {
			return err
		}
	} else {
		fmt.Print(report.RenderFinalize(result))
	}

	if result.Status != finalize.StatusSuccess {
		os.Exit(1)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	_, logger, store, gw, err := setup(ctx)
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	s, err := store.Load()
	if err != nil {
		return err
	}

	var pr *gateway.PullRequest
	if s.PRNumber != 0 {
		if snapshot, err := gw.GetPullRequest(ctx, s.PRNumber); err == nil {
			pr = snapshot
		} else {
			logger.Warn("failed to fetch PR snapshot", zap.Error(err))
		}
	}

	if jsonOutput {
		return emitJSON(struct {
			Session *session.Session     `json:"session"`
			PR      *gateway.PullRequest `json:"pr,omitempty"`
		}{s, pr})
	}

	fmt.Print(report.RenderSession(s, pr))
	return nil
}

// emitJSON writes v to stdout as indented JSON.
func emitJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
