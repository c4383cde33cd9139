package app

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/agentstation/mcpmap"
	"github.com/agentstation/mcpmap/internal/sources"
	"github.com/agentstation/mcpmap/internal/sources/clients"
	"github.com/agentstation/mcpmap/internal/sources/github"
	"github.com/agentstation/mcpmap/internal/sources/npm"
	"github.com/agentstation/mcpmap/internal/sources/pypi"
	"github.com/agentstation/mcpmap/pkg/blob"
	"github.com/agentstation/mcpmap/pkg/dedupe"
	"github.com/agentstation/mcpmap/pkg/errors"
	"github.com/agentstation/mcpmap/pkg/logging"
)

// NewRunCommand creates the run command: collect, consolidate, persist.
func (a *App) NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a discovery and consolidation pass",
		Long: `Run fetches MCP server observations from every configured registry,
consolidates them into canonical records and persists the dedup state.

The consolidated dataset is written to the state store under a fresh
dataset key, and optionally to a local file via --output.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runRun(cmd)
		},
	}

	cmd.Flags().String("run-id", "", "run identifier naming the persisted state (default from config)")
	cmd.Flags().String("mode", "", "update mode: full or incremental (default from config)")
	cmd.Flags().StringP("output", "o", "", "also write the consolidated dataset to this file")

	return cmd
}

func (a *App) runRun(cmd *cobra.Command) error {
	ctx := logging.WithLogger(cmd.Context(), a.logger)

	if flag := mustGetString(cmd, "run-id"); flag != "" {
		a.config.RunID = flag
	}
	if flag := mustGetString(cmd, "mode"); flag != "" {
		a.config.Mode = flag
	}
	output := mustGetString(cmd, "output")

	mode, err := dedupe.ParseMode(a.config.Mode)
	if err != nil {
		return err
	}

	ctx = logging.WithRunID(ctx, a.config.RunID)
	log := logging.Ctx(ctx)

	blobs, err := a.newBlobStore()
	if err != nil {
		return err
	}

	store := dedupe.New(a.config.RunID, mode, blobs)
	store.Load(ctx)

	srcs := a.newSources()
	log.Info().
		Int("sources", srcs.Len()).
		Str("mode", string(mode)).
		Msg("Starting discovery run")

	observations := srcs.FetchAll(ctx)

	pipeline := mcpmap.New(store)
	result := pipeline.Process(ctx, observations)

	data, err := yaml.Marshal(store.Servers())
	if err != nil {
		return errors.WrapParse("yaml", "consolidated dataset", err)
	}

	datasetKey := fmt.Sprintf("datasets/%s/%s.yaml", a.config.RunID, uuid.NewString())
	if err := blobs.Put(ctx, datasetKey, data); err != nil {
		return err
	}
	if output != "" {
		if err := writeFile(output, data); err != nil {
			return err
		}
	}

	store.Save(ctx)

	log.Info().
		Int("servers", store.Len()).
		Int("new", len(result.Servers)).
		Int("duplicates_removed", result.DuplicatesRemoved).
		Int("validation_failures", len(result.ValidationFailures)).
		Str("dataset", datasetKey).
		Msg("Run complete")

	return nil
}

// NewSourcesCommand creates the sources command.
func (a *App) NewSourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured registry sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, src := range a.newSources().List() {
				fmt.Fprintln(cmd.OutOrStdout(), src.Origin())
			}
			return nil
		},
	}
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "mcpmap %s (commit %s, built %s)\n", a.version, a.commit, a.date)
			return nil
		},
	}
}

// writeFile writes the dataset to a local file.
func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

// newBlobStore selects the state store from config: S3-compatible object
// storage when an endpoint is configured, the local filesystem otherwise.
func (a *App) newBlobStore() (blob.Store, error) {
	if a.config.S3Endpoint != "" {
		return blob.NewS3(blob.S3Config{
			Endpoint:  a.config.S3Endpoint,
			Region:    a.config.S3Region,
			Bucket:    a.config.S3Bucket,
			AccessKey: a.config.S3AccessKey,
			SecretKey: a.config.S3SecretKey,
			UseSSL:    a.config.S3UseSSL,
		})
	}
	return blob.NewFile(a.config.StateDir)
}

// newSources builds the collector set from config. The npm and PyPI sources
// share one HTTP client so retry budgets, circuit breakers and the response
// cache are global; GitHub gets its own client when a token is configured so
// credentials never leak to other registries.
func (a *App) newSources() *sources.Sources {
	userAgent := clients.WithUserAgent("mcpmap/" + a.version)
	client := clients.New(userAgent)

	githubClient := client
	if a.config.GitHubToken != "" {
		githubClient = clients.New(userAgent,
			clients.WithHeader("Authorization", "Bearer "+a.config.GitHubToken))
	}

	srcs := sources.New()
	srcs.Add(npm.New(client, npm.Config{
		Query:    a.config.NPMQuery,
		MaxPages: a.config.NPMMaxPages,
	}))
	srcs.Add(pypi.New(client, pypi.Config{
		Packages: a.config.PyPIPackages,
	}))
	srcs.Add(github.New(githubClient, github.Config{
		Topic:    a.config.GitHubTopic,
		MaxPages: a.config.GitHubMaxPages,
	}))
	return srcs
}
