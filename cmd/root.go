// Package cmd wires the command-line surface of update-zenodo.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Prateekshit73/update-zenodo-action/citation"
	"github.com/Prateekshit73/update-zenodo-action/config"
	"github.com/Prateekshit73/update-zenodo-action/publish"
	"github.com/Prateekshit73/update-zenodo-action/release"
	"github.com/Prateekshit73/update-zenodo-action/zenodo"
)

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "update-zenodo",
	Short: "Publish a release to a Zenodo deposition",
	Long: `Reads the project's CITATION.cff, resolves the latest tagged release,
attaches the release artifacts to a new or updated Zenodo deposition and
publishes it. Re-running after a partial failure resumes the same draft.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runPublish,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (yaml)")
	rootCmd.Flags().String("token", "", "archive API token (env ZENODO_TOKEN)")
	rootCmd.Flags().StringP("metadata", "m", "CITATION.cff", "path to the citation metadata file")
	rootCmd.Flags().StringSliceP("files", "f", nil, "artifacts to attach (local paths or URLs)")
	rootCmd.Flags().String("concept", "", "pin a known concept id instead of auto-resolving")
	rootCmd.Flags().Bool("sandbox", false, "target the sandbox archive host")
	rootCmd.Flags().Bool("token-in-query", false, "send the token as the access_token query parameter")
	rootCmd.Flags().Bool("publish", true, "execute the final publish step (false stops at draft)")
	rootCmd.Flags().String("repo", "", "owner/name for latest-release resolution")
	rootCmd.Flags().String("git-dir", "", "local clone for tag-based version resolution")
	rootCmd.Flags().BoolP("verbose", "v", false, "debug logging")

	for flagKey, cfgKey := range map[string]string{
		"token":          "token",
		"metadata":       "metadata",
		"files":          "files",
		"concept":        "concept",
		"sandbox":        "sandbox",
		"token-in-query": "token_in_query",
		"publish":        "publish",
		"repo":           "repo",
		"git-dir":        "git_dir",
		"verbose":        "verbose",
	} {
		_ = viper.BindPFlag(cfgKey, rootCmd.Flags().Lookup(flagKey))
	}
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("metadata", defaults.MetadataPath)
	viper.SetDefault("publish", defaults.Publish)

	viper.SetEnvPrefix("zenodo")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "reading config file: %v\n", err)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

func runPublish(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	meta, err := citation.Load(cfg.MetadataPath)
	if err != nil {
		logger.ErrorContext(ctx, "loading citation metadata failed",
			"path", cfg.MetadataPath, "error", err)
		return err
	}
	logger.InfoContext(ctx, "loaded citation metadata",
		"title", meta.Title,
		"version", meta.Version)

	releases := release.NewClient(release.WithLogger(logger))

	rel, err := resolveRelease(ctx, logger, releases, meta)
	if err != nil {
		return err
	}

	artifacts, cleanup, err := collectArtifacts(ctx, logger, releases, rel)
	if err != nil {
		cleanup()
		return err
	}

	archiveOpts := []zenodo.Option{zenodo.WithLogger(logger)}
	if cfg.Sandbox {
		archiveOpts = append(archiveOpts, zenodo.WithSandbox())
	}
	if cfg.TokenInQuery {
		archiveOpts = append(archiveOpts, zenodo.WithTokenInQuery())
	}
	archive, err := zenodo.New(cfg.Token, archiveOpts...)
	if err != nil {
		cleanup()
		return err
	}

	workflowOpts := []publish.WorkflowOption{publish.WithLogger(logger)}
	if cfg.ConceptID != "" {
		workflowOpts = append(workflowOpts, publish.WithConcept(cfg.ConceptID))
	}
	if !cfg.Publish {
		workflowOpts = append(workflowOpts, publish.WithStopAtDraft())
	}

	dep, err := publish.NewWorkflow(archive, workflowOpts...).Run(ctx, meta, artifacts)
	cleanup()
	if err != nil {
		logger.ErrorContext(ctx, "publish workflow failed", "error", err)
		return err
	}

	logger.InfoContext(ctx, "workflow completed",
		"deposition_id", dep.ID,
		"concept_id", dep.ConceptRecID,
		"published", cfg.Publish)
	return nil
}

// resolveRelease fetches the latest release from the hosting platform or the
// local clone, when either source is configured, and cross-checks its version
// against the citation metadata.
func resolveRelease(ctx context.Context, logger *slog.Logger, releases *release.Client, meta *citation.Metadata) (*release.Release, error) {
	metaVersion := strings.TrimPrefix(meta.Version, "v")

	if cfg.Repo != "" {
		owner, name, err := cfg.SplitRepo()
		if err != nil {
			return nil, err
		}
		rel, err := releases.Latest(ctx, owner, name)
		if err != nil {
			logger.ErrorContext(ctx, "resolving latest release failed",
				"repo", cfg.Repo, "error", err)
			return nil, err
		}
		if rel.Version != metaVersion {
			logger.WarnContext(ctx, "citation version does not match latest release",
				"citation_version", meta.Version,
				"release_version", rel.Version)
		}
		return rel, nil
	}

	if cfg.GitDir != "" {
		tag, ver, err := release.LatestTag(cfg.GitDir)
		if err != nil {
			logger.ErrorContext(ctx, "resolving local tag failed",
				"git_dir", cfg.GitDir, "error", err)
			return nil, err
		}
		if ver != metaVersion {
			logger.WarnContext(ctx, "citation version does not match latest tag",
				"citation_version", meta.Version,
				"tag", tag)
		}
	}
	return nil, nil
}

// collectArtifacts turns the configured file list into local artifacts.
// URL entries, and entries naming an asset of the resolved release, are
// downloaded into a temporary directory and marked ephemeral. The returned
// cleanup removes the temporary directory; it is safe to call always.
func collectArtifacts(ctx context.Context, logger *slog.Logger, releases *release.Client, rel *release.Release) ([]publish.Artifact, func(), error) {
	cleanup := func() {}
	var tempDir string
	ensureTempDir := func() (string, error) {
		if tempDir != "" {
			return tempDir, nil
		}
		dir, err := os.MkdirTemp("", "update-zenodo-")
		if err != nil {
			return "", fmt.Errorf("creating download directory: %w", err)
		}
		tempDir = dir
		cleanup = func() { _ = os.RemoveAll(dir) }
		return tempDir, nil
	}

	var artifacts []publish.Artifact
	for _, entry := range cfg.Files {
		switch {
		case strings.HasPrefix(entry, "http://") || strings.HasPrefix(entry, "https://"):
			dir, err := ensureTempDir()
			if err != nil {
				return nil, cleanup, err
			}
			local, err := releases.Download(ctx, entry, dir)
			if err != nil {
				return nil, cleanup, err
			}
			artifacts = append(artifacts, publish.Artifact{Path: local, Ephemeral: true})

		default:
			if asset, ok := releaseAsset(rel, entry); ok {
				dir, err := ensureTempDir()
				if err != nil {
					return nil, cleanup, err
				}
				local, err := releases.Download(ctx, asset.DownloadURL, dir)
				if err != nil {
					return nil, cleanup, err
				}
				artifacts = append(artifacts, publish.Artifact{Path: local, Name: asset.Name, Ephemeral: true})
				continue
			}
			if _, err := os.Stat(entry); err != nil {
				logger.ErrorContext(ctx, "artifact not found", "path", entry)
				return nil, cleanup, fmt.Errorf("artifact %s: %w", entry, err)
			}
			artifacts = append(artifacts, publish.Artifact{Path: entry})
		}
	}
	return artifacts, cleanup, nil
}

// releaseAsset looks an entry up among the resolved release's assets.
func releaseAsset(rel *release.Release, name string) (*release.Asset, bool) {
	if rel == nil {
		return nil, false
	}
	return rel.Asset(name)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags).
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
