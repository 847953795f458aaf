package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	config "github.com/cochaviz/skiff/config"
	"github.com/cochaviz/skiff/internal/bundle"
	"github.com/cochaviz/skiff/internal/logging"
	"github.com/cochaviz/skiff/internal/setup"
	"github.com/cochaviz/skiff/internal/trigger"
)

const defaultLogLevel = "info"

func main() {
	var levelVar slog.LevelVar
	levelVar.Set(slog.LevelInfo)

	logger := logging.NewCLI(os.Stderr, &levelVar)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(logger, &levelVar)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("command interrupted", "error", err)
			os.Exit(130)
		}
		logger.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand(logger *slog.Logger, levelVar *slog.LevelVar) *cobra.Command {
	setup.SetLogger(logger.With("component", "setup"))

	logLevel := defaultLogLevel

	root := &cobra.Command{
		Use:           "skiff",
		Short:         "CLI for 'skiff': package and publish desktop application releases",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "Set log verbosity (debug, info, warning, error)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := parseLogLevel(logLevel)
		if err != nil {
			return err
		}
		if levelVar != nil {
			levelVar.Set(level)
		}
		return nil
	}

	root.AddCommand(
		newRunCommand(logger),
		newVersionCommand(logger),
		newPublishCommand(logger),
		newPlatformsCommand(logger),
		newVerifyCommand(logger),
	)
	return root
}

func newRunCommand(logger *slog.Logger) *cobra.Command {
	var (
		manifestPath string
		outputDir    string
		eventKind    string
		eventRef     string
		fromEnv      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full release pipeline for every configured platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdLogger := logger.With("command", "run")

			if err := setup.Verify(manifestPath); err != nil {
				cmdLogger.Error("verification failed", "error", err)
				return err
			}
			if err := setup.VerifyPackager(bundle.DefaultExecutable); err != nil {
				cmdLogger.Error("verification failed", "error", err)
				return err
			}

			event := trigger.FromEnv()
			if !fromEnv {
				parsed, err := trigger.Parse(eventKind, eventRef)
				if err != nil {
					return err
				}
				event = parsed
			}

			cmdLogger.Info("starting pipeline", "event", string(event.Kind), "ref", event.Ref)

			results, err := config.RunPipeline(cmd.Context(), manifestPath, outputDir, event, cmdLogger)
			for _, result := range results {
				outcome := "succeeded"
				if !result.Succeeded() {
					outcome = fmt.Sprintf("failed (%v)", result.Err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", result.Platform.Name, outcome)
			}
			if err != nil {
				cmdLogger.Error("pipeline failed", "error", err)
				return err
			}

			cmdLogger.Info("pipeline completed")
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", config.DefaultManifestPath, "Path to the pipeline manifest")
	cmd.Flags().StringVar(&outputDir, "output", "", "Override the manifest's output directory")
	cmd.Flags().StringVar(&eventKind, "event", string(trigger.KindPush), "Trigger event kind (push, release)")
	cmd.Flags().StringVar(&eventRef, "ref", "", "Trigger ref (e.g. refs/tags/v1.2.0)")
	cmd.Flags().BoolVar(&fromEnv, "from-env", false, "Read the trigger event from the CI environment")

	return cmd
}

func newVersionCommand(logger *slog.Logger) *cobra.Command {
	var (
		repoDir   string
		writePath string
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Resolve the version for the current checkout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdLogger := logger.With("command", "version")

			version, err := config.ResolveVersion(cmd.Context(), repoDir, writePath, cmdLogger)
			if err != nil {
				cmdLogger.Error("version resolution failed", "error", err)
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), version.Value)
			return nil
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "Repository directory to resolve the version from")
	cmd.Flags().StringVar(&writePath, "write", "", "Also write the version file to this path")

	return cmd
}

func newPublishCommand(logger *slog.Logger) *cobra.Command {
	var (
		manifestPath string
		tag          string
	)

	cmd := &cobra.Command{
		Use:   "publish <archive>...",
		Args:  cobra.MinimumNArgs(1),
		Short: "Upload already-produced archives to the release for a tag",
		RunE: func(cmd *cobra.Command, args []string) error {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				return fmt.Errorf("tag is required")
			}

			cmdLogger := logger.With("command", "publish", "tag", tag)

			if err := config.PublishArchives(cmd.Context(), manifestPath, tag, args, cmdLogger); err != nil {
				cmdLogger.Error("publish failed", "error", err)
				return err
			}

			cmdLogger.Info("publish completed", "archives", len(args))
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", config.DefaultManifestPath, "Path to the pipeline manifest")
	cmd.Flags().StringVar(&tag, "tag", "", "Release tag to upload the archives to")

	return cmd
}

func newPlatformsCommand(logger *slog.Logger) *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "platforms",
		Short: "List the configured platform targets and their variants",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdLogger := logger.With("command", "platforms")

			m, err := config.LoadManifest(manifestPath)
			if err != nil {
				cmdLogger.Error("loading manifest failed", "error", err)
				return err
			}

			out := cmd.OutOrStdout()
			for _, platform := range m.Platforms {
				for _, variant := range platform.Variants {
					fmt.Fprintf(out, "%s\t%s\t%s\n",
						platform.Name, variant.Name, m.ArchiveName(platform, variant))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", config.DefaultManifestPath, "Path to the pipeline manifest")

	return cmd
}

func newVerifyCommand(logger *slog.Logger) *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the manifest and required external tools are present",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdLogger := logger.With("command", "verify")

			if err := setup.Verify(manifestPath); err != nil {
				cmdLogger.Error("verification failed", "error", err)
				return err
			}
			if err := setup.VerifyPackager(bundle.DefaultExecutable); err != nil {
				cmdLogger.Error("verification failed", "error", err)
				return err
			}

			if _, err := config.LoadManifest(manifestPath); err != nil {
				cmdLogger.Error("manifest validation failed", "error", err)
				return err
			}

			cmdLogger.Info("verification succeeded")
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", config.DefaultManifestPath, "Path to the pipeline manifest")

	return cmd
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "err":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", value)
	}
}
