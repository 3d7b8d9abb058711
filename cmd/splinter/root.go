package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/example/go-splinter/internal/artifact"
	"github.com/example/go-splinter/internal/config"
	"github.com/example/go-splinter/internal/lang"
	"github.com/example/go-splinter/internal/splinter"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "splinter",
		Short:         "Splinter reduction learner and word encoder",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			setupLogger(loaded.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newTrainCmd())
	cmd.AddCommand(newEncodeCmd())
	cmd.AddCommand(newDecodeCmd())
	cmd.AddCommand(newTokenizeCmd())
	cmd.AddCommand(newVocabCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newBenchCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(levelStr string) {
	lvl, err := config.ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

func requireConfig() (config.Config, error) {
	if activeCfg.Paths.ArtifactDir == "" {
		return config.Config{}, fmt.Errorf("configuration not loaded")
	}
	return activeCfg, nil
}

// loadEngine reads the artifact set and binds it to the configured language,
// which must be the one the artifacts were trained for.
func loadEngine(cfg config.Config) (*splinter.Engine, error) {
	canon, err := lang.Lookup(cfg.Language)
	if err != nil {
		return nil, err
	}

	model, language, err := artifact.LoadModel(cfg.Paths.ArtifactDir)
	if err != nil {
		return nil, fmt.Errorf("load artifacts: %w", err)
	}
	if err := artifact.CheckLanguage(cfg.Paths.ArtifactDir, cfg.Language, language); err != nil {
		return nil, err
	}

	return splinter.NewEngine(model, canon, splinter.EngineOptions{
		Depth:     cfg.Encoder.Depth,
		Width:     cfg.Encoder.Width,
		MinLength: cfg.Encoder.MinLength,
		CacheSize: cfg.Encoder.CacheSize,
		Logger:    slog.Default(),
	})
}
