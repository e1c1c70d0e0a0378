// Package cmd wires the gallery agent's command line interface.
package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stillframe/gallery-agent/tools"
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cfg := viper.New()

	rootCmd := &cobra.Command{
		Use:           "gallery-agent",
		Short:         "Conversational gallery curator backed by Claude",
		Long:          "gallery-agent lets you search, tag, and clean up a photo gallery through natural language, either one question at a time (ask) or over a WebSocket chat server (serve).",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("model", "", "model identifier override")
	rootCmd.PersistentFlags().Int("max-rounds", 0, "maximum tool rounds per turn")
	rootCmd.PersistentFlags().Duration("cache-ttl", 0, "result cache time to live")
	rootCmd.PersistentFlags().Int("max-page-size", 0, "maximum search results per page")
	rootCmd.PersistentFlags().Int("related-limit", 0, "maximum related images returned per lookup")

	cfg.SetEnvPrefix("GALLERY_AGENT")
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()
	_ = cfg.BindPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newVersionCmd(),
		newAskCmd(cfg),
		newServeCmd(cfg),
	)

	return rootCmd
}

// newLogger builds the process logger. Debug mode switches to the
// human-readable development encoder.
func newLogger(cfg *viper.Viper) (*zap.Logger, error) {
	if cfg.GetBool("debug") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// apiKey resolves the Anthropic key, falling back to the standard
// ANTHROPIC_API_KEY environment variable.
func apiKey(cfg *viper.Viper) string {
	if key := cfg.GetString("anthropic-api-key"); key != "" {
		return key
	}
	return os.Getenv("ANTHROPIC_API_KEY")
}

func cacheTTL(cfg *viper.Viper) time.Duration {
	return cfg.GetDuration("cache-ttl")
}

// toolConfig builds the dispatcher limits from flags/env, leaving
// zero values to the package defaults.
func toolConfig(cfg *viper.Viper) tools.Config {
	out := tools.DefaultConfig()
	if n := cfg.GetInt("max-page-size"); n > 0 {
		out.MaxPageSize = n
	}
	if n := cfg.GetInt("related-limit"); n > 0 {
		out.RelatedLimit = n
	}
	return out
}
