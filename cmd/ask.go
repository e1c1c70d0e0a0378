package cmd

import (
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stillframe/gallery-agent/cache"
	"github.com/stillframe/gallery-agent/engine"
	"github.com/stillframe/gallery-agent/gallery"
	"github.com/stillframe/gallery-agent/tools"
)

func newAskCmd(cfg *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Run a single agent turn against the sample gallery",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := apiKey(cfg)
			if key == "" {
				return fmt.Errorf("no API key: set GALLERY_AGENT_ANTHROPIC_API_KEY or ANTHROPIC_API_KEY")
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			gal, err := gallery.NewSeededStore()
			if err != nil {
				return fmt.Errorf("seed gallery: %w", err)
			}

			var cacheOpts []cache.Option
			if ttl := cacheTTL(cfg); ttl > 0 {
				cacheOpts = append(cacheOpts, cache.WithTTL(ttl))
			}
			results := cache.NewStore(cacheOpts...)

			registry := engine.NewToolRegistry()
			registry.Register(tools.GalleryTools(gal, results, toolConfig(cfg))...)

			client := anthropic.NewClient(option.WithAPIKey(key))
			opts := []engine.Option{
				engine.WithLogger(logger),
				engine.WithAudit(engine.NewLoggerAudit(logger)),
			}
			if model := cfg.GetString("model"); model != "" {
				opts = append(opts, engine.WithModel(model))
			}
			if n := cfg.GetInt("max-rounds"); n > 0 {
				opts = append(opts, engine.WithMaxRounds(n))
			}

			eng := engine.NewEngine(&client, registry, results, opts...)

			out, err := eng.Run(cmd.Context(), &engine.Input{
				UserMessage: strings.Join(args, " "),
			})
			if err != nil {
				return err
			}
			if out.Type == engine.OutputFailed {
				return fmt.Errorf("turn failed (%s): %w", out.FailureCode, out.Err)
			}

			logger.Debug("turn complete",
				zap.Int("tool_calls", len(out.ToolsUsed)),
				zap.Int("input_tokens", out.TokensUsed.InputTokens),
				zap.Int("output_tokens", out.TokensUsed.OutputTokens))

			_, err = fmt.Fprintln(cmd.OutOrStdout(), out.Text)
			return err
		},
	}
}
