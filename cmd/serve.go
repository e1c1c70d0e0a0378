package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stillframe/gallery-agent/server"
)

func newServeCmd(cfg *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the agent over a WebSocket chat endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			key := apiKey(cfg)
			if key == "" {
				return fmt.Errorf("no API key: set GALLERY_AGENT_ANTHROPIC_API_KEY or ANTHROPIC_API_KEY")
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			srv, err := server.New(server.Config{
				AnthropicKey: key,
				Model:        cfg.GetString("model"),
				MaxRounds:    cfg.GetInt("max-rounds"),
				CacheTTL:     cacheTTL(cfg),
				Tools:        toolConfig(cfg),
				Logger:       logger,
			})
			if err != nil {
				return err
			}

			addr := cfg.GetString("listen")
			if addr == "" {
				addr = ":8080"
			}
			return srv.Run(addr)
		},
	}
	cmd.Flags().String("listen", ":8080", "listen address")
	_ = cfg.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	return cmd
}
