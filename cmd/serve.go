package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/chatrelay/internal/api"
	"github.com/chatrelay/internal/config"
	"github.com/chatrelay/internal/logging"
	"github.com/chatrelay/internal/relay"
	"github.com/chatrelay/internal/session"
	"github.com/chatrelay/internal/upstream"
)

// ServeCommand returns the CLI command for starting the relay server
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the ChatRelay API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

			port := cfg.Server.Port
			if c.IsSet("port") {
				port = c.Int("port")
			}

			client := upstream.NewOpenAIClient(upstream.OpenAIOptions{
				APIKey:  cfg.Upstream.APIKey,
				BaseURL: cfg.Upstream.BaseURL,
				Model:   cfg.Upstream.Model,
			})

			store, closeStore, err := buildSessionStore(cfg)
			if err != nil {
				return err
			}
			if closeStore != nil {
				defer closeStore()
			}

			resolver := session.NewResolver(store, client)
			coordinator := relay.NewCoordinator(client, relay.CoordinatorConfig{
				AssistantID:  cfg.Upstream.AssistantID,
				PollInterval: cfg.PollInterval(),
				PollTimeout:  cfg.PollTimeout(),
			})
			streamer := relay.NewStreamer(client, relay.StreamConfig{
				MaxHistoryTurns: cfg.Relay.MaxHistoryTurns,
				SystemPrompt:    cfg.Relay.SystemPrompt,
			})

			log.Info().
				Int("port", port).
				Str("session_store", cfg.Session.Store).
				Msg("Starting ChatRelay server")

			server := api.NewServer(port, coordinator, resolver, streamer)
			return server.Start()
		},
	}
}

func buildSessionStore(cfg *config.Config) (session.Store, func() error, error) {
	switch cfg.Session.Store {
	case "bolt":
		store, err := session.OpenBoltStore(cfg.Session.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return session.NewMemoryStoreWithTTL(cfg.SessionTTL()), nil, nil
	}
}
