package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/beekeeper-client/internal/config"
	"github.com/Sternrassler/beekeeper-client/pkg/client"
	"github.com/Sternrassler/beekeeper-client/pkg/logging"
	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// rootOptions carries the persistent flags and the loaded configuration to
// every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	quiet      bool
	noColor    bool

	cfg    config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "beekeeper",
		Short: "Browse and proxy the BeeKeeper blog API",
		Long: `beekeeper talks to the BeeKeeper blog REST API.

It lists articles, forum threads, comments and tags page by page, exports whole
collections as JSON and runs a caching proxy in front of the backend.

Configuration is read from beekeeper.yaml (or --config) and BEEKEEPER_*
environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to the YAML config file (default ./beekeeper.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error, disabled")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Disable logging")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable coloured output")

	cmd.AddCommand(
		newArticlesCmd(opts),
		newThreadsCmd(opts),
		newCommentsCmd(opts),
		newTagsCmd(opts),
		newExportCmd(opts),
		newLikeCmd(opts),
		newSettingsCmd(opts),
		newServeCmd(opts),
	)

	return cmd
}

// load reads the configuration and sets up logging. Flags win over the
// file and the environment.
func (o *rootOptions) load() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	if o.logLevel != "" {
		level, err := logging.ParseLevel(o.logLevel)
		if err != nil {
			return err
		}
		cfg.Log.Level = string(level)
	}
	if o.quiet {
		cfg.Log.Level = string(logging.LevelDisabled)
	}

	if o.noColor {
		color.NoColor = true
	}

	logCfg := cfg.LoggingConfig()
	logCfg.NoColor = color.NoColor
	logging.Setup(logCfg)

	o.cfg = cfg
	o.logger = log.With().Str("component", "cli").Logger()
	return nil
}

// newClient builds the blog client. The returned func releases the client
// and the Redis connection.
func (o *rootOptions) newClient(ctx context.Context) (*client.Client, func(), error) {
	var redisClient *redis.Client
	if opts := o.cfg.RedisOptions(); opts != nil {
		redisClient = redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			redisClient.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
		}
		o.logger.Debug().Str("addr", opts.Addr).Msg("Connected to Redis")
	}

	c, err := client.New(o.cfg.ClientConfig(redisClient))
	if err != nil {
		if redisClient != nil {
			redisClient.Close()
		}
		return nil, nil, fmt.Errorf("create blog client: %w", err)
	}

	return c, func() {
		c.Close()
		if redisClient != nil {
			redisClient.Close()
		}
	}, nil
}
