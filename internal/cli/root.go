// Package cli is the projects-sync command line: a one-shot sync for CI
// steps and a long-running server.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alanyang/projects-sync/internal/config"
	"github.com/alanyang/projects-sync/internal/service/reconcile"
	"github.com/alanyang/projects-sync/internal/wire"
)

const (
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 3
	logFileMaxAgeDays = 7
)

// NewRootCommand builds the command tree. Running the root command without a
// subcommand performs a sync, which is what the action entrypoint does.
func NewRootCommand(version string, opts ...wire.Option) *cobra.Command {
	v := config.NewViper()
	var envFiles []string

	root := &cobra.Command{
		Use:   "projects-sync",
		Short: "Keep the projects attached to a GitHub repository in line with a list of titles",
		Long: `projects-sync creates the missing and deletes the extraneous ProjectsV2
attached to a repository so they match the desired titles exactly.

Configuration comes from flags, then environment variables (GITHUB_TOKEN,
GITHUB_REPOSITORY, INPUT_PROJECTS, GITHUB_OUTPUT, DATABASE_URL, ...), then an
optional .env file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.LoadDotEnv(envFiles...)
		},
	}

	flags := root.PersistentFlags()
	flags.StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")
	flags.String(config.KeyToken, "", "GitHub token (env GITHUB_TOKEN)")
	flags.String(config.KeyRepository, "", "repository as owner/name (env GITHUB_REPOSITORY)")
	flags.String(config.KeyGraphQLURL, "", "GraphQL endpoint (env GITHUB_GRAPHQL_URL)")
	flags.String(config.KeyDatabaseURL, "", "Postgres URL for run history, locking and events (env DATABASE_URL)")
	flags.Int(config.KeyConsistencyThreshold, reconcile.DefaultConfig.ConsistencyThreshold, "creations tolerated before the listing is re-fetched")
	flags.Int(config.KeyMaxFetchAttempts, reconcile.DefaultConfig.MaxFetchAttempts, "maximum listing fetches, the first included")
	flags.Duration(config.KeyRetryDelay, reconcile.DefaultConfig.RetryDelay, "wait between listing fetches")
	flags.String(config.KeyLogFormat, "text", "log format: text or json")
	flags.String(config.KeyLogLevel, "info", "log level: debug, info, warn or error")
	flags.String(config.KeyLogFile, "", "write logs to this file, rotated, instead of stderr (env LOG_FILE)")
	bindFlags(v, flags, config.KeyToken, config.KeyRepository, config.KeyGraphQLURL,
		config.KeyDatabaseURL, config.KeyConsistencyThreshold, config.KeyMaxFetchAttempts,
		config.KeyRetryDelay, config.KeyLogFormat, config.KeyLogLevel, config.KeyLogFile)

	syncCmd := newSyncCommand(v, opts)
	root.RunE = syncCmd.RunE
	root.Flags().AddFlagSet(syncCmd.Flags())

	root.AddCommand(syncCmd)
	root.AddCommand(newServeCommand(v, opts))
	return root
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys ...string) {
	for _, key := range keys {
		if f := flags.Lookup(key); f != nil {
			// BindPFlag only fails on a nil flag.
			_ = v.BindPFlag(key, f)
		}
	}
}

// loadConfig reads and validates the configuration, then installs the
// default logger. Logs go to stderr unless a log file is configured; stdout
// is reserved for command output.
func loadConfig(v *viper.Viper, stderr io.Writer, validate func(config.Config) error) (config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, err
	}
	if err := validate(cfg); err != nil {
		return config.Config{}, err
	}

	out := stderr
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
			MaxAge:     logFileMaxAgeDays,
			Compress:   true,
		}
	}

	level, _ := cfg.SlogLevel()
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
	return cfg, nil
}
