package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	githubadapter "github.com/alanyang/projects-sync/internal/adapter/github"
	domainproject "github.com/alanyang/projects-sync/internal/domain/project"
	"github.com/alanyang/projects-sync/internal/service/reconcile"
)

// Keys shared by flags and environment variables.
const (
	KeyToken                = "token"
	KeyRepository           = "repository"
	KeyProjects             = "projects"
	KeyOutput               = "output"
	KeyGraphQLURL           = "graphql-url"
	KeyDatabaseURL          = "database-url"
	KeyPort                 = "port"
	KeyConsistencyThreshold = "consistency-threshold"
	KeyMaxFetchAttempts     = "max-fetch-attempts"
	KeyRetryDelay           = "retry-delay"
	KeyLogFormat            = "log-format"
	KeyLogLevel             = "log-level"
	KeyLogFile              = "log-file"
)

var envNames = map[string]string{
	KeyToken:                "GITHUB_TOKEN",
	KeyRepository:           "GITHUB_REPOSITORY",
	KeyProjects:             "INPUT_PROJECTS",
	KeyOutput:               "GITHUB_OUTPUT",
	KeyGraphQLURL:           "GITHUB_GRAPHQL_URL",
	KeyDatabaseURL:          "DATABASE_URL",
	KeyPort:                 "PORT",
	KeyConsistencyThreshold: "SYNC_CONSISTENCY_THRESHOLD",
	KeyMaxFetchAttempts:     "SYNC_MAX_FETCH_ATTEMPTS",
	KeyRetryDelay:           "SYNC_RETRY_DELAY",
	KeyLogFormat:            "LOG_FORMAT",
	KeyLogLevel:             "LOG_LEVEL",
	KeyLogFile:              "LOG_FILE",
}

var (
	ErrMissingToken  = errors.New("GITHUB_TOKEN is required")
	ErrInvalidTuning = errors.New("invalid sync tuning")
	ErrInvalidLog    = errors.New("invalid logging option")
)

type Config struct {
	Token       string
	Owner       string
	Repository  string
	Projects    []string
	OutputPath  string
	GraphQLURL  string
	DatabaseURL string
	Port        string
	Sync        reconcile.Config
	LogFormat   string
	LogLevel    string
	// LogFile, when set, receives the logs instead of stderr and is rotated.
	LogFile string
}

// NewViper returns a viper instance with defaults and environment bindings
// installed. Callers bind their flags on top.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyGraphQLURL, githubadapter.DefaultEndpoint)
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyConsistencyThreshold, reconcile.DefaultConfig.ConsistencyThreshold)
	v.SetDefault(KeyMaxFetchAttempts, reconcile.DefaultConfig.MaxFetchAttempts)
	v.SetDefault(KeyRetryDelay, reconcile.DefaultConfig.RetryDelay)
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyLogLevel, "info")

	for key, env := range envNames {
		// BindEnv only errors when called without a key.
		_ = v.BindEnv(key, env)
	}
	return v
}

// LoadDotEnv reads .env files into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				slog.Debug("no .env file found, using environment variables", "path", p)
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the configuration from v. It does not validate it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Token:       strings.TrimSpace(v.GetString(KeyToken)),
		Projects:    domainproject.ParseTitles(v.GetString(KeyProjects)),
		OutputPath:  v.GetString(KeyOutput),
		GraphQLURL:  v.GetString(KeyGraphQLURL),
		DatabaseURL: v.GetString(KeyDatabaseURL),
		Port:        v.GetString(KeyPort),
		Sync: reconcile.Config{
			ConsistencyThreshold: v.GetInt(KeyConsistencyThreshold),
			MaxFetchAttempts:     v.GetInt(KeyMaxFetchAttempts),
			RetryDelay:           v.GetDuration(KeyRetryDelay),
		},
		LogFormat: strings.ToLower(v.GetString(KeyLogFormat)),
		LogLevel:  strings.ToLower(v.GetString(KeyLogLevel)),
		LogFile:   v.GetString(KeyLogFile),
	}

	if slug := v.GetString(KeyRepository); slug != "" {
		owner, name, err := domainproject.ParseRepository(slug)
		if err != nil {
			return Config{}, err
		}
		cfg.Owner, cfg.Repository = owner, name
	}
	return cfg, nil
}

// Validate checks what every command needs: a token, sane tuning and a
// known log format and level.
func (c Config) Validate() error {
	if c.Token == "" {
		return ErrMissingToken
	}
	if c.Sync.ConsistencyThreshold < 0 {
		return fmt.Errorf("%w: consistency threshold %d is negative", ErrInvalidTuning, c.Sync.ConsistencyThreshold)
	}
	if c.Sync.MaxFetchAttempts < 1 {
		return fmt.Errorf("%w: max fetch attempts must be at least 1, got %d", ErrInvalidTuning, c.Sync.MaxFetchAttempts)
	}
	if c.Sync.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay %s is negative", ErrInvalidTuning, c.Sync.RetryDelay)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidLog, c.LogFormat)
	}
	return nil
}

// ValidateSync additionally requires the repository the sync targets.
func (c Config) ValidateSync() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Owner == "" || c.Repository == "" {
		return fmt.Errorf("%w: set GITHUB_REPOSITORY or --repository", domainproject.ErrInvalidRepository)
	}
	return nil
}

func (c Config) SlogLevel() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: log level %q", ErrInvalidLog, c.LogLevel)
}
