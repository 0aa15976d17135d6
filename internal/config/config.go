package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultDBPath        = "./dev.db"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultLogFormat     = "json"
	defaultMaxIterations = 200_000

	envPrefix = "COSTWORKS"
)

// Config holds application configuration sourced from flags, environment
// variables and an optional YAML file, in that order of precedence.
type Config struct {
	AdminEmail    string
	AdminPassword string
	SessionSecret string
	DBPath        string
	Port          string
	LogLevel      string
	LogFormat     string
	Dev           bool
	MCWorkers     int
	MaxIterations int

	// Warnings lists settings that are missing but not fatal.
	Warnings []string
}

// IsDev reports whether the server runs in development mode.
func (c Config) IsDev() bool { return c.Dev }

// legacyEnv maps keys to the unprefixed variable names still honoured.
var legacyEnv = map[string]string{
	"admin_email":    "ADMIN_EMAIL",
	"admin_password": "ADMIN_PASSWORD",
	"session_secret": "SESSION_SECRET",
	"db_path":        "DB_PATH",
	"port":           "PORT",
}

// Load reads the .env file, environment and command-line args (without the
// program name) and returns a populated Config.
func Load(args []string) (Config, error) {
	// Best-effort: load local dev environment variables.
	// We don't fail if the file is missing; production should use real env injection.
	_ = loadDotEnv(".env")

	fs := pflag.NewFlagSet("costworks", pflag.ContinueOnError)
	fs.String("config", "", "path to a YAML config file")
	fs.String("port", defaultPort, "HTTP listen port")
	fs.String("db", defaultDBPath, "SQLite database path")
	fs.String("log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.Bool("dev", false, "development mode")
	fs.Int("mc-workers", runtime.GOMAXPROCS(0), "Monte-Carlo worker goroutines")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetDefault("port", defaultPort)
	v.SetDefault("db_path", defaultDBPath)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("log_format", defaultLogFormat)
	v.SetDefault("dev", false)
	v.SetDefault("mc_workers", runtime.GOMAXPROCS(0))
	v.SetDefault("max_iterations", defaultMaxIterations)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(key), legacy); err != nil {
			return Config{}, err
		}
	}

	for key, flag := range map[string]string{
		"port":       "port",
		"db_path":    "db",
		"log_level":  "log-level",
		"dev":        "dev",
		"mc_workers": "mc-workers",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return Config{}, err
		}
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		AdminEmail:    v.GetString("admin_email"),
		AdminPassword: v.GetString("admin_password"),
		SessionSecret: v.GetString("session_secret"),
		DBPath:        v.GetString("db_path"),
		Port:          v.GetString("port"),
		LogLevel:      v.GetString("log_level"),
		LogFormat:     v.GetString("log_format"),
		Dev:           v.GetBool("dev"),
		MCWorkers:     v.GetInt("mc_workers"),
		MaxIterations: v.GetInt("max_iterations"),
	}

	if cfg.MCWorkers < 1 {
		cfg.MCWorkers = 1
	}
	if cfg.MaxIterations < 1 {
		return Config{}, errors.New("max_iterations must be positive")
	}

	if cfg.AdminEmail == "" {
		cfg.Warnings = append(cfg.Warnings, "ADMIN_EMAIL is not set")
	}
	if cfg.AdminPassword == "" {
		cfg.Warnings = append(cfg.Warnings, "ADMIN_PASSWORD is not set")
	}
	if cfg.SessionSecret == "" {
		cfg.Warnings = append(cfg.Warnings, "SESSION_SECRET is not set")
	}

	return cfg, nil
}
