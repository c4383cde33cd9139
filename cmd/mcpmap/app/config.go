package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/mcpmap/pkg/dedupe"
	"github.com/agentstation/mcpmap/pkg/errors"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool

	// Config file
	ConfigFile string

	// Run configuration
	RunID   string
	Mode    string
	Output  string
	Dataset string

	// State storage. When S3Endpoint is set the S3 store is used, otherwise
	// state lives under StateDir on the local filesystem.
	StateDir    string
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool

	// Source configuration
	NPMQuery       string
	NPMMaxPages    int
	PyPIPackages   []string
	GitHubTopic    string
	GitHubMaxPages int
	GitHubToken    string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// command-line flags (handled by cobra), environment variables, .env files,
// the config file (~/.mcpmap.yaml) and defaults.
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".mcpmap")
		}
	}

	// Config file is optional.
	_ = viper.ReadInConfig()

	config := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),

		ConfigFile: viper.ConfigFileUsed(),

		RunID:   viper.GetString("run_id"),
		Mode:    viper.GetString("mode"),
		Dataset: viper.GetString("dataset"),

		StateDir:    viper.GetString("state_dir"),
		S3Endpoint:  viper.GetString("s3_endpoint"),
		S3Region:    viper.GetString("s3_region"),
		S3Bucket:    viper.GetString("s3_bucket"),
		S3AccessKey: viper.GetString("s3_access_key"),
		S3SecretKey: viper.GetString("s3_secret_key"),
		S3UseSSL:    viper.GetBool("s3_use_ssl"),

		NPMQuery:       viper.GetString("npm_query"),
		NPMMaxPages:    viper.GetInt("npm_max_pages"),
		PyPIPackages:   viper.GetStringSlice("pypi_packages"),
		GitHubTopic:    viper.GetString("github_topic"),
		GitHubMaxPages: viper.GetInt("github_max_pages"),
		GitHubToken:    viper.GetString("github_token"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	// Defaults
	if config.RunID == "" {
		config.RunID = "default"
	}
	if config.Mode == "" {
		config.Mode = string(dedupe.ModeIncremental)
	}
	if config.StateDir == "" {
		config.StateDir = defaultStateDir()
	}

	return config, nil
}

// Validate checks config values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := dedupe.ParseMode(c.Mode); err != nil {
		return err
	}
	if c.S3Endpoint != "" && c.S3Bucket == "" {
		return &errors.ConfigError{Component: "app", Message: "s3_bucket is required when s3_endpoint is set"}
	}
	return nil
}

// UpdateFromFlags updates config values from parsed command flags so flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mcpmap"
	}
	return home + "/.mcpmap"
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, file := range []string{".env", ".env.local"} {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Overload(file)
		}
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
