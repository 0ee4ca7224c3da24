package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envKeyReplacer maps nested keys like s3.bucket to SHUTTLE_S3_BUCKET.
var envKeyReplacer = strings.NewReplacer(".", "_")

// Config holds the full service configuration, loadable from a YAML file
// and overridable through SHUTTLE_* environment variables.
type Config struct {
	// Listen is the HTTP listen address for serve mode.
	Listen string `mapstructure:"listen"`

	// StateDir holds durable state; the dedup index lives at
	// StateDir/dedup.db.
	StateDir string `mapstructure:"state_dir"`

	// StagingDir holds transient per-file downloads. Empty means the
	// system temp directory.
	StagingDir string `mapstructure:"staging_dir"`

	// Streams bounds the number of concurrent file workers per job.
	Streams int `mapstructure:"streams"`

	Source SourceConfig `mapstructure:"source"`
	S3     S3Config     `mapstructure:"s3"`
	Retry  RetryConfig  `mapstructure:"retry"`
}

// SourceConfig selects and configures the source repository.
type SourceConfig struct {
	// CredentialsFile is the Google service account credentials file for
	// the Drive source.
	CredentialsFile string `mapstructure:"credentials_file"`

	// LocalDir, when set, uses a local directory as the source instead of
	// Drive. Intended for development and tests.
	LocalDir string `mapstructure:"local_dir"`
}

// S3Config configures the destination bucket.
type S3Config struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
	Region string `mapstructure:"region"`
	// Endpoint overrides the S3 endpoint, e.g. for localstack.
	Endpoint string `mapstructure:"endpoint"`

	// LocalDir, when set, writes objects into a local directory instead of
	// S3. Intended for development and tests.
	LocalDir string `mapstructure:"local_dir"`
}

// RetryConfig bounds per-file download/upload retries.
type RetryConfig struct {
	MaxAttempts     uint64        `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// Load reads configuration from the given file (optional), the working
// directory's shuttle.yaml, and SHUTTLE_* environment variables, in
// increasing precedence of env over file over defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen", "0.0.0.0:8000")
	v.SetDefault("state_dir", "./.shuttle-state")
	v.SetDefault("staging_dir", "")
	v.SetDefault("streams", 4)
	// Every key needs a default registered so AutomaticEnv can surface it
	// through Unmarshal.
	v.SetDefault("source.credentials_file", "")
	v.SetDefault("source.local_dir", "")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.prefix", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.local_dir", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_interval", 500*time.Millisecond)
	v.SetDefault("retry.max_interval", 10*time.Second)

	v.SetEnvPrefix("SHUTTLE")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("shuttle")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/shuttle")
		if err := v.ReadInConfig(); err != nil {
			// A missing config file is fine; defaults and env still apply.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Streams <= 0 {
		return nil, fmt.Errorf("streams must be positive, got %d", cfg.Streams)
	}
	return &cfg, nil
}
