package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/vecingest/blobstore/minio"
	"github.com/hupe1980/vecingest/resource"
)

// Config is the merged result of defaults, config file, environment and flags.
type Config struct {
	Store       string `mapstructure:"store"`
	LogLevel    string `mapstructure:"log-level"`
	Format      string `mapstructure:"format"`
	Compression string `mapstructure:"compression"`
	Codec       string `mapstructure:"codec"`
	Overflow    string `mapstructure:"overflow"`
	Parallelism int    `mapstructure:"parallelism"`
	MetricsFile string `mapstructure:"metrics-file"`

	Resource resource.Config `mapstructure:"resource"`
	S3       S3Config        `mapstructure:"s3"`
	MinIO    minio.Config    `mapstructure:"minio"`
}

// S3Config holds the settings used for s3:// stores.
type S3Config struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
	// DynamoDBTable enables the DynamoDB-backed CURRENT pointer for
	// concurrent writers on the same prefix.
	DynamoDBTable string `mapstructure:"dynamodb_table"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store", "local:./data")
	v.SetDefault("log-level", "warn")
	v.SetDefault("format", "json")
	v.SetDefault("compression", "zstd")
	v.SetDefault("codec", "json")
	v.SetDefault("overflow", "wrap")
	v.SetDefault("parallelism", 0)
	v.SetDefault("metrics-file", "")

	v.SetDefault("resource.memory_limit_bytes", 0)
	v.SetDefault("resource.max_concurrent_inserts", 0)
	v.SetDefault("resource.io_limit_bytes_per_sec", 0)

	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.dynamodb_table", "")

	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.region", "")
	v.SetDefault("minio.secure", true)
}

// loadConfig merges the config sources for cmd. Flags that were set
// explicitly win over environment variables, which win over the file.
func loadConfig(cmd *cobra.Command, cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("VECINGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
