package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-bootimage/internal/helpers"
	"github.com/deploymenttheory/go-bootimage/internal/partitioner"
	"github.com/deploymenttheory/go-bootimage/internal/types"
	"github.com/deploymenttheory/go-bootimage/pkg/app"
)

// Config keys
const (
	KeyPartitionerCommand = "partitioner.command"
	KeyPartitionerStart   = "partitioner.start"
	KeyPartitionerEnd     = "partitioner.end"
	KeyLabel              = "label"
	KeyLogLevel           = "log.level"
	KeyLogFormat          = "log.format"
)

// Config holds the tool settings that are not part of a single build's inputs
type Config struct {
	Partitioner PartitionerConfig `mapstructure:"partitioner"`
	Label       string            `mapstructure:"label"`
	Log         LogConfig         `mapstructure:"log"`
}

// PartitionerConfig selects and parameterises the external partitioning tool
type PartitionerConfig struct {
	Command string `mapstructure:"command"`
	Start   string `mapstructure:"start"`
	End     string `mapstructure:"end"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPartitionerCommand, partitioner.DefaultCommand)
	v.SetDefault(KeyPartitionerStart, partitioner.DefaultStart)
	v.SetDefault(KeyPartitionerEnd, partitioner.DefaultEnd)
	v.SetDefault(KeyLabel, partitioner.DefaultLabel)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, app.LogFormatText)
}

// Load reads configuration into v and decodes it.
//
// When configFile is empty the usual locations are searched for a
// bootimage.yaml; not finding one is fine. Environment variables prefixed
// BOOTIMAGE_ override the file (BOOTIMAGE_PARTITIONER_COMMAND and so on).
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("bootimage")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.bootimage")
		v.AddConfigPath("/etc/bootimage")
	}

	v.SetEnvPrefix("BOOTIMAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, app.NewError(app.ErrCodeConfiguration, "error reading config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, app.NewError(app.ErrCodeConfiguration, "error unmarshaling config", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the partitioner will place the partition where the
// geometry step expects it.
func (c *Config) Validate() error {
	start, err := helpers.ParseSize(c.Partitioner.Start)
	if err != nil {
		return fmt.Errorf("partitioner.start: %w", err)
	}
	if start != types.PartitionOffset {
		return app.Errorf(app.ErrCodeConfiguration,
			"partitioner.start is %s, the volume must start at %s", c.Partitioner.Start, helpers.FormatSize(types.PartitionOffset))
	}
	if strings.TrimSpace(c.Partitioner.End) == "" {
		return app.Errorf(app.ErrCodeConfiguration, "partitioner.end must not be empty")
	}
	if strings.TrimSpace(c.Label) == "" {
		return app.Errorf(app.ErrCodeConfiguration, "label must not be empty")
	}
	return nil
}
