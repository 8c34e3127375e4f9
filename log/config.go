package log

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	cfgLoggingLevel  = "logging.level"
	cfgLoggingFormat = "logging.format"
)

type Config struct {
	Level  string
	Format string
}

func (c *Config) Log(fields Fields) {
	fields.Add(cfgLoggingLevel, c.Level)
	fields.Add(cfgLoggingFormat, c.Format)
}

func (c *Config) Configure(v *viper.Viper) error {
	c.Level = v.GetString(cfgLoggingLevel)
	if len(c.Level) == 0 {
		c.Level = "info"
	}

	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s must be one of debug, info, warn, error", cfgLoggingLevel)
	}

	c.Format = v.GetString(cfgLoggingFormat)
	if len(c.Format) == 0 {
		c.Format = "json"
	}

	if c.Format != "json" && c.Format != "text" {
		return fmt.Errorf("%s must be one of json, text", cfgLoggingFormat)
	}

	return nil
}

func (c *Config) Bind(v *viper.Viper, cmd *cobra.Command) error {
	cmd.PersistentFlags().String(cfgLoggingLevel, "info",
		"sets the minimum logging level for the logger")
	cmd.PersistentFlags().String(cfgLoggingFormat, "json",
		"sets the output format of the logger, json or text")
	return nil
}
