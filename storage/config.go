package storage

import (
	"regexp"
	"time"

	"github.com/Kampouse/fastkv-server/config"
	"github.com/Kampouse/fastkv-server/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	cfgTable   = "storage.table"
	cfgTimeout = "storage.timeout"
)

var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Config holds the parameters of the queries built for the store
type Config struct {
	Table   string
	Timeout time.Duration
}

func (c *Config) Log(fields log.Fields) {
	fields.Add(cfgTable, c.Table)
	fields.Add(cfgTimeout, c.Timeout)
}

func (c *Config) Configure(v *viper.Viper) error {
	c.Table = v.GetString(cfgTable)
	if len(c.Table) == 0 {
		return config.ErrKeyNotSet{Key: cfgTable}
	}

	if !tablePattern.MatchString(c.Table) {
		return config.ErrInvalidValue{Key: cfgTable, InvalidValue: c.Table}
	}

	c.Timeout = v.GetDuration(cfgTimeout)
	if c.Timeout <= 0 {
		return config.ErrInvalidValue{Key: cfgTimeout, InvalidValue: c.Timeout.String()}
	}

	return nil
}

func (c *Config) Bind(v *viper.Viper, cmd *cobra.Command) error {
	cmd.PersistentFlags().String(cfgTable, DefaultTable, "table holding the latest value of every key")
	cmd.PersistentFlags().Duration(cfgTimeout, DefaultTimeout, "server side timeout of storage queries")
	return nil
}

// NewBuilder creates the query builder for the configuration
func (c *Config) NewBuilder() *Builder {
	return NewBuilder(c.Table, c.Timeout)
}
