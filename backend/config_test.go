package backend

import (
	"testing"
	"time"

	"github.com/Kampouse/fastkv-server/config"
	"github.com/Kampouse/fastkv-server/execution"
	"github.com/Kampouse/fastkv-server/tx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindConfig(t *testing.T, c *Config, args ...string) *viper.Viper {
	v := viper.New()
	cmd := &cobra.Command{}
	require.Nil(t, c.Bind(v, cmd))
	require.Nil(t, cmd.PersistentFlags().Parse(args))
	require.Nil(t, v.BindPFlags(cmd.PersistentFlags()))
	return v
}

func TestConfigDefaults(t *testing.T) {
	c := &Config{}
	v := bindConfig(t, c)

	require.Nil(t, c.Configure(v))
	assert.Equal(t, "https://api.outlayer.fastnear.com/call/Kampouse/key-manager", c.Enclave.URL)
	assert.Equal(t, time.Duration(0), c.Enclave.Timeout)
	assert.Equal(t, "https://rpc.mainnet.near.org", c.Ledger.URL)
	assert.Equal(t, "kampouse.near", c.Ledger.Signer)
	assert.Equal(t, 10*time.Second, c.Ledger.Timeout)
	assert.Equal(t, execution.DefaultPolicy(), c.Execution.Policy)
	assert.Equal(t, tx.DefaultTemplate(), c.Deferred.Template)
}

func TestConfigInvalidEnclaveURL(t *testing.T) {
	c := &Config{}
	v := bindConfig(t, c, "--enclave.url", "ftp://host/path")

	err := c.Configure(v)

	assert.Equal(t, config.ErrInvalidValue{Key: cfgEnclaveURL, InvalidValue: "ftp://host/path"}, err)
}

func TestConfigEmptyLedgerURL(t *testing.T) {
	c := &Config{}
	v := bindConfig(t, c, "--ledger.url", "")

	err := c.Configure(v)

	assert.Equal(t, config.ErrKeyNotSet{Key: cfgLedgerURL}, err)
}

func TestConfigInvalidLedgerTimeout(t *testing.T) {
	c := &Config{}
	v := bindConfig(t, c, "--ledger.timeout", "0s")

	err := c.Configure(v)

	assert.IsType(t, config.ErrInvalidValue{}, err)
}

func TestConfigOverride(t *testing.T) {
	c := &Config{}
	v := bindConfig(t, c,
		"--enclave.url", "http://127.0.0.1:9000/call",
		"--enclave.timeout", "90s",
		"--ledger.signer", "bob.near")

	require.Nil(t, c.Configure(v))
	assert.Equal(t, "http://127.0.0.1:9000/call", c.Enclave.URL)
	assert.Equal(t, 90*time.Second, c.Enclave.Timeout)
	assert.Equal(t, "bob.near", c.Ledger.Signer)
}
