package backend

import (
	"net/url"
	"time"

	"github.com/Kampouse/fastkv-server/config"
	"github.com/Kampouse/fastkv-server/execution"
	"github.com/Kampouse/fastkv-server/log"
	"github.com/Kampouse/fastkv-server/tx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	cfgEnclaveURL     = "enclave.url"
	cfgEnclaveTimeout = "enclave.timeout"
	cfgLedgerURL      = "ledger.url"
	cfgLedgerSigner   = "ledger.signer"
	cfgLedgerTimeout  = "ledger.timeout"
)

// Config holds the configuration of the collaborators the request
// manager talks to
type Config struct {
	Enclave   EnclaveConfig
	Ledger    LedgerConfig
	Execution execution.Config
	Deferred  tx.Config
}

func (c *Config) Log(fields log.Fields) {
	c.Enclave.Log(fields)
	c.Ledger.Log(fields)
	c.Execution.Log(fields)
	c.Deferred.Log(fields)
}

func (c *Config) Configure(v *viper.Viper) error {
	if err := c.Enclave.Configure(v); err != nil {
		return err
	}

	if err := c.Ledger.Configure(v); err != nil {
		return err
	}

	if err := c.Execution.Configure(v); err != nil {
		return err
	}

	return c.Deferred.Configure(v)
}

func (c *Config) Bind(v *viper.Viper, cmd *cobra.Command) error {
	for _, binder := range []config.Binder{&c.Enclave, &c.Ledger, &c.Execution, &c.Deferred} {
		if err := binder.Bind(v, cmd); err != nil {
			return err
		}
	}

	return nil
}

// EnclaveConfig is the configuration of the attested execution
// service used on the direct path
type EnclaveConfig struct {
	URL string

	// Timeout of a call, zero leaves calls bounded only by the
	// execution limits
	Timeout time.Duration
}

func (c *EnclaveConfig) Log(fields log.Fields) {
	fields.Add(cfgEnclaveURL, c.URL)
	fields.Add(cfgEnclaveTimeout, c.Timeout)
}

func (c *EnclaveConfig) Configure(v *viper.Viper) error {
	c.URL = v.GetString(cfgEnclaveURL)
	if err := validateURL(cfgEnclaveURL, c.URL); err != nil {
		return err
	}

	c.Timeout = v.GetDuration(cfgEnclaveTimeout)
	if c.Timeout < 0 {
		return config.ErrInvalidValue{Key: cfgEnclaveTimeout, InvalidValue: c.Timeout.String()}
	}

	return nil
}

func (c *EnclaveConfig) Bind(v *viper.Viper, cmd *cobra.Command) error {
	cmd.PersistentFlags().String(cfgEnclaveURL,
		"https://api.outlayer.fastnear.com/call/Kampouse/key-manager",
		"url of the key manager in the attested execution service")
	cmd.PersistentFlags().Duration(cfgEnclaveTimeout, 0,
		"timeout of key manager calls, 0 disables the client side timeout")
	return nil
}

// LedgerConfig is the configuration of the ledger used to resolve
// transactions of the deferred path
type LedgerConfig struct {
	URL     string
	Signer  string
	Timeout time.Duration
}

func (c *LedgerConfig) Log(fields log.Fields) {
	fields.Add(cfgLedgerURL, c.URL)
	fields.Add(cfgLedgerSigner, c.Signer)
	fields.Add(cfgLedgerTimeout, c.Timeout)
}

func (c *LedgerConfig) Configure(v *viper.Viper) error {
	c.URL = v.GetString(cfgLedgerURL)
	if err := validateURL(cfgLedgerURL, c.URL); err != nil {
		return err
	}

	c.Signer = v.GetString(cfgLedgerSigner)
	if len(c.Signer) == 0 {
		return config.ErrKeyNotSet{Key: cfgLedgerSigner}
	}

	c.Timeout = v.GetDuration(cfgLedgerTimeout)
	if c.Timeout <= 0 {
		return config.ErrInvalidValue{Key: cfgLedgerTimeout, InvalidValue: c.Timeout.String()}
	}

	return nil
}

func (c *LedgerConfig) Bind(v *viper.Viper, cmd *cobra.Command) error {
	cmd.PersistentFlags().String(cfgLedgerURL, "https://rpc.mainnet.near.org",
		"url of the ledger JSON-RPC endpoint")
	cmd.PersistentFlags().String(cfgLedgerSigner, "kampouse.near",
		"default signer account used to look transactions up")
	cmd.PersistentFlags().Duration(cfgLedgerTimeout, 10*time.Second,
		"timeout of ledger lookups")
	return nil
}

func validateURL(key, value string) error {
	if len(value) == 0 {
		return config.ErrKeyNotSet{Key: key}
	}

	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || len(u.Host) == 0 {
		return config.ErrInvalidValue{Key: key, InvalidValue: value}
	}

	return nil
}
