package tx

import (
	"github.com/Kampouse/fastkv-server/config"
	"github.com/Kampouse/fastkv-server/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	cfgContract     = "deferred.contract"
	cfgMethod       = "deferred.method"
	cfgDeposit      = "deferred.deposit"
	cfgGas          = "deferred.gas"
	cfgSubmitURL    = "deferred.submit_url"
	cfgInstructions = "deferred.instructions"
)

// DefaultTemplate returns the template for the mainnet execution
// service contract. The deposit is 0.05 NEAR
func DefaultTemplate() Template {
	return Template{
		Contract:     "outlayer.near",
		Method:       "request_execution",
		Deposit:      "50000000000000000000000",
		Gas:          "300000000000000",
		SubmitURL:    "https://wallet.near.org/sign",
		Instructions: "Sign this transaction with your NEAR wallet. Cost: ~0.05 NEAR",
	}
}

// Config binds the transaction template
type Config struct {
	Template Template
}

func (c *Config) Log(fields log.Fields) {
	fields.Add(cfgContract, c.Template.Contract)
	fields.Add(cfgMethod, c.Template.Method)
	fields.Add(cfgDeposit, c.Template.Deposit)
	fields.Add(cfgGas, c.Template.Gas)
	fields.Add(cfgSubmitURL, c.Template.SubmitURL)
}

func (c *Config) Configure(v *viper.Viper) error {
	c.Template.Contract = v.GetString(cfgContract)
	if len(c.Template.Contract) == 0 {
		return config.ErrKeyNotSet{Key: cfgContract}
	}

	c.Template.Method = v.GetString(cfgMethod)
	if len(c.Template.Method) == 0 {
		return config.ErrKeyNotSet{Key: cfgMethod}
	}

	c.Template.Deposit = v.GetString(cfgDeposit)
	if !isAmount(c.Template.Deposit) {
		return config.ErrInvalidValue{Key: cfgDeposit, InvalidValue: c.Template.Deposit}
	}

	c.Template.Gas = v.GetString(cfgGas)
	if !isAmount(c.Template.Gas) {
		return config.ErrInvalidValue{Key: cfgGas, InvalidValue: c.Template.Gas}
	}

	c.Template.SubmitURL = v.GetString(cfgSubmitURL)
	c.Template.Instructions = v.GetString(cfgInstructions)
	return nil
}

func (c *Config) Bind(v *viper.Viper, cmd *cobra.Command) error {
	defaults := DefaultTemplate()

	cmd.PersistentFlags().String(cfgContract, defaults.Contract,
		"account of the execution service contract")
	cmd.PersistentFlags().String(cfgMethod, defaults.Method,
		"contract method that requests an execution")
	cmd.PersistentFlags().String(cfgDeposit, defaults.Deposit,
		"deposit in yoctoNEAR attached to prepared transactions")
	cmd.PersistentFlags().String(cfgGas, defaults.Gas,
		"gas budget of prepared transactions")
	cmd.PersistentFlags().String(cfgSubmitURL, defaults.SubmitURL,
		"url returned to callers to sign and submit prepared transactions")
	cmd.PersistentFlags().String(cfgInstructions, defaults.Instructions,
		"signing instructions returned with prepared transactions")
	return nil
}

// amounts are decimal integers that may not fit in 64 bits
func isAmount(s string) bool {
	if len(s) == 0 {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
