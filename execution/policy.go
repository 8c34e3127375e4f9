package execution

import (
	"github.com/Kampouse/fastkv-server/config"
	"github.com/Kampouse/fastkv-server/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	cfgWasmURL             = "execution.wasm_url"
	cfgWasmHash            = "execution.wasm_hash"
	cfgBuildTarget         = "execution.build_target"
	cfgMaxInstructions     = "execution.max_instructions"
	cfgMaxMemoryMB         = "execution.max_memory_mb"
	cfgMaxExecutionSeconds = "execution.max_execution_seconds"

	defaultWasmURL             = "https://github.com/Kampouse/key-manager/releases/download/v0.2.0/key-manager.wasm"
	defaultWasmHash            = "44ce9f1f616e765f21fe208eb1ff4db29a7aac90096ca83cf75864793c21e7d3"
	defaultBuildTarget         = "wasm32-wasip1"
	defaultMaxInstructions     = 10000000000
	defaultMaxMemoryMB         = 128
	defaultMaxExecutionSeconds = 60
)

// Program is a content addressed reference to the key manager
// program
type Program struct {
	URL         string
	Hash        string
	BuildTarget string
}

// Limits are the resource limits every execution runs under. They
// are operator policy and callers cannot change them
type Limits struct {
	MaxInstructions     uint64
	MaxMemoryMB         uint32
	MaxExecutionSeconds uint32
}

// Policy is the immutable execution configuration shared by all
// requests
type Policy struct {
	Program Program
	Limits  Limits
}

// DefaultPolicy returns the policy for the published key manager
// release
func DefaultPolicy() Policy {
	return Policy{
		Program: Program{
			URL:         defaultWasmURL,
			Hash:        defaultWasmHash,
			BuildTarget: defaultBuildTarget,
		},
		Limits: Limits{
			MaxInstructions:     defaultMaxInstructions,
			MaxMemoryMB:         defaultMaxMemoryMB,
			MaxExecutionSeconds: defaultMaxExecutionSeconds,
		},
	}
}

// Config binds the execution policy to the command line, the
// environment and the configuration file
type Config struct {
	Policy Policy
}

func (c *Config) Log(fields log.Fields) {
	fields.Add(cfgWasmURL, c.Policy.Program.URL)
	fields.Add(cfgWasmHash, c.Policy.Program.Hash)
	fields.Add(cfgBuildTarget, c.Policy.Program.BuildTarget)
	fields.Add(cfgMaxInstructions, c.Policy.Limits.MaxInstructions)
	fields.Add(cfgMaxMemoryMB, c.Policy.Limits.MaxMemoryMB)
	fields.Add(cfgMaxExecutionSeconds, c.Policy.Limits.MaxExecutionSeconds)
}

func (c *Config) Configure(v *viper.Viper) error {
	c.Policy.Program.URL = v.GetString(cfgWasmURL)
	if len(c.Policy.Program.URL) == 0 {
		return config.ErrKeyNotSet{Key: cfgWasmURL}
	}

	c.Policy.Program.Hash = v.GetString(cfgWasmHash)
	if len(c.Policy.Program.Hash) == 0 {
		return config.ErrKeyNotSet{Key: cfgWasmHash}
	}

	c.Policy.Program.BuildTarget = v.GetString(cfgBuildTarget)
	if len(c.Policy.Program.BuildTarget) == 0 {
		return config.ErrKeyNotSet{Key: cfgBuildTarget}
	}

	c.Policy.Limits.MaxInstructions = v.GetUint64(cfgMaxInstructions)
	if c.Policy.Limits.MaxInstructions == 0 {
		return config.ErrInvalidValue{Key: cfgMaxInstructions, InvalidValue: "0"}
	}

	c.Policy.Limits.MaxMemoryMB = v.GetUint32(cfgMaxMemoryMB)
	if c.Policy.Limits.MaxMemoryMB == 0 {
		return config.ErrInvalidValue{Key: cfgMaxMemoryMB, InvalidValue: "0"}
	}

	c.Policy.Limits.MaxExecutionSeconds = v.GetUint32(cfgMaxExecutionSeconds)
	if c.Policy.Limits.MaxExecutionSeconds == 0 {
		return config.ErrInvalidValue{Key: cfgMaxExecutionSeconds, InvalidValue: "0"}
	}

	return nil
}

func (c *Config) Bind(v *viper.Viper, cmd *cobra.Command) error {
	cmd.PersistentFlags().String(cfgWasmURL, defaultWasmURL,
		"url of the key manager wasm program")
	cmd.PersistentFlags().String(cfgWasmHash, defaultWasmHash,
		"sha256 of the key manager wasm program")
	cmd.PersistentFlags().String(cfgBuildTarget, defaultBuildTarget,
		"build target of the key manager wasm program")
	cmd.PersistentFlags().Uint64(cfgMaxInstructions, defaultMaxInstructions,
		"maximum number of instructions an execution may run")
	cmd.PersistentFlags().Uint32(cfgMaxMemoryMB, defaultMaxMemoryMB,
		"maximum memory in MB an execution may use")
	cmd.PersistentFlags().Uint32(cfgMaxExecutionSeconds, defaultMaxExecutionSeconds,
		"maximum wall clock seconds an execution may take")
	return nil
}
