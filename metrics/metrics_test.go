package metrics

import (
	"context"
	"io/ioutil"
	"testing"
	"time"

	"github.com/Kampouse/fastkv-server/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logger = log.NewLogrus(log.LogrusLoggerProperties{Output: ioutil.Discard})

func TestNewNone(t *testing.T) {
	s, err := New(&MetricsConfig{Mode: metricsModeNone}, logger)

	assert.Nil(t, err)
	assert.IsType(t, &stubService{}, s)
	s.StartInstrumentation()
	s.StopInstrumentation(context.Background())
}

func TestNewPull(t *testing.T) {
	s, err := New(&MetricsConfig{Mode: metricsModePull, PullAddr: "127.0.0.1", PullPort: "0"}, logger)

	assert.Nil(t, err)
	assert.Equal(t, "127.0.0.1:0", s.(*pullService).server.Addr)
}

func TestNewPushRequiresAddress(t *testing.T) {
	_, err := New(&MetricsConfig{Mode: metricsModePush, PushJobName: "gateway", PushInstanceLabel: "a"}, logger)

	assert.Error(t, err)
}

func TestNewPush(t *testing.T) {
	s, err := New(&MetricsConfig{
		Mode:              metricsModePush,
		PushAddr:          "http://127.0.0.1:9091",
		PushJobName:       "gateway",
		PushInstanceLabel: "a",
		PushInterval:      time.Hour,
	}, logger)

	require.Nil(t, err)
	s.StartInstrumentation()
	s.StopInstrumentation(context.Background())
}

func TestNewUnknownMode(t *testing.T) {
	_, err := New(&MetricsConfig{Mode: "stream"}, logger)

	assert.Error(t, err)
}

func TestConfigure(t *testing.T) {
	v := viper.New()
	cmd := &cobra.Command{}
	c := &MetricsConfig{}
	require.Nil(t, c.Bind(v, cmd))
	require.Nil(t, cmd.PersistentFlags().Parse([]string{"--metrics.mode", "PULL"}))
	require.Nil(t, v.BindPFlags(cmd.PersistentFlags()))

	err := c.Configure(v)

	assert.Nil(t, err)
	assert.Equal(t, metricsModePull, c.Mode)
	assert.Equal(t, "7000", c.PullPort)
	assert.Equal(t, defaultPushInterval, c.PushInterval)
}

func TestConfigureInvalidMode(t *testing.T) {
	v := viper.New()
	v.Set(cfgMetricsMode, "stream")

	err := (&MetricsConfig{}).Configure(v)

	assert.Error(t, err)
}
