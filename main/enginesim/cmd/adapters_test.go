package cmd

import (
	"github.com/jd3nn1s/enginesim"
	"github.com/jd3nn1s/enginesim/dump"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestAdapterRegistry(t *testing.T) {
	names := listAdapterNames()
	assert.Contains(t, names, "pcan")
	assert.Contains(t, names, "slcan")
	assert.Contains(t, names, "dump")

	assert.Error(t, registerAdapter(&adapterInfo{Name: "dump"}))
}

func TestNewAdapter(t *testing.T) {
	cfg := enginesim.DefaultConfig()
	cfg.Adapter.Name = "dump"
	a, err := newAdapter(cfg)
	require.NoError(t, err)
	assert.IsType(t, &dump.Adapter{}, a)

	cfg.Adapter.Name = "slcan"
	_, err = newAdapter(cfg)
	assert.Error(t, err, "slcan needs a port")

	cfg.Adapter.Name = "kvaser"
	_, err = newAdapter(cfg)
	assert.Error(t, err)
}

func TestApplyRunFlags(t *testing.T) {
	require.NoError(t, runCmd.Flags().Set(flagAdapter, "dump"))
	require.NoError(t, runCmd.Flags().Set(flagDisabledMode, "zero"))
	require.NoError(t, runCmd.Flags().Set(flagSweep, "true"))

	cfg := enginesim.DefaultConfig()
	require.NoError(t, applyRunFlags(runCmd, cfg))
	assert.Equal(t, "dump", cfg.Adapter.Name)
	assert.Equal(t, enginesim.DisabledZeroFill, cfg.DisabledPolicy)
	assert.True(t, cfg.Sweep.Enabled)
	assert.Empty(t, cfg.ECU.Port)

	require.NoError(t, runCmd.Flags().Set(flagDisabledMode, "sometimes"))
	assert.Error(t, applyRunFlags(runCmd, enginesim.DefaultConfig()))
}
