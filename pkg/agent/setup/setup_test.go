package setup_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/portfolio-agent/pkg/agent/setup"
)

func TestSetup_LoadsEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(setup.EnvPort)
	os.Unsetenv(setup.EnvTheGraphApiKey)
	os.Unsetenv(setup.EnvOneInchApiKey)

	envFile := filepath.Join(t.TempDir(), "agent.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"# commented=out\nPORT=8500\nTHE_GRAPH_API_KEY=graph-key\nONEINCH_API_KEY=inch-key\n",
	), 0o600))
	t.Setenv(setup.EnvFile, envFile)

	result, closer, err := setup.Setup(context.Background())
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, "0.0.0.0:8500", result.ApiIpPort)
	assert.Equal(t, "graph-key", result.TheGraphApiKey)
	assert.Equal(t, "inch-key", result.OneInchApiKey)
}

func TestSetup_MissingEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(setup.EnvFile, filepath.Join(t.TempDir(), "missing.env"))

	result, closer, err := setup.Setup(context.Background())
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, "0.0.0.0:8000", result.ApiIpPort)
}

func TestSetup_InvalidConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv(setup.EnvFile, filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv(setup.EnvPort, "not-a-port")

	result, closer, err := setup.Setup(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Nil(t, closer)
	assert.Contains(t, err.Error(), "failed to get config from env")
}
