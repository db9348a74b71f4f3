package bootstrap_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/portfolio-agent/pkg/bootstrap"
)

func TestSetup_PreparesEnvironment(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "requirements.txt", "fastapi\nuvicorn\nweb3\n")

	err := env.bootstrapper().Setup(context.Background())
	require.NoError(t, err)

	layout := bootstrap.DefaultLayout(env.root)
	calls := env.runner.Calls()
	require.Len(t, calls, 4)

	assert.Equal(t, "/usr/bin/python3", calls[0].Path)
	assert.Equal(t, []string{"--version"}, calls[0].Args)

	assert.Equal(t, "/usr/bin/python3", calls[1].Path)
	assert.Equal(t, []string{"-m", "venv", filepath.Join(env.root, "venv")}, calls[1].Args)

	assert.Equal(t, layout.EnvPython(), calls[2].Path)
	assert.Equal(t, []string{"-m", "pip", "install", "--upgrade", "pip"}, calls[2].Args)

	assert.Equal(t, layout.EnvPython(), calls[3].Path)
	assert.Equal(t, []string{"-m", "pip", "install", "-r", filepath.Join(env.root, "requirements.txt")}, calls[3].Args)

	assert.Equal(t, bootstrap.DefaultEnv, env.read(t, ".env"))
	assert.DirExists(t, filepath.Join(env.root, "logs"))
	assert.FileExists(t, filepath.Join(env.root, "tests", "__init__.py"))
	assert.Contains(t, env.stdout.String(), "Found Python 3.11.4")
}

func TestSetup_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "requirements.txt", "fastapi\n")

	require.NoError(t, env.bootstrapper().Setup(context.Background()))

	customized := "THE_GRAPH_API_KEY=real-key\n"
	env.write(t, ".env", customized)
	env.write(t, "venv/marker", "keep")
	env.runner.calls = nil
	env.stdout.Reset()

	require.NoError(t, env.bootstrapper().Setup(context.Background()))

	assert.Equal(t, customized, env.read(t, ".env"))
	assert.Equal(t, "keep", env.read(t, "venv/marker"))

	for _, call := range env.runner.Calls() {
		assert.NotContains(t, call.Args, "venv", "environment must not be recreated")
	}
	assert.Contains(t, env.stdout.String(), "Virtual environment venv already exists")
	assert.Contains(t, env.stdout.String(), ".env already exists")
}

func TestSetup_Failures(t *testing.T) {
	tests := []struct {
		name     string
		manifest bool
		opts     func(*bootstrap.Options)
		output   func(cmd bootstrap.Command) ([]byte, error)
		run      func(cmd bootstrap.Command) error
		contains string
	}{
		{
			name:     "interpreter missing",
			manifest: true,
			opts:     func(o *bootstrap.Options) { o.LookPath = missingPython },
			contains: "python3 is not installed",
		},
		{
			name:     "interpreter too old",
			manifest: true,
			output: func(cmd bootstrap.Command) ([]byte, error) {
				return []byte("Python 3.7.9"), nil
			},
			contains: "Python 3.8 or higher is required, found 3.7.9",
		},
		{
			name:     "unparseable version",
			manifest: true,
			output: func(cmd bootstrap.Command) ([]byte, error) {
				return []byte("command not found"), nil
			},
			contains: "failed to parse python3 version",
		},
		{
			name:     "manifest missing",
			manifest: false,
			contains: "requirements.txt not found",
		},
		{
			name:     "venv creation fails",
			manifest: true,
			run: func(cmd bootstrap.Command) error {
				return errors.New("ensurepip is not available")
			},
			contains: "failed to create virtual environment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.manifest {
				env.write(t, "requirements.txt", "fastapi\n")
			}
			if tt.output != nil {
				env.runner.output = tt.output
			}
			if tt.run != nil {
				env.runner.run = tt.run
			}

			var opts []func(*bootstrap.Options)
			if tt.opts != nil {
				opts = append(opts, tt.opts)
			}

			err := env.bootstrapper(opts...).Setup(context.Background())
			requireExitError(t, err, tt.contains)

			_, statErr := os.Stat(filepath.Join(env.root, ".env"))
			assert.True(t, os.IsNotExist(statErr), "configuration must not be written after a failure")
		})
	}
}

func TestSetup_ManifestMissingSkipsInstall(t *testing.T) {
	env := newTestEnv(t)

	err := env.bootstrapper().Setup(context.Background())
	requireExitError(t, err, "requirements.txt not found")

	calls := env.runner.Calls()
	require.Len(t, calls, 2, "only the version check and venv creation run")
	for _, call := range calls {
		assert.NotContains(t, call.Args, "pip")
	}
	assert.NoFileExists(t, filepath.Join(env.root, ".env"))
}
