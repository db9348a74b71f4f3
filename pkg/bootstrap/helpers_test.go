package bootstrap_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/portfolio-agent/pkg/bootstrap"
)

type mockRunner struct {
	mu    sync.Mutex
	calls []bootstrap.Command

	run    func(cmd bootstrap.Command) error
	output func(cmd bootstrap.Command) ([]byte, error)
}

func (m *mockRunner) Run(ctx context.Context, cmd bootstrap.Command) error {
	m.record(cmd)
	if m.run == nil {
		return nil
	}
	return m.run(cmd)
}

func (m *mockRunner) Output(ctx context.Context, cmd bootstrap.Command) ([]byte, error) {
	m.record(cmd)
	if m.output == nil {
		return []byte("Python 3.11.4\n"), nil
	}
	return m.output(cmd)
}

func (m *mockRunner) record(cmd bootstrap.Command) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, cmd)
}

func (m *mockRunner) Calls() []bootstrap.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bootstrap.Command(nil), m.calls...)
}

// venvCreatingRun simulates `python -m venv DIR` by creating DIR.
func venvCreatingRun(cmd bootstrap.Command) error {
	if len(cmd.Args) == 3 && cmd.Args[0] == "-m" && cmd.Args[1] == "venv" {
		return os.MkdirAll(cmd.Args[2], 0o755)
	}
	return nil
}

func foundPython(file string) (string, error) {
	return "/usr/bin/" + file, nil
}

func missingPython(file string) (string, error) {
	return "", errors.New("executable file not found in $PATH")
}

type testEnv struct {
	root    string
	runner  *mockRunner
	stdout  *bytes.Buffer
	exports map[string]string
	environ []string
}

func newTestEnv(t *testing.T) *testEnv {
	return &testEnv{
		root:    t.TempDir(),
		runner:  &mockRunner{run: venvCreatingRun},
		stdout:  &bytes.Buffer{},
		exports: map[string]string{},
	}
}

func (e *testEnv) bootstrapper(opts ...func(*bootstrap.Options)) *bootstrap.Bootstrapper {
	options := bootstrap.Options{
		Layout:   bootstrap.DefaultLayout(e.root),
		Runner:   e.runner,
		LookPath: foundPython,
		Setenv: func(key, value string) error {
			e.exports[key] = value
			return nil
		},
		Environ: func() []string { return e.environ },
		Stdout:  e.stdout,
		Stderr:  e.stdout,
	}

	for _, opt := range opts {
		opt(&options)
	}

	return bootstrap.New(options)
}

func (e *testEnv) write(t *testing.T, name, content string) {
	path := filepath.Join(e.root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (e *testEnv) read(t *testing.T, name string) string {
	data, err := os.ReadFile(filepath.Join(e.root, name))
	require.NoError(t, err)
	return string(data)
}

func requireExitError(t *testing.T, err error, contains string) {
	t.Helper()

	var exitErr *bootstrap.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 1, exitErr.Code)
	require.Contains(t, exitErr.Message, contains)
}
