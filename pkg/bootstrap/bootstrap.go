// Package bootstrap prepares an isolated interpreter environment for the
// portfolio agent and launches its entry point with the project configuration.
package bootstrap

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Layout names the files and directories setup and run operate on.
// Relative paths are resolved against Root.
type Layout struct {
	Root           string
	Interpreter    string
	EnvDir         string
	Manifest       string
	ConfigFile     string
	ConfigTemplate string
	EntryPoint     string
	LogsDir        string
	TestsDir       string
}

// DefaultLayout returns the conventional file names relative to root.
func DefaultLayout(root string) Layout {
	return Layout{
		Root:           root,
		Interpreter:    "python3",
		EnvDir:         "venv",
		Manifest:       "requirements.txt",
		ConfigFile:     ".env",
		ConfigTemplate: ".env.example",
		EntryPoint:     "main.py",
		LogsDir:        "logs",
		TestsDir:       "tests",
	}
}

func (l Layout) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.Root, p)
}

// EnvPython is the interpreter inside the isolated environment.
func (l Layout) EnvPython() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(l.resolve(l.EnvDir), "Scripts", "python.exe")
	}
	return filepath.Join(l.resolve(l.EnvDir), "bin", "python")
}

// Options configures a Bootstrapper. Zero fields fall back to the process defaults.
type Options struct {
	Layout Layout
	Runner CommandRunner

	LookPath func(file string) (string, error)
	Setenv   func(key, value string) error
	Environ  func() []string

	Stdout io.Writer
	Stderr io.Writer
}

// Bootstrapper prepares and launches the application environment.
type Bootstrapper struct {
	layout Layout
	runner CommandRunner

	lookPath func(file string) (string, error)
	setenv   func(key, value string) error
	environ  func() []string

	stdout io.Writer
	stderr io.Writer
	report *Reporter
}

func New(opts Options) *Bootstrapper {
	if opts.Layout.Root == "" {
		opts.Layout.Root = "."
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	if opts.Setenv == nil {
		opts.Setenv = os.Setenv
	}
	if opts.Environ == nil {
		opts.Environ = os.Environ
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	return &Bootstrapper{
		layout:   opts.Layout,
		runner:   opts.Runner,
		lookPath: opts.LookPath,
		setenv:   opts.Setenv,
		environ:  opts.Environ,
		stdout:   opts.Stdout,
		stderr:   opts.Stderr,
		report:   NewReporter(opts.Stdout),
	}
}

// Layout returns the resolved layout in use.
func (b *Bootstrapper) Layout() Layout {
	return b.layout
}
