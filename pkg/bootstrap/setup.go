package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Setup checks the interpreter, creates the isolated environment, installs the
// manifest and scaffolds configuration. Running it again is safe: existing
// environment and configuration are kept.
func (b *Bootstrapper) Setup(ctx context.Context) error {
	b.report.Info("Setting up AI Portfolio Agent environment...")

	interpreter, err := b.checkInterpreter(ctx)
	if err != nil {
		return err
	}

	if err := b.createEnv(ctx, interpreter); err != nil {
		return err
	}

	if err := b.installDependencies(ctx); err != nil {
		return err
	}

	if err := b.scaffoldConfig(); err != nil {
		return err
	}

	if err := b.createProjectDirs(); err != nil {
		return err
	}

	b.report.Success("Setup complete")
	b.report.Plain("")
	b.report.Plain("Next steps:")
	b.report.Plain("  1. Edit %s with your API keys", b.layout.ConfigFile)
	b.report.Plain("  2. Start the agent with: bootstrap run")
	return nil
}

func (b *Bootstrapper) checkInterpreter(ctx context.Context) (string, error) {
	path, err := b.lookPath(b.layout.Interpreter)
	if err != nil {
		return "", fail(fmt.Sprintf("%s is not installed or not on PATH. Please install Python %d.%d or higher.",
			b.layout.Interpreter, MinimumVersion.Major, MinimumVersion.Minor))
	}

	out, err := b.runner.Output(ctx, Command{Path: path, Args: []string{"--version"}, Dir: b.layout.Root})
	if err != nil {
		return "", fail(fmt.Sprintf("failed to query %s version: %v", b.layout.Interpreter, err))
	}

	version, err := ParseVersion(strings.TrimSpace(string(out)))
	if err != nil {
		return "", fail(fmt.Sprintf("failed to parse %s version: %v", b.layout.Interpreter, err))
	}

	if !version.AtLeast(MinimumVersion) {
		return "", fail(fmt.Sprintf("Python %d.%d or higher is required, found %s",
			MinimumVersion.Major, MinimumVersion.Minor, version))
	}

	b.report.Success("Found Python %s", version)
	return path, nil
}

func (b *Bootstrapper) createEnv(ctx context.Context, interpreter string) error {
	envDir := b.layout.resolve(b.layout.EnvDir)

	exists, err := fileExists(envDir)
	if err != nil {
		return fail(fmt.Sprintf("failed to inspect %s: %v", envDir, err))
	}
	if exists {
		b.report.Warn("Virtual environment %s already exists, skipping creation", b.layout.EnvDir)
		return nil
	}

	b.report.Info("Creating virtual environment in %s...", b.layout.EnvDir)
	err = b.runner.Run(ctx, Command{
		Path:   interpreter,
		Args:   []string{"-m", "venv", envDir},
		Dir:    b.layout.Root,
		Stdout: b.stdout,
		Stderr: b.stderr,
	})
	if err != nil {
		return fail(fmt.Sprintf("failed to create virtual environment: %v", err))
	}

	b.report.Success("Virtual environment created")
	return nil
}

func (b *Bootstrapper) installDependencies(ctx context.Context) error {
	manifest := b.layout.resolve(b.layout.Manifest)
	exists, err := fileExists(manifest)
	if err != nil {
		return fail(fmt.Sprintf("failed to inspect %s: %v", manifest, err))
	}
	if !exists {
		return fail(fmt.Sprintf("%s not found", b.layout.Manifest))
	}

	python := b.layout.EnvPython()

	b.report.Info("Upgrading pip...")
	if err := b.pip(ctx, python, "install", "--upgrade", "pip"); err != nil {
		return fail(fmt.Sprintf("failed to upgrade pip: %v", err))
	}

	b.report.Info("Installing dependencies from %s...", b.layout.Manifest)
	if err := b.pip(ctx, python, "install", "-r", manifest); err != nil {
		return fail(fmt.Sprintf("failed to install dependencies: %v", err))
	}

	b.report.Success("Dependencies installed")
	return nil
}

func (b *Bootstrapper) pip(ctx context.Context, python string, args ...string) error {
	return b.runner.Run(ctx, Command{
		Path:   python,
		Args:   append([]string{"-m", "pip"}, args...),
		Dir:    b.layout.Root,
		Stdout: b.stdout,
		Stderr: b.stderr,
	})
}

func (b *Bootstrapper) scaffoldConfig() error {
	written, err := writeFileIfAbsent(b.layout.resolve(b.layout.ConfigFile), []byte(DefaultEnv), 0o600)
	if err != nil {
		return fail(fmt.Sprintf("failed to write %s: %v", b.layout.ConfigFile, err))
	}

	if !written {
		b.report.Warn("%s already exists, leaving it untouched", b.layout.ConfigFile)
		return nil
	}

	b.report.Success("Created %s, please update it with your API keys", b.layout.ConfigFile)
	return nil
}

func (b *Bootstrapper) createProjectDirs() error {
	for _, dir := range []string{b.layout.LogsDir, b.layout.TestsDir} {
		if err := os.MkdirAll(b.layout.resolve(dir), 0o755); err != nil {
			return fail(fmt.Sprintf("failed to create %s: %v", dir, err))
		}
	}

	marker := filepath.Join(b.layout.resolve(b.layout.TestsDir), "__init__.py")
	if _, err := writeFileIfAbsent(marker, nil, 0o644); err != nil {
		return fail(fmt.Sprintf("failed to create %s: %v", marker, err))
	}

	slog.Debug("project directories ready", "logs", b.layout.LogsDir, "tests", b.layout.TestsDir)
	return nil
}
