package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const defaultPort = "8000"

// ServiceURLs are the addresses printed before the entry point starts.
type ServiceURLs struct {
	Base   string
	Docs   string
	Health string
}

// ResolveServiceURLs derives the printed URLs from HOST and PORT. A missing port
// means 8000; wildcard or missing hosts display as localhost.
func ResolveServiceURLs(host, port string) ServiceURLs {
	host = strings.TrimSpace(host)
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	port = strings.TrimSpace(port)
	if port == "" {
		port = defaultPort
	}

	base := "http://" + net.JoinHostPort(host, port)
	return ServiceURLs{
		Base:   base,
		Docs:   base + "/docs",
		Health: base + "/health",
	}
}

// Run verifies the environment, loads configuration into the process
// environment and runs the entry point in the foreground until it exits or
// ctx is cancelled.
func (b *Bootstrapper) Run(ctx context.Context) error {
	envDir := b.layout.resolve(b.layout.EnvDir)
	exists, err := fileExists(envDir)
	if err != nil {
		return fail(fmt.Sprintf("failed to inspect %s: %v", envDir, err))
	}
	if !exists {
		return fail(fmt.Sprintf("Virtual environment %s not found. Please run setup first: bootstrap setup", b.layout.EnvDir))
	}

	if err := b.ensureConfig(); err != nil {
		return err
	}

	entryPoint := b.layout.resolve(b.layout.EntryPoint)
	exists, err = fileExists(entryPoint)
	if err != nil {
		return fail(fmt.Sprintf("failed to inspect %s: %v", entryPoint, err))
	}
	if !exists {
		return fail(fmt.Sprintf("%s not found", b.layout.EntryPoint))
	}

	values, err := ReadEnvFile(b.layout.resolve(b.layout.ConfigFile))
	if err != nil {
		return fail(err.Error())
	}
	for k, v := range values {
		if err := b.setenv(k, v); err != nil {
			return fail(fmt.Sprintf("failed to export %s: %v", k, err))
		}
	}
	b.report.Info("Loaded %d settings from %s", len(values), b.layout.ConfigFile)

	urls := ResolveServiceURLs(b.lookup(values, "HOST"), b.lookup(values, "PORT"))
	b.report.Info("Starting AI Portfolio Agent...")
	b.report.Plain("  API:    %s", urls.Base)
	b.report.Plain("  Docs:   %s", urls.Docs)
	b.report.Plain("  Health: %s", urls.Health)
	b.report.Plain("")
	b.report.Info("Press Ctrl+C to stop the server")

	err = b.runner.Run(ctx, b.entryCommand(entryPoint, values))
	b.report.Info("Server stopped")

	if err == nil || ctx.Err() != nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fail(fmt.Sprintf("%s exited with status %d", b.layout.EntryPoint, exitErr.ExitCode()))
	}
	return fail(fmt.Sprintf("failed to start %s: %v", b.layout.EntryPoint, err))
}

func (b *Bootstrapper) ensureConfig() error {
	configFile := b.layout.resolve(b.layout.ConfigFile)

	content := []byte(DefaultEnv)
	source := "defaults"
	if b.layout.ConfigTemplate != "" {
		if tmpl, err := os.ReadFile(b.layout.resolve(b.layout.ConfigTemplate)); err == nil {
			content = tmpl
			source = b.layout.ConfigTemplate
		}
	}

	written, err := writeFileIfAbsent(configFile, content, 0o600)
	if err != nil {
		return fail(fmt.Sprintf("failed to write %s: %v", b.layout.ConfigFile, err))
	}
	if written {
		b.report.Warn("%s not found, created it from %s", b.layout.ConfigFile, source)
	}
	return nil
}

func (b *Bootstrapper) entryCommand(entryPoint string, values map[string]string) Command {
	cmd := Command{
		Path:   entryPoint,
		Dir:    b.layout.Root,
		Env:    mergeEnv(b.environ(), values),
		Stdin:  os.Stdin,
		Stdout: b.stdout,
		Stderr: b.stderr,
	}

	if strings.EqualFold(filepath.Ext(entryPoint), ".py") {
		cmd.Path = b.layout.EnvPython()
		cmd.Args = []string{entryPoint}
	}
	return cmd
}

// lookup prefers the configuration file, then the inherited environment.
func (b *Bootstrapper) lookup(values map[string]string, key string) string {
	if v, ok := values[key]; ok && v != "" {
		return v
	}
	for _, kv := range b.environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v
		}
	}
	return ""
}
