package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/NethermindEth/portfolio-agent/pkg/bootstrap"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()

	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)

	if err := app.RunContext(ctx, args); err != nil {
		var exitErr *bootstrap.ExitError
		if errors.As(err, &exitErr) {
			bootstrap.NewReporter(stderr).Error("%s", exitErr.Message)
			return exitErr.Code
		}
		bootstrap.NewReporter(stderr).Error("%v", err)
		return 1
	}

	return 0
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "bootstrap",
		Usage:     "prepare and launch the AI Portfolio Agent",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Value:   ".",
				Usage:   "project directory",
				EnvVars: []string{"BOOTSTRAP_ROOT"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "log every subprocess invocation",
				EnvVars: []string{"BOOTSTRAP_VERBOSE"},
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "setup",
				Usage: "create the virtual environment, install dependencies and scaffold .env",
				Flags: []cli.Flag{
					pythonFlag(), venvFlag(), requirementsFlag(), envFileFlag(),
				},
				Action: func(c *cli.Context) error {
					return newBootstrapper(c, stdout, stderr).Setup(c.Context)
				},
			},
			{
				Name:  "run",
				Usage: "load .env and start the entry point in the foreground",
				Flags: []cli.Flag{
					venvFlag(), envFileFlag(), envTemplateFlag(), entryPointFlag(),
				},
				Action: func(c *cli.Context) error {
					return newBootstrapper(c, stdout, stderr).Run(c.Context)
				},
			},
		},
		// Exit codes are decided in run.
		ExitErrHandler: func(c *cli.Context, err error) {},
	}
}

func pythonFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "python",
		Value:   "python3",
		Usage:   "interpreter to look up on PATH",
		EnvVars: []string{"BOOTSTRAP_PYTHON"},
	}
}

func venvFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "venv",
		Value:   "venv",
		Usage:   "virtual environment directory",
		EnvVars: []string{"BOOTSTRAP_VENV"},
	}
}

func requirementsFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "requirements",
		Value:   "requirements.txt",
		Usage:   "dependency manifest",
		EnvVars: []string{"BOOTSTRAP_REQUIREMENTS"},
	}
}

func envFileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "env-file",
		Value:   ".env",
		Usage:   "configuration file",
		EnvVars: []string{"BOOTSTRAP_ENV_FILE"},
	}
}

func envTemplateFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "env-template",
		Value:   ".env.example",
		Usage:   "template copied when the configuration file is missing",
		EnvVars: []string{"BOOTSTRAP_ENV_TEMPLATE"},
	}
}

func entryPointFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "entry-point",
		Value:   "main.py",
		Usage:   "application entry point; .py files run under the virtual environment",
		EnvVars: []string{"BOOTSTRAP_ENTRY_POINT"},
	}
}

func newBootstrapper(c *cli.Context, stdout, stderr io.Writer) *bootstrap.Bootstrapper {
	layout := bootstrap.DefaultLayout(c.String("root"))

	if c.IsSet("python") {
		layout.Interpreter = c.String("python")
	}
	if c.IsSet("venv") {
		layout.EnvDir = c.String("venv")
	}
	if c.IsSet("requirements") {
		layout.Manifest = c.String("requirements")
	}
	if c.IsSet("env-file") {
		layout.ConfigFile = c.String("env-file")
	}
	if c.IsSet("env-template") {
		layout.ConfigTemplate = c.String("env-template")
	}
	if c.IsSet("entry-point") {
		layout.EntryPoint = c.String("entry-point")
	}

	return bootstrap.New(bootstrap.Options{
		Layout: layout,
		Stdout: stdout,
		Stderr: stderr,
	})
}
