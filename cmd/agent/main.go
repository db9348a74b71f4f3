package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/NethermindEth/portfolio-agent/pkg/agent"
	"github.com/NethermindEth/portfolio-agent/pkg/agent/setup"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setupResult, logCloser, err := setup.Setup(ctx)
	if err != nil {
		slog.Error("failed to setup", "error", err)
		return 1
	}
	defer logCloser.Close()

	if !setupResult.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	agentConfig, err := agent.NewAgentConfigFromSetupResult(ctx, setupResult)
	if err != nil {
		slog.Error("failed to create agent config", "error", err)
		return 1
	}

	portfolioAgent, err := agent.NewAgent(agentConfig)
	if err != nil {
		slog.Error("failed to create agent", "error", err)
		return 1
	}

	if err := portfolioAgent.Start(ctx); err != nil {
		slog.Error("agent stopped", "error", err)
		return 1
	}

	slog.Info("agent stopped")
	return 0
}
