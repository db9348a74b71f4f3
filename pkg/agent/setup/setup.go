package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/big"
	"net"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/NethermindEth/portfolio-agent/pkg/agent/debug"
)

type SetupResult struct {
	TheGraphApiKey     string
	TheGraphGatewayUrl string
	OneInchApiKey      string
	OneInchApiUrl      string
	AsiAgentEndpoint   string
	AsiLlmApiKey       string
	AsiLlmBaseUrl      string
	AsiLlmModel        string
	PolygonRpcUrl      string
	PolygonChainId     *big.Int
	PythHermesUrl      string
	ApiIpPort          string
	Debug              bool
	LogLevel           slog.Level
	LogFormat          string
	LogDir             string
	JwtSecretKey       string
	CorsOrigins        []string
	TestWalletAddress  common.Address
	HasTestWallet      bool
}

// LogValue keeps API keys and secrets out of the logs.
func (s *SetupResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("theGraphGatewayUrl", s.TheGraphGatewayUrl),
		slog.Bool("theGraphApiKeySet", s.TheGraphApiKey != DefaultTheGraphApiKey),
		slog.Bool("oneInchApiKeySet", s.OneInchApiKey != ""),
		slog.String("asiAgentEndpoint", s.AsiAgentEndpoint),
		slog.Bool("asiLlmApiKeySet", s.AsiLlmApiKey != ""),
		slog.String("polygonRpcUrl", s.PolygonRpcUrl),
		slog.String("polygonChainId", s.PolygonChainId.String()),
		slog.String("pythHermesUrl", s.PythHermesUrl),
		slog.String("apiIpPort", s.ApiIpPort),
		slog.Bool("debug", s.Debug),
		slog.String("logLevel", s.LogLevel.String()),
		slog.Any("corsOrigins", s.CorsOrigins),
	)
}

// Setup loads the env file, reads configuration from the environment and
// installs the default logger. The returned closer flushes the log file.
func Setup(ctx context.Context) (*SetupResult, io.Closer, error) {
	if err := loadEnvFile(getenv(EnvFile, DefaultEnvFile)); err != nil {
		return nil, nil, err
	}

	config, err := NewConfigFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config from env: %w", err)
	}

	setupResult, err := NewSetupResult(config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build setup: %w", err)
	}

	logger, closer, err := NewLogger(os.Stderr, setupResult.LogLevel, setupResult.LogFormat, setupResult.LogDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	slog.SetDefault(logger)

	if debug.IsDebugShowSetup() {
		slog.InfoContext(ctx, "setup output", "setupOutput", setupResult)
	}

	return setupResult, closer, nil
}

// loadEnvFile populates unset variables from path. A missing file is not an error.
func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		slog.Debug("loaded env file", "path", path)
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load env file %s: %w", path, err)
}

func NewSetupResult(config *Config) (*SetupResult, error) {
	chainId, ok := new(big.Int).SetString(config.PolygonChainId, 10)
	if !ok {
		return nil, fmt.Errorf("invalid chain id %q", config.PolygonChainId)
	}

	debugEnabled, err := parseBool(config.Debug)
	if err != nil {
		return nil, err
	}

	logLevel, err := parseLogLevel(config.LogLevel)
	if err != nil {
		return nil, err
	}

	corsOrigins, err := parseCorsOrigins(config.CorsOrigins)
	if err != nil {
		return nil, err
	}

	return &SetupResult{
		TheGraphApiKey:     config.TheGraphApiKey,
		TheGraphGatewayUrl: config.TheGraphGatewayUrl,
		OneInchApiKey:      config.OneInchApiKey,
		OneInchApiUrl:      config.OneInchApiUrl,
		AsiAgentEndpoint:   config.AsiAgentEndpoint,
		AsiLlmApiKey:       config.AsiLlmApiKey,
		AsiLlmBaseUrl:      config.AsiLlmBaseUrl,
		AsiLlmModel:        config.AsiLlmModel,
		PolygonRpcUrl:      config.PolygonRpcUrl,
		PolygonChainId:     chainId,
		PythHermesUrl:      config.PythHermesUrl,
		ApiIpPort:          net.JoinHostPort(config.Host, config.Port),
		Debug:              debugEnabled,
		LogLevel:           logLevel,
		LogFormat:          config.LogFormat,
		LogDir:             config.LogDir,
		JwtSecretKey:       config.JwtSecretKey,
		CorsOrigins:        corsOrigins,
		TestWalletAddress:  common.HexToAddress(config.TestWalletAddress),
		HasTestWallet:      config.TestWalletAddress != "",
	}, nil
}
