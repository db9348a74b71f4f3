package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type Config struct {
	TheGraphApiKey     string
	TheGraphGatewayUrl string
	OneInchApiKey      string
	OneInchApiUrl      string
	AsiAgentEndpoint   string
	AsiLlmApiKey       string
	AsiLlmBaseUrl      string
	AsiLlmModel        string
	PolygonRpcUrl      string
	PolygonChainId     string
	PythHermesUrl      string
	Host               string
	Port               string
	Debug              string
	LogLevel           string
	LogFormat          string
	LogDir             string
	JwtSecretKey       string
	CorsOrigins        string
	TestWalletAddress  string
}

func NewConfigFromEnv() (*Config, error) {
	config := &Config{
		TheGraphApiKey:     getenv(EnvTheGraphApiKey, DefaultTheGraphApiKey),
		TheGraphGatewayUrl: getenv(EnvTheGraphGatewayUrl, DefaultTheGraphGatewayUrl),
		OneInchApiKey:      os.Getenv(EnvOneInchApiKey),
		OneInchApiUrl:      getenv(EnvOneInchApiUrl, DefaultOneInchApiUrl),
		AsiAgentEndpoint:   os.Getenv(EnvAsiAgentEndpoint),
		AsiLlmApiKey:       os.Getenv(EnvAsiLlmApiKey),
		AsiLlmBaseUrl:      getenv(EnvAsiLlmBaseUrl, DefaultAsiLlmBaseUrl),
		AsiLlmModel:        getenv(EnvAsiLlmModel, DefaultAsiLlmModel),
		PolygonRpcUrl:      getenv(EnvPolygonRpcUrl, DefaultPolygonRpcUrl),
		PolygonChainId:     getenv(EnvPolygonChainId, DefaultPolygonChainId),
		PythHermesUrl:      getenv(EnvPythHermesUrl, DefaultPythHermesUrl),
		Host:               getenv(EnvHost, DefaultHost),
		Port:               getenv(EnvPort, DefaultPort),
		Debug:              os.Getenv(EnvDebug),
		LogLevel:           getenv(EnvLogLevel, DefaultLogLevel),
		LogFormat:          getenv(EnvLogFormat, DefaultLogFormat),
		LogDir:             os.Getenv(EnvLogDir),
		JwtSecretKey:       os.Getenv(EnvJwtSecretKey),
		CorsOrigins:        getenv(EnvCorsOrigins, DefaultCorsOrigins),
		TestWalletAddress:  os.Getenv(EnvTestWalletAddress),
	}

	err := config.Validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	for name, value := range map[string]string{
		EnvTheGraphGatewayUrl: c.TheGraphGatewayUrl,
		EnvOneInchApiUrl:      c.OneInchApiUrl,
		EnvPolygonRpcUrl:      c.PolygonRpcUrl,
		EnvPythHermesUrl:      c.PythHermesUrl,
	} {
		if err := validateUrl(name, value); err != nil {
			return err
		}
	}
	if c.AsiAgentEndpoint != "" {
		if err := validateUrl(EnvAsiAgentEndpoint, c.AsiAgentEndpoint); err != nil {
			return err
		}
	}

	if chainId, err := strconv.ParseInt(c.PolygonChainId, 10, 64); err != nil || chainId <= 0 {
		return errors.New("POLYGON_CHAIN_ID must be a positive integer")
	}
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return errors.New("PORT must be between 1 and 65535")
	}
	if _, err := parseBool(c.Debug); err != nil {
		return errors.New("DEBUG must be a boolean")
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return errors.New("LOG_FORMAT must be 'text' or 'json'")
	}
	if _, err := parseCorsOrigins(c.CorsOrigins); err != nil {
		return err
	}
	if c.TestWalletAddress != "" && !common.IsHexAddress(c.TestWalletAddress) {
		return errors.New("TEST_WALLET_ADDRESS must be a hex address")
	}

	return nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func validateUrl(name, value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", name, value)
	}
	return nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "0", "false", "no", "off":
		return false, nil
	case "1", "true", "yes", "on":
		return true, nil
	}
	return false, fmt.Errorf("invalid boolean %q", value)
}

// parseCorsOrigins accepts "a,b" as well as a JSON array such as ["a","b"].
func parseCorsOrigins(value string) ([]string, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "[") {
		var origins []string
		if err := json.Unmarshal([]byte(value), &origins); err != nil {
			return nil, fmt.Errorf("CORS_ORIGINS is not a valid JSON array: %w", err)
		}
		return origins, nil
	}

	var origins []string
	for _, origin := range strings.Split(value, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins, nil
}
