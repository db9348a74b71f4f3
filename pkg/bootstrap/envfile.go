package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultEnv is the configuration scaffolded when no .env file exists.
const DefaultEnv = `# The Graph
THE_GRAPH_API_KEY=demo-key

# 1inch
ONEINCH_API_KEY=your-1inch-api-key

# ASI Alliance
ASI_AGENT_ENDPOINT=

# Polygon
POLYGON_RPC_URL=https://polygon-rpc.com
POLYGON_CHAIN_ID=137

# Pyth Network
PYTH_HERMES_URL=https://hermes.pyth.network

# Server
HOST=0.0.0.0
PORT=8000
DEBUG=true
LOG_LEVEL=info

# Security
JWT_SECRET_KEY=change-me-in-production
CORS_ORIGINS=http://localhost:3000,http://localhost:8000

# Testing
TEST_WALLET_ADDRESS=0x742d35Cc6634C0532925a3b8D0C026Ba85C5d9C6
`

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// writeFileIfAbsent creates path with content unless it already exists. It reports whether it wrote.
func writeFileIfAbsent(path string, content []byte, perm os.FileMode) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, f.Close()
}

// ReadEnvFile parses KEY=VALUE lines. Comment lines and blank lines are skipped.
func ReadEnvFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	return values, nil
}

// mergeEnv overlays values onto a KEY=VALUE environment list.
func mergeEnv(base []string, values map[string]string) []string {
	merged := make([]string, 0, len(base)+len(values))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := values[key]; ok {
			continue
		}
		merged = append(merged, kv)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		merged = append(merged, k+"="+values[k])
	}
	return merged
}
