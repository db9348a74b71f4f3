package setup

const (
	EnvFile = "ENV_FILE"

	EnvTheGraphApiKey     = "THE_GRAPH_API_KEY"
	EnvTheGraphGatewayUrl = "THE_GRAPH_GATEWAY_URL"
	EnvOneInchApiKey      = "ONEINCH_API_KEY"
	EnvOneInchApiUrl      = "ONEINCH_API_URL"
	EnvAsiAgentEndpoint   = "ASI_AGENT_ENDPOINT"
	EnvAsiLlmApiKey       = "ASI_LLM_API_KEY"
	EnvAsiLlmBaseUrl      = "ASI_LLM_BASE_URL"
	EnvAsiLlmModel        = "ASI_LLM_MODEL"
	EnvPolygonRpcUrl      = "POLYGON_RPC_URL"
	EnvPolygonChainId     = "POLYGON_CHAIN_ID"
	EnvPythHermesUrl      = "PYTH_HERMES_URL"
	EnvHost               = "HOST"
	EnvPort               = "PORT"
	EnvDebug              = "DEBUG"
	EnvLogLevel           = "LOG_LEVEL"
	EnvLogFormat          = "LOG_FORMAT"
	EnvLogDir             = "LOG_DIR"
	EnvJwtSecretKey       = "JWT_SECRET_KEY"
	EnvCorsOrigins        = "CORS_ORIGINS"
	EnvTestWalletAddress  = "TEST_WALLET_ADDRESS"
)

const (
	DefaultEnvFile            = ".env"
	DefaultTheGraphApiKey     = "demo-key"
	DefaultTheGraphGatewayUrl = "https://gateway.thegraph.com/api"
	DefaultOneInchApiUrl      = "https://api.1inch.dev"
	DefaultAsiLlmBaseUrl      = "https://api.asi1.ai/v1"
	DefaultAsiLlmModel        = "asi1-mini"
	DefaultPolygonRpcUrl      = "https://polygon-rpc.com"
	DefaultPolygonChainId     = "137"
	DefaultPythHermesUrl      = "https://hermes.pyth.network"
	DefaultHost               = "0.0.0.0"
	DefaultPort               = "8000"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
	DefaultCorsOrigins        = "*"
)
