package polygon

import (
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
)

type BlockInfo struct {
	Number           uint64   `json:"number"`
	Hash             string   `json:"hash"`
	ParentHash       string   `json:"parent_hash,omitempty"`
	Timestamp        uint64   `json:"timestamp"`
	GasLimit         uint64   `json:"gas_limit"`
	GasUsed          uint64   `json:"gas_used"`
	TransactionCount uint     `json:"transaction_count"`
	Transactions     []string `json:"transactions,omitempty"`
	Miner            string   `json:"miner"`
	Difficulty       *big.Int `json:"difficulty"`
	Size             uint64   `json:"size,omitempty"`
	Mock             bool     `json:"mock,omitempty"`
}

type NetworkInfo struct {
	ChainId      int64    `json:"chain_id"`
	NetworkName  string   `json:"network_name"`
	CurrentBlock uint64   `json:"current_block"`
	GasPriceGwei float64  `json:"gas_price_gwei"`
	GasPriceWei  *big.Int `json:"gas_price_wei"`
	IsSyncing    bool     `json:"is_syncing"`
	RpcEndpoint  string   `json:"rpc_endpoint"`
	Connected    bool     `json:"connected"`
	Mock         bool     `json:"mock,omitempty"`
}

type Balance struct {
	Address      string `json:"address"`
	BalanceWei   string `json:"balance_wei"`
	BalanceMatic string `json:"balance_matic"`
	BalanceUsd   string `json:"balance_usd"`
	Currency     string `json:"currency"`
	Mock         bool   `json:"mock,omitempty"`
}

type TokenBalance struct {
	TokenAddress string `json:"token_address"`
	UserAddress  string `json:"user_address"`
	BalanceRaw   string `json:"balance_raw"`
	Balance      string `json:"balance"`
	Decimals     uint8  `json:"decimals"`
	Symbol       string `json:"symbol"`
	Mock         bool   `json:"mock,omitempty"`
}

// TransactionInfo leaves receipt fields nil while the transaction is pending.
type TransactionInfo struct {
	Hash        string   `json:"hash"`
	From        string   `json:"from"`
	To          *string  `json:"to"`
	ValueWei    string   `json:"value_wei"`
	ValueMatic  string   `json:"value_matic"`
	GasLimit    uint64   `json:"gas_limit"`
	GasPrice    *big.Int `json:"gas_price"`
	GasUsed     *uint64  `json:"gas_used"`
	Status      *uint64  `json:"status"`
	BlockNumber *uint64  `json:"block_number"`
	Nonce       uint64   `json:"nonce"`
	Input       string   `json:"input"`
	Pending     bool     `json:"pending"`
	Mock        bool     `json:"mock,omitempty"`
}

type ReceiptInfo struct {
	Hash              string       `json:"hash"`
	Status            uint64       `json:"status"`
	BlockNumber       uint64       `json:"block_number"`
	GasUsed           uint64       `json:"gas_used"`
	CumulativeGasUsed uint64       `json:"cumulative_gas_used"`
	Logs              []*types.Log `json:"logs"`
	Success           bool         `json:"success"`
}

type GasTier struct {
	GasPriceWei   *big.Int `json:"gas_price_wei"`
	GasPriceGwei  float64  `json:"gas_price_gwei"`
	EstimatedTime string   `json:"estimated_time"`
}

type GasPrices struct {
	Slow     GasTier `json:"slow"`
	Standard GasTier `json:"standard"`
	Fast     GasTier `json:"fast"`
	Mock     bool    `json:"mock,omitempty"`
}

type ConnectionStatus struct {
	Connected   bool   `json:"connected"`
	RpcUrl      string `json:"rpc_url"`
	ChainId     int64  `json:"chain_id,omitempty"`
	LatestBlock uint64 `json:"latest_block,omitempty"`
	NetworkName string `json:"network_name,omitempty"`
	Error       string `json:"error,omitempty"`
}
