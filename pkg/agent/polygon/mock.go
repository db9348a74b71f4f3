package polygon

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

const (
	mockBlockNumber = 50000000
	mockGasPrice    = 30 * params.GWei
)

func mockBlock(number uint64) *BlockInfo {
	if number == 0 {
		number = mockBlockNumber
	}

	return &BlockInfo{
		Number:           number,
		Hash:             "0x" + strings.Repeat("1234567890abcdef", 4),
		Timestamp:        uint64(time.Now().Unix()),
		GasLimit:         30000000,
		GasUsed:          15000000,
		TransactionCount: 150,
		Miner:            common.Address{}.Hex(),
		Difficulty:       big.NewInt(1),
		Size:             50000,
		Mock:             true,
	}
}

func (c *Connector) mockNetworkInfo() *NetworkInfo {
	return &NetworkInfo{
		ChainId:      c.chainId.Int64(),
		NetworkName:  "Polygon Mainnet (Mock)",
		CurrentBlock: mockBlockNumber,
		GasPriceGwei: 30,
		GasPriceWei:  big.NewInt(mockGasPrice),
		IsSyncing:    false,
		RpcEndpoint:  c.rpcUrl,
		Connected:    false,
		Mock:         true,
	}
}

func mockBalance(address common.Address) *Balance {
	return &Balance{
		Address:      address.Hex(),
		BalanceWei:   "1000000000000000000",
		BalanceMatic: "1",
		BalanceUsd:   "0.85",
		Currency:     "MATIC",
		Mock:         true,
	}
}

func mockTokenBalance(token, user common.Address) *TokenBalance {
	return &TokenBalance{
		TokenAddress: token.Hex(),
		UserAddress:  user.Hex(),
		BalanceRaw:   "1000000000000000000000",
		Balance:      "1000",
		Decimals:     18,
		Symbol:       "MOCK",
		Mock:         true,
	}
}

func mockTransaction(hash common.Hash) *TransactionInfo {
	to := "0x1234567890123456789012345678901234567890"
	gasUsed, status, blockNumber := uint64(21000), uint64(1), uint64(mockBlockNumber)

	return &TransactionInfo{
		Hash:        hash.Hex(),
		From:        "0x742d35Cc6634C0532925a3b8D0C026Ba85C5d9C6",
		To:          &to,
		ValueWei:    "100000000000000000",
		ValueMatic:  "0.1",
		GasLimit:    21000,
		GasPrice:    big.NewInt(mockGasPrice),
		GasUsed:     &gasUsed,
		Status:      &status,
		BlockNumber: &blockNumber,
		Nonce:       42,
		Input:       "0x",
		Mock:        true,
	}
}

func mockGasPrices() *GasPrices {
	prices := gasTiers(big.NewInt(mockGasPrice))
	prices.Slow = newGasTier(big.NewInt(25*params.GWei), slowTime)
	prices.Fast = newGasTier(big.NewInt(40*params.GWei), fastTime)
	prices.Mock = true
	return prices
}
