package thegraph

import "strings"

const mockSender = "0x742d35Cc6634C0532925a3b8D0C026Ba85C5d9C6"

func mockPortfolio(address string) *Portfolio {
	return &Portfolio{
		Address: strings.ToLower(address),
		Tokens: []Token{
			{
				Symbol:          "ETH",
				Name:            "Ethereum",
				Balance:         "2.5",
				ContractAddress: "0x0000000000000000000000000000000000000000",
				Decimals:        18,
			},
			{
				Symbol:          "USDC",
				Name:            "USD Coin",
				Balance:         "1500.50",
				ContractAddress: "0xa0b86a33e6086aada5a9e5aa3b5b8a0a0d9b1c2d",
				Decimals:        6,
			},
			{
				Symbol:          "MATIC",
				Name:            "Polygon",
				Balance:         "100.0",
				ContractAddress: "0x7d1afa7b718fb893db30a3abc0cfc608aacfebb0",
				Decimals:        18,
			},
		},
		Positions: []Position{
			{
				Protocol:   "Uniswap V3",
				Type:       "liquidity_pool",
				Token0:     "ETH",
				Token1:     "USDC",
				Liquidity:  "50000.0",
				FeesEarned: "125.50",
			},
		},
		Transactions: []Transfer{},
		LastUpdated:  "2024-01-01T00:00:00Z",
		DataSource:   DataSourceMock,
	}
}

func mockTransfers(address string) []Transfer {
	return []Transfer{
		{
			Hash:        "0x1234567890abcdef...",
			From:        mockSender,
			To:          strings.ToLower(address),
			Token:       "USDC",
			Amount:      "100.0",
			Timestamp:   "2024-01-01T12:00:00Z",
			BlockNumber: 50000000,
		},
	}
}

func mockProtocolPositions() []Position {
	return []Position{
		{
			Protocol:      "Uniswap V3",
			Type:          "liquidity_position",
			TokenPair:     "ETH/USDC",
			LiquidityUsd:  "5000.0",
			FeesEarnedUsd: "125.50",
			Apr:           "12.5",
		},
		{
			Protocol:       "Aave",
			Type:           "lending",
			Token:          "USDC",
			SuppliedAmount: "1000.0",
			Apr:            "4.2",
		},
	}
}
