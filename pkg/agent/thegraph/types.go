package thegraph

import "strconv"

type Token struct {
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	Balance         string  `json:"balance"`
	ContractAddress string  `json:"contract_address"`
	Decimals        int     `json:"decimals"`
	ValueUsd        float64 `json:"value_usd,omitempty"`
}

// Position covers both liquidity pools and lending positions; unused fields are omitted.
type Position struct {
	Protocol       string `json:"protocol"`
	Type           string `json:"type"`
	Token0         string `json:"token0,omitempty"`
	Token1         string `json:"token1,omitempty"`
	TokenPair      string `json:"token_pair,omitempty"`
	Token          string `json:"token,omitempty"`
	Liquidity      string `json:"liquidity,omitempty"`
	LiquidityUsd   string `json:"liquidity_usd,omitempty"`
	FeesEarned     string `json:"fees_earned,omitempty"`
	FeesEarnedUsd  string `json:"fees_earned_usd,omitempty"`
	SuppliedAmount string `json:"supplied_amount,omitempty"`
	Apr            string `json:"apr,omitempty"`
}

type Transfer struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Token       string `json:"token"`
	Amount      string `json:"amount"`
	Timestamp   string `json:"timestamp"`
	BlockNumber uint64 `json:"block_number"`
}

type Portfolio struct {
	Address      string     `json:"address"`
	Tokens       []Token    `json:"tokens"`
	Positions    []Position `json:"positions"`
	Transactions []Transfer `json:"transactions"`
	LastUpdated  string     `json:"last_updated,omitempty"`
	DataSource   string     `json:"data_source"`
}

const (
	DataSourceMock = "mock"
	DataSourceReal = "thegraph_real"
)

// WithPrices returns a copy of the portfolio whose tokens carry a USD value
// for every symbol found in prices.
func (p *Portfolio) WithPrices(prices map[string]float64) *Portfolio {
	out := *p
	out.Tokens = make([]Token, len(p.Tokens))
	copy(out.Tokens, p.Tokens)

	for i, token := range out.Tokens {
		price, ok := prices[token.Symbol]
		if !ok {
			continue
		}
		balance, err := strconv.ParseFloat(token.Balance, 64)
		if err != nil {
			continue
		}
		out.Tokens[i].ValueUsd = balance * price
	}

	return &out
}
