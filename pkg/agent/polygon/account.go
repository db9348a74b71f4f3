package polygon

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/NethermindEth/portfolio-agent/pkg/agent/units"
	"github.com/NethermindEth/portfolio-agent/pkg/agent/wallet"
)

// Reference MATIC price used to estimate balance_usd.
const maticUsdPrice = 0.85

var ErrNotToken = errors.New("address is not an erc20 token")

const erc20AbiJson = `[
	{"constant": true, "inputs": [{"name": "_owner", "type": "address"}], "name": "balanceOf", "outputs": [{"name": "balance", "type": "uint256"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "decimals", "outputs": [{"name": "", "type": "uint8"}], "type": "function"},
	{"constant": true, "inputs": [], "name": "symbol", "outputs": [{"name": "", "type": "string"}], "type": "function"}
]`

func (c *Connector) GetBalance(ctx context.Context, address string) (*Balance, error) {
	account, err := wallet.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	wei, err := c.client.BalanceAt(ctx, account, nil)
	if err != nil {
		if fallback(ctx, "balance", err) {
			return mockBalance(account), nil
		}
		return nil, err
	}

	return &Balance{
		Address:      account.Hex(),
		BalanceWei:   wei.String(),
		BalanceMatic: units.Format(wei, 18),
		BalanceUsd:   strconv.FormatFloat(units.Float(wei, 18)*maticUsdPrice, 'f', -1, 64),
		Currency:     "MATIC",
	}, nil
}

func (c *Connector) GetTokenBalance(ctx context.Context, tokenAddress string, userAddress string) (*TokenBalance, error) {
	token, err := wallet.ParseAddress(tokenAddress)
	if err != nil {
		return nil, err
	}
	user, err := wallet.ParseAddress(userAddress)
	if err != nil {
		return nil, err
	}

	var balance *big.Int
	if err := c.callErc20(ctx, token, "balanceOf", &balance, user); err != nil {
		return c.tokenBalanceError(ctx, token, user, err)
	}

	var decimals uint8
	if err := c.callErc20(ctx, token, "decimals", &decimals); err != nil {
		return c.tokenBalanceError(ctx, token, user, err)
	}

	var symbol string
	if err := c.callErc20(ctx, token, "symbol", &symbol); err != nil {
		return c.tokenBalanceError(ctx, token, user, err)
	}

	return &TokenBalance{
		TokenAddress: token.Hex(),
		UserAddress:  user.Hex(),
		BalanceRaw:   balance.String(),
		Balance:      units.Format(balance, int(decimals)),
		Decimals:     decimals,
		Symbol:       symbol,
	}, nil
}

func (c *Connector) tokenBalanceError(ctx context.Context, token, user common.Address, err error) (*TokenBalance, error) {
	if errors.Is(err, ErrNotToken) || !fallback(ctx, "token balance", err) {
		return nil, err
	}
	return mockTokenBalance(token, user), nil
}

func (c *Connector) callErc20(ctx context.Context, token common.Address, method string, out interface{}, args ...interface{}) error {
	data, err := c.erc20Abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("failed to pack %s: %w", method, err)
	}

	output, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}
	if len(output) == 0 {
		return fmt.Errorf("%w: %s returned no data", ErrNotToken, method)
	}

	if err := c.erc20Abi.UnpackIntoInterface(out, method, output); err != nil {
		return fmt.Errorf("%w: failed to unpack %s: %v", ErrNotToken, method, err)
	}

	return nil
}
