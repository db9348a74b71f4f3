package polygon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/NethermindEth/portfolio-agent/pkg/agent/units"
	"github.com/NethermindEth/portfolio-agent/pkg/agent/wallet"
)

var (
	ErrInvalidHash        = errors.New("invalid transaction hash")
	ErrInvalidTransaction = errors.New("invalid signed transaction")
	ErrInvalidCall        = errors.New("invalid call")
)

// CallRequest describes an unsigned call. Value is in wei, Data is hex.
type CallRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
	Data  string `json:"data"`
}

func (r CallRequest) CallMsg() (ethereum.CallMsg, error) {
	var msg ethereum.CallMsg

	if r.From != "" {
		from, err := wallet.ParseAddress(r.From)
		if err != nil {
			return msg, err
		}
		msg.From = from
	}

	if r.To != "" {
		to, err := wallet.ParseAddress(r.To)
		if err != nil {
			return msg, err
		}
		msg.To = &to
	}

	if r.Value != "" {
		value, ok := new(big.Int).SetString(strings.TrimSpace(r.Value), 10)
		if !ok || value.Sign() < 0 {
			return msg, fmt.Errorf("%w: value must be a non-negative integer in wei", ErrInvalidCall)
		}
		msg.Value = value
	}

	if r.Data != "" {
		data, err := hexutil.Decode(strings.TrimSpace(r.Data))
		if err != nil {
			return msg, fmt.Errorf("%w: data: %v", ErrInvalidCall, err)
		}
		msg.Data = data
	}

	if msg.To == nil && len(msg.Data) == 0 {
		return msg, fmt.Errorf("%w: contract creation requires data", ErrInvalidCall)
	}

	return msg, nil
}

// ParseHash accepts a 0x-prefixed 32 byte hex string.
func ParseHash(hash string) (common.Hash, error) {
	hash = strings.TrimSpace(hash)
	b, err := hexutil.Decode(hash)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: %q", ErrInvalidHash, hash)
	}
	return common.BytesToHash(b), nil
}

func (c *Connector) GetTransaction(ctx context.Context, hash string) (*TransactionInfo, error) {
	txHash, err := ParseHash(hash)
	if err != nil {
		return nil, err
	}

	tx, pending, err := c.client.TransactionByHash(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, fmt.Errorf("transaction %s: %w", txHash.Hex(), ErrNotFound)
	}
	if err != nil {
		if fallback(ctx, "transaction", err) {
			return mockTransaction(txHash), nil
		}
		return nil, err
	}

	info := &TransactionInfo{
		Hash:       tx.Hash().Hex(),
		ValueWei:   tx.Value().String(),
		ValueMatic: units.Format(tx.Value(), 18),
		GasLimit:   tx.Gas(),
		GasPrice:   tx.GasPrice(),
		Nonce:      tx.Nonce(),
		Input:      hexutil.Encode(tx.Data()),
		Pending:    pending,
	}

	if sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx); err == nil {
		info.From = sender.Hex()
	} else {
		slog.Warn("failed to recover transaction sender", "hash", txHash.Hex(), "error", err)
	}

	if to := tx.To(); to != nil {
		toHex := to.Hex()
		info.To = &toHex
	}

	if pending {
		return info, nil
	}

	receipt, err := c.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		slog.Debug("no receipt for transaction", "hash", txHash.Hex(), "error", err)
		return info, nil
	}

	blockNumber := receipt.BlockNumber.Uint64()
	info.Status = &receipt.Status
	info.GasUsed = &receipt.GasUsed
	info.BlockNumber = &blockNumber

	return info, nil
}

// SendRawTransaction broadcasts a hex encoded signed transaction.
func (c *Connector) SendRawTransaction(ctx context.Context, rawTx string) (common.Hash, error) {
	raw, err := hexutil.Decode(strings.TrimSpace(rawTx))
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}

	if err := c.client.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	slog.Info("sent transaction", "hash", tx.Hash().Hex())

	return tx.Hash(), nil
}
