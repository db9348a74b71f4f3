package polygon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
)

var ErrWaitTimeout = errors.New("timed out waiting for transaction")

// WaitForTransaction polls for the receipt of hash until it is mined or
// timeout elapses.
func (c *Connector) WaitForTransaction(ctx context.Context, hash string, timeout time.Duration) (*ReceiptInfo, error) {
	txHash, err := ParseHash(hash)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	slog.Info("waiting for transaction", "hash", txHash.Hex(), "timeout", timeout)

	for {
		receipt, err := c.client.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil:
			return newReceiptInfo(receipt), nil
		case errors.Is(err, ethereum.NotFound):
			slog.Debug("transaction not mined yet", "hash", txHash.Hex())
		case ctx.Err() == nil:
			return nil, fmt.Errorf("failed to get receipt: %w", err)
		}

		select {
		case <-time.After(c.pollingInterval):
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w %s after %s", ErrWaitTimeout, txHash.Hex(), timeout)
			}
			return nil, ctx.Err()
		}
	}
}

func newReceiptInfo(receipt *types.Receipt) *ReceiptInfo {
	logs := receipt.Logs
	if logs == nil {
		logs = []*types.Log{}
	}

	return &ReceiptInfo{
		Hash:              receipt.TxHash.Hex(),
		Status:            receipt.Status,
		BlockNumber:       receipt.BlockNumber.Uint64(),
		GasUsed:           receipt.GasUsed,
		CumulativeGasUsed: receipt.CumulativeGasUsed,
		Logs:              logs,
		Success:           receipt.Status == types.ReceiptStatusSuccessful,
	}
}
