package polygon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"

	"github.com/NethermindEth/portfolio-agent/pkg/agent/units"
)

const (
	PolygonMainnetChainId = 137

	defaultPollingInterval = 2 * time.Second
	defaultGasEstimate     = 200000
)

var ErrNotFound = errors.New("not found")

// EthClient is the subset of the JSON-RPC client the connector needs. Sync
// progress is read when the client also implements ethereum.ChainSyncReader.
type EthClient interface {
	ethereum.BlockNumberReader
	ethereum.ChainIDReader
	ethereum.ChainReader
	ethereum.ChainStateReader
	ethereum.ContractCaller
	ethereum.GasEstimator
	ethereum.GasPricer
	ethereum.TransactionReader
	ethereum.TransactionSender
}

type Connector struct {
	client  EthClient
	rpcUrl  string
	chainId *big.Int

	pollingInterval time.Duration
	erc20Abi        abi.ABI
}

type ConnectorOptions struct {
	Client          EthClient
	RpcUrl          string
	ChainId         *big.Int
	PollingInterval time.Duration
}

// Dial opens a JSON-RPC client. HTTP endpoints are not contacted until first use.
func Dial(ctx context.Context, rpcUrl string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcUrl, err)
	}
	return client, nil
}

func NewConnector(opts ConnectorOptions) (*Connector, error) {
	if opts.Client == nil {
		return nil, errors.New("eth client is required")
	}
	if opts.ChainId == nil {
		opts.ChainId = big.NewInt(PolygonMainnetChainId)
	}
	if opts.PollingInterval == 0 {
		opts.PollingInterval = defaultPollingInterval
	}

	erc20Abi, err := abi.JSON(strings.NewReader(erc20AbiJson))
	if err != nil {
		return nil, fmt.Errorf("failed to parse erc20 abi: %w", err)
	}

	return &Connector{
		client:          opts.Client,
		rpcUrl:          opts.RpcUrl,
		chainId:         opts.ChainId,
		pollingInterval: opts.PollingInterval,
		erc20Abi:        erc20Abi,
	}, nil
}

func networkName(chainId int64) string {
	if chainId == PolygonMainnetChainId {
		return "Polygon Mainnet"
	}
	return fmt.Sprintf("Chain %d", chainId)
}

func weiToGwei(wei *big.Int) float64 {
	return units.Float(wei, 9)
}

// fallback reports whether a failed call should be answered with mock data.
// Cancelled requests are not.
func fallback(ctx context.Context, op string, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	slog.Warn("polygon rpc failed, using mock data", "op", op, "error", err)
	return true
}

func (c *Connector) GetLatestBlock(ctx context.Context) (*BlockInfo, error) {
	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		if fallback(ctx, "latest block", err) {
			return mockBlock(0), nil
		}
		return nil, err
	}

	txCount, err := c.client.TransactionCount(ctx, header.Hash())
	if err != nil {
		if fallback(ctx, "transaction count", err) {
			return mockBlock(0), nil
		}
		return nil, err
	}

	return &BlockInfo{
		Number:           header.Number.Uint64(),
		Hash:             header.Hash().Hex(),
		ParentHash:       header.ParentHash.Hex(),
		Timestamp:        header.Time,
		GasLimit:         header.GasLimit,
		GasUsed:          header.GasUsed,
		TransactionCount: txCount,
		Miner:            header.Coinbase.Hex(),
		Difficulty:       header.Difficulty,
	}, nil
}

func (c *Connector) GetBlockByNumber(ctx context.Context, number uint64) (*BlockInfo, error) {
	block, err := c.client.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if errors.Is(err, ethereum.NotFound) {
		return nil, fmt.Errorf("block %d: %w", number, ErrNotFound)
	}
	if err != nil {
		if fallback(ctx, "block by number", err) {
			return mockBlock(number), nil
		}
		return nil, err
	}

	txs := make([]string, 0, len(block.Transactions()))
	for _, tx := range block.Transactions() {
		txs = append(txs, tx.Hash().Hex())
	}

	return &BlockInfo{
		Number:           block.NumberU64(),
		Hash:             block.Hash().Hex(),
		ParentHash:       block.ParentHash().Hex(),
		Timestamp:        block.Time(),
		GasLimit:         block.GasLimit(),
		GasUsed:          block.GasUsed(),
		TransactionCount: uint(len(txs)),
		Transactions:     txs,
		Miner:            block.Coinbase().Hex(),
		Difficulty:       block.Difficulty(),
		Size:             block.Size(),
	}, nil
}

func (c *Connector) GetNetworkInfo(ctx context.Context) (*NetworkInfo, error) {
	var (
		chainId     *big.Int
		gasPrice    *big.Int
		blockNumber uint64
		syncing     bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		chainId, err = c.client.ChainID(gctx)
		return err
	})
	g.Go(func() (err error) {
		gasPrice, err = c.client.SuggestGasPrice(gctx)
		return err
	})
	g.Go(func() (err error) {
		blockNumber, err = c.client.BlockNumber(gctx)
		return err
	})
	if syncReader, ok := c.client.(ethereum.ChainSyncReader); ok {
		g.Go(func() error {
			progress, err := syncReader.SyncProgress(gctx)
			syncing = progress != nil
			return err
		})
	}

	if err := g.Wait(); err != nil {
		if fallback(ctx, "network info", err) {
			return c.mockNetworkInfo(), nil
		}
		return nil, err
	}

	return &NetworkInfo{
		ChainId:      chainId.Int64(),
		NetworkName:  networkName(chainId.Int64()),
		CurrentBlock: blockNumber,
		GasPriceGwei: weiToGwei(gasPrice),
		GasPriceWei:  gasPrice,
		IsSyncing:    syncing,
		RpcEndpoint:  c.rpcUrl,
		Connected:    true,
	}, nil
}

func (c *Connector) CheckConnection(ctx context.Context) *ConnectionStatus {
	status := &ConnectionStatus{RpcUrl: c.rpcUrl}

	latest, err := c.client.BlockNumber(ctx)
	if err != nil {
		status.Error = err.Error()
		return status
	}

	chainId, err := c.client.ChainID(ctx)
	if err != nil {
		status.Error = err.Error()
		return status
	}

	status.Connected = true
	status.LatestBlock = latest
	status.ChainId = chainId.Int64()
	status.NetworkName = networkName(chainId.Int64())

	return status
}

const (
	slowTime     = "5-10 minutes"
	standardTime = "2-5 minutes"
	fastTime     = "30 seconds - 2 minutes"
)

func newGasTier(price *big.Int, estimatedTime string) GasTier {
	return GasTier{
		GasPriceWei:   price,
		GasPriceGwei:  weiToGwei(price),
		EstimatedTime: estimatedTime,
	}
}

// gasTiers derives slow and fast prices as 0.8x and 1.2x of the suggested price.
func gasTiers(standard *big.Int) *GasPrices {
	slow := new(big.Int).Mul(standard, big.NewInt(8))
	slow.Quo(slow, big.NewInt(10))
	fast := new(big.Int).Mul(standard, big.NewInt(12))
	fast.Quo(fast, big.NewInt(10))

	return &GasPrices{
		Slow:     newGasTier(slow, slowTime),
		Standard: newGasTier(standard, standardTime),
		Fast:     newGasTier(fast, fastTime),
	}
}

func (c *Connector) GetGasPrices(ctx context.Context) (*GasPrices, error) {
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		if fallback(ctx, "gas price", err) {
			return mockGasPrices(), nil
		}
		return nil, err
	}

	return gasTiers(gasPrice), nil
}

// EstimateGas returns the gas limit for msg, or a conservative default when
// the node cannot estimate it.
func (c *Connector) EstimateGas(ctx context.Context, msg ethereum.CallMsg) uint64 {
	gas, err := c.client.EstimateGas(ctx, msg)
	if err != nil {
		slog.Warn("failed to estimate gas, using default", "error", err, "default", defaultGasEstimate)
		return defaultGasEstimate
	}
	return gas
}
