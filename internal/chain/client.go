package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/guard"
)

// Client wraps the RPC connection behind a circuit breaker. Every chain
// access in the process goes through here, so a flapping node opens one
// breaker instead of stalling indexer, dispatcher, and wallet monitor
// independently.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
	breaker *guard.CircuitBreaker
	logger  *slog.Logger
}

// Dial connects to the RPC endpoint and confirms the chain ID.
func Dial(ctx context.Context, rpcURL string, expectedChainID int64, logger *slog.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	if expectedChainID != 0 && chainID.Int64() != expectedChainID {
		eth.Close()
		return nil, fmt.Errorf("chain id mismatch: node reports %s, expected %d", chainID, expectedChainID)
	}

	return &Client{
		eth:     eth,
		chainID: chainID,
		breaker: guard.NewCircuitBreaker(5, 30*time.Second),
		logger:  logger.With("component", "chain"),
	}, nil
}

// Close releases the RPC connection.
func (c *Client) Close() { c.eth.Close() }

// ChainID returns the connected chain's ID.
func (c *Client) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

// BreakerState exposes the breaker for the health surface.
func (c *Client) BreakerState() guard.CircuitState { return c.breaker.State() }

func call[T any](c *Client, fn func() (T, error)) (T, error) {
	var zero T
	if !c.breaker.Allow() {
		return zero, domain.ErrInternal("chain rpc circuit open", nil)
	}
	out, err := fn()
	if err != nil {
		c.breaker.RecordFailure()
		return zero, err
	}
	c.breaker.RecordSuccess()
	return out, nil
}

// BlockNumber returns the chain tip height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return call(c, func() (uint64, error) { return c.eth.BlockNumber(ctx) })
}

// BlockByNumber returns a full block including transactions.
func (c *Client) BlockByNumber(ctx context.Context, number uint64) (*types.Block, error) {
	return call(c, func() (*types.Block, error) {
		return c.eth.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	})
}

// BalanceAt returns an address's balance at the latest block.
func (c *Client) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	return call(c, func() (*big.Int, error) { return c.eth.BalanceAt(ctx, addr, nil) })
}

// TransactionReceipt returns the receipt, or nil when the tx is not mined.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return call(c, func() (*types.Receipt, error) { return c.eth.TransactionReceipt(ctx, hash) })
}

// NonceAt returns the account nonce at the latest block, pending excluded.
func (c *Client) NonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	return call(c, func() (uint64, error) { return c.eth.NonceAt(ctx, addr, nil) })
}

// PendingNonceAt returns the account nonce including pending transactions.
func (c *Client) PendingNonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	return call(c, func() (uint64, error) { return c.eth.PendingNonceAt(ctx, addr) })
}

// SuggestGasPrice returns the node's gas price suggestion.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return call(c, func() (*big.Int, error) { return c.eth.SuggestGasPrice(ctx) })
}

// SendTransaction broadcasts a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	_, err := call(c, func() (struct{}, error) {
		return struct{}{}, c.eth.SendTransaction(ctx, tx)
	})
	return err
}

// SubscribeNewHead opens a push subscription for new block headers. Fails on
// HTTP-only endpoints; callers fall back to polling.
func (c *Client) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	return call(c, func() (ethereum.Subscription, error) {
		return c.eth.SubscribeNewHead(ctx, ch)
	})
}
