package chain

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lunarush/crashcore/internal/infra"
	"github.com/lunarush/crashcore/internal/policy"
)

const walletPollInterval = 15 * time.Second

// WalletMonitor keeps the solvency view of the hot wallet fresh. The engine
// consults the last observed balance on every bet, so staleness here directly
// loosens the liability gate; the monitor therefore polls tightly and logs
// every failure.
type WalletMonitor struct {
	client   *Client
	address  common.Address
	solvency *policy.Solvency
	metrics  *infra.Metrics
	logger   *slog.Logger
}

// NewWalletMonitor creates a monitor for the given hot wallet address.
func NewWalletMonitor(client *Client, address common.Address, solvency *policy.Solvency,
	metrics *infra.Metrics, logger *slog.Logger) *WalletMonitor {
	return &WalletMonitor{
		client:   client,
		address:  address,
		solvency: solvency,
		metrics:  metrics,
		logger:   logger.With("component", "wallet"),
	}
}

// Run polls the balance until the context ends. The first observation happens
// immediately so the engine never starts with a zero liability budget.
func (m *WalletMonitor) Run(ctx context.Context) error {
	m.observe(ctx)

	ticker := time.NewTicker(walletPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.observe(ctx)
		}
	}
}

func (m *WalletMonitor) observe(ctx context.Context) {
	balance, err := m.client.BalanceAt(ctx, m.address)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Warn("hot wallet balance read failed", "error", err)
		}
		return
	}

	m.solvency.SetHotBalance(balance)
	approx, _ := new(big.Float).SetInt(balance).Float64()
	m.metrics.HotWalletWei.Set(approx)
}
