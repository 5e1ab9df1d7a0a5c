package chain

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/infra"
	"github.com/lunarush/crashcore/internal/ledger"
	"github.com/lunarush/crashcore/internal/repository"
)

// maxBlocksPerCycle bounds how much backlog one poll cycle chews through.
const maxBlocksPerCycle = 50

// Indexer watches the deposit address for incoming native transfers. A block
// is credited only once it has confirmations confirmations; the cursor is
// monotonic, so restarts resume exactly where the last run stopped and
// re-observed transfers collapse into duplicates. Inside the reorg window,
// already-credited deposits are re-verified against the canonical chain and
// reversed when their transaction vanished.
type Indexer struct {
	client         *Client
	store          *ledger.Store
	deposits       *repository.DepositRepository
	depositAddress common.Address
	confirmations  uint64
	reorgWindow    uint64
	pollInterval   time.Duration
	lag            atomic.Uint64
	metrics        *infra.Metrics
	logger         *slog.Logger
}

// LagBlocks returns the current distance between the chain tip and the scan
// cursor.
func (ix *Indexer) LagBlocks() uint64 { return ix.lag.Load() }

// NewIndexer creates a deposit indexer.
func NewIndexer(client *Client, store *ledger.Store, depositAddress string,
	confirmations, reorgWindow uint64, pollInterval time.Duration,
	metrics *infra.Metrics, logger *slog.Logger) *Indexer {
	return &Indexer{
		client:         client,
		store:          store,
		deposits:       repository.NewDepositRepository(),
		depositAddress: common.HexToAddress(depositAddress),
		confirmations:  confirmations,
		reorgWindow:    reorgWindow,
		pollInterval:   pollInterval,
		metrics:        metrics,
		logger:         logger.With("component", "indexer"),
	}
}

// Run scans until the context ends. New heads arrive on a push subscription
// when the endpoint supports one; the polling ticker always runs as well, and
// both streams converge on the same cursor-gated cycle, so duplicate nudges
// are harmless.
func (ix *Indexer) Run(ctx context.Context) error {
	ix.logger.Info("deposit indexer starting",
		"deposit_address", ix.depositAddress.Hex(),
		"confirmations", ix.confirmations, "reorg_window", ix.reorgWindow)

	heads := make(chan *types.Header, 8)
	sub, err := ix.client.SubscribeNewHead(ctx, heads)
	if err != nil {
		ix.logger.Info("head subscription unavailable, polling only", "error", err)
		sub = nil
	}
	if sub != nil {
		defer sub.Unsubscribe()
	}

	ticker := time.NewTicker(ix.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-heads:
		case <-ticker.C:
		}
		if sub != nil {
			select {
			case err := <-sub.Err():
				ix.logger.Warn("head subscription lost, polling only", "error", err)
				sub.Unsubscribe()
				sub = nil
			default:
			}
		}
		if err := ix.cycle(ctx); err != nil && ctx.Err() == nil {
			ix.logger.Error("indexer cycle failed", "error", err)
		}
	}
}

func (ix *Indexer) cycle(ctx context.Context) error {
	tip, err := ix.client.BlockNumber(ctx)
	if err != nil {
		return err
	}
	if tip < ix.confirmations {
		return nil
	}
	// The cursor trails the tip by C_conf, not the wider C_reorg;
	// verifyRecent re-checks every credit inside the reorg window each cycle
	// and reverses what the canonical chain dropped, which keeps the shorter
	// lag safe.
	target := tip - ix.confirmations

	cursor, err := ix.deposits.Cursor(ctx, ix.store.Pool())
	if err != nil {
		return err
	}
	if cursor == 0 && target > uint64(maxBlocksPerCycle) {
		// First run: start near the tip instead of replaying chain history.
		cursor = target - 1
	}
	ix.lag.Store(tip - cursor)
	ix.metrics.IndexerLagBlocks.Set(float64(tip - cursor))

	scanned := 0
	for block := cursor + 1; block <= target && scanned < maxBlocksPerCycle; block++ {
		if err := ix.scanBlock(ctx, block); err != nil {
			return err
		}
		if err := ix.deposits.AdvanceCursor(ctx, ix.store.Pool(), block); err != nil {
			return err
		}
		scanned++
	}

	return ix.verifyRecent(ctx, tip)
}

func (ix *Indexer) scanBlock(ctx context.Context, number uint64) error {
	block, err := ix.client.BlockByNumber(ctx, number)
	if err != nil {
		return err
	}

	signer := types.LatestSignerForChainID(ix.client.ChainID())
	for i, tx := range block.Transactions() {
		if tx.To() == nil || *tx.To() != ix.depositAddress || tx.Value().Sign() <= 0 {
			continue
		}

		sender, err := types.Sender(signer, tx)
		if err != nil {
			ix.logger.Warn("cannot recover sender", "tx", tx.Hash().Hex(), "error", err)
			continue
		}

		address := strings.ToLower(sender.Hex())
		txHash := strings.ToLower(tx.Hash().Hex())

		// A registered hint overrides sender attribution, which covers
		// deposits relayed through exchanges or contract wallets.
		if hint, err := ix.deposits.FindHint(ctx, ix.store.Pool(), txHash); err == nil && hint != nil {
			address = hint.Address
		}

		dep := &domain.ConfirmedDeposit{
			TxHash:      txHash,
			LogIndex:    uint32(i),
			Address:     address,
			Amount:      tx.Value(),
			BlockNumber: number,
		}
		if err := ix.credit(ctx, dep); err != nil {
			return err
		}
	}
	return nil
}

func (ix *Indexer) credit(ctx context.Context, dep *domain.ConfirmedDeposit) error {
	_, err := ix.store.CreditDepositAtomic(ctx, dep)
	if err != nil {
		var app *domain.AppError
		if errors.As(err, &app) && app.Code == "DUPLICATE" {
			return nil
		}
		return err
	}
	ix.metrics.DepositsCredited.Inc()
	ix.logger.Info("deposit credited",
		"tx", dep.TxHash, "address", dep.Address,
		"amount_wei", dep.Amount.String(), "block", dep.BlockNumber)
	return nil
}

// verifyRecent re-checks credited deposits inside the reorg window and posts
// compensating reversals for transactions the canonical chain no longer
// carries.
func (ix *Indexer) verifyRecent(ctx context.Context, tip uint64) error {
	if tip <= ix.reorgWindow {
		return nil
	}
	recent, err := ix.deposits.ListSince(ctx, ix.store.Pool(), tip-ix.reorgWindow)
	if err != nil {
		return err
	}

	for _, dep := range recent {
		receipt, err := ix.client.TransactionReceipt(ctx, common.HexToHash(dep.TxHash))
		if err != nil || receipt == nil || receipt.Status != types.ReceiptStatusSuccessful {
			if err != nil && !isNotFound(err) {
				continue // transient RPC trouble, re-verify next cycle
			}
			ix.logger.Error("credited deposit dropped by reorg, reversing",
				"tx", dep.TxHash, "address", dep.Address, "block", dep.BlockNumber)
			d := dep
			if _, rerr := ix.store.ReverseDepositAtomic(ctx, &d, "reorg-verify"); rerr != nil {
				var app *domain.AppError
				if errors.As(rerr, &app) && app.Code == "DUPLICATE" {
					continue
				}
				return rerr
			}
		}
	}
	return nil
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}
