package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jackc/pgx/v5"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/infra"
	"github.com/lunarush/crashcore/internal/ledger"
	"github.com/lunarush/crashcore/internal/policy"
	"github.com/lunarush/crashcore/internal/repository"
)

const (
	dispatchInterval   = 3 * time.Second
	transferGasLimit   = 21_000
	receiptPollEvery   = 5 * time.Second
	receiptPollTimeout = 2 * time.Minute
)

// Dispatcher drains the withdrawal queue: it claims one queued row at a time
// with a skip-locked read, signs a hot-wallet transfer, commits the broadcast
// intent, sends the transfer, and tracks it to a receipt. After the
// configured retry budget the withdrawal is failed and its funds returned to
// the player's balance in the same transaction.
//
// The intent (signed tx hash plus nonce) is durable before the send reaches
// the chain, so a crash at any point is resolved by RecoverInFlight from
// on-chain state instead of signing a second payout.
type Dispatcher struct {
	client      *Client
	store       *ledger.Store
	withdrawals *repository.WithdrawalRepository
	privKey     *ecdsa.PrivateKey
	hotAddress  common.Address
	maxRetries  int
	emergency   *policy.Emergency
	solvency    *policy.Solvency
	metrics     *infra.Metrics
	logger      *slog.Logger
}

// NewDispatcher creates a payout dispatcher from the hot wallet's private key.
func NewDispatcher(client *Client, store *ledger.Store, privKeyHex string, maxRetries int,
	emergency *policy.Emergency, solvency *policy.Solvency,
	metrics *infra.Metrics, logger *slog.Logger) (*Dispatcher, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse hot wallet key: %w", err)
	}

	return &Dispatcher{
		client:      client,
		store:       store,
		withdrawals: repository.NewWithdrawalRepository(),
		privKey:     key,
		hotAddress:  crypto.PubkeyToAddress(key.PublicKey),
		maxRetries:  maxRetries,
		emergency:   emergency,
		solvency:    solvency,
		metrics:     metrics,
		logger:      logger.With("component", "dispatcher"),
	}, nil
}

// HotAddress returns the hot wallet address derived from the signing key.
func (d *Dispatcher) HotAddress() common.Address { return d.hotAddress }

// RecoverInFlight resolves withdrawals whose signed transfer may already be
// on the chain. Must run before the dispatch loop claims new work after a
// restart; Run also sweeps each tick so stragglers converge.
func (d *Dispatcher) RecoverInFlight(ctx context.Context) error {
	rows, err := d.withdrawals.ListInFlight(ctx, d.store.Pool())
	if err != nil {
		return err
	}
	for i := range rows {
		if err := d.resolveInFlight(ctx, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// Run drains the queue until the context ends.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("payout dispatcher starting",
		"hot_address", d.hotAddress.Hex(), "max_retries", d.maxRetries)

	ticker := time.NewTicker(dispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if d.emergency.Active() {
				continue // withdrawals are frozen under the latch
			}
			if err := d.RecoverInFlight(ctx); err != nil && ctx.Err() == nil {
				d.logger.Error("in-flight sweep failed", "error", err)
			}
			if err := d.dispatchOne(ctx); err != nil && ctx.Err() == nil {
				d.logger.Error("dispatch failed", "error", err)
			}
		}
	}
}

// dispatchOne claims and processes at most one withdrawal.
func (d *Dispatcher) dispatchOne(ctx context.Context) error {
	tx, err := d.store.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback(ctx)

	w, err := d.withdrawals.NextQueued(ctx, tx)
	if err != nil {
		return err
	}
	if w == nil {
		return nil
	}

	if d.solvency.HotBalance().Cmp(w.Amount) < 0 {
		d.logger.Warn("hot wallet cannot cover withdrawal, deferring",
			"withdrawal_id", w.ID, "amount_wei", w.Amount.String(),
			"hot_balance_wei", d.solvency.HotBalance().String())
		return nil
	}

	signed, err := d.signTransfer(ctx, common.HexToAddress(w.Address), w.Amount)
	if err != nil {
		return d.recordFailure(ctx, tx, w, err)
	}
	txHash := strings.ToLower(signed.Hash().Hex())

	// The intent commits before the send: once the hash and nonce are
	// durable, a crash at any later point resolves from the chain instead of
	// re-signing and paying twice.
	if err := d.withdrawals.MarkBroadcasting(ctx, tx, w.ID, txHash, signed.Nonce()); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	w.Status = domain.WithdrawalBroadcasting
	w.TxHash = txHash
	w.Nonce = int64(signed.Nonce())

	if err := d.client.SendTransaction(ctx, signed); err != nil {
		d.logger.Warn("withdrawal send failed after intent commit",
			"withdrawal_id", w.ID, "tx", txHash, "error", err)
		return d.resolveInFlight(ctx, w)
	}

	if err := d.withdrawals.UpdateStatus(ctx, d.store.Pool(), w.ID, domain.WithdrawalBroadcast, txHash, false); err != nil {
		return err
	}
	d.metrics.PayoutsTotal.WithLabelValues("broadcast").Inc()
	d.logger.Info("withdrawal broadcast",
		"withdrawal_id", w.ID, "address", w.Address,
		"amount_wei", w.Amount.String(), "tx", txHash)

	return d.awaitReceipt(ctx, w, txHash)
}

// Transfer signs and broadcasts a manual hot-wallet transfer. Used by the
// admin surface to sweep funds to cold storage; the ledger is not involved.
func (d *Dispatcher) Transfer(ctx context.Context, to string, amount *big.Int) (string, error) {
	signed, err := d.signTransfer(ctx, common.HexToAddress(to), amount)
	if err != nil {
		return "", err
	}
	if err := d.client.SendTransaction(ctx, signed); err != nil {
		return "", err
	}
	txHash := strings.ToLower(signed.Hash().Hex())
	d.logger.Warn("manual hot wallet transfer broadcast",
		"to", to, "amount_wei", amount.String(), "tx", txHash)
	return txHash, nil
}

func (d *Dispatcher) signTransfer(ctx context.Context, to common.Address, amount *big.Int) (*types.Transaction, error) {
	nonce, err := d.client.PendingNonceAt(ctx, d.hotAddress)
	if err != nil {
		return nil, err
	}
	gasPrice, err := d.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    amount,
		Gas:      transferGasLimit,
		GasPrice: gasPrice,
	})

	signed, err := types.SignTx(unsigned, types.LatestSignerForChainID(d.client.ChainID()), d.privKey)
	if err != nil {
		return nil, fmt.Errorf("sign transfer tx: %w", err)
	}
	return signed, nil
}

// recordFailure bumps the attempt counter inside the open claim transaction;
// once the retry budget is spent the withdrawal fails and the player's debit
// is compensated in the same commit, so a crash can never strand it.
func (d *Dispatcher) recordFailure(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal, cause error) error {
	d.logger.Warn("withdrawal dispatch failed",
		"withdrawal_id", w.ID, "attempt", w.Attempts+1, "error", cause)

	if w.Attempts+1 < d.maxRetries {
		if err := d.withdrawals.UpdateStatus(ctx, tx, w.ID, domain.WithdrawalRetrying, "", true); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}

	if err := d.withdrawals.UpdateStatus(ctx, tx, w.ID, domain.WithdrawalFailed, "", true); err != nil {
		return err
	}
	if _, err := d.store.RefundWithdrawalTx(ctx, tx, w); err != nil {
		return fmt.Errorf("refund failed withdrawal %s: %w", w.ID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	d.metrics.PayoutsTotal.WithLabelValues("failed").Inc()
	d.logger.Warn("withdrawal refunded after retry budget",
		"withdrawal_id", w.ID, "amount_wei", w.Amount.String())
	return nil
}

// resolveInFlight settles a withdrawal whose signed transfer may or may not
// have reached the chain. Receipt present: confirm, or refund a revert.
// Receipt absent: the recorded nonce decides — a nonce the chain has moved
// past can never mine our hash, so the row is requeued; otherwise the
// transfer may still be pending and the row stays in flight.
func (d *Dispatcher) resolveInFlight(ctx context.Context, w *domain.Withdrawal) error {
	receipt, err := d.client.TransactionReceipt(ctx, common.HexToHash(w.TxHash))
	if err == nil && receipt != nil {
		if receipt.Status == types.ReceiptStatusSuccessful {
			if err := d.withdrawals.UpdateStatus(ctx, d.store.Pool(), w.ID, domain.WithdrawalConfirmed, w.TxHash, false); err != nil {
				return err
			}
			d.metrics.PayoutsTotal.WithLabelValues("confirmed").Inc()
			d.logger.Info("withdrawal confirmed", "withdrawal_id", w.ID, "tx", w.TxHash)
			return nil
		}
		// Reverted on chain: the funds never left the hot wallet.
		d.logger.Error("payout transaction reverted", "withdrawal_id", w.ID, "tx", w.TxHash)
		return d.failAndRefund(ctx, w, w.TxHash)
	}
	if err != nil && !isNotFound(err) {
		return err
	}

	nonce, err := d.client.NonceAt(ctx, d.hotAddress)
	if err != nil {
		return err
	}
	if w.Nonce >= 0 && nonce > uint64(w.Nonce) {
		// The chain consumed the nonce with another transaction; ours can
		// never be mined now, so signing again is safe.
		d.logger.Warn("broadcast intent superseded, requeueing",
			"withdrawal_id", w.ID, "tx", w.TxHash, "nonce", w.Nonce)
		return d.withdrawals.UpdateStatus(ctx, d.store.Pool(), w.ID, domain.WithdrawalRetrying, "", false)
	}

	d.logger.Info("withdrawal still in flight", "withdrawal_id", w.ID, "tx", w.TxHash)
	return nil
}

// failAndRefund marks the withdrawal failed and posts the compensating refund
// in one transaction. A refund that already happened collapses into a
// harmless duplicate.
func (d *Dispatcher) failAndRefund(ctx context.Context, w *domain.Withdrawal, txHash string) error {
	tx, err := d.store.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin refund tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := d.withdrawals.UpdateStatus(ctx, tx, w.ID, domain.WithdrawalFailed, txHash, false); err != nil {
		return err
	}
	if _, err := d.store.RefundWithdrawalTx(ctx, tx, w); err != nil {
		var app *domain.AppError
		if errors.As(err, &app) && app.Code == "DUPLICATE" {
			return nil
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	d.metrics.PayoutsTotal.WithLabelValues("failed").Inc()
	d.logger.Warn("withdrawal failed and refunded",
		"withdrawal_id", w.ID, "amount_wei", w.Amount.String(), "tx", txHash)
	return nil
}

// awaitReceipt polls for the payout receipt and settles the final status.
func (d *Dispatcher) awaitReceipt(ctx context.Context, w *domain.Withdrawal, txHash string) error {
	deadline := time.Now().Add(receiptPollTimeout)
	hash := common.HexToHash(txHash)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(receiptPollEvery):
		}

		receipt, err := d.client.TransactionReceipt(ctx, hash)
		if err != nil || receipt == nil {
			continue
		}
		if receipt.Status == types.ReceiptStatusSuccessful {
			if err := d.withdrawals.UpdateStatus(ctx, d.store.Pool(), w.ID, domain.WithdrawalConfirmed, txHash, false); err != nil {
				return err
			}
			d.metrics.PayoutsTotal.WithLabelValues("confirmed").Inc()
			d.logger.Info("withdrawal confirmed", "withdrawal_id", w.ID, "tx", txHash)
			return nil
		}

		// Reverted on chain: the funds never left, refund in one commit.
		d.logger.Error("payout transaction reverted", "withdrawal_id", w.ID, "tx", txHash)
		return d.failAndRefund(ctx, w, txHash)
	}

	// Still pending after the window; the row stays broadcast and the
	// in-flight sweep keeps polling it.
	d.logger.Warn("payout receipt still pending", "withdrawal_id", w.ID, "tx", txHash)
	return nil
}
