package handler

import (
	"context"
	"math/big"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lunarush/crashcore/internal/chain"
	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/engine"
	"github.com/lunarush/crashcore/internal/ledger"
	"github.com/lunarush/crashcore/internal/policy"
)

// AdminHandler serves the operator surface. Every route sits behind the
// X-Admin-Key middleware.
type AdminHandler struct {
	engine     *engine.Engine
	limits     *policy.LimitsCache
	solvency   *policy.Solvency
	emergency  *policy.Emergency
	reconciler *ledger.Reconciler
	store      *ledger.Store
	dispatcher *chain.Dispatcher
}

// NewAdminHandler creates the admin surface handler.
func NewAdminHandler(eng *engine.Engine, limits *policy.LimitsCache, solvency *policy.Solvency,
	emergency *policy.Emergency, reconciler *ledger.Reconciler, store *ledger.Store,
	dispatcher *chain.Dispatcher) *AdminHandler {
	return &AdminHandler{
		engine:     eng,
		limits:     limits,
		solvency:   solvency,
		emergency:  emergency,
		reconciler: reconciler,
		store:      store,
		dispatcher: dispatcher,
	}
}

// Pause handles POST /admin/pause — stops opening new rounds after the
// in-flight one settles.
func (h *AdminHandler) Pause(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.SetPaused(r.Context(), true); err != nil {
		RespondError(w, domain.ErrInternal("pause engine", err))
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

// Unpause handles POST /admin/unpause.
func (h *AdminHandler) Unpause(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.SetPaused(r.Context(), false); err != nil {
		RespondError(w, domain.ErrInternal("unpause engine", err))
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

// GetLimits handles GET /admin/limits.
func (h *AdminHandler) GetLimits(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, h.limits.Get())
}

// limitsInput is the wire shape of PUT /admin/limits. Wei amounts travel as
// decimal strings.
type limitsInput struct {
	MinStakeWei        string `json:"min_stake_wei"`
	MaxStakeWei        string `json:"max_stake_wei"`
	CapMultPPM         int64  `json:"cap_mult_ppm"`
	LiabilityFactorPct int64  `json:"liability_factor_pct"`
	PerPlayerCooldown  int64  `json:"per_player_cooldown_ms"`
	RoundCap           int    `json:"round_cap"`
}

// UpdateLimits handles PUT /admin/limits — validates, persists, and swaps
// the active limits. The liability factor propagates to the solvency gate.
func (h *AdminHandler) UpdateLimits(w http.ResponseWriter, r *http.Request) {
	var input limitsInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrInvalidInput("invalid request body"))
		return
	}

	minStake, err := domain.ParseWei(input.MinStakeWei)
	if err != nil {
		RespondError(w, err)
		return
	}
	maxStake, err := domain.ParseWei(input.MaxStakeWei)
	if err != nil {
		RespondError(w, err)
		return
	}

	next := domain.Limits{
		MinStake:           minStake,
		MaxStake:           maxStake,
		CapMultPPM:         input.CapMultPPM,
		LiabilityFactorPct: input.LiabilityFactorPct,
		PerPlayerCooldown:  input.PerPlayerCooldown,
		RoundCap:           input.RoundCap,
	}
	if err := h.limits.Update(r.Context(), next); err != nil {
		RespondError(w, err)
		return
	}
	h.solvency.SetLiabilityFactor(input.LiabilityFactorPct)
	RespondJSON(w, http.StatusOK, h.limits.Get())
}

// WalletStatus handles GET /admin/wallet-status.
func (h *AdminHandler) WalletStatus(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"hot_address":    h.dispatcher.HotAddress().Hex(),
		"hot_balance":    h.solvency.HotBalance().String(),
		"recommendation": h.solvency.Recommendation(),
		"emergency":      h.emergency.Active(),
		"reason":         h.emergency.Reason(),
	})
}

// ClearEmergency handles POST /admin/emergency/clear. The reconciler is run
// first: clearing the latch while an invariant still fails re-trips it
// immediately, so the operator sees the truth either way.
func (h *AdminHandler) ClearEmergency(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := h.reconciler.RunOnce(ctx); err != nil {
		RespondError(w, domain.ErrInternal("reconcile before clear", err))
		return
	}
	h.emergency.Clear()
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"emergency": h.emergency.Active(),
		"reason":    h.emergency.Reason(),
	})
}

// Reconcile handles POST /admin/reconcile — an on-demand invariant sweep.
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := h.reconciler.RunOnce(ctx); err != nil {
		RespondError(w, domain.ErrInternal("reconcile", err))
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"emergency": h.emergency.Active(),
	})
}

// Adjust handles POST /admin/adjust — a manual balance correction posted as
// a balanced adjustment pair against the house.
func (h *AdminHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Address   string `json:"address"`
		AmountWei string `json:"amount_wei"`
		Reason    string `json:"reason"`
	}
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrInvalidInput("invalid request body"))
		return
	}

	address, err := domain.NormalizeAddress(input.Address)
	if err != nil {
		RespondError(w, err)
		return
	}
	// Adjustments are signed: negative amounts debit the player.
	amount, ok := new(big.Int).SetString(input.AmountWei, 10)
	if !ok || amount.Sign() == 0 {
		RespondError(w, domain.ErrInvalidInput("invalid adjustment amount"))
		return
	}
	if input.Reason == "" {
		RespondError(w, domain.ErrInvalidInput("reason is required"))
		return
	}

	key := "admin-adjust:" + uuid.NewString()
	res, err := h.store.AdjustAtomic(r.Context(), address, amount, key, input.Reason)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, res.Account)
}

// Transfer handles POST /admin/transfer — a manual hot-wallet transfer, used
// to sweep excess funds to cold storage. The ledger is untouched: house funds
// moving between house wallets are not player money.
func (h *AdminHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var input struct {
		To        string `json:"to"`
		AmountWei string `json:"amount_wei"`
	}
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrInvalidInput("invalid request body"))
		return
	}

	to, err := domain.NormalizeAddress(input.To)
	if err != nil {
		RespondError(w, err)
		return
	}
	amount, err := domain.ParseWei(input.AmountWei)
	if err != nil {
		RespondError(w, err)
		return
	}
	if err := domain.ValidatePositiveAmount(amount); err != nil {
		RespondError(w, err)
		return
	}

	txHash, err := h.dispatcher.Transfer(r.Context(), to, amount)
	if err != nil {
		RespondError(w, domain.ErrInternal("hot wallet transfer", err))
		return
	}
	RespondJSON(w, http.StatusAccepted, map[string]string{
		"tx_hash": txHash,
		"to":      to,
		"amount":  amount.String(),
	})
}
