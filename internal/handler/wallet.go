package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lunarush/crashcore/internal/auth"
	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/ledger"
	"github.com/lunarush/crashcore/internal/policy"
	"github.com/lunarush/crashcore/internal/repository"
)

// WalletHandler serves balance reads, withdrawal requests, deposit hint
// registration, and session token issuance.
type WalletHandler struct {
	store     *ledger.Store
	accounts  *repository.AccountRepository
	deposits  *repository.DepositRepository
	tokens    *auth.Manager
	emergency *policy.Emergency
}

// NewWalletHandler creates a wallet handler.
func NewWalletHandler(store *ledger.Store, tokens *auth.Manager, emergency *policy.Emergency) *WalletHandler {
	return &WalletHandler{
		store:     store,
		accounts:  repository.NewAccountRepository(),
		deposits:  repository.NewDepositRepository(),
		tokens:    tokens,
		emergency: emergency,
	}
}

// GetBalance handles GET /api/balance/{address}.
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	address, err := domain.NormalizeAddress(chi.URLParam(r, "address"))
	if err != nil {
		RespondError(w, err)
		return
	}

	acct, err := h.accounts.FindByAddress(r.Context(), h.store.Pool(), address)
	if err != nil {
		RespondError(w, domain.ErrInternal("find account", err))
		return
	}
	if acct == nil {
		// Never-seen addresses have a zero balance, not a 404.
		RespondJSON(w, http.StatusOK, map[string]string{
			"address": address, "available_wei": "0", "locked_wei": "0",
		})
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{
		"address":       acct.Address,
		"available_wei": acct.Available.String(),
		"locked_wei":    acct.Locked.String(),
	})
}

// IssueToken handles POST /api/auth/token — mints a session token for an
// address. Identity here is claim-based; pair it with a signature challenge
// before exposing it beyond trusted frontends.
func (h *WalletHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Address string `json:"address"`
	}
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrInvalidInput("invalid request body"))
		return
	}

	token, err := h.tokens.Issue(input.Address)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Withdraw handles POST /api/withdraw — debits the balance and queues an
// on-chain payout. Requires a bearer token; frozen under the emergency latch.
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	address, err := h.bearerAddress(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	if h.emergency.Active() {
		RespondError(w, domain.ErrSolvencyBlocked("withdrawals frozen: "+h.emergency.Reason()))
		return
	}

	var input struct {
		AmountWei string `json:"amount_wei"`
		ClientID  string `json:"client_id"`
	}
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrInvalidInput("invalid request body"))
		return
	}
	amount, err := domain.ParseWei(input.AmountWei)
	if err != nil {
		RespondError(w, err)
		return
	}

	withdrawal, err := h.store.DebitWithdrawAtomic(r.Context(), address, amount, input.ClientID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusAccepted, withdrawal)
}

// RegisterDeposit handles POST /api/deposits/register — a pre-announcement
// that attributes an incoming tx to an address the sender cannot prove
// (exchange withdrawals, contract wallets).
func (h *WalletHandler) RegisterDeposit(w http.ResponseWriter, r *http.Request) {
	var input struct {
		TxHash    string `json:"tx_hash"`
		Address   string `json:"address"`
		AmountWei string `json:"amount_wei"`
	}
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrInvalidInput("invalid request body"))
		return
	}

	if err := domain.ValidateTxHash(input.TxHash); err != nil {
		RespondError(w, err)
		return
	}
	address, err := domain.NormalizeAddress(input.Address)
	if err != nil {
		RespondError(w, err)
		return
	}
	amount, err := domain.ParseWei(input.AmountWei)
	if err != nil {
		RespondError(w, err)
		return
	}

	hint := &domain.DepositHint{TxHash: input.TxHash, Address: address, Amount: amount}
	if err := h.deposits.UpsertHint(r.Context(), h.store.Pool(), hint); err != nil {
		RespondError(w, domain.ErrInternal("register deposit", err))
		return
	}
	RespondJSON(w, http.StatusAccepted, map[string]string{"status": "registered"})
}

// GetWithdrawal handles GET /api/withdrawals/{id}.
func (h *WalletHandler) GetWithdrawal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	parsed, err := parseUUID(id)
	if err != nil {
		RespondError(w, domain.ErrInvalidInput("invalid withdrawal id"))
		return
	}

	withdrawals := repository.NewWithdrawalRepository()
	withdrawal, err := withdrawals.FindByID(r.Context(), h.store.Pool(), parsed)
	if err != nil {
		RespondError(w, domain.ErrInternal("find withdrawal", err))
		return
	}
	if withdrawal == nil {
		RespondError(w, domain.ErrNotFound("withdrawal", id))
		return
	}
	RespondJSON(w, http.StatusOK, withdrawal)
}

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// bearerAddress extracts and verifies the Authorization bearer token.
func (h *WalletHandler) bearerAddress(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return "", domain.ErrUnauthorized("missing bearer token")
	}
	return h.tokens.Verify(header[len(prefix):])
}
