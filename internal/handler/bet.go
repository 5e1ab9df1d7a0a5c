package handler

import (
	"net/http"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/engine"
)

// BetHandler serves HTTP bet placement. The realtime frames are the primary
// path; this endpoint exists for bots and thin clients that only speak REST.
type BetHandler struct {
	engine *engine.Engine
}

// NewBetHandler creates the HTTP bet surface.
func NewBetHandler(eng *engine.Engine) *BetHandler {
	return &BetHandler{engine: eng}
}

// PlaceBalanceBet handles POST /api/bet/balance — a balance-funded bet in the
// current betting window.
func (h *BetHandler) PlaceBalanceBet(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Address        string `json:"address"`
		AmountWei      string `json:"amount_wei"`
		AutoCashoutPPM int64  `json:"auto_cashout_ppm,omitempty"`
		ClientID       string `json:"client_id"`
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
	stake, err := domain.ParseWei(input.AmountWei)
	if err != nil {
		RespondError(w, err)
		return
	}

	bet, err := h.engine.PlaceBet(r.Context(), engine.PlaceBetParams{
		Player:         address,
		ClientID:       input.ClientID,
		Stake:          stake,
		Funding:        domain.BetFunding{Type: domain.FundingBalance},
		AutoCashoutPPM: input.AutoCashoutPPM,
	})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, map[string]string{
		"bet_id":   bet.ID.String(),
		"round_id": bet.RoundID,
	})
}
