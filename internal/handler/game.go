package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/engine"
	"github.com/lunarush/crashcore/internal/repository"
)

// GameHandler serves public round and bet queries.
type GameHandler struct {
	pool      *pgxpool.Pool
	rounds    *repository.RoundRepository
	bets      *repository.BetRepository
	houseEdge float64
}

// NewGameHandler creates a game query handler.
func NewGameHandler(pool *pgxpool.Pool, houseEdge float64) *GameHandler {
	return &GameHandler{
		pool:      pool,
		rounds:    repository.NewRoundRepository(),
		bets:      repository.NewBetRepository(),
		houseEdge: houseEdge,
	}
}

// GetProof handles GET /api/proof/{roundID} — the full fairness transcript
// for a settled round. Unsettled rounds never reveal.
func (h *GameHandler) GetProof(w http.ResponseWriter, r *http.Request) {
	roundID := chi.URLParam(r, "roundID")

	round, err := h.rounds.FindByID(r.Context(), h.pool, roundID)
	if err != nil {
		RespondError(w, domain.ErrInternal("find round", err))
		return
	}
	if round == nil {
		RespondError(w, domain.ErrNotFound("round", roundID))
		return
	}
	if round.Status != domain.RoundSettled {
		RespondError(w, domain.ErrWrongPhase(string(round.Status)))
		return
	}

	proof, err := buildRoundProof(round, h.houseEdge)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, proof)
}

// buildRoundProof recomputes the fairness transcript and cross-checks it
// against the persisted crash point. A mismatch means the configured house
// edge is no longer the one the round settled under, and the transcript would
// contradict the stored outcome.
func buildRoundProof(round *domain.Round, houseEdge float64) (*engine.Proof, error) {
	proof, err := engine.BuildProof(round.ID, round.ServerSeed, round.ClientEntropy, houseEdge)
	if err != nil {
		return nil, domain.ErrInternal("build proof", err)
	}
	if proof.CrashPPM != round.CrashPointPPM {
		return nil, domain.ErrInternal("proof does not match settled crash point", nil)
	}
	return proof, nil
}

// roundSummary is one row of GET /api/rounds/recent.
type roundSummary struct {
	ID            string `json:"id"`
	CommitHash    string `json:"commit_hash"`
	ServerSeed    string `json:"server_seed"`
	ClientEntropy string `json:"client_entropy"`
	CrashPPM      int64  `json:"crash_ppm"`
	StartedAt     int64  `json:"started_at"`
	SettledAt     int64  `json:"settled_at"`
}

// GetRecentRounds handles GET /api/rounds/recent?limit=N.
func (h *GameHandler) GetRecentRounds(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rounds, err := h.rounds.ListRecent(r.Context(), h.pool, limit)
	if err != nil {
		RespondError(w, domain.ErrInternal("list rounds", err))
		return
	}

	out := make([]roundSummary, 0, len(rounds))
	for _, rd := range rounds {
		s := roundSummary{
			ID:            rd.ID,
			CommitHash:    rd.CommitHash,
			ServerSeed:    rd.ServerSeed,
			ClientEntropy: rd.ClientEntropy,
			CrashPPM:      rd.CrashPointPPM,
			StartedAt:     rd.StartedAt.UnixMilli(),
		}
		if rd.SettledAt != nil {
			s.SettledAt = rd.SettledAt.UnixMilli()
		}
		out = append(out, s)
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"rounds": out})
}

// GetPlayerBets handles GET /api/bets/{address}?limit=N.
func (h *GameHandler) GetPlayerBets(w http.ResponseWriter, r *http.Request) {
	address, err := domain.NormalizeAddress(chi.URLParam(r, "address"))
	if err != nil {
		RespondError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	bets, err := h.bets.ListByPlayer(r.Context(), h.pool, address, limit)
	if err != nil {
		RespondError(w, domain.ErrInternal("list bets", err))
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"bets": bets})
}
