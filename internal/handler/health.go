package handler

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lunarush/crashcore/internal/chain"
	"github.com/lunarush/crashcore/internal/engine"
	"github.com/lunarush/crashcore/internal/guard"
	"github.com/lunarush/crashcore/internal/infra"
	"github.com/lunarush/crashcore/internal/policy"
)

var processStart = time.Now()

// HealthHandler returns the liveness endpoint.
func HealthHandler(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(processStart).Seconds())
		if err := infra.HealthCheck(r.Context(), pool); err != nil {
			RespondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":   "unhealthy",
				"uptime_s": uptime,
				"error":    err.Error(),
			})
			return
		}
		RespondJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"uptime_s": uptime,
		})
	}
}

// DetailedHealthHandler returns the operator readiness view: database, chain
// breaker, engine phase, emergency latch, and wallet posture.
func DetailedHealthHandler(pool *pgxpool.Pool, client *chain.Client, eng *engine.Engine,
	indexer *chain.Indexer, emergency *policy.Emergency, solvency *policy.Solvency) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbStatus := "ok"
		if err := infra.HealthCheck(r.Context(), pool); err != nil {
			dbStatus = err.Error()
		}

		chainStatus := "ok"
		switch client.BreakerState() {
		case guard.CircuitOpen:
			chainStatus = "circuit open"
		case guard.CircuitHalfOpen:
			chainStatus = "circuit half-open"
		}

		snap, err := eng.Snapshot(r.Context())
		phase := "unknown"
		if err == nil {
			phase = snap.Phase
		}

		status := http.StatusOK
		if dbStatus != "ok" || emergency.Active() {
			status = http.StatusServiceUnavailable
		}
		RespondJSON(w, status, map[string]interface{}{
			"database":           dbStatus,
			"chain":              chainStatus,
			"engine_phase":       phase,
			"paused":             err == nil && snap.Paused,
			"ledger_ok":          !emergency.Active(),
			"indexer_lag_blocks": indexer.LagBlocks(),
			"emergency":          emergency.Active(),
			"reason":             emergency.Reason(),
			"hot_wallet_wei":     solvency.HotBalance().String(),
			"wallet":             solvency.Recommendation(),
		})
	}
}
