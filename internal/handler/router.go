package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lunarush/crashcore/internal/auth"
	"github.com/lunarush/crashcore/internal/chain"
	"github.com/lunarush/crashcore/internal/engine"
	"github.com/lunarush/crashcore/internal/infra"
	"github.com/lunarush/crashcore/internal/ledger"
	"github.com/lunarush/crashcore/internal/policy"
	"github.com/lunarush/crashcore/internal/realtime"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Config     *infra.Config
	Store      *ledger.Store
	Engine     *engine.Engine
	Gateway    *realtime.Gateway
	Tokens     *auth.Manager
	Limits     *policy.LimitsCache
	Solvency   *policy.Solvency
	Emergency  *policy.Emergency
	Reconciler *ledger.Reconciler
	Chain      *chain.Client
	Indexer    *chain.Indexer
	Dispatcher *chain.Dispatcher
	Registry   *prometheus.Registry
	Logger     *slog.Logger
}

// NewRouter assembles the full route tree.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(Recovery(d.Logger))
	r.Use(RequestID)
	r.Use(RequestLogger(d.Logger))
	r.Use(CORS(d.Config.CORSAllowedOrigins))

	// Websocket upgrade must happen before the JSON content-type wrapper.
	r.Get("/ws", d.Gateway.ServeWS)
	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))

	game := NewGameHandler(d.Store.Pool(), d.Config.HouseEdge)
	bets := NewBetHandler(d.Engine)
	wallet := NewWalletHandler(d.Store, d.Tokens, d.Emergency)
	admin := NewAdminHandler(d.Engine, d.Limits, d.Solvency, d.Emergency, d.Reconciler, d.Store, d.Dispatcher)

	r.Group(func(r chi.Router) {
		r.Use(JSONContentType)

		r.Get("/health", HealthHandler(d.Store.Pool()))
		r.Get("/health/detailed", DetailedHealthHandler(d.Store.Pool(), d.Chain, d.Engine, d.Indexer, d.Emergency, d.Solvency))
		r.Get("/proof/{roundID}", game.GetProof)

		r.Route("/api", func(r chi.Router) {
			r.Post("/auth/token", wallet.IssueToken)
			r.Get("/balance/{address}", wallet.GetBalance)
			r.Post("/bet/balance", bets.PlaceBalanceBet)
			r.Post("/withdraw", wallet.Withdraw)
			r.Get("/withdrawals/{id}", wallet.GetWithdrawal)
			r.Post("/deposits/register", wallet.RegisterDeposit)
			r.Get("/proof/{roundID}", game.GetProof)
			r.Get("/rounds/recent", game.GetRecentRounds)
			r.Get("/bets/{address}", game.GetPlayerBets)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdminKey(d.Config.AdminAPIKey))

			r.Post("/pause", admin.Pause)
			r.Post("/unpause", admin.Unpause)
			r.Get("/limits", admin.GetLimits)
			r.Post("/limits", admin.UpdateLimits)
			r.Put("/limits", admin.UpdateLimits)
			r.Get("/wallet-status", admin.WalletStatus)
			r.Post("/transfer", admin.Transfer)
			r.Post("/emergency/clear", admin.ClearEmergency)
			r.Post("/reconcile", admin.Reconcile)
			r.Post("/adjust", admin.Adjust)
		})
	})

	return r
}
