package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/lunarush/crashcore/internal/domain"
	"github.com/lunarush/crashcore/internal/guard"
	"github.com/lunarush/crashcore/internal/infra"
	"github.com/lunarush/crashcore/internal/ledger"
	"github.com/lunarush/crashcore/internal/policy"
	"github.com/lunarush/crashcore/internal/repository"
)

// Bus is the realtime fan-out the engine publishes to.
type Bus interface {
	Broadcast(eventType string, payload interface{}) uint64
	CurrentSeq() uint64
}

// Config carries the round-engine tunables.
type Config struct {
	BetWindow     time.Duration
	CashWindow    time.Duration
	HouseEdge     float64
	CashoutBuffer time.Duration
	TickInterval  time.Duration
}

// Phase names surfaced in snapshots and WRONG_PHASE rejections.
const (
	PhaseIdle     = "idle"
	PhaseBetting  = "betting"
	PhaseRunning  = "running"
	PhaseSettling = "settling"
)

// Engine drives the round lifecycle on a single goroutine. All game-state
// mutation funnels through one mailbox channel, so bets and cashouts are
// totally ordered without locks; callers block only for the in-memory
// transition plus, for bet placement, the stake reservation transaction.
type Engine struct {
	cfg       Config
	store     *ledger.Store
	rounds    *repository.RoundRepository
	bets      *repository.BetRepository
	deposits  *repository.DepositRepository
	bus       Bus
	limits    *policy.LimitsCache
	solvency  *policy.Solvency
	emergency *policy.Emergency
	cooldown  *guard.Cooldown
	metrics   *infra.Metrics
	logger    *slog.Logger

	mailbox chan interface{}
	done    chan struct{}

	// Engine-goroutine state. Never touched from outside the loop.
	phase            string
	paused           bool
	draining         bool
	round            *domain.Round
	book             *Book
	serverSeed       string
	bettingEndsAt    time.Time
	runningStartedAt time.Time
	crashPPM         int64
	crashAt          time.Time
	cashoutReplies   map[string]cashoutResp
}

// New creates a round engine. Run must be called before requests are served.
func New(cfg Config, store *ledger.Store, bus Bus, limits *policy.LimitsCache,
	solvency *policy.Solvency, emergency *policy.Emergency,
	metrics *infra.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		store:     store,
		rounds:    repository.NewRoundRepository(),
		bets:      repository.NewBetRepository(),
		deposits:  repository.NewDepositRepository(),
		bus:       bus,
		limits:    limits,
		solvency:  solvency,
		emergency: emergency,
		cooldown:  guard.NewCooldown(),
		metrics:   metrics,
		logger:    logger.With("component", "engine"),
		mailbox:   make(chan interface{}, 256),
		done:      make(chan struct{}),
		phase:     PhaseIdle,
	}
}

// --- mailbox requests ---

// PlaceBetParams is a bet placement request.
type PlaceBetParams struct {
	Player         string
	ClientID       string
	Stake          *big.Int
	Funding        domain.BetFunding
	AutoCashoutPPM int64
}

type placeBetReq struct {
	params PlaceBetParams
	reply  chan placeBetResp
}

type placeBetResp struct {
	bet *domain.Bet
	err error
}

type cashoutReq struct {
	player   string
	clientID string
	reply    chan cashoutResp
}

type cashoutResp struct {
	bet    *domain.Bet
	mPPM   int64
	payout *big.Int
	err    error
}

// Snapshot is the engine state served to newly connected clients.
type Snapshot struct {
	Phase            string
	RoundID          string
	CommitHash       string
	BettingEndsAt    time.Time
	RunningStartedAt time.Time
	MultiplierPPM    int64
	Paused           bool
	Emergency        bool
}

type snapshotReq struct {
	reply chan Snapshot
}

type pauseReq struct {
	on    bool
	reply chan struct{}
}

type drainReq struct {
	reply chan struct{}
}

// --- public API (callable from any goroutine) ---

// PlaceBet submits a bet into the current betting window.
func (e *Engine) PlaceBet(ctx context.Context, p PlaceBetParams) (*domain.Bet, error) {
	req := placeBetReq{params: p, reply: make(chan placeBetResp, 1)}
	select {
	case e.mailbox <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp.bet, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cashout requests an immediate cashout of the player's open bet.
func (e *Engine) Cashout(ctx context.Context, player, clientID string) (*domain.Bet, int64, *big.Int, error) {
	req := cashoutReq{player: player, clientID: clientID, reply: make(chan cashoutResp, 1)}
	select {
	case e.mailbox <- req:
	case <-ctx.Done():
		return nil, 0, nil, ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp.bet, resp.mPPM, resp.payout, resp.err
	case <-ctx.Done():
		return nil, 0, nil, ctx.Err()
	}
}

// Snapshot returns the current engine state.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	req := snapshotReq{reply: make(chan Snapshot, 1)}
	select {
	case e.mailbox <- req:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-req.reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// SetPaused pauses or resumes round scheduling. Takes effect at the next
// phase boundary; the in-flight round always completes.
func (e *Engine) SetPaused(ctx context.Context, on bool) error {
	req := pauseReq{on: on, reply: make(chan struct{}, 1)}
	select {
	case e.mailbox <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain tells the engine to stop after the in-flight round settles, then
// blocks until the round loop has exited.
func (e *Engine) Drain(ctx context.Context) error {
	req := drainReq{reply: make(chan struct{}, 1)}
	select {
	case e.mailbox <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.reply:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// --- round loop ---

// Run drives rounds until the context is cancelled or Drain is called.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	e.logger.Info("round engine starting",
		"bet_window", e.cfg.BetWindow, "cash_window", e.cfg.CashWindow,
		"house_edge", e.cfg.HouseEdge, "cashout_buffer", e.cfg.CashoutBuffer)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.draining {
			e.logger.Info("round engine drained")
			return nil
		}
		if e.paused || e.emergency.Active() {
			if err := e.idle(ctx); err != nil {
				return err
			}
			continue
		}
		if err := e.runRound(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			e.logger.Error("round aborted", "error", err)
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// idle serves the mailbox while the engine is paused or latched.
func (e *Engine) idle(ctx context.Context) error {
	e.phase = PhaseIdle
	t := time.NewTimer(250 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		case req := <-e.mailbox:
			e.handle(req)
			if e.draining || !e.paused {
				return nil
			}
		}
	}
}

func (e *Engine) runRound(ctx context.Context) error {
	if err := e.openBetting(ctx); err != nil {
		return err
	}
	if err := e.serveBetting(ctx); err != nil {
		return err
	}
	if err := e.startRunning(ctx); err != nil {
		return err
	}
	if err := e.serveRunning(ctx); err != nil {
		return err
	}
	if err := e.settle(ctx); err != nil {
		return err
	}
	return e.serveCashWindow(ctx)
}

// openBetting generates the commit, persists the round row, and opens bets.
// The row must be durable before the commit is published.
func (e *Engine) openBetting(ctx context.Context) error {
	seed, err := GenerateServerSeed()
	if err != nil {
		return err
	}
	commit, err := CommitHash(seed)
	if err != nil {
		return err
	}

	now := time.Now()
	e.round = &domain.Round{
		ID:         newRoundID(now),
		CommitHash: commit,
		Status:     domain.RoundBetting,
		StartedAt:  now,
	}
	e.serverSeed = seed
	e.book = NewBook()
	e.cashoutReplies = make(map[string]cashoutResp)
	e.bettingEndsAt = now.Add(e.cfg.BetWindow)
	e.crashPPM = 0

	if err := e.retryPersist(ctx, "insert round", func(c context.Context) error {
		return e.rounds.Insert(c, e.store.Pool(), e.round)
	}); err != nil {
		return err
	}

	e.phase = PhaseBetting
	e.bus.Broadcast(domain.EventRoundCommit, domain.RoundCommitPayload{
		RoundID:       e.round.ID,
		CommitHash:    commit,
		BettingEndsAt: e.bettingEndsAt.UnixMilli(),
	})
	e.bus.Broadcast(domain.EventBettingOpen, domain.BettingOpenPayload{
		RoundID:          e.round.ID,
		CommitHash:       commit,
		BettingStartedAt: now.UnixMilli(),
		BettingEndsAt:    e.bettingEndsAt.UnixMilli(),
	})
	e.logger.Info("betting open", "round_id", e.round.ID, "commit", commit)
	return nil
}

func (e *Engine) serveBetting(ctx context.Context) error {
	timer := time.NewTimer(time.Until(e.bettingEndsAt))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case req := <-e.mailbox:
			e.handle(req)
		}
	}
}

// startRunning fixes the client entropy, derives the crash point, persists
// the running transition, and starts the curve. The crash point exists only
// in engine memory until the reveal.
func (e *Engine) startRunning(ctx context.Context) error {
	entropy := ClientEntropy(e.book.IDsInOrder())
	crashPPM, err := CrashPointPPM(e.serverSeed, entropy, e.cfg.HouseEdge)
	if err != nil {
		// Seed and entropy are locally produced hex; this cannot fail at
		// runtime unless memory is corrupt.
		panic(fmt.Sprintf("crash derivation: %v", err))
	}

	if err := e.retryPersist(ctx, "mark round running", func(c context.Context) error {
		return e.rounds.MarkRunning(c, e.store.Pool(), e.round.ID)
	}); err != nil {
		return err
	}

	now := time.Now()
	e.round.ClientEntropy = entropy
	e.round.Status = domain.RoundRunning
	e.crashPPM = crashPPM
	e.runningStartedAt = now
	e.crashAt = now.Add(TimeToReach(crashPPM))
	e.phase = PhaseRunning

	e.bus.Broadcast(domain.EventRunningStart, domain.RunningStartPayload{
		RoundID:          e.round.ID,
		RunningStartedAt: now.UnixMilli(),
	})
	e.logger.Info("running", "round_id", e.round.ID, "bets", e.book.Count())
	return nil
}

func (e *Engine) serveRunning(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	crash := time.NewTimer(time.Until(e.crashAt))
	defer crash.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-crash.C:
			return nil
		case now := <-ticker.C:
			e.tick(now)
		case req := <-e.mailbox:
			e.handle(req)
		}
	}
}

// tick broadcasts the multiplier anchor and fires matured auto-cashouts.
func (e *Engine) tick(now time.Time) {
	m := MultiplierPPM(now.Sub(e.runningStartedAt))
	if m > e.crashPPM {
		m = e.crashPPM
	}
	e.bus.Broadcast(domain.EventMultiplierTick, domain.MultiplierTickPayload{
		RoundID:    e.round.ID,
		MPPM:       m,
		ServerTime: now.UnixMilli(),
	})
	e.fireAutoCashouts(m)
}

// fireAutoCashouts cashes every open bet whose target the curve has reached.
// Targets at or above the crash point never fire; those bets ride to the bust.
func (e *Engine) fireAutoCashouts(reachedPPM int64) {
	for _, bet := range e.book.Open() {
		auto := bet.AutoCashoutPPM
		if auto <= 0 || auto >= e.crashPPM || auto > reachedPPM {
			continue
		}
		payout := e.book.MarkCashed(bet, auto)
		e.metrics.CashoutsTotal.WithLabelValues("auto").Inc()
		e.bus.Broadcast(domain.EventCashoutAccepted, map[string]interface{}{
			"round_id":       e.round.ID,
			"bet_id":         bet.ID.String(),
			"player":         bet.Player,
			"multiplier_ppm": auto,
			"payout_wei":     payout.String(),
			"auto":           true,
		})
	}
}

// settle reveals the seed, finalizes the book, posts all settlement ledger
// entries, and persists the round. Betting for the next round never opens
// before this returns.
func (e *Engine) settle(ctx context.Context) error {
	e.phase = PhaseSettling

	// Auto targets strictly below the crash point were reached during the
	// flight even if no tick landed on them.
	e.fireAutoCashouts(e.crashPPM - 1)

	now := time.Now()
	e.round.ServerSeed = e.serverSeed
	e.round.CrashPointPPM = e.crashPPM
	e.round.Status = domain.RoundSettled
	e.round.SettledAt = &now

	e.bus.Broadcast(domain.EventCrash, domain.CrashPayload{
		RoundID:       e.round.ID,
		CrashPPM:      e.crashPPM,
		ServerSeed:    e.serverSeed,
		ClientEntropy: e.round.ClientEntropy,
	})

	lost := e.book.SweepOpen()
	bets := e.book.All()

	for _, bet := range bets {
		var err error
		switch bet.Status {
		case domain.BetCashed:
			err = e.retryPersist(ctx, "settle win", func(c context.Context) error {
				_, werr := e.store.SettleWinAtomic(c, bet.Player, bet.Stake, bet.Payout, domain.EntryRef{
					ClientID: "win:" + bet.ID.String(),
					RoundID:  e.round.ID,
					BetID:    bet.ID.String(),
				})
				return ignoreDuplicate(werr)
			})
		case domain.BetLost:
			err = e.retryPersist(ctx, "settle loss", func(c context.Context) error {
				_, lerr := e.store.SettleLossAtomic(c, bet.Player, bet.Stake, domain.EntryRef{
					ClientID: "lose:" + bet.ID.String(),
					RoundID:  e.round.ID,
					BetID:    bet.ID.String(),
				})
				return ignoreDuplicate(lerr)
			})
		}
		if err != nil {
			return err
		}
	}

	if err := e.retryPersist(ctx, "persist settlement", func(c context.Context) error {
		return e.store.PersistSettlement(c, e.round, bets)
	}); err != nil {
		return err
	}

	e.metrics.RoundsTotal.Inc()
	e.metrics.CrashPointPPM.Observe(float64(e.crashPPM))
	e.metrics.BetsTotal.WithLabelValues("lost").Add(float64(len(lost)))
	e.logger.Info("round settled",
		"round_id", e.round.ID, "crash_ppm", e.crashPPM,
		"bets", len(bets), "lost", len(lost))
	return nil
}

// serveCashWindow is the inter-round pause; bets and cashouts are rejected.
func (e *Engine) serveCashWindow(ctx context.Context) error {
	timer := time.NewTimer(e.cfg.CashWindow)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case req := <-e.mailbox:
			e.handle(req)
		}
	}
}

// retryPersist retries a database write with capped exponential backoff until
// it succeeds or the context ends. Settlement durability gates the next round,
// so giving up is not an option short of shutdown.
func (e *Engine) retryPersist(ctx context.Context, op string, fn func(context.Context) error) error {
	backoff := 250 * time.Millisecond
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.Error("persist failed, retrying",
			"op", op, "attempt", attempt, "backoff", backoff, "error", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		if backoff < 5*time.Second {
			backoff *= 2
		}
	}
}

func ignoreDuplicate(err error) error {
	var app *domain.AppError
	if errors.As(err, &app) && app.Code == "DUPLICATE" {
		return nil
	}
	return err
}

// --- request handling (engine goroutine only) ---

func (e *Engine) handle(req interface{}) {
	switch r := req.(type) {
	case placeBetReq:
		bet, err := e.acceptBet(r.params)
		if err != nil {
			e.metrics.BetsTotal.WithLabelValues("rejected").Inc()
		}
		r.reply <- placeBetResp{bet: bet, err: err}
	case cashoutReq:
		r.reply <- e.acceptCashout(r.player, r.clientID)
	case snapshotReq:
		r.reply <- e.snapshot()
	case pauseReq:
		e.paused = r.on
		e.logger.Warn("engine pause flag changed", "paused", r.on)
		r.reply <- struct{}{}
	case drainReq:
		e.draining = true
		r.reply <- struct{}{}
	}
}

func (e *Engine) acceptBet(p PlaceBetParams) (*domain.Bet, error) {
	if e.phase != PhaseBetting {
		return nil, domain.ErrWrongPhase(e.phase)
	}
	if e.emergency.Active() {
		return nil, domain.ErrSolvencyBlocked("emergency mode: " + e.emergency.Reason())
	}
	if err := domain.ValidateClientID(p.ClientID); err != nil {
		return nil, err
	}

	if e.book.HasClientID(p.ClientID) {
		return nil, domain.ErrDuplicate(p.ClientID)
	}
	if e.book.ByPlayer(p.Player) != nil {
		return nil, domain.ErrLimitExceeded("one bet per player per round")
	}

	lim := e.limits.Get()
	if e.book.Count() >= lim.RoundCap {
		return nil, domain.ErrLimitExceeded("round bet cap reached")
	}
	if err := domain.ValidatePositiveAmount(p.Stake); err != nil {
		return nil, err
	}
	if p.Stake.Cmp(lim.MinStake) < 0 {
		return nil, domain.ErrLimitExceeded("stake below minimum")
	}
	if p.Stake.Cmp(lim.MaxStake) > 0 {
		return nil, domain.ErrLimitExceeded("stake above maximum")
	}
	if p.AutoCashoutPPM != 0 && p.AutoCashoutPPM <= 1_000_000 {
		return nil, domain.ErrInvalidInput("auto_cashout_ppm must exceed 1.00x")
	}

	cooldown := time.Duration(lim.PerPlayerCooldown) * time.Millisecond
	if e.cooldown.Remaining(p.Player, cooldown) > 0 {
		return nil, domain.ErrCooldown("bet cooldown active")
	}

	bet := &domain.Bet{
		ID:             uuid.New(),
		RoundID:        e.round.ID,
		Player:         p.Player,
		Stake:          new(big.Int).Set(p.Stake),
		Funding:        p.Funding,
		AutoCashoutPPM: p.AutoCashoutPPM,
		Status:         domain.BetOpen,
		ClientID:       p.ClientID,
		PlacedAt:       time.Now(),
	}

	if !e.solvency.LiabilityAllowed(e.book.OpenLiability(lim.CapMultPPM), bet.MaxLiability(lim.CapMultPPM)) {
		return nil, domain.ErrSolvencyBlocked("aggregate liability limit reached")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if bet.Funding.Type == domain.FundingOnChain {
		if err := e.verifyOnChainFunding(ctx, bet); err != nil {
			return nil, err
		}
	}

	ref := domain.EntryRef{
		ClientID: p.ClientID,
		RoundID:  e.round.ID,
		BetID:    bet.ID.String(),
		TxHash:   bet.Funding.TxHash,
	}
	if _, err := e.store.PlaceBetAtomic(ctx, bet.Player, bet.Stake, ref); err != nil {
		return nil, err
	}

	e.book.Add(bet)
	e.cooldown.Allow(bet.Player, cooldown)
	e.metrics.BetsTotal.WithLabelValues("accepted").Inc()
	e.bus.Broadcast(domain.EventBetAccepted, map[string]interface{}{
		"round_id":  e.round.ID,
		"bet_id":    bet.ID.String(),
		"player":    bet.Player,
		"stake_wei": bet.Stake.String(),
	})
	return bet, nil
}

// verifyOnChainFunding checks that the named transaction is a confirmed
// deposit from this player large enough to cover the stake, and that it has
// not funded a bet before. The indexer has already credited the deposit, so
// the stake reservation itself runs against the player's balance.
func (e *Engine) verifyOnChainFunding(ctx context.Context, bet *domain.Bet) error {
	if err := domain.ValidateTxHash(bet.Funding.TxHash); err != nil {
		return err
	}
	if e.book.TxFunded(bet.Funding.TxHash) {
		return domain.ErrDuplicate(bet.Funding.TxHash)
	}

	dep, err := e.deposits.FindByTxHash(ctx, e.store.Pool(), bet.Funding.TxHash)
	if err != nil {
		return domain.ErrInternal("deposit lookup failed", err)
	}
	if dep == nil {
		return domain.ErrChainPending("deposit not yet confirmed")
	}
	if dep.Address != bet.Player {
		return domain.ErrUnauthorized("deposit belongs to another address")
	}
	if dep.Amount.Cmp(bet.Stake) < 0 {
		return domain.ErrInvalidInput("deposit smaller than stake")
	}

	used, err := e.bets.FundingTxUsed(ctx, e.store.Pool(), bet.Funding.TxHash)
	if err != nil {
		return domain.ErrInternal("funding tx lookup failed", err)
	}
	if used {
		return domain.ErrDuplicate(bet.Funding.TxHash)
	}
	return nil
}

func (e *Engine) acceptCashout(player, clientID string) cashoutResp {
	// Duplicate cashout requests replay the original outcome.
	if prior, ok := e.cashoutReplies[clientID]; ok && clientID != "" {
		return prior
	}

	resp := e.doCashout(player)
	if clientID != "" && e.cashoutReplies != nil {
		e.cashoutReplies[clientID] = resp
	}
	if resp.err != nil {
		e.metrics.CashoutsTotal.WithLabelValues("rejected").Inc()
	}
	return resp
}

func (e *Engine) doCashout(player string) cashoutResp {
	if e.phase != PhaseRunning {
		return cashoutResp{err: domain.ErrWrongPhase(e.phase)}
	}

	bet := e.book.ByPlayer(player)
	if bet == nil {
		return cashoutResp{err: domain.ErrNotFound("bet", player)}
	}
	if bet.Status != domain.BetOpen {
		return cashoutResp{err: domain.ErrWrongPhase("bet already settled")}
	}

	now := time.Now()
	if !now.Before(e.crashAt) {
		return cashoutResp{err: domain.ErrWrongPhase(PhaseSettling)}
	}
	if e.crashAt.Sub(now) <= e.cfg.CashoutBuffer {
		return cashoutResp{err: domain.ErrTimingBuffer()}
	}

	m := MultiplierPPM(now.Sub(e.runningStartedAt))
	if m >= e.crashPPM {
		return cashoutResp{err: domain.ErrWrongPhase(PhaseSettling)}
	}

	payout := e.book.MarkCashed(bet, m)
	e.metrics.CashoutsTotal.WithLabelValues("manual").Inc()
	e.bus.Broadcast(domain.EventCashoutAccepted, map[string]interface{}{
		"round_id":       e.round.ID,
		"bet_id":         bet.ID.String(),
		"player":         bet.Player,
		"multiplier_ppm": m,
		"payout_wei":     payout.String(),
	})
	return cashoutResp{bet: bet, mPPM: m, payout: payout}
}

func (e *Engine) snapshot() Snapshot {
	snap := Snapshot{
		Phase:     e.phase,
		Paused:    e.paused,
		Emergency: e.emergency.Active(),
	}
	if e.round != nil {
		snap.RoundID = e.round.ID
		snap.CommitHash = e.round.CommitHash
	}
	switch e.phase {
	case PhaseBetting:
		snap.BettingEndsAt = e.bettingEndsAt
	case PhaseRunning:
		snap.RunningStartedAt = e.runningStartedAt
		m := MultiplierPPM(time.Since(e.runningStartedAt))
		if m > e.crashPPM {
			m = e.crashPPM
		}
		snap.MultiplierPPM = m
	}
	return snap
}

// newRoundID builds a time-sortable round identifier.
func newRoundID(t time.Time) string {
	return fmt.Sprintf("r%013d-%s", t.UnixMilli(), uuid.NewString()[:8])
}
