package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"monad-deathmatch-backend/internal/common/errors"
	"monad-deathmatch-backend/internal/common/logger"
	"monad-deathmatch-backend/internal/common/validation"
	"monad-deathmatch-backend/internal/features/arena/models"
	"monad-deathmatch-backend/internal/features/arena/reconcile"
	betlabel "monad-deathmatch-backend/internal/features/betlabel/repository"
	poolmodels "monad-deathmatch-backend/internal/features/pool/models"
	poolrepo "monad-deathmatch-backend/internal/features/pool/repository"
	poolservice "monad-deathmatch-backend/internal/features/pool/service"
	sessionservice "monad-deathmatch-backend/internal/features/session/service"
	"monad-deathmatch-backend/internal/platform/metrics"
)

// User-facing precondition messages.
const (
	MsgConnectWallet   = "Please connect your wallet first"
	MsgAlreadyJoined   = "You have already joined this arena"
	MsgArenaFull       = "This arena is full"
	MsgSelectTarget    = "Please select a participant to bet on"
	MsgUnknownTarget   = "Selected address is not a participant of this arena"
	MsgCannotSign      = "This wallet is not enabled for arena transactions"
	msgInsufficientFmt = "Insufficient balance for entry fee (%s %s)"
	msgMinBetFmt       = "Minimum bet is %s %s"
)

// Mount is the part of a session mount the coordinator depends on.
type Mount interface {
	Context() context.Context
	AuthorizedWallet() (string, bool)
}

type MountSource interface {
	Mount(id string) (Mount, error)
	OnRelease(hook func(id string))
}

// SessionMounts exposes the session registry as a MountSource.
type SessionMounts struct {
	Registry *sessionservice.MountRegistry
}

func (s SessionMounts) Mount(id string) (Mount, error) {
	m, err := s.Registry.Get(id)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s SessionMounts) OnRelease(hook func(id string)) {
	s.Registry.OnRelease(hook)
}

// Refresher triggers an out-of-cycle poll.
type Refresher interface {
	Refresh()
}

type flow struct {
	mu     sync.Mutex
	status models.ActionStatus
	closed bool
}

// Coordinator runs the join and bet state machines, one pair per mount.
type Coordinator struct {
	mounts         MountSource
	reader         poolrepo.PoolReader
	writer         poolservice.PoolWriter
	labels         betlabel.Store
	refresher      Refresher
	rules          reconcile.Rules
	confirmTimeout time.Duration
	metrics        *metrics.Metrics
	log            zerolog.Logger
	now            func() time.Time

	mu    sync.Mutex
	flows map[string]map[models.ActionKind]*flow

	pending sync.WaitGroup
}

func NewCoordinator(
	mounts MountSource,
	reader poolrepo.PoolReader,
	writer poolservice.PoolWriter,
	labels betlabel.Store,
	refresher Refresher,
	rules reconcile.Rules,
	confirmTimeout time.Duration,
	m *metrics.Metrics,
) *Coordinator {
	if confirmTimeout <= 0 {
		confirmTimeout = 2 * time.Minute
	}
	c := &Coordinator{
		mounts:         mounts,
		reader:         reader,
		writer:         writer,
		labels:         labels,
		refresher:      refresher,
		rules:          rules,
		confirmTimeout: confirmTimeout,
		metrics:        m,
		log:            logger.Component("arena-actions"),
		now:            time.Now,
		flows:          make(map[string]map[models.ActionKind]*flow),
	}
	mounts.OnRelease(c.release)
	return c
}

// Wait blocks until every confirmation wait has returned.
func (c *Coordinator) Wait() {
	c.pending.Wait()
}

func (c *Coordinator) flowFor(mountID string, kind models.ActionKind) *flow {
	c.mu.Lock()
	defer c.mu.Unlock()

	byKind, ok := c.flows[mountID]
	if !ok {
		byKind = make(map[models.ActionKind]*flow)
		c.flows[mountID] = byKind
	}
	f, ok := byKind[kind]
	if !ok {
		f = &flow{status: models.ActionStatus{Kind: kind, State: models.StateIdle, UpdatedAt: c.now()}}
		byKind[kind] = f
	}
	return f
}

func (c *Coordinator) release(mountID string) {
	c.mu.Lock()
	byKind := c.flows[mountID]
	delete(c.flows, mountID)
	c.mu.Unlock()

	for _, f := range byKind {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
	}
}

// Status returns both flows of a mount.
func (c *Coordinator) Status(mountID string) (models.ActionsResponse, error) {
	if _, err := c.mounts.Mount(mountID); err != nil {
		return models.ActionsResponse{}, err
	}
	return models.ActionsResponse{
		Join: c.flowFor(mountID, models.ActionJoin).snapshot(),
		Bet:  c.flowFor(mountID, models.ActionBet).snapshot(),
	}, nil
}

// Join checks the join preconditions and submits joinPool.
func (c *Coordinator) Join(ctx context.Context, mountID string) (models.ActionStatus, error) {
	mount, err := c.mounts.Mount(mountID)
	if err != nil {
		return models.ActionStatus{}, err
	}
	f := c.flowFor(mountID, models.ActionJoin)

	seq, err := f.begin(c.now(), nil)
	if err != nil {
		return f.snapshot(), err
	}

	wallet, ok := mount.AuthorizedWallet()
	if !ok {
		return c.reject(f, seq, MsgConnectWallet)
	}
	if !c.writer.CanSign(wallet) {
		return c.reject(f, seq, MsgCannotSign)
	}

	// stale values are last-known-good, not proof
	participants := c.reader.Participants(ctx)
	if !participants.Verified() {
		return c.readFailed(f, seq, poolrepo.QueryParticipants, participants.Err)
	}
	if reconcile.IsUserParticipant(participants.Value, wallet) {
		return c.reject(f, seq, MsgAlreadyJoined)
	}
	if max := c.reader.MaxParticipants(ctx); max.Present && max.Value > 0 && int64(len(participants.Value)) >= max.Value {
		return c.reject(f, seq, MsgArenaFull)
	}

	balance := c.reader.Balance(ctx, wallet)
	if !balance.Verified() {
		return c.readFailed(f, seq, poolrepo.QueryBalance(wallet), balance.Err)
	}
	if poolmodels.ToNative(balance.Value).LessThan(c.rules.EntryFee) {
		return c.reject(f, seq, fmt.Sprintf(msgInsufficientFmt, c.rules.EntryFee.String(), c.rules.Symbol))
	}

	return c.submit(mount, f, seq, wallet, func(ctx context.Context) (common.Hash, error) {
		return c.writer.JoinPool(ctx, wallet, poolmodels.ToWei(c.rules.EntryFee))
	})
}

// PlaceBet records the bet label, then submits placeBet with the request's
// target, type and amount.
func (c *Coordinator) PlaceBet(ctx context.Context, mountID string, req models.BetRequest) (models.ActionStatus, error) {
	mount, err := c.mounts.Mount(mountID)
	if err != nil {
		return models.ActionStatus{}, err
	}
	f := c.flowFor(mountID, models.ActionBet)

	selection := &models.BetSelection{
		Participant: strings.TrimSpace(req.Participant),
		BetType:     req.BetType,
		Amount:      strings.TrimSpace(req.Amount),
	}
	seq, err := f.begin(c.now(), selection)
	if err != nil {
		return f.snapshot(), err
	}

	wallet, ok := mount.AuthorizedWallet()
	if !ok {
		return c.reject(f, seq, MsgConnectWallet)
	}
	if !c.writer.CanSign(wallet) {
		return c.reject(f, seq, MsgCannotSign)
	}

	if selection.Participant == "" || !validation.IsAddress(selection.Participant) {
		return c.reject(f, seq, MsgSelectTarget)
	}
	participants := c.reader.Participants(ctx)
	if !participants.Verified() {
		return c.readFailed(f, seq, poolrepo.QueryParticipants, participants.Err)
	}
	if !reconcile.IsUserParticipant(participants.Value, selection.Participant) {
		return c.reject(f, seq, MsgUnknownTarget)
	}

	betType := poolmodels.BetTypeTop10
	if req.BetType != "" {
		if betType, err = poolmodels.ParseBetType(req.BetType); err != nil {
			return c.reject(f, seq, "Bet type must be Top 10 or Final Winner")
		}
	}

	amount, err := c.betAmount(selection.Amount)
	if err != nil {
		return c.reject(f, seq, err.Error())
	}

	// the label must exist before any chain read can show the bet
	if err := c.labels.Put(ctx, wallet, selection.Participant, betType.Label()); err != nil {
		c.log.Warn().Err(err).Str("wallet", wallet).Str("participant", selection.Participant).Msg("Failed to store bet label")
	}

	wei := poolmodels.ToWei(amount)
	return c.submit(mount, f, seq, wallet, func(ctx context.Context) (common.Hash, error) {
		return c.writer.PlaceBet(ctx, wallet, selection.Participant, betType, wei)
	})
}

func (c *Coordinator) betAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, fmt.Errorf(msgMinBetFmt, c.rules.MinBet.String(), c.rules.Symbol)
	}
	amount, err := validation.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if err := validation.CheckBetAmount(amount, c.rules.MinBet, c.rules.MaxBet, c.rules.Symbol); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

func (c *Coordinator) reject(f *flow, seq uint64, message string) (models.ActionStatus, error) {
	kind := f.kind()
	f.update(seq, func(s *models.ActionStatus) {
		s.State = models.StateIdle
		s.Message = message
	}, c.now())
	c.record(kind, "precondition", 0)
	c.log.Debug().Str("action", string(kind)).Str("reason", message).Msg("Precondition failed")
	return f.snapshot(), errors.NewPreconditionError(string(kind), message)
}

func (c *Coordinator) readFailed(f *flow, seq uint64, query, reason string) (models.ActionStatus, error) {
	kind := f.kind()
	f.update(seq, func(s *models.ActionStatus) {
		s.State = models.StateIdle
		s.Message = "Pool data is unavailable, try again shortly"
	}, c.now())
	c.record(kind, "read_failure", 0)
	if reason == "" {
		reason = "no value read yet"
	}
	return f.snapshot(), errors.NewReadFailureError(query, stderrors.New(reason))
}

func (c *Coordinator) submit(mount Mount, f *flow, seq uint64, wallet string, send func(context.Context) (common.Hash, error)) (models.ActionStatus, error) {
	kind := f.kind()
	started := c.now()
	f.update(seq, func(s *models.ActionStatus) { s.State = models.StateSubmitting }, started)

	// submission outlives the HTTP request but not the page
	hash, err := send(mount.Context())
	if err != nil {
		f.update(seq, func(s *models.ActionStatus) {
			s.State = models.StateFailed
			s.Error = err.Error()
		}, c.now())
		c.record(kind, "rejected", c.now().Sub(started))
		c.log.Warn().Err(err).Str("action", string(kind)).Str("wallet", wallet).Msg("Write rejected")
		return f.snapshot(), errors.NewWriteRejectedError(string(kind), err).WithWallet(wallet)
	}

	f.update(seq, func(s *models.ActionStatus) {
		s.State = models.StateAwaitingConfirmation
		s.TxHash = hash.Hex()
	}, c.now())

	c.pending.Add(1)
	go c.await(mount.Context(), f, seq, hash, wallet, started)

	return f.snapshot(), nil
}

func (c *Coordinator) await(mountCtx context.Context, f *flow, seq uint64, hash common.Hash, wallet string, started time.Time) {
	defer c.pending.Done()
	kind := f.kind()

	ctx, cancel := context.WithTimeout(mountCtx, c.confirmTimeout)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		_, err := c.writer.Await(ctx, hash)
		result <- err
	}()

	var err error
	select {
	case err = <-result:
		if stderrors.Is(err, context.DeadlineExceeded) && mountCtx.Err() == nil {
			c.timedOut(f, seq, hash, kind, started)
			return
		}
	case <-ctx.Done():
		if mountCtx.Err() != nil {
			c.log.Debug().Str("tx", hash.Hex()).Msg("Mount released while awaiting confirmation")
			return
		}
		c.timedOut(f, seq, hash, kind, started)

		// a late receipt still changed chain state
		if late := <-result; late == nil {
			c.staleCompletion(kind, hash)
			c.afterSuccess(kind, wallet)
		}
		return
	}

	succeeded := err == nil
	applied := f.complete(seq, hash, func(s *models.ActionStatus) {
		if succeeded {
			s.State = models.StateSucceeded
			s.Message = successMessage(kind)
			s.Selection = nil
			return
		}
		s.State = models.StateFailed
		s.Error = err.Error()
	}, c.now())

	if succeeded {
		c.afterSuccess(kind, wallet)
	}
	if !applied {
		c.staleCompletion(kind, hash)
		return
	}

	outcome := "failed"
	if succeeded {
		outcome = "succeeded"
	}
	c.record(kind, outcome, c.now().Sub(started))
	c.log.Info().
		Str("action", string(kind)).
		Str("wallet", wallet).
		Str("tx", hash.Hex()).
		Str("result", outcome).
		Msg("Action resolved")
}

func (c *Coordinator) timedOut(f *flow, seq uint64, hash common.Hash, kind models.ActionKind, started time.Time) {
	f.complete(seq, hash, func(s *models.ActionStatus) {
		s.State = models.StateFailed
		s.Error = fmt.Sprintf("transaction %s not confirmed within %s", hash.Hex(), c.confirmTimeout)
	}, c.now())
	c.record(kind, "timeout", c.now().Sub(started))
	c.log.Warn().Str("tx", hash.Hex()).Str("action", string(kind)).Msg("Confirmation timed out")
}

func (c *Coordinator) afterSuccess(kind models.ActionKind, wallet string) {
	switch kind {
	case models.ActionJoin:
		c.reader.Invalidate(poolrepo.QueryParticipants, poolrepo.QueryPoolInfo, poolrepo.QueryBalance(wallet))
	case models.ActionBet:
		c.reader.Invalidate(poolrepo.QueryBets(wallet), poolrepo.QueryTotalPoolBets, poolrepo.QueryBalance(wallet))
	}
	if c.refresher != nil {
		c.refresher.Refresh()
	}
}

func (c *Coordinator) staleCompletion(kind models.ActionKind, hash common.Hash) {
	if c.metrics != nil {
		c.metrics.StaleCompletions.WithLabelValues(string(kind)).Inc()
	}
	c.log.Debug().Str("action", string(kind)).Str("tx", hash.Hex()).Msg("Ignoring stale completion")
}

func (c *Coordinator) record(kind models.ActionKind, result string, took time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.ActionsTotal.WithLabelValues(string(kind), result).Inc()
	if took > 0 {
		c.metrics.ActionDuration.WithLabelValues(string(kind)).Observe(took.Seconds())
	}
}

func successMessage(kind models.ActionKind) string {
	if kind == models.ActionJoin {
		return "Successfully joined the arena!"
	}
	return "Bet placed successfully!"
}

// begin starts a new submission unless one is in flight.
func (f *flow) begin(now time.Time, selection *models.BetSelection) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, errors.NewMountNotFoundError("")
	}
	if f.status.State.InFlight() {
		return 0, errors.NewActionBusyError(string(f.status.Kind), string(f.status.State))
	}

	seq := f.status.Seq + 1
	f.status = models.ActionStatus{
		Kind:      f.status.Kind,
		State:     models.StatePreconditionCheck,
		Seq:       seq,
		Selection: selection,
		UpdatedAt: now,
	}
	return seq, nil
}

// update applies fn when seq is still the current submission.
func (f *flow) update(seq uint64, fn func(*models.ActionStatus), now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.status.Seq != seq {
		return false
	}
	fn(&f.status)
	f.status.UpdatedAt = now
	return true
}

// complete applies fn only for the awaited transaction of submission seq.
func (f *flow) complete(seq uint64, hash common.Hash, fn func(*models.ActionStatus), now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.status.Seq != seq || f.status.TxHash != hash.Hex() ||
		f.status.State != models.StateAwaitingConfirmation {
		return false
	}
	fn(&f.status)
	f.status.UpdatedAt = now
	return true
}

func (f *flow) snapshot() models.ActionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.status
	if s.Selection != nil {
		sel := *s.Selection
		s.Selection = &sel
	}
	return s
}

func (f *flow) kind() models.ActionKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status.Kind
}
