package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"monad-deathmatch-backend/internal/common/logger"
	"monad-deathmatch-backend/internal/features/pool/models"
	"monad-deathmatch-backend/internal/features/pool/repository"
	"monad-deathmatch-backend/internal/platform/metrics"
)

// Snapshot is the shared pool state produced by one poll cycle.
type Snapshot struct {
	PoolInfo        models.Reading[models.PoolInfo] `json:"pool_info"`
	Participants    models.Reading[[]string]        `json:"participants"`
	MaxParticipants models.Reading[int64]           `json:"max_participants"`
	TotalPoolBets   models.Reading[string]          `json:"total_pool_bets"`
	PolledAt        time.Time                       `json:"polled_at"`
}

// Healthy reports whether every read in the cycle succeeded.
func (s Snapshot) Healthy() bool {
	return !s.PoolInfo.Stale && !s.Participants.Stale && !s.MaxParticipants.Stale && !s.TotalPoolBets.Stale
}

// Listener is notified after every cycle. joined holds participants that
// were not in the previous successful participant list; the first successful
// cycle reports everyone.
type Listener func(ctx context.Context, snap Snapshot, joined []string)

// Poller refreshes the shared pool reads on a fixed cadence and backs off
// exponentially while reads keep failing.
type Poller struct {
	reader     repository.PoolReader
	interval   time.Duration
	maxBackoff time.Duration
	metrics    *metrics.Metrics
	log        zerolog.Logger

	mu        sync.RWMutex
	listeners []Listener
	last      Snapshot
	known     map[string]struct{}
	trigger   chan struct{}
}

func NewPoller(reader repository.PoolReader, interval, maxBackoff time.Duration, m *metrics.Metrics) *Poller {
	if interval <= 0 {
		interval = 4 * time.Second
	}
	if maxBackoff < interval {
		maxBackoff = interval
	}
	return &Poller{
		reader:     reader,
		interval:   interval,
		maxBackoff: maxBackoff,
		metrics:    m,
		log:        logger.Component("pool-poller"),
		trigger:    make(chan struct{}, 1),
	}
}

// Subscribe registers a listener. Call before Run.
func (p *Poller) Subscribe(l Listener) {
	p.mu.Lock()
	p.listeners = append(p.listeners, l)
	p.mu.Unlock()
}

// Latest returns the most recent snapshot.
func (p *Poller) Latest() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Refresh asks the loop to poll now instead of waiting for the next tick.
func (p *Poller) Refresh() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info().Dur("interval", p.interval).Dur("max_backoff", p.maxBackoff).Msg("Starting pool poller")

	delay := time.Duration(0)
	failures := 0
	for {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.log.Info().Msg("Stopping pool poller")
			return
		case <-p.trigger:
			timer.Stop()
		case <-timer.C:
		}

		snap := p.Poll(ctx)
		if snap.Healthy() {
			failures = 0
			delay = p.interval
			continue
		}

		failures++
		delay = Backoff(p.interval, p.maxBackoff, failures)
		if p.metrics != nil {
			p.metrics.PollFailures.Inc()
		}
		p.log.Warn().Int("consecutive_failures", failures).Dur("next_in", delay).Msg("Pool poll degraded")
	}
}

// Poll runs one cycle and notifies listeners.
func (p *Poller) Poll(ctx context.Context) Snapshot {
	total := p.reader.TotalPoolBets(ctx)
	snap := Snapshot{
		PoolInfo:        p.reader.PoolInfo(ctx),
		Participants:    p.reader.Participants(ctx),
		MaxParticipants: p.reader.MaxParticipants(ctx),
		TotalPoolBets: models.Reading[string]{
			Value:     models.ToNative(total.Value).String(),
			Present:   total.Present,
			Stale:     total.Stale,
			FetchedAt: total.FetchedAt,
			Err:       total.Err,
		},
		PolledAt: time.Now().UTC(),
	}

	joined := p.diffParticipants(snap.Participants)

	p.mu.Lock()
	p.last = snap
	listeners := append([]Listener(nil), p.listeners...)
	p.mu.Unlock()

	for _, l := range listeners {
		l(ctx, snap, joined)
	}
	return snap
}

func (p *Poller) diffParticipants(r models.Reading[[]string]) []string {
	if !r.Verified() {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	next := make(map[string]struct{}, len(r.Value))
	var joined []string
	for _, addr := range r.Value {
		key := strings.ToLower(addr)
		next[key] = struct{}{}
		if _, ok := p.known[key]; !ok {
			joined = append(joined, addr)
		}
	}
	p.known = next
	return joined
}

// Backoff doubles base per consecutive failure, capped at max.
func Backoff(base, max time.Duration, failures int) time.Duration {
	d := base
	for i := 0; i < failures && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	return d
}
