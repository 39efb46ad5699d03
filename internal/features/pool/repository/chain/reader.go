package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"monad-deathmatch-backend/internal/common/logger"
	"monad-deathmatch-backend/internal/features/pool/contract"
	"monad-deathmatch-backend/internal/features/pool/models"
	"monad-deathmatch-backend/internal/features/pool/repository"
	"monad-deathmatch-backend/internal/platform/metrics"
)

// Caller is what the reader needs from an RPC client.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

type entry struct {
	value     any
	fetchedAt time.Time
	dirty     bool
}

// Reader implements repository.PoolReader against the pool contract.
// Concurrent callers of the same query share one in-flight call, and a value
// younger than the observation window is served without a round trip.
type Reader struct {
	caller   Caller
	contract common.Address
	poolID   *big.Int
	window   time.Duration
	timeout  time.Duration
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time

	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]*entry
	// bumped by Invalidate; a fetch started under an older generation is not cached
	gens map[string]uint64
}

type Option func(*Reader)

func WithObservationWindow(d time.Duration) Option {
	return func(r *Reader) { r.window = d }
}

func WithTimeout(d time.Duration) Option {
	return func(r *Reader) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reader) { r.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(r *Reader) { r.now = now }
}

func NewReader(caller Caller, contractAddr common.Address, poolID int64, opts ...Option) *Reader {
	r := &Reader{
		caller:   caller,
		contract: contractAddr,
		poolID:   big.NewInt(poolID),
		window:   2 * time.Second,
		timeout:  10 * time.Second,
		log:      logger.Component("chain-reader"),
		now:      time.Now,
		entries:  make(map[string]*entry),
		gens:     make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ repository.PoolReader = (*Reader)(nil)

func (r *Reader) PoolInfo(ctx context.Context) models.Reading[models.PoolInfo] {
	return read(ctx, r, repository.QueryPoolInfo, func(ctx context.Context) (models.PoolInfo, error) {
		data, err := r.call(ctx, contract.MethodGetPoolInfo, r.poolID)
		if err != nil {
			return models.PoolInfo{}, err
		}
		res, err := contract.UnpackPoolInfo(data)
		if err != nil {
			return models.PoolInfo{}, err
		}
		return models.PoolInfo{
			Phase:              res.Phase,
			TotalParticipants:  res.TotalParticipants,
			Active:             res.Active,
			LuckyWinnerRewards: res.Rewards,
		}, nil
	})
}

func (r *Reader) Participants(ctx context.Context) models.Reading[[]string] {
	return read(ctx, r, repository.QueryParticipants, func(ctx context.Context) ([]string, error) {
		data, err := r.call(ctx, contract.MethodGetParticipants, r.poolID)
		if err != nil {
			return nil, err
		}
		addrs, err := contract.UnpackParticipants(data)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(addrs))
		for i, a := range addrs {
			out[i] = a.Hex()
		}
		return out, nil
	})
}

func (r *Reader) BettingHistory(ctx context.Context, bettor string) models.Reading[[]models.Bet] {
	if !common.IsHexAddress(bettor) {
		return models.Reading[[]models.Bet]{Err: fmt.Sprintf("invalid bettor address %q", bettor)}
	}
	addr := common.HexToAddress(bettor)

	return read(ctx, r, repository.QueryBets(bettor), func(ctx context.Context) ([]models.Bet, error) {
		data, err := r.call(ctx, contract.MethodGetBettingHistory, r.poolID, addr)
		if err != nil {
			return nil, err
		}
		records, err := contract.UnpackBettingHistory(data)
		if err != nil {
			return nil, err
		}
		bets := make([]models.Bet, len(records))
		for i, rec := range records {
			bets[i] = models.Bet{
				Participant: rec.Participant.Hex(),
				Amount:      rec.Amount,
				IsActive:    rec.IsActive,
			}
			if rec.Timestamp != nil {
				bets[i].Timestamp = time.Unix(rec.Timestamp.Int64(), 0).UTC()
			}
		}
		return bets, nil
	})
}

func (r *Reader) MaxParticipants(ctx context.Context) models.Reading[int64] {
	return read(ctx, r, repository.QueryMaxParticipants, func(ctx context.Context) (int64, error) {
		data, err := r.call(ctx, contract.MethodMaxParticipants)
		if err != nil {
			return 0, err
		}
		v, err := contract.UnpackUint(contract.MethodMaxParticipants, data)
		if err != nil {
			return 0, err
		}
		return v.Int64(), nil
	})
}

func (r *Reader) TotalPoolBets(ctx context.Context) models.Reading[*big.Int] {
	return read(ctx, r, repository.QueryTotalPoolBets, func(ctx context.Context) (*big.Int, error) {
		data, err := r.call(ctx, contract.MethodTotalPoolBets, r.poolID)
		if err != nil {
			return nil, err
		}
		return contract.UnpackUint(contract.MethodTotalPoolBets, data)
	})
}

func (r *Reader) Balance(ctx context.Context, addr string) models.Reading[*big.Int] {
	if !common.IsHexAddress(addr) {
		return models.Reading[*big.Int]{Err: fmt.Sprintf("invalid address %q", addr)}
	}
	account := common.HexToAddress(addr)

	return read(ctx, r, repository.QueryBalance(addr), func(ctx context.Context) (*big.Int, error) {
		return r.caller.BalanceAt(ctx, account, nil)
	})
}

func (r *Reader) Invalidate(queries ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range queries {
		if e, ok := r.entries[q]; ok {
			e.dirty = true
		}
		r.gens[q]++
		// a call already in flight may predate the write being observed
		r.group.Forget(q)
	}
}

func (r *Reader) call(ctx context.Context, method string, args ...interface{}) ([]byte, error) {
	callData, err := contract.PoolABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return r.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &r.contract,
		Data: callData,
	}, nil)
}

func (r *Reader) cached(key string) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	cp := *e
	return &cp, true
}

func (r *Reader) observe(query, result string, started time.Time) {
	if r.metrics == nil {
		return
	}
	r.metrics.ChainReads.WithLabelValues(query, result).Inc()
	if !started.IsZero() {
		r.metrics.ChainReadLatency.WithLabelValues(query).Observe(time.Since(started).Seconds())
	}
}

func read[T any](ctx context.Context, r *Reader, key string, fetch func(context.Context) (T, error)) models.Reading[T] {
	if e, ok := r.cached(key); ok && !e.dirty && r.now().Sub(e.fetchedAt) < r.window {
		r.observe(metricQuery(key), "cached", time.Time{})
		return models.Reading[T]{Value: e.value.(T), Present: true, FetchedAt: e.fetchedAt}
	}

	res, err, _ := r.group.Do(key, func() (interface{}, error) {
		// shared by every waiter, so one caller leaving must not cancel it
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		r.mu.Lock()
		gen := r.gens[key]
		r.mu.Unlock()

		started := time.Now()
		v, err := fetch(callCtx)
		if err != nil {
			r.observe(metricQuery(key), "error", started)
			return nil, err
		}
		r.observe(metricQuery(key), "ok", started)

		e := &entry{value: v, fetchedAt: r.now()}
		r.mu.Lock()
		if r.gens[key] == gen {
			r.entries[key] = e
		}
		r.mu.Unlock()
		return *e, nil
	})
	if err == nil {
		e := res.(entry)
		return models.Reading[T]{Value: e.value.(T), Present: true, FetchedAt: e.fetchedAt}
	}

	r.log.Warn().Err(err).Str("query", key).Msg("Chain read failed")

	if e, ok := r.cached(key); ok {
		if r.metrics != nil {
			r.metrics.StaleReadings.WithLabelValues(metricQuery(key)).Inc()
		}
		return models.Reading[T]{
			Value:     e.value.(T),
			Present:   true,
			Stale:     true,
			FetchedAt: e.fetchedAt,
			Err:       err.Error(),
		}
	}
	return models.Reading[T]{Stale: true, Err: err.Error()}
}

// metricQuery drops the per-address suffix to keep label cardinality bounded.
func metricQuery(key string) string {
	query, _, _ := strings.Cut(key, ":")
	return query
}
