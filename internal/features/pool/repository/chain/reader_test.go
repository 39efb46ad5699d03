package chain_test

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monad-deathmatch-backend/internal/features/pool/contract"
	"monad-deathmatch-backend/internal/features/pool/repository"
	"monad-deathmatch-backend/internal/features/pool/repository/chain"
)

var poolAddr = common.HexToAddress("0x00000000000000000000000000000000000000f1")

type fakeCaller struct {
	mu       sync.Mutex
	calls    map[string]int
	results  map[string][]byte
	fail     map[string]error
	balances map[common.Address]*big.Int
	gate     chan struct{}
	// holds a call after its result is taken
	hold chan struct{}
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		calls:    make(map[string]int),
		results:  make(map[string][]byte),
		fail:     make(map[string]error),
		balances: make(map[common.Address]*big.Int),
	}
}

func (f *fakeCaller) set(method string, values ...interface{}) {
	data, err := contract.PoolABI.Methods[method].Outputs.Pack(values...)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	f.results[method] = data
	delete(f.fail, method)
	f.mu.Unlock()
}

func (f *fakeCaller) failWith(method string, err error) {
	f.mu.Lock()
	f.fail[method] = err
	f.mu.Unlock()
}

func (f *fakeCaller) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeCaller) CallContract(ctx context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.gate != nil {
		<-f.gate
	}
	data, err := f.result(call.Data[:4])
	if f.hold != nil {
		<-f.hold
	}
	return data, err
}

func (f *fakeCaller) result(selector []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, m := range contract.PoolABI.Methods {
		if bytes.Equal(selector, m.ID) {
			f.calls[name]++
			if err := f.fail[name]; err != nil {
				return nil, err
			}
			return f.results[name], nil
		}
	}
	return nil, errors.New("unknown selector")
}

func (f *fakeCaller) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["balance"]++
	if err := f.fail["balance"]; err != nil {
		return nil, err
	}
	return f.balances[account], nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newReader(f *fakeCaller, c *clock) *chain.Reader {
	return chain.NewReader(f, poolAddr, 1,
		chain.WithObservationWindow(time.Second),
		chain.WithClock(c.Now),
	)
}

func TestReader_DecodesParticipants(t *testing.T) {
	f := newFakeCaller()
	a := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	b := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	f.set(contract.MethodGetParticipants, []common.Address{a, b})

	r := newReader(f, &clock{now: time.Unix(1000, 0)})
	got := r.Participants(context.Background())

	require.True(t, got.Verified())
	assert.Equal(t, []string{a.Hex(), b.Hex()}, got.Value)
}

func TestReader_ObservationWindowSharesValue(t *testing.T) {
	f := newFakeCaller()
	f.set(contract.MethodGetPoolInfo, uint8(1), big.NewInt(3), true, big.NewInt(0), big.NewInt(0), big.NewInt(0))
	c := &clock{now: time.Unix(1000, 0)}
	r := newReader(f, c)

	r.PoolInfo(context.Background())
	r.PoolInfo(context.Background())
	assert.Equal(t, 1, f.count(contract.MethodGetPoolInfo))

	c.Advance(2 * time.Second)
	info := r.PoolInfo(context.Background())
	assert.Equal(t, 2, f.count(contract.MethodGetPoolInfo))
	assert.Equal(t, int64(3), info.Value.Participants())
}

func TestReader_ConcurrentCallersShareOneCall(t *testing.T) {
	f := newFakeCaller()
	f.set(contract.MethodMaxParticipants, big.NewInt(100))
	f.gate = make(chan struct{})
	r := newReader(f, &clock{now: time.Unix(1000, 0)})

	var wg sync.WaitGroup
	results := make([]int64, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.MaxParticipants(context.Background()).Value
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	assert.Equal(t, 1, f.count(contract.MethodMaxParticipants))
	for _, v := range results {
		assert.Equal(t, int64(100), v)
	}
}

func TestReader_FailureKeepsLastKnownGoodAsStale(t *testing.T) {
	f := newFakeCaller()
	f.set(contract.MethodTotalPoolBets, big.NewInt(42))
	c := &clock{now: time.Unix(1000, 0)}
	r := newReader(f, c)

	first := r.TotalPoolBets(context.Background())
	require.True(t, first.Verified())

	f.failWith(contract.MethodTotalPoolBets, errors.New("rpc timeout"))
	c.Advance(5 * time.Second)

	second := r.TotalPoolBets(context.Background())
	assert.True(t, second.Present)
	assert.True(t, second.Stale)
	assert.False(t, second.Verified())
	assert.Equal(t, int64(42), second.Value.Int64())
	assert.Equal(t, first.FetchedAt, second.FetchedAt)
	assert.Contains(t, second.Err, "rpc timeout")
}

func TestReader_FailureWithoutHistoryIsAbsent(t *testing.T) {
	f := newFakeCaller()
	f.failWith(contract.MethodGetParticipants, errors.New("connection refused"))
	r := newReader(f, &clock{now: time.Unix(1000, 0)})

	got := r.Participants(context.Background())
	assert.False(t, got.Present)
	assert.Nil(t, got.Value)
}

func TestReader_InvalidateBypassesWindow(t *testing.T) {
	f := newFakeCaller()
	a := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	f.set(contract.MethodGetParticipants, []common.Address{})
	r := newReader(f, &clock{now: time.Unix(1000, 0)})

	assert.Empty(t, r.Participants(context.Background()).Value)

	f.set(contract.MethodGetParticipants, []common.Address{a})
	r.Invalidate(repository.QueryParticipants)

	got := r.Participants(context.Background())
	assert.Equal(t, []string{a.Hex()}, got.Value)
	assert.Equal(t, 2, f.count(contract.MethodGetParticipants))
}

func TestReader_BalanceAndBetsArePerAddress(t *testing.T) {
	f := newFakeCaller()
	user := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	f.balances[user] = big.NewInt(5e17)
	f.set(contract.MethodGetBettingHistory, []contract.BetRecord{{
		Participant: common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Amount:      big.NewInt(1e17),
		IsActive:    true,
		Timestamp:   big.NewInt(1_700_000_000),
	}})
	r := newReader(f, &clock{now: time.Unix(1000, 0)})

	bal := r.Balance(context.Background(), user.Hex())
	require.True(t, bal.Verified())
	assert.Equal(t, int64(5e17), bal.Value.Int64())

	bets := r.BettingHistory(context.Background(), user.Hex())
	require.True(t, bets.Verified())
	require.Len(t, bets.Value, 1)
	assert.True(t, bets.Value[0].IsActive)
	assert.Equal(t, int64(1_700_000_000), bets.Value[0].Timestamp.Unix())

	bad := r.Balance(context.Background(), "not-an-address")
	assert.False(t, bad.Present)
}

func TestReader_InvalidateDiscardsResultOfEarlierCall(t *testing.T) {
	f := newFakeCaller()
	a := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	f.set(contract.MethodGetParticipants, []common.Address{})
	f.hold = make(chan struct{})
	r := newReader(f, &clock{now: time.Unix(1000, 0)})

	done := make(chan []string)
	go func() {
		done <- r.Participants(context.Background()).Value
	}()
	require.Eventually(t, func() bool {
		return f.count(contract.MethodGetParticipants) == 1
	}, time.Second, 5*time.Millisecond)

	// the write lands while the earlier call is still on the wire
	f.set(contract.MethodGetParticipants, []common.Address{a})
	r.Invalidate(repository.QueryParticipants)
	close(f.hold)
	assert.Empty(t, <-done)

	got := r.Participants(context.Background())
	assert.Equal(t, []string{a.Hex()}, got.Value)
	assert.Equal(t, 2, f.count(contract.MethodGetParticipants))
}
