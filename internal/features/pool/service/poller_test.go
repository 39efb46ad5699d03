package service_test

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monad-deathmatch-backend/internal/features/pool/models"
	"monad-deathmatch-backend/internal/features/pool/service"
)

type stubReader struct {
	mu           sync.Mutex
	participants models.Reading[[]string]
	info         models.Reading[models.PoolInfo]
}

func (s *stubReader) PoolInfo(context.Context) models.Reading[models.PoolInfo] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

func (s *stubReader) Participants(context.Context) models.Reading[[]string] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participants
}

func (s *stubReader) BettingHistory(context.Context, string) models.Reading[[]models.Bet] {
	return models.Reading[[]models.Bet]{Present: true}
}

func (s *stubReader) MaxParticipants(context.Context) models.Reading[int64] {
	return models.Reading[int64]{Value: 100, Present: true}
}

func (s *stubReader) TotalPoolBets(context.Context) models.Reading[*big.Int] {
	return models.Reading[*big.Int]{Value: big.NewInt(2e18), Present: true}
}

func (s *stubReader) Balance(context.Context, string) models.Reading[*big.Int] {
	return models.Reading[*big.Int]{Value: big.NewInt(0), Present: true}
}

func (s *stubReader) Invalidate(...string) {}

func (s *stubReader) setParticipants(addrs ...string) {
	s.mu.Lock()
	s.participants = models.Reading[[]string]{Value: addrs, Present: true}
	s.mu.Unlock()
}

func TestPoller_ReportsNewParticipantsOnce(t *testing.T) {
	reader := &stubReader{info: models.Reading[models.PoolInfo]{Present: true}}
	reader.setParticipants("0xAA")

	p := service.NewPoller(reader, time.Second, time.Minute, nil)
	var got [][]string
	p.Subscribe(func(_ context.Context, _ service.Snapshot, joined []string) {
		got = append(got, joined)
	})

	p.Poll(context.Background())
	reader.setParticipants("0xAA", "0xBB")
	p.Poll(context.Background())
	p.Poll(context.Background())

	require.Len(t, got, 3)
	assert.Equal(t, []string{"0xAA"}, got[0])
	assert.Equal(t, []string{"0xBB"}, got[1])
	assert.Empty(t, got[2])
	assert.Equal(t, "2", p.Latest().TotalPoolBets.Value)
}

func TestPoller_StaleParticipantsDoNotReportJoins(t *testing.T) {
	reader := &stubReader{info: models.Reading[models.PoolInfo]{Present: true}}
	reader.participants = models.Reading[[]string]{Value: []string{"0xAA"}, Present: true, Stale: true}

	p := service.NewPoller(reader, time.Second, time.Minute, nil)
	var joined []string
	p.Subscribe(func(_ context.Context, _ service.Snapshot, j []string) { joined = j })

	snap := p.Poll(context.Background())
	assert.False(t, snap.Healthy())
	assert.Empty(t, joined)
}

func TestBackoff(t *testing.T) {
	base := 4 * time.Second
	max := time.Minute

	assert.Equal(t, 8*time.Second, service.Backoff(base, max, 1))
	assert.Equal(t, 16*time.Second, service.Backoff(base, max, 2))
	assert.Equal(t, max, service.Backoff(base, max, 10))
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	reader := &stubReader{info: models.Reading[models.PoolInfo]{Present: true}}
	reader.setParticipants()
	p := service.NewPoller(reader, 10*time.Millisecond, 20*time.Millisecond, nil)

	polled := make(chan struct{}, 10)
	p.Subscribe(func(context.Context, service.Snapshot, []string) {
		select {
		case polled <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	select {
	case <-polled:
	case <-time.After(time.Second):
		t.Fatal("poller never ran")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
