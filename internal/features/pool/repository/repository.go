package repository

import (
	"context"
	"math/big"
	"strings"

	"monad-deathmatch-backend/internal/features/pool/models"
)

// Query keys identify a cached read. Bet history and balance are per address.
const (
	QueryPoolInfo        = "pool_info"
	QueryParticipants    = "participants"
	QueryMaxParticipants = "max_participants"
	QueryTotalPoolBets   = "total_pool_bets"
	queryBetsPrefix      = "bets:"
	queryBalancePrefix   = "balance:"
)

func QueryBets(bettor string) string {
	return queryBetsPrefix + strings.ToLower(bettor)
}

func QueryBalance(addr string) string {
	return queryBalancePrefix + strings.ToLower(addr)
}

// PoolReader is the read side of the pool contract. Every call is idempotent
// and never returns an error: failures show up on the Reading.
type PoolReader interface {
	PoolInfo(ctx context.Context) models.Reading[models.PoolInfo]
	Participants(ctx context.Context) models.Reading[[]string]
	BettingHistory(ctx context.Context, bettor string) models.Reading[[]models.Bet]
	MaxParticipants(ctx context.Context) models.Reading[int64]
	TotalPoolBets(ctx context.Context) models.Reading[*big.Int]
	Balance(ctx context.Context, addr string) models.Reading[*big.Int]

	// Invalidate forces the next read of each query to hit the chain while
	// keeping the previous value as a stale fallback.
	Invalidate(queries ...string)
}
