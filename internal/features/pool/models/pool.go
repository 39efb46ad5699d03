package models

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NativeDecimals is the precision of the chain's native unit.
const NativeDecimals = 18

// PoolInfo is the chain-owned pool header.
type PoolInfo struct {
	Phase              uint8       `json:"phase"`
	TotalParticipants  *big.Int    `json:"total_participants"`
	Active             bool        `json:"active"`
	LuckyWinnerRewards [3]*big.Int `json:"lucky_winner_rewards"`
}

// RewardsSum adds the three lucky-winner rewards, treating nil as zero.
func (p PoolInfo) RewardsSum() *big.Int {
	sum := new(big.Int)
	for _, r := range p.LuckyWinnerRewards {
		if r != nil {
			sum.Add(sum, r)
		}
	}
	return sum
}

// Participants returns TotalParticipants as an int64, nil counting as zero.
func (p PoolInfo) Participants() int64 {
	if p.TotalParticipants == nil {
		return 0
	}
	return p.TotalParticipants.Int64()
}

// Bet is one entry of a bettor's on-chain betting history.
type Bet struct {
	Participant string    `json:"participant"`
	Amount      *big.Int  `json:"amount"`
	IsActive    bool      `json:"is_active"`
	Timestamp   time.Time `json:"timestamp"`
}

// BetType is the contract's bet category selector.
type BetType uint8

const (
	BetTypeTop10       BetType = 0
	BetTypeFinalWinner BetType = 1
)

// Label is the display label stored in the bet-label cache.
func (b BetType) Label() string {
	switch b {
	case BetTypeTop10:
		return "Top 10"
	case BetTypeFinalWinner:
		return "Final Winner"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(b))
	}
}

// ParseBetType accepts the numeric selector or the display label.
func ParseBetType(s string) (BetType, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "")) {
	case "0", "top10":
		return BetTypeTop10, nil
	case "1", "finalwinner":
		return BetTypeFinalWinner, nil
	default:
		return 0, fmt.Errorf("unknown bet type %q", s)
	}
}

// Reading is the result of a chain query as seen by consumers. Failures never
// surface as errors: Present is false when nothing was ever read, Stale is
// true when Value is the last-known-good value after a failed refresh.
type Reading[T any] struct {
	Value     T         `json:"value"`
	Present   bool      `json:"present"`
	Stale     bool      `json:"stale"`
	FetchedAt time.Time `json:"fetched_at"`
	Err       string    `json:"error,omitempty"`
}

// Verified reports whether the reading is fresh enough to gate an action on.
func (r Reading[T]) Verified() bool {
	return r.Present && !r.Stale
}

// ToNative converts wei to the native unit.
func ToNative(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -NativeDecimals)
}

// ToWei converts a native-unit amount to wei, truncating sub-wei digits.
func ToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(NativeDecimals).Truncate(0).BigInt()
}
