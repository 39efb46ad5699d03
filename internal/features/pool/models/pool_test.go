package models_test

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monad-deathmatch-backend/internal/features/pool/models"
)

func TestRewardsSum_NilIsZero(t *testing.T) {
	info := models.PoolInfo{LuckyWinnerRewards: [3]*big.Int{big.NewInt(2), nil, big.NewInt(3)}}
	assert.Equal(t, int64(5), info.RewardsSum().Int64())
	assert.Equal(t, int64(0), models.PoolInfo{}.Participants())
}

func TestParseBetType(t *testing.T) {
	for in, want := range map[string]models.BetType{
		"0":            models.BetTypeTop10,
		"Top 10":       models.BetTypeTop10,
		"1":            models.BetTypeFinalWinner,
		"Final Winner": models.BetTypeFinalWinner,
		"finalWinner":  models.BetTypeFinalWinner,
	} {
		got, err := models.ParseBetType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := models.ParseBetType("2")
	assert.Error(t, err)
	assert.Equal(t, "Final Winner", models.BetTypeFinalWinner.Label())
}

func TestWeiConversions(t *testing.T) {
	wei := models.ToWei(decimal.RequireFromString("0.1"))
	assert.Equal(t, "100000000000000000", wei.String())
	assert.True(t, models.ToNative(wei).Equal(decimal.RequireFromString("0.1")))
	assert.True(t, models.ToNative(nil).IsZero())
}
