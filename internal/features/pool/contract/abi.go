// Package contract binds the deathmatch pool contract ABI.
package contract

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const (
	MethodGetPoolInfo       = "getPoolInfo"
	MethodGetParticipants   = "getParticipants"
	MethodGetBettingHistory = "getBettingHistory"
	MethodMaxParticipants   = "MAX_PARTICIPANTS"
	MethodTotalPoolBets     = "totalPoolBets"
	MethodJoinPool          = "joinPool"
	MethodPlaceBet          = "placeBet"
)

const poolABIJSON = `[
	{
		"name": "getPoolInfo",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "poolId", "type": "uint256"}],
		"outputs": [
			{"name": "phase", "type": "uint8"},
			{"name": "totalParticipants", "type": "uint256"},
			{"name": "active", "type": "bool"},
			{"name": "luckyWinner1Reward", "type": "uint256"},
			{"name": "luckyWinner2Reward", "type": "uint256"},
			{"name": "luckyWinner3Reward", "type": "uint256"}
		]
	},
	{
		"name": "getParticipants",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "poolId", "type": "uint256"}],
		"outputs": [{"name": "", "type": "address[]"}]
	},
	{
		"name": "getBettingHistory",
		"type": "function",
		"stateMutability": "view",
		"inputs": [
			{"name": "poolId", "type": "uint256"},
			{"name": "bettor", "type": "address"}
		],
		"outputs": [{
			"name": "",
			"type": "tuple[]",
			"components": [
				{"name": "participant", "type": "address"},
				{"name": "amount", "type": "uint256"},
				{"name": "isActive", "type": "bool"},
				{"name": "timestamp", "type": "uint256"}
			]
		}]
	},
	{
		"name": "MAX_PARTICIPANTS",
		"type": "function",
		"stateMutability": "view",
		"inputs": [],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"name": "totalPoolBets",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "poolId", "type": "uint256"}],
		"outputs": [{"name": "", "type": "uint256"}]
	},
	{
		"name": "joinPool",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [{"name": "poolId", "type": "uint256"}],
		"outputs": []
	},
	{
		"name": "placeBet",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [
			{"name": "poolId", "type": "uint256"},
			{"name": "participant", "type": "address"},
			{"name": "betType", "type": "uint8"}
		],
		"outputs": []
	}
]`

// PoolABI is the parsed contract interface.
var PoolABI abi.ABI

func init() {
	var err error
	PoolABI, err = abi.JSON(strings.NewReader(poolABIJSON))
	if err != nil {
		panic("pool abi parse: " + err.Error())
	}
}

// PoolInfoResult is the decoded getPoolInfo output.
type PoolInfoResult struct {
	Phase             uint8
	TotalParticipants *big.Int
	Active            bool
	Rewards           [3]*big.Int
}

// BetRecord mirrors one getBettingHistory tuple. Field names must match the
// ABI component names for tuple decoding.
type BetRecord struct {
	Participant common.Address
	Amount      *big.Int
	IsActive    bool
	Timestamp   *big.Int
}

func UnpackPoolInfo(data []byte) (PoolInfoResult, error) {
	vals, err := PoolABI.Unpack(MethodGetPoolInfo, data)
	if err != nil {
		return PoolInfoResult{}, fmt.Errorf("unpack %s: %w", MethodGetPoolInfo, err)
	}
	if len(vals) != 6 {
		return PoolInfoResult{}, fmt.Errorf("unpack %s: got %d values", MethodGetPoolInfo, len(vals))
	}

	var out PoolInfoResult
	var ok bool
	if out.Phase, ok = vals[0].(uint8); !ok {
		return out, fmt.Errorf("unpack %s: phase has type %T", MethodGetPoolInfo, vals[0])
	}
	if out.TotalParticipants, ok = vals[1].(*big.Int); !ok {
		return out, fmt.Errorf("unpack %s: totalParticipants has type %T", MethodGetPoolInfo, vals[1])
	}
	if out.Active, ok = vals[2].(bool); !ok {
		return out, fmt.Errorf("unpack %s: active has type %T", MethodGetPoolInfo, vals[2])
	}
	for i := 0; i < 3; i++ {
		if out.Rewards[i], ok = vals[3+i].(*big.Int); !ok {
			return out, fmt.Errorf("unpack %s: reward %d has type %T", MethodGetPoolInfo, i+1, vals[3+i])
		}
	}
	return out, nil
}

func UnpackParticipants(data []byte) ([]common.Address, error) {
	vals, err := PoolABI.Unpack(MethodGetParticipants, data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", MethodGetParticipants, err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", MethodGetParticipants)
	}
	addrs, ok := vals[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("unpack %s: unexpected type %T", MethodGetParticipants, vals[0])
	}
	return addrs, nil
}

func UnpackBettingHistory(data []byte) (records []BetRecord, err error) {
	// ConvertType panics on shape mismatch
	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("unpack %s: %v", MethodGetBettingHistory, r)
		}
	}()

	vals, err := PoolABI.Unpack(MethodGetBettingHistory, data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", MethodGetBettingHistory, err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", MethodGetBettingHistory)
	}
	records = *abi.ConvertType(vals[0], new([]BetRecord)).(*[]BetRecord)
	return records, nil
}

// UnpackUint decodes single uint256 outputs (MAX_PARTICIPANTS, totalPoolBets).
func UnpackUint(method string, data []byte) (*big.Int, error) {
	vals, err := PoolABI.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	v, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack %s: unexpected type %T", method, vals[0])
	}
	return v, nil
}

func PackJoinPool(poolID *big.Int) ([]byte, error) {
	return PoolABI.Pack(MethodJoinPool, poolID)
}

func PackPlaceBet(poolID *big.Int, participant common.Address, betType uint8) ([]byte, error) {
	return PoolABI.Pack(MethodPlaceBet, poolID, participant, betType)
}
