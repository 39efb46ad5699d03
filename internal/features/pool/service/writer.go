package service

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"monad-deathmatch-backend/internal/common/logger"
	"monad-deathmatch-backend/internal/features/pool/contract"
	"monad-deathmatch-backend/internal/features/pool/models"
)

// ErrNoSigner is returned when the backend holds no key for the sender.
var ErrNoSigner = errors.New("no signing key available for wallet")

// ErrReverted is returned when a mined transaction failed on-chain.
var ErrReverted = errors.New("transaction reverted on-chain")

// TxBackend is what the writer needs from an RPC client.
type TxBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// PoolWriter submits pool writes and waits for their confirmation.
type PoolWriter interface {
	JoinPool(ctx context.Context, from string, fee *big.Int) (common.Hash, error)
	PlaceBet(ctx context.Context, from, participant string, betType models.BetType, amount *big.Int) (common.Hash, error)
	Await(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	CanSign(from string) bool
}

// Writer signs with keys held by the backend, chosen by sender address.
type Writer struct {
	backend     TxBackend
	contract    common.Address
	poolID      *big.Int
	chainID     *big.Int
	receiptPoll time.Duration
	log         zerolog.Logger

	keys map[string]*ecdsa.PrivateKey

	// serialises nonce allocation per sender
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewWriter parses hex private keys (0x prefix optional).
func NewWriter(backend TxBackend, contractAddr common.Address, poolID int64, chainID *big.Int, hexKeys []string, receiptPoll time.Duration) (*Writer, error) {
	w := &Writer{
		backend:     backend,
		contract:    contractAddr,
		poolID:      big.NewInt(poolID),
		chainID:     chainID,
		receiptPoll: receiptPoll,
		log:         logger.Component("pool-writer"),
		keys:        make(map[string]*ecdsa.PrivateKey),
		locks:       make(map[string]*sync.Mutex),
	}
	if w.receiptPoll <= 0 {
		w.receiptPoll = 3 * time.Second
	}

	for i, raw := range hexKeys {
		raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
		if raw == "" {
			continue
		}
		key, err := crypto.HexToECDSA(raw)
		if err != nil {
			return nil, fmt.Errorf("signer key %d: %w", i, err)
		}
		addr := strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
		w.keys[addr] = key
		w.log.Info().Str("wallet", addr).Msg("Registered signer")
	}
	return w, nil
}

func (w *Writer) CanSign(from string) bool {
	_, ok := w.keys[strings.ToLower(from)]
	return ok
}

func (w *Writer) JoinPool(ctx context.Context, from string, fee *big.Int) (common.Hash, error) {
	data, err := contract.PackJoinPool(w.poolID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack joinPool: %w", err)
	}
	return w.send(ctx, from, data, fee)
}

func (w *Writer) PlaceBet(ctx context.Context, from, participant string, betType models.BetType, amount *big.Int) (common.Hash, error) {
	if !common.IsHexAddress(participant) {
		return common.Hash{}, fmt.Errorf("invalid participant address %q", participant)
	}
	data, err := contract.PackPlaceBet(w.poolID, common.HexToAddress(participant), uint8(betType))
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack placeBet: %w", err)
	}
	return w.send(ctx, from, data, amount)
}

func (w *Writer) senderLock(addr string) *sync.Mutex {
	w.locksMu.Lock()
	defer w.locksMu.Unlock()
	l, ok := w.locks[addr]
	if !ok {
		l = &sync.Mutex{}
		w.locks[addr] = l
	}
	return l
}

func (w *Writer) send(ctx context.Context, from string, data []byte, value *big.Int) (common.Hash, error) {
	key, ok := w.keys[strings.ToLower(from)]
	if !ok {
		return common.Hash{}, ErrNoSigner
	}
	sender := crypto.PubkeyToAddress(key.PublicKey)

	lock := w.senderLock(strings.ToLower(from))
	lock.Lock()
	defer lock.Unlock()

	nonce, err := w.backend.PendingNonceAt(ctx, sender)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get nonce: %w", err)
	}

	gasPrice, err := w.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get gas price: %w", err)
	}

	// a failing estimate is the contract refusing the call; surface it as-is
	gas, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:     sender,
		To:       &w.contract,
		GasPrice: gasPrice,
		Value:    value,
		Data:     data,
	})
	if err != nil {
		return common.Hash{}, err
	}
	gas = gas * 12 / 10

	tx := types.NewTransaction(nonce, w.contract, value, gas, gasPrice, data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(w.chainID), key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}

	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}

	w.log.Info().
		Str("wallet", sender.Hex()).
		Str("tx", signed.Hash().Hex()).
		Uint64("nonce", nonce).
		Str("value", models.ToNative(value).String()).
		Msg("Transaction sent")

	return signed.Hash(), nil
}

// Await polls for the receipt until it is mined or ctx ends.
func (w *Writer) Await(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(w.receiptPoll)
	defer ticker.Stop()

	for {
		receipt, err := w.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, ErrReverted
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			w.log.Debug().Err(err).Str("tx", hash.Hex()).Msg("Receipt lookup failed, retrying")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
