package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"monad-deathmatch-backend/internal/common/errors"
	"monad-deathmatch-backend/internal/common/logger"
	"monad-deathmatch-backend/internal/features/walletproof/models"
	"monad-deathmatch-backend/internal/features/walletproof/repository"
)

type Service struct {
	repo     repository.Repository
	domain   string
	chainID  int64
	ttl      time.Duration
	proofTTL time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewService. ttl bounds how long a payload may be signed; proofTTL how long a
// verified wallet stays trusted for the device.
func NewService(repo repository.Repository, domain string, chainID int64, ttl, proofTTL time.Duration) *Service {
	return &Service{
		repo:     repo,
		domain:   domain,
		chainID:  chainID,
		ttl:      ttl,
		proofTTL: proofTTL,
		now:      time.Now,
		log:      logger.Component("wallet-proof"),
	}
}

// Message is the exact text the wallet signs with personal_sign.
func (s *Service) Message(payload string) string {
	return fmt.Sprintf("%s wants you to prove ownership of your wallet.\n\nChain ID: %d\nNonce: %s", s.domain, s.chainID, payload)
}

func (s *Service) GeneratePayload(ctx context.Context, deviceID string) (*models.PayloadResponse, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to generate payload")
	}

	now := s.now()
	challenge := &models.Challenge{
		DeviceID: deviceID,
		Payload:  hex.EncodeToString(buf),
		IssuedAt: now,
	}
	if err := s.repo.SaveChallenge(ctx, challenge, s.ttl); err != nil {
		return nil, errors.NewCacheError("save wallet proof payload", err)
	}

	return &models.PayloadResponse{
		Payload:   challenge.Payload,
		Message:   s.Message(challenge.Payload),
		ExpiresAt: now.Add(s.ttl),
	}, nil
}

func (s *Service) VerifyProof(ctx context.Context, deviceID string, req *models.VerifyRequest) error {
	challenge, err := s.repo.ConsumeChallenge(ctx, req.Payload)
	if err != nil {
		return errors.NewCacheError("consume wallet proof payload", err)
	}
	if challenge == nil {
		return errors.New(errors.ErrCodeProofInvalid, "payload is unknown, expired or already used")
	}
	if challenge.DeviceID != deviceID {
		return errors.New(errors.ErrCodeProofInvalid, "payload was issued to another device")
	}
	if s.now().After(challenge.IssuedAt.Add(s.ttl)) {
		return errors.New(errors.ErrCodeProofInvalid, "proof expired")
	}

	if err := s.verifySignature(req.Address, s.Message(req.Payload), req.Signature); err != nil {
		return errors.Wrap(err, errors.ErrCodeProofInvalid, "invalid signature").WithWallet(req.Address)
	}

	now := s.now()
	record := &models.ProofRecord{
		DeviceID:   deviceID,
		Address:    strings.ToLower(req.Address),
		VerifiedAt: now,
		ExpiresAt:  now.Add(s.proofTTL),
	}
	if err := s.repo.SaveProof(ctx, record, s.proofTTL); err != nil {
		return errors.NewCacheError("save wallet proof", err)
	}

	s.log.Info().Str("wallet", record.Address).Str("device_id", deviceID).Msg("Wallet ownership verified")
	return nil
}

// IsVerified reports whether deviceID proved ownership of wallet.
func (s *Service) IsVerified(ctx context.Context, deviceID, wallet string) (bool, error) {
	record, err := s.repo.GetProof(ctx, deviceID, wallet)
	if err != nil {
		return false, err
	}
	return record != nil, nil
}

func (s *Service) verifySignature(address, message, signature string) error {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("signature must be %d bytes", crypto.SignatureLength)
	}

	// wallets return v as 27/28
	sig = append([]byte(nil), sig...)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return fmt.Errorf("failed to recover public key: %w", err)
	}

	if crypto.PubkeyToAddress(*pub) != common.HexToAddress(address) {
		return fmt.Errorf("signature verification failed")
	}
	return nil
}
