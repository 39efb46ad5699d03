package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"monad-deathmatch-backend/internal/common/errors"
	"monad-deathmatch-backend/internal/common/logger"
	"monad-deathmatch-backend/internal/common/validation"
	"monad-deathmatch-backend/internal/features/session/models"
	"monad-deathmatch-backend/internal/features/session/repository"
	"monad-deathmatch-backend/internal/platform/metrics"
)

// ProfileLinker stores the wallet <-> social link.
type ProfileLinker interface {
	LinkSocial(ctx context.Context, wallet string, identity models.SocialIdentity) error
}

// WalletVerifier reports whether a device proved ownership of a wallet.
type WalletVerifier interface {
	IsVerified(ctx context.Context, deviceID, wallet string) (bool, error)
}

// Credentials are the server-verifiable parts of a social identity.
type Credentials struct {
	InitData    string
	SocialToken string
}

type Options struct {
	BotToken         string
	InitDataTTL      time.Duration
	SocialSessionTTL time.Duration
}

type Service struct {
	mounts     *MountRegistry
	identities repository.IdentityCache
	socials    repository.SocialSessionStore
	linker     ProfileLinker
	verifier   WalletVerifier
	opts       Options
	metrics    *metrics.Metrics
	log        zerolog.Logger

	linkedMu sync.Mutex
	linked   map[string]string
}

// NewService wires the gate. verifier may be nil, in which case a reported
// wallet is trusted once it is a well-formed address.
func NewService(
	mounts *MountRegistry,
	identities repository.IdentityCache,
	socials repository.SocialSessionStore,
	linker ProfileLinker,
	verifier WalletVerifier,
	opts Options,
	m *metrics.Metrics,
) *Service {
	s := &Service{
		mounts:     mounts,
		identities: identities,
		socials:    socials,
		linker:     linker,
		verifier:   verifier,
		opts:       opts,
		metrics:    m,
		log:        logger.Component("session"),
		linked:     make(map[string]string),
	}
	mounts.OnRelease(func(id string) {
		s.linkedMu.Lock()
		delete(s.linked, id)
		s.linkedMu.Unlock()
	})
	return s
}

func (s *Service) Mounts() *MountRegistry {
	return s.mounts
}

func (s *Service) OpenMount(deviceID string) models.MountResponse {
	m := s.mounts.Open(deviceID)
	return models.MountResponse{MountID: m.ID, DeviceID: deviceID}
}

func (s *Service) CloseMount(mountID string) {
	s.mounts.Release(mountID)
}

// Evaluate resolves both signals for the mount and runs its gate.
func (s *Service) Evaluate(ctx context.Context, mountID string, req models.EvaluateRequest, creds Credentials) (models.Decision, error) {
	m, err := s.mounts.Get(mountID)
	if err != nil {
		return models.Decision{}, err
	}

	cached, err := s.identities.GetWallet(ctx, m.DeviceID)
	if err != nil {
		// cache is only a bridge; evaluate without it
		s.log.Warn().Err(err).Str("device_id", m.DeviceID).Msg("Identity cache unavailable")
		cached = ""
	}

	wallet := s.resolveWallet(ctx, m.DeviceID, req.Wallet)
	social, user := s.ResolveSocial(ctx, req.Social, creds)

	d := m.Gate.Evaluate(GateInput{
		Wallet:       wallet,
		Social:       social,
		SocialUser:   user,
		CachedWallet: cached,
		CurrentPath:  req.CurrentPath,
	})

	if wallet.IsPresent() && !strings.EqualFold(wallet.Identity, cached) {
		if err := s.identities.SetWallet(ctx, m.DeviceID, wallet.Identity); err != nil {
			s.log.Warn().Err(err).Str("device_id", m.DeviceID).Msg("Failed to cache wallet")
		}
	}

	m.remember(d.Session.Wallet(), d.Authorized)

	if s.metrics != nil {
		s.metrics.GateDecisions.WithLabelValues(string(d.Outcome)).Inc()
	}

	s.log.Debug().
		Str("mount_id", m.ID).
		Str("wallet_signal", string(wallet.State)).
		Str("social_signal", string(social.State)).
		Str("outcome", string(d.Outcome)).
		Str("redirect", d.RedirectTarget).
		Bool("provisional", d.ProvisionalWallet).
		Msg("Gate evaluated")

	if d.Authorized && user != nil {
		s.link(ctx, m.ID, d.Session.Wallet(), *user)
	}

	return d, nil
}

// link runs once per mount and identity pair. Failures never reach the gate.
func (s *Service) link(ctx context.Context, mountID, wallet string, user models.SocialIdentity) {
	key := wallet + "|" + user.Key()

	s.linkedMu.Lock()
	if s.linked[mountID] == key {
		s.linkedMu.Unlock()
		return
	}
	s.linked[mountID] = key
	s.linkedMu.Unlock()

	if err := s.linker.LinkSocial(ctx, wallet, user); err != nil {
		appErr := errors.NewLinkingError(wallet, err)
		s.log.Error().
			Err(appErr.Cause).
			Str("wallet", wallet).
			Str("social", user.Key()).
			Str("error_code", string(appErr.Code)).
			Msg(appErr.Message)
		if s.metrics != nil {
			s.metrics.LinkFailures.Inc()
		}

		// allow a retry on the next evaluation
		s.linkedMu.Lock()
		if s.linked[mountID] == key {
			delete(s.linked, mountID)
		}
		s.linkedMu.Unlock()
	}
}

func (s *Service) resolveWallet(ctx context.Context, deviceID string, reported models.Signal) models.Signal {
	switch reported.State {
	case models.SignalAbsent:
		return models.Absent()
	case models.SignalPresent:
	default:
		return models.Pending()
	}

	if !validation.IsAddress(reported.Identity) {
		s.log.Warn().Str("wallet", reported.Identity).Msg("Reported wallet is not an address")
		return models.Absent()
	}

	if s.verifier == nil {
		return reported
	}

	ok, err := s.verifier.IsVerified(ctx, deviceID, reported.Identity)
	if err != nil {
		s.log.Warn().Err(err).Str("wallet", reported.Identity).Msg("Wallet proof lookup failed")
		return models.Pending()
	}
	if !ok {
		return models.Absent()
	}
	return reported
}

// ResolveSocial turns the reported provider state into a verified signal.
func (s *Service) ResolveSocial(ctx context.Context, reported models.Signal, creds Credentials) (models.Signal, *models.SocialIdentity) {
	switch reported.State {
	case models.SignalPending:
		return models.Pending(), nil
	case models.SignalAbsent:
		return models.Absent(), nil
	}

	user, err := s.SocialIdentity(ctx, creds)
	if err != nil {
		s.log.Warn().Err(err).Msg("Social session lookup failed")
		return models.Pending(), nil
	}
	if user == nil {
		return models.Absent(), nil
	}
	return models.Present(user.Key()), user
}

// SocialIdentity verifies credentials. It returns nil, nil when none are valid.
func (s *Service) SocialIdentity(ctx context.Context, creds Credentials) (*models.SocialIdentity, error) {
	if creds.InitData != "" && s.opts.BotToken != "" {
		if user := s.telegramIdentity(creds.InitData); user != nil {
			return user, nil
		}
	}
	if creds.SocialToken == "" {
		return nil, nil
	}
	return s.socials.Get(ctx, creds.SocialToken)
}

func (s *Service) telegramIdentity(raw string) *models.SocialIdentity {
	if err := initdata.Validate(raw, s.opts.BotToken, s.opts.InitDataTTL); err != nil {
		s.log.Debug().Err(err).Msg("Init data rejected")
		return nil
	}
	parsed, err := initdata.Parse(raw)
	if err != nil {
		s.log.Debug().Err(err).Msg("Init data unparsable")
		return nil
	}
	if parsed.User.ID == 0 {
		return nil
	}
	return &models.SocialIdentity{
		Provider:        "telegram",
		ID:              strconv.FormatInt(parsed.User.ID, 10),
		Username:        parsed.User.Username,
		ProfileImageURL: parsed.User.PhotoURL,
	}
}

// CreateSocialSession is called by the OAuth bridge after a successful sign-in.
func (s *Service) CreateSocialSession(ctx context.Context, req models.SocialSessionRequest) (models.SocialSessionResponse, error) {
	if req.Provider == "twitter" {
		if err := validation.ValidateSocialUsername(req.Username); err != nil {
			return models.SocialSessionResponse{}, errors.NewValidationError("username", err.Error())
		}
	}

	identity := models.SocialIdentity{
		Provider:        req.Provider,
		ID:              req.ID,
		Username:        strings.TrimPrefix(req.Username, "@"),
		ProfileImageURL: req.ProfileImageURL,
	}
	token, err := s.socials.Create(ctx, identity, s.opts.SocialSessionTTL)
	if err != nil {
		return models.SocialSessionResponse{}, errors.NewCacheError("create social session", err)
	}

	s.log.Info().Str("social", identity.Key()).Msg("Social session created")
	return models.SocialSessionResponse{
		Token:     token,
		ExpiresIn: int64(s.opts.SocialSessionTTL / time.Second),
	}, nil
}

// Disconnect forgets both identities of a device.
func (s *Service) Disconnect(ctx context.Context, deviceID, socialToken string) error {
	if deviceID != "" {
		if err := s.identities.ClearWallet(ctx, deviceID); err != nil {
			return errors.NewCacheError("clear wallet", err)
		}
	}
	if socialToken != "" {
		if err := s.socials.Delete(ctx, socialToken); err != nil {
			return errors.NewCacheError("delete social session", err)
		}
	}
	return nil
}
