package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"monad-deathmatch-backend/internal/common/cache"
	"monad-deathmatch-backend/internal/common/errors"
	"monad-deathmatch-backend/internal/common/logger"
	"monad-deathmatch-backend/internal/features/profile/models"
	"monad-deathmatch-backend/internal/features/profile/repository"
	sessionmodels "monad-deathmatch-backend/internal/features/session/models"
)

type Service struct {
	repo     repository.Repository
	cache    *cache.CacheService
	cacheTTL time.Duration
	poolID   int64
	log      zerolog.Logger
}

func NewService(repo repository.Repository, cacheService *cache.CacheService, cacheTTL time.Duration, poolID int64) *Service {
	return &Service{
		repo:     repo,
		cache:    cacheService,
		cacheTTL: cacheTTL,
		poolID:   poolID,
		log:      logger.Component("profile"),
	}
}

// ConnectTwitter updates the wallet's row when it exists, otherwise inserts it.
// Empty request fields fall back to the caller's verified social identity.
func (s *Service) ConnectTwitter(ctx context.Context, req models.ConnectTwitterRequest, social *sessionmodels.SocialIdentity) (*models.User, error) {
	wallet := strings.ToLower(req.WalletAddress)

	twitterID, username, image := req.TwitterID, strings.TrimPrefix(req.TwitterUsername, "@"), req.ProfileImageURL
	if social != nil && social.Provider == "twitter" {
		if twitterID == "" {
			twitterID = social.ID
		}
		if username == "" {
			username = social.Username
		}
		if image == "" {
			image = social.ProfileImageURL
		}
	}

	user, err := s.repo.GetByWallet(ctx, wallet)
	switch {
	case err == nil:
		// omitted fields keep the stored link
		user.TwitterID = overwrite(user.TwitterID, twitterID)
		user.TwitterUsername = overwrite(user.TwitterUsername, username)
		user.ProfileImageURL = overwrite(user.ProfileImageURL, image)
		if err := s.repo.UpdateSocial(ctx, user); err != nil {
			return nil, errors.NewDatabaseError("update user", err)
		}
	case stderrors.Is(err, repository.ErrUserNotFound):
		user = &models.User{
			WalletAddress:   wallet,
			TwitterID:       optional(twitterID),
			TwitterUsername: optional(username),
			ProfileImageURL: optional(image),
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, errors.NewDatabaseError("create user", err)
		}
	default:
		return nil, errors.NewDatabaseError("get user", err)
	}

	s.invalidate(ctx)
	s.log.Info().Str("wallet", wallet).Str("twitter_username", username).Msg("Twitter linked")
	return user, nil
}

// LinkSocial upserts the profile for an authorized session.
func (s *Service) LinkSocial(ctx context.Context, wallet string, identity sessionmodels.SocialIdentity) error {
	wallet = strings.ToLower(wallet)

	user, err := s.repo.GetByWallet(ctx, wallet)
	if err != nil && !stderrors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("lookup wallet: %w", err)
	}

	exists := err == nil
	if !exists {
		user = &models.User{WalletAddress: wallet}
	}

	if identity.Provider == "twitter" {
		user.TwitterID = optional(identity.ID)
		user.TwitterUsername = optional(identity.Username)
	} else {
		user.Username = optional(identity.Username)
	}
	if identity.ProfileImageURL != "" {
		user.ProfileImageURL = optional(identity.ProfileImageURL)
	}

	if exists {
		err = s.repo.UpdateSocial(ctx, user)
	} else {
		err = s.repo.Create(ctx, user)
	}
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

// ListUsers returns every user, newest first.
func (s *Service) ListUsers(ctx context.Context) ([]models.UserListItem, error) {
	var items []models.UserListItem
	err := s.cache.GetOrSet(ctx, cache.KeyProfiles, &items, s.cacheTTL, func() (interface{}, error) {
		users, err := s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]models.UserListItem, 0, len(users))
		for _, u := range users {
			out = append(out, models.UserListItem{
				ID:              u.ID,
				WalletAddress:   u.WalletAddress,
				TwitterUsername: u.TwitterUsername,
				Username:        u.Username,
				ProfileImageURL: u.ProfileImageURL,
			})
		}
		return out, nil
	})
	if err != nil {
		return nil, errors.NewDatabaseError("list users", err)
	}
	if items == nil {
		items = []models.UserListItem{}
	}
	return items, nil
}

func (s *Service) ParticipantStats(ctx context.Context) ([]models.ParticipantStat, error) {
	var stats []models.ParticipantStat
	key := fmt.Sprintf(cache.KeyParticipantStats, s.poolID)
	err := s.cache.GetOrSet(ctx, key, &stats, s.cacheTTL, func() (interface{}, error) {
		return s.repo.ParticipantStats(ctx, s.poolID)
	})
	if err != nil {
		return nil, errors.NewDatabaseError("participant stats", err)
	}
	if stats == nil {
		stats = []models.ParticipantStat{}
	}
	return stats, nil
}

// ProfilesByWallet indexes the known profiles by lower-cased wallet.
func (s *Service) ProfilesByWallet(ctx context.Context) (map[string]models.Profile, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.Profile, len(users))
	for _, item := range users {
		u := models.User{
			WalletAddress:   item.WalletAddress,
			TwitterUsername: item.TwitterUsername,
			Username:        item.Username,
			ProfileImageURL: item.ProfileImageURL,
		}
		out[strings.ToLower(item.WalletAddress)] = u.ToProfile()
	}
	return out, nil
}

// RecordParticipants mirrors chain joins into the participants table.
func (s *Service) RecordParticipants(ctx context.Context, wallets []string) error {
	n, err := s.repo.AddParticipants(ctx, s.poolID, wallets)
	if err != nil {
		return errors.NewDatabaseError("record participants", err)
	}
	if n > 0 {
		s.invalidate(ctx)
		s.log.Info().Int64("inserted", n).Int64("pool_id", s.poolID).Msg("Participants mirrored")
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateProfiles(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate profile cache")
	}
}

func overwrite(current *string, v string) *string {
	if v == "" {
		return current
	}
	return &v
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
