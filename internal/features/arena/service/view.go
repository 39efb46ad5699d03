package service

import (
	"context"
	"math/big"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"monad-deathmatch-backend/internal/common/logger"
	"monad-deathmatch-backend/internal/features/arena/reconcile"
	betlabel "monad-deathmatch-backend/internal/features/betlabel/repository"
	poolmodels "monad-deathmatch-backend/internal/features/pool/models"
	poolrepo "monad-deathmatch-backend/internal/features/pool/repository"
	poolservice "monad-deathmatch-backend/internal/features/pool/service"
	profilemodels "monad-deathmatch-backend/internal/features/profile/models"
)

type ProfileSource interface {
	ProfilesByWallet(ctx context.Context) (map[string]profilemodels.Profile, error)
}

type SnapshotSource interface {
	Latest() poolservice.Snapshot
	Poll(ctx context.Context) poolservice.Snapshot
}

// Viewer gathers the reconciler inputs. Off-chain lookups that fail degrade
// to anonymous rows and missing labels.
type Viewer struct {
	snapshots SnapshotSource
	reader    poolrepo.PoolReader
	labels    betlabel.Store
	profiles  ProfileSource
	rules     reconcile.Rules
	log       zerolog.Logger
}

func NewViewer(snapshots SnapshotSource, reader poolrepo.PoolReader, labels betlabel.Store, profiles ProfileSource, rules reconcile.Rules) *Viewer {
	return &Viewer{
		snapshots: snapshots,
		reader:    reader,
		labels:    labels,
		profiles:  profiles,
		rules:     rules,
		log:       logger.Component("arena-view"),
	}
}

// Build returns the view for wallet; an empty wallet gives the public view.
func (v *Viewer) Build(ctx context.Context, wallet string) (reconcile.Model, error) {
	snap := v.snapshots.Latest()
	if snap.PolledAt.IsZero() {
		snap = v.snapshots.Poll(ctx)
	}

	var (
		profiles map[string]profilemodels.Profile
		labels   map[string]string
		bets     poolmodels.Reading[[]poolmodels.Bet]
		balance  poolmodels.Reading[*big.Int]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := v.profiles.ProfilesByWallet(gctx)
		if err != nil {
			v.log.Warn().Err(err).Msg("Profiles unavailable, rendering anonymous rows")
			return nil
		}
		profiles = p
		return nil
	})

	if wallet != "" {
		g.Go(func() error {
			l, err := v.labels.All(gctx, wallet)
			if err != nil {
				v.log.Warn().Err(err).Str("wallet", wallet).Msg("Bet labels unavailable")
				return nil
			}
			labels = l
			return nil
		})
		g.Go(func() error {
			bets = v.reader.BettingHistory(gctx, wallet)
			return nil
		})
		g.Go(func() error {
			balance = v.reader.Balance(gctx, wallet)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return reconcile.Model{}, err
	}
	if err := ctx.Err(); err != nil {
		return reconcile.Model{}, err
	}

	return reconcile.Reconcile(reconcile.Input{
		Pool:            snap.PoolInfo,
		Participants:    snap.Participants,
		MaxParticipants: snap.MaxParticipants,
		TotalPoolBets:   snap.TotalPoolBets,
		Profiles:        profiles,
		BetLabels:       labels,
		LocalBets:       bets,
		Balance:         balance,
		Wallet:          wallet,
		Rules:           v.rules,
	}), nil
}

// Labels returns the caller's recorded bet labels.
func (v *Viewer) Labels(ctx context.Context, wallet string) (map[string]string, error) {
	return v.labels.All(ctx, wallet)
}
