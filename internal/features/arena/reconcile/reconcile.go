// Package reconcile folds chain reads, linked profiles and bet labels into the
// arena view model. Everything here is pure: no I/O, no clocks, no shared
// state.
package reconcile

import (
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	poolmodels "monad-deathmatch-backend/internal/features/pool/models"
	profilemodels "monad-deathmatch-backend/internal/features/profile/models"
)

// AnonymousName is shown for participants without a linked profile.
const AnonymousName = "Anonymous"

// NoLabel is shown for bets whose category was never recorded.
const NoLabel = "-"

type Rules struct {
	EntryFee decimal.Decimal
	MinBet   decimal.Decimal
	MaxBet   decimal.Decimal
	Symbol   string
}

// Input is everything a reconciliation pass looks at. Profiles and BetLabels
// are keyed by lower-cased address.
type Input struct {
	Pool            poolmodels.Reading[poolmodels.PoolInfo]
	Participants    poolmodels.Reading[[]string]
	MaxParticipants poolmodels.Reading[int64]
	TotalPoolBets   poolmodels.Reading[string]
	Profiles        map[string]profilemodels.Profile
	BetLabels       map[string]string
	LocalBets       poolmodels.Reading[[]poolmodels.Bet]
	Balance         poolmodels.Reading[*big.Int]
	Wallet          string
	Rules           Rules
}

type ProfileRef struct {
	SocialUsername  string `json:"socialUsername"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

type EnrichedParticipant struct {
	Address      string      `json:"address"`
	DisplayName  string      `json:"displayName"`
	ShortAddress string      `json:"shortAddress"`
	Profile      *ProfileRef `json:"profile"`
	IsEliminated bool        `json:"isEliminated"`
	IsUser       bool        `json:"isUser"`
	// Label is the caller's recorded bet category on this participant.
	Label *string `json:"betLabel"`
}

type EnrichedBet struct {
	Participant  string      `json:"participant"`
	ShortAddress string      `json:"shortAddress"`
	Amount       string      `json:"amount"`
	IsActive     bool        `json:"isActive"`
	Timestamp    time.Time   `json:"timestamp"`
	Label        *string     `json:"betLabel"`
	DisplayLabel string      `json:"betTypeName"`
	LabelStale   bool        `json:"labelStale"`
	Profile      *ProfileRef `json:"profile"`
}

// OrphanLabel is a recorded label with no matching bet on chain yet.
type OrphanLabel struct {
	Participant string `json:"participant"`
	Label       string `json:"label"`
}

type Model struct {
	Phase             uint8                 `json:"phase"`
	Active            bool                  `json:"active"`
	TotalParticipants int64                 `json:"totalParticipants"`
	MaxParticipants   int64                 `json:"maxParticipants"`
	PoolFull          bool                  `json:"poolFull"`
	TotalPrize        string                `json:"totalPrize"`
	TotalPoolBets     string                `json:"totalPoolBets"`
	EntryFee          string                `json:"entryFee"`
	MinBet            string                `json:"minBet"`
	MaxBet            string                `json:"maxBet"`
	Symbol            string                `json:"symbol"`
	Participants      []EnrichedParticipant `json:"participants"`
	UserBets          []EnrichedBet         `json:"userBets"`
	OrphanLabels      []OrphanLabel         `json:"orphanLabels"`
	Wallet            string                `json:"wallet,omitempty"`
	Balance           *string               `json:"balance"`
	IsUserParticipant bool                  `json:"isUserParticipant"`
	CanJoin           bool                  `json:"canJoin"`
	// Stale is set when any displayed value is a last-known-good fallback.
	Stale bool `json:"stale"`
	// Loading is set while a required read has never succeeded.
	Loading bool `json:"loading"`
}

// Reconcile builds the view model. Identical inputs give identical output;
// participant rows follow the chain order.
func Reconcile(in Input) Model {
	wallet := strings.ToLower(in.Wallet)
	participants := in.Participants.Value

	m := Model{
		Phase:             in.Pool.Value.Phase,
		Active:            in.Pool.Value.Active,
		TotalParticipants: participantCount(in.Pool, in.Participants),
		MaxParticipants:   in.MaxParticipants.Value,
		TotalPoolBets:     orZero(in.TotalPoolBets.Value),
		EntryFee:          in.Rules.EntryFee.String(),
		MinBet:            in.Rules.MinBet.String(),
		MaxBet:            in.Rules.MaxBet.String(),
		Symbol:            in.Rules.Symbol,
		Wallet:            wallet,
		Participants:      make([]EnrichedParticipant, 0, len(participants)),
		UserBets:          []EnrichedBet{},
		OrphanLabels:      []OrphanLabel{},
		Stale:             in.Pool.Stale || in.Participants.Stale || in.MaxParticipants.Stale || in.TotalPoolBets.Stale || in.LocalBets.Stale,
		Loading:           !in.Pool.Present || !in.Participants.Present,
	}
	m.TotalPrize = TotalPrize(in.Pool.Value, m.TotalParticipants, in.Rules.EntryFee).String()

	for _, addr := range participants {
		key := strings.ToLower(addr)
		row := EnrichedParticipant{
			Address:      addr,
			ShortAddress: ShortenAddress(addr),
			DisplayName:  AnonymousName,
			IsUser:       wallet != "" && key == wallet,
			Profile:      profileRef(in.Profiles, key),
			Label:        lookupLabel(in.BetLabels, key),
		}
		if row.Profile != nil && row.Profile.SocialUsername != "" {
			row.DisplayName = row.Profile.SocialUsername
		}
		m.Participants = append(m.Participants, row)
	}

	m.IsUserParticipant = IsUserParticipant(participants, wallet)
	m.PoolFull = in.MaxParticipants.Present && m.MaxParticipants > 0 && int64(len(participants)) >= m.MaxParticipants

	if in.Balance.Present && in.Balance.Value != nil {
		b := poolmodels.ToNative(in.Balance.Value).String()
		m.Balance = &b
	}
	m.CanJoin = CanJoin(in, m.IsUserParticipant, m.PoolFull)

	betOn := make(map[string]struct{}, len(in.LocalBets.Value))
	for _, bet := range in.LocalBets.Value {
		key := strings.ToLower(bet.Participant)
		betOn[key] = struct{}{}

		eb := EnrichedBet{
			Participant:  bet.Participant,
			ShortAddress: ShortenAddress(bet.Participant),
			Amount:       poolmodels.ToNative(bet.Amount).String(),
			IsActive:     bet.IsActive,
			Timestamp:    bet.Timestamp,
			Label:        lookupLabel(in.BetLabels, key),
			DisplayLabel: NoLabel,
			Profile:      profileRef(in.Profiles, key),
		}
		if eb.Label != nil {
			eb.DisplayLabel = *eb.Label
			eb.LabelStale = !bet.IsActive
		}
		m.UserBets = append(m.UserBets, eb)
	}

	// only trust the orphan list when the bet history itself is fresh
	if in.LocalBets.Verified() {
		for key, label := range in.BetLabels {
			if _, ok := betOn[key]; !ok {
				m.OrphanLabels = append(m.OrphanLabels, OrphanLabel{Participant: key, Label: label})
			}
		}
		sort.Slice(m.OrphanLabels, func(i, j int) bool {
			return m.OrphanLabels[i].Participant < m.OrphanLabels[j].Participant
		})
	}

	return m
}

// TotalPrize is the sum of the contract rewards once any is set, otherwise
// participants times the entry fee.
func TotalPrize(pool poolmodels.PoolInfo, participants int64, entryFee decimal.Decimal) decimal.Decimal {
	rewards := pool.RewardsSum()
	if rewards.Sign() > 0 {
		return poolmodels.ToNative(rewards)
	}
	return entryFee.Mul(decimal.NewFromInt(participants))
}

// IsUserParticipant is a case-insensitive membership test.
func IsUserParticipant(participants []string, wallet string) bool {
	if wallet == "" {
		return false
	}
	for _, p := range participants {
		if strings.EqualFold(p, wallet) {
			return true
		}
	}
	return false
}

// CanJoin mirrors the join preconditions on the data the view has. A missing
// balance read does not block the button; the action re-checks it.
func CanJoin(in Input, isParticipant, full bool) bool {
	if in.Wallet == "" || isParticipant || full || !in.Participants.Present {
		return false
	}
	if in.Balance.Present && in.Balance.Value != nil {
		return !poolmodels.ToNative(in.Balance.Value).LessThan(in.Rules.EntryFee)
	}
	return true
}

// ShortenAddress renders 0x1234...abcd.
func ShortenAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func participantCount(pool poolmodels.Reading[poolmodels.PoolInfo], list poolmodels.Reading[[]string]) int64 {
	if pool.Present && pool.Value.TotalParticipants != nil {
		return pool.Value.Participants()
	}
	return int64(len(list.Value))
}

func profileRef(profiles map[string]profilemodels.Profile, key string) *ProfileRef {
	p, ok := profiles[key]
	if !ok {
		return nil
	}
	return &ProfileRef{SocialUsername: p.SocialUsername, ProfileImageURL: p.ProfileImageURL}
}

func lookupLabel(labels map[string]string, key string) *string {
	l, ok := labels[key]
	if !ok {
		return nil
	}
	return &l
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
