package repository

import "context"

// Store keeps the bet category a bettor chose per participant. Keys are
// case-insensitive and the last write wins.
type Store interface {
	// Put records label for (bettor, participant).
	Put(ctx context.Context, bettor, participant, label string) error

	// Get returns the label for (bettor, participant), ok=false when none.
	Get(ctx context.Context, bettor, participant string) (string, bool, error)

	// All returns every label of bettor keyed by lower-cased participant.
	All(ctx context.Context, bettor string) (map[string]string, error)
}
