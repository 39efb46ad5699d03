package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"monad-deathmatch-backend/internal/features/profile/models"
	"monad-deathmatch-backend/internal/features/profile/repository"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.Repository {
	return &postgresRepository{db: db}
}

const userColumns = `id, wallet_address, twitter_id, twitter_username, username, profile_image_url, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u                                                  models.User
		twitterID, twitterUsername, username, profileImage sql.NullString
	)
	if err := row.Scan(&u.ID, &u.WalletAddress, &twitterID, &twitterUsername, &username, &profileImage, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.TwitterID = nullable(twitterID)
	u.TwitterUsername = nullable(twitterUsername)
	u.Username = nullable(username)
	u.ProfileImageURL = nullable(profileImage)
	return &u, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// GetByWallet получает пользователя по адресу кошелька
func (r *postgresRepository) GetByWallet(ctx context.Context, wallet string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE wallet_address = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(wallet)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Create создает нового пользователя. A concurrent insert for the same wallet
// turns into an update.
func (r *postgresRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (wallet_address, twitter_id, twitter_username, username, profile_image_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (wallet_address) DO UPDATE SET
			twitter_id = EXCLUDED.twitter_id,
			twitter_username = EXCLUDED.twitter_username,
			username = EXCLUDED.username,
			profile_image_url = EXCLUDED.profile_image_url,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		strings.ToLower(user.WalletAddress), user.TwitterID, user.TwitterUsername, user.Username, user.ProfileImageURL,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.WalletAddress = strings.ToLower(user.WalletAddress)
	return nil
}

// UpdateSocial обновляет социальные данные пользователя
func (r *postgresRepository) UpdateSocial(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET twitter_id = $2, twitter_username = $3, username = $4, profile_image_url = $5, updated_at = NOW()
		WHERE wallet_address = $1
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		strings.ToLower(user.WalletAddress), user.TwitterID, user.TwitterUsername, user.Username, user.ProfileImageURL,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return repository.ErrUserNotFound
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// List получает список пользователей, новые первыми
func (r *postgresRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *postgresRepository) ParticipantStats(ctx context.Context, poolID int64) ([]models.ParticipantStat, error) {
	query := `
		SELECT p.wallet_address, u.twitter_username, u.profile_image_url, p.is_eliminated, p.created_at
		FROM participants p
		LEFT JOIN users u ON u.wallet_address = p.wallet_address
		WHERE p.pool_id = $1
		ORDER BY p.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant stats: %w", err)
	}
	defer rows.Close()

	stats := []models.ParticipantStat{}
	for rows.Next() {
		var (
			s                      models.ParticipantStat
			username, profileImage sql.NullString
		)
		if err := rows.Scan(&s.Address, &username, &profileImage, &s.IsEliminated, &s.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		s.TwitterUsername = nullable(username)
		s.ProfileImage = nullable(profileImage)
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *postgresRepository) AddParticipants(ctx context.Context, poolID int64, wallets []string) (inserted int64, err error) {
	if len(wallets) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO participants (wallet_address, pool_id) VALUES ($1, $2) ON CONFLICT (wallet_address, pool_id) DO NOTHING`
	for _, w := range wallets {
		res, execErr := tx.ExecContext(ctx, q, strings.ToLower(w), poolID)
		if execErr != nil {
			err = fmt.Errorf("failed to insert participant %s: %w", w, execErr)
			return 0, err
		}
		n, _ := res.RowsAffected()
		inserted += n
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit participants: %w", err)
	}
	return inserted, nil
}
