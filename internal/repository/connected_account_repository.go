package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/pulseboard/publisher/internal/models"
)

// ConnectedAccountRepository is read-only from the pipeline's point of
// view; rows are created and refreshed by the OAuth linking flow.
type ConnectedAccountRepository interface {
	GetByID(ctx context.Context, id int64) (*models.ConnectedAccount, error)
	ListInfoByUserID(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error)
	CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error)
}

type connectedAccountRepository struct {
	db *sql.DB
}

func NewConnectedAccountRepository(db *sql.DB) ConnectedAccountRepository {
	return &connectedAccountRepository{db: db}
}

func (r *connectedAccountRepository) GetByID(ctx context.Context, id int64) (*models.ConnectedAccount, error) {
	query := `SELECT id, user_id, platform, platform_user_id, account_name, account_username,
		profile_picture_url, access_token, token_expires_at, created_at, updated_at
		FROM connected_accounts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var ca models.ConnectedAccount
	err := row.Scan(&ca.ID, &ca.UserID, &ca.Platform, &ca.PlatformUserID, &ca.AccountName,
		&ca.AccountUsername, &ca.ProfilePicture, &ca.AccessToken, &ca.TokenExpiresAt,
		&ca.CreatedAt, &ca.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &ca, nil
}

func (r *connectedAccountRepository) ListInfoByUserID(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error) {
	query := `SELECT id, account_name, profile_picture_url, platform FROM connected_accounts WHERE user_id = $1`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.ConnectedAccount
	for rows.Next() {
		var ca models.ConnectedAccount
		err := rows.Scan(&ca.ID, &ca.AccountName, &ca.ProfilePicture, &ca.Platform)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, &ca)
	}
	return accounts, rows.Err()
}

func (r *connectedAccountRepository) CheckByUserID(ctx context.Context, accountID, userID int64) (bool, error) {
	query := `SELECT 1 FROM connected_accounts WHERE id = $1 AND user_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, accountID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}
