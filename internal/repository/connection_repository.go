package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
)

const connectionColumns = `id, user_id, account_id, account_name, username, access_token, is_connected, token_expires_at, created_at, updated_at`

type ConnectionRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Connection, bool, error)
	Upsert(ctx context.Context, conn *models.Connection) (int64, error)
	ListExpiring(ctx context.Context, from, to time.Time) ([]*models.Connection, error)
	SetToken(ctx context.Context, userID int64, accessToken string, expiresAt time.Time) error
	Disconnect(ctx context.Context, userID int64) error
}

type connectionRepository struct {
	db *sql.DB
}

func NewConnectionRepository(db *sql.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

func scanConnection(row interface{ Scan(...any) error }) (*models.Connection, error) {
	var conn models.Connection
	err := row.Scan(&conn.ID, &conn.UserID, &conn.AccountID, &conn.AccountName, &conn.Username,
		&conn.AccessToken, &conn.IsConnected, &conn.TokenExpiresAt, &conn.CreatedAt, &conn.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (r *connectionRepository) GetByUserID(ctx context.Context, userID int64) (*models.Connection, bool, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE user_id = $1`
	conn, err := scanConnection(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return conn, true, nil
}

func (r *connectionRepository) Upsert(ctx context.Context, conn *models.Connection) (int64, error) {
	query := `
		INSERT INTO connections (user_id, account_id, account_name, username, access_token, is_connected, token_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET account_id = EXCLUDED.account_id,
			account_name = EXCLUDED.account_name,
			username = EXCLUDED.username,
			access_token = EXCLUDED.access_token,
			is_connected = EXCLUDED.is_connected,
			token_expires_at = EXCLUDED.token_expires_at,
			updated_at = now()
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, conn.UserID, conn.AccountID, conn.AccountName, conn.Username,
		conn.AccessToken, conn.IsConnected, conn.TokenExpiresAt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *connectionRepository) ListExpiring(ctx context.Context, from, to time.Time) ([]*models.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE is_connected = true AND token_expires_at BETWEEN $1 AND $2`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var conns []*models.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

func (r *connectionRepository) SetToken(ctx context.Context, userID int64, accessToken string, expiresAt time.Time) error {
	query := `
		UPDATE connections
		SET access_token = $1,
			token_expires_at = $2,
			updated_at = $3
		WHERE user_id = $4
	`
	_, err := r.db.ExecContext(ctx, query, accessToken, expiresAt, time.Now(), userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *connectionRepository) Disconnect(ctx context.Context, userID int64) error {
	query := `UPDATE connections SET is_connected = false, updated_at = $1 WHERE user_id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), userID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
