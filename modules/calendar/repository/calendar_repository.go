package repository

import (
	"context"

	"scheduling-engine/core/database"
	"scheduling-engine/modules/calendar/entity"

	"github.com/google/uuid"
)

type CalendarRepository interface {
	// UpsertConnection creates or reactivates the host's connection for the
	// provider.
	UpsertConnection(ctx context.Context, conn *entity.CalendarConnection) error
	GetActiveConnection(ctx context.Context, userID uuid.UUID, provider string) (*entity.CalendarConnection, error)
	ListConnections(ctx context.Context, userID uuid.UUID) ([]entity.CalendarConnection, error)
	UpdateTokens(ctx context.Context, conn *entity.CalendarConnection) error
	Deactivate(ctx context.Context, userID uuid.UUID, provider string) error
}

const connectionColumns = `id, user_id, provider, access_token, refresh_token, token_expires_at,
	calendar_email, is_active, created_at, updated_at`

type calendarRepository struct {
	db database.IDatabase
}

func NewCalendarRepository(db database.IDatabase) CalendarRepository {
	return &calendarRepository{db: db}
}

func (r *calendarRepository) UpsertConnection(ctx context.Context, conn *entity.CalendarConnection) error {
	query := `
		INSERT INTO calendar_connections (id, user_id, provider, access_token, refresh_token, token_expires_at, calendar_email, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = CASE WHEN EXCLUDED.refresh_token = '' THEN calendar_connections.refresh_token ELSE EXCLUDED.refresh_token END,
			token_expires_at = EXCLUDED.token_expires_at,
			calendar_email = EXCLUDED.calendar_email,
			is_active = TRUE,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	return database.MapError(r.db.QueryRowContext(ctx, query,
		conn.ID, conn.UserID, conn.Provider, conn.AccessToken, conn.RefreshToken,
		conn.TokenExpiresAt, conn.CalendarEmail,
	).Scan(&conn.ID, &conn.CreatedAt, &conn.UpdatedAt))
}

func (r *calendarRepository) GetActiveConnection(ctx context.Context, userID uuid.UUID, provider string) (*entity.CalendarConnection, error) {
	var conn entity.CalendarConnection
	query := `SELECT ` + connectionColumns + ` FROM calendar_connections
		WHERE user_id = $1 AND provider = $2 AND is_active = TRUE`
	if err := r.db.GetContext(ctx, &conn, query, userID, provider); err != nil {
		return nil, database.MapError(err)
	}
	return &conn, nil
}

func (r *calendarRepository) ListConnections(ctx context.Context, userID uuid.UUID) ([]entity.CalendarConnection, error) {
	var out []entity.CalendarConnection
	query := `SELECT ` + connectionColumns + ` FROM calendar_connections
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &out, query, userID); err != nil {
		return nil, database.MapError(err)
	}
	return out, nil
}

func (r *calendarRepository) UpdateTokens(ctx context.Context, conn *entity.CalendarConnection) error {
	query := `
		UPDATE calendar_connections
		SET access_token = $1, refresh_token = $2, token_expires_at = $3, updated_at = NOW()
		WHERE id = $4
	`
	return database.MapError(r.db.ExecContext(ctx, query,
		conn.AccessToken, conn.RefreshToken, conn.TokenExpiresAt, conn.ID,
	))
}

// Deactivate soft deletes the connection.
func (r *calendarRepository) Deactivate(ctx context.Context, userID uuid.UUID, provider string) error {
	query := `
		UPDATE calendar_connections
		SET is_active = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND provider = $2
	`
	return database.MapError(r.db.ExecContext(ctx, query, userID, provider))
}
