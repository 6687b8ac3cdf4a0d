package library

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// IsProcessed reports whether the user already has a successful ingest of
// the URL. Failed attempts do not count; those URLs may be retried.
func (r *PostgresRepo) IsProcessed(ctx context.Context, userID, url string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM processed_urls WHERE user_id = $1 AND url = $2 AND status = 'success')`
	err := r.db.QueryRowContext(ctx, query, userID, url).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresRepo) Mark(ctx context.Context, rec ProcessedURL) error {
	query := `INSERT INTO processed_urls (user_id, url, num_chunks, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, url)
		DO UPDATE SET num_chunks = EXCLUDED.num_chunks, status = EXCLUDED.status, processed_at = NOW()`
	_, err := r.db.ExecContext(ctx, query, rec.UserID, rec.URL, rec.NumChunks, rec.Status)
	return err
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string, limit int) ([]ProcessedURL, error) {
	query := `SELECT id, user_id, url, num_chunks, status, processed_at
		FROM processed_urls WHERE user_id = $1
		ORDER BY processed_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []ProcessedURL
	for rows.Next() {
		var u ProcessedURL
		if err := rows.Scan(&u.ID, &u.UserID, &u.URL, &u.NumChunks, &u.Status, &u.ProcessedAt); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func (r *PostgresRepo) DeleteByUser(ctx context.Context, userID string) error {
	query := `DELETE FROM processed_urls WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
