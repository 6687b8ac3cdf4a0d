package library_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"newsbrief/backend/features/library"
)

func TestPostgresRepo_IsProcessed(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := library.NewPostgresRepo(db)

	t.Run("Processed", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM processed_urls WHERE user_id = $1 AND url = $2 AND status = 'success')")).
			WithArgs("user-1", "https://example.com/a").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		processed, err := repo.IsProcessed(context.Background(), "user-1", "https://example.com/a")
		assert.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("Not Processed", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM processed_urls WHERE user_id = $1 AND url = $2 AND status = 'success')")).
			WithArgs("user-1", "https://example.com/new").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		processed, err := repo.IsProcessed(context.Background(), "user-1", "https://example.com/new")
		assert.NoError(t, err)
		assert.False(t, processed)
	})
}

func TestPostgresRepo_Mark(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := library.NewPostgresRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO processed_urls (user_id, url, num_chunks, status)")).
		WithArgs("user-1", "https://example.com/a", 5, "success").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Mark(context.Background(), library.ProcessedURL{
		UserID:    "user-1",
		URL:       "https://example.com/a",
		NumChunks: 5,
		Status:    "success",
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := library.NewPostgresRepo(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "url", "num_chunks", "status", "processed_at"}).
		AddRow(2, "user-1", "https://example.com/b", 3, "success", "2026-08-30T10:00:00Z").
		AddRow(1, "user-1", "https://example.com/a", 5, "failed", "2026-08-29T09:00:00Z")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, url, num_chunks, status, processed_at")).
		WithArgs("user-1", 100).
		WillReturnRows(rows)

	urls, err := repo.ListByUser(context.Background(), "user-1", 100)
	assert.NoError(t, err)
	if assert.Len(t, urls, 2) {
		assert.Equal(t, "https://example.com/b", urls[0].URL)
		assert.Equal(t, "failed", urls[1].Status)
	}
}

func TestPostgresRepo_DeleteByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := library.NewPostgresRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM processed_urls WHERE user_id = $1")).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	err = repo.DeleteByUser(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
