package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willjrcristo/quote-billing/internal/domain"
	"github.com/willjrcristo/quote-billing/internal/migrations"
)

// newTestDB abre um SQLite em memória com o schema aplicado.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Cada conexão nova em ":memory:" é um banco diferente.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Up(db))
	return db
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(newTestDB(t))

	t.Run("sucesso - empresa nova começa no plano free", func(t *testing.T) {
		id, err := repo.Create(ctx, domain.Company{Name: "Pinturas Silva", Email: "contato@silva.com"})
		require.NoError(t, err)

		c, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "Pinturas Silva", c.Name)
		assert.Equal(t, domain.TierFree, c.SubscriptionTier)
		assert.False(t, c.HasCustomer())
	})

	t.Run("inexistente - devolve nil sem erro", func(t *testing.T) {
		c, err := repo.GetByID(ctx, 999)
		assert.NoError(t, err)
		assert.Nil(t, c)
	})
}

func TestSQLiteRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(newTestDB(t))

	id, err := repo.Create(ctx, domain.Company{Name: "Acme", Email: "a@acme.com"})
	require.NoError(t, err)

	t.Run("grava cliente e plano", func(t *testing.T) {
		tier := domain.TierBusiness
		customer := "cus_123"
		err := repo.Update(ctx, id, domain.CompanyUpdate{StripeCustomerID: &customer, SubscriptionTier: &tier})
		require.NoError(t, err)

		c, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "cus_123", c.StripeCustomerID)
		assert.Equal(t, domain.TierBusiness, c.SubscriptionTier)
	})

	t.Run("atualização parcial não mexe nos outros campos", func(t *testing.T) {
		require.NoError(t, repo.Update(ctx, id, domain.SetTier(domain.TierFree)))

		c, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "cus_123", c.StripeCustomerID)
		assert.Equal(t, domain.TierFree, c.SubscriptionTier)
	})

	t.Run("atualização vazia é no-op", func(t *testing.T) {
		assert.NoError(t, repo.Update(ctx, 999, domain.CompanyUpdate{}))
	})

	t.Run("empresa inexistente devolve ErrNotFound", func(t *testing.T) {
		err := repo.Update(ctx, 999, domain.SetTier(domain.TierBusiness))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSQLiteRepository_CountQuotesSince(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(newTestDB(t))

	id, err := repo.Create(ctx, domain.Company{Name: "Acme", Email: "a@acme.com"})
	require.NoError(t, err)
	other, err := repo.Create(ctx, domain.Company{Name: "Outra", Email: "o@outra.com"})
	require.NoError(t, err)

	monthStart := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.Local)
	for _, at := range []time.Time{
		monthStart.Add(-time.Hour),
		monthStart,
		monthStart.Add(48 * time.Hour),
	} {
		_, err := repo.CreateQuote(ctx, id, "Fachada", at)
		require.NoError(t, err)
	}
	_, err = repo.CreateQuote(ctx, other, "Sala", monthStart.Add(time.Hour))
	require.NoError(t, err)

	count, err := repo.CountQuotesSince(ctx, id, monthStart)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLiteRepository_GetByIDQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewSQLiteRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + companyColumns + " FROM companies WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnError(errors.New("disk I/O error"))

	c, err := repo.GetByID(context.Background(), 7)
	assert.Error(t, err)
	assert.Nil(t, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteRepository_UpdateExecError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewSQLiteRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE companies SET subscription_tier = ?, updated_at = ? WHERE id = ?")).
		WillReturnError(errors.New("database is locked"))

	err = repo.Update(context.Background(), 1, domain.SetTier(domain.TierFree))
	assert.EqualError(t, err, "database is locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}
