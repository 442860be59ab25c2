package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/willjrcristo/quote-billing/internal/domain"
)

// ErrNotFound é devolvido quando uma atualização não encontra a linha.
var ErrNotFound = errors.New("registro não encontrado")

// CompanyRepository define as operações de persistência de empresas e orçamentos.
// O serviço depende da interface, o que permite trocar o banco e usar fakes nos testes.
type CompanyRepository interface {
	Create(ctx context.Context, company domain.Company) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Company, error)
	Update(ctx context.Context, id int64, update domain.CompanyUpdate) error
	CountQuotesSince(ctx context.Context, companyID int64, since time.Time) (int, error)
	CreateQuote(ctx context.Context, companyID int64, title string, createdAt time.Time) (int64, error)
}

// sqliteRepository é a implementação do CompanyRepository para SQLite.
// Datas são gravadas como segundos Unix para que as comparações no banco não dependam de fuso.
type sqliteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(db *sql.DB) CompanyRepository {
	return &sqliteRepository{
		db:  db,
		now: time.Now,
	}
}

const companyColumns = "id, name, email, stripe_customer_id, subscription_tier, created_at, updated_at"

func (r *sqliteRepository) Create(ctx context.Context, company domain.Company) (int64, error) {
	tier := company.SubscriptionTier
	if tier == "" {
		tier = domain.TierFree
	}
	now := r.now().Unix()

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO companies(name, email, stripe_customer_id, subscription_tier, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?)",
		company.Name, company.Email, nullString(company.StripeCustomerID), string(tier), now, now,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *sqliteRepository) GetByID(ctx context.Context, id int64) (*domain.Company, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+companyColumns+" FROM companies WHERE id = ?", id)

	c, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *sqliteRepository) Update(ctx context.Context, id int64, update domain.CompanyUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	if update.StripeCustomerID != nil {
		sets = append(sets, "stripe_customer_id = ?")
		args = append(args, nullString(*update.StripeCustomerID))
	}
	if update.SubscriptionTier != nil {
		sets = append(sets, "subscription_tier = ?")
		args = append(args, string(*update.SubscriptionTier))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, r.now().Unix(), id)

	res, err := r.db.ExecContext(ctx, "UPDATE companies SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteRepository) CountQuotesSince(ctx context.Context, companyID int64, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM quotes WHERE company_id = ? AND created_at >= ?",
		companyID, since.Unix(),
	).Scan(&count)
	return count, err
}

func (r *sqliteRepository) CreateQuote(ctx context.Context, companyID int64, title string, createdAt time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO quotes(company_id, title, created_at) VALUES(?, ?, ?)",
		companyID, title, createdAt.Unix(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanCompany(row *sql.Row) (*domain.Company, error) {
	var (
		c                    domain.Company
		customerID           sql.NullString
		tier                 string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &customerID, &tier, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	parsed, err := domain.ParseTier(tier)
	if err != nil {
		return nil, err
	}
	c.StripeCustomerID = customerID.String
	c.SubscriptionTier = parsed
	c.CreatedAt = time.Unix(createdAt, 0)
	c.UpdatedAt = time.Unix(updatedAt, 0)
	return &c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
