package tenants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"github.com/dmitrijs2005/studiosign/internal/dbx"
	"github.com/dmitrijs2005/studiosign/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Tenant, error) {
	query :=
		`SELECT id, name, address, vat_number, email, phone FROM tenants
		 WHERE id = $1
		 `

	t := &models.Tenant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.Address, &t.VATNumber, &t.Email, &t.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return t, nil
}

func (r *PostgresRepository) Save(ctx context.Context, t *models.Tenant) error {
	query :=
		`INSERT INTO tenants (id, name, address, vat_number, email, phone)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, address = EXCLUDED.address,
		 vat_number = EXCLUDED.vat_number, email = EXCLUDED.email, phone = EXCLUDED.phone
		 `

	_, err := r.db.ExecContext(ctx, query, t.ID, t.Name, t.Address, t.VATNumber, t.Email, t.Phone)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
