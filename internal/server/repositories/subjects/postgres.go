package subjects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *PostgresRepository) Get(ctx context.Context, tenantID, id string) (*models.Subject, error) {
	query :=
		`SELECT id, tenant_id, first_name, last_name, fiscal_code, birth_date, birth_place,
		 address, city, phone, email, notes,
		 privacy_accepted, privacy_accepted_at, consent_accepted, consent_accepted_at,
		 created_at, updated_at
		 FROM subjects
		 WHERE tenant_id = $1 AND id = $2
		 `

	s := &models.Subject{}
	var birth, privacyAt, consentAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, tenantID, id).Scan(
		&s.ID, &s.TenantID, &s.FirstName, &s.LastName, &s.FiscalCode, &birth, &s.BirthPlace,
		&s.Address, &s.City, &s.Phone, &s.Email, &s.Notes,
		&s.PrivacyAccepted, &privacyAt, &s.ConsentAccepted, &consentAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	s.BirthDate = dbx.TimeOf(birth)
	s.PrivacyAcceptedAt = dbx.TimeOf(privacyAt)
	s.ConsentAcceptedAt = dbx.TimeOf(consentAt)
	return s, nil
}

// Save inserts or updates the identifying fields of s. Acceptance flags are
// only written by SetAcceptance. A subject id owned by another tenant is
// reported as not found.
func (r *PostgresRepository) Save(ctx context.Context, s *models.Subject) error {
	query :=
		`INSERT INTO subjects (id, tenant_id, first_name, last_name, fiscal_code, birth_date, birth_place,
		 address, city, phone, email, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		 ON CONFLICT (id) DO UPDATE SET
		 first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
		 fiscal_code = EXCLUDED.fiscal_code, birth_date = EXCLUDED.birth_date,
		 birth_place = EXCLUDED.birth_place, address = EXCLUDED.address, city = EXCLUDED.city,
		 phone = EXCLUDED.phone, email = EXCLUDED.email, notes = EXCLUDED.notes,
		 updated_at = EXCLUDED.updated_at
		 WHERE subjects.tenant_id = EXCLUDED.tenant_id
		 `

	now := s.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, query,
		s.ID, s.TenantID, s.FirstName, s.LastName, s.FiscalCode, dbx.NullTime(s.BirthDate), s.BirthPlace,
		s.Address, s.City, s.Phone, s.Email, s.Notes, now)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// SetAcceptance flips the fast-path flag of kind on the subject row.
func (r *PostgresRepository) SetAcceptance(ctx context.Context, tenantID, id string, kind models.DocumentKind, at time.Time) error {
	var query string
	switch kind {
	case models.KindPrivacy:
		query =
			`UPDATE subjects SET privacy_accepted = TRUE, privacy_accepted_at = $3, updated_at = now()
			 WHERE tenant_id = $1 AND id = $2
			 `
	case models.KindInformedConsent:
		query =
			`UPDATE subjects SET consent_accepted = TRUE, consent_accepted_at = $3, updated_at = now()
			 WHERE tenant_id = $1 AND id = $2
			 `
	default:
		return fmt.Errorf("%w: %q", common.ErrUnknownDocumentKind, kind)
	}

	res, err := r.db.ExecContext(ctx, query, tenantID, id, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
