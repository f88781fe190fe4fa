package registry

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/studiosign/internal/dbx"
	"github.com/dmitrijs2005/studiosign/internal/server/models"
	"github.com/dmitrijs2005/studiosign/internal/server/repositories/repomanager"
)

// Postgres implements Registry over the repository manager.
type Postgres struct {
	db *sql.DB
	rm repomanager.RepositoryManager
}

func NewPostgres(db *sql.DB, rm repomanager.RepositoryManager) *Postgres {
	return &Postgres{db: db, rm: rm}
}

func (p *Postgres) GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	return p.rm.Tenants(p.db).Get(ctx, tenantID)
}

func (p *Postgres) SaveTenant(ctx context.Context, t *models.Tenant) error {
	return p.rm.Tenants(p.db).Save(ctx, t)
}

func (p *Postgres) GetSubject(ctx context.Context, tenantID, subjectID string) (*models.Subject, error) {
	return p.rm.Subjects(p.db).Get(ctx, tenantID, subjectID)
}

func (p *Postgres) SaveSubject(ctx context.Context, s *models.Subject) error {
	return p.rm.Subjects(p.db).Save(ctx, s)
}

func (p *Postgres) GetConsent(ctx context.Context, tenantID, subjectID string, kind models.DocumentKind) (*models.ConsentRecord, error) {
	return p.rm.Consents(p.db).Get(ctx, tenantID, subjectID, kind)
}

func (p *Postgres) SaveConsent(ctx context.Context, r *models.ConsentRecord) error {
	return dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		consents := p.rm.Consents(tx)
		if err := consents.Upsert(ctx, r); err != nil {
			return err
		}
		if err := consents.AppendEvent(ctx, r); err != nil {
			return err
		}
		if !r.Accepted {
			return nil
		}
		return p.rm.Subjects(tx).SetAcceptance(ctx, r.TenantID, r.SubjectID, r.Kind, r.AcceptedAt)
	})
}

func (p *Postgres) ListSummaries(ctx context.Context, tenantID, subjectID string) ([]models.ConsentSummary, error) {
	return p.rm.Consents(p.db).ListSummaries(ctx, tenantID, subjectID)
}

func (p *Postgres) History(ctx context.Context, tenantID, subjectID string, kind models.DocumentKind) ([]models.ConsentSummary, error) {
	return p.rm.Consents(p.db).History(ctx, tenantID, subjectID, kind)
}
