// Package registry is the persistence collaborator of the consent core:
// tenants, subjects and consent records with their history.
package registry

import (
	"context"

	"github.com/dmitrijs2005/studiosign/internal/server/models"
)

// Registry is a keyed store. Every read is scoped by tenant; a subject or
// record of another tenant is reported as common.ErrorNotFound.
type Registry interface {
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
	SaveTenant(ctx context.Context, t *models.Tenant) error

	GetSubject(ctx context.Context, tenantID, subjectID string) (*models.Subject, error)
	SaveSubject(ctx context.Context, s *models.Subject) error

	// GetConsent returns the current record of the pair or common.ErrorNotFound.
	GetConsent(ctx context.Context, tenantID, subjectID string, kind models.DocumentKind) (*models.ConsentRecord, error)
	// SaveConsent replaces the current record, appends it to the history and
	// flips the subject acceptance flag, atomically.
	SaveConsent(ctx context.Context, r *models.ConsentRecord) error

	ListSummaries(ctx context.Context, tenantID, subjectID string) ([]models.ConsentSummary, error)
	History(ctx context.Context, tenantID, subjectID string, kind models.DocumentKind) ([]models.ConsentSummary, error)
}
