package consents

import (
	"context"

	"github.com/dmitrijs2005/studiosign/internal/server/models"
)

type Repository interface {
	// Get returns the current record of the pair or common.ErrorNotFound.
	Get(ctx context.Context, tenantID, subjectID string, kind models.DocumentKind) (*models.ConsentRecord, error)
	// Upsert replaces the current record of the pair.
	Upsert(ctx context.Context, r *models.ConsentRecord) error
	// AppendEvent adds r to the history of the pair.
	AppendEvent(ctx context.Context, r *models.ConsentRecord) error
	// ListSummaries returns the current records of a subject without image data.
	ListSummaries(ctx context.Context, tenantID, subjectID string) ([]models.ConsentSummary, error)
	// History returns every signing event of the pair, oldest first.
	History(ctx context.Context, tenantID, subjectID string, kind models.DocumentKind) ([]models.ConsentSummary, error)
}
