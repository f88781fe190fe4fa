package subjects

import (
	"context"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, tenantID, id string) (*models.Subject, error)
	Save(ctx context.Context, s *models.Subject) error
	SetAcceptance(ctx context.Context, tenantID, id string, kind models.DocumentKind, at time.Time) error
}
