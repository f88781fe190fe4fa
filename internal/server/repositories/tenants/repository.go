package tenants

import (
	"context"

	"github.com/dmitrijs2005/studiosign/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, id string) (*models.Tenant, error)
	Save(ctx context.Context, t *models.Tenant) error
}
