package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/studiosign/internal/dbx"
	"github.com/dmitrijs2005/studiosign/internal/server/repositories/consents"
	"github.com/dmitrijs2005/studiosign/internal/server/repositories/subjects"
	"github.com/dmitrijs2005/studiosign/internal/server/repositories/tenants"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Tenants(db dbx.DBTX) tenants.Repository
	Subjects(db dbx.DBTX) subjects.Repository
	Consents(db dbx.DBTX) consents.Repository
}
