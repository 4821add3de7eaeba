package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/foodcrm/internal/crm"
	"github.com/dmitrijs2005/foodcrm/internal/dbx"
	"github.com/dmitrijs2005/foodcrm/internal/server/repositories/entities"
	"github.com/dmitrijs2005/foodcrm/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/foodcrm/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can run
// the same repository against *sql.DB or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Entities(db dbx.DBTX, schema crm.Schema) entities.Repository
}
