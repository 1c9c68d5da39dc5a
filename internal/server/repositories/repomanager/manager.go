package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/finkeeper/internal/dbx"
	"github.com/dmitrijs2005/finkeeper/internal/server/repositories/records"
	"github.com/dmitrijs2005/finkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/finkeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a *sql.DB or a transaction,
// so services can run several of them in one dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Records(db dbx.DBTX) records.Repository
}
