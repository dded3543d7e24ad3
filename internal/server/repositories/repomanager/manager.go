package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/filekeeper/internal/dbx"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/blockedtokens"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/files"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/filekeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or an open
// transaction, so services can group several writes under dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	BlockedTokens(db dbx.DBTX) blockedtokens.Repository
	Files(db dbx.DBTX) files.Repository
}
