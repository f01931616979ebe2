package console

import (
	"context"

	"github.com/nhath/ezadmin/internal/api"
	"github.com/nhath/ezadmin/internal/resultset"
)

// Backend is the subset of the API client the console depends on.
// *api.Client implements it.
type Backend interface {
	Login(ctx context.Context, username, password string) (*api.LoginResponse, error)
	Query(ctx context.Context, query string) (resultset.ResultSet, error)
	Backup(ctx context.Context, database string) (*api.BackupResponse, error)
	CheckDB(ctx context.Context) (resultset.ResultSet, error)
	Databases(ctx context.Context) ([]api.DatabaseRecord, error)
	BackupHistory(ctx context.Context) (resultset.ResultSet, error)
}

var _ Backend = (*api.Client)(nil)
