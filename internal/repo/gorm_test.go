package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/magister_portal/internal/config"
	"github.com/Skotchmaster/magister_portal/internal/db"
)

func newTestGormRepo(t *testing.T) Store {
	t.Helper()

	gdb, err := db.OpenGorm(context.Background(), config.DriverSQLite, "file::memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return NewGormRepo(gdb)
}

func TestGormRepo(t *testing.T) {
	runStoreTests(t, newTestGormRepo)
}
