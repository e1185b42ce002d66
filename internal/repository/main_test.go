package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fcf-tessere/unlock-server-go/internal/database"
)

// setupTestDB connects to TEST_DATABASE_URL and resets the tables.
// Tests are skipped when the variable is not set.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping repository integration test")
	}

	db, err := database.Connect(url)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))
	_, err = db.ExecContext(ctx, `TRUNCATE paid_devices, unlock_codes`)
	require.NoError(t, err)

	return db
}
