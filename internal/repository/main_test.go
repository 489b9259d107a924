package repository

import (
	"testing"

	"confide/internal/database"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}
