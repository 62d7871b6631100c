package database

import (
	"testing"

	"checkout-service/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenInMemory_MigratesSchema(t *testing.T) {
	db, err := OpenInMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	for _, table := range []string{"orders", "order_items", "payments", "saga_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("payments", "idx_payments_idempotency_key"))
}

func TestConnect_SQLiteDriver(t *testing.T) {
	cfg := &config.Config{
		DBDriver:  config.DriverSQLite,
		SQLiteDSN: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}
	db, err := Connect(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	assert.True(t, db.Migrator().HasTable("orders"))
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
