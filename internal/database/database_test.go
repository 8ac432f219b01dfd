package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	t.Run("Invalid Connection", func(t *testing.T) {
		cfg := Config{
			Driver:         "mysql",
			Host:           "localhost",
			Port:           9999, // Unused port
			User:           "root",
			Password:       "wrongpassword",
			Name:           "rainfall",
			TimeoutSeconds: 1,
		}

		db, err := Connect(cfg)
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("Memory driver opens nothing", func(t *testing.T) {
		db, err := Connect(Config{Driver: "memory"})
		assert.ErrorIs(t, err, ErrNoDatabase)
		assert.Nil(t, db)
	})

	t.Run("Unknown driver", func(t *testing.T) {
		_, err := Connect(Config{Driver: "postgres"})
		assert.ErrorContains(t, err, "unsupported")
	})

	t.Run("SQLite file in new directory", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "nested", "rain.db")
		db, err := Connect(Config{Driver: "sqlite", DSN: dsn})
		require.NoError(t, err)
		require.NoError(t, db.Exec("CREATE TABLE probe (id INTEGER PRIMARY KEY)").Error)

		sqlDB, err := db.DB()
		require.NoError(t, err)
		assert.NoError(t, sqlDB.Close())
	})
}

func TestMySQLDSNEscapesPassword(t *testing.T) {
	dsn := mysqlDSN(Config{User: "rain", Password: "p@ss:word", Host: "db", Port: 3306, Name: "rainfall"}, 5)
	assert.Equal(t, "rain:p%40ss%3Aword@tcp(db:3306)/rainfall?charset=utf8mb4&parseTime=True&loc=UTC&timeout=5s&readTimeout=5s&writeTimeout=5s", dsn)
}
