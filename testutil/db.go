// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"os"
	"testing"

	"github.com/freelancehub/marketplace-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RequireTestEnvironment aborts the test binary unless GO_ENV=test
func RequireTestEnvironment() {
	if os.Getenv("GO_ENV") != "test" {
		println("ERROR: Tests must be run with GO_ENV=test")
		println("Usage: GO_ENV=test go test ./...")
		os.Exit(1)
	}
}

// NewTestDB opens an isolated in-memory sqlite database with every model migrated.
// A single connection keeps the in-memory database alive and serializes writers.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...), "failed to migrate test database")
	return db
}

// CreateUser inserts a username/password style user
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	name := username
	user := &models.User{Username: &name, Name: username}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateUserWithBalance inserts a user holding the given balance
func CreateUserWithBalance(t *testing.T, db *gorm.DB, username string, balance string) *models.User {
	t.Helper()

	user := CreateUser(t, db, username)
	user.Balance = decimal.RequireFromString(balance)
	require.NoError(t, db.Model(user).Update("balance", user.Balance).Error)
	return user
}

// CreateOrder inserts an open order owned by owner
func CreateOrder(t *testing.T, db *gorm.DB, owner *models.User, title string) *models.Order {
	t.Helper()

	order := &models.Order{
		OwnerID:     owner.ID,
		Title:       title,
		Description: "Description for " + title,
		Category:    "development",
		Status:      models.OrderStatusOpen,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}
