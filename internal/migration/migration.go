// Package migration creates the engine's schema on startup. Postgres runs
// the embedded SQL migrations; sqlite and mysql fall back to AutoMigrate so
// local and test environments work with zero setup.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	cashregisterdomain "github.com/Girosmedia/tendo-app-sub002/internal/cashregister/domain"
	customerdomain "github.com/Girosmedia/tendo-app-sub002/internal/customer/domain"
	orgdomain "github.com/Girosmedia/tendo-app-sub002/internal/organization/domain"
	payabledomain "github.com/Girosmedia/tendo-app-sub002/internal/payable/domain"
	receivabledomain "github.com/Girosmedia/tendo-app-sub002/internal/receivable/domain"
	subscriptiondomain "github.com/Girosmedia/tendo-app-sub002/internal/subscription/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations
var embeddedMigrations embed.FS

const migrationsDir = "migrations"

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	return nil
}

func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&orgdomain.Organization{},
		&customerdomain.Customer{},
		&payabledomain.Supplier{},
		&receivabledomain.Credit{},
		&receivabledomain.Payment{},
		&payabledomain.AccountPayable{},
		&payabledomain.PayableApplication{},
		&cashregisterdomain.Shift{},
		&cashregisterdomain.Sale{},
		&subscriptiondomain.Subscription{},
	)
}
