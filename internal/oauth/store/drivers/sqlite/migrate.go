package sqlite

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	msqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/saltoplay/platform/internal/oauth/store/drivers/sqlite/migrations"
)

// ApplyMigrations applies any pending migrations embedded in the binary.
// The migrate instance is not closed since that would close the shared DB.
func (s *Store) ApplyMigrations() error {
	driver, err := msqlite.WithInstance(s.DB(), &msqlite.Config{})
	if err != nil {
		return err
	}

	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return err
	}

	err = instance.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
