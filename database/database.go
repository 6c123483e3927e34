package database

import (
	"artmarket/internal/domain/collectors"
	"artmarket/internal/domain/derivatives"
	"artmarket/internal/domain/users"
	"artmarket/internal/domain/works"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	// gen_random_uuid()
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		return errors.Wrap(err, "enable pgcrypto")
	}

	if err := db.AutoMigrate(
		&users.User{},

		&works.Artwork{},
		&works.ArtworkImage{},
		&works.Catalogue{},
		&works.ArtworkCatalogue{},
		&works.EditionSale{},

		&derivatives.Task{},

		&collectors.Favorite{},
		&collectors.Inquiry{},
	); err != nil {
		return errors.Wrap(err, "auto-migrate")
	}

	for _, stmt := range []string{
		// one system catalogue per owner
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_catalogues_one_system ON catalogues (user_id) WHERE is_system`,
		// one pending regeneration task per artwork
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_regen_tasks_one_pending ON regeneration_tasks (artwork_id) WHERE status = 'pending'`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return errors.Wrap(err, "create partial index")
		}
	}

	log.Info("database migrated")
	return nil
}
