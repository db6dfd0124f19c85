package database

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/k1zuko/crazyrace-sub000/internal/config"
	"github.com/k1zuko/crazyrace-sub000/internal/models"
)

func Connect(cfg *config.Config) *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	log.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("database connected")
	return db
}

func AutoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.Host{},
		&models.Quiz{},
		&models.Question{},
		&models.Option{},
		&models.Session{},
		&models.SessionQuestion{},
		&models.SessionOption{},
		&models.Participant{},
		&models.Answer{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to auto-migrate")
	}

	// game pins are only unique among sessions that have not finished;
	// finished sessions keep their pin for history and the pool recycles it
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_live_pin ON sessions (game_pin) WHERE status <> 'finished'",
	).Error; err != nil {
		log.Fatal().Err(err).Msg("failed to create live pin index")
	}
	log.Info().Msg("database migrated")
}
