package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tollgate/models"
	"tollgate/pkg/toll"
)

var db *gorm.DB

func initDB(logger zerolog.Logger) {
	var err error
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		logger.Fatal().Msg("DB_DSN is not set. The tollgate server requires a Postgres DSN in DB_DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres database")
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true).
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	if shouldMigrate {
		// Migrate models individually so a failure on one doesn't block others
		if err := db.AutoMigrate(&models.Operator{}); err != nil {
			logger.Warn().Err(err).Msg("migration warning (operators)")
		}
		if err := db.AutoMigrate(&models.TollTransaction{}); err != nil {
			logger.Warn().Err(err).Msg("migration warning (toll_transactions)")
		}
	}
	seedDB(logger)
}

// seedDB ensures a default administrator operator exists.
func seedDB(logger zerolog.Logger) {
	var count int64
	db.Model(&models.Operator{}).Where("username = ?", "admin").Count(&count)
	if count != 0 {
		return
	}
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	admin := models.Operator{
		Username:       "admin",
		HashedPassword: hashedPassword,
		Role:           "administrator",
	}
	if err := db.Create(&admin).Error; err != nil {
		logger.Warn().Err(err).Msg("failed to seed admin operator")
		return
	}
	logger.Info().Msg("seeded admin operator: username=admin, password=admin123")
}

// dbArchiver mirrors billed transactions into the toll_transactions table.
type dbArchiver struct{}

func (dbArchiver) ArchiveTransaction(rec toll.TransactionRecord, eventID string) error {
	row := models.TollTransaction{
		EventID:       eventID,
		VehicleKey:    rec.VehicleKey,
		PaymentMethod: rec.Method,
		AmountCents:   rec.AmountCents,
		BalanceCents:  rec.BalanceCents,
		ChargedAt:     rec.Timestamp,
	}
	return db.Create(&row).Error
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}
