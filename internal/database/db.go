package database

import (
    "fmt"

    "gorm.io/driver/postgres"
    "gorm.io/gorm"

    "github.com/nkodex/examsync_backend/internal/config"
    "github.com/nkodex/examsync_backend/internal/models"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
    dsn := fmt.Sprintf(
        "host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
        cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
    )
    // TranslateError so a losing concurrent insert surfaces as
    // gorm.ErrDuplicatedKey and can be reclassified as a sync conflict.
    return gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
}

func Migrate(db *gorm.DB) error {
    return db.AutoMigrate(
        &models.User{},
        &models.RefreshToken{},
        &models.Exam{},
        &models.Candidate{},
        &models.Attendance{},
        &models.Biometric{},
        &models.Fingerprint{},
        &models.SyncStatus{},
    )
}
