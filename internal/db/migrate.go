package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"preventivo/internal/config"
	"preventivo/internal/models"
)

// Connect opens the PostgreSQL connection, retrying briefly so the app can
// start alongside the database container.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var conn *gorm.DB
	var err error
	for i := 0; i < 5; i++ {
		conn, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
		if err == nil {
			return conn, nil
		}
		log.Printf("database connect attempt %d/5 failed, retrying", i+1)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("connect database: %w", err)
}

// Migrate applies the GORM auto-migrations for every entity.
func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.Product{},
		&models.Document{},
		&models.Revision{},
		&models.PDFFile{},
		&models.ChangeRecord{},
	)
}
