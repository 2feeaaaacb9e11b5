package db

import (
	"log"
	"os"

	"gorm.io/gorm"

	"preventivo/internal/models"
)

// Seed creates the bootstrap admin account when the users table is empty.
// Credentials come from ADMIN_EMAIL / ADMIN_PASSWORD; without them seeding is
// skipped so a fresh database never gets a well-known default login.
func Seed(conn *gorm.DB) error {
	var count int64
	if err := conn.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("no users and no ADMIN_EMAIL/ADMIN_PASSWORD set; skipping admin seed")
		return nil
	}

	admin := models.User{Email: email, Role: models.RoleAdmin}
	if err := admin.SetPassword(password); err != nil {
		return err
	}
	if err := conn.Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("seeded admin user %s", email)
	return nil
}
