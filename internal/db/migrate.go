package db

import (
	"fmt"

	"github.com/rohit-patil-code/AI-Blog-Editor/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema for all application models.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.AIUsage{},
		&models.Setting{},
	)
}
