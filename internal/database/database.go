package database

import (
	"fmt"

	"github.com/projectmanager/backend/internal/config"
	"github.com/projectmanager/backend/internal/models"
	"github.com/projectmanager/backend/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := seedAdminUser(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.CompanyAddress{},
		&models.Project{},
		&models.Document{},
		&models.Comment{},
	)
}

// seedAdminUser creates a first account on an empty database so the
// admin-gated routes are reachable. The seeded admin also holds "user":
// roles are a flat set and admin does not imply user.
func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword("admin123")
	if err != nil {
		return err
	}

	admin := models.User{
		Username:     "admin",
		Email:        "admin@projectmanager.local",
		PasswordHash: hash,
		Roles:        models.RoleList{models.RoleUser, models.RoleAdmin},
	}

	return db.Create(&admin).Error
}
