package database

import (
	"timesheets/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Init opens the database, migrates the schema and seeds the default admin.
// The handle is returned to the caller; nothing here is package-global.
func Init(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	if err := seedDefaultAdmin(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate applies the schema. Shared with the test setup.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Task{},
		&models.Timesheet{},
		&models.TimesheetEntry{},
		&models.TimesheetBatch{},
		&models.ApprovalHistory{},
		&models.BatchHistory{},
		&models.AuditLog{},
		&models.ExportLog{},
	)
}

func seedDefaultAdmin(db *gorm.DB) error {
	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count > 0 {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Username:           "admin",
		FullName:           "Administrator",
		PasswordHash:       string(hashedPassword),
		Role:               models.RoleAdmin,
		IsActive:           true,
		MustChangePassword: true,
	}
	return db.Create(&admin).Error
}
