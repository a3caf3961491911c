package database

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/anjiri1684/career_mentor/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrStatusConflict    = errors.New("status precondition failed")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSequenceConsumed  = errors.New("query sequence already consumed")
)

func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:                              false,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	log.Println("✅ Database connected successfully")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Student{},
		&models.Mentor{},
		&models.Admin{},
		&models.Session{},
		&models.SessionEvent{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Println("✅ Database migration successful")
	return nil
}

// SeedAdmin creates the configured admin account unless one already exists.
func SeedAdmin(ctx context.Context, db *gorm.DB, email, password, fullName string) error {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		log.Println("Admin credentials not configured, skipping seed.")
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.Admin{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if count > 0 {
		log.Println("Admin user already exists.")
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.Admin{
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hashedPassword),
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	log.Println("✅ Admin user seeded successfully")
	return nil
}

// orderClause turns "field" or "-field" into an ORDER BY clause, accepting
// only the listed columns.
func orderClause(order string, allowed ...string) (string, error) {
	if order == "" {
		return "", nil
	}
	direction := "ASC"
	column := order
	if column[0] == '-' {
		direction = "DESC"
		column = column[1:]
	}
	for _, a := range allowed {
		if a == column {
			return column + " " + direction, nil
		}
	}
	return "", fmt.Errorf("unsupported order %q", order)
}
