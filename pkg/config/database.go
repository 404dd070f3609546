package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"fundcontrol/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// ConnectDB opens the connection pool without touching the schema. Used by
// the migrate tool, which manages the schema through SQL migrations instead.
func ConnectDB() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database instance:", err)
	}

	sqlDB.SetMaxIdleConns(50)
	sqlDB.SetMaxOpenConns(200)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db
}

// InitDB initializes the database connection
func InitDB() {
	ConnectDB()

	// Auto migrate all models
	err := DB.AutoMigrate(
		&models.Fund{},
		&models.Deal{},
		&models.Allocation{},
		&models.CapitalCall{},
		&models.Payment{},
		&models.RepairRun{},
		&models.RepairAnomaly{},
		&models.FundMetricsSnapshot{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}
}
