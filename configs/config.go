package configs

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config carries the installation-level settings: where the database
// lives and the circulation policy knobs.
type Config struct {
	DBPath         string
	CoversDir      string
	LoanPeriodDays int
	ExtensionDays  int
	FinePerDay     float64
}

// LoadConfig reads .env (when present) and the environment, falling back
// to the standing defaults.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := Config{
		DBPath:         "library.db",
		CoversDir:      "assets/book_covers",
		LoanPeriodDays: 14,
		ExtensionDays:  7,
		FinePerDay:     1.0,
	}

	if val := os.Getenv("LIBRARY_DB"); val != "" {
		cfg.DBPath = val
	}
	if val := os.Getenv("BOOK_COVERS_DIR"); val != "" {
		cfg.CoversDir = val
	}
	if val := os.Getenv("LOAN_PERIOD_DAYS"); val != "" {
		if _, err := fmt.Sscanf(val, "%d", &cfg.LoanPeriodDays); err != nil {
			log.Fatalf("Invalid LOAN_PERIOD_DAYS: %v", err)
		}
	}
	if val := os.Getenv("LOAN_EXTENSION_DAYS"); val != "" {
		if _, err := fmt.Sscanf(val, "%d", &cfg.ExtensionDays); err != nil {
			log.Fatalf("Invalid LOAN_EXTENSION_DAYS: %v", err)
		}
	}
	if val := os.Getenv("FINE_RATE"); val != "" {
		if _, err := fmt.Sscanf(val, "%f", &cfg.FinePerDay); err != nil {
			log.Fatalf("Invalid FINE_RATE: %v", err)
		}
	}

	return cfg
}
