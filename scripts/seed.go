// Seeds the exchange-rate row and demo accounts into a PostgreSQL database.
//
//	go run scripts/seed.go
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getenv("HOLIDAYSRI_DB_HOST", "localhost"),
		getenv("HOLIDAYSRI_DB_PORT", "5432"),
		getenv("HOLIDAYSRI_DB_USER", "postgres"),
		getenv("HOLIDAYSRI_DB_PASSWORD", ""),
		getenv("HOLIDAYSRI_DB_NAME", "holidaysri"),
		getenv("HOLIDAYSRI_DB_SSLMODE", "disable"),
	)

	// Connect to database
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Println("Connected to database successfully")

	now := time.Now().UTC()
	_, err = db.Exec(`
		INSERT INTO exchange_rates (id, hsc_value, hsg_value, hsd_value, currency, updated_by, updated_at)
		VALUES (1, $1, $2, $3, $4, 0, $5)
		ON CONFLICT (id) DO NOTHING`,
		getenv("SEED_HSC_VALUE", "100"),
		getenv("SEED_HSG_VALUE", "100"),
		getenv("SEED_HSD_VALUE", "100"),
		getenv("SEED_CURRENCY", "LKR"),
		now,
	)
	if err != nil {
		log.Fatalf("Failed to seed exchange rates: %v", err)
	}
	log.Println("Exchange rates seeded")

	users := []struct {
		email   string
		name    string
		isAdmin bool
		hsc     string
	}{
		{"admin@holidaysri.test", "Platform Admin", true, "0"},
		{"seller@holidaysri.test", "Demo Seller", false, "1000"},
		{"buyer@holidaysri.test", "Demo Buyer", false, "1000"},
	}
	for _, u := range users {
		_, err := db.Exec(`
			INSERT INTO users (email, name, is_admin, hsc_balance, hsg_balance, hsd_balance, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 0, 0, $5, $5)
			ON CONFLICT (email) DO NOTHING`,
			u.email, u.name, u.isAdmin, u.hsc, now,
		)
		if err != nil {
			log.Fatalf("Failed to seed user %s: %v", u.email, err)
		}
	}

	log.Printf("Seeded %d demo users", len(users))
}
