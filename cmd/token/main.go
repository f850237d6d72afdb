// Command token prints a signed access token for a user, for local testing
// and for the booking service that reports earnings.
package main

import (
	"flag"
	"fmt"
	"log"

	"holidaysri-engine/internal/auth"
	"holidaysri-engine/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	userID := flag.Uint("user", 0, "user id to issue the token for")
	admin := flag.Bool("admin", false, "include the admin claim")
	flag.Parse()

	if *userID == 0 {
		log.Fatal("-user is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	auth.InitJWT(cfg.Auth.JWTSecret)
	token, err := auth.GenerateToken(*userID, *admin, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Println(token)
}
