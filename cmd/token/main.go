// Command token prints a bearer token for a user id, for local testing
// against the wallet server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/richardliu001/wallet-api/internal/auth"
	"github.com/richardliu001/wallet-api/internal/config"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	userID := flag.Uint64("user", 0, "user id to put in the token")
	flag.Parse()

	if *userID == 0 {
		fmt.Fprintln(os.Stderr, "-user is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	tok, err := auth.GenerateToken(*userID, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
