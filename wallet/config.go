package wallet

import (
	"log"
	"os"
)

// Config holds the wallet's startup parameters, read from the environment
// (optionally populated from a .env file by the caller via godotenv).
type Config struct {
	WalletPath string
	MintURL    string
}

func GetConfig() Config {
	mintURL := os.Getenv("WALLET_MINT_URL")
	if mintURL == "" {
		log.Fatal("WALLET_MINT_URL cannot be empty")
	}

	walletPath := os.Getenv("WALLET_DB_PATH")
	if walletPath == "" {
		walletPath = "."
	}

	return Config{WalletPath: walletPath, MintURL: mintURL}
}
