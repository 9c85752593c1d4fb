package mint

import (
	"log"
	"os"
)

// Config holds the mint's startup parameters, read from the environment
// (optionally populated from a .env file by the caller via godotenv).
type Config struct {
	MasterSecret   string
	DerivationPath string
	Port           string
	DBPath         string
}

func GetConfig() Config {
	masterSecret := os.Getenv("MINT_MASTER_SECRET")
	if masterSecret == "" {
		log.Fatal("MINT_MASTER_SECRET cannot be empty")
	}

	port := os.Getenv("MINT_PORT")
	if port == "" {
		port = "3338"
	}

	dbPath := os.Getenv("MINT_DB_PATH")
	if dbPath == "" {
		dbPath = "."
	}

	return Config{
		MasterSecret:   masterSecret,
		DerivationPath: os.Getenv("MINT_DERIVATION_PATH"),
		Port:           port,
		DBPath:         dbPath,
	}
}
