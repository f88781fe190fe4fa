package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/dmitrijs2005/studiosign/internal/flagx"
	"github.com/joho/godotenv"
)

// parseEnv loads the dotenv file (missing is fine) and reads the variables
// the CLI understands.
func parseEnv(cfg *Config) {
	if err := godotenv.Load(flagx.EnvFileFlags()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	if v, ok := os.LookupEnv("STUDIOSIGN_SERVER_ADDR"); ok {
		cfg.ServerEndpointAddr = v
	}
	if v, ok := os.LookupEnv("STUDIOSIGN_ACCESS_TOKEN"); ok {
		cfg.AccessToken = v
	}
	if v, ok := os.LookupEnv("STUDIOSIGN_SECRET_KEY"); ok {
		cfg.SecretKey = v
	}
}
