package params

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type API struct {
	Addr           string
	AllowedOrigins []string
}

type Storage struct {
	// Path of the Pebble journal directory. Empty disables persistence.
	Path string
}

type Log struct {
	// File receives a JSON copy of the console log. Empty disables the tee.
	File string
}

type Devnet struct {
	// Accounts funded at startup so the node is immediately tradeable.
	Accounts []string
	// GenesisBalance is the native value credited to each devnet account.
	GenesisBalance uint64
}

type Config struct {
	API     API
	Storage Storage
	Log     Log
	Devnet  Devnet
}

func Default() Config {
	return Config{
		API: API{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Storage: Storage{Path: "data/journal"},
		Log:     Log{File: "data/otcd.log"},
		Devnet: Devnet{
			Accounts: []string{
				"0xAA00000000000000000000000000000000000000",
				"0xBB00000000000000000000000000000000000000",
			},
			GenesisBalance: 1_000_000,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.API.Addr = addr
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		cfg.Log.File = file
	}
	if bal := os.Getenv("DEVNET_GENESIS_BALANCE"); bal != "" {
		if v, err := strconv.ParseUint(bal, 10, 64); err == nil {
			cfg.Devnet.GenesisBalance = v
		}
	}
	if accounts := os.Getenv("DEVNET_ACCOUNTS"); accounts != "" {
		cfg.Devnet.Accounts = strings.Split(accounts, ",")
	}

	return cfg
}
