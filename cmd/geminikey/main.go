// Command geminikey stores a Gemini API key in provider_credentials, where
// the API and workers pick it up when GEMINI_API_KEY is unset.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"studio/internal/infra"
	"studio/internal/infra/credentials"
)

func main() {
	_ = godotenv.Load()

	var keyFlag, noteFlag string
	flag.StringVar(&keyFlag, "key", "", "Gemini API key (falls back to GEMINI_API_KEY)")
	flag.StringVar(&noteFlag, "note", "", "Optional note stored with the key")
	flag.Parse()

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	if key == "" {
		exit("a Gemini API key is required via -key or GEMINI_API_KEY")
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		exit(err.Error())
	}
	cfg.LogLevel = "warn"

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		exit(err.Error())
	}
	defer pool.Close()

	logger := infra.NewLogger(cfg).With().Str("cmd", "geminikey").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	prev, hadPrev, err := store.Lookup(ctx, credentials.ProviderGemini)
	if err != nil {
		exit(err.Error())
	}
	if err := store.Rotate(ctx, credentials.ProviderGemini, key, noteFlag); err != nil {
		exit(err.Error())
	}

	if hadPrev {
		fmt.Printf("Gemini API key rotated (previous %s, set %s)\n", prev.Masked(), prev.UpdatedAt.Format(time.RFC3339))
		return
	}
	fmt.Println("Gemini API key stored")
}

func exit(msg string) {
	fmt.Fprintln(os.Stderr, "geminikey:", msg)
	os.Exit(1)
}
