package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"studio/internal/infra"
)

var settings = viper.New()

var rootCmd = &cobra.Command{
	Use:   "studioctl",
	Short: "Plan and run product imagery jobs from the command line",
	Long: `studioctl expands a job file into generation tasks, runs them against the
configured Gemini models and writes the results as a zip archive.

Job files are YAML; image fields take file paths relative to the job file.`,
	SilenceUsage: true,
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.Int("concurrency", 0, "tasks per chunk (default BATCH_CONCURRENCY)")
	flags.Int("threshold", 0, "largest plan that runs without confirmation (default BATCH_CONFIRM_THRESHOLD)")
	flags.String("locale", "", "message locale, en or zh")
	flags.String("storage", "", "directory generated assets are written to (default STORAGE_PATH)")
	for _, name := range []string{"concurrency", "threshold", "locale", "storage"} {
		_ = settings.BindPFlag(name, flags.Lookup(name))
	}
	settings.SetEnvPrefix("STUDIO")
	settings.AutomaticEnv()

	rootCmd.AddCommand(planCmd, runCmd, enqueueCmd, migrateCmd, presetsCmd)
}

// loadConfig layers flags and STUDIO_* variables over the service config.
func loadConfig() (*infra.Config, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, err
	}
	if v := settings.GetInt("concurrency"); v > 0 {
		cfg.BatchConcurrency = v
	}
	if v := settings.GetInt("threshold"); v > 0 {
		cfg.BatchConfirmThreshold = v
	}
	if v := settings.GetString("locale"); v != "" {
		cfg.DefaultLocale = v
	}
	if v := settings.GetString("storage"); v != "" {
		cfg.StoragePath = v
	}
	return cfg, nil
}

func printStatus(symbol, message string, attr color.Attribute) {
	fmt.Printf("%s %s\n", color.New(attr).Sprint(symbol), message)
}
