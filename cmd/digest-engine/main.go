// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the digest-engine CLI.
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/digest-engine/internal/secrets"
	"github.com/pdiddy/digest-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// logger is the process-wide structured logger, built in the root
// command's PersistentPreRunE.
var logger *zap.Logger

// secretDefault returns fallback when set, otherwise the secret value
// for key if it exists.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the digest-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "digest-engine",
	Short: "Weekly digest pipeline for collected links and topics",
	Long: `digest-engine turns a week's worth of collected links, topic seeds, and
notes into a single readable digest. Items accumulate during the week;
the pipeline clusters them into topics, researches and writes one
article per topic, and assembles the final digest as a Markdown note.

Collection and pipeline control are subcommands: items, run, status,
logs, cost, language, and serve (the weekly scheduler).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./digest-engine.yaml or ~/.config/digest-engine/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "human-readable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("digest-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "digest-engine"))
		}
	}

	viper.SetDefault("store.path", "digest.db")
	viper.SetDefault("ai.provider", "anthropic")
	viper.SetDefault("ai.max_retries", 3)
	viper.SetDefault("ai.timeout", "120s")
	viper.SetDefault("vault.path", "digests")
	viper.SetDefault("telegram.enabled", false)
	viper.SetDefault("telegram.min_edit_interval", "2s")
	viper.SetDefault("schedule.enabled", false)
	viper.SetDefault("schedule.day_of_week", 0)
	viper.SetDefault("schedule.hour", 18)
	viper.SetDefault("schedule.minute", 0)
	viper.SetDefault("schedule.timezone", "UTC")
	viper.SetDefault("profile_path", "user_profile.yaml")

	viper.SetEnvPrefix("DIGEST_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig assembles the pipeline configuration from viper and the
// loaded secrets.
func loadConfig() types.PipelineConfig {
	cfg := types.PipelineConfig{
		Store: types.StoreConfig{Path: viper.GetString("store.path")},
		AI: types.AIConfig{
			Provider:   viper.GetString("ai.provider"),
			Model:      viper.GetString("ai.model"),
			MaxRetries: viper.GetInt("ai.max_retries"),
			Timeout:    viper.GetDuration("ai.timeout"),
		},
		Vault: types.VaultConfig{Path: viper.GetString("vault.path")},
		Telegram: types.TelegramConfig{
			Enabled:         viper.GetBool("telegram.enabled"),
			BotToken:        viper.GetString("telegram.bot_token"),
			ChatID:          viper.GetInt64("telegram.chat_id"),
			MinEditInterval: viper.GetDuration("telegram.min_edit_interval"),
		},
		Schedule: types.ScheduleConfig{
			Enabled:   viper.GetBool("schedule.enabled"),
			DayOfWeek: viper.GetInt("schedule.day_of_week"),
			Hour:      viper.GetInt("schedule.hour"),
			Minute:    viper.GetInt("schedule.minute"),
			Timezone:  viper.GetString("schedule.timezone"),
		},
		ProfilePath: viper.GetString("profile_path"),
	}

	switch cfg.AI.Provider {
	case "openai":
		cfg.AI.APIKey = secretDefault("openai-api-key", viper.GetString("ai.api_key"))
	default:
		cfg.AI.APIKey = secretDefault("anthropic-api-key", viper.GetString("ai.api_key"))
	}
	cfg.Telegram.BotToken = secretDefault("telegram-bot-token", cfg.Telegram.BotToken)
	if cfg.Telegram.MinEditInterval <= 0 {
		cfg.Telegram.MinEditInterval = 2 * time.Second
	}
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
