// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// StoreConfig holds settings for the run state store.
type StoreConfig struct {
	// Path is the SQLite database file (default "digest.db").
	Path string `json:"path" yaml:"path"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Provider selects the backend: "anthropic" or "openai".
	Provider string `json:"provider" yaml:"provider"`

	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API. May also be
	// supplied via .secrets/ (see internal/secrets).
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for rate-limited API
	// calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Timeout is the HTTP request timeout for API calls.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// VaultConfig holds settings for the digest artifact writer.
type VaultConfig struct {
	// Path is the directory digests are written to.
	Path string `json:"path" yaml:"path"`
}

// TelegramConfig holds settings for the Telegram messaging channel used
// for progress reporting and scheduled-run notifications.
type TelegramConfig struct {
	// Enabled controls whether progress and results are pushed to Telegram.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// BotToken is the Bot API token. May also be supplied via .secrets/.
	BotToken string `json:"bot_token,omitempty" yaml:"bot_token,omitempty"`

	// ChatID is the chat that receives progress and result messages.
	ChatID int64 `json:"chat_id" yaml:"chat_id"`

	// MinEditInterval is the minimum interval between edits of the
	// progress message (default 2s, a governor against Bot API throttling).
	MinEditInterval time.Duration `json:"min_edit_interval" yaml:"min_edit_interval"`
}

// ScheduleConfig holds settings for the weekly scheduled trigger.
type ScheduleConfig struct {
	// Enabled controls whether the scheduler runs at all.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// DayOfWeek is the trigger day, 0=Sunday through 6=Saturday
	// (time.Weekday numbering).
	DayOfWeek int `json:"day_of_week" yaml:"day_of_week"`

	// Hour and Minute are the local trigger time in Timezone.
	Hour   int `json:"hour" yaml:"hour"`
	Minute int `json:"minute" yaml:"minute"`

	// Timezone is an IANA zone name (e.g. "Europe/Berlin").
	Timezone string `json:"timezone" yaml:"timezone"`
}

// PipelineConfig groups all component configurations.
type PipelineConfig struct {
	Store    StoreConfig    `json:"store" yaml:"store"`
	AI       AIConfig       `json:"ai" yaml:"ai"`
	Vault    VaultConfig    `json:"vault" yaml:"vault"`
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
	Schedule ScheduleConfig `json:"schedule" yaml:"schedule"`

	// ProfilePath is the user profile YAML file (default "user_profile.yaml").
	ProfilePath string `json:"profile_path" yaml:"profile_path"`
}
