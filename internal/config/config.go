package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv      = "BOARD_RELAY_CONFIG"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	databaseDSNEnv     = "DATABASE_DSN"
	ledgerFileEnv      = "LEDGER_FILE"
	extraExcludesEnv   = "EXCLUDE_IMAGE_SUBSTRINGS"
	forceSendLatestEnv = "FORCE_SEND_LATEST"
	resetSeenEnv       = "RESET_SEEN"
	enableHeartbeatEnv = "ENABLE_HEARTBEAT"
	heartbeatTextEnv   = "HEARTBEAT_TEXT"
)

// Config holds high-level settings required across the application.
type Config struct {
	Site          string             `yaml:"site"`
	Board         BoardConfig        `yaml:"board"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Extract       ExtractConfig      `yaml:"extract"`
	Delivery      DeliveryConfig     `yaml:"delivery"`
	Notifications NotificationConfig `yaml:"notifications"`
	Ledger        LedgerConfig       `yaml:"ledger"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Heartbeat     HeartbeatConfig    `yaml:"heartbeat"`
	Logging       LoggingConfig      `yaml:"logging"`

	// Debug toggles, env-only.
	ForceSendLatest bool `yaml:"-"`
	ResetSeen       bool `yaml:"-"`
}

// BoardConfig describes the single monitored board.
type BoardConfig struct {
	Name     string `yaml:"name"`
	ListURL  string `yaml:"listUrl"`
	Category string `yaml:"category"`
	Scanner  string `yaml:"scanner"`
}

// FetchConfig covers the request identity and timeout for board fetches.
type FetchConfig struct {
	UserAgent      string `yaml:"userAgent"`
	AcceptLanguage string `yaml:"acceptLanguage"`
	Referer        string `yaml:"referer"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// Timeout resolves the fetch timeout as a duration.
func (f FetchConfig) Timeout() time.Duration {
	if f.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// ExtractConfig tunes summary length and media noise filtering.
type ExtractConfig struct {
	SummaryChars      int      `yaml:"summaryChars"`
	ExcludeSubstrings []string `yaml:"excludeSubstrings"`
	PlaceholderIcons  []string `yaml:"placeholderIcons"`
	DropFirstImage    bool     `yaml:"dropFirstImage"`
}

// DeliveryConfig bounds outbound messaging calls.
type DeliveryConfig struct {
	BatchLimit         int `yaml:"batchLimit"`
	CaptionChars       int `yaml:"captionChars"`
	EmbedLimit         int `yaml:"embedLimit"`
	SendIntervalMillis int `yaml:"sendIntervalMillis"`
}

// SendInterval resolves the minimum spacing between outbound calls.
func (d DeliveryConfig) SendInterval() time.Duration {
	if d.SendIntervalMillis <= 0 {
		return time.Second
	}
	return time.Duration(d.SendIntervalMillis) * time.Millisecond
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
	APIURL   string `yaml:"apiUrl"`
}

// LedgerConfig locates the delivered-post ledger file.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// DatabaseConfig describes the optional Postgres audit log.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines daemon-mode cadence; 0 means run once and exit.
type SchedulerConfig struct {
	IntervalMinutes int `yaml:"intervalMinutes"`
}

// Interval resolves the scheduler cadence as a duration.
func (s SchedulerConfig) Interval() time.Duration {
	if s.IntervalMinutes <= 0 {
		return 0
	}
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// HeartbeatConfig enables a liveness message at run start.
type HeartbeatConfig struct {
	Enabled bool   `yaml:"enabled"`
	Text    string `yaml:"text"`
}

// LoggingConfig selects log verbosity and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(ledgerFileEnv); v != "" {
		c.Ledger.Path = v
	}

	if v := strings.TrimSpace(os.Getenv(extraExcludesEnv)); v != "" {
		for _, hint := range strings.Split(v, ",") {
			if hint = strings.TrimSpace(hint); hint != "" {
				c.Extract.ExcludeSubstrings = append(c.Extract.ExcludeSubstrings, hint)
			}
		}
	}

	c.ForceSendLatest = envFlag(forceSendLatestEnv)
	c.ResetSeen = envFlag(resetSeenEnv)
	if envFlag(enableHeartbeatEnv) {
		c.Heartbeat.Enabled = true
	}
	if v := os.Getenv(heartbeatTextEnv); v != "" {
		c.Heartbeat.Text = v
	}
}

func envFlag(name string) bool {
	return strings.TrimSpace(os.Getenv(name)) == "1"
}

func mergeConfig(base, override Config) Config {
	if override.Site != "" {
		base.Site = override.Site
	}

	if override.Board.Name != "" {
		base.Board.Name = override.Board.Name
	}
	if override.Board.ListURL != "" {
		base.Board.ListURL = override.Board.ListURL
	}
	if override.Board.Category != "" {
		base.Board.Category = override.Board.Category
	}
	if override.Board.Scanner != "" {
		base.Board.Scanner = override.Board.Scanner
	}

	if override.Fetch.UserAgent != "" {
		base.Fetch.UserAgent = override.Fetch.UserAgent
	}
	if override.Fetch.AcceptLanguage != "" {
		base.Fetch.AcceptLanguage = override.Fetch.AcceptLanguage
	}
	if override.Fetch.Referer != "" {
		base.Fetch.Referer = override.Fetch.Referer
	}
	if override.Fetch.TimeoutSeconds > 0 {
		base.Fetch.TimeoutSeconds = override.Fetch.TimeoutSeconds
	}

	if override.Extract.SummaryChars > 0 {
		base.Extract.SummaryChars = override.Extract.SummaryChars
	}
	if len(override.Extract.ExcludeSubstrings) > 0 {
		base.Extract.ExcludeSubstrings = override.Extract.ExcludeSubstrings
	}
	if len(override.Extract.PlaceholderIcons) > 0 {
		base.Extract.PlaceholderIcons = override.Extract.PlaceholderIcons
	}
	if override.Extract.DropFirstImage {
		base.Extract.DropFirstImage = true
	}

	if override.Delivery.BatchLimit > 0 {
		base.Delivery.BatchLimit = override.Delivery.BatchLimit
	}
	if override.Delivery.CaptionChars > 0 {
		base.Delivery.CaptionChars = override.Delivery.CaptionChars
	}
	if override.Delivery.EmbedLimit > 0 {
		base.Delivery.EmbedLimit = override.Delivery.EmbedLimit
	}
	if override.Delivery.SendIntervalMillis > 0 {
		base.Delivery.SendIntervalMillis = override.Delivery.SendIntervalMillis
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.Telegram.APIURL != "" {
		base.Notifications.Telegram.APIURL = override.Notifications.Telegram.APIURL
	}

	if override.Ledger.Path != "" {
		base.Ledger.Path = override.Ledger.Path
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}
	if override.Scheduler.IntervalMinutes > 0 {
		base.Scheduler.IntervalMinutes = override.Scheduler.IntervalMinutes
	}

	if override.Heartbeat.Enabled {
		base.Heartbeat.Enabled = true
	}
	if override.Heartbeat.Text != "" {
		base.Heartbeat.Text = override.Heartbeat.Text
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Site: "etoland",
		Board: BoardConfig{
			Name:     "etohumor07",
			ListURL:  "https://www.etoland.co.kr/bbs/hgall.php?bo_table=etohumor07",
			Category: "%BE%E0%C8%C4",
			Scanner:  "gnuboard",
		},
		Fetch: FetchConfig{
			UserAgent:      "Mozilla/5.0 (compatible; BoardRelay/1.0)",
			AcceptLanguage: "ko,ko-KR;q=0.9,en;q=0.8",
			Referer:        "https://www.etoland.co.kr/",
			TimeoutSeconds: 20,
		},
		Extract: ExtractConfig{
			SummaryChars: 280,
			ExcludeSubstrings: []string{
				"link.php?",
				"/logo/",
				"/banner/",
				"/ads/",
				"/noimage",
				"/favicon",
				"/thumb/",
				"/placeholder/",
				"/img/icon_link.gif",
			},
			PlaceholderIcons: []string{"icon_link.gif"},
		},
		Delivery: DeliveryConfig{
			BatchLimit:         10,
			CaptionChars:       900,
			EmbedLimit:         5,
			SendIntervalMillis: 1000,
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{APIURL: "https://api.telegram.org"},
		},
		Ledger:    LedgerConfig{Path: "state/seen_ids.txt"},
		Heartbeat: HeartbeatConfig{Text: "Heartbeat: bot alive."},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}
