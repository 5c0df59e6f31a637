package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "GROCERY_SCANNER_CONFIG"
	dataDirEnv        = "GROCERY_DATA_DIR"
	batchSizeEnv      = "BATCH_SIZE"
	logLevelEnv       = "LOG_LEVEL"
	databaseDSNEnv    = "DATABASE_DSN"
	krogerIDEnv       = "KROGER_CLIENT_ID"
	krogerSecretEnv   = "KROGER_CLIENT_SECRET"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Tracker backends understood by the application.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Storage       StorageConfig      `yaml:"storage"`
	Batch         BatchConfig        `yaml:"batch"`
	Filter        FilterConfig       `yaml:"filter"`
	Kroger        KrogerConfig       `yaml:"kroger"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Postgres      PostgresConfig     `yaml:"postgres"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig controls the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// StorageConfig locates the tracking table and product files. Relative
// file names resolve against DataDir.
type StorageConfig struct {
	DataDir        string        `yaml:"dataDir"`
	TrackerBackend string        `yaml:"trackerBackend"`
	TrackerFile    string        `yaml:"trackerFile"`
	TrackerDB      string        `yaml:"trackerDB"`
	ProductsFile   string        `yaml:"productsFile"`
	LocationsFile  string        `yaml:"locationsFile"`
	LockFile       string        `yaml:"lockFile"`
	LockTTL        time.Duration `yaml:"lockTTL"`
}

// Path resolves name against the data directory.
func (s StorageConfig) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.DataDir, name)
}

// BatchConfig bounds a single run.
type BatchConfig struct {
	Size          int           `yaml:"size"`
	PacingDelay   time.Duration `yaml:"pacingDelay"`
	StalenessDays int           `yaml:"stalenessDays"`
}

// FilterConfig lists the relevance rules applied to fetched products.
type FilterConfig struct {
	Categories []string `yaml:"categories"`
	Keywords   []string `yaml:"keywords"`
}

// KrogerConfig describes how to reach the product API.
type KrogerConfig struct {
	TokenURL     string        `yaml:"tokenUrl"`
	ProductsURL  string        `yaml:"productsUrl"`
	ClientID     string        `yaml:"clientId"`
	ClientSecret string        `yaml:"clientSecret"`
	Scope        string        `yaml:"scope"`
	SearchTerms  []string      `yaml:"searchTerms"`
	Limit        int           `yaml:"limit"`
	MaxPages     int           `yaml:"maxPages"`
	PageDelay    time.Duration `yaml:"pageDelay"`
	Timeout      time.Duration `yaml:"timeout"`
}

// SchedulerConfig defines when daemon mode runs a batch.
type SchedulerConfig struct {
	Enabled        bool           `yaml:"enabled"`
	RunOnStart     bool           `yaml:"runOnStart"`
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// PostgresConfig enables the optional product mirror when DSN is set.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	APIBase  string `yaml:"apiBase"`
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether digests should be sent.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
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
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(dataDirEnv); v != "" {
		c.Storage.DataDir = v
	}

	if v := os.Getenv(batchSizeEnv); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			c.Batch.Size = n
		} else {
			log.Printf("config: ignoring invalid %s=%q", batchSizeEnv, v)
		}
	}

	if v := os.Getenv(krogerIDEnv); v != "" {
		c.Kroger.ClientID = v
	}

	if v := os.Getenv(krogerSecretEnv); v != "" {
		c.Kroger.ClientSecret = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Postgres.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	base.Storage = mergeStorage(base.Storage, override.Storage)

	if override.Batch.Size > 0 {
		base.Batch.Size = override.Batch.Size
	}
	if override.Batch.PacingDelay > 0 {
		base.Batch.PacingDelay = override.Batch.PacingDelay
	}
	if override.Batch.StalenessDays > 0 {
		base.Batch.StalenessDays = override.Batch.StalenessDays
	}

	if len(override.Filter.Categories) > 0 {
		base.Filter.Categories = override.Filter.Categories
	}
	if len(override.Filter.Keywords) > 0 {
		base.Filter.Keywords = override.Filter.Keywords
	}

	base.Kroger = mergeKroger(base.Kroger, override.Kroger)

	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	if override.Scheduler.RunOnStart {
		base.Scheduler.RunOnStart = true
	}
	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Postgres.DSN != "" {
		base.Postgres = override.Postgres
	}

	if override.Notifications.Telegram.APIBase != "" {
		base.Notifications.Telegram.APIBase = override.Notifications.Telegram.APIBase
	}
	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

func mergeStorage(base, override StorageConfig) StorageConfig {
	if override.DataDir != "" {
		base.DataDir = override.DataDir
	}
	if override.TrackerBackend != "" {
		base.TrackerBackend = strings.ToLower(override.TrackerBackend)
	}
	if override.TrackerFile != "" {
		base.TrackerFile = override.TrackerFile
	}
	if override.TrackerDB != "" {
		base.TrackerDB = override.TrackerDB
	}
	if override.ProductsFile != "" {
		base.ProductsFile = override.ProductsFile
	}
	if override.LocationsFile != "" {
		base.LocationsFile = override.LocationsFile
	}
	if override.LockFile != "" {
		base.LockFile = override.LockFile
	}
	if override.LockTTL > 0 {
		base.LockTTL = override.LockTTL
	}
	return base
}

func mergeKroger(base, override KrogerConfig) KrogerConfig {
	if override.TokenURL != "" {
		base.TokenURL = override.TokenURL
	}
	if override.ProductsURL != "" {
		base.ProductsURL = override.ProductsURL
	}
	if override.ClientID != "" {
		base.ClientID = override.ClientID
	}
	if override.ClientSecret != "" {
		base.ClientSecret = override.ClientSecret
	}
	if override.Scope != "" {
		base.Scope = override.Scope
	}
	if len(override.SearchTerms) > 0 {
		base.SearchTerms = override.SearchTerms
	}
	if override.Limit > 0 {
		base.Limit = override.Limit
	}
	if override.MaxPages > 0 {
		base.MaxPages = override.MaxPages
	}
	if override.PageDelay > 0 {
		base.PageDelay = override.PageDelay
	}
	if override.Timeout > 0 {
		base.Timeout = override.Timeout
	}
	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Storage: StorageConfig{
			DataDir:        "data",
			TrackerBackend: BackendCSV,
			TrackerFile:    "location_tracking.csv",
			TrackerDB:      "location_tracking.db",
			ProductsFile:   "kroger_products.csv",
			LocationsFile:  "kroger_locations.csv",
			LockFile:       "location_tracking.lock",
			LockTTL:        time.Hour,
		},
		Batch: BatchConfig{Size: 10, PacingDelay: 2 * time.Second, StalenessDays: 7},
		Filter: FilterConfig{
			Categories: []string{"Dairy", "Bakery"},
			Keywords:   []string{"egg", "bread"},
		},
		Kroger: KrogerConfig{
			TokenURL:    "https://api.kroger.com/v1/connect/oauth2/token",
			ProductsURL: "https://api.kroger.com/v1/products",
			Scope:       "product.compact",
			SearchTerms: []string{"Eggs", "Bread"},
			Limit:       50,
			MaxPages:    5,
			PageDelay:   time.Second,
			Timeout:     30 * time.Second,
		},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
	}
}
