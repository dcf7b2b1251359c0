package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

const (
	SourceGoogleSheets = "gsheets"
	SourceXLSX         = "xlsx"
	SourceSQLite       = "sqlite"
)

type Config struct {
	Env        string       `toml:"env"`
	LogLevel   string       `toml:"log_level"`
	ListenAddr string       `toml:"listen_addr"`
	Source     SourceConfig `toml:"source"`
	Cache      CacheConfig  `toml:"cache"`
	Search     SearchConfig `toml:"search"`
	Access     AccessConfig `toml:"access"`
	Bot        BotConfig    `toml:"bot"`
}

type SourceConfig struct {
	Type               string   `toml:"type"`
	SpreadsheetID      string   `toml:"spreadsheet_id"`
	ServiceAccountJSON string   `toml:"service_account_json"`
	ServiceAccountFile string   `toml:"service_account_file"`
	ValueRenderOption  string   `toml:"value_render_option"`
	Path               string   `toml:"path"`
	Timezone           string   `toml:"timezone"`
	FetchTimeout       Duration `toml:"fetch_timeout"`
}

type CacheConfig struct {
	TTL          Duration `toml:"ttl"`
	MaxSheetRows int      `toml:"max_sheet_rows"`
}

type SearchConfig struct {
	MaxResults int `toml:"max_results"`
}

type AccessConfig struct {
	APIKey          string   `toml:"api_key"`
	APIKeyHeader    string   `toml:"api_key_header"`
	AllowedUserIDs  []string `toml:"allowed_user_ids"`
	RateLimitPerMin int      `toml:"rate_limit_per_min"`
}

type BotConfig struct {
	TelegramToken string `toml:"telegram_token"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func GetDefaultConfig() *Config {
	return &Config{
		Env:        "dev",
		ListenAddr: ":8080",
		Source: SourceConfig{
			Type:              SourceGoogleSheets,
			ValueRenderOption: "FORMATTED_VALUE",
			Timezone:          "UTC",
			FetchTimeout:      Duration{15 * time.Second},
		},
		Cache: CacheConfig{
			TTL:          Duration{300 * time.Second},
			MaxSheetRows: 50000,
		},
		Search: SearchConfig{MaxResults: 20},
		Access: AccessConfig{
			APIKeyHeader:    "x-api-key",
			RateLimitPerMin: 60,
		},
	}
}

// LoadConfig reads configPath when it exists, fills unset values with
// defaults and applies environment overrides. A missing file is not an
// error: the service can be configured from the environment alone.
func LoadConfig(configPath string) (*Config, error) {
	cfg := GetDefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("unmarshaling config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.fillDefaults()

	return cfg, nil
}

func (c *Config) fillDefaults() {
	def := GetDefaultConfig()
	if c.Env == "" {
		c.Env = def.Env
	}
	if c.LogLevel == "" {
		c.LogLevel = "DEBUG"
		if c.IsProduction() {
			c.LogLevel = "INFO"
		}
	}
	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
	if c.Source.Type == "" {
		c.Source.Type = def.Source.Type
	}
	if c.Source.ValueRenderOption == "" {
		c.Source.ValueRenderOption = def.Source.ValueRenderOption
	}
	if c.Source.Timezone == "" {
		c.Source.Timezone = def.Source.Timezone
	}
	if c.Source.FetchTimeout.Duration == 0 {
		c.Source.FetchTimeout = def.Source.FetchTimeout
	}
	if c.Access.APIKeyHeader == "" {
		c.Access.APIKeyHeader = def.Access.APIKeyHeader
	}
}

// applyEnv overrides file values with the process environment.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer: %q", ErrInvalid, name, v)
		}
		*dst = n
		return nil
	}

	str("ENV", &c.Env)
	str("LOG_LEVEL", &c.LogLevel)
	str("LISTEN_ADDR", &c.ListenAddr)
	str("SOURCE_TYPE", &c.Source.Type)
	str("SPREADSHEET_ID", &c.Source.SpreadsheetID)
	str("GOOGLE_SERVICE_ACCOUNT_JSON", &c.Source.ServiceAccountJSON)
	str("GOOGLE_SERVICE_ACCOUNT_FILE", &c.Source.ServiceAccountFile)
	str("SOURCE_PATH", &c.Source.Path)
	str("API_KEY", &c.Access.APIKey)
	str("X_API_KEY_HEADER_NAME", &c.Access.APIKeyHeader)
	str("TELEGRAM_BOT_TOKEN", &c.Bot.TelegramToken)

	if v, ok := lookup("ALLOWED_USER_IDS"); ok {
		c.Access.AllowedUserIDs = SplitCSV(v)
	}

	ttlSeconds := -1
	if err := num("CACHE_TTL", &ttlSeconds); err != nil {
		return err
	}
	if ttlSeconds >= 0 {
		c.Cache.TTL = Duration{time.Duration(ttlSeconds) * time.Second}
	}
	if err := num("RATE_LIMIT_PER_MIN", &c.Access.RateLimitPerMin); err != nil {
		return err
	}
	if err := num("MAX_SEARCH_RESULTS", &c.Search.MaxResults); err != nil {
		return err
	}
	return num("MAX_SHEET_ROWS", &c.Cache.MaxSheetRows)
}

// SplitCSV splits a comma separated list, dropping blank items.
func SplitCSV(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate reports configuration that would make the service unusable.
func (c *Config) Validate() error {
	switch c.Source.Type {
	case SourceGoogleSheets:
		if c.Source.SpreadsheetID == "" {
			return fmt.Errorf("%w: source.spreadsheet_id is required for %s", ErrInvalid, c.Source.Type)
		}
	case SourceXLSX, SourceSQLite:
		if c.Source.Path == "" {
			return fmt.Errorf("%w: source.path is required for %s", ErrInvalid, c.Source.Type)
		}
	default:
		return fmt.Errorf("%w: unknown source type %q", ErrInvalid, c.Source.Type)
	}
	if c.Cache.TTL.Duration < 0 {
		return fmt.Errorf("%w: cache.ttl must not be negative", ErrInvalid)
	}
	if c.Source.FetchTimeout.Duration <= 0 {
		return fmt.Errorf("%w: source.fetch_timeout must be positive", ErrInvalid)
	}
	return nil
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(configPath, []byte(configTemplate), 0600)
}

// GetConfigDir returns the configuration directory for crmdesk
func GetConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "crmdesk"), nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
