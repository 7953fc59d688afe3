package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"signal_bot/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	chatTelegramENV   = "TELEGRAM_CHAT_ID"
	databaseDSN       = "DATABASE_DSN"
	redisAddrENV      = "REDIS_ADDR"
	logLevelENV       = "LOG_LEVEL"
)

// Config ...
type Config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"` // куда уходят алерты и дайджесты
	} `yaml:"telegram"`
	DB    string `yaml:"db_dsn"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	LogLevel string `yaml:"log_level"`

	Service struct {
		Name      string `yaml:"name"`
		AdminPort int    `yaml:"admin_port"`
	} `yaml:"service"`

	Exchange struct {
		BaseURL     string        `yaml:"base_url"`
		WSURL       string        `yaml:"ws_url"`
		Timeout     time.Duration `yaml:"timeout"`
		MinInterval time.Duration `yaml:"min_interval"` // минимум между запросами свечей
		Attempts    int           `yaml:"attempts"`
		Backoff     time.Duration `yaml:"backoff"`
		// Живой снимок тикеров по websocket; старше MaxAge — идём в REST
		TickerStream       bool          `yaml:"ticker_stream"`
		TickerStreamMaxAge time.Duration `yaml:"ticker_stream_max_age"`
	} `yaml:"exchange"`

	Universe struct {
		Suffix      string        `yaml:"suffix"`
		TopN        int           `yaml:"top_n"`
		BatchSize   int           `yaml:"batch_size"`
		SymbolDelay time.Duration `yaml:"symbol_delay"`
		BatchPause  time.Duration `yaml:"batch_pause"`
		Progress    bool          `yaml:"progress"`
	} `yaml:"universe"`

	Scan struct {
		Default string `yaml:"default"` // профиль для /scan без аргумента
		Strict  string `yaml:"strict"`
		Stoch   string `yaml:"stoch"`
	} `yaml:"scan"`

	Monitor struct {
		Profile    string        `yaml:"profile"`
		Watchlist  []string      `yaml:"watchlist"`
		IdlePoll   time.Duration `yaml:"idle_poll"`
		CyclePause time.Duration `yaml:"cycle_pause"`
		Enabled    bool          `yaml:"enabled"` // включить сразу при старте
	} `yaml:"monitor"`

	AutoScan struct {
		Profile  string        `yaml:"profile"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"auto_scan"`

	Movers struct {
		MinMovePct  float64 `yaml:"min_move_pct"`
		Pool        int     `yaml:"pool"`
		TopN        int     `yaml:"top_n"`
		Timeframe   string  `yaml:"timeframe"`
		Limit       int     `yaml:"limit"`
		LevelWindow int     `yaml:"level_window"`
	} `yaml:"movers"`

	Journal struct {
		MemoryLimit int `yaml:"memory_limit"`
		HistorySize int `yaml:"history_size"`
	} `yaml:"journal"`

	Tracing struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	} `yaml:"tracing"`

	// Профиль из файла целиком заменяет встроенный с тем же именем.
	Profiles map[string]models.Profile `yaml:"profiles"`
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	return Load(filepath.Join("configs", configFileName))
}

// Load читает файл поверх дефолтов, применяет env и валидирует.
// Отсутствующий файл — не ошибка: работаем на дефолтах и env.
func Load(path string) (*Config, error) {
	config := Default()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer func() {
			_ = file.Close()
		}()
		fileProfiles := config.Profiles
		config.Profiles = nil
		if err := yaml.NewDecoder(file).Decode(config); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
		for name, p := range config.Profiles {
			if p.Name == "" {
				p.Name = name
			}
			if p.Preset != "" {
				if err := models.ApplyPreset(&p, p.Preset); err != nil {
					return nil, err
				}
			}
			fileProfiles[name] = p
		}
		config.Profiles = fileProfiles
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("open config file %s: %w", path, err)
	}

	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default — значения, с которыми бот работает без конфига.
func Default() *Config {
	c := &Config{LogLevel: "info"}
	c.Service.Name = "signal_bot"
	c.Service.AdminPort = 8080
	c.Redis.Prefix = "signal_bot:cd:"

	c.Exchange.BaseURL = "https://contract.mexc.com"
	c.Exchange.WSURL = "wss://contract.mexc.com/edge"
	c.Exchange.Timeout = 10 * time.Second
	c.Exchange.MinInterval = 100 * time.Millisecond
	c.Exchange.Attempts = 3
	c.Exchange.Backoff = 2 * time.Second
	c.Exchange.TickerStream = true
	c.Exchange.TickerStreamMaxAge = 30 * time.Second

	c.Universe.Suffix = "_USDT"
	c.Universe.TopN = 200
	c.Universe.BatchSize = 50
	c.Universe.SymbolDelay = 300 * time.Millisecond
	c.Universe.BatchPause = 30 * time.Second
	c.Universe.Progress = true

	c.Scan.Default = "ema_touch"
	c.Scan.Strict = "ema_touch_strict"
	c.Scan.Stoch = "stoch"

	c.Monitor.Profile = "watch"
	c.Monitor.Watchlist = []string{"BTC_USDT", "ETH_USDT"}
	c.Monitor.IdlePoll = 5 * time.Second
	c.Monitor.CyclePause = 60 * time.Second

	c.AutoScan.Profile = "ema_touch"
	c.AutoScan.Interval = 5 * time.Minute

	c.Movers.MinMovePct = 3
	c.Movers.Pool = 30
	c.Movers.TopN = 10
	c.Movers.Timeframe = "15m"
	c.Movers.Limit = 100
	c.Movers.LevelWindow = 5

	c.Journal.MemoryLimit = 500
	c.Journal.HistorySize = 10

	c.Tracing.Host = "localhost"
	c.Tracing.Port = 6831

	c.Profiles = models.DefaultProfiles()
	return c
}

func (c *Config) applyEnv() {
	if token := os.Getenv(tokenTelegramENV); token != "" {
		c.Telegram.Token = token
	}
	if v := os.Getenv(chatTelegramENV); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		c.DB = dsn
	}
	if addr := os.Getenv(redisAddrENV); addr != "" {
		c.Redis.Addr = addr
	}
	c.LogLevel = getenvDefault(logLevelENV, c.LogLevel)

	c.Universe.TopN = intFromEnv("TOP_N", c.Universe.TopN)
	c.Universe.BatchSize = intFromEnv("BATCH_SIZE", c.Universe.BatchSize)
	c.Universe.SymbolDelay = durationFromEnv("SYMBOL_DELAY", c.Universe.SymbolDelay)
	c.Universe.BatchPause = durationFromEnv("BATCH_PAUSE", c.Universe.BatchPause)
	c.Exchange.MinInterval = durationFromEnv("FETCH_MIN_INTERVAL", c.Exchange.MinInterval)
	c.Exchange.TickerStream = boolFromEnv("TICKER_STREAM", c.Exchange.TickerStream)
	c.Monitor.CyclePause = durationFromEnv("MONITOR_CYCLE_PAUSE", c.Monitor.CyclePause)
	c.AutoScan.Interval = durationFromEnv("AUTO_SCAN_INTERVAL", c.AutoScan.Interval)
	c.Movers.MinMovePct = floatFromEnv("MIN_MOVE_PCT", c.Movers.MinMovePct)
	c.Tracing.Enabled = boolFromEnv("TRACING_ENABLED", c.Tracing.Enabled)

	if v := os.Getenv("WATCHLIST"); v != "" {
		var list []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				list = append(list, s)
			}
		}
		c.Monitor.Watchlist = list
	}
}

// Validate проверяет то, на чём иначе упадёт сканер уже в работе.
func (c *Config) Validate() error {
	if c.Universe.TopN <= 0 {
		return fmt.Errorf("universe.top_n must be > 0")
	}
	if c.Universe.BatchSize <= 0 {
		return fmt.Errorf("universe.batch_size must be > 0")
	}
	if c.Universe.SymbolDelay < 0 || c.Universe.BatchPause < 0 {
		return fmt.Errorf("universe delays must be >= 0")
	}
	if c.Exchange.Attempts <= 0 {
		return fmt.Errorf("exchange.attempts must be > 0")
	}
	if len(c.Profiles) == 0 {
		return fmt.Errorf("no profiles configured")
	}
	for name, p := range c.Profiles {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("profile %s: %w", name, err)
		}
	}
	for _, ref := range []struct{ key, name string }{
		{"scan.default", c.Scan.Default},
		{"scan.strict", c.Scan.Strict},
		{"scan.stoch", c.Scan.Stoch},
		{"monitor.profile", c.Monitor.Profile},
		{"auto_scan.profile", c.AutoScan.Profile},
	} {
		if _, ok := c.Profiles[ref.name]; !ok {
			return fmt.Errorf("%s: unknown profile %q", ref.key, ref.name)
		}
	}
	if c.AutoScan.Interval <= 0 {
		return fmt.Errorf("auto_scan.interval must be > 0")
	}
	if c.Movers.TopN <= 0 {
		return fmt.Errorf("movers.top_n must be > 0")
	}
	return nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
