package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"idsync/pkg/platform/strings"
)

// Registry captures how to reach the remote workforce registry.
type Registry struct {
	BaseURL        string        `yaml:"base_url"`
	ClientID       string        `yaml:"client_id"`
	ClientSecret   string        `yaml:"client_secret"`
	TokenPath      string        `yaml:"token_path"`
	ListPath       string        `yaml:"list_path"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
}

// Sync holds the reconciliation policy knobs.
type Sync struct {
	Deadline           time.Duration  `yaml:"deadline"`
	ChunkSize          int            `yaml:"chunk_size"`
	ActiveStatusCodes  []int          `yaml:"active_status_codes"`
	StatusLabels       map[int]string `yaml:"status_labels"`
	ReservedAccountIDs []int64        `yaml:"reserved_account_ids"`
	DrainTimeout       time.Duration  `yaml:"drain_timeout"`
	Interval           time.Duration  `yaml:"interval"`
	LockTTL            time.Duration  `yaml:"lock_ttl"`
}

type Database struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// RedisConfig mirrors the go-redis options we override.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PayloadTTL   time.Duration `yaml:"payload_ttl"`
}

type Kafka struct {
	Brokers     []string `yaml:"brokers"`
	ReportTopic string   `yaml:"report_topic"`
}

type Admin struct {
	Addr  string `yaml:"addr"`
	Token string `yaml:"token"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the complete engine configuration. It is passed explicitly to
// every constructor; nothing reads the environment after Load returns.
type Config struct {
	Registry Registry    `yaml:"registry"`
	Sync     Sync        `yaml:"sync"`
	Database Database    `yaml:"database"`
	Redis    RedisConfig `yaml:"redis"`
	Kafka    Kafka       `yaml:"kafka"`
	Admin    Admin       `yaml:"admin"`
	Log      Log         `yaml:"log"`
}

// Status codes the registry uses for people who should have access.
const (
	StatusActive    = 1
	StatusInProcess = 2
	StatusHired     = 3
)

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Registry: Registry{
			TokenPath:      "/auth/token",
			ListPath:       "/employees",
			ConnectTimeout: 5 * time.Second,
			ReadTimeout:    20 * time.Second,
		},
		Sync: Sync{
			Deadline:          4 * time.Minute,
			ChunkSize:         100,
			ActiveStatusCodes: []int{StatusActive, StatusInProcess, StatusHired},
			StatusLabels: map[int]string{
				StatusActive:    "active",
				StatusInProcess: "in_process",
				StatusHired:     "hired",
			},
			ReservedAccountIDs: []int64{1, 2},
			DrainTimeout:       30 * time.Second,
			Interval:           time.Hour,
			LockTTL:            10 * time.Minute,
		},
		Database: Database{MaxOpenConns: 10},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 1,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PayloadTTL:   7 * 24 * time.Hour,
		},
		Kafka: Kafka{ReportTopic: "idsync.reports"},
		Admin: Admin{Addr: ":8081"},
		Log:   Log{Level: "info", Format: "json"},
	}
}

// Load builds a Config from defaults, an optional YAML file and IDSYNC_*
// environment variables, in that order of precedence. A .env file in the
// working directory is loaded first when present.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		// yaml.v3 merges into a non-nil map, so a file listing status_labels
		// must start from an empty one to be able to drop a default label.
		defaultLabels := cfg.Sync.StatusLabels
		cfg.Sync.StatusLabels = nil
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
		if cfg.Sync.StatusLabels == nil {
			cfg.Sync.StatusLabels = defaultLabels
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a Config from defaults and environment only.
func FromEnv() (Config, error) {
	return Load("")
}

// Validate checks the invariants the engine relies on.
func (c Config) Validate() error {
	var errs []error
	if c.Sync.ChunkSize <= 0 {
		errs = append(errs, errors.New("sync.chunk_size must be positive"))
	}
	if c.Sync.Deadline <= 0 {
		errs = append(errs, errors.New("sync.deadline must be positive"))
	}
	if len(c.Sync.ActiveStatusCodes) == 0 {
		errs = append(errs, errors.New("sync.active_status_codes must not be empty"))
	}
	if c.Registry.BaseURL == "" {
		errs = append(errs, errors.New("registry.base_url is required"))
	}
	return errors.Join(errs...)
}

func applyEnv(cfg *Config) error {
	var errs []error

	setString(&cfg.Registry.BaseURL, "IDSYNC_REGISTRY_URL")
	setString(&cfg.Registry.ClientID, "IDSYNC_REGISTRY_CLIENT_ID")
	setString(&cfg.Registry.ClientSecret, "IDSYNC_REGISTRY_CLIENT_SECRET")
	setString(&cfg.Database.URL, "IDSYNC_DATABASE_URL")
	setString(&cfg.Redis.URL, "IDSYNC_REDIS_URL")
	setString(&cfg.Kafka.ReportTopic, "IDSYNC_KAFKA_REPORT_TOPIC")
	setString(&cfg.Admin.Addr, "IDSYNC_ADMIN_ADDR")
	setString(&cfg.Admin.Token, "IDSYNC_ADMIN_TOKEN")
	setString(&cfg.Log.Level, "IDSYNC_LOG_LEVEL")
	setString(&cfg.Log.Format, "IDSYNC_LOG_FORMAT")

	if v := os.Getenv("IDSYNC_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.SplitList(v)
	}

	errs = append(errs,
		setDuration(&cfg.Sync.Deadline, "IDSYNC_SYNC_DEADLINE"),
		setDuration(&cfg.Sync.Interval, "IDSYNC_SYNC_INTERVAL"),
		setDuration(&cfg.Sync.DrainTimeout, "IDSYNC_SYNC_DRAIN_TIMEOUT"),
		setDuration(&cfg.Sync.LockTTL, "IDSYNC_SYNC_LOCK_TTL"),
		setDuration(&cfg.Registry.ConnectTimeout, "IDSYNC_REGISTRY_CONNECT_TIMEOUT"),
		setDuration(&cfg.Registry.ReadTimeout, "IDSYNC_REGISTRY_READ_TIMEOUT"),
		setInt(&cfg.Sync.ChunkSize, "IDSYNC_SYNC_CHUNK_SIZE"),
	)

	if v := os.Getenv("IDSYNC_SYNC_ACTIVE_STATUS_CODES"); v != "" {
		codes := make([]int, 0)
		for _, s := range strings.SplitList(v) {
			n, err := strconv.Atoi(s)
			if err != nil {
				errs = append(errs, fmt.Errorf("IDSYNC_SYNC_ACTIVE_STATUS_CODES: %w", err))
				continue
			}
			codes = append(codes, n)
		}
		cfg.Sync.ActiveStatusCodes = codes
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
