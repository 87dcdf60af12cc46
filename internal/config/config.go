package config

import (
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "ASSETADMIN_"

type Config struct {
	Port         string `json:"port"`
	CatalogDir   string `json:"catalogDir"`
	ReferenceDir string `json:"referenceDir"`
	DBURL        string `json:"dbUrl"`
	DBMaxConns   int    `json:"dbMaxConns"`
	AutoMigrate  bool   `json:"autoMigrate"`
	FilesRoot    string `json:"filesRoot"`

	// Внешний сервис данных; пусто, всё локально
	UpstreamURL     string        `json:"upstreamUrl"`
	UpstreamToken   string        `json:"upstreamToken"`
	UpstreamTimeout time.Duration `json:"-"`

	// APIToken: bearer для /api; пусто, без проверки
	APIToken string `json:"apiToken"`

	LogLevel    string `json:"logLevel"`
	Environment string `json:"environment"`
	DateFormat  string `json:"dateFormat"`

	SessionTTL time.Duration `json:"-"`
}

func def() Config {
	return Config{
		Port:            "8080",
		CatalogDir:      "catalog",
		ReferenceDir:    "reference",
		DBURL:           "",
		DBMaxConns:      10,
		AutoMigrate:     false,
		FilesRoot:       "uploads",
		UpstreamTimeout: 10 * time.Second,
		LogLevel:        "info",
		Environment:     "development",
		DateFormat:      "2006-01-02",
		SessionTTL:      30 * time.Minute,
	}
}

func loadJSON(path string, c Config) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, err
	}
	return c, nil
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(envPrefix + k); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getenvBool(k string, fallback bool) bool {
	if v, ok := os.LookupEnv(envPrefix + k); ok {
		if b, ok := parseBool(v); ok {
			return b
		}
	}
	return fallback
}

func getenvInt(k string, fallback int) int {
	if v, ok := os.LookupEnv(envPrefix + k); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getenvDuration(k string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(envPrefix + k); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func parseBool(v string) (bool, bool) {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	}
	return false, false
}

// Load: умолчания → JSON (если есть) → .env → ENV → флаги из args.
func Load(jsonPath string, args []string) (Config, error) {
	cfg := def()

	// -config ищем заранее, остальные флаги применяются последними
	jsonPath = configFlag(jsonPath, args)
	if st, err := os.Stat(jsonPath); err == nil && !st.IsDir() {
		c2, err := loadJSON(jsonPath, cfg)
		if err != nil {
			return cfg, err
		}
		cfg = c2
	}

	// .env не обязателен; существующие переменные окружения он не перетирает
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}

	cfg.Port = getenv("PORT", cfg.Port)
	cfg.CatalogDir = getenv("CATALOG_DIR", cfg.CatalogDir)
	cfg.ReferenceDir = getenv("REFERENCE_DIR", cfg.ReferenceDir)
	cfg.DBURL = getenv("DB_URL", cfg.DBURL)
	cfg.DBMaxConns = getenvInt("DB_MAX_CONNS", cfg.DBMaxConns)
	cfg.AutoMigrate = getenvBool("AUTO_MIGRATE", cfg.AutoMigrate)
	cfg.FilesRoot = getenv("FILES_ROOT", cfg.FilesRoot)
	cfg.UpstreamURL = getenv("UPSTREAM_URL", cfg.UpstreamURL)
	cfg.UpstreamToken = getenv("UPSTREAM_TOKEN", cfg.UpstreamToken)
	cfg.UpstreamTimeout = getenvDuration("UPSTREAM_TIMEOUT", cfg.UpstreamTimeout)
	cfg.APIToken = getenv("API_TOKEN", cfg.APIToken)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.Environment = getenv("ENV", cfg.Environment)
	cfg.DateFormat = getenv("DATE_FORMAT", cfg.DateFormat)
	cfg.SessionTTL = getenvDuration("SESSION_TTL", cfg.SessionTTL)

	fs := flag.NewFlagSet("assetadmin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.String("config", jsonPath, "Path to config JSON")
	port := fs.String("port", cfg.Port, "HTTP port")
	catalogDir := fs.String("catalog", cfg.CatalogDir, "Path to catalog directory")
	refDir := fs.String("reference", cfg.ReferenceDir, "Path to reference directory")
	db := fs.String("db", cfg.DBURL, "Postgres URL (empty = in-memory)")
	auto := fs.String("auto-migrate", strconv.FormatBool(cfg.AutoMigrate), "Apply DDL on start (true/false)")
	files := fs.String("files-root", cfg.FilesRoot, "Local files root")
	upstream := fs.String("upstream", cfg.UpstreamURL, "Upstream data service URL (empty = local)")
	logLevel := fs.String("log-level", cfg.LogLevel, "Log level (debug/info/warn/error)")
	env := fs.String("env", cfg.Environment, "Environment (development/production)")
	ttl := fs.Duration("session-ttl", cfg.SessionTTL, "Idle form session TTL")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.Port = strings.TrimSpace(*port)
	cfg.CatalogDir = strings.TrimSpace(*catalogDir)
	cfg.ReferenceDir = strings.TrimSpace(*refDir)
	cfg.DBURL = strings.TrimSpace(*db)
	if b, ok := parseBool(*auto); ok {
		cfg.AutoMigrate = b
	}
	cfg.FilesRoot = strings.TrimSpace(*files)
	cfg.UpstreamURL = strings.TrimSpace(*upstream)
	cfg.LogLevel = strings.TrimSpace(*logLevel)
	cfg.Environment = strings.TrimSpace(*env)
	if *ttl > 0 {
		cfg.SessionTTL = *ttl
	}
	return cfg, nil
}

// configFlag достаёт -config/--config из аргументов
func configFlag(fallback string, args []string) string {
	for i, a := range args {
		name := strings.TrimLeft(a, "-")
		if !strings.HasPrefix(a, "-") {
			continue
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return fallback
}
