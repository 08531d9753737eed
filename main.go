package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Config collects all environment-derived settings. It is built once in main
// and handed to App explicitly.
type Config struct {
	DBDSN          string
	AuthSecret     string
	OpenAIKey      string
	OpenAIModel    string
	AllowedOrigins []string
	Port           string
	RateLimitRPS   float64
	RateLimitBurst int
}

func configFromEnv() Config {
	cfg := Config{
		DBDSN:          os.Getenv("DB_DSN"),
		AuthSecret:     os.Getenv("AUTH_SECRET"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:    os.Getenv("OPENAI_MODEL"),
		Port:           os.Getenv("PORT"),
		RateLimitRPS:   10,
		RateLimitBurst: 30,
	}
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-insecure-secret-change" // development fallback
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.Port == "" {
		cfg.Port = "8081"
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{"http://localhost:3000", "https://localhost:3000"}
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimitBurst = n
		}
	}
	return cfg
}

func main() {
	// Auto-load ./.env if present before reading vars
	loadDotEnv()
	cfg := configFromEnv()
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := openDB(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("database init failed")
	}

	// Lightweight migrate command: `./journalbe migrate` runs AutoMigrate and
	// exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		logger.Info().Msg("migration completed")
		return
	}

	app := &App{
		db:        db,
		validator: newMarkdownValidator(),
		analyzer:  newOpenAIAnalyzer(cfg.OpenAIKey, cfg.OpenAIModel),
		cfg:       cfg,
		log:       logger,
	}

	r := gin.Default()
	app.setupRoutes(r)

	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return // no .env file
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
