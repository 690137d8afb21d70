package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	RosterPath    string
	AllowlistPath string
	RubricPath    string // empty -> compiled-in rubric
	TemplatesDir  string

	SheetID         string
	SheetTab        string
	CredentialsJSON string
	CredentialsFile string

	SessionSecret string
	EmailDomain   string

	TelegramBotToken string
	WebhookURL       string

	LedgerTTL time.Duration
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("bad duration in env %s: %v", k, err)
	}
	return d
}

func Load() *Config {
	// .env подхватываем, если лежит рядом (локальная разработка)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Fatalf("godotenv: %v", err)
		}
	}

	return &Config{
		Port: getEnv("PORT", "8000"),

		RosterPath:    getEnv("ROSTER_PATH", "data/estudiantes.csv"),
		AllowlistPath: getEnv("ALLOWLIST_PATH", "data/evaluadores.csv"),
		RubricPath:    os.Getenv("RUBRIC_PATH"),
		TemplatesDir:  getEnv("TEMPLATES_DIR", "api/web/templates"),

		SheetID:         mustEnv("SHEET_ID"),
		SheetTab:        getEnv("SHEET_TAB", "Hoja 1"),
		CredentialsJSON: os.Getenv("GOOGLE_CREDENTIALS_JSON"),
		CredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", "credentials.json"),

		SessionSecret: getEnv("SESSION_SECRET", "cambia-este-secreto"),
		EmailDomain:   getEnv("ALLOWED_EMAIL_DOMAIN", "utpl.edu.ec"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		WebhookURL:       os.Getenv("WEBHOOK_URL"),

		LedgerTTL: getDuration("LEDGER_TTL", 30*time.Second),
	}
}
