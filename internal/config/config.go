package config

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Sheets struct {
	SpreadsheetID string
	KeyBase64     string
	OrdersSheet   string
	ProductsSheet string
}

type Cache struct {
	TTL time.Duration
}

type Queue struct {
	Attempts    int
	BackoffBase time.Duration
	BatchDelay  time.Duration
	DedupeSize  int
}

type Breaker struct {
	Threshold   uint32
	OpenTimeout time.Duration
	MaxHalfOpen uint32
}

type Auth struct {
	Secret   string
	Issuer   string
	Audience string
}

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type ImageHost struct {
	Endpoint string
	APIKey   string
}

type Kafka struct {
	Brokers []string
	Topic   string
}

type Config struct {
	HTTPAddr string

	Sheets    Sheets
	Cache     Cache
	Queue     Queue
	Breaker   Breaker
	Auth      Auth
	SMTP      SMTP
	ImageHost ImageHost
	Kafka     Kafka
}

// Load keeps the original API and fatals on error for simplicity in main().
func Load() Config {
	cfg, err := load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	return cfg
}

func load() (Config, error) {
	_ = godotenv.Load("env/.env")

	cfg := Config{
		HTTPAddr: envDefault("HTTP_ADDR", ":8080"),

		Sheets: Sheets{
			SpreadsheetID: strings.TrimSpace(os.Getenv("SPREADSHEET_ID")),
			KeyBase64:     strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_KEY_BASE64")),
			OrdersSheet:   envDefault("SHEET_ORDERS", "Orders"),
			ProductsSheet: envDefault("SHEET_PRODUCTS", "Products"),
		},

		Cache: Cache{
			TTL: envDurationMS("CACHE_TTL", 5*time.Minute),
		},

		Queue: Queue{
			Attempts:    envInt("QUEUE_ATTEMPTS", 3),
			BackoffBase: envDurationMS("QUEUE_BACKOFF_BASE", time.Second),
			BatchDelay:  envDurationMS("QUEUE_BATCH_DELAY", 500*time.Millisecond),
			DedupeSize:  envInt("QUEUE_DEDUPE_SIZE", 1024),
		},

		Breaker: Breaker{
			Threshold:   envUint32("BREAKER_THRESHOLD", 5),
			OpenTimeout: envDurationMS("BREAKER_OPENTIMEOUT", 10*time.Second),
			MaxHalfOpen: envUint32("BREAKER_MAXHALFOPEN", 3),
		},

		Auth: Auth{
			Secret:   strings.TrimSpace(os.Getenv("JWT_SECRET")),
			Issuer:   strings.TrimSpace(os.Getenv("JWT_ISSUER")),
			Audience: strings.TrimSpace(os.Getenv("JWT_AUDIENCE")),
		},

		SMTP: SMTP{
			Host:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
			Port:     envInt("SMTP_PORT", 587),
			Username: strings.TrimSpace(os.Getenv("SMTP_USERNAME")),
			Password: strings.TrimSpace(os.Getenv("SMTP_PASSWORD")),
			From:     strings.TrimSpace(os.Getenv("SMTP_FROM")),
		},

		ImageHost: ImageHost{
			Endpoint: envDefault("IMGHOST_ENDPOINT", "https://api.imgbb.com/1/upload"),
			APIKey:   strings.TrimSpace(os.Getenv("IMGHOST_API_KEY")),
		},

		Kafka: Kafka{
			Brokers: splitCSV(strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))),
			Topic:   envDefault("KAFKA_TOPIC", "order-events"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var missing []string
	req := map[string]string{
		"SPREADSHEET_ID":                    c.Sheets.SpreadsheetID,
		"GOOGLE_SERVICE_ACCOUNT_KEY_BASE64": c.Sheets.KeyBase64,
		"JWT_SECRET":                        c.Auth.Secret,
	}
	for k, v := range req {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return &missingEnvError{Keys: missing}
	}

	if c.Cache.TTL <= 0 {
		log.Printf("CACHE_TTL is %v, adjusting to 1s", c.Cache.TTL)
	}
	if c.Queue.Attempts <= 0 {
		log.Printf("QUEUE_ATTEMPTS is %d, adjusting to 1", c.Queue.Attempts)
	}
	if c.Queue.BackoffBase <= 0 {
		log.Printf("QUEUE_BACKOFF_BASE is %v, adjusting to 1s", c.Queue.BackoffBase)
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return &missingEnvError{Keys: []string{"SMTP_FROM"}}
	}
	return nil
}

type missingEnvError struct{ Keys []string }

func (e *missingEnvError) Error() string {
	return "missing required envs: " + strings.Join(e.Keys, ", ")
}

// ServiceAccountJSON decodes the base64-encoded service account key.
// The key is kept encoded in the environment so it survives .env files and
// container env blocks as a single line (see scripts in the deploy repo).
func (s Sheets) ServiceAccountJSON() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s.KeyBase64)
	if err != nil {
		return nil, fmt.Errorf("decode GOOGLE_SERVICE_ACCOUNT_KEY_BASE64: %w", err)
	}
	return raw, nil
}

func envDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d: %v", k, v, def, err)
		return def
	}
	return n
}

func envUint32(k string, def uint32) uint32 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	u, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d: %v", k, v, def, err)
		return def
	}
	return uint32(u)
}

// envDurationMS supports either plain integer milliseconds ("1500") or
// Go duration strings ("1.5s", "250ms", "2m").
func envDurationMS(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if strings.IndexFunc(v, func(r rune) bool { return r < '0' || r > '9' }) != -1 {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid %s=%q, using default %v: %v", k, v, def, err)
			return def
		}
		return d
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %v: %v", k, v, def, err)
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
