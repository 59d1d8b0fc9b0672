package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/alextreichler/shopfront/internal/state"
)

type Config struct {
	Port           string
	APIBaseURL     string
	DBPath         string
	CSRFKey        []byte
	SessionKey     []byte
	CookieDomain   string
	CookieSecure   bool
	RequestTimeout time.Duration
	SessionTTL     time.Duration
	ShopName       string
	SlicePolicy    state.Policy
	// TrustedProxies may set X-Forwarded-For. Empty means the peer address
	// is the client.
	TrustedProxies []string
}

// LoadDotEnv loads a .env file from the working directory if there is one.
// Variables already set in the environment win.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}
}

func LoadConfig() (*Config, error) {
	LoadDotEnv()

	cfg := &Config{
		Port:           getEnv("PORT", "8585"),
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:5000"),
		DBPath:         getEnv("DB_PATH", "./shopfront.db"),
		CookieDomain:   getEnv("COOKIE_DOMAIN", ""),
		CookieSecure:   getEnv("COOKIE_SECURE", "false") == "true",
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 15*time.Second),
		SessionTTL:     getDuration("SESSION_TTL", 24*time.Hour),
		ShopName:       getEnv("SHOP_NAME", "Shopfront"),
	}

	policy, err := state.ParsePolicy(getEnv("SLICE_POLICY", ""))
	if err != nil {
		return nil, err
	}
	cfg.SlicePolicy = policy

	for _, p := range strings.Split(getEnv("TRUSTED_PROXIES", ""), ",") {
		if p = strings.TrimSpace(p); p != "" {
			cfg.TrustedProxies = append(cfg.TrustedProxies, p)
		}
	}

	cfg.CSRFKey = loadKey("CSRF_KEY")
	cfg.SessionKey = loadKey("SESSION_KEY")

	// Make sure port is valid
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Error("Invalid PORT environment variable. Falling back to default.", "PORT", os.Getenv("PORT"))
		cfg.Port = "8585"
	}

	return cfg, nil
}

// DevAPIConfig configures the local development backend.
type DevAPIConfig struct {
	Port              string
	JWTSecret         []byte
	RazorpayKeyID     string
	RazorpayKeySecret string
	// FrontendOrigin is allowed to send credentialed cross-origin requests.
	FrontendOrigin string
}

func LoadDevAPIConfig() (*DevAPIConfig, error) {
	LoadDotEnv()

	cfg := &DevAPIConfig{
		Port:              getEnv("DEVAPI_PORT", "5000"),
		RazorpayKeyID:     getEnv("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
		FrontendOrigin:    getEnv("FRONTEND_ORIGIN", "http://localhost:8585"),
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, errors.New("config: DEVAPI_PORT must be numeric")
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWTSecret = []byte(secret)
	} else {
		slog.Warn("JWT_SECRET environment variable not set. Generating a random secret; sessions will be invalid on restart.")
		cfg.JWTSecret = generateRandomBytes(32)
	}

	if (cfg.RazorpayKeyID == "") != (cfg.RazorpayKeySecret == "") {
		return nil, errors.New("config: RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set together")
	}
	return cfg, nil
}

// loadKey decodes a base64 key of at least 32 bytes, generating a random one
// for development when it is missing or invalid.
func loadKey(name string) []byte {
	raw := os.Getenv(name)
	if raw == "" {
		slog.Warn(name + " environment variable not set. Generating a random key for development. This key will change on each restart. PLEASE SET " + name + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(decoded) < 32 {
		slog.Warn(name + " is invalid or too short (min 32 bytes recommended). Generating a random key for development. PLEASE SET A SECURE " + name + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	return decoded
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("Invalid duration, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return d
}

// generateRandomBytes generates a random byte slice of specified length
// Uses crypto/rand for secure random numbers.
func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		slog.Error("Failed to read random bytes", "error", err)
		fallbackKey := "fallback-insecure-key-" + strconv.FormatInt(time.Now().UnixNano(), 10)
		if len(fallbackKey) < n {
			paddedKey := make([]byte, n)
			copy(paddedKey, fallbackKey)
			return paddedKey
		}
		return []byte(fallbackKey)[:n]
	}
	return b
}
