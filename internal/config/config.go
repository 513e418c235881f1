package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// DevSecret is the built-in development signing secret. It exists so
// the service starts with zero configuration on a laptop; any process
// still running on it in production is misconfigured, and Load logs a
// loud warning whenever it is in use.
const DevSecret = "dev-secret-change-in-production"

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable; every one has a local-development default
// so the service boots without a .env file.
type Config struct {
	Env             string        // application environment (dev/test/prod)
	Port            string        // HTTP port to listen on
	DBUser          string        // database username
	DBPass          string        // database password (optional)
	DBHost          string        // database host address
	DBPort          string        // database port number
	DBName          string        // database name
	JWTSecret       string        // secret used to sign session tokens
	AccessTTL       time.Duration // session token time-to-live
	SSOTTL          time.Duration // SSO handoff token time-to-live
	BcryptCost      int           // bcrypt cost for password hashing
	StorageRoot     string        // directory holding uploaded blobs
	OllamaURL       string        // base URL of the local analysis service
	OllamaModel     string        // model name used for analysis prompts
	MayanURL        string        // base URL of the Mayan EDMS instance
	MayanUser       string        // Mayan API username
	MayanPass       string        // Mayan API password
	MayanEnabled    bool          // mirror uploads to Mayan when true
	UploadAdminOnly bool          // restrict document upload to admins when true
}

// Load reads configuration from the environment. It never fails: every
// value is defaulted for local development. Defaults that would be
// dangerous in production (the signing secret in particular) are
// reported on startup instead of being silently trusted.
func Load() Config {
	cfg := Config{
		Env:             getenv("APP_ENV", "dev"),
		Port:            getenv("APP_PORT", "8001"),
		DBUser:          getenv("DB_USER", "root"),
		DBPass:          os.Getenv("DB_PASS"), // empty allowed
		DBHost:          getenv("DB_HOST", "localhost"),
		DBPort:          getenv("DB_PORT", "3306"),
		DBName:          getenv("DB_NAME", "coffre_fort"),
		JWTSecret:       getenv("JWT_SECRET", DevSecret),
		AccessTTL:       time.Duration(envInt("ACCESS_TOKEN_TTL_MIN", 30)) * time.Minute,
		SSOTTL:          time.Duration(envInt("SSO_TOKEN_TTL_MIN", 60)) * time.Minute,
		BcryptCost:      envInt("BCRYPT_COST", 10),
		StorageRoot:     getenv("STORAGE_ROOT", "storage/documents"),
		OllamaURL:       getenv("OLLAMA_API_URL", "http://localhost:11434"),
		OllamaModel:     getenv("OLLAMA_MODEL", "mistral"),
		MayanURL:        getenv("MAYAN_API_URL", "http://localhost:8000"),
		MayanUser:       getenv("MAYAN_ADMIN_USERNAME", "admin"),
		MayanPass:       getenv("MAYAN_ADMIN_PASSWORD", ""),
		MayanEnabled:    envBool("MAYAN_ENABLED", false),
		UploadAdminOnly: envBool("UPLOAD_ADMIN_ONLY", false),
	}
	if cfg.JWTSecret == DevSecret {
		log.Printf("config: JWT_SECRET is the built-in development default; set a real secret before deploying")
	}
	return cfg
}

// getenv returns the value of key or def when unset/empty.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt reads an integer variable, falling back to def on absence or a
// value that does not parse.
func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("config: invalid int for %s: %q, using %d", key, s, def)
		return def
	}
	return n
}

// envBool treats "true" and "1" (case-insensitive) as true.
func envBool(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	return strings.EqualFold(s, "true") || s == "1"
}

// envDur parses a Go duration string, falling back to def.
func envDur(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("config: invalid duration for %s: %q, using %s", key, s, def)
		return def
	}
	return d
}
