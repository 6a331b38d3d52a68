package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by CREDENCE_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CREDENCE_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// StoreBackend returns where contexts are kept.
// Defaults to "postgres" when DATABASE_URL is set, "memory" otherwise.
// Valid values: postgres, memory
func StoreBackend() string {
	if b := os.Getenv("STORE_BACKEND"); b != "" {
		return b
	}
	if DatabaseURL() != "" {
		return "postgres"
	}
	return "memory"
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// CredencePolicy returns the policy used when a request names none.
func CredencePolicy() string {
	p := os.Getenv("CREDENCE_POLICY")
	if p == "" {
		return "may_subject"
	}
	return p
}

// SubjectInvestigator returns the investigator for the subject role.
// Defaults to "http". Valid values: http, null
func SubjectInvestigator() string {
	i := os.Getenv("SUBJECT_INVESTIGATOR")
	if i == "" {
		return "http"
	}
	return i
}

// LocalInvestigator returns the investigator for the local role.
// Empty means local contexts are only ever asserted, never pursued.
func LocalInvestigator() string {
	return os.Getenv("LOCAL_INVESTIGATOR")
}

// PursuedRoles returns the comma-separated roles investigated on each
// resolution. Defaults to "subject".
func PursuedRoles() []string {
	raw := os.Getenv("PURSUED_ROLES")
	if raw == "" {
		return []string{"subject"}
	}
	var roles []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// FailureMode returns skip or abort. Defaults to "skip".
func FailureMode() string {
	m := os.Getenv("FAILURE_MODE")
	if m == "" {
		return "skip"
	}
	return m
}

func InvestigationTimeout() time.Duration {
	return duration("INVESTIGATION_TIMEOUT", 10*time.Second)
}

// RequestTimeout bounds each /v1 request, fetches included. "0" disables it.
func RequestTimeout() time.Duration {
	return duration("REQUEST_TIMEOUT", 30*time.Second)
}

// FreshnessTTL returns how long stored contexts are reused. "0" disables
// expiry.
func FreshnessTTL() time.Duration {
	return duration("FRESHNESS_TTL", time.Hour)
}

func ResolveConcurrency() int {
	n, err := strconv.Atoi(os.Getenv("RESOLVE_CONCURRENCY"))
	if err != nil || n <= 0 {
		return 8
	}
	return n
}

// FetchRPS limits outbound requests per second across all pursuits.
func FetchRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("FETCH_RPS"), 64)
	if err != nil || rps <= 0 {
		return 5
	}
	return rps
}

func FetchBurst() int {
	burst, err := strconv.Atoi(os.Getenv("FETCH_BURST"))
	if err != nil || burst <= 0 {
		return 5
	}
	return burst
}

func FetchMaxBodyBytes() int64 {
	n, err := strconv.ParseInt(os.Getenv("FETCH_MAX_BODY_BYTES"), 10, 64)
	if err != nil || n <= 0 {
		return 4 << 20
	}
	return n
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// APIKey returns the bearer token required on /v1 routes. Empty disables
// authentication.
func APIKey() string {
	return os.Getenv("API_KEY")
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

func duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return def
	}
	return d
}
