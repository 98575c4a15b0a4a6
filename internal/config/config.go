package config // package config loads application configuration from environment variables

import (
    "log" // log is used to report configuration errors and halt execution
    "os"  // os provides access to environment variables
    "strings"

    "github.com/joho/godotenv" // godotenv loads an optional .env file into the environment
)

// DefaultAPIBaseURL is used when API_BASE_URL is unset.
const DefaultAPIBaseURL = "http://127.0.0.1:8000/api"

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Settings for Redis, caching, rate limiting and
// events live in their own Load* functions next to this one.
type Config struct {
    Env        string // application environment (e.g. "dev", "prod")
    Port       string // HTTP port to listen on
    LogLevel   string // zap level name (debug, info, warn, error)
    APIBaseURL string // base URL of the game backend, without trailing slash
    AuthScheme string // scheme word placed before the credential in Authorization

    SessionSecret string // secret used to sign session tokens
    SessionTTLMin int    // session token time-to-live in minutes

    CredentialBackend   string // memory | file | redis | mysql
    CredentialDir       string // directory for the file backend
    CredentialRedisKey  string // key prefix for the redis backend
    CredentialPrefix    string // prefix derived credentials start with
    LegacyHostPrefix    bool   // keep the "test_token_" prefix for host SDK identities
    TelegramBotToken    string // when set, host-encoded payloads must carry a valid hash
    HostHeaderColor     string // color pushed to the host header on launch
    HostBackgroundColor string // color pushed to the host background on launch

    DBUser string // database username
    DBPass string // database password (optional)
    DBHost string // database host address
    DBPort string // database port number
    DBName string // database name
}

// Load reads an optional .env file and then builds a Config from the
// environment.  Outside of the dev environment SESSION_SECRET is required
// and a missing value stops the program with a fatal log message.
func Load() Config {
    _ = godotenv.Load() // a missing .env file is normal in containers

    env := getenv("APP_ENV", "dev")
    secret := os.Getenv("SESSION_SECRET")
    if secret == "" {
        if env != "dev" && env != "test" {
            secret = must("SESSION_SECRET")
        } else {
            secret = "dev-session-secret"
        }
    }

    return Config{
        Env:        env,
        Port:       getenv("APP_PORT", "8080"),
        LogLevel:   getenv("LOG_LEVEL", "info"),
        APIBaseURL: strings.TrimRight(getenv("API_BASE_URL", DefaultAPIBaseURL), "/"),
        AuthScheme: getenv("AUTH_SCHEME", "Bearer"),

        SessionSecret: secret,
        SessionTTLMin: envInt("SESSION_TTL_MIN", 24*60),

        CredentialBackend:   strings.ToLower(getenv("CREDENTIAL_BACKEND", "memory")),
        CredentialDir:       getenv("CREDENTIAL_DIR", "data/credentials"),
        CredentialRedisKey:  getenv("CREDENTIAL_REDIS_PREFIX", "ggame:cred"),
        CredentialPrefix:    getenv("CREDENTIAL_PREFIX", "tg_token_"),
        LegacyHostPrefix:    envBool("CREDENTIAL_LEGACY_HOST_PREFIX", false),
        TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
        HostHeaderColor:     getenv("HOST_HEADER_COLOR", "#141420"),
        HostBackgroundColor: getenv("HOST_BACKGROUND_COLOR", "#0a0a0f"),

        DBUser: getenv("DB_USER", "ggame"),
        DBPass: os.Getenv("DB_PASS"),
        DBHost: getenv("DB_HOST", "127.0.0.1"),
        DBPort: getenv("DB_PORT", "3306"),
        DBName: getenv("DB_NAME", "ggame_gateway"),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}
