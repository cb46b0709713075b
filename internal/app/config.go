package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr         string
	RequestTimeout   time.Duration
	LogLevel         string
	LogFormat        string
	UserAgent        string
	CORSOrigins      []string
	RateLimitRPS     float64
	RateLimitBurst   int
	AuthRatePerMin   int
	OTLPEndpoint     string
	TraceSampleRatio float64

	TMDBAPIKey      string
	TMDBAccessToken string
	TMDBBaseURL     string
	TMDBLanguage    string
	TMDBCacheTTL    time.Duration
	RedisURL        string

	MongoURI      string
	MongoDatabase string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CookieSecure    bool

	GeminiAPIKey string
	GeminiModel  string

	SearchDebounce time.Duration
	TrendingLimit  int
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8000"),
		RequestTimeout:   time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:        getEnv("LUMIERE_USER_AGENT", "lumiere/1.0"),
		CORSOrigins:      parseList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RateLimitRPS:     float64(getEnvInt("RATE_LIMIT_RPS", 50)),
		RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 100),
		AuthRatePerMin:   getEnvInt("AUTH_RATE_LIMIT_PER_MINUTE", 5),
		OTLPEndpoint:     strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		TraceSampleRatio: getEnvFloat("OTEL_TRACE_SAMPLE_RATIO", 1),

		TMDBAPIKey:      strings.TrimSpace(os.Getenv("TMDB_API_KEY")),
		TMDBAccessToken: strings.TrimSpace(os.Getenv("TMDB_ACCESS_TOKEN")),
		TMDBBaseURL:     getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBLanguage:    getEnv("TMDB_LANGUAGE", "en-US"),
		TMDBCacheTTL:    time.Duration(getEnvInt("TMDB_CACHE_TTL_MINUTES", 30)) * time.Minute,
		RedisURL:        getEnv("REDIS_URL", ""),

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DB", "movie_review_db"),

		JWTSecret:       strings.TrimSpace(os.Getenv("JWT_SECRET")),
		AccessTokenTTL:  time.Duration(getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 30)) * time.Minute,
		RefreshTokenTTL: time.Duration(getEnvInt("REFRESH_TOKEN_TTL_DAYS", 30)) * 24 * time.Hour,
		CookieSecure:    getEnvBool("COOKIE_SECURE", true),

		GeminiAPIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		SearchDebounce: time.Duration(getEnvInt("SEARCH_DEBOUNCE_MS", 1500)) * time.Millisecond,
		TrendingLimit:  getEnvInt("SEARCH_TRENDING_LIMIT", 10),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimRight(strings.TrimSpace(part), "/")
		if value == "" {
			continue
		}
		out = append(out, value)
	}
	return out
}
