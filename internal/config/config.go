package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Retrieval holds the tunable constants of the search pipeline. The score
// floors and field weights were chosen empirically against the production
// corpus; override them via env, do not re-derive them in code.
type Retrieval struct {
	MinScore      float64 // floor below which a hit is dropped
	StrongScore   float64 // hits at or above skip the platform/resource filters
	OverrideScore float64 // similarity that overrides a metadata exclusion
	MaxResults    int     // cap handed to the answer-synthesis step

	NameWeight        float64
	DisplayNameWeight float64
	TagWeight         float64
	DescriptionWeight float64
	BodyWeight        float64

	BundleTextCap int // chars of long-form bundle text fed to the embedder
	PageTextCap   int // chars of a crawled documentation page
}

// MaxFieldScore is the highest keyword score a single record can reach,
// used to normalize keyword scores into [0,1] before thresholding.
func (r Retrieval) MaxFieldScore() float64 {
	return r.NameWeight + r.DisplayNameWeight + r.TagWeight + r.DescriptionWeight + r.BodyWeight
}

type Config struct {
	MongoURI    string
	DBName      string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Redis (asynq backend + rate limiting)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Admin auth
	JWTSecret         string
	JWTExpiresIn      string
	AdminPasswordHash string

	RateLimitReqs   int
	RateLimitWindow int

	// Gemini
	GeminiAPIKey        string
	GeminiModel         string
	GeminiTier          string
	EmbeddingsModel     string
	EmbeddingDimensions int
	EmbeddingTimeout    int // seconds per batch call

	// Vector store
	SnapshotPath string

	// Ingestion
	DocSites    []string
	CrawlCron   string
	ReindexCron string

	// Telemetry
	TracingEnabled bool
	OTLPEndpoint   string

	Retrieval Retrieval
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/registry"),
		DBName:      getEnv("DB_NAME", "registry"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTExpiresIn:      getEnv("JWT_EXPIRES_IN", "24h"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTier:          getEnv("GEMINI_TIER", "free"),
		EmbeddingsModel:     getEnv("EMBEDDINGS_MODEL", "text-embedding-004"),
		EmbeddingDimensions: getEnvInt("EMBEDDING_DIM", 1536),
		EmbeddingTimeout:    getEnvInt("EMBEDDING_TIMEOUT", 30),

		SnapshotPath: getEnv("SNAPSHOT_PATH", "./storage/vectors.gob"),

		DocSites:    splitNonEmpty(getEnv("DOC_SITES", "")),
		CrawlCron:   getEnv("CRAWL_CRON", "0 3 * * *"),
		ReindexCron: getEnv("REINDEX_CRON", "0 4 * * *"),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),

		Retrieval: Retrieval{
			MinScore:          getEnvFloat64("RETRIEVAL_MIN_SCORE", 0.58),
			StrongScore:       getEnvFloat64("RETRIEVAL_STRONG_SCORE", 0.64),
			OverrideScore:     getEnvFloat64("RETRIEVAL_OVERRIDE_SCORE", 0.70),
			MaxResults:        getEnvInt("RETRIEVAL_MAX_RESULTS", 5),
			NameWeight:        getEnvFloat64("RETRIEVAL_NAME_WEIGHT", 4),
			DisplayNameWeight: getEnvFloat64("RETRIEVAL_DISPLAY_NAME_WEIGHT", 3),
			TagWeight:         getEnvFloat64("RETRIEVAL_TAG_WEIGHT", 3),
			DescriptionWeight: getEnvFloat64("RETRIEVAL_DESCRIPTION_WEIGHT", 1),
			BodyWeight:        getEnvFloat64("RETRIEVAL_BODY_WEIGHT", 1),
			BundleTextCap:     getEnvInt("RETRIEVAL_BUNDLE_TEXT_CAP", 2000),
			PageTextCap:       getEnvInt("RETRIEVAL_PAGE_TEXT_CAP", 12000),
		},
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required - set it in .env file")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
	}

	return cfg, nil
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
