package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port            string   `mapstructure:"port"`
	Env             string   `mapstructure:"env"`
	LogLevel        string   `mapstructure:"log_level"`
	CORSAllowOrigin []string `mapstructure:"cors_allow_origins"`
	RequireIdentity bool     `mapstructure:"require_identity"`
	// AdminToken is the bearer token for operator endpoints such as catalog
	// refresh. Empty disables them.
	AdminToken      string   `mapstructure:"admin_token"`
	MaxUploadBytes  int64    `mapstructure:"max_upload_bytes"`

	ObjectStoreType string `mapstructure:"object_store"`
	LocalStoreDir   string `mapstructure:"local_store_dir"`
	AWSRegion       string `mapstructure:"aws_region"`
	S3Bucket        string `mapstructure:"s3_bucket"`
	S3Prefix        string `mapstructure:"s3_prefix"`
	SSEKMSKeyID     string `mapstructure:"sse_kms_key_id"`

	DatabaseURL string `mapstructure:"database_url"`

	// CatalogSource selects the skill catalog: empty for the bundled catalog,
	// "postgres", "object:<key>", "legacy:<dir>" or a JSON/YAML file path.
	CatalogSource       string `mapstructure:"catalog_source"`
	ServicesCatalogPath string `mapstructure:"services_catalog_path"`

	Embedder      string `mapstructure:"embedder"`
	EmbeddingDims int    `mapstructure:"embedding_dims"`
	GeminiAPIKey  string `mapstructure:"gemini_api_key"`
	GeminiModel   string `mapstructure:"gemini_model"`

	AMQPURL           string `mapstructure:"amqp_url"`
	AMQPQueue         string `mapstructure:"amqp_queue"`
	WorkerConcurrency int    `mapstructure:"worker_concurrency"`

	Engine Engine `mapstructure:"engine"`
}

// Engine carries the analysis policy constants.
type Engine struct {
	ExtractorFloor          float64       `mapstructure:"extractor_floor"`
	MappingThreshold        float64       `mapstructure:"mapping_threshold"`
	NearMatchScore          float64       `mapstructure:"near_match_score"`
	AliasConfidentThreshold float64       `mapstructure:"alias_confident_threshold"`
	InferredThreshold       float64       `mapstructure:"inferred_threshold"`
	InferredDiscount        float64       `mapstructure:"inferred_discount"`
	InferredCap             float64       `mapstructure:"inferred_cap"`
	MaxInferred             int           `mapstructure:"max_inferred"`
	PresenceThreshold       float64       `mapstructure:"presence_threshold"`
	RequiredWeight          float64       `mapstructure:"required_weight"`
	NiceWeight              float64       `mapstructure:"nice_weight"`
	EvidenceBonusMax        float64       `mapstructure:"evidence_bonus_max"`
	LowMatchThreshold       int           `mapstructure:"low_match_threshold"`
	TopK                    int           `mapstructure:"top_k"`
	ProfileLimit            int           `mapstructure:"profile_limit"`
	PreviewLength           int           `mapstructure:"preview_length"`
	MaxBullets              int           `mapstructure:"max_bullets"`
	ScoringParallelism      int           `mapstructure:"scoring_parallelism"`
	Timeout                 time.Duration `mapstructure:"timeout"`
	PIIPatterns             []string      `mapstructure:"pii_patterns"`
}

var defaults = map[string]any{
	"port":                  "8080",
	"env":                   "dev",
	"log_level":             "info",
	"cors_allow_origins":    "http://localhost:5173",
	"require_identity":      false,
	"admin_token":           "",
	"max_upload_bytes":      int64(10 << 20),
	"object_store":          "local",
	"local_store_dir":       "./data",
	"aws_region":            "",
	"s3_bucket":             "",
	"s3_prefix":             "",
	"sse_kms_key_id":        "",
	"database_url":          "",
	"catalog_source":        "",
	"services_catalog_path": "",
	"embedder":              "hashed",
	"embedding_dims":        256,
	"gemini_api_key":        "",
	"gemini_model":          "text-embedding-004",
	"amqp_url":              "",
	"amqp_queue":            "skillgap.analyses",
	"worker_concurrency":    2,

	"engine.extractor_floor":           0.5,
	"engine.mapping_threshold":         0.65,
	"engine.near_match_score":          0.9,
	"engine.alias_confident_threshold": 0.85,
	"engine.inferred_threshold":        0.8,
	"engine.inferred_discount":         0.5,
	"engine.inferred_cap":              0.45,
	"engine.max_inferred":              5,
	"engine.presence_threshold":        0.3,
	"engine.required_weight":           0.7,
	"engine.nice_weight":               0.25,
	"engine.evidence_bonus_max":        0.05,
	"engine.low_match_threshold":       35,
	"engine.top_k":                     5,
	"engine.profile_limit":             25,
	"engine.preview_length":            1200,
	"engine.max_bullets":               3,
	"engine.scoring_parallelism":       4,
	"engine.timeout":                   "10s",
	"engine.pii_patterns":              "",
}

// Load reads configuration from environment variables and an optional config
// file (CONFIG_FILE, or skillgap.yaml in the working directory).
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	cfg, err := LoadFrom(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v; using environment and defaults\n", err)
		cfg, _ = LoadFrom("-")
	}
	return cfg
}

// LoadFrom builds the configuration from the given file. An empty path searches
// the default locations; "-" skips file lookup entirely.
func LoadFrom(path string) (Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch path {
	case "-":
	case "":
		v.SetConfigName("skillgap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	default:
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	cfg.Embedder = normalizeEmbedder(cfg.Embedder)
	cfg.CORSAllowOrigin = compact(cfg.CORSAllowOrigin)
	cfg.Engine.PIIPatterns = compact(cfg.Engine.PIIPatterns)
	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "config: DATABASE_URL is required in production")
	}
	return cfg, nil
}

func compact(parts []string) []string {
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeEmbedder(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gemini", "genai":
		return "gemini"
	default:
		return "hashed"
	}
}
