package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv  string
	EnvFile string

	DatabaseURL string
	SslCertPath string
	IndexTable  string
	TopK        int

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	ProjectID         string
	ProjectLocation   string
	CredentialsBase64 string
	EmbedModel        string
	EmbedDim          int
	EmbedRPS          float64

	Port           string
	QueryTimeout   time.Duration
	RequestTimeout time.Duration
	CORSOrigins    []string
	ScratchDir     string

	IngestWorkers int

	LogLevel  string
	LogFormat string
}

// LoadConfig loads the selected env file and returns the config.
// Every missing required variable and every malformed value is reported in a single error.
func LoadConfig() (*Config, error) {
	envFile := resolveEnvFile()
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var p envParser
	cfg := &Config{
		AppEnv:  getEnv("APP_ENV", "development"),
		EnvFile: envFile,

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SslCertPath: getEnv("SSL_CERT_PATH", ""),
		IndexTable:  getEnv("INDEX_TABLE", "media_vectors"),
		TopK:        p.integer("TOP_K", 10),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-1"),
		BucketName:   getEnv("S3_BUCKET_NAME", ""),

		ProjectID:         getEnv("GOOGLE_CLOUD_PROJECT_ID", ""),
		ProjectLocation:   getEnv("GOOGLE_CLOUD_PROJECT_LOCATION", "us-central1"),
		CredentialsBase64: getEnv("GOOGLE_CREDENTIALS_BASE64", ""),
		EmbedModel:        getEnv("EMBED_MODEL", "multimodalembedding@001"),
		EmbedDim:          p.integer("EMBED_DIM", 1408),
		EmbedRPS:          p.float("EMBED_RPS", 0),

		Port:           getEnv("PORT", "8000"),
		QueryTimeout:   p.duration("QUERY_TIMEOUT", 60*time.Second),
		RequestTimeout: p.duration("REQUEST_TIMEOUT", 120*time.Second),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		ScratchDir:     getEnv("SCRATCH_DIR", os.TempDir()),

		IngestWorkers: p.integer("INGEST_WORKERS", 8),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(p.errs); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate reports every missing required variable and every unparsable value together.
func (c *Config) validate(parseErrs []string) error {
	var missing []string
	for key, v := range map[string]string{
		"DATABASE_URL":              c.DatabaseURL,
		"GOOGLE_CLOUD_PROJECT_ID":   c.ProjectID,
		"GOOGLE_CREDENTIALS_BASE64": c.CredentialsBase64,
	} {
		if v == "" {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "missing required environment variables: "+strings.Join(missing, ", "))
	}
	if len(parseErrs) > 0 {
		problems = append(problems, "invalid environment variables: "+strings.Join(parseErrs, ", "))
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be a positive integer, got %d", c.TopK)
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("EMBED_DIM must be a positive integer, got %d", c.EmbedDim)
	}
	return nil
}

// resolveEnvFile picks DOTENV_PATH, then .env.<APP_ENV>, then .env.
func resolveEnvFile() string {
	if p := os.Getenv("DOTENV_PATH"); p != "" {
		return p
	}
	env := getEnv("APP_ENV", "development")
	candidate := ".env." + env
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	if _, err := os.Stat(".env"); err == nil {
		return ".env"
	}
	return ""
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s=%q is not an integer", key, v)
	}
	return n, nil
}

func getEnvFloat(key string, def float64) (float64, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%s=%q is not a number", key, v)
	}
	return f, nil
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s=%q is not a duration", key, v)
	}
	return d, nil
}

// envParser collects parse failures so LoadConfig can report them all at once.
type envParser struct {
	errs []string
}

func (p *envParser) record(err error) {
	if err != nil {
		p.errs = append(p.errs, err.Error())
	}
}

func (p *envParser) integer(key string, def int) int {
	n, err := getEnvInt(key, def)
	p.record(err)
	return n
}

func (p *envParser) float(key string, def float64) float64 {
	f, err := getEnvFloat(key, def)
	p.record(err)
	return f
}

func (p *envParser) duration(key string, def time.Duration) time.Duration {
	d, err := getEnvDuration(key, def)
	p.record(err)
	return d
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
