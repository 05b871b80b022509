package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedKeys = []string{
	"DOTENV_PATH", "APP_ENV", "DATABASE_URL", "TOP_K", "S3_BUCKET_NAME",
	"GOOGLE_CLOUD_PROJECT_ID", "GOOGLE_CREDENTIALS_BASE64", "QUERY_TIMEOUT", "CORS_ORIGINS",
	"REQUEST_TIMEOUT", "EMBED_DIM", "EMBED_RPS", "INGEST_WORKERS",
}

// clearEnv unsets the keys for the duration of the test; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managedKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeEnvFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), ".env.development")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	clearEnv(t)
	p := writeEnvFile(t, "DATABASE_URL=postgres://localhost/media\n"+
		"GOOGLE_CLOUD_PROJECT_ID=proj\n"+
		"GOOGLE_CREDENTIALS_BASE64=e30=\n"+
		"TOP_K=5\n"+
		"S3_BUCKET_NAME=sock-design-bucket-development\n"+
		"QUERY_TIMEOUT=15s\n"+
		"CORS_ORIGINS=http://a.test, http://b.test\n")
	t.Setenv("DOTENV_PATH", p)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, p, cfg.EnvFile)
	assert.Equal(t, "postgres://localhost/media", cfg.DatabaseURL)
	assert.Equal(t, "proj", cfg.ProjectID)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, "sock-design-bucket-development", cfg.BucketName)
	assert.Equal(t, 15*time.Second, cfg.QueryTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, 1408, cfg.EmbedDim)
	assert.Equal(t, "media_vectors", cfg.IndexTable)
}

func TestLoadConfigMissingRequiredVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOTENV_PATH", writeEnvFile(t, "TOP_K=5\nGOOGLE_CLOUD_PROJECT_ID=proj\n"))

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "GOOGLE_CREDENTIALS_BASE64")
	assert.NotContains(t, err.Error(), "GOOGLE_CLOUD_PROJECT_ID")
}

func TestLoadConfigRejectsNonPositiveTopK(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOTENV_PATH", writeEnvFile(t, "DATABASE_URL=x\nGOOGLE_CLOUD_PROJECT_ID=p\nGOOGLE_CREDENTIALS_BASE64=c\nTOP_K=0\n"))

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOP_K")
}

func TestLoadConfigMissingEnvFileIsNotFatal(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOTENV_PATH", filepath.Join(t.TempDir(), "does-not-exist"))
	t.Setenv("DATABASE_URL", "x")
	t.Setenv("GOOGLE_CLOUD_PROJECT_ID", "p")
	t.Setenv("GOOGLE_CREDENTIALS_BASE64", "c")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.TopK)
}

func TestLoadConfigRejectsMalformedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOTENV_PATH", writeEnvFile(t, "DATABASE_URL=x\nGOOGLE_CLOUD_PROJECT_ID=p\nGOOGLE_CREDENTIALS_BASE64=c\n"+
		"TOP_K=ten\nQUERY_TIMEOUT=sixty\nEMBED_DIM=1408\n"))

	cfg, err := LoadConfig()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), `TOP_K="ten" is not an integer`)
	assert.Contains(t, err.Error(), `QUERY_TIMEOUT="sixty" is not a duration`)
	assert.NotContains(t, err.Error(), "EMBED_DIM")
}

func TestLoadConfigReportsMissingAndMalformedTogether(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOTENV_PATH", writeEnvFile(t, "GOOGLE_CLOUD_PROJECT_ID=p\nGOOGLE_CREDENTIALS_BASE64=c\nREQUEST_TIMEOUT=2m\nEMBED_RPS=fast\n"))

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required environment variables: DATABASE_URL")
	assert.Contains(t, err.Error(), `EMBED_RPS="fast" is not a number`)
	assert.NotContains(t, err.Error(), "REQUEST_TIMEOUT")
}
