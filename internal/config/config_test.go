package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("STORAGE_DRIVER", "S3")
	t.Setenv("STORAGE_PUBLIC_URL", "http://cdn.local/files/")
	t.Setenv("UPLOAD_MAX_BYTES", "2048")
	t.Setenv("LOCAL_STATE_PATH", "/tmp/state.db")
	t.Setenv("DATABASE_URL", "postgres://svc@db.example.com/catalog")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.Storage.MinIO.UseSSL)
	assert.Equal(t, DriverS3, cfg.Storage.Driver)
	assert.Equal(t, "http://cdn.local/files", cfg.Storage.PublicURL)
	assert.Equal(t, int64(2048), cfg.Upload.MaxBytes)
	assert.Equal(t, "/tmp/state.db", cfg.LocalStatePath)
	assert.Equal(t, "postgres://svc@db.example.com/catalog", cfg.Database.URL)
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"STORAGE_DRIVER", "UPLOAD_MAX_BYTES", "UPLOAD_ALLOWED_TYPES", "APP_ENV", "MINIO_BUCKET", "DB_APPLICATION_NAME"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, DriverMinIO, cfg.Storage.Driver)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, []string{"application/pdf"}, cfg.Upload.AllowedContentTypes)
	assert.Equal(t, "acadrive-files", cfg.Storage.MinIO.Bucket)
	assert.False(t, cfg.Log.IsDev())
	assert.Equal(t, "acadrive", cfg.Database.ApplicationName)
}

func TestLoad_NonPositiveUploadLimitFallsBack(t *testing.T) {
	for _, v := range []string{"0", "-1", "lots"} {
		t.Setenv("UPLOAD_MAX_BYTES", v)

		cfg := Load()

		assert.Equal(t, DefaultUploadMaxBytes, cfg.Upload.MaxBytes, v)
		assert.Equal(t, int(DefaultUploadMaxBytes)+1<<20, cfg.Upload.BodyLimit(), v)
	}
}

func TestUploadConfig_WithDefaults(t *testing.T) {
	got := UploadConfig{MaxBytes: -3}.WithDefaults()
	assert.Equal(t, DefaultUploadMaxBytes, got.MaxBytes)
	assert.Equal(t, []string{"application/pdf"}, got.AllowedContentTypes)

	kept := UploadConfig{MaxBytes: 2048, AllowedContentTypes: []string{"text/plain"}}.WithDefaults()
	assert.Equal(t, int64(2048), kept.MaxBytes)
	assert.Equal(t, []string{"text/plain"}, kept.AllowedContentTypes)
	assert.Equal(t, 2048+1<<20, kept.BodyLimit())

	// a zero value sizes the HTTP body limit for the default file size
	assert.Equal(t, int(DefaultUploadMaxBytes)+1<<20, UploadConfig{}.BodyLimit())
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 5, getEnvInt(key, 5))
}

func TestGetEnvInt64(t *testing.T) {
	key := "TEST_INT64_VAR"
	defer os.Unsetenv(key)

	os.Setenv(key, "10485760")
	assert.Equal(t, int64(10485760), getEnvInt64(key, 1))

	os.Setenv(key, "-4")
	assert.Equal(t, int64(7), getEnvInt64(key, 7))
}

func TestGetEnvList(t *testing.T) {
	key := "TEST_LIST_VAR"
	defer os.Unsetenv(key)

	os.Setenv(key, " application/pdf, ,text/plain ")
	assert.Equal(t, []string{"application/pdf", "text/plain"}, getEnvList(key, nil))

	os.Setenv(key, " , ")
	assert.Equal(t, []string{"x"}, getEnvList(key, []string{"x"}))
}
