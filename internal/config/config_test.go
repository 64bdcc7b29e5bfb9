package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = "jwt:\n  secret: s3cret\naws:\n  public_url: https://cdn.test\n"

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(10), cfg.Server.MaxUploadMB)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 30*24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 24*time.Hour, cfg.Session.IdleTTL)
	assert.Equal(t, 10000, cfg.Session.MaxSessions)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.APNs.PushEnabled())
}

func TestParse_Values(t *testing.T) {
	data := []byte(`
server:
  host: 0.0.0.0
  port: 9000
database:
  host: db
  user: ig
  password: pw
  dbname: instagram
aws:
  region: eu-central-1
  s3_bucket: images
  public_url: https://images.example.com
jwt:
  secret: abc
  ttl: 2h
session:
  idle_ttl: 30m
  max_sessions: 5
apns:
  key_path: /keys/AuthKey.p8
  topic: com.example.instagramclone
log:
  level: debug
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "images", cfg.AWS.S3Bucket)
	assert.Equal(t, "https://images.example.com", cfg.AWS.PublicURL)
	assert.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, 5, cfg.Session.MaxSessions)
	assert.True(t, cfg.APNs.PushEnabled())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "host=db port=5432 user=ig password=pw dbname=instagram sslmode=disable", cfg.Database.DSN())
}

func TestParse_MissingSecret(t *testing.T) {
	_, err := Parse([]byte("server:\n  port: 80\n"))
	assert.Error(t, err)
}

func TestParse_MissingPublicURL(t *testing.T) {
	_, err := Parse([]byte("jwt:\n  secret: s3cret\n"))
	assert.ErrorContains(t, err, "aws.public_url")
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("server: [unclosed"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jwt:\n  secret: x\naws:\n  public_url: https://cdn.test\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "x", cfg.JWT.Secret)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
