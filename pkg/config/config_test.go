package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	root := t.TempDir()
	t.Setenv("SITE_ROOT", root)
	for _, key := range []string{
		"SERVER_PORT", "ADMIN_ENABLED", "ADMIN_PORT", "STATIC_DIR", "ASSET_SOURCE", "RATE_LIMIT_ENABLED", "LOG_LEVEL",
		"SERVER_READ_HEADER_TIMEOUT", "SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.ServerPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, root, cfg.Site.Root)
	assert.Equal(t, "docs", cfg.Site.StaticDir)
	assert.Equal(t, AssetSourceDir, cfg.Site.AssetSource)
	assert.True(t, cfg.Admin.Enabled)
	assert.Equal(t, "9090", cfg.Admin.Port)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 20*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadHeaderTimeout)
	assert.Zero(t, cfg.Server.ReadTimeout)
	assert.Zero(t, cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.LiveReload.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SITE_ROOT", t.TempDir())
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("STATIC_DIR", "/public/")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SERVER_READ_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_RPS", "5")
	t.Setenv("RATE_LIMIT_BURST", "7")
	t.Setenv("LIVE_RELOAD_ALLOWED_ORIGINS", " http://a.test , ,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "public", cfg.Site.StaticDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 5.0, cfg.RateLimit.RPS)
	assert.Equal(t, 7, cfg.RateLimit.Burst)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.LiveReload.AllowedOrigins)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "non numeric port", env: map[string]string{"SERVER_PORT": "http"}},
		{name: "port out of range", env: map[string]string{"SERVER_PORT": "70000"}},
		{name: "admin port clash", env: map[string]string{"SERVER_PORT": "3000", "ADMIN_PORT": "3000"}},
		{name: "static dir escapes root", env: map[string]string{"STATIC_DIR": "../etc"}},
		{name: "negative write timeout", env: map[string]string{"SERVER_WRITE_TIMEOUT": "-1s"}},
		{name: "zero header timeout", env: map[string]string{"SERVER_READ_HEADER_TIMEOUT": "0s"}},
		{name: "rate limit without rps", env: map[string]string{"RATE_LIMIT_ENABLED": "true", "RATE_LIMIT_RPS": "-1"}},
		{name: "unknown asset source", env: map[string]string{"ASSET_SOURCE": "ftp"}},
		{name: "s3 without bucket", env: map[string]string{"ASSET_SOURCE": "s3", "S3_BUCKET": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SITE_ROOT", t.TempDir())
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadAcceptsUnboundedBodyTimeouts(t *testing.T) {
	t.Setenv("SITE_ROOT", t.TempDir())
	t.Setenv("SERVER_READ_TIMEOUT", "0s")
	t.Setenv("SERVER_WRITE_TIMEOUT", "0s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.Server.ReadTimeout)
	assert.Zero(t, cfg.Server.WriteTimeout)
}

func TestLoadS3SkipsRootResolution(t *testing.T) {
	t.Setenv("ASSET_SOURCE", "s3")
	t.Setenv("S3_BUCKET", "site-assets")
	t.Setenv("S3_KEY_PREFIX", "/releases/current/")
	t.Setenv("SITE_ROOT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Site.Root)
	assert.Equal(t, "releases/current", cfg.S3.KeyPrefix)
}

func TestResolveSiteRoot(t *testing.T) {
	t.Run("explicit root is made absolute", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		root, err := ResolveSiteRoot("site")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "site"), root)
	})

	t.Run("working directory with index page", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644))
		t.Chdir(dir)

		root, err := ResolveSiteRoot("")
		require.NoError(t, err)

		resolvedDir, err := filepath.EvalSymlinks(dir)
		require.NoError(t, err)
		resolvedRoot, err := filepath.EvalSymlinks(root)
		require.NoError(t, err)
		assert.Equal(t, resolvedDir, resolvedRoot)
	})
}
