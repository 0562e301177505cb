package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/prompthub/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestConfig_DisabledAuthNeedsLoopbackHost(t *testing.T) {
	for _, host := range []string{"127.0.0.1", "localhost", "::1"} {
		cfg := NewDefaultConfig()
		cfg.App.HTTP.Host = host
		if err := cfg.Validate(); err != nil {
			t.Errorf("host %q with auth disabled should validate: %v", host, err)
		}
	}
	for _, host := range []string{"", "0.0.0.0", "192.168.1.10", "example.com"} {
		cfg := NewDefaultConfig()
		cfg.App.HTTP.Host = host
		if err := cfg.Validate(); err == nil {
			t.Errorf("host %q with auth disabled should be rejected", host)
		}
	}
}

func TestConfig_TokenAuthAllowsAnyHost(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.HTTP.Host = "0.0.0.0"
	cfg.Auth.Mode = AuthModeToken
	cfg.Auth.Token = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token auth on a public host should validate: %v", err)
	}
	if got := cfg.App.HTTP.Address(); got != "0.0.0.0:8080" {
		t.Errorf("address = %q", got)
	}
}

func TestKVConfig_DefaultsToSQLite(t *testing.T) {
	cfg := KVConfig{SQLitePath: "prefs.db"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty driver should default to sqlite: %v", err)
	}
	if cfg.Driver != KVDriverSQLite {
		t.Errorf("driver = %q, want %q", cfg.Driver, KVDriverSQLite)
	}
}

func TestKVConfig_SQLiteNeedsPath(t *testing.T) {
	cfg := KVConfig{Driver: KVDriverSQLite}
	if err := cfg.Validate(); err == nil {
		t.Fatal("sqlite driver without path should fail")
	}
}

func TestKVConfig_RedisNeedsAddr(t *testing.T) {
	cfg := KVConfig{Driver: KVDriverRedis}
	if err := cfg.Validate(); err == nil {
		t.Fatal("redis driver without addr should fail")
	}

	cfg.Redis.Addr = "localhost:6379"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("redis driver with addr should pass: %v", err)
	}
}

func TestKVConfig_UnknownDriver(t *testing.T) {
	cfg := KVConfig{Driver: "etcd", SQLitePath: "x.db"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown driver should fail")
	}
}

func TestKVConfig_ResolveSQLitePath(t *testing.T) {
	dir := t.TempDir()
	cfg := KVConfig{SQLitePath: "prefs.db"}
	if got, want := cfg.ResolveSQLitePath(dir), filepath.Join(dir, "prefs.db"); got != want {
		t.Errorf("relative path = %q, want %q", got, want)
	}

	abs := filepath.Join(dir, "elsewhere.db")
	cfg.SQLitePath = abs
	if got := cfg.ResolveSQLitePath("/ignored"); got != abs {
		t.Errorf("absolute path = %q, want %q", got, abs)
	}
}

func TestNewDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if got := cfg.App.HTTP.Address(); got != "127.0.0.1:8080" {
		t.Errorf("default address = %q", got)
	}
	if filepath.Base(cfg.Data.Path) != "PromptHub" && cfg.Data.Path != "./data" {
		t.Errorf("unexpected default data path %q", cfg.Data.Path)
	}
	if cfg.Data.MediaPath() != filepath.Join(cfg.Data.Path, "media") {
		t.Errorf("media path = %q", cfg.Data.MediaPath())
	}
}

func TestLoad_YAMLWithEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PROMPTHUB_TEST_TOKEN", "s3cret")

	path := filepath.Join(dir, "config.yaml")
	body := `app:
  log_level: debug
  http:
    host: 0.0.0.0
    port: 9090
data:
  path: ` + dir + `
kv:
  driver: sqlite
  sqlite_path: kv.db
auth:
  mode: token
  token: ${PROMPTHUB_TEST_TOKEN}
sse:
  throttle: 500ms
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.HTTP.Address() != "0.0.0.0:9090" {
		t.Errorf("address = %q", cfg.App.HTTP.Address())
	}
	if cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
	if cfg.Auth.Token != "s3cret" || !cfg.Auth.AuthEnabled() {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.SSE.Throttle != 500*time.Millisecond {
		t.Errorf("throttle = %v", cfg.SSE.Throttle)
	}
	if cfg.KV.ResolveSQLitePath(cfg.Data.Path) != filepath.Join(dir, "kv.db") {
		t.Errorf("sqlite path = %q", cfg.KV.SQLitePath)
	}
	// Untouched sections keep their defaults.
	if cfg.KV.Redis.Prefix != "prompthub:" {
		t.Errorf("redis prefix = %q", cfg.KV.Redis.Prefix)
	}
}
