package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleYAML = `
name: marathon
environment: test
app:
  port: 8080
  services:
    redis:
      url: redis://localhost:6379
      db: 0
      password: ""
    postgresql:
      url: postgres://marathon@localhost:5432/marathon
      options:
        sslmode: disable
    kafka:
      api:
        client:
          url: localhost:9092
          client_id: marathon
        producer:
          topic: notifications
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	cfg := ServiceConfig{}
	cfg.ApplyDefaults()

	if cfg.Name != "marathon" {
		t.Errorf("expected default name 'marathon', got %q", cfg.Name)
	}
	if cfg.Environment != "development" || !cfg.Debug {
		t.Errorf("expected development with debug, got %q debug=%v", cfg.Environment, cfg.Debug)
	}
	if cfg.Logging.ServiceName != "marathon" {
		t.Errorf("expected logging service name to follow config name, got %q", cfg.Logging.ServiceName)
	}
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    ServiceConfig
		errMsg string
	}{
		{"valid", ServiceConfig{Name: "marathon", Environment: "production"}, ""},
		{"test env", ServiceConfig{Name: "marathon", Environment: "test"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"bad env", ServiceConfig{Name: "marathon", Environment: "qa"}, "config.environment"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.errMsg != "" {
				if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
					t.Errorf("expected error containing %q, got %v", tc.errMsg, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadGetPaths(t *testing.T) {
	src, err := Load("marathon", WithConfigFile(writeConfig(t, sampleYAML)))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if src.GetInt("app.port") != 8080 {
		t.Errorf("expected app.port 8080, got %v", src.Get("app.port"))
	}

	redis, ok := src.Get("app.services.redis").(map[string]interface{})
	if !ok {
		t.Fatalf("expected app.services.redis to be a section, got %T", src.Get("app.services.redis"))
	}
	if redis["url"] != "redis://localhost:6379" {
		t.Errorf("unexpected redis url %v", redis["url"])
	}

	for _, path := range []string{
		"app.services.postgresql",
		"app.services.kafka.api.client",
		"app.services.kafka.api.producer",
	} {
		if !src.IsSet(path) {
			t.Errorf("expected %s to be set", path)
		}
	}
	if src.Get("app.services.mongodb") != nil {
		t.Error("expected nil for a missing path")
	}
	if src.Get("app.port.nested") != nil {
		t.Error("expected nil when descending into a scalar")
	}
}

func TestLoadEnvOverridesNestedKeys(t *testing.T) {
	t.Setenv("MARATHON_APP__PORT", "9090")
	t.Setenv("MARATHON_APP__SERVICES__REDIS__PASSWORD", "s3cret")
	t.Setenv("OTHER_APP__PORT", "1")

	src, err := Load("marathon", WithConfigFile(writeConfig(t, sampleYAML)))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if src.GetInt("app.port") != 9090 {
		t.Errorf("expected env override 9090, got %v", src.Get("app.port"))
	}
	redis := src.Get("app.services.redis").(map[string]interface{})
	if redis["password"] != "s3cret" {
		t.Errorf("expected password override, got %v", redis["password"])
	}
	if redis["url"] != "redis://localhost:6379" {
		t.Errorf("expected file value to survive a sibling override, got %v", redis["url"])
	}
}

func TestLoadConfigUnmarshal(t *testing.T) {
	type redisConfig struct {
		URL      string `mapstructure:"url"`
		Password string `mapstructure:"password"`
	}
	type testConfig struct {
		ServiceConfig `mapstructure:",squash"`
		App           struct {
			Port     int `mapstructure:"port"`
			Services struct {
				Redis redisConfig `mapstructure:"redis"`
			} `mapstructure:"services"`
		} `mapstructure:"app"`
	}

	t.Setenv("MARATHON_APP__SERVICES__REDIS__PASSWORD", "from-env")

	var cfg testConfig
	if err := LoadConfig("marathon", &cfg, WithConfigFile(writeConfig(t, sampleYAML))); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "marathon" || cfg.Environment != "test" {
		t.Errorf("unexpected service config %+v", cfg.ServiceConfig)
	}
	if cfg.App.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.App.Port)
	}
	if cfg.App.Services.Redis.Password != "from-env" {
		t.Errorf("expected password from env, got %q", cfg.App.Services.Redis.Password)
	}
}

func TestLoadExplicitFileMissing(t *testing.T) {
	_, err := Load("marathon", WithConfigFile("/nonexistent/config.yml"))
	if err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("MARATHON_APP__CONNECT_TIMEOUT=5s\n"), 0o644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("MARATHON_APP__CONNECT_TIMEOUT") })

	src, err := Load("marathon", WithConfigFile(writeConfig(t, sampleYAML)), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if src.GetString("app.connect_timeout") != "5s" {
		t.Errorf("expected connect_timeout from .env, got %v", src.Get("app.connect_timeout"))
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestResolveFileSearchOrder(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/marathon/config.yml": true,
		"./config/config.yml":       true,
	}}
	got, err := resolveFile(fs, "", configSearchPaths("marathon"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "./cmd/marathon/config.yml" {
		t.Errorf("expected ./cmd/marathon/config.yml, got %q", got)
	}

	got, _ = resolveFile(&mockFS{files: map[string]bool{}}, "", configSearchPaths("marathon"))
	if got != "" {
		t.Errorf("expected no file, got %q", got)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"APP__PORT":                       "app.port",
		"APP__CONNECT_TIMEOUT":            "app.connect_timeout",
		"APP__SERVICES__KAFKA__API__CLIENT__URL": "app.services.kafka.api.client.url",
		"APP____PORT":                     "",
		"NAME":                            "name",
	}
	for in, want := range tests {
		if got := EnvKey(in); got != want {
			t.Errorf("EnvKey(%q) = %q, want %q", in, got, want)
		}
	}
}
