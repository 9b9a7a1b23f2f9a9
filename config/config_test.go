package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "APP_ENV", "RUNTIME", "PORT", "STORE_DRIVER", "TABLE_NAME", "DB_URL",
		"REDIS_ADDR", "SQLITE_PATH", "AWS_REGION", "DYNAMODB_ENDPOINT", "NATS_URL", "OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != defaults() {
		t.Fatalf("cfg=%+v want defaults", cfg)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "blog.yaml")
	yaml := "runtime: http\nstore_driver: sqlite\ntable_name: from_file\nport: \"9000\"\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("TABLE_NAME", " from_env ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Runtime != "http" || cfg.StoreDriver != "sqlite" || cfg.Port != "9000" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.TableName != "from_env" {
		t.Fatalf("table=%q want env override", cfg.TableName)
	}
	if cfg.AWSRegion != "eu-west-1" {
		t.Fatalf("default lost: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"driver":  {"STORE_DRIVER": "mongo"},
		"runtime": {"RUNTIME": "grpc"},
		"file":    {"CONFIG_FILE": filepath.Join(os.TempDir(), "does-not-exist-blog.yaml")},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
