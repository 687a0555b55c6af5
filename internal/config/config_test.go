package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Addrs: []string{"localhost:6379"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingDatabaseAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_PageSizeCeiling(t *testing.T) {
	cfg := validConfig()
	cfg.Search.MaxPageSize = 50

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for max_page_size above 20")
	}
}

func TestValidate_DefaultAboveMaxPageSize(t *testing.T) {
	cfg := validConfig()
	cfg.Search.DefaultPageSize = 20
	cfg.Search.MaxPageSize = 10

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for default_page_size above max_page_size")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Search.DefaultPageSize != 20 {
		t.Errorf("DefaultPageSize = %d, want 20", cfg.Search.DefaultPageSize)
	}
	if cfg.Search.ResultCeiling != 100 {
		t.Errorf("ResultCeiling = %d, want 100", cfg.Search.ResultCeiling)
	}
	if cfg.Search.MaxQueryLength != 2000 {
		t.Errorf("MaxQueryLength = %d, want 2000", cfg.Search.MaxQueryLength)
	}
	if cfg.LLM.MaxExpansions != 3 {
		t.Errorf("MaxExpansions = %d, want 3", cfg.LLM.MaxExpansions)
	}
	if cfg.Embedding.Dimensions != 1024 {
		t.Errorf("Dimensions = %d, want 1024", cfg.Embedding.Dimensions)
	}
	if cfg.Ingest.IdempotencyWindowHrs != 24 {
		t.Errorf("IdempotencyWindowHrs = %d, want 24", cfg.Ingest.IdempotencyWindowHrs)
	}
	if cfg.Storage.KeyPrefix != "tunedex:" {
		t.Errorf("KeyPrefix = %q, want tunedex:", cfg.Storage.KeyPrefix)
	}
}

func TestExpandEnvVars(t *testing.T) {
	if err := os.Setenv("TUNEDEX_TEST_KEY", "secret"); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Unsetenv("TUNEDEX_TEST_KEY") }()

	in := []byte("api_key: ${TUNEDEX_TEST_KEY}\nmodel: ${TUNEDEX_TEST_MODEL:-Qwen3-32B}\n")
	out := string(expandEnvVars(in))

	want := "api_key: secret\nmodel: Qwen3-32B\n"
	if out != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", out, want)
	}
}
