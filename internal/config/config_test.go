package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("PUBLIC_BASE_URL", "")

	cfg := Load()
	if cfg.Port != "8081" {
		t.Errorf("port: got %q, want %q", cfg.Port, "8081")
	}
	if cfg.StoreBackend != "postgres" {
		t.Errorf("store backend: got %q, want postgres", cfg.StoreBackend)
	}
	if cfg.KafkaBrokers != nil {
		t.Errorf("kafka brokers: got %v, want nil", cfg.KafkaBrokers)
	}
	if cfg.PublicBaseURL != "http://localhost:5173" {
		t.Errorf("public base url: got %q", cfg.PublicBaseURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("PUBLIC_BASE_URL", "https://menu.example.com/")
	t.Setenv("STORE_BACKEND", "memory")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("port: got %q", cfg.Port)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "k1:9092" || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("kafka brokers: got %v", cfg.KafkaBrokers)
	}
	if cfg.PublicBaseURL != "https://menu.example.com" {
		t.Errorf("public base url: got %q", cfg.PublicBaseURL)
	}
	if cfg.StoreBackend != "memory" {
		t.Errorf("store backend: got %q", cfg.StoreBackend)
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "Local"}
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if loc != time.Local {
		t.Errorf("expected time.Local, got %v", loc)
	}

	cfg.Timezone = "UTC"
	loc, err = cfg.Location()
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if loc.String() != "UTC" {
		t.Errorf("expected UTC, got %v", loc)
	}

	cfg.Timezone = "Not/AZone"
	if _, err := cfg.Location(); err == nil {
		t.Error("expected error for unknown timezone")
	}
}
