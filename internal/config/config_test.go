package config

import (
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	t.Setenv("SLOT_API_URL", "https://slots.example.com/api/")
	t.Setenv("APP_ENV", "LOCAL")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.IsLocal() {
		t.Fatalf("expected local env, got %q", cfg.App.Env)
	}
	if cfg.SlotAPI.URL != "https://slots.example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.SlotAPI.URL)
	}
	if cfg.Retry.Count != 3 || cfg.Retry.InitialDelaySeconds != 2 {
		t.Fatalf("unexpected retry defaults: %+v", cfg.Retry)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Fatalf("expected 5m cache ttl, got %s", cfg.Cache.TTL)
	}
	if cfg.Cache.Backend != CacheBackendMemory {
		t.Fatalf("expected memory cache backend, got %q", cfg.Cache.Backend)
	}
	if cfg.Auth.JWTSecret == "" {
		t.Fatal("expected local jwt secret fallback")
	}
	if len(cfg.Auth.BasicClients) != 1 || cfg.Auth.BasicClients[0].Username != "docplanner" {
		t.Fatalf("unexpected basic clients: %+v", cfg.Auth.BasicClients)
	}
}

func TestNewConfigRequiresSlotAPIURLUnlessMocked(t *testing.T) {
	t.Setenv("SLOT_API_URL", "")
	if _, err := NewConfig(); err == nil {
		t.Fatal("expected error without SLOT_API_URL")
	}

	t.Setenv("SLOT_API_MOCK", "true")
	if _, err := NewConfig(); err != nil {
		t.Fatalf("expected mocked upstream to load: %v", err)
	}
}

func TestNewConfigRequiresJWTSecretOutsideLocal(t *testing.T) {
	t.Setenv("SLOT_API_MOCK", "true")
	t.Setenv("APP_ENV", "production")
	if _, err := NewConfig(); err == nil {
		t.Fatal("expected error without AUTH_JWT_SECRET in production")
	}

	t.Setenv("AUTH_JWT_SECRET", "supersecret")
	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.IsNotLocal() {
		t.Fatal("expected production to be non-local")
	}
}

func TestNewConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"RETRY_COUNT":   "-1",
		"CACHE_TTL":     "0s",
		"CACHE_BACKEND": "memcached",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("SLOT_API_MOCK", "true")
			t.Setenv(key, value)
			if _, err := NewConfig(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestParseBasicClients(t *testing.T) {
	clients := parseBasicClients("alice:secret, bob:p:ss,broken,:nouser")
	if len(clients) != 2 {
		t.Fatalf("expected 2 clients, got %+v", clients)
	}
	if clients[1].Username != "bob" || clients[1].Password != "p:ss" {
		t.Fatalf("unexpected second client: %+v", clients[1])
	}
}
