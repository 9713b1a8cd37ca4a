package config

import "testing"

func TestLoadLogDefaults(t *testing.T) {
	cfg, err := LoadLog("lobby")
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if cfg.Level != "info" || cfg.MaxMB != 10 {
		t.Fatalf("unexpected log defaults: %+v", cfg)
	}
	if cfg.Service != "lobby" {
		t.Fatalf("Service = %q, want lobby", cfg.Service)
	}
}

func TestLoadLogParse(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_SERVICE", "gomoku-session")

	cfg, err := LoadLog("gomoku-server")
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if cfg.Level != "debug" || cfg.Service != "gomoku-session" {
		t.Fatalf("unexpected log config: %+v", cfg)
	}
}
