package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseJSONFileOverlaysDefaults(t *testing.T) {
	path := writeTempConfig(t, `{"listen":"0.0.0.0:29900","key":"secret","crypt":"aes-128","serverservice":true,"max_message_size":1024}`)

	cfg := Default()
	if err := ParseJSONFile(&cfg, path); err != nil {
		t.Fatalf("ParseJSONFile: %v", err)
	}

	if cfg.Listen != "0.0.0.0:29900" || cfg.Key != "secret" || cfg.Crypt != "aes-128" {
		t.Fatalf("unexpected overlay: %+v", cfg)
	}
	if !cfg.ServerService {
		t.Fatalf("expected serverservice to be overlaid true")
	}
	if cfg.MaxMessageSize != 1024 {
		t.Fatalf("MaxMessageSize = %d, want 1024", cfg.MaxMessageSize)
	}
	// Fields the JSON didn't mention keep their defaults.
	if cfg.ClientPacketWindow != Default().ClientPacketWindow {
		t.Fatalf("unrelated field ClientPacketWindow was clobbered: %d", cfg.ClientPacketWindow)
	}
}

func TestParseJSONFileMissingFile(t *testing.T) {
	cfg := Default()
	missing := filepath.Join(t.TempDir(), "missing.json")
	if err := ParseJSONFile(&cfg, missing); err == nil {
		t.Fatalf("ParseJSONFile should fail for a missing file")
	}
}

func TestMaxPayloadSelectsByRole(t *testing.T) {
	cfg := Default()
	cfg.ServerService = false
	if cfg.MaxPayload() != cfg.ServerClientReliableSize {
		t.Fatalf("expected client MaxPayload, got %d", cfg.MaxPayload())
	}

	cfg.ServerService = true
	if cfg.MaxPayload() != cfg.ServerServerReliableSize {
		t.Fatalf("expected server MaxPayload, got %d", cfg.MaxPayload())
	}
}

func TestPacketWindowSelectsByRole(t *testing.T) {
	cfg := Default()
	cfg.ServerService = false
	if cfg.PacketWindow() != uint32(cfg.ClientPacketWindow) {
		t.Fatalf("expected client packet window, got %d", cfg.PacketWindow())
	}

	cfg.ServerService = true
	if cfg.PacketWindow() != uint32(cfg.ServerPacketWindow) {
		t.Fatalf("expected server packet window, got %d", cfg.PacketWindow())
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}
