package cli

import (
	"os"
	"strings"
	"testing"

	"github.com/evcraddock/house-broker/internal/config"
)

func TestConfigInit(t *testing.T) {
	global := testEnv(t)
	path := global[3]

	out := run(t, global, "config", "init")
	if !strings.Contains(out, path) {
		t.Errorf("output = %q, want path %s", out, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not found: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Auth.JWTSecret) != 2*secretBytes {
		t.Errorf("secret length = %d, want %d", len(cfg.Auth.JWTSecret), 2*secretBytes)
	}
	if cfg.Server.Listen != ":8080" {
		t.Errorf("listen = %q", cfg.Server.Listen)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	global := testEnv(t)
	run(t, global, "config", "init")

	if _, err := executeCommand(append(append([]string{}, global...), "config", "init")...); err == nil {
		t.Fatal("expected error when config exists")
	}

	before, err := config.Load(global[3])
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	run(t, global, "config", "init", "--force")
	after, err := config.Load(global[3])
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if before.Auth.JWTSecret == after.Auth.JWTSecret {
		t.Error("expected --force to write a new secret")
	}
}

func TestConfigShowMasksSecret(t *testing.T) {
	global := testEnv(t)
	run(t, global, "config", "init")

	out := run(t, global, "config", "show")
	if !strings.Contains(out, "********") {
		t.Errorf("expected masked secret:\n%s", out)
	}

	cfg, err := config.Load(global[3])
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if strings.Contains(out, cfg.Auth.JWTSecret) {
		t.Error("secret leaked in config show")
	}
	if !strings.Contains(out, global[1]) {
		t.Errorf("expected --db path in effective config:\n%s", out)
	}
}

func TestServeRequiresSecret(t *testing.T) {
	global := testEnv(t)
	t.Setenv("HB_JWT_SECRET", "")

	_, err := executeCommand(append(append([]string{}, global...), "serve")...)
	if err == nil || !strings.Contains(err.Error(), "JWT secret") {
		t.Errorf("error = %v, want missing secret", err)
	}
}
