package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := writeFile(t, dir, "config.yaml", `
server:
  port: 9090
  read_timeout: 5s
database:
  driver: postgres
  dsn: "host=db user=bank dbname=bank sslmode=disable"
jwt:
  secret: s3cret
app:
  page_size: 20
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("server config = %+v", cfg.Server)
	}
	if cfg.Database.Driver != "postgres" || !strings.Contains(cfg.Database.DSN, "dbname=bank") {
		t.Fatalf("database config = %+v", cfg.Database)
	}
	if cfg.App.PageSize != 20 {
		t.Fatalf("page size = %d want 20", cfg.App.PageSize)
	}
	// 未設定的欄位沿用預設值
	if cfg.JWT.ExpireHours != 24 || cfg.Security.BcryptCost != 12 {
		t.Fatalf("defaults not applied: %+v %+v", cfg.JWT, cfg.Security)
	}
	if cfg.JWT.TTL() != 24*time.Hour {
		t.Fatalf("TTL = %v", cfg.JWT.TTL())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("ACEITU_JWT_SECRET", "from-env")
	t.Setenv("ACEITU_SERVER_PORT", "7000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JWT.Secret != "from-env" || cfg.Server.Port != 7000 {
		t.Fatalf("env overrides not applied: secret=%q port=%d", cfg.JWT.Secret, cfg.Server.Port)
	}
	if cfg.Server.Addr() != ":7000" {
		t.Fatalf("Addr = %q", cfg.Server.Addr())
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, dir, ".env", "ACEITU_JWT_SECRET=dotenv-secret\n")
	// godotenv 會直接寫入行程環境，結束時清掉
	t.Cleanup(func() { os.Unsetenv("ACEITU_JWT_SECRET") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JWT.Secret != "dotenv-secret" {
		t.Fatalf("secret = %q want dotenv-secret", cfg.JWT.Secret)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())

	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "jwt.secret") {
		t.Fatalf("want jwt.secret error, got %v", err)
	}

	t.Setenv("ACEITU_JWT_SECRET", "x")
	t.Setenv("ACEITU_DATABASE_DRIVER", "oracle")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "database.driver") {
		t.Fatalf("want driver error, got %v", err)
	}
}

// chdir is equivalent to testing.T.Chdir (Go 1.24+): it changes the working
// directory for the duration of the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
