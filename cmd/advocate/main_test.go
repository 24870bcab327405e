package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "advocate dev") {
		t.Errorf("expected output to contain 'advocate dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"advocate 1.0.0", "commit: abc123", "built: 2026-01-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got: %s", want, out)
		}
	}
}

func TestRootCmdHelp(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("help failed: %v", err)
	}

	out := buf.String()
	for _, sub := range []string{"serve", "db", "admin", "notifications", "version", "--env-file"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q, got: %s", sub, out)
		}
	}
}

func TestExecute(t *testing.T) {
	ok := newRootCmd()
	ok.SetOut(new(bytes.Buffer))
	ok.SetArgs([]string{"version"})
	if code := execute(ok); code != 0 {
		t.Errorf("execute(version) = %d, want 0", code)
	}

	bad := newRootCmd()
	bad.SetOut(new(bytes.Buffer))
	bad.SetErr(new(bytes.Buffer))
	bad.SetArgs([]string{"no-such-command"})
	if code := execute(bad); code != 1 {
		t.Errorf("execute(unknown) = %d, want 1", code)
	}
}

func TestLoadEnvFile(t *testing.T) {
	if err := loadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}
	if err := loadEnvFile(""); err != nil {
		t.Fatalf("empty path: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := writeTestFile(path, "ADVOCATE_CMD_TEST_VALUE=from-file\n"); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ADVOCATE_CMD_TEST_VALUE", "")
	os.Unsetenv("ADVOCATE_CMD_TEST_VALUE")

	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile: %v", err)
	}
	if got := os.Getenv("ADVOCATE_CMD_TEST_VALUE"); got != "from-file" {
		t.Errorf("env = %q, want %q", got, "from-file")
	}
}

func TestLoadEnvFileKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := writeTestFile(path, "ADVOCATE_CMD_TEST_VALUE=from-file\n"); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ADVOCATE_CMD_TEST_VALUE", "from-env")

	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile: %v", err)
	}
	if got := os.Getenv("ADVOCATE_CMD_TEST_VALUE"); got != "from-env" {
		t.Errorf("env = %q, want %q", got, "from-env")
	}
}

func writeTestFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

// writeSQLiteConfig writes a config pointing at a fresh sqlite file and
// returns the config path and the database path.
func writeSQLiteConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "advocate.db")
	cfgPath := filepath.Join(dir, "advocate.yaml")
	cfg := "database:\n  driver: sqlite\n  dsn: " + dbPath + "\nauth:\n  jwt_secret: test-secret\n"
	if err := writeTestFile(cfgPath, cfg); err != nil {
		t.Fatal(err)
	}
	return cfgPath, dbPath
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
