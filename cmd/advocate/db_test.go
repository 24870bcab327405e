package main

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sujalkunwar22/backend/internal/db"
)

func TestDBCmd_Help(t *testing.T) {
	out, err := runCmd(t, "db", "--help")
	if err != nil {
		t.Fatalf("db --help failed: %v", err)
	}
	if !strings.Contains(out, "Database management") {
		t.Errorf("expected help to mention 'Database management', got: %s", out)
	}
	if !strings.Contains(out, "migrate") {
		t.Errorf("expected help to list 'migrate' subcommand, got: %s", out)
	}
}

func TestDBMigrateCmd_Help(t *testing.T) {
	out, err := runCmd(t, "db", "migrate", "--help")
	if err != nil {
		t.Fatalf("db migrate --help failed: %v", err)
	}
	if !strings.Contains(out, "--config") {
		t.Errorf("expected help to mention '--config' flag, got: %s", out)
	}
	if !strings.Contains(out, "advocate.yaml") {
		t.Errorf("expected default config path 'advocate.yaml', got: %s", out)
	}
}

func TestDBMigrateCmd_MissingConfig(t *testing.T) {
	_, err := runCmd(t, "db", "migrate", "--config", "/nonexistent/advocate.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "load config")
	}
}

func TestDBMigrateCmd_InvalidConfig(t *testing.T) {
	cfgPath := t.TempDir() + "/advocate.yaml"
	if err := writeTestFile(cfgPath, "database:\n  driver: postgres\n"); err != nil {
		t.Fatal(err)
	}

	_, err := runCmd(t, "db", "migrate", "--config", cfgPath)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("error = %q, want validation failure", err.Error())
	}
}

func TestDBMigrateCmd_SQLite(t *testing.T) {
	cfgPath, _ := writeSQLiteConfig(t)

	out, err := runCmd(t, "db", "migrate", "--config", cfgPath)
	if err != nil {
		t.Fatalf("db migrate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Connected to sqlite database") {
		t.Errorf("expected connect line, got: %s", out)
	}
	want := fmt.Sprintf("Migrated %d tables", len(db.AllModels()))
	if !strings.Contains(out, want) {
		t.Errorf("expected %q, got: %s", want, out)
	}

	// Migrating twice is a no-op.
	if _, err := runCmd(t, "db", "migrate", "--config", cfgPath); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestNewDBCmd(t *testing.T) {
	cmd := newDBCmd()
	if cmd.Use != "db" {
		t.Errorf("Use = %q, want %q", cmd.Use, "db")
	}
	if !cmd.HasSubCommands() {
		t.Error("db command should have subcommands")
	}
}
