package db

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/sujalkunwar22/backend/internal/models"
	"gorm.io/gorm"
)

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect("postgres", "whatever")
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if !strings.Contains(err.Error(), `unsupported driver "postgres"`) {
		t.Errorf("error = %q", err.Error())
	}
}

func TestAllModels_Count(t *testing.T) {
	if got := len(AllModels()); got != 9 {
		t.Errorf("AllModels() returned %d models, want 9", got)
	}
}

func TestAllModels_Types(t *testing.T) {
	want := map[string]bool{
		"*models.User":                false,
		"*models.LawyerProfile":       false,
		"*models.Appointment":         false,
		"*models.Conversation":        false,
		"*models.Message":             false,
		"*models.Notification":        false,
		"*models.Document":            false,
		"*models.Review":              false,
		"*models.VerificationRequest": false,
	}
	for _, m := range AllModels() {
		name := fmt.Sprintf("%T", m)
		if _, ok := want[name]; !ok {
			t.Errorf("unexpected model type %s", name)
			continue
		}
		want[name] = true
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("missing model %s", name)
		}
	}
}

func TestOpenTest_Migrates(t *testing.T) {
	gormDB, err := OpenTest()
	if err != nil {
		t.Fatalf("OpenTest: %v", err)
	}
	for _, m := range AllModels() {
		if !gormDB.Migrator().HasTable(m) {
			t.Errorf("table for %T not created", m)
		}
	}
}

func TestIsDuplicateKey(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"wrapped gorm", fmt.Errorf("create: %w", gorm.ErrDuplicatedKey), true},
		{"mysql 1062", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"mysql other", &mysql.MySQLError{Number: 1045, Message: "Access denied"}, false},
		{"sqlite text", errors.New("UNIQUE constraint failed: conversations.pair_key"), true},
		{"unrelated", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDuplicateKey(tt.err); got != tt.want {
				t.Errorf("IsDuplicateKey(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsDuplicateKey_RealConstraint(t *testing.T) {
	gormDB, err := OpenTest()
	if err != nil {
		t.Fatalf("OpenTest: %v", err)
	}
	c1 := models.Conversation{ParticipantA: "a", ParticipantB: "b", PairKey: "a:b"}
	if err := gormDB.Create(&c1).Error; err != nil {
		t.Fatalf("first create: %v", err)
	}
	c2 := models.Conversation{ParticipantA: "a", ParticipantB: "b", PairKey: "a:b"}
	err = gormDB.Create(&c2).Error
	if err == nil {
		t.Fatal("expected unique violation on duplicate pair key")
	}
	if !IsDuplicateKey(err) {
		t.Errorf("IsDuplicateKey(%v) = false, want true", err)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("get: %w", gorm.ErrRecordNotFound)) {
		t.Error("expected wrapped ErrRecordNotFound to be not-found")
	}
	if IsNotFound(errors.New("boom")) {
		t.Error("unexpected not-found")
	}
}
