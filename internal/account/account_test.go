package account

import (
	"context"
	"testing"

	"github.com/sujalkunwar22/backend/internal/apperr"
	"github.com/sujalkunwar22/backend/internal/db"
	"github.com/sujalkunwar22/backend/internal/models"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := db.OpenTest()
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	return gormDB
}

func clientInput(email string) RegisterInput {
	return RegisterInput{
		Email:           email,
		Password:        "password1",
		Role:            models.RoleClient,
		FirstName:       "Grace",
		LastName:        "Hopper",
		AcceptedTerms:   true,
		AcceptedPrivacy: true,
	}
}

func TestRegister_Client(t *testing.T) {
	ctx := context.Background()
	gormDB := testDB(t)
	u, err := Register(ctx, gormDB, clientInput("  Grace@Example.com "))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.ID == "" {
		t.Error("expected generated id")
	}
	if u.Email != "grace@example.com" {
		t.Errorf("Email = %q, want normalized", u.Email)
	}
	if u.PasswordHash == "password1" {
		t.Error("password stored in plaintext")
	}
	if !u.IsActive {
		t.Error("new account should be active")
	}
}

func TestRegister_LawyerProfile(t *testing.T) {
	ctx := context.Background()
	gormDB := testDB(t)
	exp, rate := 5, 120.0
	in := clientInput("lawyer@example.com")
	in.Role = models.RoleLawyer
	in.LawyerData = &LawyerDetails{
		BarLicenseNumber: "BAR-1",
		Specialization:   []string{"family"},
		Experience:       &exp,
		HourlyRate:       &rate,
	}
	u, err := Register(ctx, gormDB, in)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, err := Get(ctx, gormDB, u.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LawyerProfile == nil || got.LawyerProfile.BarLicenseNumber != "BAR-1" {
		t.Fatalf("LawyerProfile = %+v", got.LawyerProfile)
	}
	if len(got.LawyerProfile.Specialization) != 1 || got.LawyerProfile.Specialization[0] != "family" {
		t.Errorf("Specialization = %v", got.LawyerProfile.Specialization)
	}
}

func TestRegister_IncompleteLawyerDataSkipsProfile(t *testing.T) {
	ctx := context.Background()
	gormDB := testDB(t)
	in := clientInput("l2@example.com")
	in.Role = models.RoleLawyer
	in.LawyerData = &LawyerDetails{BarLicenseNumber: "BAR-2"}
	u, err := Register(ctx, gormDB, in)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, _ := Get(ctx, gormDB, u.ID)
	if got.LawyerProfile != nil {
		t.Errorf("expected no profile, got %+v", got.LawyerProfile)
	}
}

func TestRegister_Rejects(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*RegisterInput)
		kind apperr.Kind
	}{
		{"bad email", func(in *RegisterInput) { in.Email = "nope" }, apperr.Validation},
		{"short password", func(in *RegisterInput) { in.Password = "abc" }, apperr.Validation},
		{"terms", func(in *RegisterInput) { in.AcceptedTerms = false }, apperr.Validation},
		{"admin role", func(in *RegisterInput) { in.Role = models.RoleAdmin }, apperr.Validation},
		{"missing name", func(in *RegisterInput) { in.FirstName = " " }, apperr.Validation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := clientInput("x@example.com")
			tt.mut(&in)
			_, err := Register(context.Background(), testDB(t), in)
			if !apperr.Is(err, tt.kind) {
				t.Fatalf("err = %v, want %v", err, tt.kind)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	gormDB := testDB(t)
	if _, err := Register(ctx, gormDB, clientInput("dup@example.com")); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := Register(ctx, gormDB, clientInput("DUP@example.com"))
	if !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	gormDB := testDB(t)
	u, err := Register(ctx, gormDB, clientInput("login@example.com"))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := Login(ctx, gormDB, "LOGIN@example.com", "password1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("ID = %q, want %q", got.ID, u.ID)
	}

	if _, err := Login(ctx, gormDB, "login@example.com", "wrong"); !apperr.Is(err, apperr.Unauthenticated) {
		t.Errorf("wrong password err = %v", err)
	}
	if _, err := Login(ctx, gormDB, "ghost@example.com", "password1"); !apperr.Is(err, apperr.Unauthenticated) {
		t.Errorf("unknown email err = %v", err)
	}

	gormDB.Model(&models.User{}).Where("id = ?", u.ID).Update("is_active", false)
	_, err = Login(ctx, gormDB, "login@example.com", "password1")
	if !apperr.Is(err, apperr.Unauthenticated) {
		t.Fatalf("inactive err = %v", err)
	}
	if e, _ := apperr.As(err); e.Message != "Account is inactive. Please contact support." {
		t.Errorf("message = %q", e.Message)
	}
}

func TestFindActiveLawyer(t *testing.T) {
	ctx := context.Background()
	gormDB := testDB(t)
	client, _ := Register(ctx, gormDB, clientInput("c@example.com"))
	in := clientInput("l@example.com")
	in.Role = models.RoleLawyer
	lawyer, _ := Register(ctx, gormDB, in)

	if _, err := FindActiveLawyer(ctx, gormDB, lawyer.ID); err != nil {
		t.Errorf("active lawyer: %v", err)
	}
	if _, err := FindActiveLawyer(ctx, gormDB, client.ID); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("client as lawyer err = %v", err)
	}
	gormDB.Model(&models.User{}).Where("id = ?", lawyer.ID).Update("is_active", false)
	if _, err := FindActiveLawyer(ctx, gormDB, lawyer.ID); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("inactive lawyer err = %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	if _, err := Get(context.Background(), testDB(t), "missing"); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestCreateAdmin(t *testing.T) {
	ctx := context.Background()
	gormDB := testDB(t)

	admin, created, err := CreateAdmin(ctx, gormDB, "root@example.com", "adminpass", "Root", "User")
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if !created || admin.Role != models.RoleAdmin {
		t.Fatalf("created = %v, role = %q", created, admin.Role)
	}

	again, created, err := CreateAdmin(ctx, gormDB, "root@example.com", "newpass1", "Root", "User")
	if err != nil {
		t.Fatalf("second CreateAdmin: %v", err)
	}
	if created {
		t.Error("second call should update, not create")
	}
	if again.ID != admin.ID {
		t.Errorf("ID changed: %q vs %q", again.ID, admin.ID)
	}
	if _, err := Login(ctx, gormDB, "root@example.com", "newpass1"); err != nil {
		t.Errorf("login with reset password: %v", err)
	}
}

func TestCreateAdmin_PromotesExisting(t *testing.T) {
	ctx := context.Background()
	gormDB := testDB(t)
	u, _ := Register(ctx, gormDB, clientInput("promote@example.com"))
	got, created, err := CreateAdmin(ctx, gormDB, "promote@example.com", "adminpass", "", "")
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if created || got.ID != u.ID {
		t.Errorf("created = %v, id = %q", created, got.ID)
	}
	reloaded, _ := Get(ctx, gormDB, u.ID)
	if reloaded.Role != models.RoleAdmin {
		t.Errorf("Role = %q, want ADMIN", reloaded.Role)
	}
}
