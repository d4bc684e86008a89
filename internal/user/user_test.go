package user

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/evcraddock/house-broker/internal/db"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if cerr := d.Close(); cerr != nil {
			t.Errorf("close db: %v", cerr)
		}
	})
	return NewStore(d)
}

func TestCreateAndGet(t *testing.T) {
	s := testStore(t)

	u, err := s.Create(User{FirstName: " Jane ", LastName: "Doe", Email: "Jane@Example.COM", Role: Broker}, "correct horse")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if u.Email != "jane@example.com" {
		t.Errorf("email = %q, want lowercased", u.Email)
	}
	if u.FirstName != "Jane" {
		t.Errorf("first name = %q", u.FirstName)
	}
	if u.PasswordHash == "" || u.PasswordHash == "correct horse" {
		t.Error("password should be stored hashed")
	}

	byID, err := s.GetByID(u.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.Email != u.Email || byID.Role != Broker {
		t.Errorf("got %+v", byID)
	}
	if byID.FullName() != "Jane Doe" {
		t.Errorf("full name = %q", byID.FullName())
	}
	if !byID.IsBroker() {
		t.Error("expected broker")
	}

	byEmail, err := s.GetByEmail("JANE@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != u.ID {
		t.Errorf("id = %d, want %d", byEmail.ID, u.ID)
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	s := testStore(t)

	if _, err := s.Create(User{Email: "bob@example.com", Role: Seeker}, "password1"); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := s.Create(User{Email: "BOB@example.com", Role: Broker}, "password2")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestCreateValidation(t *testing.T) {
	s := testStore(t)

	tests := []struct {
		name     string
		user     User
		password string
	}{
		{"empty email", User{Role: Broker}, "password1"},
		{"bad email", User{Email: "not-an-email", Role: Broker}, "password1"},
		{"unknown role", User{Email: "a@example.com", Role: "Admin"}, "password1"},
		{"short password", User{Email: "a@example.com", Role: Broker}, "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Create(tt.user, tt.password); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGetNotFound(t *testing.T) {
	s := testStore(t)

	if _, err := s.GetByID(999); !errors.Is(err, ErrNotFound) {
		t.Errorf("get by id = %v, want ErrNotFound", err)
	}
	if _, err := s.GetByEmail("nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get by email = %v, want ErrNotFound", err)
	}
}

func TestAuthenticate(t *testing.T) {
	s := testStore(t)

	created, err := s.Create(User{Email: "broker@example.com", Role: Broker}, "s3cret-pass")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	u, err := s.Authenticate("Broker@Example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u.ID != created.ID {
		t.Errorf("id = %d, want %d", u.ID, created.ID)
	}

	if _, err := s.Authenticate("broker@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := s.Authenticate("nobody@example.com", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email = %v, want ErrInvalidCredentials", err)
	}
}

func TestList(t *testing.T) {
	s := testStore(t)

	for _, u := range []User{
		{Email: "carol@example.com", Role: Broker},
		{Email: "alice@example.com", Role: Broker},
		{Email: "bob@example.com", Role: Seeker},
	} {
		if _, err := s.Create(u, "password1"); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	brokers, err := s.List(Broker)
	if err != nil {
		t.Fatalf("list brokers: %v", err)
	}
	if len(brokers) != 2 {
		t.Fatalf("brokers = %d, want 2", len(brokers))
	}
	if brokers[0].Email != "alice@example.com" {
		t.Errorf("first broker = %q, want alice (ordered by email)", brokers[0].Email)
	}

	all, err := s.List("")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all = %d, want 3", len(all))
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"broker", Broker, false},
		{"Seeker", Seeker, false},
		{" BROKER ", Broker, false},
		{"admin", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRole(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
