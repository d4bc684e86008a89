package web

import (
	"net/http"
	"testing"

	"github.com/evcraddock/house-broker/internal/user"
)

func TestAPIRegister(t *testing.T) {
	srv, _ := testAPIServer(t)

	w := apiRequest(t, srv, "POST", "/api/auth/register", "", map[string]string{
		"first_name": "Jane",
		"last_name":  "Doe",
		"email":      "Jane@Example.com",
		"password":   "password123",
		"role":       "broker",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var got map[string]interface{}
	decodeBody(t, w, &got)
	if got["email"] != "jane@example.com" {
		t.Errorf("email = %v", got["email"])
	}
	if got["role"] != "Broker" {
		t.Errorf("role = %v", got["role"])
	}
	if _, ok := got["password_hash"]; ok {
		t.Error("password hash must not be exposed")
	}
	if _, ok := got["PasswordHash"]; ok {
		t.Error("password hash must not be exposed")
	}
}

func TestAPIRegisterDefaultsToSeeker(t *testing.T) {
	srv, _ := testAPIServer(t)

	w := apiRequest(t, srv, "POST", "/api/auth/register", "", map[string]string{
		"email":    "seeker@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	u, err := srv.users.GetByEmail("seeker@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Role != user.Seeker {
		t.Errorf("role = %q, want Seeker", u.Role)
	}
}

func TestAPIRegisterErrors(t *testing.T) {
	srv, _ := testAPIServer(t)
	testUser(t, srv, "taken@example.com", user.Broker)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"duplicate email", map[string]string{"email": "taken@example.com", "password": "password123"}, http.StatusConflict},
		{"bad role", map[string]string{"email": "a@example.com", "password": "password123", "role": "admin"}, http.StatusBadRequest},
		{"short password", map[string]string{"email": "a@example.com", "password": "x"}, http.StatusBadRequest},
		{"bad email", map[string]string{"email": "nope", "password": "password123"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := apiRequest(t, srv, "POST", "/api/auth/register", "", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestAPILogin(t *testing.T) {
	srv, _ := testAPIServer(t)
	u, _ := testUser(t, srv, "broker@example.com", user.Broker)

	w := apiRequest(t, srv, "POST", "/api/auth/login", "", map[string]string{
		"email":    "broker@example.com",
		"password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	decodeBody(t, w, &resp)
	if resp.Token == "" {
		t.Fatal("expected token")
	}
	if resp.User.ID != u.ID {
		t.Errorf("user id = %d, want %d", resp.User.ID, u.ID)
	}

	created := createProperty(t, srv, resp.Token, "1 Elm St", "100000")
	if created.BrokerID != u.ID {
		t.Errorf("broker id = %d, want %d", created.BrokerID, u.ID)
	}
}

func TestAPILoginWrongPassword(t *testing.T) {
	srv, _ := testAPIServer(t)
	testUser(t, srv, "broker@example.com", user.Broker)

	w := apiRequest(t, srv, "POST", "/api/auth/login", "", map[string]string{
		"email":    "broker@example.com",
		"password": "wrong-password",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAPILoginRateLimited(t *testing.T) {
	srv, _ := testAPIServer(t)
	testUser(t, srv, "broker@example.com", user.Broker)

	bad := map[string]string{"email": "broker@example.com", "password": "wrong-password"}
	// The default limiter allows ten failures per minute.
	for i := 0; i < 10; i++ {
		if w := apiRequest(t, srv, "POST", "/api/auth/login", "", bad); w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i, w.Code)
		}
	}

	good := map[string]string{"email": "broker@example.com", "password": "password123"}
	if w := apiRequest(t, srv, "POST", "/api/auth/login", "", good); w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
}

