package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/evcraddock/house-broker/internal/auth"
	"github.com/evcraddock/house-broker/internal/db"
	"github.com/evcraddock/house-broker/internal/user"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// testAPIServer creates a server on a fresh database.
func testAPIServer(t *testing.T) (*Server, *sqlx.DB) {
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

	iss, err := auth.NewIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return NewServer(d, iss), d
}

// testUser registers an account directly and returns it with a bearer token.
func testUser(t *testing.T, srv *Server, email string, role user.Role) (*user.User, string) {
	t.Helper()
	u, err := srv.users.Create(user.User{FirstName: "Test", LastName: "User", Email: email, Role: role}, "password123")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, _, err := srv.issuer.Issue(u)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return u, token
}

func apiRequest(t *testing.T, srv *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	reqBody := &bytes.Buffer{}
	if body != nil {
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}

	r := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
}

func propertyBody(street string, price string, images ...string) map[string]interface{} {
	return map[string]interface{}{
		"type": "house",
		"location": map[string]string{
			"street":      street,
			"city":        "Springfield",
			"postal_code": "62701",
		},
		"price":      map[string]string{"amount": price, "currency": "USD"},
		"image_urls": images,
	}
}

type propertyResponse struct {
	ID       int64    `json:"id"`
	Type     string   `json:"type"`
	BrokerID int64    `json:"broker_id"`
	Images   []string `json:"image_urls"`
	Location struct {
		Street string `json:"street"`
		City   string `json:"city"`
	} `json:"location"`
	Price struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"price"`
	Broker struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	} `json:"broker"`
}

func createProperty(t *testing.T, srv *Server, token, street, price string, images ...string) propertyResponse {
	t.Helper()
	w := apiRequest(t, srv, "POST", "/api/properties", token, propertyBody(street, price, images...))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var p propertyResponse
	decodeBody(t, w, &p)
	return p
}

func TestAPIHealth(t *testing.T) {
	srv, _ := testAPIServer(t)

	w := apiRequest(t, srv, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAPIHealthDatabaseDown(t *testing.T) {
	srv, d := testAPIServer(t)
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	w := apiRequest(t, srv, "GET", "/health", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestAPICreateAndGetProperty(t *testing.T) {
	srv, _ := testAPIServer(t)
	broker, token := testUser(t, srv, "broker@example.com", user.Broker)

	created := createProperty(t, srv, token, "1 Elm St", "250000.50", "a.jpg", "b.jpg", "a.jpg")
	if created.ID == 0 {
		t.Fatal("expected ID")
	}
	if created.BrokerID != broker.ID {
		t.Errorf("broker id = %d, want %d", created.BrokerID, broker.ID)
	}
	if created.Type != "House" {
		t.Errorf("type = %q, want House", created.Type)
	}

	w := apiRequest(t, srv, "GET", fmt.Sprintf("/api/properties/%d", created.ID), "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", w.Code, w.Body.String())
	}
	var got propertyResponse
	decodeBody(t, w, &got)

	if got.Location.Street != "1 Elm St" {
		t.Errorf("street = %q", got.Location.Street)
	}
	if got.Price.Amount != "250000.5" {
		t.Errorf("amount = %q, want 250000.5", got.Price.Amount)
	}
	if len(got.Images) != 2 || got.Images[0] != "a.jpg" || got.Images[1] != "b.jpg" {
		t.Errorf("images = %v, want [a.jpg b.jpg]", got.Images)
	}
	if got.Broker.Email != "broker@example.com" {
		t.Errorf("broker email = %q", got.Broker.Email)
	}
}

func TestAPICreatePropertyAuth(t *testing.T) {
	srv, _ := testAPIServer(t)
	_, seekerToken := testUser(t, srv, "seeker@example.com", user.Seeker)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"bad token", "garbage", http.StatusUnauthorized},
		{"seeker", seekerToken, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := apiRequest(t, srv, "POST", "/api/properties", tt.token, propertyBody("1 Elm St", "100"))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestAPICreatePropertyValidation(t *testing.T) {
	srv, _ := testAPIServer(t)
	_, token := testUser(t, srv, "broker@example.com", user.Broker)

	body := propertyBody("", "-5")
	w := apiRequest(t, srv, "POST", "/api/properties", token, body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	decodeBody(t, w, &resp)
	if _, ok := resp.Fields["location.street"]; !ok {
		t.Errorf("fields = %v, want location.street", resp.Fields)
	}
	if _, ok := resp.Fields["price.amount"]; !ok {
		t.Errorf("fields = %v, want price.amount", resp.Fields)
	}

	bad := propertyBody("1 Elm St", "100")
	bad["type"] = "castle"
	if w := apiRequest(t, srv, "POST", "/api/properties", token, bad); w.Code != http.StatusBadRequest {
		t.Errorf("unknown type status = %d, want 400", w.Code)
	}

	r := httptest.NewRequest("POST", "/api/properties", bytes.NewBufferString("{not json"))
	r.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, r)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}
}

func TestAPIGetPropertyErrors(t *testing.T) {
	srv, _ := testAPIServer(t)

	tests := []struct {
		path string
		want int
	}{
		{"/api/properties/999", http.StatusNotFound},
		{"/api/properties/abc", http.StatusBadRequest},
		{"/api/properties/0", http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := apiRequest(t, srv, "GET", tt.path, "", nil)
		if w.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, w.Code, tt.want)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("GET %s content type = %q", tt.path, ct)
		}
	}
}

func TestAPIUpdateProperty(t *testing.T) {
	srv, _ := testAPIServer(t)
	_, owner := testUser(t, srv, "owner@example.com", user.Broker)
	_, other := testUser(t, srv, "other@example.com", user.Broker)

	created := createProperty(t, srv, owner, "1 Elm St", "100000", "a.jpg", "b.jpg")
	path := fmt.Sprintf("/api/properties/%d", created.ID)

	if w := apiRequest(t, srv, "PUT", path, other, propertyBody("9 Oak Ave", "5")); w.Code != http.StatusForbidden {
		t.Errorf("update by other = %d, want 403", w.Code)
	}
	if w := apiRequest(t, srv, "PUT", "/api/properties/999", owner, propertyBody("9 Oak Ave", "5")); w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}

	w := apiRequest(t, srv, "PUT", path, owner, propertyBody("9 Oak Ave", "120000", "c.jpg"))
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}

	w = apiRequest(t, srv, "GET", path, "", nil)
	var got propertyResponse
	decodeBody(t, w, &got)
	if got.Location.Street != "9 Oak Ave" {
		t.Errorf("street = %q", got.Location.Street)
	}
	if len(got.Images) != 1 || got.Images[0] != "c.jpg" {
		t.Errorf("images = %v, want [c.jpg]", got.Images)
	}
}

func TestAPIDeleteProperty(t *testing.T) {
	srv, _ := testAPIServer(t)
	_, owner := testUser(t, srv, "owner@example.com", user.Broker)
	_, other := testUser(t, srv, "other@example.com", user.Broker)

	created := createProperty(t, srv, owner, "1 Elm St", "100000")
	path := fmt.Sprintf("/api/properties/%d", created.ID)

	if w := apiRequest(t, srv, "DELETE", path, other, nil); w.Code != http.StatusForbidden {
		t.Errorf("delete by other = %d, want 403", w.Code)
	}
	if w := apiRequest(t, srv, "DELETE", path, owner, nil); w.Code != http.StatusOK {
		t.Fatalf("delete = %d, body = %s", w.Code, w.Body.String())
	}
	if w := apiRequest(t, srv, "GET", path, "", nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestAPIListProperties(t *testing.T) {
	srv, _ := testAPIServer(t)

	w := apiRequest(t, srv, "GET", "/api/properties", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := bytes.TrimSpace(w.Body.Bytes()); string(body) != "[]" {
		t.Errorf("empty list body = %s, want []", body)
	}

	_, token := testUser(t, srv, "broker@example.com", user.Broker)
	first := createProperty(t, srv, token, "1 Elm St", "100000")
	second := createProperty(t, srv, token, "2 Elm St", "200000")

	w = apiRequest(t, srv, "GET", "/api/properties", "", nil)
	var props []propertyResponse
	decodeBody(t, w, &props)
	if len(props) != 2 {
		t.Fatalf("got %d properties, want 2", len(props))
	}
	if props[0].ID != second.ID || props[1].ID != first.ID {
		t.Errorf("order = [%d %d], want newest first [%d %d]", props[0].ID, props[1].ID, second.ID, first.ID)
	}
}

func TestAPISearchProperties(t *testing.T) {
	srv, _ := testAPIServer(t)
	_, token := testUser(t, srv, "broker@example.com", user.Broker)

	for i := 0; i < 5; i++ {
		createProperty(t, srv, token, fmt.Sprintf("%d Downtown Ave", i), fmt.Sprintf("%d", 100000*(i+1)))
	}
	createProperty(t, srv, token, "1 Quiet Ln", "50000")

	type page struct {
		Items      []propertyResponse `json:"items"`
		Page       int                `json:"page"`
		PageSize   int                `json:"page_size"`
		TotalCount int                `json:"total_count"`
		TotalPages int                `json:"total_pages"`
	}

	tests := []struct {
		name      string
		query     string
		wantItems int
		wantTotal int
		wantPages int
	}{
		{"defaults", "", 6, 6, 1},
		{"location", "?location=DOWNTOWN", 5, 5, 1},
		{"price range", "?minPrice=150000&maxPrice=350000", 2, 2, 1},
		{"type", "?propertyType=house", 6, 6, 1},
		{"paged", "?pageSize=4&page=2", 2, 6, 2},
		{"past end", "?pageSize=4&page=3", 0, 6, 2},
		{"page size capped", "?pageSize=1000", 6, 6, 1},
		{"min price beyond storable range", "?minPrice=92233720368547758.08", 0, 0, 0},
		{"max price beyond storable range", "?maxPrice=100000000000000000000", 6, 6, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := apiRequest(t, srv, "GET", "/api/properties/search"+tt.query, "", nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			var p page
			decodeBody(t, w, &p)
			if len(p.Items) != tt.wantItems {
				t.Errorf("items = %d, want %d", len(p.Items), tt.wantItems)
			}
			if p.TotalCount != tt.wantTotal {
				t.Errorf("total = %d, want %d", p.TotalCount, tt.wantTotal)
			}
			if p.TotalPages != tt.wantPages {
				t.Errorf("pages = %d, want %d", p.TotalPages, tt.wantPages)
			}
			if p.PageSize > maxPageSize {
				t.Errorf("page size = %d, exceeds cap", p.PageSize)
			}
			for _, item := range p.Items {
				if item.Broker.Email != "broker@example.com" {
					t.Errorf("item %d broker = %q", item.ID, item.Broker.Email)
				}
			}
		})
	}
}

func TestAPISearchBadParams(t *testing.T) {
	srv, _ := testAPIServer(t)

	for _, q := range []string{
		"?page=0",
		"?page=abc",
		"?pageSize=-1",
		"?minPrice=cheap",
		"?maxPrice=1e",
		"?propertyType=castle",
		"?minPrice=500&maxPrice=100",
		"?page=100000000000000000&pageSize=100",
	} {
		w := apiRequest(t, srv, "GET", "/api/properties/search"+q, "", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("GET search%s = %d, want 400", q, w.Code)
		}
	}
}

func TestAPIUnknownRoute(t *testing.T) {
	srv, _ := testAPIServer(t)

	w := apiRequest(t, srv, "GET", "/api/nothing", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
