package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/evcraddock/house-broker/internal/auth"
	"github.com/evcraddock/house-broker/internal/property"
)

// maxPageSize caps the page size a client may request.
const maxPageSize = 100

// maxBodyBytes limits JSON request bodies.
const maxBodyBytes = 1 << 20

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	apiJSON(w, map[string]string{"error": msg}, code)
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apiError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// apiServiceError maps property service errors to HTTP responses.
func apiServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *property.ValidationError
	var ce *property.ConstraintError
	switch {
	case errors.As(err, &ve):
		apiJSON(w, map[string]interface{}{"error": "validation failed", "fields": ve.Fields}, http.StatusBadRequest)
	case errors.Is(err, property.ErrInvalidPage):
		apiError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, property.ErrNotFound):
		apiError(w, "property not found", http.StatusNotFound)
	case errors.Is(err, property.ErrForbidden):
		apiError(w, "property belongs to another broker", http.StatusForbidden)
	case errors.As(err, &ce):
		apiError(w, "request conflicts with stored data", http.StatusConflict)
	default:
		slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		apiError(w, "internal error", http.StatusInternalServerError)
	}
}

// propertyID parses the {id} URL parameter.
func propertyID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		apiError(w, "invalid property ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// brokerID returns the authenticated caller's user ID.
func brokerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		apiError(w, "authorization required", http.StatusUnauthorized)
		return 0, false
	}
	id, err := claims.UserID()
	if err != nil {
		apiError(w, "invalid token subject", http.StatusUnauthorized)
		return 0, false
	}
	return id, true
}

// apiListProperties returns all properties with their brokers.
func (s *Server) apiListProperties(w http.ResponseWriter, r *http.Request) {
	props, err := s.props.ListWithBroker()
	if err != nil {
		apiServiceError(w, r, err)
		return
	}
	if props == nil {
		props = []*property.PropertyWithBroker{}
	}
	apiJSON(w, props, http.StatusOK)
}

// apiSearchProperties runs a filtered, paginated search.
func (s *Server) apiSearchProperties(w http.ResponseWriter, r *http.Request) {
	f, msg := parseSearchFilters(r)
	if msg != "" {
		apiError(w, msg, http.StatusBadRequest)
		return
	}

	res, err := s.props.SearchWithBroker(f)
	if err != nil {
		apiServiceError(w, r, err)
		return
	}
	apiJSON(w, res, http.StatusOK)
}

// parseSearchFilters reads search criteria from the query string. It returns
// a message describing the first bad parameter, if any.
func parseSearchFilters(r *http.Request) (property.SearchFilters, string) {
	q := r.URL.Query()
	f := property.NewSearchFilters()

	if v := strings.TrimSpace(q.Get("location")); v != "" {
		f.Location = &v
	}

	for _, p := range []struct {
		name string
		dst  **decimal.Decimal
	}{
		{"minPrice", &f.MinPrice},
		{"maxPrice", &f.MaxPrice},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return f, p.name + " must be a number"
		}
		*p.dst = &d
	}

	if v := q.Get("propertyType"); v != "" {
		t, err := property.ParsePropertyType(v)
		if err != nil {
			return f, "unknown propertyType " + strconv.Quote(v)
		}
		name := string(t)
		f.PropertyType = &name
	}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, "page must be a positive integer"
		}
		f.Page = n
	}
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, "pageSize must be a positive integer"
		}
		f.PageSize = min(n, maxPageSize)
	}

	return f, ""
}

// apiGetProperty returns a single property with its broker.
func (s *Server) apiGetProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := propertyID(w, r)
	if !ok {
		return
	}

	p, err := s.props.GetWithBroker(id)
	if err != nil {
		apiServiceError(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

// apiCreateProperty publishes a listing owned by the calling broker.
func (s *Server) apiCreateProperty(w http.ResponseWriter, r *http.Request) {
	owner, ok := brokerID(w, r)
	if !ok {
		return
	}

	var in property.Input
	if !decodeJSON(w, r, &in) {
		return
	}

	p, err := s.props.Create(owner, in)
	if err != nil {
		apiServiceError(w, r, err)
		return
	}

	slog.Info("property created", "id", p.ID, "broker_id", owner)
	apiJSON(w, p, http.StatusCreated)
}

// apiUpdateProperty replaces a listing owned by the calling broker.
func (s *Server) apiUpdateProperty(w http.ResponseWriter, r *http.Request) {
	owner, ok := brokerID(w, r)
	if !ok {
		return
	}
	id, ok := propertyID(w, r)
	if !ok {
		return
	}

	var in property.Input
	if !decodeJSON(w, r, &in) {
		return
	}

	p, err := s.props.Update(owner, id, in)
	if err != nil {
		apiServiceError(w, r, err)
		return
	}
	apiJSON(w, p, http.StatusOK)
}

// apiDeleteProperty removes a listing owned by the calling broker.
func (s *Server) apiDeleteProperty(w http.ResponseWriter, r *http.Request) {
	owner, ok := brokerID(w, r)
	if !ok {
		return
	}
	id, ok := propertyID(w, r)
	if !ok {
		return
	}

	if err := s.props.Delete(owner, id); err != nil {
		apiServiceError(w, r, err)
		return
	}

	slog.Info("property deleted", "id", id, "broker_id", owner)
	apiJSON(w, map[string]interface{}{"id": id, "removed": true}, http.StatusOK)
}
