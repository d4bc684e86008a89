package property

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// PropertyStore is the persistence contract the service depends on.
type PropertyStore interface {
	Add(p *Property) error
	Update(p *Property) error
	Delete(id int64) error
	GetByID(id int64) (*Property, bool, error)
	GetByIDWithBroker(id int64) (*PropertyWithBroker, bool, error)
	GetAll() ([]*Property, error)
	GetAllWithBroker() ([]*PropertyWithBroker, error)
	Search(f SearchFilters) (*PaginatedResult[*Property], error)
	SearchWithBroker(f SearchFilters) (*PaginatedResult[*PropertyWithBroker], error)
}

// Field limits enforced on Input.
const (
	MaxDescriptionLength = 1000
	MaxFeaturesLength    = 500
)

// MaxAmount is the largest price a listing may carry: 18 digits, two of them decimals.
var MaxAmount = decimal.RequireFromString("9999999999999999.99")

// Input is the caller-supplied content of a listing.
type Input struct {
	Type        PropertyType `json:"type"`
	Location    Location     `json:"location"`
	Price       Money        `json:"price"`
	Description *string      `json:"description,omitempty"`
	Features    *string      `json:"features,omitempty"`
	ImageURLs   []string     `json:"image_urls"`
}

// Validate checks required fields and length limits.
func (in Input) Validate() error {
	fields := make(map[string]string)

	if !in.Type.IsValid() {
		fields["type"] = fmt.Sprintf("must be one of %s", typeNames())
	}
	if strings.TrimSpace(in.Location.Street) == "" {
		fields["location.street"] = "is required"
	}
	if strings.TrimSpace(in.Location.City) == "" {
		fields["location.city"] = "is required"
	}
	if strings.TrimSpace(in.Location.PostalCode) == "" {
		fields["location.postal_code"] = "is required"
	}
	if strings.Count(EncodeLocation(in.Location), locationSeparator) != 2 {
		fields["location"] = fmt.Sprintf("must not contain %q", locationSeparator)
	}
	switch {
	case in.Price.Amount.LessThan(decimal.Zero):
		fields["price.amount"] = "must not be negative"
	case in.Price.Amount.GreaterThan(MaxAmount):
		fields["price.amount"] = "must be at most " + MaxAmount.StringFixed(2)
	}
	if in.Price.Currency != "" && len(in.Price.Currency) != 3 {
		fields["price.currency"] = "must be a three-letter code"
	}
	if in.Description != nil && utf8.RuneCountInString(*in.Description) > MaxDescriptionLength {
		fields["description"] = fmt.Sprintf("must be at most %d characters", MaxDescriptionLength)
	}
	if in.Features != nil && utf8.RuneCountInString(*in.Features) > MaxFeaturesLength {
		fields["features"] = fmt.Sprintf("must be at most %d characters", MaxFeaturesLength)
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func typeNames() string {
	names := make([]string, len(PropertyTypes))
	for i, t := range PropertyTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// normalizeImages trims URLs and drops blanks and repeats, keeping first-seen order.
func normalizeImages(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// Service provides property business logic on top of a PropertyStore.
type Service struct {
	store PropertyStore
}

// NewService creates a property service.
func NewService(store PropertyStore) *Service {
	return &Service{store: store}
}

// Create validates the input and stores a new listing owned by brokerID.
func (s *Service) Create(brokerID int64, in Input) (*Property, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p := &Property{
		Type:        in.Type,
		Location:    in.Location,
		Price:       withCurrency(in.Price),
		Description: in.Description,
		Features:    in.Features,
		BrokerID:    brokerID,
		ImageURLs:   normalizeImages(in.ImageURLs),
	}

	if err := s.store.Add(p); err != nil {
		return nil, fmt.Errorf("saving property: %w", err)
	}

	return p, nil
}

// Update replaces the content of a listing owned by brokerID.
func (s *Service) Update(brokerID, id int64, in Input) (*Property, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p, err := s.owned(brokerID, id)
	if err != nil {
		return nil, err
	}

	p.Type = in.Type
	p.Location = in.Location
	p.Price = withCurrency(in.Price)
	p.Description = in.Description
	p.Features = in.Features
	p.ImageURLs = normalizeImages(in.ImageURLs)

	if err := s.store.Update(p); err != nil {
		return nil, fmt.Errorf("updating property: %w", err)
	}

	return p, nil
}

// Delete removes a listing owned by brokerID.
func (s *Service) Delete(brokerID, id int64) error {
	if _, err := s.owned(brokerID, id); err != nil {
		return err
	}
	if err := s.store.Delete(id); err != nil {
		return fmt.Errorf("deleting property: %w", err)
	}
	return nil
}

// Get returns a listing or ErrNotFound.
func (s *Service) Get(id int64) (*Property, error) {
	p, found, err := s.store.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("getting property: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return p, nil
}

// GetWithBroker returns a listing with its broker or ErrNotFound.
func (s *Service) GetWithBroker(id int64) (*PropertyWithBroker, error) {
	p, found, err := s.store.GetByIDWithBroker(id)
	if err != nil {
		return nil, fmt.Errorf("getting property: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return p, nil
}

// List returns every listing, newest first.
func (s *Service) List() ([]*Property, error) {
	props, err := s.store.GetAll()
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	return props, nil
}

// ListWithBroker returns every listing with its broker, newest first.
func (s *Service) ListWithBroker() ([]*PropertyWithBroker, error) {
	props, err := s.store.GetAllWithBroker()
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	return props, nil
}

// Search runs a filtered, paginated search.
func (s *Service) Search(f SearchFilters) (*PaginatedResult[*Property], error) {
	if err := checkPriceRange(f); err != nil {
		return nil, err
	}
	res, err := s.store.Search(f)
	if err != nil {
		return nil, fmt.Errorf("searching properties: %w", err)
	}
	return res, nil
}

// SearchWithBroker runs a filtered, paginated search joined with brokers.
func (s *Service) SearchWithBroker(f SearchFilters) (*PaginatedResult[*PropertyWithBroker], error) {
	if err := checkPriceRange(f); err != nil {
		return nil, err
	}
	res, err := s.store.SearchWithBroker(f)
	if err != nil {
		return nil, fmt.Errorf("searching properties: %w", err)
	}
	return res, nil
}

func (s *Service) owned(brokerID, id int64) (*Property, error) {
	p, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if p.BrokerID != brokerID {
		return nil, ErrForbidden
	}
	return p, nil
}

func withCurrency(m Money) Money {
	if m.Currency == "" {
		m.Currency = DefaultCurrency
	} else {
		m.Currency = strings.ToUpper(m.Currency)
	}
	return m
}

func checkPriceRange(f SearchFilters) error {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return &ValidationError{Fields: map[string]string{"minPrice": "must not exceed maxPrice"}}
	}
	return nil
}
