// Package property provides the property listing domain model, its
// persistence layer and the application service built on top of it.
package property

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PropertyType is the kind of real estate being listed.
type PropertyType string

const (
	Apartment  PropertyType = "Apartment"
	House      PropertyType = "House"
	Condo      PropertyType = "Condo"
	Townhouse  PropertyType = "Townhouse"
	Land       PropertyType = "Land"
	Commercial PropertyType = "Commercial"
)

// PropertyTypes is the set of recognized property types.
var PropertyTypes = []PropertyType{Apartment, House, Condo, Townhouse, Land, Commercial}

// IsValid checks if a property type is recognized.
func (t PropertyType) IsValid() bool {
	for _, v := range PropertyTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ParsePropertyType maps a name to its PropertyType, ignoring case.
func ParsePropertyType(s string) (PropertyType, error) {
	for _, v := range PropertyTypes {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", &DecodeError{Field: "property_type", Value: s}
}

// UnmarshalJSON accepts any casing of a known type name.
func (t *PropertyType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("property type must be a string: %w", err)
	}
	pt, err := ParsePropertyType(s)
	if err != nil {
		return err
	}
	*t = pt
	return nil
}

// Location is a postal address.
type Location struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s, %s, %s", l.Street, l.City, l.PostalCode)
}

// DefaultCurrency is used when a price carries no currency code.
const DefaultCurrency = "USD"

// Money is a decimal amount in a currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// NewMoney returns an amount in DefaultCurrency.
func NewMoney(amount decimal.Decimal) Money {
	return Money{Amount: amount, Currency: DefaultCurrency}
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}

// Property is a listing published by a broker. It owns its ordered image list.
type Property struct {
	ID          int64        `json:"id"`
	Type        PropertyType `json:"type"`
	Location    Location     `json:"location"`
	Price       Money        `json:"price"`
	Description *string      `json:"description,omitempty"`
	Features    *string      `json:"features,omitempty"`
	BrokerID    int64        `json:"broker_id"`
	CreatedAt   time.Time    `json:"created_at"`
	ImageURLs   []string     `json:"image_urls"`
}

// BrokerContact is the read-only view of the broker that owns a listing.
type BrokerContact struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// FullName joins first and last name.
func (b BrokerContact) FullName() string {
	return strings.TrimSpace(b.FirstName + " " + b.LastName)
}

// PropertyWithBroker is a property joined with its owner's contact details.
type PropertyWithBroker struct {
	Property
	Broker BrokerContact `json:"broker"`
}

// Default paging values for SearchFilters.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
)

// SearchFilters narrows a search. Nil fields are not applied.
type SearchFilters struct {
	Location     *string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	PropertyType *string
	Page         int
	PageSize     int
}

// NewSearchFilters returns filters with default paging and no criteria.
func NewSearchFilters() SearchFilters {
	return SearchFilters{Page: DefaultPage, PageSize: DefaultPageSize}
}

// PaginatedResult is one page of a search.
type PaginatedResult[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPaginatedResult builds a page and derives TotalPages from the count.
func NewPaginatedResult[T any](items []T, page, pageSize, totalCount int) *PaginatedResult[T] {
	if items == nil {
		items = []T{}
	}
	return &PaginatedResult[T]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages(totalCount, pageSize),
	}
}

// totalPages is ceil(totalCount / pageSize).
func totalPages(totalCount, pageSize int) int {
	if pageSize < 1 {
		return 0
	}
	return (totalCount + pageSize - 1) / pageSize
}
