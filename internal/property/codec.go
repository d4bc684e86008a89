package property

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// locationSeparator joins address parts in the location column.
const locationSeparator = "|"

// EncodeLocation flattens a location to Street|City|PostalCode.
func EncodeLocation(l Location) string {
	return l.Street + locationSeparator + l.City + locationSeparator + l.PostalCode
}

// DecodeLocation splits a stored location on the first two separators.
// Malformed or empty values decode to an empty Location.
func DecodeLocation(s string) Location {
	parts := strings.SplitN(s, locationSeparator, 3)
	if len(parts) != 3 {
		return Location{}
	}
	return Location{Street: parts[0], City: parts[1], PostalCode: parts[2]}
}

var (
	minCents = decimal.NewFromInt(math.MinInt64)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)

// EncodeMoney returns the amount in minor units (two decimal places,
// half away from zero) and the currency code to store alongside it.
// Amounts whose minor units do not fit in an int64 are rejected.
func EncodeMoney(m Money) (int64, string, error) {
	currency := m.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	cents := m.Amount.Round(2).Shift(2)
	if cents.LessThan(minCents) || cents.GreaterThan(maxCents) {
		return 0, "", fmt.Errorf("%w: %s", ErrAmountOutOfRange, m.Amount)
	}
	return cents.IntPart(), currency, nil
}

// DecodeMoney rebuilds a Money from minor units and a stored currency.
func DecodeMoney(cents int64, currency string) Money {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Money{Amount: decimal.New(cents, -2), Currency: currency}
}

// DecodePropertyType maps a stored name back to its PropertyType. Unlike
// ParsePropertyType it is case sensitive: stored values are canonical.
func DecodePropertyType(s string) (PropertyType, error) {
	t := PropertyType(s)
	if !t.IsValid() {
		return "", &DecodeError{Field: "property_type", Value: s}
	}
	return t, nil
}

// minPriceBound converts an inclusive lower price bound to minor units.
func minPriceBound(d decimal.Decimal) int64 {
	return clampCents(d.Shift(2).Ceil())
}

// maxPriceBound converts an inclusive upper price bound to minor units.
func maxPriceBound(d decimal.Decimal) int64 {
	return clampCents(d.Shift(2).Floor())
}

// clampCents saturates whole minor units to the int64 range.
func clampCents(cents decimal.Decimal) int64 {
	switch {
	case cents.LessThan(minCents):
		return math.MinInt64
	case cents.GreaterThan(maxCents):
		return math.MaxInt64
	}
	return cents.IntPart()
}

// timestampFormats are the layouts SQLite may hand back for DATETIME text.
var timestampFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// dbTime scans a timestamp column whether the driver returns time.Time or text.
type dbTime struct {
	time.Time
}

// Scan implements sql.Scanner.
func (t *dbTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

// Value implements driver.Valuer.
func (t dbTime) Value() (driver.Value, error) {
	return t.Time, nil
}

func (t *dbTime) parse(s string) error {
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range timestampFormats {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return &DecodeError{Field: "created_at", Value: s}
}
