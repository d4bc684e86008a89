package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/evcraddock/house-broker/internal/property"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		expected string
	}{
		{"zero", "0", "USD", "$0.00"},
		{"small", "999", "USD", "$999.00"},
		{"thousands", "250000", "USD", "$250,000.00"},
		{"millions with cents", "1000000.5", "USD", "$1,000,000.50"},
		{"empty currency", "1234", "", "$1,234.00"},
		{"other currency", "1200.5", "EUR", "1,200.50 EUR"},
		{"negative", "-4500", "USD", "$-4,500.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := property.Money{Amount: decimal.RequireFromString(tt.amount), Currency: tt.currency}
			result := formatPrice(m)
			if result != tt.expected {
				t.Errorf("formatPrice(%s) = %q, want %q", tt.amount, result, tt.expected)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world!", 8, "hello..."},
		{"multibyte", "Straße Nummer", 9, "Straße..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := truncate(tt.input, tt.max)
			if result != tt.expected {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.max, result, tt.expected)
			}
		})
	}
}

func TestPrintPropertyTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := printPropertyTable(&buf, nil); err != nil {
		t.Fatalf("print: %v", err)
	}
	if !strings.Contains(buf.String(), "No properties found.") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrintPropertySummary(t *testing.T) {
	desc := "Sunny corner unit"
	p := &property.PropertyWithBroker{
		Property: property.Property{
			ID:          3,
			Type:        property.Apartment,
			Location:    property.Location{Street: "1 Elm St", City: "Springfield", PostalCode: "12345"},
			Price:       property.NewMoney(decimal.NewFromInt(250000)),
			Description: &desc,
			ImageURLs:   []string{"https://img/a.jpg"},
		},
		Broker: property.BrokerContact{FirstName: "Jane", LastName: "Broker", Email: "jane@example.com"},
	}

	var buf bytes.Buffer
	printPropertySummary(&buf, p)
	out := buf.String()

	for _, want := range []string{
		"Property #3",
		"1 Elm St, Springfield 12345",
		"$250,000.00",
		"Jane Broker <jane@example.com>",
		"Sunny corner unit",
		"https://img/a.jpg",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Features:") {
		t.Error("features line printed for nil features")
	}
}
