package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/evcraddock/house-broker/internal/property"
	"github.com/evcraddock/house-broker/internal/user"
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printPropertySummary prints a single property with its broker in text format.
func printPropertySummary(w io.Writer, p *property.PropertyWithBroker) {
	fmt.Fprintf(w, "Property #%d\n", p.ID)
	fmt.Fprintf(w, "  Type:     %s\n", p.Type)
	fmt.Fprintf(w, "  Address:  %s, %s %s\n", p.Location.Street, p.Location.City, p.Location.PostalCode)
	fmt.Fprintf(w, "  Price:    %s\n", formatPrice(p.Price))
	fmt.Fprintf(w, "  Broker:   %s <%s>\n", p.Broker.FullName(), p.Broker.Email)
	fmt.Fprintf(w, "  Listed:   %s\n", p.CreatedAt.Local().Format("2006-01-02 15:04"))
	if p.Description != nil {
		fmt.Fprintf(w, "  About:    %s\n", *p.Description)
	}
	if p.Features != nil {
		fmt.Fprintf(w, "  Features: %s\n", *p.Features)
	}
	if len(p.ImageURLs) > 0 {
		fmt.Fprintf(w, "  Images (%d):\n", len(p.ImageURLs))
		for _, u := range p.ImageURLs {
			fmt.Fprintf(w, "    %s\n", u)
		}
	}
}

// printPropertyTable prints a list of properties as a formatted table.
func printPropertyTable(out io.Writer, props []*property.PropertyWithBroker) error {
	if len(props) == 0 {
		fmt.Fprintln(out, "No properties found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tTYPE\tADDRESS\tCITY\tPRICE\tBROKER"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, "--\t----\t-------\t----\t-----\t------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, p := range props {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Type, truncate(p.Location.Street, 32), truncate(p.Location.City, 20),
			formatPrice(p.Price), truncate(p.Broker.FullName(), 24)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	return w.Flush()
}

// printUserTable prints registered users as a formatted table.
func printUserTable(out io.Writer, users []*user.User) error {
	if len(users) == 0 {
		fmt.Fprintln(out, "No users found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, u := range users {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.FullName(), u.Email, u.Role); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return w.Flush()
}

// formatPrice formats money with thousands separators, e.g. "$250,000.00"
// for USD and "1,200.50 EUR" otherwise.
func formatPrice(m property.Money) string {
	s := m.Amount.StringFixed(2)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var parts []string
	for len(whole) > 3 {
		parts = append([]string{whole[len(whole)-3:]}, parts...)
		whole = whole[:len(whole)-3]
	}
	parts = append([]string{whole}, parts...)
	amount := sign + strings.Join(parts, ",") + "." + frac

	if m.Currency == "" || m.Currency == property.DefaultCurrency {
		return "$" + amount
	}
	return amount + " " + m.Currency
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
