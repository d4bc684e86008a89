package cli

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/evcraddock/house-broker/internal/property"
	"github.com/evcraddock/house-broker/internal/user"
)

type addOptions struct {
	broker      string
	kind        string
	street      string
	city        string
	postalCode  string
	price       string
	currency    string
	description string
	features    string
	images      []string
}

func newAddCmd() *cobra.Command {
	var opts addOptions

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Publish a property listing",
		Long:  "Publish a property listing on behalf of a registered broker.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.broker, "broker", "", "email of the owning broker")
	f.StringVar(&opts.kind, "type", "", "property type (Apartment|House|Condo|Townhouse|Land|Commercial)")
	f.StringVar(&opts.street, "street", "", "street address")
	f.StringVar(&opts.city, "city", "", "city")
	f.StringVar(&opts.postalCode, "postal-code", "", "postal code")
	f.StringVar(&opts.price, "price", "", "asking price, e.g. 250000 or 1999.99")
	f.StringVar(&opts.currency, "currency", property.DefaultCurrency, "ISO currency code")
	f.StringVar(&opts.description, "description", "", "free-form description")
	f.StringVar(&opts.features, "features", "", "feature summary")
	f.StringArrayVar(&opts.images, "image", nil, "image URL (repeatable, in display order)")

	for _, name := range []string{"broker", "type", "street", "city", "postal-code", "price"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

// input converts the flags into a property.Input.
func (o addOptions) input() (property.Input, error) {
	kind, err := property.ParsePropertyType(o.kind)
	if err != nil {
		return property.Input{}, fmt.Errorf("invalid --type: %w", err)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(o.price))
	if err != nil {
		return property.Input{}, fmt.Errorf("invalid price %q", o.price)
	}

	in := property.Input{
		Type:      kind,
		Location:  property.Location{Street: o.street, City: o.city, PostalCode: o.postalCode},
		Price:     property.Money{Amount: amount, Currency: o.currency},
		ImageURLs: o.images,
	}
	if o.description != "" {
		in.Description = &o.description
	}
	if o.features != "" {
		in.Features = &o.features
	}
	return in, nil
}

func runAdd(cmd *cobra.Command, opts addOptions) error {
	in, err := opts.input()
	if err != nil {
		return err
	}

	svc, users, database, err := openCatalog()
	if err != nil {
		return err
	}
	defer closeDB(database)

	broker, err := users.GetByEmail(opts.broker)
	if errors.Is(err, user.ErrNotFound) {
		return fmt.Errorf("no user with email %s", opts.broker)
	}
	if err != nil {
		return err
	}
	if !broker.IsBroker() {
		return fmt.Errorf("%s is not a broker", broker.Email)
	}

	p, err := svc.Create(broker.ID, in)
	if err != nil {
		return describeError(err)
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, p)
	}

	fmt.Fprintf(out, "Property #%d added.\n", p.ID)
	return nil
}

// describeError flattens validation errors into a readable message.
func describeError(err error) error {
	var ve *property.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	problems := make([]string, 0, len(ve.Fields))
	for _, field := range slices.Sorted(maps.Keys(ve.Fields)) {
		problems = append(problems, field+" "+ve.Fields[field])
	}
	return fmt.Errorf("invalid listing: %s", strings.Join(problems, "; "))
}
