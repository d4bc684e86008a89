package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/evcraddock/house-broker/internal/property"
)

type searchOptions struct {
	location string
	minPrice string
	maxPrice string
	kind     string
	page     int
	pageSize int
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search properties",
		Long:  "Search properties by location, price range and type, one page at a time.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.location, "location", "", "substring of street, city or postal code")
	f.StringVar(&opts.minPrice, "min-price", "", "minimum price, inclusive")
	f.StringVar(&opts.maxPrice, "max-price", "", "maximum price, inclusive")
	f.StringVar(&opts.kind, "type", "", "property type")
	f.IntVar(&opts.page, "page", property.DefaultPage, "page number, starting at 1")
	f.IntVar(&opts.pageSize, "page-size", property.DefaultPageSize, "results per page")

	return cmd
}

// filters converts the flags into property.SearchFilters.
func (o searchOptions) filters() (property.SearchFilters, error) {
	f := property.NewSearchFilters()
	f.Page = o.page
	f.PageSize = o.pageSize

	if o.location != "" {
		loc := o.location
		f.Location = &loc
	}
	if o.kind != "" {
		t, err := property.ParsePropertyType(o.kind)
		if err != nil {
			return f, fmt.Errorf("invalid --type: %w", err)
		}
		name := string(t)
		f.PropertyType = &name
	}

	var err error
	if f.MinPrice, err = parsePrice("--min-price", o.minPrice); err != nil {
		return f, err
	}
	if f.MaxPrice, err = parsePrice("--max-price", o.maxPrice); err != nil {
		return f, err
	}
	return f, nil
}

func parsePrice(flag, v string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", flag, v)
	}
	return &d, nil
}

func runSearch(cmd *cobra.Command, opts searchOptions) error {
	f, err := opts.filters()
	if err != nil {
		return err
	}

	svc, _, database, err := openCatalog()
	if err != nil {
		return err
	}
	defer closeDB(database)

	res, err := svc.SearchWithBroker(f)
	if err != nil {
		return describeError(err)
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, res)
	}

	if err := printPropertyTable(out, res.Items); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nPage %d of %d (%d matching)\n", res.Page, res.TotalPages, res.TotalCount)
	return nil
}
