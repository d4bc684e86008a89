package property

import (
	"database/sql"
	"errors"
)

// propertyRow is one properties row as stored.
type propertyRow struct {
	ID           int64          `db:"id"`
	PropertyType string         `db:"property_type"`
	Location     string         `db:"location"`
	Price        int64          `db:"price"`
	Currency     string         `db:"currency"`
	Description  sql.NullString `db:"description"`
	Features     sql.NullString `db:"features"`
	BrokerID     int64          `db:"broker_id"`
	CreatedAt    dbTime         `db:"created_at"`
}

// toProperty decodes the stored scalars. ImageURLs is left for the caller.
func (r propertyRow) toProperty() (*Property, error) {
	t, err := DecodePropertyType(r.PropertyType)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.ID = r.ID
		}
		return nil, err
	}

	return &Property{
		ID:          r.ID,
		Type:        t,
		Location:    DecodeLocation(r.Location),
		Price:       DecodeMoney(r.Price, r.Currency),
		Description: nullableString(r.Description),
		Features:    nullableString(r.Features),
		BrokerID:    r.BrokerID,
		CreatedAt:   r.CreatedAt.Time,
	}, nil
}

// brokerJoinRow is a properties row joined with its broker's contact columns.
type brokerJoinRow struct {
	propertyRow
	BrokerFirstName string `db:"broker_first_name"`
	BrokerLastName  string `db:"broker_last_name"`
	BrokerEmail     string `db:"broker_email"`
}

func (r brokerJoinRow) toPropertyWithBroker() (*PropertyWithBroker, error) {
	p, err := r.toProperty()
	if err != nil {
		return nil, err
	}
	return &PropertyWithBroker{
		Property: *p,
		Broker: BrokerContact{
			ID:        r.BrokerID,
			FirstName: r.BrokerFirstName,
			LastName:  r.BrokerLastName,
			Email:     r.BrokerEmail,
		},
	}, nil
}

// searchRow pairs a property with the window total carried on every row.
type searchRow struct {
	propertyRow
	TotalCount int `db:"total_count"`
}

// searchBrokerRow is the broker-joined variant of searchRow.
type searchBrokerRow struct {
	brokerJoinRow
	TotalCount int `db:"total_count"`
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
