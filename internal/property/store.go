package property

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Connector hands out a dedicated connection for the duration of one
// operation. *sqlx.DB satisfies it.
type Connector interface {
	Connx(ctx context.Context) (*sqlx.Conn, error)
}

// Store persists properties and their image lists.
type Store struct {
	conns Connector
}

// NewStore creates a property store.
func NewStore(conns Connector) *Store {
	return &Store{conns: conns}
}

const insertPropertySQL = `INSERT INTO properties
	(property_type, location, price, currency, description, features, broker_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id`

const updatePropertySQL = `UPDATE properties SET
	property_type = ?, location = ?, price = ?, currency = ?, description = ?, features = ?
	WHERE id = ?`

const insertImageSQL = `INSERT INTO property_images
	(property_id, image_url, display_order, created_at)
	VALUES (?, ?, ?, ?)`

const propertyColumns = `p.id, p.property_type, p.location, p.price, p.currency,
	p.description, p.features, p.broker_id, p.created_at`

const brokerColumns = `u.first_name AS broker_first_name, u.last_name AS broker_last_name,
	u.email AS broker_email`

const newestFirst = `p.created_at DESC, p.id DESC`

// Add inserts the property and its images in one transaction and writes the
// assigned ID and creation time back onto p.
func (s *Store) Add(p *Property) error {
	if !p.Type.IsValid() {
		return fmt.Errorf("add property: unknown property type %q", p.Type)
	}

	cents, currency, err := EncodeMoney(p.Price)
	if err != nil {
		return fmt.Errorf("add property: %w", err)
	}

	ctx := context.Background()
	conn, err := s.acquire(ctx, "add")
	if err != nil {
		return err
	}
	defer release(conn)

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("add property: beginning transaction: %w", err)
	}
	defer rollback(tx)

	createdAt := time.Now().UTC()

	var id int64
	err = tx.QueryRowx(tx.Rebind(insertPropertySQL),
		string(p.Type), EncodeLocation(p.Location), cents, currency,
		p.Description, p.Features, p.BrokerID, createdAt,
	).Scan(&id)
	if err != nil {
		return wrapWrite("add", 0, "inserting property", err)
	}

	if err := insertImages(tx, "add", id, p.ImageURLs, createdAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapWrite("add", id, "committing", err)
	}

	p.ID = id
	p.CreatedAt = createdAt
	slog.Debug("property added", "id", id, "broker_id", p.BrokerID, "images", len(p.ImageURLs))
	return nil
}

// Update rewrites the mutable columns of p and replaces its image list in one
// transaction. The broker and creation time are never changed.
func (s *Store) Update(p *Property) error {
	if !p.Type.IsValid() {
		return fmt.Errorf("update property %d: unknown property type %q", p.ID, p.Type)
	}

	cents, currency, err := EncodeMoney(p.Price)
	if err != nil {
		return fmt.Errorf("update property %d: %w", p.ID, err)
	}

	ctx := context.Background()
	conn, err := s.acquire(ctx, "update")
	if err != nil {
		return err
	}
	defer release(conn)

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update property %d: beginning transaction: %w", p.ID, err)
	}
	defer rollback(tx)

	if _, err := tx.Exec(tx.Rebind(updatePropertySQL),
		string(p.Type), EncodeLocation(p.Location), cents, currency,
		p.Description, p.Features, p.ID,
	); err != nil {
		return wrapWrite("update", p.ID, "updating property", err)
	}

	if _, err := tx.Exec(tx.Rebind("DELETE FROM property_images WHERE property_id = ?"), p.ID); err != nil {
		return wrapWrite("update", p.ID, "deleting images", err)
	}

	if err := insertImages(tx, "update", p.ID, p.ImageURLs, time.Now().UTC()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapWrite("update", p.ID, "committing", err)
	}

	slog.Debug("property updated", "id", p.ID, "images", len(p.ImageURLs))
	return nil
}

// Delete removes a property by ID. Images cascade. Deleting a missing ID is not an error.
func (s *Store) Delete(id int64) error {
	ctx := context.Background()
	conn, err := s.acquire(ctx, "delete")
	if err != nil {
		return err
	}
	defer release(conn)

	result, err := conn.ExecContext(ctx, conn.Rebind("DELETE FROM properties WHERE id = ?"), id)
	if err != nil {
		return wrapWrite("delete", id, "deleting property", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete property %d: checking rows affected: %w", id, err)
	}

	slog.Debug("property deleted", "id", id, "rows", rows)
	return nil
}

// GetByID returns a property with its images. found is false when no row matches.
func (s *Store) GetByID(id int64) (*Property, bool, error) {
	ctx := context.Background()
	conn, err := s.acquire(ctx, "get")
	if err != nil {
		return nil, false, err
	}
	defer release(conn)

	query := fmt.Sprintf("SELECT %s FROM properties p WHERE p.id = ?", propertyColumns)

	var row propertyRow
	err = conn.QueryRowxContext(ctx, conn.Rebind(query), id).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying property %d: %w", id, err)
	}

	p, err := row.toProperty()
	if err != nil {
		return nil, false, err
	}

	images, err := loadImages(ctx, conn, []int64{id})
	if err != nil {
		return nil, false, err
	}
	p.ImageURLs = imagesFor(images, id)

	return p, true, nil
}

// GetByIDWithBroker returns a property joined with its broker. found is false
// when no row matches.
func (s *Store) GetByIDWithBroker(id int64) (*PropertyWithBroker, bool, error) {
	ctx := context.Background()
	conn, err := s.acquire(ctx, "get")
	if err != nil {
		return nil, false, err
	}
	defer release(conn)

	query := fmt.Sprintf(`SELECT %s, %s
		FROM properties p
		INNER JOIN users u ON p.broker_id = u.id
		WHERE p.id = ?`, propertyColumns, brokerColumns)

	var row brokerJoinRow
	err = conn.QueryRowxContext(ctx, conn.Rebind(query), id).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying property %d with broker: %w", id, err)
	}

	pb, err := row.toPropertyWithBroker()
	if err != nil {
		return nil, false, err
	}

	images, err := loadImages(ctx, conn, []int64{id})
	if err != nil {
		return nil, false, err
	}
	pb.ImageURLs = imagesFor(images, id)

	return pb, true, nil
}

// GetAll returns every property, newest first.
func (s *Store) GetAll() ([]*Property, error) {
	ctx := context.Background()
	conn, err := s.acquire(ctx, "list")
	if err != nil {
		return nil, err
	}
	defer release(conn)

	query := fmt.Sprintf("SELECT %s FROM properties p ORDER BY %s", propertyColumns, newestFirst)

	rows, err := conn.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	defer closeRows(rows)

	var properties []*Property
	var ids []int64
	for rows.Next() {
		var row propertyRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		p, err := row.toProperty()
		if err != nil {
			return nil, err
		}
		properties = append(properties, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating properties: %w", err)
	}

	images, err := loadImages(ctx, conn, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range properties {
		p.ImageURLs = imagesFor(images, p.ID)
	}

	return properties, nil
}

// GetAllWithBroker returns every property joined with its broker, newest first.
func (s *Store) GetAllWithBroker() ([]*PropertyWithBroker, error) {
	ctx := context.Background()
	conn, err := s.acquire(ctx, "list")
	if err != nil {
		return nil, err
	}
	defer release(conn)

	query := fmt.Sprintf(`SELECT %s, %s
		FROM properties p
		INNER JOIN users u ON p.broker_id = u.id
		ORDER BY %s`, propertyColumns, brokerColumns, newestFirst)

	rows, err := conn.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing properties with broker: %w", err)
	}
	defer closeRows(rows)

	flat := newFlattener[*PropertyWithBroker]()
	for rows.Next() {
		var row brokerJoinRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scanning property with broker: %w", err)
		}
		if err := flat.add(row.ID, row.toPropertyWithBroker); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating properties with broker: %w", err)
	}

	items := flat.values()
	if err := attachBrokerImages(ctx, conn, flat.ids(), items); err != nil {
		return nil, err
	}

	return items, nil
}

// Search returns one page of properties matching f, newest first.
func (s *Store) Search(f SearchFilters) (*PaginatedResult[*Property], error) {
	if !validPage(f.Page, f.PageSize) {
		return nil, ErrInvalidPage
	}

	ctx := context.Background()
	conn, err := s.acquire(ctx, "search")
	if err != nil {
		return nil, err
	}
	defer release(conn)

	where, args := applyFilters(f)
	start, end := pageWindow(f.Page, f.PageSize)

	query := fmt.Sprintf(`WITH results AS (
			SELECT %s,
				ROW_NUMBER() OVER (ORDER BY %s) AS row_num,
				COUNT(*) OVER () AS total_count
			FROM properties p
			%s
		)
		SELECT id, property_type, location, price, currency, description, features,
			broker_id, created_at, total_count
		FROM results
		WHERE row_num BETWEEN ? AND ?
		ORDER BY row_num`, propertyColumns, newestFirst, where)

	rows, err := conn.QueryxContext(ctx, conn.Rebind(query), append(args, start, end)...)
	if err != nil {
		return nil, fmt.Errorf("searching properties: %w", err)
	}
	defer closeRows(rows)

	var items []*Property
	var ids []int64
	totalCount := 0
	for rows.Next() {
		var row searchRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		totalCount = row.TotalCount
		p, err := row.toProperty()
		if err != nil {
			return nil, err
		}
		items = append(items, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search rows: %w", err)
	}

	if len(items) == 0 && f.Page > 1 {
		if totalCount, err = countMatches(ctx, conn, "FROM properties p "+where, args); err != nil {
			return nil, err
		}
	}

	images, err := loadImages(ctx, conn, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		p.ImageURLs = imagesFor(images, p.ID)
	}

	return NewPaginatedResult(items, f.Page, f.PageSize, totalCount), nil
}

// SearchWithBroker returns one page of properties joined with their brokers.
func (s *Store) SearchWithBroker(f SearchFilters) (*PaginatedResult[*PropertyWithBroker], error) {
	if !validPage(f.Page, f.PageSize) {
		return nil, ErrInvalidPage
	}

	ctx := context.Background()
	conn, err := s.acquire(ctx, "search")
	if err != nil {
		return nil, err
	}
	defer release(conn)

	where, args := applyFilters(f)
	start, end := pageWindow(f.Page, f.PageSize)

	query := fmt.Sprintf(`WITH results AS (
			SELECT %s, %s,
				ROW_NUMBER() OVER (ORDER BY %s) AS row_num,
				COUNT(*) OVER () AS total_count
			FROM properties p
			INNER JOIN users u ON p.broker_id = u.id
			%s
		)
		SELECT id, property_type, location, price, currency, description, features,
			broker_id, created_at, broker_first_name, broker_last_name, broker_email, total_count
		FROM results
		WHERE row_num BETWEEN ? AND ?
		ORDER BY row_num`, propertyColumns, brokerColumns, newestFirst, where)

	rows, err := conn.QueryxContext(ctx, conn.Rebind(query), append(args, start, end)...)
	if err != nil {
		return nil, fmt.Errorf("searching properties with broker: %w", err)
	}
	defer closeRows(rows)

	flat := newFlattener[*PropertyWithBroker]()
	totalCount := 0
	for rows.Next() {
		var row searchBrokerRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		totalCount = row.TotalCount
		if err := flat.add(row.ID, row.toPropertyWithBroker); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search rows: %w", err)
	}

	if flat.count() == 0 && f.Page > 1 {
		from := "FROM properties p INNER JOIN users u ON p.broker_id = u.id " + where
		if totalCount, err = countMatches(ctx, conn, from, args); err != nil {
			return nil, err
		}
	}

	items := flat.values()
	if err := attachBrokerImages(ctx, conn, flat.ids(), items); err != nil {
		return nil, err
	}

	return NewPaginatedResult(items, f.Page, f.PageSize, totalCount), nil
}

// acquire takes a dedicated connection from the provider.
func (s *Store) acquire(ctx context.Context, op string) (*sqlx.Conn, error) {
	conn, err := s.conns.Connx(ctx)
	if err != nil {
		return nil, &ConnectionError{Op: op + " property", Err: err}
	}
	return conn, nil
}

// countMatches counts the filtered set when the requested page is past the
// end and no row carried the window total.
func countMatches(ctx context.Context, conn *sqlx.Conn, from string, args []interface{}) (int, error) {
	var n int
	if err := conn.QueryRowxContext(ctx, conn.Rebind("SELECT COUNT(*) "+from), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting search matches: %w", err)
	}
	return n, nil
}

// insertImages writes urls for a property with display order taken from list position.
func insertImages(tx *sqlx.Tx, op string, propertyID int64, urls []string, createdAt time.Time) error {
	if len(urls) == 0 {
		return nil
	}

	stmt, err := tx.Preparex(tx.Rebind(insertImageSQL))
	if err != nil {
		return fmt.Errorf("%s property %d: preparing image insert: %w", op, propertyID, err)
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			slog.Warn("closing image statement", "error", cerr)
		}
	}()

	for i, url := range urls {
		if _, err := stmt.Exec(propertyID, url, i, createdAt); err != nil {
			return wrapWrite(op, propertyID, fmt.Sprintf("inserting image %d", i), err)
		}
	}

	return nil
}

// loadImages reads the images of the given properties in one query, grouped
// by property ID and ordered by display order.
func loadImages(ctx context.Context, conn *sqlx.Conn, ids []int64) (map[int64][]string, error) {
	images := make(map[int64][]string, len(ids))
	if len(ids) == 0 {
		return images, nil
	}

	query, args, err := sqlx.In(`SELECT property_id, image_url FROM property_images
		WHERE property_id IN (?)
		ORDER BY property_id, display_order`, ids)
	if err != nil {
		return nil, fmt.Errorf("building image query: %w", err)
	}

	rows, err := conn.QueryxContext(ctx, conn.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("loading images: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var propertyID int64
		var url string
		if err := rows.Scan(&propertyID, &url); err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		images[propertyID] = append(images[propertyID], url)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating images: %w", err)
	}

	return images, nil
}

func attachBrokerImages(ctx context.Context, conn *sqlx.Conn, ids []int64, items []*PropertyWithBroker) error {
	images, err := loadImages(ctx, conn, ids)
	if err != nil {
		return err
	}
	for _, pb := range items {
		pb.ImageURLs = imagesFor(images, pb.ID)
	}
	return nil
}

// imagesFor returns a non-nil image list for id.
func imagesFor(images map[int64][]string, id int64) []string {
	if urls, ok := images[id]; ok {
		return urls
	}
	return []string{}
}

func release(conn *sqlx.Conn) {
	if err := conn.Close(); err != nil {
		slog.Warn("releasing connection", "error", err)
	}
}

// rollback is deferred after BeginTxx; it is a no-op once the transaction committed.
func rollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Warn("rolling back transaction", "error", err)
	}
}

func closeRows(rows *sqlx.Rows) {
	if err := rows.Close(); err != nil {
		slog.Warn("closing rows", "error", err)
	}
}
