// Package user manages broker and seeker accounts.
package user

import (
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/evcraddock/house-broker/internal/db"
)

// Role decides what an account may do.
type Role string

const (
	Broker Role = "Broker"
	Seeker Role = "Seeker"
)

// ParseRole maps a name to its Role, ignoring case.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "broker":
		return Broker, nil
	case "seeker":
		return Seeker, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// MinPasswordLength is the shortest password Create accepts.
const MinPasswordLength = 8

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned when email or password do not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// User is an account. Brokers own property listings.
type User struct {
	ID           int64     `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsBroker reports whether the user may publish listings.
func (u *User) IsBroker() bool {
	return u.Role == Broker
}

// Store persists users.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a user store.
func NewStore(d *sqlx.DB) *Store {
	return &Store{db: d}
}

const userColumns = "id, first_name, last_name, email, password_hash, role, created_at"

// Create registers a user with a bcrypt hash of password.
func (s *Store) Create(u User, password string) (*User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)

	if _, err := mail.ParseAddress(u.Email); err != nil {
		return nil, fmt.Errorf("invalid email %q", u.Email)
	}
	if u.Role != Broker && u.Role != Seeker {
		return nil, fmt.Errorf("unknown role %q", u.Role)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.CreatedAt = time.Now().UTC()

	err = s.db.QueryRowx(s.db.Rebind(`INSERT INTO users
		(first_name, last_name, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`),
		u.FirstName, u.LastName, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return &u, nil
}

// GetByID returns a user by ID.
func (s *Store) GetByID(id int64) (*User, error) {
	return s.getOne("id = ?", id)
}

// GetByEmail returns a user by email, ignoring case.
func (s *Store) GetByEmail(email string) (*User, error) {
	return s.getOne("email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) getOne(where string, arg interface{}) (*User, error) {
	var u User
	err := s.db.Get(&u, s.db.Rebind("SELECT "+userColumns+" FROM users WHERE "+where), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

// List returns users with the given role, or all users when role is empty.
func (s *Store) List(role Role) ([]*User, error) {
	query := "SELECT " + userColumns + " FROM users"
	var args []interface{}
	if role != "" {
		query += " WHERE role = ?"
		args = append(args, string(role))
	}
	query += " ORDER BY email"

	var users []*User
	if err := s.db.Select(&users, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Authenticate checks an email and password pair.
func (s *Store) Authenticate(email, password string) (*User, error) {
	u, err := s.GetByEmail(email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
