package userdb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"audioforge/internal/application/auth"
)

// Store looks up user credentials in postgres.
type Store struct {
	db *sql.DB
}

// Open connects to the database and verifies the connection.
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Lookup returns the stored credential for an email address.
func (s *Store) Lookup(ctx context.Context, email string) (auth.Credential, error) {
	var cred auth.Credential
	row := s.db.QueryRowContext(ctx,
		`SELECT email, password FROM users WHERE email = $1`, email)
	if err := row.Scan(&cred.Email, &cred.Password); err != nil {
		if err == sql.ErrNoRows {
			return auth.Credential{}, auth.ErrInvalidCredentials
		}
		return auth.Credential{}, fmt.Errorf("query user: %w", err)
	}
	return cred, nil
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
