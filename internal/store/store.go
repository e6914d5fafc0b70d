package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"return-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// FindCustomerByCredentials looks up a customer by email and exact credential
// match. Returns nil without error when no such customer exists.
func (s *Store) FindCustomerByCredentials(ctx context.Context, email, password string) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer,
		"SELECT * FROM customers WHERE email = $1 AND password = $2", email, password)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetProducts retrieves the full catalog in catalog order
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// GetDamagePolicyByID retrieves a damage policy. Returns nil without error
// when the product has no policy on record.
func (s *Store) GetDamagePolicyByID(ctx context.Context, id int64) (*models.DamagePolicy, error) {
	var policy models.DamagePolicy
	err := s.db.GetContext(ctx, &policy, "SELECT * FROM damage_policies WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &policy, nil
}
