package repository

import (
	"context"
	"errors"
	"fmt"

	"address-search-api/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// foreign_key_violation
const pgForeignKeyViolation = "23503"

const addressColumns = `id, street, city, state, zip_code, customer_id, popularity, latitude, longitude`

// PostgresStore implements the address store on PostgreSQL
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// FetchAllAddresses returns every stored address ordered by id
func (r *PostgresStore) FetchAllAddresses(ctx context.Context) ([]models.Address, error) {
	sql := `SELECT ` + addressColumns + ` FROM addresses ORDER BY id`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query addresses: %w", err)
	}
	return collectAddresses(rows)
}

// FetchAddressesByCustomer returns the addresses owned by customerID ordered by id
func (r *PostgresStore) FetchAddressesByCustomer(ctx context.Context, customerID int64) ([]models.Address, error) {
	sql := `SELECT ` + addressColumns + ` FROM addresses WHERE customer_id = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, sql, customerID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query addresses by customer: %w", err)
	}
	return collectAddresses(rows)
}

// FetchAddressesByPopularity returns the addresses whose popularity equals popularity, ordered by id
func (r *PostgresStore) FetchAddressesByPopularity(ctx context.Context, popularity int) ([]models.Address, error) {
	sql := `SELECT ` + addressColumns + ` FROM addresses WHERE popularity = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, sql, popularity)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query addresses by popularity: %w", err)
	}
	return collectAddresses(rows)
}

// AddCustomer inserts a customer and returns it with its generated id
func (r *PostgresStore) AddCustomer(ctx context.Context, name string) (models.Customer, error) {
	customer := models.Customer{Name: name}
	err := r.db.QueryRow(ctx, `INSERT INTO customers (customer_name) VALUES ($1) RETURNING id`, name).Scan(&customer.ID)
	if err != nil {
		return models.Customer{}, fmt.Errorf("repository: failed to insert customer: %w", err)
	}
	return customer, nil
}

// AddAddress inserts an address. A missing customer is reported as models.ErrCustomerNotFound.
func (r *PostgresStore) AddAddress(ctx context.Context, address models.NewAddress) (models.Address, error) {
	sql := `
		INSERT INTO addresses (street, city, state, zip_code, customer_id, popularity, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(ctx, sql,
		address.Street,
		address.City,
		address.State,
		address.ZipCode,
		address.CustomerID,
		address.Popularity,
		address.Latitude,
		address.Longitude,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return models.Address{}, fmt.Errorf("repository: customer %d: %w", *address.CustomerID, models.ErrCustomerNotFound)
		}
		return models.Address{}, fmt.Errorf("repository: failed to insert address: %w", err)
	}

	return stored(id, address), nil
}

// CopyAddresses bulk loads addresses with COPY and returns the number of rows written
func (r *PostgresStore) CopyAddresses(ctx context.Context, addresses []models.NewAddress) (int64, error) {
	n, err := r.db.CopyFrom(
		ctx,
		pgx.Identifier{"addresses"},
		[]string{"street", "city", "state", "zip_code", "customer_id", "popularity", "latitude", "longitude"},
		pgx.CopyFromSlice(len(addresses), func(i int) ([]any, error) {
			a := addresses[i]
			return []any{a.Street, a.City, a.State, a.ZipCode, a.CustomerID, a.Popularity, a.Latitude, a.Longitude}, nil
		}),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return 0, fmt.Errorf("repository: failed to copy addresses: %w", models.ErrCustomerNotFound)
		}
		return 0, fmt.Errorf("repository: failed to copy addresses: %w", err)
	}
	return n, nil
}

func collectAddresses(rows pgx.Rows) ([]models.Address, error) {
	defer rows.Close()

	addresses := []models.Address{}
	for rows.Next() {
		var a models.Address
		err := rows.Scan(
			&a.ID,
			&a.Street,
			&a.City,
			&a.State,
			&a.ZipCode,
			&a.CustomerID,
			&a.Popularity,
			&a.Latitude,
			&a.Longitude,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan address: %w", err)
		}
		addresses = append(addresses, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating rows: %w", err)
	}

	return addresses, nil
}

func stored(id int64, a models.NewAddress) models.Address {
	return models.Address{
		ID:         id,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		ZipCode:    a.ZipCode,
		CustomerID: a.CustomerID,
		Popularity: a.Popularity,
		Latitude:   a.Latitude,
		Longitude:  a.Longitude,
	}
}
