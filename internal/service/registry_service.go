package service

import (
	"context"
	"fmt"
	"strings"

	"address-search-api/internal/models"
)

// AddressWriter is the write side of the address store
type AddressWriter interface {
	AddCustomer(ctx context.Context, name string) (models.Customer, error)
	AddAddress(ctx context.Context, address models.NewAddress) (models.Address, error)
}

// RegistryService validates and stores customers and addresses
type RegistryService struct {
	repo AddressWriter
}

// NewRegistryService creates a new registry service
func NewRegistryService(repo AddressWriter) *RegistryService {
	return &RegistryService{repo: repo}
}

// AddCustomer stores a new customer
func (s *RegistryService) AddCustomer(ctx context.Context, name string) (models.Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Customer{}, invalid("customer_name", "must not be empty")
	}

	customer, err := s.repo.AddCustomer(ctx, name)
	if err != nil {
		return models.Customer{}, fmt.Errorf("service: failed to add customer: %w", err)
	}
	return customer, nil
}

// AddAddress stores a new address. A reference to an unknown customer yields models.ErrCustomerNotFound.
func (s *RegistryService) AddAddress(ctx context.Context, address models.NewAddress) (models.Address, error) {
	if err := ValidateNewAddress(address); err != nil {
		return models.Address{}, err
	}

	stored, err := s.repo.AddAddress(ctx, address)
	if err != nil {
		return models.Address{}, fmt.Errorf("service: failed to add address: %w", err)
	}
	return stored, nil
}
