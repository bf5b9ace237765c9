package repository

import (
	"context"

	"github.com/codehouse/bookshop/internal/domain"
)

// ProductRepository defines the interface for catalog persistence.
type ProductRepository interface {
	// Create inserts a product together with its per-variant prices.
	Create(ctx context.Context, p *domain.Product) error

	// GetByID retrieves a product with its prices.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// List returns all products with their prices, newest first.
	List(ctx context.Context) ([]domain.Product, error)
}

// UserRepository defines the interface for account persistence.
type UserRepository interface {
	// GetByEmail retrieves a user with their roles.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Create inserts a new user with their roles.
	Create(ctx context.Context, u *domain.User) error
}
