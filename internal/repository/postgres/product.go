package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/codehouse/bookshop/internal/domain"
	apperrors "github.com/codehouse/bookshop/pkg/errors"
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db DB
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a product and its prices in one transaction.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO products (id, title, description, pages, release_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = tx.Exec(ctx, query,
		p.ID,
		p.Title,
		p.Description,
		p.Pages,
		p.ReleaseDate,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	priceQuery := `
		INSERT INTO product_prices (product_id, variant, amount)
		VALUES ($1, $2, $3)`

	for _, price := range p.Prices {
		if _, err := tx.Exec(ctx, priceQuery, p.ID, string(price.Variant), price.Amount); err != nil {
			return fmt.Errorf("insert price %s: %w", price.Variant, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a product with its prices.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, title, description, pages, release_date, created_at, updated_at
		FROM products
		WHERE id = $1`

	var p domain.Product
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Pages,
		&p.ReleaseDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("select product: %w", err)
	}

	prices, err := r.pricesFor(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Prices = prices

	return &p, nil
}

// List returns all products with their prices, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT id, title, description, pages, release_date, created_at, updated_at
		FROM products
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	index := make(map[string]int)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.Title,
			&p.Description,
			&p.Pages,
			&p.ReleaseDate,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		index[p.ID] = len(products)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	if len(products) == 0 {
		return []domain.Product{}, nil
	}

	priceQuery := `
		SELECT product_id, variant, amount
		FROM product_prices
		ORDER BY product_id, variant`

	priceRows, err := r.db.Query(ctx, priceQuery)
	if err != nil {
		return nil, fmt.Errorf("select prices: %w", err)
	}
	defer priceRows.Close()

	for priceRows.Next() {
		var (
			productID string
			variant   string
			amount    decimal.Decimal
		)
		if err := priceRows.Scan(&productID, &variant, &amount); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		if i, ok := index[productID]; ok {
			products[i].Prices = append(products[i].Prices, domain.Price{
				Variant: domain.PriceVariant(variant),
				Amount:  amount,
			})
		}
	}
	if err := priceRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prices: %w", err)
	}

	return products, nil
}

func (r *ProductRepository) pricesFor(ctx context.Context, productID string) ([]domain.Price, error) {
	query := `
		SELECT variant, amount
		FROM product_prices
		WHERE product_id = $1
		ORDER BY variant`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("select prices: %w", err)
	}
	defer rows.Close()

	var prices []domain.Price
	for rows.Next() {
		var (
			variant string
			amount  decimal.Decimal
		)
		if err := rows.Scan(&variant, &amount); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		prices = append(prices, domain.Price{
			Variant: domain.PriceVariant(variant),
			Amount:  amount,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prices: %w", err)
	}

	return prices, nil
}
