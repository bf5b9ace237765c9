package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/codehouse/bookshop/internal/domain"
	"github.com/codehouse/bookshop/internal/repository"
)

const productKeyPrefix = "product:"

// Catalog exposes product lookups for the shop front and the cart.
type Catalog interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error)
}

// CreateProductInput carries the fields for registering a new product.
type CreateProductInput struct {
	Title       string
	Description string
	Pages       int
	ReleaseDate time.Time
	Prices      []domain.Price
}

// CatalogService serves products from PostgreSQL with a Redis read-through
// cache in front of single-product lookups.
type CatalogService struct {
	repo     repository.ProductRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewCatalogService creates a catalog service. The cache client may be nil,
// in which case every lookup goes to the database.
func NewCatalogService(repo repository.ProductRepository, cache *redis.Client, cacheTTL time.Duration, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// GetProduct retrieves a product by ID, consulting the cache first. Cache
// failures are logged and fall through to the database.
func (s *CatalogService) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	if p, ok := s.cacheGet(ctx, productID); ok {
		return p, nil
	}

	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, p)

	return p, nil
}

// ListProducts returns all products ordered by title.
func (s *CatalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Product, len(products))
	for i := range products {
		out[i] = &products[i]
	}
	return out, nil
}

// CreateProduct registers a new product and primes the cache with it.
func (s *CatalogService) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	now := time.Now().UTC()
	p := &domain.Product{
		ID:          uuid.New().String(),
		Title:       input.Title,
		Description: input.Description,
		Pages:       input.Pages,
		ReleaseDate: input.ReleaseDate,
		Prices:      input.Prices,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.cacheSet(ctx, p)

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID),
		slog.String("title", p.Title),
	)

	return p, nil
}

func (s *CatalogService) cacheGet(ctx context.Context, productID string) (*domain.Product, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, err := s.cache.Get(ctx, productKeyPrefix+productID).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.WarnContext(ctx, "product cache read failed",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}

	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.WarnContext(ctx, "product cache entry corrupt",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	return &p, true
}

func (s *CatalogService) cacheSet(ctx context.Context, p *domain.Product) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(p)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, productKeyPrefix+p.ID, data, s.cacheTTL).Err(); err != nil {
		s.logger.WarnContext(ctx, "product cache write failed",
			slog.String("product_id", p.ID),
			slog.String("error", err.Error()),
		)
	}
}
