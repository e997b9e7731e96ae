package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hazelmart/catalog/internal/domain"
	"github.com/hazelmart/catalog/internal/query"
	"github.com/hazelmart/catalog/pkg/database"
	apperrors "github.com/hazelmart/catalog/pkg/errors"
)

const productColumns = `id, name, slug, description, category, type, listed_price, actual_price, stock, images, reviews, rating, review_count, version, created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
// The review sequence and image list live in JSONB columns so the whole
// product aggregate is read and rewritten as one row.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	imagesJSON, reviewsJSON, err := marshalAggregates(p)
	if err != nil {
		return err
	}

	q := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = r.pool.Exec(ctx, q,
		p.ID,
		p.Name,
		p.Slug,
		p.Description,
		p.Category,
		p.Type,
		p.ListedPrice,
		p.ActualPrice,
		p.Stock,
		imagesJSON,
		reviewsJSON,
		p.Rating,
		p.ReviewCount,
		p.Version,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return r.scanProduct(ctx, q, id)
}

// GetBySlug retrieves a product by its slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`
	return r.scanProduct(ctx, q, slug)
}

// rangeColumns maps plan range fields to their columns. Price filters apply
// to the chargeable price, not the struck-through listed price.
var rangeColumns = map[string]string{
	"price":  "actual_price",
	"rating": "rating",
}

var equalityColumns = map[string]string{
	"category": "category",
	"type":     "type",
}

// List executes the read plan and returns the matching page along with the
// filtered total obtained via count(*) OVER() in the same query.
func (r *ProductRepository) List(ctx context.Context, plan query.Plan) ([]domain.Product, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if plan.Keyword != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argIndex))
		args = append(args, "%"+plan.Keyword+"%")
		argIndex++
	}

	for _, field := range []string{"category", "type"} {
		if val, ok := plan.Equals[field]; ok {
			conditions = append(conditions, fmt.Sprintf("%s = $%d", equalityColumns[field], argIndex))
			args = append(args, val)
			argIndex++
		}
	}

	for _, field := range []string{"price", "rating"} {
		rng, ok := plan.Ranges[field]
		if !ok {
			continue
		}
		col := rangeColumns[field]
		if rng.GTE != nil {
			conditions = append(conditions, fmt.Sprintf("%s >= $%d", col, argIndex))
			args = append(args, *rng.GTE)
			argIndex++
		}
		if rng.LTE != nil {
			conditions = append(conditions, fmt.Sprintf("%s <= $%d", col, argIndex))
			args = append(args, *rng.LTE)
			argIndex++
		}
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// count(*) OVER() gives the filtered total without a second query.
	q := fmt.Sprintf(`
		SELECT `+productColumns+`,
			   count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	args = append(args, plan.PerPage, plan.Offset())

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   []domain.Product
		totalCount int
	)

	for rows.Next() {
		p, count, err := scanProductRow(rows)
		if err != nil {
			return nil, 0, err
		}
		totalCount = count
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}

	return products, totalCount, nil
}

// CountAll returns the unconstrained total number of products.
func (r *ProductRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

// ListCategories returns the distinct category names in use.
func (r *ProductRepository) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}

	if categories == nil {
		categories = []string{}
	}

	return categories, nil
}

// Update modifies an existing product's editable fields in the database.
// The review columns are excluded here; they change only through
// SaveReviewsIfVersion.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	imagesJSON, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}

	p.UpdatedAt = time.Now().UTC()

	q := `
		UPDATE products
		SET name = $1, slug = $2, description = $3, category = $4, type = $5,
		    listed_price = $6, actual_price = $7, stock = $8, images = $9, updated_at = $10
		WHERE id = $11`

	ct, err := r.pool.Exec(ctx, q,
		p.Name,
		p.Slug,
		p.Description,
		p.Category,
		p.Type,
		p.ListedPrice,
		p.ActualPrice,
		p.Stock,
		imagesJSON,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}

	return nil
}

// SaveReviewsIfVersion writes the review sequence and derived aggregate
// under an optimistic version check. A false return means the row's version
// moved and the caller should retry from a fresh read.
func (r *ProductRepository) SaveReviewsIfVersion(ctx context.Context, productID string, reviews []domain.Review, stats domain.ReviewStats, expectedVersion int) (bool, error) {
	reviewsJSON, err := json.Marshal(reviews)
	if err != nil {
		return false, fmt.Errorf("marshal reviews: %w", err)
	}

	q := `
		UPDATE products
		SET reviews = $1, rating = $2, review_count = $3, version = version + 1, updated_at = $4
		WHERE id = $5 AND version = $6`

	ct, err := r.pool.Exec(ctx, q,
		reviewsJSON,
		stats.Rating,
		stats.Count,
		time.Now().UTC(),
		productID,
		expectedVersion,
	)
	if err != nil {
		return false, fmt.Errorf("save reviews: %w", err)
	}

	return ct.RowsAffected() == 1, nil
}

// AdjustStock changes a product's stock by delta, flooring at zero.
func (r *ProductRepository) AdjustStock(ctx context.Context, productID string, delta int) error {
	q := `
		UPDATE products
		SET stock = GREATEST(stock + $1, 0), updated_at = $2
		WHERE id = $3`

	ct, err := r.pool.Exec(ctx, q, delta, time.Now().UTC(), productID)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", productID)
	}

	return nil
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// scanProduct executes a query expected to return a single product row.
func (r *ProductRepository) scanProduct(ctx context.Context, q string, args ...any) (*domain.Product, error) {
	var (
		p           domain.Product
		imagesJSON  []byte
		reviewsJSON []byte
	)

	err := r.pool.QueryRow(ctx, q, args...).Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Category,
		&p.Type,
		&p.ListedPrice,
		&p.ActualPrice,
		&p.Stock,
		&imagesJSON,
		&reviewsJSON,
		&p.Rating,
		&p.ReviewCount,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	if err := unmarshalAggregates(&p, imagesJSON, reviewsJSON); err != nil {
		return nil, err
	}

	return &p, nil
}

// scanProductRow scans one row of a list query that trails a total_count
// window column.
func scanProductRow(rows pgx.Rows) (*domain.Product, int, error) {
	var (
		p           domain.Product
		imagesJSON  []byte
		reviewsJSON []byte
		totalCount  int
	)

	if err := rows.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Category,
		&p.Type,
		&p.ListedPrice,
		&p.ActualPrice,
		&p.Stock,
		&imagesJSON,
		&reviewsJSON,
		&p.Rating,
		&p.ReviewCount,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
		&totalCount,
	); err != nil {
		return nil, 0, fmt.Errorf("scan product row: %w", err)
	}

	if err := unmarshalAggregates(&p, imagesJSON, reviewsJSON); err != nil {
		return nil, 0, err
	}

	return &p, totalCount, nil
}

func marshalAggregates(p *domain.Product) (imagesJSON, reviewsJSON []byte, err error) {
	imagesJSON, err = json.Marshal(p.Images)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal images: %w", err)
	}
	reviewsJSON, err = json.Marshal(p.Reviews)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal reviews: %w", err)
	}
	return imagesJSON, reviewsJSON, nil
}

func unmarshalAggregates(p *domain.Product, imagesJSON, reviewsJSON []byte) error {
	if imagesJSON != nil {
		if err := json.Unmarshal(imagesJSON, &p.Images); err != nil {
			return fmt.Errorf("unmarshal images: %w", err)
		}
	}
	if reviewsJSON != nil {
		if err := json.Unmarshal(reviewsJSON, &p.Reviews); err != nil {
			return fmt.Errorf("unmarshal reviews: %w", err)
		}
	}
	return nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
