package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"BarcodeScanner/internal/domain"
	"BarcodeScanner/internal/ports"
)

const uniqueViolation = "23505"

var productColumns = []string{
	"barcode",
	"product_name",
	"manufacturer",
	"score",
	"nutrition",
	"allergens",
	"extra",
	"image_front",
	"image_ingredients",
	"tags",
	"status",
}

// PostgresRepository persists product records into Postgres, one row per
// barcode. Each call is an independent unit of work; the *sql.DB pool is
// safe for concurrent callers.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.ProductRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Migrate creates the products table and its indexes when missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			barcode TEXT NOT NULL UNIQUE,
			product_name TEXT NOT NULL DEFAULT '',
			manufacturer TEXT NOT NULL DEFAULT '',
			score DOUBLE PRECISION,
			nutrition JSONB,
			allergens JSONB,
			extra JSONB,
			image_front TEXT NOT NULL DEFAULT '',
			image_ingredients TEXT NOT NULL DEFAULT '',
			tags TEXT[],
			status TEXT NOT NULL DEFAULT 'pending'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_product_name ON products (product_name)`,
		`CREATE INDEX IF NOT EXISTS idx_products_tags_gin ON products USING GIN (tags)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate products: %w", err)
		}
	}
	return nil
}

// Find is a point lookup by barcode with no side effects.
func (r *PostgresRepository) Find(ctx context.Context, barcode string) (domain.Product, bool, error) {
	query, args, err := r.builder.
		Select(productColumns...).
		From("products").
		Where(sq.Eq{"barcode": barcode}).
		ToSql()
	if err != nil {
		return domain.Product{}, false, fmt.Errorf("build find query: %w", err)
	}

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, false, nil
	}
	if err != nil {
		return domain.Product{}, false, fmt.Errorf("find product: %w", err)
	}
	return product, true, nil
}

// Insert creates a new row and reports ErrConflict when the barcode is
// already present. Flows that might re-resolve should use Upsert.
func (r *PostgresRepository) Insert(ctx context.Context, product domain.Product) error {
	values, err := rowValues(product)
	if err != nil {
		return err
	}

	query, args, err := r.builder.
		Insert("products").
		Columns(productColumns...).
		Values(values...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Upsert replaces all mutable fields of an existing row, or inserts a new
// one. This is the only write path safe against concurrent re-resolution
// of the same barcode (last write wins).
func (r *PostgresRepository) Upsert(ctx context.Context, product domain.Product) error {
	values, err := rowValues(product)
	if err != nil {
		return err
	}

	query, args, err := r.builder.
		Insert("products").
		Columns(productColumns...).
		Values(values...).
		Suffix(`ON CONFLICT (barcode) DO UPDATE
			SET product_name = EXCLUDED.product_name,
			    manufacturer = EXCLUDED.manufacturer,
			    score = EXCLUDED.score,
			    nutrition = EXCLUDED.nutrition,
			    allergens = EXCLUDED.allergens,
			    extra = EXCLUDED.extra,
			    image_front = EXCLUDED.image_front,
			    image_ingredients = EXCLUDED.image_ingredients,
			    tags = EXCLUDED.tags,
			    status = EXCLUDED.status`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

// Delete removes the row. Stored images referencing the barcode are the
// caller's responsibility; the store does not cascade.
func (r *PostgresRepository) Delete(ctx context.Context, barcode string) error {
	query, args, err := r.builder.
		Delete("products").
		Where(sq.Eq{"barcode": barcode}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

// List returns every stored product.
func (r *PostgresRepository) List(ctx context.Context) ([]domain.Product, error) {
	return r.list(ctx, r.builder.Select(productColumns...).From("products"))
}

// ListByTag returns products carrying the exact tag, served by the GIN
// index on the tags column.
func (r *PostgresRepository) ListByTag(ctx context.Context, tag string) ([]domain.Product, error) {
	return r.list(ctx, r.builder.
		Select(productColumns...).
		From("products").
		Where(sq.Expr("? = ANY(tags)", tag)))
}

func (r *PostgresRepository) list(ctx context.Context, selectBuilder sq.SelectBuilder) ([]domain.Product, error) {
	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return products, nil
}

func rowValues(product domain.Product) ([]any, error) {
	nutrition, err := marshalNullable(product.Nutrition)
	if err != nil {
		return nil, fmt.Errorf("marshal nutrition: %w", err)
	}
	extra, err := marshalNullable(product.Extra)
	if err != nil {
		return nil, fmt.Errorf("marshal extra: %w", err)
	}

	var allergens any
	if len(product.Allergens) > 0 {
		allergens = []byte(product.Allergens)
	}

	var score any
	if product.Score != nil {
		score = *product.Score
	}

	status := product.Status
	if status == "" {
		status = domain.StatusPending
	}

	return []any{
		product.Barcode,
		product.Name,
		product.Manufacturer,
		score,
		nutrition,
		allergens,
		extra,
		product.ImageFront,
		product.ImageIngredients,
		pq.StringArray(product.Tags),
		string(status),
	}, nil
}

func marshalNullable(v any) (any, error) {
	switch value := v.(type) {
	case *domain.Nutrition:
		if value == nil {
			return nil, nil
		}
	case map[string]any:
		if value == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		product   domain.Product
		score     sql.NullFloat64
		nutrition []byte
		allergens []byte
		extra     []byte
		tags      pq.StringArray
		status    string
	)

	err := row.Scan(
		&product.Barcode,
		&product.Name,
		&product.Manufacturer,
		&score,
		&nutrition,
		&allergens,
		&extra,
		&product.ImageFront,
		&product.ImageIngredients,
		&tags,
		&status,
	)
	if err != nil {
		return domain.Product{}, err
	}

	if score.Valid {
		product.Score = &score.Float64
	}
	if len(nutrition) > 0 {
		product.Nutrition = &domain.Nutrition{}
		if err := json.Unmarshal(nutrition, product.Nutrition); err != nil {
			return domain.Product{}, fmt.Errorf("decode nutrition: %w", err)
		}
	}
	if len(allergens) > 0 {
		product.Allergens = json.RawMessage(allergens)
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &product.Extra); err != nil {
			return domain.Product{}, fmt.Errorf("decode extra: %w", err)
		}
	}
	product.Tags = []string(tags)
	product.Status = domain.Status(status)

	return product, nil
}
