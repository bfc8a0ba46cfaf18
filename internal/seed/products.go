// Package seed populates the products table with a deterministic demo
// catalog for local development.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/domain"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/database"
)

// BatchSize is the number of rows per INSERT statement.
const BatchSize = 500

const productColumns = 11

var brands = []string{"Nordlys", "Kestrel", "Aurum", "Tidewell", "Brightfold", "Halden", "Corvo", "Lumen"}

// category -> product types
var categories = []struct {
	Name  string
	Types []string
}{
	{"tech", []string{"Laptop", "Phone", "Tablet", "Headphones", "Smartwatch"}},
	{"home", []string{"Lamp", "Kettle", "Blender", "Rug", "Armchair"}},
	{"fashion", []string{"Jacket", "Sneakers", "Scarf", "Backpack", "Sunglasses"}},
	{"outdoor", []string{"Tent", "Sleeping Bag", "Camp Stove", "Trail Shoes"}},
	{"toys", []string{"Puzzle", "Building Set", "Board Game"}},
}

var adjectives = []string{"Classic", "Compact", "Pro", "Lite", "Premium", "Everyday", "Studio"}

// ProductID returns the id of the i-th generated product.
func ProductID(i int) string {
	return fmt.Sprintf("seed-%05d", i)
}

// Products generates n products. The same seed always yields the same
// catalog, so re-running the seed updates rows instead of adding new ones.
func Products(n int, seed uint64) []domain.Product {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) // #nosec G404 -- demo data
	products := make([]domain.Product, 0, n)

	for i := 0; i < n; i++ {
		cat := categories[i%len(categories)]
		productType := cat.Types[rng.IntN(len(cat.Types))]
		brand := brands[rng.IntN(len(brands))]

		// 9.90 - 999.90, rounded to whole units minus ten cents.
		price := int64(10+rng.IntN(990))*100 - 10

		p := domain.Product{
			ID:          ProductID(i),
			Name:        fmt.Sprintf("%s %s %s", brand, adjectives[rng.IntN(len(adjectives))], productType),
			Brand:       brand,
			Price:       price,
			Description: fmt.Sprintf("%s %s from %s.", adjectives[rng.IntN(len(adjectives))], strings.ToLower(productType), brand),
			Image:       fmt.Sprintf("https://images.example.com/products/%s.jpg", ProductID(i)),
			Category:    cat.Name,
			InStock:     rng.IntN(10) > 0,
			Rating:      float64(rng.IntN(51)) / 10,
			Reviews:     rng.IntN(2000),
		}
		if rng.IntN(4) == 0 {
			original := price + int64(1+rng.IntN(50))*100
			p.OriginalPrice = &original
		}
		products = append(products, p)
	}
	return products
}

// Insert upserts products in batches of BatchSize and returns the number of
// rows written.
func Insert(ctx context.Context, db database.DBTX, products []domain.Product, logger *slog.Logger) (int, error) {
	written := 0
	for start := 0; start < len(products); start += BatchSize {
		end := min(start+BatchSize, len(products))
		batch := products[start:end]

		query, args := upsertStatement(batch)
		tag, err := db.Exec(ctx, query, args...)
		if err != nil {
			return written, fmt.Errorf("seed products %d-%d: %w", start, end, err)
		}
		written += int(tag.RowsAffected())
		logger.Info("seeded product batch",
			slog.Int("from", start),
			slog.Int("to", end),
		)
	}
	return written, nil
}

func upsertStatement(batch []domain.Product) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO products (id, name, brand, price, original_price, description, image, category, in_stock, rating, reviews) VALUES `)

	args := make([]any, 0, len(batch)*productColumns)
	for i, p := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * productColumns
		placeholders := make([]string, productColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		sb.WriteString("(" + strings.Join(placeholders, ", ") + ")")
		args = append(args, p.ID, p.Name, p.Brand, p.Price, p.OriginalPrice, p.Description, p.Image, p.Category, p.InStock, p.Rating, p.Reviews)
	}

	sb.WriteString(` ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		brand = EXCLUDED.brand,
		price = EXCLUDED.price,
		original_price = EXCLUDED.original_price,
		description = EXCLUDED.description,
		image = EXCLUDED.image,
		category = EXCLUDED.category,
		in_stock = EXCLUDED.in_stock,
		rating = EXCLUDED.rating,
		reviews = EXCLUDED.reviews,
		updated_at = NOW()`)
	return sb.String(), args
}
