// Command seed-db creates the schema and loads a small demo catalog. Running
// it twice is safe: products carry fixed identifiers and are updated in place.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/deepseashop/storefront/internal/domain/product"
	"github.com/deepseashop/storefront/internal/repository"
)

var catalog = []product.Product{
	{ID: 1, Name: "Apple", Stock: 120, Price: 89, Description: "Crisp red apple", Category: "fruit"},
	{ID: 2, Name: "Banana", Stock: 150, Price: 49, Description: "Ripe yellow banana", Category: "fruit"},
	{ID: 3, Name: "Orange", Stock: 90, Price: 75, Description: "Juicy navel orange", Category: "fruit"},
	{ID: 4, Name: "Mango", Stock: 40, Price: 199, Description: "Sweet Alphonso mango", Category: "fruit"},
	{ID: 5, Name: "Carrot", Stock: 200, Price: 35, Description: "Fresh garden carrot", Category: "vegetable"},
	{ID: 6, Name: "Potato", Stock: 300, Price: 25, Description: "All-purpose potato", Category: "vegetable"},
	{ID: 7, Name: "Broccoli", Stock: 60, Price: 129, Description: "Green broccoli crown", Category: "vegetable"},
	{ID: 8, Name: "Milk", Stock: 80, Price: 159, Description: "Whole milk, 1 liter", Category: "dairy"},
	{ID: 9, Name: "Cheddar", Stock: 45, Price: 449, Description: "Aged cheddar, 200g", Category: "dairy"},
	{ID: 10, Name: "Sourdough", Stock: 30, Price: 399, Description: "Sourdough loaf, baked daily", Category: "bakery"},
}

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := repository.NewProductRepository(pool)

	slog.Info("upserting products", slog.Int("count", len(catalog)))

	for i := range catalog {
		p := catalog[i]
		if err := products.Upsert(ctx, &p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.Name)
		}

		slog.Info("upserted product", slog.String("name", p.Name), slog.String("category", p.Category))
	}

	// Explicit IDs bypass the identity sequence; advance it past them.
	_, err = pool.Exec(ctx,
		`SELECT setval(pg_get_serial_sequence('products', 'id'), (SELECT MAX(id) FROM products))`)
	return errors.Wrap(err, "advance products id sequence")
}
