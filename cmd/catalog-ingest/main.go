// Command catalog-ingest bulk-loads a gzip-compressed CSV catalog export
// into the products table. Rows carry explicit product IDs, so re-running an
// ingest updates products in place.
//
// CSV columns: id,name,price,stock,description,category. Price is in the
// smallest currency unit.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/deepseashop/storefront/internal/domain/product"
	"github.com/deepseashop/storefront/internal/repository"
)

const (
	numWorkers    = 8
	progressEvery = 10_000
)

func main() {
	var (
		catalogFile string
		databaseURL string
	)

	flag.StringVar(&catalogFile, "catalog-file", "data/catalog.csv.gz", "path to gzip-compressed catalog CSV")
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

	if err := run(ctx, catalogFile, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, catalogFile, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := repository.NewProductRepository(pool)

	slog.Info("ingesting catalog", slog.String("path", catalogFile))

	rows := make(chan product.Product, numWorkers*2)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(rows)
		return streamCatalog(ctx, catalogFile, rows)
	})
	for range numWorkers {
		g.Go(func() error {
			for p := range rows {
				if err := products.Upsert(ctx, &p); err != nil {
					return errors.Wrapf(err, "upsert product %d", p.ID)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Explicit IDs bypass the identity sequence; advance it past them.
	_, err = pool.Exec(ctx,
		`SELECT setval(pg_get_serial_sequence('products', 'id'), (SELECT MAX(id) FROM products))`)
	return errors.Wrap(err, "advance products id sequence")
}

// streamCatalog reads the compressed CSV and sends one product per row.
func streamCatalog(ctx context.Context, path string, out chan<- product.Product) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = 6
	r.ReuseRecord = true

	var count uint64
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}

		p, err := parseRow(record)
		if err != nil {
			return errors.Wrapf(err, "row %d", count+1)
		}

		select {
		case out <- p:
		case <-ctx.Done():
			return ctx.Err()
		}

		if count++; count%progressEvery == 0 {
			slog.Info("ingest progress", slog.Uint64("rows", count))
		}
	}

	slog.Info("catalog read complete", slog.Uint64("rows", count))
	return nil
}

func parseRow(record []string) (product.Product, error) {
	id, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return product.Product{}, errors.Wrap(err, "parse id")
	}
	price, err := strconv.ParseInt(record[2], 10, 64)
	if err != nil {
		return product.Product{}, errors.Wrap(err, "parse price")
	}
	stock, err := strconv.Atoi(record[3])
	if err != nil {
		return product.Product{}, errors.Wrap(err, "parse stock")
	}

	return product.Product{
		ID:          id,
		Name:        record[1],
		Price:       price,
		Stock:       stock,
		Description: record[4],
		Category:    record[5],
	}, nil
}
