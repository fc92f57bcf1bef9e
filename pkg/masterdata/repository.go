package masterdata

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/salesbudget/internal/database"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	Get(ctx context.Context, sessionId string) (Masters, error)
	// Replace swaps all clients and products of the session for masters.
	Replace(ctx context.Context, sessionId string, masters Masters) error
	StoreClient(ctx context.Context, sessionId string, client Client) error
	StoreProduct(ctx context.Context, sessionId string, product Product) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Get(ctx context.Context, sessionId string) (Masters, error) {
	clients, err := r.getClients(ctx, sessionId)
	if err != nil {
		return Masters{}, err
	}
	products, err := r.getProducts(ctx, sessionId)
	if err != nil {
		return Masters{}, err
	}
	return Masters{Clients: clients, Products: products}, nil
}

func (r *RepositoryImpl) getClients(ctx context.Context, sessionId string) ([]Client, error) {
	query := `SELECT name, business_unit FROM master_client WHERE session_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, query, sessionId)
	if err != nil {
		err = fmt.Errorf("could not query clients: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	clients := make([]Client, 0)
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.Name, &c.BusinessUnit); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return clients, nil
}

func (r *RepositoryImpl) getProducts(ctx context.Context, sessionId string) ([]Product, error) {
	query := `SELECT name, category, business_unit, default_pmt, default_margin
			  FROM master_product WHERE session_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, query, sessionId)
	if err != nil {
		err = fmt.Errorf("could not query products: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var (
			p             Product
			defaultPmt    sql.NullFloat64
			defaultMargin sql.NullFloat64
		)
		if err := rows.Scan(&p.Name, &p.Category, &p.BusinessUnit, &defaultPmt, &defaultMargin); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		if defaultPmt.Valid {
			p.DefaultUnitPrice = Float(defaultPmt.Float64)
		}
		if defaultMargin.Valid {
			p.DefaultMargin = Float(defaultMargin.Float64)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return products, nil
}

func (r *RepositoryImpl) Replace(ctx context.Context, sessionId string, masters Masters) error {
	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM master_client WHERE session_id = $1`, sessionId); err != nil {
			return fmt.Errorf("could not delete clients: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM master_product WHERE session_id = $1`, sessionId); err != nil {
			return fmt.Errorf("could not delete products: %w", err)
		}
		for _, c := range masters.Clients {
			if err := insertClient(ctx, tx, sessionId, c); err != nil {
				return err
			}
		}
		for _, p := range masters.Products {
			if err := insertProduct(ctx, tx, sessionId, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *RepositoryImpl) StoreClient(ctx context.Context, sessionId string, client Client) error {
	return insertClient(ctx, r.db, sessionId, client)
}

func (r *RepositoryImpl) StoreProduct(ctx context.Context, sessionId string, product Product) error {
	return insertProduct(ctx, r.db, sessionId, product)
}

func insertClient(ctx context.Context, q database.Querier, sessionId string, c Client) error {
	query := `INSERT INTO master_client (session_id, name, business_unit) VALUES ($1, $2, $3)`
	if _, err := q.Exec(ctx, query, sessionId, c.Name, c.BusinessUnit); err != nil {
		err = fmt.Errorf("could not store client %q: %w", c.Name, err)
		log.Error(err)
		return err
	}
	return nil
}

func insertProduct(ctx context.Context, q database.Querier, sessionId string, p Product) error {
	query := `INSERT INTO master_product (session_id, name, category, business_unit, default_pmt, default_margin)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := q.Exec(ctx, query, sessionId, p.Name, p.Category, p.BusinessUnit, nullable(p.DefaultUnitPrice), nullable(p.DefaultMargin))
	if err != nil {
		err = fmt.Errorf("could not store product %q: %w", p.Name, err)
		log.Error(err)
		return err
	}
	return nil
}

func nullable(v *float64) sql.NullFloat64 {
	if !usable(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
