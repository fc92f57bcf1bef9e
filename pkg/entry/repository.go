package entry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klokku/salesbudget/internal/database"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	List(ctx context.Context, sessionId string) ([]BudgetEntry, error)
	Get(ctx context.Context, sessionId string, id string) (BudgetEntry, error)
	Store(ctx context.Context, sessionId string, entries []BudgetEntry) error
	// Update overwrites every stored field of the entry. It reports false when the id is unknown.
	Update(ctx context.Context, sessionId string, entry BudgetEntry) (bool, error)
	Delete(ctx context.Context, sessionId string, ids []string) (int, error)
	DeleteAll(ctx context.Context, sessionId string) (int, error)
}

type repositoryImpl struct {
	db *pgxpool.Pool
	tx pgx.Tx
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) queryer() database.Querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *repositoryImpl) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&repositoryImpl{db: r.db, tx: tx})
	})
}

const entryColumns = `id::text, business_unit, section, client, category, product, month, qty, pmt, gp_percent,
				profit_per_ton, sales, gp, sector, booked, currency, created_at`

func scanEntry(row pgx.Row) (BudgetEntry, error) {
	var e BudgetEntry
	err := row.Scan(
		&e.Id,
		&e.BusinessUnit,
		&e.Section,
		&e.Client,
		&e.Category,
		&e.Product,
		&e.Month,
		&e.Quantity,
		&e.UnitPrice,
		&e.MarginPercent,
		&e.ProfitPerTon,
		&e.Sales,
		&e.GrossProfit,
		&e.Sector,
		&e.Booked,
		&e.Currency,
		&e.CreatedAt,
	)
	return e, err
}

func (r *repositoryImpl) List(ctx context.Context, sessionId string) ([]BudgetEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM budget_entry WHERE session_id = $1 ORDER BY seq`
	rows, err := r.queryer().Query(ctx, query, sessionId)
	if err != nil {
		err = fmt.Errorf("could not query entries: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	entries := make([]BudgetEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			err = fmt.Errorf("error scanning row: %w", err)
			log.Error(err)
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return entries, nil
}

func (r *repositoryImpl) Get(ctx context.Context, sessionId string, id string) (BudgetEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM budget_entry WHERE session_id = $1 AND id = $2`
	e, err := scanEntry(r.queryer().QueryRow(ctx, query, sessionId, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BudgetEntry{}, ErrEntryNotFound
		}
		err = fmt.Errorf("could not get entry: %w", err)
		log.Error(err)
		return BudgetEntry{}, err
	}
	return e, nil
}

// Postgres binds at most 65535 parameters per statement.
const (
	columnsPerRow    = 18
	maxRowsPerInsert = 1000
)

// Store inserts entries in statements of at most maxRowsPerInsert rows. Larger batches run in
// one transaction so a failure stores nothing.
func (r *repositoryImpl) Store(ctx context.Context, sessionId string, entries []BudgetEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if len(entries) <= maxRowsPerInsert {
		return r.insert(ctx, sessionId, entries)
	}
	return r.WithTransaction(ctx, func(repo Repository) error {
		txRepo := repo.(*repositoryImpl)
		for start := 0; start < len(entries); start += maxRowsPerInsert {
			end := min(start+maxRowsPerInsert, len(entries))
			if err := txRepo.insert(ctx, sessionId, entries[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repositoryImpl) insert(ctx context.Context, sessionId string, entries []BudgetEntry) error {
	var valuesBuilder strings.Builder
	args := make([]any, 0, len(entries)*columnsPerRow)
	placeholder := 1
	for idx, e := range entries {
		if idx > 0 {
			valuesBuilder.WriteByte(',')
		}
		valuesBuilder.WriteString("(")
		for i := 0; i < columnsPerRow; i++ {
			if i > 0 {
				valuesBuilder.WriteByte(',')
			}
			fmt.Fprintf(&valuesBuilder, "$%d", placeholder)
			placeholder++
		}
		valuesBuilder.WriteString(")")

		args = append(args,
			e.Id,
			sessionId,
			e.BusinessUnit,
			e.Section,
			e.Client,
			e.Category,
			e.Product,
			e.Month,
			e.Quantity,
			e.UnitPrice,
			e.MarginPercent,
			e.ProfitPerTon,
			e.Sales,
			e.GrossProfit,
			e.Sector,
			e.Booked,
			e.Currency,
			e.CreatedAt,
		)
	}

	query := fmt.Sprintf(`INSERT INTO budget_entry (
                            id,
                            session_id,
                            business_unit,
                            section,
                            client,
                            category,
                            product,
                            month,
                            qty,
                            pmt,
                            gp_percent,
                            profit_per_ton,
                            sales,
                            gp,
                            sector,
                            booked,
                            currency,
                            created_at
                  ) VALUES %s`, valuesBuilder.String())

	if _, err := r.queryer().Exec(ctx, query, args...); err != nil {
		err = fmt.Errorf("could not store entries: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *repositoryImpl) Update(ctx context.Context, sessionId string, e BudgetEntry) (bool, error) {
	query := `UPDATE budget_entry SET
                business_unit = $3,
                section = $4,
                client = $5,
                category = $6,
                product = $7,
                month = $8,
                qty = $9,
                pmt = $10,
                gp_percent = $11,
                profit_per_ton = $12,
                sales = $13,
                gp = $14,
                sector = $15,
                booked = $16,
                currency = $17
              WHERE session_id = $1 AND id = $2`
	result, err := r.queryer().Exec(ctx, query,
		sessionId,
		e.Id,
		e.BusinessUnit,
		e.Section,
		e.Client,
		e.Category,
		e.Product,
		e.Month,
		e.Quantity,
		e.UnitPrice,
		e.MarginPercent,
		e.ProfitPerTon,
		e.Sales,
		e.GrossProfit,
		e.Sector,
		e.Booked,
		e.Currency,
	)
	if err != nil {
		err = fmt.Errorf("could not update entry: %w", err)
		log.Error(err)
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, sessionId string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `DELETE FROM budget_entry WHERE session_id = $1 AND id::text = ANY($2)`
	result, err := r.queryer().Exec(ctx, query, sessionId, ids)
	if err != nil {
		err = fmt.Errorf("could not delete entries: %w", err)
		log.Error(err)
		return 0, err
	}
	return int(result.RowsAffected()), nil
}

func (r *repositoryImpl) DeleteAll(ctx context.Context, sessionId string) (int, error) {
	result, err := r.queryer().Exec(ctx, `DELETE FROM budget_entry WHERE session_id = $1`, sessionId)
	if err != nil {
		err = fmt.Errorf("could not delete entries: %w", err)
		log.Error(err)
		return 0, err
	}
	return int(result.RowsAffected()), nil
}
