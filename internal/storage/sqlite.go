// Package storage is the SQLite-backed ledger.Store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/recurrence"

	_ "modernc.org/sqlite"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db     *sql.DB
	q      dbtx
	inTx   bool
	logger *log.Logger
}

var _ ledger.Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// brings its schema up to date.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// single writer; also keeps Atomically from deadlocking on a second conn
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		q:      db,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil && !r.inTx {
		return r.db.Close()
	}
	return nil
}

// Atomically runs fn inside a database transaction. fn must only use the
// store it is given; the outer store blocks until the transaction ends.
func (r *SQLiteRepository) Atomically(ctx context.Context, fn func(ledger.Store) error) error {
	if r.inTx {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Storage("begin", err)
	}
	view := &SQLiteRepository{db: r.db, q: tx, inTx: true, logger: r.logger}
	if err := fn(view); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.ErrorContext(ctx, "Rollback failed", log.FieldError, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return core.Storage("commit", err)
	}
	return nil
}

// expectOne turns a zero-row write into a NotFoundError.
func expectOne(res sql.Result, op, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return core.Storage(op, err)
	}
	if n == 0 {
		return core.NotFound(kind, id)
	}
	return nil
}

func (r *SQLiteRepository) AddTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO transactions (id, description, amount_cents, date, category, type, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Description, tx.Amount.Cents, tx.Date.String(), tx.Category, string(tx.Type), tx.Currency)
	if err != nil {
		return core.Storage("insert transaction", err)
	}
	r.logger.DebugContext(ctx, "Transaction saved", log.FieldTxID, tx.ID, log.FieldDate, tx.Date.String())
	return nil
}

const txColumns = `id, description, amount_cents, date, category, type, currency`

func scanTransaction(sc interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		tx         core.Transaction
		date, kind string
	)
	if err := sc.Scan(&tx.ID, &tx.Description, &tx.Amount.Cents, &date, &tx.Category, &kind, &tx.Currency); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: date %q: %w", tx.ID, date, err)
	}
	tx.Date = d
	tx.Type = core.TxType(kind)
	return tx, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NotFound("transaction", id)
	}
	if err != nil {
		return core.Transaction{}, core.Storage("get transaction", err)
	}
	return tx, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return core.Storage("delete transaction", err)
	}
	return expectOne(res, "delete transaction", "transaction", id)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+txColumns+` FROM transactions ORDER BY seq`)
	if err != nil {
		return nil, core.Storage("list transactions", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, core.Storage("scan transaction", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Storage("list transactions", err)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteTransactionsByCategory(ctx context.Context, name string) (int, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE category = ?`, name)
	if err != nil {
		return 0, core.Storage("delete transactions by category", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, core.Storage("delete transactions by category", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) AddCategory(ctx context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO categories (id, name, icon, color, sort_order) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Icon, c.Color, c.Order)
	if err != nil {
		return core.Storage("insert category", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	var c core.Category
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, icon, color, sort_order FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &c.Order)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NotFound("category", id)
	}
	if err != nil {
		return core.Category{}, core.Storage("get category", err)
	}
	return c, nil
}

func (r *SQLiteRepository) PutCategory(ctx context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE categories SET name = ?, icon = ?, color = ?, sort_order = ? WHERE id = ?`,
		c.Name, c.Icon, c.Color, c.Order, c.ID)
	if err != nil {
		return core.Storage("update category", err)
	}
	return expectOne(res, "update category", "category", c.ID)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return core.Storage("delete category", err)
	}
	return expectOne(res, "delete category", "category", id)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, icon, color, sort_order FROM categories ORDER BY sort_order, id`)
	if err != nil {
		return nil, core.Storage("list categories", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &c.Order); err != nil {
			return nil, core.Storage("scan category", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Storage("list categories", err)
	}
	return out, nil
}

func (r *SQLiteRepository) CountCategories(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return 0, core.Storage("count categories", err)
	}
	return n, nil
}

const ruleColumns = `id, description, amount_cents, category, type, currency, start_date, rule, last_run`

func scanRule(sc interface{ Scan(...any) error }) (core.RecurringTransaction, error) {
	var (
		rt                    core.RecurringTransaction
		kind, start, ruleText string
		lastRun               sql.NullString
	)
	if err := sc.Scan(&rt.ID, &rt.Description, &rt.Amount.Cents, &rt.Category, &kind, &rt.Currency, &start, &ruleText, &lastRun); err != nil {
		return core.RecurringTransaction{}, err
	}
	rt.Type = core.TxType(kind)
	d, err := core.ParseDate(start)
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("rule %s: start date %q: %w", rt.ID, start, err)
	}
	rt.StartDate = d
	if rt.Rule, err = recurrence.Parse(ruleText); err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("rule %s: %w", rt.ID, err)
	}
	if lastRun.Valid {
		lr, err := core.ParseDate(lastRun.String)
		if err != nil {
			return core.RecurringTransaction{}, fmt.Errorf("rule %s: last run %q: %w", rt.ID, lastRun.String, err)
		}
		rt.LastRun = &lr
	}
	return rt, nil
}

func nullDate(d *core.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func (r *SQLiteRepository) AddRecurring(ctx context.Context, rt core.RecurringTransaction) error {
	if err := rt.Validate(); err != nil {
		return err
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO recurring (id, description, amount_cents, category, type, currency, start_date, rule, last_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.ID, rt.Description, rt.Amount.Cents, rt.Category, string(rt.Type), rt.Currency,
		rt.StartDate.String(), rt.Rule.String(), nullDate(rt.LastRun))
	if err != nil {
		return core.Storage("insert recurring", err)
	}
	return nil
}

func (r *SQLiteRepository) GetRecurring(ctx context.Context, id string) (core.RecurringTransaction, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM recurring WHERE id = ?`, id)
	rt, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTransaction{}, core.NotFound("recurring rule", id)
	}
	if err != nil {
		return core.RecurringTransaction{}, core.Storage("get recurring", err)
	}
	return rt, nil
}

func (r *SQLiteRepository) PutRecurring(ctx context.Context, rt core.RecurringTransaction) error {
	if err := rt.Validate(); err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx, `
		UPDATE recurring
		SET description = ?, amount_cents = ?, category = ?, type = ?, currency = ?,
		    start_date = ?, rule = ?, last_run = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		rt.Description, rt.Amount.Cents, rt.Category, string(rt.Type), rt.Currency,
		rt.StartDate.String(), rt.Rule.String(), nullDate(rt.LastRun), rt.ID)
	if err != nil {
		return core.Storage("update recurring", err)
	}
	return expectOne(res, "update recurring", "recurring rule", rt.ID)
}

func (r *SQLiteRepository) DeleteRecurring(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM recurring WHERE id = ?`, id)
	if err != nil {
		return core.Storage("delete recurring", err)
	}
	return expectOne(res, "delete recurring", "recurring rule", id)
}

func (r *SQLiteRepository) ListRecurring(ctx context.Context) ([]core.RecurringTransaction, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+ruleColumns+` FROM recurring ORDER BY seq`)
	if err != nil {
		return nil, core.Storage("list recurring", err)
	}
	defer rows.Close()

	var out []core.RecurringTransaction
	for rows.Next() {
		rt, err := scanRule(rows)
		if err != nil {
			// One unreadable row must not hide every other rule.
			r.logger.WarnContext(ctx, "Skipping unreadable recurring rule", log.FieldError, err)
			continue
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Storage("list recurring", err)
	}
	return out, nil
}

func (r *SQLiteRepository) SetLastRun(ctx context.Context, id string, lastRun core.Date) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE recurring SET last_run = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		lastRun.String(), id)
	if err != nil {
		return core.Storage("set last run", err)
	}
	if err := expectOne(res, "set last run", "recurring rule", id); err != nil {
		return err
	}
	r.logger.DebugContext(ctx, "Watermark advanced", log.FieldRuleID, id, log.FieldLastRun, lastRun.String())
	return nil
}
