package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kasapp/kas-backend/internal/domain"
)

// TransactionRepository implements domain.TransactionRepository using
// PostgreSQL
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `t.id, t.user_id, t.date, t.type, t.amount, t.category_id, t.account_id,
	t.description, t.is_transfer, t.transfer_group_id, t.hide_from_summary, t.receipt_key,
	t.created_at, t.updated_at, c.name, a.name`

const transactionJoins = `
	FROM transactions t
	JOIN categories c ON c.id = t.category_id
	JOIN accounts a ON a.id = t.account_id`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var amount pgtype.Numeric
	if err := row.Scan(&t.ID, &t.UserID, &t.Date, &t.Type, &amount, &t.CategoryID, &t.AccountID,
		&t.Description, &t.IsTransfer, &t.TransferGroupID, &t.HideFromSummary, &t.ReceiptKey,
		&t.CreatedAt, &t.UpdatedAt, &t.CategoryName, &t.AccountName); err != nil {
		return nil, err
	}
	t.Amount = pgNumericToDecimal(amount)
	return &t, nil
}

// monthWindow returns the [start, end) bounds for the month containing m.
func monthWindow(m time.Time) (time.Time, time.Time) {
	start := time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// CreateTx inserts the transaction and its tag links within the caller's
// transaction.
func (r *TransactionRepository) CreateTx(ctx context.Context, tx interface{}, t *domain.Transaction) (*domain.Transaction, error) {
	q := runner(r.pool, tx)
	amount, err := decimalToPgNumeric(t.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	var id uuid.UUID
	err = q.QueryRow(ctx, `
		INSERT INTO transactions
			(user_id, date, type, amount, category_id, account_id, description,
			 is_transfer, transfer_group_id, hide_from_summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		t.UserID, t.Date, string(t.Type), amount, t.CategoryID, t.AccountID, t.Description,
		t.IsTransfer, t.TransferGroupID, t.HideFromSummary).Scan(&id)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}

	if err := r.replaceTagLinks(ctx, q, id, t.Tags); err != nil {
		return nil, err
	}

	row := q.QueryRow(ctx, `SELECT `+transactionColumns+transactionJoins+` WHERE t.id = $1`, id)
	created, err := scanTransaction(row)
	if err != nil {
		return nil, err
	}
	created.Tags = t.Tags
	if created.Tags == nil {
		created.Tags = []*domain.Tag{}
	}
	return created, nil
}

// GetByID retrieves a transaction with joined names and tags.
func (r *TransactionRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+transactionJoins+`
		WHERE t.user_id = $1 AND t.id = $2`,
		userID, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	if err := r.loadTags(ctx, []*domain.Transaction{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// List retrieves transactions matching the filter, newest first.
func (r *TransactionRepository) List(ctx context.Context, userID string, filter *domain.TransactionFilter) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + transactionJoins + ` WHERE t.user_id = $1`
	args := []any{userID}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(` AND t.description ILIKE $%d`, len(args))
	}
	if filter.Type != nil {
		args = append(args, string(*filter.Type))
		query += fmt.Sprintf(` AND t.type = $%d`, len(args))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		query += fmt.Sprintf(` AND t.category_id = $%d`, len(args))
	}
	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		query += fmt.Sprintf(` AND t.account_id = $%d`, len(args))
	}
	if filter.Month != "" {
		m, err := time.Parse("2006-01", filter.Month)
		if err != nil {
			return nil, domain.ErrInvalidMonth
		}
		start, end := monthWindow(m)
		args = append(args, start)
		query += fmt.Sprintf(` AND t.date >= $%d`, len(args))
		args = append(args, end)
		query += fmt.Sprintf(` AND t.date < $%d`, len(args))
	}

	query += ` ORDER BY t.date DESC, t.created_at DESC`
	args = append(args, filter.Limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))
	args = append(args, filter.Skip)
	query += fmt.Sprintf(` OFFSET $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadTags(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Count returns the number of transactions, optionally narrowed to one
// account or category.
func (r *TransactionRepository) Count(ctx context.Context, userID string, accountID, categoryID *uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM transactions WHERE user_id = $1`
	args := []any{userID}
	if accountID != nil {
		args = append(args, *accountID)
		query += fmt.Sprintf(` AND account_id = $%d`, len(args))
	}
	if categoryID != nil {
		args = append(args, *categoryID)
		query += fmt.Sprintf(` AND category_id = $%d`, len(args))
	}
	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateTx writes all scalar fields of t; when tags is non-nil the tag set
// is replaced.
func (r *TransactionRepository) UpdateTx(ctx context.Context, tx interface{}, t *domain.Transaction, tags []*domain.Tag) (*domain.Transaction, error) {
	q := runner(r.pool, tx)
	amount, err := decimalToPgNumeric(t.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	tag, err := q.Exec(ctx, `
		UPDATE transactions SET
			date = $3, type = $4, amount = $5, category_id = $6, account_id = $7,
			description = $8, hide_from_summary = $9, updated_at = now()
		WHERE user_id = $1 AND id = $2`,
		t.UserID, t.ID, t.Date, string(t.Type), amount, t.CategoryID, t.AccountID,
		t.Description, t.HideFromSummary)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrTransactionNotFound
	}

	if tags != nil {
		if _, err := q.Exec(ctx, `DELETE FROM transaction_tags WHERE transaction_id = $1`, t.ID); err != nil {
			return nil, err
		}
		if err := r.replaceTagLinks(ctx, q, t.ID, tags); err != nil {
			return nil, err
		}
	}

	row := q.QueryRow(ctx, `SELECT `+transactionColumns+transactionJoins+` WHERE t.id = $1`, t.ID)
	updated, err := scanTransaction(row)
	if err != nil {
		return nil, err
	}
	if tags != nil {
		updated.Tags = tags
	} else {
		updated.Tags = t.Tags
	}
	if updated.Tags == nil {
		updated.Tags = []*domain.Tag{}
	}
	return updated, nil
}

// DeleteTx removes the transaction within the caller's transaction.
func (r *TransactionRepository) DeleteTx(ctx context.Context, tx interface{}, userID string, id uuid.UUID) error {
	tag, err := runner(r.pool, tx).Exec(ctx, `
		DELETE FROM transactions WHERE user_id = $1 AND id = $2`,
		userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// GetPaired returns the sibling leg sharing groupID, excluding excludeID.
func (r *TransactionRepository) GetPaired(ctx context.Context, userID string, groupID uuid.UUID, excludeID uuid.UUID) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+transactionJoins+`
		WHERE t.user_id = $1 AND t.transfer_group_id = $2 AND t.id <> $3`,
		userID, groupID, excludeID)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return t, nil
}

// SumExpensesTx totals visible expense amounts for (user, category, month).
func (r *TransactionRepository) SumExpensesTx(ctx context.Context, tx interface{}, userID string, categoryID uuid.UUID, month time.Time) (decimal.Decimal, error) {
	start, end := monthWindow(month)
	var sum pgtype.Numeric
	err := runner(r.pool, tx).QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE user_id = $1 AND category_id = $2 AND type = 'expense'
		  AND hide_from_summary = FALSE AND date >= $3 AND date < $4`,
		userID, categoryID, start, end).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return pgNumericToDecimal(sum), nil
}

// DeleteByAccountTx removes all transactions on the account and reports the
// distinct expense (category, month) windows touched.
func (r *TransactionRepository) DeleteByAccountTx(ctx context.Context, tx interface{}, userID string, accountID uuid.UUID) (int, []domain.CategoryMonth, error) {
	q := runner(r.pool, tx)

	rows, err := q.Query(ctx, `
		SELECT DISTINCT category_id, date_trunc('month', date AT TIME ZONE 'UTC')
		FROM transactions
		WHERE user_id = $1 AND account_id = $2 AND type = 'expense'`,
		userID, accountID)
	if err != nil {
		return 0, nil, err
	}
	var months []domain.CategoryMonth
	for rows.Next() {
		var cm domain.CategoryMonth
		if err := rows.Scan(&cm.CategoryID, &cm.Month); err != nil {
			rows.Close()
			return 0, nil, err
		}
		cm.Month = time.Date(cm.Month.Year(), cm.Month.Month(), 1, 0, 0, 0, 0, time.UTC)
		months = append(months, cm)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}

	tag, err := q.Exec(ctx, `
		DELETE FROM transactions WHERE user_id = $1 AND account_id = $2`,
		userID, accountID)
	if err != nil {
		return 0, nil, err
	}
	return int(tag.RowsAffected()), months, nil
}

// DeleteByCategoryTx removes transactions in exactly the given category and
// reports per-account balance reversals plus budget windows to recompute.
func (r *TransactionRepository) DeleteByCategoryTx(ctx context.Context, tx interface{}, userID string, categoryID uuid.UUID) (*domain.BulkDeleteEffect, error) {
	q := runner(r.pool, tx)

	rows, err := q.Query(ctx, `
		SELECT account_id, type, amount, date FROM transactions
		WHERE user_id = $1 AND category_id = $2`,
		userID, categoryID)
	if err != nil {
		return nil, err
	}

	effect := &domain.BulkDeleteEffect{
		AccountDeltas: make(map[uuid.UUID]decimal.Decimal),
	}
	windows := make(map[domain.CategoryMonth]bool)
	for rows.Next() {
		var accountID uuid.UUID
		var txType string
		var amount pgtype.Numeric
		var date time.Time
		if err := rows.Scan(&accountID, &txType, &amount, &date); err != nil {
			rows.Close()
			return nil, err
		}
		effect.Deleted++

		// Reversal is the negated original effect.
		amt := pgNumericToDecimal(amount)
		delta := amt
		if txType == string(domain.TransactionTypeIncome) {
			delta = amt.Neg()
		}
		effect.AccountDeltas[accountID] = effect.AccountDeltas[accountID].Add(delta)

		if txType == string(domain.TransactionTypeExpense) {
			start, _ := monthWindow(date.UTC())
			windows[domain.CategoryMonth{CategoryID: categoryID, Month: start}] = true
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for cm := range windows {
		effect.CategoryMonths = append(effect.CategoryMonths, cm)
	}

	if _, err := q.Exec(ctx, `
		DELETE FROM transactions WHERE user_id = $1 AND category_id = $2`,
		userID, categoryID); err != nil {
		return nil, err
	}
	return effect, nil
}

// SummarizeMonth totals visible income and expense amounts for the month.
func (r *TransactionRepository) SummarizeMonth(ctx context.Context, userID string, month time.Time) (decimal.Decimal, decimal.Decimal, error) {
	start, end := monthWindow(month)
	var income, expense pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'income'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0)
		FROM transactions
		WHERE user_id = $1 AND hide_from_summary = FALSE AND date >= $2 AND date < $3`,
		userID, start, end).Scan(&income, &expense)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return pgNumericToDecimal(income), pgNumericToDecimal(expense), nil
}

// SetReceiptKey stores or clears the receipt object key.
func (r *TransactionRepository) SetReceiptKey(ctx context.Context, userID string, id uuid.UUID, key *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE transactions SET receipt_key = $3, updated_at = now()
		WHERE user_id = $1 AND id = $2`,
		userID, id, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) replaceTagLinks(ctx context.Context, q querier, transactionID uuid.UUID, tags []*domain.Tag) error {
	for _, t := range tags {
		if _, err := q.Exec(ctx, `
			INSERT INTO transaction_tags (transaction_id, tag_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			transactionID, t.ID); err != nil {
			return err
		}
	}
	return nil
}

// loadTags populates Tags for the given transactions in one query.
func (r *TransactionRepository) loadTags(ctx context.Context, transactions []*domain.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(transactions))
	byID := make(map[uuid.UUID]*domain.Transaction, len(transactions))
	for i, t := range transactions {
		ids[i] = t.ID
		byID[t.ID] = t
		t.Tags = []*domain.Tag{}
	}

	rows, err := r.pool.Query(ctx, `
		SELECT tt.transaction_id, tg.id, tg.user_id, tg.name, tg.created_at
		FROM transaction_tags tt
		JOIN tags tg ON tg.id = tt.tag_id
		WHERE tt.transaction_id = ANY($1)
		ORDER BY tg.name`,
		ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var txID uuid.UUID
		var t domain.Tag
		if err := rows.Scan(&txID, &t.ID, &t.UserID, &t.Name, &t.CreatedAt); err != nil {
			return err
		}
		if owner, ok := byID[txID]; ok {
			owner.Tags = append(owner.Tags, &t)
		}
	}
	return rows.Err()
}
