package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kasapp/kas-backend/internal/domain"
)

// AccountRepository implements domain.AccountRepository using PostgreSQL
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, user_id, name, type, balance, color, icon, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	var balance pgtype.Numeric
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &balance, &a.Color, &a.Icon, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Balance = pgNumericToDecimal(balance)
	return &a, nil
}

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	balance, err := decimalToPgNumeric(account.Balance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance: %w", err)
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (user_id, name, type, balance, color, icon)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+accountColumns,
		account.UserID, account.Name, string(account.Type), balance, account.Color, account.Icon)
	return scanAccount(row)
}

// GetByID retrieves an account by its ID for a user
func (r *AccountRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 AND id = $2`,
		userID, id)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// GetAll retrieves all accounts for a user
func (r *AccountRepository) GetAll(ctx context.Context, userID string) ([]*domain.Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, account)
	}
	return result, rows.Err()
}

// Update applies a partial patch; nil fields keep their current values.
func (r *AccountRepository) Update(ctx context.Context, userID string, id uuid.UUID, patch *domain.AccountUpdate) (*domain.Account, error) {
	var typeStr *string
	if patch.Type != nil {
		s := string(*patch.Type)
		typeStr = &s
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE accounts SET
			name = COALESCE($3, name),
			type = COALESCE($4, type),
			color = COALESCE($5, color),
			icon = COALESCE($6, icon),
			updated_at = now()
		WHERE user_id = $1 AND id = $2
		RETURNING `+accountColumns,
		userID, id, patch.Name, typeStr, patch.Color, patch.Icon)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// DeleteTx removes the account within the caller's transaction.
func (r *AccountRepository) DeleteTx(ctx context.Context, tx interface{}, userID string, id uuid.UUID) error {
	tag, err := runner(r.pool, tx).Exec(ctx, `
		DELETE FROM accounts WHERE user_id = $1 AND id = $2`,
		userID, id)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return domain.ErrConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// AddToBalanceTx adds a signed delta to the account balance.
func (r *AccountRepository) AddToBalanceTx(ctx context.Context, tx interface{}, userID string, id uuid.UUID, delta decimal.Decimal) error {
	num, err := decimalToPgNumeric(delta)
	if err != nil {
		return fmt.Errorf("invalid balance delta: %w", err)
	}
	tag, err := runner(r.pool, tx).Exec(ctx, `
		UPDATE accounts SET balance = balance + $3, updated_at = now()
		WHERE user_id = $1 AND id = $2`,
		userID, id, num)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}
