package domain

import "context"

// UnitOfWork runs fn within a single storage transaction. The opaque tx value
// is handed to repository methods whose names end in Tx; if fn returns an
// error the whole unit rolls back and nothing is visible to other readers.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(tx interface{}) error) error
}
