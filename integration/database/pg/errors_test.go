package pg_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/chatrelay/integration/database/pg"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	duplicate := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	foreignKey := &pgconn.PgError{Code: "23503"}

	assert.True(t, pg.IsDuplicateKeyError(duplicate))
	assert.False(t, pg.IsDuplicateKeyError(foreignKey))
	assert.True(t, pg.IsForeignKeyViolationError(foreignKey))
	assert.False(t, pg.IsForeignKeyViolationError(errors.New("boom")))
	assert.True(t, pg.IsNotFoundError(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.True(t, pg.IsTxClosedError(pgx.ErrTxClosed))
	assert.False(t, pg.IsNotFoundError(nil))
}
