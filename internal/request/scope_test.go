package request

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/household-ledger/internal/ledgererr"
	"github.com/household-ledger/internal/logging"
)

// fakeTx embeds pgx.Tx for interface conformance; only Commit and Rollback
// are implemented, which is all the scope lifecycle touches.
type fakeTx struct {
	pgx.Tx
	commits     int
	rollbacks   int
	commitErr   error
	rollbackErr error
}

func (f *fakeTx) Commit(ctx context.Context) error {
	f.commits++
	return f.commitErr
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	f.rollbacks++
	return f.rollbackErr
}

type fakeBeginner struct {
	tx     *fakeTx
	begins int
	err    error
}

func (f *fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	f.begins++
	if f.err != nil {
		return nil, f.err
	}
	return f.tx, nil
}

func testLogger() *logging.Logger {
	return logging.New(logging.LevelFatal, logging.FormatText)
}

func acquireScope(t *testing.T, tx *fakeTx) *Scope {
	t.Helper()
	scope, err := Acquire(context.Background(), &fakeBeginner{tx: tx}, time.Second, testLogger())
	require.NoError(t, err)
	require.Equal(t, StateAcquired, scope.State())
	return scope
}

func TestScope_MutationSuccessCommits(t *testing.T) {
	tx := &fakeTx{}
	scope := acquireScope(t, tx)

	scope.End(context.Background(), KindMutation, nil)

	assert.Equal(t, 1, tx.commits)
	assert.Equal(t, 0, tx.rollbacks)
	assert.Equal(t, StateCommitted, scope.Outcome())
	assert.Equal(t, StateReleased, scope.State())
}

func TestScope_MutationErrorRollsBack(t *testing.T) {
	tx := &fakeTx{}
	scope := acquireScope(t, tx)

	scope.End(context.Background(), KindMutation, errors.New("resolver failed"))

	assert.Equal(t, 0, tx.commits)
	assert.Equal(t, 1, tx.rollbacks)
	assert.Equal(t, StateRolledBack, scope.Outcome())
	assert.Equal(t, StateReleased, scope.State())
}

func TestScope_QueryAlwaysRollsBack(t *testing.T) {
	for _, kind := range []OperationKind{KindQuery, KindSubscription} {
		tx := &fakeTx{}
		scope := acquireScope(t, tx)

		scope.End(context.Background(), kind, nil)

		assert.Equal(t, 0, tx.commits, "kind %s must never commit", kind)
		assert.Equal(t, 1, tx.rollbacks)
		assert.Equal(t, StateRolledBack, scope.Outcome())
	}
}

func TestScope_EndTwiceIsNoOp(t *testing.T) {
	tx := &fakeTx{}
	scope := acquireScope(t, tx)

	scope.End(context.Background(), KindMutation, nil)
	scope.End(context.Background(), KindMutation, nil)
	scope.End(context.Background(), KindQuery, nil)

	assert.Equal(t, 1, tx.commits)
	assert.Equal(t, 0, tx.rollbacks)
	assert.Equal(t, StateReleased, scope.State())
}

func TestScope_CommitFailureIsSwallowed(t *testing.T) {
	tx := &fakeTx{commitErr: errors.New("deadlock detected")}
	scope := acquireScope(t, tx)

	scope.End(context.Background(), KindMutation, nil)

	assert.Equal(t, StateRolledBack, scope.Outcome())
	assert.Equal(t, StateReleased, scope.State())
}

func TestScope_RollbackOnClosedTxIsQuiet(t *testing.T) {
	tx := &fakeTx{rollbackErr: pgx.ErrTxClosed}
	scope := acquireScope(t, tx)

	scope.End(context.Background(), KindQuery, nil)

	assert.Equal(t, StateRolledBack, scope.Outcome())
	assert.Equal(t, StateReleased, scope.State())
}

func TestAcquire_TimeoutSurfacesAsTimeout(t *testing.T) {
	beginner := &fakeBeginner{err: context.DeadlineExceeded}

	_, err := Acquire(context.Background(), beginner, time.Millisecond, testLogger())
	require.Error(t, err)
	assert.Equal(t, ledgererr.CategoryTimeout, ledgererr.CategoryOf(err))
}

func TestAcquire_BeginErrorSurfacesAsDatabase(t *testing.T) {
	beginner := &fakeBeginner{err: errors.New("pool exhausted")}

	_, err := Acquire(context.Background(), beginner, time.Second, testLogger())
	require.Error(t, err)
	assert.Equal(t, ledgererr.CategoryDatabase, ledgererr.CategoryOf(err))
}
