// Package request binds one database transaction to each incoming
// operation's execution lifetime. Mutations commit on success; queries and
// subscriptions always roll back, so read operations can never persist side
// effects. The pooled connection is released exactly once no matter which
// branch is taken.
package request

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/household-ledger/internal/dal"
	"github.com/household-ledger/internal/ledgererr"
	"github.com/household-ledger/internal/logging"
)

// State tracks a scope through its lifecycle. Transitions:
// Idle -> Acquired -> {Committed | RolledBack} -> Released.
type State int

const (
	StateIdle State = iota
	StateAcquired
	StateCommitted
	StateRolledBack
	StateReleased
)

// TxBeginner checks out a pooled connection and begins a transaction on it.
// *pgxpool.Pool satisfies this.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Scope is a per-operation transaction handle. A scope is acquired when
// resolver execution starts and ended exactly once when it finishes; it
// must not be reused afterwards.
type Scope struct {
	tx      pgx.Tx
	state   State
	outcome State
	logger  *logging.Logger
}

// Acquire checks out a connection and issues BEGIN, honoring the configured
// acquire timeout. The returned scope is in StateAcquired.
func Acquire(ctx context.Context, beginner TxBeginner, acquireTimeout time.Duration, logger *logging.Logger) (*Scope, error) {
	acquireCtx := ctx
	if acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, acquireTimeout)
		defer cancel()
	}

	tx, err := beginner.Begin(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ledgererr.NewTimeout("connection acquire", err)
		}
		return nil, ledgererr.NewDatabase("begin transaction", err)
	}
	return &Scope{tx: tx, state: StateAcquired, logger: logger}, nil
}

// DAL returns a data-access facade bound to the scope's transaction. It is
// only valid until End is called.
func (s *Scope) DAL() *dal.DAL {
	return dal.New(s.tx)
}

// State returns the scope's current lifecycle state.
func (s *Scope) State() State {
	return s.state
}

// Outcome reports whether an ended scope committed or rolled back. It is
// StateIdle until End has run.
func (s *Scope) Outcome() State {
	return s.outcome
}

// End finishes the scope: commit for a successfully executed mutation,
// rollback otherwise. A commit or rollback failure is logged and swallowed
// so it can neither mask the resolver's error nor prevent the connection
// from returning to the pool. Ending a scope twice is a no-op.
func (s *Scope) End(ctx context.Context, kind OperationKind, opErr error) {
	if s.state != StateAcquired {
		return
	}

	if kind == KindMutation && opErr == nil {
		if err := s.tx.Commit(ctx); err != nil {
			s.logger.WithError(err).Error("commit failed")
			s.outcome = StateRolledBack
		} else {
			s.outcome = StateCommitted
		}
	} else {
		if err := s.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.WithError(err).Error("rollback failed")
		}
		s.outcome = StateRolledBack
	}

	// pgxpool returns the connection on Commit/Rollback, including when
	// they fail, so release has happened by this point.
	s.state = StateReleased
}
