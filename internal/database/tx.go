package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the application reacts to.
const (
	errDupEntry        = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// ErrTxConflict is returned by RunInTx when every attempt ended in a deadlock
// or lock wait timeout.  Callers may safely retry the whole request.
var ErrTxConflict = errors.New("transaction conflict")

// IsDuplicate reports whether err is a unique key violation.
func IsDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}

// IsRetryable reports whether the transaction that produced err can be
// replayed from the start.
func IsRetryable(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == errDeadlock || me.Number == errLockWaitTimeout
}

// RunInTx executes fn inside a transaction, committing when fn returns nil.
// InnoDB aborts one side of a lock conflict, so the whole closure is replayed
// up to attempts times with a short exponential backoff.  fn must not keep
// side effects outside the transaction.
func RunInTx(ctx context.Context, db *sql.DB, attempts int, fn func(tx *sql.Tx) error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := 15 * time.Millisecond
	var err error
	for i := 0; i < attempts; i++ {
		err = runOnce(ctx, db, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("%w: %v", ErrTxConflict, err)
}

func runOnce(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
