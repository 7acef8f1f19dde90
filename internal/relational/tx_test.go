package relational

import (
	"errors"
	"testing"

	"github.com/reactivedb/reactive/internal/engineerr"
)

func TestTransactionCommitsOnSuccess(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.Write().Transaction(func(tx MutationContext) (any, error) {
		if _, err := tx.Insert("users", map[string]any{"name": "Alice"}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}

	n, err := eng.Read().Count("users", Query{})
	if err != nil || n != 1 {
		t.Fatalf("Count after commit: %d %v", n, err)
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	eng := newTestEngine(t)
	boom := errors.New("boom")
	_, err := eng.Write().Transaction(func(tx MutationContext) (any, error) {
		if _, err := tx.Insert("users", map[string]any{"name": "Alice"}); err != nil {
			return nil, err
		}
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom to propagate, got %v", err)
	}

	n, err := eng.Read().Count("users", Query{})
	if err != nil || n != 0 {
		t.Fatalf("expected rollback to leave no rows, got %d (%v)", n, err)
	}
}

func TestTransactionOnReadContextFails(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.Read().Transaction(func(tx MutationContext) (any, error) {
		return nil, nil
	})
	if kind, ok := engineerr.As(err); !ok || kind != engineerr.KindConstraint {
		t.Fatalf("expected ConstraintError, got %v", err)
	}
}
