package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "stock_ledger_entries_idempotency_key_key"})

	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "stock_ledger_entries_idempotency_key_key"))
	assert.False(t, IsUniqueViolation(err, "outra_constraint"))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
}

func TestIsCheckViolation(t *testing.T) {
	assert.True(t, IsCheckViolation(&pq.Error{Code: "23514"}))
	assert.False(t, IsCheckViolation(&pq.Error{Code: "23505"}))
}

func TestNullString(t *testing.T) {
	assert.False(t, NullString("").Valid)
	assert.Equal(t, "k", NullString("k").String)
}
