package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayQuantity(t *testing.T) {
	entries := []StockLedgerEntry{
		{ID: "a", QuantityDelta: 100, PreviousQuantity: 0, NewQuantity: 100},
		{ID: "b", QuantityDelta: -95, PreviousQuantity: 100, NewQuantity: 5},
		{ID: "c", QuantityDelta: -1, PreviousQuantity: 5, NewQuantity: 4},
	}

	qty, err := ReplayQuantity(0, entries)
	require.NoError(t, err)
	assert.Equal(t, 4, qty)

	broken := append([]StockLedgerEntry{}, entries...)
	broken[2].PreviousQuantity = 6
	_, err = ReplayQuantity(0, broken)
	assert.Error(t, err)
}

func TestTransferStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, TransferPending.CanTransitionTo(TransferInTransit))
	assert.True(t, TransferPending.CanTransitionTo(TransferCancelled))
	assert.False(t, TransferPending.CanTransitionTo(TransferCompleted))
	assert.True(t, TransferInTransit.CanTransitionTo(TransferCompleted))
	assert.True(t, TransferInTransit.CanTransitionTo(TransferCancelled))
	assert.False(t, TransferCompleted.CanTransitionTo(TransferCancelled))
	assert.False(t, TransferCancelled.CanTransitionTo(TransferInTransit))
}

func TestStockReservation_Holds(t *testing.T) {
	now := time.Now()
	r := StockReservation{Status: ReservationActive, ExpiresAt: now.Add(time.Minute)}
	assert.True(t, r.Holds(now))
	assert.False(t, r.Holds(now.Add(2*time.Minute)))

	r.Status = ReservationFulfilled
	assert.False(t, r.Holds(now))
}

func TestOrderIdempotencyKey(t *testing.T) {
	key := StockKey{ProductID: "p1", WarehouseID: "w1"}
	assert.Equal(t, "order:o1:p1//w1:sale", OrderIdempotencyKey("o1", key, ChangeSale))
}
