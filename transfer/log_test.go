package transfer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zeebo/assert"
)

func TestLogAppendAndAdvance(t *testing.T) {
	log := NewLog()

	id := log.Append(Record{Origin: "celestia", Destination: "forma", Amount: decimal.RequireFromString("5")})
	rec, ok := log.Get(id)
	assert.True(t, ok)
	assert.Equal(t, StatusPreparing, rec.Status)
	assert.False(t, rec.CreatedAt.IsZero())

	assert.NoError(t, log.Advance(id, StatusCreatingTxs))
	assert.NoError(t, log.Advance(id, StatusSigningTransfer))
	assert.NoError(t, log.Advance(id, StatusConfirmingTransfer))
	assert.NoError(t, log.Advance(id, StatusConfirmedTransfer))
	assert.NoError(t, log.Advance(id, StatusDelivered))

	rec, _ = log.Get(id)
	assert.Equal(t, StatusDelivered, rec.Status)

	// terminal: nothing moves it anymore
	assert.Error(t, log.Advance(id, StatusFailed))
}

func TestLogRejectsInvalidTransitions(t *testing.T) {
	log := NewLog()
	id := log.Append(Record{})

	assert.Error(t, log.Advance(id, StatusDelivered))
	assert.NoError(t, log.Advance(id, StatusConfirmingTransfer))
	assert.Error(t, log.Advance(id, StatusCreatingTxs))

	assert.Error(t, log.Advance(999, StatusCreatingTxs))
}

func TestLogUpdate(t *testing.T) {
	log := NewLog()
	id := log.Append(Record{})
	assert.NoError(t, log.Advance(id, StatusConfirmingTransfer))

	assert.NoError(t, log.Update(id, func(r *Record) {
		r.OriginTxHash = "0xabc"
		// status writes through Update are discarded
		r.Status = StatusDelivered
	}))

	rec, _ := log.Get(id)
	assert.Equal(t, "0xabc", rec.OriginTxHash)
	assert.Equal(t, StatusConfirmingTransfer, rec.Status)

	assert.NoError(t, log.Advance(id, StatusFailed))
	assert.Error(t, log.Update(id, func(r *Record) { r.OriginTxHash = "0xdef" }))
}

func TestLogListNewestFirst(t *testing.T) {
	log := NewLog()
	first := log.Append(Record{Origin: "a"})
	second := log.Append(Record{Origin: "b"})
	third := log.Append(Record{Origin: "c"})

	records := log.List()
	assert.Equal(t, 3, len(records))
	assert.Equal(t, third, records[0].ID)
	assert.Equal(t, second, records[1].ID)
	assert.Equal(t, first, records[2].ID)
}

func TestLogResetKeepsIDsIncreasing(t *testing.T) {
	log := NewLog()
	first := log.Append(Record{})
	log.Reset()
	assert.Equal(t, 0, log.Len())

	second := log.Append(Record{})
	assert.True(t, second > first)

	_, ok := log.Get(first)
	assert.False(t, ok)
}

func TestLogSubscribe(t *testing.T) {
	log := NewLog()
	events, cancel := log.Subscribe(8)
	defer cancel()

	id := log.Append(Record{Origin: "celestia"})
	assert.NoError(t, log.Advance(id, StatusCreatingTxs))

	ev := <-events
	assert.Equal(t, id, ev.ID)
	assert.Equal(t, StatusPreparing, ev.Status)

	ev = <-events
	assert.Equal(t, StatusCreatingTxs, ev.Status)
	assert.Equal(t, "celestia", ev.Record.Origin)
}

func TestLogSlowSubscriberDropsEvents(t *testing.T) {
	log := NewLog()
	events, cancel := log.Subscribe(1)
	defer cancel()

	id := log.Append(Record{})
	// buffer of one is full; these must not block
	assert.NoError(t, log.Advance(id, StatusCreatingTxs))
	assert.NoError(t, log.Advance(id, StatusSigningTransfer))

	ev := <-events
	assert.Equal(t, StatusPreparing, ev.Status)
}
