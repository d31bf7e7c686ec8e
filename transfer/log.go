package transfer

import (
	"fmt"
	"sync"
	"time"

	"github.com/forma-dev/bridge-core/backend"
	"github.com/forma-dev/bridge-core/router"
	"github.com/shopspring/decimal"
)

// Record is one user-initiated transfer attempt. Settlement fields are
// populated only once known.
type Record struct {
	ID        int64
	CreatedAt time.Time

	Origin       string
	Destination  string
	TokenAddress string
	TokenSymbol  string
	Sender       string
	Recipient    string
	Amount       decimal.Decimal
	Backend      router.Backend

	Status Status

	OriginTxHash string
	MessageID    string // bridge message identifier
	TrackingID   string // aggregator-assigned tracking id
	Fees         *backend.FeeBreakdown
}

// Event is emitted to subscribers on every record change.
type Event struct {
	ID     int64
	Status Status
	Record Record
}

// Log is the shared, ordered collection of transfer records. Records are
// keyed by a monotonically assigned id (append-only creation order, never
// positional array indexes) and each progresses through the state machine
// independently. Individual records are never deleted; Reset clears the log
// wholesale.
type Log struct {
	mu      sync.RWMutex
	records map[int64]*Record
	order   []int64
	nextID  int64
	subs    map[int64]chan Event
	nextSub int64
}

// NewLog creates an empty transfer log.
func NewLog() *Log {
	return &Log{
		records: make(map[int64]*Record),
		subs:    make(map[int64]chan Event),
	}
}

// Append creates a record in StatusPreparing and returns its id.
func (l *Log) Append(r Record) int64 {
	l.mu.Lock()
	r.ID = l.nextID
	l.nextID++
	r.CreatedAt = time.Now()
	r.Status = StatusPreparing
	l.records[r.ID] = &r
	l.order = append(l.order, r.ID)
	snapshot := r
	l.mu.Unlock()

	l.publish(Event{ID: snapshot.ID, Status: snapshot.Status, Record: snapshot})
	return snapshot.ID
}

// Advance moves a record to the given status, enforcing the state machine:
// transitions are monotonic, terminal states accept no further change, and
// StatusFailed is reachable from any non-terminal status.
func (l *Log) Advance(id int64, next Status) error {
	l.mu.Lock()
	rec, ok := l.records[id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("no transfer with id %d", id)
	}
	if !rec.Status.canTransition(next) {
		current := rec.Status
		l.mu.Unlock()
		return fmt.Errorf("invalid transition %s -> %s for transfer %d", current, next, id)
	}
	rec.Status = next
	snapshot := *rec
	l.mu.Unlock()

	l.publish(Event{ID: id, Status: next, Record: snapshot})
	return nil
}

// Update mutates a record's settlement fields in place. Terminal records
// reject mutation; status changes must go through Advance.
func (l *Log) Update(id int64, fn func(*Record)) error {
	l.mu.Lock()
	rec, ok := l.records[id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("no transfer with id %d", id)
	}
	if rec.Status.Terminal() {
		l.mu.Unlock()
		return fmt.Errorf("transfer %d is terminal (%s), no further mutation permitted", id, rec.Status)
	}
	status := rec.Status
	fn(rec)
	rec.Status = status
	snapshot := *rec
	l.mu.Unlock()

	l.publish(Event{ID: id, Status: snapshot.Status, Record: snapshot})
	return nil
}

// Get returns a copy of the record.
func (l *Log) Get(id int64) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// List returns copies of all records, newest first.
func (l *Log) List() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, 0, len(l.order))
	for i := len(l.order) - 1; i >= 0; i-- {
		out = append(out, *l.records[l.order[i]])
	}
	return out
}

// Len returns the number of records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Reset clears the log wholesale. Record ids keep increasing across resets
// so a subscriber never sees an id reused.
func (l *Log) Reset() {
	l.mu.Lock()
	l.records = make(map[int64]*Record)
	l.order = nil
	l.mu.Unlock()
}

// Subscribe registers a listener for record events. Slow subscribers drop
// events rather than blocking the state machine. The returned func
// unsubscribes.
func (l *Log) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = ch
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		if existing, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(existing)
		}
		l.mu.Unlock()
	}
	return ch, cancel
}

func (l *Log) publish(ev Event) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, ch := range l.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
