package runtime

import (
	"context"
	"sync"
	"time"

	"room-relay/contract"
	"room-relay/domain"
)

// Hand-written fakes for the store collaborators. The real collection
// lives in the repositories package; these keep the subscription state
// machine deterministic under test.

type fakeQuery struct {
	mu      sync.Mutex
	batches chan []domain.Entry
	done    chan struct{}
	err     error
	closed  bool
}

func newFakeQuery() *fakeQuery {
	return &fakeQuery{
		batches: make(chan []domain.Entry, 16),
		done:    make(chan struct{}),
	}
}

func (q *fakeQuery) Batches() <-chan []domain.Entry { return q.batches }

func (q *fakeQuery) Done() <-chan struct{} { return q.done }

func (q *fakeQuery) Err() error {
	select {
	case <-q.done:
		q.mu.Lock()
		defer q.mu.Unlock()
		return q.err
	default:
		return nil
	}
}

func (q *fakeQuery) Close() {
	q.terminate(nil)
}

// terminate ends the listening task with the given terminal error.
func (q *fakeQuery) terminate(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.err = err
	close(q.batches)
	close(q.done)
}

func (q *fakeQuery) push(entries ...domain.Entry) {
	q.batches <- entries
}

func (q *fakeQuery) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

type openedQuery struct {
	query *fakeQuery
	room  string
	from  time.Time
}

type fakeCollection struct {
	mu     sync.Mutex
	opened []openedQuery
}

func (c *fakeCollection) Append(context.Context, string, string) (string, error) {
	return "", nil
}

func (c *fakeCollection) AppendMessage(context.Context, string, string) *string {
	return nil
}

func (c *fakeCollection) OpenQuery(_ context.Context, room string, from time.Time) (contract.LiveQuery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := newFakeQuery()
	c.opened = append(c.opened, openedQuery{query: q, room: room, from: from})
	return q, nil
}

func (c *fakeCollection) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.opened)
}

func (c *fakeCollection) at(i int) openedQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened[i]
}

type fakeStore struct {
	col        *fakeCollection
	connectErr error
	closed     bool
}

func (s *fakeStore) Connect(context.Context) (contract.Collection, error) {
	if s.connectErr != nil {
		return nil, s.connectErr
	}
	return s.col, nil
}

func (s *fakeStore) Close() error {
	s.closed = true
	return nil
}

func at(ts int64) time.Time {
	return time.Unix(0, ts)
}

func entry(room, payload string, ts int64) domain.Entry {
	e := domain.NewEntry(room, payload)
	e.At = at(ts)
	return e
}
