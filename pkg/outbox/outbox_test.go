package outbox

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/flowline/flowline/pkg/model"
)

// memoryRepo mirrors the postgres outbox repository contract over a slice:
// unprocessed rows ordered by occurred_on then seq, bookkeeping updates by
// id, pruning of processed rows only.
type memoryRepo struct {
	mu       sync.Mutex
	nextSeq  int64
	messages []model.OutboxMessage
}

func (r *memoryRepo) add(msgs ...model.OutboxMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range msgs {
		r.nextSeq++
		msg.Seq = r.nextSeq
		r.messages = append(r.messages, msg)
	}
}

func (r *memoryRepo) ListUnprocessed(_ context.Context, limit int) ([]model.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := make([]model.OutboxMessage, 0, len(r.messages))
	for _, msg := range r.messages {
		if msg.ProcessedOn == nil {
			pending = append(pending, msg)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].OccurredOn.Equal(pending[j].OccurredOn) {
			return pending[i].Seq < pending[j].Seq
		}
		return pending[i].OccurredOn.Before(pending[j].OccurredOn)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *memoryRepo) Update(_ context.Context, msg *model.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.messages {
		if r.messages[i].ID == msg.ID {
			r.messages[i].ProcessedOn = msg.ProcessedOn
			r.messages[i].Error = msg.Error
			r.messages[i].RetryCount = msg.RetryCount
			return nil
		}
	}
	return errors.New("message not found")
}

func (r *memoryRepo) DeleteProcessedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.messages[:0]
	var deleted int64
	for _, msg := range r.messages {
		if msg.ProcessedOn != nil && msg.OccurredOn.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, msg)
	}
	r.messages = kept
	return deleted, nil
}

func (r *memoryRepo) byID(id string) (model.OutboxMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range r.messages {
		if msg.ID.String() == id {
			return msg, true
		}
	}
	return model.OutboxMessage{}, false
}

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

type publishedMessage struct {
	key     string
	payload []byte
}

// scriptedBus fails the first failures publish calls, then succeeds.
type scriptedBus struct {
	mu        sync.Mutex
	failures  int
	attempts  int
	published []publishedMessage
}

func (b *scriptedBus) Publish(_ context.Context, key string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.attempts++
	if b.attempts <= b.failures {
		return errors.New("broker unavailable")
	}
	b.published = append(b.published, publishedMessage{key: key, payload: payload})
	return nil
}

func (b *scriptedBus) publishedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

// capturingStore stages inserts and makes them visible only when the fake
// transactor commits, mimicking transactional visibility.
type capturingStore struct {
	staged    []model.OutboxMessage
	committed []model.OutboxMessage
	failAfter int // fail the insert once this many rows are staged; 0 disables
}

func (s *capturingStore) InsertTx(_ *gorm.DB, msg *model.OutboxMessage) error {
	if s.failAfter > 0 && len(s.staged) >= s.failAfter {
		return errors.New("insert failed")
	}
	s.staged = append(s.staged, *msg)
	return nil
}

type fakeTransactor struct {
	store *capturingStore
	calls int
}

func (t *fakeTransactor) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	t.calls++
	t.store.staged = nil
	if err := fn(nil); err != nil {
		t.store.staged = nil
		return err
	}
	t.store.committed = append(t.store.committed, t.store.staged...)
	t.store.staged = nil
	return nil
}
