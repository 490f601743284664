package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kenya-ifp/fusion-api/internal/models"
	"github.com/kenya-ifp/fusion-api/internal/rules"
)

var (
	// ErrLagged is returned when a subscriber's cursor fell behind the retained log.
	ErrLagged = errors.New("subscriber fell behind the feed")
	// ErrClosed is returned once a subscription or its topic is closed.
	ErrClosed = errors.New("subscription closed")
)

// Topic is a bounded, append-only event log. Publishing never blocks on
// subscribers: each subscriber advances its own cursor, and one that falls
// further behind than the log retains is removed.
type Topic struct {
	mu        sync.Mutex
	buf       []Event
	nextSeq   uint64
	notify    chan struct{}
	subs      map[uint64]*Subscription
	nextSubID uint64
	closed    bool
	now       func() time.Time
}

// NewTopic creates a topic retaining the last capacity events.
func NewTopic(capacity int) *Topic {
	if capacity < 1 {
		capacity = 1
	}
	return &Topic{
		buf:     make([]Event, capacity),
		nextSeq: 1,
		notify:  make(chan struct{}),
		subs:    make(map[uint64]*Subscription),
		now:     time.Now,
	}
}

// Publish appends evt, assigning its sequence number and timestamp if unset.
func (t *Topic) Publish(evt Event) Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return evt
	}

	evt.Seq = t.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = t.now().UTC()
	}
	t.buf[t.slot(evt.Seq)] = evt
	t.nextSeq++

	close(t.notify)
	t.notify = make(chan struct{})
	return evt
}

func (t *Topic) slot(seq uint64) int {
	return int((seq - 1) % uint64(len(t.buf)))
}

// oldestSeq is the lowest sequence number still held in the log.
func (t *Topic) oldestSeq() uint64 {
	capacity := uint64(len(t.buf))
	if t.nextSeq <= capacity {
		return 1
	}
	return t.nextSeq - capacity
}

// Subscribe registers a subscriber that receives events published from now
// on whose classification its clearance allows.
func (t *Topic) Subscribe(clearance models.Classification, agency models.Agency) (*Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}

	t.nextSubID++
	sub := &Subscription{
		id:        t.nextSubID,
		topic:     t,
		cursor:    t.nextSeq,
		clearance: clearance,
		agency:    agency,
	}
	t.subs[sub.id] = sub
	return sub, nil
}

// Subscribers returns the number of live subscribers.
func (t *Topic) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// SubscribersByAgency returns the live subscriber count per agency.
func (t *Topic) SubscribersByAgency() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int)
	for _, sub := range t.subs {
		out[string(sub.agency)]++
	}
	return out
}

// Close wakes and detaches every subscriber.
func (t *Topic) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	for id, sub := range t.subs {
		sub.closed = true
		delete(t.subs, id)
	}
	close(t.notify)
}

func (t *Topic) removeLocked(sub *Subscription) {
	sub.closed = true
	delete(t.subs, sub.id)
}

// Subscription is one reader of a topic. It is not safe for concurrent use
// by multiple goroutines.
type Subscription struct {
	id        uint64
	topic     *Topic
	cursor    uint64
	clearance models.Classification
	agency    models.Agency
	closed    bool
}

// Next blocks until the next readable event is available. Events above the
// subscriber's clearance are skipped. A lagging subscriber is removed from
// the topic and gets ErrLagged.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	t := s.topic
	for {
		t.mu.Lock()
		if s.closed {
			t.mu.Unlock()
			return Event{}, ErrClosed
		}
		if s.cursor < t.oldestSeq() {
			t.removeLocked(s)
			t.mu.Unlock()
			return Event{}, ErrLagged
		}
		for s.cursor < t.nextSeq {
			evt := t.buf[t.slot(s.cursor)]
			s.cursor++
			if rules.HasAccess(s.clearance, evt.ClassificationLevel) {
				t.mu.Unlock()
				return evt, nil
			}
		}
		wait := t.notify
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-wait:
		}
	}
}

// Close removes the subscriber from its topic. Safe to call more than once.
func (s *Subscription) Close() {
	s.topic.mu.Lock()
	defer s.topic.mu.Unlock()
	s.topic.removeLocked(s)
}
