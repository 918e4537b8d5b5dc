package hub

import "sync"

// DefaultQueueCapacity is the per-subscriber SSE queue size.
const DefaultQueueCapacity = 100

// Subscriber is the handle an SSE transport holds: it pulls serialized
// events from Events until Done is closed.
type Subscriber struct {
	id    uint64
	queue chan []byte

	done     chan struct{}
	doneOnce sync.Once
}

func newSubscriber(id uint64, capacity int) *Subscriber {
	return &Subscriber{
		id:    id,
		queue: make(chan []byte, capacity),
		done:  make(chan struct{}),
	}
}

// ID returns the subscriber id assigned at registration.
func (s *Subscriber) ID() uint64 {
	return s.id
}

// Events is the read side of the subscriber queue. It is never closed;
// watch Done to learn when the hub has dropped the subscriber.
func (s *Subscriber) Events() <-chan []byte {
	return s.queue
}

// Done is closed when the subscriber is unregistered or the hub stops.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Len reports how many events are waiting in the queue.
func (s *Subscriber) Len() int {
	return len(s.queue)
}

// Cap reports the queue capacity.
func (s *Subscriber) Cap() int {
	return cap(s.queue)
}

func (s *Subscriber) close() {
	s.doneOnce.Do(func() { close(s.done) })
}

// offer inserts payload without blocking. When the queue is full the single
// oldest entry is discarded first. It returns false if the insert still
// lost a race with a concurrent producer, in which case the event is
// dropped for this subscriber only.
func (s *Subscriber) offer(payload []byte) bool {
	select {
	case s.queue <- payload:
		return true
	default:
	}

	// Full: drop the oldest. A concurrent reader may have drained it already.
	select {
	case <-s.queue:
	default:
	}

	select {
	case s.queue <- payload:
		return true
	default:
		return false
	}
}
