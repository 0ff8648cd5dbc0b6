package broadcast

import (
	"errors"
	"sync"
)

// ErrStopped is returned by Subscribe once the broadcaster has been stopped.
var ErrStopped = errors.New("broadcaster is stopped")

// Broadcaster fans published values out to subscribers. Every subscriber channel
// has a buffer of one; a subscriber that falls behind loses the older value and
// receives the latest one instead, so publishers never block on slow readers.
type Broadcaster[T any] struct {
	messageReceiver chan T
	mu              sync.Mutex
	subscribers     map[chan T]struct{}
	stopped         bool
	stopOnce        sync.Once
}

// RunNew creates a Broadcaster and starts its delivery goroutine.
func RunNew[T any]() *Broadcaster[T] {
	b := &Broadcaster[T]{
		messageReceiver: make(chan T, 1),
		subscribers:     make(map[chan T]struct{}),
	}
	go b.run()
	return b
}

func (b *Broadcaster[T]) run() {
	for msg := range b.messageReceiver {
		// Sends never block; holding the lock keeps Unsubscribe from closing
		// a channel mid-send.
		b.mu.Lock()
		for s := range b.subscribers {
			replaceLatest(s, msg)
		}
		b.mu.Unlock()
	}

	b.mu.Lock()
	for s := range b.subscribers {
		close(s)
	}
	b.subscribers = make(map[chan T]struct{})
	b.mu.Unlock()
}

func replaceLatest[T any](ch chan T, msg T) {
	select {
	case ch <- msg:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- msg:
		default:
		}
	}
}

// Stop closes every subscriber channel once pending values are delivered.
func (b *Broadcaster[T]) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopped = true
		b.mu.Unlock()
		close(b.messageReceiver)
	})
}

// Subscribe registers a new subscriber channel.
func (b *Broadcaster[T]) Subscribe() (chan T, error) {
	ch := make(chan T, 1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return nil, ErrStopped
	}
	b.subscribers[ch] = struct{}{}
	return ch, nil
}

// Unsubscribe removes and closes a subscriber channel.
func (b *Broadcaster[T]) Unsubscribe(ch chan T) {
	b.mu.Lock()
	_, ok := b.subscribers[ch]
	delete(b.subscribers, ch)
	b.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Publish hands msg to the delivery goroutine, replacing a value that has not
// been picked up yet. Publish must not be called after Stop.
func (b *Broadcaster[T]) Publish(msg T) {
	replaceLatest(b.messageReceiver, msg)
}
