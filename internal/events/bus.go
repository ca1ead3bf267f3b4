package events

import (
	"sync"
	"time"
)

// Bus is a small pub/sub queue decoupling the detection loop from the tray
// UI. Publishing never blocks the loop for longer than a channel send into
// the buffered queue; handlers run on their own goroutines.
type Bus struct {
	subscribers map[EventType][]subscription
	mu          sync.RWMutex

	queue  chan Event
	stopCh chan struct{}
	wg     sync.WaitGroup

	nextID SubscriptionID
	idMu   sync.Mutex
}

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// NewBus creates a bus with the given queue buffer size and starts its
// dispatch goroutine.
func NewBus(bufferSize int) *Bus {
	b := &Bus{
		subscribers: make(map[EventType][]subscription),
		queue:       make(chan Event, bufferSize),
		stopCh:      make(chan struct{}),
		nextID:      1,
	}

	b.wg.Add(1)
	go b.dispatchLoop()

	return b
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(eventType EventType, handler Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idMu.Lock()
	id := b.nextID
	b.nextID++
	b.idMu.Unlock()

	b.subscribers[eventType] = append(b.subscribers[eventType], subscription{
		id:      id,
		handler: handler,
	})
	return id
}

// Unsubscribe removes a subscription by ID.
func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subscribers {
		for i, sub := range subs {
			if sub.id == id {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish queues an event for delivery. Events published after Stop are
// dropped.
func (b *Bus) Publish(eventType EventType, payload interface{}) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	}

	select {
	case b.queue <- event:
	case <-b.stopCh:
	}
}

// Stop shuts the bus down, draining queued events first.
func (b *Bus) Stop() {
	close(b.stopCh)
	b.wg.Wait()
}

func (b *Bus) dispatchLoop() {
	defer b.wg.Done()

	for {
		select {
		case event := <-b.queue:
			b.dispatch(event)
		case <-b.stopCh:
			for {
				select {
				case event := <-b.queue:
					b.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) dispatch(event Event) {
	b.mu.RLock()
	subs := b.subscribers[event.Type]
	handlers := make([]Handler, len(subs))
	for i, sub := range subs {
		handlers[i] = sub.handler
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		go b.safeCall(handler, event)
	}
}

// safeCall isolates handler panics from the bus goroutine.
func (b *Bus) safeCall(handler Handler, event Event) {
	defer func() {
		recover()
	}()
	handler(event)
}

// SubscriberCount returns the number of handlers for an event type.
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}
