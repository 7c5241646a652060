package eventbus

/*
 * EventBus - synchronous, ordered pub/sub for in-process producers and consumers.
 *
 * Listeners are invoked on the publishing goroutine in the order they were
 * registered. A listener that fails (error or panic) is reported and skipped,
 * the remaining listeners still see the event. Channel subscribers are for
 * observers that drain events on their own goroutine, they are fed after the
 * listeners and never block the publisher.
 */
import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

// Listener handles a single published event
type Listener[T any] interface {
	OnEvent(event T) error
}

// ListenerFunc adapts a function into a Listener
type ListenerFunc[T any] func(event T) error

func (f ListenerFunc[T]) OnEvent(event T) error {
	return f(event)
}

// ErrorHandler is told about every listener that failed during a publish
type ErrorHandler func(listenerID string, err error)

type listenerEntry[T any] struct {
	listener Listener[T]
	id       string
}

// EventBus fans events out to listeners synchronously and to channel
// subscribers without blocking
type EventBus[T any] struct {
	listeners     atomic.Pointer[[]listenerEntry[T]]
	subscribers   *xsync.Map[string, *subscriber[T]]
	onError       ErrorHandler
	listenersMu   sync.Mutex
	isShutdown    atomic.Bool
	listenerSeq   atomic.Uint64
	subscriberSeq atomic.Uint64
	published     atomic.Uint64
	failures      atomic.Uint64
	bufferSize    int
}

type subscriber[T any] struct {
	ch       chan T
	id       string
	dropped  atomic.Uint64
	isActive atomic.Bool
	closeMu  sync.Mutex
}

// EventBusConfig allows customisation of subscriber buffers and error reporting
type EventBusConfig struct {
	OnListenerError ErrorHandler
	BufferSize      int
}

var DefaultConfig = EventBusConfig{
	BufferSize: 100,
}

// New creates a new EventBus with default configuration
func New[T any]() *EventBus[T] {
	return NewWithConfig[T](DefaultConfig)
}

// NewWithConfig creates a new EventBus with custom configuration
func NewWithConfig[T any](config EventBusConfig) *EventBus[T] {
	eb := &EventBus[T]{
		subscribers: xsync.NewMap[string, *subscriber[T]](),
		bufferSize:  config.BufferSize,
		onError:     config.OnListenerError,
	}
	if eb.bufferSize <= 0 {
		eb.bufferSize = DefaultConfig.BufferSize
	}
	if eb.onError == nil {
		eb.onError = func(listenerID string, err error) {
			slog.Default().Error("Event listener failed", "listener", listenerID, "error", err)
		}
	}
	empty := make([]listenerEntry[T], 0)
	eb.listeners.Store(&empty)
	return eb
}

// Register appends a listener and returns the id used to unregister it
func (eb *EventBus[T]) Register(listener Listener[T]) string {
	id := "lst_" + strconv.FormatUint(eb.listenerSeq.Add(1), 10)

	eb.listenersMu.Lock()
	defer eb.listenersMu.Unlock()

	current := *eb.listeners.Load()
	next := make([]listenerEntry[T], len(current), len(current)+1)
	copy(next, current)
	next = append(next, listenerEntry[T]{id: id, listener: listener})
	eb.listeners.Store(&next)

	return id
}

// RegisterFunc is shorthand for Register(ListenerFunc(fn))
func (eb *EventBus[T]) RegisterFunc(fn func(event T) error) string {
	return eb.Register(ListenerFunc[T](fn))
}

// Unregister removes a listener, unknown ids are ignored
func (eb *EventBus[T]) Unregister(id string) bool {
	eb.listenersMu.Lock()
	defer eb.listenersMu.Unlock()

	current := *eb.listeners.Load()
	next := make([]listenerEntry[T], 0, len(current))
	found := false
	for _, entry := range current {
		if entry.id == id {
			found = true
			continue
		}
		next = append(next, entry)
	}
	if found {
		eb.listeners.Store(&next)
	}
	return found
}

// ClearListeners drops every registered listener
func (eb *EventBus[T]) ClearListeners() {
	eb.listenersMu.Lock()
	defer eb.listenersMu.Unlock()

	empty := make([]listenerEntry[T], 0)
	eb.listeners.Store(&empty)
}

// ListenerCount returns how many listeners a publish would reach right now
func (eb *EventBus[T]) ListenerCount() int {
	return len(*eb.listeners.Load())
}

// Subscribe returns a channel that receives events and a cleanup function
func (eb *EventBus[T]) Subscribe(ctx context.Context) (<-chan T, func()) {
	if eb.isShutdown.Load() {
		ch := make(chan T)
		close(ch)
		return ch, func() {}
	}

	id := "sub_" + strconv.FormatUint(eb.subscriberSeq.Add(1), 10)
	sub := &subscriber[T]{
		id: id,
		ch: make(chan T, eb.bufferSize),
	}
	sub.isActive.Store(true)

	eb.subscribers.Store(id, sub)

	// Context cancellation handler ensures proper cleanup
	go func() {
		<-ctx.Done()
		eb.unsubscribe(id)
	}()

	return sub.ch, func() {
		eb.unsubscribe(id)
	}
}

// Publish delivers the event to every listener in registration order and
// returns how many of them handled it without failing
func (eb *EventBus[T]) Publish(event T) int {
	if eb.isShutdown.Load() {
		return 0
	}
	eb.published.Add(1)

	// snapshot, listeners added while we're delivering wait for the next event
	snapshot := *eb.listeners.Load()

	delivered := 0
	for _, entry := range snapshot {
		if err := eb.deliver(entry, event); err != nil {
			eb.failures.Add(1)
			eb.onError(entry.id, err)
			continue
		}
		delivered++
	}

	eb.subscribers.Range(func(id string, sub *subscriber[T]) bool {
		sub.offer(event)
		return true
	})

	return delivered
}

func (eb *EventBus[T]) deliver(entry listenerEntry[T], event T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return entry.listener.OnEvent(event)
}

// Shutdown gracefully stops the event bus
func (eb *EventBus[T]) Shutdown() {
	if !eb.isShutdown.CompareAndSwap(false, true) {
		return
	}

	eb.ClearListeners()

	eb.subscribers.Range(func(id string, sub *subscriber[T]) bool {
		sub.close()
		return true
	})
	eb.subscribers.Clear()
}

// Stats returns overall event bus statistics
func (eb *EventBus[T]) Stats() EventBusStats {
	stats := EventBusStats{
		IsShutdown:      eb.isShutdown.Load(),
		Listeners:       eb.ListenerCount(),
		TotalPublished:  eb.published.Load(),
		ListenerFailure: eb.failures.Load(),
	}

	eb.subscribers.Range(func(id string, sub *subscriber[T]) bool {
		stats.TotalSubscribers++
		if sub.isActive.Load() {
			stats.ActiveSubscribers++
		}
		stats.TotalDropped += sub.dropped.Load()
		return true
	})

	return stats
}

// EventBusStats provides aggregate metrics
type EventBusStats struct {
	Listeners         int
	TotalSubscribers  int
	ActiveSubscribers int
	TotalPublished    uint64
	ListenerFailure   uint64
	TotalDropped      uint64
	IsShutdown        bool
}

// unsubscribe removes a subscriber safely
func (eb *EventBus[T]) unsubscribe(id string) {
	if sub, exists := eb.subscribers.LoadAndDelete(id); exists {
		sub.close()
	}
}

func (s *subscriber[T]) offer(event T) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	if !s.isActive.Load() {
		return
	}
	select {
	case s.ch <- event:
	default:
		s.dropped.Add(1)
	}
}

func (s *subscriber[T]) close() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	if s.isActive.CompareAndSwap(true, false) {
		close(s.ch)
	}
}
