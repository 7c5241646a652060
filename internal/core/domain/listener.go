package domain

import "github.com/thushan/switchyard/pkg/eventbus"

// EventListener receives every event published on the bus
type EventListener = eventbus.Listener[Event]

// EventListenerFunc adapts a plain function into an EventListener
type EventListenerFunc = eventbus.ListenerFunc[Event]

// ListenFor narrows a handler to a single event variant. Events of any other
// kind are dropped without calling the handler.
func ListenFor[E Event](handler func(event E) error) EventListener {
	return EventListenerFunc(func(event Event) error {
		typed, ok := event.(E)
		if !ok {
			return nil
		}
		return handler(typed)
	})
}
