// Package events fans out state changes and intents from the coordination
// core (session, search, modals) to the view layer.
package events

import (
	evbus "github.com/asaskevich/EventBus"
)

// Topics. Handlers receive exactly one argument of the documented type.
const (
	// SessionChanged carries a session.Session snapshot.
	SessionChanged = "session:changed"
	// SearchChanged carries a search.State snapshot.
	SearchChanged = "search:changed"
	// ModalChanged carries a modal.State.
	ModalChanged = "modal:changed"
	// NavigateToProfile carries the selected user's unique id (string).
	NavigateToProfile = "navigate:profile"
)

// Bus is a synchronous publish/subscribe hub. Publish calls handlers on the
// caller's goroutine, in subscription order, while holding the bus lock:
// handlers must not Publish or Subscribe themselves. Hand work that may
// publish (an API call that can invalidate the session) to another goroutine
// or a channel.
type Bus struct {
	b evbus.Bus
}

func NewBus() *Bus {
	return &Bus{b: evbus.New()}
}

// Publish delivers arg to every handler subscribed to topic.
func (b *Bus) Publish(topic string, arg any) {
	b.b.Publish(topic, arg)
}

// Subscribe registers fn for topic and returns a function that removes it.
// fn must be a func taking the topic's argument type.
func (b *Bus) Subscribe(topic string, fn any) (unsubscribe func(), err error) {
	if err := b.b.Subscribe(topic, fn); err != nil {
		return nil, err
	}
	return func() { _ = b.b.Unsubscribe(topic, fn) }, nil
}
