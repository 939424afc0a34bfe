// Package modal keeps the login and register dialogs mutually exclusive.
package modal

import (
	"sync"

	"github.com/dmitrijs2005/siteofsites/internal/client/events"
)

type State string

const (
	None     State = "none"
	Login    State = "login"
	Register State = "register"
)

// Coordinator holds the single modal slot. Every change is one transition
// and publishes one ModalChanged event carrying the final state.
type Coordinator struct {
	bus *events.Bus

	mu    sync.Mutex
	state State
}

// NewCoordinator returns a coordinator with nothing open. bus may be nil.
func NewCoordinator(bus *events.Bus) *Coordinator {
	return &Coordinator{bus: bus, state: None}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) OpenLogin()    { c.set(Login) }
func (c *Coordinator) OpenRegister() { c.set(Register) }

// SwitchToRegister replaces the login modal with the register modal.
func (c *Coordinator) SwitchToRegister() { c.set(Register) }

// SwitchToLogin replaces the register modal with the login modal.
func (c *Coordinator) SwitchToLogin() { c.set(Login) }

// Close is a no-op when nothing is open.
func (c *Coordinator) Close() { c.set(None) }

func (c *Coordinator) set(to State) {
	c.mu.Lock()
	if c.state == to {
		c.mu.Unlock()
		return
	}
	c.state = to
	c.mu.Unlock()

	if c.bus != nil {
		c.bus.Publish(events.ModalChanged, to)
	}
}
