package transport

import "sync"

// InterfaceID names a module on the event chain.
type InterfaceID uint16

const (
	IDPAN InterfaceID = iota + 1
	IDCCP
	IDRange
	IDApp
)

// Event is a transceiver lifecycle event.
type Event uint8

const (
	EventTxComplete Event = iota
	EventRxComplete
	EventRxTimeout
	EventRxError
	EventTxError
	EventReset
)

func (e Event) String() string {
	switch e {
	case EventTxComplete:
		return "tx_complete"
	case EventRxComplete:
		return "rx_complete"
	case EventRxTimeout:
		return "rx_timeout"
	case EventRxError:
		return "rx_error"
	case EventTxError:
		return "tx_error"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Handler receives transceiver events. Each method runs in the
// transceiver's event context, must not block and returns true when it
// claims the event, which stops the dispatch.
type Handler interface {
	InterfaceID() InterfaceID
	OnTxComplete() bool
	OnRxComplete() bool
	OnRxTimeout() bool
	OnRxError() bool
	OnTxError() bool
	OnReset() bool
}

// Chain is an ordered list of handlers tried in registration order.
type Chain struct {
	mu       sync.RWMutex
	handlers []Handler
}

// Append adds h at the end of the chain, replacing any handler with the
// same id.
func (c *Chain) Append(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(h.InterfaceID())
	c.handlers = append(c.handlers, h)
}

// Remove drops the handler registered under id.
func (c *Chain) Remove(id InterfaceID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(id)
}

func (c *Chain) removeLocked(id InterfaceID) {
	for i, h := range c.handlers {
		if h.InterfaceID() == id {
			c.handlers = append(c.handlers[:i:i], c.handlers[i+1:]...)
			return
		}
	}
}

func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handlers)
}

// Dispatch offers ev to each handler until one claims it.
func (c *Chain) Dispatch(ev Event) bool {
	c.mu.RLock()
	handlers := make([]Handler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.RUnlock()

	for _, h := range handlers {
		if call(h, ev) {
			return true
		}
	}
	return false
}

func call(h Handler, ev Event) bool {
	switch ev {
	case EventTxComplete:
		return h.OnTxComplete()
	case EventRxComplete:
		return h.OnRxComplete()
	case EventRxTimeout:
		return h.OnRxTimeout()
	case EventRxError:
		return h.OnRxError()
	case EventTxError:
		return h.OnTxError()
	case EventReset:
		return h.OnReset()
	default:
		return false
	}
}
