// Package currency holds the process-wide settlement currency and notifies
// subscribers when it changes. The storefront core reads and reacts to the
// currency; it never decides it.
package currency

import (
	"strings"
	"sync"
)

// Listener receives the new currency code after a change.
type Listener func(code string)

// Context is the currently selected settlement currency.
type Context struct {
	mu        sync.Mutex
	code      string
	nextID    int
	listeners map[int]Listener
}

func NewContext(code string) *Context {
	if code == "" {
		code = "USD"
	}
	return &Context{
		code:      strings.ToUpper(code),
		listeners: make(map[int]Listener),
	}
}

// Current returns the selected currency code.
func (c *Context) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

// Set changes the currency and notifies subscribers. Setting the already
// selected code is a no-op: an unchanged currency must not purge caches.
func (c *Context) Set(code string) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return
	}
	c.mu.Lock()
	if code == c.code {
		c.mu.Unlock()
		return
	}
	c.code = code
	notify := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		notify = append(notify, l)
	}
	c.mu.Unlock()

	// Listeners run outside the lock so they may call back into Current.
	for _, l := range notify {
		l(code)
	}
}

// Subscribe registers fn for change notifications and returns an
// unsubscribe func.
func (c *Context) Subscribe(fn Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}
