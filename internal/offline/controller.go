package offline

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// Message is a control message posted to the controller.
type Message string

const (
	// MessageSkipWaiting activates an installed but waiting version now.
	MessageSkipWaiting Message = "SKIP_WAITING"
	// MessageClearCache flushes every cache generation.
	MessageClearCache Message = "CLEAR_CACHE"
)

// Controller owns the active and waiting layer versions and routes requests
// through the active one. It implements http.RoundTripper.
type Controller struct {
	mu      sync.RWMutex
	base    Options
	active  *Layer
	waiting *Layer
}

// NewController returns a controller with no installed version. Requests pass
// straight to base.Transport until a version is registered.
func NewController(base Options) *Controller {
	if base.Storage == nil {
		base.Storage = NewMemoryStorage()
	}
	if base.Transport == nil {
		base.Transport = http.DefaultTransport
	}
	return &Controller{base: base}
}

// Register installs version. The first version activates immediately; later
// ones wait for MessageSkipWaiting.
func (c *Controller) Register(ctx context.Context, version string) error {
	opts := c.base
	opts.Version = version
	layer := NewLayer(opts)

	if err := layer.Install(ctx); err != nil {
		layer.logger.Warn().Err(err).Msg("install finished with errors")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil && c.active.Version() == version {
		return nil
	}
	if c.active == nil {
		c.active = layer
		return layer.Activate(ctx)
	}
	c.waiting = layer
	return nil
}

// Post handles a control message.
func (c *Controller) Post(ctx context.Context, msg Message) error {
	switch msg {
	case MessageSkipWaiting:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.waiting == nil {
			return nil
		}
		c.active, c.waiting = c.waiting, nil
		return c.active.Activate(ctx)
	case MessageClearCache:
		c.mu.RLock()
		layer := c.active
		c.mu.RUnlock()
		if layer == nil {
			return nil
		}
		return layer.ClearAll(ctx)
	default:
		return fmt.Errorf("unknown control message %q", msg)
	}
}

// Active returns the active version, or "" before the first registration.
func (c *Controller) Active() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.active == nil {
		return ""
	}
	return c.active.Version()
}

// Waiting returns the version waiting to activate, if any.
func (c *Controller) Waiting() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.waiting == nil {
		return ""
	}
	return c.waiting.Version()
}

// SyncPending forwards the background sync hook to the active layer.
func (c *Controller) SyncPending(ctx context.Context) error {
	c.mu.RLock()
	layer := c.active
	c.mu.RUnlock()
	if layer == nil {
		return nil
	}
	return layer.SyncPending(ctx)
}

func (c *Controller) RoundTrip(req *http.Request) (*http.Response, error) {
	c.mu.RLock()
	layer := c.active
	c.mu.RUnlock()
	if layer == nil {
		return c.base.Transport.RoundTrip(req)
	}
	return layer.RoundTrip(req)
}
