package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Listener handles one event. Errors and panics are logged, never
// propagated to the publisher.
type Listener func(ctx context.Context, e Event) error

// Dispatcher is the in-process Publisher used when no broker is configured.
// Listeners run on their own goroutines; Publish returns immediately.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
	wg        sync.WaitGroup
	log       zerolog.Logger
}

var _ Publisher = (*Dispatcher)(nil)

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		listeners: make(map[string][]Listener),
		log:       log,
	}
}

// Subscribe registers a listener for the named event.
func (d *Dispatcher) Subscribe(name string, l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[name] = append(d.listeners[name], l)
}

// Publish hands the event to every subscribed listener asynchronously.
// The background context deliberately detaches listeners from the request
// lifecycle: an abandoned HTTP call must not cancel goal recalculation.
func (d *Dispatcher) Publish(ctx context.Context, e Event) error {
	d.mu.RLock()
	listeners := d.listeners[e.Name()]
	d.mu.RUnlock()

	for _, l := range listeners {
		l := l
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					d.log.Error().Interface("panic", r).Str("event", e.Name()).Msg("Event listener panicked")
				}
			}()
			if err := l(context.Background(), e); err != nil {
				d.log.Error().Err(err).Str("event", e.Name()).Msg("Event listener failed")
			}
		}()
	}
	return nil
}

// Wait blocks until all in-flight listeners finish. Used in tests and on
// shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close waits for in-flight listeners.
func (d *Dispatcher) Close() error {
	d.Wait()
	return nil
}
