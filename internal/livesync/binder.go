package livesync

import (
	"context"
	"sync"
)

// Activator is the part of a Poller a ViewBinder needs.
type Activator interface {
	Activate(ctx context.Context) error
	Deactivate()
}

// ViewBinder keeps exactly one poller bound to the active view. Binding a
// new view deactivates the previous poller before the new one starts.
type ViewBinder struct {
	mu      sync.Mutex
	view    string
	current Activator
}

func (b *ViewBinder) Bind(ctx context.Context, view string, poller Activator) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current != nil {
		b.current.Deactivate()
		b.current = nil
		b.view = ""
	}
	if err := poller.Activate(ctx); err != nil {
		return err
	}
	b.view = view
	b.current = poller
	return nil
}

// View returns the currently bound view, or "" when nothing is bound.
func (b *ViewBinder) View() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view
}

// Release deactivates the bound poller, if any.
func (b *ViewBinder) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil {
		b.current.Deactivate()
	}
	b.current = nil
	b.view = ""
}
