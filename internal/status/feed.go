package status

import (
	"sync"

	"github.com/SHIBINSOJU/SHOT-MC/internal/probe"
)

// Feed caches the latest probe outcome per guild and fans it out to
// subscribers (the ops API's live stream).
type Feed struct {
	mu        sync.RWMutex
	latest    map[string]*probe.Status
	listeners map[string][]chan *probe.Status
}

func NewFeed() *Feed {
	return &Feed{
		latest:    make(map[string]*probe.Status),
		listeners: make(map[string][]chan *probe.Status),
	}
}

func (f *Feed) Publish(guildID string, st *probe.Status) {
	f.mu.Lock()
	f.latest[guildID] = st
	listeners := f.listeners[guildID]
	f.mu.Unlock()

	for _, ch := range listeners {
		select {
		case ch <- st:
		default:
			// Drop if listener is slow
		}
	}
}

func (f *Feed) Latest(guildID string) *probe.Status {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest[guildID]
}

func (f *Feed) Subscribe(guildID string) chan *probe.Status {
	ch := make(chan *probe.Status, 1)
	f.mu.Lock()
	f.listeners[guildID] = append(f.listeners[guildID], ch)
	f.mu.Unlock()
	return ch
}

func (f *Feed) Unsubscribe(guildID string, ch chan *probe.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	listeners := f.listeners[guildID]
	for i, l := range listeners {
		if l == ch {
			f.listeners[guildID] = append(listeners[:i], listeners[i+1:]...)
			close(ch)
			return
		}
	}
}
