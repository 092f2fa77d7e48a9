package events

import "sync"

// Feed fans events out to any number of subscribers. Publishing never
// blocks: a subscriber whose buffer is full misses the event, the same
// contract a log stream gives an external indexer that falls behind.
type Feed struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber with the given buffer size and
// returns its channel plus a cancel function. Cancel closes the channel and
// releases the subscription.
func (f *Feed) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	ch := make(chan Event, buffer)
	f.subs[id] = ch
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber that has buffer space. A nil feed
// is valid and drops everything, so emitters never need a nil check.
func (f *Feed) Publish(ev Event) {
	if f == nil {
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
