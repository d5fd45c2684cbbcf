package audit

import "sync"

// Feed fans recorded entries out to live subscribers. Slow subscribers miss
// entries rather than hold up the recorder.
type Feed struct {
	mu     sync.Mutex
	subs   map[chan Entry]struct{}
	buffer int
}

func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = 32
	}
	return &Feed{subs: make(map[chan Entry]struct{}), buffer: buffer}
}

// Subscribe returns a channel of new entries and a func that closes it.
func (f *Feed) Subscribe() (<-chan Entry, func()) {
	ch := make(chan Entry, f.buffer)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
			close(ch)
		})
	}
}

func (f *Feed) Publish(e Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
