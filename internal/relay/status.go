package relay

import "sync"

// statusFeed fans connection state out to subscribers. Each subscriber
// holds at most the latest value.
type statusFeed struct {
	mu   sync.Mutex
	cur  bool
	next int
	subs map[int]chan bool
}

func newStatusFeed(initial bool) *statusFeed {
	return &statusFeed{cur: initial, subs: make(map[int]chan bool)}
}

func (f *statusFeed) set(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v == f.cur {
		return
	}
	f.cur = v
	for _, ch := range f.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

func (f *statusFeed) get() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cur
}

func (f *statusFeed) subscribe() (<-chan bool, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan bool, 1)
	ch <- f.cur
	id := f.next
	f.next++
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

func (f *statusFeed) subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
