package store

import "sync"

// subscriber is one registered change listener. signal has capacity one:
// pending notifications collapse into a single wake-up.
type subscriber struct {
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

// broker fans out change notifications to subscribers without blocking
// writers.
type broker struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[*subscriber]struct{})}
}

func (b *broker) add() *subscriber {
	sub := &subscriber{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

func (b *broker) remove(sub *subscriber) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
	sub.once.Do(func() { close(sub.done) })
}

func (b *broker) publish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.signal <- struct{}{}:
		default:
			// Already pending.
		}
	}
}

func (b *broker) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
