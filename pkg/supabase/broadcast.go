package supabase

import (
	"log"
	"sync"

	"geoloc/internal/models"
)

const subscriberBuffer = 16

// Broadcaster fans auth events out to subscribers. A subscriber that falls
// more than subscriberBuffer events behind loses the newest ones.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan models.AuthEvent
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan models.AuthEvent)}
}

// Subscribe returns the event channel and a function that unsubscribes and
// closes it. The function may be called more than once.
func (b *Broadcaster) Subscribe() (<-chan models.AuthEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan models.AuthEvent, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// Emit delivers e to every current subscriber without blocking.
func (b *Broadcaster) Emit(e models.AuthEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			log.Printf("Auth subscriber %d is full, dropping %s", id, e.Kind)
		}
	}
}
