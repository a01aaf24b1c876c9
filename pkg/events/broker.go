// Package events is the in-process change feed for the transaction ledger.
package events

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"nairaramp_back/models"
)

type Type string

const (
	TransactionCreated Type = "transaction.created"
	TransactionUpdated Type = "transaction.updated"
)

type Event struct {
	Type        Type               `json:"type"`
	Transaction models.Transaction `json:"transaction"`
	At          time.Time          `json:"at"`
}

// Broker fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event and is expected to catch up by polling.
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
	buffer int
}

func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 16
	}
	return &Broker{subs: make(map[int]chan Event), buffer: buffer}
}

// Subscribe returns a receive channel and a cancel func that closes it.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Broker) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			logrus.WithFields(logrus.Fields{"subscriber": id, "type": evt.Type}).Warn("event dropped, subscriber is behind")
		}
	}
}

func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
