package events

import (
	"sync"
	"time"

	"custody_payments_back/models"
)

const (
	TxReceived  = "tx.received"
	TxConfirmed = "tx.confirmed"
)

type TxEvent struct {
	Tx               models.ParsedTransaction
	Confirmations    int
	BlockSeq         int
	ConfirmationTime time.Time
}

type Handler func(event TxEvent)

// Bus - синхронный pub-sub для событий парсера блокчейна; подписчики
// вызываются в порядке регистрации, поэтому ингест TXO регистрируется
// раньше диспетчера нотификаций
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
	}
}

func (b *Bus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

func (b *Bus) Publish(topic string, event TxEvent) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
