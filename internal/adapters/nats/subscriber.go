package natsadapter

import (
	"sync"

	"github.com/nats-io/nats.go"
)

// Subscriber fans NATS subjects out to in-process callbacks, e.g. the WebSocket relay.
// It uses core subscriptions: clients only see events published while they are connected.
type Subscriber struct {
	conn *nats.Conn

	mu   sync.Mutex
	subs map[*nats.Subscription]struct{}
}

// NewSubscriber opens a dedicated connection for relaying.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn, subs: make(map[*nats.Subscription]struct{})}, nil
}

// Subscribe calls fn with every message payload on subject until the returned
// func is called.
func (s *Subscriber) Subscribe(subject string, fn func(data []byte)) (func() error, error) {
	sub, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		fn(msg.Data)
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	return func() error {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
		return sub.Unsubscribe()
	}, nil
}

// Connected reports whether the underlying connection is up.
func (s *Subscriber) Connected() bool {
	return s.conn.IsConnected()
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	s.mu.Lock()
	for sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = map[*nats.Subscription]struct{}{}
	s.mu.Unlock()
	_ = s.conn.Drain()
}
