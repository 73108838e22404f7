package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	natsadapter "github.com/samirrijal/mapcanvas/internal/adapters/nats"
	"github.com/samirrijal/mapcanvas/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Channel string `json:"channel"` // "annotations" | "features" | "collection" (default: annotations)
}

// channelSubject maps a client channel name to its NATS subject.
func channelSubject(channel string) (string, bool) {
	switch channel {
	case "", "annotations":
		return natsadapter.AnnotationSubjects, true
	case "features":
		return natsadapter.AnnotationSubjectPrefix + "feature.>", true
	case "collection":
		return natsadapter.AnnotationSubjectPrefix + "collection.>", true
	}
	return "", false
}

// WebSocketHandler returns a handler that upgrades to WebSocket and relays
// annotation events to connected clients.
// Clients send JSON: {"action":"subscribe","channel":"features"}
// Every client starts subscribed to all annotation events.
func WebSocketHandler(relay EventRelay) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		subs := make(map[string]func() error) // subject -> unsubscribe

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		forward := func(data []byte) { _ = writeJSON(json.RawMessage(data)) }

		unsub, err := relay.Subscribe(natsadapter.AnnotationSubjects, forward)
		if err != nil {
			slog.Error("ws default subscribe", "error", err)
			return
		}
		subs[natsadapter.AnnotationSubjects] = unsub

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			subject, ok := channelSubject(m.Channel)
			if !ok {
				_ = writeJSON(map[string]string{"error": "unknown channel: " + m.Channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				unsub, err := relay.Subscribe(subject, forward)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = unsub
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if unsub, exists := subs[subject]; exists {
					_ = unsub()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, unsub := range subs {
			_ = unsub()
		}
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
