package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/spatialtiles/internal/adapters/nats"
	"github.com/samirrijal/spatialtiles/internal/pkg/metrics"
)

// wsMessage is sent from client to narrow or widen the relayed barrier events.
type wsMessage struct {
	Action    string `json:"action"`    // "subscribe" | "unsubscribe"
	BarrierID string `json:"barrierId"` // "" = all barriers
}

func wsSubject(barrierID string) string {
	if barrierID == "" {
		return natsadapter.BarrierSubject(">")
	}
	return natsadapter.BarrierSubject(barrierID)
}

type unsubscriber interface {
	Unsubscribe() error
}

// subscriptionSet tracks one client's subjects. The all-barriers subject and
// per-barrier subjects are mutually exclusive so every event is relayed once.
type subscriptionSet struct {
	subscribe func(subject string) (unsubscriber, error)
	subs      map[string]unsubscriber
}

func newSubscriptionSet(subscribe func(subject string) (unsubscriber, error)) *subscriptionSet {
	return &subscriptionSet{subscribe: subscribe, subs: make(map[string]unsubscriber)}
}

// add subscribes to barrierID ("" = all barriers). Subscribing to one barrier
// drops the all-barriers subject; subscribing to all drops every single one.
func (s *subscriptionSet) add(barrierID string) (subject string, added bool, err error) {
	subject = wsSubject(barrierID)
	if _, exists := s.subs[subject]; exists {
		return subject, false, nil
	}
	sub, err := s.subscribe(subject)
	if err != nil {
		return subject, false, err
	}

	all := wsSubject("")
	for subj, old := range s.subs {
		if barrierID == "" || subj == all {
			_ = old.Unsubscribe()
			delete(s.subs, subj)
		}
	}
	s.subs[subject] = sub
	return subject, true, nil
}

// remove drops the subscription for barrierID, if any.
func (s *subscriptionSet) remove(barrierID string) (subject string, removed bool) {
	subject = wsSubject(barrierID)
	sub, exists := s.subs[subject]
	if !exists {
		return subject, false
	}
	_ = sub.Unsubscribe()
	delete(s.subs, subject)
	return subject, true
}

func (s *subscriptionSet) close() {
	for subj, sub := range s.subs {
		_ = sub.Unsubscribe()
		delete(s.subs, subj)
	}
}

// WebSocketHandler returns a handler that relays barrier change events from
// NATS to connected clients. Every client starts subscribed to all barriers;
// subscribing to a single barrier narrows the stream to the barriers named.
// Clients send JSON: {"action":"subscribe","barrierId":"b-1"}
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		log := slog.With("remote", c.RemoteAddr().String())
		log.Info("ws client connected")

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		if nc == nil {
			_ = writeJSON(map[string]string{"error": "event stream unavailable"})
			return
		}

		relay := func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		}

		subs := newSubscriptionSet(func(subject string) (unsubscriber, error) {
			sub, err := nc.Subscribe(subject, relay)
			if err != nil {
				return nil, err
			}
			return sub, nil
		})
		defer subs.close()
		if _, _, err := subs.add(""); err != nil {
			log.Error("ws default subscribe failed", "error", err)
			return
		}

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

			switch m.Action {
			case "subscribe":
				subject, added, err := subs.add(m.BarrierID)
				switch {
				case err != nil:
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
				case !added:
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
				default:
					_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})
				}

			case "unsubscribe":
				if subject, ok := subs.remove(m.BarrierID); ok {
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		log.Info("ws client disconnected")
	}
}
