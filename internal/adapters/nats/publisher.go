package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/mapcanvas/internal/core/domain"
	"github.com/samirrijal/mapcanvas/internal/core/ports"
)

const (
	// AnnotationStream holds authoring events for late subscribers.
	AnnotationStream = "ANNOTATION_EVENTS"
	// AnnotationSubjectPrefix is followed by the event type, e.g. mapcanvas.annotations.feature.created.
	AnnotationSubjectPrefix = "mapcanvas.annotations."
	// AnnotationSubjects matches every authoring event.
	AnnotationSubjects = AnnotationSubjectPrefix + ">"
	// maxPendingAcks bounds unacknowledged async publishes before PublishAsync stalls.
	maxPendingAcks = 256
)

var _ ports.EventPublisher = (*Publisher)(nil)

// asyncPublisher is the part of nats.JetStreamContext the publisher writes through.
type asyncPublisher interface {
	PublishAsync(subj string, data []byte, opts ...nats.PubOpt) (nats.PubAckFuture, error)
}

// Publisher implements ports.EventPublisher using NATS JetStream. Publishes
// are asynchronous; missing acks are logged, never returned to the caller.
type Publisher struct {
	conn *nats.Conn
	js   asyncPublisher
}

// NewPublisher connects to NATS, enables JetStream and ensures the annotation stream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream(
		nats.PublishAsyncMaxPending(maxPendingAcks),
		nats.PublishAsyncErrHandler(logAckError),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := AnnotationStreamConfig()
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// AnnotationStreamConfig is the JetStream stream the publisher writes to.
func AnnotationStreamConfig() nats.StreamConfig {
	return nats.StreamConfig{
		Name:      AnnotationStream,
		Subjects:  []string{AnnotationSubjects},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
}

// Subject returns the subject an event is published on.
func Subject(t domain.AnnotationEventType) string {
	return AnnotationSubjectPrefix + string(t)
}

func (p *Publisher) PublishAnnotationEvent(ctx context.Context, event domain.AnnotationEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.PublishAsync(Subject(event.Type), data)
	return err
}

func logAckError(_ nats.JetStream, msg *nats.Msg, err error) {
	slog.Warn("annotation event not acknowledged", "subject", msg.Subject, "error", err)
}

// Connected reports whether the underlying connection is up.
func (p *Publisher) Connected() bool {
	return p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

func connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("mapcanvas"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}
