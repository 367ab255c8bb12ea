package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"geoquiz-service/internal/domain"
	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is prepended to the event type: geoquiz.session.started, ...
const DefaultSubjectPrefix = "geoquiz."

// msgPublisher is the part of *nats.Conn the publisher needs.
type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// EventPublisher publishes session lifecycle events as JSON on NATS core subjects.
type EventPublisher struct {
	conn   msgPublisher
	prefix string
}

func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("geoquiz-service"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}

func NewEventPublisher(conn *nats.Conn, prefix string) *EventPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &EventPublisher{conn: conn, prefix: prefix}
}

// Subject returns the subject an event type is published on.
func (p *EventPublisher) Subject(t domain.EventType) string {
	return p.prefix + string(t)
}

// Publish sends the event with its ID as Nats-Msg-Id so JetStream consumers can dedupe.
func (p *EventPublisher) Publish(ctx context.Context, event domain.SessionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := nats.NewMsg(p.Subject(event.Type))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, event.ID)
	msg.Header.Set("Session-Id", event.SessionID)
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}
