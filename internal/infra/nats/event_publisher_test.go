package nats

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"geoquiz-service/internal/domain"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	msgs []*nats.Msg
	err  error
}

func (c *recordingConn) PublishMsg(msg *nats.Msg) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func newRecordingPublisher(err error) (*EventPublisher, *recordingConn) {
	conn := &recordingConn{err: err}
	return &EventPublisher{conn: conn, prefix: DefaultSubjectPrefix}, conn
}

func sampleEvent() domain.SessionEvent {
	return domain.SessionEvent{
		ID:            "evt-1",
		Type:          domain.EventQuestionClosed,
		SessionID:     "sess-1",
		QuizID:        "capitals",
		QuestionID:    "q1",
		QuestionIndex: 0,
		Results:       []domain.ResultEntry{{ParticipantID: "alice", Name: "Alice", Distance: 12.5}},
		OccurredAt:    time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
	}
}

func TestSubject(t *testing.T) {
	p := NewEventPublisher(nil, "")
	assert.Equal(t, "geoquiz.session.started", p.Subject(domain.EventSessionStarted))
	assert.Equal(t, "geoquiz.question.closed", p.Subject(domain.EventQuestionClosed))

	p = NewEventPublisher(nil, "staging.")
	assert.Equal(t, "staging.session.over", p.Subject(domain.EventSessionOver))
}

func TestPublishSendsJSONWithHeaders(t *testing.T) {
	p, conn := newRecordingPublisher(nil)
	event := sampleEvent()

	require.NoError(t, p.Publish(context.Background(), event))
	require.Len(t, conn.msgs, 1)

	msg := conn.msgs[0]
	assert.Equal(t, "geoquiz.question.closed", msg.Subject)
	assert.Equal(t, "evt-1", msg.Header.Get(nats.MsgIdHdr))
	assert.Equal(t, "sess-1", msg.Header.Get("Session-Id"))

	var decoded domain.SessionEvent
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, event, decoded)
}

func TestPublishSkipsCancelledContext(t *testing.T) {
	p, conn := newRecordingPublisher(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, sampleEvent())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, conn.msgs)
}

func TestPublishWrapsConnectionErrors(t *testing.T) {
	p, _ := newRecordingPublisher(nats.ErrConnectionClosed)

	err := p.Publish(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, nats.ErrConnectionClosed)
	assert.Contains(t, err.Error(), "publish question.closed")
}
