package service

import (
    "context"
    "encoding/json"
    "errors"
    "testing"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/ggame-miniapp/internal/queue"
)

type fakeChannel struct {
    declared   []string
    published  []amqp.Publishing
    routingKey string
    publishErr error
}

func (f *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
    if !durable {
        return amqp.Queue{}, errors.New("queue must be durable")
    }
    f.declared = append(f.declared, name)
    return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
    if f.publishErr != nil {
        return f.publishErr
    }
    f.routingKey = key
    f.published = append(f.published, msg)
    return nil
}

func withChannel(p *Publisher, ch *fakeChannel) (closed *bool) {
    closed = new(bool)
    p.dial = func(string) (channel, func(), error) {
        return ch, func() { *closed = true }, nil
    }
    return closed
}

func TestNotify_Publishes(t *testing.T) {
    p := NewPublisher("amqp://unused", "ggame.view.mutations", nil)
    ch := &fakeChannel{}
    closed := withChannel(p, ch)

    err := p.Notify(context.Background(), queue.ViewEvent{Kind: queue.KindCardAdded, SessionID: "s1", CardID: 7, Position: 2})
    require.NoError(t, err)
    assert.True(t, *closed)
    assert.Equal(t, []string{"ggame.view.mutations"}, ch.declared)
    assert.Equal(t, "ggame.view.mutations", ch.routingKey)
    require.Len(t, ch.published, 1)

    msg := ch.published[0]
    assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
    assert.Equal(t, "application/json", msg.ContentType)
    assert.Equal(t, "deck.card_added", msg.Type)

    var ev queue.ViewEvent
    require.NoError(t, json.Unmarshal(msg.Body, &ev))
    assert.Equal(t, int64(7), ev.CardID)
    assert.NotEmpty(t, ev.OccurredAt)
}

func TestNotify_Errors(t *testing.T) {
    p := NewPublisher("amqp://unused", "q", nil)
    p.dial = func(string) (channel, func(), error) { return nil, nil, errors.New("connection refused") }
    assert.EqualError(t, p.Notify(context.Background(), queue.ViewEvent{Kind: queue.KindCardSold}), "connection refused")

    ch := &fakeChannel{publishErr: errors.New("channel closed")}
    closed := withChannel(p, ch)
    assert.Error(t, p.Notify(context.Background(), queue.ViewEvent{Kind: queue.KindCardSold}))
    assert.True(t, *closed)
}
