// Package service publishes view mutation events to RabbitMQ.
// Errors are logged and returned so callers can ignore failures without
// interrupting the request that caused the event.
package service

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/iliyamo/ggame-miniapp/internal/queue"
)

// Publisher sends ViewEvents to a durable queue. It dials per event:
// mutations are rare enough that a long-lived connection is not worth
// the reconnect handling.
type Publisher struct {
    URL   string
    Queue string
    Log   *zap.Logger

    dial func(url string) (channel, func(), error)
}

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
    QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
    PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// NewPublisher returns a Publisher for the given broker and queue.
func NewPublisher(url, queueName string, log *zap.Logger) *Publisher {
    if log == nil {
        log = zap.NewNop()
    }
    return &Publisher{URL: url, Queue: queueName, Log: log, dial: dialAMQP}
}

func dialAMQP(url string) (channel, func(), error) {
    conn, err := amqp.Dial(url)
    if err != nil {
        return nil, nil, err
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, nil, err
    }
    return ch, func() {
        _ = ch.Close()
        _ = conn.Close()
    }, nil
}

// Notify publishes ev as a persistent JSON message. It never panics.
func (p *Publisher) Notify(ctx context.Context, ev queue.ViewEvent) error {
    ch, closeFn, err := p.dial(p.URL)
    if err != nil {
        p.Log.Warn("rabbitmq: dial failed", zap.Error(err))
        return err
    }
    defer closeFn()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        p.Queue, // name
        true,    // durable
        false,   // autoDelete
        false,   // exclusive
        false,   // noWait
        nil,     // args
    ); err != nil {
        p.Log.Warn("rabbitmq: queue declare failed", zap.Error(err))
        return err
    }

    ev.Stamp()
    body, err := json.Marshal(ev)
    if err != nil {
        p.Log.Warn("rabbitmq: marshal event failed", zap.Error(err))
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Type:         string(ev.Kind),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",      // default exchange
        p.Queue, // routing key = queue name
        false,   // mandatory
        false,   // immediate
        pub,
    ); err != nil {
        p.Log.Warn("rabbitmq: publish failed", zap.Error(err))
        return err
    }
    p.Log.Debug("rabbitmq: event published", zap.String("kind", string(ev.Kind)), zap.String("session_id", ev.SessionID))
    return nil
}
