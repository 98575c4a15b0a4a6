// Package queue contains the background consumer that listens to the view
// mutation queue and appends one line per event to <dir>/ggame-events.log.
package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// EventLogName is the file the consumer appends to.
const EventLogName = "ggame-events.log"

// Consumer drains a durable queue of ViewEvents into an event log.
type Consumer struct {
    URL    string
    Queue  string
    LogDir string
    Log    *zap.Logger
}

// Run connects to the broker, declares the queue (durable) and consumes
// until ctx is cancelled. Dial failures are retried with exponential
// backoff capped at 30s; a message that cannot be handled is rejected
// without requeue so a poison message cannot spin the loop.
func (c *Consumer) Run(ctx context.Context) error {
    lg := c.logger()
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            lg.Warn("event consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        lg.Warn("event consumer: consume loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.logger().Warn("event consumer: set QoS failed", zap.Error(err))
    }

    if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.HandleMessage(d.Body); err != nil {
                c.logger().Warn("event consumer: handle message failed", zap.Error(err))
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// HandleMessage decodes one ViewEvent and appends its log line.
func (c *Consumer) HandleMessage(body []byte) error {
    var ev ViewEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Kind == "" {
        return errors.New("event without kind")
    }

    dir := c.LogDir
    if dir == "" {
        dir = "logs"
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(dir, EventLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders ev as a single human-friendly log line.
func FormatLine(ev ViewEvent) string {
    var b strings.Builder
    fmt.Fprintf(&b, "[%s] %s | session=%s | user=%s", ev.OccurredAt, ev.Kind, ev.SessionID, ev.UserID)
    if ev.CardID != 0 {
        fmt.Fprintf(&b, " | card_id=%d", ev.CardID)
    }
    if ev.TemplateID != 0 {
        fmt.Fprintf(&b, " | template_id=%d", ev.TemplateID)
    }
    if ev.Position != 0 {
        fmt.Fprintf(&b, " | position=%d", ev.Position)
    }
    if ev.CoinsEarned != 0 {
        fmt.Fprintf(&b, " | coins_earned=%d", ev.CoinsEarned)
    }
    fmt.Fprintf(&b, " | coins=%d\n", ev.Coins)
    return b.String()
}

func (c *Consumer) logger() *zap.Logger {
    if c.Log == nil {
        return zap.NewNop()
    }
    return c.Log
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
